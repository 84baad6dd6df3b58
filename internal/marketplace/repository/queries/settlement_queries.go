package queries

// Settlement table queries

const (
	// IF NOT EXISTS guards the exactly-once settlement write.
	CreateSettlementQuery = `
		INSERT INTO bountyhive.settlements (
			task_id, escrow_total, sources, distributions, created_at
		) VALUES (?, ?, ?, ?, ?) IF NOT EXISTS`

	GetSettlementByTaskQuery = `
		SELECT task_id, escrow_total, sources, distributions, created_at
		FROM bountyhive.settlements
		WHERE task_id = ?`
)
