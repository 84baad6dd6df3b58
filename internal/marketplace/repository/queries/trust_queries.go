package queries

// Trust ledger table queries

const (
	GetUserTrustQuery = `
		SELECT user_id, score, tier, consolation_total, stake_bonus,
			is_arbiter, updated_at
		FROM bountyhive.trust_scores
		WHERE user_id = ?`

	UpsertUserTrustQuery = `
		INSERT INTO bountyhive.trust_scores (
			user_id, score, tier, consolation_total, stake_bonus,
			is_arbiter, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)`

	AppendTrustEventQuery = `
		INSERT INTO bountyhive.trust_events (
			event_id, user_id, event_type, task_id, amount,
			delta, score_before, score_after, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	GetTrustEventsByUserQuery = `
		SELECT event_id, user_id, event_type, task_id, amount,
			delta, score_before, score_after, created_at
		FROM bountyhive.trust_events
		WHERE user_id = ? ALLOW FILTERING`
)
