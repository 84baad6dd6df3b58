package queries

// Jury ballot table queries

const (
	CreateBallotQuery = `
		INSERT INTO bountyhive.jury_ballots (
			ballot_id, task_id, arbiter_id, candidate_pool, created_at
		) VALUES (?, ?, ?, ?, ?)`

	GetBallotByIDQuery = `
		SELECT ballot_id, task_id, arbiter_id, candidate_pool,
			winner_submission_id, malicious_submission_ids, feedback,
			voted_at, created_at
		FROM bountyhive.jury_ballots
		WHERE ballot_id = ?`

	GetBallotsByTaskQuery = `
		SELECT ballot_id, task_id, arbiter_id, candidate_pool,
			winner_submission_id, malicious_submission_ids, feedback,
			voted_at, created_at
		FROM bountyhive.jury_ballots
		WHERE task_id = ? ALLOW FILTERING`

	CastBallotQuery = `
		UPDATE bountyhive.jury_ballots
		SET winner_submission_id = ?, malicious_submission_ids = ?,
			feedback = ?, voted_at = ?
		WHERE ballot_id = ?`
)
