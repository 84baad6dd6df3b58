package queries

// Challenge table queries

const (
	CreateChallengeQuery = `
		INSERT INTO bountyhive.challenges (
			challenge_id, task_id, challenger_submission_id, target_submission_id,
			challenger_id, reason, status, deposit_amount, deposit_tx_ref, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	GetChallengeByIDQuery = `
		SELECT challenge_id, task_id, challenger_submission_id, target_submission_id,
			challenger_id, reason, status, verdict, whistleblower,
			deposit_amount, deposit_tx_ref, created_at, judged_at
		FROM bountyhive.challenges
		WHERE challenge_id = ?`

	GetChallengesByTaskQuery = `
		SELECT challenge_id, task_id, challenger_submission_id, target_submission_id,
			challenger_id, reason, status, verdict, whistleblower,
			deposit_amount, deposit_tx_ref, created_at, judged_at
		FROM bountyhive.challenges
		WHERE task_id = ? ALLOW FILTERING`

	GetLatestChallengeByChallengerQuery = `
		SELECT challenge_id, task_id, challenger_submission_id, target_submission_id,
			challenger_id, reason, status, verdict, whistleblower,
			deposit_amount, deposit_tx_ref, created_at, judged_at
		FROM bountyhive.challenges
		WHERE challenger_id = ? ALLOW FILTERING`

	UpdateChallengeVerdictQuery = `
		UPDATE bountyhive.challenges
		SET status = ?, verdict = ?, whistleblower = ?, judged_at = ?
		WHERE challenge_id = ?`
)
