package queries

// Submission table queries

const (
	CreateSubmissionQuery = `
		INSERT INTO bountyhive.submissions (
			submission_id, task_id, worker_id, revision, content, status,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	GetSubmissionByIDQuery = `
		SELECT submission_id, task_id, worker_id, revision, content, status,
			score, oracle_feedback, created_at, updated_at
		FROM bountyhive.submissions
		WHERE submission_id = ?`

	GetSubmissionsByTaskQuery = `
		SELECT submission_id, task_id, worker_id, revision, content, status,
			score, oracle_feedback, created_at, updated_at
		FROM bountyhive.submissions
		WHERE task_id = ? ALLOW FILTERING`

	CountSubmissionsByWorkerQuery = `
		SELECT COUNT(*) FROM bountyhive.submissions
		WHERE task_id = ? AND worker_id = ? ALLOW FILTERING`

	UpdateSubmissionGateQuery = `
		UPDATE bountyhive.submissions
		SET status = ?, oracle_feedback = ?, updated_at = ?
		WHERE submission_id = ?`

	UpdateSubmissionScoreQuery = `
		UPDATE bountyhive.submissions
		SET status = ?, score = ?, oracle_feedback = ?, updated_at = ?
		WHERE submission_id = ?`
)
