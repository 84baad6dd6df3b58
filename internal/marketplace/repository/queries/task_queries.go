package queries

// Task table queries

const (
	CreateTaskQuery = `
		INSERT INTO bountyhive.tasks (
			task_id, publisher_id, task_type, status, title, description,
			bounty, deadline, threshold, max_revisions, challenge_duration_s,
			submission_deposit, acceptance_criteria, scoring_dimensions,
			escrow_hold_ref, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	GetTaskByIDQuery = `
		SELECT task_id, publisher_id, task_type, status, title, description,
			bounty, deadline, threshold, max_revisions, challenge_duration_s,
			submission_deposit, acceptance_criteria, scoring_dimensions,
			challenge_window_end, winner_submission_id, escrow_hold_ref,
			created_at, updated_at
		FROM bountyhive.tasks
		WHERE task_id = ?`

	GetTasksByStatusQuery = `
		SELECT task_id, publisher_id, task_type, status, title, description,
			bounty, deadline, threshold, max_revisions, challenge_duration_s,
			submission_deposit, acceptance_criteria, scoring_dimensions,
			challenge_window_end, winner_submission_id, escrow_hold_ref,
			created_at, updated_at
		FROM bountyhive.tasks
		WHERE status = ? ALLOW FILTERING`

	UpdateTaskStatusQuery = `
		UPDATE bountyhive.tasks
		SET status = ?, updated_at = ?
		WHERE task_id = ?`

	UpdateTaskWinnerQuery = `
		UPDATE bountyhive.tasks
		SET winner_submission_id = ?, updated_at = ?
		WHERE task_id = ?`

	UpdateTaskChallengeWindowQuery = `
		UPDATE bountyhive.tasks
		SET challenge_window_end = ?, updated_at = ?
		WHERE task_id = ?`
)
