package repository

import (
	"github.com/bountyhive/bountyhive-backend/pkg/database"
	"github.com/bountyhive/bountyhive-backend/pkg/errors"
)

var schemaStatements = []string{
	`CREATE KEYSPACE IF NOT EXISTS bountyhive
		WITH replication = {'class': 'SimpleStrategy', 'replication_factor': 1}`,
	`CREATE TABLE IF NOT EXISTS bountyhive.tasks (
		task_id text PRIMARY KEY,
		publisher_id text,
		task_type text,
		status text,
		title text,
		description text,
		bounty bigint,
		deadline timestamp,
		threshold double,
		max_revisions int,
		challenge_duration_s bigint,
		submission_deposit bigint,
		acceptance_criteria list<text>,
		scoring_dimensions text,
		challenge_window_end timestamp,
		winner_submission_id text,
		escrow_hold_ref text,
		created_at timestamp,
		updated_at timestamp
	)`,
	`CREATE TABLE IF NOT EXISTS bountyhive.submissions (
		submission_id text PRIMARY KEY,
		task_id text,
		worker_id text,
		revision int,
		content text,
		status text,
		score double,
		oracle_feedback text,
		created_at timestamp,
		updated_at timestamp
	)`,
	`CREATE TABLE IF NOT EXISTS bountyhive.challenges (
		challenge_id text PRIMARY KEY,
		task_id text,
		challenger_submission_id text,
		target_submission_id text,
		challenger_id text,
		reason text,
		status text,
		verdict text,
		whistleblower boolean,
		deposit_amount bigint,
		deposit_tx_ref text,
		created_at timestamp,
		judged_at timestamp
	)`,
	`CREATE TABLE IF NOT EXISTS bountyhive.jury_ballots (
		ballot_id text PRIMARY KEY,
		task_id text,
		arbiter_id text,
		candidate_pool list<text>,
		winner_submission_id text,
		malicious_submission_ids list<text>,
		feedback text,
		voted_at timestamp,
		created_at timestamp
	)`,
	`CREATE TABLE IF NOT EXISTS bountyhive.trust_scores (
		user_id text PRIMARY KEY,
		score double,
		tier text,
		consolation_total double,
		stake_bonus double,
		is_arbiter boolean,
		updated_at timestamp
	)`,
	`CREATE TABLE IF NOT EXISTS bountyhive.trust_events (
		event_id text PRIMARY KEY,
		user_id text,
		event_type text,
		task_id text,
		amount bigint,
		delta double,
		score_before double,
		score_after double,
		created_at timestamp
	)`,
	`CREATE TABLE IF NOT EXISTS bountyhive.settlements (
		task_id text PRIMARY KEY,
		escrow_total bigint,
		sources text,
		distributions text,
		created_at timestamp
	)`,
}

// InitSchema creates the keyspace and tables if they do not exist.
func InitSchema(db *database.Connection) error {
	for _, stmt := range schemaStatements {
		if err := db.NewQuery(stmt).Exec(); err != nil {
			return errors.Wrap(errors.KindExternal, "error applying schema", err)
		}
	}
	return nil
}
