package migrations

import "gorm.io/gorm"

// migration002Up creates the election, list, candidate, ballot and audit tables.
// Constraint names are referenced by the repository error classifier.
func migration002Up(db *gorm.DB) error {
	tables := []string{
		`CREATE TABLE IF NOT EXISTS elections (
            id {uuid} PRIMARY KEY,
            title VARCHAR(200) NOT NULL,
            description TEXT NOT NULL DEFAULT '',
            status VARCHAR(32) NOT NULL DEFAULT 'draft',
            start_date {timestamp} NOT NULL,
            end_date {timestamp} NOT NULL,
            total_votes BIGINT NOT NULL DEFAULT 0,
            eligible_voters BIGINT NOT NULL DEFAULT 0,
            created_by {uuid} NOT NULL,
            created_at {timestamp} NOT NULL DEFAULT CURRENT_TIMESTAMP,
            updated_at {timestamp} NOT NULL DEFAULT CURRENT_TIMESTAMP,
            CONSTRAINT elections_status_check CHECK (status IN (
                'draft', 'scheduled', 'campaign', 'voting_open',
                'paused', 'voting_closed', 'results_published')),
            CONSTRAINT elections_total_votes_check CHECK (total_votes >= 0),
            CONSTRAINT elections_eligible_voters_check CHECK (eligible_voters >= 0),
            CONSTRAINT elections_dates_check CHECK (end_date >= start_date)
        )`,

		`CREATE TABLE IF NOT EXISTS candidate_lists (
            id {uuid} PRIMARY KEY,
            election_id {uuid} NOT NULL REFERENCES elections(id) ON DELETE CASCADE,
            name VARCHAR(120) NOT NULL,
            color VARCHAR(16) NOT NULL DEFAULT '#888888',
            description TEXT NOT NULL DEFAULT '',
            votes BIGINT NOT NULL DEFAULT 0,
            created_at {timestamp} NOT NULL DEFAULT CURRENT_TIMESTAMP,
            updated_at {timestamp} NOT NULL DEFAULT CURRENT_TIMESTAMP,
            CONSTRAINT candidate_lists_votes_check CHECK (votes >= 0),
            CONSTRAINT candidate_lists_id_election_key UNIQUE (id, election_id),
            CONSTRAINT candidate_lists_election_name_key UNIQUE (election_id, name)
        )`,

		`CREATE TABLE IF NOT EXISTS candidates (
            id {uuid} PRIMARY KEY,
            list_id {uuid} NOT NULL REFERENCES candidate_lists(id) ON DELETE CASCADE,
            full_name VARCHAR(160) NOT NULL,
            student_id VARCHAR(64) NOT NULL DEFAULT '',
            email VARCHAR(255) NOT NULL DEFAULT '',
            position VARCHAR(120) NOT NULL DEFAULT '',
            biography TEXT NOT NULL DEFAULT '',
            platform TEXT NOT NULL DEFAULT '',
            created_at {timestamp} NOT NULL DEFAULT CURRENT_TIMESTAMP,
            updated_at {timestamp} NOT NULL DEFAULT CURRENT_TIMESTAMP
        )`,

		// one row per voter per election; the list must belong to the same election
		`CREATE TABLE IF NOT EXISTS ballots (
            id {uuid} PRIMARY KEY,
            election_id {uuid} NOT NULL REFERENCES elections(id),
            candidate_list_id {uuid} NOT NULL,
            voter_id {uuid} NOT NULL,
            receipt VARCHAR(64) NOT NULL,
            created_at {timestamp} NOT NULL DEFAULT CURRENT_TIMESTAMP,
            CONSTRAINT ballots_voter_election_key UNIQUE (voter_id, election_id),
            CONSTRAINT ballots_receipt_key UNIQUE (receipt),
            CONSTRAINT ballots_list_election_fkey FOREIGN KEY (candidate_list_id, election_id)
                REFERENCES candidate_lists (id, election_id)
        )`,

		`CREATE TABLE IF NOT EXISTS tally_adjustments (
            id {uuid} PRIMARY KEY,
            election_id {uuid} NOT NULL REFERENCES elections(id) ON DELETE CASCADE,
            kind VARCHAR(16) NOT NULL,
            votes_added BIGINT NOT NULL DEFAULT 0,
            ballots_removed BIGINT NOT NULL DEFAULT 0,
            performed_by {uuid} NOT NULL,
            in_progress BOOLEAN NOT NULL DEFAULT FALSE,
            superseded BOOLEAN NOT NULL DEFAULT FALSE,
            created_at {timestamp} NOT NULL DEFAULT CURRENT_TIMESTAMP,
            CONSTRAINT tally_adjustments_kind_check CHECK (kind IN ('simulation', 'reset')),
            CONSTRAINT tally_adjustments_counts_check CHECK (votes_added >= 0 AND ballots_removed >= 0)
        )`,

		`CREATE TABLE IF NOT EXISTS results_snapshots (
            id {uuid} PRIMARY KEY,
            election_id {uuid} NOT NULL REFERENCES elections(id) ON DELETE CASCADE,
            payload {json} NOT NULL,
            object_key VARCHAR(255) NOT NULL DEFAULT '',
            published_at {timestamp} NOT NULL DEFAULT CURRENT_TIMESTAMP,
            CONSTRAINT results_snapshots_election_key UNIQUE (election_id)
        )`,
	}

	return execAll(db, tables)
}

// migration002Down drops the core tables
func migration002Down(db *gorm.DB) error {
	tables := []string{
		"results_snapshots",
		"tally_adjustments",
		"ballots",
		"candidates",
		"candidate_lists",
		"elections",
	}

	for _, table := range tables {
		if err := db.Exec("DROP TABLE IF EXISTS " + table).Error; err != nil {
			return err
		}
	}

	return nil
}
