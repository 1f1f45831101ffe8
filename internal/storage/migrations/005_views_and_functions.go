package migrations

import "gorm.io/gorm"

// migration005Up creates the audit view comparing counters against the ballot log
func migration005Up(db *gorm.DB) error {
	statements := []string{
		"DROP VIEW IF EXISTS election_tally_audit",
		`CREATE VIEW election_tally_audit AS
        SELECT
            e.id AS election_id,
            e.total_votes AS total_votes,
            COALESCE((
                SELECT SUM(l.votes) FROM candidate_lists l
                WHERE l.election_id = e.id
            ), 0) AS list_votes,
            (
                SELECT COUNT(*) FROM ballots b
                WHERE b.election_id = e.id
            ) AS ballot_count,
            COALESCE((
                SELECT SUM(a.votes_added) FROM tally_adjustments a
                WHERE a.election_id = e.id
                  AND a.kind = 'simulation'
                  AND a.superseded = FALSE
            ), 0) AS simulated_votes
        FROM elections e`,
	}

	if err := execAll(db, statements); err != nil {
		return err
	}

	if isPostgres(db) {
		comments := []string{
			"COMMENT ON VIEW election_tally_audit IS 'Per election counters next to the ballot log for drift detection'",
			"COMMENT ON TABLE tally_adjustments IS 'Administrative simulation and reset operations'",
			"COMMENT ON COLUMN ballots.receipt IS 'Opaque random token, unrelated to the chosen list'",
		}
		for _, commentSQL := range comments {
			if err := db.Exec(commentSQL).Error; err != nil {
				return err
			}
		}
	}

	return nil
}

// migration005Down drops the audit view
func migration005Down(db *gorm.DB) error {
	return db.Exec("DROP VIEW IF EXISTS election_tally_audit").Error
}
