package migrations

import "gorm.io/gorm"

var indexes = []struct {
	name string
	sql  string
}{
	{"idx_elections_status", "CREATE INDEX IF NOT EXISTS idx_elections_status ON elections(status)"},
	{"idx_elections_created_at", "CREATE INDEX IF NOT EXISTS idx_elections_created_at ON elections(created_at DESC)"},
	{"idx_candidate_lists_election", "CREATE INDEX IF NOT EXISTS idx_candidate_lists_election ON candidate_lists(election_id)"},
	{"idx_candidates_list", "CREATE INDEX IF NOT EXISTS idx_candidates_list ON candidates(list_id)"},
	{"idx_ballots_election", "CREATE INDEX IF NOT EXISTS idx_ballots_election ON ballots(election_id)"},
	{"idx_ballots_list_election", "CREATE INDEX IF NOT EXISTS idx_ballots_list_election ON ballots(candidate_list_id, election_id)"},
	{"idx_tally_adjustments_election", "CREATE INDEX IF NOT EXISTS idx_tally_adjustments_election ON tally_adjustments(election_id, kind)"},
}

// migration003Up creates lookup indexes on foreign keys and status
func migration003Up(db *gorm.DB) error {
	for _, idx := range indexes {
		if err := db.Exec(idx.sql).Error; err != nil {
			return err
		}
	}
	return nil
}

// migration003Down drops the lookup indexes
func migration003Down(db *gorm.DB) error {
	for _, idx := range indexes {
		if err := db.Exec("DROP INDEX IF EXISTS " + idx.name).Error; err != nil {
			return err
		}
	}
	return nil
}
