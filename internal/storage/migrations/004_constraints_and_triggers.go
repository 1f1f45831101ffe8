package migrations

import "gorm.io/gorm"

// Messages raised by the ballot triggers. The repository classifier matches on them.
const (
	RaiseElectionNotOpen = "election_not_open"
	RaiseBallotImmutable = "ballot_immutable"
)

// migration004Up installs the tally maintenance triggers on ballots: a status
// guard, the counter increment and the immutability rule.
func migration004Up(db *gorm.DB) error {
	if isPostgres(db) {
		return postgresTallyTriggers(db)
	}
	return sqliteTallyTriggers(db)
}

func postgresTallyTriggers(db *gorm.DB) error {
	functions := []string{
		`CREATE OR REPLACE FUNCTION urna_ballot_guard()
        RETURNS TRIGGER AS $$
        DECLARE
            current_status TEXT;
        BEGIN
            -- row lock orders concurrent ballots of one election behind status changes and bulk tally work
            SELECT status INTO current_status
            FROM elections
            WHERE id = NEW.election_id
            FOR UPDATE;

            IF current_status IS DISTINCT FROM 'voting_open' THEN
                RAISE EXCEPTION 'election_not_open';
            END IF;

            IF NEW.receipt IS NULL OR NEW.receipt = '' THEN
                NEW.receipt := 'rcpt_' || encode(gen_random_bytes(16), 'hex');
            END IF;

            RETURN NEW;
        END;
        $$ LANGUAGE plpgsql`,

		`CREATE OR REPLACE FUNCTION urna_ballot_tally()
        RETURNS TRIGGER AS $$
        BEGIN
            UPDATE candidate_lists
            SET votes = votes + 1
            WHERE id = NEW.candidate_list_id AND election_id = NEW.election_id;

            UPDATE elections
            SET total_votes = total_votes + 1
            WHERE id = NEW.election_id;

            RETURN NEW;
        END;
        $$ LANGUAGE plpgsql`,

		`CREATE OR REPLACE FUNCTION urna_ballot_immutable()
        RETURNS TRIGGER AS $$
        BEGIN
            IF TG_OP = 'DELETE' AND EXISTS (
                SELECT 1 FROM tally_adjustments
                WHERE election_id = OLD.election_id
                  AND kind = 'reset'
                  AND in_progress
            ) THEN
                RETURN OLD;
            END IF;

            RAISE EXCEPTION 'ballot_immutable';
        END;
        $$ LANGUAGE plpgsql`,
	}

	for _, funcSQL := range functions {
		if err := db.Exec(funcSQL).Error; err != nil {
			return err
		}
	}

	triggers := []string{
		"DROP TRIGGER IF EXISTS urna_ballots_guard ON ballots",
		"CREATE TRIGGER urna_ballots_guard BEFORE INSERT ON ballots FOR EACH ROW EXECUTE FUNCTION urna_ballot_guard()",
		"DROP TRIGGER IF EXISTS urna_ballots_tally ON ballots",
		"CREATE TRIGGER urna_ballots_tally AFTER INSERT ON ballots FOR EACH ROW EXECUTE FUNCTION urna_ballot_tally()",
		"DROP TRIGGER IF EXISTS urna_ballots_immutable ON ballots",
		"CREATE TRIGGER urna_ballots_immutable BEFORE UPDATE OR DELETE ON ballots FOR EACH ROW EXECUTE FUNCTION urna_ballot_immutable()",
	}

	for _, triggerSQL := range triggers {
		if err := db.Exec(triggerSQL).Error; err != nil {
			return err
		}
	}

	return nil
}

func sqliteTallyTriggers(db *gorm.DB) error {
	triggers := []string{
		`CREATE TRIGGER IF NOT EXISTS urna_ballots_guard
        BEFORE INSERT ON ballots
        BEGIN
            SELECT RAISE(ABORT, 'election_not_open')
            WHERE COALESCE((SELECT status FROM elections WHERE id = NEW.election_id), '') <> 'voting_open';
        END`,

		`CREATE TRIGGER IF NOT EXISTS urna_ballots_tally
        AFTER INSERT ON ballots
        BEGIN
            UPDATE candidate_lists
            SET votes = votes + 1
            WHERE id = NEW.candidate_list_id AND election_id = NEW.election_id;

            UPDATE elections
            SET total_votes = total_votes + 1
            WHERE id = NEW.election_id;
        END`,

		`CREATE TRIGGER IF NOT EXISTS urna_ballots_no_update
        BEFORE UPDATE ON ballots
        BEGIN
            SELECT RAISE(ABORT, 'ballot_immutable');
        END`,

		`CREATE TRIGGER IF NOT EXISTS urna_ballots_no_delete
        BEFORE DELETE ON ballots
        BEGIN
            SELECT RAISE(ABORT, 'ballot_immutable')
            WHERE NOT EXISTS (
                SELECT 1 FROM tally_adjustments
                WHERE election_id = OLD.election_id
                  AND kind = 'reset'
                  AND in_progress = TRUE
            );
        END`,
	}

	for _, triggerSQL := range triggers {
		if err := db.Exec(triggerSQL).Error; err != nil {
			return err
		}
	}

	return nil
}

// migration004Down drops the ballot triggers and their functions
func migration004Down(db *gorm.DB) error {
	if !isPostgres(db) {
		for _, trigger := range []string{
			"urna_ballots_guard",
			"urna_ballots_tally",
			"urna_ballots_no_update",
			"urna_ballots_no_delete",
		} {
			if err := db.Exec("DROP TRIGGER IF EXISTS " + trigger).Error; err != nil {
				return err
			}
		}
		return nil
	}

	triggers := []string{
		"urna_ballots_guard",
		"urna_ballots_tally",
		"urna_ballots_immutable",
	}

	for _, trigger := range triggers {
		if err := db.Exec("DROP TRIGGER IF EXISTS " + trigger + " ON ballots").Error; err != nil {
			return err
		}
	}

	functions := []string{
		"urna_ballot_guard()",
		"urna_ballot_tally()",
		"urna_ballot_immutable()",
	}

	for _, function := range functions {
		if err := db.Exec("DROP FUNCTION IF EXISTS " + function).Error; err != nil {
			return err
		}
	}

	return nil
}
