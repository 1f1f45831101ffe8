package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/gravadigital/urna-api/internal/logger"
)

// urnaTables are the tables the report covers
var urnaTables = []string{"elections", "candidate_lists", "candidates", "ballots", "tally_adjustments", "results_snapshots"}

// TableStats represents table statistics
type TableStats struct {
	TableName  string `json:"table_name"`
	LiveRows   int64  `json:"live_rows"`
	DeadRows   int64  `json:"dead_rows"`
	SeqScans   int64  `json:"seq_scans"`
	IndexScans int64  `json:"index_scans"`
	TableSize  string `json:"table_size"`
	IndexSize  string `json:"index_size"`
}

// IndexUsage represents index usage statistics
type IndexUsage struct {
	TableName string `json:"table_name"`
	IndexName string `json:"index_name"`
	Scans     int64  `json:"scans"`
}

// StatsReport is what `migrate -stats` prints
type StatsReport struct {
	Tables  []TableStats `json:"tables"`
	Indexes []IndexUsage `json:"indexes"`
	Hints   []string     `json:"hints"`
}

// CollectStats reads pg_stat_user_tables and pg_stat_user_indexes for the urna tables
func CollectStats(ctx context.Context, db *gorm.DB) (*StatsReport, error) {
	log := logger.Database()
	if db.Dialector.Name() != "postgres" {
		return nil, fmt.Errorf("statistics are only available on postgres, not %s", db.Dialector.Name())
	}

	report := &StatsReport{}

	err := db.WithContext(ctx).Raw(`
		SELECT
			relname AS table_name,
			n_live_tup AS live_rows,
			n_dead_tup AS dead_rows,
			COALESCE(seq_scan, 0) AS seq_scans,
			COALESCE(idx_scan, 0) AS index_scans,
			pg_size_pretty(pg_table_size(relid)) AS table_size,
			pg_size_pretty(pg_indexes_size(relid)) AS index_size
		FROM pg_stat_user_tables
		WHERE relname IN ?
		ORDER BY pg_total_relation_size(relid) DESC
	`, urnaTables).Scan(&report.Tables).Error
	if err != nil {
		return nil, fmt.Errorf("failed to read table statistics: %w", err)
	}

	err = db.WithContext(ctx).Raw(`
		SELECT
			relname AS table_name,
			indexrelname AS index_name,
			COALESCE(idx_scan, 0) AS scans
		FROM pg_stat_user_indexes
		WHERE relname IN ?
		ORDER BY relname, indexrelname
	`, urnaTables).Scan(&report.Indexes).Error
	if err != nil {
		return nil, fmt.Errorf("failed to read index statistics: %w", err)
	}

	report.Hints = statsHints(report)
	log.Debug("Collected table statistics", "tables", len(report.Tables), "indexes", len(report.Indexes), "hints", len(report.Hints))
	return report, nil
}

func statsHints(r *StatsReport) []string {
	var hints []string

	for _, t := range r.Tables {
		// ballots are looked up by voter and receipt; a seq-scan heavy profile means an index went missing
		if t.TableName == "ballots" && t.LiveRows > 10000 && t.SeqScans > t.IndexScans {
			hints = append(hints, fmt.Sprintf("ballots: %d sequential vs %d index scans, check ballots_voter_election_key and ballots_receipt_key", t.SeqScans, t.IndexScans))
		}
		if t.LiveRows > 0 && t.DeadRows > t.LiveRows/5 {
			hints = append(hints, fmt.Sprintf("%s: %d dead rows, consider VACUUM ANALYZE", t.TableName, t.DeadRows))
		}
	}

	for _, idx := range r.Indexes {
		if idx.Scans == 0 {
			hints = append(hints, fmt.Sprintf("%s.%s has never been scanned", idx.TableName, idx.IndexName))
		}
	}

	return hints
}
