package progress

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"

	"github.com/at-ishikawa/spacedrep/internal/database"
	"github.com/at-ishikawa/spacedrep/internal/schedule"
)

const mysqlErrDuplicateEntry = 1062

// DBRepository implements Repository using MySQL.
type DBRepository struct {
	db *sqlx.DB
}

// NewDBRepository creates a new DBRepository.
func NewDBRepository(db *sqlx.DB) *DBRepository {
	return &DBRepository{db: db}
}

var selectRecords = "SELECT " + strings.Join(recordColumns, ", ") + " FROM schedule_records"

// Get returns the record for a learner and item, or ErrNotFound.
func (r *DBRepository) Get(ctx context.Context, learnerID, itemID string) (*schedule.Record, error) {
	var record schedule.Record
	err := r.db.GetContext(ctx, &record,
		selectRecords+" WHERE learner_id = ? AND item_id = ?", learnerID, itemID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load schedule record(%s/%s): %w", learnerID, itemID, err)
	}
	record.Normalize()
	return &record, nil
}

// ListByLearner returns every record of a learner ordered by item id.
func (r *DBRepository) ListByLearner(ctx context.Context, learnerID string) ([]schedule.Record, error) {
	var records []schedule.Record
	if err := r.db.SelectContext(ctx, &records,
		selectRecords+" WHERE learner_id = ? ORDER BY item_id", learnerID); err != nil {
		return nil, fmt.Errorf("load schedule records(%s): %w", learnerID, err)
	}
	return normalizeAll(records), nil
}

// ListAll returns every record.
func (r *DBRepository) ListAll(ctx context.Context) ([]schedule.Record, error) {
	var records []schedule.Record
	if err := r.db.SelectContext(ctx, &records,
		selectRecords+" ORDER BY learner_id, item_id"); err != nil {
		return nil, fmt.Errorf("load all schedule records: %w", err)
	}
	return normalizeAll(records), nil
}

// Save inserts or updates a record using its version for optimistic locking.
func (r *DBRepository) Save(ctx context.Context, record *schedule.Record) error {
	if record.Version == 0 {
		query := database.BuildMultiRowInsert("schedule_records", recordColumns, 1)
		if _, err := r.db.ExecContext(ctx, query, recordArgs(record, 1)...); err != nil {
			var mysqlErr *mysql.MySQLError
			if errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlErrDuplicateEntry {
				return ErrVersionConflict
			}
			return fmt.Errorf("insert schedule record(%s): %w", record.Key(), err)
		}
		record.Version = 1
		return nil
	}

	result, err := r.db.ExecContext(ctx,
		`UPDATE schedule_records SET status = ?, percentage_completion = ?, last_quality = ?,
		review_count = ?, interval_days = ?, easiness_factor = ?, due_at = ?, last_reviewed_at = ?,
		time_studied_total = ?, version = version + 1
		WHERE learner_id = ? AND item_id = ? AND version = ?`,
		string(record.Status), record.PercentageCompletion, record.LastQuality,
		record.ReviewCount, record.IntervalDays, record.EasinessFactor, record.DueAt, record.LastReviewedAt,
		record.TimeStudiedTotal, record.LearnerID, record.ItemID, record.Version)
	if err != nil {
		return fmt.Errorf("update schedule record(%s): %w", record.Key(), err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("result.RowsAffected(): %w", err)
	}
	if affected == 0 {
		return ErrVersionConflict
	}
	record.Version++
	return nil
}

// BatchUpsert writes records in a single transaction, replacing existing rows.
func (r *DBRepository) BatchUpsert(ctx context.Context, records []*schedule.Record) error {
	if len(records) == 0 {
		return nil
	}

	return database.RunInTx(ctx, r.db, func(ctx context.Context, tx *sqlx.Tx) error {
		var updates []string
		for _, c := range recordColumns[2 : len(recordColumns)-1] {
			updates = append(updates, fmt.Sprintf("%s = VALUES(%s)", c, c))
		}
		updates = append(updates, "version = version + 1")
		query := database.BuildMultiRowInsert("schedule_records", recordColumns, len(records)) +
			" ON DUPLICATE KEY UPDATE " + strings.Join(updates, ", ")

		var args []interface{}
		for _, rec := range records {
			args = append(args, recordArgs(rec, 1)...)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("upsert schedule records: %w", err)
		}
		return nil
	})
}

// DBLogRepository implements LogRepository using MySQL.
type DBLogRepository struct {
	db *sqlx.DB
}

// NewDBLogRepository creates a new DBLogRepository.
func NewDBLogRepository(db *sqlx.DB) *DBLogRepository {
	return &DBLogRepository{db: db}
}

// Append inserts a review log entry.
func (r *DBLogRepository) Append(ctx context.Context, log *ReviewLog) error {
	query := database.BuildMultiRowInsert("review_logs", logColumns, 1)
	if _, err := r.db.ExecContext(ctx, query, logArgs(log)...); err != nil {
		return fmt.Errorf("insert review log: %w", err)
	}
	return nil
}

// ListByItem returns the log of an item in append order, which is the
// order the events were applied regardless of their occurred_at.
func (r *DBLogRepository) ListByItem(ctx context.Context, learnerID, itemID string) ([]ReviewLog, error) {
	var logs []ReviewLog
	if err := r.db.SelectContext(ctx, &logs,
		"SELECT "+strings.Join(logColumns, ", ")+" FROM review_logs WHERE learner_id = ? AND item_id = ? ORDER BY seq",
		learnerID, itemID); err != nil {
		return nil, fmt.Errorf("load review logs(%s/%s): %w", learnerID, itemID, err)
	}
	return logs, nil
}
