package progress

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/at-ishikawa/spacedrep/internal/schedule"
)

const pgUniqueViolation = "23505"

// DBTX is the subset of pgxpool.Pool and pgx.Tx used by the Postgres repositories.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db DBTX
}

// NewPostgresRepository creates a new PostgresRepository.
func NewPostgresRepository(db DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

var pgSelectRecords = "SELECT " + strings.Join(recordColumns, ", ") + " FROM schedule_records"

func pgPlaceholders(n int) string {
	ph := make([]string, n)
	for i := range ph {
		ph[i] = fmt.Sprintf("$%d", i+1)
	}
	return strings.Join(ph, ", ")
}

func scanRecord(row pgx.Row) (*schedule.Record, error) {
	var r schedule.Record
	var status string
	if err := row.Scan(
		&r.LearnerID, &r.ItemID, &status, &r.PercentageCompletion, &r.LastQuality,
		&r.ReviewCount, &r.IntervalDays, &r.EasinessFactor, &r.DueAt, &r.LastReviewedAt,
		&r.TimeStudiedTotal, &r.Version,
	); err != nil {
		return nil, err
	}
	r.Status = schedule.Status(status)
	r.Normalize()
	return &r, nil
}

// Get returns the record for a learner and item, or ErrNotFound.
func (r *PostgresRepository) Get(ctx context.Context, learnerID, itemID string) (*schedule.Record, error) {
	record, err := scanRecord(r.db.QueryRow(ctx,
		pgSelectRecords+" WHERE learner_id = $1 AND item_id = $2", learnerID, itemID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load schedule record(%s/%s): %w", learnerID, itemID, err)
	}
	return record, nil
}

func (r *PostgresRepository) list(ctx context.Context, query string, args ...any) ([]schedule.Record, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []schedule.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

// ListByLearner returns every record of a learner ordered by item id.
func (r *PostgresRepository) ListByLearner(ctx context.Context, learnerID string) ([]schedule.Record, error) {
	records, err := r.list(ctx, pgSelectRecords+" WHERE learner_id = $1 ORDER BY item_id", learnerID)
	if err != nil {
		return nil, fmt.Errorf("load schedule records(%s): %w", learnerID, err)
	}
	return records, nil
}

// ListAll returns every record.
func (r *PostgresRepository) ListAll(ctx context.Context) ([]schedule.Record, error) {
	records, err := r.list(ctx, pgSelectRecords+" ORDER BY learner_id, item_id")
	if err != nil {
		return nil, fmt.Errorf("load all schedule records: %w", err)
	}
	return records, nil
}

// Save inserts or updates a record using its version for optimistic locking.
func (r *PostgresRepository) Save(ctx context.Context, record *schedule.Record) error {
	if record.Version == 0 {
		query := fmt.Sprintf("INSERT INTO schedule_records (%s) VALUES (%s)",
			strings.Join(recordColumns, ", "), pgPlaceholders(len(recordColumns)))
		if _, err := r.db.Exec(ctx, query, recordArgs(record, 1)...); err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
				return ErrVersionConflict
			}
			return fmt.Errorf("insert schedule record(%s): %w", record.Key(), err)
		}
		record.Version = 1
		return nil
	}

	tag, err := r.db.Exec(ctx,
		`UPDATE schedule_records SET status = $1, percentage_completion = $2, last_quality = $3,
		review_count = $4, interval_days = $5, easiness_factor = $6, due_at = $7, last_reviewed_at = $8,
		time_studied_total = $9, version = version + 1, updated_at = NOW()
		WHERE learner_id = $10 AND item_id = $11 AND version = $12`,
		string(record.Status), record.PercentageCompletion, record.LastQuality,
		record.ReviewCount, record.IntervalDays, record.EasinessFactor, record.DueAt, record.LastReviewedAt,
		record.TimeStudiedTotal, record.LearnerID, record.ItemID, record.Version)
	if err != nil {
		return fmt.Errorf("update schedule record(%s): %w", record.Key(), err)
	}
	if tag.RowsAffected() == 0 {
		return ErrVersionConflict
	}
	record.Version++
	return nil
}

// BatchUpsert writes records in one round trip, replacing existing rows.
func (r *PostgresRepository) BatchUpsert(ctx context.Context, records []*schedule.Record) error {
	if len(records) == 0 {
		return nil
	}

	var updates []string
	for _, c := range recordColumns[2 : len(recordColumns)-1] {
		updates = append(updates, fmt.Sprintf("%s = EXCLUDED.%s", c, c))
	}
	updates = append(updates, "version = schedule_records.version + 1", "updated_at = NOW()")
	query := fmt.Sprintf("INSERT INTO schedule_records (%s) VALUES (%s) ON CONFLICT (learner_id, item_id) DO UPDATE SET %s",
		strings.Join(recordColumns, ", "), pgPlaceholders(len(recordColumns)), strings.Join(updates, ", "))

	batch := &pgx.Batch{}
	for _, rec := range records {
		batch.Queue(query, recordArgs(rec, 1)...)
	}
	results := r.db.SendBatch(ctx, batch)
	for range records {
		if _, err := results.Exec(); err != nil {
			_ = results.Close()
			return fmt.Errorf("upsert schedule records: %w", err)
		}
	}
	if err := results.Close(); err != nil {
		return fmt.Errorf("close batch: %w", err)
	}
	return nil
}

// PostgresLogRepository implements LogRepository using PostgreSQL.
type PostgresLogRepository struct {
	db DBTX
}

// NewPostgresLogRepository creates a new PostgresLogRepository.
func NewPostgresLogRepository(db DBTX) *PostgresLogRepository {
	return &PostgresLogRepository{db: db}
}

// Append inserts a review log entry.
func (r *PostgresLogRepository) Append(ctx context.Context, log *ReviewLog) error {
	query := fmt.Sprintf("INSERT INTO review_logs (%s) VALUES (%s)",
		strings.Join(logColumns, ", "), pgPlaceholders(len(logColumns)))
	if _, err := r.db.Exec(ctx, query, logArgs(log)...); err != nil {
		return fmt.Errorf("insert review log: %w", err)
	}
	return nil
}

// ListByItem returns the log of an item in append order, which is the
// order the events were applied regardless of their occurred_at.
func (r *PostgresLogRepository) ListByItem(ctx context.Context, learnerID, itemID string) ([]ReviewLog, error) {
	rows, err := r.db.Query(ctx,
		"SELECT "+strings.Join(logColumns, ", ")+" FROM review_logs WHERE learner_id = $1 AND item_id = $2 ORDER BY seq",
		learnerID, itemID)
	if err != nil {
		return nil, fmt.Errorf("load review logs(%s/%s): %w", learnerID, itemID, err)
	}
	defer rows.Close()

	var logs []ReviewLog
	for rows.Next() {
		var l ReviewLog
		var kind string
		if err := rows.Scan(&l.ID, &l.LearnerID, &l.ItemID, &kind, &l.Quality, &l.Status, &l.Percentage, &l.StudyMinutes,
			&l.OccurredAt, &l.IntervalDays, &l.EasinessFactor); err != nil {
			return nil, fmt.Errorf("scan review log: %w", err)
		}
		l.Kind = LogKind(kind)
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate review logs: %w", err)
	}
	return logs, nil
}
