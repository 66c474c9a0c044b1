package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	apperrors "github.com/Kosench/go-url-tracker/internal/errors"
	"github.com/Kosench/go-url-tracker/internal/model"
)

const (
	uniqueViolationCode = "23505"

	constraintPrimaryKey = "url_records_pkey"
	constraintUniqueURL  = "url_records_url_key"
)

type PostgresRecordRepository struct {
	db *sql.DB
}

func NewPostgresRecordRepository(db *sql.DB) *PostgresRecordRepository {
	return &PostgresRecordRepository{
		db: db,
	}
}

func (r *PostgresRecordRepository) Insert(ctx context.Context, record *model.URLRecord) error {
	query := `
	INSERT INTO url_records (id, url, input_date_time, expire_date_time, active_status)
	VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		record.ID,
		record.URL,
		record.InputDateTime.Time,
		record.ExpireDateTime.Time,
		int(record.ActiveStatus),
	)
	if err != nil {
		if conflict := uniqueConflict(err); conflict != nil {
			return conflict
		}
		return apperrors.NewStoreError("failed to insert record", err)
	}

	return nil
}

func (r *PostgresRecordRepository) GetByID(ctx context.Context, id int64) (*model.URLRecord, error) {
	query := `
	SELECT id, url, input_date_time, expire_date_time, active_status
	FROM url_records
	WHERE id = $1
	`

	record, err := scanRecord(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("record with ID %d: %w", id, apperrors.ErrRecordNotFound)
	}
	if err != nil {
		return nil, apperrors.NewStoreError("failed to get record", err)
	}

	return record, nil
}

func (r *PostgresRecordRepository) GetByURL(ctx context.Context, url string) (*model.URLRecord, error) {
	query := `
	SELECT id, url, input_date_time, expire_date_time, active_status
	FROM url_records
	WHERE url = $1
	`

	record, err := scanRecord(r.db.QueryRowContext(ctx, query, url))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.ErrRecordNotFound
	}
	if err != nil {
		return nil, apperrors.NewStoreError("failed to get record by URL", err)
	}

	return record, nil
}

func (r *PostgresRecordRepository) ListIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM url_records ORDER BY id`)
	if err != nil {
		return nil, apperrors.NewStoreError("failed to list record IDs", err)
	}
	defer rows.Close()

	ids := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, apperrors.NewStoreError("failed to scan record ID", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStoreError("failed to iterate record IDs", err)
	}

	return ids, nil
}

func (r *PostgresRecordRepository) ListAll(ctx context.Context) ([]model.URLRecord, error) {
	query := `
	SELECT id, url, input_date_time, expire_date_time, active_status
	FROM url_records
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, apperrors.NewStoreError("failed to list records", err)
	}
	defer rows.Close()

	records := make([]model.URLRecord, 0)
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, apperrors.NewStoreError("failed to scan record", err)
		}
		records = append(records, *record)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStoreError("failed to iterate records", err)
	}

	return records, nil
}

func (r *PostgresRecordRepository) Update(ctx context.Context, record *model.URLRecord) error {
	query := `
	UPDATE url_records
	SET url = $2, input_date_time = $3, expire_date_time = $4, active_status = $5
	WHERE id = $1
	`

	result, err := r.db.ExecContext(
		ctx,
		query,
		record.ID,
		record.URL,
		record.InputDateTime.Time,
		record.ExpireDateTime.Time,
		int(record.ActiveStatus),
	)
	if err != nil {
		if conflict := uniqueConflict(err); conflict != nil {
			return conflict
		}
		return apperrors.NewStoreError("failed to update record", err)
	}

	return requireAffected(result, record.ID)
}

func (r *PostgresRecordRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM url_records WHERE id = $1`, id)
	if err != nil {
		return apperrors.NewStoreError("failed to delete record", err)
	}

	return requireAffected(result, id)
}

// BatchUpdateStatus для массового обновления статусов в одной транзакции
func (r *PostgresRecordRepository) BatchUpdateStatus(ctx context.Context, updates []model.StatusUpdate) (int64, error) {
	if len(updates) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, apperrors.NewStoreError("failed to begin transaction", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		UPDATE url_records
		SET active_status = $1
		WHERE id = $2
	`)
	if err != nil {
		return 0, apperrors.NewStoreError("failed to prepare statement", err)
	}
	defer stmt.Close()

	var changed int64
	for _, update := range updates {
		result, err := stmt.ExecContext(ctx, int(update.ActiveStatus), update.ID)
		if err != nil {
			return 0, apperrors.NewStoreError(fmt.Sprintf("failed to update status for %d", update.ID), err)
		}
		if n, err := result.RowsAffected(); err == nil {
			changed += n
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, apperrors.NewStoreError("failed to commit status updates", err)
	}

	return changed, nil
}

func (r *PostgresRecordRepository) UpdateStatusIf(ctx context.Context, id int64, expected, status model.ActiveStatus) (bool, error) {
	query := `
	UPDATE url_records
	SET active_status = $3
	WHERE id = $1 AND active_status = $2
	`

	result, err := r.db.ExecContext(ctx, query, id, int(expected), int(status))
	if err != nil {
		return false, apperrors.NewStoreError("failed to update record status", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, apperrors.NewStoreError("failed to read affected rows", err)
	}

	return n > 0, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*model.URLRecord, error) {
	var (
		record        model.URLRecord
		input, expire time.Time
		status        int
	)

	if err := row.Scan(&record.ID, &record.URL, &input, &expire, &status); err != nil {
		return nil, err
	}

	record.InputDateTime = model.NewTimestamp(input)
	record.ExpireDateTime = model.NewTimestamp(expire)
	record.ActiveStatus = model.ActiveStatus(status)

	return &record, nil
}

func requireAffected(result sql.Result, id int64) error {
	n, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewStoreError("failed to read affected rows", err)
	}
	if n == 0 {
		return fmt.Errorf("record with ID %d: %w", id, apperrors.ErrRecordNotFound)
	}
	return nil
}

// uniqueConflict сопоставляет нарушение уникальности с доменной ошибкой
func uniqueConflict(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolationCode {
		return nil
	}

	switch pgErr.ConstraintName {
	case constraintPrimaryKey:
		return apperrors.ErrIDConflict
	case constraintUniqueURL:
		return apperrors.ErrURLAlreadyExists
	default:
		return nil
	}
}
