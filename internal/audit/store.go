package audit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"loadcheck/internal/crossval"
)

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// Store persists run records backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// Open initializes or connects to the audit database and applies migrations.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure audit directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path, now: func() time.Time { return time.Now().UTC() }}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// StartRun inserts a running run record with a fresh UUID.
func (s *Store) StartRun(ctx context.Context, mode Mode, datasetFilter int) (Run, error) {
	run := Run{
		ID:            uuid.NewString(),
		StartedAt:     s.now(),
		Mode:          mode,
		DatasetFilter: datasetFilter,
		Status:        RunRunning,
	}
	_, err := s.execWithRetry(ctx,
		`INSERT INTO runs (id, started_at, mode, dataset_filter, status) VALUES (?, ?, ?, ?, ?)`,
		run.ID,
		formatTime(run.StartedAt),
		run.Mode.String(),
		nullableInt(datasetFilter),
		string(run.Status),
	)
	if err != nil {
		return Run{}, fmt.Errorf("insert run: %w", err)
	}
	return run, nil
}

// FinishRun stamps the run with its final status.
func (s *Store) FinishRun(ctx context.Context, runID string, status RunStatus, errMsg string) error {
	res, err := s.execWithRetry(ctx,
		`UPDATE runs SET finished_at = ?, status = ?, error_message = ? WHERE id = ?`,
		formatTime(s.now()),
		string(status),
		nullableString(errMsg),
		runID,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("finish run %s: %w", runID, ErrRunNotFound)
	}
	return nil
}

// RecordDataset stores one dataset's result and its discrepancies atomically.
// Re-recording a dataset for the same run replaces the earlier rows.
func (s *Store) RecordDataset(ctx context.Context, runID string, result DatasetResult) error {
	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin dataset tx: %w", err)
		}
		defer func() {
			_ = tx.Rollback()
		}()

		if _, err := tx.ExecContext(ctx, `DELETE FROM discrepancies WHERE run_id = ? AND dataset = ?`, runID, result.Dataset); err != nil {
			return fmt.Errorf("clear discrepancies: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO dataset_results (
                run_id, dataset, pages, documents, records, parse_errors, valid,
                opt_sha256, dat_sha256, error_message, recorded_at
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			runID,
			result.Dataset,
			result.Pages,
			result.Documents,
			result.Records,
			result.ParseErrors,
			boolToInt(result.Valid),
			nullableString(result.OPTSHA256),
			nullableString(result.DATSHA256),
			nullableString(result.Error),
			formatTime(s.now()),
		); err != nil {
			return fmt.Errorf("insert dataset result: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO discrepancies (
                run_id, dataset, kind, position, document_start, document_end,
                metadata_begin, metadata_end, documents, records
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare discrepancy insert: %w", err)
		}
		defer stmt.Close()
		for _, d := range result.Discrepancies {
			if _, err := stmt.ExecContext(ctx,
				runID,
				result.Dataset,
				string(d.Kind),
				d.Position,
				nullableString(d.DocumentStart),
				nullableString(d.DocumentEnd),
				nullableString(d.MetadataBegin),
				nullableString(d.MetadataEnd),
				d.Documents,
				d.Records,
			); err != nil {
				return fmt.Errorf("insert discrepancy: %w", err)
			}
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit dataset result: %w", err)
		}
		return nil
	})
}

// RecordReconcile stores a verify or update outcome for one dataset.
func (s *Store) RecordReconcile(ctx context.Context, runID string, result ReconcileResult) error {
	_, err := s.execWithRetry(ctx,
		`INSERT OR REPLACE INTO reconcile_results (
            run_id, dataset, mode, dataset_id, remote_count, local_count, state,
            rows_updated, calls, failures, spot_mismatches, error_message, recorded_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID,
		result.Dataset,
		string(result.Mode),
		nullableString(result.DatasetID),
		nullableIntPtr(result.Remote),
		result.Local,
		result.State,
		result.Rows,
		result.Calls,
		result.Failures,
		result.SpotMismatches,
		nullableString(result.Error),
		formatTime(s.now()),
	)
	if err != nil {
		return fmt.Errorf("insert reconcile result: %w", err)
	}
	return nil
}

// ListRuns returns the most recent runs first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
        SELECT r.id, r.started_at, r.finished_at, r.mode, r.dataset_filter, r.status, r.error_message,
               (SELECT COUNT(1) FROM dataset_results d WHERE d.run_id = r.id),
               (SELECT COUNT(1) FROM dataset_results d WHERE d.run_id = r.id AND d.valid = 0 AND d.error_message IS NULL),
               (SELECT COUNT(1) FROM dataset_results d WHERE d.run_id = r.id AND d.error_message IS NOT NULL),
               (SELECT COUNT(1) FROM discrepancies x WHERE x.run_id = r.id)
        FROM runs r
        ORDER BY r.started_at DESC, r.rowid DESC
        LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			run      Run
			started  string
			finished sql.NullString
			mode     string
			filter   sql.NullInt64
			status   string
			errMsg   sql.NullString
		)
		if err := rows.Scan(&run.ID, &started, &finished, &mode, &filter, &status, &errMsg,
			&run.Datasets, &run.Invalid, &run.Failed, &run.Discrepancies); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		run.StartedAt = parseTime(started)
		if finished.Valid {
			t := parseTime(finished.String)
			run.FinishedAt = &t
		}
		run.Mode = ParseMode(mode)
		run.DatasetFilter = int(filter.Int64)
		run.Status = RunStatus(status)
		run.Error = errMsg.String
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// LatestRunID returns the most recently started run.
func (s *Store) LatestRunID(ctx context.Context) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx, `SELECT id FROM runs ORDER BY started_at DESC, rowid DESC LIMIT 1`).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrRunNotFound
	}
	if err != nil {
		return "", fmt.Errorf("latest run: %w", err)
	}
	return id, nil
}

// ResolveRunID expands a unique ID prefix to the full run ID.
func (s *Store) ResolveRunID(ctx context.Context, prefix string) (string, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return s.LatestRunID(ctx)
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM runs WHERE id LIKE ? LIMIT 2`, prefix+"%")
	if err != nil {
		return "", fmt.Errorf("resolve run: %w", err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return "", fmt.Errorf("scan run id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return "", err
	}
	switch len(ids) {
	case 0:
		return "", fmt.Errorf("run %q: %w", prefix, ErrRunNotFound)
	case 1:
		return ids[0], nil
	default:
		return "", fmt.Errorf("run prefix %q is ambiguous", prefix)
	}
}

// ListDiscrepancies returns discrepancies for runID in dataset and position
// order. A zero dataset lists all datasets; a non-positive limit lists all.
func (s *Store) ListDiscrepancies(ctx context.Context, runID string, dataset, limit int) ([]DiscrepancyRecord, error) {
	query := `SELECT dataset, kind, position, document_start, document_end, metadata_begin, metadata_end, documents, records
        FROM discrepancies WHERE run_id = ?`
	args := []any{runID}
	if dataset > 0 {
		query += ` AND dataset = ?`
		args = append(args, dataset)
	}
	query += ` ORDER BY dataset, position, id`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query discrepancies: %w", err)
	}
	defer rows.Close()

	var out []DiscrepancyRecord
	for rows.Next() {
		var (
			rec                                  DiscrepancyRecord
			kind                                 string
			docStart, docEnd, metaBegin, metaEnd sql.NullString
		)
		if err := rows.Scan(&rec.Dataset, &kind, &rec.Position, &docStart, &docEnd, &metaBegin, &metaEnd,
			&rec.Documents, &rec.Records); err != nil {
			return nil, fmt.Errorf("scan discrepancy: %w", err)
		}
		rec.RunID = runID
		rec.Kind = crossval.Kind(kind)
		rec.DocumentStart = docStart.String
		rec.DocumentEnd = docEnd.String
		rec.MetadataBegin = metaBegin.String
		rec.MetadataEnd = metaEnd.String
		out = append(out, rec)
	}
	return out, rows.Err()
}

// ListReconcile returns reconciliation outcomes for runID.
func (s *Store) ListReconcile(ctx context.Context, runID string) ([]ReconcileResult, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT dataset, mode, dataset_id, remote_count, local_count, state, rows_updated, calls, failures, spot_mismatches, error_message
        FROM reconcile_results WHERE run_id = ? ORDER BY mode, dataset`, runID)
	if err != nil {
		return nil, fmt.Errorf("query reconcile results: %w", err)
	}
	defer rows.Close()

	var out []ReconcileResult
	for rows.Next() {
		var (
			res       ReconcileResult
			mode      string
			datasetID sql.NullString
			remote    sql.NullInt64
			errMsg    sql.NullString
		)
		if err := rows.Scan(&res.Dataset, &mode, &datasetID, &remote, &res.Local, &res.State,
			&res.Rows, &res.Calls, &res.Failures, &res.SpotMismatches, &errMsg); err != nil {
			return nil, fmt.Errorf("scan reconcile result: %w", err)
		}
		res.Mode = ReconcileMode(mode)
		res.DatasetID = datasetID.String
		if remote.Valid {
			n := int(remote.Int64)
			res.Remote = &n
		}
		res.Error = errMsg.String
		out = append(out, res)
	}
	return out, rows.Err()
}

// ListDatasetResults returns the per-dataset rows for runID.
func (s *Store) ListDatasetResults(ctx context.Context, runID string) ([]DatasetResult, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT dataset, pages, documents, records, parse_errors, valid, opt_sha256, dat_sha256, error_message
        FROM dataset_results WHERE run_id = ? ORDER BY dataset`, runID)
	if err != nil {
		return nil, fmt.Errorf("query dataset results: %w", err)
	}
	defer rows.Close()

	var out []DatasetResult
	for rows.Next() {
		var (
			res                    DatasetResult
			valid                  int
			optSHA, datSHA, errMsg sql.NullString
		)
		if err := rows.Scan(&res.Dataset, &res.Pages, &res.Documents, &res.Records, &res.ParseErrors,
			&valid, &optSHA, &datSHA, &errMsg); err != nil {
			return nil, fmt.Errorf("scan dataset result: %w", err)
		}
		res.Valid = valid != 0
		res.OPTSHA256 = optSHA.String
		res.DATSHA256 = datSHA.String
		res.Error = errMsg.String
		out = append(out, res)
	}
	return out, rows.Err()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func (s *Store) execWithRetry(ctx context.Context, query string, args ...any) (sql.Result, error) {
	var (
		res     sql.Result
		execErr error
	)
	err := retryOnBusy(ctx, func() error {
		res, execErr = s.db.ExecContext(ctx, query, args...)
		return execErr
	})
	return res, err
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(value string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return t
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableInt(value int) any {
	if value == 0 {
		return nil
	}
	return value
}

func nullableIntPtr(value *int) any {
	if value == nil {
		return nil
	}
	return *value
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}
