package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/callintel/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS transcripts (
	id            TEXT PRIMARY KEY,
	text          TEXT NOT NULL,
	duration_secs INTEGER NOT NULL DEFAULT 0,
	language      TEXT NOT NULL DEFAULT '',
	created_at    DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS runs (
	id             TEXT PRIMARY KEY,
	transcript_id  TEXT NOT NULL REFERENCES transcripts(id),
	stage          TEXT NOT NULL DEFAULT 'created',
	failed_stage   TEXT,
	failure_reason TEXT,
	facts          TEXT,
	created_at     DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at     DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS reports (
	run_id        TEXT PRIMARY KEY REFERENCES runs(id),
	transcript_id TEXT NOT NULL,
	report        TEXT NOT NULL,
	created_at    DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_transcripts_created_at ON transcripts(created_at);
CREATE INDEX IF NOT EXISTS idx_runs_transcript_id ON runs(transcript_id);
CREATE INDEX IF NOT EXISTS idx_runs_stage ON runs(stage);
CREATE INDEX IF NOT EXISTS idx_reports_transcript_id ON reports(transcript_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) PutTranscript(ctx context.Context, t *model.Transcript) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO transcripts (id, text, duration_secs, language, created_at) VALUES (?, ?, ?, ?, ?)`,
		t.ID, t.Text, t.DurationSecs, t.Language, t.CreatedAt,
	)
	return eris.Wrapf(err, "sqlite: insert transcript %s", t.ID)
}

func (s *SQLiteStore) GetTranscript(ctx context.Context, id string) (*model.Transcript, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, text, duration_secs, language, created_at FROM transcripts WHERE id = ?`,
		id,
	)

	var t model.Transcript
	err := row.Scan(&t.ID, &t.Text, &t.DurationSecs, &t.Language, &t.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, eris.Errorf("transcript not found: %s", id)
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan transcript")
	}
	return &t, nil
}

func (s *SQLiteStore) ListTranscripts(ctx context.Context, limit, offset int) ([]model.Transcript, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, text, duration_secs, language, created_at FROM transcripts
		 ORDER BY created_at DESC LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list transcripts")
	}
	defer rows.Close()

	var out []model.Transcript
	for rows.Next() {
		var t model.Transcript
		if err := rows.Scan(&t.ID, &t.Text, &t.DurationSecs, &t.Language, &t.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan transcript")
		}
		out = append(out, t)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list transcripts iterate")
}

func (s *SQLiteStore) ImportTranscripts(ctx context.Context, ts []model.Transcript) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin import")
	}
	defer tx.Rollback() //nolint:errcheck

	var n int64
	for i := range ts {
		t := &ts[i]
		if t.ID == "" {
			t.ID = uuid.New().String()
		}
		if t.CreatedAt.IsZero() {
			t.CreatedAt = time.Now().UTC()
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO transcripts (id, text, duration_secs, language, created_at) VALUES (?, ?, ?, ?, ?)`,
			t.ID, t.Text, t.DurationSecs, t.Language, t.CreatedAt,
		); err != nil {
			return 0, eris.Wrapf(err, "sqlite: import transcript %s", t.ID)
		}
		n++
	}
	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit import")
	}
	return n, nil
}

func (s *SQLiteStore) CreateRun(ctx context.Context, transcriptID string) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, transcript_id, stage, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		id, transcriptID, string(model.StageCreated), now, now,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: insert run for transcript %s", transcriptID)
	}

	return &model.Run{
		ID:           id,
		TranscriptID: transcriptID,
		Stage:        model.StageCreated,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

func (s *SQLiteStore) UpdateRunStage(ctx context.Context, runID string, stage model.RunStage) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET stage = ?, updated_at = ? WHERE id = ?`,
		string(stage), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update run stage %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) UpdateRunFacts(ctx context.Context, runID string, facts *model.SalesFacts) error {
	factsJSON, err := json.Marshal(facts)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal facts")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET facts = ?, updated_at = ? WHERE id = ?`,
		string(factsJSON), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update run facts %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) FailRun(ctx context.Context, runID string, failedStage model.RunStage, reason string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET stage = ?, failed_stage = ?, failure_reason = ?, updated_at = ? WHERE id = ?`,
		string(model.StageFailed), string(failedStage), reason, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: fail run %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, transcript_id, stage, failed_stage, failure_reason, facts, created_at, updated_at
		 FROM runs WHERE id = ?`,
		runID,
	)
	return scanRun(row)
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT id, transcript_id, stage, failed_stage, failure_reason, facts, created_at, updated_at
	          FROM runs WHERE 1=1`
	var args []any

	if filter.TranscriptID != "" {
		query += ` AND transcript_id = ?`
		args = append(args, filter.TranscriptID)
	}
	if filter.Stage != "" {
		query += ` AND stage = ?`
		args = append(args, string(filter.Stage))
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

func (s *SQLiteStore) SaveReport(ctx context.Context, runID string, report *model.Report) error {
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal report")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO reports (run_id, transcript_id, report, created_at) VALUES (?, ?, ?, ?)`,
		runID, report.Meta.TranscriptID, string(reportJSON), time.Now().UTC(),
	)
	return eris.Wrapf(err, "sqlite: save report for run %s", runID)
}

func (s *SQLiteStore) GetReport(ctx context.Context, runID string) (*model.Report, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT report FROM reports WHERE run_id = ?`,
		runID,
	)

	var reportJSON string
	err := row.Scan(&reportJSON)
	if err == sql.ErrNoRows {
		return nil, eris.Errorf("report not found for run: %s", runID)
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan report")
	}

	var report model.Report
	if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal report")
	}
	return &report, nil
}

func (s *SQLiteStore) ListReports(ctx context.Context, transcriptID string) ([]model.Report, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT report FROM reports WHERE transcript_id = ? ORDER BY created_at DESC`,
		transcriptID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list reports")
	}
	defer rows.Close()

	var out []model.Report
	for rows.Next() {
		var reportJSON string
		if err := rows.Scan(&reportJSON); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan report")
		}
		var report model.Report
		if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal report")
		}
		out = append(out, report)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list reports iterate")
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRun(row scannable) (*model.Run, error) {
	var r model.Run
	var failedStage, failureReason, factsJSON sql.NullString

	err := row.Scan(&r.ID, &r.TranscriptID, &r.Stage, &failedStage, &failureReason, &factsJSON, &r.CreatedAt, &r.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, eris.New("run not found")
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan run")
	}

	if failedStage.Valid {
		r.FailedStage = model.RunStage(failedStage.String)
	}
	if failureReason.Valid {
		r.FailureReason = failureReason.String
	}
	if factsJSON.Valid && factsJSON.String != "" {
		r.Facts = &model.SalesFacts{}
		if err := json.Unmarshal([]byte(factsJSON.String), r.Facts); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal facts")
		}
	}
	return &r, nil
}
