package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/callintel/internal/db"
	"github.com/sells-group/callintel/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the most frequently used store operations.
var preparedStatements = map[string]string{
	"insert_run":       `INSERT INTO runs (id, transcript_id, stage, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)`,
	"update_run_stage": `UPDATE runs SET stage = $1, updated_at = $2 WHERE id = $3`,
	"update_run_facts": `UPDATE runs SET facts = $1, updated_at = $2 WHERE id = $3`,
	"get_run":          `SELECT id, transcript_id, stage, failed_stage, failure_reason, facts, created_at, updated_at FROM runs WHERE id = $1`,
	"get_transcript":   `SELECT id, text, duration_secs, language, created_at FROM transcripts WHERE id = $1`,
	"insert_report":    `INSERT INTO reports (run_id, transcript_id, report, created_at) VALUES ($1, $2, $3, $4)`,
	"get_report":       `SELECT report FROM reports WHERE run_id = $1`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	// Apply pool sizing from config with sensible defaults.
	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	// Prepare frequently-used statements on each new connection.
	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// Pool returns the underlying database pool for use by subsystems that need
// direct query access.
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS transcripts (
	id            TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	text          TEXT NOT NULL,
	duration_secs INTEGER NOT NULL DEFAULT 0,
	language      TEXT NOT NULL DEFAULT '',
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS runs (
	id             TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	transcript_id  TEXT NOT NULL REFERENCES transcripts(id),
	stage          TEXT NOT NULL DEFAULT 'created',
	failed_stage   TEXT,
	failure_reason TEXT,
	facts          JSONB,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS reports (
	run_id        TEXT PRIMARY KEY REFERENCES runs(id),
	transcript_id TEXT NOT NULL,
	report        JSONB NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_transcripts_created_at ON transcripts(created_at);
CREATE INDEX IF NOT EXISTS idx_runs_transcript_id ON runs(transcript_id);
CREATE INDEX IF NOT EXISTS idx_runs_stage ON runs(stage);
CREATE INDEX IF NOT EXISTS idx_reports_transcript_id ON reports(transcript_id);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) PutTranscript(ctx context.Context, t *model.Transcript) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO transcripts (id, text, duration_secs, language, created_at) VALUES ($1, $2, $3, $4, $5)`,
		t.ID, t.Text, t.DurationSecs, t.Language, t.CreatedAt,
	)
	return eris.Wrapf(err, "postgres: insert transcript %s", t.ID)
}

func (s *PostgresStore) GetTranscript(ctx context.Context, id string) (*model.Transcript, error) {
	var t model.Transcript
	err := s.pool.QueryRow(ctx,
		`SELECT id, text, duration_secs, language, created_at FROM transcripts WHERE id = $1`,
		id,
	).Scan(&t.ID, &t.Text, &t.DurationSecs, &t.Language, &t.CreatedAt)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get transcript %s", id)
	}
	return &t, nil
}

func (s *PostgresStore) ListTranscripts(ctx context.Context, limit, offset int) ([]model.Transcript, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, text, duration_secs, language, created_at FROM transcripts
		 ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list transcripts")
	}
	defer rows.Close()

	var out []model.Transcript
	for rows.Next() {
		var t model.Transcript
		if err := rows.Scan(&t.ID, &t.Text, &t.DurationSecs, &t.Language, &t.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan transcript")
		}
		out = append(out, t)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list transcripts iterate")
}

// ImportTranscripts bulk-loads transcripts via the COPY protocol.
func (s *PostgresStore) ImportTranscripts(ctx context.Context, ts []model.Transcript) (int64, error) {
	rows := make([][]any, 0, len(ts))
	for i := range ts {
		t := &ts[i]
		if t.ID == "" {
			t.ID = uuid.New().String()
		}
		if t.CreatedAt.IsZero() {
			t.CreatedAt = time.Now().UTC()
		}
		rows = append(rows, []any{t.ID, t.Text, t.DurationSecs, t.Language, t.CreatedAt})
	}

	n, err := db.CopyFrom(ctx, s.pool, "transcripts",
		[]string{"id", "text", "duration_secs", "language", "created_at"}, rows)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: import transcripts")
	}
	return n, nil
}

func (s *PostgresStore) CreateRun(ctx context.Context, transcriptID string) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO runs (id, transcript_id, stage, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)`,
		id, transcriptID, string(model.StageCreated), now, now,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: insert run for transcript %s", transcriptID)
	}

	return &model.Run{
		ID:           id,
		TranscriptID: transcriptID,
		Stage:        model.StageCreated,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

func (s *PostgresStore) UpdateRunStage(ctx context.Context, runID string, stage model.RunStage) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET stage = $1, updated_at = $2 WHERE id = $3`,
		string(stage), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update run stage %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("run not found: %s", runID)
	}
	return nil
}

func (s *PostgresStore) UpdateRunFacts(ctx context.Context, runID string, facts *model.SalesFacts) error {
	factsJSON, err := json.Marshal(facts)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal facts")
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET facts = $1, updated_at = $2 WHERE id = $3`,
		factsJSON, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update run facts %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("run not found: %s", runID)
	}
	return nil
}

func (s *PostgresStore) FailRun(ctx context.Context, runID string, failedStage model.RunStage, reason string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET stage = $1, failed_stage = $2, failure_reason = $3, updated_at = $4 WHERE id = $5`,
		string(model.StageFailed), string(failedStage), reason, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: fail run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("run not found: %s", runID)
	}
	return nil
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	var r model.Run
	var failedStage, failureReason *string
	var factsJSON []byte

	err := s.pool.QueryRow(ctx,
		`SELECT id, transcript_id, stage, failed_stage, failure_reason, facts, created_at, updated_at FROM runs WHERE id = $1`,
		runID,
	).Scan(&r.ID, &r.TranscriptID, &r.Stage, &failedStage, &failureReason, &factsJSON, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get run %s", runID)
	}

	if failedStage != nil {
		r.FailedStage = model.RunStage(*failedStage)
	}
	if failureReason != nil {
		r.FailureReason = *failureReason
	}
	if len(factsJSON) > 0 {
		r.Facts = &model.SalesFacts{}
		if err := json.Unmarshal(factsJSON, r.Facts); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal facts")
		}
	}
	return &r, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT id, transcript_id, stage, failed_stage, failure_reason, facts, created_at, updated_at FROM runs WHERE true`
	args := []any{}
	argIdx := 1

	if filter.TranscriptID != "" {
		query += fmt.Sprintf(` AND transcript_id = $%d`, argIdx)
		args = append(args, filter.TranscriptID)
		argIdx++
	}
	if filter.Stage != "" {
		query += fmt.Sprintf(` AND stage = $%d`, argIdx)
		args = append(args, string(filter.Stage))
		argIdx++
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		var r model.Run
		var failedStage, failureReason *string
		var factsJSON []byte
		if err := rows.Scan(&r.ID, &r.TranscriptID, &r.Stage, &failedStage, &failureReason, &factsJSON, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		if failedStage != nil {
			r.FailedStage = model.RunStage(*failedStage)
		}
		if failureReason != nil {
			r.FailureReason = *failureReason
		}
		if len(factsJSON) > 0 {
			r.Facts = &model.SalesFacts{}
			if err := json.Unmarshal(factsJSON, r.Facts); err != nil {
				return nil, eris.Wrap(err, "postgres: unmarshal facts")
			}
		}
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

func (s *PostgresStore) SaveReport(ctx context.Context, runID string, report *model.Report) error {
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal report")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO reports (run_id, transcript_id, report, created_at) VALUES ($1, $2, $3, $4)`,
		runID, report.Meta.TranscriptID, reportJSON, time.Now().UTC(),
	)
	return eris.Wrapf(err, "postgres: save report for run %s", runID)
}

func (s *PostgresStore) GetReport(ctx context.Context, runID string) (*model.Report, error) {
	var reportJSON []byte
	err := s.pool.QueryRow(ctx,
		`SELECT report FROM reports WHERE run_id = $1`,
		runID,
	).Scan(&reportJSON)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get report for run %s", runID)
	}

	var report model.Report
	if err := json.Unmarshal(reportJSON, &report); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal report")
	}
	return &report, nil
}

func (s *PostgresStore) ListReports(ctx context.Context, transcriptID string) ([]model.Report, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT report FROM reports WHERE transcript_id = $1 ORDER BY created_at DESC`,
		transcriptID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list reports")
	}
	defer rows.Close()

	var out []model.Report
	for rows.Next() {
		var reportJSON []byte
		if err := rows.Scan(&reportJSON); err != nil {
			return nil, eris.Wrap(err, "postgres: scan report")
		}
		var report model.Report
		if err := json.Unmarshal(reportJSON, &report); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal report")
		}
		out = append(out, report)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list reports iterate")
}
