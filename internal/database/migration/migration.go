package migration

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"
)

type migrationStep struct {
	Name string
	SQL  string
}

var steps = []migrationStep{
	{
		Name: "create_table_submissions",
		SQL: `CREATE TABLE IF NOT EXISTS submissions (
  id                 UUID        PRIMARY KEY,
  application_number TEXT        NOT NULL,
  application_type   TEXT        NOT NULL,
  applicant_name     TEXT        NOT NULL,
  sequence_number    INTEGER     NOT NULL CHECK (sequence_number >= 0),
  status             TEXT        NOT NULL DEFAULT 'draft',
  revision           INTEGER     NOT NULL DEFAULT 0,
  created_at         TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_unique_index_submissions_app_sequence",
		SQL: `CREATE UNIQUE INDEX IF NOT EXISTS uq_submissions_app_sequence
  ON submissions (application_number, sequence_number);`,
	},
	{
		Name: "create_table_documents",
		SQL: `CREATE TABLE IF NOT EXISTS documents (
  id             UUID        PRIMARY KEY,
  submission_id  UUID        NOT NULL REFERENCES submissions (id),
  title          TEXT        NOT NULL,
  context_of_use TEXT        NOT NULL,
  content_hash   TEXT        NOT NULL,
  byte_size      BIGINT      NOT NULL CHECK (byte_size >= 0),
  storage_path   TEXT        NOT NULL,
  source_name    TEXT        NOT NULL DEFAULT '',
  op_kind        TEXT        NOT NULL DEFAULT 'new',
  op_ref_id      UUID        NULL,
  position       INTEGER     NOT NULL,
  added_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_unique_index_documents_submission_position",
		SQL: `CREATE UNIQUE INDEX IF NOT EXISTS uq_documents_submission_position
  ON documents (submission_id, position);`,
	},
	{
		Name: "create_index_documents_content_hash",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_documents_content_hash ON documents (content_hash);`,
	},
}

// EnsureMigrated checks for the submissions sentinel table and runs the
// migration steps if it is absent. Safe to call on every engine startup.
func EnsureMigrated(ctx context.Context, db *sql.DB, log *zap.Logger) error {
	start := time.Now()

	var exists bool
	const sentinel = "SELECT to_regclass('public.submissions') IS NOT NULL"
	if err := db.QueryRowContext(ctx, sentinel).Scan(&exists); err != nil {
		log.Error("schema check failed", zap.Error(err))
		return fmt.Errorf("failed to check sentinel table: %w", err)
	}

	if exists {
		log.Debug("schema already present, skipping migration",
			zap.Duration("elapsed", time.Since(start)))
		return nil
	}

	log.Info("initializing schema")

	for _, step := range steps {
		stepStart := time.Now()
		if _, err := db.ExecContext(ctx, step.SQL); err != nil {
			log.Error("migration step failed",
				zap.String("step", step.Name), zap.Error(err))
			return fmt.Errorf("migration step %s failed: %w", step.Name, err)
		}
		log.Info("migration step applied",
			zap.String("step", step.Name),
			zap.Duration("elapsed", time.Since(stepStart)))
	}

	log.Info("schema initialized", zap.Duration("elapsed", time.Since(start)))
	return nil
}
