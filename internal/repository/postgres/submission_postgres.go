package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"ectdforge/internal/database/migration"
	"ectdforge/internal/model"
	"ectdforge/internal/repository"
)

const pgUniqueViolation = "23505"

// SubmissionPostgres is the PostgreSQL implementation of
// repository.SubmissionRepository. Attachment order is made total by taking
// a row lock on the owning submission before inserting a document, so
// concurrent ingestion into the same submission serializes while other
// submissions proceed independently.
type SubmissionPostgres struct {
	db  *sql.DB
	log *zap.Logger

	mu    sync.Mutex
	ready bool
}

// NewSubmissionPostgres creates a new SubmissionPostgres repository.
func NewSubmissionPostgres(db *sql.DB, log *zap.Logger) *SubmissionPostgres {
	return &SubmissionPostgres{db: db, log: log}
}

var _ repository.SubmissionRepository = (*SubmissionPostgres)(nil)

const submissionColumns = `id, application_number, application_type, applicant_name,
       sequence_number, status, revision, created_at`

const documentColumns = `id, submission_id, title, context_of_use, content_hash,
       byte_size, storage_path, source_name, op_kind, op_ref_id, position, added_at`

// CreateSubmission inserts a new submission row, rejecting duplicate
// (application_number, sequence_number) pairs before writing.
func (r *SubmissionPostgres) CreateSubmission(ctx context.Context, sub *model.Submission) (*model.Submission, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var taken bool
	const qCheck = `SELECT EXISTS (
		SELECT 1 FROM submissions WHERE application_number = $1 AND sequence_number = $2
	)`
	if err := tx.QueryRowContext(ctx, qCheck, sub.ApplicationNumber, sub.SequenceNumber).Scan(&taken); err != nil {
		return nil, fmt.Errorf("check sequence: %w", err)
	}
	if taken {
		return nil, repository.ErrDuplicateSequence
	}

	const qInsert = `
		INSERT INTO submissions (id, application_number, application_type, applicant_name,
			sequence_number, status, revision, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + submissionColumns
	row := tx.QueryRowContext(ctx, qInsert,
		sub.ID,
		sub.ApplicationNumber,
		sub.ApplicationType,
		sub.ApplicantName,
		sub.SequenceNumber,
		sub.Status,
		sub.Revision,
		sub.CreatedAt,
	)
	out, err := scanSubmission(row)
	if err != nil {
		// The unique index backs the check above against racing creators.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return nil, repository.ErrDuplicateSequence
		}
		return nil, fmt.Errorf("insert submission: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return out, nil
}

// AttachDocument appends a document to its submission under the submission
// row lock and bumps the submission revision.
func (r *SubmissionPostgres) AttachDocument(ctx context.Context, doc *model.Document) (*model.Document, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var status model.SubmissionStatus
	const qLock = `SELECT status FROM submissions WHERE id = $1 FOR UPDATE`
	if err := tx.QueryRowContext(ctx, qLock, doc.SubmissionID).Scan(&status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrSubmissionNotFound
		}
		return nil, fmt.Errorf("lock submission: %w", err)
	}
	if status == model.StatusExported && doc.Operation.Kind == model.OpNew {
		return nil, repository.ErrSubmissionExported
	}

	var position int
	const qPosition = `SELECT COALESCE(MAX(position), 0) + 1 FROM documents WHERE submission_id = $1`
	if err := tx.QueryRowContext(ctx, qPosition, doc.SubmissionID).Scan(&position); err != nil {
		return nil, fmt.Errorf("next position: %w", err)
	}

	const qInsert = `
		INSERT INTO documents (id, submission_id, title, context_of_use, content_hash,
			byte_size, storage_path, source_name, op_kind, op_ref_id, position, added_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING ` + documentColumns
	row := tx.QueryRowContext(ctx, qInsert,
		doc.ID,
		doc.SubmissionID,
		doc.Title,
		doc.ContextOfUse,
		doc.ContentHash,
		doc.ByteSize,
		doc.StoragePath,
		doc.SourceName,
		doc.Operation.Kind,
		nullable(doc.Operation.RefID),
		position,
		doc.AddedAt,
	)
	out, err := scanDocument(row)
	if err != nil {
		return nil, fmt.Errorf("insert document: %w", err)
	}

	const qBump = `UPDATE submissions SET revision = revision + 1 WHERE id = $1`
	if _, err := tx.ExecContext(ctx, qBump, doc.SubmissionID); err != nil {
		return nil, fmt.Errorf("bump revision: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return out, nil
}

// GetSubmission fetches a single submission by id.
func (r *SubmissionPostgres) GetSubmission(ctx context.Context, id string) (*model.Submission, error) {
	const q = `SELECT ` + submissionColumns + ` FROM submissions WHERE id = $1`
	sub, err := scanSubmission(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrSubmissionNotFound
		}
		return nil, err
	}
	return sub, nil
}

// GetDocument fetches a single document by id.
func (r *SubmissionPostgres) GetDocument(ctx context.Context, id string) (*model.Document, error) {
	const q = `SELECT ` + documentColumns + ` FROM documents WHERE id = $1`
	doc, err := scanDocument(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrDocumentNotFound
		}
		return nil, err
	}
	return doc, nil
}

// ListDocuments returns a submission's documents ordered by position.
// The order is the attachment order and fixes backbone leaf ordering.
func (r *SubmissionPostgres) ListDocuments(ctx context.Context, submissionID string) ([]model.Document, error) {
	if _, err := r.GetSubmission(ctx, submissionID); err != nil {
		return nil, err
	}

	const q = `SELECT ` + documentColumns + ` FROM documents
		WHERE submission_id = $1 ORDER BY position ASC`
	rows, err := r.db.QueryContext(ctx, q, submissionID)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	docs := make([]model.Document, 0)
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return docs, nil
}

// MaxSequence returns the highest sequence number known for an application.
func (r *SubmissionPostgres) MaxSequence(ctx context.Context, applicationNumber string) (int, bool, error) {
	const q = `SELECT MAX(sequence_number) FROM submissions WHERE application_number = $1`
	var max sql.NullInt64
	if err := r.db.QueryRowContext(ctx, q, applicationNumber).Scan(&max); err != nil {
		return 0, false, fmt.Errorf("max sequence: %w", err)
	}
	if !max.Valid {
		return 0, false, nil
	}
	return int(max.Int64), true, nil
}

// SetStatus transitions a submission's status.
func (r *SubmissionPostgres) SetStatus(ctx context.Context, id string, status model.SubmissionStatus) error {
	const q = `UPDATE submissions SET status = $2 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, q, id, status)
	if err != nil {
		return fmt.Errorf("set status: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return repository.ErrSubmissionNotFound
	}
	return nil
}

// EnsureReady pings the store and runs first-use schema initialization once.
// Subsequent calls only probe liveness.
func (r *SubmissionPostgres) EnsureReady(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := r.db.PingContext(pingCtx); err != nil {
		return fmt.Errorf("%w: %v", repository.ErrInfrastructureUnavailable, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ready {
		return nil
	}
	if err := migration.EnsureMigrated(ctx, r.db, r.log); err != nil {
		return fmt.Errorf("%w: %v", repository.ErrInfrastructureUnavailable, err)
	}
	r.ready = true
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSubmission(row rowScanner) (*model.Submission, error) {
	var s model.Submission
	if err := row.Scan(
		&s.ID,
		&s.ApplicationNumber,
		&s.ApplicationType,
		&s.ApplicantName,
		&s.SequenceNumber,
		&s.Status,
		&s.Revision,
		&s.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &s, nil
}

func scanDocument(row rowScanner) (*model.Document, error) {
	var (
		d     model.Document
		refID sql.NullString
	)
	if err := row.Scan(
		&d.ID,
		&d.SubmissionID,
		&d.Title,
		&d.ContextOfUse,
		&d.ContentHash,
		&d.ByteSize,
		&d.StoragePath,
		&d.SourceName,
		&d.Operation.Kind,
		&refID,
		&d.Position,
		&d.AddedAt,
	); err != nil {
		return nil, err
	}
	if refID.Valid {
		d.Operation.RefID = refID.String
	}
	return &d, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
