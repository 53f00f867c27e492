package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"ectdforge/internal/model"
	"ectdforge/internal/repository"
)

func newRepo(t *testing.T) (*SubmissionPostgres, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewSubmissionPostgres(db, zap.NewNop()), mock
}

func submissionRows(sub *model.Submission) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "application_number", "application_type", "applicant_name",
		"sequence_number", "status", "revision", "created_at",
	}).AddRow(sub.ID, sub.ApplicationNumber, string(sub.ApplicationType), sub.ApplicantName,
		sub.SequenceNumber, string(sub.Status), sub.Revision, sub.CreatedAt)
}

func documentRows(doc *model.Document) *sqlmock.Rows {
	var ref any
	if doc.Operation.RefID != "" {
		ref = doc.Operation.RefID
	}
	return sqlmock.NewRows([]string{
		"id", "submission_id", "title", "context_of_use", "content_hash",
		"byte_size", "storage_path", "source_name", "op_kind", "op_ref_id", "position", "added_at",
	}).AddRow(doc.ID, doc.SubmissionID, doc.Title, string(doc.ContextOfUse), doc.ContentHash,
		doc.ByteSize, doc.StoragePath, doc.SourceName, string(doc.Operation.Kind), ref, doc.Position, doc.AddedAt)
}

func TestSubmissionPostgres_CreateSubmission(t *testing.T) {
	ctx := context.Background()
	sub := &model.Submission{
		ID:                "11111111-1111-1111-1111-111111111111",
		ApplicationNumber: "123456",
		ApplicationType:   model.ApplicationNDA,
		ApplicantName:     "Acme Pharmaceuticals",
		SequenceNumber:    1,
		Status:            model.StatusDraft,
		CreatedAt:         time.Now().UTC(),
	}

	t.Run("success", func(t *testing.T) {
		repo, mock := newRepo(t)

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT EXISTS").
			WithArgs(sub.ApplicationNumber, sub.SequenceNumber).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
		mock.ExpectQuery("INSERT INTO submissions").
			WillReturnRows(submissionRows(sub))
		mock.ExpectCommit()

		got, err := repo.CreateSubmission(ctx, sub)
		assert.NoError(t, err)
		assert.Equal(t, sub.ID, got.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate sequence", func(t *testing.T) {
		repo, mock := newRepo(t)

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT EXISTS").
			WithArgs(sub.ApplicationNumber, sub.SequenceNumber).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
		mock.ExpectRollback()

		got, err := repo.CreateSubmission(ctx, sub)
		assert.ErrorIs(t, err, repository.ErrDuplicateSequence)
		assert.Nil(t, got)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestSubmissionPostgres_AttachDocument(t *testing.T) {
	ctx := context.Background()
	doc := &model.Document{
		ID:           "22222222-2222-2222-2222-222222222222",
		SubmissionID: "11111111-1111-1111-1111-111111111111",
		Title:        "Cover Letter",
		ContextOfUse: model.ContextCoverLetter,
		ContentHash:  "abc123",
		ByteSize:     11,
		StoragePath:  "content/sha256/abc123",
		SourceName:   "cover.pdf",
		Operation:    model.NewOperation(),
		Position:     1,
		AddedAt:      time.Now().UTC(),
	}

	t.Run("success", func(t *testing.T) {
		repo, mock := newRepo(t)

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT status FROM submissions WHERE id = (.+) FOR UPDATE").
			WithArgs(doc.SubmissionID).
			WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("draft"))
		mock.ExpectQuery(`SELECT COALESCE\(MAX\(position\), 0\) \+ 1 FROM documents`).
			WithArgs(doc.SubmissionID).
			WillReturnRows(sqlmock.NewRows([]string{"position"}).AddRow(1))
		mock.ExpectQuery("INSERT INTO documents").
			WillReturnRows(documentRows(doc))
		mock.ExpectExec("UPDATE submissions SET revision").
			WithArgs(doc.SubmissionID).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		got, err := repo.AttachDocument(ctx, doc)
		assert.NoError(t, err)
		assert.Equal(t, 1, got.Position)
		assert.Equal(t, model.OpNew, got.Operation.Kind)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("submission not found", func(t *testing.T) {
		repo, mock := newRepo(t)

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT status FROM submissions WHERE id = (.+) FOR UPDATE").
			WithArgs(doc.SubmissionID).
			WillReturnError(sql.ErrNoRows)
		mock.ExpectRollback()

		got, err := repo.AttachDocument(ctx, doc)
		assert.ErrorIs(t, err, repository.ErrSubmissionNotFound)
		assert.Nil(t, got)
	})

	t.Run("exported submission rejects new documents", func(t *testing.T) {
		repo, mock := newRepo(t)

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT status FROM submissions WHERE id = (.+) FOR UPDATE").
			WithArgs(doc.SubmissionID).
			WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("exported"))
		mock.ExpectRollback()

		got, err := repo.AttachDocument(ctx, doc)
		assert.ErrorIs(t, err, repository.ErrSubmissionExported)
		assert.Nil(t, got)
	})

	t.Run("exported submission accepts replace amendment", func(t *testing.T) {
		repo, mock := newRepo(t)

		amendment := *doc
		amendment.Operation = model.ReplaceOperation("33333333-3333-3333-3333-333333333333")
		amendment.Position = 2

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT status FROM submissions WHERE id = (.+) FOR UPDATE").
			WithArgs(doc.SubmissionID).
			WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("exported"))
		mock.ExpectQuery(`SELECT COALESCE\(MAX\(position\), 0\) \+ 1 FROM documents`).
			WithArgs(doc.SubmissionID).
			WillReturnRows(sqlmock.NewRows([]string{"position"}).AddRow(2))
		mock.ExpectQuery("INSERT INTO documents").
			WillReturnRows(documentRows(&amendment))
		mock.ExpectExec("UPDATE submissions SET revision").
			WithArgs(doc.SubmissionID).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		got, err := repo.AttachDocument(ctx, &amendment)
		assert.NoError(t, err)
		assert.Equal(t, model.OpReplace, got.Operation.Kind)
		assert.Equal(t, "33333333-3333-3333-3333-333333333333", got.Operation.RefID)
	})
}

func TestSubmissionPostgres_GetSubmission(t *testing.T) {
	ctx := context.Background()
	repo, mock := newRepo(t)

	t.Run("found", func(t *testing.T) {
		sub := &model.Submission{
			ID:                "11111111-1111-1111-1111-111111111111",
			ApplicationNumber: "123456",
			ApplicationType:   model.ApplicationNDA,
			ApplicantName:     "Acme Pharmaceuticals",
			SequenceNumber:    1,
			Status:            model.StatusDraft,
			CreatedAt:         time.Now().UTC(),
		}
		mock.ExpectQuery("SELECT (.+) FROM submissions WHERE id =").
			WithArgs(sub.ID).
			WillReturnRows(submissionRows(sub))

		got, err := repo.GetSubmission(ctx, sub.ID)
		assert.NoError(t, err)
		assert.Equal(t, model.ApplicationNDA, got.ApplicationType)
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM submissions WHERE id =").
			WithArgs("missing").
			WillReturnError(sql.ErrNoRows)

		got, err := repo.GetSubmission(ctx, "missing")
		assert.ErrorIs(t, err, repository.ErrSubmissionNotFound)
		assert.Nil(t, got)
	})
}

func TestSubmissionPostgres_ListDocuments(t *testing.T) {
	ctx := context.Background()
	repo, mock := newRepo(t)

	sub := &model.Submission{
		ID:                "11111111-1111-1111-1111-111111111111",
		ApplicationNumber: "123456",
		ApplicationType:   model.ApplicationNDA,
		ApplicantName:     "Acme",
		SequenceNumber:    1,
		Status:            model.StatusDraft,
		CreatedAt:         time.Now().UTC(),
	}

	mock.ExpectQuery("SELECT (.+) FROM submissions WHERE id =").
		WithArgs(sub.ID).
		WillReturnRows(submissionRows(sub))

	rows := sqlmock.NewRows([]string{
		"id", "submission_id", "title", "context_of_use", "content_hash",
		"byte_size", "storage_path", "source_name", "op_kind", "op_ref_id", "position", "added_at",
	}).
		AddRow("d1", sub.ID, "Cover Letter", "cover-letter", "h1", 10, "content/sha256/h1", "cover.pdf", "new", nil, 1, time.Now()).
		AddRow("d2", sub.ID, "Protocol", "generic", "h2", 20, "content/sha256/h2", "protocol.pdf", "new", nil, 2, time.Now())

	mock.ExpectQuery("SELECT (.+) FROM documents").
		WithArgs(sub.ID).
		WillReturnRows(rows)

	docs, err := repo.ListDocuments(ctx, sub.ID)
	assert.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, 1, docs[0].Position)
	assert.Equal(t, "d2", docs[1].ID)
}

func TestSubmissionPostgres_MaxSequence(t *testing.T) {
	ctx := context.Background()
	repo, mock := newRepo(t)

	t.Run("known application", func(t *testing.T) {
		mock.ExpectQuery(`SELECT MAX\(sequence_number\) FROM submissions`).
			WithArgs("123456").
			WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(3))

		max, known, err := repo.MaxSequence(ctx, "123456")
		assert.NoError(t, err)
		assert.True(t, known)
		assert.Equal(t, 3, max)
	})

	t.Run("unknown application", func(t *testing.T) {
		mock.ExpectQuery(`SELECT MAX\(sequence_number\) FROM submissions`).
			WithArgs("999999").
			WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(nil))

		_, known, err := repo.MaxSequence(ctx, "999999")
		assert.NoError(t, err)
		assert.False(t, known)
	})
}

func TestSubmissionPostgres_SetStatus(t *testing.T) {
	ctx := context.Background()
	repo, mock := newRepo(t)

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec("UPDATE submissions SET status").
			WithArgs("s1", "exported").
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, repo.SetStatus(ctx, "s1", model.StatusExported))
	})

	t.Run("unknown submission", func(t *testing.T) {
		mock.ExpectExec("UPDATE submissions SET status").
			WithArgs("missing", "validated").
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.SetStatus(ctx, "missing", model.StatusValidated)
		assert.ErrorIs(t, err, repository.ErrSubmissionNotFound)
	})
}

func TestSubmissionPostgres_EnsureReady(t *testing.T) {
	ctx := context.Background()

	t.Run("initializes schema once then probes only", func(t *testing.T) {
		db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		require.NoError(t, err)
		defer db.Close()
		repo := NewSubmissionPostgres(db, zap.NewNop())

		mock.ExpectPing()
		mock.ExpectQuery("SELECT to_regclass").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
		// Second call: liveness probe only.
		mock.ExpectPing()

		assert.NoError(t, repo.EnsureReady(ctx))
		assert.NoError(t, repo.EnsureReady(ctx))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unreachable store", func(t *testing.T) {
		db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		require.NoError(t, err)
		defer db.Close()
		repo := NewSubmissionPostgres(db, zap.NewNop())

		mock.ExpectPing().WillReturnError(assert.AnError)

		err = repo.EnsureReady(ctx)
		assert.ErrorIs(t, err, repository.ErrInfrastructureUnavailable)
	})
}
