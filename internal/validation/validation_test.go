package validation

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"ectdforge/internal/model"
	"ectdforge/internal/repository"
	"ectdforge/internal/repository/mocks"
	"ectdforge/internal/storage"
)

const subID = "11111111-1111-1111-1111-111111111111"

func testSubmission() *model.Submission {
	return &model.Submission{
		ID:                subID,
		ApplicationNumber: "123456",
		ApplicationType:   model.ApplicationNDA,
		ApplicantName:     "Acme Pharmaceuticals",
		SequenceNumber:    1,
		Status:            model.StatusDraft,
		CreatedAt:         time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

// storedDoc writes content into the vault and returns a document whose
// recorded hash matches the stored bytes.
func storedDoc(t *testing.T, store *storage.MemoryStore, id, title string, cou model.ContextOfUse, content []byte) model.Document {
	t.Helper()
	sum := sha256.Sum256(content)
	hash := hex.EncodeToString(sum[:])
	key := storage.ContentKey(hash)
	_, err := store.Put(context.Background(), key, bytes.NewReader(content), storage.PutObjectOptions{Size: int64(len(content))})
	require.NoError(t, err)
	return model.Document{
		ID:           id,
		SubmissionID: subID,
		Title:        title,
		ContextOfUse: cou,
		ContentHash:  hash,
		ByteSize:     int64(len(content)),
		StoragePath:  key,
		SourceName:   "source.pdf",
		Operation:    model.NewOperation(),
	}
}

func newEngine(t *testing.T, store *storage.MemoryStore, sub *model.Submission, docs []model.Document, maxSeq int, known bool) (*Engine, *mocks.MockSubmissionRepository) {
	t.Helper()
	repo := new(mocks.MockSubmissionRepository)
	repo.On("GetSubmission", context.Background(), sub.ID).Return(sub, nil)
	repo.On("ListDocuments", context.Background(), sub.ID).Return(docs, nil)
	repo.On("MaxSequence", context.Background(), sub.ApplicationNumber).Return(maxSeq, known, nil)
	return NewEngine(repo, store, zap.NewNop()), repo
}

func codes(findings []model.ValidationError) []string {
	out := make([]string, 0, len(findings))
	for _, f := range findings {
		out = append(out, f.Code)
	}
	return out
}

func TestValidateCleanSubmission(t *testing.T) {
	store := storage.NewMemoryStore()
	docs := []model.Document{
		storedDoc(t, store, "d1", "Cover Letter", model.ContextCoverLetter, []byte("cover letter body")),
	}
	engine, _ := newEngine(t, store, testSubmission(), docs, 1, true)

	findings, err := engine.Validate(context.Background(), subID)
	require.NoError(t, err)
	assert.Empty(t, findings)
}

func TestValidateUnknownSubmission(t *testing.T) {
	repo := new(mocks.MockSubmissionRepository)
	repo.On("GetSubmission", context.Background(), "missing").
		Return(nil, repository.ErrSubmissionNotFound)
	engine := NewEngine(repo, storage.NewMemoryStore(), zap.NewNop())

	_, err := engine.Validate(context.Background(), "missing")
	assert.ErrorIs(t, err, repository.ErrSubmissionNotFound)
}

func TestValidateEmptyRequiredSlot(t *testing.T) {
	store := storage.NewMemoryStore()
	engine, _ := newEngine(t, store, testSubmission(), []model.Document{}, 1, true)

	findings, err := engine.Validate(context.Background(), subID)
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Equal(t, "ECTD4-REQ-SLOT", findings[0].Code)
	assert.Equal(t, model.SeverityError, findings[0].Severity)
	assert.Equal(t, "m1/cover-letter", findings[0].Location)

	// Attaching a cover letter clears the finding.
	docs := []model.Document{
		storedDoc(t, store, "d1", "Cover Letter", model.ContextCoverLetter, []byte("cover")),
	}
	engine, _ = newEngine(t, store, testSubmission(), docs, 1, true)
	findings, err = engine.Validate(context.Background(), subID)
	require.NoError(t, err)
	assert.NotContains(t, codes(findings), "ECTD4-REQ-SLOT")
}

func TestValidateBlankTitle(t *testing.T) {
	store := storage.NewMemoryStore()
	doc := storedDoc(t, store, "d1", "Cover Letter", model.ContextCoverLetter, []byte("cover"))
	doc.Title = "   "
	engine, _ := newEngine(t, store, testSubmission(), []model.Document{doc}, 1, true)

	findings, err := engine.Validate(context.Background(), subID)
	require.NoError(t, err)
	assert.Contains(t, codes(findings), "ECTD4-TITLE")
}

func TestValidateUnknownContext(t *testing.T) {
	store := storage.NewMemoryStore()
	doc := storedDoc(t, store, "d1", "Cover Letter", model.ContextCoverLetter, []byte("cover"))
	doc.ContextOfUse = "promotional-material"
	engine, _ := newEngine(t, store, testSubmission(), []model.Document{doc}, 1, true)

	findings, err := engine.Validate(context.Background(), subID)
	require.NoError(t, err)
	assert.Contains(t, codes(findings), "ECTD4-CTX")
}

func TestValidateDuplicateContentIsWarning(t *testing.T) {
	store := storage.NewMemoryStore()
	docs := []model.Document{
		storedDoc(t, store, "d1", "Cover Letter", model.ContextCoverLetter, []byte("same bytes")),
		storedDoc(t, store, "d2", "Labeling", model.ContextProductLabeling, []byte("same bytes")),
	}
	engine, _ := newEngine(t, store, testSubmission(), docs, 1, true)

	findings, err := engine.Validate(context.Background(), subID)
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Equal(t, "ECTD4-DUP-CONTENT", findings[0].Code)
	assert.Equal(t, model.SeverityWarning, findings[0].Severity)
	assert.Equal(t, "d2", findings[0].Location)
	assert.False(t, HasErrors(findings))
}

func TestValidateCorruptedContent(t *testing.T) {
	store := storage.NewMemoryStore()
	doc := storedDoc(t, store, "d1", "Cover Letter", model.ContextCoverLetter, []byte("original"))
	store.Corrupt(doc.StoragePath, []byte("tampered"))
	engine, _ := newEngine(t, store, testSubmission(), []model.Document{doc}, 1, true)

	findings, err := engine.Validate(context.Background(), subID)
	require.NoError(t, err)
	assert.Contains(t, codes(findings), "ECTD4-INTEGRITY")
	assert.True(t, HasErrors(findings))
}

func TestValidateMissingStoredObject(t *testing.T) {
	store := storage.NewMemoryStore()
	doc := storedDoc(t, store, "d1", "Cover Letter", model.ContextCoverLetter, []byte("cover"))
	doc.StoragePath = storage.ContentKey("0000000000000000000000000000000000000000000000000000000000000000")
	engine, _ := newEngine(t, store, testSubmission(), []model.Document{doc}, 1, true)

	findings, err := engine.Validate(context.Background(), subID)
	require.NoError(t, err)
	assert.Contains(t, codes(findings), "ECTD4-INTEGRITY")
}

func TestValidateChecksumFormat(t *testing.T) {
	store := storage.NewMemoryStore()
	doc := storedDoc(t, store, "d1", "Cover Letter", model.ContextCoverLetter, []byte("cover"))
	doc.ContentHash = "NOT-A-DIGEST"
	engine, _ := newEngine(t, store, testSubmission(), []model.Document{doc}, 1, true)

	findings, err := engine.Validate(context.Background(), subID)
	require.NoError(t, err)
	assert.Contains(t, codes(findings), "ECTD4-048")
}

func TestValidateSequenceRange(t *testing.T) {
	store := storage.NewMemoryStore()
	docs := []model.Document{
		storedDoc(t, store, "d1", "Cover Letter", model.ContextCoverLetter, []byte("cover")),
	}

	sub := testSubmission()
	sub.SequenceNumber = 10000
	engine, _ := newEngine(t, store, sub, docs, 10000, true)

	findings, err := engine.Validate(context.Background(), subID)
	require.NoError(t, err)
	assert.Contains(t, codes(findings), "ECTD4-013")
}

func TestValidateSequenceGap(t *testing.T) {
	store := storage.NewMemoryStore()
	docs := []model.Document{
		storedDoc(t, store, "d1", "Cover Letter", model.ContextCoverLetter, []byte("cover")),
	}

	sub := testSubmission()
	sub.SequenceNumber = 5
	engine, _ := newEngine(t, store, sub, docs, 2, true)

	findings, err := engine.Validate(context.Background(), subID)
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Equal(t, "ECTD4-SEQ-GAP", findings[0].Code)
	assert.Equal(t, model.SeverityWarning, findings[0].Severity)
}

func TestValidateDeterministicOrdering(t *testing.T) {
	store := storage.NewMemoryStore()
	doc := storedDoc(t, store, "d1", "   ", model.ContextCoverLetter, []byte("cover"))
	doc.Title = " "
	doc.ContentHash = "bad"
	doc.StoragePath = storage.ContentKey("bad")

	sub := testSubmission()
	sub.SequenceNumber = 9

	run := func() []string {
		engine, _ := newEngine(t, store, sub, []model.Document{doc}, 2, true)
		findings, err := engine.Validate(context.Background(), subID)
		require.NoError(t, err)
		return codes(findings)
	}

	first := run()
	assert.Equal(t, []string{"ECTD4-SEQ-GAP", "ECTD4-TITLE", "ECTD4-048", "ECTD4-INTEGRITY"}, first)
	assert.Equal(t, first, run())
}

func TestHasErrors(t *testing.T) {
	assert.False(t, HasErrors(nil))
	assert.False(t, HasErrors([]model.ValidationError{{Severity: model.SeverityWarning}}))
	assert.True(t, HasErrors([]model.ValidationError{
		{Severity: model.SeverityWarning},
		{Severity: model.SeverityError},
	}))
}
