package validation

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"

	"go.uber.org/zap"

	"ectdforge/internal/backbone"
	"ectdforge/internal/model"
	"ectdforge/internal/repository"
	"ectdforge/internal/storage"
)

// Input is the snapshot a validation run executes against. It is assembled
// once per run so every rule sees the same committed repository state.
type Input struct {
	Submission *model.Submission
	Documents  []model.Document
	Tree       *backbone.Tree

	// MaxKnownSequence is the highest sequence number recorded for the
	// same application, including this submission's own.
	MaxKnownSequence int
	HasPriorSequence bool

	Store storage.ContentStore
}

// Rule checks one aspect of a submission. Findings are returned as data;
// a rule never fails the run itself.
type Rule interface {
	Code() string
	Check(ctx context.Context, in *Input) []model.ValidationError
}

// Engine runs a fixed, ordered rule registry over a submission. Rule order
// is part of the contract: identical state yields identically ordered
// findings.
type Engine struct {
	repo  repository.SubmissionRepository
	store storage.ContentStore
	log   *zap.Logger
	rules []Rule
}

var _ Validator = (*Engine)(nil)

// Validator is the read-side contract consumed by the export pipeline and
// the transport layer.
type Validator interface {
	Validate(ctx context.Context, submissionID string) ([]model.ValidationError, error)
}

func NewEngine(repo repository.SubmissionRepository, store storage.ContentStore, log *zap.Logger) *Engine {
	return &Engine{
		repo:  repo,
		store: store,
		log:   log,
		rules: []Rule{
			&sequenceRangeRule{},
			&sequenceGapRule{},
			&titleRule{},
			&contextRule{},
			&requiredSlotRule{},
			&duplicateContentRule{},
			&checksumFormatRule{},
			&integrityRule{},
		},
	}
}

// Validate builds the structural tree for a submission and runs every
// registered rule against it. Domain problems come back as findings; the
// only failure modes are an unknown submission and infrastructure errors.
func (e *Engine) Validate(ctx context.Context, submissionID string) ([]model.ValidationError, error) {
	sub, err := e.repo.GetSubmission(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	docs, err := e.repo.ListDocuments(ctx, submissionID)
	if err != nil {
		return nil, err
	}

	maxSeq, known, err := e.repo.MaxSequence(ctx, sub.ApplicationNumber)
	if err != nil {
		return nil, err
	}

	schema, err := backbone.LoadSchema(backbone.DefaultVersion)
	if err != nil {
		return nil, err
	}

	in := &Input{
		Submission:       sub,
		Documents:        docs,
		Tree:             backbone.Build(schema, sub, docs),
		MaxKnownSequence: maxSeq,
		HasPriorSequence: known,
		Store:            e.store,
	}

	var findings []model.ValidationError
	for _, rule := range e.rules {
		findings = append(findings, rule.Check(ctx, in)...)
	}

	e.log.Info("validation finished",
		zap.String("submission_id", submissionID),
		zap.Int("findings", len(findings)),
	)
	return findings, nil
}

// sequenceRangeRule rejects sequence numbers outside the regulator's
// accepted 0001..9999 range.
type sequenceRangeRule struct{}

func (r *sequenceRangeRule) Code() string { return "ECTD4-013" }

func (r *sequenceRangeRule) Check(_ context.Context, in *Input) []model.ValidationError {
	seq := in.Submission.SequenceNumber
	if seq >= 1 && seq <= 9999 {
		return nil
	}
	return []model.ValidationError{{
		Severity: model.SeverityError,
		Code:     r.Code(),
		Message:  fmt.Sprintf("sequence number %d is outside the accepted range 1-9999", seq),
		Location: in.Submission.ID,
	}}
}

// sequenceGapRule flags a submission whose sequence number skips past the
// highest sequence known for the application.
type sequenceGapRule struct{}

func (r *sequenceGapRule) Code() string { return "ECTD4-SEQ-GAP" }

func (r *sequenceGapRule) Check(_ context.Context, in *Input) []model.ValidationError {
	if !in.HasPriorSequence {
		return nil
	}
	seq := in.Submission.SequenceNumber
	if seq <= in.MaxKnownSequence+1 {
		return nil
	}
	return []model.ValidationError{{
		Severity: model.SeverityWarning,
		Code:     r.Code(),
		Message: fmt.Sprintf("sequence number %d leaves a gap after the highest known sequence %d",
			seq, in.MaxKnownSequence),
		Location: in.Submission.ID,
	}}
}

// titleRule requires a usable, non-blank title on every document.
type titleRule struct{}

func (r *titleRule) Code() string { return "ECTD4-TITLE" }

func (r *titleRule) Check(_ context.Context, in *Input) []model.ValidationError {
	var out []model.ValidationError
	for _, doc := range in.Documents {
		if !blank(doc.Title) {
			continue
		}
		out = append(out, model.ValidationError{
			Severity: model.SeverityError,
			Code:     r.Code(),
			Message:  "document has no usable title",
			Location: doc.ID,
		})
	}
	return out
}

// contextRule requires a recognized context-of-use code on every document.
type contextRule struct{}

func (r *contextRule) Code() string { return "ECTD4-CTX" }

func (r *contextRule) Check(_ context.Context, in *Input) []model.ValidationError {
	var out []model.ValidationError
	for _, doc := range in.Documents {
		if doc.ContextOfUse.Valid() {
			continue
		}
		out = append(out, model.ValidationError{
			Severity: model.SeverityError,
			Code:     r.Code(),
			Message:  fmt.Sprintf("unknown context of use %q", doc.ContextOfUse),
			Location: doc.ID,
		})
	}
	return out
}

// requiredSlotRule reports every mandatory hierarchy slot left without a
// document.
type requiredSlotRule struct{}

func (r *requiredSlotRule) Code() string { return "ECTD4-REQ-SLOT" }

func (r *requiredSlotRule) Check(_ context.Context, in *Input) []model.ValidationError {
	var out []model.ValidationError
	for _, slot := range in.Tree.EmptyRequiredSlots() {
		out = append(out, model.ValidationError{
			Severity: model.SeverityError,
			Code:     r.Code(),
			Message:  fmt.Sprintf("required section %s has no document", slot),
			Location: slot,
		})
	}
	return out
}

// duplicateContentRule flags documents within one submission that share
// identical content. Duplicates are legal but usually accidental.
type duplicateContentRule struct{}

func (r *duplicateContentRule) Code() string { return "ECTD4-DUP-CONTENT" }

func (r *duplicateContentRule) Check(_ context.Context, in *Input) []model.ValidationError {
	firstByHash := make(map[string]model.Document)
	var out []model.ValidationError
	for _, doc := range in.Documents {
		prior, seen := firstByHash[doc.ContentHash]
		if !seen {
			firstByHash[doc.ContentHash] = doc
			continue
		}
		out = append(out, model.ValidationError{
			Severity: model.SeverityWarning,
			Code:     r.Code(),
			Message:  fmt.Sprintf("content is identical to document %s (%q)", prior.ID, prior.Title),
			Location: doc.ID,
		})
	}
	return out
}

// checksumFormatRule requires the recorded content hash to be a 64
// character lowercase hex SHA-256 digest.
type checksumFormatRule struct{}

func (r *checksumFormatRule) Code() string { return "ECTD4-048" }

func (r *checksumFormatRule) Check(_ context.Context, in *Input) []model.ValidationError {
	var out []model.ValidationError
	for _, doc := range in.Documents {
		if validSHA256Hex(doc.ContentHash) {
			continue
		}
		out = append(out, model.ValidationError{
			Severity: model.SeverityError,
			Code:     r.Code(),
			Message:  fmt.Sprintf("recorded checksum %q is not a SHA-256 hex digest", doc.ContentHash),
			Location: doc.ID,
		})
	}
	return out
}

// integrityRule re-reads every stored object and recomputes its digest.
// A mismatch means the stored bytes no longer match what was ingested.
type integrityRule struct{}

func (r *integrityRule) Code() string { return "ECTD4-INTEGRITY" }

func (r *integrityRule) Check(ctx context.Context, in *Input) []model.ValidationError {
	var out []model.ValidationError
	for _, doc := range in.Documents {
		actual, err := hashStored(ctx, in.Store, doc.StoragePath)
		if err != nil {
			out = append(out, model.ValidationError{
				Severity: model.SeverityError,
				Code:     r.Code(),
				Message:  fmt.Sprintf("stored content is unreadable: %v", err),
				Location: doc.ID,
			})
			continue
		}
		if actual != doc.ContentHash {
			out = append(out, model.ValidationError{
				Severity: model.SeverityError,
				Code:     r.Code(),
				Message:  fmt.Sprintf("stored content hash %s does not match recorded hash %s", actual, doc.ContentHash),
				Location: doc.ID,
			})
		}
	}
	return out
}

// HasErrors reports whether any finding carries error severity. Warnings
// alone do not block export.
func HasErrors(findings []model.ValidationError) bool {
	for _, f := range findings {
		if f.Severity == model.SeverityError {
			return true
		}
	}
	return false
}

func hashStored(ctx context.Context, store storage.ContentStore, key string) (string, error) {
	rc, _, err := store.Get(ctx, key)
	if err != nil {
		return "", err
	}
	defer rc.Close()

	h := sha256.New()
	if _, err := io.Copy(h, rc); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func validSHA256Hex(s string) bool {
	if len(s) != sha256.Size*2 {
		return false
	}
	for _, r := range s {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
			return false
		}
	}
	return true
}

func blank(s string) bool {
	for _, r := range s {
		if r != ' ' && r != '\t' && r != '\n' && r != '\r' {
			return false
		}
	}
	return true
}
