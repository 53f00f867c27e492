package repository

import (
	"context"
	"errors"

	"ectdforge/internal/model"
)

// Domain error kinds surfaced by the repository. Handlers map these to
// HTTP codes in one place; everything else is an infrastructure failure.
var (
	ErrSubmissionNotFound = errors.New("submission not found")
	ErrDocumentNotFound   = errors.New("document not found")
	// ErrDuplicateSequence signals that (application_number, sequence_number)
	// is already taken.
	ErrDuplicateSequence = errors.New("sequence number already exists for application")
	// ErrSubmissionExported signals an attach on an exported submission with
	// an operation that is not a permitted amendment.
	ErrSubmissionExported = errors.New("submission already exported")
	// ErrInfrastructureUnavailable signals that the backing store cannot be
	// reached or initialized.
	ErrInfrastructureUnavailable = errors.New("submission store unavailable")
)

// SubmissionRepository is the durable store for submissions and their
// document sets. All mutating operations commit before returning; reads
// observe only committed state. Implementations serialize document
// attachment per submission so that attachment order is total.
type SubmissionRepository interface {
	// CreateSubmission persists a new submission with status draft.
	// Returns ErrDuplicateSequence when the (application_number,
	// sequence_number) pair is already taken.
	CreateSubmission(ctx context.Context, sub *model.Submission) (*model.Submission, error)

	// AttachDocument persists a document at the next free position of its
	// submission and bumps the submission revision. Returns
	// ErrSubmissionNotFound for an unknown submission and
	// ErrSubmissionExported when the submission is exported and the
	// operation is not an amendment.
	AttachDocument(ctx context.Context, doc *model.Document) (*model.Document, error)

	// GetSubmission returns a submission by id or ErrSubmissionNotFound.
	GetSubmission(ctx context.Context, id string) (*model.Submission, error)

	// GetDocument returns a document by id or ErrDocumentNotFound.
	GetDocument(ctx context.Context, id string) (*model.Document, error)

	// ListDocuments returns a submission's documents in attachment order.
	// Returns ErrSubmissionNotFound for an unknown submission.
	ListDocuments(ctx context.Context, submissionID string) ([]model.Document, error)

	// MaxSequence returns the highest sequence number recorded for an
	// application; the bool is false when the application is unknown.
	MaxSequence(ctx context.Context, applicationNumber string) (int, bool, error)

	// SetStatus transitions a submission's lifecycle status.
	SetStatus(ctx context.Context, id string, status model.SubmissionStatus) error

	// EnsureReady verifies the backing store is reachable and the schema is
	// initialized, performing first-use initialization if absent. Idempotent
	// and safe to call on every engine startup; failures wrap
	// ErrInfrastructureUnavailable.
	EnsureReady(ctx context.Context) error
}
