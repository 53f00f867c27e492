package model

import "time"

// ContextOfUse classifies a document and determines its placement in the
// eCTD module hierarchy (cover letters and labeling under m1, clinical
// datasets under m5, everything else under the catch-all slot).
type ContextOfUse string

const (
	ContextCoverLetter     ContextOfUse = "cover-letter"
	ContextProductLabeling ContextOfUse = "product-labeling"
	ContextClinicalDataset ContextOfUse = "clinical-dataset"
	ContextGeneric         ContextOfUse = "generic"
)

// Valid reports whether c is one of the known context-of-use codes.
func (c ContextOfUse) Valid() bool {
	switch c {
	case ContextCoverLetter, ContextProductLabeling, ContextClinicalDataset, ContextGeneric:
		return true
	}
	return false
}

// OperationKind is the eCTD lifecycle operation of a document relative to a
// prior sequence.
type OperationKind string

const (
	OpNew     OperationKind = "new"
	OpReplace OperationKind = "replace"
	OpAppend  OperationKind = "append"
	OpDelete  OperationKind = "delete"
)

// Operation is a tagged lifecycle operation. RefID carries the superseded
// document for replace and the target document for delete; it is empty for
// new and append.
type Operation struct {
	Kind  OperationKind `json:"kind"`
	RefID string        `json:"ref_id,omitempty"`
}

// NewOperation is the operation recorded for first-time ingestion.
func NewOperation() Operation { return Operation{Kind: OpNew} }

// ReplaceOperation marks a document as superseding a prior one.
func ReplaceOperation(supersedes string) Operation {
	return Operation{Kind: OpReplace, RefID: supersedes}
}

// DeleteOperation marks a document as deleting a prior one.
func DeleteOperation(targets string) Operation {
	return Operation{Kind: OpDelete, RefID: targets}
}

// Document is one attached file, exclusively owned by a single submission.
// Content is stored content-addressed under StoragePath; ContentHash is the
// SHA-256 hex digest of the file bytes computed at ingestion and re-verified
// at every read. Documents are append-only: a correction is a new document
// with a replace operation, never an in-place mutation.
type Document struct {
	ID           string       `json:"id"`
	SubmissionID string       `json:"submission_id"`
	Title        string       `json:"title"`
	ContextOfUse ContextOfUse `json:"context_of_use"`
	ContentHash  string       `json:"content_hash"`
	ByteSize     int64        `json:"byte_size"`
	StoragePath  string       `json:"storage_path"`
	SourceName   string       `json:"source_name"`
	Operation    Operation    `json:"operation"`
	Position     int          `json:"position"`
	AddedAt      time.Time    `json:"added_at"`
}
