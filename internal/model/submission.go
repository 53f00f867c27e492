package model

import "time"

// ApplicationType classifies the regulatory application a submission
// belongs to.
type ApplicationType string

const (
	ApplicationNDA ApplicationType = "nda"
	ApplicationBLA ApplicationType = "bla"
	ApplicationIND ApplicationType = "ind"
)

// Valid reports whether t is one of the known application types.
func (t ApplicationType) Valid() bool {
	switch t {
	case ApplicationNDA, ApplicationBLA, ApplicationIND:
		return true
	}
	return false
}

// SubmissionStatus is the lifecycle state of a submission.
type SubmissionStatus string

const (
	StatusDraft     SubmissionStatus = "draft"
	StatusValidated SubmissionStatus = "validated"
	StatusExported  SubmissionStatus = "exported"
)

// Submission is one regulatory submission unit: a versioned increment of an
// application identified by (application_number, sequence_number).
// The pair is unique; a submission with status = exported is immutable
// except for re-export.
type Submission struct {
	ID                string           `json:"id"`
	ApplicationNumber string           `json:"application_number"`
	ApplicationType   ApplicationType  `json:"application_type"`
	ApplicantName     string           `json:"applicant_name"`
	SequenceNumber    int              `json:"sequence_number"`
	Status            SubmissionStatus `json:"status"`
	Revision          int              `json:"revision"`
	CreatedAt         time.Time        `json:"created_at"`
}
