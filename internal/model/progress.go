package model

// ExportStatus is the state of an export run as seen by a progress consumer.
type ExportStatus string

const (
	ExportPreparing  ExportStatus = "preparing"
	ExportHashing    ExportStatus = "hashing"
	ExportWriting    ExportStatus = "writing"
	ExportFinalizing ExportStatus = "finalizing"
	ExportComplete   ExportStatus = "complete"
	ExportFailed     ExportStatus = "failed"
)

// Terminal reports whether s ends an export run.
func (s ExportStatus) Terminal() bool {
	return s == ExportComplete || s == ExportFailed
}

// ExportProgress is one progress event emitted by the export pipeline.
// Message is set only on failed events.
type ExportProgress struct {
	FileName       string       `json:"file_name"`
	ProcessedFiles int          `json:"processed_files"`
	TotalFiles     int          `json:"total_files"`
	BytesProcessed int64        `json:"bytes_processed"`
	Status         ExportStatus `json:"status"`
	Message        string       `json:"message,omitempty"`
}
