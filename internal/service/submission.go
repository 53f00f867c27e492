package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"ectdforge/internal/model"
	"ectdforge/internal/repository"
	"ectdforge/internal/storage"
)

var (
	ErrIDRequired                = errors.New("id is required")
	ErrReaderNil                 = errors.New("reader is nil")
	ErrSourceNotFound            = errors.New("source file not found")
	ErrEmptyDocument             = errors.New("document content is empty")
	ErrTitleRequired             = errors.New("title is required")
	ErrApplicantRequired         = errors.New("applicant name is required")
	ErrApplicationNumberRequired = errors.New("application number is required")
	ErrInvalidApplicationType    = errors.New("unknown application type")
	ErrInvalidContextOfUse       = errors.New("unknown context of use")
	ErrNegativeSequence          = errors.New("sequence number must not be negative")
)

// hashChunkSize bounds memory per ingestion regardless of source size.
const hashChunkSize = 32 * 1024

// InitializeInput carries the caller-supplied fields for a new submission.
type InitializeInput struct {
	ApplicationNumber string                `json:"application_number"`
	ApplicationType   model.ApplicationType `json:"application_type"`
	ApplicantName     string                `json:"applicant_name"`
	SequenceNumber    int                   `json:"sequence_number"`
}

// IngestInput attaches a file already on local disk.
type IngestInput struct {
	SubmissionID string
	SourcePath   string
	Title        string
	ContextOfUse model.ContextOfUse
}

// IngestReaderInput attaches content arriving as a stream, for example a
// multipart upload. SourceName is used only for its extension.
type IngestReaderInput struct {
	SubmissionID string
	Reader       io.Reader
	SourceName   string
	Title        string
	ContextOfUse model.ContextOfUse
}

// SubmissionService defines the use cases for assembling a submission.
type SubmissionService interface {
	// Initialize creates a new draft submission.
	Initialize(ctx context.Context, in InitializeInput) (*model.Submission, error)

	// Get returns a submission by its ID.
	Get(ctx context.Context, id string) (*model.Submission, error)

	// ListDocuments returns a submission's documents in attachment order.
	ListDocuments(ctx context.Context, submissionID string) ([]model.Document, error)

	// Ingest hashes a local source file, stores its content in the vault
	// addressed by digest, and registers a document. The digest is always
	// computed from the bytes read, never taken from the caller.
	Ingest(ctx context.Context, in IngestInput) (*model.Document, error)

	// IngestReader is Ingest for streamed content; the stream is spooled
	// to a temporary file so the content can be hashed before upload.
	IngestReader(ctx context.Context, in IngestReaderInput) (*model.Document, error)

	// PresignDownload returns a time-limited URL for a document's content.
	PresignDownload(ctx context.Context, documentID string, expiry time.Duration) (string, error)
}

// submissionService is a concrete implementation of SubmissionService.
type submissionService struct {
	repo  repository.SubmissionRepository
	store storage.ContentStore
	log   *zap.Logger
}

// NewSubmissionService constructs a new SubmissionService.
func NewSubmissionService(repo repository.SubmissionRepository, store storage.ContentStore, log *zap.Logger) SubmissionService {
	return &submissionService{repo: repo, store: store, log: log}
}

func (s *submissionService) Initialize(ctx context.Context, in InitializeInput) (*model.Submission, error) {
	if strings.TrimSpace(in.ApplicationNumber) == "" {
		return nil, ErrApplicationNumberRequired
	}
	if !in.ApplicationType.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidApplicationType, in.ApplicationType)
	}
	if strings.TrimSpace(in.ApplicantName) == "" {
		return nil, ErrApplicantRequired
	}
	if in.SequenceNumber < 0 {
		return nil, ErrNegativeSequence
	}

	sub := &model.Submission{
		ID:                uuid.New().String(),
		ApplicationNumber: in.ApplicationNumber,
		ApplicationType:   in.ApplicationType,
		ApplicantName:     in.ApplicantName,
		SequenceNumber:    in.SequenceNumber,
		Status:            model.StatusDraft,
		CreatedAt:         time.Now().UTC(),
	}
	created, err := s.repo.CreateSubmission(ctx, sub)
	if err != nil {
		return nil, err
	}

	s.log.Info("submission initialized",
		zap.String("submission_id", created.ID),
		zap.String("application_number", created.ApplicationNumber),
		zap.Int("sequence_number", created.SequenceNumber),
	)
	return created, nil
}

func (s *submissionService) Get(ctx context.Context, id string) (*model.Submission, error) {
	if id == "" {
		return nil, ErrIDRequired
	}
	return s.repo.GetSubmission(ctx, id)
}

func (s *submissionService) ListDocuments(ctx context.Context, submissionID string) ([]model.Document, error) {
	if submissionID == "" {
		return nil, ErrIDRequired
	}
	return s.repo.ListDocuments(ctx, submissionID)
}

func (s *submissionService) Ingest(ctx context.Context, in IngestInput) (*model.Document, error) {
	if in.SubmissionID == "" {
		return nil, ErrIDRequired
	}
	if err := checkAttachment(in.Title, in.ContextOfUse); err != nil {
		return nil, err
	}

	f, err := os.Open(in.SourcePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
			return nil, fmt.Errorf("%w: %s", ErrSourceNotFound, in.SourcePath)
		}
		return nil, fmt.Errorf("open source: %w", err)
	}
	defer f.Close()

	return s.ingestFile(ctx, f, filepath.Base(in.SourcePath), in.SubmissionID, in.Title, in.ContextOfUse)
}

func (s *submissionService) IngestReader(ctx context.Context, in IngestReaderInput) (*model.Document, error) {
	if in.SubmissionID == "" {
		return nil, ErrIDRequired
	}
	if in.Reader == nil {
		return nil, ErrReaderNil
	}
	if err := checkAttachment(in.Title, in.ContextOfUse); err != nil {
		return nil, err
	}

	// Spool to disk first: the content must be hashed in full before the
	// vault key is known, and the stream cannot be rewound.
	tmp, err := os.CreateTemp("", "ectd-ingest-*")
	if err != nil {
		return nil, fmt.Errorf("create spool file: %w", err)
	}
	defer func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}()

	if _, err := io.Copy(tmp, in.Reader); err != nil {
		return nil, fmt.Errorf("spool content: %w", err)
	}

	return s.ingestFile(ctx, tmp, in.SourceName, in.SubmissionID, in.Title, in.ContextOfUse)
}

// ingestFile hashes an open file, deduplicates its bytes into the vault,
// and registers the document. Nothing durable happens until the digest is
// known; a failure at any step registers no document.
func (s *submissionService) ingestFile(ctx context.Context, f *os.File, sourceName, submissionID, title string, cou model.ContextOfUse) (*model.Document, error) {
	hash, size, err := digestFile(f)
	if err != nil {
		return nil, fmt.Errorf("hash source: %w", err)
	}
	if size == 0 {
		return nil, ErrEmptyDocument
	}

	key := storage.ContentKey(hash)
	exists, err := s.store.Exists(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("check vault: %w", err)
	}
	if !exists {
		if _, err := s.store.Put(ctx, key, f, storage.PutObjectOptions{
			Size:        size,
			ContentType: contentTypeFor(sourceName),
			Metadata:    map[string]string{"source-name": sourceName},
		}); err != nil {
			return nil, fmt.Errorf("store content: %w", err)
		}
	}

	doc := &model.Document{
		ID:           uuid.New().String(),
		SubmissionID: submissionID,
		Title:        title,
		ContextOfUse: cou,
		ContentHash:  hash,
		ByteSize:     size,
		StoragePath:  key,
		SourceName:   sourceName,
		Operation:    model.NewOperation(),
		AddedAt:      time.Now().UTC(),
	}
	attached, err := s.repo.AttachDocument(ctx, doc)
	if err != nil {
		return nil, err
	}

	s.log.Info("document ingested",
		zap.String("document_id", attached.ID),
		zap.String("submission_id", submissionID),
		zap.String("content_hash", hash),
		zap.Int64("byte_size", size),
		zap.Bool("deduplicated", exists),
	)
	return attached, nil
}

func (s *submissionService) PresignDownload(ctx context.Context, documentID string, expiry time.Duration) (string, error) {
	if documentID == "" {
		return "", ErrIDRequired
	}
	doc, err := s.repo.GetDocument(ctx, documentID)
	if err != nil {
		return "", err
	}
	return s.store.PresignGet(ctx, doc.StoragePath, expiry)
}

func checkAttachment(title string, cou model.ContextOfUse) error {
	if strings.TrimSpace(title) == "" {
		return ErrTitleRequired
	}
	if !cou.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidContextOfUse, cou)
	}
	return nil
}

// digestFile computes the SHA-256 of a file in bounded chunks and rewinds
// it so the same handle can be uploaded afterwards.
func digestFile(f *os.File) (hash string, size int64, err error) {
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return "", 0, err
	}
	h := sha256.New()
	buf := make([]byte, hashChunkSize)
	size, err = io.CopyBuffer(h, f, buf)
	if err != nil {
		return "", 0, err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return "", 0, err
	}
	return hex.EncodeToString(h.Sum(nil)), size, nil
}

func contentTypeFor(name string) string {
	if ct := mime.TypeByExtension(filepath.Ext(name)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
