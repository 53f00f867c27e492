package export

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"ectdforge/internal/backbone"
	"ectdforge/internal/config"
	"ectdforge/internal/model"
	"ectdforge/internal/repository"
	"ectdforge/internal/storage"
	"ectdforge/internal/validation"
)

var (
	// ErrExportInProgress signals a second concurrent export request for
	// the same submission.
	ErrExportInProgress = errors.New("export already running for submission")
	// ErrTargetPathUnusable signals that the destination directory cannot
	// be created or already holds files.
	ErrTargetPathUnusable = errors.New("target directory unusable")
	// ErrValidationRequired signals that export was requested for a
	// submission with unresolved validation errors while the gate is on.
	ErrValidationRequired = errors.New("submission has unresolved validation errors")
)

// ManifestFileName is the checksum manifest written at the package root.
const ManifestFileName = "sha256.txt"

// copyBufferSize bounds memory per concurrent export run.
const copyBufferSize = 32 * 1024

// Pipeline materializes submissions as on-disk eCTD packages. At most one
// run per submission is active at a time; runs for different submissions
// are independent.
type Pipeline struct {
	repo      repository.SubmissionRepository
	store     storage.ContentStore
	validator validation.Validator
	log       *zap.Logger
	cfg       config.ExportConfig

	mu       sync.Mutex
	inFlight map[string]struct{}
}

func NewPipeline(repo repository.SubmissionRepository, store storage.ContentStore, validator validation.Validator, log *zap.Logger, cfg config.ExportConfig) *Pipeline {
	if cfg.ProgressBuffer < 2 {
		cfg.ProgressBuffer = 2
	}
	return &Pipeline{
		repo:      repo,
		store:     store,
		validator: validator,
		log:       log,
		cfg:       cfg,
		inFlight:  make(map[string]struct{}),
	}
}

// Export starts an export run and returns its progress stream. The channel
// is closed after the terminal event. Fast-fail conditions (a concurrent
// run for the same submission, an unknown submission) surface as an error
// before any goroutine starts.
func (p *Pipeline) Export(ctx context.Context, submissionID, targetDir string) (<-chan model.ExportProgress, error) {
	sub, err := p.repo.GetSubmission(ctx, submissionID)
	if err != nil {
		return nil, err
	}

	if !p.acquire(submissionID) {
		return nil, ErrExportInProgress
	}

	ch := make(chan model.ExportProgress, p.cfg.ProgressBuffer)
	go func() {
		defer p.release(submissionID)
		defer close(ch)
		p.run(ctx, sub, targetDir, ch)
	}()
	return ch, nil
}

func (p *Pipeline) acquire(submissionID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, busy := p.inFlight[submissionID]; busy {
		return false
	}
	p.inFlight[submissionID] = struct{}{}
	return true
}

func (p *Pipeline) release(submissionID string) {
	p.mu.Lock()
	delete(p.inFlight, submissionID)
	p.mu.Unlock()
}

// run drives the state machine. Every exit path emits exactly one terminal
// event; the submission status is mutated only on the success path.
func (p *Pipeline) run(ctx context.Context, sub *model.Submission, targetDir string, ch chan model.ExportProgress) {
	start := time.Now()
	st := &runState{ch: ch}

	tree, err := p.prepare(ctx, sub, targetDir, st)
	if err != nil {
		p.fail(sub.ID, st, err)
		return
	}

	leaves := tree.Leaves()
	if err := p.verify(ctx, leaves, st); err != nil {
		p.fail(sub.ID, st, err)
		return
	}

	if err := p.write(ctx, leaves, targetDir, st); err != nil {
		p.fail(sub.ID, st, err)
		return
	}

	if err := p.finalize(ctx, tree, targetDir, st); err != nil {
		p.fail(sub.ID, st, err)
		return
	}

	st.emit(model.ExportProgress{
		ProcessedFiles: st.processed,
		TotalFiles:     st.total,
		BytesProcessed: st.bytes,
		Status:         model.ExportComplete,
	})
	exportsTotal.WithLabelValues("complete").Inc()
	exportDuration.Observe(time.Since(start).Seconds())

	p.log.Info("export complete",
		zap.String("submission_id", sub.ID),
		zap.String("target", targetDir),
		zap.Int("files", st.processed),
		zap.Int64("bytes", st.bytes),
		zap.Duration("elapsed", time.Since(start)),
	)
}

// runState is the per-run progress accumulator. Non-terminal events are
// dropped when the buffer is nearly full; one slot stays reserved so the
// terminal event always fits without blocking the producer.
type runState struct {
	ch        chan model.ExportProgress
	processed int
	total     int
	bytes     int64
}

func (st *runState) emit(ev model.ExportProgress) {
	if ev.Status.Terminal() {
		st.ch <- ev
		return
	}
	if len(st.ch) < cap(st.ch)-1 {
		st.ch <- ev
	}
}

func (st *runState) progress(status model.ExportStatus, fileName string) {
	st.emit(model.ExportProgress{
		FileName:       fileName,
		ProcessedFiles: st.processed,
		TotalFiles:     st.total,
		BytesProcessed: st.bytes,
		Status:         status,
	})
}

func (p *Pipeline) fail(submissionID string, st *runState, err error) {
	exportsTotal.WithLabelValues("failed").Inc()
	p.log.Warn("export failed",
		zap.String("submission_id", submissionID),
		zap.Error(err),
	)
	st.emit(model.ExportProgress{
		ProcessedFiles: st.processed,
		TotalFiles:     st.total,
		BytesProcessed: st.bytes,
		Status:         model.ExportFailed,
		Message:        err.Error(),
	})
}

func (p *Pipeline) prepare(ctx context.Context, sub *model.Submission, targetDir string, st *runState) (*backbone.Tree, error) {
	docs, err := p.repo.ListDocuments(ctx, sub.ID)
	if err != nil {
		return nil, err
	}

	if p.cfg.RequireValidation {
		findings, err := p.validator.Validate(ctx, sub.ID)
		if err != nil {
			return nil, err
		}
		if validation.HasErrors(findings) {
			return nil, fmt.Errorf("%w: %d error(s)", ErrValidationRequired, countErrors(findings))
		}
	}

	schema, err := backbone.LoadSchema(backbone.DefaultVersion)
	if err != nil {
		return nil, err
	}
	tree := backbone.Build(schema, sub, docs)

	if err := ensureTarget(targetDir); err != nil {
		return nil, err
	}

	// Leaves plus the backbone document and the checksum manifest.
	st.total = len(tree.Leaves()) + 2
	st.progress(model.ExportPreparing, "")
	return tree, nil
}

// verify recomputes every leaf's stored digest before any byte is copied.
// A single mismatch aborts the run.
func (p *Pipeline) verify(ctx context.Context, leaves []*backbone.Node, st *runState) error {
	for _, leaf := range leaves {
		if err := cancelled(ctx); err != nil {
			return err
		}
		actual, err := p.hashStored(ctx, leaf.StoragePath)
		if err != nil {
			return fmt.Errorf("verify %s: %w", leaf.RelPath, err)
		}
		if actual != leaf.ContentHash {
			return fmt.Errorf("verify %s: stored hash %s does not match recorded hash %s",
				leaf.RelPath, actual, leaf.ContentHash)
		}
		st.progress(model.ExportHashing, leaf.RelPath)
	}
	return nil
}

func (p *Pipeline) write(ctx context.Context, leaves []*backbone.Node, targetDir string, st *runState) error {
	for _, leaf := range leaves {
		if err := cancelled(ctx); err != nil {
			return err
		}
		n, err := p.writeLeaf(ctx, leaf, targetDir)
		if err != nil {
			return fmt.Errorf("write %s: %w", leaf.RelPath, err)
		}
		st.processed++
		st.bytes += n
		st.progress(model.ExportWriting, leaf.RelPath)
		exportBytesTotal.Add(float64(n))
	}
	return nil
}

func (p *Pipeline) writeLeaf(ctx context.Context, leaf *backbone.Node, targetDir string) (int64, error) {
	dest := filepath.Join(targetDir, filepath.FromSlash(leaf.RelPath))
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return 0, err
	}

	rc, _, err := p.store.Get(ctx, leaf.StoragePath)
	if err != nil {
		return 0, err
	}
	defer rc.Close()

	f, err := os.Create(dest)
	if err != nil {
		return 0, err
	}
	h := sha256.New()
	buf := make([]byte, copyBufferSize)
	n, err := io.CopyBuffer(io.MultiWriter(f, h), rc, buf)
	if err != nil {
		f.Close()
		return n, err
	}
	if err := f.Close(); err != nil {
		return n, err
	}
	if sum := hex.EncodeToString(h.Sum(nil)); sum != leaf.ContentHash {
		return n, fmt.Errorf("written hash %s does not match recorded hash %s", sum, leaf.ContentHash)
	}
	return n, nil
}

// finalize writes the backbone and the checksum manifest, then marks the
// submission exported. Cancellation before this point leaves the status
// untouched.
func (p *Pipeline) finalize(ctx context.Context, tree *backbone.Tree, targetDir string, st *runState) error {
	if err := cancelled(ctx); err != nil {
		return err
	}
	st.progress(model.ExportFinalizing, backbone.BackboneFileName)

	body, err := backbone.Render(tree)
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(targetDir, backbone.BackboneFileName), body, 0o644); err != nil {
		return fmt.Errorf("write backbone: %w", err)
	}
	st.processed++
	st.bytes += int64(len(body))

	manifest := renderManifest(tree, body)
	if err := os.WriteFile(filepath.Join(targetDir, ManifestFileName), []byte(manifest), 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	st.processed++
	st.bytes += int64(len(manifest))

	if err := p.repo.SetStatus(ctx, tree.Submission.ID, model.StatusExported); err != nil {
		return fmt.Errorf("mark exported: %w", err)
	}
	return nil
}

// renderManifest lists every package file with its SHA-256, leaves first in
// tree order, backbone last. The format is one "<hash>  <path>" line per
// file, compatible with sha256sum -c.
func renderManifest(tree *backbone.Tree, backboneBody []byte) string {
	var b strings.Builder
	for _, leaf := range tree.Leaves() {
		fmt.Fprintf(&b, "%s  %s\n", leaf.ContentHash, leaf.RelPath)
	}
	sum := sha256.Sum256(backboneBody)
	fmt.Fprintf(&b, "%s  %s\n", hex.EncodeToString(sum[:]), backbone.BackboneFileName)
	return b.String()
}

// hashStored streams a vault object through SHA-256 without buffering it.
func (p *Pipeline) hashStored(ctx context.Context, key string) (string, error) {
	rc, _, err := p.store.Get(ctx, key)
	if err != nil {
		return "", err
	}
	defer rc.Close()

	h := sha256.New()
	buf := make([]byte, copyBufferSize)
	if _, err := io.CopyBuffer(h, rc, buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// ensureTarget accepts a missing or empty directory and rejects anything
// else, so a half-written package can never be mistaken for a fresh one.
func ensureTarget(dir string) error {
	entries, err := os.ReadDir(dir)
	switch {
	case errors.Is(err, os.ErrNotExist):
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("%w: %v", ErrTargetPathUnusable, err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("%w: %v", ErrTargetPathUnusable, err)
	case len(entries) > 0:
		return fmt.Errorf("%w: %s is not empty", ErrTargetPathUnusable, dir)
	}
	return nil
}

func cancelled(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("cancelled: %w", ctx.Err())
	default:
		return nil
	}
}

func countErrors(findings []model.ValidationError) int {
	var n int
	for _, f := range findings {
		if f.Severity == model.SeverityError {
			n++
		}
	}
	return n
}
