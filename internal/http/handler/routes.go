package handler

import (
	"bufio"
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"ectdforge/internal/export"
	"ectdforge/internal/model"
	"ectdforge/internal/repository"
	"ectdforge/internal/service"
	"ectdforge/internal/validation"
)

// ingestRequest attaches a file already readable by the engine process.
type ingestRequest struct {
	SourcePath   string `json:"source_path"`
	Title        string `json:"title"`
	ContextOfUse string `json:"context_of_use"`
}

type exportRequest struct {
	TargetDirectory string `json:"target_directory"`
}

// validationResult is the response body of the validate endpoint. Pass is
// true when no error-severity finding remains; warnings do not fail a run.
type validationResult struct {
	Pass     bool                    `json:"pass"`
	Findings []model.ValidationError `json:"findings"`
}

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
// Keep handlers minimal and free of business logic in this skeleton.
func RegisterRoutes(app *fiber.App, repo repository.SubmissionRepository, subSvc service.SubmissionService, validator validation.Validator, exporter *export.Pipeline) {
	// Health: readiness of the backing store, bootstrapping it if needed.
	app.Get("/health", func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
		defer cancel()
		if err := repo.EnsureReady(ctx); err != nil {
			return writeError(c, fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "dependency unavailable")
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "healthy"})
	})

	// Simple liveness probe.
	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	// Create a new draft submission.
	app.Post("/submissions", func(c *fiber.Ctx) error {
		var in service.InitializeInput
		if err := c.BodyParser(&in); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "cannot parse request body")
		}
		sub, err := subSvc.Initialize(c.UserContext(), in)
		if err != nil {
			return writeDomainError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(sub)
	})

	// Get a submission by ID.
	app.Get("/submissions/:id", func(c *fiber.Ctx) error {
		id, err := parseID(c)
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		sub, err := subSvc.Get(c.UserContext(), id)
		if err != nil {
			return writeDomainError(c, err)
		}
		return c.JSON(sub)
	})

	// List a submission's documents in attachment order.
	app.Get("/submissions/:id/documents", func(c *fiber.Ctx) error {
		id, err := parseID(c)
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		docs, err := subSvc.ListDocuments(c.UserContext(), id)
		if err != nil {
			return writeDomainError(c, err)
		}
		return c.JSON(fiber.Map{"data": docs, "total": len(docs)})
	})

	// Attach a document. Accepts either a JSON body naming a source path
	// or a multipart upload with a "file" field.
	app.Post("/submissions/:id/documents", func(c *fiber.Ctx) error {
		id, err := parseID(c)
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}

		if strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
			return ingestMultipart(c, subSvc, id)
		}

		var req ingestRequest
		if err := c.BodyParser(&req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "cannot parse request body")
		}
		doc, err := subSvc.Ingest(c.UserContext(), service.IngestInput{
			SubmissionID: id,
			SourcePath:   req.SourcePath,
			Title:        req.Title,
			ContextOfUse: model.ContextOfUse(req.ContextOfUse),
		})
		if err != nil {
			return writeDomainError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(doc)
	})

	// Presigned download URL for a document's stored content.
	app.Get("/documents/:id/url", func(c *fiber.Ctx) error {
		id, err := parseID(c)
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		expiry := time.Duration(c.QueryInt("expiry_seconds", 900)) * time.Second
		url, err := subSvc.PresignDownload(c.UserContext(), id, expiry)
		if err != nil {
			return writeDomainError(c, err)
		}
		return c.JSON(fiber.Map{"url": url, "expires_in": int(expiry.Seconds())})
	})

	// Run the validation rule set over a submission. A clean result on a
	// draft submission promotes it to validated.
	app.Post("/submissions/:id/validate", func(c *fiber.Ctx) error {
		id, err := parseID(c)
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		findings, err := validator.Validate(c.UserContext(), id)
		if err != nil {
			return writeDomainError(c, err)
		}
		pass := !validation.HasErrors(findings)
		if pass {
			sub, err := repo.GetSubmission(c.UserContext(), id)
			if err != nil {
				return writeDomainError(c, err)
			}
			if sub.Status == model.StatusDraft {
				if err := repo.SetStatus(c.UserContext(), id, model.StatusValidated); err != nil {
					return writeDomainError(c, err)
				}
			}
		}
		if findings == nil {
			findings = []model.ValidationError{}
		}
		return c.JSON(validationResult{Pass: pass, Findings: findings})
	})

	// Export a submission package, streaming progress as NDJSON.
	app.Post("/submissions/:id/export", func(c *fiber.Ctx) error {
		id, err := parseID(c)
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		var req exportRequest
		if err := c.BodyParser(&req); err != nil || strings.TrimSpace(req.TargetDirectory) == "" {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "target_directory is required")
		}

		// The progress stream outlives the handler, so the run is not tied
		// to the request context; disconnects do not abort the export.
		ch, err := exporter.Export(context.Background(), id, req.TargetDirectory)
		if err != nil {
			return writeDomainError(c, err)
		}

		c.Set(fiber.HeaderContentType, "application/x-ndjson")
		c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
			enc := json.NewEncoder(w)
			for ev := range ch {
				if err := enc.Encode(ev); err != nil {
					return
				}
				if err := w.Flush(); err != nil {
					return
				}
			}
		})
		return nil
	})
}

// ingestMultipart handles the multipart upload form of document attachment.
func ingestMultipart(c *fiber.Ctx, subSvc service.SubmissionService, id string) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "file is required")
	}
	f, err := fh.Open()
	if err != nil {
		return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
	}
	defer f.Close()

	doc, err := subSvc.IngestReader(c.UserContext(), service.IngestReaderInput{
		SubmissionID: id,
		Reader:       f,
		SourceName:   fh.Filename,
		Title:        c.FormValue("title"),
		ContextOfUse: model.ContextOfUse(c.FormValue("context_of_use")),
	})
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(doc)
}

func parseID(c *fiber.Ctx) (string, error) {
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		return "", err
	}
	return id, nil
}
