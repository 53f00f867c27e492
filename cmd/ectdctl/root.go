package main

import (
	"database/sql"
	"fmt"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ectdforge/internal/config"
	"ectdforge/internal/database"
	"ectdforge/internal/export"
	"ectdforge/internal/logger"
	"ectdforge/internal/repository/postgres"
	"ectdforge/internal/service"
	"ectdforge/internal/storage"
	"ectdforge/internal/validation"
)

var verbose bool

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "ectdctl",
	Short: "Assemble, validate, and export eCTD v4.0 submissions",
	Long: `ectdctl drives the submission engine from the command line:
initialize a submission, attach documents, run the validation rule set,
and export the on-disk package with streamed progress.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
}

// engine bundles the wired components a command needs plus their teardown.
type engine struct {
	db        *sql.DB
	repo      *postgres.SubmissionPostgres
	svc       service.SubmissionService
	validator *validation.Engine
	exporter  *export.Pipeline
	log       *zap.Logger
}

func (e *engine) Close() {
	e.log.Sync()
	e.db.Close()
}

// newEngine wires the engine from environment configuration. Every command
// goes through the same readiness check the API server performs at boot.
func newEngine(cmd *cobra.Command) (*engine, error) {
	cfg := config.Load()
	if !verbose {
		cfg.Log.Level = "warn"
	}

	zlog, err := logger.New(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("initialize logger: %w", err)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	vault, err := storage.NewMinIO(cfg.MinIO)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize object storage: %w", err)
	}

	repo := postgres.NewSubmissionPostgres(db, zlog)
	if err := repo.EnsureReady(cmd.Context()); err != nil {
		db.Close()
		return nil, err
	}

	validator := validation.NewEngine(repo, vault, zlog)
	return &engine{
		db:        db,
		repo:      repo,
		svc:       service.NewSubmissionService(repo, vault, zlog),
		validator: validator,
		exporter:  export.NewPipeline(repo, vault, validator, zlog, cfg.Export),
		log:       zlog,
	}, nil
}
