package listener

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"pricelist/internal/config"
	"pricelist/internal/connectors"
	gmailconnector "pricelist/internal/connectors/gmail"
	imapconnector "pricelist/internal/connectors/imap"
	"pricelist/internal/pipeline"
	"pricelist/internal/storage"
)

const lastCycleKey = "listener.last_cycle"

type Service struct {
	db     *storage.DB
	cfg    config.Config
	engine *pipeline.Engine
	logger *slog.Logger

	// connector is built lazily so a misconfigured provider surfaces per cycle.
	connector connectors.MailConnector
}

func NewService(db *storage.DB, cfg config.Config, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		db:     db,
		cfg:    cfg,
		engine: pipeline.NewEngine(logger, pipeline.WithMaxFileSize(cfg.MaxFileBytes())),
		logger: logger,
	}
}

// WithConnector replaces the provider connector, mainly for tests.
func (s *Service) WithConnector(c connectors.MailConnector) *Service {
	s.connector = c
	return s
}

func (s *Service) Run(ctx context.Context) error {
	interval := time.Duration(s.cfg.MailListenerIntervalSec) * time.Second
	if interval <= 0 {
		interval = time.Minute
	}
	for {
		if err := s.RunCycle(ctx); err != nil {
			s.logger.Error("listener cycle failed", "err", err)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(interval):
		}
	}
}

type CycleResult struct {
	Fetched   int
	Stored    int
	Processed int
	Failed    int
	Runs      int
	Exported  int
}

// RunCycle fetches new mail, processes pending emails and optionally exports
// each new run.
func (s *Service) RunCycle(ctx context.Context) error {
	_, err := s.runCycle(ctx)
	return err
}

func (s *Service) runCycle(ctx context.Context) (CycleResult, error) {
	var res CycleResult
	provider := strings.ToLower(strings.TrimSpace(s.cfg.MailListenerProvider))
	mailConnector, err := s.makeConnector(ctx, provider)
	if err != nil {
		return res, err
	}

	fetchService := connectors.NewFetchService(s.db, s.cfg.RawMailDir, mailConnector, s.logger)
	fetched, err := fetchService.FetchAndStore(ctx, s.cfg.MailListenerLabel, s.cfg.MailListenerFetchMax)
	if err != nil {
		return res, err
	}
	res.Fetched, res.Stored = fetched.Fetched, fetched.Stored

	processor := pipeline.NewProcessingService(s.db, s.engine, s.cfg.Extraction(), s.logger,
		pipeline.WithWorkers(s.cfg.ProcessWorkers),
		pipeline.WithRetry(s.cfg.ProcessMaxAttempts, s.cfg.ProcessRetryBackoff()),
	)
	processed, err := processor.ProcessPending(ctx, s.cfg.MailListenerProcessBatch, provider)
	if err != nil {
		return res, err
	}
	res.Processed = len(processed)

	for _, p := range processed {
		if p.Status == pipeline.StatusFailed {
			res.Failed++
			continue
		}
		res.Runs += len(p.RunIDs)
		if !s.cfg.MailListenerAutoExport {
			continue
		}
		n, err := s.exportRuns(p.RunIDs)
		if err != nil {
			return res, err
		}
		res.Exported += n
	}

	if err := s.db.SetMetadata(lastCycleKey, time.Now().UTC().Format(time.RFC3339)); err != nil {
		return res, err
	}

	s.logger.Info("listener cycle done",
		"provider", provider,
		"fetched", res.Fetched,
		"stored", res.Stored,
		"processed", res.Processed,
		"failed", res.Failed,
		"runs", res.Runs,
		"exported", res.Exported,
	)
	return res, nil
}

func (s *Service) exportRuns(runIDs []string) (int, error) {
	exported := 0
	for _, runID := range runIDs {
		rows, err := s.db.GetRunRows(runID)
		if err != nil {
			return exported, err
		}
		if len(rows) == 0 {
			continue
		}
		outputPath := filepath.Join(s.cfg.OutputDir, "listener", sanitizeFileName(runID)+".xlsx")
		if err := pipeline.ExportRowsToXLSX(rows, outputPath); err != nil {
			return exported, err
		}
		exported++
	}
	return exported, nil
}

func (s *Service) makeConnector(ctx context.Context, provider string) (connectors.MailConnector, error) {
	if s.connector != nil {
		return s.connector, nil
	}
	switch provider {
	case "gmail":
		return gmailconnector.NewConnector(ctx, s.cfg, s.logger)
	case "imap":
		return imapconnector.NewConnector(s.cfg, s.logger)
	default:
		return nil, fmt.Errorf("unsupported listener provider: %s", provider)
	}
}

func sanitizeFileName(input string) string {
	repl := strings.NewReplacer("<", "_", ">", "_", ":", "_", "/", "_", "\\", "_", "|", "_", "?", "_", "*", "_", " ", "_")
	out := repl.Replace(input)
	if len(out) > 120 {
		out = out[:120]
	}
	return out
}
