package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"pricelist/internal"
	"pricelist/internal/logging"
	"pricelist/internal/storage"
)

const (
	StatusFetched   = "fetched"
	StatusProcessed = "processed"
	StatusSkipped   = "skipped"
	StatusFailed    = "failed"
)

const (
	DefaultProcessWorkers = 3
	DefaultMaxAttempts    = 3
	DefaultRetryBackoff   = 500 * time.Millisecond
)

// ProcessingService turns stored emails into extraction runs.
type ProcessingService struct {
	db       *storage.DB
	engine   *Engine
	cfg      internal.ExtractionConfig
	logger   *slog.Logger
	workers  int
	attempts int
	backoff  time.Duration
}

type ProcessOption func(*ProcessingService)

// WithWorkers bounds how many emails ProcessPending handles at once.
func WithWorkers(n int) ProcessOption {
	return func(s *ProcessingService) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithRetry sets the attempts per email and the first retry delay, which
// doubles on every further attempt.
func WithRetry(attempts int, backoff time.Duration) ProcessOption {
	return func(s *ProcessingService) {
		if attempts > 0 {
			s.attempts = attempts
		}
		if backoff >= 0 {
			s.backoff = backoff
		}
	}
}

func NewProcessingService(db *storage.DB, engine *Engine, cfg internal.ExtractionConfig, logger *slog.Logger, opts ...ProcessOption) *ProcessingService {
	if logger == nil {
		logger = slog.Default()
	}
	s := &ProcessingService{
		db:       db,
		engine:   engine,
		cfg:      cfg,
		logger:   logger,
		workers:  DefaultProcessWorkers,
		attempts: DefaultMaxAttempts,
		backoff:  DefaultRetryBackoff,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type ProcessResult struct {
	EmailID     int
	Status      string
	RunIDs      []string
	Attachments int
	ValidRows   int
	// Err is the last failure of an email that ran out of attempts.
	Err error
}

func (s *ProcessingService) ProcessByProviderMessageID(provider, messageID string) (ProcessResult, error) {
	email, err := s.db.MustEmailByProviderMessageID(provider, messageID)
	if err != nil {
		return ProcessResult{}, err
	}
	return s.ProcessEmail(email)
}

// ProcessPending handles up to limit fetched emails, optionally filtered by
// provider, on a bounded set of workers. An email that keeps failing is
// marked failed and reported through its result; it does not stop the batch.
// Results keep the order of the pending list.
func (s *ProcessingService) ProcessPending(ctx context.Context, limit int, provider string) ([]ProcessResult, error) {
	pending, err := s.db.ListEmailsByStatus(StatusFetched, limit)
	if err != nil {
		return nil, err
	}
	var todo []internal.EmailRow
	for _, email := range pending {
		if provider != "" && email.Provider != provider {
			continue
		}
		todo = append(todo, email)
	}

	out := make([]ProcessResult, len(todo))
	var g errgroup.Group
	g.SetLimit(s.workers)
	for i, email := range todo {
		i, email := i, email
		g.Go(func() error {
			res, err := s.processWithRetry(ctx, email)
			out[i] = res
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return out, err
	}
	return out, nil
}

// processWithRetry only returns an error when ctx ends. Exhausted retries
// mark the email failed.
func (s *ProcessingService) processWithRetry(ctx context.Context, email internal.EmailRow) (ProcessResult, error) {
	log := logging.WithFields(s.logger, "email_id", email.ID, "provider", email.Provider)
	var lastErr error
	for attempt := 1; attempt <= s.attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return ProcessResult{EmailID: email.ID}, err
		}
		res, err := s.ProcessEmail(email)
		if err == nil {
			return res, nil
		}
		lastErr = err
		log.Warn("processing attempt failed", "attempt", attempt, "err", err)
		if attempt == s.attempts {
			break
		}

		timer := time.NewTimer(s.backoff << (attempt - 1))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ProcessResult{EmailID: email.ID}, ctx.Err()
		case <-timer.C:
		}
	}

	log.Error("email failed after retries", "attempts", s.attempts, "err", lastErr)
	if err := s.db.ClearEmailRuns(email.ID); err != nil {
		log.Warn("clear partial runs", "err", err)
	}
	if err := s.db.UpdateEmailStatus(email.ID, StatusFailed); err != nil {
		log.Warn("mark email failed", "err", err)
	}
	return ProcessResult{EmailID: email.ID, Status: StatusFailed, Err: lastErr}, nil
}

func (s *ProcessingService) ProcessEmail(email internal.EmailRow) (ProcessResult, error) {
	log := logging.WithFields(s.logger, "email_id", email.ID, "provider", email.Provider)
	res := ProcessResult{EmailID: email.ID}

	raw, err := os.ReadFile(email.RawRef)
	if err != nil {
		return res, err
	}

	msg, err := ReadPricelistEmail(raw)
	if err != nil {
		log.Warn("unreadable email", "err", err)
		res.Status = StatusFailed
		return res, s.db.UpdateEmailStatus(email.ID, StatusFailed)
	}

	detect := DetectPricelistEmail(firstNonEmpty(msg.Subject, email.Subject), msg.Text, msg.AttachmentNames())
	if err := s.db.ClearEmailRuns(email.ID); err != nil {
		return res, err
	}
	if !detect.IsPricelist {
		log.Info("email skipped", "score", detect.Score, "reason", detect.Reason)
		res.Status = StatusSkipped
		return res, s.db.UpdateEmailStatus(email.ID, StatusSkipped)
	}

	cfg := s.cfg
	if cfg.SupplierID == "" {
		cfg.SupplierID = SenderDomain(firstNonEmpty(msg.From, email.Sender))
	}

	emailID := email.ID
	for _, att := range msg.Attachments {
		if !IsSupported(att.Name) {
			continue
		}
		res.Attachments++

		result := s.engine.Extract(att.Content, att.Name, cfg)
		runID, err := s.db.InsertRun(result, &emailID, att.Name)
		if err != nil {
			return res, fmt.Errorf("store run for %s: %w", att.Name, err)
		}
		res.RunIDs = append(res.RunIDs, runID)
		res.ValidRows += result.Metadata.ValidRows
		log.Info("attachment extracted",
			"run_id", runID,
			"attachment", att.Name,
			"success", result.Success,
			"rows", result.Metadata.TotalRows,
			"valid", result.Metadata.ValidRows,
			"confidence", result.Metadata.ExtractionConfidence,
		)
	}

	res.Status = StatusProcessed
	if err := s.db.UpdateEmailStatus(email.ID, StatusProcessed); err != nil {
		return res, err
	}
	return res, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
