package service

import (
	"context"
	"time"

	"github.com/foodtrack/foodtrack-backend/pkg/logger"
)

// ExpiryScanner runs the expiry scan periodically so items cross into
// expired and expiring windows without waiting for the next mutation.
type ExpiryScanner struct {
	service  *InventoryService
	interval time.Duration
	logger   *logger.Logger
	cancel   context.CancelFunc
}

// NewExpiryScanner creates a new expiry scanner
func NewExpiryScanner(svc *InventoryService, interval time.Duration, log *logger.Logger) *ExpiryScanner {
	return &ExpiryScanner{
		service:  svc,
		interval: interval,
		logger:   log,
	}
}

// Start starts the scanner in a background goroutine. An initial scan
// runs immediately so a restarted service catches up right away.
func (s *ExpiryScanner) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)

	go func() {
		s.logger.Info().Dur("interval", s.interval).Msg("expiry scanner started")

		s.runOnce(ctx)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				s.logger.Info().Msg("expiry scanner stopped")
				return
			case <-ticker.C:
				s.runOnce(ctx)
			}
		}
	}()
}

// Stop stops the scanner goroutine
func (s *ExpiryScanner) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
}

func (s *ExpiryScanner) runOnce(ctx context.Context) {
	start := time.Now()

	report, err := s.service.RunExpiryScan(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("expiry scan cycle failed")
		return
	}

	s.logger.Info().
		Dur("duration", time.Since(start)).
		Int("marked_expired", report.MarkedExpired).
		Int("reclassified", report.Reclassified).
		Msg("expiry scan cycle completed")
}
