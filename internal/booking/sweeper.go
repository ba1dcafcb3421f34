package booking

import (
	"context"
	"time"

	"github.com/clinivo/booking-api/pkg/logging"
)

// staleExpirer is the service subset the sweeper drives.
type staleExpirer interface {
	ExpireStale(ctx context.Context) (int, error)
}

// Sweeper periodically expires lapsed booking requests. It is a
// cleanliness mechanism: correctness comes from the lazy expiry check on
// every read, which stays in place regardless.
type Sweeper struct {
	svc      staleExpirer
	interval time.Duration
	logger   *logging.Logger
}

// NewSweeper creates a sweeper ticking at the given interval.
func NewSweeper(svc staleExpirer, interval time.Duration, logger *logging.Logger) *Sweeper {
	if svc == nil {
		panic("booking: sweeper requires a service")
	}
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Sweeper{svc: svc, interval: interval, logger: logger}
}

// Start blocks, sweeping until ctx is cancelled.
func (s *Sweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("expiry sweeper started", "interval", s.interval.String())

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("expiry sweeper stopped")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Sweeper) tick(ctx context.Context) {
	expired, err := s.svc.ExpireStale(ctx)
	if err != nil {
		s.logger.Error("expiry sweep failed", "error", err)
		return
	}
	if expired > 0 {
		s.logger.Info("expired stale booking requests", "count", expired)
	}
}
