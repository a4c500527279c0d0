// Package cleanup periodically evicts expired single-use entries: replay
// protection jti values and unclaimed STS tokens.
package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"
)

// Sweeper drops expired entries and reports how many were removed.
type Sweeper interface {
	Sweep() int
}

// CleanupResult maps each sweeper name to the entries it removed.
type CleanupResult map[string]int

// Total sums the removals across sweepers.
func (r CleanupResult) Total() int {
	n := 0
	for _, v := range r {
		n += v
	}
	return n
}

// CleanupService runs registered sweepers on an interval.
type CleanupService struct {
	sweepers map[string]Sweeper
	interval time.Duration
	logger   *slog.Logger
}

// CleanupOption configures CleanupService.
type CleanupOption func(*CleanupService)

// WithCleanupInterval overrides the cleanup interval when greater than zero.
func WithCleanupInterval(interval time.Duration) CleanupOption {
	return func(s *CleanupService) {
		if interval > 0 {
			s.interval = interval
		}
	}
}

// WithCleanupLogger overrides the logger used for cleanup reports.
func WithCleanupLogger(logger *slog.Logger) CleanupOption {
	return func(s *CleanupService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New constructs a CleanupService over named sweepers.
func New(sweepers map[string]Sweeper, opts ...CleanupOption) (*CleanupService, error) {
	if len(sweepers) == 0 {
		return nil, fmt.Errorf("at least one sweeper is required")
	}
	for name, s := range sweepers {
		if s == nil {
			return nil, fmt.Errorf("sweeper %q is nil", name)
		}
	}
	svc := &CleanupService{
		sweepers: sweepers,
		interval: 5 * time.Minute,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc, nil
}

// Start runs cleanup periodically until ctx is cancelled.
func (s *CleanupService) Start(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if res := s.RunOnce(); res.Total() > 0 {
				s.logger.InfoContext(ctx, "expired entries evicted", "evicted", map[string]int(res))
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// RunOnce sweeps every registered sweeper once, in name order.
func (s *CleanupService) RunOnce() CleanupResult {
	names := make([]string, 0, len(s.sweepers))
	for name := range s.sweepers {
		names = append(names, name)
	}
	sort.Strings(names)

	res := make(CleanupResult, len(names))
	for _, name := range names {
		res[name] = s.sweepers[name].Sweep()
	}
	return res
}
