package reservation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/clinicbook/slotengine/internal/domain/slot"
	"github.com/clinicbook/slotengine/internal/platform/clock"
)

const (
	DefaultSweepInterval = 60 * time.Second
	DefaultSweepBatch    = 500
)

// Locker keeps concurrent replicas from sweeping the same batch. It is an
// optimisation only.
type Locker interface {
	TryLock(ctx context.Context) (release func(context.Context) error, acquired bool, err error)
}

type SweepResult struct {
	Scanned int `json:"scanned"`
	Expired int `json:"expired"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

type Sweeper struct {
	mgr      *Manager
	slots    slot.Repository
	clk      clock.Clock
	interval time.Duration
	batch    int
	locker   Locker
	logger   zerolog.Logger
	cron     *cron.Cron
}

func NewSweeper(mgr *Manager, slots slot.Repository, clk clock.Clock, interval time.Duration, batch int, logger zerolog.Logger) *Sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	if batch <= 0 {
		batch = DefaultSweepBatch
	}
	return &Sweeper{
		mgr:      mgr,
		slots:    slots,
		clk:      clk,
		interval: interval,
		batch:    batch,
		logger:   logger.With().Str("component", "sweeper").Logger(),
	}
}

func (s *Sweeper) WithLocker(l Locker) *Sweeper {
	s.locker = l
	return s
}

// SweepOnce expires up to one batch of lapsed holds. Per-slot failures are
// logged and counted; the sweep carries on.
func (s *Sweeper) SweepOnce(ctx context.Context) (SweepResult, error) {
	var res SweepResult
	if s.locker != nil {
		release, ok, err := s.locker.TryLock(ctx)
		if err != nil {
			return res, err
		}
		if !ok {
			s.logger.Debug().Msg("sweep lock held elsewhere, skipping run")
			return res, nil
		}
		defer func() {
			if err := release(context.Background()); err != nil {
				s.logger.Warn().Err(err).Msg("failed to release sweep lock")
			}
		}()
	}

	lapsed, err := s.slots.ListExpiredHolds(ctx, s.clk.Now(), s.batch)
	if err != nil {
		return res, fmt.Errorf("list expired holds: %w", err)
	}
	res.Scanned = len(lapsed)

	for _, sl := range lapsed {
		expired, err := s.mgr.Expire(ctx, sl.ID)
		switch {
		case errors.Is(err, ErrVersionConflict):
			res.Skipped++
		case err != nil:
			res.Failed++
			s.logger.Error().Err(err).Str("slot_id", sl.ID.String()).Msg("expire hold")
		case expired:
			res.Expired++
		default:
			res.Skipped++
		}
	}
	return res, nil
}

// Start schedules SweepOnce on the configured interval. Overlapping runs
// are skipped.
func (s *Sweeper) Start(ctx context.Context) error {
	s.cron = cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	_, err := s.cron.AddFunc("@every "+s.interval.String(), func() {
		res, err := s.SweepOnce(ctx)
		if err != nil {
			s.logger.Error().Err(err).Msg("sweep failed")
			return
		}
		if res.Scanned > 0 {
			s.logger.Info().
				Int("scanned", res.Scanned).
				Int("expired", res.Expired).
				Int("skipped", res.Skipped).
				Int("failed", res.Failed).
				Msg("sweep completed")
		}
	})
	if err != nil {
		return fmt.Errorf("schedule sweeper: %w", err)
	}
	s.cron.Start()
	s.logger.Info().Dur("interval", s.interval).Msg("sweeper started")
	return nil
}

// Stop halts scheduling and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
}
