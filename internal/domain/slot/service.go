package slot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinicbook/slotengine/internal/domain/schedulerule"
	"github.com/clinicbook/slotengine/internal/platform/clock"
	"github.com/clinicbook/slotengine/pkg/civil"
)

// MaxGenerateDays bounds one Generate call.
const MaxGenerateDays = 92

// RuleSource reads weekly schedule rules.
type RuleSource interface {
	Get(ctx context.Context, professionalID uuid.UUID, weekday time.Weekday) (*schedulerule.ScheduleRule, error)
}

type Service struct {
	repo   Repository
	rules  RuleSource
	clock  clock.Clock
	loc    *time.Location
	logger zerolog.Logger
}

func NewService(repo Repository, rules RuleSource, clk clock.Clock, loc *time.Location, logger zerolog.Logger) *Service {
	return &Service{repo: repo, rules: rules, clock: clk, loc: loc, logger: logger}
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Slot, error) {
	return s.repo.Get(ctx, id)
}

// Create stores a single open slot at generation 1, version 1.
func (s *Service) Create(ctx context.Context, sl *Slot) error {
	sl.Available = true
	sl.Version = 1
	sl.Generation = 1
	sl.HeldBy, sl.HeldUntil, sl.AppointmentID = nil, nil, nil
	sl.StartAt = sl.StartAt.UTC()
	if err := sl.Validate(); err != nil {
		return err
	}
	return s.repo.Create(ctx, sl)
}

// ListOpen lists available slots that carry no live hold.
func (s *Service) ListOpen(ctx context.Context, f Filter) ([]*Slot, int, error) {
	return s.repo.ListOpen(ctx, f, s.clock.Now())
}

type GenerateRequest struct {
	ProfessionalID  uuid.UUID  `json:"professional_id"`
	ServiceID       uuid.UUID  `json:"service_id"`
	ClinicID        uuid.UUID  `json:"clinic_id"`
	From            civil.Date `json:"from"`
	To              civil.Date `json:"to"`
	DurationMinutes int        `json:"duration_minutes"`
}

type GenerateResult struct {
	Created []*Slot `json:"created"`
	Skipped int     `json:"skipped"`
}

// Generate materializes slots from the professional's weekly rules for each
// date in [From, To]. Each working day is walked from start_time in steps
// of duration plus the rule's buffer; a slot that would overlap the break is
// moved to the break's end. Slots already present or starting in the past
// are skipped.
func (s *Service) Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
	if req.ProfessionalID == uuid.Nil || req.ServiceID == uuid.Nil || req.ClinicID == uuid.Nil {
		return nil, fmt.Errorf("professional_id, service_id and clinic_id are required")
	}
	if req.DurationMinutes <= 0 {
		return nil, fmt.Errorf("duration_minutes must be positive")
	}
	if req.From.IsZero() || req.To.IsZero() || req.To.Before(req.From) {
		return nil, fmt.Errorf("from must be on or before to")
	}
	if req.To.DaysSince(req.From) >= MaxGenerateDays {
		return nil, fmt.Errorf("date range must not exceed %d days", MaxGenerateDays)
	}

	now := s.clock.Now()
	result := &GenerateResult{Created: []*Slot{}}
	for day := req.From; !day.After(req.To); day = day.AddDays(1) {
		rule, err := s.rules.Get(ctx, req.ProfessionalID, day.Weekday())
		if errors.Is(err, schedulerule.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("load schedule rule: %w", err)
		}
		if !rule.IsAvailable {
			continue
		}

		for _, start := range dayStarts(rule, req.DurationMinutes) {
			at := start.On(day, s.loc)
			if at.Before(now) {
				result.Skipped++
				continue
			}
			sl := &Slot{
				ProfessionalID:  req.ProfessionalID,
				ServiceID:       req.ServiceID,
				ClinicID:        req.ClinicID,
				StartAt:         at,
				DurationMinutes: req.DurationMinutes,
			}
			err := s.Create(ctx, sl)
			if errors.Is(err, ErrDuplicate) {
				result.Skipped++
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("create slot at %s: %w", at.Format(time.RFC3339), err)
			}
			result.Created = append(result.Created, sl)
		}
	}

	s.logger.Info().
		Str("professional_id", req.ProfessionalID.String()).
		Str("from", req.From.String()).
		Str("to", req.To.String()).
		Int("created", len(result.Created)).
		Int("skipped", result.Skipped).
		Msg("slots generated")
	return result, nil
}

// dayStarts returns the slot start times a rule yields for one day.
func dayStarts(rule *schedulerule.ScheduleRule, duration int) []civil.TimeOfDay {
	var starts []civil.TimeOfDay
	step := duration + rule.BufferMinutes
	t := rule.StartTime.Minutes()
	for t+duration <= rule.EndTime.Minutes() {
		if rule.OverlapsBreak(t, t+duration) {
			t = rule.BreakEnd.Minutes()
			continue
		}
		starts = append(starts, civil.TimeOfDay(t))
		t += step
	}
	return starts
}

// ListOccupied returns the professional's confirmed or actively held slots
// overlapping [from, to) as of now.
func (s *Service) ListOccupied(ctx context.Context, professionalID uuid.UUID, from, to, now time.Time) ([]*Slot, error) {
	return s.repo.ListOccupied(ctx, professionalID, from, to, now)
}
