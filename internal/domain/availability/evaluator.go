// Package availability decides whether a proposed appointment window is
// legal for a professional and service. It reads schedule rules, closures,
// service policies and slot occupancy and never writes.
package availability

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinicbook/slotengine/internal/domain/closure"
	"github.com/clinicbook/slotengine/internal/domain/schedulerule"
	"github.com/clinicbook/slotengine/internal/domain/servicepolicy"
	"github.com/clinicbook/slotengine/internal/domain/slot"
	"github.com/clinicbook/slotengine/internal/platform/clock"
	"github.com/clinicbook/slotengine/pkg/civil"
)

type Reason string

const (
	ReasonOutsideHours     Reason = "outside_hours"
	ReasonOnBreak          Reason = "on_break"
	ReasonHoliday          Reason = "holiday"
	ReasonTooSoon          Reason = "too_soon"
	ReasonTooFar           Reason = "too_far"
	ReasonCapacityExceeded Reason = "capacity_exceeded"
)

var ErrInvalidWindow = errors.New("proposed end must be after start")

type Request struct {
	ProfessionalID uuid.UUID
	ServiceID      uuid.UUID
	ClinicID       uuid.UUID
	Start          time.Time
	End            time.Time
}

type Decision struct {
	OK     bool   `json:"ok"`
	Reason Reason `json:"reason,omitempty"`
}

func allow() Decision { return Decision{OK: true} }
func deny(r Reason) Decision { return Decision{Reason: r} }

type RuleSource interface {
	Get(ctx context.Context, professionalID uuid.UUID, weekday time.Weekday) (*schedulerule.ScheduleRule, error)
}

type ClosureSource interface {
	Blocking(ctx context.Context, clinicID, professionalID uuid.UUID, start, end time.Time, loc *time.Location) (*closure.ClosurePeriod, error)
}

type PolicySource interface {
	Lookup(ctx context.Context, serviceID, clinicID uuid.UUID) (*servicepolicy.ServicePolicy, error)
}

type OccupancySource interface {
	ListOccupied(ctx context.Context, professionalID uuid.UUID, from, to, now time.Time) ([]*slot.Slot, error)
}

type Evaluator struct {
	rules    RuleSource
	closures ClosureSource
	policies PolicySource
	slots    OccupancySource
	clock    clock.Clock
	loc      *time.Location
	logger   zerolog.Logger
}

func NewEvaluator(rules RuleSource, closures ClosureSource, policies PolicySource, slots OccupancySource,
	clk clock.Clock, loc *time.Location, logger zerolog.Logger) *Evaluator {
	return &Evaluator{
		rules:    rules,
		closures: closures,
		policies: policies,
		slots:    slots,
		clock:    clk,
		loc:      loc,
		logger:   logger,
	}
}

// IsBookable runs the notice, working-hours, closure and capacity checks in
// that order and reports the first that fails. Errors are returned only for
// malformed windows and store failures.
func (e *Evaluator) IsBookable(ctx context.Context, req Request) (Decision, error) {
	if !req.Start.Before(req.End) {
		return Decision{}, ErrInvalidWindow
	}
	now := e.clock.Now()
	day := civil.DateOf(req.Start.In(e.loc))

	rule, err := e.rules.Get(ctx, req.ProfessionalID, day.Weekday())
	if errors.Is(err, schedulerule.ErrNotFound) {
		rule = nil
	} else if err != nil {
		return Decision{}, fmt.Errorf("load schedule rule: %w", err)
	}
	policy, err := e.policies.Lookup(ctx, req.ServiceID, req.ClinicID)
	if err != nil {
		return Decision{}, err
	}

	d, err := e.evaluate(ctx, req, now, day, rule, policy)
	if err != nil {
		return Decision{}, err
	}
	e.logger.Debug().
		Str("professional_id", req.ProfessionalID.String()).
		Str("service_id", req.ServiceID.String()).
		Time("start", req.Start).
		Bool("ok", d.OK).
		Str("reason", string(d.Reason)).
		Msg("availability evaluated")
	return d, nil
}

func (e *Evaluator) evaluate(ctx context.Context, req Request, now time.Time, day civil.Date,
	rule *schedulerule.ScheduleRule, policy *servicepolicy.ServicePolicy) (Decision, error) {
	minNotice, maxAdvance := noticeBounds(rule, policy)
	if req.Start.Before(now.Add(time.Duration(minNotice) * time.Hour)) {
		return deny(ReasonTooSoon), nil
	}
	if maxAdvance > 0 && req.Start.After(now.AddDate(0, 0, maxAdvance)) {
		return deny(ReasonTooFar), nil
	}

	if rule == nil || !rule.IsAvailable {
		return deny(ReasonOutsideHours), nil
	}
	from, to := req.Start, req.End
	if policy != nil {
		from = from.Add(-policy.PreBuffer())
		to = to.Add(policy.PostBuffer())
	}
	startMin := int(math.Floor(civil.WallMinutes(from, day, e.loc)))
	endMin := int(math.Ceil(civil.WallMinutes(to, day, e.loc)))
	if !rule.Covers(startMin, endMin) {
		return deny(ReasonOutsideHours), nil
	}
	if rule.OverlapsBreak(startMin, endMin) {
		return deny(ReasonOnBreak), nil
	}

	blocking, err := e.closures.Blocking(ctx, req.ClinicID, req.ProfessionalID, from, to, e.loc)
	if err != nil {
		return Decision{}, err
	}
	if blocking != nil {
		return deny(ReasonHoliday), nil
	}

	occupied, err := e.slots.ListOccupied(ctx, req.ProfessionalID, from, to, now)
	if err != nil {
		return Decision{}, fmt.Errorf("list occupied slots: %w", err)
	}
	if rule.MaxAppointmentsPerHour > 0 && len(occupied) >= rule.MaxAppointmentsPerHour {
		return deny(ReasonCapacityExceeded), nil
	}
	sameService := 0
	for _, s := range occupied {
		if s.ServiceID == req.ServiceID {
			sameService++
		}
	}
	if sameService >= policy.SimultaneousLimit() {
		return deny(ReasonCapacityExceeded), nil
	}
	return allow(), nil
}

// noticeBounds combines rule and policy windows: the longer minimum notice
// and the shorter positive maximum advance win. A zero advance means
// unbounded.
func noticeBounds(rule *schedulerule.ScheduleRule, policy *servicepolicy.ServicePolicy) (minNoticeHours, maxAdvanceDays int) {
	if rule != nil {
		minNoticeHours = rule.MinNoticeHours
		maxAdvanceDays = rule.MaxAdvanceDays
	}
	if policy != nil {
		if policy.MinNoticeHours > minNoticeHours {
			minNoticeHours = policy.MinNoticeHours
		}
		if policy.MaxAdvanceDays > 0 && (maxAdvanceDays == 0 || policy.MaxAdvanceDays < maxAdvanceDays) {
			maxAdvanceDays = policy.MaxAdvanceDays
		}
	}
	return minNoticeHours, maxAdvanceDays
}

// Screen evaluates an existing slot's window.
func (e *Evaluator) Screen(ctx context.Context, s *slot.Slot) (bool, string, error) {
	d, err := e.IsBookable(ctx, Request{
		ProfessionalID: s.ProfessionalID,
		ServiceID:      s.ServiceID,
		ClinicID:       s.ClinicID,
		Start:          s.StartAt,
		End:            s.EndAt(),
	})
	if err != nil {
		return false, "", err
	}
	return d.OK, string(d.Reason), nil
}
