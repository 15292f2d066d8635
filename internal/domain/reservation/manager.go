package reservation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinicbook/slotengine/internal/domain/appointment"
	"github.com/clinicbook/slotengine/internal/domain/servicepolicy"
	"github.com/clinicbook/slotengine/internal/domain/slot"
	"github.com/clinicbook/slotengine/internal/platform/audit"
	"github.com/clinicbook/slotengine/internal/platform/clock"
	"github.com/clinicbook/slotengine/internal/platform/db"
)

const (
	DefaultHold = 5 * time.Minute
	MaxHold     = 30 * time.Minute
)

// AppointmentBooker creates and cancels the durable appointment behind a
// confirmed slot. Calls are made inside the manager's atomic unit.
type AppointmentBooker interface {
	Book(ctx context.Context, a *appointment.Appointment) error
	Cancel(ctx context.Context, id uuid.UUID, reason string, at time.Time) (*appointment.Appointment, error)
}

type PolicySource interface {
	Lookup(ctx context.Context, serviceID, clinicID uuid.UUID) (*servicepolicy.ServicePolicy, error)
}

// ExpiryScheduler arranges for Expire to run at a hold's deadline.
type ExpiryScheduler interface {
	ScheduleExpiry(ctx context.Context, slotID uuid.UUID, version int, at time.Time) error
}

type Config struct {
	HoldDefault time.Duration
	HoldMax     time.Duration
}

type HoldResult struct {
	SlotID    uuid.UUID `json:"slot_id"`
	Version   int       `json:"version"`
	HeldUntil time.Time `json:"held_until"`
}

type CancelResult struct {
	SlotID     uuid.UUID `json:"slot_id"`
	Version    int       `json:"version"`
	Generation int       `json:"generation"`
}

// Manager owns the slot reservation state machine. Every operation reads
// the slot, validates and writes it back with a version compare-and-swap
// inside one atomic unit.
type Manager struct {
	tx       db.TxRunner
	slots    slot.Repository
	booker   AppointmentBooker
	policies PolicySource
	events   audit.Sink
	expiry   ExpiryScheduler
	clk      clock.Clock
	cfg      Config
	logger   zerolog.Logger
}

func NewManager(tx db.TxRunner, slots slot.Repository, booker AppointmentBooker, policies PolicySource,
	events audit.Sink, clk clock.Clock, cfg Config, logger zerolog.Logger) *Manager {
	if cfg.HoldDefault <= 0 {
		cfg.HoldDefault = DefaultHold
	}
	if cfg.HoldMax <= 0 {
		cfg.HoldMax = MaxHold
	}
	if cfg.HoldDefault > cfg.HoldMax {
		cfg.HoldDefault = cfg.HoldMax
	}
	return &Manager{
		tx:       tx,
		slots:    slots,
		booker:   booker,
		policies: policies,
		events:   events,
		clk:      clk,
		cfg:      cfg,
		logger:   logger.With().Str("component", "reservation").Logger(),
	}
}

// WithExpiryScheduler enables precise expiry scheduling after each hold.
func (m *Manager) WithExpiryScheduler(s ExpiryScheduler) *Manager {
	m.expiry = s
	return m
}

func (m *Manager) holdDuration(seconds int) time.Duration {
	if seconds <= 0 {
		return m.cfg.HoldDefault
	}
	d := time.Duration(seconds) * time.Second
	if d > m.cfg.HoldMax {
		return m.cfg.HoldMax
	}
	return d
}

func (m *Manager) load(ctx context.Context, id uuid.UUID) (*slot.Slot, error) {
	s, err := m.slots.Get(ctx, id)
	if errors.Is(err, slot.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load slot %s: %w", id, err)
	}
	return s, nil
}

// swap writes s back if the stored version is still expected. A lost race
// is reported with the version the winner left behind.
func (m *Manager) swap(ctx context.Context, s *slot.Slot, expected int) error {
	err := m.slots.CompareAndSwap(ctx, s, expected)
	if !errors.Is(err, slot.ErrStaleVersion) {
		return err
	}
	cur, getErr := m.load(ctx, s.ID)
	if getErr != nil {
		return getErr
	}
	return &VersionConflictError{Current: cur.Version}
}

// Hold places or extends a time-bounded claim for clientID. Callers resolve
// a non-empty clientID before calling.
func (m *Manager) Hold(ctx context.Context, slotID uuid.UUID, clientID string, expectedVersion, holdSeconds int) (HoldResult, error) {
	d := m.holdDuration(holdSeconds)

	var (
		res      HoldResult
		takeover bool
	)
	err := m.tx.InTx(ctx, func(ctx context.Context) error {
		s, err := m.load(ctx, slotID)
		if err != nil {
			return err
		}
		if s.Version != expectedVersion {
			return &VersionConflictError{Current: s.Version}
		}
		if !s.Available {
			return ErrUnavailable
		}
		now := m.clk.Now()
		if s.IsHeld(now) && !s.HeldByClient(clientID) {
			return &AlreadyHeldError{HeldUntil: *s.HeldUntil}
		}
		takeover = s.HoldLapsed(now) && !s.HeldByClient(clientID)

		until := now.Add(d)
		s.SetHold(clientID, until)
		if err := m.swap(ctx, s, expectedVersion); err != nil {
			return err
		}
		res = HoldResult{SlotID: s.ID, Version: s.Version, HeldUntil: until}
		return nil
	})
	if err != nil {
		return HoldResult{}, err
	}

	detail := ""
	if takeover {
		detail = "lapsed hold taken over"
	}
	m.emit(ctx, audit.Event{
		Type: audit.SlotHeld, SlotID: slotID, ClientID: clientID, Actor: clientID,
		Version: res.Version, HeldUntil: &res.HeldUntil, Detail: detail,
	})
	if m.expiry != nil {
		if err := m.expiry.ScheduleExpiry(ctx, slotID, res.Version, res.HeldUntil); err != nil {
			m.logger.Warn().Err(err).Str("slot_id", slotID.String()).Msg("schedule hold expiry")
		}
	}
	m.logger.Debug().Str("slot_id", slotID.String()).Str("client_id", clientID).
		Int("version", res.Version).Time("held_until", res.HeldUntil).Msg("slot held")
	return res, nil
}

// Confirm turns clientID's live hold into an appointment. A lapsed hold is
// cleared and committed before ErrReservationExpired is returned.
func (m *Manager) Confirm(ctx context.Context, slotID uuid.UUID, clientID string, payload appointment.Payload) (uuid.UUID, error) {
	var (
		apptID  uuid.UUID
		expired bool
		version int
	)
	err := m.tx.InTx(ctx, func(ctx context.Context) error {
		s, err := m.load(ctx, slotID)
		if err != nil {
			return err
		}
		if !s.Available || !s.HeldByClient(clientID) {
			return ErrInvalidReservation
		}
		expected := s.Version
		now := m.clk.Now()

		if s.HoldLapsed(now) {
			s.ClearHold()
			if err := m.swap(ctx, s, expected); err != nil {
				return err
			}
			expired, version = true, s.Version
			return nil
		}

		a := &appointment.Appointment{
			SlotID:         s.ID,
			SlotGeneration: s.Generation,
			ProfessionalID: s.ProfessionalID,
			ServiceID:      s.ServiceID,
			ClinicID:       s.ClinicID,
			ClientID:       clientID,
			PatientID:      payload.PatientID,
			Reason:         payload.Reason,
			Notes:          payload.Notes,
			Status:         appointment.StatusConfirmed,
			StartAt:        s.StartAt,
			EndAt:          s.EndAt(),
		}
		if err := m.booker.Book(ctx, a); err != nil {
			// Another confirm of this hold committed first.
			if errors.Is(err, appointment.ErrSlotTaken) {
				return ErrInvalidReservation
			}
			return fmt.Errorf("book appointment: %w", err)
		}

		s.Available = false
		s.AppointmentID = &a.ID
		s.ClearHold()
		if err := m.swap(ctx, s, expected); err != nil {
			return err
		}
		apptID, version = a.ID, s.Version
		return nil
	})
	if err != nil {
		return uuid.Nil, err
	}

	if expired {
		m.emit(ctx, audit.Event{
			Type: audit.SlotExpired, SlotID: slotID, ClientID: clientID, Actor: clientID,
			Version: version, Detail: "expired at confirm",
		})
		m.logger.Warn().Str("slot_id", slotID.String()).Str("client_id", clientID).Msg("confirm after hold expiry")
		return uuid.Nil, ErrReservationExpired
	}

	m.emit(ctx, audit.Event{
		Type: audit.SlotConfirmed, SlotID: slotID, ClientID: clientID, Actor: clientID,
		AppointmentID: &apptID, Version: version,
	})
	m.logger.Debug().Str("slot_id", slotID.String()).Str("appointment_id", apptID.String()).Msg("slot confirmed")
	return apptID, nil
}

// Release drops clientID's hold.
func (m *Manager) Release(ctx context.Context, slotID uuid.UUID, clientID string) (int, error) {
	var version int
	err := m.tx.InTx(ctx, func(ctx context.Context) error {
		s, err := m.load(ctx, slotID)
		if err != nil {
			return err
		}
		if !s.HeldByClient(clientID) {
			return ErrInvalidReservation
		}
		expected := s.Version
		s.ClearHold()
		if err := m.swap(ctx, s, expected); err != nil {
			return err
		}
		version = s.Version
		return nil
	})
	if err != nil {
		return 0, err
	}
	m.emit(ctx, audit.Event{Type: audit.SlotReleased, SlotID: slotID, ClientID: clientID, Actor: clientID, Version: version})
	return version, nil
}

// Expire clears a lapsed hold. It reports false when there was nothing to
// clear.
func (m *Manager) Expire(ctx context.Context, slotID uuid.UUID) (bool, error) {
	var (
		expired bool
		holder  string
		version int
	)
	err := m.tx.InTx(ctx, func(ctx context.Context) error {
		s, err := m.load(ctx, slotID)
		if err != nil {
			return err
		}
		if !s.Available || !s.HoldLapsed(m.clk.Now()) {
			return nil
		}
		holder = *s.HeldBy
		expected := s.Version
		s.ClearHold()
		if err := m.swap(ctx, s, expected); err != nil {
			return err
		}
		expired, version = true, s.Version
		return nil
	})
	if err != nil || !expired {
		return false, err
	}
	m.emit(ctx, audit.Event{Type: audit.SlotExpired, SlotID: slotID, ClientID: holder, Actor: "system", Version: version})
	return true, nil
}

// Cancel cancels the appointment that consumed the slot and re-opens the
// slot as a new generation.
func (m *Manager) Cancel(ctx context.Context, slotID, appointmentID uuid.UUID, reason, actor string) (CancelResult, error) {
	var res CancelResult
	err := m.tx.InTx(ctx, func(ctx context.Context) error {
		s, err := m.load(ctx, slotID)
		if err != nil {
			return err
		}
		if s.Available || s.AppointmentID == nil || *s.AppointmentID != appointmentID {
			return ErrInvalidReservation
		}
		now := m.clk.Now()
		policy, err := m.policies.Lookup(ctx, s.ServiceID, s.ClinicID)
		if err != nil {
			return err
		}
		if policy != nil && policy.CancellationNoticeHours > 0 &&
			now.Add(time.Duration(policy.CancellationNoticeHours)*time.Hour).After(s.StartAt) {
			return ErrCancellationWindow
		}
		if _, err := m.booker.Cancel(ctx, appointmentID, reason, now); err != nil {
			if errors.Is(err, appointment.ErrNotActive) || errors.Is(err, appointment.ErrNotFound) {
				return ErrInvalidReservation
			}
			return err
		}

		expected := s.Version
		s.Available = true
		s.AppointmentID = nil
		s.Generation++
		if err := m.swap(ctx, s, expected); err != nil {
			return err
		}
		res = CancelResult{SlotID: s.ID, Version: s.Version, Generation: s.Generation}
		return nil
	})
	if err != nil {
		return CancelResult{}, err
	}
	m.emit(ctx, audit.Event{
		Type: audit.SlotReopened, SlotID: slotID, Actor: actor, AppointmentID: &appointmentID,
		Version: res.Version, Detail: reason,
	})
	return res, nil
}

func (m *Manager) emit(ctx context.Context, e audit.Event) {
	if m.events == nil {
		return
	}
	if err := m.events.Record(context.WithoutCancel(ctx), e); err != nil {
		m.logger.Error().Err(err).Str("event", string(e.Type)).Str("slot_id", e.SlotID.String()).Msg("record reservation event")
	}
}
