package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/sports-hall-booking/internal/auth"
	"github.com/iliyamo/sports-hall-booking/internal/events"
	"github.com/iliyamo/sports-hall-booking/internal/model"
	"github.com/iliyamo/sports-hall-booking/internal/repository"
	"github.com/iliyamo/sports-hall-booking/internal/slot"
)

// BookingConfig holds the scheduling rules of the booking service.
type BookingConfig struct {
	Location    *time.Location // hall-local zone for calendar dates
	SlotLength  time.Duration  // length of generated slots
	CheckinLead time.Duration  // check-in opens this long before start
}

func (c BookingConfig) withDefaults() BookingConfig {
	if c.Location == nil {
		c.Location = time.UTC
	}
	if c.SlotLength <= 0 {
		c.SlotLength = time.Hour
	}
	if c.CheckinLead < 0 {
		c.CheckinLead = 0
	}
	return c
}

// BookingService owns free-slot computation, the booking transaction and
// the appointment status lifecycle.
type BookingService struct {
	halls        HallStore
	windows      AvailabilityStore
	appointments AppointmentStore
	locker       SlotLocker
	publisher    events.Publisher
	log          logrus.FieldLogger
	cfg          BookingConfig
	clock        Clock
}

// NewBookingService wires the service.  locker and publisher may be nil.
func NewBookingService(halls HallStore, windows AvailabilityStore, appointments AppointmentStore,
	locker SlotLocker, publisher events.Publisher, log logrus.FieldLogger, cfg BookingConfig, clock Clock) *BookingService {
	if halls == nil || windows == nil || appointments == nil || log == nil {
		panic("nil dependency passed to NewBookingService")
	}
	return &BookingService{
		halls:        halls,
		windows:      windows,
		appointments: appointments,
		locker:       locker,
		publisher:    publisher,
		log:          log,
		cfg:          cfg.withDefaults(),
		clock:        clock,
	}
}

// FreeSlotsQuery selects the hall and hall-local date to list.  History
// keeps slots that already ended and is reserved to the hall owner.
type FreeSlotsQuery struct {
	HallID  uint64
	Date    string
	History bool
}

// FreeSlots is the free-slot listing of one hall and date.
type FreeSlots struct {
	HallID        uint64          `json:"hall_id"`
	Date          string          `json:"date"`
	Slots         []slot.Interval `json:"hour_slots"`
	FreeIntervals []slot.Interval `json:"free_intervals"`
}

// ListFreeSlots returns the bookable slots of a hall on a date.  It reads
// without locks; the booking transaction re-validates every request.
func (s *BookingService) ListFreeSlots(ctx context.Context, caller auth.Identity, q FreeSlotsQuery) (*FreeSlots, error) {
	day, err := slot.Day(q.Date, s.cfg.Location)
	if err != nil {
		return nil, fail(ErrInvalidInput, "%v", err)
	}
	hall, err := s.halls.GetByID(ctx, q.HallID)
	if err != nil {
		return nil, notFound(err, "hall", q.HallID)
	}
	if q.History && !caller.Is(hall.OwnerID) {
		return nil, fail(ErrForbidden, "only the hall owner can list past slots")
	}

	ws, err := s.windows.ListOverlapping(ctx, hall.ID, day.Start, day.End)
	if err != nil {
		return nil, err
	}
	// A window belongs to the date it starts on; one crossing midnight is
	// listed only under its first day.
	windows := make([]slot.Interval, 0, len(ws))
	for _, w := range intervalsOfWindows(ws) {
		if !w.Start.Before(day.Start) && w.Start.Before(day.End) {
			windows = append(windows, w)
		}
	}

	busy := []slot.Interval{}
	// Windows may extend past the day, so busy ranges are loaded for the
	// full span of the windows.
	if span, ok := slot.Span(windows); ok {
		as, err := s.appointments.ListBlocking(ctx, hall.ID, span.Start, span.End)
		if err != nil {
			return nil, err
		}
		busy = intervalsOfAppointments(as)
	}

	out := &FreeSlots{
		HallID:        hall.ID,
		Date:          day.Start.Format(slot.DateLayout),
		Slots:         slot.FreeSlots(windows, busy, s.cfg.SlotLength, s.clock.now(), q.History),
		FreeIntervals: slot.FreeIntervals(windows, busy),
	}
	for i := range out.Slots {
		out.Slots[i] = out.Slots[i].In(s.cfg.Location)
	}
	for i := range out.FreeIntervals {
		out.FreeIntervals[i] = out.FreeIntervals[i].In(s.cfg.Location)
	}
	return out, nil
}

// BookingRequest asks for [Start, End) in a hall.
type BookingRequest struct {
	HallID uint64
	Start  time.Time
	End    time.Time
}

// CreateAppointment books a range for the caller.  The range must lie in
// one availability window and must not overlap a pending or approved
// appointment; both are checked inside the booking transaction.  The new
// appointment is pending.
func (s *BookingService) CreateAppointment(ctx context.Context, caller auth.Identity, req BookingRequest) (*model.Appointment, error) {
	if !caller.Authenticated() {
		return nil, fail(ErrForbidden, "login required")
	}
	if !req.End.After(req.Start) {
		return nil, fail(ErrInvalidInput, "end must be after start")
	}
	now := s.clock.now()
	if req.Start.Before(now) {
		return nil, fail(ErrInvalidInput, "start is in the past")
	}
	if _, err := s.halls.GetByID(ctx, req.HallID); err != nil {
		return nil, notFound(err, "hall", req.HallID)
	}

	if s.locker != nil {
		release, ok, err := s.locker.Acquire(ctx, req.HallID, req.Start)
		switch {
		case err != nil:
			s.log.WithError(err).WithField("hall_id", req.HallID).Warn("slot lock unavailable, relying on database lock")
		case !ok:
			return nil, fail(ErrSlotUnavailable, "slot is being booked by another request")
		default:
			defer release()
		}
	}

	a := &model.Appointment{
		HallID:    req.HallID,
		UserID:    caller.UserID,
		Start:     req.Start.UTC(),
		End:       req.End.UTC(),
		Status:    model.StatusPending,
		CreatedAt: now.UTC(),
		UpdatedAt: now.UTC(),
	}
	if err := s.appointments.CreateIfFree(ctx, a); err != nil {
		switch {
		case errors.Is(err, repository.ErrSlotTaken):
			return nil, fail(ErrSlotUnavailable, "requested time overlaps an existing appointment")
		case errors.Is(err, repository.ErrOutsideAvailability):
			return nil, fail(ErrSlotUnavailable, "requested time is outside hall availability")
		}
		return nil, notFound(err, "hall", req.HallID)
	}

	s.log.WithFields(logrus.Fields{
		"appointment_id": a.ID,
		"hall_id":        a.HallID,
		"user_id":        a.UserID,
		"start":          a.Start,
	}).Info("appointment created")
	s.publish(ctx, events.TypeAppointmentCreated, *a, "")
	return a, nil
}

// Owner actions.
const (
	ActionApprove = "approve"
	ActionReject  = "reject"
)

// OwnerAction approves or rejects a pending appointment in one of the
// caller's halls.
func (s *BookingService) OwnerAction(ctx context.Context, caller auth.Identity, id uint64, action string) (*model.Appointment, error) {
	var target model.AppointmentStatus
	switch strings.ToLower(strings.TrimSpace(action)) {
	case ActionApprove:
		target = model.StatusApproved
	case ActionReject:
		target = model.StatusRejected
	default:
		return nil, fail(ErrInvalidInput, "action must be approve or reject")
	}

	a, hall, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !caller.Is(hall.OwnerID) {
		return nil, fail(ErrForbidden, "not your hall")
	}
	if a.Status != model.StatusPending {
		return nil, fail(ErrInvalidState, "appointment is %s, only pending appointments can be %sd", a.Status, strings.ToLower(action))
	}
	return s.transition(ctx, a, target)
}

// Cancel cancels the caller's own pending or approved appointment.  An
// approved appointment can only be cancelled before it ends and never
// after check-in.
func (s *BookingService) Cancel(ctx context.Context, caller auth.Identity, id uint64) (*model.Appointment, error) {
	a, _, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !caller.Is(a.UserID) {
		return nil, fail(ErrForbidden, "only the booking user can cancel")
	}
	if a.CheckedIn {
		return nil, fail(ErrInvalidState, "a checked-in appointment cannot be cancelled")
	}
	if !a.Status.CanTransition(model.StatusCancelled) {
		return nil, fail(ErrInvalidState, "appointment is already %s", a.Status)
	}
	if a.Status == model.StatusApproved && !s.clock.now().Before(a.End) {
		return nil, fail(ErrExpired, "appointment has already ended")
	}
	return s.transition(ctx, a, model.StatusCancelled)
}

// CheckIn marks an approved appointment as realized.  The booking user or
// the hall owner may check in from CheckinLead before start until end,
// both bounds inclusive.
func (s *BookingService) CheckIn(ctx context.Context, caller auth.Identity, id uint64) (*model.Appointment, error) {
	a, hall, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !caller.Is(a.UserID) && !caller.Is(hall.OwnerID) {
		return nil, fail(ErrForbidden, "no permission to check in")
	}
	if a.Status != model.StatusApproved {
		return nil, fail(ErrInvalidState, "appointment is %s, only approved appointments can be checked in", a.Status)
	}
	if a.CheckedIn {
		return nil, fail(ErrInvalidState, "appointment is already checked in")
	}
	now := s.clock.now()
	if opens := a.Start.Add(-s.cfg.CheckinLead); now.Before(opens) {
		return nil, fail(ErrNotYetEligible, "check-in opens at %s", opens.In(s.cfg.Location).Format(time.RFC3339))
	}
	if now.After(a.End) {
		return nil, fail(ErrExpired, "appointment ended at %s", a.End.In(s.cfg.Location).Format(time.RFC3339))
	}

	if err := s.appointments.MarkCheckedIn(ctx, a.ID); err != nil {
		if errors.Is(err, repository.ErrStatusChanged) {
			return nil, fail(ErrInvalidState, "appointment changed concurrently")
		}
		return nil, err
	}
	a.CheckedIn = true
	a.UpdatedAt = now.UTC()
	s.publish(ctx, events.TypeAppointmentCheckedIn, *a, a.Status)
	return a, nil
}

// MyAppointments lists the caller's appointments.
func (s *BookingService) MyAppointments(ctx context.Context, caller auth.Identity) ([]model.HallAppointment, error) {
	if !caller.Authenticated() {
		return nil, fail(ErrForbidden, "login required")
	}
	return s.appointments.ListByUser(ctx, caller.UserID)
}

// PendingForHall lists pending appointments of a hall owned by the caller.
func (s *BookingService) PendingForHall(ctx context.Context, caller auth.Identity, hallID uint64) ([]model.Appointment, error) {
	hall, err := s.halls.GetByID(ctx, hallID)
	if err != nil {
		return nil, notFound(err, "hall", hallID)
	}
	if !caller.Is(hall.OwnerID) {
		return nil, fail(ErrForbidden, "not your hall")
	}
	return s.appointments.ListByHallAndStatus(ctx, hallID, model.StatusPending)
}

// OwnerAppointments lists appointments across all of the caller's halls.
func (s *BookingService) OwnerAppointments(ctx context.Context, caller auth.Identity) ([]model.HallAppointment, error) {
	if !caller.IsOwner() {
		return nil, fail(ErrForbidden, "owner role required")
	}
	return s.appointments.ListByOwner(ctx, caller.UserID)
}

func (s *BookingService) load(ctx context.Context, id uint64) (*model.Appointment, *model.Hall, error) {
	a, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return nil, nil, notFound(err, "appointment", id)
	}
	hall, err := s.halls.GetByID(ctx, a.HallID)
	if err != nil {
		return nil, nil, notFound(err, "hall", a.HallID)
	}
	return a, hall, nil
}

func (s *BookingService) transition(ctx context.Context, a *model.Appointment, to model.AppointmentStatus) (*model.Appointment, error) {
	from := a.Status
	if err := s.appointments.UpdateStatus(ctx, a.ID, from, to); err != nil {
		if errors.Is(err, repository.ErrStatusChanged) {
			return nil, fail(ErrInvalidState, "appointment changed concurrently")
		}
		return nil, err
	}
	a.Status = to
	a.UpdatedAt = s.clock.now().UTC()
	s.log.WithFields(logrus.Fields{
		"appointment_id": a.ID,
		"from":           from,
		"to":             to,
	}).Info("appointment status changed")
	s.publish(ctx, events.TypeAppointmentStatusChanged, *a, from)
	return a, nil
}

// publish never fails the operation; a lost event is logged.
func (s *BookingService) publish(ctx context.Context, typ string, a model.Appointment, prev model.AppointmentStatus) {
	if s.publisher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	ev := events.NewAppointmentEvent(typ, a, prev, s.clock.now())
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"event":          typ,
			"appointment_id": a.ID,
		}).Warn("publish appointment event failed")
	}
}

func notFound(err error, what string, id uint64) error {
	if errors.Is(err, repository.ErrNotFound) {
		return fail(ErrNotFound, "%s %d not found", what, id)
	}
	return err
}
