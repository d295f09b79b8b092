package service

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/sports-hall-booking/internal/auth"
	"github.com/iliyamo/sports-hall-booking/internal/events"
	"github.com/iliyamo/sports-hall-booking/internal/model"
)

const (
	hallID  = 1
	ownerID = 100
	userID  = 200
	otherID = 300
)

var (
	owner  = auth.Identity{UserID: ownerID, Role: model.RoleOwner}
	player = auth.Identity{UserID: userID, Role: model.RolePlayer}
	other  = auth.Identity{UserID: otherID, Role: model.RolePlayer}
)

func quietLog() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

type bookingFixture struct {
	store *memStore
	pub   *mockPublisher
	svc   *BookingService
	loc   *time.Location
	mu    sync.Mutex
	now   time.Time
}

func (f *bookingFixture) setNow(t time.Time) {
	f.mu.Lock()
	f.now = t
	f.mu.Unlock()
}

func (f *bookingFixture) clock() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// at returns hh:mm on 2030-03-04 in the hall zone.
func (f *bookingFixture) at(hh, mm int) time.Time {
	return time.Date(2030, time.March, 4, hh, mm, 0, 0, f.loc)
}

func newBookingFixture(t *testing.T) *bookingFixture {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Belgrade")
	require.NoError(t, err)

	f := &bookingFixture{store: newMemStore(), pub: &mockPublisher{}, loc: loc}
	f.now = time.Date(2030, time.March, 1, 8, 0, 0, 0, loc)
	f.store.nextID = 1000
	f.store.addHall(hallID, ownerID, "Arena", "3000.00")
	f.store.addWindow(hallID, f.at(9, 0), f.at(12, 0))
	f.pub.On("Publish", mock.Anything, mock.Anything).Return(nil)

	st := f.store
	f.svc = NewBookingService(memHalls{st}, memWindows{st}, memAppointments{st}, nil, f.pub, quietLog(),
		BookingConfig{Location: loc, SlotLength: time.Hour, CheckinLead: time.Hour}, f.clock)
	return f
}

func (f *bookingFixture) slots(t *testing.T) []string {
	t.Helper()
	res, err := f.svc.ListFreeSlots(context.Background(), auth.Guest, FreeSlotsQuery{HallID: hallID, Date: "2030-03-04"})
	require.NoError(t, err)
	out := make([]string, 0, len(res.Slots))
	for _, s := range res.Slots {
		out = append(out, s.Start.Format("15:04")+"-"+s.End.Format("15:04"))
	}
	return out
}

func (f *bookingFixture) book(t *testing.T, hh int, status model.AppointmentStatus) *model.Appointment {
	t.Helper()
	return f.store.addAppointment(model.Appointment{
		HallID: hallID, UserID: userID, Start: f.at(hh, 0), End: f.at(hh+1, 0), Status: status,
	})
}

func TestFreeSlotsWholeWindow(t *testing.T) {
	f := newBookingFixture(t)
	assert.Equal(t, []string{"09:00-10:00", "10:00-11:00", "11:00-12:00"}, f.slots(t))
}

func TestFreeSlotsSkipsApprovedAppointment(t *testing.T) {
	f := newBookingFixture(t)
	f.book(t, 10, model.StatusApproved)
	assert.Equal(t, []string{"09:00-10:00", "11:00-12:00"}, f.slots(t))
}

func TestFreeSlotsPendingBlocks(t *testing.T) {
	f := newBookingFixture(t)
	f.book(t, 9, model.StatusPending)
	f.book(t, 11, model.StatusRejected)
	assert.Equal(t, []string{"10:00-11:00", "11:00-12:00"}, f.slots(t))
}

func TestFreeSlotsIdempotent(t *testing.T) {
	f := newBookingFixture(t)
	f.book(t, 10, model.StatusPending)
	assert.Equal(t, f.slots(t), f.slots(t))
}

func TestFreeSlotsNoWindows(t *testing.T) {
	f := newBookingFixture(t)
	res, err := f.svc.ListFreeSlots(context.Background(), auth.Guest, FreeSlotsQuery{HallID: hallID, Date: "2030-03-05"})
	require.NoError(t, err)
	assert.NotNil(t, res.Slots)
	assert.Empty(t, res.Slots)
	assert.Empty(t, res.FreeIntervals)
}

func TestFreeSlotsErrors(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()

	_, err := f.svc.ListFreeSlots(ctx, auth.Guest, FreeSlotsQuery{HallID: hallID, Date: "04.03.2030"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.svc.ListFreeSlots(ctx, auth.Guest, FreeSlotsQuery{HallID: 99, Date: "2030-03-04"})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.svc.ListFreeSlots(ctx, player, FreeSlotsQuery{HallID: hallID, Date: "2030-03-04", History: true})
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestFreeSlotsHistoryForOwner(t *testing.T) {
	f := newBookingFixture(t)
	f.setNow(f.at(10, 30))
	assert.Equal(t, []string{"10:00-11:00", "11:00-12:00"}, f.slots(t))

	res, err := f.svc.ListFreeSlots(context.Background(), owner, FreeSlotsQuery{HallID: hallID, Date: "2030-03-04", History: true})
	require.NoError(t, err)
	assert.Len(t, res.Slots, 3)
}

func TestFreeSlotsWindowCrossingMidnight(t *testing.T) {
	f := newBookingFixture(t)
	f.store.addWindow(hallID, time.Date(2030, time.March, 3, 22, 0, 0, 0, f.loc), f.at(2, 0))

	list := func(date string) []string {
		res, err := f.svc.ListFreeSlots(context.Background(), auth.Guest, FreeSlotsQuery{HallID: hallID, Date: date})
		require.NoError(t, err)
		out := make([]string, 0, len(res.Slots))
		for _, s := range res.Slots {
			out = append(out, s.Start.Format("01-02 15:04"))
		}
		return out
	}

	assert.Equal(t, []string{"03-04 09:00", "03-04 10:00", "03-04 11:00"}, list("2030-03-04"))
	assert.Equal(t, []string{"03-03 22:00", "03-03 23:00", "03-04 00:00", "03-04 01:00"}, list("2030-03-03"))
}

func TestFreeSlotsReturnedInHallZone(t *testing.T) {
	f := newBookingFixture(t)
	res, err := f.svc.ListFreeSlots(context.Background(), auth.Guest, FreeSlotsQuery{HallID: hallID, Date: "2030-03-04"})
	require.NoError(t, err)
	require.NotEmpty(t, res.Slots)
	assert.Equal(t, f.loc, res.Slots[0].Start.Location())
	assert.Equal(t, "2030-03-04", res.Date)
}

func TestCreateAppointmentPending(t *testing.T) {
	f := newBookingFixture(t)
	a, err := f.svc.CreateAppointment(context.Background(), player, BookingRequest{HallID: hallID, Start: f.at(10, 0), End: f.at(11, 0)})
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, a.Status)
	assert.Equal(t, uint64(userID), a.UserID)
	assert.NotZero(t, a.ID)
	assert.Equal(t, []string{"09:00-10:00", "11:00-12:00"}, f.slots(t))

	f.pub.AssertCalled(t, "Publish", mock.Anything, mock.MatchedBy(func(ev events.AppointmentEvent) bool {
		return ev.Type == events.TypeAppointmentCreated && ev.AppointmentID == a.ID && ev.Status == "pending"
	}))
}

func TestCreateAppointmentConflicts(t *testing.T) {
	f := newBookingFixture(t)
	f.book(t, 10, model.StatusApproved)
	ctx := context.Background()

	_, err := f.svc.CreateAppointment(ctx, player, BookingRequest{HallID: hallID, Start: f.at(10, 0), End: f.at(11, 0)})
	assert.ErrorIs(t, err, ErrSlotUnavailable)

	_, err = f.svc.CreateAppointment(ctx, player, BookingRequest{HallID: hallID, Start: f.at(9, 30), End: f.at(10, 30)})
	assert.ErrorIs(t, err, ErrSlotUnavailable)

	_, err = f.svc.CreateAppointment(ctx, player, BookingRequest{HallID: hallID, Start: f.at(11, 0), End: f.at(13, 0)})
	assert.ErrorIs(t, err, ErrSlotUnavailable, "outside availability")

	// Adjacent ranges do not overlap.
	_, err = f.svc.CreateAppointment(ctx, player, BookingRequest{HallID: hallID, Start: f.at(11, 0), End: f.at(12, 0)})
	assert.NoError(t, err)
}

func TestCreateAppointmentInvalidInput(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateAppointment(ctx, player, BookingRequest{HallID: hallID, Start: f.at(11, 0), End: f.at(10, 0)})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.svc.CreateAppointment(ctx, player, BookingRequest{HallID: hallID, Start: f.at(10, 0), End: f.at(10, 0)})
	assert.ErrorIs(t, err, ErrInvalidInput)

	f.setNow(f.at(10, 30))
	_, err = f.svc.CreateAppointment(ctx, player, BookingRequest{HallID: hallID, Start: f.at(10, 0), End: f.at(11, 0)})
	assert.ErrorIs(t, err, ErrInvalidInput, "start in the past")

	_, err = f.svc.CreateAppointment(ctx, player, BookingRequest{HallID: 99, Start: f.at(11, 0), End: f.at(12, 0)})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.svc.CreateAppointment(ctx, auth.Guest, BookingRequest{HallID: hallID, Start: f.at(11, 0), End: f.at(12, 0)})
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestConcurrentBookingOnlyOneWins(t *testing.T) {
	f := newBookingFixture(t)
	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)
	start := make(chan struct{})
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			caller := auth.Identity{UserID: uint64(500 + i), Role: model.RolePlayer}
			_, errs[i] = f.svc.CreateAppointment(context.Background(), caller, BookingRequest{HallID: hallID, Start: f.at(10, 0), End: f.at(11, 0)})
		}(i)
	}
	close(start)
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, ErrSlotUnavailable)
	}
	assert.Equal(t, 1, ok)
}

func TestCreateAppointmentSlotLock(t *testing.T) {
	f := newBookingFixture(t)
	st := f.store
	cfg := BookingConfig{Location: f.loc, SlotLength: time.Hour, CheckinLead: time.Hour}
	ctx := context.Background()
	req := BookingRequest{HallID: hallID, Start: f.at(10, 0), End: f.at(11, 0)}

	busy := &stubLocker{grant: false}
	svc := NewBookingService(memHalls{st}, memWindows{st}, memAppointments{st}, busy, f.pub, quietLog(), cfg, f.clock)
	_, err := svc.CreateAppointment(ctx, player, req)
	assert.ErrorIs(t, err, ErrSlotUnavailable)

	down := &stubLocker{err: errors.New("redis down")}
	svc = NewBookingService(memHalls{st}, memWindows{st}, memAppointments{st}, down, f.pub, quietLog(), cfg, f.clock)
	_, err = svc.CreateAppointment(ctx, player, BookingRequest{HallID: hallID, Start: f.at(9, 0), End: f.at(10, 0)})
	assert.NoError(t, err, "a failing lock falls back to the database")

	free := &stubLocker{grant: true}
	svc = NewBookingService(memHalls{st}, memWindows{st}, memAppointments{st}, free, f.pub, quietLog(), cfg, f.clock)
	_, err = svc.CreateAppointment(ctx, player, req)
	assert.NoError(t, err)
	assert.Equal(t, 1, free.released)
}

func TestPublishFailureDoesNotFailBooking(t *testing.T) {
	f := newBookingFixture(t)
	pub := &mockPublisher{}
	pub.On("Publish", mock.Anything, mock.Anything).Return(errors.New("broker down"))
	st := f.store
	svc := NewBookingService(memHalls{st}, memWindows{st}, memAppointments{st}, nil, pub, quietLog(),
		BookingConfig{Location: f.loc}, f.clock)

	_, err := svc.CreateAppointment(context.Background(), player, BookingRequest{HallID: hallID, Start: f.at(10, 0), End: f.at(11, 0)})
	assert.NoError(t, err)
	pub.AssertNumberOfCalls(t, "Publish", 1)
}

func TestOwnerAction(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()
	a := f.book(t, 10, model.StatusPending)

	_, err := f.svc.OwnerAction(ctx, player, a.ID, "approve")
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.svc.OwnerAction(ctx, owner, a.ID, "accept")
	assert.ErrorIs(t, err, ErrInvalidInput)

	got, err := f.svc.OwnerAction(ctx, owner, a.ID, "approve")
	require.NoError(t, err)
	assert.Equal(t, model.StatusApproved, got.Status)
	assert.Equal(t, model.StatusApproved, f.store.appointment(a.ID).Status)

	_, err = f.svc.OwnerAction(ctx, owner, a.ID, "reject")
	assert.ErrorIs(t, err, ErrInvalidState)

	_, err = f.svc.OwnerAction(ctx, owner, 9999, "approve")
	assert.ErrorIs(t, err, ErrNotFound)

	f.pub.AssertCalled(t, "Publish", mock.Anything, mock.MatchedBy(func(ev events.AppointmentEvent) bool {
		return ev.Type == events.TypeAppointmentStatusChanged && ev.PreviousStatus == "pending" && ev.Status == "approved"
	}))
}

func TestRejectTwiceIsInvalidState(t *testing.T) {
	f := newBookingFixture(t)
	a := f.book(t, 10, model.StatusPending)
	_, err := f.svc.OwnerAction(context.Background(), owner, a.ID, "reject")
	require.NoError(t, err)
	_, err = f.svc.OwnerAction(context.Background(), owner, a.ID, "reject")
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestCancelPendingFreesSlot(t *testing.T) {
	f := newBookingFixture(t)
	a := f.book(t, 10, model.StatusPending)
	require.Equal(t, []string{"09:00-10:00", "11:00-12:00"}, f.slots(t))

	got, err := f.svc.Cancel(context.Background(), player, a.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, got.Status)
	assert.Equal(t, []string{"09:00-10:00", "10:00-11:00", "11:00-12:00"}, f.slots(t))
}

func TestCancelRules(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()

	a := f.book(t, 10, model.StatusApproved)
	_, err := f.svc.Cancel(ctx, owner, a.ID)
	assert.ErrorIs(t, err, ErrForbidden, "owner cannot cancel")
	_, err = f.svc.Cancel(ctx, other, a.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	rejected := f.book(t, 9, model.StatusRejected)
	_, err = f.svc.Cancel(ctx, player, rejected.ID)
	assert.ErrorIs(t, err, ErrInvalidState)

	checked := f.store.addAppointment(model.Appointment{
		HallID: hallID, UserID: userID, Start: f.at(11, 0), End: f.at(12, 0), Status: model.StatusApproved, CheckedIn: true,
	})
	_, err = f.svc.Cancel(ctx, player, checked.ID)
	assert.ErrorIs(t, err, ErrInvalidState)

	f.setNow(f.at(11, 0))
	_, err = f.svc.Cancel(ctx, player, a.ID)
	assert.ErrorIs(t, err, ErrExpired, "approved appointment already ended")

	f.setNow(f.at(10, 30))
	got, err := f.svc.Cancel(ctx, player, a.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, got.Status)

	_, err = f.svc.Cancel(ctx, player, a.ID)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestCheckInWindow(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()
	a := f.book(t, 10, model.StatusApproved)

	f.setNow(f.at(8, 0))
	_, err := f.svc.CheckIn(ctx, player, a.ID)
	assert.ErrorIs(t, err, ErrNotYetEligible)

	f.setNow(f.at(9, 30))
	got, err := f.svc.CheckIn(ctx, player, a.ID)
	require.NoError(t, err)
	assert.True(t, got.CheckedIn)
	assert.True(t, f.store.appointment(a.ID).CheckedIn)

	_, err = f.svc.CheckIn(ctx, player, a.ID)
	assert.ErrorIs(t, err, ErrInvalidState, "second check-in")
}

func TestCheckInBoundsInclusive(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()
	first := f.book(t, 10, model.StatusApproved)
	second := f.book(t, 11, model.StatusApproved)

	f.setNow(f.at(9, 0))
	_, err := f.svc.CheckIn(ctx, owner, first.ID)
	assert.NoError(t, err, "owner may check in at start-1h")

	f.setNow(f.at(12, 0))
	_, err = f.svc.CheckIn(ctx, player, second.ID)
	assert.NoError(t, err, "check-in allowed at end")
}

func TestCheckInRejections(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()

	pending := f.book(t, 9, model.StatusPending)
	f.setNow(f.at(9, 15))
	_, err := f.svc.CheckIn(ctx, player, pending.ID)
	assert.ErrorIs(t, err, ErrInvalidState)

	late := f.book(t, 10, model.StatusApproved)
	f.setNow(f.at(11, 1))
	_, err = f.svc.CheckIn(ctx, player, late.ID)
	assert.ErrorIs(t, err, ErrExpired)

	_, err = f.svc.CheckIn(ctx, other, late.ID)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestAppointmentListings(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()
	f.book(t, 9, model.StatusPending)
	f.book(t, 10, model.StatusApproved)

	mine, err := f.svc.MyAppointments(ctx, player)
	require.NoError(t, err)
	assert.Len(t, mine, 2)
	assert.Equal(t, "Arena", mine[0].HallName)

	pending, err := f.svc.PendingForHall(ctx, owner, hallID)
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	_, err = f.svc.PendingForHall(ctx, player, hallID)
	assert.ErrorIs(t, err, ErrForbidden)

	all, err := f.svc.OwnerAppointments(ctx, owner)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = f.svc.OwnerAppointments(ctx, player)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindSlotUnavailable, KindOf(fail(ErrSlotUnavailable, "x")))
	assert.Equal(t, KindNotYetEligible, KindOf(fail(ErrNotYetEligible, "x")))
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
}
