package booking

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"agenda-backend/models"
	"agenda-backend/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	monday  = time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC)
	tuesday = time.Date(2025, time.March, 11, 0, 0, 0, 0, time.UTC)
	weds    = time.Date(2025, time.March, 12, 0, 0, 0, 0, time.UTC)
)

type fixture struct {
	store    *repository.Memory
	manager  *Manager
	company  models.Company
	service  models.Service
	customer models.Customer
	now      time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := repository.NewMemory()
	company := store.AddCompany(models.Company{Name: "Studio", Timezone: "UTC"})
	service := store.AddService(models.Service{
		CompanyID: company.ID,
		Name:      "Haircut",
		Price:     decimal.NewFromInt(50),
		Duration:  60,
		IsActive:  true,
		StartTime: "09:00",
		EndTime:   "17:00",
		Monday:    true, Tuesday: true, Wednesday: true, Thursday: true, Friday: true,
	})
	customer := models.Customer{CompanyID: company.ID, Name: "Ana", Phone: "+5511999990000"}
	if err := store.CreateCustomer(context.Background(), &customer); err != nil {
		t.Fatalf("seed customer: %v", err)
	}

	f := &fixture{
		store:    store,
		company:  company,
		service:  service,
		customer: customer,
		now:      monday.Add(8 * time.Hour),
	}
	f.manager = NewManager(store, func() time.Time { return f.now }, nil)
	return f
}

func (f *fixture) book(t *testing.T, date time.Time, start string) models.Appointment {
	t.Helper()
	appt, err := f.manager.Create(context.Background(), CreateRequest{
		CompanyID:  f.company.ID,
		CustomerID: f.customer.ID,
		ServiceID:  f.service.ID,
		Date:       date,
		StartTime:  start,
	})
	if err != nil {
		t.Fatalf("create %s %s: %v", date.Format("2006-01-02"), start, err)
	}
	return appt
}

func TestCreateDerivesEndTimeAndPrice(t *testing.T) {
	f := newFixture(t)
	appt := f.book(t, tuesday, "10:00")

	if appt.Status != models.StatusPending {
		t.Fatalf("expected PENDING, got %s", appt.Status)
	}
	if appt.EndTime != "11:00" {
		t.Fatalf("expected end 11:00, got %s", appt.EndTime)
	}
	if !appt.TotalValue.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("expected price 50, got %s", appt.TotalValue)
	}
	want := time.Date(2025, time.March, 11, 10, 0, 0, 0, time.UTC)
	if !appt.StartsAt.Equal(want) || !appt.EndsAt.Equal(want.Add(time.Hour)) {
		t.Fatalf("unexpected instants %s - %s", appt.StartsAt, appt.EndsAt)
	}
	if appt.Source != models.SourceAPI {
		t.Fatalf("expected default source api, got %q", appt.Source)
	}
}

func TestCreateRejectsOverlap(t *testing.T) {
	f := newFixture(t)
	existing := f.book(t, tuesday, "10:00")

	_, err := f.manager.Create(context.Background(), CreateRequest{
		CompanyID: f.company.ID, CustomerID: f.customer.ID, ServiceID: f.service.ID,
		Date: tuesday, StartTime: "10:30",
	})
	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
	if len(conflict.Conflicts) != 1 || conflict.Conflicts[0].ID != existing.ID {
		t.Fatalf("expected the 10:00 appointment as conflict, got %+v", conflict.Conflicts)
	}
	if n := len(f.store.Appointments()); n != 1 {
		t.Fatalf("expected 1 appointment stored, got %d", n)
	}
}

func TestCreateAllowsAdjacentAndOtherDays(t *testing.T) {
	f := newFixture(t)
	f.book(t, tuesday, "10:00")
	f.book(t, tuesday, "11:00")
	f.book(t, tuesday, "09:00")
	f.book(t, weds, "10:00")

	if n := len(f.store.Appointments()); n != 4 {
		t.Fatalf("expected 4 appointments, got %d", n)
	}
}

func TestCreateIgnoresInactiveAppointments(t *testing.T) {
	f := newFixture(t)
	first := f.book(t, tuesday, "10:00")
	if _, err := f.manager.Cancel(context.Background(), f.company.ID, first.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	f.book(t, tuesday, "10:00")
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.manager.Create(ctx, CreateRequest{
		CompanyID: f.company.ID, CustomerID: f.customer.ID, ServiceID: f.service.ID,
		Date: tuesday, StartTime: "25:00",
	})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	_, err = f.manager.Create(ctx, CreateRequest{
		CompanyID: f.company.ID, CustomerID: f.customer.ID, ServiceID: uuid.New(),
		Date: tuesday, StartTime: "10:00",
	})
	if !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected not found for unknown service, got %v", err)
	}
}

// constraintOnly hides existing appointments from the pre-check so only
// the store constraint can catch the overlap.
type constraintOnly struct {
	*repository.Memory
}

func (constraintOnly) ActiveAppointments(context.Context, uuid.UUID, uuid.UUID, time.Time, time.Time) ([]models.Appointment, error) {
	return nil, nil
}

func TestCreateMapsStoreConstraintToConflict(t *testing.T) {
	f := newFixture(t)
	f.book(t, tuesday, "10:00")

	m := NewManager(constraintOnly{f.store}, func() time.Time { return f.now }, nil)
	_, err := m.Create(context.Background(), CreateRequest{
		CompanyID: f.company.ID, CustomerID: f.customer.ID, ServiceID: f.service.ID,
		Date: tuesday, StartTime: "10:30",
	})
	if !IsConflict(err) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if !errors.Is(err, models.ErrConflict) {
		t.Fatalf("expected the store error to be wrapped, got %v", err)
	}
}

func TestConcurrentCreatesBookSlotOnce(t *testing.T) {
	f := newFixture(t)

	const workers = 12
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		ok        int
		conflicts int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.manager.Create(context.Background(), CreateRequest{
				CompanyID: f.company.ID, CustomerID: f.customer.ID, ServiceID: f.service.ID,
				Date: tuesday, StartTime: "14:00",
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case IsConflict(err):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if ok != 1 || conflicts != workers-1 {
		t.Fatalf("expected 1 success and %d conflicts, got %d and %d", workers-1, ok, conflicts)
	}
}

func TestTenantIsolation(t *testing.T) {
	f := newFixture(t)
	appt := f.book(t, tuesday, "10:00")
	other := uuid.New()

	if _, err := f.manager.Confirm(context.Background(), other, appt.ID); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected not found for another tenant, got %v", err)
	}
	if _, err := f.manager.Cancel(context.Background(), other, appt.ID); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected not found for another tenant, got %v", err)
	}
}

func TestLifecycleTransitions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	appt := f.book(t, tuesday, "10:00")

	if _, _, err := f.manager.Complete(ctx, f.company.ID, appt.ID, nil); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("completing a PENDING appointment should fail, got %v", err)
	}

	confirmed, err := f.manager.Confirm(ctx, f.company.ID, appt.ID)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if confirmed.Status != models.StatusConfirmed || confirmed.ConfirmedAt == nil {
		t.Fatalf("unexpected confirmed appointment %+v", confirmed)
	}
	if _, err := f.manager.Confirm(ctx, f.company.ID, appt.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("confirming twice should fail, got %v", err)
	}

	items := []LineItem{{Description: "Shampoo", Quantity: 2, UnitPrice: decimal.NewFromInt(10)}}
	completed, invoice, err := f.manager.Complete(ctx, f.company.ID, appt.ID, items)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if completed.Status != models.StatusCompleted || completed.CompletedAt == nil {
		t.Fatalf("unexpected completed appointment %+v", completed)
	}
	if !invoice.Total.Equal(decimal.NewFromInt(70)) || len(invoice.Items) != 2 {
		t.Fatalf("expected total 70 over 2 lines, got %s over %d", invoice.Total, len(invoice.Items))
	}
	if n := len(f.store.Invoices()); n != 1 {
		t.Fatalf("expected 1 invoice stored, got %d", n)
	}
	for _, c := range f.store.Customers() {
		if c.ID == f.customer.ID && (c.TotalVisits != 1 || !c.TotalSpent.Equal(decimal.NewFromInt(70))) {
			t.Fatalf("visit stats not updated: %+v", c)
		}
	}

	if _, err := f.manager.Cancel(ctx, f.company.ID, appt.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("cancelling a completed appointment should fail, got %v", err)
	}
}

func TestCompleteRejectsBadLineItems(t *testing.T) {
	f := newFixture(t)
	appt := f.book(t, tuesday, "10:00")
	bad := []LineItem{{Description: "Gel", Quantity: 0, UnitPrice: decimal.NewFromInt(5)}}
	if _, _, err := f.manager.Complete(context.Background(), f.company.ID, appt.ID, bad); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestRescheduleMovesAppointment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	orig := f.book(t, tuesday, "10:00")

	moved, err := f.manager.Reschedule(ctx, f.company.ID, orig.ID, weds, "14:00", "15:00")
	if err != nil {
		t.Fatalf("reschedule: %v", err)
	}
	if moved.Status != models.StatusPending || moved.RescheduledFromID == nil || *moved.RescheduledFromID != orig.ID {
		t.Fatalf("unexpected new appointment %+v", moved)
	}
	if !moved.TotalValue.Equal(orig.TotalValue) || moved.CustomerID != orig.CustomerID {
		t.Fatalf("price or customer not carried over")
	}

	stored, err := f.store.GetAppointment(ctx, f.company.ID, orig.ID)
	if err != nil {
		t.Fatalf("get original: %v", err)
	}
	if stored.Status != models.StatusRescheduled {
		t.Fatalf("expected original RESCHEDULED, got %s", stored.Status)
	}
}

func TestRescheduleIntoOwnSlotWindow(t *testing.T) {
	f := newFixture(t)
	orig := f.book(t, tuesday, "10:00")
	if _, err := f.manager.Reschedule(context.Background(), f.company.ID, orig.ID, tuesday, "10:30", "11:30"); err != nil {
		t.Fatalf("shifting by half an hour should not conflict with itself: %v", err)
	}
}

func TestRescheduleConflictLeavesStateUntouched(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	orig := f.book(t, tuesday, "10:00")
	f.book(t, weds, "14:00")

	_, err := f.manager.Reschedule(ctx, f.company.ID, orig.ID, weds, "14:30", "15:30")
	if !IsConflict(err) {
		t.Fatalf("expected conflict, got %v", err)
	}

	stored, _ := f.store.GetAppointment(ctx, f.company.ID, orig.ID)
	if stored.Status != models.StatusPending {
		t.Fatalf("original must stay PENDING, got %s", stored.Status)
	}
	if n := len(f.store.Appointments()); n != 2 {
		t.Fatalf("expected 2 appointments, got %d", n)
	}
}

func TestRescheduleValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	orig := f.book(t, tuesday, "10:00")

	if _, err := f.manager.Reschedule(ctx, f.company.ID, orig.ID, weds, "15:00", "14:00"); !errors.Is(err, ErrInvalidTime) {
		t.Fatalf("expected invalid time, got %v", err)
	}
	if _, err := f.manager.Cancel(ctx, f.company.ID, orig.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if _, err := f.manager.Reschedule(ctx, f.company.ID, orig.ID, weds, "14:00", "15:00"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected invalid transition, got %v", err)
	}
}

func TestSweepNoShows(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pending := f.book(t, tuesday, "10:00")
	confirmed := f.book(t, tuesday, "12:00")
	future := f.book(t, weds, "10:00")
	if _, err := f.manager.Confirm(ctx, f.company.ID, confirmed.ID); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	f.now = time.Date(2025, time.March, 11, 13, 0, 0, 0, time.UTC)
	n, err := f.manager.SweepNoShows(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 no-show, got %d", n)
	}

	want := map[uuid.UUID]models.AppointmentStatus{
		pending.ID:   models.StatusNoShow,
		confirmed.ID: models.StatusConfirmed,
		future.ID:    models.StatusPending,
	}
	for id, status := range want {
		got, _ := f.store.GetAppointment(ctx, f.company.ID, id)
		if got.Status != status {
			t.Errorf("appointment %s: expected %s, got %s", id, status, got.Status)
		}
	}

	if n, _ := f.manager.SweepNoShows(ctx); n != 0 {
		t.Fatalf("second sweep should change nothing, changed %d", n)
	}
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to models.AppointmentStatus
		want     bool
	}{
		{models.StatusPending, models.StatusConfirmed, true},
		{models.StatusPending, models.StatusNoShow, true},
		{models.StatusPending, models.StatusCompleted, false},
		{models.StatusConfirmed, models.StatusCompleted, true},
		{models.StatusConfirmed, models.StatusNoShow, false},
		{models.StatusCancelled, models.StatusConfirmed, false},
		{models.StatusCompleted, models.StatusCancelled, false},
		{models.StatusRescheduled, models.StatusPending, false},
		{models.StatusNoShow, models.StatusConfirmed, false},
	}
	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}
