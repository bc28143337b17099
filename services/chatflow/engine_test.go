package chatflow

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"agenda-backend/models"
	"agenda-backend/repository"
	"agenda-backend/services/availability"
	"agenda-backend/services/booking"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	companyID = uuid.MustParse("0f7c7d4e-2b1a-4c55-8d0e-6a1f3b2c9d01")
	serviceID = uuid.MustParse("7a2d9e10-5c3b-4f8a-b1e2-3d4c5b6a7f02")
	monday    = time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC)
	tuesday   = time.Date(2025, time.March, 11, 0, 0, 0, 0, time.UTC)
)

const phone = "+5511988887777"

type fixture struct {
	store   *repository.Memory
	manager *booking.Manager
	engine  *Engine
	company models.Company
	service models.Service
	now     time.Time
}

type bookerFunc func(ctx context.Context, req booking.CreateRequest) (models.Appointment, error)

func (f bookerFunc) Create(ctx context.Context, req booking.CreateRequest) (models.Appointment, error) {
	return f(ctx, req)
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{store: repository.NewMemory(), now: monday.Add(8 * time.Hour)}
	clock := func() time.Time { return f.now }
	f.store.Now = clock

	f.company = f.store.AddCompany(models.Company{
		ID:             companyID,
		Name:           "Studio Bella",
		Phone:          "+551130000000",
		Timezone:       "UTC",
		WhatsAppNumber: "+551140000000",
	})
	f.service = f.store.AddService(models.Service{
		ID:        serviceID,
		CompanyID: companyID,
		Name:      "Corte Feminino",
		Price:     decimal.NewFromInt(80),
		Duration:  60,
		IsActive:  true,
		StartTime: "09:00",
		EndTime:   "17:00",
		Monday:    true, Tuesday: true, Wednesday: true, Thursday: true, Friday: true,
	})
	f.store.AddProfessional(models.Professional{CompanyID: companyID, FullName: "Paula", IsActive: true})

	f.manager = booking.NewManager(f.store, clock, nil)
	f.engine = f.newEngine(f.manager)
	return f
}

func (f *fixture) newEngine(booker Booker) *Engine {
	clock := func() time.Time { return f.now }
	return NewEngine(f.store, availability.NewCalculator(f.store, clock), booker, Options{Now: clock})
}

func (f *fixture) send(t *testing.T, text string) Reply {
	t.Helper()
	reply, err := f.engine.Handle(context.Background(), Inbound{CompanyID: companyID, Phone: phone, Text: text})
	if err != nil {
		t.Fatalf("handle %q: %v", text, err)
	}
	return reply
}

func (f *fixture) seedCustomer(t *testing.T, c models.Customer) models.Customer {
	t.Helper()
	c.CompanyID = companyID
	if c.Phone == "" {
		c.Phone = phone
	}
	if err := f.store.CreateCustomer(context.Background(), &c); err != nil {
		t.Fatalf("seed customer: %v", err)
	}
	return c
}

func (f *fixture) customer(t *testing.T) models.Customer {
	t.Helper()
	c, err := f.store.LockCustomerByPhone(context.Background(), companyID, phone)
	if err != nil {
		t.Fatalf("load customer: %v", err)
	}
	return c
}

func expectState(t *testing.T, reply Reply, want string) {
	t.Helper()
	if reply.State != want {
		t.Fatalf("expected state %q, got %q (reply %q)", want, reply.State, reply.Text)
	}
}

func TestNewCustomerBooksThroughConversation(t *testing.T) {
	f := newFixture(t)

	reply := f.send(t, "Oi")
	expectState(t, reply, "awaiting_name")
	if !strings.Contains(reply.Text, "Studio Bella") {
		t.Fatalf("expected greeting with company name, got %q", reply.Text)
	}

	expectState(t, f.send(t, "  Maria   Silva "), "awaiting_email")
	reply = f.send(t, "Maria@Example.com")
	expectState(t, reply, "menu")
	if c := f.customer(t); c.Name != "Maria Silva" || c.Email != "maria@example.com" {
		t.Fatalf("unexpected registration %+v", c)
	}

	reply = f.send(t, "1")
	expectState(t, reply, "awaiting_service")
	if len(reply.Buttons) != 1 || !strings.Contains(reply.Buttons[0].Label, "Corte Feminino") {
		t.Fatalf("unexpected service list %+v", reply.Buttons)
	}

	expectState(t, f.send(t, "1"), "awaiting_shift:"+serviceID.String())

	reply = f.send(t, "manhã")
	expectState(t, reply, "awaiting_date:"+serviceID.String()+":morning")
	if len(reply.Buttons) != 7 {
		t.Fatalf("expected 7 days offered, got %d", len(reply.Buttons))
	}
	if reply.Buttons[0].Label != "Today 10/03" || reply.Buttons[1].Label != "Tomorrow 11/03" {
		t.Fatalf("unexpected day labels %+v", reply.Buttons[:2])
	}

	reply = f.send(t, "2")
	expectState(t, reply, "awaiting_time:"+serviceID.String()+":morning:2025-03-11")
	var times []string
	for _, b := range reply.Buttons {
		times = append(times, b.Label)
	}
	if got := strings.Join(times, ","); got != "09:00,09:30,10:00,10:30,11:00,11:30" {
		t.Fatalf("unexpected morning times %s", got)
	}

	reply = f.send(t, "3")
	expectState(t, reply, "menu")
	if reply.AppointmentID == nil {
		t.Fatalf("expected an appointment id, got %q", reply.Text)
	}
	appts := f.store.Appointments()
	if len(appts) != 1 {
		t.Fatalf("expected 1 appointment, got %d", len(appts))
	}
	a := appts[0]
	if a.ID != *reply.AppointmentID || a.StartTime != "10:00" || !a.Day().Equal(tuesday) {
		t.Fatalf("unexpected appointment %+v", a)
	}
	if a.Source != models.SourceWhatsApp || a.ProfessionalID == nil || a.Status != models.StatusPending {
		t.Fatalf("unexpected appointment metadata %+v", a)
	}

	if n := len(f.store.MessageLogs()); n != 8 {
		t.Fatalf("expected every inbound message logged, got %d", n)
	}
}

func TestInvalidServiceChoiceRepromptsWithoutChanges(t *testing.T) {
	f := newFixture(t)
	f.seedCustomer(t, models.Customer{Name: "Ana", Email: "ana@example.com", FlowStep: "awaiting_service"})

	reply := f.send(t, "2")
	expectState(t, reply, "awaiting_service")
	if !strings.HasPrefix(reply.Text, "Please choose one of the options.") {
		t.Fatalf("expected re-prompt, got %q", reply.Text)
	}
	if len(f.store.Appointments()) != 0 {
		t.Fatalf("expected no appointment")
	}
}

func TestServiceMatchedByName(t *testing.T) {
	f := newFixture(t)
	f.seedCustomer(t, models.Customer{Name: "Ana", Email: "ana@example.com", FlowStep: "awaiting_service"})

	expectState(t, f.send(t, "corte"), "awaiting_shift:"+serviceID.String())
}

func TestInvalidEmailStaysInPlace(t *testing.T) {
	f := newFixture(t)
	f.seedCustomer(t, models.Customer{Name: "Ana", FlowStep: "awaiting_email"})

	expectState(t, f.send(t, "not an email"), "awaiting_email")
	if c := f.customer(t); c.Email != "" {
		t.Fatalf("expected email unset, got %q", c.Email)
	}
}

func TestStaleTokenResets(t *testing.T) {
	f := newFixture(t)
	f.seedCustomer(t, models.Customer{Name: "Ana", Email: "ana@example.com", FlowStep: "awaiting_time:broken"})

	reply := f.send(t, "3")
	expectState(t, reply, "menu")
	if !strings.HasPrefix(reply.Text, "Let's start over.") {
		t.Fatalf("unexpected reply %q", reply.Text)
	}
}

func TestStaleTokenForUnregisteredCustomerAsksChoice(t *testing.T) {
	f := newFixture(t)
	f.seedCustomer(t, models.Customer{Name: "Guest", FlowStep: "booking_step_7"})

	expectState(t, f.send(t, "hello"), "awaiting_choice")
}

func TestEscapeReturnsToMenu(t *testing.T) {
	f := newFixture(t)
	f.seedCustomer(t, models.Customer{
		Name: "Ana", Email: "ana@example.com",
		FlowStep: AwaitingDate{ServiceID: serviceID, Shift: Afternoon}.Token(),
	})

	expectState(t, f.send(t, "Voltar"), "menu")
}

func TestNoAvailabilityReturnsToMenu(t *testing.T) {
	f := newFixture(t)
	f.seedCustomer(t, models.Customer{
		Name: "Ana", Email: "ana@example.com",
		FlowStep: AwaitingShift{ServiceID: serviceID}.Token(),
	})
	f.store.AddService(models.Service{
		ID: serviceID, CompanyID: companyID, Name: "Corte Feminino", Duration: 60, IsActive: true,
		StartTime: "09:00", EndTime: "12:00", Monday: true,
	})

	reply := f.send(t, "afternoon")
	expectState(t, reply, "menu")
	if !strings.Contains(reply.Text, "no afternoon times") {
		t.Fatalf("unexpected reply %q", reply.Text)
	}
}

func TestTakenTimeRepromptsWithFreshList(t *testing.T) {
	f := newFixture(t)
	rival := f.seedCustomer(t, models.Customer{Name: "Rival", Phone: "+5511911112222"})
	f.seedCustomer(t, models.Customer{
		Name: "Ana", Email: "ana@example.com",
		FlowStep: AwaitingTime{ServiceID: serviceID, Shift: Morning, Date: tuesday}.Token(),
	})

	// Someone else takes the slot between listing and booking.
	f.engine = f.newEngine(bookerFunc(func(ctx context.Context, req booking.CreateRequest) (models.Appointment, error) {
		if _, err := f.manager.Create(ctx, booking.CreateRequest{
			CompanyID: companyID, CustomerID: rival.ID, ServiceID: serviceID, Date: req.Date, StartTime: req.StartTime,
		}); err != nil {
			t.Fatalf("rival booking: %v", err)
		}
		return f.manager.Create(ctx, req)
	}))

	reply := f.send(t, "3")
	expectState(t, reply, "awaiting_time:"+serviceID.String()+":morning:2025-03-11")
	if !strings.HasPrefix(reply.Text, "Sorry, that time was just taken.") {
		t.Fatalf("unexpected reply %q", reply.Text)
	}
	for _, b := range reply.Buttons {
		if b.Label == "10:00" {
			t.Fatalf("taken time still offered: %+v", reply.Buttons)
		}
	}
	appts := f.store.Appointments()
	if len(appts) != 1 || appts[0].CustomerID != rival.ID {
		t.Fatalf("expected only the rival booking, got %+v", appts)
	}
}

func TestChangedNumberRecoversAccount(t *testing.T) {
	f := newFixture(t)
	old := f.seedCustomer(t, models.Customer{
		Name: "Ana Souza", Email: "ana@example.com", Document: "12345678901",
		Phone: "+5511900000000", FlowStep: "menu",
	})

	expectState(t, f.send(t, "Oi"), "awaiting_name")
	expectState(t, f.send(t, "CHANGED"), "awaiting_document")
	expectState(t, f.send(t, "123"), "awaiting_document")

	reply := f.send(t, "123.456.789-01")
	expectState(t, reply, "menu")
	if reply.CustomerID != old.ID {
		t.Fatalf("expected the old account, got %s", reply.CustomerID)
	}

	customers := f.store.Customers()
	if len(customers) != 1 {
		t.Fatalf("expected the temporary customer removed, got %d customers", len(customers))
	}
	if customers[0].ID != old.ID || customers[0].Phone != phone {
		t.Fatalf("expected phone moved to the old account, got %+v", customers[0])
	}
}

func TestUnknownDocumentContinuesRegistration(t *testing.T) {
	f := newFixture(t)
	f.seedCustomer(t, models.Customer{Name: "Guest", FlowStep: "awaiting_document"})

	expectState(t, f.send(t, "98765432100"), "awaiting_name")
	if c := f.customer(t); c.Document != "98765432100" {
		t.Fatalf("expected document stored, got %q", c.Document)
	}
}

func TestMyBookingsListsUpcoming(t *testing.T) {
	f := newFixture(t)
	c := f.seedCustomer(t, models.Customer{Name: "Ana", Email: "ana@example.com", FlowStep: "menu"})
	if _, err := f.manager.Create(context.Background(), booking.CreateRequest{
		CompanyID: companyID, CustomerID: c.ID, ServiceID: serviceID, Date: tuesday, StartTime: "15:00",
	}); err != nil {
		t.Fatalf("seed appointment: %v", err)
	}

	reply := f.send(t, "2")
	expectState(t, reply, "menu")
	if !strings.Contains(reply.Text, "Corte Feminino - 11/03/2025 at 15:00") {
		t.Fatalf("unexpected bookings reply %q", reply.Text)
	}
}

func TestMissingProfessionalFallsBackToMenu(t *testing.T) {
	f := newFixture(t)
	f.store = repository.NewMemory()
	f.store.Now = func() time.Time { return f.now }
	f.store.AddCompany(f.company)
	f.store.AddService(f.service)
	f.manager = booking.NewManager(f.store, func() time.Time { return f.now }, nil)
	f.engine = f.newEngine(f.manager)
	f.seedCustomer(t, models.Customer{
		Name: "Ana", Email: "ana@example.com",
		FlowStep: AwaitingTime{ServiceID: serviceID, Shift: Afternoon, Date: tuesday}.Token(),
	})

	reply := f.send(t, "1")
	expectState(t, reply, "menu")
	if !strings.Contains(reply.Text, "unavailable") {
		t.Fatalf("unexpected reply %q", reply.Text)
	}
	if len(f.store.Appointments()) != 0 {
		t.Fatalf("expected no appointment")
	}
}

func TestRepliesAreDeterministic(t *testing.T) {
	script := []string{"Oi", "Maria", "maria@example.com", "1", "1", "2", "1"}
	run := func() []string {
		f := newFixture(t)
		var out []string
		for _, msg := range script {
			r := f.send(t, msg)
			out = append(out, r.State+"|"+r.Text)
			for _, b := range r.Buttons {
				out = append(out, b.Value+"="+b.Label)
			}
		}
		return out
	}
	first, second := run(), run()
	if strings.Join(first, "\n") != strings.Join(second, "\n") {
		t.Fatalf("replies differ between identical runs")
	}
}

func TestUnknownCompany(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.Handle(context.Background(), Inbound{CompanyID: uuid.New(), Phone: phone, Text: "oi"})
	if !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
