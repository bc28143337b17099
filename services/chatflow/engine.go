// Package chatflow runs the WhatsApp booking conversation. The only state
// kept between messages is the token stored on the customer record.
package chatflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"agenda-backend/models"
	"agenda-backend/services/availability"
	"agenda-backend/services/booking"
	"agenda-backend/services/messaging"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Store interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
	GetCompany(ctx context.Context, companyID uuid.UUID) (models.Company, error)
	GetService(ctx context.Context, companyID, serviceID uuid.UUID) (models.Service, error)
	ActiveServices(ctx context.Context, companyID uuid.UUID) ([]models.Service, error)
	FirstActiveProfessional(ctx context.Context, companyID uuid.UUID) (models.Professional, error)
	UpcomingAppointments(ctx context.Context, companyID, customerID uuid.UUID, from time.Time, limit int) ([]models.Appointment, error)
	LockCustomerByPhone(ctx context.Context, companyID uuid.UUID, phone string) (models.Customer, error)
	CustomerByDocument(ctx context.Context, companyID uuid.UUID, document string, exclude uuid.UUID) (models.Customer, error)
	CreateCustomer(ctx context.Context, c *models.Customer) error
	SaveCustomer(ctx context.Context, c *models.Customer) error
	DeleteCustomer(ctx context.Context, companyID, id uuid.UUID) error
	AppendMessageLog(ctx context.Context, m *models.MessageLog) error
}

type Availability interface {
	SlotsFor(ctx context.Context, companyID, serviceID uuid.UUID, date time.Time) ([]availability.Slot, error)
	CalendarFor(ctx context.Context, companyID, serviceID uuid.UUID, daysAhead int) ([]availability.Day, error)
}

type Booker interface {
	Create(ctx context.Context, req booking.CreateRequest) (models.Appointment, error)
}

type Options struct {
	// DaysAhead is how far the day menu looks for free slots.
	DaysAhead int
	// MaxDays caps the number of days offered.
	MaxDays     int
	MaxServices int
	MaxBookings int
	Now         func() time.Time
	Logger      *zap.Logger
}

func (o *Options) defaults() {
	if o.DaysAhead <= 0 {
		o.DaysAhead = 15
	}
	if o.MaxDays <= 0 {
		o.MaxDays = 7
	}
	if o.MaxServices <= 0 {
		o.MaxServices = 10
	}
	if o.MaxBookings <= 0 {
		o.MaxBookings = 5
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
}

type Inbound struct {
	CompanyID   uuid.UUID
	Phone       string
	Text        string
	DisplayName string
}

type Reply struct {
	Text          string             `json:"reply"`
	Buttons       []messaging.Button `json:"buttons,omitempty"`
	State         string             `json:"state"`
	CustomerID    uuid.UUID          `json:"customerId"`
	AppointmentID *uuid.UUID         `json:"appointmentId,omitempty"`
}

type Engine struct {
	store    Store
	calendar Availability
	booker   Booker
	opts     Options
}

func NewEngine(store Store, calendar Availability, booker Booker, opts Options) *Engine {
	opts.defaults()
	return &Engine{store: store, calendar: calendar, booker: booker, opts: opts}
}

// turn carries what one message needs while it is being handled.
type turn struct {
	company  models.Company
	customer *models.Customer
	text     string
	now      time.Time
	booked   *uuid.UUID
}

// Handle processes one inbound message. The customer row stays locked
// for the whole turn so messages from one phone are handled in order.
func (e *Engine) Handle(ctx context.Context, in Inbound) (Reply, error) {
	var reply Reply
	err := e.store.InTx(ctx, func(ctx context.Context) error {
		company, err := e.store.GetCompany(ctx, in.CompanyID)
		if err != nil {
			return err
		}
		t := &turn{company: company, text: strings.TrimSpace(in.Text), now: e.opts.Now()}

		customer, err := e.store.LockCustomerByPhone(ctx, in.CompanyID, in.Phone)
		switch {
		case errors.Is(err, models.ErrNotFound):
			reply, err = e.welcome(ctx, t, in)
			return err
		case err != nil:
			return err
		}
		t.customer = &customer

		var next State
		state, perr := ParseState(customer.FlowStep)
		if perr != nil {
			e.opts.Logger.Info("Resetting conversation",
				zap.String("customer_id", customer.ID.String()),
				zap.String("token", customer.FlowStep))
			next, reply = e.reset(t)
		} else {
			next, reply, err = e.step(ctx, t, state)
			if err != nil {
				return err
			}
		}

		t.customer.FlowStep = next.Token()
		if err := e.store.SaveCustomer(ctx, t.customer); err != nil {
			return fmt.Errorf("save customer: %w", err)
		}
		reply.State = next.Token()
		reply.CustomerID = t.customer.ID
		reply.AppointmentID = t.booked
		return nil
	})

	e.logInbound(ctx, in, reply.CustomerID)
	if err != nil {
		return Reply{}, err
	}
	return reply, nil
}

func (e *Engine) logInbound(ctx context.Context, in Inbound, customerID uuid.UUID) {
	entry := models.MessageLog{
		CompanyID: in.CompanyID,
		Phone:     in.Phone,
		Direction: models.DirectionIncoming,
		Message:   in.Text,
		Channel:   "whatsapp",
		Status:    "received",
		Paid:      false,
	}
	if customerID != uuid.Nil {
		entry.CustomerID = &customerID
	}
	if err := e.store.AppendMessageLog(ctx, &entry); err != nil {
		e.opts.Logger.Error("Failed to log inbound message", zap.String("phone", in.Phone), zap.Error(err))
	}
}

func (e *Engine) welcome(ctx context.Context, t *turn, in Inbound) (Reply, error) {
	name := strings.TrimSpace(in.DisplayName)
	if name == "" {
		name = "Guest"
	}
	customer := models.Customer{
		CompanyID: in.CompanyID,
		Name:      name,
		Phone:     in.Phone,
		FlowStep:  AwaitingName{}.Token(),
		IsActive:  true,
	}
	if err := e.store.CreateCustomer(ctx, &customer); err != nil {
		return Reply{}, fmt.Errorf("create customer: %w", err)
	}
	e.opts.Logger.Info("New customer", zap.String("customer_id", customer.ID.String()), zap.String("company_id", in.CompanyID.String()))

	reply := greetingReply(t.company)
	reply.State = customer.FlowStep
	reply.CustomerID = customer.ID
	return reply, nil
}

// reset handles a token that no longer parses.
func (e *Engine) reset(t *turn) (State, Reply) {
	if t.customer.Registered() {
		return Menu{}, menuReply("Let's start over.")
	}
	return AwaitingChoice{}, choiceReply()
}

func (e *Engine) step(ctx context.Context, t *turn, state State) (State, Reply, error) {
	switch s := state.(type) {
	case AwaitingChoice:
		return e.onChoice(t)
	case AwaitingDocument:
		return e.onDocument(ctx, t)
	case AwaitingName:
		return e.onName(t)
	case AwaitingEmail:
		return e.onEmail(t)
	case Menu:
		return e.onMenu(ctx, t)
	case AwaitingService:
		return e.onService(ctx, t)
	case AwaitingShift:
		return e.onShift(ctx, t, s)
	case AwaitingDate:
		return e.onDate(ctx, t, s)
	case AwaitingTime:
		return e.onTime(ctx, t, s)
	}
	return nil, Reply{}, fmt.Errorf("unhandled state %T", state)
}
