// Package availability turns service configuration, calendar exceptions
// and existing appointments into bookable slots.
package availability

import (
	"context"
	"fmt"
	"iter"
	"slices"
	"time"

	"agenda-backend/models"
	"agenda-backend/services/holidays"
	"agenda-backend/utils"

	"github.com/google/uuid"
)

const (
	DefaultDaysAhead = 30
	MaxDaysAhead     = 90
)

// Store is the read side the calculator needs. Date arguments are civil
// dates and ranges are inclusive.
type Store interface {
	GetCompany(ctx context.Context, companyID uuid.UUID) (models.Company, error)
	GetService(ctx context.Context, companyID, serviceID uuid.UUID) (models.Service, error)
	CalendarExceptions(ctx context.Context, companyID uuid.UUID, from, to time.Time) (holidays.Exceptions, error)
	ActiveAppointments(ctx context.Context, companyID, serviceID uuid.UUID, from, to time.Time) ([]models.Appointment, error)
}

type Day struct {
	Date     time.Time        `json:"-"`
	DateStr  string           `json:"date"`
	HasSlots bool             `json:"hasSlots"`
	Closed   *holidays.Reason `json:"closed,omitempty"`
	Slots    []Slot           `json:"slots"`
}

// Calculator reads fresh data from the store on every call.
type Calculator struct {
	store Store
	now   func() time.Time
}

func NewCalculator(store Store, now func() time.Time) *Calculator {
	if now == nil {
		now = time.Now
	}
	return &Calculator{store: store, now: now}
}

// Today is the current civil date in the company's timezone.
func (c *Calculator) Today(company models.Company) time.Time {
	return utils.DateOnly(c.now().In(company.Location()))
}

// SlotsFor lists the slots of one service on one date, ordered by start.
func (c *Calculator) SlotsFor(ctx context.Context, companyID, serviceID uuid.UUID, date time.Time) ([]Slot, error) {
	company, service, err := c.load(ctx, companyID, serviceID)
	if err != nil {
		return nil, err
	}
	date = utils.DateOnly(date)

	ex, err := c.store.CalendarExceptions(ctx, companyID, date, date)
	if err != nil {
		return nil, fmt.Errorf("load calendar exceptions: %w", err)
	}
	booked, err := c.store.ActiveAppointments(ctx, companyID, serviceID, date, date)
	if err != nil {
		return nil, fmt.Errorf("load appointments: %w", err)
	}

	seq, err := Slots(Input{
		Company:    company,
		Service:    service,
		Date:       date,
		Exceptions: ex,
		Booked:     booked,
		Now:        c.now(),
	})
	if err != nil {
		return nil, err
	}
	return collect(seq), nil
}

// CalendarFor lays out daysAhead consecutive days starting today.
func (c *Calculator) CalendarFor(ctx context.Context, companyID, serviceID uuid.UUID, daysAhead int) ([]Day, error) {
	if daysAhead <= 0 {
		daysAhead = DefaultDaysAhead
	}
	if daysAhead > MaxDaysAhead {
		daysAhead = MaxDaysAhead
	}

	company, service, err := c.load(ctx, companyID, serviceID)
	if err != nil {
		return nil, err
	}
	now := c.now()
	from := c.Today(company)
	to := from.AddDate(0, 0, daysAhead-1)

	ex, err := c.store.CalendarExceptions(ctx, companyID, from, to)
	if err != nil {
		return nil, fmt.Errorf("load calendar exceptions: %w", err)
	}
	booked, err := c.store.ActiveAppointments(ctx, companyID, serviceID, from, to)
	if err != nil {
		return nil, fmt.Errorf("load appointments: %w", err)
	}

	days := make([]Day, 0, daysAhead)
	for i := 0; i < daysAhead; i++ {
		date := from.AddDate(0, 0, i)
		day := Day{Date: date, DateStr: date.Format(utils.DateFormat)}
		if reason, closed := holidays.Check(company, date, ex); closed {
			day.Closed = &reason
		}

		seq, err := Slots(Input{
			Company:    company,
			Service:    service,
			Date:       date,
			Exceptions: ex,
			Booked:     booked,
			Now:        now,
		})
		if err != nil {
			return nil, err
		}
		day.Slots = collect(seq)
		day.HasSlots = slices.ContainsFunc(day.Slots, func(s Slot) bool { return s.Available })
		days = append(days, day)
	}
	return days, nil
}

func (c *Calculator) load(ctx context.Context, companyID, serviceID uuid.UUID) (models.Company, models.Service, error) {
	company, err := c.store.GetCompany(ctx, companyID)
	if err != nil {
		return models.Company{}, models.Service{}, fmt.Errorf("load company: %w", err)
	}
	service, err := c.store.GetService(ctx, companyID, serviceID)
	if err != nil {
		return models.Company{}, models.Service{}, fmt.Errorf("load service: %w", err)
	}
	return company, service, nil
}

func collect(seq iter.Seq[Slot]) []Slot {
	slots := slices.Collect(seq)
	if slots == nil {
		slots = []Slot{}
	}
	return slots
}
