// Package booking creates appointments and moves them through their
// lifecycle without ever letting two active appointments of a service
// overlap.
package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"agenda-backend/models"
	"agenda-backend/services/availability"
	"agenda-backend/utils"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

type Store interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
	GetCompany(ctx context.Context, companyID uuid.UUID) (models.Company, error)
	GetService(ctx context.Context, companyID, serviceID uuid.UUID) (models.Service, error)
	LockService(ctx context.Context, companyID, serviceID uuid.UUID) (models.Service, error)
	ActiveAppointments(ctx context.Context, companyID, serviceID uuid.UUID, from, to time.Time) ([]models.Appointment, error)
	CreateAppointment(ctx context.Context, a *models.Appointment) error
	GetAppointment(ctx context.Context, companyID, id uuid.UUID) (models.Appointment, error)
	SaveAppointmentStatus(ctx context.Context, a models.Appointment) error
	MarkNoShows(ctx context.Context, before time.Time) (int64, error)
	CreateInvoice(ctx context.Context, inv *models.Invoice) error
	RecordVisit(ctx context.Context, customerID uuid.UUID, amount decimal.Decimal, at time.Time) error
}

type CreateRequest struct {
	CompanyID      uuid.UUID
	CustomerID     uuid.UUID
	ServiceID      uuid.UUID
	ProfessionalID *uuid.UUID
	Date           time.Time
	StartTime      string
	Notes          string
	Source         string
}

// LineItem is an extra product or service billed when completing.
type LineItem struct {
	ServiceID   *uuid.UUID      `json:"serviceId,omitempty"`
	Description string          `json:"description" binding:"required"`
	Quantity    int             `json:"quantity" binding:"required,min=1"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
}

type Manager struct {
	store  Store
	now    func() time.Time
	logger *zap.Logger
}

func NewManager(store Store, now func() time.Time, logger *zap.Logger) *Manager {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{store: store, now: now, logger: logger}
}

// Create books a PENDING appointment. The end time is derived from the
// service duration and the price is copied from the service.
func (m *Manager) Create(ctx context.Context, req CreateRequest) (models.Appointment, error) {
	start, err := utils.ParseClock(req.StartTime)
	if err != nil {
		return models.Appointment{}, fmt.Errorf("%w: %v", ErrInvalidTime, err)
	}
	if req.Source == "" {
		req.Source = models.SourceAPI
	}
	date := utils.DateOnly(req.Date)

	var created models.Appointment
	err = m.store.InTx(ctx, func(ctx context.Context) error {
		company, err := m.store.GetCompany(ctx, req.CompanyID)
		if err != nil {
			return err
		}
		service, err := m.store.LockService(ctx, req.CompanyID, req.ServiceID)
		if err != nil {
			return err
		}
		if !service.IsActive {
			return fmt.Errorf("%w: service is not active", ErrValidation)
		}
		if service.Duration <= 0 {
			return fmt.Errorf("%w: service has no duration", models.ErrConfiguration)
		}
		slot := availability.Interval{Start: start, End: start + service.Duration}
		if slot.End > 24*60 {
			return fmt.Errorf("%w: appointment would end after midnight", ErrInvalidTime)
		}

		if err := m.checkConflicts(ctx, req.CompanyID, req.ServiceID, date, slot, uuid.Nil); err != nil {
			return err
		}

		loc := company.Location()
		created = models.Appointment{
			CompanyID:      req.CompanyID,
			ServiceID:      req.ServiceID,
			CustomerID:     req.CustomerID,
			ProfessionalID: req.ProfessionalID,
			Date:           datatypes.Date(date),
			StartTime:      utils.FormatClock(slot.Start),
			EndTime:        utils.FormatClock(slot.End),
			StartsAt:       utils.At(date, slot.Start, loc),
			EndsAt:         utils.At(date, slot.End, loc),
			Status:         models.StatusPending,
			TotalValue:     service.Price,
			Notes:          req.Notes,
			Source:         req.Source,
		}
		return m.insert(ctx, &created)
	})
	if err != nil {
		return models.Appointment{}, err
	}

	m.logger.Info("appointment created",
		zap.String("appointment_id", created.ID.String()),
		zap.String("company_id", created.CompanyID.String()),
		zap.String("date", date.Format(utils.DateFormat)),
		zap.String("start", created.StartTime))
	return created, nil
}

func (m *Manager) Confirm(ctx context.Context, companyID, id uuid.UUID) (models.Appointment, error) {
	return m.transition(ctx, companyID, id, models.StatusConfirmed)
}

func (m *Manager) Cancel(ctx context.Context, companyID, id uuid.UUID) (models.Appointment, error) {
	return m.transition(ctx, companyID, id, models.StatusCancelled)
}

// Complete closes a CONFIRMED appointment, writes its invoice and updates
// the customer's visit statistics in one transaction.
func (m *Manager) Complete(ctx context.Context, companyID, id uuid.UUID, items []LineItem) (models.Appointment, models.Invoice, error) {
	for _, item := range items {
		if item.Quantity <= 0 || item.UnitPrice.IsNegative() || strings.TrimSpace(item.Description) == "" {
			return models.Appointment{}, models.Invoice{}, fmt.Errorf("%w: invalid line item %q", ErrValidation, item.Description)
		}
	}

	var (
		appt    models.Appointment
		invoice models.Invoice
	)
	err := m.store.InTx(ctx, func(ctx context.Context) error {
		var err error
		appt, err = m.store.GetAppointment(ctx, companyID, id)
		if err != nil {
			return err
		}
		if !CanTransition(appt.Status, models.StatusCompleted) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, appt.Status, models.StatusCompleted)
		}
		service, err := m.store.GetService(ctx, companyID, appt.ServiceID)
		if err != nil {
			return err
		}

		now := m.now()
		appt.Status = models.StatusCompleted
		appt.CompletedAt = &now
		if err := m.store.SaveAppointmentStatus(ctx, appt); err != nil {
			return err
		}

		invoice = buildInvoice(appt, service, items, now)
		if err := m.store.CreateInvoice(ctx, &invoice); err != nil {
			return fmt.Errorf("create invoice: %w", err)
		}
		return m.store.RecordVisit(ctx, appt.CustomerID, invoice.Total, now)
	})
	if err != nil {
		return models.Appointment{}, models.Invoice{}, err
	}
	return appt, invoice, nil
}

// Reschedule moves an active appointment to a new date and time range.
// The original is marked RESCHEDULED and a new PENDING appointment that
// points back to it is created; either both happen or neither does.
func (m *Manager) Reschedule(ctx context.Context, companyID, id uuid.UUID, newDate time.Time, newStart, newEnd string) (models.Appointment, error) {
	start, err := utils.ParseClock(newStart)
	if err != nil {
		return models.Appointment{}, fmt.Errorf("%w: %v", ErrInvalidTime, err)
	}
	end, err := utils.ParseClock(newEnd)
	if err != nil {
		return models.Appointment{}, fmt.Errorf("%w: %v", ErrInvalidTime, err)
	}
	if end <= start {
		return models.Appointment{}, fmt.Errorf("%w: end must be after start", ErrInvalidTime)
	}
	date := utils.DateOnly(newDate)
	slot := availability.Interval{Start: start, End: end}

	var moved models.Appointment
	err = m.store.InTx(ctx, func(ctx context.Context) error {
		orig, err := m.store.GetAppointment(ctx, companyID, id)
		if err != nil {
			return err
		}
		if !CanTransition(orig.Status, models.StatusRescheduled) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, orig.Status, models.StatusRescheduled)
		}
		company, err := m.store.GetCompany(ctx, companyID)
		if err != nil {
			return err
		}
		if _, err := m.store.LockService(ctx, companyID, orig.ServiceID); err != nil {
			return err
		}
		if err := m.checkConflicts(ctx, companyID, orig.ServiceID, date, slot, orig.ID); err != nil {
			return err
		}

		// The original leaves the active set first so the store constraint
		// does not see it overlap its replacement.
		orig.Status = models.StatusRescheduled
		if err := m.store.SaveAppointmentStatus(ctx, orig); err != nil {
			return err
		}

		loc := company.Location()
		moved = models.Appointment{
			CompanyID:         companyID,
			ServiceID:         orig.ServiceID,
			CustomerID:        orig.CustomerID,
			ProfessionalID:    orig.ProfessionalID,
			Date:              datatypes.Date(date),
			StartTime:         utils.FormatClock(start),
			EndTime:           utils.FormatClock(end),
			StartsAt:          utils.At(date, start, loc),
			EndsAt:            utils.At(date, end, loc),
			Status:            models.StatusPending,
			TotalValue:        orig.TotalValue,
			Notes:             orig.Notes,
			Source:            orig.Source,
			RescheduledFromID: &orig.ID,
		}
		return m.insert(ctx, &moved)
	})
	if err != nil {
		return models.Appointment{}, err
	}

	m.logger.Info("appointment rescheduled",
		zap.String("from", id.String()),
		zap.String("to", moved.ID.String()))
	return moved, nil
}

// SweepNoShows marks PENDING appointments whose start has passed as
// NO_SHOW and returns how many changed.
func (m *Manager) SweepNoShows(ctx context.Context) (int64, error) {
	n, err := m.store.MarkNoShows(ctx, m.now())
	if err != nil {
		return 0, fmt.Errorf("mark no-shows: %w", err)
	}
	if n > 0 {
		m.logger.Info("appointments marked as no-show", zap.Int64("count", n))
	}
	return n, nil
}

func (m *Manager) transition(ctx context.Context, companyID, id uuid.UUID, to models.AppointmentStatus) (models.Appointment, error) {
	var appt models.Appointment
	err := m.store.InTx(ctx, func(ctx context.Context) error {
		var err error
		appt, err = m.store.GetAppointment(ctx, companyID, id)
		if err != nil {
			return err
		}
		if !CanTransition(appt.Status, to) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, appt.Status, to)
		}
		now := m.now()
		appt.Status = to
		switch to {
		case models.StatusConfirmed:
			appt.ConfirmedAt = &now
		case models.StatusCancelled:
			appt.CancelledAt = &now
		}
		return m.store.SaveAppointmentStatus(ctx, appt)
	})
	if err != nil {
		return models.Appointment{}, err
	}
	return appt, nil
}

// checkConflicts applies the same overlap rule the availability
// calculator uses, ignoring the appointment being replaced.
func (m *Manager) checkConflicts(ctx context.Context, companyID, serviceID uuid.UUID, date time.Time, slot availability.Interval, exclude uuid.UUID) error {
	booked, err := m.store.ActiveAppointments(ctx, companyID, serviceID, date, date)
	if err != nil {
		return fmt.Errorf("load appointments: %w", err)
	}
	var conflicts []models.Appointment
	for _, a := range booked {
		if a.ID == exclude {
			continue
		}
		iv, err := availability.AppointmentInterval(a)
		if err != nil {
			return fmt.Errorf("appointment %s: %w", a.ID, err)
		}
		if iv.Overlaps(slot) {
			conflicts = append(conflicts, a)
		}
	}
	if len(conflicts) > 0 {
		return &ConflictError{Conflicts: conflicts}
	}
	return nil
}

func (m *Manager) insert(ctx context.Context, a *models.Appointment) error {
	err := m.store.CreateAppointment(ctx, a)
	if errors.Is(err, models.ErrConflict) {
		return &ConflictError{cause: err}
	}
	return err
}

func buildInvoice(appt models.Appointment, service models.Service, items []LineItem, now time.Time) models.Invoice {
	serviceID := service.ID
	lines := []models.InvoiceItem{{
		ServiceID:   &serviceID,
		Description: service.Name,
		Quantity:    1,
		UnitPrice:   appt.TotalValue,
		TotalPrice:  appt.TotalValue,
	}}
	for _, item := range items {
		lines = append(lines, models.InvoiceItem{
			ServiceID:   item.ServiceID,
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			TotalPrice:  item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))),
		})
	}

	subtotal := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(l.TotalPrice)
	}

	return models.Invoice{
		CompanyID:     appt.CompanyID,
		AppointmentID: appt.ID,
		CustomerID:    appt.CustomerID,
		InvoiceNumber: invoiceNumber(appt, now),
		InvoiceDate:   now,
		Subtotal:      subtotal,
		Discount:      decimal.Zero,
		Total:         subtotal,
		PaymentStatus: "unpaid",
		Items:         lines,
	}
}

func invoiceNumber(appt models.Appointment, now time.Time) string {
	return fmt.Sprintf("INV-%s-%s", now.Format("20060102"), strings.ToUpper(appt.ID.String()[:8]))
}
