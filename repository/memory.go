package repository

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"agenda-backend/models"
	"agenda-backend/services/holidays"
	"agenda-backend/utils"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type memTxKey struct{}

// Memory implements the same methods as Store over in-process maps. It
// enforces the unique phone index and the appointment overlap
// constraint, and rolls back a failed InTx.
type Memory struct {
	txMu sync.Mutex
	mu   sync.Mutex

	// Now stamps CreatedAt on message logs. Defaults to time.Now.
	Now func() time.Time

	data memData
}

type memData struct {
	companies     map[uuid.UUID]models.Company
	services      map[uuid.UUID]models.Service
	professionals map[uuid.UUID]models.Professional
	customers     map[uuid.UUID]models.Customer
	appointments  map[uuid.UUID]models.Appointment
	invoices      map[uuid.UUID]models.Invoice
	templates     []models.ReminderTemplate
	logs          []models.MessageLog
	exceptions    map[uuid.UUID]holidays.Exceptions
}

func (d memData) clone() memData {
	out := memData{
		companies:     maps.Clone(d.companies),
		services:      maps.Clone(d.services),
		professionals: maps.Clone(d.professionals),
		customers:     maps.Clone(d.customers),
		appointments:  maps.Clone(d.appointments),
		invoices:      maps.Clone(d.invoices),
		templates:     slices.Clone(d.templates),
		logs:          slices.Clone(d.logs),
		exceptions:    maps.Clone(d.exceptions),
	}
	return out
}

func NewMemory() *Memory {
	return &Memory{
		Now: time.Now,
		data: memData{
			companies:     map[uuid.UUID]models.Company{},
			services:      map[uuid.UUID]models.Service{},
			professionals: map[uuid.UUID]models.Professional{},
			customers:     map[uuid.UUID]models.Customer{},
			appointments:  map[uuid.UUID]models.Appointment{},
			invoices:      map[uuid.UUID]models.Invoice{},
			exceptions:    map[uuid.UUID]holidays.Exceptions{},
		},
	}
}

// InTx serializes top-level transactions and restores the previous state
// when fn fails. Nested calls only snapshot.
func (m *Memory) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(memTxKey{}) == nil {
		m.txMu.Lock()
		defer m.txMu.Unlock()
		ctx = context.WithValue(ctx, memTxKey{}, true)
	}

	m.mu.Lock()
	snapshot := m.data.clone()
	m.mu.Unlock()

	if err := fn(ctx); err != nil {
		m.mu.Lock()
		m.data = snapshot
		m.mu.Unlock()
		return err
	}
	return nil
}

// Seeding helpers.

func (m *Memory) AddCompany(c models.Company) models.Company {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	m.data.companies[c.ID] = c
	return c
}

func (m *Memory) AddService(s models.Service) models.Service {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	m.data.services[s.ID] = s
	return s
}

func (m *Memory) AddProfessional(p models.Professional) models.Professional {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = m.Now()
	}
	m.data.professionals[p.ID] = p
	return p
}

func (m *Memory) AddTemplate(t models.ReminderTemplate) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	m.data.templates = append(m.data.templates, t)
}

func (m *Memory) SetExceptions(companyID uuid.UUID, ex holidays.Exceptions) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data.exceptions[companyID] = ex
}

func (m *Memory) Customers() []models.Customer {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Collect(maps.Values(m.data.customers))
}

func (m *Memory) Appointments() []models.Appointment {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := slices.Collect(maps.Values(m.data.appointments))
	slices.SortFunc(out, func(a, b models.Appointment) int { return a.StartsAt.Compare(b.StartsAt) })
	return out
}

func (m *Memory) Invoices() []models.Invoice {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Collect(maps.Values(m.data.invoices))
}

func (m *Memory) MessageLogs() []models.MessageLog {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.data.logs)
}

// Store methods.

func (m *Memory) GetCompany(_ context.Context, companyID uuid.UUID) (models.Company, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.data.companies[companyID]
	if !ok {
		return models.Company{}, models.ErrNotFound
	}
	return c, nil
}

func (m *Memory) CompanyByWhatsAppNumber(_ context.Context, number string) (models.Company, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.data.companies {
		if c.WhatsAppNumber == number {
			return c, nil
		}
	}
	return models.Company{}, models.ErrNotFound
}

func (m *Memory) SaveCompanySettings(_ context.Context, c models.Company) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.data.companies[c.ID]
	if !ok {
		return models.ErrNotFound
	}
	cur.Timezone = c.Timezone
	cur.NationalHolidays, cur.StateHolidays, cur.CityHolidays = c.NationalHolidays, c.StateHolidays, c.CityHolidays
	cur.LunchBreakEnabled, cur.LunchBreakStart, cur.LunchBreakEnd = c.LunchBreakEnabled, c.LunchBreakStart, c.LunchBreakEnd
	cur.WhatsAppNotifications = c.WhatsAppNotifications
	m.data.companies[c.ID] = cur
	return nil
}

func (m *Memory) GetService(_ context.Context, companyID, serviceID uuid.UUID) (models.Service, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.data.services[serviceID]
	if !ok || s.CompanyID != companyID {
		return models.Service{}, models.ErrNotFound
	}
	return s, nil
}

func (m *Memory) LockService(ctx context.Context, companyID, serviceID uuid.UUID) (models.Service, error) {
	return m.GetService(ctx, companyID, serviceID)
}

func (m *Memory) ActiveServices(_ context.Context, companyID uuid.UUID) ([]models.Service, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Service
	for _, s := range m.data.services {
		if s.CompanyID == companyID && s.IsActive {
			out = append(out, s)
		}
	}
	slices.SortFunc(out, func(a, b models.Service) int {
		if c := strings.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return strings.Compare(a.ID.String(), b.ID.String())
	})
	return out, nil
}

func (m *Memory) ListServices(_ context.Context, companyID uuid.UUID) ([]models.Service, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Service
	for _, s := range m.data.services {
		if s.CompanyID == companyID {
			out = append(out, s)
		}
	}
	slices.SortFunc(out, func(a, b models.Service) int {
		if c := strings.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return strings.Compare(a.ID.String(), b.ID.String())
	})
	return out, nil
}

func (m *Memory) CreateService(_ context.Context, svc *models.Service) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if svc.ID == uuid.Nil {
		svc.ID = uuid.New()
	}
	svc.CreatedAt, svc.UpdatedAt = m.Now(), m.Now()
	m.data.services[svc.ID] = *svc
	return nil
}

func (m *Memory) SaveService(_ context.Context, svc *models.Service) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.data.services[svc.ID]
	if !ok || cur.CompanyID != svc.CompanyID {
		return models.ErrNotFound
	}
	svc.CreatedAt, svc.UpdatedAt = cur.CreatedAt, m.Now()
	m.data.services[svc.ID] = *svc
	return nil
}

func (m *Memory) FirstActiveProfessional(_ context.Context, companyID uuid.UUID) (models.Professional, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var found *models.Professional
	for _, p := range m.data.professionals {
		if p.CompanyID != companyID || !p.IsActive {
			continue
		}
		if found == nil || p.CreatedAt.Before(found.CreatedAt) {
			found = &p
		}
	}
	if found == nil {
		return models.Professional{}, models.ErrNotFound
	}
	return *found, nil
}

func (m *Memory) CalendarExceptions(_ context.Context, companyID uuid.UUID, _, _ time.Time) (holidays.Exceptions, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data.exceptions[companyID], nil
}

func (m *Memory) ActiveAppointments(_ context.Context, companyID, serviceID uuid.UUID, from, to time.Time) ([]models.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	from, to = utils.DateOnly(from), utils.DateOnly(to)
	var out []models.Appointment
	for _, a := range m.data.appointments {
		day := utils.DateOnly(a.Day())
		if a.CompanyID != companyID || a.ServiceID != serviceID || !a.Status.Active() {
			continue
		}
		if day.Before(from) || day.After(to) {
			continue
		}
		out = append(out, a)
	}
	slices.SortFunc(out, func(a, b models.Appointment) int { return a.StartsAt.Compare(b.StartsAt) })
	return out, nil
}

func (m *Memory) CreateAppointment(_ context.Context, a *models.Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a.Status.Active() {
		for _, other := range m.data.appointments {
			if other.CompanyID == a.CompanyID && other.ServiceID == a.ServiceID && other.Status.Active() &&
				a.StartsAt.Before(other.EndsAt) && other.StartsAt.Before(a.EndsAt) {
				return fmt.Errorf("%w: appointments_no_overlap", models.ErrConflict)
			}
		}
	}
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	a.CreatedAt = m.Now()
	a.UpdatedAt = a.CreatedAt
	m.data.appointments[a.ID] = *a
	return nil
}

func (m *Memory) GetAppointment(_ context.Context, companyID, id uuid.UUID) (models.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.data.appointments[id]
	if !ok || a.CompanyID != companyID {
		return models.Appointment{}, models.ErrNotFound
	}
	return a, nil
}

func (m *Memory) SaveAppointmentStatus(_ context.Context, a models.Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.data.appointments[a.ID]
	if !ok || cur.CompanyID != a.CompanyID {
		return models.ErrNotFound
	}
	cur.Status = a.Status
	cur.ConfirmedAt = a.ConfirmedAt
	cur.CancelledAt = a.CancelledAt
	cur.CompletedAt = a.CompletedAt
	m.data.appointments[a.ID] = cur
	return nil
}

func (m *Memory) MarkNoShows(_ context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, a := range m.data.appointments {
		if a.Status == models.StatusPending && a.StartsAt.Before(before) {
			a.Status = models.StatusNoShow
			m.data.appointments[id] = a
			n++
		}
	}
	return n, nil
}

func (m *Memory) UpcomingAppointments(_ context.Context, companyID, customerID uuid.UUID, from time.Time, limit int) ([]models.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Appointment
	for _, a := range m.data.appointments {
		if a.CompanyID == companyID && a.CustomerID == customerID && a.Status.Active() && !a.StartsAt.Before(from) {
			a.Service = m.data.services[a.ServiceID]
			out = append(out, a)
		}
	}
	slices.SortFunc(out, func(a, b models.Appointment) int { return a.StartsAt.Compare(b.StartsAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) AppointmentsStartingBetween(_ context.Context, from, to time.Time, statuses []models.AppointmentStatus) ([]models.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Appointment
	for _, a := range m.data.appointments {
		if a.StartsAt.Before(from) || !a.StartsAt.Before(to) || !slices.Contains(statuses, a.Status) {
			continue
		}
		a.Company = m.data.companies[a.CompanyID]
		a.Customer = m.data.customers[a.CustomerID]
		a.Service = m.data.services[a.ServiceID]
		out = append(out, a)
	}
	slices.SortFunc(out, func(a, b models.Appointment) int { return a.StartsAt.Compare(b.StartsAt) })
	return out, nil
}

func (m *Memory) CreateInvoice(_ context.Context, inv *models.Invoice) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, other := range m.data.invoices {
		if other.AppointmentID == inv.AppointmentID || other.InvoiceNumber == inv.InvoiceNumber {
			return fmt.Errorf("%w: invoice", models.ErrConflict)
		}
	}
	if inv.ID == uuid.Nil {
		inv.ID = uuid.New()
	}
	m.data.invoices[inv.ID] = *inv
	return nil
}

func (m *Memory) InvoiceByAppointment(_ context.Context, companyID, appointmentID uuid.UUID) (models.Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, inv := range m.data.invoices {
		if inv.CompanyID == companyID && inv.AppointmentID == appointmentID {
			return inv, nil
		}
	}
	return models.Invoice{}, models.ErrNotFound
}

func (m *Memory) RecordVisit(_ context.Context, customerID uuid.UUID, amount decimal.Decimal, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.data.customers[customerID]
	if !ok {
		return models.ErrNotFound
	}
	c.TotalVisits++
	c.TotalSpent = c.TotalSpent.Add(amount)
	c.LastVisit = &at
	m.data.customers[customerID] = c
	return nil
}

func (m *Memory) LockCustomerByPhone(_ context.Context, companyID uuid.UUID, phone string) (models.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.data.customers {
		if c.CompanyID == companyID && c.Phone == phone {
			return c, nil
		}
	}
	return models.Customer{}, models.ErrNotFound
}

func (m *Memory) CustomerByDocument(_ context.Context, companyID uuid.UUID, document string, exclude uuid.UUID) (models.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.data.customers {
		if c.CompanyID == companyID && c.Document == document && c.ID != exclude {
			return c, nil
		}
	}
	return models.Customer{}, models.ErrNotFound
}

func (m *Memory) CreateCustomer(_ context.Context, c *models.Customer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return m.putCustomer(*c)
}

func (m *Memory) SaveCustomer(_ context.Context, c *models.Customer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.putCustomer(*c)
}

func (m *Memory) putCustomer(c models.Customer) error {
	for _, other := range m.data.customers {
		if other.ID != c.ID && other.CompanyID == c.CompanyID && other.Phone == c.Phone {
			return fmt.Errorf("%w: idx_company_phone", models.ErrConflict)
		}
	}
	m.data.customers[c.ID] = c
	return nil
}

func (m *Memory) DeleteCustomer(_ context.Context, companyID, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.data.customers[id]; ok && c.CompanyID == companyID {
		delete(m.data.customers, id)
	}
	return nil
}

func (m *Memory) AppendMessageLog(_ context.Context, l *models.MessageLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l.ID = uuid.New()
	if l.CreatedAt.IsZero() {
		l.CreatedAt = m.Now()
	}
	m.data.logs = append(m.data.logs, *l)
	return nil
}

func (m *Memory) HasInboundSince(_ context.Context, companyID uuid.UUID, phone string, since time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.ContainsFunc(m.data.logs, func(l models.MessageLog) bool {
		return l.CompanyID == companyID && l.Phone == phone &&
			l.Direction == models.DirectionIncoming && !l.CreatedAt.Before(since)
	}), nil
}

func (m *Memory) TagSentSince(_ context.Context, appointmentID uuid.UUID, tag string, since time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.ContainsFunc(m.data.logs, func(l models.MessageLog) bool {
		return l.AppointmentID != nil && *l.AppointmentID == appointmentID && l.Tag == tag &&
			l.Direction == models.DirectionOutgoing && !l.CreatedAt.Before(since)
	}), nil
}

func (m *Memory) ReminderTemplate(_ context.Context, companyID uuid.UUID, kind string) (models.ReminderTemplate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.data.templates {
		if t.CompanyID == companyID && t.Type == kind && t.IsActive {
			return t, nil
		}
	}
	return models.ReminderTemplate{}, models.ErrNotFound
}

func (m *Memory) ListReminderTemplates(_ context.Context, companyID uuid.UUID) ([]models.ReminderTemplate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.ReminderTemplate
	for _, t := range m.data.templates {
		if t.CompanyID == companyID {
			out = append(out, t)
		}
	}
	slices.SortFunc(out, func(a, b models.ReminderTemplate) int { return strings.Compare(a.Type, b.Type) })
	return out, nil
}

func (m *Memory) SaveReminderTemplate(_ context.Context, t *models.ReminderTemplate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.Now()
	for i, cur := range m.data.templates {
		if cur.CompanyID == t.CompanyID && cur.Type == t.Type {
			cur.Message, cur.IsActive, cur.UpdatedAt = t.Message, t.IsActive, now
			m.data.templates[i] = cur
			*t = cur
			return nil
		}
	}
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	t.CreatedAt, t.UpdatedAt = now, now
	m.data.templates = append(m.data.templates, *t)
	return nil
}

// Date is a convenience for building civil dates in fixtures.
func Date(y int, m time.Month, d int) datatypes.Date {
	return datatypes.Date(time.Date(y, m, d, 0, 0, 0, 0, time.UTC))
}
