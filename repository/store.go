// Package repository persists the booking domain. Store talks to
// PostgreSQL through gorm; Memory keeps everything in process.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"agenda-backend/models"
	"agenda-backend/services/holidays"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	pgUniqueViolation    = "23505"
	pgExclusionViolation = "23P01"
)

type txKey struct{}

type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// DB exposes the pool for seeding and migrations.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// conn returns the transaction carried by ctx, or the pool.
func (s *Store) conn(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx.WithContext(ctx)
	}
	return s.db.WithContext(ctx)
}

// InTx runs fn in a transaction. Nested calls open a savepoint.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation, pgExclusionViolation:
			return fmt.Errorf("%w: %s", models.ErrConflict, pgErr.ConstraintName)
		}
	}
	return err
}

func (s *Store) GetCompany(ctx context.Context, companyID uuid.UUID) (models.Company, error) {
	var company models.Company
	err := s.conn(ctx).Where("id = ?", companyID).First(&company).Error
	return company, translate(err)
}

func (s *Store) CompanyByWhatsAppNumber(ctx context.Context, number string) (models.Company, error) {
	var company models.Company
	err := s.conn(ctx).Where("whats_app_number = ?", number).First(&company).Error
	return company, translate(err)
}

// SaveCompanySettings writes the scheduling settings of a company.
func (s *Store) SaveCompanySettings(ctx context.Context, c models.Company) error {
	res := s.conn(ctx).Model(&models.Company{}).Where("id = ?", c.ID).
		Select("timezone", "national_holidays", "state_holidays", "city_holidays",
			"lunch_break_enabled", "lunch_break_start", "lunch_break_end", "whats_app_notifications").
		Updates(&c)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (s *Store) GetService(ctx context.Context, companyID, serviceID uuid.UUID) (models.Service, error) {
	var service models.Service
	err := s.conn(ctx).Where("company_id = ? AND id = ?", companyID, serviceID).First(&service).Error
	return service, translate(err)
}

// LockService loads the service row FOR UPDATE. Bookings of the same
// service serialize on it.
func (s *Store) LockService(ctx context.Context, companyID, serviceID uuid.UUID) (models.Service, error) {
	var service models.Service
	err := s.conn(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("company_id = ? AND id = ?", companyID, serviceID).
		First(&service).Error
	return service, translate(err)
}

func (s *Store) ActiveServices(ctx context.Context, companyID uuid.UUID) ([]models.Service, error) {
	var services []models.Service
	err := s.conn(ctx).Where("company_id = ? AND is_active = ?", companyID, true).
		Order("name, id").Find(&services).Error
	return services, translate(err)
}

func (s *Store) ListServices(ctx context.Context, companyID uuid.UUID) ([]models.Service, error) {
	var services []models.Service
	err := s.conn(ctx).Where("company_id = ?", companyID).Order("name, id").Find(&services).Error
	return services, translate(err)
}

func (s *Store) CreateService(ctx context.Context, svc *models.Service) error {
	return translate(s.conn(ctx).Create(svc).Error)
}

func (s *Store) SaveService(ctx context.Context, svc *models.Service) error {
	res := s.conn(ctx).Model(svc).Where("company_id = ?", svc.CompanyID).Select("*").Omit("created_at").Updates(svc)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (s *Store) FirstActiveProfessional(ctx context.Context, companyID uuid.UUID) (models.Professional, error) {
	var p models.Professional
	err := s.conn(ctx).Where("company_id = ? AND is_active = ?", companyID, true).
		Order("created_at, id").First(&p).Error
	return p, translate(err)
}

func (s *Store) CalendarExceptions(ctx context.Context, companyID uuid.UUID, from, to time.Time) (holidays.Exceptions, error) {
	var ex holidays.Exceptions
	db := s.conn(ctx)

	if err := db.Where("company_id = ? AND enabled AND date BETWEEN ? AND ?", companyID, from, to).
		Find(&ex.CustomHolidays).Error; err != nil {
		return ex, translate(err)
	}
	if err := db.Where("company_id = ? AND enabled AND start_date <= ? AND end_date >= ?", companyID, to, from).
		Find(&ex.Bridges).Error; err != nil {
		return ex, translate(err)
	}
	if err := db.Where("company_id = ? AND enabled AND start_date <= ? AND end_date >= ?", companyID, to, from).
		Find(&ex.Blocks).Error; err != nil {
		return ex, translate(err)
	}
	if err := db.Where("company_id = ? AND enabled AND date BETWEEN ? AND ?", companyID, from, to).
		Find(&ex.Unblocks).Error; err != nil {
		return ex, translate(err)
	}
	return ex, nil
}

func (s *Store) ActiveAppointments(ctx context.Context, companyID, serviceID uuid.UUID, from, to time.Time) ([]models.Appointment, error) {
	var appts []models.Appointment
	err := s.conn(ctx).
		Where("company_id = ? AND service_id = ? AND date BETWEEN ? AND ? AND status IN ?",
			companyID, serviceID, from, to, models.ActiveStatuses).
		Order("date, start_time").
		Find(&appts).Error
	return appts, translate(err)
}

func (s *Store) CreateAppointment(ctx context.Context, a *models.Appointment) error {
	return translate(s.conn(ctx).Create(a).Error)
}

func (s *Store) GetAppointment(ctx context.Context, companyID, id uuid.UUID) (models.Appointment, error) {
	var a models.Appointment
	err := s.conn(ctx).Where("company_id = ? AND id = ?", companyID, id).First(&a).Error
	return a, translate(err)
}

// SaveAppointmentStatus persists the status and lifecycle timestamps.
func (s *Store) SaveAppointmentStatus(ctx context.Context, a models.Appointment) error {
	res := s.conn(ctx).Model(&models.Appointment{}).
		Where("company_id = ? AND id = ?", a.CompanyID, a.ID).
		Updates(map[string]any{
			"status":       a.Status,
			"confirmed_at": a.ConfirmedAt,
			"cancelled_at": a.CancelledAt,
			"completed_at": a.CompletedAt,
		})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (s *Store) MarkNoShows(ctx context.Context, before time.Time) (int64, error) {
	res := s.conn(ctx).Model(&models.Appointment{}).
		Where("status = ? AND starts_at < ?", models.StatusPending, before).
		Update("status", models.StatusNoShow)
	return res.RowsAffected, translate(res.Error)
}

func (s *Store) UpcomingAppointments(ctx context.Context, companyID, customerID uuid.UUID, from time.Time, limit int) ([]models.Appointment, error) {
	var appts []models.Appointment
	err := s.conn(ctx).Preload("Service").
		Where("company_id = ? AND customer_id = ? AND starts_at >= ? AND status IN ?",
			companyID, customerID, from, models.ActiveStatuses).
		Order("starts_at").Limit(limit).
		Find(&appts).Error
	return appts, translate(err)
}

func (s *Store) AppointmentsStartingBetween(ctx context.Context, from, to time.Time, statuses []models.AppointmentStatus) ([]models.Appointment, error) {
	var appts []models.Appointment
	err := s.conn(ctx).Preload("Company").Preload("Customer").Preload("Service").
		Where("starts_at >= ? AND starts_at < ? AND status IN ?", from, to, statuses).
		Order("starts_at").
		Find(&appts).Error
	return appts, translate(err)
}

func (s *Store) CreateInvoice(ctx context.Context, inv *models.Invoice) error {
	return translate(s.conn(ctx).Create(inv).Error)
}

func (s *Store) InvoiceByAppointment(ctx context.Context, companyID, appointmentID uuid.UUID) (models.Invoice, error) {
	var inv models.Invoice
	err := s.conn(ctx).Preload("Items").
		Where("company_id = ? AND appointment_id = ?", companyID, appointmentID).
		First(&inv).Error
	return inv, translate(err)
}

func (s *Store) RecordVisit(ctx context.Context, customerID uuid.UUID, amount decimal.Decimal, at time.Time) error {
	return translate(s.conn(ctx).Model(&models.Customer{}).
		Where("id = ?", customerID).
		Updates(map[string]any{
			"total_visits": gorm.Expr("total_visits + 1"),
			"total_spent":  gorm.Expr("total_spent + ?", amount),
			"last_visit":   at,
		}).Error)
}

// LockCustomerByPhone loads the customer FOR UPDATE so concurrent messages
// from the same phone are handled one after another.
func (s *Store) LockCustomerByPhone(ctx context.Context, companyID uuid.UUID, phone string) (models.Customer, error) {
	var c models.Customer
	err := s.conn(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("company_id = ? AND phone = ?", companyID, phone).
		First(&c).Error
	return c, translate(err)
}

func (s *Store) CustomerByDocument(ctx context.Context, companyID uuid.UUID, document string, exclude uuid.UUID) (models.Customer, error) {
	var c models.Customer
	err := s.conn(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("company_id = ? AND document = ? AND id <> ?", companyID, document, exclude).
		First(&c).Error
	return c, translate(err)
}

func (s *Store) CreateCustomer(ctx context.Context, c *models.Customer) error {
	return translate(s.conn(ctx).Create(c).Error)
}

func (s *Store) SaveCustomer(ctx context.Context, c *models.Customer) error {
	return translate(s.conn(ctx).Save(c).Error)
}

func (s *Store) DeleteCustomer(ctx context.Context, companyID, id uuid.UUID) error {
	return translate(s.conn(ctx).Where("company_id = ? AND id = ?", companyID, id).
		Delete(&models.Customer{}).Error)
}

func (s *Store) AppendMessageLog(ctx context.Context, m *models.MessageLog) error {
	return translate(s.conn(ctx).Create(m).Error)
}

func (s *Store) HasInboundSince(ctx context.Context, companyID uuid.UUID, phone string, since time.Time) (bool, error) {
	var count int64
	err := s.conn(ctx).Model(&models.MessageLog{}).
		Where("company_id = ? AND phone = ? AND direction = ? AND created_at >= ?",
			companyID, phone, models.DirectionIncoming, since).
		Count(&count).Error
	return count > 0, translate(err)
}

func (s *Store) TagSentSince(ctx context.Context, appointmentID uuid.UUID, tag string, since time.Time) (bool, error) {
	var count int64
	err := s.conn(ctx).Model(&models.MessageLog{}).
		Where("appointment_id = ? AND tag = ? AND direction = ? AND created_at >= ?",
			appointmentID, tag, models.DirectionOutgoing, since).
		Count(&count).Error
	return count > 0, translate(err)
}

func (s *Store) ReminderTemplate(ctx context.Context, companyID uuid.UUID, kind string) (models.ReminderTemplate, error) {
	var t models.ReminderTemplate
	err := s.conn(ctx).Where("company_id = ? AND type = ? AND is_active = ?", companyID, kind, true).
		Order("updated_at DESC").First(&t).Error
	return t, translate(err)
}

func (s *Store) ListReminderTemplates(ctx context.Context, companyID uuid.UUID) ([]models.ReminderTemplate, error) {
	var templates []models.ReminderTemplate
	err := s.conn(ctx).Where("company_id = ?", companyID).Order("type").Find(&templates).Error
	return templates, translate(err)
}

// SaveReminderTemplate inserts the template or replaces the message and
// active flag of the existing one of the same type.
func (s *Store) SaveReminderTemplate(ctx context.Context, t *models.ReminderTemplate) error {
	err := s.conn(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "company_id"}, {Name: "type"}},
		DoUpdates: clause.AssignmentColumns([]string{"message", "is_active", "updated_at"}),
	}).Create(t).Error
	if err != nil {
		return translate(err)
	}
	return translate(s.conn(ctx).Where("company_id = ? AND type = ?", t.CompanyID, t.Type).First(t).Error)
}
