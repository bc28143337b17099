// Package services holds the background jobs that run next to the API.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"agenda-backend/models"
	"agenda-backend/services/messaging"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// DedupWindow is how long a sent reminder blocks another one with the
// same tag for the same appointment.
const DedupWindow = 2 * time.Hour

type ReminderStore interface {
	AppointmentsStartingBetween(ctx context.Context, from, to time.Time, statuses []models.AppointmentStatus) ([]models.Appointment, error)
	TagSentSince(ctx context.Context, appointmentID uuid.UUID, tag string, since time.Time) (bool, error)
	ReminderTemplate(ctx context.Context, companyID uuid.UUID, kind string) (models.ReminderTemplate, error)
}

type NoShowSweeper interface {
	SweepNoShows(ctx context.Context) (int64, error)
}

type RunReport struct {
	Sent    map[string]int `json:"sent"`
	Skipped int            `json:"skipped"`
	Failed  int            `json:"failed"`
	NoShows int64          `json:"noShows"`
}

// reminderPass selects appointments by how far their start is from now.
// Windows are at least an hour wide so an hourly schedule reaches every
// slot; DedupWindow keeps a tag from going out twice.
type reminderPass struct {
	tag      string
	from, to time.Duration
	statuses []models.AppointmentStatus
	// once means the tag is never sent twice for an appointment.
	once bool
}

var reminderPasses = []reminderPass{
	{tag: models.ReminderDayBefore, from: 24 * time.Hour, to: 25 * time.Hour, statuses: models.ActiveStatuses},
	{tag: models.ReminderSameDay, from: 12 * time.Hour, to: 13 * time.Hour, statuses: []models.AppointmentStatus{models.StatusPending}},
	{tag: models.ReminderHourBefore, from: time.Hour, to: 2 * time.Hour, statuses: models.ActiveStatuses},
	{tag: models.ReminderFeedback, from: -48 * time.Hour, to: -24 * time.Hour, statuses: []models.AppointmentStatus{models.StatusCompleted}, once: true},
}

var defaultTemplates = map[string]string{
	models.ReminderDayBefore: "Hi [CustomerName]! 👋 Reminder: your *[ServiceName]* at [CompanyName] is tomorrow, [Date] at [Time].\n\n" +
		"If you can't make it, please let us know at [CompanyPhone].",
	models.ReminderSameDay: "Hi [CustomerName]! Your *[ServiceName]* on [Date] at [Time] is still pending confirmation. " +
		"Reply to this message or call [CompanyPhone] to confirm.",
	models.ReminderHourBefore: "Hi [CustomerName]! ⏰ See you soon: *[ServiceName]* today at [Time] at [CompanyName].",
	models.ReminderFeedback: "Hi [CustomerName]! Thank you for visiting [CompanyName] for your *[ServiceName]*. " +
		"How was your experience? Reply with a score from 1 to 5. ⭐",
}

type ReminderService struct {
	store   ReminderStore
	sender  messaging.Sender
	sweeper NoShowSweeper
	now     func() time.Time
	logger  *zap.Logger
}

func NewReminderService(store ReminderStore, sender messaging.Sender, sweeper NoShowSweeper, now func() time.Time, logger *zap.Logger) *ReminderService {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReminderService{store: store, sender: sender, sweeper: sweeper, now: now, logger: logger}
}

// StartScheduler runs a pass on every tick of schedule until ctx is done.
func (s *ReminderService) StartScheduler(ctx context.Context, schedule string) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		if _, err := s.Run(ctx); err != nil {
			s.logger.Error("Reminder pass failed", zap.Error(err))
		}
	})
	if err != nil {
		return nil, fmt.Errorf("schedule reminders %q: %w", schedule, err)
	}
	c.Start()
	s.logger.Info("Reminder scheduler started", zap.String("schedule", schedule))

	go func() {
		<-ctx.Done()
		<-c.Stop().Done()
		s.logger.Info("Reminder scheduler stopped")
	}()
	return c, nil
}

// Run sends every reminder that is due and then sweeps no-shows. Failures
// on single appointments are logged and counted; only store errors that
// prevent a whole pass are returned.
func (s *ReminderService) Run(ctx context.Context) (RunReport, error) {
	now := s.now()
	report := RunReport{Sent: map[string]int{}}
	s.logger.Info("Starting reminder pass", zap.Time("now", now))

	var errs []error
	for _, pass := range reminderPasses {
		appts, err := s.store.AppointmentsStartingBetween(ctx, now.Add(pass.from), now.Add(pass.to), pass.statuses)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", pass.tag, err))
			continue
		}
		for _, appt := range appts {
			switch sent, err := s.remind(ctx, pass, appt, now); {
			case err != nil:
				report.Failed++
				s.logger.Error("Failed to send reminder",
					zap.String("appointment_id", appt.ID.String()),
					zap.String("tag", pass.tag),
					zap.Error(err))
			case sent:
				report.Sent[pass.tag]++
			default:
				report.Skipped++
			}
		}
	}

	if s.sweeper != nil {
		n, err := s.sweeper.SweepNoShows(ctx)
		if err != nil {
			errs = append(errs, err)
		}
		report.NoShows = n
	}

	s.logger.Info("Reminder pass completed",
		zap.Any("sent", report.Sent),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", report.Failed),
		zap.Int64("no_shows", report.NoShows))
	return report, errors.Join(errs...)
}

func (s *ReminderService) remind(ctx context.Context, pass reminderPass, appt models.Appointment, now time.Time) (bool, error) {
	if !appt.Company.WhatsAppNotifications || appt.Customer.Phone == "" {
		return false, nil
	}
	since := now.Add(-DedupWindow)
	if pass.once {
		since = time.Time{}
	}
	dup, err := s.store.TagSentSince(ctx, appt.ID, pass.tag, since)
	if err != nil {
		return false, err
	}
	if dup {
		return false, nil
	}

	body, err := s.render(ctx, pass.tag, appt)
	if err != nil {
		return false, err
	}
	customerID, appointmentID := appt.CustomerID, appt.ID
	_, err = s.sender.Send(ctx, messaging.Outbound{
		CompanyID:     appt.CompanyID,
		CustomerID:    &customerID,
		AppointmentID: &appointmentID,
		From:          appt.Company.WhatsAppNumber,
		To:            appt.Customer.Phone,
		Body:          body,
		Tag:           pass.tag,
	})
	return err == nil, err
}

// render fills the company's template for kind, or the built-in text when
// the company has none.
func (s *ReminderService) render(ctx context.Context, kind string, appt models.Appointment) (string, error) {
	text := defaultTemplates[kind]
	tmpl, err := s.store.ReminderTemplate(ctx, appt.CompanyID, kind)
	switch {
	case err == nil:
		text = tmpl.Message
	case !errors.Is(err, models.ErrNotFound):
		return "", fmt.Errorf("load template: %w", err)
	}

	r := strings.NewReplacer(
		"[CustomerName]", firstName(appt.Customer.Name),
		"[ServiceName]", appt.Service.Name,
		"[Date]", appt.Day().Format("02/01/2006"),
		"[Time]", appt.StartTime,
		"[CompanyName]", appt.Company.Name,
		"[CompanyPhone]", appt.Company.Phone,
	)
	return r.Replace(text), nil
}

func firstName(name string) string {
	if fields := strings.Fields(name); len(fields) > 0 {
		return fields[0]
	}
	return name
}
