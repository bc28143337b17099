package chatflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"agenda-backend/models"
	"agenda-backend/services/booking"
	"agenda-backend/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func (e *Engine) onChoice(t *turn) (State, Reply, error) {
	newCustomer, changed := classifyChoice(t.text)
	switch {
	case newCustomer:
		return AwaitingName{}, Reply{Text: "Welcome! What is your full name?"}, nil
	case changed:
		return AwaitingDocument{}, documentPrompt(""), nil
	}
	return AwaitingChoice{}, choiceReply(), nil
}

func documentPrompt(prefix string) Reply {
	text := "Please send the CPF registered with us (numbers only)."
	if prefix != "" {
		text = prefix + " " + text
	}
	return Reply{Text: text}
}

func (e *Engine) onDocument(ctx context.Context, t *turn) (State, Reply, error) {
	document := utils.Digits(t.text)
	if len(document) != 11 && len(document) != 14 {
		return AwaitingDocument{}, documentPrompt("That doesn't look like a valid document."), nil
	}

	previous, err := e.store.CustomerByDocument(ctx, t.company.ID, document, t.customer.ID)
	switch {
	case err == nil:
		// The old record adopts this phone; the temporary one goes away.
		if err := e.store.DeleteCustomer(ctx, t.company.ID, t.customer.ID); err != nil {
			return nil, Reply{}, fmt.Errorf("delete temporary customer: %w", err)
		}
		previous.Phone = t.customer.Phone
		t.customer = &previous
		e.opts.Logger.Info("Customer recovered by document", zap.String("customer_id", previous.ID.String()))
		return Menu{}, menuReply(fmt.Sprintf("Welcome back, %s! Your new number is now linked to your account.", previous.Name)), nil
	case !errors.Is(err, models.ErrNotFound):
		return nil, Reply{}, err
	}

	t.customer.Document = document
	if t.customer.Registered() {
		return Menu{}, menuReply("Document saved."), nil
	}
	return AwaitingName{}, Reply{Text: "We couldn't find an account with that document, so let's register you. What is your full name?"}, nil
}

func (e *Engine) onName(t *turn) (State, Reply, error) {
	if folded := utils.Fold(t.text); folded == "changed" || folded == "mudei" || folded == "mudei de numero" {
		return AwaitingDocument{}, documentPrompt(""), nil
	}
	name := strings.Join(strings.Fields(t.text), " ")
	if len([]rune(name)) < 2 {
		return AwaitingName{}, Reply{Text: "Please tell me your full name."}, nil
	}
	t.customer.Name = name
	return AwaitingEmail{}, Reply{Text: fmt.Sprintf("Nice to meet you, %s! What is your email address?", firstName(name))}, nil
}

func (e *Engine) onEmail(t *turn) (State, Reply, error) {
	email := strings.ToLower(strings.TrimSpace(t.text))
	if !utils.ValidateEmail(email) {
		return AwaitingEmail{}, Reply{Text: "That doesn't look like a valid email. Please try again (e.g. name@example.com)."}, nil
	}
	t.customer.Email = email
	return Menu{}, menuReply("All set, your registration is complete! 🎉"), nil
}

func (e *Engine) onMenu(ctx context.Context, t *turn) (State, Reply, error) {
	switch classify(t.text) {
	case intentBook:
		services, err := e.services(ctx, t)
		if err != nil {
			return nil, Reply{}, err
		}
		if len(services) == 0 {
			return Menu{}, unavailableReply(t.company), nil
		}
		return AwaitingService{}, servicesReply("", services), nil
	case intentBookings:
		appts, err := e.store.UpcomingAppointments(ctx, t.company.ID, t.customer.ID, t.now, e.opts.MaxBookings)
		if err != nil {
			return nil, Reply{}, err
		}
		return Menu{}, bookingsReply(appts), nil
	case intentAgent:
		return Menu{}, Reply{Text: "An attendant will reply shortly. 🙋"}, nil
	case intentGreeting:
		return Menu{}, menuReply(fmt.Sprintf("Hi, %s!", firstName(t.customer.Name))), nil
	}
	return Menu{}, menuReply("Sorry, I didn't understand."), nil
}

func (e *Engine) onService(ctx context.Context, t *turn) (State, Reply, error) {
	if isEscape(t.text) {
		return Menu{}, menuReply(""), nil
	}
	services, err := e.services(ctx, t)
	if err != nil {
		return nil, Reply{}, err
	}
	if len(services) == 0 {
		return Menu{}, unavailableReply(t.company), nil
	}

	chosen, ok := matchService(t.text, services)
	if !ok {
		return AwaitingService{}, servicesReply("Please choose one of the options.", services), nil
	}
	return AwaitingShift{ServiceID: chosen.ID}, shiftReply(fmt.Sprintf("Great, *%s*.", chosen.Name)), nil
}

func (e *Engine) onShift(ctx context.Context, t *turn, s AwaitingShift) (State, Reply, error) {
	if isEscape(t.text) {
		return Menu{}, menuReply(""), nil
	}
	shift, ok := classifyShift(t.text)
	if !ok {
		return s, shiftReply("Please choose morning or afternoon."), nil
	}
	return e.offerDays(ctx, t, s.ServiceID, shift, "")
}

func (e *Engine) onDate(ctx context.Context, t *turn, s AwaitingDate) (State, Reply, error) {
	if isEscape(t.text) {
		return Menu{}, menuReply(""), nil
	}
	days, err := e.dayOptions(ctx, t, s.ServiceID, s.Shift)
	if err != nil {
		return e.fallback(t, err)
	}
	idx, ok := pick(t.text, len(days))
	if !ok {
		return e.offerDays(ctx, t, s.ServiceID, s.Shift, "Please choose one of the days.")
	}

	date := days[idx]
	times, err := e.shiftTimes(ctx, t, s.ServiceID, s.Shift, date)
	if err != nil {
		return e.fallback(t, err)
	}
	if len(times) == 0 {
		return e.offerDays(ctx, t, s.ServiceID, s.Shift, "That day just filled up.")
	}
	return AwaitingTime{ServiceID: s.ServiceID, Shift: s.Shift, Date: date}, timesReply("", date, times), nil
}

func (e *Engine) onTime(ctx context.Context, t *turn, s AwaitingTime) (State, Reply, error) {
	if isEscape(t.text) {
		return Menu{}, menuReply(""), nil
	}
	times, err := e.shiftTimes(ctx, t, s.ServiceID, s.Shift, s.Date)
	if err != nil {
		return e.fallback(t, err)
	}
	if len(times) == 0 {
		return e.offerDays(ctx, t, s.ServiceID, s.Shift, "That day just filled up.")
	}
	idx, ok := pick(t.text, len(times))
	if !ok {
		return s, timesReply("Please choose one of the times.", s.Date, times), nil
	}

	service, err := e.store.GetService(ctx, t.company.ID, s.ServiceID)
	if err != nil {
		return e.fallback(t, err)
	}
	professional, err := e.store.FirstActiveProfessional(ctx, t.company.ID)
	if errors.Is(err, models.ErrNotFound) {
		e.opts.Logger.Warn("No active professional", zap.String("company_id", t.company.ID.String()))
		return Menu{}, unavailableReply(t.company), nil
	}
	if err != nil {
		return nil, Reply{}, err
	}

	appt, err := e.booker.Create(ctx, booking.CreateRequest{
		CompanyID:      t.company.ID,
		CustomerID:     t.customer.ID,
		ServiceID:      s.ServiceID,
		ProfessionalID: &professional.ID,
		Date:           s.Date,
		StartTime:      times[idx],
		Source:         models.SourceWhatsApp,
	})
	switch {
	case booking.IsConflict(err), errors.Is(err, booking.ErrValidation):
		fresh, ferr := e.shiftTimes(ctx, t, s.ServiceID, s.Shift, s.Date)
		if ferr != nil {
			return e.fallback(t, ferr)
		}
		if len(fresh) == 0 {
			return e.offerDays(ctx, t, s.ServiceID, s.Shift, "Sorry, that time was just taken and the day is now full.")
		}
		return s, timesReply("Sorry, that time was just taken.", s.Date, fresh), nil
	case err != nil:
		return e.fallback(t, err)
	}

	t.booked = &appt.ID
	return Menu{}, confirmationReply(service, appt), nil
}

// offerDays lists the days with free slots in the shift, or gives up and
// returns to the menu when there are none.
func (e *Engine) offerDays(ctx context.Context, t *turn, serviceID uuid.UUID, shift Shift, prefix string) (State, Reply, error) {
	days, err := e.dayOptions(ctx, t, serviceID, shift)
	if err != nil {
		return e.fallback(t, err)
	}
	if len(days) == 0 {
		text := fmt.Sprintf("Sorry, there are no %s times available in the next %d days.", shift, e.opts.DaysAhead)
		if t.company.Phone != "" {
			text += " Please call us at " + t.company.Phone + "."
		}
		return Menu{}, menuReply(text), nil
	}
	today := utils.DateOnly(t.now.In(t.company.Location()))
	return AwaitingDate{ServiceID: serviceID, Shift: shift}, daysReply(prefix, days, today), nil
}

// fallback turns errors caused by stale conversation data into a return to
// the menu; anything else aborts the turn.
func (e *Engine) fallback(t *turn, err error) (State, Reply, error) {
	if errors.Is(err, models.ErrNotFound) {
		return Menu{}, menuReply("That option is no longer available."), nil
	}
	if errors.Is(err, models.ErrConfiguration) {
		e.opts.Logger.Warn("Booking configuration error", zap.String("company_id", t.company.ID.String()), zap.Error(err))
		return Menu{}, unavailableReply(t.company), nil
	}
	return nil, Reply{}, err
}

func (e *Engine) services(ctx context.Context, t *turn) ([]models.Service, error) {
	services, err := e.store.ActiveServices(ctx, t.company.ID)
	if err != nil {
		return nil, err
	}
	if len(services) > e.opts.MaxServices {
		services = services[:e.opts.MaxServices]
	}
	return services, nil
}

func (e *Engine) dayOptions(ctx context.Context, t *turn, serviceID uuid.UUID, shift Shift) ([]time.Time, error) {
	calendar, err := e.calendar.CalendarFor(ctx, t.company.ID, serviceID, e.opts.DaysAhead)
	if err != nil {
		return nil, err
	}
	var days []time.Time
	for _, day := range calendar {
		if !day.HasSlots {
			continue
		}
		for _, slot := range day.Slots {
			if slot.Available && inShift(slot.Time, shift) {
				days = append(days, day.Date)
				break
			}
		}
		if len(days) == e.opts.MaxDays {
			break
		}
	}
	return days, nil
}

func (e *Engine) shiftTimes(ctx context.Context, t *turn, serviceID uuid.UUID, shift Shift, date time.Time) ([]string, error) {
	slots, err := e.calendar.SlotsFor(ctx, t.company.ID, serviceID, date)
	if err != nil {
		return nil, err
	}
	var times []string
	for _, slot := range slots {
		if slot.Available && inShift(slot.Time, shift) {
			times = append(times, slot.Time)
		}
	}
	return times, nil
}

func inShift(clock string, shift Shift) bool {
	minute, err := utils.ParseClock(clock)
	return err == nil && shift.Contains(minute)
}

// matchService accepts a list number, an exact name or a unique partial
// name, ignoring case and accents.
func matchService(text string, services []models.Service) (models.Service, bool) {
	if idx, ok := pick(text, len(services)); ok {
		return services[idx], true
	}
	folded := utils.Fold(text)
	if folded == "" {
		return models.Service{}, false
	}
	var partial []models.Service
	for _, s := range services {
		name := utils.Fold(s.Name)
		if name == folded {
			return s, true
		}
		if strings.Contains(name, folded) {
			partial = append(partial, s)
		}
	}
	if len(partial) == 1 {
		return partial[0], true
	}
	return models.Service{}, false
}

func firstName(name string) string {
	if fields := strings.Fields(name); len(fields) > 0 {
		return fields[0]
	}
	return name
}
