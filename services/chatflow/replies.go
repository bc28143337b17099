package chatflow

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"agenda-backend/models"
	"agenda-backend/services/messaging"
	"agenda-backend/utils"
)

func greetingReply(company models.Company) Reply {
	return Reply{Text: fmt.Sprintf(
		"Hello! 👋 Welcome to *%s*.\n\nTo get started, what is your full name?\n\n"+
			"_Already a customer with another number? Reply CHANGED._", company.Name)}
}

func menuReply(prefix string) Reply {
	text := "How can I help you?"
	if prefix != "" {
		text = prefix + "\n\n" + text
	}
	return Reply{
		Text: text,
		Buttons: []messaging.Button{
			{Label: "Book an appointment", Value: "1"},
			{Label: "My bookings", Value: "2"},
			{Label: "Talk to an attendant", Value: "3"},
		},
	}
}

func choiceReply() Reply {
	return Reply{
		Text: "Are you a new customer or did you change your phone number?",
		Buttons: []messaging.Button{
			{Label: "I'm a new customer", Value: "1"},
			{Label: "I changed my number", Value: "2"},
		},
	}
}

func unavailableReply(company models.Company) Reply {
	text := "Online booking is unavailable right now."
	if company.Phone != "" {
		text += " Please contact us at " + company.Phone + "."
	} else {
		text += " Please contact support."
	}
	return menuReply(text)
}

func servicesReply(prefix string, services []models.Service) Reply {
	text := "Which service would you like?"
	if prefix != "" {
		text = prefix + "\n\n" + text
	}
	buttons := make([]messaging.Button, 0, len(services))
	for i, s := range services {
		buttons = append(buttons, messaging.Button{
			Label: fmt.Sprintf("%s - R$ %s (%d min)", s.Name, s.Price.StringFixed(2), s.Duration),
			Value: strconv.Itoa(i + 1),
		})
	}
	return Reply{Text: text, Buttons: buttons}
}

func shiftReply(prefix string) Reply {
	text := "Which period do you prefer?"
	if prefix != "" {
		text = prefix + "\n\n" + text
	}
	return Reply{
		Text: text,
		Buttons: []messaging.Button{
			{Label: "Morning (08:00 - 12:00)", Value: "1"},
			{Label: "Afternoon (14:00 - 19:00)", Value: "2"},
		},
	}
}

func daysReply(prefix string, days []time.Time, today time.Time) Reply {
	text := "Choose a day:"
	if prefix != "" {
		text = prefix + "\n\n" + text
	}
	buttons := make([]messaging.Button, 0, len(days))
	for i, d := range days {
		buttons = append(buttons, messaging.Button{Label: dayLabel(d, today), Value: strconv.Itoa(i + 1)})
	}
	return Reply{Text: text, Buttons: buttons}
}

func timesReply(prefix string, date time.Time, times []string) Reply {
	text := fmt.Sprintf("Available times on %s:", date.Format("02/01"))
	if prefix != "" {
		text = prefix + "\n\n" + text
	}
	buttons := make([]messaging.Button, 0, len(times))
	for i, t := range times {
		buttons = append(buttons, messaging.Button{Label: t, Value: strconv.Itoa(i + 1)})
	}
	return Reply{Text: text, Buttons: buttons}
}

func bookingsReply(appts []models.Appointment) Reply {
	if len(appts) == 0 {
		return menuReply("You have no upcoming bookings.")
	}
	var b strings.Builder
	b.WriteString("📅 Your upcoming bookings:\n")
	for _, a := range appts {
		fmt.Fprintf(&b, "\n• %s - %s at %s (%s)", a.Service.Name, a.Day().Format("02/01/2006"), a.StartTime, strings.ToLower(string(a.Status)))
	}
	return menuReply(b.String())
}

func confirmationReply(service models.Service, appt models.Appointment) Reply {
	return menuReply(fmt.Sprintf("✅ Booked! *%s* on %s at %s.\n\nWe will send you a reminder before your appointment.",
		service.Name, appt.Day().Format("02/01/2006"), appt.StartTime))
}

func dayLabel(d, today time.Time) string {
	switch utils.DaysBetween(today, d) {
	case 0:
		return "Today " + d.Format("02/01")
	case 1:
		return "Tomorrow " + d.Format("02/01")
	}
	return d.Format("Monday 02/01")
}
