package chatflow

import (
	"slices"
	"strconv"

	"agenda-backend/utils"
)

type intent int

const (
	intentUnknown intent = iota
	intentGreeting
	intentBook
	intentBookings
	intentAgent
)

var menuKeywords = map[intent][]string{
	intentBook:     {"1", "book", "new", "new booking", "schedule", "agendar", "novo", "marcar"},
	intentBookings: {"2", "bookings", "my bookings", "consultar", "meus agendamentos"},
	intentAgent:    {"3", "agent", "human", "attendant", "atendente"},
	intentGreeting: {"hi", "hello", "menu", "start", "oi", "ola", "inicio", "bom dia", "boa tarde", "boa noite"},
}

func classify(text string) intent {
	folded := utils.Fold(text)
	for _, i := range []intent{intentBook, intentBookings, intentAgent, intentGreeting} {
		if slices.Contains(menuKeywords[i], folded) {
			return i
		}
	}
	return intentUnknown
}

// isEscape reports a request to abandon the booking and go back to the menu.
func isEscape(text string) bool {
	switch utils.Fold(text) {
	case "menu", "cancel", "cancelar", "voltar", "back":
		return true
	}
	return false
}

func classifyShift(text string) (Shift, bool) {
	switch utils.Fold(text) {
	case "1", "morning", "manha", "de manha":
		return Morning, true
	case "2", "afternoon", "tarde", "a tarde":
		return Afternoon, true
	}
	return 0, false
}

func classifyChoice(text string) (newCustomer, changedNumber bool) {
	switch utils.Fold(text) {
	case "1", "new", "novo", "new customer", "sou novo":
		return true, false
	case "2", "changed", "changed number", "mudei", "mudei de numero":
		return false, true
	}
	return false, false
}

// pick maps a 1-based numeric reply onto a list of n options.
func pick(text string, n int) (int, bool) {
	i, err := strconv.Atoi(text)
	if err != nil || i < 1 || i > n {
		return 0, false
	}
	return i - 1, true
}
