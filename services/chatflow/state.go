package chatflow

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"agenda-backend/utils"

	"github.com/google/uuid"
)

var ErrInvalidToken = errors.New("invalid conversation token")

type Shift int

const (
	Morning Shift = iota + 1
	Afternoon
)

func (s Shift) String() string {
	switch s {
	case Morning:
		return "morning"
	case Afternoon:
		return "afternoon"
	}
	return "unknown"
}

// Window returns the shift's [start, end) range in minutes since midnight.
func (s Shift) Window() (int, int) {
	if s == Morning {
		return 8 * 60, 12 * 60
	}
	return 14 * 60, 19 * 60
}

// Contains reports whether a slot starting at minute belongs to the shift.
func (s Shift) Contains(minute int) bool {
	start, end := s.Window()
	return minute >= start && minute < end
}

func parseShift(s string) (Shift, error) {
	switch s {
	case "morning", "manha":
		return Morning, nil
	case "afternoon", "tarde":
		return Afternoon, nil
	}
	return 0, fmt.Errorf("%w: shift %q", ErrInvalidToken, s)
}

// State is one step of the booking conversation. The set of states is
// closed; Token gives the persisted form read back by ParseState.
type State interface {
	Token() string
	isState()
}

type (
	// AwaitingChoice asks an unregistered customer whether they are new or
	// changed their phone number.
	AwaitingChoice struct{}
	// AwaitingDocument waits for the tax id used to recover an account.
	AwaitingDocument struct{}
	AwaitingName     struct{}
	AwaitingEmail    struct{}
	Menu             struct{}
	AwaitingService  struct{}
	AwaitingShift    struct{ ServiceID uuid.UUID }
	AwaitingDate     struct {
		ServiceID uuid.UUID
		Shift     Shift
	}
	AwaitingTime struct {
		ServiceID uuid.UUID
		Shift     Shift
		Date      time.Time
	}
)

func (AwaitingChoice) Token() string   { return "awaiting_choice" }
func (AwaitingDocument) Token() string { return "awaiting_document" }
func (AwaitingName) Token() string     { return "awaiting_name" }
func (AwaitingEmail) Token() string    { return "awaiting_email" }
func (Menu) Token() string             { return "menu" }
func (AwaitingService) Token() string  { return "awaiting_service" }

func (s AwaitingShift) Token() string {
	return "awaiting_shift:" + s.ServiceID.String()
}

func (s AwaitingDate) Token() string {
	return "awaiting_date:" + s.ServiceID.String() + ":" + s.Shift.String()
}

func (s AwaitingTime) Token() string {
	return "awaiting_time:" + s.ServiceID.String() + ":" + s.Shift.String() + ":" + s.Date.Format(utils.DateFormat)
}

func (AwaitingChoice) isState()   {}
func (AwaitingDocument) isState() {}
func (AwaitingName) isState()     {}
func (AwaitingEmail) isState()    {}
func (Menu) isState()             {}
func (AwaitingService) isState()  {}
func (AwaitingShift) isState()    {}
func (AwaitingDate) isState()     {}
func (AwaitingTime) isState()     {}

// ParseState decodes a persisted token. Any malformed or unknown token
// yields ErrInvalidToken.
func ParseState(token string) (State, error) {
	parts := strings.Split(strings.TrimSpace(token), ":")
	name, params := parts[0], parts[1:]

	switch name {
	case "awaiting_choice":
		return noParams(AwaitingChoice{}, params)
	case "awaiting_document", "awaiting_cpf":
		return noParams(AwaitingDocument{}, params)
	case "awaiting_name":
		return noParams(AwaitingName{}, params)
	case "awaiting_email":
		return noParams(AwaitingEmail{}, params)
	case "menu", "registered":
		return noParams(Menu{}, params)
	case "awaiting_service":
		return noParams(AwaitingService{}, params)
	case "awaiting_shift":
		if len(params) != 1 {
			break
		}
		id, err := uuid.Parse(params[0])
		if err != nil {
			break
		}
		return AwaitingShift{ServiceID: id}, nil
	case "awaiting_date":
		if len(params) != 2 {
			break
		}
		id, err := uuid.Parse(params[0])
		if err != nil {
			break
		}
		shift, err := parseShift(params[1])
		if err != nil {
			return nil, err
		}
		return AwaitingDate{ServiceID: id, Shift: shift}, nil
	case "awaiting_time":
		if len(params) != 3 {
			break
		}
		id, err := uuid.Parse(params[0])
		if err != nil {
			break
		}
		shift, err := parseShift(params[1])
		if err != nil {
			return nil, err
		}
		date, err := utils.ParseDate(params[2])
		if err != nil {
			break
		}
		return AwaitingTime{ServiceID: id, Shift: shift, Date: date}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrInvalidToken, token)
}

func noParams(s State, params []string) (State, error) {
	if len(params) != 0 {
		return nil, fmt.Errorf("%w: %s takes no parameters", ErrInvalidToken, s.Token())
	}
	return s, nil
}
