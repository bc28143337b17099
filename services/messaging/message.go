// Package messaging delivers WhatsApp messages and keeps the message log.
package messaging

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

type Button struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

type Outbound struct {
	CompanyID     uuid.UUID
	CustomerID    *uuid.UUID
	AppointmentID *uuid.UUID
	// From is the tenant's gateway number. Empty uses the sender default.
	From    string
	To      string
	Body    string
	Buttons []Button
	// Tag marks reminders for de-duplication.
	Tag string
}

// Sender delivers one message and returns the gateway message id. A
// failed delivery returns an empty id and the error.
type Sender interface {
	Send(ctx context.Context, msg Outbound) (string, error)
}

var numberEmoji = []string{"0️⃣", "1️⃣", "2️⃣", "3️⃣", "4️⃣", "5️⃣", "6️⃣", "7️⃣", "8️⃣", "9️⃣", "🔟"}

// Render appends buttons to body as a numbered list, since the channel
// has no native button control.
func Render(body string, buttons []Button) string {
	if len(buttons) == 0 {
		return body
	}
	var b strings.Builder
	b.WriteString(body)
	b.WriteString("\n\n")
	for i, btn := range buttons {
		n := i + 1
		if n < len(numberEmoji) {
			fmt.Fprintf(&b, "%s %s\n", numberEmoji[n], btn.Label)
		} else {
			fmt.Fprintf(&b, "%d. %s\n", n, btn.Label)
		}
	}
	b.WriteString("\n_Reply with the number of your choice_")
	return b.String()
}
