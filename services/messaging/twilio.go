package messaging

import (
	"context"
	"errors"
	"strings"
	"time"

	"agenda-backend/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
	"go.uber.org/zap"
)

// FreeWindow is how long after a customer's last message replies are
// not billed as business-initiated conversations.
const FreeWindow = 24 * time.Hour

var paidMessageCost = decimal.RequireFromString("0.005")

type LogStore interface {
	AppendMessageLog(ctx context.Context, m *models.MessageLog) error
	HasInboundSince(ctx context.Context, companyID uuid.UUID, phone string, since time.Time) (bool, error)
}

type messageCreator interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

type TwilioSender struct {
	api    messageCreator
	from   string
	store  LogStore
	now    func() time.Time
	logger *zap.Logger
}

func NewTwilioSender(accountSID, authToken, defaultFrom string, store LogStore, logger *zap.Logger) *TwilioSender {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return newTwilioSender(client.Api, defaultFrom, store, logger)
}

func newTwilioSender(api messageCreator, defaultFrom string, store LogStore, logger *zap.Logger) *TwilioSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TwilioSender{api: api, from: defaultFrom, store: store, now: time.Now, logger: logger}
}

func (s *TwilioSender) Send(ctx context.Context, msg Outbound) (string, error) {
	from := msg.From
	if from == "" {
		from = s.from
	}
	if from == "" {
		return "", errors.New("no WhatsApp sender number configured")
	}
	body := Render(msg.Body, msg.Buttons)

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(whatsAppAddress(msg.To))
	params.SetFrom(whatsAppAddress(from))
	params.SetBody(body)

	entry := models.MessageLog{
		CompanyID:     msg.CompanyID,
		CustomerID:    msg.CustomerID,
		AppointmentID: msg.AppointmentID,
		Phone:         msg.To,
		Direction:     models.DirectionOutgoing,
		Message:       body,
		Tag:           msg.Tag,
		Channel:       "whatsapp",
		Status:        "sent",
	}
	entry.Paid, entry.Cost = s.billing(ctx, msg)

	resp, err := s.api.CreateMessage(params)
	var sid string
	if err != nil {
		entry.Status = "failed"
		entry.ErrorMessage = err.Error()
		s.logger.Error("Failed to send WhatsApp message", zap.String("to", msg.To), zap.Error(err))
	} else {
		if resp.Sid != nil {
			sid = *resp.Sid
		}
		if resp.Status != nil {
			entry.Status = *resp.Status
		}
		s.logger.Debug("WhatsApp message sent", zap.String("to", msg.To), zap.String("sid", sid))
	}
	entry.MessageSID = sid

	if logErr := s.store.AppendMessageLog(ctx, &entry); logErr != nil {
		s.logger.Error("Failed to log outgoing message", zap.String("to", msg.To), zap.Error(logErr))
	}
	return sid, err
}

// billing reports whether the message falls outside the free window.
func (s *TwilioSender) billing(ctx context.Context, msg Outbound) (bool, decimal.Decimal) {
	inWindow, err := s.store.HasInboundSince(ctx, msg.CompanyID, msg.To, s.now().Add(-FreeWindow))
	if err != nil {
		s.logger.Warn("Could not check free window", zap.Error(err))
	}
	if inWindow {
		return false, decimal.Zero
	}
	return true, paidMessageCost
}

func whatsAppAddress(phone string) string {
	if strings.HasPrefix(phone, "whatsapp:") {
		return phone
	}
	return "whatsapp:" + phone
}

// DryRunSender logs messages instead of delivering them. Used when no
// gateway credentials are configured.
type DryRunSender struct {
	store  LogStore
	logger *zap.Logger
}

func NewDryRunSender(store LogStore, logger *zap.Logger) *DryRunSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DryRunSender{store: store, logger: logger}
}

func (s *DryRunSender) Send(ctx context.Context, msg Outbound) (string, error) {
	body := Render(msg.Body, msg.Buttons)
	s.logger.Info("WhatsApp dry run", zap.String("to", msg.To), zap.String("body", body))
	entry := models.MessageLog{
		CompanyID:     msg.CompanyID,
		CustomerID:    msg.CustomerID,
		AppointmentID: msg.AppointmentID,
		Phone:         msg.To,
		Direction:     models.DirectionOutgoing,
		Message:       body,
		Tag:           msg.Tag,
		Channel:       "whatsapp",
		Status:        "dry_run",
	}
	if err := s.store.AppendMessageLog(ctx, &entry); err != nil {
		s.logger.Error("Failed to log outgoing message", zap.Error(err))
	}
	return "", nil
}
