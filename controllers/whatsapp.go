package controllers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"agenda-backend/models"
	"agenda-backend/services/chatflow"
	"agenda-backend/services/messaging"
	"agenda-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/twilio/twilio-go/client"
	"go.uber.org/zap"
)

type TenantResolver interface {
	CompanyByWhatsAppNumber(ctx context.Context, number string) (models.Company, error)
}

type Conversation interface {
	Handle(ctx context.Context, in chatflow.Inbound) (chatflow.Reply, error)
}

type WhatsAppController struct {
	tenants      TenantResolver
	conversation Conversation
	sender       messaging.Sender
	countryCode  string
	// validator is nil when signature checks are off.
	validator *client.RequestValidator
	baseURL   string
	logger    *zap.Logger
}

type WhatsAppOptions struct {
	CountryCode string
	// AuthToken enables X-Twilio-Signature validation when set.
	AuthToken string
	// PublicBaseURL is the origin Twilio posts to, used to rebuild the
	// signed URL behind proxies.
	PublicBaseURL string
	Logger        *zap.Logger
}

func NewWhatsAppController(tenants TenantResolver, conversation Conversation, sender messaging.Sender, opts WhatsAppOptions) *WhatsAppController {
	wc := &WhatsAppController{
		tenants:      tenants,
		conversation: conversation,
		sender:       sender,
		countryCode:  opts.CountryCode,
		baseURL:      strings.TrimSuffix(opts.PublicBaseURL, "/"),
		logger:       opts.Logger,
	}
	if wc.logger == nil {
		wc.logger = zap.NewNop()
	}
	if opts.AuthToken != "" {
		v := client.NewRequestValidator(opts.AuthToken)
		wc.validator = &v
	}
	return wc
}

// SenderKey identifies the customer behind a webhook call for rate limiting.
func (wc *WhatsAppController) SenderKey(c *gin.Context) string {
	return utils.NormalizePhone(c.PostForm("From"), wc.countryCode)
}

// Webhook handles one inbound WhatsApp message. The tenant is the company
// that owns the number the message was sent to.
func (wc *WhatsAppController) Webhook(c *gin.Context) {
	if err := c.Request.ParseForm(); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid form body")
		return
	}
	if wc.validator != nil && !wc.validSignature(c) {
		wc.logger.Warn("Rejected webhook with bad signature", zap.String("ip", c.ClientIP()))
		utils.RespondWithError(c, http.StatusForbidden, "Invalid signature")
		return
	}

	from := utils.NormalizePhone(c.PostForm("From"), wc.countryCode)
	to := utils.NormalizePhone(c.PostForm("To"), wc.countryCode)
	if from == "" || to == "" {
		utils.RespondWithError(c, http.StatusBadRequest, "From and To are required")
		return
	}
	if !utils.ValidatePhone(from) {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid sender number")
		return
	}

	ctx := c.Request.Context()
	company, err := wc.tenants.CompanyByWhatsAppNumber(ctx, to)
	if errors.Is(err, models.ErrNotFound) {
		wc.logger.Warn("Message for unknown WhatsApp number", zap.String("to", to))
		utils.RespondWithError(c, http.StatusNotFound, "No company owns this number")
		return
	}
	if err != nil {
		respondDomainError(c, err)
		return
	}

	reply, err := wc.conversation.Handle(ctx, chatflow.Inbound{
		CompanyID:   company.ID,
		Phone:       from,
		Text:        c.PostForm("Body"),
		DisplayName: c.PostForm("ProfileName"),
	})
	if err != nil {
		wc.logger.Error("Conversation turn failed",
			zap.String("company_id", company.ID.String()),
			zap.String("from", from),
			zap.Error(err))
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to process message")
		return
	}

	customerID := reply.CustomerID
	if _, err := wc.sender.Send(ctx, messaging.Outbound{
		CompanyID:     company.ID,
		CustomerID:    &customerID,
		AppointmentID: reply.AppointmentID,
		From:          company.WhatsAppNumber,
		To:            from,
		Body:          reply.Text,
		Buttons:       reply.Buttons,
	}); err != nil {
		wc.logger.Warn("Reply not delivered", zap.String("to", from), zap.Error(err))
	}

	c.JSON(http.StatusOK, reply)
}

func (wc *WhatsAppController) validSignature(c *gin.Context) bool {
	url := wc.baseURL + c.Request.URL.RequestURI()
	if wc.baseURL == "" {
		scheme := "https"
		if c.Request.TLS == nil && c.GetHeader("X-Forwarded-Proto") != "https" {
			scheme = "http"
		}
		url = scheme + "://" + c.Request.Host + c.Request.URL.RequestURI()
	}
	params := make(map[string]string, len(c.Request.PostForm))
	for k, v := range c.Request.PostForm {
		if len(v) > 0 {
			params[k] = v[0]
		}
	}
	return wc.validator.Validate(url, params, c.GetHeader("X-Twilio-Signature"))
}

func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
