// Package notify sends a WhatsApp message through Twilio.
package notify

import (
	"errors"
	"fmt"
	"strings"

	"github.com/twilio/twilio-go"
	"github.com/twilio/twilio-go/client"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"
	"go.uber.org/zap"
)

const (
	DefaultFrom = "whatsapp:+14155238886"
	DefaultTo   = "whatsapp:+5516996233199"
)

var (
	ErrMissingCredentials = errors.New("TWILIO_ACCOUNT_SID and TWILIO_AUTH_TOKEN are required")
	ErrNoContent          = errors.New("no message content")
)

const appointmentTemplate = "Agendamento Confirmado!\nNome: %s\nData: %s\nHorário: %s\n\nTelefone: %s\n\nAnote essas informações! Chegue 10 minutos antes do horário agendado."

type Appointment struct {
	Name  string `mapstructure:"name"`
	Date  string `mapstructure:"date"`
	Time  string `mapstructure:"time"`
	Phone string `mapstructure:"phone"`
}

func (a Appointment) empty() bool {
	return a.Name == "" && a.Date == "" && a.Time == "" && a.Phone == ""
}

// Body renders the appointment confirmation; blank fields stay blank.
func (a Appointment) Body() string {
	return fmt.Sprintf(appointmentTemplate, a.Name, a.Date, a.Time, a.Phone)
}

type Config struct {
	AccountSID       string      `mapstructure:"account_sid"`
	AuthToken        string      `mapstructure:"auth_token"`
	From             string      `mapstructure:"whatsapp_from"`
	To               string      `mapstructure:"whatsapp_to"`
	ContentSID       string      `mapstructure:"content_sid"`
	ContentVariables string      `mapstructure:"content_variables"`
	Appointment      Appointment `mapstructure:"appointment"`
}

// BuildParams picks the message content. A template id wins over any text,
// which is then reported as a warning; otherwise the text is used, falling
// back to the appointment confirmation.
func BuildParams(cfg Config, text string) (*openapi.CreateMessageParams, []string, error) {
	if cfg.AccountSID == "" || cfg.AuthToken == "" {
		return nil, nil, ErrMissingCredentials
	}

	from := cfg.From
	if from == "" {
		from = DefaultFrom
	}
	to := cfg.To
	if to == "" {
		to = DefaultTo
	}

	params := &openapi.CreateMessageParams{}
	params.SetFrom(from)
	params.SetTo(to)

	text = strings.TrimSpace(text)
	var warnings []string

	switch {
	case cfg.ContentSID != "":
		params.SetContentSid(cfg.ContentSID)
		if cfg.ContentVariables != "" {
			params.SetContentVariables(cfg.ContentVariables)
		}
		if text != "" {
			warnings = append(warnings, "TWILIO_CONTENT_SID is set: the free text message is ignored")
		}
	case text != "":
		params.SetBody(text)
	case !cfg.Appointment.empty():
		params.SetBody(cfg.Appointment.Body())
	default:
		return nil, nil, ErrNoContent
	}
	return params, warnings, nil
}

// MessageCreator is the part of the Twilio API service used to send.
type MessageCreator interface {
	CreateMessage(params *openapi.CreateMessageParams) (*openapi.ApiV2010Message, error)
}

func NewTwilio(cfg Config) MessageCreator {
	return twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	}).Api
}

type Notifier struct {
	api    MessageCreator
	logger *zap.Logger
}

func New(api MessageCreator, logger *zap.Logger) *Notifier {
	return &Notifier{api: api, logger: logger}
}

// Send creates the message and returns its SID.
func (n *Notifier) Send(params *openapi.CreateMessageParams) (string, error) {
	resp, err := n.api.CreateMessage(params)
	if err != nil {
		var restErr *client.TwilioRestError
		if errors.As(err, &restErr) {
			return "", fmt.Errorf("%s (code %d)", restErr.Message, restErr.Code)
		}
		return "", fmt.Errorf("failed to send message: %w", err)
	}

	var sid string
	if resp != nil && resp.Sid != nil {
		sid = *resp.Sid
	}
	n.logger.Info("Message sent",
		zap.String("sid", sid),
		zap.String("to", deref(params.To)))
	return sid, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
