package notify

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/davidleathers/dependable-notify-backend/internal/domain/errors"
)

// Limits caps outbound request rates per provider. Zero-valued entries mean
// no cap.
type Limits struct {
	CallPerSecond  float64
	CallBurst      int
	EmailPerSecond float64
	EmailBurst     int
	SMSPerSecond   float64
	SMSBurst       int
}

// Core fans notification sends out to the configured providers, applying a
// per-provider rate limit ahead of every outbound call. Toast delivery is not
// limited, it stays in-process.
type Core struct {
	call  CallProvider
	email EmailProvider
	sms   SMSProvider
	toast ToastProvider

	callLimit  *rate.Limiter
	emailLimit *rate.Limiter
	smsLimit   *rate.Limiter

	logger *zap.Logger
}

// NewCore creates the delivery core from one provider per channel.
func NewCore(call CallProvider, email EmailProvider, sms SMSProvider, toast ToastProvider,
	limits Limits, logger *zap.Logger) *Core {

	return &Core{
		call:       call,
		email:      email,
		sms:        sms,
		toast:      toast,
		callLimit:  newLimiter(limits.CallPerSecond, limits.CallBurst),
		emailLimit: newLimiter(limits.EmailPerSecond, limits.EmailBurst),
		smsLimit:   newLimiter(limits.SMSPerSecond, limits.SMSBurst),
		logger:     logger,
	}
}

func newLimiter(perSecond float64, burst int) *rate.Limiter {
	if perSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(perSecond), burst)
}

// SendCall places a voice call.
func (c *Core) SendCall(ctx context.Context, phone, text string) error {
	if c.call == nil {
		return errors.NewBusinessError("CHANNEL_UNCONFIGURED", "no call provider configured")
	}
	if err := c.callLimit.Wait(ctx); err != nil {
		return fmt.Errorf("call rate limit wait: %w", err)
	}
	if err := c.call.Call(ctx, phone, text); err != nil {
		return errors.NewExternalError("call", "call delivery failed").WithCause(err)
	}
	c.logger.Debug("call delivered", zap.String("phone", phone))
	return nil
}

// SendEmail sends one email.
func (c *Core) SendEmail(ctx context.Context, address, name, subject, plainText, html string) error {
	if c.email == nil {
		return errors.NewBusinessError("CHANNEL_UNCONFIGURED", "no email provider configured")
	}
	if err := c.emailLimit.Wait(ctx); err != nil {
		return fmt.Errorf("email rate limit wait: %w", err)
	}
	if err := c.email.Email(ctx, address, name, subject, plainText, html); err != nil {
		return errors.NewExternalError("email", "email delivery failed").WithCause(err)
	}
	c.logger.Debug("email delivered", zap.String("address", address), zap.String("subject", subject))
	return nil
}

// SendText sends one SMS.
func (c *Core) SendText(ctx context.Context, phone, text string) error {
	if c.sms == nil {
		return errors.NewBusinessError("CHANNEL_UNCONFIGURED", "no sms provider configured")
	}
	if err := c.smsLimit.Wait(ctx); err != nil {
		return fmt.Errorf("sms rate limit wait: %w", err)
	}
	if err := c.sms.Text(ctx, phone, text); err != nil {
		return errors.NewExternalError("sms", "sms delivery failed").WithCause(err)
	}
	c.logger.Debug("sms delivered", zap.String("phone", phone))
	return nil
}

// SendToast pushes an in-app notification.
func (c *Core) SendToast(ctx context.Context, userID uuid.UUID, subject, details string) error {
	if c.toast == nil {
		return errors.NewBusinessError("CHANNEL_UNCONFIGURED", "no toast provider configured")
	}
	if err := c.toast.SendToast(ctx, userID, subject, details); err != nil {
		return errors.NewExternalError("toast", "toast delivery failed").WithCause(err)
	}
	return nil
}
