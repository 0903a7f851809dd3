package notify

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// LogSender writes every send to the log instead of calling a provider. It
// backs all four channels in development environments where no provider
// credentials are configured.
type LogSender struct {
	logger *zap.Logger
}

// NewLogSender creates a logging provider.
func NewLogSender(logger *zap.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Call(ctx context.Context, phone, text string) error {
	s.logger.Info("call (logged, not sent)",
		zap.String("phone", phone),
		zap.String("text", text))
	return nil
}

func (s *LogSender) Email(ctx context.Context, address, name, subject, plainText, html string) error {
	s.logger.Info("email (logged, not sent)",
		zap.String("address", address),
		zap.String("name", name),
		zap.String("subject", subject))
	return nil
}

func (s *LogSender) Text(ctx context.Context, phone, text string) error {
	s.logger.Info("sms (logged, not sent)",
		zap.String("phone", phone),
		zap.String("text", text))
	return nil
}

func (s *LogSender) SendToast(ctx context.Context, userID uuid.UUID, subject, details string) error {
	s.logger.Info("toast (logged, not sent)",
		zap.String("user_id", userID.String()),
		zap.String("subject", subject))
	return nil
}
