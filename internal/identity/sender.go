package identity

import (
	"context"
	"fmt"

	"github.com/anandkp/shelfwise-backend/pkg/logger"
)

// LogSender writes OTP codes to the application log instead of an SMS
// provider. Only for local development; production must wire a real
// provider.
type LogSender struct {
	logg *logger.Logger
}

// NewLogSender builds a log-backed code sender.
func NewLogSender(logg *logger.Logger) (*LogSender, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &LogSender{logg: logg}, nil
}

func (s *LogSender) Send(ctx context.Context, phone, code string) error {
	ctx = s.logg.WithFields(ctx, map[string]any{
		"phone_suffix": suffix(phone),
		"otp_code":     code,
	})
	s.logg.Info(ctx, "otp code issued (log sender)")
	return nil
}

func suffix(phone string) string {
	if len(phone) <= 4 {
		return phone
	}
	return phone[len(phone)-4:]
}
