// Package delivery sends client-facing messages through an ordered
// chain of transports: the primary account bot first, then the service
// bot when the primary cannot deliver.
package delivery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/viper"

	"github.com/IlliaSobcko/AIBI-Project/internal/retryutil"
	"github.com/IlliaSobcko/AIBI-Project/internal/telegram"
)

// Transport names recorded in reports and the audit log.
const (
	MethodAccountBot = "ACCOUNT_BOT"
	MethodServiceBot = "SERVICE_BOT"
)

// ErrNoTransports means no transport in the chain could deliver.
var ErrNoTransports = errors.New("delivery: all transports failed")

// Sender delivers one message to a client chat.
type Sender interface {
	Name() string
	Send(ctx context.Context, chatID int64, text string) error
}

// TelegramSender wraps one bot-token client as a named transport.
type TelegramSender struct {
	SenderName string
	Client     *telegram.Client
}

func (s *TelegramSender) Name() string { return s.SenderName }

func (s *TelegramSender) Send(ctx context.Context, chatID int64, text string) error {
	return s.Client.SendPlain(ctx, chatID, text)
}

// Dispatcher walks the chain in order, retrying each transport before
// falling through to the next.
type Dispatcher struct {
	Transports []Sender
	Attempts   int
	RetryDelay time.Duration
	Logger     *slog.Logger
}

func NewDispatcher(transports ...Sender) *Dispatcher {
	return &Dispatcher{
		Transports: transports,
		Attempts:   2,
		RetryDelay: 2 * time.Second,
	}
}

// FromViper builds the chain from whichever bot tokens are configured.
// The account bot leads, the service bot is the fallback.
func FromViper(logger *slog.Logger) *Dispatcher {
	var transports []Sender
	apiRoot := viper.GetString("telegram.api_root")
	if token := viper.GetString("telegram.account_token"); token != "" {
		transports = append(transports, &TelegramSender{
			SenderName: MethodAccountBot,
			Client:     telegram.New(nil, apiRoot, token),
		})
	}
	// The reviewer bot token doubles as the fallback transport.
	if token := viper.GetString("telegram.bot_token"); token != "" {
		transports = append(transports, &TelegramSender{
			SenderName: MethodServiceBot,
			Client:     telegram.New(nil, apiRoot, token),
		})
	}
	d := NewDispatcher(transports...)
	d.Logger = logger
	return d
}

// Send tries each transport in order and reports which one delivered.
func (d *Dispatcher) Send(ctx context.Context, chatID int64, text string) (string, error) {
	if len(d.Transports) == 0 {
		return "", ErrNoTransports
	}

	var lastErr error
	for _, t := range d.Transports {
		err := retryutil.Do(ctx, d.Logger, "delivery_"+t.Name(), d.Attempts, d.RetryDelay, func(ctx context.Context) error {
			return t.Send(ctx, chatID, text)
		})
		if err == nil {
			slog.Info("message_delivered", "chat_id", chatID, "method", t.Name())
			return t.Name(), nil
		}
		lastErr = err
		slog.Warn("transport_failed", "chat_id", chatID, "method", t.Name(), "error", err.Error())
	}
	return "", fmt.Errorf("%w: %v", ErrNoTransports, lastErr)
}
