// Package review runs the owner-facing Telegram bot: it pushes drafts
// for approval, handles the inline send/edit/skip buttons and serves
// the operator commands. The same long-poll loop doubles as the intake
// path, recording messages from client chats into the chat log and the
// accumulator.
package review

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"

	"github.com/IlliaSobcko/AIBI-Project/assistant"
	"github.com/IlliaSobcko/AIBI-Project/chat"
	"github.com/IlliaSobcko/AIBI-Project/drafts"
	"github.com/IlliaSobcko/AIBI-Project/instructions"
	"github.com/IlliaSobcko/AIBI-Project/internal/telegram"
	"github.com/IlliaSobcko/AIBI-Project/knowledge"
	"github.com/IlliaSobcko/AIBI-Project/reports"
)

// API is the slice of the Bot API client the reviewer bot uses.
type API interface {
	GetMe(ctx context.Context) (*telegram.User, error)
	GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]telegram.Update, int64, error)
	SendPlain(ctx context.Context, chatID int64, text string) error
	SendChunked(ctx context.Context, chatID int64, text string) error
	SendWithKeyboard(ctx context.Context, chatID int64, text string, keyboard *telegram.InlineKeyboardMarkup) error
	EditMessageText(ctx context.Context, chatID, messageID int64, text string, keyboard *telegram.InlineKeyboardMarkup) error
	AnswerCallbackQuery(ctx context.Context, callbackQueryID, text string) error
}

// CycleRunner triggers a full analysis cycle on /check.
type CycleRunner interface {
	RunCycle(ctx context.Context, trigger string) (assistant.Summary, error)
}

// Deliverer sends an approved reply to the client chat.
type Deliverer interface {
	Send(ctx context.Context, chatID int64, text string) (string, error)
}

// PatternRecorder appends an approved reply to the knowledge store.
type PatternRecorder interface {
	Add(chatID int64, chatTitle, clientQuestion, approvedResponse string, confidence int) error
}

// FAQSource regenerates the dynamic instructions digest.
type FAQSource interface {
	GenerateFAQ(outputPath string) (knowledge.FAQResult, error)
}

// Analytics rolls up the report artifacts for /report.
type Analytics interface {
	Scan() (reports.Summary, error)
}

// Intake records one client message for later analysis.
type Intake interface {
	Append(chatID int64, title string, msg chat.Message) error
}

// Accumulate groups client messages into debounced conversation units.
type Accumulate interface {
	Add(chatID int64, title string, msg chat.Message)
}

// Bot is the reviewer frontend. Every command and callback is owner
// gated; anything else the bot can see is treated as client traffic.
type Bot struct {
	Telegram    API
	OwnerID     int64
	PollTimeout time.Duration

	Runner       CycleRunner
	Drafts       *drafts.Store
	Deliver      Deliverer
	Knowledge    PatternRecorder
	FAQ          FAQSource
	FAQPath      string
	Reports      Analytics
	Instructions *instructions.Manager

	ChatLog     Intake
	Accumulator Accumulate

	// Integrations names the optional backends that came up configured,
	// shown in the startup notification.
	Integrations []string

	// Now is swappable in tests.
	Now func() time.Time

	mu           sync.Mutex
	editTarget   int64 // chat id awaiting replacement text, 0 when idle
	pendingEdits map[int64]string
	updateMode   bool
}

// FromViper reads the bot's own knobs; collaborators are injected by
// the caller.
func FromViper(api API) *Bot {
	return &Bot{
		Telegram:    api,
		OwnerID:     viper.GetInt64("telegram.owner_id"),
		PollTimeout: viper.GetDuration("telegram.poll_timeout"),
	}
}

func (b *Bot) now() time.Time {
	if b.Now != nil {
		return b.Now()
	}
	return time.Now()
}

func (b *Bot) pollTimeout() time.Duration {
	if b.PollTimeout > 0 {
		return b.PollTimeout
	}
	return 30 * time.Second
}

// Run long-polls until the context is cancelled. Poll timeouts are the
// idle case; real failures back off and retry.
func (b *Bot) Run(ctx context.Context) error {
	if b.OwnerID == 0 {
		return fmt.Errorf("review: telegram.owner_id not configured")
	}

	me, err := b.Telegram.GetMe(ctx)
	if err != nil {
		return fmt.Errorf("review: identify bot: %w", err)
	}
	slog.Info("review_bot_started", "username", me.Username, "owner_id", b.OwnerID)
	b.sendStartupNotification(ctx)

	var offset int64
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		updates, next, err := b.Telegram.GetUpdates(ctx, offset, b.pollTimeout())
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if telegram.IsPollTimeout(err) {
				continue
			}
			slog.Warn("review_poll_failed", "error", err.Error())
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(3 * time.Second):
			}
			continue
		}
		offset = next
		for _, u := range updates {
			b.handleUpdate(ctx, u)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, u telegram.Update) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("review_update_panic", "update_id", u.UpdateID, "error", fmt.Sprint(r))
		}
	}()

	switch {
	case u.CallbackQuery != nil:
		b.handleCallback(ctx, u.CallbackQuery)
	case u.Message != nil:
		b.handleMessage(ctx, u.Message)
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *telegram.Message) {
	if msg.Chat == nil {
		return
	}
	if msg.Chat.ID == b.OwnerID {
		b.handleOwnerMessage(ctx, msg)
		return
	}
	b.intake(msg)
}

// intake records a client message and feeds the accumulator. Bot
// traffic (including our own replies echoed back in groups) is skipped.
func (b *Bot) intake(msg *telegram.Message) {
	if msg.From != nil && msg.From.IsBot {
		return
	}

	cm := chat.Message{
		ID:       msg.MessageID,
		Text:     strings.TrimSpace(msg.Text),
		SentAt:   time.Unix(msg.Date, 0),
		Sender:   telegram.DisplayName(msg.From),
		SenderID: senderID(msg),
	}
	if cm.Text == "" {
		cm.Text = strings.TrimSpace(msg.Caption)
	}
	if msg.HasMedia() {
		cm.FileLabel = msg.MediaLabel()
	}
	if cm.Text == "" && cm.FileLabel == "" {
		return
	}

	title := msg.Chat.DisplayTitle()
	if b.ChatLog != nil {
		if err := b.ChatLog.Append(msg.Chat.ID, title, cm); err != nil {
			slog.Warn("chatlog_append_failed", "chat_id", msg.Chat.ID, "error", err.Error())
		}
	}
	if b.Accumulator != nil {
		b.Accumulator.Add(msg.Chat.ID, title, cm)
	}
}

func senderID(msg *telegram.Message) int64 {
	if msg.From == nil {
		return 0
	}
	return msg.From.ID
}

// NotifyDraft pushes a stored draft to the owner with the action
// buttons. It satisfies the assistant's notifier contract.
func (b *Bot) NotifyDraft(ctx context.Context, d drafts.Draft) error {
	text := fmt.Sprintf(
		"[BOT] NEW DRAFT FOR REVIEW\n\n"+
			"Chat: %s\n"+
			"AI Confidence: %d%%\n"+
			"Chat ID: %d\n\n"+
			"PROPOSED RESPONSE:\n%s\n\n"+
			"--------------------\n"+
			"Choose action:",
		d.ChatTitle, d.Confidence, d.ChatID, d.Text)

	keyboard := &telegram.InlineKeyboardMarkup{
		InlineKeyboard: [][]telegram.InlineKeyboardButton{{
			{Text: "[SEND]", CallbackData: fmt.Sprintf("send_%d", d.ChatID)},
			{Text: "[EDIT]", CallbackData: fmt.Sprintf("edit_%d", d.ChatID)},
			{Text: "[SKIP]", CallbackData: fmt.Sprintf("skip_%d", d.ChatID)},
		}},
	}
	return b.Telegram.SendWithKeyboard(ctx, b.OwnerID, text, keyboard)
}

func (b *Bot) sendStartupNotification(ctx context.Context) {
	integrations := "none"
	if len(b.Integrations) > 0 {
		integrations = strings.Join(b.Integrations, ", ")
	}
	text := fmt.Sprintf(
		"[BOT] SYSTEM RESTARTED\n\n"+
			"[OK] Bot is now ONLINE and ready to receive commands\n\n"+
			"Restart time: %s\n"+
			"Active integrations: %s\n\n"+
			"Available commands:\n"+
			"  /check - manual analysis trigger\n"+
			"  /report - analytics rollup\n"+
			"  /generate_faq - rebuild dynamic instructions\n"+
			"  /view_instructions - show current instructions\n"+
			"  /update_instructions - edit instructions\n"+
			"  /list_backups - show instruction backups\n"+
			"  /rollback - restore from backup",
		b.now().Format("2006-01-02 15:04:05"), integrations)
	if err := b.Telegram.SendPlain(ctx, b.OwnerID, text); err != nil {
		slog.Warn("startup_notification_failed", "error", err.Error())
	}
}

func (b *Bot) reply(ctx context.Context, text string) {
	if err := b.Telegram.SendPlain(ctx, b.OwnerID, text); err != nil {
		slog.Warn("review_reply_failed", "error", err.Error())
	}
}
