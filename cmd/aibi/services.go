package main

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gorm.io/gorm"

	"github.com/IlliaSobcko/AIBI-Project/accumulate"
	"github.com/IlliaSobcko/AIBI-Project/analysis"
	"github.com/IlliaSobcko/AIBI-Project/assistant"
	"github.com/IlliaSobcko/AIBI-Project/calendar"
	"github.com/IlliaSobcko/AIBI-Project/chatlog"
	"github.com/IlliaSobcko/AIBI-Project/db"
	"github.com/IlliaSobcko/AIBI-Project/decision"
	"github.com/IlliaSobcko/AIBI-Project/delivery"
	"github.com/IlliaSobcko/AIBI-Project/drafts"
	"github.com/IlliaSobcko/AIBI-Project/instructions"
	"github.com/IlliaSobcko/AIBI-Project/internal/audit"
	"github.com/IlliaSobcko/AIBI-Project/internal/logutil"
	"github.com/IlliaSobcko/AIBI-Project/internal/statepaths"
	"github.com/IlliaSobcko/AIBI-Project/internal/telegram"
	"github.com/IlliaSobcko/AIBI-Project/knowledge"
	"github.com/IlliaSobcko/AIBI-Project/providers"
	"github.com/IlliaSobcko/AIBI-Project/reply"
	"github.com/IlliaSobcko/AIBI-Project/reports"
	"github.com/IlliaSobcko/AIBI-Project/review"
	"github.com/IlliaSobcko/AIBI-Project/sources"
	"github.com/IlliaSobcko/AIBI-Project/trello"
)

// services is the assembled runtime: everything serve and check need,
// built once from configuration.
type services struct {
	Logger       *slog.Logger
	Assistant    *assistant.Assistant
	Bot          *review.Bot
	Accumulator  *accumulate.Accumulator
	ChatLog      *chatlog.Log
	Knowledge    *knowledge.Store
	Instructions *instructions.Manager
	Reports      *reports.Writer
	Audit        audit.Sink
	DB           *gorm.DB
}

// buildServices wires the pipeline. Optional integrations (Trello,
// calendar, database, reviewer bot) degrade to nil when unconfigured;
// only the LLM backend is mandatory.
func buildServices() (*services, error) {
	logger, err := logutil.LoggerFromViper()
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)

	client := providers.FromViper()
	analyzer := analysis.FromViper(client)
	srcManager := sources.FromViper()
	engine := decision.FromViper(srcManager)

	know := knowledge.FromViper()
	generator := reply.FromViper(client, know, srcManager.BusinessData)
	if v := viper.GetInt("knowledge.max_examples"); v > 0 {
		generator.ExampleLimit = v
	}

	instr := instructions.FromViper()
	if err := instr.EnsureDefault(); err != nil {
		slog.Warn("instructions_seed_failed", "error", err.Error())
	}

	log := chatlog.FromViper()
	reportWriter := reports.FromViper()
	dispatcher := delivery.FromViper(logger)

	auditSink := newAuditSink()
	gdb := openDatabase()

	asst := &assistant.Assistant{
		Analyzer:     analyzer,
		Engine:       engine,
		Generator:    generator,
		Dispatcher:   dispatcher,
		Units:        log,
		Drafts:       drafts.NewStore(),
		Reports:      reportWriter,
		Audit:        auditSink,
		Trello:       trelloTasksFromViper(),
		Calendar:     calendarRemindersFromViper(),
		DB:           gdb,
		Hours:        reply.HoursFromViper(),
		Instructions: instr.Combined,
	}
	asst.ApplyViperDefaults()

	svc := &services{
		Logger:       logger,
		Assistant:    asst,
		Accumulator:  accumulate.FromViper(),
		ChatLog:      log,
		Knowledge:    know,
		Instructions: instr,
		Reports:      reportWriter,
		Audit:        auditSink,
		DB:           gdb,
	}

	if bot := reviewBotFromViper(svc, dispatcher); bot != nil {
		svc.Bot = bot
		asst.Notifier = bot
	} else {
		slog.Warn("review_bot_disabled", "reason", "telegram.bot_token or telegram.owner_id missing")
	}
	return svc, nil
}

// Close flushes the file-backed sinks. Safe on a partially built set.
func (s *services) Close() {
	if s.ChatLog != nil {
		if err := s.ChatLog.Close(); err != nil {
			slog.Warn("chatlog_close_failed", "error", err.Error())
		}
	}
	if s.Audit != nil {
		if err := s.Audit.Close(); err != nil {
			slog.Warn("audit_close_failed", "error", err.Error())
		}
	}
}

func newAuditSink() audit.Sink {
	sink, err := audit.NewJSONLSink(statepaths.AuditPath(), viper.GetInt64("audit.rotate_max_bytes"), "")
	if err != nil {
		slog.Warn("audit_sink_failed", "error", err.Error())
		return audit.NopSink{}
	}
	return sink
}

// openDatabase is best effort: without it the cycle history is lost
// but the pipeline still runs.
func openDatabase() *gorm.DB {
	gdb, err := db.Open(db.FromViper())
	if err != nil {
		slog.Warn("db_open_failed", "error", err.Error())
		return nil
	}
	return gdb
}

func reviewBotFromViper(svc *services, dispatcher *delivery.Dispatcher) *review.Bot {
	token := strings.TrimSpace(viper.GetString("telegram.bot_token"))
	if token == "" || viper.GetInt64("telegram.owner_id") == 0 {
		return nil
	}

	bot := review.FromViper(telegram.New(nil, viper.GetString("telegram.api_root"), token))
	bot.Runner = svc.Assistant
	bot.Drafts = svc.Assistant.Drafts
	bot.Deliver = dispatcher
	bot.Knowledge = svc.Knowledge
	bot.FAQ = svc.Knowledge
	bot.FAQPath = statepaths.DynamicInstructionsPath()
	bot.Reports = svc.Reports
	bot.Instructions = svc.Instructions
	bot.ChatLog = svc.ChatLog
	bot.Accumulator = svc.Accumulator
	bot.Integrations = activeIntegrations(svc)
	return bot
}

func activeIntegrations(svc *services) []string {
	var names []string
	if svc.Assistant.Trello != nil {
		names = append(names, "trello")
	}
	if svc.Assistant.Calendar != nil {
		names = append(names, "calendar")
	}
	if svc.DB != nil {
		names = append(names, "db")
	}
	if viper.GetBool("scheduler.enabled") {
		names = append(names, "scheduler")
	}
	return names
}

// trelloTasksFromViper adapts the Trello client to the assistant's
// task hook. Nil when credentials are missing.
func trelloTasksFromViper() assistant.TaskCreator {
	apiKey := strings.TrimSpace(viper.GetString("trello.api_key"))
	token := strings.TrimSpace(viper.GetString("trello.token"))
	boardID := strings.TrimSpace(viper.GetString("trello.board_id"))
	if apiKey == "" || token == "" || boardID == "" {
		return nil
	}
	return trelloTasks{client: trello.New(nil, "", apiKey, token, boardID)}
}

type trelloTasks struct {
	client *trello.Client
}

func (t trelloTasks) CreateTaskFromReport(ctx context.Context, listName, chatTitle, report string, confidence int) error {
	_, err := t.client.CreateTaskFromReport(ctx, listName, chatTitle, report, confidence)
	return err
}

// calendarRemindersFromViper adapts the calendar client to the review
// reminder hook. Nil when the token is missing or reminders are off.
func calendarRemindersFromViper() assistant.ReminderCreator {
	token := strings.TrimSpace(viper.GetString("calendar.token"))
	if token == "" || !viper.GetBool("calendar.review_reminder") {
		return nil
	}
	return calendarReminders{client: calendar.New(nil, "", token, viper.GetString("calendar.id"))}
}

type calendarReminders struct {
	client *calendar.Client
}

func (c calendarReminders) CreateReminderFromReport(ctx context.Context, chatTitle, report string, confidence int, at time.Time) error {
	_, err := c.client.CreateReminderFromReport(ctx, chatTitle, report, confidence, at)
	return err
}
