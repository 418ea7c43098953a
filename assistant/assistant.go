// Package assistant is the orchestrator: it takes conversation units,
// runs analysis and scoring, routes each unit to exactly one outcome
// (auto-reply, draft for review, forced review, no action) and fires
// the post-routing integrations.
package assistant

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/viper"
	"gorm.io/gorm"

	"github.com/IlliaSobcko/AIBI-Project/analysis"
	"github.com/IlliaSobcko/AIBI-Project/chat"
	"github.com/IlliaSobcko/AIBI-Project/db/models"
	"github.com/IlliaSobcko/AIBI-Project/decision"
	"github.com/IlliaSobcko/AIBI-Project/drafts"
	"github.com/IlliaSobcko/AIBI-Project/internal/audit"
	"github.com/IlliaSobcko/AIBI-Project/reply"
	"github.com/IlliaSobcko/AIBI-Project/reports"
)

const defaultAutoReplyThreshold = 85

// Audit actions, one per routing outcome.
const (
	ActionAutoReply    = "auto_reply"
	ActionAutoFailed   = "auto_reply_failed"
	ActionDraft        = "draft_for_review"
	ActionForcedReview = "forced_review"
	ActionNoAction     = "no_action"
	ActionSkipped      = "skipped"
)

// Cycle triggers recorded in the run history.
const (
	TriggerSchedule = "schedule"
	TriggerManual   = "manual"
)

// Analyzer produces the business report for one unit.
type Analyzer interface {
	Analyze(ctx context.Context, instructions string, h chat.History) (analysis.Result, error)
}

// Evaluator is the decision engine surface the router needs.
type Evaluator interface {
	Evaluate(ctx context.Context, baseConfidence int, chatTitle, messageHistory string, hasUnreadableFiles bool) decision.Evaluation
}

// Generator produces the client-facing answer.
type Generator interface {
	Generate(ctx context.Context, chatTitle, messageHistory, analysisReport, instructions string, hasUnreadableFiles bool) (reply.Generated, error)
}

// Dispatcher delivers an auto-reply and names the transport that won.
type Dispatcher interface {
	Send(ctx context.Context, chatID int64, text string) (string, error)
}

// DraftNotifier pushes a stored draft to the owner for review. Nil
// notifier means no reviewer is reachable and review-bound units take
// the no-action path.
type DraftNotifier interface {
	NotifyDraft(ctx context.Context, d drafts.Draft) error
}

// UnitSource supplies the conversation units for a full cycle.
type UnitSource interface {
	Collect(since time.Time) ([]chat.History, error)
}

// TaskCreator is the Trello slice used by the post-routing hook.
type TaskCreator interface {
	CreateTaskFromReport(ctx context.Context, listName, chatTitle, report string, confidence int) error
}

// ReminderCreator is the calendar slice used by the post-routing hook.
type ReminderCreator interface {
	CreateReminderFromReport(ctx context.Context, chatTitle, report string, confidence int, at time.Time) error
}

// Summary is one cycle's tally, reported back to the operator.
type Summary struct {
	Processed   int
	AutoReplied int
	Drafted     int
	Skipped     int
}

func (s Summary) String() string {
	return fmt.Sprintf("processed=%d auto_replied=%d drafted=%d skipped=%d",
		s.Processed, s.AutoReplied, s.Drafted, s.Skipped)
}

// Assistant wires the pipeline. Optional integrations are nil when not
// configured; every hook failure is logged, never fatal.
type Assistant struct {
	Analyzer     analysis.Agent
	Engine       Evaluator
	Generator    Generator
	Dispatcher   Dispatcher
	Notifier     DraftNotifier
	Units        UnitSource
	Drafts       *drafts.Store
	Reports      *reports.Writer
	Audit        audit.Sink
	Trello       TaskCreator
	Calendar     ReminderCreator
	DB           *gorm.DB
	Hours        reply.Hours
	Instructions func() string

	// MinReplyConfidence is the generator's own gate for auto-send.
	MinReplyConfidence int
	// AutoReplyThreshold is the fallback review cut-off when no
	// decision engine is available.
	AutoReplyThreshold int
	// TrelloMinConfidence is the base-confidence floor for filing a
	// task from a report.
	TrelloMinConfidence int
	// ReviewThreshold gates the auto-reply path.
	ReviewThreshold int
	TrelloListName  string
	Lookback        time.Duration

	state cycleState

	// Now is swappable in tests.
	Now func() time.Time
}

// ApplyViperDefaults fills the threshold knobs from configuration.
func (a *Assistant) ApplyViperDefaults() {
	a.MinReplyConfidence = viper.GetInt("reply.min_confidence")
	a.AutoReplyThreshold = viper.GetInt("confidence.auto_reply_threshold")
	a.ReviewThreshold = viper.GetInt("confidence.review_threshold")
	a.TrelloMinConfidence = viper.GetInt("trello.task_min_confidence")
	a.TrelloListName = viper.GetString("trello.list_name")
	if days := viper.GetInt("collect.lookback_days"); days > 0 {
		a.Lookback = time.Duration(days) * 24 * time.Hour
	}
}

func (a *Assistant) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

func (a *Assistant) minReplyConfidence() int {
	if a.MinReplyConfidence > 0 {
		return a.MinReplyConfidence
	}
	return 70
}

func (a *Assistant) autoReplyThreshold() int {
	if a.AutoReplyThreshold > 0 {
		return a.AutoReplyThreshold
	}
	return defaultAutoReplyThreshold
}

func (a *Assistant) reviewThreshold() int {
	if a.ReviewThreshold > 0 {
		return a.ReviewThreshold
	}
	return 90
}

func (a *Assistant) trelloMinConfidence() int {
	if a.TrelloMinConfidence > 0 {
		return a.TrelloMinConfidence
	}
	return 80
}

func (a *Assistant) lookback() time.Duration {
	if a.Lookback > 0 {
		return a.Lookback
	}
	return 7 * 24 * time.Hour
}

func (a *Assistant) instructions() string {
	if a.Instructions != nil {
		return a.Instructions()
	}
	return ""
}

// CycleRunning reports whether a cycle currently holds the guard.
func (a *Assistant) CycleRunning() bool {
	_, _, _, running := a.state.Snapshot()
	return running
}

// RunCycle collects the recent units and processes each in order. A
// second call while one is running fails fast with ErrCycleInProgress.
func (a *Assistant) RunCycle(ctx context.Context, trigger string) (Summary, error) {
	if !a.state.Start() {
		slog.Warn("cycle_rejected", "trigger", trigger, "reason", "already_running")
		return Summary{}, ErrCycleInProgress
	}

	cycleID := uuid.NewString()
	startedAt := a.now()
	slog.Info("cycle_start", "cycle_id", cycleID, "trigger", trigger)

	units, err := a.Units.Collect(startedAt.Add(-a.lookback()))
	if err != nil {
		a.state.EndFailure(err)
		a.recordRun(cycleID, trigger, startedAt, Summary{}, err)
		return Summary{}, fmt.Errorf("collect units: %w", err)
	}

	var sum Summary
	for _, h := range units {
		if ctx.Err() != nil {
			a.state.EndFailure(ctx.Err())
			a.recordRun(cycleID, trigger, startedAt, sum, ctx.Err())
			return sum, ctx.Err()
		}
		a.processIsolated(ctx, cycleID, h, &sum)
	}

	a.state.EndSuccess(a.now())
	a.recordRun(cycleID, trigger, startedAt, sum, nil)
	slog.Info("cycle_done", "cycle_id", cycleID, "trigger", trigger,
		"processed", sum.Processed, "auto_replied", sum.AutoReplied,
		"drafted", sum.Drafted, "skipped", sum.Skipped)
	return sum, nil
}

// processIsolated keeps one broken unit from aborting the cycle.
func (a *Assistant) processIsolated(ctx context.Context, cycleID string, h chat.History, sum *Summary) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("unit_panic", "chat_id", h.ChatID, "chat_title", h.Title, "error", fmt.Sprint(r))
			sum.Skipped++
		}
	}()
	a.ProcessUnit(ctx, cycleID, h, sum)
}

// ProcessUnit runs the full pipeline for one conversation unit and
// updates the tally.
func (a *Assistant) ProcessUnit(ctx context.Context, cycleID string, h chat.History, sum *Summary) {
	if h.IsEmpty() {
		return
	}

	res, err := a.Analyzer.Analyze(ctx, a.instructions(), h)
	if err != nil {
		slog.Warn("analysis_failed", "chat_title", h.Title, "error", err.Error())
		sum.Skipped++
		return
	}
	sum.Processed++

	if _, err := a.Reports.Write(h.Title, res.Report, res.Confidence); err != nil {
		slog.Warn("report_write_failed", "chat_title", h.Title, "error", err.Error())
	}

	ev := a.evaluate(ctx, res, h)
	slog.Info("unit_scored",
		"chat_title", h.Title,
		"base_confidence", res.Confidence,
		"final_confidence", ev.FinalConfidence,
		"needs_review", ev.NeedsManualReview,
		"unreadable_files", h.HasUnreadableFiles())

	forcedReview := false
	switch {
	case h.HasUnreadableFiles():
		forcedReview = true
		a.routeForcedReview(ctx, cycleID, h, res, sum)

	case ev.FinalConfidence >= a.reviewThreshold() && a.Hours.Within(a.now()):
		a.routeAutoReply(ctx, cycleID, h, res, ev, sum)

	case ev.NeedsManualReview && a.Notifier != nil:
		a.routeDraft(ctx, cycleID, h, res, ev, sum)

	default:
		slog.Info("unit_no_action", "chat_title", h.Title, "final_confidence", ev.FinalConfidence)
		a.emitAudit(ctx, cycleID, h, res, ev, ActionNoAction, "", "")
	}

	if !forcedReview {
		a.postRoutingHooks(ctx, h, res, ev)
	}
}

// evaluate falls back to a plain threshold check when no engine is
// wired, mirroring the degraded mode of the original router.
func (a *Assistant) evaluate(ctx context.Context, res analysis.Result, h chat.History) decision.Evaluation {
	if a.Engine != nil {
		return a.Engine.Evaluate(ctx, res.Confidence, h.Title, h.Text(), h.HasUnreadableFiles())
	}
	return decision.Evaluation{
		FinalConfidence:   res.Confidence,
		NeedsManualReview: res.Confidence < a.autoReplyThreshold(),
		Reasoning:         "no decision engine configured",
		Scores:            decision.Scores{AI: res.Confidence},
	}
}

func (a *Assistant) routeForcedReview(ctx context.Context, cycleID string, h chat.History, res analysis.Result, sum *Summary) {
	slog.Info("unit_forced_review", "chat_title", h.Title, "reason", "unreadable_files")
	if a.Notifier == nil {
		slog.Warn("draft_undeliverable", "chat_title", h.Title, "reason", "no_reviewer")
		a.emitAudit(ctx, cycleID, h, res, decision.Evaluation{NeedsManualReview: true}, ActionSkipped, "", "no reviewer available")
		sum.Skipped++
		return
	}

	gen, err := a.Generator.Generate(ctx, h.Title, h.Text(), res.Report, a.instructions(), true)
	if err != nil || gen.Text == "" {
		slog.Warn("draft_generation_failed", "chat_title", h.Title, "error", errString(err))
		sum.Skipped++
		return
	}

	a.storeAndNotifyDraft(ctx, h, gen)
	if err := a.Reports.AppendDraftUnreadable(h.Title, gen.Text, gen.Confidence); err != nil {
		slog.Warn("report_append_failed", "chat_title", h.Title, "error", err.Error())
	}
	a.emitAudit(ctx, cycleID, h, res, decision.Evaluation{NeedsManualReview: true}, ActionForcedReview, "", "")
	sum.Drafted++
}

func (a *Assistant) routeAutoReply(ctx context.Context, cycleID string, h chat.History, res analysis.Result, ev decision.Evaluation, sum *Summary) {
	gen, err := a.Generator.Generate(ctx, h.Title, h.Text(), res.Report, a.instructions(), false)
	if err != nil {
		slog.Warn("reply_generation_failed", "chat_title", h.Title, "error", err.Error())
		sum.Skipped++
		return
	}
	if gen.Text == "" || gen.Confidence < a.minReplyConfidence() {
		slog.Info("auto_reply_skipped",
			"chat_title", h.Title,
			"reply_confidence", gen.Confidence,
			"floor", a.minReplyConfidence())
		a.emitAudit(ctx, cycleID, h, res, ev, ActionSkipped, "", "reply confidence below floor")
		sum.Skipped++
		return
	}

	method, err := a.Dispatcher.Send(ctx, h.ChatID, gen.Text)
	if err != nil {
		slog.Warn("auto_reply_failed", "chat_title", h.Title, "error", err.Error())
		if aerr := a.Reports.AppendAutoReplyFailed(h.Title, gen.Text, gen.Confidence); aerr != nil {
			slog.Warn("report_append_failed", "chat_title", h.Title, "error", aerr.Error())
		}
		a.emitAudit(ctx, cycleID, h, res, ev, ActionAutoFailed, "", err.Error())
		sum.Skipped++
		return
	}

	slog.Info("auto_reply_sent", "chat_title", h.Title, "method", method, "reply_confidence", gen.Confidence)
	if err := a.Reports.AppendAutoReplySent(h.Title, gen.Text, method, gen.Confidence); err != nil {
		slog.Warn("report_append_failed", "chat_title", h.Title, "error", err.Error())
	}
	a.emitAudit(ctx, cycleID, h, res, ev, ActionAutoReply, method, "")
	sum.AutoReplied++
}

func (a *Assistant) routeDraft(ctx context.Context, cycleID string, h chat.History, res analysis.Result, ev decision.Evaluation, sum *Summary) {
	gen, err := a.Generator.Generate(ctx, h.Title, h.Text(), res.Report, a.instructions(), false)
	if err != nil || gen.Text == "" {
		slog.Warn("draft_generation_failed", "chat_title", h.Title, "error", errString(err))
		sum.Skipped++
		return
	}

	a.storeAndNotifyDraft(ctx, h, gen)
	if err := a.Reports.AppendDraft(h.Title, gen.Text, gen.Confidence); err != nil {
		slog.Warn("report_append_failed", "chat_title", h.Title, "error", err.Error())
	}
	a.emitAudit(ctx, cycleID, h, res, ev, ActionDraft, "", "")
	sum.Drafted++
}

func (a *Assistant) storeAndNotifyDraft(ctx context.Context, h chat.History, gen reply.Generated) {
	a.Drafts.Add(h.ChatID, h.Title, h.Text(), gen.Text, gen.Confidence)
	d, err := a.Drafts.Get(h.ChatID)
	if err != nil {
		return
	}
	if err := a.Notifier.NotifyDraft(ctx, d); err != nil {
		slog.Warn("draft_notify_failed", "chat_title", h.Title, "error", err.Error())
	} else {
		slog.Info("draft_stored", "chat_title", h.Title, "reply_confidence", gen.Confidence)
	}
}

func (a *Assistant) postRoutingHooks(ctx context.Context, h chat.History, res analysis.Result, ev decision.Evaluation) {
	if a.Trello != nil && res.Confidence >= a.trelloMinConfidence() {
		if err := a.Trello.CreateTaskFromReport(ctx, a.TrelloListName, h.Title, res.Report, res.Confidence); err != nil {
			slog.Warn("trello_task_failed", "chat_title", h.Title, "error", err.Error())
		} else {
			slog.Info("trello_task_created", "chat_title", h.Title, "confidence", res.Confidence)
		}
	}

	if a.Calendar != nil && ev.NeedsManualReview {
		at := a.now().Add(2 * time.Hour)
		if err := a.Calendar.CreateReminderFromReport(ctx, h.Title, res.Report, ev.FinalConfidence, at); err != nil {
			slog.Warn("calendar_reminder_failed", "chat_title", h.Title, "error", err.Error())
		} else {
			slog.Info("calendar_reminder_created", "chat_title", h.Title, "at", at.Format(time.RFC3339))
		}
	}
}

func (a *Assistant) emitAudit(ctx context.Context, cycleID string, h chat.History, res analysis.Result, ev decision.Evaluation, action, method, errText string) {
	if a.Audit == nil {
		return
	}
	e := audit.Event{
		Timestamp:    a.now().UTC(),
		CycleID:      cycleID,
		ChatID:       h.ChatID,
		ChatTitle:    h.Title,
		Action:       action,
		Confidence:   ev.FinalConfidence,
		AIConfidence: res.Confidence,
		NeedsReview:  ev.NeedsManualReview,
		SendMethod:   method,
		Reasoning:    ev.Reasoning,
		Error:        errText,
	}
	if err := a.Audit.Emit(ctx, e); err != nil {
		slog.Warn("audit_emit_failed", "chat_title", h.Title, "error", err.Error())
	}
}

func (a *Assistant) recordRun(cycleID, trigger string, startedAt time.Time, sum Summary, runErr error) {
	if a.DB == nil {
		return
	}
	row := models.CycleRun{
		ID:         cycleID,
		Trigger:    trigger,
		StartedAt:  startedAt,
		FinishedAt: a.now(),
		Processed:  sum.Processed,
		AutoSent:   sum.AutoReplied,
		Drafted:    sum.Drafted,
		Skipped:    sum.Skipped,
		Error:      errString(runErr),
	}
	if err := a.DB.Create(&row).Error; err != nil {
		slog.Warn("cycle_run_record_failed", "cycle_id", cycleID, "error", err.Error())
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
