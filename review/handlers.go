package review

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/IlliaSobcko/AIBI-Project/assistant"
	"github.com/IlliaSobcko/AIBI-Project/internal/telegram"
	"github.com/IlliaSobcko/AIBI-Project/knowledge"
	"github.com/IlliaSobcko/AIBI-Project/reports"
)

const (
	msgCycleBusy     = "[WAIT] Analysis already in progress, please wait..."
	msgDraftGone     = "Draft not found - already deleted?"
	msgAwaitingEdit  = "[WAITING FOR YOUR EDIT...]"
	msgSkippedByUser = "[SKIPPED BY USER]"

	updateModeHelp = "Update mode. Your next message must start with one of:\n" +
		"  REPLACE: [new instructions text]\n" +
		"  APPEND: [text to add at end]\n" +
		"  PREPEND: [text to add at beginning]\n" +
		"  CANCEL"
)

func (b *Bot) handleOwnerMessage(ctx context.Context, msg *telegram.Message) {
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return
	}

	// Pending conversational states take priority over commands, the
	// way the owner experiences the flow.
	if b.inUpdateMode() {
		b.handleInstructionText(ctx, text)
		return
	}
	if target := b.takeEditTarget(); target != 0 {
		b.handleEditText(ctx, target, text)
		return
	}

	command, arg := splitCommand(text)
	switch command {
	case "/check":
		b.cmdCheck(ctx)
	case "/report":
		b.cmdReport(ctx)
	case "/generate_faq":
		b.cmdGenerateFAQ(ctx)
	case "/view_instructions":
		b.cmdViewInstructions(ctx)
	case "/update_instructions":
		b.setUpdateMode(true)
		b.reply(ctx, updateModeHelp)
	case "/list_backups":
		b.cmdListBackups(ctx)
	case "/rollback":
		b.cmdRollback(ctx, arg)
	case "/start", "/help":
		b.reply(ctx, "Commands: /check /report /generate_faq /view_instructions /update_instructions /list_backups /rollback")
	default:
		slog.Info("review_unknown_command", "text", command)
		b.reply(ctx, "Unknown command. Try /help")
	}
}

func splitCommand(text string) (string, string) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return "", ""
	}
	command := strings.ToLower(fields[0])
	// Strip the @botname suffix groups add to commands.
	if i := strings.IndexByte(command, '@'); i > 0 {
		command = command[:i]
	}
	return command, strings.TrimSpace(strings.TrimPrefix(text, fields[0]))
}

func (b *Bot) cmdCheck(ctx context.Context) {
	// Leftover conversational state would swallow the next command, so
	// a manual trigger resets it.
	b.resetConversationState()

	if b.Runner == nil {
		b.reply(ctx, "[ERROR] Analysis pipeline not available")
		return
	}
	sum, err := b.Runner.RunCycle(ctx, assistant.TriggerManual)
	switch {
	case errors.Is(err, assistant.ErrCycleInProgress):
		b.reply(ctx, msgCycleBusy)
	case err != nil:
		b.reply(ctx, "[ERROR] Analysis failed: "+err.Error())
	default:
		b.reply(ctx, "[OK] Analysis complete\n"+sum.String())
	}
}

func (b *Bot) cmdReport(ctx context.Context) {
	if b.Reports == nil {
		b.reply(ctx, "[ERROR] Reports not available")
		return
	}
	sum, err := b.Reports.Scan()
	if err != nil {
		b.reply(ctx, "[ERROR] Report scan failed: "+err.Error())
		return
	}
	b.reply(ctx, reports.FormatSummary(sum))
}

func (b *Bot) cmdGenerateFAQ(ctx context.Context) {
	if b.FAQ == nil {
		b.reply(ctx, "[ERROR] Knowledge store not available")
		return
	}
	res, err := b.FAQ.GenerateFAQ(b.FAQPath)
	if errors.Is(err, knowledge.ErrNoPatterns) {
		b.reply(ctx, "[ERROR] No approved replies yet - nothing to learn from")
		return
	}
	if err != nil {
		b.reply(ctx, "[ERROR] FAQ generation failed: "+err.Error())
		return
	}
	b.reply(ctx, fmt.Sprintf(
		"[OK] Dynamic instructions regenerated\nPatterns: %d\nTopics: %d\nFile: %s",
		res.TotalPatterns, res.Topics, res.Path))
}

func (b *Bot) cmdViewInstructions(ctx context.Context) {
	if b.Instructions == nil {
		b.reply(ctx, "[ERROR] Instructions not available")
		return
	}
	text := strings.TrimSpace(b.Instructions.Static())
	if text == "" {
		b.reply(ctx, "Instructions file is empty")
		return
	}
	if err := b.Telegram.SendChunked(ctx, b.OwnerID, text); err != nil {
		slog.Warn("review_reply_failed", "error", err.Error())
	}
}

func (b *Bot) cmdListBackups(ctx context.Context) {
	if b.Instructions == nil {
		b.reply(ctx, "[ERROR] Instructions not available")
		return
	}
	backups, err := b.Instructions.ListBackups(10)
	if err != nil {
		b.reply(ctx, "[ERROR] Backup listing failed: "+err.Error())
		return
	}
	if len(backups) == 0 {
		b.reply(ctx, "No backups yet")
		return
	}
	var sb strings.Builder
	sb.WriteString("Available backups (newest first):\n")
	for _, name := range backups {
		sb.WriteString("  " + name + "\n")
	}
	sb.WriteString("\nUse: /rollback [filename]")
	b.reply(ctx, sb.String())
}

func (b *Bot) cmdRollback(ctx context.Context, arg string) {
	if b.Instructions == nil {
		b.reply(ctx, "[ERROR] Instructions not available")
		return
	}
	if arg == "" {
		b.reply(ctx, "Usage: /rollback [filename]\nSee /list_backups for available files")
		return
	}
	if err := b.Instructions.Rollback(arg); err != nil {
		b.reply(ctx, "[ERROR] Rollback failed: "+err.Error())
		return
	}
	b.reply(ctx, "[OK] Restored from "+arg)
}

// handleInstructionText consumes the one message expected after
// /update_instructions.
func (b *Bot) handleInstructionText(ctx context.Context, text string) {
	b.setUpdateMode(false)

	var mode, content string
	switch {
	case strings.HasPrefix(text, "REPLACE:"):
		mode, content = "replace", strings.TrimPrefix(text, "REPLACE:")
	case strings.HasPrefix(text, "APPEND:"):
		mode, content = "append", strings.TrimPrefix(text, "APPEND:")
	case strings.HasPrefix(text, "PREPEND:"):
		mode, content = "prepend", strings.TrimPrefix(text, "PREPEND:")
	case strings.EqualFold(text, "CANCEL"):
		b.reply(ctx, "[OK] Update cancelled")
		return
	default:
		b.reply(ctx, "[ERROR] Invalid format. Use REPLACE:/APPEND:/PREPEND:/CANCEL")
		return
	}

	res, err := b.Instructions.Update(content, mode)
	if err != nil {
		b.reply(ctx, "[ERROR] Update failed: "+err.Error())
		return
	}
	b.reply(ctx, fmt.Sprintf("[OK] Instructions updated (%s, %d chars)\nBackup: %s",
		res.Mode, res.Size, res.BackupFile))
}

// handleEditText consumes the replacement text after an [EDIT] press
// and asks for explicit confirmation before anything is sent.
func (b *Bot) handleEditText(ctx context.Context, chatID int64, text string) {
	d, err := b.Drafts.Get(chatID)
	if err != nil {
		b.reply(ctx, "[ERROR] Draft not found - already sent?")
		return
	}

	b.setPendingEdit(chatID, text)

	confirmation := fmt.Sprintf(
		"[EDITED DRAFT] for %s (ID: %d)\n\nNEW TEXT:\n%s\n\nConfirm to send this edited version:",
		d.ChatTitle, chatID, text)
	keyboard := &telegram.InlineKeyboardMarkup{
		InlineKeyboard: [][]telegram.InlineKeyboardButton{{
			{Text: "[SEND] Confirm & Send", CallbackData: fmt.Sprintf("confirm_%d", chatID)},
		}},
	}
	if err := b.Telegram.SendWithKeyboard(ctx, b.OwnerID, confirmation, keyboard); err != nil {
		slog.Warn("review_reply_failed", "error", err.Error())
	}
}

func (b *Bot) handleCallback(ctx context.Context, cq *telegram.CallbackQuery) {
	if cq.From == nil || cq.From.ID != b.OwnerID {
		slog.Warn("review_callback_unauthorized", "from", callbackFromID(cq))
		b.answerCallback(ctx, cq.ID, "Not authorized")
		return
	}

	action, chatID, ok := parseCallbackData(cq.Data)
	if !ok {
		b.answerCallback(ctx, cq.ID, "Unknown action")
		return
	}

	switch action {
	case "send":
		b.callbackSend(ctx, cq, chatID)
	case "edit":
		b.callbackEdit(ctx, cq, chatID)
	case "skip":
		b.callbackSkip(ctx, cq, chatID)
	case "confirm":
		b.callbackConfirm(ctx, cq, chatID)
	default:
		b.answerCallback(ctx, cq.ID, "Unknown action")
	}
}

// parseCallbackData splits "send_12345" style button payloads.
func parseCallbackData(data string) (action string, chatID int64, ok bool) {
	action, rest, found := strings.Cut(strings.TrimSpace(data), "_")
	if !found || action == "" {
		return "", 0, false
	}
	id, err := strconv.ParseInt(rest, 10, 64)
	if err != nil {
		return "", 0, false
	}
	return action, id, true
}

func (b *Bot) callbackSend(ctx context.Context, cq *telegram.CallbackQuery, chatID int64) {
	d, err := b.Drafts.Get(chatID)
	if err != nil {
		b.answerCallback(ctx, cq.ID, "Draft not found")
		b.editCallbackMessage(ctx, cq, msgDraftGone)
		return
	}

	method, err := b.Deliver.Send(ctx, chatID, d.Text)
	if err != nil {
		slog.Warn("draft_send_failed", "chat_id", chatID, "error", err.Error())
		b.answerCallback(ctx, cq.ID, "Send failed: "+err.Error())
		return
	}

	b.recordApproval(d.ChatID, d.ChatTitle, d.OriginalMessage, d.Text, d.Confidence)
	b.Drafts.Remove(chatID)
	b.answerCallback(ctx, cq.ID, "Sent")
	b.appendToCallbackMessage(ctx, cq, fmt.Sprintf("[SUCCESS] Message sent to chat %d via %s", chatID, method))
	slog.Info("draft_approved", "chat_id", chatID, "method", method)
}

func (b *Bot) callbackEdit(ctx context.Context, cq *telegram.CallbackQuery, chatID int64) {
	if _, err := b.Drafts.Get(chatID); err != nil {
		b.answerCallback(ctx, cq.ID, "Draft not found")
		b.editCallbackMessage(ctx, cq, msgDraftGone)
		return
	}

	b.setEditTarget(chatID)
	b.answerCallback(ctx, cq.ID, "Send the new text")
	b.appendToCallbackMessage(ctx, cq, msgAwaitingEdit)
	b.reply(ctx, fmt.Sprintf("Send the replacement text for chat %d as your next message.", chatID))
}

func (b *Bot) callbackSkip(ctx context.Context, cq *telegram.CallbackQuery, chatID int64) {
	b.Drafts.Remove(chatID)
	b.clearPendingEdit(chatID)
	b.answerCallback(ctx, cq.ID, "Skipped")
	b.appendToCallbackMessage(ctx, cq, msgSkippedByUser)
	slog.Info("draft_skipped", "chat_id", chatID)
}

func (b *Bot) callbackConfirm(ctx context.Context, cq *telegram.CallbackQuery, chatID int64) {
	text, ok := b.takePendingEdit(chatID)
	if !ok {
		b.answerCallback(ctx, cq.ID, "Edit text not found")
		return
	}
	d, err := b.Drafts.Get(chatID)
	if err != nil {
		b.answerCallback(ctx, cq.ID, "Draft not found")
		b.editCallbackMessage(ctx, cq, msgDraftGone)
		return
	}

	method, err := b.Deliver.Send(ctx, chatID, text)
	if err != nil {
		slog.Warn("draft_send_failed", "chat_id", chatID, "error", err.Error())
		// Keep the edit so the owner can retry the confirm button.
		b.setPendingEdit(chatID, text)
		b.answerCallback(ctx, cq.ID, "Send failed: "+err.Error())
		return
	}

	b.recordApproval(d.ChatID, d.ChatTitle, d.OriginalMessage, text, d.Confidence)
	b.Drafts.Remove(chatID)
	b.answerCallback(ctx, cq.ID, "Sent")
	b.appendToCallbackMessage(ctx, cq, fmt.Sprintf("[SUCCESS] Edited message sent to chat %d via %s", chatID, method))
	slog.Info("draft_approved", "chat_id", chatID, "method", method, "edited", true)
}

// recordApproval feeds the knowledge store; learning failures never
// block the approval itself.
func (b *Bot) recordApproval(chatID int64, chatTitle, question, response string, confidence int) {
	if b.Knowledge == nil {
		return
	}
	if err := b.Knowledge.Add(chatID, chatTitle, question, response, confidence); err != nil {
		slog.Warn("knowledge_add_failed", "chat_id", chatID, "error", err.Error())
	}
}

func (b *Bot) answerCallback(ctx context.Context, id, text string) {
	if err := b.Telegram.AnswerCallbackQuery(ctx, id, text); err != nil {
		slog.Warn("callback_answer_failed", "error", err.Error())
	}
}

// appendToCallbackMessage rewrites the notification the button was
// attached to, appending the outcome and dropping the keyboard.
func (b *Bot) appendToCallbackMessage(ctx context.Context, cq *telegram.CallbackQuery, suffix string) {
	if cq.Message == nil || cq.Message.Chat == nil {
		return
	}
	text := strings.TrimSpace(cq.Message.Text) + "\n\n" + suffix
	if err := b.Telegram.EditMessageText(ctx, cq.Message.Chat.ID, cq.Message.MessageID, text, nil); err != nil {
		slog.Warn("callback_edit_failed", "error", err.Error())
	}
}

func (b *Bot) editCallbackMessage(ctx context.Context, cq *telegram.CallbackQuery, text string) {
	if cq.Message == nil || cq.Message.Chat == nil {
		return
	}
	if err := b.Telegram.EditMessageText(ctx, cq.Message.Chat.ID, cq.Message.MessageID, text, nil); err != nil {
		slog.Warn("callback_edit_failed", "error", err.Error())
	}
}

func callbackFromID(cq *telegram.CallbackQuery) int64 {
	if cq.From == nil {
		return 0
	}
	return cq.From.ID
}

// Conversational state accessors. The owner talks to one bot, so the
// state is a single edit target plus the per-chat pending edits.

func (b *Bot) inUpdateMode() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.updateMode
}

func (b *Bot) setUpdateMode(on bool) {
	b.mu.Lock()
	b.updateMode = on
	b.mu.Unlock()
}

func (b *Bot) setEditTarget(chatID int64) {
	b.mu.Lock()
	b.editTarget = chatID
	b.mu.Unlock()
}

func (b *Bot) takeEditTarget() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	target := b.editTarget
	b.editTarget = 0
	return target
}

func (b *Bot) setPendingEdit(chatID int64, text string) {
	b.mu.Lock()
	if b.pendingEdits == nil {
		b.pendingEdits = make(map[int64]string)
	}
	b.pendingEdits[chatID] = text
	b.mu.Unlock()
}

func (b *Bot) takePendingEdit(chatID int64) (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	text, ok := b.pendingEdits[chatID]
	if ok {
		delete(b.pendingEdits, chatID)
	}
	return text, ok
}

func (b *Bot) clearPendingEdit(chatID int64) {
	b.mu.Lock()
	delete(b.pendingEdits, chatID)
	b.mu.Unlock()
}

func (b *Bot) resetConversationState() {
	b.mu.Lock()
	b.editTarget = 0
	b.updateMode = false
	b.mu.Unlock()
}
