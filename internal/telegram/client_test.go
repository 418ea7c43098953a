package telegram

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestSendMarkdown_EscapesBeforeSendingMarkdownV2(t *testing.T) {
	var parseModes []string
	var texts []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || !strings.HasSuffix(r.URL.Path, "/sendMessage") {
			t.Fatalf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		raw, _ := io.ReadAll(r.Body)
		var req sendMessageRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		parseModes = append(parseModes, req.ParseMode)
		texts = append(texts, req.Text)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	api := New(srv.Client(), srv.URL, "TOKEN")
	if err := api.SendMarkdown(context.Background(), 1001, "hello-world", true); err != nil {
		t.Fatalf("SendMarkdown() error = %v", err)
	}

	if len(parseModes) != 1 {
		t.Fatalf("expected 1 send attempt, got %d", len(parseModes))
	}
	if parseModes[0] != "MarkdownV2" {
		t.Fatalf("first attempt parse_mode mismatch: got %q", parseModes[0])
	}
	if texts[0] != "hello\\-world" {
		t.Fatalf("MarkdownV2 text should be escaped on first attempt: got %q", texts[0])
	}
}

func TestSendMarkdown_FallbackToPlainOnParseError(t *testing.T) {
	var parseModes []string
	var texts []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		var req sendMessageRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		parseModes = append(parseModes, req.ParseMode)
		texts = append(texts, req.Text)

		w.Header().Set("Content-Type", "application/json")
		if len(parseModes) == 1 {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"ok":false,"error_code":400,"description":"Bad Request: can't parse entities: Character '-' is reserved and must be escaped"}`))
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	api := New(srv.Client(), srv.URL, "TOKEN")
	if err := api.SendMarkdown(context.Background(), 1001, "hello-world", true); err != nil {
		t.Fatalf("SendMarkdown() error = %v", err)
	}

	if len(parseModes) != 2 {
		t.Fatalf("expected 2 send attempts, got %d", len(parseModes))
	}
	if parseModes[0] != "MarkdownV2" || parseModes[1] != "" {
		t.Fatalf("unexpected parse_mode attempts: %#v", parseModes)
	}
	if texts[1] != "hello-world" {
		t.Fatalf("plain-text fallback should use original text: got %q", texts[1])
	}
}

func TestSendMarkdown_DoesNotFallbackOnNonParseError(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"ok":false,"error_code":401,"description":"Unauthorized"}`))
	}))
	defer srv.Close()

	api := New(srv.Client(), srv.URL, "TOKEN")
	err := api.SendMarkdown(context.Background(), 1001, "hello", true)
	if err == nil {
		t.Fatalf("expected error")
	}
	if attempts != 1 {
		t.Fatalf("expected no plain-text fallback for non-parse errors, got %d attempts", attempts)
	}
}

func TestSendWithKeyboardCarriesReplyMarkup(t *testing.T) {
	var got sendMessageRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(raw, &got); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	api := New(srv.Client(), srv.URL, "TOKEN")
	kb := &InlineKeyboardMarkup{InlineKeyboard: [][]InlineKeyboardButton{
		{{Text: "[SEND] Send", CallbackData: "send_42"}},
	}}
	if err := api.SendWithKeyboard(context.Background(), 42, "draft ready", kb); err != nil {
		t.Fatalf("SendWithKeyboard() error = %v", err)
	}
	if got.ReplyMarkup == nil || len(got.ReplyMarkup.InlineKeyboard) != 1 {
		t.Fatalf("reply_markup missing: %+v", got)
	}
	if got.ReplyMarkup.InlineKeyboard[0][0].CallbackData != "send_42" {
		t.Fatalf("callback_data mismatch: %+v", got.ReplyMarkup)
	}
}

func TestGetUpdatesAdvancesOffset(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/getUpdates") {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true,"result":[
			{"update_id":7,"message":{"message_id":1,"chat":{"id":10,"type":"private","first_name":"Olena"},"text":"hi"}},
			{"update_id":9,"callback_query":{"id":"cb1","data":"send_10"}}
		]}`))
	}))
	defer srv.Close()

	api := New(srv.Client(), srv.URL, "TOKEN")
	updates, next, err := api.GetUpdates(context.Background(), 0, 0)
	if err != nil {
		t.Fatalf("GetUpdates() error = %v", err)
	}
	if len(updates) != 2 {
		t.Fatalf("GetUpdates() len = %d, want 2", len(updates))
	}
	if next != 10 {
		t.Fatalf("GetUpdates() next offset = %d, want 10", next)
	}
	if updates[0].Message == nil || updates[0].Message.Chat.DisplayTitle() != "Olena" {
		t.Fatalf("unexpected first update: %+v", updates[0])
	}
	if updates[1].CallbackQuery == nil || updates[1].CallbackQuery.Data != "send_10" {
		t.Fatalf("unexpected second update: %+v", updates[1])
	}
}

func TestEditMessageText(t *testing.T) {
	var got editMessageTextRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/editMessageText") {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		raw, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(raw, &got); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	api := New(srv.Client(), srv.URL, "TOKEN")
	if err := api.EditMessageText(context.Background(), 42, 7, "updated", nil); err != nil {
		t.Fatalf("EditMessageText() error = %v", err)
	}
	if got.ChatID != 42 || got.MessageID != 7 || got.Text != "updated" {
		t.Fatalf("editMessageText request mismatch: %+v", got)
	}
}

func TestMessageHasMedia(t *testing.T) {
	t.Parallel()

	if (&Message{Text: "plain"}).HasMedia() {
		t.Fatalf("text message should not report media")
	}
	doc := &Message{Document: &Document{FileID: "f1", FileName: "invoice.pdf"}}
	if !doc.HasMedia() {
		t.Fatalf("document message should report media")
	}
	if doc.MediaLabel() != "invoice.pdf" {
		t.Fatalf("MediaLabel() = %q, want invoice.pdf", doc.MediaLabel())
	}
	photo := &Message{Photo: []PhotoSize{{FileID: "p1"}}}
	if photo.MediaLabel() != "photo" {
		t.Fatalf("MediaLabel() = %q, want photo", photo.MediaLabel())
	}
}

func TestEscapeMarkdownV2(t *testing.T) {
	t.Parallel()

	in := "a_b*c[d]e(f)g~h`i>j#k+l-m=n|o{p}q.r!s"
	got := EscapeMarkdownV2(in)
	want := "a\\_b\\*c\\[d\\]e\\(f\\)g\\~h\\`i\\>j\\#k\\+l\\-m\\=n\\|o\\{p\\}q\\.r\\!s"
	if got != want {
		t.Fatalf("EscapeMarkdownV2() = %q, want %q", got, want)
	}
	if EscapeMarkdownV2("  ") != "  " {
		t.Fatalf("blank input should pass through")
	}
}

func TestIsPollTimeout(t *testing.T) {
	t.Parallel()

	if !IsPollTimeout(context.DeadlineExceeded) {
		t.Fatalf("deadline exceeded should count as poll timeout")
	}
	if IsPollTimeout(nil) {
		t.Fatalf("nil error is not a poll timeout")
	}
}
