package telegram

import "strings"

type Update struct {
	UpdateID      int64          `json:"update_id"`
	Message       *Message       `json:"message,omitempty"`
	EditedMessage *Message       `json:"edited_message,omitempty"`
	CallbackQuery *CallbackQuery `json:"callback_query,omitempty"`
}

type Message struct {
	MessageID int64  `json:"message_id"`
	Date      int64  `json:"date,omitempty"`
	Chat      *Chat  `json:"chat,omitempty"`
	From      *User  `json:"from,omitempty"`
	Text      string `json:"text,omitempty"`
	Caption   string `json:"caption,omitempty"`

	// Attachments (subset). Presence is what matters: messages that
	// carry media instead of text cannot be analyzed as text.
	Document *Document   `json:"document,omitempty"`
	Photo    []PhotoSize `json:"photo,omitempty"`
	Voice    *Voice      `json:"voice,omitempty"`
	Audio    *Audio      `json:"audio,omitempty"`
	Video    *Video      `json:"video,omitempty"`
	Sticker  *Sticker    `json:"sticker,omitempty"`
}

// HasMedia reports whether the message carries an attachment payload.
func (m *Message) HasMedia() bool {
	if m == nil {
		return false
	}
	return m.Document != nil || len(m.Photo) > 0 || m.Voice != nil ||
		m.Audio != nil || m.Video != nil || m.Sticker != nil
}

// MediaLabel returns a short human label for the attachment, preferring
// the original file name when the payload carries one.
func (m *Message) MediaLabel() string {
	if m == nil {
		return ""
	}
	switch {
	case m.Document != nil:
		if name := strings.TrimSpace(m.Document.FileName); name != "" {
			return name
		}
		return "document"
	case len(m.Photo) > 0:
		return "photo"
	case m.Voice != nil:
		return "voice message"
	case m.Audio != nil:
		if name := strings.TrimSpace(m.Audio.FileName); name != "" {
			return name
		}
		return "audio"
	case m.Video != nil:
		if name := strings.TrimSpace(m.Video.FileName); name != "" {
			return name
		}
		return "video"
	case m.Sticker != nil:
		return "sticker"
	default:
		return ""
	}
}

type Chat struct {
	ID        int64  `json:"id"`
	Type      string `json:"type,omitempty"` // private|group|supergroup|channel
	Title     string `json:"title,omitempty"`
	Username  string `json:"username,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

// DisplayTitle returns the chat title for groups and channels, or the
// counterpart's name for private chats.
func (c *Chat) DisplayTitle() string {
	if c == nil {
		return ""
	}
	if title := strings.TrimSpace(c.Title); title != "" {
		return title
	}
	first := strings.TrimSpace(c.FirstName)
	last := strings.TrimSpace(c.LastName)
	username := strings.TrimSpace(c.Username)
	switch {
	case first != "" && last != "":
		return first + " " + last
	case first != "":
		return first
	case last != "":
		return last
	case username != "":
		return "@" + username
	default:
		return ""
	}
}

type User struct {
	ID        int64  `json:"id"`
	IsBot     bool   `json:"is_bot,omitempty"`
	Username  string `json:"username,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

func DisplayName(u *User) string {
	if u == nil {
		return ""
	}
	first := strings.TrimSpace(u.FirstName)
	last := strings.TrimSpace(u.LastName)
	username := strings.TrimSpace(u.Username)
	switch {
	case first != "" && last != "":
		return first + " " + last
	case first != "":
		return first
	case last != "":
		return last
	case username != "":
		return "@" + username
	default:
		return ""
	}
}

type CallbackQuery struct {
	ID      string   `json:"id"`
	From    *User    `json:"from,omitempty"`
	Message *Message `json:"message,omitempty"`
	Data    string   `json:"data,omitempty"`
}

type Document struct {
	FileID   string `json:"file_id"`
	FileName string `json:"file_name,omitempty"`
	MimeType string `json:"mime_type,omitempty"`
	FileSize int64  `json:"file_size,omitempty"`
}

type PhotoSize struct {
	FileID   string `json:"file_id"`
	Width    int    `json:"width,omitempty"`
	Height   int    `json:"height,omitempty"`
	FileSize int64  `json:"file_size,omitempty"`
}

type Voice struct {
	FileID   string `json:"file_id"`
	Duration int    `json:"duration,omitempty"`
}

type Audio struct {
	FileID   string `json:"file_id"`
	FileName string `json:"file_name,omitempty"`
	Duration int    `json:"duration,omitempty"`
}

type Video struct {
	FileID   string `json:"file_id"`
	FileName string `json:"file_name,omitempty"`
	Duration int    `json:"duration,omitempty"`
}

type Sticker struct {
	FileID string `json:"file_id"`
	Emoji  string `json:"emoji,omitempty"`
}

type InlineKeyboardButton struct {
	Text         string `json:"text"`
	CallbackData string `json:"callback_data,omitempty"`
}

type InlineKeyboardMarkup struct {
	InlineKeyboard [][]InlineKeyboardButton `json:"inline_keyboard"`
}
