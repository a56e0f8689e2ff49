package telegramapi

import (
	"strconv"

	"github.com/onnwee/signature-relay/entities"
)

// Update is one incoming event from getUpdates. Only message updates are consumed.
type Update struct {
	UpdateID      int64    `json:"update_id"`
	Message       *Message `json:"message,omitempty"`
	EditedMessage *Message `json:"edited_message,omitempty"`
	ChannelPost   *Message `json:"channel_post,omitempty"`
}

// Message is the subset of the Bot API message object the relay reads.
type Message struct {
	MessageID       int64           `json:"message_id"`
	From            *User           `json:"from,omitempty"`
	Chat            Chat            `json:"chat"`
	Date            int64           `json:"date"`
	Text            string          `json:"text,omitempty"`
	Entities        []entities.Span `json:"entities,omitempty"`
	Caption         string          `json:"caption,omitempty"`
	CaptionEntities []entities.Span `json:"caption_entities,omitempty"`
	Photo           []PhotoSize     `json:"photo,omitempty"`
	Video           *File           `json:"video,omitempty"`
	Audio           *File           `json:"audio,omitempty"`
	Voice           *File           `json:"voice,omitempty"`
}

type User struct {
	ID        int64  `json:"id"`
	IsBot     bool   `json:"is_bot"`
	FirstName string `json:"first_name"`
	Username  string `json:"username,omitempty"`
}

type Chat struct {
	ID       int64  `json:"id"`
	Type     string `json:"type"`
	Title    string `json:"title,omitempty"`
	Username string `json:"username,omitempty"`
}

// Ref returns the chat id in the string form accepted by every method.
func (c Chat) Ref() string { return strconv.FormatInt(c.ID, 10) }

type PhotoSize struct {
	FileID       string `json:"file_id"`
	FileUniqueID string `json:"file_unique_id"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	FileSize     int64  `json:"file_size,omitempty"`
}

// File covers the video, audio and voice objects; the relay only needs the file id.
type File struct {
	FileID       string `json:"file_id"`
	FileUniqueID string `json:"file_unique_id"`
	Duration     int    `json:"duration,omitempty"`
	MimeType     string `json:"mime_type,omitempty"`
	FileSize     int64  `json:"file_size,omitempty"`
}

// MediaKind selects the send method and the field carrying the file id.
type MediaKind string

const (
	MediaPhoto MediaKind = "photo"
	MediaVideo MediaKind = "video"
	MediaAudio MediaKind = "audio"
	MediaVoice MediaKind = "voice"
)

func (k MediaKind) method() string {
	switch k {
	case MediaPhoto:
		return "sendPhoto"
	case MediaVideo:
		return "sendVideo"
	case MediaAudio:
		return "sendAudio"
	case MediaVoice:
		return "sendVoice"
	default:
		return ""
	}
}

// SendMessageParams are the sendMessage arguments. Entities are sent as-is; no parse mode is used.
type SendMessageParams struct {
	ChatID   string          `json:"chat_id"`
	Text     string          `json:"text"`
	Entities []entities.Span `json:"entities,omitempty"`
}

// SendMediaParams are the shared arguments of sendPhoto/Video/Audio/Voice.
type SendMediaParams struct {
	ChatID          string
	FileID          string
	Caption         string
	CaptionEntities []entities.Span
}
