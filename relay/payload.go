package relay

import (
	"github.com/onnwee/signature-relay/entities"
	"github.com/onnwee/signature-relay/telegramapi"
)

// payload is the relayable content of a message: text, or one media item with its caption.
type payload struct {
	Kind   string // "text" or a telegramapi.MediaKind
	Text   string // message text or media caption
	Spans  []entities.Span
	FileID string
}

func (p payload) media() bool { return p.Kind != kindText }

const kindText = "text"

// payloadOf extracts the relayable content of m. Photos use the largest size, which the
// Bot API lists last.
func payloadOf(m *telegramapi.Message) (payload, bool) {
	media := func(kind telegramapi.MediaKind, fileID string) (payload, bool) {
		return payload{Kind: string(kind), Text: m.Caption, Spans: m.CaptionEntities, FileID: fileID}, fileID != ""
	}
	switch {
	case len(m.Photo) > 0:
		return media(telegramapi.MediaPhoto, m.Photo[len(m.Photo)-1].FileID)
	case m.Video != nil:
		return media(telegramapi.MediaVideo, m.Video.FileID)
	case m.Audio != nil:
		return media(telegramapi.MediaAudio, m.Audio.FileID)
	case m.Voice != nil:
		return media(telegramapi.MediaVoice, m.Voice.FileID)
	case m.Text != "":
		return payload{Kind: kindText, Text: m.Text, Spans: m.Entities}, true
	default:
		return payload{}, false
	}
}

// sign appends the signature to the payload text. An empty caption takes the signature
// alone, without a separator.
func (p payload) sign(sigText string, sigSpans []entities.Span) payload {
	sep := signatureSeparator
	if p.media() && p.Text == "" {
		sep = ""
	}
	p.Text, p.Spans = entities.Compose(p.Text, p.Spans, sep, sigText, sigSpans)
	return p
}
