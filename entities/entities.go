// Package entities models Telegram message entities (formatting spans) and the offset
// arithmetic used to join and split formatted text fragments.
//
// Offsets and lengths are measured in UTF-16 code units, the unit the Bot API uses.
// Nothing in this package re-encodes text; only integer offsets move.
package entities

import (
	"errors"
	"fmt"
	"unicode/utf16"
)

// Kind is the Bot API entity type.
type Kind string

const (
	KindBold          Kind = "bold"
	KindItalic        Kind = "italic"
	KindUnderline     Kind = "underline"
	KindStrikethrough Kind = "strikethrough"
	KindSpoiler       Kind = "spoiler"
	KindCode          Kind = "code"
	KindPre           Kind = "pre"
	KindTextLink      Kind = "text_link"
	KindURL           Kind = "url"
	KindMention       Kind = "mention"
	KindHashtag       Kind = "hashtag"
	KindCashtag       Kind = "cashtag"
	KindBotCommand    Kind = "bot_command"
	KindEmail         Kind = "email"
	KindPhoneNumber   Kind = "phone_number"
	KindBlockquote    Kind = "blockquote"
	KindTextMention   Kind = "text_mention"
	KindCustomEmoji   Kind = "custom_emoji"
)

// ErrSpanOutOfRange is returned by Validate when a span does not fit its text.
var ErrSpanOutOfRange = errors.New("span out of range")

// Span marks a styled or linked substring. URL is only meaningful for KindTextLink; User,
// CustomEmojiID and Language belong to text_mention, custom_emoji and pre respectively and
// travel with the span unchanged.
type Span struct {
	Kind          Kind         `json:"type"`
	Offset        int          `json:"offset"`
	Length        int          `json:"length"`
	URL           string       `json:"url,omitempty"`
	User          *MentionUser `json:"user,omitempty"`
	CustomEmojiID string       `json:"custom_emoji_id,omitempty"`
	Language      string       `json:"language,omitempty"`
}

// MentionUser is the user a text_mention points at.
type MentionUser struct {
	ID        int64  `json:"id"`
	IsBot     bool   `json:"is_bot"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name,omitempty"`
	Username  string `json:"username,omitempty"`
}

// End returns the exclusive end offset of the span.
func (s Span) End() int { return s.Offset + s.Length }

// Normalize drops the URL from every kind except text_link.
func Normalize(s Span) Span {
	if s.Kind != KindTextLink {
		s.URL = ""
	}
	return s
}

// Clean returns a normalized copy of spans, or nil when there are none.
func Clean(spans []Span) []Span {
	if len(spans) == 0 {
		return nil
	}
	out := make([]Span, len(spans))
	for i, s := range spans {
		out[i] = Normalize(s)
	}
	return out
}

// Shift returns a copy of spans with every offset moved by delta.
func Shift(spans []Span, delta int) []Span {
	if spans == nil {
		return nil
	}
	out := make([]Span, len(spans))
	for i, s := range spans {
		s = Normalize(s)
		s.Offset += delta
		out[i] = s
	}
	return out
}

// Concat returns the spans of base + separator + suffix. Base spans keep their offsets;
// suffix spans, which are relative to the suffix, move right by baseLen + sepLen.
func Concat(base, suffix []Span, baseLen, sepLen int) []Span {
	out := make([]Span, 0, len(base)+len(suffix))
	for _, s := range base {
		out = append(out, Normalize(s))
	}
	delta := baseLen + sepLen
	for _, s := range suffix {
		s = Normalize(s)
		s.Offset += delta
		out = append(out, s)
	}
	return out
}

// Compose joins base, sep and suffix and remaps both span lists onto the result.
func Compose(base string, baseSpans []Span, sep, suffix string, suffixSpans []Span) (string, []Span) {
	return base + sep + suffix, Concat(baseSpans, suffixSpans, UTF16Len(base), UTF16Len(sep))
}

// Split cuts text at the UTF-16 offset at and returns the remainder with its spans
// re-based to the remainder's start. Spans ending at or before the cut are dropped.
// A span straddling the cut is truncated to the part that lies in the remainder.
func Split(text string, spans []Span, at int) (string, []Span) {
	if at <= 0 {
		return text, Clean(spans)
	}
	rest := text[IndexUTF16(text, at):]
	var out []Span
	for _, s := range spans {
		s = Normalize(s)
		switch {
		case s.Offset >= at:
			s.Offset -= at
		case s.End() <= at:
			continue
		default:
			s.Length = s.End() - at
			s.Offset = 0
		}
		out = append(out, s)
	}
	return rest, out
}

// UTF16Len returns the length of s in UTF-16 code units.
func UTF16Len(s string) int {
	n := 0
	for _, r := range s {
		n += utf16.RuneLen(r)
	}
	return n
}

// IndexUTF16 converts a UTF-16 offset into a byte index of s. An offset inside a
// surrogate pair rounds up to the next rune; offsets past the end clamp to len(s).
func IndexUTF16(s string, u int) int {
	if u <= 0 {
		return 0
	}
	n := 0
	for i, r := range s {
		if n >= u {
			return i
		}
		n += utf16.RuneLen(r)
	}
	return len(s)
}

// Validate checks that every span lies within text.
func Validate(text string, spans []Span) error {
	size := UTF16Len(text)
	for _, s := range spans {
		if s.Offset < 0 || s.Length < 0 || s.End() > size {
			return fmt.Errorf("%w: %s at %d+%d, text length %d", ErrSpanOutOfRange, s.Kind, s.Offset, s.Length, size)
		}
	}
	return nil
}
