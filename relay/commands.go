package relay

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"github.com/onnwee/signature-relay/entities"
	"github.com/onnwee/signature-relay/store"
	"github.com/onnwee/signature-relay/telegramapi"
	"github.com/onnwee/signature-relay/telemetry"
)

// command is a parsed "/name@bot argument" message. argAt is the UTF-16 offset of the argument.
type command struct {
	name  string
	addr  string
	arg   string
	argAt int
}

// parseCommand splits text into the command token and its argument. The argument starts
// at the first non-space character after the token.
func parseCommand(text string) command {
	end := strings.IndexFunc(text, unicode.IsSpace)
	if end < 0 {
		end = len(text)
	}
	name, addr, _ := strings.Cut(text[1:end], "@")
	rest := text[end:]
	start := end + len(rest) - len(strings.TrimLeftFunc(rest, unicode.IsSpace))
	return command{
		name:  strings.ToLower(name),
		addr:  addr,
		arg:   text[start:],
		argAt: entities.UTF16Len(text[:start]),
	}
}

// isCommand reports whether text starts with a command token. A lone "/" or "/ text" is
// ordinary content.
func isCommand(text string) bool {
	return strings.HasPrefix(text, "/") && parseCommand(text).name != ""
}

func (b *Bot) handleCommand(ctx context.Context, log *slog.Logger, m *telegramapi.Message) {
	cmd := parseCommand(m.Text)
	if cmd.addr != "" && b.username != "" && !strings.EqualFold(cmd.addr, b.username) {
		return
	}

	var handle func(context.Context, *slog.Logger, *telegramapi.Message, command)
	switch cmd.name {
	case "start", "help":
		handle = b.cmdStart
	case "set_signature":
		handle = b.cmdSetSignature
	case "show_signature":
		handle = b.cmdShowSignature
	case "remove_signature":
		handle = b.cmdRemoveSignature
	case "set_channel":
		handle = b.cmdSetChannel
	case "show_channel":
		handle = b.cmdShowChannel
	case "remove_channel":
		handle = b.cmdRemoveChannel
	default:
		log.Debug("ignoring unknown command", slog.String("command", cmd.name))
		return
	}

	ctx, span := telemetry.StartSpan(ctx, "relay.command", telemetry.CommandAttr(cmd.name))
	defer span.End()
	telemetry.IncCommand(cmd.name)
	handle(ctx, log.With(slog.String("command", cmd.name)), m, cmd)
}

func (b *Bot) cmdStart(ctx context.Context, log *slog.Logger, m *telegramapi.Message, _ command) {
	b.reply(ctx, log, m, msgStart)
}

func (b *Bot) cmdSetSignature(ctx context.Context, log *slog.Logger, m *telegramapi.Message, cmd command) {
	if strings.TrimSpace(cmd.arg) == "" {
		b.reply(ctx, log, m, msgSetSignatureUsage)
		return
	}
	text, spans := entities.Split(m.Text, m.Entities, cmd.argAt)
	sig := store.Signature{Owner: m.From.ID, Text: text, Spans: spans, UpdatedAt: time.Now()}
	if err := b.store.SetSignature(ctx, sig); err != nil {
		b.storageFailed(ctx, log, m, "set signature", err)
		return
	}
	log.Info("signature set", slog.Int("spans", len(spans)))
	b.replySignature(ctx, log, m, msgSignatureSetHeader, text, spans)
}

func (b *Bot) cmdShowSignature(ctx context.Context, log *slog.Logger, m *telegramapi.Message, _ command) {
	sig, err := b.store.GetSignature(ctx, m.From.ID)
	if isMissing(err) {
		b.reply(ctx, log, m, msgNoSignature)
		return
	}
	if err != nil {
		b.storageFailed(ctx, log, m, "get signature", err)
		return
	}
	b.replySignature(ctx, log, m, msgSignatureShowHeader, sig.Text, sig.Spans)
}

// replySignature echoes a signature under header with its own formatting intact.
func (b *Bot) replySignature(ctx context.Context, log *slog.Logger, m *telegramapi.Message, header, text string, spans []entities.Span) {
	full, fullSpans := entities.Compose(header, nil, "", text, spans)
	b.replyFormatted(ctx, log, m, full, fullSpans)
}

func (b *Bot) cmdRemoveSignature(ctx context.Context, log *slog.Logger, m *telegramapi.Message, _ command) {
	removed, err := b.store.RemoveSignature(ctx, m.From.ID)
	if err != nil {
		b.storageFailed(ctx, log, m, "remove signature", err)
		return
	}
	if !removed {
		b.reply(ctx, log, m, msgNoSignature)
		return
	}
	log.Info("signature removed")
	b.reply(ctx, log, m, msgSignatureRemoved)
}

func (b *Bot) cmdSetChannel(ctx context.Context, log *slog.Logger, m *telegramapi.Message, cmd command) {
	fields := strings.Fields(cmd.arg)
	if len(fields) == 0 {
		b.reply(ctx, log, m, msgSetChannelUsage)
		return
	}
	channel := fields[0]
	log = log.With(slog.String("channel", channel))

	if err := b.checkChannel(ctx, log, channel); err != nil {
		telemetry.IncChannelCheck(false)
		log.Warn("channel check failed", slog.Any("err", err))
		b.reply(ctx, log, m, fmt.Sprintf(msgChannelFailed, err))
		return
	}
	telemetry.IncChannelCheck(true)

	binding := store.ChannelBinding{Owner: m.From.ID, Channel: channel, UpdatedAt: time.Now()}
	if err := b.store.SetChannel(ctx, binding); err != nil {
		b.storageFailed(ctx, log, m, "set channel", err)
		return
	}
	log.Info("channel set")
	b.reply(ctx, log, m, fmt.Sprintf(msgChannelSet, channel))
}

// checkChannel posts a test message to channel and deletes it again. Only a failed send
// fails the check; a failed delete leaves the test message behind and is logged.
func (b *Bot) checkChannel(ctx context.Context, log *slog.Logger, channel string) error {
	sent, err := b.api.SendMessage(ctx, telegramapi.SendMessageParams{ChatID: channel, Text: msgChannelCheck})
	if err != nil {
		return err
	}
	if err := b.api.DeleteMessage(ctx, channel, sent.MessageID); err != nil {
		log.Warn("failed to delete channel check message", slog.Int64("message_id", sent.MessageID), slog.Any("err", err))
	}
	return nil
}

func (b *Bot) cmdShowChannel(ctx context.Context, log *slog.Logger, m *telegramapi.Message, _ command) {
	binding, err := b.store.GetChannel(ctx, m.From.ID)
	if isMissing(err) {
		b.reply(ctx, log, m, msgNoChannel)
		return
	}
	if err != nil {
		b.storageFailed(ctx, log, m, "get channel", err)
		return
	}
	b.reply(ctx, log, m, fmt.Sprintf(msgChannelShow, binding.Channel))
}

func (b *Bot) cmdRemoveChannel(ctx context.Context, log *slog.Logger, m *telegramapi.Message, _ command) {
	removed, err := b.store.RemoveChannel(ctx, m.From.ID)
	if err != nil {
		b.storageFailed(ctx, log, m, "remove channel", err)
		return
	}
	if !removed {
		b.reply(ctx, log, m, msgNoChannel)
		return
	}
	log.Info("channel removed")
	b.reply(ctx, log, m, msgChannelRemoved)
}
