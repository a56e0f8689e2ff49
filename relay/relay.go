package relay

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/onnwee/signature-relay/telegramapi"
	"github.com/onnwee/signature-relay/telemetry"
)

// relay sends the signed payload back to the sender and, when bound, to their channel.
func (b *Bot) relay(ctx context.Context, log *slog.Logger, m *telegramapi.Message, p payload) {
	sig, err := b.store.GetSignature(ctx, m.From.ID)
	if isMissing(err) {
		log.Debug("no signature set, not relaying")
		return
	}
	if err != nil {
		b.storageFailed(ctx, log, m, "get signature", err)
		return
	}
	binding, err := b.store.GetChannel(ctx, m.From.ID)
	hasChannel := err == nil
	if err != nil && !isMissing(err) {
		b.storageFailed(ctx, log, m, "get channel", err)
		return
	}

	ctx, span := telemetry.StartSpan(ctx, "relay.send", telemetry.PayloadAttr(p.Kind))
	defer span.End()

	signed := p.sign(sig.Text, sig.Spans)
	telemetry.IncRelay(p.Kind)

	if err := b.send(ctx, m.Chat.Ref(), signed); err != nil {
		telemetry.IncRelayFailure("user")
		telemetry.RecordError(span, err)
		log.Error("failed to relay to user", slog.String("kind", p.Kind), slog.Any("err", err))
	}
	if !hasChannel {
		return
	}
	if err := b.send(ctx, binding.Channel, signed); err != nil {
		telemetry.IncRelayFailure("channel")
		telemetry.RecordError(span, err)
		log.Error("failed to relay to channel", slog.String("channel", binding.Channel), slog.Any("err", err))
		b.reply(ctx, log, m, fmt.Sprintf(msgChannelSendFailed, binding.Channel, err))
		return
	}
	log.Debug("relayed", slog.String("kind", p.Kind), slog.String("channel", binding.Channel))
}

func (b *Bot) send(ctx context.Context, chatID string, p payload) error {
	if !p.media() {
		_, err := b.api.SendMessage(ctx, telegramapi.SendMessageParams{ChatID: chatID, Text: p.Text, Entities: p.Spans})
		return err
	}
	_, err := b.api.SendMedia(ctx, telegramapi.MediaKind(p.Kind), telegramapi.SendMediaParams{
		ChatID:          chatID,
		FileID:          p.FileID,
		Caption:         p.Text,
		CaptionEntities: p.Spans,
	})
	return err
}
