package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/onnwee/signature-relay/entities"
	"github.com/onnwee/signature-relay/store"
	"github.com/onnwee/signature-relay/telegramapi"
	"github.com/onnwee/signature-relay/telemetry"
)

// Messenger is the subset of the Bot API the relay sends through.
type Messenger interface {
	SendMessage(ctx context.Context, p telegramapi.SendMessageParams) (*telegramapi.Message, error)
	SendMedia(ctx context.Context, kind telegramapi.MediaKind, p telegramapi.SendMediaParams) (*telegramapi.Message, error)
	DeleteMessage(ctx context.Context, chatID string, messageID int64) error
}

// Bot handles updates. It holds no per-user state; everything lives in the store.
type Bot struct {
	api      Messenger
	store    store.Store
	log      *slog.Logger
	username string
}

// New creates a Bot. username is the bot's own @handle (without "@"); when set, commands
// addressed to another bot ("/start@other_bot") are ignored.
func New(api Messenger, st store.Store, username string, log *slog.Logger) *Bot {
	if log == nil {
		log = slog.Default()
	}
	return &Bot{
		api:      api,
		store:    st,
		log:      log.With(slog.String("component", "relay")),
		username: strings.TrimPrefix(username, "@"),
	}
}

// HandleUpdate processes one update. Failures are logged and, where the user should know,
// reported back to them; nothing is returned because there is nobody else to tell.
func (b *Bot) HandleUpdate(ctx context.Context, u telegramapi.Update) {
	corr := uuid.NewString()
	if u.UpdateID != 0 {
		corr = "upd-" + strconv.FormatInt(u.UpdateID, 10)
	}
	ctx = telemetry.WithCorrelation(ctx, corr)
	ctx, span := telemetry.StartSpan(ctx, "relay.update", telemetry.UpdateIDAttr(u.UpdateID))
	defer span.End()

	telemetry.TimeFunc(telemetry.HandleDuration, func() {
		m := u.Message
		if m == nil || m.From == nil {
			// channel posts, edits and other update kinds
			return
		}
		span.SetAttributes(telemetry.UserIDAttr(m.From.ID))
		b.handleMessage(ctx, m)
	})
}

func (b *Bot) handleMessage(ctx context.Context, m *telegramapi.Message) {
	log := telemetry.LoggerWithCorr(ctx, b.log).With(slog.Int64("user", m.From.ID))

	if isCommand(m.Text) {
		b.handleCommand(ctx, log, m)
		return
	}
	p, ok := payloadOf(m)
	if !ok {
		log.Debug("ignoring message without relayable content", slog.Int64("message_id", m.MessageID))
		return
	}
	b.relay(ctx, log, m, p)
}

// reply sends plain text to the chat the message came from. Send failures are only logged.
func (b *Bot) reply(ctx context.Context, log *slog.Logger, m *telegramapi.Message, text string) {
	b.replyFormatted(ctx, log, m, text, nil)
}

func (b *Bot) replyFormatted(ctx context.Context, log *slog.Logger, m *telegramapi.Message, text string, spans []entities.Span) {
	_, err := b.api.SendMessage(ctx, telegramapi.SendMessageParams{ChatID: m.Chat.Ref(), Text: text, Entities: spans})
	if err != nil {
		telemetry.IncRelayFailure("user")
		log.Error("failed to send reply", slog.Any("err", err))
	}
}

// storageFailed logs a store error and tells the user to try later. Records the store
// rejected before touching the backend get their own reply.
func (b *Bot) storageFailed(ctx context.Context, log *slog.Logger, m *telegramapi.Message, op string, err error) {
	if !store.IsStorageError(err) {
		log.Warn("record rejected", slog.String("op", op), slog.Any("err", err))
		b.reply(ctx, log, m, fmt.Sprintf(msgRecordRejected, err))
		return
	}
	telemetry.IncStoreError()
	log.Error("storage error", slog.String("op", op), slog.Any("err", err))
	b.reply(ctx, log, m, msgStorageUnavailable)
}

// isMissing reports whether err is the store's not-found sentinel.
func isMissing(err error) bool { return errors.Is(err, store.ErrNotFound) }
