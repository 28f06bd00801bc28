// Package telegram delivers Telegram updates to the conversation dispatcher.
package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/ashureev/careerbot/internal/dispatch"
	"github.com/ashureev/careerbot/internal/domain"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// UserIDPrefix scopes Telegram chat ids away from other transports.
const UserIDPrefix = "tg:"

// API is the subset of *tgbotapi.BotAPI the bot uses.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

var _ API = (*tgbotapi.BotAPI)(nil)

// Bot routes /start and text messages to a Conversation.
type Bot struct {
	api            API
	conv           dispatch.Conversation
	logger         *slog.Logger
	handleTimeout  time.Duration
	pollTimeoutSec int

	mu     sync.Mutex
	queues map[int64][]tgbotapi.Update
	wg     sync.WaitGroup
}

// New connects to the Bot API with token.
func New(token string, conv dispatch.Conversation, logger *slog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("connect to telegram: %w", err)
	}
	b := NewWithAPI(api, conv, logger)
	b.logger.Info("Telegram bot authorized", "username", api.Self.UserName)
	return b, nil
}

// NewWithAPI creates a Bot over an existing API client.
func NewWithAPI(api API, conv dispatch.Conversation, logger *slog.Logger) *Bot {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bot{
		api:            api,
		conv:           conv,
		logger:         logger,
		handleTimeout:  2 * time.Minute,
		pollTimeoutSec: 60,
		queues:         make(map[int64][]tgbotapi.Update),
	}
}

// UserID returns the dispatcher user id for a chat.
func UserID(chatID int64) string {
	return UserIDPrefix + strconv.FormatInt(chatID, 10)
}

// HandleUpdate processes one update: /start resets, any other text is handled.
// Replies are sent in order.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Panic while handling update", "update_id", update.UpdateID, "panic", r)
		}
	}()

	msg := update.Message
	if msg == nil || msg.Chat == nil || msg.Text == "" {
		return
	}
	chatID := msg.Chat.ID
	userID := UserID(chatID)

	ctx, cancel := context.WithTimeout(ctx, b.handleTimeout)
	defer cancel()

	if _, err := b.api.Request(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)); err != nil {
		b.logger.Debug("Failed to send typing action", "user_id", userID, "error", err)
	}

	var (
		replies []domain.Reply
		err     error
	)
	if msg.IsCommand() && msg.Command() == "start" {
		replies, err = b.conv.Start(ctx, userID)
	} else {
		replies, err = b.conv.Handle(ctx, userID, msg.Text)
	}
	if err != nil {
		b.logger.Error("Failed to handle telegram message", "user_id", userID, "error", err)
		return
	}

	for _, r := range replies {
		out := tgbotapi.NewMessage(chatID, r.Text)
		if r.Markdown {
			out.ParseMode = tgbotapi.ModeMarkdown
		}
		if _, err := b.api.Send(out); err != nil {
			b.logger.Error("Failed to send telegram reply", "user_id", userID, "error", err)
			return
		}
	}
}

// RunPolling clears any webhook and long-polls until ctx is done.
// Chats are handled concurrently; updates within a chat run in arrival order.
func (b *Bot) RunPolling(ctx context.Context) error {
	if _, err := b.api.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		b.logger.Warn("Failed to delete webhook before polling", "error", err)
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.pollTimeoutSec
	updates := b.api.GetUpdatesChan(u)
	b.logger.Info("Telegram polling for updates")

	defer b.wg.Wait()
	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.dispatch(ctx, update)
		}
	}
}

// SetWebhook registers url with Telegram.
func (b *Bot) SetWebhook(url string) error {
	wh, err := tgbotapi.NewWebhook(url)
	if err != nil {
		return fmt.Errorf("create webhook config: %w", err)
	}
	if _, err := b.api.Request(wh); err != nil {
		return fmt.Errorf("set webhook: %w", err)
	}
	b.logger.Info("Telegram webhook registered", "url", url)
	return nil
}

// DeleteWebhook removes the webhook registration.
func (b *Bot) DeleteWebhook() error {
	if _, err := b.api.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		return fmt.Errorf("delete webhook: %w", err)
	}
	return nil
}

// WebhookHandler acknowledges each update immediately and queues it behind
// earlier updates from the same chat.
func (b *Bot) WebhookHandler(ctx context.Context) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var update tgbotapi.Update
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&update); err != nil {
			http.Error(w, "invalid update", http.StatusBadRequest)
			return
		}
		b.dispatch(ctx, update)
		w.WriteHeader(http.StatusOK)
	})
}

// Wait blocks until in-flight updates finish.
func (b *Bot) Wait() {
	b.wg.Wait()
}

// dispatch appends update to its chat's queue, starting a worker for the
// chat when none is running. Shutdown does not cancel in-flight updates;
// handleTimeout bounds them.
func (b *Bot) dispatch(ctx context.Context, update tgbotapi.Update) {
	if update.Message == nil || update.Message.Chat == nil {
		return
	}
	chatID := update.Message.Chat.ID

	b.mu.Lock()
	pending, running := b.queues[chatID]
	b.queues[chatID] = append(pending, update)
	if running {
		b.mu.Unlock()
		return
	}
	b.wg.Add(1)
	b.mu.Unlock()

	go b.drain(context.WithoutCancel(ctx), chatID)
}

// drain handles queued updates for chatID until the queue is empty.
func (b *Bot) drain(ctx context.Context, chatID int64) {
	defer b.wg.Done()
	for {
		b.mu.Lock()
		pending := b.queues[chatID]
		if len(pending) == 0 {
			delete(b.queues, chatID)
			b.mu.Unlock()
			return
		}
		update := pending[0]
		b.queues[chatID] = pending[1:]
		b.mu.Unlock()

		b.HandleUpdate(ctx, update)
	}
}
