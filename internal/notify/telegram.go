package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/flicky/premium-store/internal/model"
)

const captionLimit = 1024

// botAPI is the subset of *tgbotapi.BotAPI the notifier uses.
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// ActionFunc applies an admin decision and returns the text shown to the
// admin as the callback answer.
type ActionFunc func(ctx context.Context, action CallbackAction) (string, error)

// Decider applies an approve or reject decision to an order.
type Decider interface {
	Decide(ctx context.Context, orderNumber string, approve bool) (string, error)
}

// DecisionAction routes inline button presses to d.
func DecisionAction(d Decider) ActionFunc {
	return func(ctx context.Context, a CallbackAction) (string, error) {
		return d.Decide(ctx, a.OrderNumber, a.Approve)
	}
}

type Telegram struct {
	api         botAPI
	adminChatID int64
	currency    string
	log         *slog.Logger

	mu       sync.RWMutex
	onAction ActionFunc
}

func NewTelegram(token string, adminChatID int64, currency string, log *slog.Logger) (*Telegram, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("connect telegram bot: %w", err)
	}
	log.Info("telegram bot authorised", "bot", api.Self.UserName)
	return newTelegram(api, adminChatID, currency, log), nil
}

func newTelegram(api botAPI, adminChatID int64, currency string, log *slog.Logger) *Telegram {
	return &Telegram{api: api, adminChatID: adminChatID, currency: currency, log: log}
}

// OnAdminAction registers the handler for Approve/Reject button presses.
func (t *Telegram) OnAdminAction(fn ActionFunc) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onAction = fn
}

func decisionKeyboard(order *model.Order, customer *model.User) tgbotapi.InlineKeyboardMarkup {
	rows := [][]tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Approve", ApproveData(order.OrderNumber)),
			tgbotapi.NewInlineKeyboardButtonData("❌ Reject", RejectData(order.OrderNumber)),
		),
	}
	if customer != nil {
		if link := WhatsAppLink(customer.WhatsAppNumber); link != "" {
			rows = append(rows, tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonURL("💬 Contact Customer", link),
			))
		}
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// NotifyNewOrder posts the order to the admin chat, with the receipt photo
// attached when one was uploaded.
func (t *Telegram) NotifyNewOrder(ctx context.Context, order *model.Order, customer *model.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	text := FormatNewOrder(order, customer, t.currency)
	keyboard := decisionKeyboard(order, customer)

	if order.HasReceipt() {
		photo := tgbotapi.NewPhoto(t.adminChatID, tgbotapi.FileURL(order.PaymentReceipt))
		if utf8.RuneCountInString(text) <= captionLimit {
			photo.Caption = text
			photo.ParseMode = tgbotapi.ModeHTML
			photo.ReplyMarkup = keyboard
			_, err := t.api.Send(photo)
			if err == nil {
				return nil
			}
			t.log.Warn("send receipt photo, falling back to text", "order_number", order.OrderNumber, "error", err)
		} else if _, err := t.api.Send(photo); err != nil {
			t.log.Warn("send receipt photo", "order_number", order.OrderNumber, "error", err)
		}
	}

	msg := tgbotapi.NewMessage(t.adminChatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = keyboard
	if _, err := t.api.Send(msg); err != nil {
		return fmt.Errorf("send order message: %w", err)
	}
	return nil
}

func (t *Telegram) NotifyApprovalResult(ctx context.Context, order *model.Order, subscriptions int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(t.adminChatID, FormatDecision(order, subscriptions))
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := t.api.Send(msg); err != nil {
		return fmt.Errorf("send decision message: %w", err)
	}
	return nil
}

// Run long-polls for callback queries until ctx is cancelled.
func (t *Telegram) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	u.AllowedUpdates = []string{"callback_query"}
	updates := t.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			t.api.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if update.CallbackQuery != nil {
				t.handleCallback(ctx, update.CallbackQuery)
			}
		}
	}
}

func (t *Telegram) handleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	if cq.Message == nil || cq.Message.Chat == nil || cq.Message.Chat.ID != t.adminChatID {
		t.answer(cq.ID, "Not authorised")
		return
	}
	action, err := ParseCallbackData(cq.Data)
	if err != nil {
		t.answer(cq.ID, "Unknown action")
		return
	}

	t.mu.RLock()
	fn := t.onAction
	t.mu.RUnlock()
	if fn == nil {
		t.answer(cq.ID, "Approvals are not available")
		return
	}

	reply, err := fn(ctx, action)
	if err != nil {
		t.log.Error("admin action from telegram", "order_number", action.OrderNumber, "action", action.Verb(), "error", err)
		if reply == "" {
			reply = "Failed: " + err.Error()
		}
		t.answer(cq.ID, reply)
		return
	}
	t.answer(cq.ID, reply)

	// Remove the buttons from the handled message.
	edit := tgbotapi.NewEditMessageReplyMarkup(t.adminChatID, cq.Message.MessageID,
		tgbotapi.InlineKeyboardMarkup{InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{}})
	if _, err := t.api.Request(edit); err != nil {
		t.log.Warn("clear decision buttons", "order_number", action.OrderNumber, "error", err)
	}
}

func (t *Telegram) answer(callbackID, text string) {
	if _, err := t.api.Request(tgbotapi.NewCallback(callbackID, text)); err != nil && !errors.Is(err, context.Canceled) {
		t.log.Warn("answer callback", "error", err)
	}
}
