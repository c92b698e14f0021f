// Package telegram is the operator front end: inline menus that drive the
// shift service, with typed replies routed by the chat's pending draft.
package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/zombor/shift-ledger/internal/errs"
	"github.com/zombor/shift-ledger/internal/ledger"
	"github.com/zombor/shift-ledger/internal/report"
	"github.com/zombor/shift-ledger/internal/shift"
)

// maxMessageLen is Telegram's limit for one text message.
const maxMessageLen = 4096

// Sender is the part of the Bot API the bot talks to.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Bot dispatches Telegram updates to the shift service
type Bot struct {
	api     Sender
	service *shift.Service
	refunds bool

	mu         sync.Mutex
	lastReport map[int64]string
}

// New creates a Bot. refunds toggles the refund menu.
func New(api Sender, service *shift.Service, refunds bool) *Bot {
	return &Bot{
		api:        api,
		service:    service,
		refunds:    refunds,
		lastReport: make(map[int64]string),
	}
}

// Run handles updates until ctx is done or the channel closes.
func (b *Bot) Run(ctx context.Context, updates tgbotapi.UpdatesChannel) {
	slog.Info("Telegram bot running")
	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.HandleUpdate(ctx, update)
		}
	}
}

// HandleUpdate processes a single update.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		b.handleMessage(update.Message)
	}
}

func (b *Bot) send(c tgbotapi.Chattable) {
	if _, err := b.api.Send(c); err != nil {
		slog.Error("Failed to send telegram message", "error", err)
	}
}

func (b *Bot) reply(chatID int64, text string, markup *tgbotapi.InlineKeyboardMarkup) {
	msg := tgbotapi.NewMessage(chatID, clip(text))
	if markup != nil {
		msg.ReplyMarkup = *markup
	}
	b.send(msg)
}

// edit replaces the menu message, falling back to a new message when the
// old one cannot be edited. Edits that change nothing are ignored.
func (b *Bot) edit(msg *tgbotapi.Message, text string, markup tgbotapi.InlineKeyboardMarkup) {
	if msg == nil {
		return
	}
	cfg := tgbotapi.NewEditMessageTextAndMarkup(msg.Chat.ID, msg.MessageID, clip(text), markup)
	if _, err := b.api.Send(cfg); err != nil {
		if strings.Contains(err.Error(), "message is not modified") {
			slog.Debug("Menu unchanged", "chat_id", msg.Chat.ID)
			return
		}
		slog.Warn("Failed to edit telegram message", "chat_id", msg.Chat.ID, "error", err)
		b.reply(msg.Chat.ID, text, &markup)
	}
}

func (b *Bot) answer(query *tgbotapi.CallbackQuery, text string) {
	if _, err := b.api.Request(tgbotapi.NewCallback(query.ID, text)); err != nil {
		slog.Warn("Failed to answer callback", "error", err)
	}
}

func (b *Bot) alert(query *tgbotapi.CallbackQuery, text string) {
	if _, err := b.api.Request(tgbotapi.NewCallbackWithAlert(query.ID, text)); err != nil {
		slog.Warn("Failed to answer callback", "error", err)
	}
}

func (b *Bot) sendDocument(chatID int64, name string, data []byte, caption string) {
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: name, Bytes: data})
	doc.Caption = caption
	b.send(doc)
}

func clip(text string) string {
	if len(text) <= maxMessageLen {
		return text
	}
	runes := []rune(text)
	if len(runes) <= maxMessageLen {
		return text
	}
	return string(runes[:maxMessageLen-1]) + "…"
}

func (b *Bot) mainMenu() *tgbotapi.InlineKeyboardMarkup {
	kb := mainKeyboard(b.refunds)
	return &kb
}

func (b *Bot) setLastReport(chatID int64, kind string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.lastReport[chatID] == kind {
		return false
	}
	b.lastReport[chatID] = kind
	return true
}

// stateText maps a service error to the alert shown to the operator.
func stateText(err error) string {
	switch {
	case errs.Is(err, errs.ErrState) && strings.Contains(err.Error(), "already open"):
		return "❌ Shift is already open!"
	case errs.Is(err, errs.ErrState) && strings.Contains(err.Error(), "no open shift"):
		return "❌ Open a shift first!"
	case errs.Is(err, errs.ErrState):
		return "❌ " + err.Error()
	case errs.Is(err, errs.ErrNotFound):
		return "❌ Not found!"
	default:
		return "❌ Something went wrong"
	}
}

func (b *Bot) handleMessage(msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	if msg.IsCommand() {
		switch msg.Command() {
		case "start", "menu":
			b.service.CancelDraft(shift.ConversationID(chatID))
			b.reply(chatID, "🎭 Welcome to the ticket desk bot!\n\nChoose an action:", b.mainMenu())
		case "cancel":
			b.service.CancelDraft(shift.ConversationID(chatID))
			b.reply(chatID, "↩️ Input cancelled", b.mainMenu())
		default:
			b.reply(chatID, "ℹ️ Use /start to open the menu", nil)
		}
		return
	}
	b.handleText(chatID, msg.Text)
}

// handleText feeds a typed reply to the step the chat is waiting on.
func (b *Bot) handleText(chatID int64, text string) {
	conv := shift.ConversationID(chatID)
	draft := b.service.Draft(conv)

	var err error
	switch draft.Kind {
	case shift.AwaitingCustomName:
		err = b.service.SubmitCustomName(conv, text)
		if err == nil {
			b.reply(chatID, "💵 Enter the item price:", nil)
		} else if errs.Is(err, errs.ErrValidation) {
			b.reply(chatID, "❌ The name cannot be empty. Enter a name:", nil)
			return
		}

	case shift.AwaitingCustomPrice:
		var line *ledger.CartLine
		line, err = b.service.CompleteCustomDraft(conv, draft.Name, text)
		if err == nil {
			b.reply(chatID, fmt.Sprintf("✅ Custom item added!\n\n📝 Name: %s\n💵 Price: %s\n\n%s\n\nChoose the next category:",
				line.Name, report.Money(line.Price), b.cartLine()), b.categories())
		} else if errs.Is(err, errs.ErrValidation) {
			b.reply(chatID, "❌ Please enter a valid number:", nil)
			return
		}

	case shift.AwaitingMixedCash:
		var sale *ledger.Sale
		sale, err = b.service.CompleteMixedPayment(conv, text)
		if err == nil {
			b.reply(chatID, fmt.Sprintf("✅ Sale completed!\n💱 Mixed payment\n💵 Cash: %s\n💳 Card: %s\n💰 Total: %s",
				report.Money(sale.Cash), report.Money(sale.Cashless), report.Money(sale.Total)), b.mainMenu())
		} else if errs.Is(err, errs.ErrValidation) {
			b.reply(chatID, fmt.Sprintf("❌ Enter a whole number from 0 to %s:", report.Money(draft.Total)), nil)
			return
		}

	case shift.AwaitingExchangeCash:
		err = b.service.SetExchangeCash(conv, text)
		if err == nil {
			b.reply(chatID, "✅ Exchange cash recorded!\n💵 Amount: "+report.Money(b.service.Status().ExchangeCash), b.mainMenu())
		} else if errs.Is(err, errs.ErrValidation) {
			b.reply(chatID, "❌ Please enter a valid number:", nil)
			return
		}

	default:
		b.reply(chatID, "ℹ️ Use /start to open the menu", nil)
		return
	}

	if err != nil {
		b.service.CancelDraft(conv)
		b.reply(chatID, stateText(err), b.mainMenu())
	}
}

func (b *Bot) categories() *tgbotapi.InlineKeyboardMarkup {
	kb := categoriesKeyboard(b.service.Catalog())
	return &kb
}

func (b *Bot) cartLine() string {
	status := b.service.Status()
	return fmt.Sprintf("🛒 In cart: %d items for %s", status.CartLines, report.Money(status.CartTotal))
}

func (b *Bot) handleCallback(ctx context.Context, query *tgbotapi.CallbackQuery) {
	msg := query.Message
	if msg == nil || msg.Chat == nil {
		b.answer(query, "")
		return
	}
	chatID := msg.Chat.ID
	conv := shift.ConversationID(chatID)
	slog.Debug("Callback received", "chat_id", chatID, "data", query.Data)

	switch query.Data {
	case cbMainMenu:
		b.edit(msg, "🎭 Main menu\n\nChoose an action:", mainKeyboard(b.refunds))
		b.answer(query, "")

	case cbOpenShift:
		if err := b.service.OpenShift(); err != nil {
			b.alert(query, stateText(err))
			return
		}
		b.edit(msg, "✅ Shift opened!\n\nChoose an action:", mainKeyboard(b.refunds))
		b.answer(query, "")

	case cbAddExchange:
		if err := b.service.BeginExchangeCash(conv); err != nil {
			b.alert(query, stateText(err))
			return
		}
		b.reply(chatID, "💵 Enter the exchange cash amount:", nil)
		b.answer(query, "")

	case cbStartSale, cbBackToCategories:
		if !b.service.IsOpen() {
			b.alert(query, "❌ Open a shift first!")
			return
		}
		b.edit(msg, "🛍 Choose a category:", categoriesKeyboard(b.service.Catalog()))
		b.answer(query, "")

	case cbShowCart:
		b.showCart(query)

	case cbClearCart:
		if err := b.service.ClearCart(); err != nil {
			b.alert(query, stateText(err))
			return
		}
		b.edit(msg, "🗑 Cart cleared!", categoriesKeyboard(b.service.Catalog()))
		b.answer(query, "Cart cleared!")

	case cbRemoveItems:
		lines, err := b.service.Cart()
		if err != nil {
			b.alert(query, stateText(err))
			return
		}
		if len(lines) == 0 {
			b.alert(query, "❌ The cart is empty!")
			return
		}
		b.edit(msg, "🗑 Choose items to remove:", removeKeyboard(lines))
		b.answer(query, "")

	case cbPaymentCash, cbPaymentCard:
		b.pay(query, query.Data == cbPaymentCash)

	case cbPaymentMixed:
		b.beginMixed(query)

	case cbRefundMenu:
		b.refundMenu(query)

	case cbShowReport:
		b.showReport(query, cbReportMetrics, true)

	case cbReportMetrics, cbReportReceipts, cbReportCombined:
		b.showReport(query, query.Data, false)

	case cbSessionArchive:
		records, err := b.service.ListRecentArchives()
		if err != nil {
			slog.Error("Failed to list archives", "error", err)
			b.alert(query, "❌ Failed to read the archive")
			return
		}
		if len(records) == 0 {
			b.alert(query, "📭 The shift archive is empty")
			return
		}
		b.edit(msg, "📋 Closed shifts (last 30 days):\n\nChoose a shift:", archiveKeyboard(records))
		b.answer(query, "")

	case cbCloseShift:
		b.closeShift(ctx, query)

	default:
		b.handlePrefixed(query)
	}
}

func (b *Bot) handlePrefixed(query *tgbotapi.CallbackQuery) {
	msg := query.Message
	chatID := msg.Chat.ID
	conv := shift.ConversationID(chatID)

	if id, ok := strings.CutPrefix(query.Data, prefixCategory); ok {
		category, err := b.service.Catalog().Category(id)
		if err != nil {
			b.alert(query, "❌ Category not found!")
			return
		}
		b.edit(msg, fmt.Sprintf("📁 %s\n\nChoose an item:", category.Name), itemsKeyboard(category))
		b.answer(query, "")
		return
	}

	if id, ok := strings.CutPrefix(query.Data, prefixItem); ok {
		line, err := b.service.AddToCart(conv, id)
		switch {
		case errs.Is(err, errs.ErrNotFound):
			b.alert(query, "❌ Item not found!")
		case err != nil:
			b.alert(query, stateText(err))
		case line == nil:
			b.reply(chatID, "📝 Enter the item name:", nil)
			b.answer(query, "")
		default:
			b.edit(msg, fmt.Sprintf("✅ Added: %s - %s\n\n%s\n\nChoose the next category:",
				line.Name, report.LinePrice(line.Price), b.cartLine()), categoriesKeyboard(b.service.Catalog()))
			b.answer(query, fmt.Sprintf("✅ %s added to the cart!", line.Name))
		}
		return
	}

	if raw, ok := strings.CutPrefix(query.Data, prefixRemove); ok {
		index, err := strconv.Atoi(raw)
		if err != nil {
			b.alert(query, "❌ Failed to remove the item!")
			return
		}
		removed, err := b.service.RemoveFromCart(index)
		if err != nil {
			b.alert(query, "❌ Item not found!")
			return
		}
		b.answer(query, fmt.Sprintf("❌ %s removed from the cart", removed.Name))
		lines, _ := b.service.Cart()
		if len(lines) > 0 {
			b.edit(msg, "🗑 Choose items to remove:", removeKeyboard(lines))
		} else {
			b.edit(msg, "🛒 The cart is empty", categoriesKeyboard(b.service.Catalog()))
		}
		return
	}

	if raw, ok := strings.CutPrefix(query.Data, prefixRefund); ok {
		if !b.refunds {
			b.alert(query, "❌ Refunds are disabled")
			return
		}
		saleID, err := strconv.Atoi(raw)
		if err != nil {
			b.alert(query, "❌ Refund failed!")
			return
		}
		refund, err := b.service.Refund(saleID)
		if err != nil {
			if errs.Is(err, errs.ErrNotFound) {
				b.alert(query, "❌ Receipt not found!")
				return
			}
			b.alert(query, stateText(err))
			return
		}
		b.edit(msg, fmt.Sprintf("✅ Refund issued!\n🧾 Receipt #%d\n💰 Amount: %s",
			saleID, report.Money(-refund.Total)), mainKeyboard(b.refunds))
		b.answer(query, "")
		return
	}

	if id, ok := strings.CutPrefix(query.Data, prefixArchive); ok {
		data, err := b.service.FetchArchive(id)
		if err != nil {
			slog.Error("Failed to read archived shift", "id", id, "error", err)
			b.alert(query, "❌ Failed to load the report")
			return
		}
		b.sendDocument(chatID, id, data, "📄 Shift report: "+id)
		b.answer(query, "")
		return
	}

	slog.Warn("Unknown callback", "data", query.Data)
	b.answer(query, "")
}

func (b *Bot) showCart(query *tgbotapi.CallbackQuery) {
	lines, err := b.service.Cart()
	if err != nil {
		b.alert(query, stateText(err))
		return
	}
	if len(lines) == 0 {
		b.edit(query.Message, "🛒 The cart is empty", emptyCartKeyboard())
		b.answer(query, "")
		return
	}

	var sb strings.Builder
	sb.WriteString("🛒 Your cart:\n\n")
	for i, line := range lines {
		fmt.Fprintf(&sb, "%d. %s - %s\n", i+1, line.Name, report.LinePrice(line.Price))
	}
	fmt.Fprintf(&sb, "\n💵 Total: %s", report.Money(ledger.Total(lines)))
	b.edit(query.Message, sb.String(), cartKeyboard())
	b.answer(query, "")
}

func (b *Bot) pay(query *tgbotapi.CallbackQuery, cash bool) {
	var (
		sale *ledger.Sale
		err  error
	)
	if cash {
		sale, err = b.service.CheckoutCash()
	} else {
		sale, err = b.service.CheckoutCard()
	}
	if err != nil {
		if errs.Is(err, errs.ErrState) && b.service.IsOpen() {
			b.alert(query, "❌ The cart is empty!")
			return
		}
		b.alert(query, stateText(err))
		return
	}

	method := "card"
	if cash {
		method = "cash"
	}
	text := fmt.Sprintf("✅ Sale completed!\n💳 Method: %s\n💰 Amount: %s\n📦 Items: %d",
		method, report.Money(sale.Total), len(sale.Items))
	if sale.Total == 0 {
		text = fmt.Sprintf("✅ Free order placed!\n📦 Items: %d", len(sale.Items))
	}
	b.edit(query.Message, text, mainKeyboard(b.refunds))
	b.answer(query, "")
}

func (b *Bot) beginMixed(query *tgbotapi.CallbackQuery) {
	chatID := query.Message.Chat.ID
	lines, err := b.service.Cart()
	if err != nil {
		b.alert(query, stateText(err))
		return
	}
	if len(lines) == 0 {
		b.alert(query, "❌ The cart is empty!")
		return
	}
	total, err := b.service.BeginMixedPayment(shift.ConversationID(chatID))
	if err != nil {
		b.alert(query, "ℹ️ Free orders need no payment!")
		return
	}
	kb := backToCartKeyboard()
	b.reply(chatID, fmt.Sprintf("💱 Enter the cash part (of %s):", report.Money(total)), &kb)
	b.answer(query, "")
}

func (b *Bot) refundMenu(query *tgbotapi.CallbackQuery) {
	if !b.refunds {
		b.alert(query, "❌ Refunds are disabled")
		return
	}
	sales, err := b.service.RecentSales(refundMenuSize)
	if err != nil {
		b.alert(query, stateText(err))
		return
	}
	if len(sales) == 0 {
		b.alert(query, "📭 No receipts to refund")
		return
	}
	b.edit(query.Message, "↩️ Choose a receipt to refund:", refundKeyboard(sales))
	b.answer(query, "")
}

func (b *Bot) showReport(query *tgbotapi.CallbackQuery, kind string, fresh bool) {
	chatID := query.Message.Chat.ID
	if !b.service.IsOpen() {
		b.alert(query, "❌ No open shift!")
		return
	}
	if fresh {
		b.mu.Lock()
		delete(b.lastReport, chatID)
		b.mu.Unlock()
	}
	if !b.setLastReport(chatID, kind) {
		b.alert(query, "ℹ️ This report is already shown")
		return
	}

	var (
		text string
		err  error
	)
	switch kind {
	case cbReportReceipts:
		text, err = b.service.ReceiptsReport()
	case cbReportCombined:
		text, err = b.service.CombinedReport()
	default:
		text, err = b.service.MetricsReport()
	}
	if err != nil {
		b.alert(query, stateText(err))
		return
	}
	b.edit(query.Message, text, reportKeyboard())
	b.answer(query, "")
}

func (b *Bot) closeShift(ctx context.Context, query *tgbotapi.CallbackQuery) {
	chatID := query.Message.Chat.ID
	if !b.service.IsOpen() {
		b.alert(query, "❌ No open shift!")
		return
	}
	b.reply(chatID, "📊 Building the final reports...", nil)

	id, err := b.service.CloseShift(ctx)
	if err != nil {
		if errs.Is(err, errs.ErrIO) {
			b.reply(chatID, "❌ Failed to save the report! The shift stays open, try again.", b.mainMenu())
		} else {
			b.reply(chatID, stateText(err), b.mainMenu())
		}
		b.answer(query, "")
		return
	}

	b.mu.Lock()
	b.lastReport = make(map[int64]string)
	b.mu.Unlock()

	if data, err := b.service.FetchArchive(id); err != nil {
		slog.Error("Failed to read archived shift", "id", id, "error", err)
	} else {
		b.sendDocument(chatID, id, data, "📄 Full shift report")
	}
	b.reply(chatID, "✅ Shift closed! The report is saved.", b.mainMenu())
	b.answer(query, "")
}
