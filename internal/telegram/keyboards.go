package telegram

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/zombor/shift-ledger/internal/archive"
	"github.com/zombor/shift-ledger/internal/catalog"
	"github.com/zombor/shift-ledger/internal/ledger"
	"github.com/zombor/shift-ledger/internal/report"
)

// Callback data sent by the inline keyboards.
const (
	cbMainMenu         = "main_menu"
	cbOpenShift        = "open_shift"
	cbStartSale        = "start_sale"
	cbAddExchange      = "add_exchange"
	cbShowReport       = "show_report"
	cbSessionArchive   = "session_archive"
	cbRefundMenu       = "refund_menu"
	cbCloseShift       = "close_shift"
	cbBackToCategories = "back_to_categories"
	cbShowCart         = "show_cart"
	cbClearCart        = "clear_cart"
	cbRemoveItems      = "remove_items"
	cbPaymentCash      = "payment_cash"
	cbPaymentCard      = "payment_card"
	cbPaymentMixed     = "payment_mixed"
	cbReportReceipts   = "report_receipts"
	cbReportMetrics    = "report_metrics"
	cbReportCombined   = "report_combined"

	prefixCategory = "cat_"
	prefixItem     = "item_"
	prefixRemove   = "remove_"
	prefixRefund   = "refund_"
	prefixArchive  = "archive_"
)

const (
	refundMenuSize  = 20
	archiveMenuSize = 10
)

func button(text, data string) []tgbotapi.InlineKeyboardButton {
	return tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(text, data))
}

func mainKeyboard(refunds bool) tgbotapi.InlineKeyboardMarkup {
	rows := [][]tgbotapi.InlineKeyboardButton{
		button("🎬 Open shift", cbOpenShift),
		button("➕ Sale", cbStartSale),
		button("💵 Add exchange cash", cbAddExchange),
		button("📊 Report", cbShowReport),
		button("📋 Shift archive", cbSessionArchive),
	}
	if refunds {
		rows = append(rows, button("↩️ Refund", cbRefundMenu))
	}
	rows = append(rows, button("✅ Close shift", cbCloseShift))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func categoriesKeyboard(cat *catalog.Catalog) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, c := range cat.Categories() {
		rows = append(rows, button(c.Name, prefixCategory+c.ID))
	}
	rows = append(rows,
		button("🛒 Cart", cbShowCart),
		button("⬅️ Back", cbMainMenu),
	)
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func itemLabel(item catalog.Item) string {
	switch {
	case item.Custom:
		return item.Name + " - ⚡ Set name and price"
	case item.Price == 0:
		return item.Name + " - FREE"
	default:
		return item.Name + " - " + report.Money(item.Price)
	}
}

func itemsKeyboard(category catalog.Category) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, item := range category.Items {
		rows = append(rows, button(itemLabel(item), prefixItem+item.ID))
	}
	rows = append(rows,
		button("⬅️ Back", cbBackToCategories),
		button("🛒 Cart", cbShowCart),
	)
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func cartKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		button("💵 Pay cash", cbPaymentCash),
		button("💳 Pay by card", cbPaymentCard),
		button("💱 Mixed payment", cbPaymentMixed),
		button("🗑 Remove items", cbRemoveItems),
		button("🔄 Continue shopping", cbBackToCategories),
		button("🗑 Clear cart", cbClearCart),
	)
}

func emptyCartKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		button("🛍 To shopping", cbBackToCategories),
		button("⬅️ Back", cbMainMenu),
	)
}

func backToCartKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(button("⬅️ Back", cbShowCart))
}

func removeKeyboard(lines []ledger.CartLine) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for i, line := range lines {
		text := fmt.Sprintf("❌ %d. %s - %s", i+1, line.Name, report.LinePrice(line.Price))
		rows = append(rows, button(text, fmt.Sprintf("%s%d", prefixRemove, i)))
	}
	rows = append(rows, button("⬅️ Back to cart", cbShowCart))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func reportKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		button("🧾 Receipts", cbReportReceipts),
		button("📈 Metrics", cbReportMetrics),
		button("📦 By category", cbReportCombined),
		button("⬅️ Back", cbMainMenu),
	)
}

// refundKeyboard lists sales newest first.
func refundKeyboard(sales []ledger.Sale) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, sale := range sales {
		text := fmt.Sprintf("🧾 Receipt #%d (%s) - %s", sale.ID, sale.Time.Format("15:04"), report.Money(sale.Total))
		rows = append(rows, button(text, fmt.Sprintf("%s%d", prefixRefund, sale.ID)))
	}
	rows = append(rows, button("⬅️ Back", cbMainMenu))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func archiveKeyboard(records []archive.Record) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for i, rec := range records {
		if i == archiveMenuSize {
			break
		}
		text := "📅 " + rec.DisplayDate
		if rec.Summary != nil {
			text += " - " + report.Money(rec.Summary.Revenue)
		}
		rows = append(rows, button(text, prefixArchive+rec.ID))
	}
	rows = append(rows, button("⬅️ Back", cbMainMenu))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}
