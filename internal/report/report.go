// Package report renders the human-facing views of a shift ledger. Every
// function is pure: the same Shift always renders to the same text.
package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/zombor/shift-ledger/internal/catalog"
	"github.com/zombor/shift-ledger/internal/ledger"
)

// Shift is the input to every report.
type Shift struct {
	Venue        string
	OpenedAt     time.Time
	At           time.Time // moment the report is taken for
	ExchangeCash int64
	Sales        []ledger.Sale
}

// Totals is the money summary of a ledger.
type Totals struct {
	Cash     int64
	Cashless int64
	Revenue  int64
	Sales    int
	Items    int
}

// Summarize sums the payment amounts and counts of sales.
func Summarize(sales []ledger.Sale) Totals {
	var t Totals
	for _, s := range sales {
		t.Cash += s.Cash
		t.Cashless += s.Cashless
		t.Items += len(s.Items)
	}
	t.Revenue = t.Cash + t.Cashless
	t.Sales = len(sales)
	return t
}

type itemStats struct {
	count   int
	revenue int64
}

type categoryStats struct {
	count   int
	revenue int64
	items   map[string]*itemStats
}

func header(b *strings.Builder, title string, s Shift) {
	fmt.Fprintf(b, "%s\n\n", title)
	fmt.Fprintf(b, "%s\n", s.Venue)
	fmt.Fprintf(b, "Today %s\n", dateOf(s.At))
	fmt.Fprintf(b, "From %s to %s\n\n", clockOf(s.OpenedAt), clockOf(s.At))
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Combined renders overall totals followed by a per-category, per-item breakdown.
func Combined(s Shift) string {
	totals := Summarize(s.Sales)

	stats := make(map[string]*categoryStats)
	for _, sale := range s.Sales {
		for _, line := range sale.Items {
			cs, ok := stats[line.Category]
			if !ok {
				cs = &categoryStats{items: make(map[string]*itemStats)}
				stats[line.Category] = cs
			}
			is, ok := cs.items[line.Name]
			if !ok {
				is = &itemStats{}
				cs.items[line.Name] = is
			}
			is.count++
			is.revenue += line.Price
			cs.count++
			cs.revenue += line.Price
		}
	}

	var b strings.Builder
	header(&b, "📊 SHIFT REPORT BY CATEGORY", s)
	fmt.Fprintf(&b, "💵 Cash: %s\n", Money(totals.Cash))
	fmt.Fprintf(&b, "💳 Cashless: %s\n", Money(totals.Cashless))
	fmt.Fprintf(&b, "💰 Total revenue: %s\n", Money(totals.Revenue))
	fmt.Fprintf(&b, "💵 Exchange cash: %s\n", Money(s.ExchangeCash))
	fmt.Fprintf(&b, "📊 Receipts: %d\n", totals.Sales)
	fmt.Fprintf(&b, "🛒 Items: %d pcs.\n\n", totals.Items)
	b.WriteString("📦 CATEGORY BREAKDOWN:\n")

	for _, category := range sortedKeys(stats) {
		cs := stats[category]
		fmt.Fprintf(&b, "\n▶ %s:\n", category)
		fmt.Fprintf(&b, "   📊 Items: %d pcs.\n", cs.count)
		fmt.Fprintf(&b, "   💰 Revenue: %s\n", Money(cs.revenue))
		for _, name := range sortedKeys(cs.items) {
			is := cs.items[name]
			if is.revenue == 0 {
				fmt.Fprintf(&b, "   • %s: %d pcs. (free)\n", name, is.count)
				continue
			}
			fmt.Fprintf(&b, "   • %s: %d pcs. × %s = %s\n",
				name, is.count, Money(average(is.revenue, is.count)), Money(is.revenue))
		}
	}
	return b.String()
}

// MetricsSummary holds the figures of the metrics report.
type MetricsSummary struct {
	People      int
	OnlineCombo int
	Invitations int
	Partners    int
	Bloggers    int

	Revenue      int64
	AddOnRevenue int64
	ShopRevenue  int64
	ShopBuyers   int

	AverageCheck     int64
	AverageShopCheck int64
}

// ComputeMetrics classifies lines against tags. Headcounts only include lines
// with a non-negative price, while both revenue buckets include refund lines
// so that reversed revenue nets out. A sale counts as a shop buyer when any of
// its shop lines has a positive price.
func ComputeMetrics(sales []ledger.Sale, tags catalog.Tags) MetricsSummary {
	var m MetricsSummary
	for _, sale := range sales {
		hasPositiveShop := false
		for _, line := range sale.Items {
			if line.Price >= 0 {
				if tags.People[line.Name] {
					m.People++
				}
				if tags.OnlineCombo[line.Name] {
					m.OnlineCombo++
				}
				if tags.Invitation[line.Name] {
					m.Invitations++
				}
				if line.Name == tags.Partner {
					m.Partners++
				}
				if line.Name == tags.Blogger {
					m.Bloggers++
				}
			}

			switch {
			case tags.AddOnCategories[line.Category]:
				m.AddOnRevenue += line.Price
			case tags.ShopCategories[line.Category]:
				m.ShopRevenue += line.Price
				if line.Price > 0 {
					hasPositiveShop = true
				}
			}
		}
		if hasPositiveShop {
			m.ShopBuyers++
		}
		m.Revenue += sale.Total
	}

	m.AverageCheck = average(m.AddOnRevenue+m.ShopRevenue, m.People)
	m.AverageShopCheck = average(m.ShopRevenue, m.ShopBuyers)
	return m
}

// Metrics renders headcounts, revenue buckets and average checks.
func Metrics(s Shift, tags catalog.Tags) string {
	m := ComputeMetrics(s.Sales, tags)

	var b strings.Builder
	header(&b, "📈 SHIFT METRICS", s)
	fmt.Fprintf(&b, "👥 People: %d\n", m.People)
	fmt.Fprintf(&b, "💰 Total revenue: %s\n", Money(m.Revenue))
	fmt.Fprintf(&b, "🎯 Add-ons + shop revenue: %s\n", Money(m.AddOnRevenue+m.ShopRevenue))
	fmt.Fprintf(&b, "🛍️ Shop revenue: %s\n", Money(m.ShopRevenue))
	fmt.Fprintf(&b, "📊 Average check: %s\n", Money(m.AverageCheck))
	fmt.Fprintf(&b, "🛒 Average shop check: %s\n\n", Money(m.AverageShopCheck))
	fmt.Fprintf(&b, "📱 Online combo: %d pcs.\n", m.OnlineCombo)
	fmt.Fprintf(&b, "🎫 Invitations: %d pcs.\n", m.Invitations)
	fmt.Fprintf(&b, "🤝 Partners: %d pcs.\n", m.Partners)
	fmt.Fprintf(&b, "📸 Bloggers: %d pcs.\n", m.Bloggers)
	return b.String()
}

func paymentLine(sale ledger.Sale) string {
	switch method := sale.PaymentMethod(); method {
	case ledger.PaymentMixed:
		return fmt.Sprintf("💱 Payment: %s (%s cash + %s card)", method, Money(sale.Cash), Money(sale.Cashless))
	case ledger.PaymentCash:
		return fmt.Sprintf("💵 Payment: %s", method)
	case ledger.PaymentCard:
		return fmt.Sprintf("💳 Payment: %s", method)
	default:
		return fmt.Sprintf("🎁 Payment: %s", method)
	}
}

// LinePrice renders a line price: zero is free, negative is a refund.
func LinePrice(price int64) string {
	switch {
	case price == 0:
		return "FREE"
	case price < 0:
		return Money(price) + " (refund)"
	default:
		return Money(price)
	}
}

// Receipts renders every sale in ledger order with its payment label and lines.
func Receipts(s Shift) string {
	if len(s.Sales) == 0 {
		return "📋 RECEIPTS\n\n📭 No receipts yet"
	}

	var b strings.Builder
	b.WriteString("📋 RECEIPTS\n\n")
	for _, sale := range s.Sales {
		fmt.Fprintf(&b, "🧾 Receipt #%d (%s)\n", sale.ID, sale.Time.Format("15:04:05"))
		fmt.Fprintf(&b, "   %s\n", paymentLine(sale))
		fmt.Fprintf(&b, "   💰 Total: %s\n", Money(sale.Total))
		fmt.Fprintf(&b, "   📦 Items: %d pcs.\n", len(sale.Items))
		for j, line := range sale.Items {
			fmt.Fprintf(&b, "      %d. %s - %s\n", j+1, line.Name, LinePrice(line.Price))
		}
		b.WriteString("\n")
	}
	return b.String()
}
