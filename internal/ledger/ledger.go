// Package ledger models the finalized transactions of one shift.
package ledger

import (
	"time"

	"github.com/zombor/shift-ledger/internal/errs"
)

// RefundTag prefixes the names of lines on a refund sale.
const RefundTag = "↩️ REFUND: "

// CartLine is one priced item, either in the working cart or on a sale.
type CartLine struct {
	Name     string `json:"item"`
	Price    int64  `json:"price"`
	Category string `json:"category"`
	ItemID   string `json:"item_id"`
}

// Sale is a finalized ledger entry. Total is always Cash + Cashless.
type Sale struct {
	ID       int        `json:"id"`
	Items    []CartLine `json:"items"`
	Cash     int64      `json:"cash_amount"`
	Cashless int64      `json:"cashless_amount"`
	Total    int64      `json:"total"`
	Time     time.Time  `json:"time"`
}

// PaymentMethod is the label derived from a sale's cash/cashless split.
type PaymentMethod string

const (
	PaymentMixed PaymentMethod = "mixed"
	PaymentCash  PaymentMethod = "cash"
	PaymentCard  PaymentMethod = "card"
	PaymentFree  PaymentMethod = "free"
)

// PaymentMethod classifies the sale. Only strictly positive amounts count, so
// a cash refund (negative cash) is labeled free.
func (s Sale) PaymentMethod() PaymentMethod {
	switch {
	case s.Cash > 0 && s.Cashless > 0:
		return PaymentMixed
	case s.Cash > 0:
		return PaymentCash
	case s.Cashless > 0:
		return PaymentCard
	default:
		return PaymentFree
	}
}

func (s Sale) clone() Sale {
	s.Items = cloneLines(s.Items)
	return s
}

func cloneLines(lines []CartLine) []CartLine {
	if lines == nil {
		return nil
	}
	out := make([]CartLine, len(lines))
	copy(out, lines)
	return out
}

// Ledger is the append-only ordered list of sales of one shift. Sale ids are
// 1-based and contiguous. A Ledger is not safe for concurrent use.
type Ledger struct {
	sales []Sale
}

// FromSales rebuilds a ledger from previously persisted sales.
func FromSales(sales []Sale) *Ledger {
	l := &Ledger{}
	for _, s := range sales {
		l.sales = append(l.sales, s.clone())
	}
	return l
}

// Append records a new sale built from a copy of items and returns it.
func (l *Ledger) Append(items []CartLine, cash, cashless int64, at time.Time) Sale {
	sale := Sale{
		ID:       len(l.sales) + 1,
		Items:    cloneLines(items),
		Cash:     cash,
		Cashless: cashless,
		Total:    cash + cashless,
		Time:     at,
	}
	l.sales = append(l.sales, sale)
	return sale.clone()
}

// Find returns the sale with the given id.
func (l *Ledger) Find(id int) (Sale, bool) {
	for _, s := range l.sales {
		if s.ID == id {
			return s.clone(), true
		}
	}
	return Sale{}, false
}

// Refund appends a sale negating sale id and returns it.
func (l *Ledger) Refund(id int, at time.Time) (Sale, error) {
	orig, ok := l.Find(id)
	if !ok {
		return Sale{}, errs.NotFound("sale #%d not found", id)
	}
	items := make([]CartLine, 0, len(orig.Items))
	for _, line := range orig.Items {
		itemID := line.ItemID
		if itemID == "" {
			itemID = "refund"
		}
		items = append(items, CartLine{
			Name:     RefundTag + line.Name,
			Price:    -line.Price,
			Category: line.Category,
			ItemID:   itemID,
		})
	}
	return l.Append(items, -orig.Cash, -orig.Cashless, at), nil
}

// Sales returns a copy of all sales in order.
func (l *Ledger) Sales() []Sale {
	out := make([]Sale, 0, len(l.sales))
	for _, s := range l.sales {
		out = append(out, s.clone())
	}
	return out
}

// Len returns the number of sales.
func (l *Ledger) Len() int { return len(l.sales) }

// Total sums the prices of lines.
func Total(lines []CartLine) int64 {
	var total int64
	for _, line := range lines {
		total += line.Price
	}
	return total
}
