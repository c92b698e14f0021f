// Package shift owns the single register session: its cart, its ledger and
// the open/closed lifecycle around them.
package shift

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zombor/shift-ledger/internal/archive"
	"github.com/zombor/shift-ledger/internal/backup"
	"github.com/zombor/shift-ledger/internal/catalog"
	"github.com/zombor/shift-ledger/internal/errs"
	"github.com/zombor/shift-ledger/internal/ledger"
	"github.com/zombor/shift-ledger/internal/report"
)

// DefaultAutosaveInterval is how often an open shift is snapshotted in the
// background.
const DefaultAutosaveInterval = 120 * time.Second

// customItemID marks cart lines whose name and price were typed in.
const customItemID = "custom"

// IDGenerator generates unique IDs for shifts
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

type uuidGenerator struct{}

func (g *uuidGenerator) Generate() string {
	return uuid.NewString()
}

type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Archiver persists and reads closed shift reports.
type Archiver interface {
	Archive(ctx context.Context, doc archive.Document) (string, error)
	ListRecent(maxAgeDays int) ([]archive.Record, error)
	Fetch(id string) ([]byte, error)
	Summary(id string) (*archive.Summary, error)
}

// Options carries the presentation settings of the reports.
type Options struct {
	Venue string
	Tags  catalog.Tags
}

// Status is a point-in-time view of the session.
type Status struct {
	Open         bool
	ShiftID      string
	OpenedAt     time.Time
	ExchangeCash int64
	Sales        int
	CartLines    int
	CartTotal    int64
}

// Service is the only owner of the shift session. All methods are safe for
// concurrent use; persistence runs outside the session lock.
type Service struct {
	catalog     *catalog.Catalog
	backups     backup.Store
	archives    Archiver
	opts        Options
	idGenerator IDGenerator
	timeSource  TimeSource

	mu           sync.Mutex
	open         bool
	closing      bool
	shiftID      string
	openedAt     time.Time
	exchangeCash int64
	cart         []ledger.CartLine
	ledger       *ledger.Ledger
	revision     uint64

	saveMu        sync.Mutex
	savedRevision uint64

	drafts *drafts

	autosaveMu   sync.Mutex
	stopAutosave context.CancelFunc
	wg           sync.WaitGroup
}

// NewService creates a new Service with uuid shift ids and the wall clock
func NewService(cat *catalog.Catalog, backups backup.Store, archives Archiver, opts Options) *Service {
	return NewServiceWithDeps(cat, backups, archives, opts, &uuidGenerator{}, &defaultTimeSource{})
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(cat *catalog.Catalog, backups backup.Store, archives Archiver, opts Options, idGen IDGenerator, timeSrc TimeSource) *Service {
	return &Service{
		catalog:     cat,
		backups:     backups,
		archives:    archives,
		opts:        opts,
		idGenerator: idGen,
		timeSource:  timeSrc,
		ledger:      &ledger.Ledger{},
		drafts:      newDrafts(),
	}
}

// Catalog returns the item table the service sells from.
func (s *Service) Catalog() *catalog.Catalog {
	return s.catalog
}

func errClosed() error {
	return errs.State("no open shift")
}

// mutableLocked reports whether the session accepts changes. Callers hold mu.
func (s *Service) mutableLocked() error {
	if !s.open {
		return errClosed()
	}
	if s.closing {
		return errs.State("shift is closing")
	}
	return nil
}

func (s *Service) resetLocked() {
	s.open = false
	s.closing = false
	s.shiftID = ""
	s.openedAt = time.Time{}
	s.exchangeCash = 0
	s.cart = nil
	s.ledger = &ledger.Ledger{}
}

// commitLocked bumps the revision and copies the session for persistence.
func (s *Service) commitLocked() (uint64, *backup.Record) {
	s.revision++
	return s.revision, s.recordLocked()
}

func (s *Service) recordLocked() *backup.Record {
	rec := &backup.Record{
		IsOpen:       s.open,
		ShiftID:      s.shiftID,
		Sales:        s.ledger.Sales(),
		ExchangeCash: s.exchangeCash,
		LastBackup:   s.timeSource.Now(),
	}
	if !s.openedAt.IsZero() {
		openedAt := s.openedAt
		rec.OpenTime = &openedAt
	}
	return rec
}

// persist writes rec unless a newer revision has already been written.
func (s *Service) persist(rev uint64, rec *backup.Record) error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	if rev < s.savedRevision {
		slog.Debug("Skipping stale backup", "revision", rev, "saved", s.savedRevision)
		return nil
	}
	if err := s.backups.Save(rec); err != nil {
		slog.Error("Failed to save backup", "revision", rev, "error", err)
		return err
	}
	s.savedRevision = rev
	return nil
}

// OpenShift starts a new shift with an empty ledger.
func (s *Service) OpenShift() error {
	s.mu.Lock()
	if s.open {
		s.mu.Unlock()
		return errs.State("shift is already open")
	}
	s.resetLocked()
	s.open = true
	s.openedAt = s.timeSource.Now()
	s.shiftID = s.idGenerator.Generate()
	shiftID := s.shiftID
	rev, rec := s.commitLocked()
	s.mu.Unlock()

	s.drafts.reset()
	slog.Info("Shift opened", "shift_id", shiftID)
	_ = s.persist(rev, rec)
	return nil
}

// IsOpen reports whether a shift is open.
func (s *Service) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open
}

// Status returns a summary of the session.
func (s *Service) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		Open:         s.open,
		ShiftID:      s.shiftID,
		OpenedAt:     s.openedAt,
		ExchangeCash: s.exchangeCash,
		Sales:        s.ledger.Len(),
		CartLines:    len(s.cart),
		CartTotal:    ledger.Total(s.cart),
	}
}

// AddToCart appends the catalog item to the cart. A custom item appends
// nothing; it starts the name/price workflow for conv and returns nil.
func (s *Service) AddToCart(conv ConversationID, itemID string) (*ledger.CartLine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.mutableLocked(); err != nil {
		return nil, err
	}
	item, err := s.catalog.Item(itemID)
	if err != nil {
		return nil, err
	}

	if item.Custom {
		s.drafts.set(conv, Draft{Kind: AwaitingCustomName})
		return nil, nil
	}

	line := ledger.CartLine{
		Name:     item.Name,
		Price:    item.Price,
		Category: item.Category,
		ItemID:   item.ID,
	}
	s.cart = append(s.cart, line)
	return &line, nil
}

// SubmitCustomName records the typed name and moves on to the price step.
func (s *Service) SubmitCustomName(conv ConversationID, name string) error {
	s.mu.Lock()
	err := s.mutableLocked()
	s.mu.Unlock()
	if err != nil {
		return err
	}
	if d := s.drafts.get(conv); d.Kind != AwaitingCustomName {
		return errs.State("not waiting for an item name")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return errs.Validation("item name is empty")
	}
	s.drafts.set(conv, Draft{Kind: AwaitingCustomPrice, Name: name})
	return nil
}

// CompleteCustomDraft appends a typed-in item to the cart. Any integer price
// is accepted, including negative ones.
func (s *Service) CompleteCustomDraft(conv ConversationID, name, price string) (*ledger.CartLine, error) {
	s.mu.Lock()
	if err := s.mutableLocked(); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	amount, err := parseAmount(price)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	line := ledger.CartLine{
		Name:     strings.TrimSpace(name),
		Price:    amount,
		Category: catalog.CategoryFreeForm,
		ItemID:   customItemID,
	}
	s.cart = append(s.cart, line)
	s.mu.Unlock()

	s.drafts.clear(conv)
	return &line, nil
}

// RemoveFromCart removes the line at the zero-based index.
func (s *Service) RemoveFromCart(index int) (ledger.CartLine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.mutableLocked(); err != nil {
		return ledger.CartLine{}, err
	}
	if index < 0 || index >= len(s.cart) {
		return ledger.CartLine{}, errs.NotFound("cart line %d not found", index)
	}
	removed := s.cart[index]
	s.cart = append(s.cart[:index:index], s.cart[index+1:]...)
	return removed, nil
}

// ClearCart empties the cart.
func (s *Service) ClearCart() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.mutableLocked(); err != nil {
		return err
	}
	s.cart = nil
	return nil
}

// Cart returns a copy of the cart lines.
func (s *Service) Cart() ([]ledger.CartLine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		return nil, errClosed()
	}
	out := make([]ledger.CartLine, len(s.cart))
	copy(out, s.cart)
	return out, nil
}

// CartTotal sums the cart.
func (s *Service) CartTotal() (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		return 0, errClosed()
	}
	return ledger.Total(s.cart), nil
}

// splitFunc divides the cart total into its cash and cashless parts.
type splitFunc func(total int64) (cash, cashless int64, err error)

// Checkout turns the cart into a sale with the given payment split. The
// split is trusted: the sale total is cash + cashless.
func (s *Service) Checkout(cash, cashless int64) (*ledger.Sale, error) {
	return s.checkout(func(int64) (int64, int64, error) {
		return cash, cashless, nil
	})
}

// checkout splits the cart total and appends the sale under one lock, so the
// split always matches the lines it pays for.
func (s *Service) checkout(split splitFunc) (*ledger.Sale, error) {
	s.mu.Lock()
	if err := s.mutableLocked(); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	if len(s.cart) == 0 {
		s.mu.Unlock()
		return nil, errs.State("cart is empty")
	}
	cash, cashless, err := split(ledger.Total(s.cart))
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	sale := s.ledger.Append(s.cart, cash, cashless, s.timeSource.Now())
	s.cart = nil
	rev, rec := s.commitLocked()
	s.mu.Unlock()

	slog.Info("Sale recorded", "sale_id", sale.ID, "total", sale.Total, "payment", sale.PaymentMethod())
	_ = s.persist(rev, rec)
	return &sale, nil
}

// CheckoutCash pays the whole cart in cash.
func (s *Service) CheckoutCash() (*ledger.Sale, error) {
	return s.checkout(func(total int64) (int64, int64, error) {
		return total, 0, nil
	})
}

// CheckoutCard pays the whole cart by card.
func (s *Service) CheckoutCard() (*ledger.Sale, error) {
	return s.checkout(func(total int64) (int64, int64, error) {
		return 0, total, nil
	})
}

// BeginMixedPayment asks conv for the cash part of the cart total and returns
// that total.
func (s *Service) BeginMixedPayment(conv ConversationID) (int64, error) {
	s.mu.Lock()
	if err := s.mutableLocked(); err != nil {
		s.mu.Unlock()
		return 0, err
	}
	total := ledger.Total(s.cart)
	s.mu.Unlock()

	if total == 0 {
		return 0, errs.State("cart total is zero")
	}
	s.drafts.set(conv, Draft{Kind: AwaitingMixedCash, Total: total})
	return total, nil
}

// CompleteMixedPayment checks out with the typed cash amount and the rest of
// the cart total by card.
func (s *Service) CompleteMixedPayment(conv ConversationID, cash string) (*ledger.Sale, error) {
	if d := s.drafts.get(conv); d.Kind != AwaitingMixedCash {
		return nil, errs.State("not waiting for a cash amount")
	}
	sale, err := s.checkout(func(total int64) (int64, int64, error) {
		amount, err := parseAmount(cash)
		if err != nil {
			return 0, 0, err
		}
		if amount < 0 || amount > total {
			return 0, 0, errs.Validation("cash amount %d must be between 0 and %d", amount, total)
		}
		return amount, total - amount, nil
	})
	if err != nil {
		return nil, err
	}
	s.drafts.clear(conv)
	return sale, nil
}

// Refund appends a sale negating sale id.
func (s *Service) Refund(saleID int) (*ledger.Sale, error) {
	s.mu.Lock()
	if err := s.mutableLocked(); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	sale, err := s.ledger.Refund(saleID, s.timeSource.Now())
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	rev, rec := s.commitLocked()
	s.mu.Unlock()

	slog.Info("Refund recorded", "sale_id", sale.ID, "refunded_sale", saleID, "total", sale.Total)
	_ = s.persist(rev, rec)
	return &sale, nil
}

// Sales returns the ledger in order.
func (s *Service) Sales() ([]ledger.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		return nil, errClosed()
	}
	return s.ledger.Sales(), nil
}

// RecentSales returns up to n sales, newest first.
func (s *Service) RecentSales(n int) ([]ledger.Sale, error) {
	sales, err := s.Sales()
	if err != nil {
		return nil, err
	}
	out := make([]ledger.Sale, 0, n)
	for i := len(sales) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, sales[i])
	}
	return out, nil
}

// BeginExchangeCash asks conv for the exchange cash amount.
func (s *Service) BeginExchangeCash(conv ConversationID) error {
	s.mu.Lock()
	err := s.mutableLocked()
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.drafts.set(conv, Draft{Kind: AwaitingExchangeCash})
	return nil
}

// SetExchangeCash overwrites the exchange cash with the typed amount.
func (s *Service) SetExchangeCash(conv ConversationID, amount string) error {
	s.mu.Lock()
	if err := s.mutableLocked(); err != nil {
		s.mu.Unlock()
		return err
	}
	value, err := parseAmount(amount)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.exchangeCash = value
	rev, rec := s.commitLocked()
	s.mu.Unlock()

	s.drafts.clear(conv)
	slog.Info("Exchange cash set", "amount", value)
	_ = s.persist(rev, rec)
	return nil
}

// Draft returns the pending input of conv.
func (s *Service) Draft(conv ConversationID) Draft {
	return s.drafts.get(conv)
}

// CancelDraft drops the pending input of conv.
func (s *Service) CancelDraft(conv ConversationID) {
	s.drafts.clear(conv)
}

func (s *Service) viewLocked(at time.Time) report.Shift {
	return report.Shift{
		Venue:        s.opts.Venue,
		OpenedAt:     s.openedAt,
		At:           at,
		ExchangeCash: s.exchangeCash,
		Sales:        s.ledger.Sales(),
	}
}

func (s *Service) view() (report.Shift, error) {
	now := s.timeSource.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		return report.Shift{}, errClosed()
	}
	return s.viewLocked(now), nil
}

// CombinedReport renders the category report of the live ledger.
func (s *Service) CombinedReport() (string, error) {
	v, err := s.view()
	if err != nil {
		return "", err
	}
	return report.Combined(v), nil
}

// MetricsReport renders the metrics report of the live ledger.
func (s *Service) MetricsReport() (string, error) {
	v, err := s.view()
	if err != nil {
		return "", err
	}
	return report.Metrics(v, s.opts.Tags), nil
}

// ReceiptsReport renders every receipt of the live ledger.
func (s *Service) ReceiptsReport() (string, error) {
	v, err := s.view()
	if err != nil {
		return "", err
	}
	return report.Receipts(v), nil
}

// CloseShift archives the final reports and resets the session. When the
// archive cannot be written the shift stays open and the error is returned.
func (s *Service) CloseShift(ctx context.Context) (string, error) {
	now := s.timeSource.Now()

	s.mu.Lock()
	if err := s.mutableLocked(); err != nil {
		s.mu.Unlock()
		return "", err
	}
	s.closing = true
	v := s.viewLocked(now)
	shiftID := s.shiftID
	s.mu.Unlock()

	totals := report.Summarize(v.Sales)
	doc := archive.Document{
		Venue:    s.opts.Venue,
		ShiftID:  shiftID,
		OpenedAt: v.OpenedAt,
		ClosedAt: now,
		Combined: report.Combined(v),
		Metrics:  report.Metrics(v, s.opts.Tags),
		Receipts: report.Receipts(v),
		Sales:    totals.Sales,
		Cash:     totals.Cash,
		Cashless: totals.Cashless,
	}

	id, err := s.archives.Archive(ctx, doc)
	if err != nil {
		s.mu.Lock()
		s.closing = false
		s.mu.Unlock()
		slog.Error("Failed to archive shift", "shift_id", shiftID, "error", err)
		return "", err
	}

	s.mu.Lock()
	s.resetLocked()
	s.revision++
	rev := s.revision
	s.mu.Unlock()

	s.drafts.reset()
	s.clearBackup(rev)
	slog.Info("Shift closed", "shift_id", shiftID, "archive", id, "sales", totals.Sales, "revenue", totals.Revenue)
	return id, nil
}

// clearBackup removes the snapshot unless a newer revision was saved after
// the close, such as a shift opened in the meantime.
func (s *Service) clearBackup(rev uint64) {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()
	if rev < s.savedRevision {
		slog.Debug("Keeping newer backup", "revision", rev, "saved", s.savedRevision)
		return
	}
	s.savedRevision = rev
	if err := s.backups.Clear(); err != nil {
		slog.Error("Failed to clear backup", "error", err)
	}
}

// ListRecentArchives lists archived shifts of the last 30 days, newest first.
func (s *Service) ListRecentArchives() ([]archive.Record, error) {
	return s.archives.ListRecent(archive.DefaultMaxAgeDays)
}

// FetchArchive returns an archived report document.
func (s *Service) FetchArchive(id string) ([]byte, error) {
	return s.archives.Fetch(id)
}

// ArchiveSummary returns the indexed totals of an archived shift.
func (s *Service) ArchiveSummary(id string) (*archive.Summary, error) {
	return s.archives.Summary(id)
}

func parseAmount(text string) (int64, error) {
	value, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64)
	if err != nil {
		return 0, errs.Validation("%q is not a whole number", text)
	}
	return value, nil
}
