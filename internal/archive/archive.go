// Package archive stores the final report of every closed shift.
package archive

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/zombor/shift-ledger/internal/errs"
)

const (
	filePrefix = "shift_"
	fileSuffix = ".txt"
	stampFmt   = "20060102_150405"

	// DefaultMaxAgeDays is the listing window of ListRecent.
	DefaultMaxAgeDays = 30
)

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Document is everything that goes into one archived shift report.
type Document struct {
	Venue    string
	ShiftID  string
	OpenedAt time.Time
	ClosedAt time.Time

	Combined string
	Metrics  string
	Receipts string

	Sales    int
	Cash     int64
	Cashless int64
}

// Record describes one archived report in a listing.
type Record struct {
	ID          string    `json:"id"`
	Date        time.Time `json:"date"`
	DisplayDate string    `json:"display_date"`
	Summary     *Summary  `json:"summary,omitempty"`
}

// Store writes and reads archived shift reports
type Store struct {
	storage    Storage
	index      Index
	timeSource TimeSource
}

// NewStore creates a Store using the wall clock
func NewStore(storage Storage, index Index) *Store {
	return NewStoreWithDeps(storage, index, &defaultTimeSource{})
}

// NewStoreWithDeps creates a Store with a custom time source for testing
func NewStoreWithDeps(storage Storage, index Index, timeSrc TimeSource) *Store {
	return &Store{
		storage:    storage,
		index:      index,
		timeSource: timeSrc,
	}
}

// FileName returns the archive id for a shift closed at t.
func FileName(t time.Time) string {
	return filePrefix + t.Format(stampFmt) + fileSuffix
}

// FormatDuration renders d truncated to whole seconds as H:MM:SS, prefixed
// with the day count when it spans a day or more.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d.Truncate(time.Second) / time.Second)
	days := total / 86400
	total %= 86400
	clock := fmt.Sprintf("%d:%02d:%02d", total/3600, total/60%60, total%60)
	switch {
	case days == 1:
		return "1 day, " + clock
	case days > 1:
		return fmt.Sprintf("%d days, %s", days, clock)
	}
	return clock
}

// Render composes the archive document text.
func Render(doc Document) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", doc.Venue)
	fmt.Fprintf(&b, "Opened: %s\n", doc.OpenedAt.Format("02.01.2006 15:04"))
	fmt.Fprintf(&b, "Closed: %s\n", doc.ClosedAt.Format("02.01.2006 15:04"))
	fmt.Fprintf(&b, "Duration: %s\n\n", FormatDuration(doc.ClosedAt.Sub(doc.OpenedAt)))
	fmt.Fprintf(&b, "%s\n\n", doc.Combined)
	fmt.Fprintf(&b, "%s\n\n", doc.Metrics)
	fmt.Fprintf(&b, "%s\n", doc.Receipts)
	return b.String()
}

// Archive persists doc and returns its id. A failed write is an ErrIO; a
// failed index update is only logged.
func (s *Store) Archive(ctx context.Context, doc Document) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", errs.IO(err, "archiving shift")
	}

	id, err := s.storage.Save(FileName(doc.ClosedAt), []byte(Render(doc)))
	if err != nil {
		return "", errs.IO(err, "saving shift report")
	}
	slog.Info("Shift report archived", "id", id)

	summary := &Summary{
		ID:       id,
		ShiftID:  doc.ShiftID,
		OpenedAt: doc.OpenedAt,
		ClosedAt: doc.ClosedAt,
		Sales:    doc.Sales,
		Cash:     doc.Cash,
		Cashless: doc.Cashless,
		Revenue:  doc.Cash + doc.Cashless,
	}
	if err := s.index.SaveSummary(summary); err != nil {
		slog.Warn("Failed to index shift report", "id", id, "error", err)
	}
	return id, nil
}

// ListRecent returns archived reports dated within the last maxAgeDays,
// newest first. Files whose names carry no parsable date are skipped.
func (s *Store) ListRecent(maxAgeDays int) ([]Record, error) {
	names, err := s.storage.List()
	if err != nil {
		return nil, err
	}

	summaries := make(map[string]*Summary)
	if list, err := s.index.ListSummaries(); err != nil {
		slog.Warn("Failed to read archive index", "error", err)
	} else {
		for _, sm := range list {
			summaries[sm.ID] = sm
		}
	}

	now := s.timeSource.Now()
	cutoff := now.Add(-time.Duration(maxAgeDays) * 24 * time.Hour)

	records := make([]Record, 0, len(names))
	for _, name := range names {
		if !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
			continue
		}
		stamp := strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), fileSuffix)
		if len(stamp) < 8 {
			slog.Warn("Skipping malformed archive name", "name", name)
			continue
		}
		date, err := time.ParseInLocation("20060102", stamp[:8], now.Location())
		if err != nil {
			slog.Warn("Skipping malformed archive name", "name", name, "error", err)
			continue
		}
		if date.Before(cutoff) {
			continue
		}
		records = append(records, Record{
			ID:          name,
			Date:        date,
			DisplayDate: date.Format("02.01.2006"),
			Summary:     summaries[name],
		})
	}

	sort.SliceStable(records, func(i, j int) bool {
		if !records[i].Date.Equal(records[j].Date) {
			return records[i].Date.After(records[j].Date)
		}
		return records[i].ID > records[j].ID
	})
	return records, nil
}

// Fetch returns the raw report document.
func (s *Store) Fetch(id string) ([]byte, error) {
	if id == "" || id != filepath.Base(id) || strings.HasPrefix(id, ".") {
		return nil, errs.NotFound("archive %q not found", id)
	}
	return s.storage.Get(id)
}

// Summary returns the indexed totals of an archived report.
func (s *Store) Summary(id string) (*Summary, error) {
	if id == "" {
		return nil, errs.NotFound("archive %q not found", id)
	}
	return s.index.GetSummary(id)
}
