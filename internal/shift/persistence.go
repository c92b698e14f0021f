package shift

import (
	"context"
	"log/slog"
	"time"

	"github.com/zombor/shift-ledger/internal/ledger"
)

// Snapshot writes the open shift to the backup store. It is a no-op while
// no shift is open.
func (s *Service) Snapshot() error {
	s.mu.Lock()
	if !s.open {
		s.mu.Unlock()
		return nil
	}
	rev, rec := s.revision, s.recordLocked()
	s.mu.Unlock()

	return s.persist(rev, rec)
}

// Restore reloads an open shift from the backup store. The cart always starts
// empty. A missing or unreadable backup leaves the service closed and is
// reported as false.
func (s *Service) Restore() bool {
	rec, err := s.backups.Load()
	if err != nil {
		slog.Warn("Ignoring unreadable backup", "error", err)
		return false
	}
	if rec == nil || !rec.IsOpen {
		return false
	}

	s.mu.Lock()
	if s.open {
		s.mu.Unlock()
		slog.Warn("Backup not restored, a shift is already open")
		return false
	}
	s.resetLocked()
	s.open = true
	s.shiftID = rec.ShiftID
	if s.shiftID == "" {
		s.shiftID = s.idGenerator.Generate()
	}
	if rec.OpenTime != nil {
		s.openedAt = *rec.OpenTime
	} else {
		s.openedAt = s.timeSource.Now()
	}
	s.exchangeCash = rec.ExchangeCash
	s.ledger = ledger.FromSales(rec.Sales)
	s.revision++
	shiftID, sales := s.shiftID, s.ledger.Len()
	s.mu.Unlock()

	slog.Info("Shift restored from backup", "shift_id", shiftID, "sales", sales, "last_backup", rec.LastBackup)
	return true
}

// StartAutosave snapshots the open shift every interval until Shutdown. A
// second call while running does nothing.
func (s *Service) StartAutosave(interval time.Duration) {
	if interval <= 0 {
		interval = DefaultAutosaveInterval
	}

	s.autosaveMu.Lock()
	defer s.autosaveMu.Unlock()
	if s.stopAutosave != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.stopAutosave = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := s.Snapshot(); err != nil {
					slog.Warn("Autosave failed", "error", err)
				}
			}
		}
	}()
	slog.Info("Autosave started", "interval", interval)
}

// Shutdown stops autosave and takes a final snapshot of an open shift.
func (s *Service) Shutdown() {
	s.autosaveMu.Lock()
	if s.stopAutosave != nil {
		s.stopAutosave()
		s.stopAutosave = nil
	}
	s.autosaveMu.Unlock()
	s.wg.Wait()

	if err := s.Snapshot(); err != nil {
		slog.Error("Final snapshot failed", "error", err)
		return
	}
	slog.Info("Shift service stopped", "open", s.IsOpen())
}
