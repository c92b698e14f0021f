package web

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/zombor/shift-ledger/internal/errs"
)

type statusResponse struct {
	Open         bool       `json:"open"`
	ShiftID      string     `json:"shift_id,omitempty"`
	OpenedAt     *time.Time `json:"opened_at,omitempty"`
	ExchangeCash int64      `json:"exchange_cash"`
	Sales        int        `json:"sales"`
	CartLines    int        `json:"cart_lines"`
	CartTotal    int64      `json:"cart_total"`
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// writeError maps the error kind to a status code
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errs.Is(err, errs.ErrNotFound):
		http.Error(w, "Not found", http.StatusNotFound)
	case errs.Is(err, errs.ErrState):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		slog.Error("Request failed", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("ok"))
}

// handleIndex serves the HTML interface
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(indexHTML)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st := s.service.Status()
	resp := statusResponse{
		Open:         st.Open,
		ShiftID:      st.ShiftID,
		ExchangeCash: st.ExchangeCash,
		Sales:        st.Sales,
		CartLines:    st.CartLines,
		CartTotal:    st.CartTotal,
	}
	if st.Open {
		resp.OpenedAt = &st.OpenedAt
	}
	writeJSON(w, resp)
}

// handleListArchives returns the archived shifts of the last 30 days
func (s *Server) handleListArchives(w http.ResponseWriter, r *http.Request) {
	records, err := s.service.ListRecentArchives()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, records)
}

// handleGetArchive returns one archived report as plain text
func (s *Server) handleGetArchive(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	data, err := s.service.FetchArchive(id)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", `inline; filename="`+id+`"`)
	w.Write(data)
}

// handleArchiveSummary returns the indexed totals of one archived report
func (s *Server) handleArchiveSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.service.ArchiveSummary(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, summary)
}

// handleReport renders a live report of the open shift
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	var (
		text string
		err  error
	)
	switch r.PathValue("kind") {
	case "combined":
		text, err = s.service.CombinedReport()
	case "metrics":
		text, err = s.service.MetricsReport()
	case "receipts":
		text, err = s.service.ReceiptsReport()
	default:
		http.Error(w, "Unknown report", http.StatusNotFound)
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte(text))
}
