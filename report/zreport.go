package report

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tillbridge/tillbridge/internal/till"
)

// sessionReader returns a till session with its closing reconciliation.
type sessionReader interface {
	Get(ctx context.Context, id uuid.UUID) (*till.ClosingSummary, error)
}

// Handler serves end-of-day session reports as PDF.
type Handler struct {
	client    *Client
	sessions  sessionReader
	logger    *slog.Logger
	storeName string
}

// NewHandler creates a report handler.
func NewHandler(client *Client, sessions sessionReader, logger *slog.Logger, storeName string) *Handler {
	return &Handler{client: client, sessions: sessions, logger: logger, storeName: storeName}
}

// MountRoutes registers report routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/ping", h.ping)
	r.Get("/sessions/{id}/zreport", h.zreport)
}

func (h *Handler) ping(w http.ResponseWriter, r *http.Request) {
	if err := h.client.Ping(r.Context()); err != nil {
		h.logger.Warn("gotenberg ping failed", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func (h *Handler) zreport(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "session id must be a UUID", http.StatusBadRequest)
		return
	}

	summary, err := h.sessions.Get(r.Context(), id)
	if err != nil {
		h.logger.Warn("load session for zreport", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		return
	}
	if summary.Session.ClosingTime == nil {
		http.Error(w, "session is still open", http.StatusConflict)
		return
	}

	pdf, err := h.client.RenderHTML(r.Context(), renderZReport(h.storeName, summary))
	if err != nil {
		h.logger.Error("render zreport pdf", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusBadGateway), http.StatusBadGateway)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=zreport-%s.pdf", id))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}

func renderZReport(storeName string, summary *till.ClosingSummary) string {
	s := summary.Session
	var b strings.Builder
	b.WriteString("<html><head><title>Z Report</title></head><body>")
	fmt.Fprintf(&b, "<h1>%s</h1>", html.EscapeString(storeName))
	fmt.Fprintf(&b, "<h2>Session %s</h2>", s.ID)
	fmt.Fprintf(&b, "<p>Cashier: %s<br>Opened: %s<br>Closed: %s</p>",
		html.EscapeString(s.POSUser),
		s.OpeningTime.Format("2006-01-02 15:04"),
		s.ClosingTime.Format("2006-01-02 15:04"),
	)

	b.WriteString("<table border=\"1\" cellpadding=\"4\"><tr><th>Mode</th><th>Expected</th><th>Counted</th><th>Difference</th></tr>")
	for _, d := range summary.Details {
		fmt.Fprintf(&b, "<tr><td>%s</td><td>%.3f</td><td>%.3f</td><td>%.3f</td></tr>",
			html.EscapeString(d.ModeOfPayment), d.ExpectedAmount, d.CountedAmount, d.Difference)
	}
	b.WriteString("</table>")

	opening, closing := 0.0, 0.0
	if s.OpeningBalance != nil {
		opening = *s.OpeningBalance
	}
	if s.ClosingBalance != nil {
		closing = *s.ClosingBalance
	}
	fmt.Fprintf(&b, "<p>Opening balance: %.3f (cash %.3f, knet %.3f)<br>Closing balance: %.3f</p>",
		opening, s.CashAmount, s.KnetAmount, closing)
	b.WriteString("</body></html>")
	return b.String()
}
