package http

import (
	"net/http"
	"time"

	"pfledger/internal/log"
)

// handleHealth performs a basic liveness check.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Data(map[string]any{
		"status":         "ok",
		"timestamp":      time.Now().UTC().Format(time.RFC3339),
		"uptime":         time.Since(s.started).Round(time.Second).String(),
		"active_clients": s.rateLimiter.ActiveClients(),
		"security":       s.metrics.snapshot(),
	}).Write(w)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	sum := s.ledger.Summary()
	NewJSONResponse().Data(summaryView{
		Balance:      s.money(sum.Balance),
		TotalIncome:  s.money(sum.TotalIncome),
		TotalExpense: s.money(sum.TotalExpense),
	}).Write(w)
}

func (s *Server) handleRecent(w http.ResponseWriter, r *http.Request) {
	limit, err := ParseLimit(r.URL.Query())
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	NewJSONResponse().Data(s.transactions(s.ledger.Recent(limit))).Write(w)
}

func (s *Server) handleMonths(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Data(s.ledger.MonthsPresent()).Write(w)
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	month := ParseMonthFilter(r.URL.Query())
	NewJSONResponse().Data(s.transactions(s.ledger.FilterByMonth(month))).Write(w)
}

func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	ref, err := ParseReferenceDate(r.URL.Query())
	if err != nil {
		FromError(err).Write(w)
		return
	}
	a := s.ledger.Analytics(ref)
	NewJSONResponse().Data(analyticsView{
		Month:          a.Month,
		MonthIncome:    s.money(a.MonthIncome),
		MonthExpense:   s.money(a.MonthExpense),
		TopCategory:    a.TopCategory,
		HighestExpense: s.money(a.HighestExpense),
	}).Write(w)
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Data(s.ledger.Categories()).Write(w)
}

func (s *Server) handleAddCategory(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	added, err := s.ledger.AddCategory(r.Context(), p.Get("name"))
	if err != nil {
		s.fail(w, r, err, log.OpAddCategory)
		return
	}

	status := http.StatusOK
	if added {
		status = http.StatusCreated
	}
	NewJSONResponse().Status(status).Data(map[string]any{
		"added":      added,
		"categories": s.ledger.Categories(),
	}).Write(w)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	tx, err := s.ledger.AddTransaction(r.Context(), p.Draft())
	if err != nil {
		s.fail(w, r, err, log.OpCreate)
		return
	}
	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/transactions/"+tx.ID).
		Data(s.transaction(tx)).
		Write(w)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	tx, err := s.ledger.UpdateTransaction(r.Context(), r.PathValue("id"), p.Draft())
	if err != nil {
		s.fail(w, r, err, log.OpUpdate)
		return
	}
	NewJSONResponse().Data(s.transaction(tx)).Write(w)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.DeleteTransaction(r.Context(), r.PathValue("id")); err != nil {
		s.fail(w, r, err, log.OpDelete)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.Reset(r.Context()); err != nil {
		s.fail(w, r, err, log.OpReset)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	data, err := s.ledger.Export(r.Context())
	if err != nil {
		s.fail(w, r, err, log.OpExport)
		return
	}
	NewJSONResponse().Raw(data).Write(w)
}

// fail writes the error response for err. Only unexpected errors are logged
// here; validation and lookup failures are logged by the ledger.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error, op string) {
	resp := FromError(err)
	if resp.statusCode >= http.StatusInternalServerError {
		s.httpLog.LogError(r.Context(), "Ledger operation failed", err, op, nil)
	}
	resp.Write(w)
}
