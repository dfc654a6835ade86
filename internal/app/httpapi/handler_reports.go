package httpapi

import (
	"net/http"

	"github.com/R3E-Network/classledger/internal/app/domain/oplog"
	"github.com/R3E-Network/classledger/internal/app/domain/report"
	"github.com/R3E-Network/classledger/internal/app/services/stats"
	"github.com/R3E-Network/classledger/internal/httputil"
)

func period(w http.ResponseWriter, r *http.Request) (report.Period, bool) {
	p, err := report.ParsePeriod(r.URL.Query().Get("period"))
	if err != nil {
		httputil.BadRequest(w, r, err.Error())
		return "", false
	}
	return p, true
}

func (h *handler) stats(w http.ResponseWriter, r *http.Request) {
	p, ok := period(w, r)
	if !ok {
		return
	}
	summary, err := h.app.Stats.Summary(r.Context(), p)
	if err != nil {
		httputil.WriteServiceError(w, r, h.log, err)
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, summary, "")
}

func (h *handler) incomeTrend(w http.ResponseWriter, r *http.Request) {
	months, ok := queryInt(w, r, "months", stats.DefaultTrendMonths)
	if !ok {
		return
	}
	points, err := h.app.Stats.IncomeTrend(r.Context(), months)
	if err != nil {
		httputil.WriteServiceError(w, r, h.log, err)
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, points, "")
}

func (h *handler) hoursTrend(w http.ResponseWriter, r *http.Request) {
	months, ok := queryInt(w, r, "months", stats.DefaultTrendMonths)
	if !ok {
		return
	}
	points, err := h.app.Stats.HoursTrend(r.Context(), months)
	if err != nil {
		httputil.WriteServiceError(w, r, h.log, err)
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, points, "")
}

func (h *handler) studentProfit(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	rep, err := h.app.Profit.StudentReport(r.Context(), id)
	if err != nil {
		httputil.WriteServiceError(w, r, h.log, err)
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, rep, "")
}

func (h *handler) periodProfit(w http.ResponseWriter, r *http.Request) {
	p, ok := period(w, r)
	if !ok {
		return
	}
	rep, err := h.app.Profit.PeriodReport(r.Context(), p)
	if err != nil {
		httputil.WriteServiceError(w, r, h.log, err)
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, rep, "")
}

func (h *handler) operationLogs(w http.ResponseWriter, r *http.Request) {
	filter := oplog.Filter{OperationType: r.URL.Query().Get("operation_type")}
	var ok bool
	if filter.UserID, ok = queryID(w, r, "user_id"); !ok {
		return
	}
	if filter.Limit, ok = queryInt(w, r, "limit", 0); !ok {
		return
	}
	entries, err := h.app.OpLog.List(r.Context(), filter)
	if err != nil {
		httputil.WriteServiceError(w, r, h.log, err)
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, entries, "")
}

func (h *handler) systemStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.app.System.Status(r.Context())
	if err != nil {
		httputil.WriteServiceError(w, r, h.log, err)
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, status, "")
}
