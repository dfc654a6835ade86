package httpapi

import (
	"fmt"
	"net/http"

	"github.com/R3E-Network/classledger/internal/app/domain/deduction"
	"github.com/R3E-Network/classledger/internal/app/services/deductions"
	"github.com/R3E-Network/classledger/internal/httputil"
	"github.com/R3E-Network/classledger/internal/middleware"
)

func (h *handler) createConfig(w http.ResponseWriter, r *http.Request) {
	var in deductions.ConfigInput
	if !httputil.DecodeJSON(w, r, &in) {
		return
	}
	cfg, err := h.app.Deductions.CreateConfig(r.Context(), in)
	if err != nil {
		httputil.WriteServiceError(w, r, h.log, err)
		return
	}
	middleware.Annotate(r.Context(), cfg.ID, "created deduction config: "+cfg.Name)
	httputil.WriteSuccess(w, http.StatusCreated, cfg, "deduction config created")
}

func (h *handler) listConfigs(w http.ResponseWriter, r *http.Request) {
	list, err := h.app.Deductions.ListConfigs(r.Context())
	if err != nil {
		httputil.WriteServiceError(w, r, h.log, err)
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, list, "")
}

func (h *handler) updateConfig(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var in deductions.ConfigInput
	if !httputil.DecodeJSON(w, r, &in) {
		return
	}
	cfg, err := h.app.Deductions.UpdateConfig(r.Context(), id, in)
	if err != nil {
		httputil.WriteServiceError(w, r, h.log, err)
		return
	}
	middleware.Annotate(r.Context(), cfg.ID, "updated deduction config: "+cfg.Name)
	httputil.WriteSuccess(w, http.StatusOK, cfg, "deduction config updated")
}

func (h *handler) studentDeductions(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	list, err := h.app.Deductions.StudentDeductions(r.Context(), id)
	if err != nil {
		httputil.WriteServiceError(w, r, h.log, err)
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, list, "")
}

func (h *handler) setStudentDeductions(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var payload struct {
		DeductionIDs []int64 `json:"deduction_ids"`
	}
	if !httputil.DecodeJSON(w, r, &payload) {
		return
	}
	applied, err := h.app.Deductions.SetStudentDeductions(r.Context(), id, payload.DeductionIDs)
	if err != nil {
		httputil.WriteServiceError(w, r, h.log, err)
		return
	}
	middleware.Annotate(r.Context(), id, fmt.Sprintf("set %d deductions for student %d", len(applied), id))
	httputil.WriteSuccess(w, http.StatusOK, applied, "student deductions updated")
}

func detailQuery(w http.ResponseWriter, r *http.Request) (deductions.DetailQuery, bool) {
	q := r.URL.Query()
	out := deductions.DetailQuery{
		Type:      deduction.DetailType(q.Get("type")),
		StartDate: q.Get("start_date"),
		EndDate:   q.Get("end_date"),
	}
	var ok bool
	if out.Page, ok = queryInt(w, r, "page", 1); !ok {
		return out, false
	}
	if out.Limit, ok = queryInt(w, r, "limit", deductions.DefaultPageSize); !ok {
		return out, false
	}
	return out, true
}

func (h *handler) createDetail(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var in deductions.DetailInput
	if !httputil.DecodeJSON(w, r, &in) {
		return
	}
	if in.Operator == "" {
		in.Operator = p.Username
	}
	d, err := h.app.Deductions.CreateDetail(r.Context(), id, in)
	if err != nil {
		httputil.WriteServiceError(w, r, h.log, err)
		return
	}
	middleware.Annotate(r.Context(), d.ID,
		fmt.Sprintf("created %s for student %d: %s", d.DeductionType, d.StudentID, d.Amount.StringFixed(2)))
	httputil.WriteSuccess(w, http.StatusCreated, d, "deduction detail created")
}

func (h *handler) studentDetails(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	q, ok := detailQuery(w, r)
	if !ok {
		return
	}
	list, err := h.app.Deductions.ListStudentDetails(r.Context(), id, q)
	if err != nil {
		httputil.WriteServiceError(w, r, h.log, err)
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, list, "")
}

func (h *handler) listDetails(w http.ResponseWriter, r *http.Request) {
	q, ok := detailQuery(w, r)
	if !ok {
		return
	}
	if q.StudentID, ok = queryID(w, r, "student_id"); !ok {
		return
	}
	page, err := h.app.Deductions.ListDetails(r.Context(), q)
	if err != nil {
		httputil.WriteServiceError(w, r, h.log, err)
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, page, "")
}

func (h *handler) updateDetail(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var in deductions.DetailInput
	if !httputil.DecodeJSON(w, r, &in) {
		return
	}
	if in.Operator == "" {
		in.Operator = p.Username
	}
	d, err := h.app.Deductions.UpdateDetail(r.Context(), id, in)
	if err != nil {
		httputil.WriteServiceError(w, r, h.log, err)
		return
	}
	middleware.Annotate(r.Context(), d.ID, fmt.Sprintf("updated deduction detail %d", d.ID))
	httputil.WriteSuccess(w, http.StatusOK, d, "deduction detail updated")
}

func (h *handler) deleteDetail(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	d, err := h.app.Deductions.DeleteDetail(r.Context(), id)
	if err != nil {
		httputil.WriteServiceError(w, r, h.log, err)
		return
	}
	middleware.Annotate(r.Context(), d.ID,
		fmt.Sprintf("deleted %s of student %d: %s", d.DeductionType, d.StudentID, d.Amount.StringFixed(2)))
	httputil.WriteSuccess(w, http.StatusOK, d, "deduction detail deleted")
}
