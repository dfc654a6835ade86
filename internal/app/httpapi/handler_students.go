package httpapi

import (
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/R3E-Network/classledger/internal/httputil"
	"github.com/R3E-Network/classledger/internal/middleware"
)

func (h *handler) createStudent(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Name  string `json:"name"`
		Phone string `json:"phone"`
	}
	if !httputil.DecodeJSON(w, r, &payload) {
		return
	}
	reg, err := h.app.Students.Create(r.Context(), payload.Name, payload.Phone)
	if err != nil {
		httputil.WriteServiceError(w, r, h.log, err)
		return
	}
	middleware.Annotate(r.Context(), reg.ID, "created student: "+reg.Name)
	httputil.WriteSuccess(w, http.StatusCreated, reg, "student created")
}

func (h *handler) listStudents(w http.ResponseWriter, r *http.Request) {
	list, err := h.app.Students.List(r.Context())
	if err != nil {
		httputil.WriteServiceError(w, r, h.log, err)
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, list, "")
}

func (h *handler) getStudent(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	detail, err := h.app.Students.Get(r.Context(), id)
	if err != nil {
		httputil.WriteServiceError(w, r, h.log, err)
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, detail, "")
}

func (h *handler) deleteStudent(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	st, err := h.app.Students.Delete(r.Context(), id)
	if err != nil {
		httputil.WriteServiceError(w, r, h.log, err)
		return
	}
	middleware.Annotate(r.Context(), st.ID, "deleted student: "+st.Name)
	httputil.WriteSuccess(w, http.StatusOK, st, "student deleted")
}

func (h *handler) recharge(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var payload struct {
		Amount decimal.Decimal `json:"amount"`
		Hours  int             `json:"hours"`
	}
	if !httputil.DecodeJSON(w, r, &payload) {
		return
	}
	res, err := h.app.Ledger.Recharge(r.Context(), id, payload.Amount, payload.Hours)
	if err != nil {
		httputil.WriteServiceError(w, r, h.log, err)
		return
	}
	middleware.Annotate(r.Context(), res.IncomeID,
		fmt.Sprintf("recharge for student %d: %s, %d hours", res.StudentID, res.Amount.StringFixed(2), res.Hours))
	httputil.WriteSuccess(w, http.StatusOK, res, "recharge recorded")
}

func (h *handler) consume(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var payload struct {
		HoursUsed int `json:"hours_used"`
	}
	if !httputil.DecodeJSON(w, r, &payload) {
		return
	}
	res, err := h.app.Ledger.Consume(r.Context(), id, payload.HoursUsed)
	if err != nil {
		httputil.WriteServiceError(w, r, h.log, err)
		return
	}
	middleware.Annotate(r.Context(), res.ClassID,
		fmt.Sprintf("class for student %d: %d hours", res.StudentID, res.HoursUsed))
	httputil.WriteSuccess(w, http.StatusOK, res, "class recorded")
}

func (h *handler) deleteIncome(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	res, err := h.app.Ledger.DeleteIncome(r.Context(), id)
	if err != nil {
		httputil.WriteServiceError(w, r, h.log, err)
		return
	}
	middleware.Annotate(r.Context(), res.DeletedIncome.ID,
		fmt.Sprintf("deleted income %d of student %d: %s", res.DeletedIncome.ID, res.DeletedIncome.StudentID, res.DeletedIncome.Amount.StringFixed(2)))
	httputil.WriteSuccess(w, http.StatusOK, res, "income deleted")
}
