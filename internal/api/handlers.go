// internal/api/handlers.go
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"

	"lending-workers/internal/common/errors"
	"lending-workers/internal/lending/orchestrator"
	"lending-workers/internal/lending/scorer"
	"lending-workers/internal/models"
	"lending-workers/internal/workers/lending/jobs"
)

const maxBodyBytes = 1 << 20

// ==========================
// Probes
// ==========================

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"service":   s.appName,
		"version":   s.version,
		"timestamp": s.now().UTC(),
	})
}

func (s *Server) ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.readyWait)
	defer cancel()

	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		failed = map[string]string{}
	)
	for name, check := range s.checks {
		wg.Add(1)
		go func(name string, check Check) {
			defer wg.Done()
			if err := check(ctx); err != nil {
				mu.Lock()
				failed[name] = err.Error()
				mu.Unlock()
			}
		}(name, check)
	}
	wg.Wait()

	if len(failed) > 0 {
		s.logger.Warn("readiness check failed", map[string]interface{}{"failed": failed})
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{"status": "not ready", "failed": failed})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"status": "ready"})
}

// ==========================
// Applications
// ==========================

func (s *Server) submit(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		s.writeError(w, errors.NewApplicationValidationFailedError(fmt.Sprintf("read body: %v", err)))
		return
	}

	result, err := s.submitSchema.ValidateJSON(body)
	if err != nil {
		s.writeError(w, errors.NewApplicationValidationFailedError(err.Error()))
		return
	}
	if !result.Valid {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error":  errors.NewApplicationValidationFailedError(result.Error()),
			"fields": result.Errors,
		})
		return
	}

	var req orchestrator.SubmitRequest
	if err := json.Unmarshal(body, &req); err != nil {
		s.writeError(w, errors.NewApplicationValidationFailedError(err.Error()))
		return
	}

	out, err := s.svc.Submit(r.Context(), req)
	if err != nil {
		s.writeError(w, jobs.Translate(err, req.ApplicationID, ""))
		return
	}

	status := http.StatusCreated
	if !out.Success {
		status = http.StatusBadGateway
	}
	writeJSON(w, status, out)
}

type applicationView struct {
	Submission *models.Submission         `json:"submission"`
	InFlight   bool                       `json:"inFlight"`
	Lenders    []models.LenderApplication `json:"lenders"`
}

func (s *Server) getApplication(w http.ResponseWriter, r *http.Request) {
	appID := chi.URLParam(r, "applicationId")

	sub, err := s.svc.GetSubmission(r.Context(), appID)
	if err != nil {
		s.writeError(w, jobs.Translate(err, appID, ""))
		return
	}
	recs, err := s.svc.GetStatus(r.Context(), appID)
	if err != nil {
		s.writeError(w, jobs.Translate(err, appID, ""))
		return
	}
	inFlight, err := s.svc.InFlight(r.Context(), appID)
	if err != nil {
		s.writeError(w, jobs.Translate(err, appID, ""))
		return
	}
	writeJSON(w, http.StatusOK, applicationView{Submission: sub, InFlight: inFlight, Lenders: recs})
}

func (s *Server) listApplicationLenders(w http.ResponseWriter, r *http.Request) {
	appID := chi.URLParam(r, "applicationId")
	recs, err := s.svc.GetStatus(r.Context(), appID)
	if err != nil {
		s.writeError(w, jobs.Translate(err, appID, ""))
		return
	}
	writeJSON(w, http.StatusOK, recs)
}

func (s *Server) bestOffers(w http.ResponseWriter, r *http.Request) {
	appID := chi.URLParam(r, "applicationId")
	offers, err := s.svc.BestOffers(r.Context(), appID)
	if err != nil {
		s.writeError(w, jobs.Translate(err, appID, ""))
		return
	}
	writeJSON(w, http.StatusOK, offers)
}

func (s *Server) applicationHistory(w http.ResponseWriter, r *http.Request) {
	appID := chi.URLParam(r, "applicationId")
	if s.history == nil {
		writeJSON(w, http.StatusNotImplemented, map[string]string{"error": "audit history is disabled"})
		return
	}
	entries, err := s.history.History(r.Context(), appID)
	if err != nil {
		s.writeError(w, errors.NewAuditIndexFailedError("history", err))
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) retry(w http.ResponseWriter, r *http.Request) {
	appID := chi.URLParam(r, "applicationId")
	lenderID := chi.URLParam(r, "lenderId")

	retried, err := s.svc.Retry(r.Context(), appID, lenderID)
	if err != nil {
		s.writeError(w, jobs.Translate(err, appID, lenderID))
		return
	}
	if !retried {
		writeJSON(w, http.StatusConflict, map[string]interface{}{
			"retried":       false,
			"applicationId": appID,
			"lenderId":      lenderID,
			"message":       "no FAILED submission to retry",
		})
		return
	}

	recs, err := s.svc.GetStatus(r.Context(), appID)
	if err != nil {
		s.writeError(w, jobs.Translate(err, appID, lenderID))
		return
	}
	out := map[string]interface{}{"retried": true, "applicationId": appID, "lenderId": lenderID}
	for _, rec := range recs {
		if rec.LenderID == lenderID {
			out["record"] = rec
		}
	}
	writeJSON(w, http.StatusOK, out)
}

// ==========================
// Webhooks
// ==========================

type webhookBody struct {
	Status  models.LenderStatus `json:"status"`
	Payload json.RawMessage     `json:"payload,omitempty"`
}

func (s *Server) lenderWebhook(w http.ResponseWriter, r *http.Request) {
	appID := chi.URLParam(r, "applicationId")
	lenderID := chi.URLParam(r, "lenderId")

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		s.writeError(w, errors.NewInvalidStatusUpdateError(err.Error()))
		return
	}
	result, err := s.updateSchema.ValidateJSON(body)
	if err != nil {
		s.writeError(w, errors.NewInvalidStatusUpdateError(err.Error()))
		return
	}
	if !result.Valid {
		s.writeError(w, errors.NewInvalidStatusUpdateError(result.Error()))
		return
	}

	var in webhookBody
	if err := json.Unmarshal(body, &in); err != nil {
		s.writeError(w, errors.NewInvalidStatusUpdateError(err.Error()))
		return
	}
	update, err := models.DecodeStatusUpdate(in.Status, in.Payload)
	if err != nil {
		s.writeError(w, errors.NewInvalidStatusUpdateError(err.Error()))
		return
	}

	rec, err := s.svc.ApplyExternalUpdate(r.Context(), appID, lenderID, update)
	if err != nil {
		s.writeError(w, jobs.Translate(err, appID, lenderID))
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// ==========================
// Records and lenders
// ==========================

func (s *Server) listRecords(w http.ResponseWriter, r *http.Request) {
	recs, err := s.svc.ListAllRecords(r.Context())
	if err != nil {
		s.writeError(w, jobs.Translate(err, "", ""))
		return
	}
	if status := r.URL.Query().Get("status"); status != "" {
		filtered := make([]models.LenderApplication, 0, len(recs))
		for _, rec := range recs {
			if strings.EqualFold(string(rec.Status), status) {
				filtered = append(filtered, rec)
			}
		}
		recs = filtered
	}
	writeJSON(w, http.StatusOK, recs)
}

type lenderView struct {
	models.Lender
	Score *float64 `json:"score,omitempty"`
}

// listLenders returns the catalogue. When applicant query parameters are
// given the lenders are scored and ranked against them.
func (s *Server) listLenders(w http.ResponseWriter, r *http.Request) {
	if s.lenders == nil {
		writeJSON(w, http.StatusOK, []lenderView{})
		return
	}
	lenders := s.lenders.List()

	applicant, scored, err := applicantFromQuery(r)
	if err != nil {
		s.writeError(w, errors.NewApplicationValidationFailedError(err.Error()))
		return
	}

	out := make([]lenderView, 0, len(lenders))
	if !scored {
		for _, l := range lenders {
			out = append(out, lenderView{Lender: l})
		}
		writeJSON(w, http.StatusOK, out)
		return
	}

	for _, ranked := range scorer.Rank(lenders, applicant) {
		l, ok := s.lenders.Get(ranked.LenderID)
		if !ok {
			continue
		}
		score := ranked.Score
		out = append(out, lenderView{Lender: l, Score: &score})
	}
	writeJSON(w, http.StatusOK, out)
}

func applicantFromQuery(r *http.Request) (scorer.Applicant, bool, error) {
	q := r.URL.Query()
	a := scorer.Applicant{
		VehicleType:    q.Get("vehicleType"),
		EmploymentType: q.Get("employmentType"),
	}
	scored := a.VehicleType != "" || a.EmploymentType != ""

	if v := q.Get("creditScore"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return a, false, fmt.Errorf("creditScore: %w", err)
		}
		a.CreditScore = n
		scored = true
	}
	if v := q.Get("loanAmount"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return a, false, fmt.Errorf("loanAmount: %w", err)
		}
		a.LoanAmount = f
		scored = true
	}
	return a, scored, nil
}

func (s *Server) analytics(w http.ResponseWriter, r *http.Request) {
	stats, err := s.svc.Analytics(r.Context())
	if err != nil {
		s.writeError(w, jobs.Translate(err, "", ""))
		return
	}
	if sortBy := r.URL.Query().Get("sort"); sortBy == "approvalRate" {
		sort.SliceStable(stats, func(i, j int) bool { return stats[i].ApprovalRate > stats[j].ApprovalRate })
	}
	writeJSON(w, http.StatusOK, stats)
}

// ==========================
// Responses
// ==========================

var statusByCode = map[errors.ErrorCode]int{
	errors.ErrCodeDuplicateSubmission:         http.StatusConflict,
	errors.ErrCodeNoLendersResolved:           http.StatusUnprocessableEntity,
	errors.ErrCodeSubmissionNotFound:          http.StatusNotFound,
	errors.ErrCodeLenderRecordNotFound:        http.StatusNotFound,
	errors.ErrCodeUnknownLender:               http.StatusNotFound,
	errors.ErrCodeInvalidStatusUpdate:         http.StatusBadRequest,
	errors.ErrCodeApplicationValidationFailed: http.StatusBadRequest,
	errors.ErrCodeInvalidTransition:           http.StatusConflict,
	errors.ErrCodeLenderCallFailed:            http.StatusBadGateway,
	errors.ErrCodeNotificationSendFailed:      http.StatusBadGateway,
	errors.ErrCodeAuditIndexFailed:            http.StatusBadGateway,
}

func httpStatus(code errors.ErrorCode) int {
	if status, ok := statusByCode[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

func (s *Server) writeError(w http.ResponseWriter, stdErr *errors.StandardError) {
	status := httpStatus(stdErr.Code)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request error", map[string]interface{}{
			"code":    stdErr.Code,
			"details": stdErr.Details,
		})
	}
	writeJSON(w, status, map[string]interface{}{"error": stdErr})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
