// internal/models/status_update.go
package models

import (
	"encoding/json"
	"fmt"
)

// StatusUpdate is a lender-pushed status change. Each variant carries only the
// fields that are valid for its status.
type StatusUpdate interface {
	Status() LenderStatus
	apply(rec *LenderApplication)
}

// ApplyStatusUpdate overwrites the record status and merges the variant payload.
func ApplyStatusUpdate(rec *LenderApplication, update StatusUpdate) {
	rec.Status = update.Status()
	update.apply(rec)
}

type PendingUpdate struct{}

func (PendingUpdate) Status() LenderStatus       { return StatusPending }
func (PendingUpdate) apply(_ *LenderApplication) {}

type SubmittedUpdate struct{}

func (SubmittedUpdate) Status() LenderStatus       { return StatusSubmitted }
func (SubmittedUpdate) apply(_ *LenderApplication) {}

type UnderReviewUpdate struct {
	Note string `json:"note,omitempty"`
}

func (UnderReviewUpdate) Status() LenderStatus { return StatusUnderReview }
func (u UnderReviewUpdate) apply(rec *LenderApplication) {
	if u.Note != "" {
		rec.Note = u.Note
	}
}

type ApprovedUpdate struct {
	Terms      LoanTerms `json:"terms"`
	Conditions []string  `json:"conditions,omitempty"`
}

func (ApprovedUpdate) Status() LenderStatus { return StatusApproved }
func (u ApprovedUpdate) apply(rec *LenderApplication) {
	terms := u.Terms
	rec.Terms = &terms
	rec.Conditions = append([]string(nil), u.Conditions...)
	rec.CounterOffer = nil
	rec.RejectionReason = ""
}

type ConditionalApprovalUpdate struct {
	Terms      LoanTerms `json:"terms"`
	Conditions []string  `json:"conditions"`
}

func (ConditionalApprovalUpdate) Status() LenderStatus { return StatusConditionalApproval }
func (u ConditionalApprovalUpdate) apply(rec *LenderApplication) {
	terms := u.Terms
	rec.Terms = &terms
	rec.Conditions = append([]string(nil), u.Conditions...)
	rec.CounterOffer = nil
	rec.RejectionReason = ""
}

type CounterOfferUpdate struct {
	Terms        LoanTerms    `json:"terms"`
	CounterOffer CounterOffer `json:"counterOffer"`
}

func (CounterOfferUpdate) Status() LenderStatus { return StatusCounterOffer }
func (u CounterOfferUpdate) apply(rec *LenderApplication) {
	terms := u.Terms
	offer := u.CounterOffer
	rec.Terms = &terms
	rec.CounterOffer = &offer
	rec.RejectionReason = ""
}

type RejectedUpdate struct {
	Reason string `json:"reason"`
}

func (RejectedUpdate) Status() LenderStatus { return StatusRejected }
func (u RejectedUpdate) apply(rec *LenderApplication) {
	rec.RejectionReason = u.Reason
	rec.Terms = nil
	rec.Conditions = nil
	rec.CounterOffer = nil
}

type DocumentsRequiredUpdate struct {
	Documents []string `json:"documents"`
}

func (DocumentsRequiredUpdate) Status() LenderStatus { return StatusDocumentsRequired }
func (u DocumentsRequiredUpdate) apply(rec *LenderApplication) {
	rec.RequiredDocuments = append([]string(nil), u.Documents...)
}

type FailedUpdate struct {
	Reason string `json:"reason"`
}

func (FailedUpdate) Status() LenderStatus { return StatusFailed }
func (u FailedUpdate) apply(rec *LenderApplication) {
	rec.RejectionReason = u.Reason
}

type ExpiredUpdate struct {
	Reason string `json:"reason,omitempty"`
}

func (ExpiredUpdate) Status() LenderStatus { return StatusExpired }
func (u ExpiredUpdate) apply(rec *LenderApplication) {
	if u.Reason != "" {
		rec.Note = u.Reason
	}
}

// DecodeStatusUpdate builds the variant for status from a JSON payload. An
// empty payload is accepted for statuses whose fields are all optional.
func DecodeStatusUpdate(status LenderStatus, payload json.RawMessage) (StatusUpdate, error) {
	var update StatusUpdate
	switch status {
	case StatusPending:
		return PendingUpdate{}, nil
	case StatusSubmitted:
		return SubmittedUpdate{}, nil
	case StatusUnderReview:
		u := UnderReviewUpdate{}
		if err := decodeOptional(payload, &u); err != nil {
			return nil, err
		}
		update = u
	case StatusApproved:
		u := ApprovedUpdate{}
		if err := decodeRequired(status, payload, &u); err != nil {
			return nil, err
		}
		update = u
	case StatusConditionalApproval:
		u := ConditionalApprovalUpdate{}
		if err := decodeRequired(status, payload, &u); err != nil {
			return nil, err
		}
		update = u
	case StatusCounterOffer:
		u := CounterOfferUpdate{}
		if err := decodeRequired(status, payload, &u); err != nil {
			return nil, err
		}
		update = u
	case StatusRejected:
		u := RejectedUpdate{}
		if err := decodeOptional(payload, &u); err != nil {
			return nil, err
		}
		update = u
	case StatusDocumentsRequired:
		u := DocumentsRequiredUpdate{}
		if err := decodeOptional(payload, &u); err != nil {
			return nil, err
		}
		update = u
	case StatusFailed:
		u := FailedUpdate{}
		if err := decodeOptional(payload, &u); err != nil {
			return nil, err
		}
		update = u
	case StatusExpired:
		u := ExpiredUpdate{}
		if err := decodeOptional(payload, &u); err != nil {
			return nil, err
		}
		update = u
	default:
		return nil, fmt.Errorf("unknown lender status %q", status)
	}
	return update, nil
}

func decodeOptional(payload json.RawMessage, dst interface{}) error {
	if len(payload) == 0 || string(payload) == "null" {
		return nil
	}
	if err := json.Unmarshal(payload, dst); err != nil {
		return fmt.Errorf("decode status payload: %w", err)
	}
	return nil
}

func decodeRequired(status LenderStatus, payload json.RawMessage, dst interface{}) error {
	if len(payload) == 0 || string(payload) == "null" {
		return fmt.Errorf("status %s requires a payload", status)
	}
	if err := json.Unmarshal(payload, dst); err != nil {
		return fmt.Errorf("decode %s payload: %w", status, err)
	}
	return nil
}
