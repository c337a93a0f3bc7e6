package httpapi

import (
	"net/http"
	"time"

	pmsGuard "github.com/MrEthical07/pmsGuard"
	"github.com/MrEthical07/pmsGuard/middleware"
	"go.uber.org/zap"
)

var errNoPrincipal = pmsGuard.ErrUnauthenticated

type authDisabledRequest struct {
	Disabled *bool `json:"disabled"`
}

type invalidateRequest struct {
	Roles []string `json:"roles"`
}

type issueCheckInRequest struct {
	ReservationID string    `json:"reservationId"`
	GuestName     string    `json:"guestName"`
	CheckIn       time.Time `json:"checkIn"`
	CheckOut      time.Time `json:"checkOut"`
	RoomNumber    string    `json:"roomNumber"`
}

type issuePaymentRequest struct {
	ReservationID string `json:"reservationId"`
	AmountCents   int64  `json:"amountCents"`
	Currency      string `json:"currency"`
}

type issueResponse struct {
	Token string `json:"token"`
	Path  string `json:"path"`
}

func (s *server) handleGetAuthDisabled(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"disabled": s.engine.IsAuthDisabled()})
}

// handleSetAuthDisabled persists the flag. Other processes see the change on
// their next refresh.
func (s *server) handleSetAuthDisabled(w http.ResponseWriter, r *http.Request) {
	var req authDisabledRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Disabled == nil {
		writeBadRequest(w, "disabled is required")
		return
	}
	if err := s.engine.SetAuthDisabled(r.Context(), *req.Disabled); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"disabled": *req.Disabled})
}

// handleInvalidatePermissions drops cached permission sets. An empty or
// missing body drops every role.
func (s *server) handleInvalidatePermissions(w http.ResponseWriter, r *http.Request) {
	var req invalidateRequest
	if r.ContentLength != 0 {
		if !decodeJSON(w, r, &req) {
			return
		}
	}
	s.engine.InvalidatePermissions(req.Roles...)
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) handleIssueCheckIn(w http.ResponseWriter, r *http.Request) {
	var req issueCheckInRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.ReservationID == "" || req.GuestName == "" {
		writeBadRequest(w, "reservationId and guestName are required")
		return
	}
	view := &pmsGuard.CheckInView{
		GuestName:  req.GuestName,
		CheckIn:    req.CheckIn,
		CheckOut:   req.CheckOut,
		RoomNumber: req.RoomNumber,
	}
	token, err := s.engine.IssueGuestToken(r.Context(), pmsGuard.GuestCheckIn, req.ReservationID, view, nil)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	s.logIssued(r, pmsGuard.GuestCheckIn, req.ReservationID)
	writeJSON(w, http.StatusCreated, issueResponse{Token: token, Path: "/check-in/guest/" + token})
}

func (s *server) handleIssuePayment(w http.ResponseWriter, r *http.Request) {
	var req issuePaymentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.ReservationID == "" || req.AmountCents <= 0 || len(req.Currency) != 3 {
		writeBadRequest(w, "reservationId, a positive amountCents and a 3-letter currency are required")
		return
	}
	view := &pmsGuard.PaymentView{AmountCents: req.AmountCents, Currency: req.Currency}
	token, err := s.engine.IssueGuestToken(r.Context(), pmsGuard.GuestPayment, req.ReservationID, nil, view)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	s.logIssued(r, pmsGuard.GuestPayment, req.ReservationID)
	writeJSON(w, http.StatusCreated, issueResponse{Token: token, Path: "/pay/" + token})
}

func (s *server) logIssued(r *http.Request, typ pmsGuard.GuestResourceType, resourceID string) {
	by := ""
	if p, ok := middleware.PrincipalFromContext(r.Context()); ok {
		by = p.ID
	}
	s.log.Info("guest token issued",
		zap.String("type", string(typ)),
		zap.String("resource_id", resourceID),
		zap.String("issued_by", by),
	)
}
