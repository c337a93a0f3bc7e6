package httpapi

import (
	"net/http"

	pmsGuard "github.com/MrEthical07/pmsGuard"
	"github.com/go-chi/chi/v5"
)

type guestResponse struct {
	pmsGuard.GuestResource
	// Amount is the payment amount formatted with two decimals.
	Amount string `json:"amount,omitempty"`
}

func toGuestResponse(res pmsGuard.GuestResource) guestResponse {
	out := guestResponse{GuestResource: res}
	if res.Payment != nil {
		out.Amount = res.Payment.Amount()
	}
	return out
}

// Guest pages answer every failure with the same 404 body.
func writeGuestNotFound(w http.ResponseWriter) {
	writeError(w, http.StatusNotFound, pmsGuard.ReasonNotFound.String(), "Not found")
}

func (s *server) handleGuestResolve(typ pmsGuard.GuestResourceType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := s.engine.ResolveGuestToken(r.Context(), chi.URLParam(r, "token"), typ)
		if err != nil {
			writeGuestNotFound(w)
			return
		}
		writeJSON(w, http.StatusOK, toGuestResponse(res))
	}
}

func (s *server) handleGuestRedeem(typ pmsGuard.GuestResourceType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := s.engine.RedeemGuestToken(r.Context(), chi.URLParam(r, "token"), typ)
		if err != nil {
			writeGuestNotFound(w)
			return
		}
		writeJSON(w, http.StatusOK, toGuestResponse(res))
	}
}
