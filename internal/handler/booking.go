package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/Shivanand-hulikatti/gourmetgo-booking/internal/model"
	"github.com/Shivanand-hulikatti/gourmetgo-booking/internal/service"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// BookingHandler serves the booking lifecycle.
type BookingHandler struct {
	svc *service.BookingService
	responder
}

// NewBookingHandler constructs a BookingHandler.
func NewBookingHandler(svc *service.BookingService, logger *zap.Logger) *BookingHandler {
	return &BookingHandler{svc: svc, responder: responder{logger: logger}}
}

// CreateBooking handles POST /bookings
// Reserves seats and returns the pending booking with its credentials.
func (h *BookingHandler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var req model.CreateBookingRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeBadBody(w, err)
		return
	}

	res, err := h.svc.CreateBooking(r.Context(), RequesterFrom(r.Context()), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

// ListMyBookings handles GET /bookings/my
func (h *BookingHandler) ListMyBookings(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ListMyBookings(r.Context(), RequesterFrom(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// GetBooking handles GET /bookings/{id}
func (h *BookingHandler) GetBooking(w http.ResponseWriter, r *http.Request) {
	d, err := h.svc.GetBookingDetail(r.Context(), RequesterFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// DownloadTickets handles GET /bookings/{id}/tickets
// Streams the ticket PDF.
func (h *BookingHandler) DownloadTickets(w http.ResponseWriter, r *http.Request) {
	a, err := h.svc.RegenerateTickets(r.Context(), RequesterFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", a.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(a.Data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(a.Data)
}

// CancelBooking handles PUT /bookings/{id}/cancel
func (h *BookingHandler) CancelBooking(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.CancelBooking(r.Context(), RequesterFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ListChefBookings handles GET /chefs/{id}/bookings
func (h *BookingHandler) ListChefBookings(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ListBookingsForChef(r.Context(), RequesterFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if list == nil {
		list = []model.Booking{}
	}
	writeJSON(w, http.StatusOK, list)
}
