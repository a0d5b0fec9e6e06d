package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/joshua-takyi/evently/internal/i18n"
	"github.com/joshua-takyi/evently/internal/models"
	"github.com/joshua-takyi/evently/internal/services"
)

// BookEvent answers 201 for a new booking and 200 when the caller already
// held one; a full event is a 409.
func BookEvent(bs *services.BookingService, tr *i18n.Translator) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c, tr)
		if !ok {
			return
		}
		eventID, ok := pathID(c, tr, "id")
		if !ok {
			return
		}

		outcome, err := bs.Book(c.Request.Context(), userID, eventID)
		if err != nil {
			respondError(c, tr, err)
			return
		}
		if outcome.Status == models.BookingAlreadyBooked {
			c.JSON(http.StatusOK, models.SuccessResponse(outcome, message(c, tr, "booking.already_booked")))
			return
		}
		c.JSON(http.StatusCreated, models.SuccessResponse(outcome, message(c, tr, "booking.confirmed")))
	}
}

// MyEventBooking returns the caller's booking for one event, 404 if none.
func MyEventBooking(bs *services.BookingService, tr *i18n.Translator) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c, tr)
		if !ok {
			return
		}
		eventID, ok := pathID(c, tr, "id")
		if !ok {
			return
		}
		booking, err := bs.BookingFor(c.Request.Context(), userID, eventID)
		if err != nil {
			respondError(c, tr, err)
			return
		}
		if booking == nil {
			respondError(c, tr, models.ErrBookingNotFound)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(booking, ""))
	}
}

func MyBookings(bs *services.BookingService, tr *i18n.Translator) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c, tr)
		if !ok {
			return
		}
		bookings, err := bs.MyBookings(c.Request.Context(), userID)
		if err != nil {
			respondError(c, tr, err)
			return
		}
		c.JSON(http.StatusOK, models.ListResponse(bookings, len(bookings)))
	}
}

func CancelBooking(bs *services.BookingService, tr *i18n.Translator) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c, tr)
		if !ok {
			return
		}
		bookingID, ok := pathID(c, tr, "id")
		if !ok {
			return
		}
		if err := bs.Cancel(c.Request.Context(), userID, bookingID); err != nil {
			respondError(c, tr, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(nil, message(c, tr, "booking.cancelled")))
	}
}
