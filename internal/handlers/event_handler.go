package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/joshua-takyi/evently/internal/i18n"
	"github.com/joshua-takyi/evently/internal/middleware"
	"github.com/joshua-takyi/evently/internal/models"
	"github.com/joshua-takyi/evently/internal/services"
)

// parseNear reads either near=lat,lng or separate lat and lng parameters.
func parseNear(c *gin.Context) (*models.Coordinates, bool, error) {
	if near := strings.TrimSpace(c.Query("near")); near != "" {
		coords, err := models.ParseCoordinates(near)
		if err != nil {
			return nil, true, err
		}
		return &coords, true, nil
	}
	latRaw, lngRaw := c.Query("lat"), c.Query("lng")
	if latRaw == "" && lngRaw == "" {
		return nil, false, nil
	}
	lat, err := strconv.ParseFloat(latRaw, 64)
	if err != nil {
		return nil, true, err
	}
	lng, err := strconv.ParseFloat(lngRaw, 64)
	if err != nil {
		return nil, true, err
	}
	return &models.Coordinates{Latitude: lat, Longitude: lng}, true, nil
}

// ListEvents lists events with live availability, optionally filtered by
// organization and annotated with the distance from a point.
func ListEvents(es *services.EventService, tr *i18n.Translator) gin.HandlerFunc {
	return func(c *gin.Context) {
		var filter models.EventFilter
		if raw := c.Query("organization_id"); raw != "" {
			orgID, err := uuid.Parse(raw)
			if err != nil {
				badRequest(c, tr, "request.invalid_id")
				return
			}
			filter.OrganizationID = &orgID
		}
		near, set, err := parseNear(c)
		if set && err != nil {
			badRequest(c, tr, "request.invalid")
			return
		}
		filter.Near = near

		events, err := es.ListWithAvailability(c.Request.Context(), filter)
		if err != nil {
			respondError(c, tr, err)
			return
		}
		c.JSON(http.StatusOK, models.ListResponse(events, len(events)))
	}
}

func GetEvent(es *services.EventService, tr *i18n.Translator) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, tr, "id")
		if !ok {
			return
		}
		event, err := es.Get(c.Request.Context(), id)
		if err != nil {
			respondError(c, tr, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(event, ""))
	}
}

// MyOrganization returns the first organization the caller belongs to.
func MyOrganization(ors *services.OrganizationService, tr *i18n.Translator) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c, tr)
		if !ok {
			return
		}
		membership, err := ors.FirstMembership(c.Request.Context(), userID)
		if err != nil {
			respondError(c, tr, err)
			return
		}
		org, err := ors.Get(c.Request.Context(), membership.OrganizationID)
		if err != nil {
			respondError(c, tr, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(gin.H{
			"organization": org,
			"role":         membership.Role,
		}, ""))
	}
}

// The handlers below run behind RequireMembership.

func GetOrganization(ors *services.OrganizationService, tr *i18n.Translator) gin.HandlerFunc {
	return func(c *gin.Context) {
		membership, _ := middleware.CurrentMembership(c)
		org, err := ors.Get(c.Request.Context(), membership.OrganizationID)
		if err != nil {
			respondError(c, tr, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(gin.H{
			"organization": org,
			"role":         membership.Role,
		}, ""))
	}
}

func ListOrganizationEvents(es *services.EventService, tr *i18n.Translator) gin.HandlerFunc {
	return func(c *gin.Context) {
		membership, _ := middleware.CurrentMembership(c)
		orgID := membership.OrganizationID
		events, err := es.ListWithAvailability(c.Request.Context(), models.EventFilter{OrganizationID: &orgID})
		if err != nil {
			respondError(c, tr, err)
			return
		}
		c.JSON(http.StatusOK, models.ListResponse(events, len(events)))
	}
}

func CreateEvent(es *services.EventService, tr *i18n.Translator) gin.HandlerFunc {
	return func(c *gin.Context) {
		membership, _ := middleware.CurrentMembership(c)
		var in services.CreateEventInput
		if err := c.ShouldBindJSON(&in); err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse("invalid_event", message(c, tr, "event.invalid")))
			return
		}
		event, err := es.Create(c.Request.Context(), membership.OrganizationID, in)
		if err != nil {
			respondError(c, tr, err)
			return
		}
		c.JSON(http.StatusCreated, models.SuccessResponse(event, message(c, tr, "event.created")))
	}
}

func GetOrganizationEvent(es *services.EventService, tr *i18n.Translator) gin.HandlerFunc {
	return func(c *gin.Context) {
		membership, _ := middleware.CurrentMembership(c)
		id, ok := pathID(c, tr, "id")
		if !ok {
			return
		}
		event, err := es.GetForOrganization(c.Request.Context(), membership.OrganizationID, id)
		if err != nil {
			respondError(c, tr, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(event, ""))
	}
}

func UpdateEvent(es *services.EventService, tr *i18n.Translator) gin.HandlerFunc {
	return func(c *gin.Context) {
		membership, _ := middleware.CurrentMembership(c)
		id, ok := pathID(c, tr, "id")
		if !ok {
			return
		}
		var changes models.EventChanges
		if err := c.ShouldBindJSON(&changes); err != nil {
			badRequest(c, tr, "request.invalid")
			return
		}
		event, err := es.Update(c.Request.Context(), membership.OrganizationID, id, changes)
		if err != nil {
			respondError(c, tr, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(event, message(c, tr, "event.updated")))
	}
}

func EventGuests(es *services.EventService, tr *i18n.Translator) gin.HandlerFunc {
	return func(c *gin.Context) {
		membership, _ := middleware.CurrentMembership(c)
		id, ok := pathID(c, tr, "id")
		if !ok {
			return
		}
		guests, err := es.Guests(c.Request.Context(), membership.OrganizationID, id)
		if err != nil {
			respondError(c, tr, err)
			return
		}
		c.JSON(http.StatusOK, models.ListResponse(guests, len(guests)))
	}
}
