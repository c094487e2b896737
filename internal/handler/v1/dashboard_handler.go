package v1

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/asclep-health/asclep/internal/domain/appointment"
	"github.com/asclep-health/asclep/internal/service"
)

type DashboardHandler struct {
	dashboard    *service.DashboardService
	activity     *service.ActivityService
	appointments appointment.Repository
}

func NewDashboardHandler(
	dashboard *service.DashboardService,
	activity *service.ActivityService,
	appointments appointment.Repository,
) *DashboardHandler {
	return &DashboardHandler{dashboard: dashboard, activity: activity, appointments: appointments}
}

func (h *DashboardHandler) Stats(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	stats, err := h.dashboard.Stats(c.Request.Context(), userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, stats)
}

func (h *DashboardHandler) Activities(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	entries, err := h.activity.List(c.Request.Context(), userID, parseQueryInt(c, "limit", 20))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, entries)
}

type createAppointmentRequest struct {
	Date       time.Time `json:"date" binding:"required"`
	DoctorName string    `json:"doctor_name"`
	Location   string    `json:"location"`
	Purpose    string    `json:"purpose"`
	Notes      string    `json:"notes"`
}

func (h *DashboardHandler) CreateAppointment(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req createAppointmentRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.Date.Before(time.Now()) {
		respondError(c, http.StatusBadRequest, "appointment date must be in the future")
		return
	}

	a := &appointment.Appointment{
		UserID:     userID,
		Date:       req.Date,
		DoctorName: req.DoctorName,
		Location:   req.Location,
		Purpose:    req.Purpose,
		Notes:      req.Notes,
	}
	if err := h.appointments.Create(c.Request.Context(), a); err != nil {
		respondServiceError(c, err)
		return
	}
	respondCreated(c, a)
}

func (h *DashboardHandler) ListAppointments(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	out, err := h.appointments.ListByUser(c.Request.Context(), userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, out)
}
