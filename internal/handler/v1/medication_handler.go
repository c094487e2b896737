package v1

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/asclep-health/asclep/internal/domain/doselog"
	"github.com/asclep-health/asclep/internal/domain/medication"
	"github.com/asclep-health/asclep/internal/service"
)

type MedicationHandler struct {
	meds *service.MedicationService
}

func NewMedicationHandler(meds *service.MedicationService) *MedicationHandler {
	return &MedicationHandler{meds: meds}
}

type createMedicationRequest struct {
	Name            string     `json:"name" binding:"required"`
	Dosage          string     `json:"dosage" binding:"required"`
	Frequency       string     `json:"frequency" binding:"required"`
	DoseTime        string     `json:"dose_time" binding:"required"` // "HH:MM"
	StartDate       time.Time  `json:"start_date" binding:"required"`
	EndDate         *time.Time `json:"end_date"`
	RemainingPills  int        `json:"remaining_pills"`
	Notes           string     `json:"notes"`
	ReminderEnabled bool       `json:"reminder_enabled"`
}

func (h *MedicationHandler) Create(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req createMedicationRequest
	if !bindJSON(c, &req) {
		return
	}

	doseTime, err := medication.ParseDoseTime(req.DoseTime)
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	med, err := h.meds.Create(c.Request.Context(), &medication.CreateMedicationCommand{
		UserID:          userID,
		Name:            req.Name,
		Dosage:          req.Dosage,
		Frequency:       medication.Frequency(req.Frequency),
		DoseTime:        doseTime,
		StartDate:       req.StartDate,
		EndDate:         req.EndDate,
		RemainingPills:  req.RemainingPills,
		Notes:           req.Notes,
		ReminderEnabled: req.ReminderEnabled,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondCreated(c, med)
}

func (h *MedicationHandler) List(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	q := &medication.ListMedicationsQuery{
		UserID:   userID,
		Page:     parseQueryInt(c, "page", 1),
		PageSize: parseQueryInt(c, "page_size", 20),
	}
	if raw := c.Query("status"); raw != "" {
		status := medication.Status(raw)
		if !status.IsValid() {
			respondError(c, http.StatusBadRequest, "invalid status filter")
			return
		}
		q.Status = &status
	}

	page, err := h.meds.List(c.Request.Context(), q)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, page)
}

func (h *MedicationHandler) Get(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	med, err := h.meds.Get(c.Request.Context(), id, userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, med)
}

type updateMedicationRequest struct {
	Name            *string    `json:"name"`
	Dosage          *string    `json:"dosage"`
	Frequency       *string    `json:"frequency"`
	DoseTime        *string    `json:"dose_time"`
	EndDate         *time.Time `json:"end_date"`
	RemainingPills  *int       `json:"remaining_pills"`
	Notes           *string    `json:"notes"`
	Status          *string    `json:"status"`
	ReminderEnabled *bool      `json:"reminder_enabled"`
}

func (h *MedicationHandler) Update(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	var req updateMedicationRequest
	if !bindJSON(c, &req) {
		return
	}

	cmd := &medication.UpdateMedicationCommand{
		Name:            req.Name,
		Dosage:          req.Dosage,
		EndDate:         req.EndDate,
		RemainingPills:  req.RemainingPills,
		Notes:           req.Notes,
		ReminderEnabled: req.ReminderEnabled,
	}
	if req.Frequency != nil {
		f := medication.Frequency(*req.Frequency)
		cmd.Frequency = &f
	}
	if req.DoseTime != nil {
		dt, err := medication.ParseDoseTime(*req.DoseTime)
		if err != nil {
			respondError(c, http.StatusBadRequest, err.Error())
			return
		}
		cmd.DoseTime = &dt
	}
	if req.Status != nil {
		s := medication.Status(*req.Status)
		cmd.Status = &s
	}

	med, err := h.meds.Update(c.Request.Context(), id, userID, cmd)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, med)
}

func (h *MedicationHandler) Delete(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	if err := h.meds.Delete(c.Request.Context(), id, userID); err != nil {
		respondServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type doseActionRequest struct {
	Notes string `json:"notes"`
}

// MarkTaken records a taken dose, advances the schedule, and decrements
// the pill count.
func (h *MedicationHandler) MarkTaken(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	var req doseActionRequest
	_ = c.ShouldBindJSON(&req) // body optional

	med, err := h.meds.MarkTaken(c.Request.Context(), id, userID, req.Notes)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, med)
}

func (h *MedicationHandler) MarkSkipped(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	var req doseActionRequest
	_ = c.ShouldBindJSON(&req)

	med, err := h.meds.MarkSkipped(c.Request.Context(), id, userID, req.Notes)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, med)
}

// Snooze defers the currently fired reminder.
func (h *MedicationHandler) Snooze(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	if err := h.meds.Snooze(c.Request.Context(), id, userID); err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, gin.H{"message": "reminder snoozed"})
}

type logDoseRequest struct {
	Status        string    `json:"status" binding:"required"`
	ScheduledTime time.Time `json:"scheduled_time" binding:"required"`
	Notes         string    `json:"notes"`
}

// LogDose appends a historical dose record without advancing the schedule.
func (h *MedicationHandler) LogDose(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	var req logDoseRequest
	if !bindJSON(c, &req) {
		return
	}

	entry, err := h.meds.LogDose(c.Request.Context(), id, userID,
		doselog.Status(req.Status), req.ScheduledTime, req.Notes)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondCreated(c, entry)
}

func (h *MedicationHandler) History(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	q := &doselog.ListEntriesQuery{
		UserID:       userID,
		MedicationID: &id,
		Page:         parseQueryInt(c, "page", 1),
		PageSize:     parseQueryInt(c, "page_size", 20),
	}

	page, err := h.meds.History(c.Request.Context(), q)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, page)
}

// Upcoming lists medications due within the advance-notice window.
// Without a ?window= override the service applies its configured default.
func (h *MedicationHandler) Upcoming(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var window time.Duration
	if raw := c.Query("window"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			respondError(c, http.StatusBadRequest, "invalid window duration")
			return
		}
		window = d
	}

	meds, err := h.meds.Upcoming(c.Request.Context(), userID, window)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, meds)
}

// Schedule projects occurrences across the next seven days.
func (h *MedicationHandler) Schedule(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	doses, err := h.meds.WeekSchedule(c.Request.Context(), userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, doses)
}
