package v1

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/asclep-health/asclep/internal/domain/prescription"
	"github.com/asclep-health/asclep/internal/service"
)

type PrescriptionHandler struct {
	prescriptions *service.PrescriptionService
}

func NewPrescriptionHandler(prescriptions *service.PrescriptionService) *PrescriptionHandler {
	return &PrescriptionHandler{prescriptions: prescriptions}
}

// Upload accepts a multipart form with a single "file" part.
func (h *PrescriptionHandler) Upload(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		respondError(c, http.StatusBadRequest, "missing file upload")
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		respondError(c, http.StatusBadRequest, "unreadable file upload")
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		respondError(c, http.StatusBadRequest, "unreadable file upload")
		return
	}

	p, err := h.prescriptions.Upload(c.Request.Context(), &prescription.UploadPrescriptionCommand{
		UserID:      userID,
		Filename:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Data:        data,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondCreated(c, p)
}

func (h *PrescriptionHandler) List(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	out, err := h.prescriptions.List(c.Request.Context(), userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, out)
}

func (h *PrescriptionHandler) Get(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	p, err := h.prescriptions.Get(c.Request.Context(), id, userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, p)
}

// Download returns a short-lived signed URL rather than proxying bytes.
func (h *PrescriptionHandler) Download(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	url, err := h.prescriptions.DownloadURL(c.Request.Context(), id, userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, gin.H{"url": url})
}

func (h *PrescriptionHandler) Delete(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	if err := h.prescriptions.Delete(c.Request.Context(), id, userID); err != nil {
		respondServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
