package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/healthmate/companion/internal/apiclient"
	"github.com/healthmate/companion/internal/audit"
	"github.com/healthmate/companion/internal/service"
	"github.com/healthmate/companion/pkg/model"
)

// VitalsResponse is returned after vitals were stored
type VitalsResponse struct {
	Vitals   *model.VitalsRecord `json:"vitals"`
	Message  string              `json:"message"`
	Redirect string              `json:"redirect"`
}

// VitalsErrorResponse echoes the draft back so the form keeps its values
type VitalsErrorResponse struct {
	ErrorResponse
	Draft service.VitalsDraft `json:"draft"`
}

// VitalsHandler serves the add-vitals form
type VitalsHandler struct {
	service *service.VitalsService
	audit   *audit.Logger
	logger  *zap.Logger
}

// NewVitalsHandler creates a new VitalsHandler
func NewVitalsHandler(service *service.VitalsService, auditLogger *audit.Logger, logger *zap.Logger) *VitalsHandler {
	return &VitalsHandler{
		service: service,
		audit:   auditLogger,
		logger:  logger,
	}
}

// PostAddVitals normalizes the draft and stores it
func (h *VitalsHandler) PostAddVitals(c *gin.Context) {
	var draft service.VitalsDraft
	if err := c.ShouldBindJSON(&draft); err != nil {
		bindError(c, err)
		return
	}

	user := currentUser(c)
	record, err := h.service.Add(c.Request.Context(), draft)
	if err != nil {
		h.audit.Log(audit.Entry{
			UserID:    user.ID,
			Action:    audit.ActionAddVitals,
			Resource:  audit.ResourceVitals,
			IPAddress: c.ClientIP(),
		})

		status, code := classify(err)
		message := apiclient.MessageOf(err, "Failed to add vitals")
		if code == "VALIDATION_ERROR" {
			message = validationMessage(err)
		}
		_ = c.Error(err)
		c.JSON(status, VitalsErrorResponse{
			ErrorResponse: ErrorResponse{
				Code:    code,
				Message: message,
				Details: stringPtr(err.Error()),
			},
			Draft: draft,
		})
		return
	}

	h.audit.Log(audit.Entry{
		UserID:     user.ID,
		Action:     audit.ActionAddVitals,
		Resource:   audit.ResourceVitals,
		ResourceID: record.ID,
		Succeeded:  true,
		IPAddress:  c.ClientIP(),
	})

	c.JSON(http.StatusCreated, VitalsResponse{
		Vitals:   record,
		Message:  "Vitals added successfully!",
		Redirect: "/dashboard",
	})
}
