package controllers

import (
	"fmt"
	"net/http"
	"time"

	"checkin-dashboard/services"
	"checkin-dashboard/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// CheckInController exposes the checkin collection itself.
type CheckInController struct {
	CheckIns *services.CheckInService
	Log      *zap.Logger
}

func NewCheckInController(svc *services.CheckInService, logger *zap.Logger) *CheckInController {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CheckInController{CheckIns: svc, Log: logger}
}

// List (GET /api/checkins) returns the stored documents in load order.
func (cc *CheckInController) List(c *gin.Context) {
	docs, err := cc.CheckIns.ListDocuments(c.Request.Context())
	if err != nil {
		cc.Log.Error("list check-ins failed", zap.Error(err))
		utils.JSONError(c, http.StatusBadGateway, "Failed to load check-ins")
		return
	}
	utils.JSONSuccess(c, http.StatusOK, docs)
}

// Export (GET /api/checkins/export) downloads the collection as a workbook.
func (cc *CheckInController) Export(c *gin.Context) {
	docs, err := cc.CheckIns.ListDocuments(c.Request.Context())
	if err != nil {
		cc.Log.Error("export check-ins failed", zap.Error(err))
		utils.JSONError(c, http.StatusBadGateway, "Failed to load check-ins")
		return
	}

	data, err := services.GenerateCheckInExport(docs)
	if err != nil {
		cc.Log.Error("build export failed", zap.Error(err))
		utils.JSONError(c, http.StatusInternalServerError, "Failed to build export")
		return
	}

	filename := fmt.Sprintf("checkins-%s.xlsx", time.Now().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, xlsxContentType, data)
}
