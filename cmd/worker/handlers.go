package main

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yourusername/report-forge/internal/config"
	"github.com/yourusername/report-forge/internal/jobs"
)

// enqueueRequest は POST /api/reports のリクエストボディです。
type enqueueRequest struct {
	TemplateID                 string `json:"templateId" binding:"required"`
	OrderRefID                 string `json:"orderRefId" binding:"required"`
	OrderID                    string `json:"orderId" binding:"required"`
	Referrer                   string `json:"referrer" binding:"required"`
	SuppressClientNotification bool   `json:"suppressClientNotification"`
}

// enqueueReportHandler はレポート生成ジョブを受け付けてキューに投入します。
func enqueueReportHandler(cfg *config.Config, manager *jobs.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req enqueueRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"code":    "INVALID_INPUT",
				"message": "templateId, orderRefId, orderId, referrer を指定してください。",
			})
			return
		}

		// 未知のテナントは投入前に弾きます。
		if _, err := cfg.Tenant(req.Referrer); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"code":    "UNKNOWN_TENANT",
				"message": "referrer が未知のテナントです。",
			})
			return
		}

		jobID := uuid.NewString()
		if _, err := manager.Enqueue(c.Request.Context(), &jobs.TaskPayload{
			JobID:                      jobID,
			TemplateID:                 req.TemplateID,
			OrderRefID:                 req.OrderRefID,
			OrderID:                    req.OrderID,
			Referrer:                   req.Referrer,
			SuppressClientNotification: req.SuppressClientNotification,
		}); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"code":    "INTERNAL_ERROR",
				"message": "ジョブの投入に失敗しました。",
			})
			return
		}

		c.JSON(http.StatusAccepted, gin.H{
			"jobId": jobID,
		})
	}
}

// jobStatusHandler はジョブレコードを返します。
func jobStatusHandler(manager *jobs.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		jobID := c.Param("id")
		if strings.TrimSpace(jobID) == "" {
			c.JSON(http.StatusBadRequest, gin.H{
				"code":    "INVALID_INPUT",
				"message": "jobId を指定してください。",
			})
			return
		}

		record, err := manager.GetRecord(c.Request.Context(), jobID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"code":    "INTERNAL_ERROR",
				"message": "ジョブ情報の取得に失敗しました。",
			})
			return
		}
		if record == nil {
			c.JSON(http.StatusNotFound, gin.H{
				"code":    "JOB_NOT_FOUND",
				"message": "指定されたジョブは存在しません。",
			})
			return
		}

		payload := gin.H{
			"jobId":  record.JobID,
			"tenant": record.Tenant,
			"status": record.Status,
			"progress": gin.H{
				"percent": record.Progress.Percent,
				"stage":   record.Progress.Stage,
				"message": record.Progress.Message,
			},
			"updatedAt": record.UpdatedAt,
		}
		if record.ArtifactURL != "" {
			payload["artifactUrl"] = record.ArtifactURL
		}
		if record.Error != nil {
			payload["error"] = record.Error
		}

		c.JSON(http.StatusOK, payload)
	}
}
