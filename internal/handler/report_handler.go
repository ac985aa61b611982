package handler

import (
	"errors"
	"net/http"
	"strconv"

	"originality-go/internal/model"
	"originality-go/internal/repository"
	"originality-go/internal/service"
	"originality-go/pkg/log"

	"github.com/gin-gonic/gin"
)

const maxReportLimit = 100

// ReportHandler 负责检测报告的查询。
type ReportHandler struct {
	reportService service.ReportService
}

// NewReportHandler 创建一个新的 ReportHandler 实例。
func NewReportHandler(reportService service.ReportService) *ReportHandler {
	return &ReportHandler{reportService: reportService}
}

// ListReports 返回最近的检测报告，limit 默认 20，最大 100。
func (h *ReportHandler) ListReports(c *gin.Context) {
	limit := 20
	if s := c.Query("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "无效的 limit 参数", "data": nil})
			return
		}
		limit = n
	}
	if limit > maxReportLimit {
		limit = maxReportLimit
	}

	reports, err := h.reportService.ListRecent(c.Request.Context(), limit)
	if err != nil {
		log.Error("ListReports: failed", err)
		c.JSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": "获取检测报告失败", "data": nil})
		return
	}
	dtos := make([]model.SimilarityReportDTO, len(reports))
	for i, r := range reports {
		dtos[i] = r.ToDTO()
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": dtos})
}

// GetReport 按报告 ID 查询。
func (h *ReportHandler) GetReport(c *gin.Context) {
	report, err := h.reportService.Get(c.Request.Context(), c.Param("reportId"))
	if errors.Is(err, repository.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"code": http.StatusNotFound, "message": "报告不存在", "data": nil})
		return
	}
	if err != nil {
		log.Error("GetReport: failed", err)
		c.JSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": "获取检测报告失败", "data": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": report.ToDTO()})
}
