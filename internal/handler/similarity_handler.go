// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"errors"
	"io"
	"net/http"

	"originality-go/internal/service"
	"originality-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// ReportIDHeader 返回本次检测生成的报告 ID。
const ReportIDHeader = "X-Report-ID"

// SimilarityHandler 负责处理原创性检测请求。
type SimilarityHandler struct {
	originalityService service.OriginalityService
	reportService      service.ReportService
	maxUploadBytes     int64
}

// NewSimilarityHandler 创建一个新的 SimilarityHandler 实例。maxUploadMB <= 0 表示不限制大小。
func NewSimilarityHandler(originalityService service.OriginalityService, reportService service.ReportService, maxUploadMB int64) *SimilarityHandler {
	return &SimilarityHandler{
		originalityService: originalityService,
		reportService:      reportService,
		maxUploadBytes:     maxUploadMB << 20,
	}
}

// CheckSimilarity 读取 multipart 字段 file，返回 {originality, most_similar_doc}。
func (h *SimilarityHandler) CheckSimilarity(c *gin.Context) {
	if h.maxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "上传文件过大"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "缺少上传文件字段 file"})
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		log.Error("CheckSimilarity: failed to open upload", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "读取上传文件失败"})
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		log.Error("CheckSimilarity: failed to read upload", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "读取上传文件失败"})
		return
	}

	result, err := h.originalityService.Check(c.Request.Context(), data)
	if errors.Is(err, service.ErrExtractionFailed) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		log.Error("CheckSimilarity: check failed", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	// 报告记录失败不影响检测结果的返回
	if h.reportService != nil {
		reportID, err := h.reportService.Record(c.Request.Context(), fileHeader.Filename, data, result)
		if err != nil {
			log.Error("CheckSimilarity: failed to record report", err)
		} else {
			c.Header(ReportIDHeader, reportID)
		}
	}

	c.JSON(http.StatusOK, result.SimilarityResult)
}
