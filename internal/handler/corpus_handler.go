package handler

import (
	"net/http"

	"originality-go/internal/service"
	"originality-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// CorpusHandler 提供语料库概览与健康检查。
type CorpusHandler struct {
	originalityService service.OriginalityService
}

// NewCorpusHandler 创建一个新的 CorpusHandler 实例。
func NewCorpusHandler(originalityService service.OriginalityService) *CorpusHandler {
	return &CorpusHandler{originalityService: originalityService}
}

// ListCorpus 返回语料库中每个文档的名称和文本长度。
func (h *CorpusHandler) ListCorpus(c *gin.Context) {
	entries, err := h.originalityService.CorpusEntries(c.Request.Context())
	if err != nil {
		log.Error("ListCorpus: failed", err)
		c.JSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": "获取语料库失败", "data": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": entries})
}

// Health 返回服务状态与语料数量。
func (h *CorpusHandler) Health(c *gin.Context) {
	n, err := h.originalityService.CorpusSize(c.Request.Context())
	if err != nil {
		log.Error("Health: failed to count corpus", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "corpus_size": n})
}
