package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/niosh12/ddeducation/internal/catalog"
	"github.com/niosh12/ddeducation/internal/dto"
	"github.com/niosh12/ddeducation/pkg/response"
)

// CatalogHandler 学段科目目录 HTTP 处理器
type CatalogHandler struct {
	sessions []string
}

// NewCatalogHandler 创建 CatalogHandler
func NewCatalogHandler(sessions []string) *CatalogHandler {
	return &CatalogHandler{sessions: sessions}
}

// GetCatalog 科目目录与可选场次
// GET /api/v1/catalog/:class
func (h *CatalogHandler) GetCatalog(c *gin.Context) {
	class, err := catalog.ParseClass(c.Param("class"))
	if err != nil {
		response.NotFound(c, 17001, "未知的学段")
		return
	}

	subjects, _ := catalog.Subjects(class)
	sessions := make([]string, len(h.sessions))
	copy(sessions, h.sessions)

	response.OK(c, dto.CatalogResponse{
		Class:    string(class),
		Subjects: subjects,
		Sessions: sessions,
	})
}
