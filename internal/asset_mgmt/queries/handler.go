package queries

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"HRAM-backend/internal/platform/apierr"
)

type Handler struct{ svc *Service }

func RegisterRoutes(r gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}

	r.GET("/views/available-assets", h.AvailableAssets)
	r.GET("/views/employees/:employee_id/open-allocations", h.OpenAllocations)
	r.GET("/views/requests/pending", h.PendingRequests)
}

// AvailableAssets godoc
// @Summary 貸与可能な資産一覧（?category= で絞り込み）
// @Tags views
// @Router /views/available-assets [get]
func (h *Handler) AvailableAssets(c *gin.Context) {
	var category *string
	if v := c.Query("category"); v != "" {
		category = &v
	}
	items, err := h.svc.AvailableAssets(c.Request.Context(), category)
	if err != nil {
		c.JSON(apierr.ToHTTPStatus(err), apierr.BodyFrom(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *Handler) OpenAllocations(c *gin.Context) {
	items, err := h.svc.OpenAllocationsByEmployee(c.Request.Context(), c.Param("employee_id"))
	if err != nil {
		c.JSON(apierr.ToHTTPStatus(err), apierr.BodyFrom(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *Handler) PendingRequests(c *gin.Context) {
	items, err := h.svc.PendingRequests(c.Request.Context())
	if err != nil {
		c.JSON(apierr.ToHTTPStatus(err), apierr.BodyFrom(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}
