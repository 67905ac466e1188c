package allocations

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"HRAM-backend/internal/platform/apierr"
)

type Handler struct{ svc *Service }

func RegisterRoutes(r gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}

	// 貸与
	r.POST("/allocations", h.CreateAllocation)
	r.GET("/allocations", h.ListAllocations)
	r.GET("/allocations/:key", h.GetAllocation)

	// 返却は独立リソース（貸与行の更新だが操作としては別）
	r.POST("/returns", h.CreateReturn)
}

// CreateAllocation godoc
// @Summary 資産の直接貸与。availableでない資産は409
// @Tags allocations
// @Router /allocations [post]
func (h *Handler) CreateAllocation(c *gin.Context) {
	var req CreateAllocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, apierr.Body(apierr.CodeInvalidArgument, "invalid json or missing required fields"))
		return
	}
	res, err := h.svc.Allocate(c.Request.Context(), req)
	if err != nil {
		c.JSON(apierr.ToHTTPStatus(err), apierr.BodyFrom(err))
		return
	}
	c.Header("Location", "/allocations/"+res.AllocationULID)
	c.JSON(http.StatusCreated, res)
}

// CreateReturn godoc
// @Summary 返却登録。2回目は409 ALREADY_RETURNED
// @Tags allocations
// @Router /returns [post]
func (h *Handler) CreateReturn(c *gin.Context) {
	var req CreateReturnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, apierr.Body(apierr.CodeInvalidArgument, "invalid json or missing required fields"))
		return
	}
	res, err := h.svc.Return(c.Request.Context(), req)
	if err != nil {
		c.JSON(apierr.ToHTTPStatus(err), apierr.BodyFrom(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) GetAllocation(c *gin.Context) {
	res, err := h.svc.GetByKey(c.Request.Context(), c.Param("key"))
	if err != nil {
		c.JSON(apierr.ToHTTPStatus(err), apierr.BodyFrom(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) ListAllocations(c *gin.Context) {
	var f AllocationFilter
	if v := c.Query("employee_id"); v != "" {
		f.EmployeeID = &v
	}
	if v := c.Query("asset_id"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			f.AssetID = &n
		}
	}
	if v := c.Query("open"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			f.Open = &b
		}
	}
	p := Page{
		Limit:  parseIntDefault(c.Query("limit"), 50),
		Offset: parseIntDefault(c.Query("offset"), 0),
		Order:  c.DefaultQuery("order", "asc"),
	}
	items, total, err := h.svc.List(c.Request.Context(), f, p)
	if err != nil {
		c.JSON(apierr.ToHTTPStatus(err), apierr.BodyFrom(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "total": total})
}

// ---------- helpers ----------

func parseIntDefault(s string, d int) int {
	if s == "" {
		return d
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return d
	}
	return v
}
