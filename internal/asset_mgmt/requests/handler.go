package requests

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"HRAM-backend/internal/platform/apierr"
)

type Handler struct{ svc *Service }

func RegisterRoutes(r gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}

	r.POST("/requests", h.SubmitRequest)
	r.GET("/requests", h.ListRequests)
	r.GET("/requests/:key", h.GetRequest)

	// 承認・却下は管理者操作
	r.POST("/requests/:key/approve", h.ApproveRequest)
	r.POST("/requests/:key/reject", h.RejectRequest)
}

// SubmitRequest godoc
// @Summary 貸与申請の登録（status は requested で初期化）
// @Tags requests
// @Router /requests [post]
func (h *Handler) SubmitRequest(c *gin.Context) {
	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, apierr.Body(apierr.CodeInvalidArgument, "invalid json or missing required fields"))
		return
	}
	res, err := h.svc.Submit(c.Request.Context(), req)
	if err != nil {
		c.JSON(apierr.ToHTTPStatus(err), apierr.BodyFrom(err))
		return
	}
	c.Header("Location", "/requests/"+res.RequestULID)
	c.JSON(http.StatusCreated, res)
}

// ApproveRequest godoc
// @Summary 申請の承認。asset_id 必須。対象資産が取られていたら409
// @Tags requests
// @Router /requests/{key}/approve [post]
func (h *Handler) ApproveRequest(c *gin.Context) {
	var req ApproveRequest
	// asset_id 欠落はワークフローに入る前にここで弾く
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, apierr.Body(apierr.CodeInvalidArgument, "asset_id is required"))
		return
	}
	res, err := h.svc.Approve(c.Request.Context(), c.Param("key"), req)
	if err != nil {
		c.JSON(apierr.ToHTTPStatus(err), apierr.BodyFrom(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

// RejectRequest godoc
// @Summary 申請の却下
// @Tags requests
// @Router /requests/{key}/reject [post]
func (h *Handler) RejectRequest(c *gin.Context) {
	res, err := h.svc.Reject(c.Request.Context(), c.Param("key"))
	if err != nil {
		c.JSON(apierr.ToHTTPStatus(err), apierr.BodyFrom(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) GetRequest(c *gin.Context) {
	res, err := h.svc.GetByKey(c.Request.Context(), c.Param("key"))
	if err != nil {
		c.JSON(apierr.ToHTTPStatus(err), apierr.BodyFrom(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) ListRequests(c *gin.Context) {
	var f RequestFilter
	if v := c.Query("status"); v != "" {
		st := RequestStatus(v)
		f.Status = &st
	}
	if v := c.Query("employee_id"); v != "" {
		f.EmployeeID = &v
	}
	if v := c.Query("category"); v != "" {
		f.Category = &v
	}
	p := Page{
		Limit:  atoiDef(c.Query("limit"), 50),
		Offset: atoiDef(c.Query("offset"), 0),
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

func atoiDef(s string, d int) int {
	if s == "" {
		return d
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return d
	}
	return n
}
