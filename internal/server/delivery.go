package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	deliverydomain "github.com/smallbiznis/academy/internal/delivery/domain"
)

type updateDeliveryRequest struct {
	Status         *string `json:"status" binding:"omitempty,oneof=PENDING PROCESSING SHIPPED DELIVERED CANCELLED pending processing shipped delivered cancelled"`
	TrackingNumber *string `json:"tracking_number" binding:"omitempty,max=128"`
	Courier        *string `json:"courier" binding:"omitempty,max=128"`
	Notes          *string `json:"notes" binding:"omitempty,max=2000"`
}

func (s *Server) ListDeliveries(c *gin.Context) {
	caller, ok := identity(c)
	if !ok {
		return
	}

	var query struct {
		CourseID string `form:"course_id"`
		Status   string `form:"status"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	courseID, err := parseOptionalSnowflakeID(query.CourseID)
	if err != nil {
		AbortWithError(c, newValidationError("course_id", "invalid_course_id", "invalid course_id"))
		return
	}

	req := deliverydomain.ListRequest{
		Actor:    deliverydomain.Actor{ID: caller.UserID, Role: caller.Role},
		CourseID: courseID,
	}
	if status := strings.ToUpper(strings.TrimSpace(query.Status)); status != "" {
		st := deliverydomain.Status(status)
		req.Status = &st
	}

	resp, err := s.deliverySvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetDelivery(c *gin.Context) {
	caller, ok := identity(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	resp, err := s.deliverySvc.Get(c.Request.Context(), id, deliverydomain.Actor{ID: caller.UserID, Role: caller.Role})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// UpdateDelivery applies a partial update. Absent fields are left untouched.
func (s *Server) UpdateDelivery(c *gin.Context) {
	caller, ok := identity(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req updateDeliveryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	update := deliverydomain.UpdateRequest{
		DeliveryID:     id,
		Actor:          deliverydomain.Actor{ID: caller.UserID, Role: caller.Role},
		TrackingNumber: trimmed(req.TrackingNumber),
		Courier:        trimmed(req.Courier),
		Notes:          trimmed(req.Notes),
	}
	if req.Status != nil {
		st := deliverydomain.Status(strings.ToUpper(strings.TrimSpace(*req.Status)))
		update.Status = &st
	}

	resp, err := s.deliverySvc.Update(c.Request.Context(), update)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteDelivery(c *gin.Context) {
	caller, ok := identity(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := s.deliverySvc.Delete(c.Request.Context(), id, deliverydomain.Actor{ID: caller.UserID, Role: caller.Role}); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func trimmed(v *string) *string {
	if v == nil {
		return nil
	}
	out := strings.TrimSpace(*v)
	return &out
}
