package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	notificationdomain "github.com/smallbiznis/academy/internal/notification/domain"
	"github.com/smallbiznis/academy/pkg/db/pagination"
)

func (s *Server) ListNotifications(c *gin.Context) {
	caller, ok := identity(c)
	if !ok {
		return
	}

	var query struct {
		pagination.Pagination
		UnreadOnly string `form:"unread_only"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	unreadOnly, err := parseOptionalBool(query.UnreadOnly)
	if err != nil {
		AbortWithError(c, newValidationError("unread_only", "invalid_unread_only", "invalid unread_only"))
		return
	}

	req := notificationdomain.ListRequest{
		RecipientID: caller.UserID,
		Page:        query.Pagination,
	}
	if unreadOnly != nil {
		req.UnreadOnly = *unreadOnly
	}

	resp, err := s.notificationSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":         resp.Notifications,
		"page_info":    resp.PageInfo,
		"unread_count": resp.UnreadCount,
	})
}

func (s *Server) MarkNotificationRead(c *gin.Context) {
	caller, ok := identity(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := s.notificationSvc.MarkRead(c.Request.Context(), caller.UserID, id); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
