package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	enrollmentdomain "github.com/smallbiznis/academy/internal/enrollment/domain"
	paymentdomain "github.com/smallbiznis/academy/internal/payment/domain"
)

type purchaseCourseRequest struct {
	RequiresDelivery bool `json:"requires_delivery"`
}

// PurchaseCourse starts an online payment and returns the gateway checkout form.
func (s *Server) PurchaseCourse(c *gin.Context) {
	caller, ok := identity(c)
	if !ok {
		return
	}
	courseID, ok := pathID(c, "courseId")
	if !ok {
		return
	}

	var req purchaseCourseRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, bindError(err))
			return
		}
	}

	resp, err := s.paymentSvc.Purchase(c.Request.Context(), paymentdomain.PurchaseRequest{
		StudentID:        caller.UserID,
		CourseID:         courseID,
		RequiresDelivery: req.RequiresDelivery,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type requestEnrollmentRequest struct {
	Method           string `json:"method" binding:"required,oneof=manual online"`
	RequiresDelivery bool   `json:"requires_delivery"`
}

// RequestEnrollment records a manual (bank transfer) enrollment request, or
// reuses a pending one.
func (s *Server) RequestEnrollment(c *gin.Context) {
	caller, ok := identity(c)
	if !ok {
		return
	}
	courseID, ok := pathID(c, "courseId")
	if !ok {
		return
	}

	var req requestEnrollmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	resp, err := s.enrollmentSvc.Create(c.Request.Context(), enrollmentdomain.CreateRequest{
		StudentID:        caller.UserID,
		CourseID:         courseID,
		Method:           enrollmentdomain.PaymentMethod(req.Method),
		RequiresDelivery: req.RequiresDelivery,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	status := http.StatusCreated
	if resp.Reused {
		status = http.StatusOK
	}
	c.JSON(status, gin.H{"data": resp.Enrollment, "reused": resp.Reused})
}

func (s *Server) ListMyEnrollments(c *gin.Context) {
	caller, ok := identity(c)
	if !ok {
		return
	}

	resp, err := s.enrollmentSvc.ListForStudent(c.Request.Context(), caller.UserID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ApproveEnrollment(c *gin.Context) {
	caller, ok := identity(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	resp, err := s.enrollmentSvc.Approve(c.Request.Context(), id, enrollmentdomain.Actor{ID: caller.UserID, Role: caller.Role})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) RejectEnrollment(c *gin.Context) {
	caller, ok := identity(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := s.enrollmentSvc.Reject(c.Request.Context(), id, enrollmentdomain.Actor{ID: caller.UserID, Role: caller.Role}); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) ListPendingEnrollments(c *gin.Context) {
	caller, ok := identity(c)
	if !ok {
		return
	}
	courseID, ok := pathID(c, "courseId")
	if !ok {
		return
	}

	resp, err := s.enrollmentSvc.ListPending(c.Request.Context(), courseID, enrollmentdomain.Actor{ID: caller.UserID, Role: caller.Role})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) RecordVideoProgress(c *gin.Context) {
	caller, ok := identity(c)
	if !ok {
		return
	}
	enrollmentID, ok := pathID(c, "id")
	if !ok {
		return
	}
	videoID, ok := pathID(c, "videoId")
	if !ok {
		return
	}

	resp, err := s.enrollmentSvc.RecordProgress(c.Request.Context(), enrollmentdomain.ProgressRequest{
		EnrollmentID: enrollmentID,
		VideoID:      videoID,
		Actor:        enrollmentdomain.Actor{ID: caller.UserID, Role: caller.Role},
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
