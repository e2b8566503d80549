package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	paymentdomain "github.com/smallbiznis/academy/internal/payment/domain"
)

func (s *Server) ListMyPayments(c *gin.Context) {
	caller, ok := identity(c)
	if !ok {
		return
	}

	resp, err := s.paymentSvc.ListForStudent(c.Request.Context(), caller.UserID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetPayment(c *gin.Context) {
	caller, ok := identity(c)
	if !ok {
		return
	}
	orderID := strings.TrimSpace(c.Param("orderId"))

	resp, err := s.paymentSvc.GetByOrderID(c.Request.Context(), orderID, paymentdomain.Actor{ID: caller.UserID, Role: caller.Role})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// VerifyPayment lets an admin settle a payment by hand after checking the
// gateway dashboard.
func (s *Server) VerifyPayment(c *gin.Context) {
	caller, ok := identity(c)
	if !ok {
		return
	}
	orderID := strings.TrimSpace(c.Param("orderId"))

	resp, err := s.paymentSvc.Verify(c.Request.Context(), orderID, paymentdomain.Actor{ID: caller.UserID, Role: caller.Role})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
