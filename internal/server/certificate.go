package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	certificatedomain "github.com/smallbiznis/academy/internal/certificate/domain"
)

// CheckCourseCompletion counts credited videos for the caller's approved
// enrollment and issues the certificate once every video is done.
func (s *Server) CheckCourseCompletion(c *gin.Context) {
	caller, ok := identity(c)
	if !ok {
		return
	}
	courseID, ok := pathID(c, "courseId")
	if !ok {
		return
	}

	resp, err := s.certificateSvc.CheckCourseCompletion(c.Request.Context(), courseID, certificatedomain.Actor{ID: caller.UserID, Role: caller.Role})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	body := gin.H{"data": resp}
	if resp.AlreadyIssued {
		body["message"] = "certificate already exists"
	}
	c.JSON(http.StatusOK, body)
}

func (s *Server) ListCertificates(c *gin.Context) {
	caller, ok := identity(c)
	if !ok {
		return
	}

	resp, err := s.certificateSvc.List(c.Request.Context(), caller.UserID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetCertificate(c *gin.Context) {
	caller, ok := identity(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	resp, err := s.certificateSvc.Get(c.Request.Context(), id, certificatedomain.Actor{ID: caller.UserID, Role: caller.Role})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// DownloadCertificate redirects to a short-lived signed URL. Clients that ask
// for JSON get the URL in the body instead.
func (s *Server) DownloadCertificate(c *gin.Context) {
	caller, ok := identity(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	resp, err := s.certificateSvc.GetDownload(c.Request.Context(), id, certificatedomain.Actor{ID: caller.UserID, Role: caller.Role})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if strings.HasPrefix(c.GetHeader("Accept"), gin.MIMEJSON) {
		c.JSON(http.StatusOK, gin.H{"data": resp})
		return
	}
	c.Redirect(http.StatusFound, resp.URL)
}
