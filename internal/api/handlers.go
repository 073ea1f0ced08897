package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/sha-claims-fraud-engine/internal/domain"
	"github.com/sha-claims-fraud-engine/internal/service"
)

// maxUploadBytes bounds one claim document.
const maxUploadBytes = 20 << 20

// handleUpload accepts one claim document as multipart form field "file",
// extracts and validates it, and persists it when valid. Invalid documents
// come back with every collected error and the partial extraction so the
// submitter can correct the form in one pass.
func (s *Server) handleUpload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "multipart field 'file' is required"})
		return
	}
	if fileHeader.Size > maxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "document exceeds upload limit"})
		return
	}

	format, err := service.DetectFormat(fileHeader.Filename)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "unsupported file type; expected .pdf, .xlsx, .xls, .csv, or .docx",
		})
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read uploaded file"})
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read uploaded file"})
		return
	}

	extracted, valid, validationErrors := s.intake.ExtractAndValidate(data, format)
	if extracted == nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"valid":  false,
			"errors": validationErrors,
		})
		return
	}
	if !valid {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"valid":     false,
			"errors":    validationErrors,
			"extracted": extracted,
		})
		return
	}

	claim, err := s.intake.Register(c.Request.Context(), extracted)
	if err != nil {
		s.log.WithFields(logrus.Fields{"error": err.Error()}).Error("Failed to register claim")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to persist claim"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"valid": true,
		"claim": claim,
	})
}

// handleAnalyze runs the full detection pipeline over one persisted claim.
func (s *Server) handleAnalyze(c *gin.Context) {
	id := c.Param("id")

	claim, err := s.claims.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "claim not found"})
			return
		}
		s.log.WithFields(logrus.Fields{
			"claim_id": id,
			"error":    err.Error(),
		}).Error("Failed to load claim")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load claim"})
		return
	}

	analysis, err := s.analyzer.Analyze(c.Request.Context(), claim)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"claim_id": id,
			"error":    err.Error(),
		}).Error("Claim analysis failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "analysis failed"})
		return
	}

	s.hub.Publish(claim, analysis)

	c.JSON(http.StatusOK, analysis)
}

func (s *Server) handleGetClaim(c *gin.Context) {
	id := c.Param("id")

	claim, err := s.claims.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "claim not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load claim"})
		return
	}

	c.JSON(http.StatusOK, claim)
}

func (s *Server) handleListAlerts(c *gin.Context) {
	status := c.Query("status")

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return
		}
		limit = n
	}

	alerts, err := s.alerts.ListAlerts(c.Request.Context(), status, limit)
	if err != nil {
		s.log.WithFields(logrus.Fields{"error": err.Error()}).Error("Failed to list alerts")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list alerts"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"alerts": alerts,
		"count":  len(alerts),
	})
}

func (s *Server) handleAlertStream(c *gin.Context) {
	s.hub.Subscribe(c.Writer, c.Request)
}
