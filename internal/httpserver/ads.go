package httpserver

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/pcarling/advault/internal/adpipe"
	"github.com/pcarling/advault/internal/storage"
	"github.com/pcarling/advault/internal/types"
	"github.com/pcarling/advault/internal/xurl"
)

func (s *Server) processAd(c *gin.Context) {
	var req struct {
		URL string `json:"url"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.URL) == "" {
		respondError(c, http.StatusBadRequest, "URL is required")
		return
	}
	url := strings.TrimSpace(req.URL)
	if _, err := xurl.Parse(url); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid X.com/Twitter URL")
		return
	}

	result, err := s.ads.ProcessAd(c.Request.Context(), url)
	if err != nil {
		var stageErr *adpipe.StageError
		if errors.As(err, &stageErr) {
			s.log.Warn("ad processing failed",
				zap.String("url", url),
				zap.String("stage", string(stageErr.Stage)),
				zap.Error(stageErr.Err))
		}
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":           true,
		"id":                result.ID,
		"title":             result.Title,
		"creator":           result.Creator,
		"transcript_length": result.TranscriptLength,
		"shots_count":       result.ShotsCount,
	})
}

func (s *Server) processAdsBatch(c *gin.Context) {
	var req struct {
		URLs []string `json:"urls"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || len(req.URLs) == 0 {
		respondError(c, http.StatusBadRequest, "URLs array is required")
		return
	}

	hasValid := false
	for _, u := range req.URLs {
		if strings.TrimSpace(u) != "" {
			hasValid = true
			break
		}
	}
	if !hasValid {
		respondError(c, http.StatusBadRequest, "No valid URLs provided")
		return
	}

	results := s.ads.ProcessBatch(c.Request.Context(), req.URLs)

	added := 0
	for _, r := range results {
		if r.Success {
			added++
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"results": results,
		"added":   added,
		"total":   len(results),
	})
}

// adReader returns the backend's read/update surface, or nil when the
// active backend only supports appends.
func (s *Server) adReader(c *gin.Context) storage.AdReader {
	reader, ok := s.backend.(storage.AdReader)
	if !ok {
		respondError(c, http.StatusNotImplemented, "Ads browsing requires the sqlite storage backend")
		return nil
	}
	return reader
}

func (s *Server) listAds(c *gin.Context) {
	reader := s.adReader(c)
	if reader == nil {
		return
	}
	ads, err := reader.ListAds()
	if err != nil {
		respondError(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, ads)
}

func (s *Server) getAd(c *gin.Context) {
	reader := s.adReader(c)
	if reader == nil {
		return
	}
	ad, err := reader.GetAd(c.Param("id"))
	if errors.Is(err, storage.ErrNotFound) {
		respondError(c, http.StatusNotFound, "Ad not found")
		return
	}
	if err != nil {
		respondError(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, ad)
}

func (s *Server) updateAd(c *gin.Context) {
	reader := s.adReader(c)
	if reader == nil {
		return
	}
	var ad types.Ad
	if err := c.ShouldBindJSON(&ad); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	ad.ID = c.Param("id")

	err := reader.UpdateAd(&ad)
	if errors.Is(err, storage.ErrNotFound) {
		respondError(c, http.StatusNotFound, "Ad not found")
		return
	}
	if err != nil {
		respondError(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) deleteAd(c *gin.Context) {
	var req struct {
		ID string `json:"id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.ID == "" {
		respondError(c, http.StatusBadRequest, "ID is required")
		return
	}

	videoSrc, err := s.backend.DeleteAd(req.ID)
	if errors.Is(err, storage.ErrNotFound) {
		respondError(c, http.StatusNotFound, "Ad not found")
		return
	}
	if err != nil {
		respondError(c, http.StatusInternalServerError, err.Error())
		return
	}

	if err := s.media.Remove(videoSrc); err != nil {
		s.log.Warn("failed to remove ad video", zap.String("path", videoSrc), zap.Error(err))
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
