package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"netgdp/internal/cache"
	"netgdp/internal/models"
	"netgdp/internal/period"
	"netgdp/logger"
)

func errorJSON(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}

func (s *Server) snapshot(c *gin.Context) (models.CompositeSnapshot, error) {
	return cache.Remember(c.Request.Context(), s.responseCache(s.cfg.SnapshotTTL), cache.Key("response", "gdp"), s.cfg.SnapshotTTL, s.composite.ComputeSnapshot)
}

// responseCache disables caching when ttl is zero.
func (s *Server) responseCache(ttl time.Duration) *cache.Cache {
	if ttl <= 0 {
		return nil
	}
	return s.cache
}

// handleHealth stays 200 while warmer tasks fail; failed components are
// served degraded rather than taking the service down.
func (s *Server) handleHealth(c *gin.Context) {
	body := gin.H{"status": "ok"}
	if s.refresh != nil {
		last, failures := s.refresh.Status()
		var lastRun interface{}
		if !last.IsZero() {
			lastRun = last.UTC().Format(time.RFC3339)
		}
		body["refresh"] = gin.H{"last_run": lastRun, "failures": failures}
	}
	c.JSON(http.StatusOK, body)
}

func (s *Server) handleSnapshot(c *gin.Context) {
	snap, err := s.snapshot(c)
	if err != nil {
		s.log.WithComponent("api").WithError(err).WithField("request_id", c.GetString(requestIDKey)).Error("failed to compute gdp")
		errorJSON(c, http.StatusInternalServerError, "Failed to compute GDP")
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (s *Server) handleHistorical(c *gin.Context) {
	token := c.Param("period")
	if _, err := period.Resolve(token, time.Now()); err != nil {
		errorJSON(c, http.StatusBadRequest, "Invalid period")
		return
	}

	ttl := s.cfg.SeriesTTL
	series, err := cache.Remember(c.Request.Context(), s.responseCache(ttl), cache.Key("response", "gdp", "historical", token), ttl, func(ctx context.Context) (models.CompositeSeries, error) {
		return s.composite.ComputeSeries(ctx, token)
	})
	switch {
	case errors.Is(err, period.ErrInvalidPeriod):
		errorJSON(c, http.StatusBadRequest, "Invalid period")
	case err != nil:
		s.log.WithComponent("api").WithError(err).WithFields(logger.Fields{
			"period":     token,
			"request_id": c.GetString(requestIDKey),
		}).Error("failed to compute historical gdp")
		errorJSON(c, http.StatusInternalServerError, "Failed to compute historical GDP")
	default:
		c.JSON(http.StatusOK, series)
	}
}

func (s *Server) handleTopProtocols(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"protocols": s.views.TopProtocols(c.Request.Context())})
}

func (s *Server) handleCategories(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"categories": s.views.CategoryDistribution(c.Request.Context())})
}

func (s *Server) handleTopYields(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"pools": s.views.TopYields(c.Request.Context())})
}

func (s *Server) handleStablecoins(c *gin.Context) {
	c.JSON(http.StatusOK, s.views.Stablecoins(c.Request.Context()))
}

func (s *Server) handleMethodology(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"components": s.views.Methodology()})
}

// limitParam reads ?limit=N, defaulting to 0 (everything).
func limitParam(c *gin.Context) int {
	n, err := strconv.Atoi(c.Query("limit"))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func (s *Server) handleEvents(c *gin.Context) {
	if s.events == nil {
		c.JSON(http.StatusOK, gin.H{"events": []gin.H{}})
		return
	}
	recent := s.events.Recent(limitParam(c))
	payload := make([]gin.H, 0, len(recent))
	for _, m := range recent {
		payload = append(payload, gin.H{
			"timestamp": m.Timestamp.Format(time.RFC3339Nano),
			"component": m.Component,
			"name":      m.Name,
			"value":     m.Value,
			"type":      m.Type,
			"fields":    m.Fields,
		})
	}
	c.JSON(http.StatusOK, gin.H{"events": payload})
}

func (s *Server) handleLogs(c *gin.Context) {
	records := s.logStore.snapshot()
	if n := limitParam(c); n > 0 && n < len(records) {
		records = records[len(records)-n:]
	}
	c.JSON(http.StatusOK, gin.H{"logs": records})
}

func (s *Server) handleResources(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"resources": s.sampler.snapshot()})
}
