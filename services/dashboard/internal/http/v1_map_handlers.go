package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// handleV1Map returns the map construction options
// GET /api/v1/map
func (s *Server) handleV1Map(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{
			"center":      s.session.Canvas.Center(),
			"zoom":        s.session.Canvas.Zoom(),
			"markers":     len(s.session.Canvas.Markers()),
			"open_popups": s.session.Canvas.OpenPopups(),
		},
	})
}

// handleV1Markers returns the markers attached by the last applied cycle
// GET /api/v1/map/markers
func (s *Server) handleV1Markers(c *gin.Context) {
	markers := s.session.Canvas.Markers()
	st := s.session.Controller.Status()

	c.JSON(http.StatusOK, gin.H{
		"data": markers,
		"meta": gin.H{
			"count":        len(markers),
			"last_success": st.LastSuccess,
			"stale":        st.Stale,
		},
	})
}

// handleV1MarkerClick fires a marker's click handler and returns the popup it opened
// POST /api/v1/map/markers/:id/click
func (s *Server) handleV1MarkerClick(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "marker id is required"})
		return
	}

	popup, ok := s.session.Canvas.Click(id)
	if !ok {
		// Either the marker belongs to a replaced cycle or it has no popup.
		c.JSON(http.StatusNotFound, gin.H{"error": "marker not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{
			"id":    id,
			"popup": string(popup.Content()),
		},
	})
}

// handleV1Status returns poll loop freshness
// GET /api/v1/status
func (s *Server) handleV1Status(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"data": s.session.Controller.Status(),
		"meta": gin.H{
			"variant":       s.cfg.Variant,
			"source":        s.cfg.BinsURL(),
			"poll_interval": s.cfg.PollInterval.String(),
		},
	})
}

// handleV1Summary returns the headline cards for the last applied snapshot
// GET /api/v1/summary
func (s *Server) handleV1Summary(c *gin.Context) {
	cards := summarize(s.session.Controller.Snapshot())
	c.JSON(http.StatusOK, gin.H{
		"data": cards,
		"meta": gin.H{"count": len(cards)},
	})
}

// handleV1Bins returns the records of the last applied snapshot
// GET /api/v1/bins
func (s *Server) handleV1Bins(c *gin.Context) {
	snap := s.session.Controller.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"data": snap.Bins,
		"meta": gin.H{
			"count":    len(snap.Bins),
			"counters": snap.Counters,
		},
	})
}
