package http

// registerV1Routes sets up the JSON API used by the dashboard page.
// Groups: /api/v1/map, /api/v1/status
func (s *Server) registerV1Routes() {
	v1 := s.engine.Group("/api/v1")
	v1.Use(apiVersionMiddleware())

	// Map endpoints - the server-side map widget
	mapGroup := v1.Group("/map")
	{
		mapGroup.GET("", s.handleV1Map)
		mapGroup.GET("/markers", s.handleV1Markers)
		mapGroup.POST("/markers/:id/click", s.handleV1MarkerClick)
	}

	// Status endpoints - poll loop freshness and the applied snapshot
	v1.GET("/status", s.handleV1Status)
	v1.GET("/summary", s.handleV1Summary)
	v1.GET("/bins", s.handleV1Bins)
}
