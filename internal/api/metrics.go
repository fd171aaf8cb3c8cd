package api

// registerMetricsRoute mounts the Prometheus handler on /metrics, outside
// the OpenAPI document.
func (s *Server) registerMetricsRoute() {
	if s.options.PrometheusHandler == nil {
		return
	}
	s.mux.Handle("GET /metrics", s.options.PrometheusHandler)
}
