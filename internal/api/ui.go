package api

// registerUIRoute serves the dashboard at the site root and under /ui/.
func (s *Server) registerUIRoute() {
	if s.options.UIHandler == nil {
		return
	}
	s.mux.Handle("GET /{$}", s.options.UIHandler)
	s.mux.Handle("GET /ui/", s.options.UIHandler)
}
