package server

func (s *Server) initRoutes() {
	s.RegisterRouteHandler("POST "+RouteToken, ChainMiddleware(s.TokenHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("OPTIONS "+RouteToken, ChainMiddleware(s.PreflightHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteHealth, ChainMiddleware(s.HealthHandler(), s.RecoverMiddleware))

	if s.metrics != nil {
		s.RegisterRouteHandler("GET "+RouteMetrics, s.metrics.Handler())
	}
}
