package server

// Route path constants
const (
	RouteToken   = "/connect/token"
	RouteHealth  = "/healthz"
	RouteMetrics = "/metrics"
)
