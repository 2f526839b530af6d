package api

func (s *APIServer) setupRoutes() {
	public := chain(s.requestIDMiddleware, s.headersMiddleware, s.rateLimiter.Middleware)
	withAuth := chain(s.requestIDMiddleware, s.headersMiddleware, s.rateLimiter.Middleware, s.bearerTokenAuthMiddleware)

	s.router.Handle("GET /health", public(s.handleHealth()))
	s.router.Handle("GET /v1/environments", withAuth(s.handleEnvironments()))
	s.router.Handle("GET /v1/status/{env}", withAuth(s.handleStatus()))
	s.router.Handle("POST /v1/deploy/{env}", withAuth(s.handleDeploy()))
	s.router.Handle("POST /v1/rollback/{env}", withAuth(s.handleRollback()))
	s.router.Handle("GET /v1/history/{env}", withAuth(s.handleHistory()))
	if s.metrics != nil {
		s.router.Handle("GET /metrics", s.metrics)
	}
}
