package httpapi

import "net/http"

func registerSystemRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /healthz", handler.Healthz)
}

func registerFixtureRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /v1/fixtures", handler.ListFixtures)
	mux.HandleFunc("GET /v1/fixtures/recent", handler.ListRecentFixtures)
	mux.HandleFunc("GET /v1/fixtures/{fixtureID}/odds", handler.GetFixtureOdds)
	mux.HandleFunc("GET /v1/fixtures/{fixtureID}/flash", handler.GetFixtureFlash)
	mux.HandleFunc("GET /v1/fixtures/{fixtureID}/movement", handler.GetFixtureMovement)
	mux.HandleFunc("POST /v1/fixtures/{fixtureID}/watch", handler.WatchFixture)
	mux.HandleFunc("DELETE /v1/fixtures/{fixtureID}/watch", handler.UnwatchFixture)
}

func registerMonitorRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("POST /v1/monitor/filter", handler.ApplyMonitorFilter)
	mux.HandleFunc("DELETE /v1/monitor/filter", handler.ClearMonitorFilter)
}
