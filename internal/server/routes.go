package server

import (
	"net/http"
)

func (s *Server) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/health", s.handleHealth)

	// Document, as read by the timeline front-end
	mux.HandleFunc("GET /data/document.json", s.handleDocument)

	// Releases
	mux.HandleFunc("GET /api/v1/releases", s.handleListReleases)
	mux.HandleFunc("GET /api/v1/releases/latest", s.handleLatestRelease)
	mux.HandleFunc("GET /api/v1/releases/{version}", s.handleGetRelease)
	mux.HandleFunc("GET /api/v1/releases/{version}/tickets", s.handleListTickets)

	// Sync
	mux.HandleFunc("POST /api/v1/sync", s.handleSync)
	mux.HandleFunc("POST /api/v1/preview", s.handlePreview)
	mux.HandleFunc("GET /api/v1/sync/runs", s.handleListSyncRuns)

	mux.HandleFunc("GET /api/v1/stats", s.handleStats)

	if s.static != nil {
		mux.Handle("GET /", http.FileServer(http.FS(s.static)))
	}
}
