package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/sir-timeline/timeline/internal/model"
	"github.com/sir-timeline/timeline/internal/pipeline"
	"github.com/sir-timeline/timeline/internal/version"
)

const maxBodyBytes = 1 << 20

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if _, err := s.releases.ReadAll(); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy", "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleDocument(w http.ResponseWriter, r *http.Request) {
	data, err := s.releases.Raw()
	if err != nil {
		s.logger.Error("read document", "error", err)
		writeError(w, statusFor(err), err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = w.Write(data)
}

// --- Releases ---

func (s *Server) handleListReleases(w http.ResponseWriter, r *http.Request) {
	coll, err := s.releases.ReadAll()
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	year := r.URL.Query().Get("year")
	if year == "" {
		writeJSON(w, http.StatusOK, coll.Data)
		return
	}
	y, err := strconv.Atoi(year)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("year %q is not a number", year))
		return
	}
	out := []model.ReleaseRecord{}
	for _, rec := range coll.Data {
		if rec.Year == y {
			out = append(out, rec)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleLatestRelease(w http.ResponseWriter, r *http.Request) {
	rec, err := s.releases.Latest()
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	if rec == nil {
		writeError(w, http.StatusNotFound, errors.New("no releases stored"))
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleGetRelease(w http.ResponseWriter, r *http.Request) {
	v := version.Normalize(r.PathValue("version"))
	rec, ok, err := s.releases.Get(v)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("release %q not found", v))
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

type ticketView struct {
	model.TicketRecord
	URL string `json:"url,omitempty"`
}

// handleListTickets returns the tickets journaled by the last sync of a
// version, linked to the tracker when a link builder is configured.
func (s *Server) handleListTickets(w http.ResponseWriter, r *http.Request) {
	out := []ticketView{}
	if s.runs == nil {
		writeJSON(w, http.StatusOK, out)
		return
	}
	v := version.Normalize(r.PathValue("version"))
	records, err := s.runs.ListTickets(r.Context(), v)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	for _, rec := range records {
		tv := ticketView{TicketRecord: rec}
		if s.workItemURL != nil {
			tv.URL = s.workItemURL(rec.ID)
		}
		out = append(out, tv)
	}
	writeJSON(w, http.StatusOK, out)
}

// --- Sync ---

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	if s.syncer == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("sync is not configured"))
		return
	}

	var req pipeline.Request
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	res, err := s.syncer.Sync(r.Context(), req)
	if err != nil {
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			s.logger.Error("sync", "version", req.Version, "status", status, "error", err)
		}
		writeError(w, status, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	if s.syncer == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("sync is not configured"))
		return
	}

	var req struct {
		Version string `json:"version"`
	}
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	p, err := s.syncer.Preview(r.Context(), req.Version)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleListSyncRuns(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	if limit <= 0 {
		limit = 50
	}
	if s.runs == nil {
		writeJSON(w, http.StatusOK, []model.SyncRun{})
		return
	}

	v := q.Get("version")
	if v != "" {
		v = version.Normalize(v)
	}
	runs, err := s.runs.ListSyncRuns(r.Context(), v, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

// --- Stats ---

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	year := s.now().Year()
	if y := q.Get("year"); y != "" {
		var err error
		if year, err = strconv.Atoi(y); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("year %q is not a number", y))
			return
		}
	}
	months, err := parseMonths(q.Get("months"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	coll, err := s.releases.ReadAll()
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	summary, err := s.counter.Monthly(coll, year, months)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// parseMonths reads a comma separated month list such as "5,6,7".
func parseMonths(s string) ([]int, error) {
	var out []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		m, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("month %q is not a number", part)
		}
		out = append(out, m)
	}
	return out, nil
}

// --- Helpers ---

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("decode request body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
