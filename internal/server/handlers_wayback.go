package server

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/ozayn/signalmap/internal/db"
	"github.com/ozayn/signalmap/internal/jobs"
	"github.com/ozayn/signalmap/internal/wayback"
)

// jobResponse is a job row together with its merged result series.
type jobResponse struct {
	Job     *db.Job       `json:"job"`
	Results []jobs.Result `json:"results"`
	Notes   string        `json:"notes"`
}

// handleCreateJob queues an archaeology job and launches a worker for it.
func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.errorFor(w, &ErrPersistenceDisabled{})
		return
	}

	platform := r.PathValue("platform")
	profile, ok := wayback.ProfileFor(platform)
	if !ok {
		s.errorFor(w, &ErrUnsupportedPlatform{Platform: platform})
		return
	}

	var req CreateJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := req.Validate(); err != nil {
		s.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	handle, canonicalURL, err := profile.Canonicalize(req.Handle)
	if err != nil {
		s.errorFor(w, err)
		return
	}

	maxSnapshots := req.MaxSnapshots
	if maxSnapshots <= 0 {
		maxSnapshots = s.cfg.MaxSnapshots
	}

	job := &db.Job{
		Platform:     profile.Name,
		Handle:       handle,
		CanonicalURL: canonicalURL,
		FromYear:     req.FromYear,
		ToYear:       req.ToYear,
		FromDate:     req.FromDate,
		ToDate:       req.ToDate,
		MaxSnapshots: maxSnapshots,
	}
	id, err := s.store.CreateJob(r.Context(), job)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "failed to create job")
		return
	}

	// The worker outlives the request; it reports through the job row.
	go s.runner.Run(context.Background(), id)

	s.jsonResponse(w, http.StatusAccepted, map[string]any{
		"id":       id,
		"platform": profile.Name,
		"handle":   handle,
		"status":   db.JobStatusQueued,
	})
}

// handleGetJob returns a job's status, counters and merged result series.
func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.errorFor(w, &ErrPersistenceDisabled{})
		return
	}
	jobID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid job ID")
		return
	}

	job, err := s.store.GetJob(r.Context(), jobID)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "failed to get job")
		return
	}
	if job == nil {
		s.errorFor(w, &ErrJobNotFound{JobID: jobID})
		return
	}

	snaps, err := s.store.ListJobSnapshots(r.Context(), jobID)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "failed to list job snapshots")
		return
	}
	cacheRows, err := s.store.ListCacheEntries(r.Context(), job.Platform, job.CanonicalURL)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "failed to list cache history")
		return
	}

	s.jsonResponse(w, http.StatusOK, jobResponse{
		Job:     job,
		Results: jobs.MergeResults(snaps, cacheRows),
		Notes:   jobs.DisclaimerNote,
	})
}

// handleListJobs returns recent jobs, newest first, optionally filtered by
// platform and handle.
func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.errorFor(w, &ErrPersistenceDisabled{})
		return
	}
	limit := parseQueryInt(r, "limit", 50, 200)
	q := r.URL.Query()

	list, err := s.store.ListJobs(r.Context(), q.Get("platform"), q.Get("handle"), limit)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "failed to list jobs")
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"jobs":  list,
		"count": len(list),
	})
}

// handleCancelJob requests cancellation; the worker stops at its next poll.
func (s *Server) handleCancelJob(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.errorFor(w, &ErrPersistenceDisabled{})
		return
	}
	jobID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid job ID")
		return
	}

	canceled, err := s.store.CancelJob(r.Context(), jobID)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "failed to cancel job")
		return
	}
	if !canceled {
		job, err := s.store.GetJob(r.Context(), jobID)
		if err != nil {
			s.errorResponse(w, http.StatusInternalServerError, "failed to get job")
			return
		}
		if job == nil {
			s.errorFor(w, &ErrJobNotFound{JobID: jobID})
			return
		}
		s.errorFor(w, &ErrJobFinished{JobID: jobID, Status: job.Status})
		return
	}

	s.jsonResponse(w, http.StatusOK, map[string]any{
		"id":     jobID,
		"status": db.JobStatusCanceled,
	})
}

// handleDeleteJob removes a job and its snapshot rows.
func (s *Server) handleDeleteJob(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.errorFor(w, &ErrPersistenceDisabled{})
		return
	}
	jobID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid job ID")
		return
	}

	job, err := s.store.GetJob(r.Context(), jobID)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "failed to get job")
		return
	}
	if job == nil {
		s.errorFor(w, &ErrJobNotFound{JobID: jobID})
		return
	}
	if err := s.store.DeleteJob(r.Context(), jobID); err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "failed to delete job")
		return
	}

	s.jsonResponse(w, http.StatusOK, map[string]any{
		"id":     jobID,
		"status": "deleted",
	})
}

// handleLookup resolves a profile's archive history synchronously,
// cache-first, capped to a small sample.
func (s *Server) handleLookup(w http.ResponseWriter, r *http.Request) {
	platform := r.PathValue("platform")
	profile, ok := wayback.ProfileFor(platform)
	if !ok {
		s.errorFor(w, &ErrUnsupportedPlatform{Platform: platform})
		return
	}

	handle := r.URL.Query().Get("handle")
	if handle == "" {
		s.errorResponse(w, http.StatusBadRequest, "missing handle parameter")
		return
	}

	opts := jobs.LookupOptions{
		FromYear:     parseQueryInt(r, "from_year", 0, 2100),
		ToYear:       parseQueryInt(r, "to_year", 0, 2100),
		MaxSnapshots: parseQueryInt(r, "max_snapshots", jobs.DefaultMaxSnapshots, 50),
	}

	var store jobs.Store
	if s.store != nil {
		store = s.store
	}
	result, err := jobs.Lookup(r.Context(), store, s.client, s.fetcher, profile, handle, opts)
	if err != nil {
		s.errorFor(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, result)
}
