package handlers

import (
	"net/http"

	"github.com/wonny/rsqm/internal/scheduler"
)

// StatsProvider exposes scheduler job statistics
type StatsProvider interface {
	GetJobStats() map[string]scheduler.JobStats
}

// JobsHandler reports scheduled scan status
type JobsHandler struct {
	stats StatsProvider
}

// NewJobsHandler creates a new jobs handler
func NewJobsHandler(stats StatsProvider) *JobsHandler {
	return &JobsHandler{stats: stats}
}

// List returns statistics for every scheduled job
// GET /api/jobs
func (h *JobsHandler) List(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.stats.GetJobStats())
}
