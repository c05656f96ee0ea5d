package handlers

import (
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/irfndi/forecast-ai-go/internal/middleware"
)

// MaxUploadBytes bounds an uploaded file.
const MaxUploadBytes = 50 << 20

const jobNotFound = "Job not found"

// JobHandler serves upload and job management endpoints.
type JobHandler struct {
	jobs JobService
}

// NewJobHandler creates a job handler.
func NewJobHandler(jobs JobService) *JobHandler {
	return &JobHandler{jobs: jobs}
}

// Upload accepts a multipart "file" field holding a CSV or XLSX export.
func (h *JobHandler) Upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxUploadBytes)

	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "A file must be uploaded in the 'file' field"})
		return
	}
	f, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unable to read uploaded file"})
		return
	}
	defer func() { _ = f.Close() }()

	data, err := io.ReadAll(f)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unable to read uploaded file"})
		return
	}

	resp, err := h.jobs.Upload(c.Request.Context(), header.Filename, data)
	if err != nil {
		respondError(c, err, jobNotFound)
		return
	}
	middleware.AddSpanAttribute(c, "job.id", resp.JobID)
	c.JSON(http.StatusOK, resp)
}

// ListJobs returns recent jobs; limit defaults to 10 and is capped at 50.
func (h *JobHandler) ListJobs(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}

	jobs, err := h.jobs.RecentJobs(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err, jobNotFound)
		return
	}
	c.JSON(http.StatusOK, gin.H{"jobs": jobs, "count": len(jobs)})
}

// GetJob returns the job metadata without its forecast.
func (h *JobHandler) GetJob(c *gin.Context) {
	job, err := h.jobs.Job(c.Request.Context(), c.Param("job_id"))
	if err != nil {
		respondError(c, err, jobNotFound)
		return
	}
	c.JSON(http.StatusOK, job)
}

// GetJobFull returns the job together with its latest forecast.
func (h *JobHandler) GetJobFull(c *gin.Context) {
	full, err := h.jobs.JobWithForecast(c.Request.Context(), c.Param("job_id"))
	if err != nil {
		respondError(c, err, jobNotFound)
		return
	}
	c.JSON(http.StatusOK, full)
}

// DeleteJob removes the job with its forecasts and insights.
func (h *JobHandler) DeleteJob(c *gin.Context) {
	jobID := c.Param("job_id")
	if err := h.jobs.DeleteJob(c.Request.Context(), jobID); err != nil {
		respondError(c, err, jobNotFound)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "message": fmt.Sprintf("Job %s deleted", jobID)})
}
