package api

import (
	"context"
	"errors"
	"log"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tadeyemo32/outreach-batcher/batching"
	"github.com/tadeyemo32/outreach-batcher/models"
	"github.com/tadeyemo32/outreach-batcher/services"
)

// Personalizer runs the sheet personalization flow.
type Personalizer interface {
	Run(ctx context.Context, req models.PersonalizedSheetRequest, owner string) (models.PersonalizedSheetResponse, error)
}

// ExportHistory lists recorded exports.
type ExportHistory interface {
	Recent(ctx context.Context, projectID string, limit int) ([]models.ExportRun, error)
}

// Server carries the dependencies shared by the handlers.
type Server struct {
	Projects     services.ProjectStore
	Personalizer Personalizer
	Exports      ExportHistory
	LLM          *services.LLMRouter
	Tiers        batching.TierTable
	// Credentials maps env-style key names to configured values, reported
	// masked by GET /api/keys.
	Credentials map[string]string
	APIKey      string
	ExportDir   string
	Now         func() time.Time
}

func (s *Server) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// respondError maps domain errors to HTTP status codes.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrProjectNotFound):
		status = http.StatusNotFound
	case errors.Is(err, batching.ErrMissingColumns),
		errors.Is(err, batching.ErrInvalidOptions),
		errors.Is(err, services.ErrUnmappedColumns),
		errors.Is(err, services.ErrSheetUnavailable),
		errors.Is(err, services.ErrEmptySheet):
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		log.Printf("[API] %s %s: %v", c.Request.Method, c.FullPath(), err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// batchHandler runs the batching engine over inline leads. Settings come
// from the request, falling back to the referenced project's.
func (s *Server) batchHandler(c *gin.Context) {
	var req models.BatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request."})
		return
	}

	var opts batching.Options
	if req.ProjectID != "" {
		if s.Projects == nil {
			respondError(c, services.ErrProjectNotFound)
			return
		}
		project, err := s.Projects.GetProject(c.Request.Context(), req.ProjectID)
		if err != nil {
			respondError(c, err)
			return
		}
		opts = project.BatchOptions(time.Time{})
	}
	if req.Mailboxes > 0 {
		opts.Mailboxes = req.Mailboxes
	}
	if req.EmailsPerMailbox > 0 {
		opts.EmailsPerMailbox = req.EmailsPerMailbox
	}
	if req.BatchDurationDays > 0 {
		opts.BatchDurationDays = req.BatchDurationDays
	}
	start, err := batching.ParseStartDate(req.StartDate, s.now())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	opts.StartDate = start
	opts.Tiers = s.Tiers

	leads := make([]batching.Lead, len(req.Leads))
	for i, in := range req.Leads {
		leads[i] = in.ToLead()
	}
	records, err := batching.Run(leads, opts)
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]models.BatchedLead, len(records))
	for i, rec := range records {
		out[i] = models.BatchedLead{
			LeadInput: req.Leads[i],
			Status:    string(rec.Status),
			Reason:    rec.Reason,
			SendDate:  rec.SendDateString(),
		}
		if rec.Batch != nil {
			out[i].BatchNumber = rec.Batch.Number
			out[i].BatchName = rec.Batch.Name
		}
	}
	summary := batching.Summarize(records)
	log.Printf("[Batch] %d leads: %d batched, %d future, %d unbatchable", summary.Total, summary.Batched, summary.Future, summary.Unbatchable)

	c.JSON(http.StatusOK, models.BatchResponse{Leads: out, Summary: summary})
}

func (s *Server) personalizedSheetHandler(c *gin.Context) {
	var req models.PersonalizedSheetRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.ProjectID == "" || req.OriginalSheetURL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "project_id and original_sheet_url are required"})
		return
	}

	resp, err := s.Personalizer.Run(c.Request.Context(), req, c.GetHeader("X-User-Id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) listProjectsHandler(c *gin.Context) {
	ids, err := s.Projects.ListProjectIDs(c.Request.Context(), c.Param("user_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"project_ids": ids})
}

func (s *Server) getProjectHandler(c *gin.Context) {
	project, err := s.Projects.GetProject(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, project)
}

func (s *Server) createProjectHandler(c *gin.Context) {
	var req models.ProjectCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name and user_id are required"})
		return
	}
	project := req.Project()
	if err := s.Projects.CreateProject(c.Request.Context(), project); err != nil {
		respondError(c, err)
		return
	}
	log.Printf("[Projects] Created %s for user %s", project.ID, project.UserID)
	c.JSON(http.StatusCreated, project)
}

// listExportsHandler returns recent exports. Query: ?project_id=&limit=
func (s *Server) listExportsHandler(c *gin.Context) {
	if s.Exports == nil {
		c.JSON(http.StatusOK, gin.H{"exports": []models.ExportRun{}})
		return
	}
	limit := 20
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}
	runs, err := s.Exports.Recent(c.Request.Context(), c.Query("project_id"), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	if runs == nil {
		runs = []models.ExportRun{}
	}
	c.JSON(http.StatusOK, gin.H{"exports": runs})
}

func maskKey(v string) string {
	if len(v) <= 8 {
		return strings.Repeat("•", len(v))
	}
	return v[:6] + "..." + v[len(v)-4:]
}

// getKeysHandler reports which credentials the server holds, masked.
func (s *Server) getKeysHandler(c *gin.Context) {
	names := make([]string, 0, len(s.Credentials))
	for name := range s.Credentials {
		names = append(names, name)
	}
	sort.Strings(names)

	result := gin.H{}
	for _, name := range names {
		v := s.Credentials[name]
		result[name] = gin.H{
			"connected": v != "",
			"masked":    maskKey(v),
		}
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) getModelHandler(c *gin.Context) {
	provider, model := s.LLM.Get()
	c.JSON(http.StatusOK, gin.H{"provider": provider, "model": model})
}

func (s *Server) setModelHandler(c *gin.Context) {
	var body struct {
		Provider string `json:"provider"`
		Model    string `json:"model"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.Provider == "" || body.Model == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "provider and model are required"})
		return
	}
	if err := s.LLM.Set(body.Provider, body.Model); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	provider, model := s.LLM.Get()
	c.JSON(http.StatusOK, gin.H{"status": "ok", "provider": provider, "model": model})
}
