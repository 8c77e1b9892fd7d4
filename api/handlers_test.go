package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tadeyemo32/outreach-batcher/batching"
	"github.com/tadeyemo32/outreach-batcher/models"
	"github.com/tadeyemo32/outreach-batcher/services"
)

type fakeProjects struct {
	projects map[string]*models.Project
}

func (f *fakeProjects) GetProject(_ context.Context, id string) (*models.Project, error) {
	p, ok := f.projects[id]
	if !ok {
		return nil, services.ErrProjectNotFound
	}
	return p, nil
}

func (f *fakeProjects) ListProjectIDs(_ context.Context, userID string) ([]string, error) {
	var ids []string
	for id, p := range f.projects {
		if p.UserID == userID {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (f *fakeProjects) CreateProject(_ context.Context, p *models.Project) error {
	if p.ID == "" {
		p.ID = fmt.Sprintf("p%d", len(f.projects)+1)
	}
	f.projects[p.ID] = p
	return nil
}

type fakePersonalizer struct {
	err   error
	owner string
}

func (f *fakePersonalizer) Run(_ context.Context, req models.PersonalizedSheetRequest, owner string) (models.PersonalizedSheetResponse, error) {
	f.owner = owner
	if f.err != nil {
		return models.PersonalizedSheetResponse{}, f.err
	}
	return models.PersonalizedSheetResponse{SheetLink: "http://files/" + req.ProjectID + ".csv"}, nil
}

type fakeExports struct {
	runs []models.ExportRun
}

func (f *fakeExports) Recent(_ context.Context, projectID string, limit int) ([]models.ExportRun, error) {
	var out []models.ExportRun
	for _, r := range f.runs {
		if projectID == "" || r.ProjectID == projectID {
			out = append(out, r)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func newTestServer() (*Server, *fakeProjects, *fakePersonalizer) {
	projects := &fakeProjects{projects: map[string]*models.Project{
		"proj-1": {ID: "proj-1", UserID: "u1", Name: "Campaign", NoOfMailbox: 1, EmailsPerMailbox: 2, BatchDurationDays: 2},
	}}
	personalizer := &fakePersonalizer{}
	s := &Server{
		Projects:     projects,
		Personalizer: personalizer,
		Exports: &fakeExports{runs: []models.ExportRun{
			{ID: "r1", ProjectID: "proj-1", FileName: "a.csv"},
			{ID: "r2", ProjectID: "proj-2", FileName: "b.csv"},
		}},
		LLM:         services.NewLLMRouter(services.LLMConfig{Provider: "openai", Model: "gpt-4o-mini"}),
		Credentials: map[string]string{"OPENAI_API_KEY": "sk-abcdefghijkl", "EXA_API_KEY": ""},
		Now:         func() time.Time { return time.Date(2024, 3, 4, 15, 0, 0, 0, time.UTC) },
	}
	return s, projects, personalizer
}

func newRouter(s *Server) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	SetupRoutes(r, s)
	return r
}

func do(r http.Handler, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func jsonCell(s string) json.RawMessage { return json.RawMessage(s) }

func TestHealthCheck(t *testing.T) {
	s, _, _ := newTestServer()
	s.APIKey = "secret"
	w := do(newRouter(s), http.MethodGet, "/api/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("health should stay open, got %d", w.Code)
	}
}

func TestBackendKeyRequired(t *testing.T) {
	s, _, _ := newTestServer()
	s.APIKey = "secret"
	r := newRouter(s)

	if w := do(r, http.MethodGet, "/api/model", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("missing key: got %d", w.Code)
	}
	if w := do(r, http.MethodGet, "/api/model", nil, "X-Batcher-Key", "secret"); w.Code != http.StatusOK {
		t.Fatalf("valid key: got %d", w.Code)
	}
}

func TestBatchHandlerInlineSettings(t *testing.T) {
	s, _, _ := newTestServer()
	req := models.BatchRequest{
		Mailboxes:         1,
		EmailsPerMailbox:  30,
		BatchDurationDays: 2,
		StartDate:         "2024-01-01",
		Leads: []models.LeadInput{
			{Company: "Acme", JobTitle: "CEO", Email: "ceo@acme.com", EmployeeCount: jsonCell(`"8"`), PriorityScore: jsonCell("90"), EmailProvider: "gmail"},
			{Company: "Acme", JobTitle: "Engineer", Email: "eng@acme.com", EmployeeCount: jsonCell("8"), PriorityScore: jsonCell("80"), EmailProvider: "gmail"},
			{Company: "Solo", JobTitle: "CEO", Email: "ceo@solo.com", EmployeeCount: nil, PriorityScore: jsonCell("70"), EmailProvider: "gmail"},
		},
	}
	w := do(newRouter(s), http.MethodPost, "/api/batch", req)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}

	var resp models.BatchResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Leads) != 3 {
		t.Fatalf("want 3 leads, got %d", len(resp.Leads))
	}
	ceo := resp.Leads[0]
	if ceo.Status != string(batching.StatusSelected) || ceo.BatchName != "gmail batch-1" || ceo.SendDate != "2024-01-01" {
		t.Fatalf("unexpected ceo row: %+v", ceo)
	}
	if resp.Leads[1].Status != string(batching.StatusUnbatchable) {
		t.Fatalf("engineer at an 8-person company should be unbatchable, got %+v", resp.Leads[1])
	}
	if resp.Leads[2].Status != string(batching.StatusUnbatchable) {
		t.Fatalf("lead without headcount should be unbatchable, got %+v", resp.Leads[2])
	}
	if resp.Summary.Total != 3 || resp.Summary.Batched != 1 {
		t.Fatalf("unexpected summary %+v", resp.Summary)
	}
}

func TestBatchHandlerCoercesLeadCells(t *testing.T) {
	s, _, _ := newTestServer()
	body := jsonCell(`{
		"mailboxes": 1, "emails_per_mailbox": 30, "batch_duration_days": 2, "start_date": "2024-01-01",
		"leads": [
			{"company": "Acme", "job_title": "CEO", "email": "a@acme.com", "employee_count": 30, "priority_score": 90, "email_provider": "gmail"},
			{"company": "Acme", "job_title": "Founder", "email": "b@acme.com", "employee_count": 30, "priority_score": 80, "email_provider": "gmail"},
			{"company": "Acme", "job_title": "Owner", "email": "c@acme.com", "employee_count": 30.0, "priority_score": "70", "email_provider": "gmail"},
			{"company": "Acme ", "job_title": "President", "email": "d@acme.com", "employee_count": "30", "priority_score": 60, "email_provider": "gmail"},
			{"company": " Acme", "job_title": "Co-Founder", "email": "e@acme.com", "employee_count": "30", "priority_score": "n/a", "email_provider": "gmail"}
		]
	}`)
	w := do(newRouter(s), http.MethodPost, "/api/batch", body)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}
	var resp models.BatchResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	// One company with a quota of 4: the unscored lead is left for a later cycle.
	for i := 0; i < 4; i++ {
		if resp.Leads[i].Status != string(batching.StatusSelected) {
			t.Fatalf("lead %d: %+v", i, resp.Leads[i])
		}
	}
	if resp.Leads[4].Status != string(batching.StatusFuture) {
		t.Fatalf("lead 4 should wait for a later cycle, got %+v", resp.Leads[4])
	}
	if resp.Summary.Batched != 4 || resp.Summary.Future != 1 || resp.Summary.Unbatchable != 0 {
		t.Fatalf("unexpected summary %+v", resp.Summary)
	}
}

func TestBatchHandlerUsesProjectSettings(t *testing.T) {
	s, _, _ := newTestServer()
	var leads []models.LeadInput
	for i := 0; i < 3; i++ {
		leads = append(leads, models.LeadInput{
			Company:       fmt.Sprintf("Co%d", i),
			JobTitle:      "Founder",
			Email:         fmt.Sprintf("f@co%d.com", i),
			EmployeeCount: jsonCell(`"5"`),
			PriorityScore: jsonCell("50"),
			EmailProvider: "outlook",
		})
	}
	w := do(newRouter(s), http.MethodPost, "/api/batch", models.BatchRequest{ProjectID: "proj-1", Leads: leads})
	if w.Code != http.StatusOK {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}
	var resp models.BatchResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	// Capacity 1x2: two leads on day one, the third on day two (start = today).
	if resp.Leads[0].SendDate != "2024-03-04" || resp.Leads[2].SendDate != "2024-03-05" {
		t.Fatalf("unexpected send dates: %s, %s", resp.Leads[0].SendDate, resp.Leads[2].SendDate)
	}
	if resp.Leads[2].BatchName != "outlook batch-2" {
		t.Fatalf("unexpected batch name %q", resp.Leads[2].BatchName)
	}
}

func TestBatchHandlerErrors(t *testing.T) {
	s, _, _ := newTestServer()
	r := newRouter(s)

	w := do(r, http.MethodPost, "/api/batch", models.BatchRequest{Leads: []models.LeadInput{}})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("missing settings: want 400, got %d", w.Code)
	}
	w = do(r, http.MethodPost, "/api/batch", models.BatchRequest{ProjectID: "nope"})
	if w.Code != http.StatusNotFound {
		t.Fatalf("unknown project: want 404, got %d", w.Code)
	}
	w = do(r, http.MethodPost, "/api/batch", models.BatchRequest{Mailboxes: 1, EmailsPerMailbox: 1, BatchDurationDays: 1, StartDate: "03/04/2024"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("bad date: want 400, got %d", w.Code)
	}
}

func TestPersonalizedSheetHandler(t *testing.T) {
	s, _, personalizer := newTestServer()
	r := newRouter(s)

	body := models.PersonalizedSheetRequest{ProjectID: "proj-1", OriginalSheetURL: "https://docs.google.com/spreadsheets/d/abc/edit"}
	w := do(r, http.MethodPost, "/api/personalized-sheet", body, "X-User-Id", "u1")
	if w.Code != http.StatusOK {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "http://files/proj-1.csv") {
		t.Fatalf("missing sheet link: %s", w.Body.String())
	}
	if personalizer.owner != "u1" {
		t.Fatalf("owner not forwarded: %q", personalizer.owner)
	}

	if w := do(r, http.MethodPost, "/api/personalized-sheet", models.PersonalizedSheetRequest{ProjectID: "proj-1"}); w.Code != http.StatusBadRequest {
		t.Fatalf("missing url: want 400, got %d", w.Code)
	}

	cases := map[error]int{
		fmt.Errorf("%w: \"email\"", services.ErrUnmappedColumns): http.StatusBadRequest,
		fmt.Errorf("%w: 403", services.ErrSheetUnavailable):      http.StatusBadRequest,
		services.ErrProjectNotFound:                              http.StatusNotFound,
		errors.New("upload failed"):                              http.StatusInternalServerError,
	}
	for err, want := range cases {
		personalizer.err = err
		if w := do(r, http.MethodPost, "/api/personalized-sheet", body); w.Code != want {
			t.Fatalf("%v: want %d, got %d", err, want, w.Code)
		}
	}
}

func TestProjectHandlers(t *testing.T) {
	s, projects, _ := newTestServer()
	r := newRouter(s)

	w := do(r, http.MethodPost, "/api/project", models.ProjectCreateRequest{Name: "New", UserID: "u1"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create: status %d: %s", w.Code, w.Body.String())
	}
	var created models.Project
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.NoOfMailbox != 1 || created.EmailsPerMailbox != 30 || created.BatchDurationDays != 2 {
		t.Fatalf("defaults not applied: %+v", created)
	}
	if _, ok := projects.projects[created.ID]; !ok {
		t.Fatalf("project %q not stored", created.ID)
	}

	if w := do(r, http.MethodPost, "/api/project", gin.H{"name": "x"}); w.Code != http.StatusBadRequest {
		t.Fatalf("missing user_id: want 400, got %d", w.Code)
	}

	w = do(r, http.MethodGet, "/api/projects/u1", nil)
	var list struct {
		ProjectIDs []string `json:"project_ids"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(list.ProjectIDs) != 2 {
		t.Fatalf("want 2 projects for u1, got %v", list.ProjectIDs)
	}

	w = do(r, http.MethodGet, "/api/projects/nobody", nil)
	if strings.TrimSpace(w.Body.String()) != `{"project_ids":[]}` {
		t.Fatalf("empty list should be [], got %s", w.Body.String())
	}

	if w := do(r, http.MethodGet, "/api/project/proj-1", nil); w.Code != http.StatusOK {
		t.Fatalf("get: status %d", w.Code)
	}
	if w := do(r, http.MethodGet, "/api/project/missing", nil); w.Code != http.StatusNotFound {
		t.Fatalf("get missing: status %d", w.Code)
	}
}

func TestListExportsHandler(t *testing.T) {
	s, _, _ := newTestServer()
	r := newRouter(s)

	w := do(r, http.MethodGet, "/api/exports?project_id=proj-1", nil)
	var body struct {
		Exports []models.ExportRun `json:"exports"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Exports) != 1 || body.Exports[0].ID != "r1" {
		t.Fatalf("unexpected exports %+v", body.Exports)
	}
	if w := do(r, http.MethodGet, "/api/exports?limit=zero", nil); w.Code != http.StatusBadRequest {
		t.Fatalf("bad limit: want 400, got %d", w.Code)
	}
}

func TestModelAndKeysHandlers(t *testing.T) {
	s, _, _ := newTestServer()
	r := newRouter(s)

	w := do(r, http.MethodPost, "/api/model", gin.H{"provider": "Anthropic", "model": "claude-3-5-sonnet"})
	if w.Code != http.StatusOK {
		t.Fatalf("set model: %d %s", w.Code, w.Body.String())
	}
	if p, m := s.LLM.Get(); p != "anthropic" || m != "claude-3-5-sonnet" {
		t.Fatalf("router not updated: %s %s", p, m)
	}
	if w := do(r, http.MethodPost, "/api/model", gin.H{"provider": "cohere", "model": "x"}); w.Code != http.StatusBadRequest {
		t.Fatalf("unknown provider: want 400, got %d", w.Code)
	}

	w = do(r, http.MethodGet, "/api/keys", nil)
	var keys map[string]struct {
		Connected bool   `json:"connected"`
		Masked    string `json:"masked"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &keys); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !keys["OPENAI_API_KEY"].Connected || keys["OPENAI_API_KEY"].Masked != "sk-abc...ijkl" {
		t.Fatalf("unexpected openai entry %+v", keys["OPENAI_API_KEY"])
	}
	if keys["EXA_API_KEY"].Connected {
		t.Fatalf("empty key reported as connected")
	}
}

func TestCORSPreflight(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CORSMiddleware())
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := do(r, http.MethodOptions, "/x", nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("preflight: want 204, got %d", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("missing CORS header")
	}
}
