package controllers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specscan/backend/internal/buildkite"
	"github.com/specscan/backend/internal/services"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const failingLog = "Failed examples:\n\nrspec ./spec/models/user_spec.rb:10 # User validates email\n\n1 example, 1 failure\n"

// fakeBuildkiteAPI serves a tiny fixed Buildkite dataset.
func fakeBuildkiteAPI(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/organizations", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"slug":"acme","name":"Acme"}]`))
	})
	mux.HandleFunc("/organizations/acme/pipelines", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"slug":"web","name":"Web"}]`))
	})
	mux.HandleFunc("/organizations/acme/pipelines/web/builds", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[
			{"number":2,"state":"failed","web_url":"https://buildkite.com/acme/web/builds/2","jobs":[{"id":"j-1","name":"rspec","state":"failed"}]},
			{"number":1,"state":"passed","jobs":[]}
		]`))
	})
	mux.HandleFunc("/organizations/acme/pipelines/web/builds/2", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"number":2,"state":"failed","jobs":[
			{"id":"j-1","name":"rspec","state":"failed","web_url":"https://buildkite.com/acme/web/builds/2#j-1"},
			{"id":"j-2","name":"lint","state":"passed"}
		]}`))
	})
	mux.HandleFunc("/organizations/acme/pipelines/web/builds/2/jobs/j-1/log", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"content": failingLog})
	})
	mux.HandleFunc("/organizations/acme/pipelines/web/builds/2/jobs/j-1/retry", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.Write([]byte(`{"id":"j-3","state":"scheduled"}`))
	})
	mux.HandleFunc("/organizations/secret/pipelines", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"message":"Authentication required"}`))
	})
	mux.HandleFunc("/organizations/busy/pipelines", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"message":"slow down"}`))
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func newTestRouter(t *testing.T, token string) *gin.Engine {
	server := fakeBuildkiteAPI(t)
	client := buildkite.NewClient(buildkite.Config{
		Token:   token,
		BaseURL: server.URL,
		Timeout: 5 * time.Second,
	})
	bc := NewBuildkiteController(client, services.NewExtractionService(nil))

	r := gin.New()
	r.POST("/mcp_buildkite_list_builds", bc.ListBuilds)
	r.POST("/mcp_buildkite_get_build", bc.GetBuild)
	r.POST("/mcp_buildkite_list_jobs", bc.ListJobs)
	r.POST("/mcp_buildkite_list_failed_jobs", bc.ListFailedJobs)
	r.POST("/mcp_buildkite_get_job_log", bc.GetJobLog)
	r.POST("/mcp_buildkite_list_pipelines", bc.ListPipelines)
	r.POST("/mcp_buildkite_list_organizations", bc.ListOrganizations)
	r.POST("/mcp_buildkite_retry_job", bc.RetryJob)
	r.POST("/mcp_buildkite_list_pipeline_build_failures", bc.ListPipelineBuildFailures)
	r.POST("/mcp_buildkite_list_job_spec_failures", bc.ListJobSpecFailures)
	r.POST("/mcp_buildkite_list_failed_specs", bc.ListFailedSpecs)
	return r
}

func post(r *gin.Engine, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func errorMessage(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Error
}

func TestBuildkiteController_MissingParameters(t *testing.T) {
	r := newTestRouter(t, "bk_test")

	tests := []struct {
		path string
		body string
		want string
	}{
		{"/mcp_buildkite_list_builds", `{"organization":"acme"}`, msgOrgPipeline},
		{"/mcp_buildkite_get_build", `{"organization":"acme","pipeline":"web"}`, msgOrgPipelineBuild},
		{"/mcp_buildkite_list_jobs", `{}`, msgOrgPipelineBuild},
		{"/mcp_buildkite_list_failed_jobs", ``, msgOrgPipelineBuild},
		{"/mcp_buildkite_get_job_log", `{"organization":"acme","pipeline":"web","build_number":2}`, msgOrgPipelineJob},
		{"/mcp_buildkite_list_pipelines", `{}`, msgOrg},
		{"/mcp_buildkite_retry_job", `{"organization":"acme"}`, msgOrgPipelineJob},
		{"/mcp_buildkite_list_pipeline_build_failures", `{"pipeline":"web"}`, msgOrgPipeline},
		{"/mcp_buildkite_list_job_spec_failures", `{"organization":"acme","pipeline":"web","job_id":"j-1"}`, msgOrgPipelineJob},
		{"/mcp_buildkite_list_failed_specs", `{}`, msgBuildURL},
		{"/mcp_buildkite_list_failed_specs", `{"build_url":"https://example.com/x"}`, msgInvalidBuildURL},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := post(r, tt.path, tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tt.want, errorMessage(t, w))
		})
	}
}

func TestBuildkiteController_InvalidBody(t *testing.T) {
	r := newTestRouter(t, "bk_test")

	w := post(r, "/mcp_buildkite_get_build", `{"organization":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = post(r, "/mcp_buildkite_get_build", `{"organization":"acme","pipeline":"web","build_number":"abc"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBuildkiteController_GetBuildAcceptsStringNumber(t *testing.T) {
	r := newTestRouter(t, "bk_test")

	w := post(r, "/mcp_buildkite_get_build", `{"organization":"acme","pipeline":"web","build_number":"2"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"number":2`)
}

func TestBuildkiteController_Listings(t *testing.T) {
	r := newTestRouter(t, "bk_test")

	w := post(r, "/mcp_buildkite_list_organizations", ``)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"slug":"acme"`)

	w = post(r, "/mcp_buildkite_list_pipelines", `{"organization":"acme"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"slug":"web"`)

	w = post(r, "/mcp_buildkite_list_builds", `{"organization":"acme","pipeline":"web"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"number":2`)

	w = post(r, "/mcp_buildkite_list_jobs", `{"organization":"acme","pipeline":"web","build_number":2}`)
	require.Equal(t, http.StatusOK, w.Code)
	var jobs []map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &jobs))
	assert.Len(t, jobs, 2)

	w = post(r, "/mcp_buildkite_list_failed_jobs", `{"organization":"acme","pipeline":"web","build_number":2}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &jobs))
	require.Len(t, jobs, 1)
	assert.Equal(t, "j-1", jobs[0]["id"])

	w = post(r, "/mcp_buildkite_list_pipeline_build_failures", `{"organization":"acme","pipeline":"web"}`)
	require.Equal(t, http.StatusOK, w.Code)
	var failures []map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &failures))
	require.Len(t, failures, 1)
	assert.Equal(t, float64(2), failures[0]["build_number"])
}

func TestBuildkiteController_JobEndpoints(t *testing.T) {
	r := newTestRouter(t, "bk_test")
	body := `{"organization":"acme","pipeline":"web","build_number":2,"job_id":"j-1"}`

	w := post(r, "/mcp_buildkite_get_job_log", body)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Failed examples:")

	w = post(r, "/mcp_buildkite_retry_job", body)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"id":"j-3"`)

	w = post(r, "/mcp_buildkite_list_job_spec_failures", body)
	require.Equal(t, http.StatusOK, w.Code)
	var records []map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &records))
	require.NotEmpty(t, records)
	assert.Equal(t, "RSpec-Summary", records[0]["type"])
	assert.Equal(t, "j-1", records[0]["job_id"])
	assert.Equal(t, "2", records[0]["build_number"])
}

func TestBuildkiteController_ListFailedSpecs(t *testing.T) {
	r := newTestRouter(t, "bk_test")

	w := post(r, "/mcp_buildkite_list_failed_specs", `{"build_url":"https://buildkite.com/acme/web/builds/2"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var report struct {
		BuildURL       string `json:"build_url"`
		FailedJobCount int    `json:"failed_job_count"`
		Failures       []struct {
			Spec    string `json:"spec"`
			Message string `json:"message"`
			JobID   string `json:"job_id"`
		} `json:"failures"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.Equal(t, 1, report.FailedJobCount)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, "./spec/models/user_spec.rb:10", report.Failures[0].Spec)
	assert.Equal(t, "User validates email", report.Failures[0].Message)
	assert.Equal(t, "j-1", report.Failures[0].JobID)
}

func TestBuildkiteController_ListFailedSpecsRequiresToken(t *testing.T) {
	r := newTestRouter(t, "")

	w := post(r, "/mcp_buildkite_list_failed_specs", `{"build_url":"https://buildkite.com/acme/web/builds/2"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, msgToken, errorMessage(t, w))

	w = post(r, "/mcp_buildkite_list_failed_specs", `{"build_url":"https://buildkite.com/acme/web/builds/2","access_token":"bk_req"}`)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestBuildkiteController_UpstreamErrors(t *testing.T) {
	r := newTestRouter(t, "bk_test")

	w := post(r, "/mcp_buildkite_list_pipelines", `{"organization":"secret"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, msgUnauthorized, errorMessage(t, w))

	w = post(r, "/mcp_buildkite_get_build", `{"organization":"acme","pipeline":"web","build_number":404}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, msgNotFound, errorMessage(t, w))

	w = post(r, "/mcp_buildkite_list_pipelines", `{"organization":"busy"}`)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.JSONEq(t, `{"error":{"message":"slow down"}}`, w.Body.String())

	w = post(r, "/mcp_buildkite_list_failed_specs", `{"build_url":"https://buildkite.com/acme/web/builds/404"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestBuildkiteController_TransportError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	server.Close()

	bc := NewBuildkiteController(buildkite.NewClient(buildkite.Config{BaseURL: server.URL, Token: "t"}), services.NewExtractionService(nil))
	r := gin.New()
	r.POST("/orgs", bc.ListOrganizations)
	r.POST("/specs", bc.ListFailedSpecs)

	w := post(r, "/orgs", `{}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	w = post(r, "/specs", `{"build_url":"https://buildkite.com/acme/web/builds/1"}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, msgBuildInfo, errorMessage(t, w))
}
