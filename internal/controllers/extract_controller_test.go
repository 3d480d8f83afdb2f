package controllers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specscan/backend/internal/services"
)

func newExtractRouter() *gin.Engine {
	ec := NewExtractController(services.NewExtractionService(nil))
	r := gin.New()
	r.POST("/api/v1/extract", ec.Extract)
	r.GET("/api/v1/strategies", ec.Strategies)
	return r
}

func TestExtractController_Authoritative(t *testing.T) {
	body, err := json.Marshal(map[string]interface{}{
		"log": failingLog,
		"job": map[string]string{"id": "j-1", "name": "rspec"},
	})
	require.NoError(t, err)

	w := post(newExtractRouter(), "/api/v1/extract", string(body))
	require.Equal(t, http.StatusOK, w.Code)

	var result services.ExtractionResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, services.ModeAuthoritative, result.Mode)
	assert.Equal(t, "failed-examples", result.Strategy)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, "j-1", result.Failures[0].JobID)
}

func TestExtractController_EmptyLog(t *testing.T) {
	w := post(newExtractRouter(), "/api/v1/extract", `{"log":"","mode":"all"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"mode":"all","count":0,"failures":[]}`, w.Body.String())
}

func TestExtractController_BadRequests(t *testing.T) {
	r := newExtractRouter()

	w := post(r, "/api/v1/extract", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = post(r, "/api/v1/extract", `{"log":"x","mode":"fast"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestExtractController_Strategies(t *testing.T) {
	w := httptest.NewRecorder()
	newExtractRouter().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/strategies", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{
		"cascade": ["failed-examples","pinned-fingerprint","example-summary","failure-block","fail-banner","test-paths","failure-count"],
		"catalog": ["RSpec","RSpec-Summary","Jest","Karma","Cypress"]
	}`, w.Body.String())
}
