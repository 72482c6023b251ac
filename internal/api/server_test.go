package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/i94days/internal/config"
	"github.com/dgallion1/i94days/internal/pipeline"
	"github.com/dgallion1/i94days/internal/trips"
)

const (
	testKey = "test-key"
	history = `1 2024-07-20 Departure JFK
2 2024-07-01 Arrival JFK
3 2023-03-31 Departure BOS
4 2023-03-01 Arrival BOS
5 2022-10-31 Departure ORD
6 2022-10-01 Arrival ORD
`
)

func newTestServer(t *testing.T, mutate func(*config.Config)) *Server {
	t.Helper()
	cfg := config.Defaults()
	cfg.APIKey = testKey
	cfg.RateLimitRPS = 0
	if mutate != nil {
		mutate(&cfg)
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	orch := pipeline.NewOrchestrator(cfg, log)
	orch.Start(context.Background())
	t.Cleanup(orch.Stop)
	return NewServer(orch, log, cfg, "test")
}

func upload(t *testing.T, filename, content string, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if filename != "" {
		fw, err := mw.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = io.WriteString(fw, content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/reports", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+testKey)
	return req
}

func authed(method, path string) *http.Request {
	req := httptest.NewRequest(method, path, nil)
	req.Header.Set("Authorization", "Bearer "+testKey)
	return req
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "test", body["version"])
}

func TestAuthRequired(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/stats/runs", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/stats/runs", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid api key", decode(t, rec)["error"])
}

func TestCreateAndFetchReport(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, upload(t, "history.txt", history, map[string]string{"as_of": "2024-08-01"}))
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	created := decode(t, rec)
	jobID, _ := created["job_id"].(string)
	require.NotEmpty(t, jobID)
	assert.Equal(t, "/api/reports/"+jobID, created["poll_url"])

	var snap pipeline.JobSnapshot
	require.Eventually(t, func() bool {
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, authed(http.MethodGet, "/api/reports/"+jobID))
		if rec.Code != http.StatusOK {
			return false
		}
		snap = pipeline.JobSnapshot{}
		if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
			return false
		}
		return snap.Status.Terminal()
	}, 5*time.Second, 10*time.Millisecond)

	require.Equal(t, pipeline.StatusCompleted, snap.Status, "errors: %v", snap.Errors)
	require.NotNil(t, snap.Report)
	assert.Equal(t, "history.txt", snap.Filename)
	assert.Equal(t, "2024-08-01", snap.AsOf)
	assert.Equal(t, map[int]int{2024: 19, 2023: 30, 2022: 30}, snap.Report.Yearly)
	assert.Equal(t, 34, snap.Report.Weighted.Total.Value)

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, authed(http.MethodGet, "/api/reports/"+jobID+"?format=table"))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "text/plain"))
	assert.Contains(t, rec.Body.String(), "Total: 34")

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, authed(http.MethodGet, "/api/stats/runs"))
	assert.Equal(t, http.StatusOK, rec.Code)
	stats, _ := decode(t, rec)["stats"].(map[string]any)
	assert.EqualValues(t, 1, stats["count"])
}

func TestCreateReport_DefaultAsOfIsToday(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, upload(t, "history.txt", history, nil))
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	jobID, _ := decode(t, rec)["job_id"].(string)
	require.NotEmpty(t, jobID)

	job := srv.orchestrator.GetJob(jobID)
	require.NotNil(t, job)
	require.Eventually(t, func() bool {
		return job.Snapshot().Status.Terminal()
	}, 5*time.Second, 10*time.Millisecond)

	today := trips.Today(time.Now())
	snap := job.Snapshot()
	require.Equal(t, pipeline.StatusCompleted, snap.Status, "errors: %v", snap.Errors)
	assert.Equal(t, today, job.AsOf)
	assert.Equal(t, today.Format("2006-01-02"), snap.AsOf)
	assert.Equal(t, today, snap.Report.AsOf)
}

func TestCreateReport_BadRequests(t *testing.T) {
	srv := newTestServer(t, func(c *config.Config) { c.MaxUploadBytes = 64 })

	tests := []struct {
		name     string
		req      *http.Request
		wantCode int
	}{
		{"missing file", upload(t, "", "", nil), http.StatusBadRequest},
		{"unsupported type", upload(t, "history.xlsx", "x", nil), http.StatusBadRequest},
		{"bad as_of", upload(t, "history.txt", "x", map[string]string{"as_of": "08/01/2024"}), http.StatusBadRequest},
		{"too large", upload(t, "history.txt", strings.Repeat("x", 65), nil), http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			srv.ServeHTTP(rec, tt.req)
			assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			assert.NotEmpty(t, decode(t, rec)["error"])
		})
	}
}

func TestGetReport_NotFound(t *testing.T) {
	srv := newTestServer(t, nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, authed(http.MethodGet, "/api/reports/nope"))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRateLimit(t *testing.T) {
	srv := newTestServer(t, func(c *config.Config) {
		c.RateLimitRPS = 0.001
		c.RateLimitBurst = 2
	})

	codes := make([]int, 0, 3)
	for range 3 {
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, authed(http.MethodGet, "/api/stats/runs"))
		codes = append(codes, rec.Code)
		if rec.Code == http.StatusTooManyRequests {
			assert.NotEmpty(t, rec.Header().Get("Retry-After"))
		}
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestCORS(t *testing.T) {
	srv := newTestServer(t, func(c *config.Config) {
		c.CORSAllowedOrigins = []string{"https://app.example"}
	})

	req := httptest.NewRequest(http.MethodOptions, "/api/reports", nil)
	req.Header.Set("Origin", "https://app.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, "https://app.example", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestSanitizeFilename(t *testing.T) {
	tests := map[string]string{
		"history.pdf":          "history.pdf",
		"../../etc/passwd.txt": "passwd.txt",
		`C:\Users\me\i94.pdf`:  "i94.pdf",
		"":                     "unnamed",
		"..":                   "_",
	}
	for in, want := range tests {
		assert.Equal(t, want, sanitizeFilename(in), in)
	}
}
