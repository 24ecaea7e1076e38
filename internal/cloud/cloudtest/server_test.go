package cloudtest

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"evalgo.org/portico/models"
)

func get(t *testing.T, s *Server, path, token string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, s.URL+path, nil)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestServer_Authentication(t *testing.T) {
	s := New(t)

	tests := []struct {
		name  string
		token string
		want  int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"garbage", "abc", http.StatusUnauthorized},
		{"expired", s.Token(-time.Minute), http.StatusUnauthorized},
		{"valid", s.Token(time.Minute), http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := get(t, s, "instances/", tt.token)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}

func TestServer_OperationScript(t *testing.T) {
	s := New(t)
	s.SetScript(models.OperationInProgress, models.OperationCompleted)

	s.mu.Lock()
	s.instances["acme/db1"] = &models.CloudInstance{Name: "db1", Org: "acme", Status: "creating"}
	op := s.startOperation("acme", "db1")
	s.mu.Unlock()
	assert.Equal(t, models.OperationInProgress, op.Status)

	inst, _ := s.Instance("acme", "db1")
	assert.False(t, inst.IsAvailable())

	resp := get(t, s, "operations/"+op.ID, s.Token(time.Minute))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var fetched models.Operation
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&fetched))
	assert.Equal(t, models.OperationCompleted, fetched.Status)
	assert.Equal(t, 1, s.OperationFetches())

	inst, _ = s.Instance("acme", "db1")
	assert.True(t, inst.IsAvailable())
}

func TestHTTPErrorHandler(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantMsg  string
	}{
		{"api error", &models.APIError{Code: http.StatusConflict, Message: "Instance already exists"}, http.StatusConflict, "Instance already exists"},
		{"echo error", echo.NewHTTPError(http.StatusNotFound, "no route"), http.StatusNotFound, "Resource not found"},
		{"plain error", errors.New("boom"), http.StatusInternalServerError, "Internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

			HTTPErrorHandler(tt.err, c)

			assert.Equal(t, tt.wantCode, rec.Code)
			var body models.APIError
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantMsg, body.Message)
		})
	}
}
