package handler_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/xxxsen/mdocs/internal/config"
	"github.com/xxxsen/mdocs/internal/filestore"
	"github.com/xxxsen/mdocs/internal/handler"
	"github.com/xxxsen/mdocs/internal/middleware"
	"github.com/xxxsen/mdocs/internal/pkg/jwt"
	"github.com/xxxsen/mdocs/internal/repo"
	"github.com/xxxsen/mdocs/internal/service"
)

var testSecret = []byte("test-secret")

type testEnv struct {
	router http.Handler
	now    *time.Time
}

func setupRouter(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	now := time.Unix(1700000000, 0)
	clock := func() time.Time { return now }
	docs := repo.NewMemoryDocumentRepo()
	documents := service.NewDocumentService(docs, 24*time.Hour, "https://docs.example.com", service.WithClock(clock))
	store, err := filestore.New(config.FileStoreConfig{
		Type: "local",
		Data: map[string]interface{}{"dir": t.TempDir()},
	})
	require.NoError(t, err)
	exports := service.NewExportService(docs, store, clock)

	engine := gin.New()
	engine.Use(middleware.RequestID())
	handler.RegisterRoutes(engine.Group("/api/v1"), handler.RouterDeps{
		Documents:    handler.NewDocumentHandler(documents),
		Trash:        handler.NewTrashHandler(documents),
		Shares:       handler.NewShareHandler(documents),
		Export:       handler.NewExportHandler(exports),
		JWTSecret:    testSecret,
		ShareLimiter: middleware.RateLimit(1000, 1000, 100, time.Minute),
	})
	return &testEnv{router: engine, now: &now}
}

func tokenFor(t *testing.T, userID string) string {
	t.Helper()
	token, err := jwt.GenerateToken(userID, testSecret, time.Hour)
	require.NoError(t, err)
	return token
}

func (e *testEnv) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp := httptest.NewRecorder()
	e.router.ServeHTTP(resp, req)
	return resp
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func decodeData(t *testing.T, resp *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &env))
	require.Nil(t, env.Error)
	require.NoError(t, json.Unmarshal(env.Data, dst))
}

func errorCode(t *testing.T, resp *httptest.ResponseRecorder) string {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &env))
	require.NotNil(t, env.Error)
	return env.Error.Code
}

func sprintfPath(format, id string) string {
	return fmt.Sprintf(format, id)
}
