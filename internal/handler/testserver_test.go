package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/healthmate/companion/internal/apiclient"
	"github.com/healthmate/companion/internal/audit"
	"github.com/healthmate/companion/internal/middleware"
	"github.com/healthmate/companion/internal/pdf"
	"github.com/healthmate/companion/internal/service"
	"github.com/healthmate/companion/internal/session"
	"github.com/healthmate/companion/pkg/model"
)

const testToken = "tok-1"

// fakeBackend is an in-memory HealthMate REST backend
type fakeBackend struct {
	mu           sync.Mutex
	calls        int
	files        []model.FileRecord
	vitals       []model.VitalsRecord
	insights     map[string]model.Insight
	failInsight  bool
	failVitals   bool
	deleted      []string
	lastVitals   json.RawMessage
	lastFileType string
}

func respondOK(c *gin.Context, status int, data any) {
	c.JSON(status, gin.H{"success": true, "data": data})
}

func respondFail(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"success": false, "message": message})
}

func (b *fakeBackend) routes() http.Handler {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		b.mu.Lock()
		b.calls++
		b.mu.Unlock()
		c.Next()
	})

	r.POST("/auth/login", func(c *gin.Context) {
		var creds apiclient.LoginRequest
		_ = c.ShouldBindJSON(&creds)
		if creds.Password != "secret" {
			respondFail(c, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		respondOK(c, http.StatusOK, gin.H{
			"token": testToken,
			"user":  model.User{ID: "u1", Name: "Ayesha Khan", Email: creds.Email},
		})
	})
	r.POST("/auth/register", func(c *gin.Context) {
		var profile apiclient.RegisterRequest
		_ = c.ShouldBindJSON(&profile)
		respondOK(c, http.StatusCreated, gin.H{
			"token": testToken,
			"_id":   "u2",
			"name":  profile.Name,
			"email": profile.Email,
		})
	})

	api := r.Group("/", func(c *gin.Context) {
		if c.GetHeader("Authorization") != "Bearer "+testToken {
			respondFail(c, http.StatusUnauthorized, "Not authorized")
			c.Abort()
			return
		}
		c.Next()
	})
	api.GET("/auth/me", func(c *gin.Context) {
		respondOK(c, http.StatusOK, model.User{ID: "u1", Name: "Ayesha Khan"})
	})
	api.GET("/files", func(c *gin.Context) {
		b.mu.Lock()
		defer b.mu.Unlock()
		respondOK(c, http.StatusOK, b.files)
	})
	api.GET("/files/:id", func(c *gin.Context) {
		b.mu.Lock()
		defer b.mu.Unlock()
		for _, f := range b.files {
			if f.ID == c.Param("id") {
				respondOK(c, http.StatusOK, f)
				return
			}
		}
		respondFail(c, http.StatusNotFound, "File not found")
	})
	api.DELETE("/files/:id", func(c *gin.Context) {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.deleted = append(b.deleted, c.Param("id"))
		respondOK(c, http.StatusOK, nil)
	})
	api.POST("/files/upload", func(c *gin.Context) {
		header, err := c.FormFile("file")
		if err != nil {
			respondFail(c, http.StatusBadRequest, "No file uploaded")
			return
		}
		b.mu.Lock()
		defer b.mu.Unlock()
		b.lastFileType = c.PostForm("fileType")
		record := model.FileRecord{
			ID:         "f1",
			FileName:   header.Filename,
			FileType:   model.FileType(c.PostForm("fileType")),
			MimeType:   header.Header.Get("Content-Type"),
			ReportDate: model.MustTimestamp(c.PostForm("reportDate")),
		}
		b.files = append(b.files, record)
		respondOK(c, http.StatusCreated, record)
	})
	api.POST("/insights/generate/:id", func(c *gin.Context) {
		b.mu.Lock()
		defer b.mu.Unlock()
		if b.failInsight {
			respondFail(c, http.StatusInternalServerError, "AI service unavailable")
			return
		}
		insight := model.Insight{
			FileID:  c.Param("id"),
			Summary: model.Summary{English: "All values are normal.", RomanUrdu: "Sab theek hai."},
		}
		b.insights[c.Param("id")] = insight
		respondOK(c, http.StatusCreated, insight)
	})
	api.GET("/insights/file/:id", func(c *gin.Context) {
		b.mu.Lock()
		defer b.mu.Unlock()
		insight, found := b.insights[c.Param("id")]
		if !found {
			respondFail(c, http.StatusNotFound, "Insight not found")
			return
		}
		respondOK(c, http.StatusOK, insight)
	})
	api.GET("/vitals", func(c *gin.Context) {
		b.mu.Lock()
		defer b.mu.Unlock()
		if b.failVitals {
			respondFail(c, http.StatusInternalServerError, "Database error")
			return
		}
		respondOK(c, http.StatusOK, b.vitals)
	})
	api.POST("/vitals", func(c *gin.Context) {
		body, _ := io.ReadAll(c.Request.Body)
		b.mu.Lock()
		defer b.mu.Unlock()
		b.lastVitals = body
		respondOK(c, http.StatusCreated, model.VitalsRecord{ID: "v-new", Date: model.MustTimestamp("2025-01-10")})
	})
	return r
}

// with runs fn while holding the backend lock
func (b *fakeBackend) with(fn func(b *fakeBackend)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fn(b)
}

type recorded struct {
	vitals   json.RawMessage
	fileType string
	deleted  []string
}

// recorded returns what the backend received so far
func (b *fakeBackend) recorded() recorded {
	b.mu.Lock()
	defer b.mu.Unlock()
	return recorded{
		vitals:   b.lastVitals,
		fileType: b.lastFileType,
		deleted:  append([]string(nil), b.deleted...),
	}
}

func (b *fakeBackend) callCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls
}

type testApp struct {
	router   *gin.Engine
	backend  *fakeBackend
	server   *httptest.Server
	sessions *session.Store
	audit    *audit.Logger
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()

	backend := &fakeBackend{insights: map[string]model.Insight{}}
	server := httptest.NewServer(backend.routes())
	t.Cleanup(server.Close)

	var sessions *session.Store
	client := apiclient.New(server.URL, apiclient.TokenFunc(func() string { return sessions.Token() }), apiclient.Options{}, logger)
	sessions = session.NewStore(client.Auth, &session.MemoryTokenStore{}, logger)
	auditLogger := audit.NewLogger(logger, 100)

	handlers := &Handlers{
		Auth:      NewAuthHandler(sessions, auditLogger, logger),
		Dashboard: NewDashboardHandler(service.NewDashboardService(client.Files, client.Vitals, logger), logger),
		Upload:    NewUploadHandler(service.NewUploadService(client.Files, client.Insights, logger), auditLogger, logger),
		Vitals:    NewVitalsHandler(service.NewVitalsService(client.Vitals, logger), auditLogger, logger),
		Report:    NewReportHandler(service.NewReportService(client.Files, client.Insights, logger), auditLogger, logger),
		Timeline:  NewTimelineHandler(service.NewTimelineService(client.Files, client.Vitals, logger), pdf.NewPDFGenerator(logger), logger),
		Health:    NewHealthHandler(sessions),
		Audit:     NewAuditHandler(auditLogger),
	}

	router := gin.New()
	router.Use(middleware.RequestIDMiddleware())
	RegisterRoutes(router, handlers, middleware.RequireSession(sessions, logger))

	return &testApp{
		router:   router,
		backend:  backend,
		server:   server,
		sessions: sessions,
		audit:    auditLogger,
	}
}

func (a *testApp) do(method, path string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func (a *testApp) postJSON(path string, payload any) *httptest.ResponseRecorder {
	raw, _ := json.Marshal(payload)
	return a.do(http.MethodPost, path, bytes.NewReader(raw), "application/json")
}

func (a *testApp) login(t *testing.T) {
	t.Helper()
	w := a.postJSON("/login", LoginForm{Email: "ayesha@example.com", Password: "secret"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func contains(s, sub string) bool {
	return strings.Contains(s, sub)
}
