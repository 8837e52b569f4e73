package handler

import (
	"bytes"
	"encoding/json"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/healthmate/companion/internal/audit"
	"github.com/healthmate/companion/internal/service"
	"github.com/healthmate/companion/pkg/model"
)

func multipartBody(t *testing.T, fileName, mimeType string, content []byte, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="file"; filename="`+fileName+`"`)
	header.Set("Content-Type", mimeType)
	part, err := writer.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)

	for k, v := range fields {
		require.NoError(t, writer.WriteField(k, v))
	}
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func TestGuard_AnonymousIsRedirectedWithoutBackendCall(t *testing.T) {
	app := newTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.Header.Set("Accept", "text/html")
	w := httptest.NewRecorder()
	app.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))
	assert.Zero(t, app.backend.callCount())

	w = app.do(http.MethodGet, "/timeline", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Zero(t, app.backend.callCount())
}

func TestLogin_ThenDashboard(t *testing.T) {
	app := newTestApp(t)
	app.backend.with(func(b *fakeBackend) {
		b.files = []model.FileRecord{{ID: "f1", FileName: "cbc.pdf", ReportDate: model.MustTimestamp("2025-01-10")}}
	})

	w := app.postJSON("/login", LoginForm{Email: "ayesha@example.com", Password: "secret"})
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[AuthResponse](t, w)
	assert.Equal(t, "u1", resp.User.ID)
	assert.Equal(t, "/dashboard", resp.Redirect)

	w = app.do(http.MethodGet, "/dashboard", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	summary := decode[service.DashboardSummary](t, w)
	assert.Equal(t, 1, summary.ReportCount)
	assert.Equal(t, 0, summary.VitalsCount)

	recent := app.audit.Recent(1)
	require.Len(t, recent, 1)
	assert.Equal(t, audit.ActionLogin, recent[0].Action)
	assert.True(t, recent[0].Succeeded)
}

func TestLogin_ServerMessageSurfaced(t *testing.T) {
	app := newTestApp(t)

	w := app.postJSON("/login", LoginForm{Email: "ayesha@example.com", Password: "wrong"})

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	resp := decode[ErrorResponse](t, w)
	assert.Equal(t, "UPSTREAM_ERROR", resp.Code)
	assert.Equal(t, "Invalid credentials", resp.Message)
	assert.False(t, app.sessions.IsAuthenticated())
}

func TestRegister_ValidationBeforeNetwork(t *testing.T) {
	app := newTestApp(t)

	w := app.postJSON("/register", RegisterForm{Email: "a@example.com", Password: "secret"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", decode[ErrorResponse](t, w).Code)
	assert.Zero(t, app.backend.callCount())
}

func TestRegister_ShortPasswordRejectedBeforeNetwork(t *testing.T) {
	app := newTestApp(t)

	w := app.postJSON("/register", RegisterForm{Name: "Bilal", Email: "bilal@example.com", Password: "abc"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := decode[ErrorResponse](t, w)
	assert.Equal(t, "VALIDATION_ERROR", resp.Code)
	assert.Contains(t, resp.Message, "at least 6 characters")
	assert.Zero(t, app.backend.callCount())
}

func TestRegister_SignsIn(t *testing.T) {
	app := newTestApp(t)

	w := app.postJSON("/register", RegisterForm{Name: "Bilal", Email: "bilal@example.com", Password: "secret"})

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "Bilal", decode[AuthResponse](t, w).User.Name)
	assert.True(t, app.sessions.IsAuthenticated())
}

func TestMeAndLogout(t *testing.T) {
	app := newTestApp(t)
	app.login(t)

	w := app.do(http.MethodGet, "/me", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	navbar := decode[Navbar](t, w)
	assert.Equal(t, "Ayesha Khan", navbar.User.Name)
	assert.NotEmpty(t, navbar.Links)

	w = app.do(http.MethodPost, "/logout", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "/login", decode[Notice](t, w).Redirect)

	w = app.do(http.MethodGet, "/me", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestActivity_ListsCurrentUserOnly(t *testing.T) {
	app := newTestApp(t)

	w := app.do(http.MethodGet, "/audit", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	app.audit.Log(audit.Entry{UserID: "someone-else", Action: audit.ActionDelete, Resource: audit.ResourceReport})
	app.login(t)

	w = app.do(http.MethodGet, "/audit", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[ActivityResponse](t, w)
	require.Len(t, resp.Entries, 1)
	assert.Equal(t, "u1", resp.Entries[0].UserID)
	assert.Equal(t, audit.ActionLogin, resp.Entries[0].Action)
	assert.True(t, resp.Entries[0].Succeeded)

	w = app.do(http.MethodGet, "/audit?limit=zero", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", decode[ErrorResponse](t, w).Code)
}

func TestAddVitals_HeartRateOnly(t *testing.T) {
	app := newTestApp(t)
	app.login(t)

	w := app.postJSON("/add-vitals", service.VitalsDraft{
		Date:          "2025-01-10",
		BloodPressure: service.BloodPressureDraft{Systolic: "120"},
		BloodSugar:    service.BloodSugarDraft{Unit: "mg/dL", TestType: "random"},
		HeartRate:     "72",
	})

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	resp := decode[VitalsResponse](t, w)
	assert.Equal(t, "Vitals added successfully!", resp.Message)
	assert.Equal(t, "/dashboard", resp.Redirect)
	assert.JSONEq(t, `{"date":"2025-01-10","heartRate":72}`, string(app.backend.recorded().vitals))
}

func TestAddVitals_InvalidDateEchoesDraft(t *testing.T) {
	app := newTestApp(t)
	app.login(t)
	before := app.backend.callCount()

	w := app.postJSON("/add-vitals", service.VitalsDraft{Date: "tomorrow", HeartRate: "72"})

	require.Equal(t, http.StatusBadRequest, w.Code)
	resp := decode[VitalsErrorResponse](t, w)
	assert.Equal(t, "72", resp.Draft.HeartRate)
	assert.Equal(t, before, app.backend.callCount())
}

func TestUpload_InsightFailureKeepsReport(t *testing.T) {
	app := newTestApp(t)
	app.login(t)
	app.backend.with(func(b *fakeBackend) {
		b.failInsight = true
	})

	body, contentType := multipartBody(t, "cbc.pdf", "application/pdf", []byte("%PDF-1.4"), map[string]string{
		"fileType":   "blood_test",
		"reportDate": "2025-01-10",
	})
	w := app.do(http.MethodPost, "/upload", body, contentType)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	resp := decode[UploadResponse](t, w)
	assert.Equal(t, "f1", resp.File.ID)
	assert.Nil(t, resp.Insight)
	assert.Contains(t, resp.Warning, "AI service unavailable")
	assert.Empty(t, resp.Redirect)
	assert.Equal(t, "/report/f1/insight", resp.RetryPath)

	w = app.do(http.MethodGet, "/report/f1", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	view := decode[service.ReportView](t, w)
	assert.True(t, view.Found)
	assert.False(t, view.AnalysisAvailable)
	assert.Equal(t, "BLOOD TEST", view.File.TypeLabel)

	app.backend.with(func(b *fakeBackend) {
		b.failInsight = false
	})
	w = app.do(http.MethodPost, "/report/f1/insight", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "All values are normal.", decode[service.InsightView](t, w).Summary)
}

func TestUpload_FullSuccessRedirectsToViewer(t *testing.T) {
	app := newTestApp(t)
	app.login(t)

	body, contentType := multipartBody(t, "xray.pdf", "application/pdf", []byte("%PDF-1.4"), map[string]string{
		"fileType": "xray",
	})
	w := app.do(http.MethodPost, "/upload", body, contentType)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	resp := decode[UploadResponse](t, w)
	assert.Equal(t, "/report/f1", resp.Redirect)
	assert.Equal(t, "xray", app.backend.recorded().fileType)

	w = app.do(http.MethodGet, "/report/f1?lang=romanUrdu", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	view := decode[service.ReportView](t, w)
	require.True(t, view.AnalysisAvailable)
	assert.Equal(t, "Sab theek hai.", view.Insight.Summary)
}

func TestUpload_NoFile(t *testing.T) {
	app := newTestApp(t)
	app.login(t)
	before := app.backend.callCount()

	w := app.do(http.MethodPost, "/upload", nil, "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Please select a file", decode[ErrorResponse](t, w).Message)
	assert.Equal(t, before, app.backend.callCount())
}

func TestPreview_Image(t *testing.T) {
	app := newTestApp(t)
	app.login(t)
	before := app.backend.callCount()

	var img bytes.Buffer
	require.NoError(t, png.Encode(&img, image.NewGray(image.Rect(0, 0, 8, 5))))
	body, contentType := multipartBody(t, "scan.png", "image/png", img.Bytes(), nil)

	w := app.do(http.MethodPost, "/upload/preview", body, contentType)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	preview := decode[service.Preview](t, w)
	assert.True(t, preview.IsImage)
	assert.Equal(t, 8, preview.Width)
	assert.Equal(t, 5, preview.Height)
	assert.Equal(t, before, app.backend.callCount())
}

func TestReport_NotFound(t *testing.T) {
	app := newTestApp(t)
	app.login(t)

	w := app.do(http.MethodGet, "/report/missing", nil, "")

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.False(t, decode[service.ReportView](t, w).Found)
}

func TestReport_DeleteNeedsConfirmation(t *testing.T) {
	app := newTestApp(t)
	app.login(t)

	w := app.do(http.MethodPost, "/report/f1/delete", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, app.backend.recorded().deleted)

	w = app.do(http.MethodPost, "/report/f1/delete?confirm=true", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "/dashboard", decode[Notice](t, w).Redirect)
	assert.Equal(t, []string{"f1"}, app.backend.recorded().deleted)
}

func TestTimeline_GroupsByMonth(t *testing.T) {
	app := newTestApp(t)
	app.login(t)
	app.backend.with(func(b *fakeBackend) {
		b.files = []model.FileRecord{
			{ID: "file1", ReportDate: model.MustTimestamp("2025-01-10")},
			{ID: "file2", ReportDate: model.MustTimestamp("2025-02-01")},
		}
	})
	app.backend.with(func(b *fakeBackend) {
		b.vitals = []model.VitalsRecord{{ID: "vital1", Date: model.MustTimestamp("2025-01-10")}}
	})

	w := app.do(http.MethodGet, "/timeline", nil, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var timeline struct {
		Filter string `json:"filter"`
		Total  int    `json:"total"`
		Groups []struct {
			Month string `json:"month"`
			Items []struct {
				ID   string `json:"_id"`
				Kind string `json:"kind"`
			} `json:"items"`
		} `json:"groups"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &timeline))

	assert.Equal(t, "all", timeline.Filter)
	assert.Equal(t, 3, timeline.Total)
	require.Len(t, timeline.Groups, 2)
	assert.Equal(t, "February 2025", timeline.Groups[0].Month)
	assert.Equal(t, "January 2025", timeline.Groups[1].Month)
	require.Len(t, timeline.Groups[1].Items, 2)
	assert.Equal(t, "file1", timeline.Groups[1].Items[0].ID)
	assert.Equal(t, "report", timeline.Groups[1].Items[0].Kind)
	assert.Equal(t, "vital1", timeline.Groups[1].Items[1].ID)
	assert.Equal(t, "vital", timeline.Groups[1].Items[1].Kind)
}

func TestTimeline_FetchFailureIsAllOrNothing(t *testing.T) {
	app := newTestApp(t)
	app.login(t)
	app.backend.with(func(b *fakeBackend) {
		b.files = []model.FileRecord{{ID: "file1", ReportDate: model.MustTimestamp("2025-01-10")}}
	})
	app.backend.with(func(b *fakeBackend) {
		b.failVitals = true
	})

	w := app.do(http.MethodGet, "/timeline", nil, "")

	assert.Equal(t, http.StatusBadGateway, w.Code)
	resp := decode[ErrorResponse](t, w)
	assert.Equal(t, "Failed to fetch timeline", resp.Message)
	assert.False(t, contains(w.Body.String(), `"groups"`))
}

func TestTimeline_PDFExport(t *testing.T) {
	app := newTestApp(t)
	app.login(t)
	hr := 72.0
	app.backend.with(func(b *fakeBackend) {
		b.vitals = []model.VitalsRecord{{ID: "vital1", Date: model.Timestamp{Time: time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)}, HeartRate: &hr}}
	})

	w := app.do(http.MethodGet, "/timeline/export.pdf?filter=vitals", nil, "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Equal(t, "%PDF", w.Body.String()[:4])
}

func TestBackendUnreachable(t *testing.T) {
	app := newTestApp(t)
	app.login(t)
	app.server.Close()

	w := app.do(http.MethodGet, "/dashboard", nil, "")

	assert.Equal(t, http.StatusBadGateway, w.Code)
	resp := decode[ErrorResponse](t, w)
	assert.Equal(t, "UPSTREAM_UNAVAILABLE", resp.Code)
	assert.Equal(t, "Failed to fetch data", resp.Message)
}

func TestHealthz(t *testing.T) {
	app := newTestApp(t)

	w := app.do(http.MethodGet, "/healthz", nil, "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"healthy","session":"anonymous","service":"healthmate-companion"}`, w.Body.String())
}
