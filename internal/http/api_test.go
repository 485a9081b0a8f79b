package http

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"feather-planner/internal/repository/memory"
	"feather-planner/internal/service"
	"feather-planner/internal/token"
)

const testDate = "20210115"

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	signer, err := token.NewSigner("test-secret", time.Hour)
	require.NoError(t, err)

	accounts := service.NewAccountService(memory.NewUserRepository(logger), signer, nil, logger)
	calendars := service.NewCalendarService(memory.NewCalendarRepository(logger), service.StaleReport, logger)
	exports := service.NewExportService(service.ExportConfig{Logger: logger}, calendars, nil)

	router := gin.New()
	NewHandler(accounts, calendars, exports, logger, "").RegisterRoutes(router)
	return router
}

func doJSON(t *testing.T, router *gin.Engine, method, path, tok string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func doForm(t *testing.T, router *gin.Engine, path string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func register(t *testing.T, router *gin.Engine, email, username string) string {
	t.Helper()
	rec := doForm(t, router, "/accounts/register", url.Values{
		"email":    {email},
		"fullname": {"Test User"},
		"username": {username},
		"password": {"hunter2"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[map[string]string](t, rec)
	require.NotEmpty(t, resp["token"])
	return resp["token"]
}

func login(t *testing.T, router *gin.Engine, email, password string) loginResponse {
	t.Helper()
	rec := doForm(t, router, "/accounts/login", url.Values{"email": {email}, "password": {password}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return decode[loginResponse](t, rec)
}

func TestHealthAndCORS(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":"ok"}`, rec.Body.String())
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))

	rec = doJSON(t, router, http.MethodOptions, "/calendar/date", "", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRequestIDEchoed(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, "abc-123", rec.Header().Get(requestIDHeader))
}

func TestAccounts_RegisterAndCheckIn(t *testing.T) {
	router := newTestRouter(t)
	tok := register(t, router, "a@test.com", "alice")

	rec := doJSON(t, router, http.MethodGet, "/accounts/checkin", tok, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true}`, rec.Body.String())

	rec = doJSON(t, router, http.MethodGet, "/accounts/profile", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	profile := decode[profileResponse](t, rec)
	assert.Equal(t, "a@test.com", profile.Email)
	assert.Equal(t, "Test User", profile.FullName)
	assert.Equal(t, "alice", profile.Username)
	assert.NotContains(t, rec.Body.String(), "hunter2")
}

func TestAccounts_RegisterDuplicate(t *testing.T) {
	router := newTestRouter(t)
	register(t, router, "a@test.com", "alice")

	for name, form := range map[string]url.Values{
		"same email":    {"email": {"a@test.com"}, "fullname": {"X"}, "username": {"other"}, "password": {"p"}},
		"same username": {"email": {"b@test.com"}, "fullname": {"X"}, "username": {"alice"}, "password": {"p"}},
	} {
		t.Run(name, func(t *testing.T) {
			rec := doForm(t, router, "/accounts/register", form)
			require.Equal(t, http.StatusBadRequest, rec.Code)
			resp := decode[errorResponse](t, rec)
			assert.Equal(t, http.StatusBadRequest, resp.Code)
			assert.Equal(t, "Bad Request", resp.Name)
			assert.NotEmpty(t, resp.Message)
		})
	}
}

func TestAccounts_RegisterMissingField(t *testing.T) {
	router := newTestRouter(t)

	rec := doForm(t, router, "/accounts/register", url.Values{"email": {"a@test.com"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAccounts_LoginStatuses(t *testing.T) {
	router := newTestRouter(t)
	register(t, router, "a@test.com", "alice")

	resp := login(t, router, "a@test.com", "wrong")
	assert.Equal(t, 1, resp.Status)
	assert.Empty(t, resp.Token)

	resp = login(t, router, "nobody@test.com", "hunter2")
	assert.Equal(t, 2, resp.Status)
	assert.Empty(t, resp.Token)

	resp = login(t, router, "a@test.com", "")
	assert.Equal(t, 1, resp.Status)
	assert.Empty(t, resp.Token)

	resp = login(t, router, "", "hunter2")
	assert.Equal(t, 2, resp.Status)
	assert.Empty(t, resp.Token)

	rec := doForm(t, router, "/accounts/login", url.Values{})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 2, decode[loginResponse](t, rec).Status)

	resp = login(t, router, "a@test.com", "hunter2")
	assert.Equal(t, 0, resp.Status)
	assert.NotEmpty(t, resp.Token)
}

func TestAccounts_LogoutRevokesOnlyThatSession(t *testing.T) {
	router := newTestRouter(t)
	first := register(t, router, "a@test.com", "alice")
	second := login(t, router, "a@test.com", "hunter2").Token

	rec := doJSON(t, router, http.MethodPost, "/accounts/logout", first, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{}`, rec.Body.String())

	rec = doJSON(t, router, http.MethodGet, "/accounts/checkin", first, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/accounts/logout", first, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/accounts/checkin", second, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAccounts_CheckEmailAndUsername(t *testing.T) {
	router := newTestRouter(t)
	register(t, router, "a@test.com", "alice")

	rec := doJSON(t, router, http.MethodGet, "/accounts/checkemail?email=a%40test.com", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"email_exists":true}`, rec.Body.String())

	rec = doJSON(t, router, http.MethodGet, "/accounts/checkemail?email=b%40test.com", "", nil)
	assert.JSONEq(t, `{"email_exists":false}`, rec.Body.String())

	rec = doJSON(t, router, http.MethodGet, "/accounts/checkusername?username=alice", "", nil)
	assert.JSONEq(t, `{"username_exists":true}`, rec.Body.String())

	rec = doJSON(t, router, http.MethodGet, "/accounts/checkusername", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuth_Rejections(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/calendar/date?date="+testDate, "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	resp := decode[errorResponse](t, rec)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
	assert.Equal(t, "Unauthorized", resp.Name)

	req := httptest.NewRequest(http.MethodGet, "/accounts/checkin", nil)
	req.Header.Set("Authorization", "Token abc")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/accounts/checkin", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCalendar_PlanLifecycle(t *testing.T) {
	router := newTestRouter(t)
	tok := register(t, router, "a@test.com", "alice")

	rec := doJSON(t, router, http.MethodPost, "/calendar/plan/new", tok, gin.H{"date": testDate, "content": "X"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	planID := decode[map[string]uint32](t, rec)["plan_id"]

	rec = doJSON(t, router, http.MethodGet, "/calendar/date?date="+testDate, tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, DateResponse{DateStr: testDate, Plans: []PlanResponse{{PlanID: planID, Content: "X"}}}, decode[DateResponse](t, rec))

	rec = doJSON(t, router, http.MethodPut, "/calendar/plan/edit", tok, gin.H{"plan_id": planID, "content": "Y"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/calendar/plan/copy", tok, gin.H{"plan_id": planID, "date": "20210116"})
	require.Equal(t, http.StatusOK, rec.Code)
	copyID := decode[map[string]uint32](t, rec)["plan_id"]
	assert.NotEqual(t, planID, copyID)

	rec = doJSON(t, router, http.MethodPost, "/calendar/dates", tok, gin.H{"dates": []string{"20210116", testDate, "20210117"}})
	require.Equal(t, http.StatusOK, rec.Code)
	batch := decode[struct {
		Dates []DateResponse `json:"dates"`
	}](t, rec)
	require.Len(t, batch.Dates, 3)
	assert.Equal(t, []PlanResponse{{PlanID: copyID, Content: "Y"}}, batch.Dates[0].Plans)
	assert.Equal(t, []PlanResponse{{PlanID: planID, Content: "Y"}}, batch.Dates[1].Plans)
	assert.Equal(t, "20210117", batch.Dates[2].DateStr)
	assert.Empty(t, batch.Dates[2].Plans)

	rec = doJSON(t, router, http.MethodPut, "/calendar/date/edit", tok, gin.H{"date": testDate, "plan_ids": []uint32{copyID, planID}})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/calendar/date?date="+testDate, tok, nil)
	day := decode[DateResponse](t, rec)
	require.Len(t, day.Plans, 2)
	assert.Equal(t, copyID, day.Plans[0].PlanID)
	assert.Equal(t, planID, day.Plans[1].PlanID)
}

func TestCalendar_DeleteThenReadIsStaleOnce(t *testing.T) {
	router := newTestRouter(t)
	tok := register(t, router, "a@test.com", "alice")

	rec := doJSON(t, router, http.MethodPost, "/calendar/plan/new", tok, gin.H{"date": testDate, "content": "X"})
	planID := decode[map[string]uint32](t, rec)["plan_id"]

	rec = doJSON(t, router, http.MethodDelete, "/calendar/plan/delete", tok, gin.H{"plan_id": planID})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/calendar/date?date="+testDate, tok, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/calendar/date?date="+testDate, tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"date_str":"20210115","plans":[]}`, rec.Body.String())
}

func TestCalendar_BadRequests(t *testing.T) {
	router := newTestRouter(t)
	tok := register(t, router, "a@test.com", "alice")

	cases := []struct {
		name   string
		method string
		path   string
		body   any
	}{
		{"invalid date", http.MethodPost, "/calendar/plan/new", gin.H{"date": "2021-01-15", "content": "X"}},
		{"missing content", http.MethodPost, "/calendar/plan/new", gin.H{"date": testDate}},
		{"unknown plan copy", http.MethodPost, "/calendar/plan/copy", gin.H{"plan_id": 1, "date": testDate}},
		{"unknown plan delete", http.MethodDelete, "/calendar/plan/delete", gin.H{"plan_id": 1}},
		{"unknown plan edit", http.MethodPut, "/calendar/plan/edit", gin.H{"plan_id": 1, "content": "Y"}},
		{"unknown plan in date", http.MethodPut, "/calendar/date/edit", gin.H{"date": testDate, "plan_ids": []uint32{1}}},
		{"missing dates", http.MethodPost, "/calendar/dates", gin.H{}},
		{"missing date query", http.MethodGet, "/calendar/date", nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doJSON(t, router, tc.method, tc.path, tok, tc.body)
			require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			assert.Equal(t, "Bad Request", decode[errorResponse](t, rec).Name)
		})
	}
}

func TestCalendar_ExportDisabled(t *testing.T) {
	router := newTestRouter(t)
	tok := register(t, router, "a@test.com", "alice")

	rec := doJSON(t, router, http.MethodPost, "/calendar/export", tok, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "export storage not configured", decode[errorResponse](t, rec).Message)

	rec = doJSON(t, router, http.MethodGet, "/calendar/exports", tok, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
