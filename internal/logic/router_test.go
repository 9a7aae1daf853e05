package logic

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"berean-backend/internal/common"
	"berean-backend/internal/db"
	"berean-backend/internal/progress"
)

var testNow = time.Date(2024, 6, 3, 8, 0, 0, 0, time.UTC)

type testEnv struct {
	s      *Server
	r      *gin.Engine
	conn   *gorm.DB
	plan   *db.ReadingPlan
	apiHit int
}

// newTestEnv wires a server against an in-memory database holding a three
// day plan, a fake ESV endpoint and a fake API.Bible endpoint.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	conn, err := db.OpenTestDB()
	require.NoError(t, err)
	db.SetDB(conn)
	t.Cleanup(func() { db.SetDB(nil) })

	plan := &db.ReadingPlan{Name: "Test Plan", TotalDays: 3, DailyReadings: []db.DailyReading{
		{Day: 1, Phase: 1, OTCycle: 1, NTPassages: []string{"John 1"}, OTPassages: []string{"Genesis 1-2"}},
		{Day: 2, Phase: 1, OTCycle: 1, NTPassages: []string{"John 1"}, OTPassages: []string{"Genesis 3-4"}},
		{Day: 3, Phase: 1, OTCycle: 1, NTPassages: []string{"John 1"}},
	}}
	require.NoError(t, db.SeedPlan(conn, plan))
	require.NoError(t, db.SeedAchievements(conn))

	env := &testEnv{conn: conn, plan: plan}
	esv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		refs := strings.Split(r.URL.Query().Get("q"), ";")
		passages := make([]string, len(refs))
		for i, ref := range refs {
			passages[i] = ref + " text"
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"query": r.URL.Query().Get("q"), "passages": passages})
	}))
	t.Cleanup(esv.Close)
	apiBible := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		env.apiHit++
		if r.URL.Path != "/bibles" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"data": []map[string]any{
			{"id": "bba9f40183526463-01", "name": "Berean Standard Bible", "abbreviation": "BSB", "language": map[string]string{"id": "eng"}},
			{"id": "de4e12af7f28f599-01", "name": "King James (Authorised) Version", "abbreviation": "engKJV", "language": map[string]string{"id": "eng"}},
		}})
	}))
	t.Cleanup(apiBible.Close)

	cfg := &common.Config{
		JWTSecret:            "test-secret-0123456789",
		SessionTTL:           time.Hour,
		ESVAPIURL:            esv.URL,
		ESVAPIKey:            "esv-key",
		BibleAPIURL:          apiBible.URL,
		BibleAPIKey:          "bible-key",
		ProviderRPS:          1000,
		TranslationTTL:       time.Hour,
		Location:             time.UTC,
		MaxReflectionsPerDay: 2,
	}
	env.s = NewServer(cfg, conn, NewMetrics())
	env.s.now = func() time.Time { return testNow }
	env.s.progress = progress.NewService(conn, time.UTC,
		progress.WithNow(func() time.Time { return testNow }),
		progress.WithObserver(env.s.metrics))
	env.r = SetupRouter(env.s)
	return env
}

// user creates an account directly and returns its id and a session token.
func (e *testEnv) user(t *testing.T, email string) (string, string) {
	t.Helper()
	u := &db.User{Name: "Reader", Email: email, PreferredTranslation: "ESV", Timezone: "UTC"}
	require.NoError(t, db.CreateUserWithStreak(e.conn, u))
	token, err := e.s.auth.GenerateToken(u.ID)
	require.NoError(t, err)
	return u.ID, token
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	} else {
		rd = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, path, rd)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestPingHandler(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, http.MethodGet, "/ping", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pong", decode(t, w)["message"])
}

func TestProtectedRoutesNeedSession(t *testing.T) {
	env := newTestEnv(t)
	for _, path := range []string{"/api/dashboard", "/api/reading/1", "/api/profile", "/api/bible/translations"} {
		w := env.do(t, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
		assert.Equal(t, "Unauthorized", decode(t, w)["message"])
	}
	w := env.do(t, http.MethodGet, "/api/profile", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSignupAndLogin(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/auth/signup", "", gin.H{"name": "  Priscilla ", "email": "p@example.com", "password": "longenough"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	user := decode(t, w)["user"].(map[string]any)
	assert.Equal(t, "Priscilla", user["name"])

	var stored db.User
	require.NoError(t, env.conn.Where("email = ?", "p@example.com").First(&stored).Error)
	assert.Equal(t, "light", stored.Theme)
	assert.Equal(t, "medium", stored.FontSize)
	assert.True(t, stored.NotificationsEnabled)
	assert.Equal(t, "UTC", stored.Timezone)
	var streak db.ReadingStreak
	require.NoError(t, env.conn.Where("user_id = ?", stored.ID).First(&streak).Error)
	assert.Equal(t, 0, streak.CurrentStreak)
	assert.Nil(t, streak.LastReadingDate)

	w = env.do(t, http.MethodPost, "/api/signup", "", gin.H{"name": "Again", "email": "p@example.com", "password": "longenough"})
	assert.Equal(t, http.StatusConflict, w.Code)

	cases := []struct {
		body gin.H
		msg  string
	}{
		{gin.H{"name": " ", "email": "a@b.co", "password": "longenough"}, "Name is required"},
		{gin.H{"name": "A", "email": "not-an-email", "password": "longenough"}, "Invalid email address"},
		{gin.H{"name": "A", "email": "a@b.co", "password": "short"}, "Password must be at least 8 characters long"},
		{gin.H{"name": "A", "email": "a@b.co", "password": strings.Repeat("p", 80)}, "Password must be at most 72 bytes"},
	}
	for _, tc := range cases {
		w := env.do(t, http.MethodPost, "/api/auth/signup", "", tc.body)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, tc.msg, decode(t, w)["message"])
	}
	var users int64
	require.NoError(t, env.conn.Model(&db.User{}).Count(&users).Error)
	assert.Equal(t, int64(1), users)

	w = env.do(t, http.MethodPost, "/api/auth/login", "", gin.H{"email": "p@example.com", "password": "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(t, http.MethodPost, "/api/auth/login", "", gin.H{"email": "p@example.com", "password": "longenough"})
	require.Equal(t, http.StatusOK, w.Code)
	token, _ := decode(t, w)["token"].(string)
	require.NotEmpty(t, token)
	var cookie *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == common.SessionCookieName {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)

	req := httptest.NewRequest(http.MethodGet, "/api/profile", nil)
	req.AddCookie(&http.Cookie{Name: common.SessionCookieName, Value: cookie.Value})
	rec := httptest.NewRecorder()
	env.r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	w = env.do(t, http.MethodPost, "/api/auth/logout", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestReadingDayAndCompletion(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.user(t, "a@example.com")

	for _, day := range []string{"0", "4", "x"} {
		w := env.do(t, http.MethodGet, "/api/reading/"+day, token, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, day)
	}

	w := env.do(t, http.MethodGet, "/api/reading/1", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	nav := body["navigation"].(map[string]any)
	assert.EqualValues(t, 3, nav["previousDay"])
	assert.EqualValues(t, 2, nav["nextDay"])
	progressID := body["progress"].(map[string]any)["id"].(string)

	// revisiting reuses the row
	w = env.do(t, http.MethodGet, "/api/reading/1", token, nil)
	assert.Equal(t, progressID, decode(t, w)["progress"].(map[string]any)["id"])

	w = env.do(t, http.MethodPost, "/api/progress/complete", token, gin.H{"progressId": progressID, "section": "nt", "ntReadingTimeSeconds": 300})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body = decode(t, w)
	p := body["progress"].(map[string]any)
	assert.Equal(t, true, p["ntCompleted"])
	assert.Equal(t, false, p["isCompleted"])
	assert.EqualValues(t, 0, body["newAchievements"])

	w = env.do(t, http.MethodPost, "/api/progress/complete", token, gin.H{"progressId": progressID, "section": "ot"})
	require.Equal(t, http.StatusOK, w.Code)
	body = decode(t, w)
	assert.Equal(t, true, body["progress"].(map[string]any)["isCompleted"])
	assert.EqualValues(t, 1, body["newAchievements"])
	assert.Equal(t, []any{"First Steps"}, body["awarded"])
	assert.EqualValues(t, 1, body["streak"].(map[string]any)["currentStreak"])

	w = env.do(t, http.MethodPost, "/api/progress/complete", token, gin.H{"progressId": progressID, "readingTimeSeconds": 600})
	require.Equal(t, http.StatusOK, w.Code)
	body = decode(t, w)
	assert.EqualValues(t, 1, body["newAchievements"])
	assert.Equal(t, []any{}, body["awarded"])
	assert.EqualValues(t, 600, body["progress"].(map[string]any)["totalReadingTimeSeconds"])
}

func TestCompletionErrors(t *testing.T) {
	env := newTestEnv(t)
	_, owner := env.user(t, "owner@example.com")
	_, other := env.user(t, "other@example.com")

	w := env.do(t, http.MethodGet, "/api/reading/2", owner, nil)
	require.Equal(t, http.StatusOK, w.Code)
	progressID := decode(t, w)["progress"].(map[string]any)["id"].(string)

	w = env.do(t, http.MethodPost, "/api/progress/complete", other, gin.H{"progressId": progressID})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, http.MethodPost, "/api/progress/complete", owner, gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Progress ID is required", decode(t, w)["message"])

	w = env.do(t, http.MethodPost, "/api/progress/complete", owner, gin.H{"progressId": "missing"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodPost, "/api/progress/complete", owner, gin.H{"progressId": progressID, "section": "psalms"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPlanOverviewDashboardAndCalendar(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.user(t, "a@example.com")

	w := env.do(t, http.MethodGet, "/api/reading/1", token, nil)
	id1 := decode(t, w)["progress"].(map[string]any)["id"].(string)
	env.do(t, http.MethodGet, "/api/reading/2", token, nil)
	w = env.do(t, http.MethodPost, "/api/progress/complete", token, gin.H{"progressId": id1})
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodGet, "/api/reading-plan", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	prog := body["progress"].(map[string]any)
	assert.EqualValues(t, 1, prog["completedDays"])
	assert.EqualValues(t, 3, prog["totalDays"])
	assert.EqualValues(t, 33, prog["progressPercentage"])
	assert.EqualValues(t, 2, prog["currentDay"])
	assert.EqualValues(t, 3, prog["nextDay"])
	assert.Len(t, body["dailyReadings"], 3)
	assert.Len(t, body["userProgress"], 2)

	w = env.do(t, http.MethodGet, "/api/reading-plan?planId=nope", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodGet, "/api/dashboard", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body = decode(t, w)
	dash := body["progress"].(map[string]any)
	assert.EqualValues(t, 2, dash["currentDay"])
	assert.Equal(t, db.PhaseNames[1], dash["currentPhaseName"])
	assert.Len(t, body["achievements"], 1)
	assert.Len(t, body["recentReadings"], 1)
	assert.EqualValues(t, 1, body["streak"].(map[string]any)["currentStreak"])

	w = env.do(t, http.MethodGet, "/api/progress/calendar", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body = decode(t, w)
	assert.Equal(t, map[string]any{"2024-06-03": float64(1)}, body["days"])
	assert.EqualValues(t, 1, body["totalCompleted"])

	w = env.do(t, http.MethodGet, "/api/stats", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body = decode(t, w)
	assert.EqualValues(t, 1, body["totalUsers"])
	assert.EqualValues(t, 1, body["totalCompletedReadings"])
}

func TestNotes(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.user(t, "a@example.com")
	readingID := env.plan.DailyReadings[0].ID
	require.NotEmpty(t, readingID)

	w := env.do(t, http.MethodPost, "/api/notes", token, gin.H{"readingId": readingID, "content": "   "})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, "/api/notes", token, gin.H{"readingId": "missing", "content": "x"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodPost, "/api/notes", token, gin.H{"readingId": readingID, "content": " In the beginning was the Word "})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "In the beginning was the Word", decode(t, w)["note"].(map[string]any)["content"])

	w = env.do(t, http.MethodGet, "/api/notes?readingId="+readingID, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	notes := decode(t, w)["notes"].([]any)
	require.Len(t, notes, 1)
	reading := notes[0].(map[string]any)["reading"].(map[string]any)
	assert.EqualValues(t, 1, reading["day"])
	assert.Equal(t, []any{"John 1", "Genesis 1-2"}, reading["passages"])

	_, other := env.user(t, "b@example.com")
	w = env.do(t, http.MethodGet, "/api/notes", other, nil)
	assert.Empty(t, decode(t, w)["notes"])
}

func TestProfileUpdate(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.user(t, "a@example.com")

	bad := []struct {
		body  gin.H
		field string
	}{
		{gin.H{"theme": "neon"}, "theme"},
		{gin.H{"fontSize": "huge"}, "fontSize"},
		{gin.H{"preferredReadingTime": 0}, "preferredReadingTime"},
		{gin.H{"preferredReadingTime": 500}, "preferredReadingTime"},
		{gin.H{"preferredTimeOfDay": "dawn"}, "preferredTimeOfDay"},
		{gin.H{"preferredStartTime": "25:00"}, "preferredStartTime"},
		{gin.H{"timezone": "Mars/Olympus"}, "timezone"},
		{gin.H{"name": "  "}, "name"},
	}
	for _, tc := range bad {
		w := env.do(t, http.MethodPatch, "/api/profile", token, tc.body)
		assert.Equal(t, http.StatusBadRequest, w.Code, tc.field)
		assert.Contains(t, decode(t, w)["message"], tc.field)
	}

	w := env.do(t, http.MethodPatch, "/api/profile", token, gin.H{
		"theme": "sepia", "preferredReadingTime": 20, "preferredStartTime": "06:30",
		"timezone": "Europe/London", "notificationsEnabled": false,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	prefs := decode(t, w)["user"].(map[string]any)["preferences"].(map[string]any)
	assert.Equal(t, "sepia", prefs["theme"])
	assert.Equal(t, "medium", prefs["fontSize"])
	assert.EqualValues(t, 20, prefs["preferredReadingTime"])
	assert.Equal(t, "06:30", prefs["preferredStartTime"])
	assert.Equal(t, "Europe/London", prefs["timezone"])
	assert.Equal(t, false, prefs["notificationsEnabled"])
}

func TestTranslationPreferences(t *testing.T) {
	env := newTestEnv(t)
	self, token := env.user(t, "a@example.com")
	other, _ := env.user(t, "b@example.com")

	w := env.do(t, http.MethodGet, "/api/user/translation-preferences?userId="+other, token, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, http.MethodGet, "/api/user/translation-preferences?userId="+self, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ESV", decode(t, w)["preferredTranslation"])

	w = env.do(t, http.MethodPost, "/api/user/update-translation-history", token, gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = env.do(t, http.MethodPost, "/api/user/update-translation-history", token, gin.H{"userId": other, "translationId": "KJV"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	for _, id := range []string{"BSB", "KJV", "BSB"} {
		w = env.do(t, http.MethodPost, "/api/user/update-translation-history", token, gin.H{"translationId": id})
		require.Equal(t, http.StatusOK, w.Code)
	}
	body := decode(t, w)
	assert.Equal(t, []any{"BSB", "KJV"}, body["translationHistory"])
	assert.Equal(t, "BSB", body["preferredTranslation"])

	w = env.do(t, http.MethodPut, "/api/user/translation-preferences", token, gin.H{
		"secondaryTranslation": "KJV", "favoriteTranslations": []string{"ESV", "BSB"}, "preferredLanguage": "",
	})
	require.Equal(t, http.StatusOK, w.Code)
	body = decode(t, w)
	assert.Equal(t, "KJV", body["secondaryTranslation"])
	assert.Equal(t, "eng", body["preferredLanguage"])
	assert.Equal(t, []any{"ESV", "BSB"}, body["favoriteTranslations"])

	w = env.do(t, http.MethodPut, "/api/user/translation-preferences", token, gin.H{"secondaryTranslation": ""})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, decode(t, w)["secondaryTranslation"])
}

func TestBibleEndpoints(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.user(t, "a@example.com")

	w := env.do(t, http.MethodGet, "/api/bible/passage", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodGet, "/api/bible/passage?passages=John%203:16,%20John%203:18", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, "esv", body["source"])
	assert.Equal(t, "John 3:16, 3:18", body["reference"])
	assert.Equal(t, []any{"John 3:16", "John 3:18"}, body["passages"])
	assert.Contains(t, body["content"], "John 3:16 text")

	w = env.do(t, http.MethodGet, "/api/bible/translations", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body = decode(t, w)
	assert.EqualValues(t, 3, body["count"])
	hits := env.apiHit

	w = env.do(t, http.MethodGet, "/api/bible/translation-groups", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, decode(t, w)["groups"])
	assert.Equal(t, hits, env.apiHit, "groups should be served from the cache")

	w = env.do(t, http.MethodGet, "/api/bible/translations/search?q=berean", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, decode(t, w)["count"])

	env.s.cfg.BibleAPIKey = ""
	broken := NewServer(env.s.cfg, env.conn, NewMetrics())
	r := SetupRouter(broken)
	req := httptest.NewRequest(http.MethodGet, "/api/bible/translations", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body = decode(t, rec)
	assert.Equal(t, "Failed to fetch translations", body["message"])
	assert.NotEmpty(t, body["error"])
}

func TestExport(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.user(t, "a@example.com")

	w := env.do(t, http.MethodGet, "/api/reading/1", token, nil)
	id := decode(t, w)["progress"].(map[string]any)["id"].(string)
	env.do(t, http.MethodPost, "/api/progress/complete", token, gin.H{"progressId": id, "totalReadingTimeSeconds": 900})
	env.do(t, http.MethodPost, "/api/notes", token, gin.H{"readingId": env.plan.DailyReadings[0].ID, "content": "Light"})

	w = env.do(t, http.MethodGet, "/api/profile/export", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, `attachment; filename="berean-data-2024-06-03.json"`, w.Header().Get("Content-Disposition"))
	body := decode(t, w)
	stats := body["statistics"].(map[string]any)
	assert.EqualValues(t, 1, stats["totalDaysCompleted"])
	assert.EqualValues(t, 1, stats["totalNotes"])
	assert.EqualValues(t, 1, stats["totalAchievements"])
	assert.EqualValues(t, 900, stats["averageReadingTime"])
	assert.Len(t, body["readingProgress"], 1)

	w = env.do(t, http.MethodGet, "/api/profile/export?format=xlsx", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{"Profile", "Progress", "Notes", "Achievements"}, f.GetSheetList())
	v, err := f.GetCellValue("Notes", "C2")
	require.NoError(t, err)
	assert.Equal(t, "Light", v)

	w = env.do(t, http.MethodGet, "/api/profile/export?format=csv", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

type fakeReflector struct {
	calls   int
	history []db.ReflectionRecord
}

func (f *fakeReflector) Reflect(_ context.Context, passages []string, history []db.ReflectionRecord, message string) (string, error) {
	f.calls++
	f.history = history
	return "What stood out to you in " + strings.Join(passages, "; ") + "?", nil
}

func TestReflection(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.user(t, "a@example.com")
	readingID := env.plan.DailyReadings[0].ID

	w := env.do(t, http.MethodPost, "/api/reflection", token, gin.H{"readingId": readingID})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	fake := &fakeReflector{}
	env.s.reflector = fake
	tick := 0
	env.s.now = func() time.Time {
		tick++
		return testNow.Add(time.Duration(tick) * time.Minute)
	}

	w = env.do(t, http.MethodPost, "/api/reflection", token, gin.H{"readingId": readingID, "content": strings.Repeat("é", common.MaxReflectionRunes+1)})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, "/api/reflection", token, gin.H{"readingId": readingID})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "What stood out to you in John 1; Genesis 1-2?", decode(t, w)["reply"])
	assert.Empty(t, fake.history)

	w = env.do(t, http.MethodPost, "/api/reflection", token, gin.H{"readingId": readingID, "content": "The light shines in darkness."})
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, fake.history, 2)
	assert.True(t, fake.history[0].IsUser)
	assert.False(t, fake.history[1].IsUser)

	w = env.do(t, http.MethodPost, "/api/reflection", token, gin.H{"readingId": readingID, "content": "again"})
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, 2, fake.calls)

	w = env.do(t, http.MethodGet, "/api/reflection/history?readingId="+readingID, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	records := decode(t, w)["records"].([]any)
	require.Len(t, records, 4)
	assert.Equal(t, "The light shines in darkness.", records[2].(map[string]any)["content"])
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodGet, "/ping", "", nil)
	w := env.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `berean_http_requests_total{method="GET",route="/ping",status="200"} 1`)
}
