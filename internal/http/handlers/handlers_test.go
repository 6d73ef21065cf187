package handlers

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telegram_miniapp/internal/config"
	"telegram_miniapp/internal/domain"
	"telegram_miniapp/internal/http/middleware"
	"telegram_miniapp/internal/repository"
	"telegram_miniapp/internal/service"
	"telegram_miniapp/internal/telegram"
)

const botToken = "123456:HANDLER-TEST"

func init() {
	gin.SetMode(gin.TestMode)
}

type memUsers struct {
	users   map[int64]*domain.User
	touched []int64
	err     error
}

func (m *memUsers) Upsert(_ context.Context, u *telegram.User) (*domain.User, error) {
	if m.err != nil {
		return nil, m.err
	}
	d := &domain.User{TgID: u.ID, FirstName: u.FirstName, Username: u.Username}
	m.users[u.ID] = d
	return d, nil
}

func (m *memUsers) GetByTgID(_ context.Context, id int64) (*domain.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, repository.ErrUserNotFound
}

func (m *memUsers) Touch(_ context.Context, id int64) error {
	if _, ok := m.users[id]; !ok {
		return repository.ErrUserNotFound
	}
	m.touched = append(m.touched, id)
	return nil
}

type memAudit struct{ entries []*domain.AuditLog }

func (m *memAudit) Create(_ context.Context, log *domain.AuditLog) error {
	m.entries = append(m.entries, log)
	return nil
}

func (m *memAudit) GetByUserID(_ context.Context, userID int64, limit int) ([]*domain.AuditLog, error) {
	var out []*domain.AuditLog
	for _, e := range m.entries {
		if e.UserID == userID && len(out) < limit {
			out = append(out, e)
		}
	}
	return out, nil
}

func initData(userJSON string, authDate time.Time) string {
	fields := map[string]string{"auth_date": strconv.FormatInt(authDate.Unix(), 10)}
	if userJSON != "" {
		fields["user"] = userJSON
	}
	return telegram.Sign(fields, botToken)
}

type fixture struct {
	router *gin.Engine
	users  *memUsers
	h      *Handler
}

func newFixture(t *testing.T, token string, upstream string, production bool) *fixture {
	t.Helper()
	return buildFixture(t, token, upstream, production, service.NewPlainSessionCodec(0))
}

func newSignedFixture(t *testing.T) *fixture {
	t.Helper()
	sessions, err := service.NewSignedSessionCodec("handler-test-secret", time.Hour)
	require.NoError(t, err)
	return buildFixture(t, botToken, "", false, sessions)
}

func buildFixture(t *testing.T, token string, upstream string, production bool, sessions service.SessionCodec) *fixture {
	t.Helper()
	users := &memUsers{users: map[int64]*domain.User{}}
	auth := service.NewTelegramAuthService(token, 24*time.Hour)
	h := NewHandler(auth, sessions, service.NewChatRelay(upstream, time.Second), users, HandlerConfig{
		BotUsername: "test_bot",
		Production:  production,
	})

	r := gin.New()
	r.POST("/api/telegram-auth", h.TelegramAuth)
	r.GET("/api/telegram-auth", h.TelegramAuthStatus)
	r.POST("/api/chat", middleware.Identity(middleware.IdentityOptions{
		Auth: auth, Sessions: sessions, Policy: config.AuthAdvisory, BodyField: "initData", MaxLength: 4096,
	}), h.Chat)
	r.POST("/api/chat/strict", middleware.Identity(middleware.IdentityOptions{
		Auth: auth, Sessions: sessions, Policy: config.AuthRequired, BodyField: "initData", MaxLength: 4096,
	}), h.Chat)
	r.GET("/api/me", middleware.Identity(middleware.IdentityOptions{
		Auth: auth, Sessions: sessions, Policy: config.AuthRequired, MaxLength: 4096,
	}), h.Me)
	r.POST("/api/theme", h.Theme)
	return &fixture{router: r, users: users, h: h}
}

func (f *fixture) do(method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func TestTelegramAuth_Success(t *testing.T) {
	f := newFixture(t, botToken, "", false)
	now := time.Now()
	payload := initData(`{"id":42,"first_name":"Ann","username":"ann","is_premium":true,"language_code":"en"}`, now)

	w := f.do(http.MethodPost, "/api/telegram-auth", gin.H{"initData": payload}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp AuthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	require.NotNil(t, resp.User)
	assert.Equal(t, int64(42), resp.User.ID)
	assert.Equal(t, "Ann", resp.User.FirstName)
	assert.True(t, resp.User.IsPremium)
	assert.Equal(t, now.Unix(), resp.AuthDate)
	assert.Contains(t, w.Body.String(), `"firstName":"Ann"`)

	claims, err := f.h.Sessions.Parse(resp.SessionToken)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Contains(t, f.users.users, int64(42))

	// an unsigned token is not enough for /api/me, init data is
	w = f.do(http.MethodGet, "/api/me", nil, map[string]string{"Authorization": "Bearer " + resp.SessionToken})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = f.do(http.MethodGet, "/api/me", nil, map[string]string{service.InitDataHeader: payload})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"id":42`)
	assert.Contains(t, w.Body.String(), `"source":"init_data"`)
	assert.Contains(t, w.Body.String(), `"profile"`)
	assert.Contains(t, w.Body.String(), `"user":{"id":42`)
}

func TestTelegramAuth_SignedSessionOnMe(t *testing.T) {
	f := newSignedFixture(t)
	w := f.do(http.MethodPost, "/api/telegram-auth", gin.H{"initData": initData(`{"id":42,"first_name":"Ann"}`, time.Now())}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp AuthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	w = f.do(http.MethodGet, "/api/me", nil, map[string]string{"Authorization": "Bearer " + resp.SessionToken})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"profile"`)
	assert.Contains(t, w.Body.String(), `"signed":true`)
	assert.Equal(t, []int64{42}, f.users.touched)
}

func TestTelegramAuth_HeaderSource(t *testing.T) {
	f := newFixture(t, botToken, "", false)
	payload := initData(`{"id":7,"first_name":"Bo"}`, time.Now())

	w := f.do(http.MethodPost, "/api/telegram-auth", gin.H{"initData": "garbage"}, map[string]string{service.InitDataHeader: payload})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestTelegramAuth_Failures(t *testing.T) {
	f := newFixture(t, botToken, "", false)
	valid := initData(`{"id":1,"first_name":"A"}`, time.Now())

	cases := []struct {
		name    string
		body    any
		code    int
		details string
	}{
		{"no body field", gin.H{}, http.StatusBadRequest, ""},
		{"empty", gin.H{"initData": ""}, http.StatusBadRequest, ""},
		{"too long", gin.H{"initData": strings.Repeat("a", 4097)}, http.StatusBadRequest, ""},
		{"tampered", gin.H{"initData": strings.Replace(valid, "first_name%22%3A%22A", "first_name%22%3A%22B", 1)}, http.StatusUnauthorized, "signature_mismatch"},
		{"expired", gin.H{"initData": initData(`{"id":1}`, time.Now().Add(-25*time.Hour))}, http.StatusUnauthorized, "expired"},
		{"missing hash", gin.H{"initData": "auth_date=1"}, http.StatusUnauthorized, "missing_hash"},
		{"no user", gin.H{"initData": initData("", time.Now())}, http.StatusBadRequest, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := f.do(http.MethodPost, "/api/telegram-auth", tc.body, nil)
			assert.Equal(t, tc.code, w.Code, w.Body.String())
			if tc.details != "" {
				assert.JSONEq(t, `{"error":"Invalid Telegram data","details":"`+tc.details+`"}`, w.Body.String())
			}
		})
	}
}

func TestTelegramAuth_NotConfigured(t *testing.T) {
	f := newFixture(t, "", "", false)
	w := f.do(http.MethodPost, "/api/telegram-auth", gin.H{"initData": "auth_date=1&hash=ab"}, nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestTelegramAuth_StoreErrorIsNotFatal(t *testing.T) {
	f := newFixture(t, botToken, "", false)
	f.users.err = errors.New("db down")
	w := f.do(http.MethodPost, "/api/telegram-auth", gin.H{"initData": initData(`{"id":9,"first_name":"C"}`, time.Now())}, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestTelegramAuthStatus(t *testing.T) {
	f := newFixture(t, botToken, "", false)
	w := f.do(http.MethodGet, "/api/telegram-auth", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"configured":true,"botUsername":"test_bot","message":"Bot token is configured","signedSession":false}`, w.Body.String())

	f = newFixture(t, "", "", false)
	f.h.cfg.BotUsername = ""
	w = f.do(http.MethodGet, "/api/telegram-auth", nil, nil)
	assert.JSONEq(t, `{"configured":false,"botUsername":"Not set","message":"Bot token is missing","signedSession":false}`, w.Body.String())

	f = newFixture(t, botToken, "", true)
	w = f.do(http.MethodGet, "/api/telegram-auth", nil, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestMe_RequiresSession(t *testing.T) {
	f := newSignedFixture(t)
	w := f.do(http.MethodGet, "/api/me", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token, err := f.h.Sessions.Issue(5)
	require.NoError(t, err)
	w = f.do(http.MethodGet, "/api/me", nil, map[string]string{middleware.SessionHeader: token})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":5,"source":"session","signed":true}`, w.Body.String())
	assert.Empty(t, f.users.touched, "unknown users are not touched")
}

func TestMe_ForgedUnsignedTokenIsRejected(t *testing.T) {
	f := newFixture(t, botToken, "http://unused.invalid", false)
	audit := &memAudit{}
	f.h.Audit = service.NewAuditService(audit)

	req := httptest.NewRequest(http.MethodPost, "/api/telegram-auth", strings.NewReader(`{"initData":"`+initData(`{"id":777,"first_name":"Victim"}`, time.Now())+`"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "VictimPhone/1.0")
	req.RemoteAddr = "10.1.2.3:5555"
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, audit.entries, 1)

	forged := base64.StdEncoding.EncodeToString([]byte("777:" + strconv.FormatInt(time.Now().UnixMilli(), 10)))
	for _, headers := range []map[string]string{
		{"Authorization": "Bearer " + forged},
		{middleware.SessionHeader: forged},
	} {
		w = f.do(http.MethodGet, "/api/me", nil, headers)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.NotContains(t, w.Body.String(), "Victim")
		assert.NotContains(t, w.Body.String(), "10.1.2.3")
		assert.NotContains(t, w.Body.String(), "VictimPhone")

		w = f.do(http.MethodPost, "/api/chat/strict", gin.H{"messages": []gin.H{{"role": "user", "content": "hi"}}}, headers)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	}
	assert.Empty(t, f.users.touched)
}

func TestMe_UnsignedSessionHidesLoginHistory(t *testing.T) {
	f := newFixture(t, botToken, "", false)
	audit := &memAudit{}
	f.h.Audit = service.NewAuditService(audit)
	require.NoError(t, audit.Create(context.Background(), &domain.AuditLog{UserID: 8, Action: domain.AuditActionLogin, IP: "10.9.9.9"}))

	// an advisory route accepts the unsigned token, the handler still withholds audit rows
	r := gin.New()
	r.GET("/me", middleware.Identity(middleware.IdentityOptions{
		Sessions: f.h.Sessions, Policy: config.AuthAdvisory,
	}), f.h.Me)
	token, err := f.h.Sessions.Issue(8)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set(middleware.SessionHeader, token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":8,"source":"session","signed":false}`, w.Body.String())
}

func TestChat_RequiresMessages(t *testing.T) {
	f := newFixture(t, botToken, "http://unused.invalid", false)
	for _, body := range []any{gin.H{}, gin.H{"messages": []any{}}, "not an object"} {
		w := f.do(http.MethodPost, "/api/chat", body, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.JSONEq(t, `{"error":"Messages array is required"}`, w.Body.String())
	}

	w := f.do(http.MethodPost, "/api/chat", gin.H{"messages": []gin.H{{"role": "robot", "content": "x"}}}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestChat_NoUpstream(t *testing.T) {
	f := newFixture(t, botToken, "", false)
	w := f.do(http.MethodPost, "/api/chat", gin.H{"messages": []gin.H{{"role": "user", "content": "hi"}}}, nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestChat_RelaysAndStreams(t *testing.T) {
	var got service.UpstreamRequest
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for _, chunk := range []string{"data: Hel\n\n", "data: lo\n\n"} {
			_, _ = io.WriteString(w, chunk)
			flusher.Flush()
		}
	}))
	defer upstream.Close()

	f := newFixture(t, botToken, upstream.URL, false)
	body := gin.H{
		"initData": initData(`{"id":42,"first_name":"Ann"}`, time.Now()),
		"messages": []gin.H{{"role": "user", "parts": []gin.H{{"type": "text", "text": "hi"}}}},
	}
	w := f.do(http.MethodPost, "/api/chat", body, nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	assert.Equal(t, "data: Hel\n\ndata: lo\n\n", w.Body.String())
	require.NotNil(t, got.TelegramUserID)
	assert.Equal(t, int64(42), *got.TelegramUserID)
	assert.Equal(t, []service.ModelMessage{{Role: "user", Content: "hi"}}, got.Messages)
}

func TestChat_AnonymousUnderAdvisory(t *testing.T) {
	var got service.UpstreamRequest
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = io.WriteString(w, "ok")
	}))
	defer upstream.Close()

	f := newFixture(t, botToken, upstream.URL, false)
	w := f.do(http.MethodPost, "/api/chat", gin.H{"initData": "bogus", "messages": []gin.H{{"role": "user", "content": "hi"}}}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, got.TelegramUserID)
}

func TestChat_UpstreamFailure(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer upstream.Close()

	f := newFixture(t, botToken, upstream.URL, false)
	w := f.do(http.MethodPost, "/api/chat", gin.H{"messages": []gin.H{{"role": "user", "content": "hi"}}}, nil)
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestTheme(t *testing.T) {
	f := newFixture(t, botToken, "", false)
	w := f.do(http.MethodPost, "/api/theme", gin.H{
		"theme_params": gin.H{"bg_color": "#000000", "text_color": "#ffffff"},
		"viewport":     gin.H{"height": 640, "stableHeight": 600},
	}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp ThemeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.IsDark)
	assert.Equal(t, "0 0 0", resp.Variables["--background"])
	assert.Equal(t, "1 0 0", resp.Variables["--foreground"])
	assert.Equal(t, "640px", resp.Variables["--tg-viewport-height"])
	assert.True(t, strings.HasPrefix(resp.Stylesheet, ":root{"))

	w = f.do(http.MethodPost, "/api/theme", "nope", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTelegramAuth_Audited(t *testing.T) {
	f := newSignedFixture(t)
	audit := &memAudit{}
	f.h.Audit = service.NewAuditService(audit)

	w := f.do(http.MethodPost, "/api/telegram-auth", gin.H{"initData": "auth_date=1&hash=" + strings.Repeat("0", 64)}, nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	w = f.do(http.MethodPost, "/api/telegram-auth", gin.H{"initData": initData(`{"id":77,"first_name":"D"}`, time.Now())}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	require.Len(t, audit.entries, 2)
	assert.Equal(t, domain.AuditActionRejected, audit.entries[0].Action)
	assert.Equal(t, "signature_mismatch", audit.entries[0].Details["reason"])
	assert.Equal(t, domain.AuditActionLogin, audit.entries[1].Action)
	assert.Equal(t, int64(77), audit.entries[1].UserID)

	var resp AuthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	w = f.do(http.MethodGet, "/api/me", nil, map[string]string{"Authorization": "Bearer " + resp.SessionToken})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"recentLogins"`)
}
