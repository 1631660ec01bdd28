package handler

import (
	"bytes"
	"context"
	"edu-forum-go/internal/config"
	"edu-forum-go/internal/model"
	"edu-forum-go/internal/pipeline"
	"edu-forum-go/internal/repository"
	"edu-forum-go/internal/service"
	"edu-forum-go/internal/testutil"
	"edu-forum-go/pkg/llm"
	"edu-forum-go/pkg/token"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type stubLLM struct {
	reply string
	err   error
}

func (s *stubLLM) ChatMessages(context.Context, []llm.Message, *llm.GenerationParams) (string, error) {
	return s.reply, s.err
}

type memoryTokens struct {
	mu      sync.Mutex
	revoked map[string]bool
}

func (m *memoryTokens) Revoke(_ context.Context, tok string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revoked[tok] = true
	return nil
}

func (m *memoryTokens) IsRevoked(_ context.Context, tok string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.revoked[tok], nil
}

type testServer struct {
	db     *gorm.DB
	llm    *stubLLM
	router *gin.Engine
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.DB(t)
	stub := &stubLLM{reply: "model output"}
	jwtManager := token.NewJWTManager("test-secret", 1)

	userRepo := repository.NewUserRepository(db)
	discussionRepo := repository.NewDiscussionRepository(db)
	messageRepo := repository.NewMessageRepository(db)

	bot := pipeline.NewBotResponder(stub, config.BotConfig{}, config.LLMGenerationConfig{Temperature: 0.7, MaxTokens: 150})
	router := NewRouter(RouterConfig{
		DB:                db,
		JWTManager:        jwtManager,
		UserService:       service.NewUserService(userRepo, &memoryTokens{revoked: map[string]bool{}}, jwtManager),
		DiscussionService: service.NewDiscussionService(discussionRepo),
		MessageService:    service.NewMessageService(discussionRepo, messageRepo, bot, nil),
		AllowOrigins:      []string{"*"},
	})
	return &testServer{db: db, llm: stub, router: router}
}

func (s *testServer) do(t *testing.T, method, path, tok string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status: got=%d want=%d body=%s", rec.Code, want, rec.Body.String())
	}
}

type loginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	ID          uint   `json:"id"`
}

// signup 注册并登录，返回登录响应。
func (s *testServer) signup(t *testing.T, username, role string) loginResponse {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/register", "", gin.H{"username": username, "password": "pw-" + username, "role": role})
	expectStatus(t, rec, http.StatusCreated)

	rec = s.do(t, http.MethodPost, "/api/login", "", gin.H{"username": username, "password": "pw-" + username})
	expectStatus(t, rec, http.StatusOK)
	var out loginResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode login: %v", err)
	}
	if out.AccessToken == "" || out.Role != role || out.ID == 0 {
		t.Fatalf("unexpected login response: %+v", out)
	}
	return out
}

func TestRegister(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/register", "", gin.H{"username": "alice", "password": "pw", "role": "student"})
	expectStatus(t, rec, http.StatusCreated)
	if !strings.Contains(rec.Body.String(), "User created successfully") {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}

	rec = s.do(t, http.MethodPost, "/api/register", "", gin.H{"username": "alice", "password": "other", "role": "teacher"})
	expectStatus(t, rec, http.StatusBadRequest)
	if !strings.Contains(rec.Body.String(), "Username already exists") {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}

	var count int64
	s.db.Model(&model.User{}).Where("username = ?", "alice").Count(&count)
	if count != 1 {
		t.Fatalf("users named alice: got=%d want=1", count)
	}
}

func TestRegisterValidation(t *testing.T) {
	s := newTestServer(t)
	cases := []struct {
		name string
		body gin.H
	}{
		{name: "missing password", body: gin.H{"username": "a", "role": "student"}},
		{name: "missing role", body: gin.H{"username": "a", "password": "pw"}},
		{name: "unknown role", body: gin.H{"username": "a", "password": "pw", "role": "admin"}},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPost, "/api/register", "", tc.body)
			expectStatus(t, rec, http.StatusBadRequest)
			if !strings.Contains(rec.Body.String(), `"error"`) {
				t.Fatalf("missing error field: %s", rec.Body.String())
			}
		})
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	s := newTestServer(t)
	s.signup(t, "bob", model.RoleStudent)

	rec := s.do(t, http.MethodPost, "/api/login", "", gin.H{"username": "bob", "password": "wrong"})
	expectStatus(t, rec, http.StatusUnauthorized)
	rec = s.do(t, http.MethodPost, "/api/login", "", gin.H{"username": "nobody", "password": "pw"})
	expectStatus(t, rec, http.StatusUnauthorized)
	rec = s.do(t, http.MethodPost, "/api/login", "", gin.H{"username": "bob"})
	expectStatus(t, rec, http.StatusBadRequest)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	s := newTestServer(t)
	for _, path := range []string{"/api/discussions", "/api/discussions/1/messages", "/api/me"} {
		rec := s.do(t, http.MethodGet, path, "", nil)
		expectStatus(t, rec, http.StatusUnauthorized)
	}
}

func TestMeAndLogout(t *testing.T) {
	s := newTestServer(t)
	login := s.signup(t, "carol", model.RoleTeacher)

	rec := s.do(t, http.MethodGet, "/api/me", login.AccessToken, nil)
	expectStatus(t, rec, http.StatusOK)
	var me ProfileResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &me); err != nil {
		t.Fatalf("decode me: %v", err)
	}
	if me.ID != login.ID || me.Username != "carol" || me.Role != model.RoleTeacher {
		t.Fatalf("unexpected profile: %+v", me)
	}

	rec = s.do(t, http.MethodPost, "/api/logout", login.AccessToken, nil)
	expectStatus(t, rec, http.StatusOK)

	rec = s.do(t, http.MethodGet, "/api/me", login.AccessToken, nil)
	expectStatus(t, rec, http.StatusUnauthorized)
}

func TestCreateDiscussionTeacherOnly(t *testing.T) {
	s := newTestServer(t)
	teacher := s.signup(t, "prof", model.RoleTeacher)
	student := s.signup(t, "stud", model.RoleStudent)

	rec := s.do(t, http.MethodPost, "/api/discussions", student.AccessToken, gin.H{"title": "t", "content": "c"})
	expectStatus(t, rec, http.StatusForbidden)
	var count int64
	s.db.Model(&model.Discussion{}).Count(&count)
	if count != 0 {
		t.Fatalf("discussions after forbidden create: got=%d", count)
	}

	rec = s.do(t, http.MethodPost, "/api/discussions", teacher.AccessToken, gin.H{"title": "only title"})
	expectStatus(t, rec, http.StatusBadRequest)

	rec = s.do(t, http.MethodPost, "/api/discussions", teacher.AccessToken, gin.H{"title": "Week 1", "content": "Introductions"})
	expectStatus(t, rec, http.StatusCreated)

	rec = s.do(t, http.MethodGet, "/api/discussions", student.AccessToken, nil)
	expectStatus(t, rec, http.StatusOK)
	var list []map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode discussions: %v", err)
	}
	if len(list) != 1 || list[0]["title"] != "Week 1" || uint(list[0]["teacher_id"].(float64)) != teacher.ID {
		t.Fatalf("unexpected discussions: %v", list)
	}
	if _, ok := list[0]["created_at"].(string); !ok {
		t.Fatalf("created_at missing: %v", list[0])
	}
}

func TestListDiscussionsEmptyArray(t *testing.T) {
	s := newTestServer(t)
	login := s.signup(t, "dan", model.RoleStudent)

	rec := s.do(t, http.MethodGet, "/api/discussions", login.AccessToken, nil)
	expectStatus(t, rec, http.StatusOK)
	if strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Fatalf("got=%s want=[]", rec.Body.String())
	}
}

type messageJSON struct {
	ID        uint   `json:"id"`
	Content   string `json:"content"`
	CreatedAt string `json:"created_at"`
	UserID    uint   `json:"user_id"`
	IsBot     bool   `json:"is_bot"`
	Username  string `json:"username"`
}

func (s *testServer) listMessages(t *testing.T, tok string, discussionID string) []messageJSON {
	t.Helper()
	rec := s.do(t, http.MethodGet, "/api/discussions/"+discussionID+"/messages", tok, nil)
	expectStatus(t, rec, http.StatusOK)
	var out []messageJSON
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode messages: %v", err)
	}
	return out
}

func TestStudentMentionsBot(t *testing.T) {
	s := newTestServer(t)
	teacher := s.signup(t, "prof", model.RoleTeacher)
	expectStatus(t, s.do(t, http.MethodPost, "/api/discussions", teacher.AccessToken, gin.H{"title": "Week 1", "content": "c"}), http.StatusCreated)
	student := s.signup(t, "stud", model.RoleStudent)

	rec := s.do(t, http.MethodPost, "/api/discussions/1/messages", student.AccessToken, gin.H{"content": "hello @BOT please help"})
	expectStatus(t, rec, http.StatusCreated)
	if !strings.Contains(rec.Body.String(), "Message created successfully") {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}

	msgs := s.listMessages(t, student.AccessToken, "1")
	if len(msgs) != 2 {
		t.Fatalf("messages: got=%d want=2", len(msgs))
	}
	if msgs[0].IsBot || msgs[0].Content != "hello @BOT please help" || msgs[0].Username != "stud" {
		t.Fatalf("unexpected human message: %+v", msgs[0])
	}
	if !msgs[1].IsBot || msgs[1].Content != "model output" || msgs[1].Username != model.BotDisplayName {
		t.Fatalf("unexpected bot message: %+v", msgs[1])
	}
	if msgs[0].UserID != student.ID || msgs[1].UserID != student.ID {
		t.Fatalf("bot reply should reuse the author id: %+v", msgs)
	}
}

func TestPlainMessageAndFallback(t *testing.T) {
	s := newTestServer(t)
	teacher := s.signup(t, "prof", model.RoleTeacher)
	expectStatus(t, s.do(t, http.MethodPost, "/api/discussions", teacher.AccessToken, gin.H{"title": "Week 1", "content": "c"}), http.StatusCreated)

	expectStatus(t, s.do(t, http.MethodPost, "/api/discussions/1/messages", teacher.AccessToken, gin.H{"content": "no mention here"}), http.StatusCreated)
	if msgs := s.listMessages(t, teacher.AccessToken, "1"); len(msgs) != 1 || msgs[0].IsBot {
		t.Fatalf("plain post: %+v", msgs)
	}

	s.llm.err = errors.New("upstream down")
	expectStatus(t, s.do(t, http.MethodPost, "/api/discussions/1/messages", teacher.AccessToken, gin.H{"content": "@bot are you there?"}), http.StatusCreated)

	msgs := s.listMessages(t, teacher.AccessToken, "1")
	if len(msgs) != 3 {
		t.Fatalf("messages: got=%d want=3", len(msgs))
	}
	if !msgs[2].IsBot || msgs[2].Content != pipeline.FallbackReply {
		t.Fatalf("unexpected fallback message: %+v", msgs[2])
	}
}

func TestMessageRouteErrors(t *testing.T) {
	s := newTestServer(t)
	login := s.signup(t, "eve", model.RoleStudent)

	expectStatus(t, s.do(t, http.MethodGet, "/api/discussions/abc/messages", login.AccessToken, nil), http.StatusBadRequest)
	expectStatus(t, s.do(t, http.MethodGet, "/api/discussions/42/messages", login.AccessToken, nil), http.StatusNotFound)
	expectStatus(t, s.do(t, http.MethodPost, "/api/discussions/42/messages", login.AccessToken, gin.H{"content": "hi"}), http.StatusNotFound)

	testutil.CreateDiscussion(t, s.db, login.ID, "d")
	expectStatus(t, s.do(t, http.MethodPost, "/api/discussions/1/messages", login.AccessToken, gin.H{}), http.StatusBadRequest)
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t)
	expectStatus(t, s.do(t, http.MethodGet, "/healthz", "", nil), http.StatusOK)

	sqlDB, err := s.db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	_ = sqlDB.Close()
	expectStatus(t, s.do(t, http.MethodGet, "/healthz", "", nil), http.StatusServiceUnavailable)
}
