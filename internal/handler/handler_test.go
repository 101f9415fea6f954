package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"zujuan/internal/ai"
	"zujuan/internal/auth"
	"zujuan/internal/captcha"
	"zujuan/internal/i18n"
	"zujuan/internal/model"
	"zujuan/internal/queue"
	"zujuan/internal/rag"
	"zujuan/internal/store"
	"zujuan/internal/task"
)

// fakeCaptcha accepts exactly one answer, "PASS".
type fakeCaptcha struct{}

func (fakeCaptcha) Create() captcha.Challenge {
	return captcha.Challenge{ID: "test-id", Image: "data:image/svg+xml;base64,"}
}

func (fakeCaptcha) Verify(id, answer string) bool {
	return answer == "PASS"
}

type testEnv struct {
	server *httptest.Server
	store  *store.Store
	token  string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	if err := i18n.Init("en"); err != nil {
		t.Fatalf("init i18n: %v", err)
	}

	st, err := store.New(":memory:")
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	client := ai.New("", "", "gpt-4o", "text-embedding-3-small")
	authSvc := auth.New("test-secret", time.Hour, st)
	h := New(st, client, rag.New(st, client), queue.New(st, client),
		task.NewManager(), fakeCaptcha{}, authSvc, Config{InviteCode: "LETMEIN"})

	r := chi.NewRouter()
	r.Use(i18n.Middleware("en"))
	h.Routes(r)
	server := httptest.NewServer(r)
	t.Cleanup(server.Close)

	env := &testEnv{server: server, store: st}

	// Seed a teacher and log in.
	hash, err := auth.HashPassword("secret123")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	if _, err := st.CreateUser(model.User{Username: "teacher", PasswordHash: hash, Role: model.UserRoleTeacher}); err != nil {
		t.Fatalf("seed teacher: %v", err)
	}
	var login tokenResponse
	env.postJSON(t, "/api/auth/login", map[string]string{
		"username": "teacher", "password": "secret123",
	}, http.StatusOK, &login)
	env.token = login.AccessToken
	return env
}

func (e *testEnv) do(t *testing.T, method, path string, body io.Reader, contentType string, wantStatus int, out any) {
	t.Helper()
	req, err := http.NewRequest(method, e.server.URL+path, body)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if e.token != "" {
		req.Header.Set("Authorization", "Bearer "+e.token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != wantStatus {
		t.Fatalf("%s %s: status = %d, want %d (body: %s)", method, path, resp.StatusCode, wantStatus, data)
	}
	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			t.Fatalf("%s %s: decode response: %v (body: %s)", method, path, err, data)
		}
	}
}

func (e *testEnv) postJSON(t *testing.T, path string, body any, wantStatus int, out any) {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	e.do(t, http.MethodPost, path, bytes.NewReader(data), "application/json", wantStatus, out)
}

func (e *testEnv) getJSON(t *testing.T, path string, wantStatus int, out any) {
	t.Helper()
	e.do(t, http.MethodGet, path, nil, "", wantStatus, out)
}

func multipartImage(t *testing.T, field string, names ...string) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, name := range names {
		fw, err := mw.CreateFormFile(field, name)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		fw.Write([]byte("fake image bytes"))
	}
	mw.Close()
	return &buf, mw.FormDataContentType()
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	var health map[string]any
	env.getJSON(t, "/health", http.StatusOK, &health)
	if health["status"] != "ok" {
		t.Errorf("status = %v", health["status"])
	}
	if health["aiConfigured"] != false {
		t.Error("test env should report an unconfigured AI backend")
	}
}

func TestRegisterFlow(t *testing.T) {
	env := newTestEnv(t)
	env.token = ""

	t.Run("wrong captcha", func(t *testing.T) {
		env.postJSON(t, "/api/auth/register", map[string]string{
			"username": "alice", "password": "secret123",
			"captchaId": "test-id", "captchaAnswer": "FAIL",
			"inviteCode": "LETMEIN",
		}, http.StatusBadRequest, nil)
	})

	t.Run("wrong invite code", func(t *testing.T) {
		env.postJSON(t, "/api/auth/register", map[string]string{
			"username": "alice", "password": "secret123",
			"captchaId": "test-id", "captchaAnswer": "PASS",
			"inviteCode": "WRONG",
		}, http.StatusForbidden, nil)
	})

	t.Run("success and duplicate", func(t *testing.T) {
		body := map[string]string{
			"username": "alice", "password": "secret123",
			"captchaId": "test-id", "captchaAnswer": "PASS",
			"inviteCode": "LETMEIN",
		}
		var created struct {
			Message string     `json:"message"`
			User    model.User `json:"user"`
		}
		env.postJSON(t, "/api/auth/register", body, http.StatusCreated, &created)
		if created.User.ID == "" || created.User.Role != model.UserRoleTeacher {
			t.Errorf("registered user = %+v", created.User)
		}
		if !strings.Contains(created.Message, "alice") {
			t.Errorf("message = %q, want the username in the confirmation", created.Message)
		}
		env.postJSON(t, "/api/auth/register", body, http.StatusConflict, nil)
	})

	t.Run("student needs no invite", func(t *testing.T) {
		env.postJSON(t, "/api/auth/register", map[string]string{
			"username": "bob", "password": "secret123", "role": "student",
			"captchaId": "test-id", "captchaAnswer": "PASS",
		}, http.StatusCreated, nil)
	})
}

func TestLoginRejectsBadPassword(t *testing.T) {
	env := newTestEnv(t)
	env.token = ""
	env.postJSON(t, "/api/auth/login", map[string]string{
		"username": "teacher", "password": "wrong",
	}, http.StatusUnauthorized, nil)
}

func TestTeacherRoutesRequireAuth(t *testing.T) {
	env := newTestEnv(t)
	env.token = ""
	env.getJSON(t, "/api/teacher/questions", http.StatusUnauthorized, nil)
}

func TestStudentCannotUseTeacherRoutes(t *testing.T) {
	env := newTestEnv(t)
	hash, _ := auth.HashPassword("secret123")
	if _, err := env.store.CreateUser(model.User{Username: "student", PasswordHash: hash, Role: model.UserRoleStudent}); err != nil {
		t.Fatalf("seed student: %v", err)
	}
	var login tokenResponse
	env.token = ""
	env.postJSON(t, "/api/auth/login", map[string]string{
		"username": "student", "password": "secret123",
	}, http.StatusOK, &login)
	env.token = login.AccessToken

	env.getJSON(t, "/api/teacher/questions", http.StatusForbidden, nil)
}

func TestQuestionCRUD(t *testing.T) {
	env := newTestEnv(t)

	var created model.Question
	env.postJSON(t, "/api/teacher/questions", model.Question{
		QuestionText: "求 $1+1$",
		Answer:       "2",
		QuestionType: model.TypeFillBlank,
	}, http.StatusCreated, &created)
	if created.ID == "" {
		t.Fatal("created question should have an id")
	}

	var got model.Question
	env.getJSON(t, "/api/teacher/questions/"+created.ID, http.StatusOK, &got)
	if got.QuestionText != "求 $1+1$" {
		t.Errorf("QuestionText = %q", got.QuestionText)
	}

	created.Answer = "等于 2"
	data, _ := json.Marshal(created)
	env.do(t, http.MethodPut, "/api/teacher/questions/"+created.ID, bytes.NewReader(data), "application/json", http.StatusOK, nil)

	var list struct {
		Items []model.Question `json:"items"`
		Total int              `json:"total"`
	}
	env.getJSON(t, "/api/teacher/questions?search=1%2B1", http.StatusOK, &list)
	if list.Total != 1 {
		t.Errorf("search total = %d, want 1", list.Total)
	}

	env.do(t, http.MethodDelete, "/api/teacher/questions/"+created.ID, nil, "", http.StatusOK, nil)
	env.getJSON(t, "/api/teacher/questions/"+created.ID, http.StatusNotFound, nil)
}

func TestAnalyzeEndpoint(t *testing.T) {
	env := newTestEnv(t)
	body, contentType := multipartImage(t, "file", "q1.png")

	var result model.AnalysisResult
	env.do(t, http.MethodPost, "/api/teacher/questions/analyze", body, contentType, http.StatusOK, &result)
	if result.QuestionText == "" || result.Answer == "" {
		t.Errorf("stub analysis should be complete, got %+v", result)
	}
}

func TestAnalyzeAsyncAndPoll(t *testing.T) {
	env := newTestEnv(t)
	body, contentType := multipartImage(t, "file", "q1.png")

	var accepted struct {
		TaskID string `json:"taskId"`
	}
	env.do(t, http.MethodPost, "/api/teacher/questions/analyze/async", body, contentType, http.StatusAccepted, &accepted)
	if accepted.TaskID == "" {
		t.Fatal("async analyze should return a task id")
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		var polled task.Task
		env.getJSON(t, "/api/teacher/tasks/"+accepted.TaskID, http.StatusOK, &polled)
		if polled.Status == task.StatusCompleted {
			break
		}
		if polled.Status == task.StatusFailed {
			t.Fatalf("task failed: %s", polled.Error)
		}
		if time.Now().After(deadline) {
			t.Fatalf("task stuck in %s", polled.Status)
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestQueueEndpoints(t *testing.T) {
	env := newTestEnv(t)

	body, contentType := multipartImage(t, "files", "a.png", "b.png")
	var added struct {
		Items []model.IngestItem `json:"items"`
	}
	env.do(t, http.MethodPost, "/api/teacher/queue/", body, contentType, http.StatusCreated, &added)
	if len(added.Items) != 2 {
		t.Fatalf("added %d items, want 2", len(added.Items))
	}

	first := added.Items[0].ID
	var item model.IngestItem
	env.do(t, http.MethodPost, fmt.Sprintf("/api/teacher/queue/%s/preview", first), nil, "", http.StatusOK, &item)
	if item.Status != model.IngestReady {
		t.Fatalf("previewed item status = %s, want ready", item.Status)
	}

	var saved struct {
		Message string           `json:"message"`
		Item    model.IngestItem `json:"item"`
	}
	env.do(t, http.MethodPost, fmt.Sprintf("/api/teacher/queue/%s/save", first), nil, "", http.StatusOK, &saved)
	if saved.Item.Status != model.IngestSaved || saved.Item.QuestionID == "" {
		t.Fatalf("saved item = %+v", saved.Item)
	}
	if saved.Message == "" {
		t.Error("save response should carry a confirmation message")
	}

	second := added.Items[1].ID
	env.do(t, http.MethodPost, fmt.Sprintf("/api/teacher/queue/%s/ingest", second), nil, "", http.StatusOK, &saved)
	if saved.Item.Status != model.IngestSaved {
		t.Fatalf("ingested item status = %s, want saved", saved.Item.Status)
	}

	env.do(t, http.MethodDelete, "/api/teacher/queue/"+second, nil, "", http.StatusOK, nil)

	var list struct {
		Items []model.IngestItem `json:"items"`
	}
	env.getJSON(t, "/api/teacher/queue/", http.StatusOK, &list)
	if len(list.Items) != 1 {
		t.Errorf("queue has %d items after delete, want 1", len(list.Items))
	}
}

func TestPaperCreateAndExportTex(t *testing.T) {
	env := newTestEnv(t)

	var q model.Question
	env.postJSON(t, "/api/teacher/questions", model.Question{
		QuestionText: "解方程 $x^2=9$",
		Answer:       "$x=\\pm 3$",
		Explanation:  "两边开平方即可。",
		QuestionType: model.TypeSolve,
	}, http.StatusCreated, &q)

	var paper model.Paper
	env.postJSON(t, "/api/teacher/papers", model.Paper{
		Title:        "单元测试卷",
		TemplateType: "gaokao_new_1",
		Questions:    []model.PaperQuestion{{QuestionID: q.ID, Order: 15, Score: 13}},
	}, http.StatusCreated, &paper)
	if paper.TotalScore != 13 {
		t.Errorf("TotalScore = %d, want the sum of question scores", paper.TotalScore)
	}

	req, _ := http.NewRequest(http.MethodGet, env.server.URL+"/api/teacher/papers/"+paper.ID+"/export?format=tex", nil)
	req.Header.Set("Authorization", "Bearer "+env.token)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("export status = %d", resp.StatusCode)
	}
	tex, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(tex), "解方程") {
		t.Error("exported tex should contain the question text")
	}

	t.Run("answer and explanation toggled independently", func(t *testing.T) {
		url := env.server.URL + "/api/teacher/papers/" + paper.ID +
			"/export?format=tex&include_answer=false&include_explanation=true"
		req, _ := http.NewRequest(http.MethodGet, url, nil)
		req.Header.Set("Authorization", "Bearer "+env.token)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("export: %v", err)
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		if strings.Contains(string(body), "答案：") {
			t.Error("tex should omit answers when include_answer=false")
		}
		if !strings.Contains(string(body), "解析：") {
			t.Error("tex should keep explanations when include_explanation=true")
		}
	})

	t.Run("custom template accepted", func(t *testing.T) {
		env.postJSON(t, "/api/teacher/papers", model.Paper{
			Title:        "自选卷",
			TemplateType: "custom",
			Questions:    []model.PaperQuestion{{QuestionID: q.ID, Order: 1, Score: 10}},
		}, http.StatusCreated, nil)
	})

	t.Run("supplied total score kept", func(t *testing.T) {
		var p model.Paper
		env.postJSON(t, "/api/teacher/papers", model.Paper{
			Title:      "百分卷",
			TotalScore: 100,
			Questions:  []model.PaperQuestion{{QuestionID: q.ID, Order: 1, Score: 13}},
		}, http.StatusCreated, &p)
		if p.TotalScore != 100 {
			t.Errorf("TotalScore = %d, want the client-supplied 100", p.TotalScore)
		}
	})

	t.Run("unknown question rejected", func(t *testing.T) {
		env.postJSON(t, "/api/teacher/papers", model.Paper{
			Title:     "坏卷",
			Questions: []model.PaperQuestion{{QuestionID: "ghost", Order: 1, Score: 5}},
		}, http.StatusBadRequest, nil)
	})

	t.Run("unknown template rejected", func(t *testing.T) {
		env.postJSON(t, "/api/teacher/papers", model.Paper{
			Title:        "坏卷",
			TemplateType: "nope",
			Questions:    []model.PaperQuestion{{QuestionID: q.ID, Order: 1, Score: 5}},
		}, http.StatusBadRequest, nil)
	})
}

func TestReviewEndpoints(t *testing.T) {
	env := newTestEnv(t)

	var q model.Question
	env.postJSON(t, "/api/teacher/questions", model.Question{
		QuestionText: "题目", Answer: "答案", QuestionType: model.TypeSolve,
	}, http.StatusCreated, &q)

	var review model.Review
	env.postJSON(t, "/api/reviews/", map[string]string{
		"questionId": q.ID, "status": "approved", "comment": "没有问题",
	}, http.StatusCreated, &review)
	if review.Status != model.ReviewApproved {
		t.Errorf("review status = %s", review.Status)
	}

	var list struct {
		Items []model.Review `json:"items"`
	}
	env.getJSON(t, "/api/reviews/"+q.ID, http.StatusOK, &list)
	if len(list.Items) != 1 {
		t.Errorf("reviews = %d, want 1", len(list.Items))
	}
}

func TestStudentAsk(t *testing.T) {
	env := newTestEnv(t)

	var resp model.AskResponse
	env.postJSON(t, "/api/student/ask", map[string]string{
		"question": "什么是导数？",
	}, http.StatusOK, &resp)
	if resp.Answer == "" {
		t.Error("ask should return an answer even without a configured backend")
	}
}
