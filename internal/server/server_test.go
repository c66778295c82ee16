package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"resume-rag/internal/models"
	"resume-rag/internal/provider/providertest"
	"resume-rag/internal/rag"
	"resume-rag/internal/vectorstore"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testEnv struct {
	srv   *Server
	store *vectorstore.MemoryStore
	fake  *providertest.Fake
	// keys records the credential each session was built with
	keys []string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{store: vectorstore.NewMemoryStore(), fake: &providertest.Fake{Reply: "Alice built a chat system."}}
	srv, err := New(Options{
		Store: env.store,
		NewSession: func(ctx context.Context, collection, providerName, apiKey string) (*rag.Session, error) {
			if providerName != "google" && providerName != "groq" {
				return nil, models.ErrConfiguration
			}
			env.keys = append(env.keys, apiKey)
			return rag.NewSession(ctx, env.store, env.fake, collection, rag.Options{})
		},
		APIKey:       func(string) string { return "env-key" },
		ChunkSize:    200,
		ChunkOverlap: 20,
		UploadDir:    t.TempDir(),
	})
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	env.srv = srv
	return env
}

func (e *testEnv) do(t *testing.T, req *http.Request) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	w := httptest.NewRecorder()
	e.srv.Handler().ServeHTTP(w, req)
	var body map[string]any
	if w.Body.Len() > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("decode %q: %v", w.Body.String(), err)
		}
	}
	return w, body
}

func (e *testEnv) postJSON(t *testing.T, path string, payload any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	b, _ := json.Marshal(payload)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	return e.do(t, req)
}

func (e *testEnv) buildBot(t *testing.T, fields map[string]string, filename, content string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if filename != "" {
		fw, err := mw.CreateFormFile("resumeFile", filename)
		if err != nil {
			t.Fatalf("form file: %v", err)
		}
		fw.Write([]byte(content))
	}
	for k, v := range fields {
		mw.WriteField(k, v)
	}
	mw.Close()
	req := httptest.NewRequest(http.MethodPost, "/api/build-bot", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return e.do(t, req)
}

const parsedResume = `{"PROJECTS":[{"title":"Chat system","date":"2023"}],"EXPERIENCE":[{"title":"Software engineer","subtitle":"Acme"}]}`

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	w, body := env.do(t, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK || body["status"] != "ok" {
		t.Fatalf("health = %d %v", w.Code, body)
	}
	if w.Header().Get(requestIDHeader) == "" {
		t.Errorf("missing request id header")
	}
}

func TestBuildFinalizeChatFlow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	w, body := env.buildBot(t, map[string]string{
		"parsedData":  parsedResume,
		"enrichments": `{"PROJECTS-0":"Served 10k users"}`,
	}, "resume.pdf", "%PDF-ignored")
	if w.Code != http.StatusOK {
		t.Fatalf("build-bot = %d %v", w.Code, body)
	}
	temp, _ := body["collection_name"].(string)
	if !strings.HasPrefix(temp, "temp-") {
		t.Fatalf("collection name = %q", temp)
	}
	col, _ := env.store.Open(ctx, temp)
	records, _ := col.GetAll(ctx)
	if len(records) == 0 || !strings.Contains(records[0].Document, "Served 10k users") {
		t.Fatalf("indexed records = %+v", records)
	}
	if len(env.keys) != 1 || env.keys[0] != "env-key" {
		t.Errorf("session keys = %v", env.keys)
	}

	w, body = env.postJSON(t, "/api/collections/finalize", map[string]string{
		"temp_collection_name":      temp,
		"permanent_collection_name": "alice",
	})
	if w.Code != http.StatusOK || body["new_collection_name"] != "alice" {
		t.Fatalf("finalize = %d %v", w.Code, body)
	}
	if ok, _ := env.store.Exists(ctx, temp); ok {
		t.Errorf("temp collection survived finalize")
	}

	w, body = env.postJSON(t, "/api/add-to-bot", map[string]string{
		"collection_name": "alice",
		"text":            "Alice also mentors junior engineers.",
	})
	if w.Code != http.StatusOK || body["added"] != float64(1) {
		t.Fatalf("add-to-bot = %d %v", w.Code, body)
	}

	w, body = env.postJSON(t, "/api/chat", map[string]string{
		"collection_name": "alice",
		"query":           "What did Alice build?",
		"api_key":         "request-key",
	})
	if w.Code != http.StatusOK || body["answer"] != "Alice built a chat system." {
		t.Fatalf("chat = %d %v", w.Code, body)
	}
	memory := body["memory"].(map[string]any)
	if memory["total_messages"] != float64(2) || memory["exchanges"] != float64(1) {
		t.Errorf("memory = %v", memory)
	}
	// the session built during build-bot is reused after the rename
	if len(env.keys) != 1 {
		t.Errorf("sessions created = %d, want 1", len(env.keys))
	}

	w, body = env.do(t, httptest.NewRequest(http.MethodGet, "/api/chat/memory/alice", nil))
	if w.Code != http.StatusOK || len(body["history"].([]any)) != 2 {
		t.Fatalf("memory = %d %v", w.Code, body)
	}

	w, _ = env.postJSON(t, "/api/chat/reset", map[string]string{"collection_name": "alice"})
	if w.Code != http.StatusOK {
		t.Fatalf("reset = %d", w.Code)
	}
	sess, _ := env.srv.Registry().Lookup("alice")
	if sess.MemorySummary().TotalMessages != 0 {
		t.Errorf("memory not cleared")
	}
}

func TestBuildBot_FromUploadedText(t *testing.T) {
	env := newTestEnv(t)
	w, body := env.buildBot(t, nil, "resume.txt", "Alice is a software engineer.")
	if w.Code != http.StatusOK || body["chunks"] != float64(1) {
		t.Fatalf("build-bot = %d %v", w.Code, body)
	}
}

func TestBuildBot_Validation(t *testing.T) {
	env := newTestEnv(t)

	w, body := env.buildBot(t, map[string]string{"parsedData": parsedResume}, "", "")
	if w.Code != http.StatusBadRequest || body["error_code"] != "invalid_input" {
		t.Errorf("missing file = %d %v", w.Code, body)
	}

	w, _ = env.buildBot(t, map[string]string{"parsedData": "[1,2"}, "resume.pdf", "x")
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad parsedData = %d", w.Code)
	}

	w, body = env.buildBot(t, nil, "resume.odt", "x")
	if w.Code != http.StatusBadRequest || body["error_code"] != "configuration_error" {
		t.Errorf("unsupported upload = %d %v", w.Code, body)
	}

	w, body = env.buildBot(t, map[string]string{"parsedData": parsedResume, "provider_name": "nope"}, "resume.pdf", "x")
	if w.Code != http.StatusBadRequest || body["error_code"] != "configuration_error" {
		t.Errorf("unknown provider = %d %v", w.Code, body)
	}
}

func TestBuildBot_IndexingFailureDropsCollection(t *testing.T) {
	env := newTestEnv(t)
	env.fake.EmbedErr = errors.New("quota exceeded")

	w, body := env.buildBot(t, map[string]string{"parsedData": parsedResume}, "resume.pdf", "x")
	if w.Code != http.StatusInternalServerError || body["error_code"] != "indexing_error" {
		t.Fatalf("build-bot = %d %v", w.Code, body)
	}
	if env.srv.Registry().Len() != 0 {
		t.Errorf("failed build left a session registered")
	}
	if env.fake.Closed() != 1 {
		t.Errorf("discarded session must release its provider, closed=%d", env.fake.Closed())
	}
}

func TestChat_ProviderSwitchClosesOldSession(t *testing.T) {
	env := newTestEnv(t)

	_, body := env.buildBot(t, map[string]string{"parsedData": parsedResume}, "resume.pdf", "x")
	name := body["collection_name"].(string)
	first, _ := env.srv.Registry().Lookup(name)

	w, body := env.postJSON(t, "/api/chat", map[string]string{"collection_name": name, "query": "hi", "provider_name": "groq"})
	if w.Code != http.StatusOK {
		t.Fatalf("chat = %d %v", w.Code, body)
	}
	second, _ := env.srv.Registry().Lookup(name)
	if second == first {
		t.Fatalf("provider switch must build a new session")
	}
	if env.fake.Closed() != 1 {
		t.Errorf("replaced session must be closed once, closed=%d", env.fake.Closed())
	}

	env.srv.Registry().Close()
	if env.fake.Closed() != 2 || env.srv.Registry().Len() != 0 {
		t.Errorf("registry close = %d closed, %d left", env.fake.Closed(), env.srv.Registry().Len())
	}
}

func TestChat_Errors(t *testing.T) {
	env := newTestEnv(t)

	w, body := env.postJSON(t, "/api/chat", map[string]string{"collection_name": "ghost"})
	if w.Code != http.StatusBadRequest || body["error_code"] != "invalid_input" {
		t.Errorf("missing query = %d %v", w.Code, body)
	}

	w, body = env.postJSON(t, "/api/chat", map[string]string{"collection_name": "ghost", "query": "hi"})
	if w.Code != http.StatusNotFound || body["error_code"] != "collection_not_found" {
		t.Errorf("unknown collection = %d %v", w.Code, body)
	}

	w, body = env.buildBot(t, map[string]string{"parsedData": parsedResume}, "resume.pdf", "x")
	name := body["collection_name"].(string)
	env.fake.GenerateErr = errors.New("model overloaded")
	w, body = env.postJSON(t, "/api/chat", map[string]string{"collection_name": name, "query": "hi"})
	if w.Code != http.StatusBadGateway || body["error_code"] != "generation_error" {
		t.Errorf("generation failure = %d %v", w.Code, body)
	}
}

func TestChat_EmptyCollectionFallback(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.store.Open(context.Background(), "empty"); err != nil {
		t.Fatalf("open: %v", err)
	}
	w, body := env.postJSON(t, "/api/chat", map[string]string{"collection_name": "empty", "query": "hi"})
	if w.Code != http.StatusOK || body["answer"] != models.InsufficientInformation {
		t.Fatalf("chat = %d %v", w.Code, body)
	}
	if env.fake.GenerateCalls() != 0 {
		t.Errorf("generation ran on an empty collection")
	}
}

func TestFinalize_Conflicts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	w, body := env.postJSON(t, "/api/collections/finalize", map[string]string{
		"temp_collection_name":      "temp-missing",
		"permanent_collection_name": "alice",
	})
	if w.Code != http.StatusNotFound {
		t.Errorf("missing source = %d %v", w.Code, body)
	}

	_, body = env.buildBot(t, map[string]string{"parsedData": parsedResume}, "resume.pdf", "x")
	temp := body["collection_name"].(string)
	env.store.Open(ctx, "taken")

	w, body = env.postJSON(t, "/api/collections/finalize", map[string]string{
		"temp_collection_name":      temp,
		"permanent_collection_name": "taken",
	})
	if w.Code != http.StatusConflict || body["error_code"] != "collection_exists" {
		t.Fatalf("taken target = %d %v", w.Code, body)
	}
	col, _ := env.store.Open(ctx, temp)
	if n, _ := col.Count(ctx); n == 0 {
		t.Errorf("source lost its records")
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{models.ErrConfiguration, http.StatusBadRequest},
		{models.ErrProvider, http.StatusBadGateway},
		{models.ErrStorage, http.StatusInternalServerError},
		{errors.Join(models.ErrStorage, models.ErrCollectionExists), http.StatusConflict},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got, _ := classify(tc.err); got != tc.code {
			t.Errorf("classify(%v) = %d, want %d", tc.err, got, tc.code)
		}
	}
}
