package translator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sony/gobreaker"

	"github.com/valpere/doctran/internal/language"
	"github.com/valpere/doctran/internal/postprocess"
	"github.com/valpere/doctran/internal/tokenizer"
)

const testVocab = `{"</s>": 0, "<unk>": 1, "▁Hallo": 2, "▁Welt": 3, "▁Hello": 4, "▁world": 5, "<pad>": 6}`

func newHuggingFaceServer(t *testing.T, status int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == "GET" && r.URL.Path == "/Helsinki-NLP/opus-mt-en-de/resolve/main/vocab.json":
			w.Write([]byte(testVocab))
		case r.Method == "POST" && r.URL.Path == "/models/Helsinki-NLP/opus-mt-en-de":
			if r.Header.Get("Authorization") != "Bearer hf-key" {
				t.Errorf("expected bearer token, got %q", r.Header.Get("Authorization"))
			}
			if status != http.StatusOK {
				w.WriteHeader(status)
				w.Write([]byte(`{"error": "Model is overloaded"}`))
				return
			}
			var req struct {
				Inputs string `json:"inputs"`
			}
			json.NewDecoder(r.Body).Decode(&req)
			if req.Inputs != "Hello world" {
				t.Errorf("unexpected inputs %q", req.Inputs)
			}
			json.NewEncoder(w).Encode([]map[string]string{{"translation_text": "Hallo Welt"}})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func TestHuggingFaceService_TranslateDocumentText(t *testing.T) {
	server := newHuggingFaceServer(t, http.StatusOK)
	defer server.Close()

	svc := NewHuggingFaceService("hf-key", server.URL+"/models", server.URL, 5*time.Second, nil)
	loader := NewLoader(svc, "", nil)

	s, err := loader.Load(context.Background(), "german")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Tokenizer.Vocab().Size() != 7 {
		t.Errorf("expected hub vocabulary, got %d pieces", s.Tokenizer.Vocab().Size())
	}

	out, err := New(nil).Translate(context.Background(), "Hello world", s)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "Hallo Welt" {
		t.Errorf("expected %q, got %q", "Hallo Welt", out)
	}
}

func TestHuggingFaceService_UnknownModel(t *testing.T) {
	server := newHuggingFaceServer(t, http.StatusOK)
	defer server.Close()

	svc := NewHuggingFaceService("", server.URL+"/models", server.URL, 5*time.Second, nil)

	_, _, err := svc.Acquire(context.Background(), "Helsinki-NLP/opus-mt-en-xx", language.Entry{Name: "x", Code: "xx"})
	if err == nil {
		t.Fatal("expected error for unknown model")
	}
	if !strings.Contains(err.Error(), "404") {
		t.Errorf("expected status in error, got %v", err)
	}
}

func TestHuggingFaceService_Translate_APIError(t *testing.T) {
	server := newHuggingFaceServer(t, http.StatusServiceUnavailable)
	defer server.Close()

	svc := NewHuggingFaceService("hf-key", server.URL+"/models", server.URL, 5*time.Second, nil)

	result, err := svc.Translate(context.Background(), TranslateRequest{
		ModelID:    "Helsinki-NLP/opus-mt-en-de",
		Text:       "Hello world",
		SourceLang: "en",
		TargetLang: "de",
	})
	if err == nil {
		t.Fatal("expected error for non-OK status")
	}
	if result == nil {
		t.Fatal("expected non-nil result")
	}
	if !strings.Contains(result.Error, "Model is overloaded") {
		t.Errorf("expected API error message in result, got %q", result.Error)
	}
}

func TestHuggingFaceService_Name(t *testing.T) {
	svc := NewHuggingFaceService("", "", "", 0, nil)
	if svc.Name() != "huggingface" {
		t.Errorf("expected 'huggingface', got %q", svc.Name())
	}
	if svc.DefaultModelTemplate() != "Helsinki-NLP/opus-mt-en-%s" {
		t.Errorf("unexpected default template %q", svc.DefaultModelTemplate())
	}
}

func TestOllamaService_Translate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/tags":
			w.Write([]byte(`{"models": []}`))
		case "/api/generate":
			var req map[string]interface{}
			json.NewDecoder(r.Body).Decode(&req)
			if req["model"] != "llama3.2" {
				t.Errorf("expected model llama3.2, got %v", req["model"])
			}
			if !strings.Contains(req["prompt"].(string), "to French") {
				t.Errorf("prompt should name the target language: %v", req["prompt"])
			}
			w.Write([]byte(`{"response": "\"Bonjour le monde\""}`))
		}
	}))
	defer server.Close()

	svc := NewOllamaService(server.URL, 5*time.Second, nil)
	s, err := NewLoader(svc, "", nil).Load(context.Background(), "french")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out, err := New(nil).Translate(context.Background(), "Hello world", s)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "Bonjour le monde" {
		t.Errorf("expected cleaned translation, got %q", out)
	}
}

func TestOllamaService_AcquireUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	svc := NewOllamaService(server.URL, 5*time.Second, nil)
	if _, _, err := svc.Acquire(context.Background(), "llama3.2", language.Entry{Name: "german", Code: "de"}); err == nil {
		t.Error("expected error when Ollama is unavailable")
	}
}

func TestOpenAIService_Translate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		if req.Model != "gpt-4o-mini" {
			t.Errorf("unexpected model %q", req.Model)
		}
		if len(req.Messages) != 2 || req.Messages[1].Content != "Hello world" {
			t.Errorf("unexpected messages %+v", req.Messages)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "chatcmpl-1", "object": "chat.completion", "model": "gpt-4o-mini",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "Here is the translation: Hola mundo"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 20, "completion_tokens": 3, "total_tokens": 23}
		}`))
	}))
	defer server.Close()

	svc := NewOpenAIService("sk-test", server.URL+"/v1", nil)
	result, err := svc.Translate(context.Background(), TranslateRequest{
		ModelID:    "gpt-4o-mini",
		Text:       "Hello world",
		SourceLang: "en",
		TargetLang: "es",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Candidates) != 1 || result.Candidates[0] != "Hola mundo" {
		t.Errorf("unexpected candidates %v", result.Candidates)
	}
	if result.Metadata["completion_tokens"] != "3" {
		t.Errorf("unexpected metadata %v", result.Metadata)
	}
}

func TestOpenAIService_NoAPIKey(t *testing.T) {
	svc := NewOpenAIService("", "", nil)

	if err := svc.IsAvailable(context.Background()); err == nil {
		t.Error("expected error when no API key")
	}
	if _, _, err := svc.Acquire(context.Background(), "gpt-4o-mini", language.Entry{Name: "german", Code: "de"}); err == nil {
		t.Error("expected acquire to fail without API key")
	}
}

func TestGoogleService_Acquire(t *testing.T) {
	svc := NewGoogleService("", nil)

	m, tok, err := svc.Acquire(context.Background(), "nmt", language.Entry{Name: "dutch", Code: "nl"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.ID() != "nmt" || tok == nil {
		t.Errorf("unexpected model %q / tokenizer %v", m.ID(), tok)
	}
	if svc.Name() != "google" {
		t.Errorf("expected 'google', got %q", svc.Name())
	}
	if err := svc.Close(); err != nil {
		t.Errorf("closing an unused service: %v", err)
	}
}

// failingService counts calls and always fails.
type failingService struct{ calls int }

func (f *failingService) Name() string                          { return "failing" }
func (f *failingService) IsAvailable(ctx context.Context) error { return nil }
func (f *failingService) Translate(ctx context.Context, req TranslateRequest) (*ServiceResult, error) {
	f.calls++
	return &ServiceResult{ServiceName: "failing", Error: "boom"}, context.DeadlineExceeded
}

func TestServiceModel_BreakerOpensAfterFailures(t *testing.T) {
	svc := &failingService{}
	tok := tokenizer.New(nil)
	m := newServiceModel("m", language.Entry{Name: "german", Code: "de"}, svc, tok, newBreaker("test"), nil)

	enc, _ := tok.Encode("Hello", tokenizer.Options{MaxLength: MaxTokens, Truncation: true})
	for i := 0; i < 5; i++ {
		m.Generate(context.Background(), enc)
	}

	if svc.calls != 3 {
		t.Errorf("expected breaker to stop calls after 3 failures, got %d calls", svc.calls)
	}
	_, err := m.Generate(context.Background(), enc)
	if err == nil || !strings.Contains(err.Error(), gobreaker.ErrOpenState.Error()) {
		t.Errorf("expected open-state error, got %v", err)
	}
}

func TestServiceModel_WhitespaceWindowSkipsService(t *testing.T) {
	svc := &failingService{}
	tok := tokenizer.New(nil)
	m := newServiceModel("m", language.Entry{Name: "german", Code: "de"}, svc, tok, newBreaker("test"), nil)

	enc, _ := tok.Encode("\n\n", tokenizer.Options{MaxLength: MaxTokens, Truncation: true})
	seqs, err := m.Generate(context.Background(), enc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := tok.Decode(seqs[0], true); got != "\n\n" {
		t.Errorf("expected newlines to pass through, got %q", got)
	}
	if svc.calls != 0 {
		t.Errorf("expected no service calls, got %d", svc.calls)
	}
}

// replyService answers every request with the same LLM-style reply.
type replyService struct{ reply string }

func (s *replyService) Name() string                          { return "reply" }
func (s *replyService) IsAvailable(ctx context.Context) error { return nil }
func (s *replyService) Translate(ctx context.Context, req TranslateRequest) (*ServiceResult, error) {
	return &ServiceResult{ServiceName: "reply", Candidates: []string{postprocess.Clean(s.reply, req.Text)}}, nil
}

func TestServiceModel_ChunksKeepWordBoundary(t *testing.T) {
	tok := tokenizer.New(nil)
	target := language.Entry{Name: "german", Code: "de"}
	m := newServiceModel("m", target, &replyService{reply: "Here is the translation: \"Hallo\""}, tok, newBreaker("test"), nil)
	s := Session{Language: target, ModelID: "m", Model: m, Tokenizer: tok}

	text := strings.Repeat("x", ChunkSize-1) + " tail"
	out, err := New(nil).Translate(context.Background(), text, s)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "Hallo Hallo" {
		t.Errorf("expected chunks joined by the source space, got %q", out)
	}
}
