package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/campusbot/campus-chatbot-go/internal/dialog"
	"github.com/campusbot/campus-chatbot-go/internal/storage"
	"github.com/campusbot/campus-chatbot-go/internal/translate"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeResolver struct {
	reply dialog.Reply
	seen  []string
	lang  string
}

func (f *fakeResolver) Resolve(_ context.Context, s *dialog.Session, utterance string) dialog.Reply {
	f.seen = append(f.seen, utterance)
	f.lang = s.Lang
	return f.reply
}

// fakeTranslator swaps between two fixed languages so the round-trip is
// observable: inbound answers with pivot text, outbound echoes the target.
type fakeTranslator struct {
	detected string
	err      error
	calls    []string // targetLang per call
}

func (f *fakeTranslator) Translate(_ context.Context, text, targetLang string) (translate.Result, error) {
	f.calls = append(f.calls, targetLang)
	if f.err != nil {
		// Mirrors the real degradation contract: original text, nothing
		// detected.
		return translate.Result{Text: text}, f.err
	}
	return translate.Result{Text: "[" + targetLang + "] " + text, DetectedLang: f.detected}, nil
}

type fakeSynthesizer struct {
	name string
	err  error
	last string
}

func (f *fakeSynthesizer) Synthesize(_ context.Context, text, _ string) (string, error) {
	f.last = text
	return f.name, f.err
}

type webHarness struct {
	router   *gin.Engine
	handler  *Handler
	resolver *fakeResolver
	sessions *dialog.SessionManager
	db       *storage.DB
}

func newWebHarness(t *testing.T, cfg HandlerConfig) *webHarness {
	t.Helper()

	db, err := storage.New(":memory:")
	if err != nil {
		t.Fatalf("storage.New() error: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	h := &webHarness{
		resolver: &fakeResolver{reply: dialog.Reply{Text: "hello back"}},
		sessions: dialog.NewSessionManager(time.Minute, nil),
		db:       db,
	}
	cfg.Sessions = h.sessions
	cfg.Resolver = h.resolver
	cfg.DB = db
	h.handler = NewHandler(cfg)

	h.router = gin.New()
	h.router.POST("/chat", h.handler.Chat)
	h.router.POST("/feedback", h.handler.PostFeedback)
	h.router.GET("/feedback", h.handler.ListFeedback)
	return h
}

func (h *webHarness) post(t *testing.T, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

func decodeChat(t *testing.T, w *httptest.ResponseRecorder) chatResponse {
	t.Helper()
	var resp chatResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode chat response: %v (body %s)", err, w.Body.String())
	}
	return resp
}

func TestChatBasic(t *testing.T) {
	h := newWebHarness(t, HandlerConfig{})

	w := h.post(t, "/chat", gin.H{"message": "hello"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	resp := decodeChat(t, w)
	if resp.Response != "hello back" {
		t.Errorf("Response = %q", resp.Response)
	}
	if resp.SessionID == "" {
		t.Error("no session id issued")
	}
	if h.sessions.Len() != 1 {
		t.Errorf("sessions = %d, want 1", h.sessions.Len())
	}

	// Second turn with the returned id reuses the session.
	w = h.post(t, "/chat", gin.H{"message": "again", "session_id": resp.SessionID})
	if got := decodeChat(t, w).SessionID; got != resp.SessionID {
		t.Errorf("session id changed: %q -> %q", resp.SessionID, got)
	}
	if h.sessions.Len() != 1 {
		t.Errorf("sessions = %d after reuse, want 1", h.sessions.Len())
	}
}

func TestChatValidation(t *testing.T) {
	h := newWebHarness(t, HandlerConfig{})

	tests := []struct {
		name string
		body string
	}{
		{"empty message", `{"message": "   "}`},
		{"missing message", `{}`},
		{"garbage body", `{{{`},
		{"oversized message", `{"message": "` + strings.Repeat("a", maxMessageLen+1) + `"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			h.router.ServeHTTP(w, req)
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", w.Code)
			}
		})
	}
	if len(h.resolver.seen) != 0 {
		t.Errorf("resolver called %d times for invalid requests", len(h.resolver.seen))
	}
}

func TestChatLanguageRoundTrip(t *testing.T) {
	tr := &fakeTranslator{detected: "ta"}
	h := newWebHarness(t, HandlerConfig{Translator: tr, PivotLang: "en"})

	w := h.post(t, "/chat", gin.H{"message": "vanakkam"})
	resp := decodeChat(t, w)

	// Inbound pivoted to English before resolution.
	if len(h.resolver.seen) != 1 || h.resolver.seen[0] != "[en] vanakkam" {
		t.Errorf("resolver saw %v", h.resolver.seen)
	}
	// Detected language stored on the session before resolution.
	if h.resolver.lang != "ta" {
		t.Errorf("session lang at resolve time = %q, want ta", h.resolver.lang)
	}
	// Outbound rendered back in the detected language.
	if resp.Response != "[ta] hello back" {
		t.Errorf("Response = %q", resp.Response)
	}
	if len(tr.calls) != 2 || tr.calls[0] != "en" || tr.calls[1] != "ta" {
		t.Errorf("translator targets = %v", tr.calls)
	}
}

func TestChatPivotLanguageSkipsOutboundTranslation(t *testing.T) {
	tr := &fakeTranslator{detected: "en"}
	h := newWebHarness(t, HandlerConfig{Translator: tr, PivotLang: "en"})

	h.post(t, "/chat", gin.H{"message": "hello"})
	// Only the inbound call; English replies are not re-translated.
	if len(tr.calls) != 1 {
		t.Errorf("translator called %d times, want 1", len(tr.calls))
	}
}

func TestChatTranslatorFailureDegrades(t *testing.T) {
	tr := &fakeTranslator{err: errors.New("service unavailable")}
	h := newWebHarness(t, HandlerConfig{Translator: tr, PivotLang: "en"})

	w := h.post(t, "/chat", gin.H{"message": "vanakkam"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	// Original text passed through to the resolver.
	if len(h.resolver.seen) != 1 || h.resolver.seen[0] != "vanakkam" {
		t.Errorf("resolver saw %v", h.resolver.seen)
	}
	if decodeChat(t, w).Response != "hello back" {
		t.Error("reply not served untranslated on translator failure")
	}
}

func TestChatTranslatorFailureKeepsSessionLanguage(t *testing.T) {
	tr := &fakeTranslator{detected: "ta"}
	h := newWebHarness(t, HandlerConfig{Translator: tr, PivotLang: "en"})

	// First turn establishes the session language from detection.
	resp := decodeChat(t, h.post(t, "/chat", gin.H{"message": "vanakkam"}))
	if h.resolver.lang != "ta" {
		t.Fatalf("session lang after first turn = %q, want ta", h.resolver.lang)
	}

	// The translation service breaks mid-conversation. The session must
	// keep speaking Tamil, not silently reset to the pivot language.
	tr.err = errors.New("service unavailable")
	h.post(t, "/chat", gin.H{"message": "nandri", "session_id": resp.SessionID})
	if h.resolver.lang != "ta" {
		t.Errorf("session lang after translator failure = %q, want ta", h.resolver.lang)
	}
	// Outbound translation is still attempted in the session language.
	last := tr.calls[len(tr.calls)-1]
	if last != "ta" {
		t.Errorf("last translation target = %q, want ta", last)
	}
}

func TestChatAudio(t *testing.T) {
	synth := &fakeSynthesizer{name: "abc.mp3"}
	h := newWebHarness(t, HandlerConfig{Synthesizer: synth})

	resp := decodeChat(t, h.post(t, "/chat", gin.H{"message": "hello"}))
	if resp.AudioURL != AudioURLPrefix+"abc.mp3" {
		t.Errorf("AudioURL = %q", resp.AudioURL)
	}
	if synth.last != "hello back" {
		t.Errorf("synthesized %q", synth.last)
	}
}

func TestChatAudioFailureOmitsURL(t *testing.T) {
	synth := &fakeSynthesizer{err: errors.New("tts down")}
	h := newWebHarness(t, HandlerConfig{Synthesizer: synth})

	w := h.post(t, "/chat", gin.H{"message": "hello"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if resp := decodeChat(t, w); resp.AudioURL != "" {
		t.Errorf("AudioURL = %q on synthesis failure", resp.AudioURL)
	}
}

func TestChatEndedRemovesSession(t *testing.T) {
	h := newWebHarness(t, HandlerConfig{})
	h.resolver.reply = dialog.Reply{Text: "Goodbye!", Ended: true}

	resp := decodeChat(t, h.post(t, "/chat", gin.H{"message": "quit"}))
	if !resp.Ended {
		t.Error("Ended not set in response")
	}
	if h.sessions.Len() != 0 {
		t.Errorf("sessions = %d after quit, want 0", h.sessions.Len())
	}
}

func TestChatImageURLForwarded(t *testing.T) {
	h := newWebHarness(t, HandlerConfig{})
	h.resolver.reply = dialog.Reply{Text: "fees", ImageURL: "https://example.com/fees.png"}

	resp := decodeChat(t, h.post(t, "/chat", gin.H{"message": "fee structure"}))
	if resp.ImageURL != "https://example.com/fees.png" {
		t.Errorf("ImageURL = %q", resp.ImageURL)
	}
}

func TestFeedbackEndpoints(t *testing.T) {
	h := newWebHarness(t, HandlerConfig{})

	// Empty message rejected.
	if w := h.post(t, "/feedback", gin.H{"name": "Priya", "message": ""}); w.Code != http.StatusBadRequest {
		t.Errorf("empty message status = %d, want 400", w.Code)
	}

	// Rating out of range rejected, naming the offending field.
	if w := h.post(t, "/feedback", gin.H{"user_id": "Priya", "message": "ok", "rating": 6}); w.Code != http.StatusBadRequest {
		t.Errorf("bad rating status = %d, want 400", w.Code)
	} else if !strings.Contains(w.Body.String(), `"field":"rating"`) {
		t.Errorf("rejection body %s does not name the field", w.Body.String())
	}

	w := h.post(t, "/feedback", gin.H{"user_id": "Priya", "message": "very helpful", "rating": 5})
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	h.post(t, "/feedback", gin.H{"name": "Arun", "message": "could be faster"})

	req := httptest.NewRequest(http.MethodGet, "/feedback", nil)
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	var list struct {
		Feedback []storage.Feedback `json:"feedback"`
		Count    int                `json:"count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if list.Count != 2 || len(list.Feedback) != 2 {
		t.Fatalf("count = %d, entries = %d", list.Count, len(list.Feedback))
	}
	for _, fb := range list.Feedback {
		if fb.Name == "Priya" && fb.Rating != 5 {
			t.Errorf("Priya's rating = %d, want 5", fb.Rating)
		}
	}

	// Limit respected.
	req = httptest.NewRequest(http.MethodGet, "/feedback?limit=1", nil)
	rec = httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode limited list: %v", err)
	}
	if list.Count != 1 {
		t.Errorf("limited count = %d, want 1", list.Count)
	}

	// Bad limit rejected.
	req = httptest.NewRequest(http.MethodGet, "/feedback?limit=nope", nil)
	rec = httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad limit status = %d, want 400", rec.Code)
	}
}
