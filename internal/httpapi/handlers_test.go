package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"tinypal/internal/service"
	"tinypal/internal/store"
	"tinypal/internal/upstream"
)

const upstreamAnswers = `{
	"dyk_cards": [{"id":"d1","heading":"Sleep","content":"Naps matter.","image_url":"sleep.png"}],
	"flash_cards": [{"id":"f1","title":"Q","content":"A"}]
}`

const upstreamActivation = `{"cards":[{"title":"Tip","content":"Eat well","type":"tip"}],"chips":[{"text":"More please"}]}`

func newTestRouter(t *testing.T, upstreamHandler http.HandlerFunc, uploader ImageUploader) (http.Handler, string) {
	t.Helper()
	fake := httptest.NewServer(upstreamHandler)
	t.Cleanup(fake.Close)

	client, err := upstream.NewClient(upstream.Config{
		BaseURL: fake.URL,
		Timeout: 2 * time.Second,
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	st, err := store.NewJSONStore(filepath.Join(t.TempDir(), "state.json"))
	if err != nil {
		t.Fatalf("NewJSONStore() error = %v", err)
	}
	svc := service.New(st, client, service.Config{ModuleID: client.ModuleID()})
	h := NewHandler(svc, Options{
		Images:   client.Images(),
		Uploader: uploader,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	return NewRouter(h), fake.URL
}

func defaultUpstream(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case upstream.PersonalizedAnswersPath:
		_, _ = w.Write([]byte(upstreamAnswers))
	case upstream.ActivateAssistantPath:
		_, _ = w.Write([]byte(upstreamActivation))
	default:
		http.NotFound(w, r)
	}
}

func doJSON(t *testing.T, router http.Handler, method string, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body error = %v", err)
		}
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
		t.Fatalf("decode response error = %v, body=%s", err, rec.Body.String())
	}
}

func TestOpenScreenReturnsNormalizedCards(t *testing.T) {
	router, base := newTestRouter(t, defaultUpstream, nil)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/screens", map[string]any{"screen": "did_you_know"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d, body=%s", http.StatusCreated, rec.Code, rec.Body.String())
	}

	var view service.ScreenView
	decodeBody(t, rec, &view)
	if view.Status != service.StatusReady || len(view.DykCards) != 1 {
		t.Fatalf("unexpected view %+v", view)
	}
	card := view.DykCards[0]
	if card.Title != "Sleep" {
		t.Fatalf("expected heading used as title, got %q", card.Title)
	}
	if card.ImageURL == nil || *card.ImageURL != base+"/images/sleep.png" {
		t.Fatalf("expected resolved image url, got %v", card.ImageURL)
	}
}

func TestOpenScreenUnreachableUpstreamServesFallback(t *testing.T) {
	router, _ := newTestRouter(t, func(w http.ResponseWriter, r *http.Request) {
		hj, ok := w.(http.Hijacker)
		if !ok {
			t.Errorf("response writer cannot hijack")
			return
		}
		conn, _, err := hj.Hijack()
		if err == nil {
			_ = conn.Close()
		}
	}, nil)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/screens", map[string]any{"screen": "flash_cards"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d, body=%s", http.StatusCreated, rec.Code, rec.Body.String())
	}
	var view service.ScreenView
	decodeBody(t, rec, &view)
	if len(view.FlashCards) != 2 || view.FlashCards[0].Question != "What is the best way to handle tantrums?" {
		t.Fatalf("expected fallback flash cards, got %+v", view.FlashCards)
	}
}

func TestOpenScreenUpstreamErrorReturns502(t *testing.T) {
	router, _ := newTestRouter(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}, nil)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/screens", map[string]any{"screen": "did_you_know"})
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected status %d, got %d, body=%s", http.StatusBadGateway, rec.Code, rec.Body.String())
	}
	var resp map[string]any
	decodeBody(t, rec, &resp)
	if got, _ := resp["upstream_status"].(float64); got != http.StatusServiceUnavailable {
		t.Fatalf("expected upstream_status 503, got %v", resp["upstream_status"])
	}
}

func TestOpenScreenMalformedUpstreamReturns502(t *testing.T) {
	router, _ := newTestRouter(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"dyk_cards":"nope"}`))
	}, nil)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/screens", map[string]any{"screen": "did_you_know"})
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected status %d, got %d, body=%s", http.StatusBadGateway, rec.Code, rec.Body.String())
	}
}

func TestOpenScreenUnknownScreenReturns400(t *testing.T) {
	router, _ := newTestRouter(t, defaultUpstream, nil)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/screens", map[string]any{"screen": "settings"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d, body=%s", http.StatusBadRequest, rec.Code, rec.Body.String())
	}
	var resp map[string]string
	decodeBody(t, rec, &resp)
	if resp["error"] != service.ErrInvalidScreen.Error() {
		t.Fatalf("expected error %q, got %q", service.ErrInvalidScreen.Error(), resp["error"])
	}
}

func TestScreenLifecycleOverHTTP(t *testing.T) {
	router, _ := newTestRouter(t, defaultUpstream, nil)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/screens", map[string]any{"screen": "flash_cards"})
	var view service.ScreenView
	decodeBody(t, rec, &view)
	screenPath := "/api/v1/screens/" + view.ID

	rec = doJSON(t, router, http.MethodPost, screenPath+"/assistant", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("openAssistant expected 200, got %d, body=%s", rec.Code, rec.Body.String())
	}
	var withAssistant map[string]any
	decodeBody(t, rec, &withAssistant)
	if withAssistant["assistant_visible"] != true {
		t.Fatalf("expected assistant visible, got %v", withAssistant)
	}
	assistant, _ := withAssistant["assistant"].(map[string]any)
	cards, _ := assistant["cards"].([]any)
	if len(cards) != 1 {
		t.Fatalf("expected one assistant card, got %v", assistant)
	}
	first, _ := cards[0].(map[string]any)
	if first["type"] != "tip" || first["image_url"] != nil {
		t.Fatalf("expected passthrough card with null image_url, got %v", first)
	}

	chip := 0
	rec = doJSON(t, router, http.MethodPost, screenPath+"/messages", map[string]any{"chip_index": chip})
	if rec.Code != http.StatusCreated {
		t.Fatalf("sendMessage expected 201, got %d, body=%s", rec.Code, rec.Body.String())
	}
	var sent service.SendMessageResponse
	decodeBody(t, rec, &sent)
	if sent.Message.Text != "More please" || sent.Reply.Text != service.AssistantAcknowledgement {
		t.Fatalf("unexpected send response %+v", sent)
	}

	rec = doJSON(t, router, http.MethodGet, screenPath+"/messages", nil)
	var transcript struct {
		Messages []map[string]any `json:"messages"`
	}
	decodeBody(t, rec, &transcript)
	if len(transcript.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(transcript.Messages))
	}

	rec = doJSON(t, router, http.MethodDelete, screenPath+"/assistant", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("closeAssistant expected 200, got %d", rec.Code)
	}

	rec = doJSON(t, router, http.MethodDelete, screenPath, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("closeScreen expected 204, got %d", rec.Code)
	}

	rec = doJSON(t, router, http.MethodPost, screenPath+"/refresh", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("refresh after close expected 404, got %d", rec.Code)
	}
}

func TestSendMessageEmptyTextReturns400(t *testing.T) {
	router, _ := newTestRouter(t, defaultUpstream, nil)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/screens", map[string]any{"screen": "did_you_know"})
	var view service.ScreenView
	decodeBody(t, rec, &view)

	rec = doJSON(t, router, http.MethodPost, "/api/v1/screens/"+view.ID+"/messages", map[string]any{"text": "   "})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d, body=%s", http.StatusBadRequest, rec.Code, rec.Body.String())
	}
}

func TestHomeAndHealth(t *testing.T) {
	router, _ := newTestRouter(t, defaultUpstream, nil)

	rec := doJSON(t, router, http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz expected 200, got %d", rec.Code)
	}

	rec = doJSON(t, router, http.MethodGet, "/api/v1/home", nil)
	var menu map[string]any
	decodeBody(t, rec, &menu)
	if menu["title"] != "TinyPal Learning App" {
		t.Fatalf("unexpected home menu %v", menu)
	}
}

func TestSwaggerSpecListsScreenRoutes(t *testing.T) {
	router, _ := newTestRouter(t, defaultUpstream, nil)

	rec := doJSON(t, router, http.MethodGet, "/docs/openapi.json", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var doc map[string]any
	decodeBody(t, rec, &doc)
	paths, _ := doc["paths"].(map[string]any)
	for _, path := range []string{"/api/v1/screens", "/api/v1/screens/{id}/assistant", "/api/v1/screens/{id}/messages"} {
		if _, ok := paths[path]; !ok {
			t.Fatalf("expected %s in openapi paths", path)
		}
	}
}

type stubUploader struct {
	gotName string
	gotData []byte
}

func (s *stubUploader) Upload(_ context.Context, data []byte, fileName string) (string, error) {
	s.gotName = fileName
	s.gotData = data
	return "tip.png", nil
}

func TestUploadImage(t *testing.T) {
	uploader := &stubUploader{}
	router, base := newTestRouter(t, defaultUpstream, uploader)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "tip.png")
	if err != nil {
		t.Fatalf("CreateFormFile() error = %v", err)
	}
	_, _ = part.Write([]byte("png"))
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/images", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d, body=%s", http.StatusCreated, rec.Code, rec.Body.String())
	}
	var resp map[string]string
	decodeBody(t, rec, &resp)
	if resp["image_url"] != base+"/images/tip.png" {
		t.Fatalf("unexpected image_url %q", resp["image_url"])
	}
	if uploader.gotName != "tip.png" || string(uploader.gotData) != "png" {
		t.Fatalf("uploader got name=%q data=%q", uploader.gotName, uploader.gotData)
	}
}

func TestUploadImageWithoutStorageReturns503(t *testing.T) {
	router, _ := newTestRouter(t, defaultUpstream, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/images", strings.NewReader(""))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status %d, got %d", http.StatusServiceUnavailable, rec.Code)
	}
}
