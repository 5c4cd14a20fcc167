package backend_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hipnotiq/revisor/internal/backend"
	"github.com/hipnotiq/revisor/pkg/retry"
)

func TestClient_FetchRequest(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/requests/req-7" {
			t.Errorf("path = %q, want /requests/req-7", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sekrit" {
			t.Errorf("Authorization = %q, want Bearer sekrit", got)
		}
		io.WriteString(w, `{
			"id": "req-7",
			"title": "Sesión de sueño profundo",
			"status": "transcribed",
			"sections": [
				{"sectionID": 0, "texts": ["uno", "dos"], "audios": [
					{"audioID": 11, "completed": true, "transcription": "uno"},
					{"audioID": 12, "completed": true, "transcription": "dos"}
				]}
			]
		}`)
	}))
	defer srv.Close()

	c, err := backend.New(srv.URL, backend.WithAPIKey("sekrit"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ar, err := c.FetchRequest(context.Background(), "req-7")
	if err != nil {
		t.Fatalf("FetchRequest: %v", err)
	}
	if ar.Title != "Sesión de sueño profundo" {
		t.Errorf("Title = %q", ar.Title)
	}
	if len(ar.Sections) != 1 || len(ar.Sections[0].Texts) != 2 {
		t.Fatalf("sections = %+v, want 1 section with 2 texts", ar.Sections)
	}
	if ar.Sections[0].Audios[1].AudioID != 12 {
		t.Errorf("Audios[1].AudioID = %d, want 12", ar.Sections[0].Audios[1].AudioID)
	}
}

func TestClient_FetchRequest_NotFound(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	c, err := backend.New(srv.URL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	// Repeated 404s must neither error differently nor trip the breaker.
	for i := 0; i < 10; i++ {
		if _, err := c.FetchRequest(context.Background(), "missing"); !errors.Is(err, backend.ErrNotFound) {
			t.Fatalf("FetchRequest #%d: err = %v, want ErrNotFound", i, err)
		}
	}
	if got := c.BreakerState(); got != backend.StateClosed {
		t.Errorf("BreakerState = %s after 404s, want closed", got)
	}
}

func TestClient_SubmitReprocess_WireShape(t *testing.T) {
	t.Parallel()

	var gotBody []byte
	var gotMethod, gotPath, gotContentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotContentType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
	}))
	defer srv.Close()

	c, err := backend.New(srv.URL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	l := retry.NewLedger()
	l.Update(0, 1, "texto corregido", "texto original", 99)

	if err := c.SubmitReprocess(context.Background(), "req-1", l.Document()); err != nil {
		t.Fatalf("SubmitReprocess: %v", err)
	}

	if gotMethod != http.MethodPut {
		t.Errorf("method = %s, want PUT", gotMethod)
	}
	if gotPath != "/requests/req-1/retry" {
		t.Errorf("path = %q, want /requests/req-1/retry", gotPath)
	}
	if gotContentType != "application/json" {
		t.Errorf("content type = %q", gotContentType)
	}

	// The backend consumes these exact field names.
	var decoded map[string]any
	if err := json.Unmarshal(gotBody, &decoded); err != nil {
		t.Fatalf("unmarshal submitted body: %v", err)
	}
	sections := decoded["sections"].([]any)
	sec := sections[0].(map[string]any)
	for _, key := range []string{"sectionId", "remakeALL", "texts"} {
		if _, ok := sec[key]; !ok {
			t.Errorf("submitted section missing field %q: %s", key, gotBody)
		}
	}
	entry := sec["texts"].([]any)[0].(map[string]any)
	for _, key := range []string{"index", "textToUse", "regen", "audioID"} {
		if _, ok := entry[key]; !ok {
			t.Errorf("submitted entry missing field %q: %s", key, gotBody)
		}
	}
}

func TestClient_SubmitReprocess_ErrorPreservesBody(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		io.WriteString(w, "synthesis cluster unavailable")
	}))
	defer srv.Close()

	c, err := backend.New(srv.URL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	err = c.SubmitReprocess(context.Background(), "req-1", retry.NewLedger().Document())
	var statusErr *backend.StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("err = %v, want *StatusError", err)
	}
	if statusErr.Code != http.StatusBadGateway || statusErr.Body != "synthesis cluster unavailable" {
		t.Errorf("StatusError = %+v", statusErr)
	}
}

func TestClient_BreakerOpensOnRepeatedFailures(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	cb := backend.NewCircuitBreaker(backend.CircuitBreakerConfig{
		Name:        "test",
		MaxFailures: 3,
	})
	c, err := backend.New(srv.URL, backend.WithBreaker(cb))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	for i := 0; i < 3; i++ {
		if _, err := c.FetchRequest(context.Background(), "req"); err == nil {
			t.Fatalf("FetchRequest #%d: err=nil, want failure", i)
		}
	}
	if got := c.BreakerState(); got != backend.StateOpen {
		t.Fatalf("BreakerState = %s after 3 failures, want open", got)
	}

	// Further calls are rejected without reaching the backend.
	if _, err := c.FetchRequest(context.Background(), "req"); !errors.Is(err, backend.ErrCircuitOpen) {
		t.Errorf("err = %v, want ErrCircuitOpen", err)
	}
}

func TestNew_RequiresBaseURL(t *testing.T) {
	t.Parallel()

	if _, err := backend.New(""); err == nil {
		t.Fatal("New(\"\"): err=nil, want error")
	}
}
