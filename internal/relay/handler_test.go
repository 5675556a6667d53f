package relay

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/clik-ai/concierge/internal/domain"
	"github.com/clik-ai/concierge/internal/prompt"
	"github.com/clik-ai/concierge/internal/provider"
	"github.com/clik-ai/concierge/internal/tokens"
)

// stubProvider replays a fixed event sequence and records the last request.
type stubProvider struct {
	events  []provider.Event
	lastReq *provider.Request
	openErr error
}

func (s *stubProvider) Name() string { return "stub" }

func (s *stubProvider) Stream(ctx context.Context, req *provider.Request) (<-chan provider.Event, error) {
	s.lastReq = req
	if s.openErr != nil {
		return nil, s.openErr
	}
	out := make(chan provider.Event)
	go func() {
		defer close(out)
		for _, ev := range s.events {
			select {
			case <-ctx.Done():
				return
			case out <- ev:
			}
			if ev.Err != nil {
				return
			}
		}
	}()
	return out, nil
}

func newTestHandler(t *testing.T, p provider.Completer) *Handler {
	t.Helper()
	est, err := tokens.NewEstimator()
	if err != nil {
		t.Fatalf("NewEstimator() error = %v", err)
	}
	return NewHandler(p, prompt.New("Clik turns raw footage into edits."), est, Settings{
		Model:           "claude-haiku-4-5-20251001",
		MaxTokens:       300,
		ContextBudget:   6000,
		UpstreamTimeout: 5 * time.Second,
	})
}

func postChat(t *testing.T, h *Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(body))
	rr := httptest.NewRecorder()
	h.HandleChat(rr, req)
	return rr
}

func TestMissingCredential(t *testing.T) {
	// nil provider stands in for an unset credential
	h := newTestHandler(t, nil)

	rr := postChat(t, h, `{"messages":[{"role":"user","content":"hello"}]}`)

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rr.Code)
	}
	if got := strings.TrimSpace(rr.Body.String()); got != `{"error":"API key not configured"}` {
		t.Errorf("body = %s", got)
	}
}

func TestInvalidBody(t *testing.T) {
	h := newTestHandler(t, &stubProvider{})

	rr := postChat(t, h, `{not json`)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
	if got := strings.TrimSpace(rr.Body.String()); got != `{"error":"Invalid request body"}` {
		t.Errorf("body = %s", got)
	}
}

func TestEmptyMessages(t *testing.T) {
	h := newTestHandler(t, &stubProvider{})

	for _, body := range []string{`{}`, `{"messages":[]}`} {
		rr := postChat(t, h, body)
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("status for %s = %d, want 400", body, rr.Code)
		}
		if got := strings.TrimSpace(rr.Body.String()); got != `{"error":"Messages array required"}` {
			t.Errorf("body for %s = %s", body, got)
		}
	}
}

func TestStreamHappyPath(t *testing.T) {
	stub := &stubProvider{events: []provider.Event{{Delta: "Hi"}, {Delta: " there"}}}
	h := newTestHandler(t, stub)

	rr := postChat(t, h, `{"messages":[{"role":"user","content":"hello"}]}`)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q", ct)
	}
	if cc := rr.Header().Get("Cache-Control"); cc != "no-cache" {
		t.Errorf("Cache-Control = %q", cc)
	}

	body := rr.Body.String()
	wantFrames := []string{
		`data: {"text":"Hi"}`,
		`data: {"text":" there"}`,
		`data: [DONE]`,
	}
	pos := 0
	for _, frame := range wantFrames {
		idx := strings.Index(body[pos:], frame)
		if idx < 0 {
			t.Fatalf("frame %q missing or out of order in body:\n%s", frame, body)
		}
		pos += idx + len(frame)
	}

	// The provider must see the system instruction, not a transcript turn.
	if stub.lastReq == nil {
		t.Fatal("provider was not called")
	}
	if !strings.Contains(stub.lastReq.System, "Clik turns raw footage into edits.") {
		t.Errorf("system instruction missing product context: %q", stub.lastReq.System)
	}
	if stub.lastReq.MaxTokens != 300 {
		t.Errorf("MaxTokens = %d, want 300", stub.lastReq.MaxTokens)
	}
}

func TestStreamMidstreamError(t *testing.T) {
	stub := &stubProvider{events: []provider.Event{
		{Delta: "Sor"},
		{Err: context.DeadlineExceeded},
	}}
	h := newTestHandler(t, stub)

	rr := postChat(t, h, `{"messages":[{"role":"user","content":"hello"}]}`)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (headers already committed)", rr.Code)
	}

	body := rr.Body.String()
	if !strings.Contains(body, `data: {"text":"Sor"}`) {
		t.Errorf("delta before failure missing: %s", body)
	}
	if !strings.Contains(body, `data: {"error":"Stream error"}`) {
		t.Errorf("in-band error frame missing: %s", body)
	}
	if strings.Contains(body, domain.DoneSentinel) {
		t.Errorf("done sentinel must not follow an error: %s", body)
	}
}

func TestStreamOpenFailure(t *testing.T) {
	stub := &stubProvider{openErr: context.DeadlineExceeded}
	h := newTestHandler(t, stub)

	rr := postChat(t, h, `{"messages":[{"role":"user","content":"hello"}]}`)

	if rr.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502 before any bytes stream", rr.Code)
	}
}

func TestTranscriptTrimmedToBudget(t *testing.T) {
	stub := &stubProvider{events: []provider.Event{{Delta: "ok"}}}
	est, err := tokens.NewEstimator()
	if err != nil {
		t.Fatal(err)
	}
	h := NewHandler(stub, prompt.New(""), est, Settings{
		Model:         "claude-haiku-4-5-20251001",
		MaxTokens:     300,
		ContextBudget: 1, // force everything but the latest turn out
	})

	body := `{"messages":[` +
		`{"role":"user","content":"an older question about editing"},` +
		`{"role":"assistant","content":"an older answer"},` +
		`{"role":"user","content":"latest"}]}`
	rr := postChat(t, h, body)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if stub.lastReq == nil {
		t.Fatal("provider was not called")
	}
	if len(stub.lastReq.Messages) != 1 || stub.lastReq.Messages[0].Content != "latest" {
		t.Errorf("forwarded messages = %+v, want only the latest turn", stub.lastReq.Messages)
	}
}

func TestDeltaOrderPreserved(t *testing.T) {
	deltas := []provider.Event{}
	var want strings.Builder
	for _, piece := range []string{"a", "b", "c", "d", "e", "f"} {
		deltas = append(deltas, provider.Event{Delta: piece})
		want.WriteString(piece)
	}
	h := newTestHandler(t, &stubProvider{events: deltas})

	rr := postChat(t, h, `{"messages":[{"role":"user","content":"hello"}]}`)

	var got strings.Builder
	for _, line := range strings.Split(rr.Body.String(), "\n") {
		payload, ok := strings.CutPrefix(line, "data: ")
		if !ok || payload == domain.DoneSentinel {
			continue
		}
		var frame domain.DeltaFrame
		if err := json.Unmarshal([]byte(payload), &frame); err != nil {
			t.Fatalf("bad frame %q: %v", payload, err)
		}
		got.WriteString(frame.Text)
	}

	if got.String() != want.String() {
		t.Errorf("reassembled text = %q, want %q", got.String(), want.String())
	}
}
