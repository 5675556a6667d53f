package chatstream

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// newRecorded builds a conversation whose state changes flow into a
// buffered channel the test can wait on.
func newRecorded(c *Client) (*Conversation, chan Snapshot) {
	snaps := make(chan Snapshot, 256)
	conv := NewConversation(c, WithListener(func(s Snapshot) {
		snaps <- s
	}))
	return conv, snaps
}

// waitFor reads snapshots until one satisfies the predicate.
func waitFor(t *testing.T, snaps chan Snapshot, desc string, ok func(Snapshot) bool) Snapshot {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case s := <-snaps:
			if ok(s) {
				return s
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s", desc)
		}
	}
}

func isDone(s Snapshot) bool { return s.Phase == PhaseDone }

func TestSendCommitsReply(t *testing.T) {
	srv := sseServer(t, "data: {\"text\":\"Hi\"}\n\ndata: {\"text\":\" there\"}\n\ndata: [DONE]\n\n")
	conv, snaps := newRecorded(NewClient(srv.URL))

	conv.Send("hello")

	final := waitFor(t, snaps, "done phase", isDone)
	want := []Message{
		{Role: RoleUser, Content: "hello"},
		{Role: RoleAssistant, Content: "Hi there"},
	}
	if len(final.Transcript) != len(want) {
		t.Fatalf("transcript = %+v, want %+v", final.Transcript, want)
	}
	for i := range want {
		if final.Transcript[i] != want[i] {
			t.Errorf("transcript[%d] = %+v, want %+v", i, final.Transcript[i], want[i])
		}
	}
	if final.Pending != "" {
		t.Errorf("pending = %q, want empty after commit", final.Pending)
	}
}

func TestEmptySubmissionIgnored(t *testing.T) {
	conv, snaps := newRecorded(NewClient("http://unused.invalid"))

	conv.Send("   \n\t")

	select {
	case s := <-snaps:
		t.Fatalf("unexpected state change %+v for blank input", s)
	case <-time.After(50 * time.Millisecond):
	}
	if got := conv.Snapshot().Phase; got != PhaseIdle {
		t.Errorf("phase = %v, want idle", got)
	}
}

func TestMidstreamErrorSubstitutesFallback(t *testing.T) {
	// The delta must not be a substring of the fallback text, or the leak
	// check below can never distinguish the two.
	srv := sseServer(t, "data: {\"text\":\"Xyz\"}\n\ndata: {\"error\":\"Stream error\"}\n\n")
	conv, snaps := newRecorded(NewClient(srv.URL))

	conv.Send("hello")

	final := waitFor(t, snaps, "done phase", isDone)
	if len(final.Transcript) != 2 {
		t.Fatalf("transcript = %+v, want user turn plus fallback", final.Transcript)
	}
	reply := final.Transcript[1]
	if reply.Content != FallbackReply {
		t.Errorf("reply = %q, want the fallback text", reply.Content)
	}
	if strings.Contains(reply.Content, "Xyz") {
		t.Error("partial delta leaked into the committed reply")
	}
}

func TestRequestFailureSubstitutesFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"API key not configured"}`, http.StatusInternalServerError)
	}))
	defer srv.Close()
	conv, snaps := newRecorded(NewClient(srv.URL))

	conv.Send("hello")

	final := waitFor(t, snaps, "done phase", isDone)
	if len(final.Transcript) != 2 || final.Transcript[1].Content != FallbackReply {
		t.Errorf("transcript = %+v, want fallback reply", final.Transcript)
	}
}

func TestSupersessionDiscardsOldRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var req struct {
			Messages []Message `json:"messages"`
		}
		if err := json.Unmarshal(body, &req); err != nil || len(req.Messages) == 0 {
			http.Error(w, "bad body", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)

		last := req.Messages[len(req.Messages)-1].Content
		if last == "first" {
			// Drip a delta, then hold the stream open until cancelled.
			io.WriteString(w, "data: {\"text\":\"stale \"}\n\n")
			flusher.Flush()
			<-r.Context().Done()
			return
		}
		io.WriteString(w, "data: {\"text\":\"fresh reply\"}\n\ndata: [DONE]\n\n")
		flusher.Flush()
	}))
	defer srv.Close()
	conv, snaps := newRecorded(NewClient(srv.URL))

	conv.Send("first")
	waitFor(t, snaps, "first delta", func(s Snapshot) bool {
		return strings.Contains(s.Pending, "stale")
	})

	conv.Send("second")

	final := waitFor(t, snaps, "done phase", isDone)
	want := []Message{
		{Role: RoleUser, Content: "second"},
		{Role: RoleAssistant, Content: "fresh reply"},
	}
	if len(final.Transcript) != len(want) {
		t.Fatalf("transcript = %+v, want only the new exchange", final.Transcript)
	}
	for i := range want {
		if final.Transcript[i] != want[i] {
			t.Errorf("transcript[%d] = %+v, want %+v", i, final.Transcript[i], want[i])
		}
	}
	if strings.Contains(final.Pending, "stale") {
		t.Error("superseded request mutated state after cancellation")
	}
}

func TestResetClearsConversation(t *testing.T) {
	srv := sseServer(t, "data: {\"text\":\"hi\"}\n\ndata: [DONE]\n\n")
	conv, snaps := newRecorded(NewClient(srv.URL))

	conv.Send("hello")
	waitFor(t, snaps, "done phase", isDone)

	conv.Reset()

	snap := conv.Snapshot()
	if snap.Phase != PhaseIdle || len(snap.Transcript) != 0 || snap.Pending != "" {
		t.Errorf("snapshot after reset = %+v, want empty idle state", snap)
	}
}
