package telegram

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

// fakeBotAPI emulates the two Bot API methods the client uses. Updates are
// served once; later polls return an empty batch.
type fakeBotAPI struct {
	mu      sync.Mutex
	updates []Update
	served  bool
	sent    []sentMessage
	offsets []int64
}

type sentMessage struct {
	ChatID int64
	Text   string
}

func (f *fakeBotAPI) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		_ = json.NewDecoder(r.Body).Decode(&payload)

		f.mu.Lock()
		defer f.mu.Unlock()

		switch {
		case strings.HasSuffix(r.URL.Path, "/getUpdates"):
			if off, ok := payload["offset"].(float64); ok {
				f.offsets = append(f.offsets, int64(off))
			}
			result := []Update{}
			if !f.served {
				result = f.updates
				f.served = true
			}
			writeAPIResponse(w, result)
		case strings.HasSuffix(r.URL.Path, "/sendMessage"):
			chatID, _ := payload["chat_id"].(float64)
			text, _ := payload["text"].(string)
			f.sent = append(f.sent, sentMessage{ChatID: int64(chatID), Text: text})
			writeAPIResponse(w, map[string]any{"message_id": len(f.sent)})
		default:
			http.NotFound(w, r)
		}
	})
	return mux
}

func writeAPIResponse(w http.ResponseWriter, result any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "result": result})
}

func (f *fakeBotAPI) sentMessages() []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]sentMessage, len(f.sent))
	copy(out, f.sent)
	return out
}

func (f *fakeBotAPI) lastOffset() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.offsets) == 0 {
		return -1
	}
	return f.offsets[len(f.offsets)-1]
}

type recordingResponder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recordingResponder) HandleMessage(_ context.Context, userID, text string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, userID+"|"+text)
	return "answered: " + text
}

func (r *recordingResponder) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func runPollerOnce(t *testing.T, fake *fakeBotAPI, responder Responder) {
	t.Helper()
	ts := httptest.NewServer(fake.handler())
	defer ts.Close()

	client := NewClientWithBaseURL("test-token", ts.URL)
	poller := NewPoller(client, responder, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = poller.Run(ctx)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(fake.sentMessages()) >= len(fake.updates) {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	cancel()
	<-done
}

func textUpdate(updateID, userID, chatID int64, text string) Update {
	return Update{
		UpdateID: updateID,
		Message: &Message{
			MessageID: updateID,
			From:      &User{ID: userID, FirstName: "Sam"},
			Chat:      Chat{ID: chatID},
			Text:      text,
		},
	}
}

func TestPollerAnswersViaResponder(t *testing.T) {
	fake := &fakeBotAPI{updates: []Update{
		textUpdate(100, 7, 7, "What is IS621 about?"),
	}}
	responder := &recordingResponder{}

	runPollerOnce(t, fake, responder)

	sent := fake.sentMessages()
	if len(sent) != 1 {
		t.Fatalf("sent = %d messages, want 1", len(sent))
	}
	if sent[0].ChatID != 7 {
		t.Fatalf("chat id = %d, want 7", sent[0].ChatID)
	}
	if sent[0].Text != "answered: What is IS621 about?" {
		t.Fatalf("reply = %q", sent[0].Text)
	}
	if responder.callCount() != 1 {
		t.Fatalf("responder calls = %d, want 1", responder.callCount())
	}
}

func TestPollerAdvancesOffset(t *testing.T) {
	fake := &fakeBotAPI{updates: []Update{
		textUpdate(100, 7, 7, "first"),
		textUpdate(101, 7, 7, "second"),
	}}
	runPollerOnce(t, fake, &recordingResponder{})

	if got := fake.lastOffset(); got != 102 {
		t.Fatalf("last poll offset = %d, want 102", got)
	}
}

func TestPollerStartCommandSkipsResponder(t *testing.T) {
	fake := &fakeBotAPI{updates: []Update{
		textUpdate(100, 7, 7, "/start"),
	}}
	responder := &recordingResponder{}

	runPollerOnce(t, fake, responder)

	sent := fake.sentMessages()
	if len(sent) != 1 {
		t.Fatalf("sent = %d messages, want 1", len(sent))
	}
	if !strings.Contains(sent[0].Text, "Master's Program AI Assistant") {
		t.Fatalf("start reply = %q, want greeting", sent[0].Text)
	}
	if !strings.Contains(sent[0].Text, "Hello Sam") {
		t.Fatalf("start reply = %q, want personalized greeting", sent[0].Text)
	}
	if responder.callCount() != 0 {
		t.Fatalf("responder calls = %d, want 0 for /start", responder.callCount())
	}
}

func TestPollerHelpListsCourses(t *testing.T) {
	fake := &fakeBotAPI{updates: []Update{
		textUpdate(100, 7, 7, "/help@MinervaBot"),
	}}
	responder := &recordingResponder{}

	runPollerOnce(t, fake, responder)

	sent := fake.sentMessages()
	if len(sent) != 1 {
		t.Fatalf("sent = %d messages, want 1", len(sent))
	}
	for _, code := range []string{"IS621", "IS622", "IS623", "IS624", "IS625"} {
		if !strings.Contains(sent[0].Text, code) {
			t.Fatalf("help reply missing %s: %q", code, sent[0].Text)
		}
	}
	if responder.callCount() != 0 {
		t.Fatalf("responder calls = %d, want 0 for /help", responder.callCount())
	}
}

func TestPollerIgnoresNonTextUpdates(t *testing.T) {
	fake := &fakeBotAPI{updates: []Update{
		{UpdateID: 100, Message: nil},
		{UpdateID: 101, Message: &Message{From: &User{ID: 7}, Chat: Chat{ID: 7}, Text: "   "}},
		textUpdate(102, 7, 7, "real question"),
	}}
	responder := &recordingResponder{}

	ts := httptest.NewServer(fake.handler())
	defer ts.Close()
	client := NewClientWithBaseURL("test-token", ts.URL)
	poller := NewPoller(client, responder, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = poller.Run(ctx)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(fake.sentMessages()) >= 1 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	cancel()
	<-done

	sent := fake.sentMessages()
	if len(sent) != 1 {
		t.Fatalf("sent = %d messages, want 1", len(sent))
	}
	if sent[0].Text != "answered: real question" {
		t.Fatalf("reply = %q", sent[0].Text)
	}
}

func TestCommandParsing(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"/start", "start"},
		{"/Start", "start"},
		{"/help@MinervaBot", "help"},
		{"/start extra args", "start"},
		{"not a command", ""},
		{"what /start means", ""},
	}
	for _, tc := range cases {
		if got := command(tc.in); got != tc.want {
			t.Fatalf("command(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
