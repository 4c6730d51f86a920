package telegram_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/edgard/goalbot/internal/config"
	"github.com/edgard/goalbot/internal/errs"
	"github.com/edgard/goalbot/internal/logger"
	"github.com/edgard/goalbot/internal/resilience"
	"github.com/edgard/goalbot/internal/telegram"
)

const testToken = "123:abc"

// botAPI is a minimal Bot API stub that records form parameters per method.
type botAPI struct {
	mu       sync.Mutex
	calls    map[string][]map[string]string
	updates  string
	failSend bool
	block    chan struct{}
}

func (b *botAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	method := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	params := make(map[string]string)
	for k := range r.Form {
		params[k] = r.Form.Get(k)
	}
	b.mu.Lock()
	b.calls[method] = append(b.calls[method], params)
	b.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch method {
	case "getMe":
		fmt.Fprint(w, `{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"Goals","username":"goal_bot"}}`)
	case "getUpdates":
		if b.block != nil {
			<-b.block
		}
		fmt.Fprintf(w, `{"ok":true,"result":%s}`, b.updates)
	case "sendMessage":
		if b.failSend {
			fmt.Fprint(w, `{"ok":false,"error_code":403,"description":"Forbidden: bot was blocked by the user"}`)
			return
		}
		fmt.Fprintf(w, `{"ok":true,"result":{"message_id":1,"date":0,"chat":{"id":%s,"type":"private"},"text":"ok"}}`, params["chat_id"])
	case "setMyCommands":
		fmt.Fprint(w, `{"ok":true,"result":true}`)
	default:
		http.NotFound(w, r)
	}
}

func (b *botAPI) callsTo(method string) []map[string]string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[method]
}

func newClient(t *testing.T, api *botAPI) *telegram.Client {
	t.Helper()

	api.calls = make(map[string][]map[string]string)
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	client, err := telegram.NewWithEndpoint(
		config.TelegramConfig{Token: testToken, PollTimeout: 5 * time.Second},
		srv.URL+"/bot%s/%s",
		logger.Discard(),
	)
	if err != nil {
		t.Fatalf("NewWithEndpoint() error = %v", err)
	}
	return client
}

func TestNewWithEndpoint_ReadsUsername(t *testing.T) {
	t.Parallel()

	client := newClient(t, &botAPI{})
	if got := client.Username(); got != "goal_bot" {
		t.Errorf("Username() = %q, want goal_bot", got)
	}
}

func TestFetchUpdates(t *testing.T) {
	t.Parallel()

	api := &botAPI{updates: `[
		{"update_id":10,"message":{"message_id":1,"date":0,"text":"/create",
			"chat":{"id":42,"type":"private","username":"alice"},
			"from":{"id":42,"is_bot":false,"first_name":"Alice","username":"alice"}}},
		{"update_id":11,"message":{"message_id":2,"date":0,"text":"Personal",
			"chat":{"id":43,"type":"group","title":"Team"},
			"from":{"id":7,"is_bot":false,"first_name":"Bob","username":"bob"}}},
		{"update_id":12,"edited_message":{"message_id":1,"date":0,"text":"x","chat":{"id":42,"type":"private"}}}
	]`}
	client := newClient(t, api)

	updates, err := client.FetchUpdates(context.Background(), 10)
	if err != nil {
		t.Fatalf("FetchUpdates() error = %v", err)
	}
	if len(updates) != 3 {
		t.Fatalf("updates = %d, want 3", len(updates))
	}

	first := updates[0]
	if first.ID != 10 || first.Message == nil || first.Message.ChatID != 42 ||
		first.Message.Username != "alice" || first.Message.Text != "/create" {
		t.Errorf("first update = %+v / %+v", first, first.Message)
	}
	if updates[1].Message == nil || updates[1].Message.Username != "bob" {
		t.Errorf("group update username = %+v, want sender fallback bob", updates[1].Message)
	}
	if updates[2].ID != 12 || updates[2].Message != nil {
		t.Errorf("edited update = %+v, want id only", updates[2])
	}

	calls := api.callsTo("getUpdates")
	if len(calls) != 1 {
		t.Fatalf("getUpdates calls = %d, want 1", len(calls))
	}
	if calls[0]["offset"] != "10" || calls[0]["timeout"] != "5" {
		t.Errorf("getUpdates params = %v, want offset=10 timeout=5", calls[0])
	}
}

func TestFetchUpdates_ContextCancelled(t *testing.T) {
	t.Parallel()

	api := &botAPI{updates: "[]", block: make(chan struct{})}
	client := newClient(t, api)
	defer close(api.block)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.FetchUpdates(ctx, 0)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("FetchUpdates() error = %v, want deadline exceeded", err)
	}
}

func TestSendMessage(t *testing.T) {
	t.Parallel()

	api := &botAPI{}
	client := newClient(t, api)

	if err := client.SendMessage(context.Background(), 42, "hello"); err != nil {
		t.Fatalf("SendMessage() error = %v", err)
	}
	calls := api.callsTo("sendMessage")
	if len(calls) != 1 || calls[0]["chat_id"] != "42" || calls[0]["text"] != "hello" {
		t.Errorf("sendMessage calls = %v", calls)
	}
}

func TestSendMessage_Failure(t *testing.T) {
	t.Parallel()

	client := newClient(t, &botAPI{failSend: true})

	err := client.SendMessage(context.Background(), 42, "hello")
	if errs.Code(err) != errs.CodeTransport {
		t.Errorf("SendMessage() error = %v, want transport error", err)
	}
}

func TestSendMessage_BreakerOpens(t *testing.T) {
	t.Parallel()

	api := &botAPI{failSend: true}
	client := newClient(t, api)

	for i := 0; i < config.DefaultTelegramBreakerFailures; i++ {
		if err := client.SendMessage(context.Background(), 42, "hello"); err == nil {
			t.Fatalf("send %d error = nil, want failure", i)
		}
	}

	err := client.SendMessage(context.Background(), 42, "hello")
	if !errors.Is(err, resilience.ErrCircuitOpen) {
		t.Errorf("SendMessage() error = %v, want open circuit", err)
	}
	if got := len(api.callsTo("sendMessage")); got != config.DefaultTelegramBreakerFailures {
		t.Errorf("sendMessage calls = %d, want %d", got, config.DefaultTelegramBreakerFailures)
	}
}

func TestSetCommands(t *testing.T) {
	t.Parallel()

	api := &botAPI{}
	client := newClient(t, api)

	err := client.SetCommands(context.Background(), []telegram.Command{
		{Name: "/goals", Description: "List goals"},
		{Name: "/create", Description: "Create a goal"},
	})
	if err != nil {
		t.Fatalf("SetCommands() error = %v", err)
	}
	calls := api.callsTo("setMyCommands")
	if len(calls) != 1 {
		t.Fatalf("setMyCommands calls = %d, want 1", len(calls))
	}
	if got := calls[0]["commands"]; !strings.Contains(got, `"command":"goals"`) || !strings.Contains(got, `"command":"create"`) {
		t.Errorf("commands param = %s", got)
	}
}

func TestSplitMessage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		text  string
		limit int
		want  []string
	}{
		{name: "fits", text: "short", limit: 10, want: []string{"short"}},
		{name: "cut at newline", text: "line one\nline two\nline three", limit: 12, want: []string{"line one", "line two", "line three"}},
		{name: "hard cut", text: "abcdefghij", limit: 4, want: []string{"abcd", "efgh", "ij"}},
		{name: "multibyte", text: "ééééé", limit: 2, want: []string{"éé", "éé", "é"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := telegram.SplitMessage(tt.text, tt.limit)
			if fmt.Sprintf("%q", got) != fmt.Sprintf("%q", tt.want) {
				t.Errorf("SplitMessage() = %q, want %q", got, tt.want)
			}
		})
	}
}
