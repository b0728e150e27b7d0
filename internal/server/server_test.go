package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"debate/internal/client"
	"debate/internal/orchestrator"
	"debate/internal/selectors"
)

func TestEventShapes(t *testing.T) {
	tests := []struct {
		name string
		ev   Event
		want string
	}{
		{"chunk", Chunk("claude", "Hel"), `{"type":"chunk","source":"claude","content":"Hel"}`},
		{"complete", Complete("gemini", "done"), `{"type":"complete","source":"gemini","content":"done"}`},
		{"error", ErrorEvent("chatgpt", "crashed"), `{"type":"error","source":"chatgpt","message":"crashed"}`},
		{"status", Status("working"), `{"type":"status","message":"working"}`},
		{"auth true", AuthStatus("claude", true), `{"type":"auth_status","source":"claude","authenticated":true}`},
		{"auth false", AuthStatus("claude", false), `{"type":"auth_status","source":"claude","authenticated":false}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.ev)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(data))
		})
	}
}

// stubClient scripts one target's behavior for websocket round-trip tests.
type stubClient struct {
	id       string
	response string
	chunks   []string
	authed   bool
	sendErr  error
}

func (s *stubClient) Target() selectors.TargetDescriptor {
	return selectors.TargetDescriptor{
		ID:         s.id,
		Name:       strings.ToUpper(s.id[:1]) + s.id[1:],
		URL:        "https://" + s.id + ".test/",
		NewChatURL: "https://" + s.id + ".test/new",
		Inputs:     []selectors.Locator{selectors.CSS("#in")},
		Submits:    []selectors.Locator{selectors.CSS("#go")},
		Responses:  []selectors.Locator{selectors.CSS(".msg")},
	}
}

func (s *stubClient) Start(context.Context) error                   { return nil }
func (s *stubClient) Stop(context.Context) error                    { return nil }
func (s *stubClient) IsAuthenticated(context.Context) bool          { return s.authed }
func (s *stubClient) SetupAuth(context.Context, func() error) error { return nil }

func (s *stubClient) SendPrompt(_ context.Context, _ string, onChunk func(string), _ time.Duration) (string, error) {
	if s.sendErr != nil {
		return "", s.sendErr
	}
	for _, c := range s.chunks {
		if onChunk != nil {
			onChunk(c)
		}
	}
	return s.response, nil
}

func newTestServer(t *testing.T, stubs ...*stubClient) *httptest.Server {
	t.Helper()
	factory := func() (*orchestrator.Orchestrator, error) {
		clients := make([]client.Client, len(stubs))
		for i, s := range stubs {
			clients[i] = s
		}
		return orchestrator.New(clients, zap.NewNop()), nil
	}
	srv := New(factory, "claude", time.Second, zap.NewNop())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func dialWS(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/test-session"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

// collectEvents reads until a terminal status or error, keyed off want.
func collectEvents(t *testing.T, conn *websocket.Conn, done func(Event) bool) []Event {
	t.Helper()
	var events []Event
	deadline := time.Now().Add(5 * time.Second)
	require.NoError(t, conn.SetReadDeadline(deadline))
	for {
		var ev Event
		require.NoError(t, conn.ReadJSON(&ev))
		events = append(events, ev)
		if done(ev) {
			return events
		}
	}
}

func eventsBySource(events []Event, typ string) map[string]string {
	out := map[string]string{}
	for _, ev := range events {
		if ev.Type == typ {
			out[ev.Source] += ev.Content
		}
	}
	return out
}

func TestHealthEndpoint(t *testing.T) {
	ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
}

func TestIndexServed(t *testing.T) {
	ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
}

func TestWebSocketDebateRoundTrip(t *testing.T) {
	ts := newTestServer(t,
		&stubClient{id: "claude", authed: true, response: "Answer A", chunks: []string{"Answer", " A"}},
		&stubClient{id: "gemini", authed: true, response: "Answer B", chunks: []string{"Answer B"}},
	)
	conn := dialWS(t, ts)

	require.NoError(t, conn.WriteJSON(clientMessage{Action: "debate", Prompt: "What is X?"}))

	events := collectEvents(t, conn, func(ev Event) bool {
		return ev.Type == "status" && ev.Message == "Debate complete!"
	})

	chunks := eventsBySource(events, "chunk")
	assert.Equal(t, "Answer A", chunks["claude"])
	assert.Equal(t, "Answer B", chunks["gemini"])
	// The triage client streams the synthesis under its own source tag.
	assert.NotEmpty(t, chunks["synthesis"])

	completes := eventsBySource(events, "complete")
	assert.Equal(t, "Answer A", completes["claude"])
	assert.Equal(t, "Answer B", completes["gemini"])
	assert.NotEmpty(t, completes["synthesis"])
}

func TestWebSocketDebateFailureIsolated(t *testing.T) {
	ts := newTestServer(t,
		&stubClient{id: "claude", authed: true, response: "Fine"},
		&stubClient{id: "gemini", authed: true, sendErr: errors.New("tab crashed")},
	)
	conn := dialWS(t, ts)

	require.NoError(t, conn.WriteJSON(clientMessage{Action: "debate", Prompt: "q"}))

	events := collectEvents(t, conn, func(ev Event) bool {
		return ev.Type == "status" && ev.Message == "Debate complete!"
	})

	completes := eventsBySource(events, "complete")
	assert.Equal(t, "Fine", completes["claude"])
	assert.Contains(t, completes["gemini"], "[Error: LLMClientError:")
}

func TestWebSocketDebateBlockedWithoutAuth(t *testing.T) {
	ts := newTestServer(t,
		&stubClient{id: "claude", authed: true},
		&stubClient{id: "gemini", authed: false},
	)
	conn := dialWS(t, ts)

	require.NoError(t, conn.WriteJSON(clientMessage{Action: "debate", Prompt: "q"}))

	events := collectEvents(t, conn, func(ev Event) bool { return ev.Type == "error" })

	last := events[len(events)-1]
	assert.Equal(t, "auth", last.Source)
	assert.Contains(t, last.Message, "gemini")
	// No prompt was ever submitted.
	assert.Empty(t, eventsBySource(events, "chunk"))
}

func TestWebSocketAuthCheck(t *testing.T) {
	ts := newTestServer(t,
		&stubClient{id: "claude", authed: true},
		&stubClient{id: "gemini", authed: false},
	)
	conn := dialWS(t, ts)

	require.NoError(t, conn.WriteJSON(clientMessage{Action: "check_auth"}))

	events := collectEvents(t, conn, func(ev Event) bool {
		return ev.Type == "status" && strings.HasPrefix(ev.Message, "Not authenticated")
	})

	auth := map[string]bool{}
	for _, ev := range events {
		if ev.Type == "auth_status" {
			auth[ev.Source] = *ev.Authenticated
		}
	}
	assert.Equal(t, map[string]bool{"claude": true, "gemini": false}, auth)
}

func TestWebSocketRejectsEmptyPrompt(t *testing.T) {
	ts := newTestServer(t, &stubClient{id: "claude", authed: true})
	conn := dialWS(t, ts)

	require.NoError(t, conn.WriteJSON(clientMessage{Action: "debate", Prompt: "   "}))
	events := collectEvents(t, conn, func(ev Event) bool { return ev.Type == "error" })
	assert.Equal(t, "empty prompt", events[len(events)-1].Message)
}

func TestWebSocketUnknownAction(t *testing.T) {
	ts := newTestServer(t, &stubClient{id: "claude"})
	conn := dialWS(t, ts)

	require.NoError(t, conn.WriteJSON(clientMessage{Action: "dance"}))
	events := collectEvents(t, conn, func(ev Event) bool { return ev.Type == "error" })
	assert.Contains(t, events[len(events)-1].Message, "unknown action")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab", truncate("abcdef", 2))
}
