// Package server exposes the debate pipeline over a local HTTP server with
// a websocket event stream: the web UI connects, sends a prompt, and
// receives chunk/complete/error/status/auth_status events in real time.
package server

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"debate/internal/orchestrator"
	"debate/internal/triage"
)

//go:embed static/index.html
var indexHTML []byte

// OrchestratorFactory builds a fresh orchestrator for one debate session.
type OrchestratorFactory func() (*orchestrator.Orchestrator, error)

// Server serves the UI and the websocket debate stream.
type Server struct {
	logger          *zap.Logger
	newOrchestrator OrchestratorFactory
	triageTarget    string
	responseTimeout time.Duration
	upgrader        websocket.Upgrader
}

// New constructs a server. triageTarget names the client that runs the
// synthesis round.
func New(factory OrchestratorFactory, triageTarget string, responseTimeout time.Duration, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		logger:          logger,
		newOrchestrator: factory,
		triageTarget:    triageTarget,
		responseTimeout: responseTimeout,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Local-only server; the UI is served from the same origin.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Get("/", s.handleIndex)
	r.Get("/health", s.handleHealth)
	r.Get("/ws/{session}", s.handleWebSocket)
	return r
}

// ListenAndServe serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Handler()}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(indexHTML)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// wsConn serializes writes to one websocket connection; events arrive
// concurrently from every target's streaming goroutine.
type wsConn struct {
	conn   *websocket.Conn
	mu     sync.Mutex
	closed bool
}

func (c *wsConn) send(ev Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	if err := c.conn.WriteJSON(ev); err != nil {
		c.closed = true
	}
}

// clientMessage is what the UI sends.
type clientMessage struct {
	Action string `json:"action"`
	Prompt string `json:"prompt"`
	Mode   string `json:"mode"`
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	ws := &wsConn{conn: conn}
	session := chi.URLParam(r, "session")
	logger := s.logger.With(zap.String("session", session))

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			ws.send(ErrorEvent("system", "invalid JSON"))
			continue
		}

		switch msg.Action {
		case "debate":
			prompt := strings.TrimSpace(msg.Prompt)
			if prompt == "" {
				ws.send(ErrorEvent("system", "empty prompt"))
				continue
			}
			s.runDebate(r.Context(), logger, ws, prompt, triage.ParseMode(msg.Mode))
		case "check_auth":
			s.runAuthCheck(r.Context(), logger, ws)
		default:
			ws.send(ErrorEvent("system", "unknown action: "+msg.Action))
		}
	}
}

// runDebate executes one full round: auth check, parallel debate, then the
// synthesis pass through the triage client.
func (s *Server) runDebate(ctx context.Context, logger *zap.Logger, ws *wsConn, prompt string, mode triage.Mode) {
	ws.send(Status("Starting debate session..."))

	orc, err := s.newOrchestrator()
	if err != nil {
		ws.send(ErrorEvent("system", truncate(err.Error(), 100)))
		return
	}
	if err := orc.Start(ctx); err != nil {
		ws.send(ErrorEvent("system", truncate(err.Error(), 100)))
		return
	}
	defer orc.Stop(context.WithoutCancel(ctx))

	ws.send(Status("Checking authentication..."))
	auth := orc.CheckAuth(ctx)
	var missing []string
	for id, ok := range auth {
		ws.send(AuthStatus(id, ok))
		if !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		ws.send(ErrorEvent("auth",
			"Not logged in to: "+strings.Join(missing, ", ")+". Run 'debate --setup' first."))
		return
	}

	ws.send(Status("Querying all models in parallel..."))
	responses := orc.Debate(ctx, prompt, func(targetID, chunk string) {
		ws.send(Chunk(targetID, chunk))
	}, s.responseTimeout)

	for id, text := range responses {
		ws.send(Complete(id, text))
	}

	ws.send(Status("Running unified analysis..."))
	triageClient, ok := orc.Client(s.triageTarget)
	if !ok {
		ws.send(ErrorEvent("synthesis", s.triageTarget+" client not available for synthesis"))
		return
	}

	result, err := triage.Run(ctx, triageClient, prompt, responses, orc.Targets(), mode,
		func(chunk string) { ws.send(Chunk("synthesis", chunk)) },
		s.responseTimeout)
	if err != nil {
		logger.Warn("triage failed", zap.Error(err))
		ws.send(ErrorEvent("synthesis", truncate(err.Error(), 200)))
		return
	}
	ws.send(Complete("synthesis", result))
	ws.send(Status("Debate complete!"))
}

func (s *Server) runAuthCheck(ctx context.Context, logger *zap.Logger, ws *wsConn) {
	ws.send(Status("Checking authentication..."))

	orc, err := s.newOrchestrator()
	if err != nil {
		ws.send(ErrorEvent("auth", truncate(err.Error(), 100)))
		return
	}
	if err := orc.Start(ctx); err != nil {
		ws.send(ErrorEvent("auth", truncate(err.Error(), 100)))
		return
	}
	defer orc.Stop(context.WithoutCancel(ctx))

	auth := orc.CheckAuth(ctx)
	var missing []string
	for id, ok := range auth {
		ws.send(AuthStatus(id, ok))
		if !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) == 0 {
		ws.send(Status("All models authenticated!"))
	} else {
		ws.send(Status("Not authenticated: " + strings.Join(missing, ", ")))
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
