// Package server exposes the practice engine over a WebSocket endpoint plus
// the operational HTTP surface (health, readiness, Prometheus metrics).
//
// Each WebSocket connection owns exactly one practice session. A reader
// goroutine decodes client messages into a channel; the connection's main
// goroutine is the single owner of the session and serializes every mutation,
// interleaving client commands with the periodic tick that drives the
// stuck-word countdown.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/msaudi/tasmee/internal/align"
	"github.com/msaudi/tasmee/internal/app"
	"github.com/msaudi/tasmee/internal/health"
	"github.com/msaudi/tasmee/internal/observe"
	"github.com/msaudi/tasmee/internal/practice"
)

// shutdownTimeout bounds the graceful drain of in-flight HTTP requests.
const shutdownTimeout = 10 * time.Second

// Config holds all dependencies for a [Server].
type Config struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string

	// TickInterval is the wall-clock length of one session time unit.
	TickInterval time.Duration

	// Sessions manages the practice session lifecycle. Required.
	Sessions *app.SessionManager

	// Metrics is the instrument set. When nil, [observe.DefaultMetrics] is
	// used.
	Metrics *observe.Metrics

	// ReadyChecks are evaluated by the /readyz endpoint.
	ReadyChecks []health.Checker
}

// Server is the HTTP/WebSocket front end.
type Server struct {
	sessions     *app.SessionManager
	metrics      *observe.Metrics
	tickInterval time.Duration
	httpSrv      *http.Server
}

// New creates a Server. It does not start listening; call [Server.Run].
func New(cfg Config) *Server {
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = observe.DefaultMetrics()
	}
	tick := cfg.TickInterval
	if tick <= 0 {
		tick = time.Second
	}

	s := &Server{
		sessions:     cfg.Sessions,
		metrics:      metrics,
		tickInterval: tick,
	}

	ops := http.NewServeMux()
	health.New(cfg.ReadyChecks...).Register(ops)
	ops.Handle("GET /metrics", promhttp.Handler())

	mux := http.NewServeMux()
	mux.Handle("/", observe.Middleware(metrics)(ops))
	// The WebSocket route bypasses the middleware: the handshake hijacks the
	// connection, which the recording response writer cannot pass through.
	mux.HandleFunc("GET /ws", s.handleWS)

	s.httpSrv = &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Run serves until ctx is cancelled, then drains gracefully.
func (s *Server) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("server: listening", "addr", s.httpSrv.Addr)
		if err := s.httpSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: serve: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.httpSrv.Shutdown(shutCtx); err != nil {
			return fmt.Errorf("server: shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}

// handleWS upgrades the connection and runs the session loop until the client
// disconnects or the server shuts down.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		slog.Warn("server: websocket accept failed", "err", err)
		return
	}
	defer conn.Close(websocket.StatusInternalError, "session ended unexpectedly")

	ctx := r.Context()
	ms := s.sessions.Create(ctx)
	// The request context is gone by the time the deferred removal runs.
	defer s.sessions.Remove(context.Background(), ms.ID)

	if err := s.sessionLoop(ctx, conn, ms); err != nil {
		status := websocket.CloseStatus(err)
		if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
			conn.Close(websocket.StatusNormalClosure, "")
			return
		}
		slog.Debug("server: session loop ended", "session_id", ms.ID, "err", err)
		return
	}
	conn.Close(websocket.StatusNormalClosure, "")
}

// sessionLoop is the single owner of ms.Session. It multiplexes decoded
// client messages with the tick timer; nothing else touches the session.
func (s *Server) sessionLoop(ctx context.Context, conn *websocket.Conn, ms *app.ManagedSession) error {
	msgs := make(chan ClientMessage)
	readErr := make(chan error, 1)
	go func() {
		defer close(msgs)
		for {
			var msg ClientMessage
			if err := wsjson.Read(ctx, conn, &msg); err != nil {
				readErr <- err
				return
			}
			select {
			case msgs <- msg:
			case <-ctx.Done():
				return
			}
		}
	}()

	// Greet the client with its session identity before any command.
	if err := wsjson.Write(ctx, conn, ServerMessage{Type: MsgState, SessionID: ms.ID}); err != nil {
		return err
	}

	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-ticker.C:
			// Only tick loaded, unfinished sessions. State is pushed while
			// a countdown runs and once more when it expires, so the client
			// sees both the remaining time and the hint it unlocks.
			if _, done := ms.Session.Summary(); done {
				continue
			}
			_, wasActive := ms.Session.StuckTimerRemaining()
			snap := ms.Session.Tick()
			if wasActive {
				if err := wsjson.Write(ctx, conn, stateMessage(ms.ID, ms.Session, snap)); err != nil {
					return err
				}
			}

		case msg, ok := <-msgs:
			if !ok {
				select {
				case err := <-readErr:
					return err
				default:
					return ctx.Err()
				}
			}
			if err := s.handleMessage(ctx, conn, ms, msg); err != nil {
				return err
			}
		}
	}
}

// handleMessage dispatches one client command and pushes the resulting state.
func (s *Server) handleMessage(ctx context.Context, conn *websocket.Conn, ms *app.ManagedSession, msg ClientMessage) error {
	ses := ms.Session

	switch msg.Type {
	case MsgLoadPassage:
		if msg.Passage == "" {
			return wsjson.Write(ctx, conn, errorMessage(ms.ID, "load_passage: empty passage"))
		}
		start := time.Now()
		snap := ses.LoadPassage(msg.Passage)
		s.metrics.SegmentationDuration.Record(ctx, time.Since(start).Seconds())
		return wsjson.Write(ctx, conn, stateMessage(ms.ID, ses, snap))

	case MsgTranscript:
		if msg.Transcript == nil {
			return wsjson.Write(ctx, conn, errorMessage(ms.ID, "transcript: missing payload"))
		}
		before := ses.Snapshot()
		start := time.Now()
		snap := ses.ApplyTranscript(msg.Transcript.Tokens, msg.Transcript.IsFinal)
		s.metrics.AlignmentDuration.Record(ctx, time.Since(start).Seconds())
		s.recordProgress(ctx, string(ses.Strictness()), before, snap)
		if err := wsjson.Write(ctx, conn, stateMessage(ms.ID, ses, snap)); err != nil {
			return err
		}
		return s.maybeFinish(ctx, conn, ms)

	case MsgSetStrictness:
		if err := ses.SetStrictness(msg.Strictness); err != nil {
			return wsjson.Write(ctx, conn, errorMessage(ms.ID, err.Error()))
		}
		return wsjson.Write(ctx, conn, stateMessage(ms.ID, ses, ses.Snapshot()))

	case MsgSetMode:
		if err := ses.SetMode(msg.MemoryMode, msg.Difficulty); err != nil {
			return wsjson.Write(ctx, conn, errorMessage(ms.ID, err.Error()))
		}
		return wsjson.Write(ctx, conn, stateMessage(ms.ID, ses, ses.Snapshot()))

	case MsgReset:
		ses.Reset()
		return wsjson.Write(ctx, conn, stateMessage(ms.ID, ses, ses.Snapshot()))

	case MsgExtendTimer:
		ses.ExtendStuckTimer()
		return wsjson.Write(ctx, conn, stateMessage(ms.ID, ses, ses.Snapshot()))

	case MsgSkipTimer:
		ses.SkipStuckTimer()
		return wsjson.Write(ctx, conn, stateMessage(ms.ID, ses, ses.Snapshot()))

	case MsgRevealWord:
		snap := ses.RevealCurrentWord()
		if err := wsjson.Write(ctx, conn, stateMessage(ms.ID, ses, snap)); err != nil {
			return err
		}
		return s.maybeFinish(ctx, conn, ms)

	default:
		return wsjson.Write(ctx, conn, errorMessage(ms.ID, fmt.Sprintf("unknown message type %q", msg.Type)))
	}
}

// recordProgress derives match, attempt and hint metrics from the state delta
// of one transcript update.
func (s *Server) recordProgress(ctx context.Context, strictness string, before, after practice.Snapshot) {
	var attemptDelta int64
	for i, w := range after.Words {
		if i >= len(before.Words) {
			break
		}
		prev := before.Words[i]
		if w.Status == align.StatusCorrect && prev.Status != align.StatusCorrect {
			s.metrics.RecordMatch(ctx, strictness, w.IsPerfect)
		}
		attemptDelta += int64(w.Attempts - prev.Attempts)
		if w.HintsShown > prev.HintsShown {
			s.metrics.RecordHint(ctx, w.HintsShown)
		}
	}
	s.metrics.RecordAttempts(ctx, attemptDelta)
}

// maybeFinish pushes the completion summary and persists it once the passage
// is done.
func (s *Server) maybeFinish(ctx context.Context, conn *websocket.Conn, ms *app.ManagedSession) error {
	summary, done := ms.Session.Summary()
	if !done {
		return nil
	}
	if err := s.sessions.Persist(ctx, ms); err != nil {
		slog.Warn("server: persist summary failed", "session_id", ms.ID, "err", err)
	}
	return wsjson.Write(ctx, conn, ServerMessage{
		Type:      MsgSummary,
		SessionID: ms.ID,
		Accuracy:  summary.Accuracy,
		Summary:   &summary,
	})
}
