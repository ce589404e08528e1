package web

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"

	"github.com/linuxmatters/foosmic/internal/processor"
)

// Options configures a Server.
type Options struct {
	Listen    string // host:port, e.g. ":8088"
	SessionID string // generated when empty
	Logger    *slog.Logger
}

// Health is the /health response body.
type Health struct {
	Status  string `json:"status"`
	Session string `json:"session"`
	Clients int    `json:"clients"`
	Frames  int64  `json:"frames"`
	Dropped int64  `json:"dropped"`
	Uptime  string `json:"uptime"`
}

// Server publishes each Status to websocket subscribers and keeps the
// latest one for polling clients. It implements the status sink used by
// the session runner.
type Server struct {
	app     *fiber.App
	hub     *Hub
	listen  string
	session string
	logger  *slog.Logger
	started time.Time

	mu     sync.RWMutex
	latest *Envelope

	frames  atomic.Int64
	dropped atomic.Int64

	ctx    context.Context
	cancel context.CancelFunc
}

// NewServer builds the routes. The hub starts immediately; Start begins
// listening.
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	session := opts.SessionID
	if session == "" {
		session = uuid.NewString()
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		hub:     NewHub("status", logger),
		listen:  opts.Listen,
		session: session,
		logger:  logger,
		started: time.Now(),
		ctx:     ctx,
		cancel:  cancel,
	}
	go s.hub.Run(ctx)

	app := fiber.New(fiber.Config{
		AppName:               "foosmic",
		DisableStartupMessage: true,
	})

	app.Get("/health", s.handleHealth)

	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Get("/session", s.handleSession)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/status", websocket.New(s.handleStatusWS))

	s.app = app
	return s
}

// App exposes the fiber app, mainly for app.Test.
func (s *Server) App() *fiber.App {
	return s.app
}

// SessionID identifies this run in every message.
func (s *Server) SessionID() string {
	return s.session
}

// Start listens on the configured address and blocks until Close.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.listen)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.listen, err)
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln and blocks until Close.
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("web status server listening", "addr", ln.Addr().String(), "session", s.session)
	err := s.app.Listener(ln)
	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}

// Send records st as the latest status and broadcasts it. It never blocks;
// a full broadcast queue drops the frame for websocket clients without
// error.
func (s *Server) Send(st processor.Status) error {
	env := newEnvelope(s.session, st)
	data, err := env.encode()
	if err != nil {
		return fmt.Errorf("failed to encode status: %w", err)
	}

	s.mu.Lock()
	s.latest = &env
	s.mu.Unlock()

	s.frames.Add(1)
	if !s.hub.Broadcast(data) {
		if s.dropped.Add(1) == 1 {
			s.logger.Warn("websocket broadcast queue full, dropping status frames")
		}
	}
	return nil
}

// Close disconnects clients and stops the listener.
func (s *Server) Close() error {
	s.cancel()
	return s.app.ShutdownWithTimeout(2 * time.Second)
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(Health{
		Status:  "ok",
		Session: s.session,
		Clients: s.hub.ClientCount(),
		Frames:  s.frames.Load(),
		Dropped: s.dropped.Load(),
		Uptime:  time.Since(s.started).Round(time.Second).String(),
	})
}

func (s *Server) handleStatus(c *fiber.Ctx) error {
	s.mu.RLock()
	latest := s.latest
	s.mu.RUnlock()

	if latest == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error":   "no status yet",
			"session": s.session,
		})
	}
	return c.JSON(latest)
}

func (s *Server) handleSession(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"session": s.session,
		"started": s.started,
	})
}

func (s *Server) handleStatusWS(conn *websocket.Conn) {
	newClient(s.hub, conn).serve(s.ctx.Done())
}
