package server

import (
	"log/slog"
	"net/http"

	"github.com/vango-go/vai-companion/pkg/gateway/config"
	"github.com/vango-go/vai-companion/pkg/gateway/handlers"
	"github.com/vango-go/vai-companion/pkg/gateway/lifecycle"
	"github.com/vango-go/vai-companion/pkg/gateway/mw"
)

// Deps are the collaborators the routes dispatch to.
type Deps struct {
	Calls     handlers.CallController
	Sessions  handlers.Sessions
	Synth     handlers.Synthesizer
	Monitor   http.Handler
	Lifecycle *lifecycle.Lifecycle
}

type Server struct {
	cfg    config.Config
	deps   Deps
	logger *slog.Logger
	mux    *http.ServeMux
}

func New(cfg config.Config, deps Deps, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if deps.Lifecycle == nil {
		deps.Lifecycle = &lifecycle.Lifecycle{}
	}

	s := &Server{
		cfg:    cfg,
		deps:   deps,
		logger: logger,
		mux:    http.NewServeMux(),
	}

	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.Handle("/healthz", handlers.HealthHandler{})
	s.mux.Handle("/readyz", handlers.ReadyHandler{Config: s.cfg, Lifecycle: s.deps.Lifecycle, Sessions: s.deps.Sessions})
	s.mux.Handle("/", handlers.IndexHandler{
		BaseURL:         s.cfg.BaseURL,
		OutboundEnabled: s.cfg.CallControlConfigured(),
		MonitorEnabled:  s.deps.Monitor != nil && s.cfg.MonitorEnabled(),
		Sessions:        s.deps.Sessions,
	})

	maxBody := s.cfg.MaxBodyBytes
	s.webhook("/webhooks/answer", handlers.AnswerHandler{Calls: s.deps.Calls, Logger: s.logger, MaxBodyBytes: maxBody})
	s.webhook("/webhooks/recording", handlers.RecordingHandler{Calls: s.deps.Calls, Lifecycle: s.deps.Lifecycle, Logger: s.logger, MaxBodyBytes: maxBody})
	s.webhook("/webhooks/input", handlers.InputHandler{Calls: s.deps.Calls, Logger: s.logger, MaxBodyBytes: maxBody})
	s.webhook("/webhooks/event", handlers.EventHandler{Calls: s.deps.Calls, Logger: s.logger, MaxBodyBytes: maxBody})
	s.webhook("/webhooks/fallback", handlers.FallbackHandler{Calls: s.deps.Calls, Logger: s.logger})

	s.mux.Handle("/make-call", handlers.MakeCallHandler{Calls: s.deps.Calls, Logger: s.logger, MaxBodyBytes: maxBody})
	s.mux.Handle("/tts", handlers.TTSHandler{Synth: s.deps.Synth, Logger: s.logger, MaxBodyBytes: maxBody})
	if s.deps.Monitor != nil && s.cfg.MonitorEnabled() {
		s.mux.Handle("/ws/monitor", mw.MonitorAuth(s.cfg.MonitorToken, s.logger, s.deps.Monitor))
	}
}

// webhook registers a call-control webhook behind signature verification.
func (s *Server) webhook(pattern string, h http.Handler) {
	s.mux.Handle(pattern, mw.VonageSignature(s.cfg.VonageSignatureSecret, s.maxBody(), s.logger, h))
}

func (s *Server) maxBody() int64 {
	if s.cfg.MaxBodyBytes > 0 {
		return s.cfg.MaxBodyBytes
	}
	return 1 << 20
}

func (s *Server) Handler() http.Handler {
	var h http.Handler = s.mux
	h = mw.Recover(s.logger, h)
	h = mw.AccessLog(s.logger, h)
	h = mw.RequestID(h)
	return h
}
