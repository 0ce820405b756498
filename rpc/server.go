package rpc

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi"
	"github.com/gorilla/handlers"
	"github.com/uber-go/tally"
	"go.uber.org/zap"

	"github.com/kraken-torrent/engine/lib/middleware"
)

// Server is the control-plane HTTP server: a single acceptor goroutine
// running the per-request pipeline from the spec's RPC section in front
// of a JSON-RPC dispatch Registry and a static web-UI file handler.
type Server struct {
	config        Config
	registry      *Registry
	session       *SessionID
	whitelist     *Whitelist
	hostWhitelist *Whitelist
	bruteForce    *BruteForceGuard
	stats         tally.Scope
	log           *zap.SugaredLogger

	httpServer *http.Server
}

// New builds a Server. registry holds the JSON-RPC methods this server
// dispatches to; it is typically populated by the torrent session.
func New(config Config, registry *Registry, stats tally.Scope, log *zap.SugaredLogger) *Server {
	config = config.applyDefaults()
	return &Server{
		config:        config,
		registry:      registry,
		session:       NewSessionID(),
		whitelist:     NewWhitelist(config.Whitelist),
		hostWhitelist: NewWhitelist(config.HostWhitelist),
		bruteForce:    NewBruteForceGuard(config.BruteForce),
		stats:         stats.SubScope("rpc"),
		log:           log,
	}
}

// Handler builds the wired HTTP handler: gorilla's access-log and panic
// recovery wrap a gzip-compressing chi router running the pipeline
// middlewares ahead of the static and JSON-RPC routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Group(func(r chi.Router) {
		estats := s.stats
		r.Use(middleware.Counter(estats))
		r.Use(middleware.ElapsedTimer(estats))
		r.Use(s.bruteForceMiddleware)
		r.Use(s.remoteWhitelistMiddleware)
		r.Use(s.corsMiddleware)
		r.Use(s.basicAuthMiddleware)
		r.Use(s.hostWhitelistMiddleware)
		r.Use(s.sessionIDMiddleware)

		webRoot := strings.TrimSuffix(s.config.URL, "/") + "/web"
		r.Mount(webRoot, http.StripPrefix(webRoot, NewStaticFileHandler(s.config.WebUIDir)))

		rpcPath := strings.TrimSuffix(s.config.URL, "/") + "/rpc"
		r.Post(rpcPath, s.handleRPC)
		r.Options(rpcPath, func(w http.ResponseWriter, r *http.Request) {})
	})

	var h http.Handler = r
	h = withGzip(h)
	h = handlers.CombinedLoggingHandler(zapInfoWriter{s.log}, h)
	h = handlers.RecoveryHandler(handlers.PrintRecoveryStack(true))(h)
	return h
}

// zapInfoWriter adapts *zap.SugaredLogger to io.Writer for
// gorilla/handlers' access-log output.
type zapInfoWriter struct{ log *zap.SugaredLogger }

func (w zapInfoWriter) Write(p []byte) (int, error) {
	if w.log != nil {
		w.log.Info(strings.TrimRight(string(p), "\n"))
	}
	return len(p), nil
}

func (s *Server) bruteForceMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.bruteForce.Locked(remoteHost(r)) {
			http.Error(w, "too many failed login attempts", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) remoteWhitelistMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.config.WhitelistEnabled && !s.whitelist.Allowed(remoteHost(r)) {
			http.Error(w, "403: Forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		if r.Method == http.MethodOptions {
			if reqHeaders := r.Header.Get("Access-Control-Request-Headers"); reqHeaders != "" {
				w.Header().Set("Access-Control-Allow-Headers", reqHeaders)
			}
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.config.Auth.enabled() {
			next.ServeHTTP(w, r)
			return
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != s.config.Auth.Username || pass != s.config.Auth.Password {
			s.bruteForce.RecordFailure(remoteHost(r))
			w.Header().Set("WWW-Authenticate", `Basic realm="Transmission RPC"`)
			http.Error(w, "401: Unauthorized", http.StatusUnauthorized)
			return
		}
		s.bruteForce.Reset(remoteHost(r))
		next.ServeHTTP(w, r)
	})
}

func (s *Server) hostWhitelistMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.config.Auth.enabled() {
			next.ServeHTTP(w, r)
			return
		}
		host := StripPort(r.Host)
		if IsLocalOrIPLiteral(host) {
			next.ServeHTTP(w, r)
			return
		}
		if s.config.HostWhitelistEnabled && !s.hostWhitelist.Allowed(host) {
			http.Error(w, fmt.Sprintf(
				"421: Misdirected Request\n\n%q is not an allowed value for the Host header. "+
					"Add it to rpc-host-whitelist to permit this request.", r.Host),
				http.StatusMisdirectedRequest)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) sessionIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}
		if !s.session.Matches(r.Header.Get(SessionIDHeader)) {
			w.Header().Set(SessionIDHeader, s.session.Value())
			http.Error(w, "409: Conflict\n\nWrong or missing "+SessionIDHeader+" header.",
				http.StatusConflict)
			return
		}
		w.Header().Set(SessionIDHeader, s.session.Value())
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "malformed JSON-RPC request: "+err.Error(), http.StatusBadRequest)
		return
	}
	resp := s.registry.Dispatch(req)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func remoteHost(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// ListenAndServe binds the configured address (retrying per BindRetry on
// failure) or unix socket, and serves until Close is called.
func (s *Server) ListenAndServe() error {
	l, err := s.listen()
	if err != nil {
		return err
	}
	s.httpServer = &http.Server{Handler: s.Handler()}
	err = s.httpServer.Serve(l)
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) listen() (net.Listener, error) {
	network, address := "tcp", s.config.Address
	if s.config.UnixSocket != "" {
		network, address = "unix", s.config.UnixSocket
	}

	retry := s.config.BindRetry
	var lastErr error
	for attempt := 1; attempt <= retry.MaxAttempts; attempt++ {
		l, err := net.Listen(network, address)
		if err == nil {
			return l, nil
		}
		lastErr = err
		if attempt == retry.MaxAttempts {
			break
		}
		wait := retry.Base * time.Duration(attempt)
		if wait > retry.Max {
			wait = retry.Max
		}
		if s.log != nil {
			s.log.Warnf("rpc: bind %s %s failed (attempt %d/%d), retrying in %s: %s",
				network, address, attempt, retry.MaxAttempts, wait, err)
		}
		time.Sleep(wait)
	}
	return nil, fmt.Errorf("bind %s %s after %d attempts: %s", network, address, retry.MaxAttempts, lastErr)
}

// Close shuts down the listener and any in-flight connections.
func (s *Server) Close() error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Close()
}
