package codex

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/router-for-me/openai-auth/internal/logging"
	log "github.com/sirupsen/logrus"
)

// CallbackEvent is the classified outcome of the OAuth redirect. It is one of
// CallbackSuccess, CallbackError, CallbackStateMismatch or CallbackMissingCode.
type CallbackEvent interface {
	callbackEvent()
}

// CallbackSuccess carries the authorization code of a redirect whose state matched.
type CallbackSuccess struct {
	Code  string
	State string
}

// CallbackError is a redirect carrying an OAuth error parameter.
type CallbackError struct {
	Reason      string
	Description string
}

// CallbackStateMismatch is a redirect whose state was missing or did not match.
type CallbackStateMismatch struct{}

// CallbackMissingCode is a redirect with a valid state but neither code nor error.
type CallbackMissingCode struct{}

func (CallbackSuccess) callbackEvent()       {}
func (CallbackError) callbackEvent()         {}
func (CallbackStateMismatch) callbackEvent() {}
func (CallbackMissingCode) callbackEvent()   {}

// RenderFunc produces the HTML document shown in the browser for an event.
type RenderFunc func(CallbackEvent) string

// ListenerState is the lifecycle state of an OAuthServer.
type ListenerState int

const (
	ListenerIdle ListenerState = iota
	ListenerListening
	ListenerMatched
	ListenerMismatched
	ListenerErrored
	ListenerCancelled
	ListenerClosed
)

func (s ListenerState) String() string {
	switch s {
	case ListenerIdle:
		return "idle"
	case ListenerListening:
		return "listening"
	case ListenerMatched:
		return "matched"
	case ListenerMismatched:
		return "mismatched"
	case ListenerErrored:
		return "errored"
	case ListenerCancelled:
		return "cancelled"
	case ListenerClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// callbackOutcome is what Wait hands back to its caller.
type callbackOutcome struct {
	code string
	err  error
}

// OAuthServer is a single-use local HTTP listener for the OAuth redirect.
// It binds 127.0.0.1:<port>, decides the first request it receives, answers it
// with an HTML page and then releases the socket. Later requests are never decided.
type OAuthServer struct {
	port          int
	expectedState string
	render        RenderFunc

	// mu protects state, listener and server
	mu       sync.Mutex
	state    ListenerState
	listener net.Listener
	server   *http.Server

	once       sync.Once
	resultChan chan callbackOutcome
	errorChan  chan error

	closeOnce sync.Once
	closeErr  error
}

// NewOAuthServer creates a callback listener for one flow. Port 0 picks an
// ephemeral port. A nil render selects DefaultCallbackHTML.
func NewOAuthServer(port int, expectedState string, render RenderFunc) *OAuthServer {
	if render == nil {
		render = DefaultCallbackHTML
	}
	return &OAuthServer{
		port:          port,
		expectedState: expectedState,
		render:        render,
		resultChan:    make(chan callbackOutcome, 1),
		errorChan:     make(chan error, 1),
	}
}

// Start binds the socket and begins serving. It does not block.
// gin is switched to release mode unless a mode was chosen explicitly.
func (s *OAuthServer) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != ListenerIdle {
		return fmt.Errorf("oauth callback server is %s", s.state)
	}

	addr := net.JoinHostPort("127.0.0.1", strconv.Itoa(s.port))
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		if isAddrInUse(err) {
			return fmt.Errorf("%w: %s: %v", ErrPortInUse, addr, err)
		}
		return fmt.Errorf("failed to start callback server on %s: %w", addr, err)
	}

	if gin.Mode() == gin.DebugMode && os.Getenv(gin.EnvGinMode) == "" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(logging.GinLogrusRecovery(), logging.GinLogrusLogger())
	engine.GET("/*path", s.handleCallback)

	s.server = &http.Server{
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
	s.server.SetKeepAlivesEnabled(false)
	s.listener = listener
	s.port = listener.Addr().(*net.TCPAddr).Port
	s.state = ListenerListening

	server := s.server
	go func() {
		if errServe := server.Serve(listener); errServe != nil && !errors.Is(errServe, http.ErrServerClosed) {
			select {
			case s.errorChan <- errServe:
			default:
			}
		}
	}()

	log.Debugf("OAuth callback server listening on %s", listener.Addr())
	return nil
}

// Port returns the bound port, or the configured one before Start.
func (s *OAuthServer) Port() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.port
}

// State returns the current lifecycle state.
func (s *OAuthServer) State() ListenerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Wait blocks until the callback has been decided, the server fails, or ctx
// ends. The socket is released before Wait returns on every path.
// A ctx deadline yields ErrTimeout; any other cancellation yields ErrCancelled.
func (s *OAuthServer) Wait(ctx context.Context) (string, error) {
	select {
	case out := <-s.resultChan:
		_ = s.Close()
		return out.code, out.err
	case err := <-s.errorChan:
		s.transition(ListenerErrored)
		_ = s.Close()
		return "", fmt.Errorf("oauth callback server failed: %w", err)
	case <-ctx.Done():
		// a decision that raced the cancellation wins
		select {
		case out := <-s.resultChan:
			_ = s.Close()
			return out.code, out.err
		default:
		}
		s.transition(ListenerCancelled)
		_ = s.Close()
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", ErrTimeout
		}
		return "", ErrCancelled
	}
}

// Close shuts the server down and releases the socket. It is idempotent.
func (s *OAuthServer) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		server, listener := s.server, s.listener
		s.mu.Unlock()

		if server != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				s.closeErr = err
				_ = server.Close()
			}
		}
		if listener != nil {
			_ = listener.Close()
		}

		s.mu.Lock()
		s.state = ListenerClosed
		s.mu.Unlock()
		log.Debug("OAuth callback server closed")
	})
	return s.closeErr
}

// transition moves from Listening to a terminal outcome state; later calls are ignored.
func (s *OAuthServer) transition(next ListenerState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == ListenerListening {
		s.state = next
	}
}

func (s *OAuthServer) handleCallback(c *gin.Context) {
	handled := false
	s.once.Do(func() {
		handled = true
		s.processCallback(c)
	})
	if !handled {
		c.Header("Connection", "close")
		c.String(http.StatusConflict, "Callback already processed")
	}
}

// processCallback decides the first request. It runs exactly once.
func (s *OAuthServer) processCallback(c *gin.Context) {
	log.Debug("Received OAuth callback")

	event := ClassifyCallback(c.Request.URL.Query(), s.expectedState)
	outcome, next := outcomeFor(event)

	c.Header("X-Content-Type-Options", "nosniff")
	c.Header("X-Frame-Options", "DENY")
	c.Header("Referrer-Policy", "no-referrer")
	c.Header("Cache-Control", "no-store")
	c.Header("Connection", "close")
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(s.renderPage(event)))

	s.transition(next)
	s.resultChan <- outcome

	// release the socket once this response is flushed, whether or not Wait is running
	go func() {
		if errClose := s.Close(); errClose != nil {
			log.Debugf("OAuth callback server close error: %v", errClose)
		}
	}()
}

// renderPage calls the caller's render function, falling back to the default
// page if it panics so the waiting caller is still released.
func (s *OAuthServer) renderPage(event CallbackEvent) (page string) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("OAuth callback render function panicked: %v", r)
			page = DefaultCallbackHTML(event)
		}
	}()
	return s.render(event)
}

// ClassifyCallback applies the callback decision table to the redirect query:
// an error parameter wins, then the state must match exactly, then a code must be present.
func ClassifyCallback(query url.Values, expectedState string) CallbackEvent {
	if reason := strings.TrimSpace(query.Get("error")); reason != "" {
		return CallbackError{Reason: reason, Description: strings.TrimSpace(query.Get("error_description"))}
	}
	state := query.Get("state")
	if state == "" || expectedState == "" || subtle.ConstantTimeCompare([]byte(state), []byte(expectedState)) != 1 {
		return CallbackStateMismatch{}
	}
	code := strings.TrimSpace(query.Get("code"))
	if code == "" {
		return CallbackMissingCode{}
	}
	return CallbackSuccess{Code: code, State: state}
}

// ResolveCallback turns a classified event into the authorization code or the
// error the listener would report for it.
func ResolveCallback(event CallbackEvent) (string, error) {
	out, _ := outcomeFor(event)
	return out.code, out.err
}

func outcomeFor(event CallbackEvent) (callbackOutcome, ListenerState) {
	switch e := event.(type) {
	case CallbackSuccess:
		return callbackOutcome{code: e.Code}, ListenerMatched
	case CallbackError:
		log.Errorf("OAuth error received: %s", e.Reason)
		return callbackOutcome{err: &AuthorizationDeniedError{Reason: e.Reason, Description: e.Description}}, ListenerErrored
	case CallbackStateMismatch:
		log.Error("OAuth callback state mismatch")
		return callbackOutcome{err: ErrStateMismatch}, ListenerMismatched
	default:
		log.Error("No authorization code received")
		return callbackOutcome{err: ErrMissingCode}, ListenerErrored
	}
}

func isAddrInUse(err error) bool {
	if errors.Is(err, syscall.EADDRINUSE) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "address already in use") || strings.Contains(msg, "Only one usage of each socket address")
}

// RunCallbackServer starts a callback listener on port, waits for the redirect and
// returns the authorization code. The socket is released before it returns.
func RunCallbackServer(ctx context.Context, port int, expectedState string) (string, error) {
	return RunCallbackServerWithHTML(ctx, port, expectedState, nil)
}

// RunCallbackServerWithHTML is RunCallbackServer with a custom page renderer.
func RunCallbackServerWithHTML(ctx context.Context, port int, expectedState string, render RenderFunc) (string, error) {
	server := NewOAuthServer(port, expectedState, render)
	if err := server.Start(); err != nil {
		return "", err
	}
	defer func() {
		_ = server.Close()
	}()
	return server.Wait(ctx)
}
