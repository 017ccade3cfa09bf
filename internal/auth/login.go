package auth

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/oauth2"

	"gapi/internal/config"
	"gapi/internal/output"
	"gapi/internal/preset"
)

// DefaultLoginTimeout bounds the wait for the browser callback
const DefaultLoginTimeout = 120 * time.Second

//go:embed templates/oauth-success.html
var successPageHTML string

var successPage = template.Must(template.New("oauth-success").Parse(successPageHTML))

// State is a stage of the authorization flow.
type State int32

const (
	StateIdle State = iota
	StateListening
	StateAwaitingCallback
	StateExchanging
	StatePersisted
	StateTimedOut
	StateExchangeFailed
	StateServerError
)

var stateNames = [...]string{
	StateIdle:             "IDLE",
	StateListening:        "LISTENING",
	StateAwaitingCallback: "AWAITING_BROWSER_CALLBACK",
	StateExchanging:       "EXCHANGING_CODE",
	StatePersisted:        "PERSISTED",
	StateTimedOut:         "TIMED_OUT",
	StateExchangeFailed:   "EXCHANGE_FAILED",
	StateServerError:      "SERVER_ERROR",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "State(" + strconv.Itoa(int(s)) + ")"
}

// LoginOptions parameterize one login.
type LoginOptions struct {
	Scopes      []string
	Timeout     time.Duration
	OpenBrowser bool
}

// Flow performs the interactive authorization-code login over a loopback
// listener and persists the resulting tokens.
type Flow struct {
	Paths    config.Paths
	Self     string
	Store    *Store
	Endpoint oauth2.Endpoint

	// OpenURL launches the browser. Failures are logged and otherwise ignored.
	OpenURL func(url string) error
	// Prompt receives the authorization URL so it can be opened by hand.
	Prompt io.Writer
	// HTTPClient performs the code exchange when set.
	HTTPClient *http.Client
	Log        *slog.Logger

	page *template.Template
}

// Run performs one login. It returns once the tokens are persisted or the
// flow failed; the callback listener is closed on every path.
func (f *Flow) Run(ctx context.Context, opts LoginOptions) error {
	log := f.logger()

	if err := f.Paths.EnsureDir(); err != nil {
		return err
	}
	creds, err := config.LoadCredentials(f.Paths.Credentials, f.Self)
	if err != nil {
		return err
	}
	target, err := parseRedirect(creds.RedirectURIs)
	if err != nil {
		return err
	}

	// A fixed port from the redirect URI is used as is, even if taken.
	addr := target.listenAddr()
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return output.ServerError(fmt.Sprintf("Failed to start callback listener on %s: %v", addr, err), err)
	}

	conf := &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		Endpoint:     f.Endpoint,
		RedirectURL:  target.redirectURI(ln.Addr().(*net.TCPAddr).Port),
		Scopes:       opts.Scopes,
	}

	s := f.newSession(ctx, conf, ln, target.callbackPath, opts.Scopes)
	log.Debug("callback listener started", "addr", ln.Addr().String(), "redirect_uri", conf.RedirectURL, "state", StateListening)

	authURL := conf.AuthCodeURL("", oauth2.AccessTypeOffline, oauth2.ApprovalForce)

	s.state.Store(int32(StateAwaitingCallback))
	s.wg.Add(1)
	go s.serve()
	log.Debug("waiting for browser callback", "state", StateAwaitingCallback, "timeout", opts.Timeout)

	if f.Prompt != nil {
		fmt.Fprintf(f.Prompt, "Open this URL to authorize access:\n\n  %s\n\n", authURL)
	}
	if opts.OpenBrowser && f.OpenURL != nil {
		go func() {
			if err := f.OpenURL(authURL); err != nil {
				log.Warn("failed to open browser", "error", err)
			}
		}()
	}

	timer := time.NewTimer(opts.Timeout)
	defer timer.Stop()

	select {
	case <-s.done:
	case <-timer.C:
		s.resolve(func() (State, error) {
			return StateTimedOut, output.OAuthTimeout()
		})
	case <-ctx.Done():
		s.resolve(func() (State, error) {
			return StateServerError, output.ServerError("Login cancelled", ctx.Err())
		})
	}

	<-s.done
	s.wg.Wait()
	return s.err
}

func (f *Flow) logger() *slog.Logger {
	if f.Log != nil {
		return f.Log
	}
	return slog.New(slog.DiscardHandler)
}

// session is the state of one running login. Exactly one outcome resolves
// it; later outcomes are dropped.
type session struct {
	flow         *Flow
	conf         *oauth2.Config
	scopes       []string
	callbackPath string
	page         *template.Template
	log          *slog.Logger

	ln  net.Listener
	srv *http.Server

	state atomic.Int32

	// accepted connections, destroyed on shutdown
	mu     sync.Mutex
	conns  map[net.Conn]struct{}
	closed bool

	exchangeCtx    context.Context
	cancelExchange context.CancelFunc
	wg             sync.WaitGroup

	once sync.Once
	done chan struct{}
	err  error
}

func (f *Flow) newSession(ctx context.Context, conf *oauth2.Config, ln net.Listener, callbackPath string, scopes []string) *session {
	exchangeCtx, cancel := context.WithCancel(ctx)
	if f.HTTPClient != nil {
		exchangeCtx = context.WithValue(exchangeCtx, oauth2.HTTPClient, f.HTTPClient)
	}

	page := f.page
	if page == nil {
		page = successPage
	}

	s := &session{
		flow:           f,
		conf:           conf,
		scopes:         scopes,
		callbackPath:   callbackPath,
		page:           page,
		log:            f.logger(),
		ln:             ln,
		conns:          make(map[net.Conn]struct{}),
		exchangeCtx:    exchangeCtx,
		cancelExchange: cancel,
		done:           make(chan struct{}),
	}
	s.state.Store(int32(StateListening))
	s.srv = &http.Server{
		Handler:           s,
		ConnState:         s.trackConn,
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          slog.NewLogLogger(s.log.Handler(), slog.LevelDebug),
	}
	return s
}

func (s *session) serve() {
	defer s.wg.Done()
	if err := s.srv.Serve(s.ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.resolve(func() (State, error) {
			return StateServerError, output.ServerError("Callback listener failed", err)
		})
	}
}

func (s *session) trackConn(c net.Conn, state http.ConnState) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch state {
	case http.StateNew:
		if s.closed {
			_ = c.Close()
			return
		}
		s.conns[c] = struct{}{}
	case http.StateClosed, http.StateHijacked:
		delete(s.conns, c)
	}
}

// shutdown destroys every tracked connection, then closes the server and
// its listener. Safe to call more than once.
func (s *session) shutdown() {
	s.mu.Lock()
	s.closed = true
	for c := range s.conns {
		_ = c.Close()
		delete(s.conns, c)
	}
	s.mu.Unlock()

	_ = s.srv.Close()
	_ = s.ln.Close()
}

// resolve settles the flow with the first outcome to arrive. outcome runs
// inside the once, so persisting tokens cannot overlap a timeout.
func (s *session) resolve(outcome func() (State, error)) {
	s.once.Do(func() {
		state, err := outcome()
		s.state.Store(int32(state))
		s.err = err
		s.cancelExchange()
		s.shutdown()
		if err != nil {
			s.log.Debug("login flow failed", "state", state, "error", err)
		} else {
			s.log.Debug("login flow finished", "state", state)
		}
		close(s.done)
	})
}

func (s *session) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Connection", "close")

	if State(s.state.Load()) != StateAwaitingCallback {
		writeText(w, http.StatusOK, "OK")
		return
	}
	if !matchCallbackPath(s.callbackPath, r.URL.Path) {
		writeText(w, http.StatusNotFound, "Not found")
		return
	}
	code := r.URL.Query().Get("code")
	if code == "" {
		writeText(w, http.StatusBadRequest, "Missing code")
		return
	}
	if !s.state.CompareAndSwap(int32(StateAwaitingCallback), int32(StateExchanging)) {
		writeText(w, http.StatusOK, "OK")
		return
	}
	s.log.Debug("authorization code received", "state", StateExchanging)

	defer func() {
		if p := recover(); p != nil {
			s.fail(w, fmt.Errorf("callback handler panic: %v", p))
		}
	}()

	var page bytes.Buffer
	err := s.page.Execute(&page, successPageData{
		VerifyCommand: s.flow.Self + " accounts list",
		Scopes:        strings.Join(preset.ShortNames(s.scopes), ", "),
	})
	if err != nil {
		s.fail(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Content-Length", strconv.Itoa(page.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(page.Bytes())
	if fl, ok := w.(http.Flusher); ok {
		fl.Flush()
	}

	// The browser has its answer; exchange in the background.
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.wg.Add(1)
	s.mu.Unlock()
	go s.exchange(code)
}

type successPageData struct {
	VerifyCommand string
	Scopes        string
}

// fail answers 500 as best it can and settles the flow with err.
func (s *session) fail(w http.ResponseWriter, err error) {
	writeText(w, http.StatusInternalServerError, "Auth failed")
	if fl, ok := w.(http.Flusher); ok {
		fl.Flush()
	}
	s.resolve(func() (State, error) {
		return StateServerError, output.ServerError("OAuth callback handling failed", err)
	})
}

func (s *session) exchange(code string) {
	defer s.wg.Done()

	tok, err := s.conf.Exchange(s.exchangeCtx, code)
	if err != nil {
		s.resolve(func() (State, error) {
			return StateExchangeFailed, exchangeError(err)
		})
		return
	}

	s.resolve(func() (State, error) {
		if _, err := s.flow.Store.Persist(s.scopes, FromOAuth2(tok)); err != nil {
			return StateServerError, err
		}
		return StatePersisted, nil
	})
}

func exchangeError(err error) error {
	var rerr *oauth2.RetrieveError
	if errors.As(err, &rerr) {
		status := 0
		if rerr.Response != nil {
			status = rerr.Response.StatusCode
		}
		return output.ExchangeFailed(status, rerr.Body, err)
	}
	return output.ExchangeFailed(0, nil, err)
}

func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

// matchCallbackPath reports whether a request path hits the callback. A root
// callback accepts "/" and the empty path; any other path must match exactly.
func matchCallbackPath(callbackPath, path string) bool {
	if callbackPath == "/" {
		return path == "/" || path == ""
	}
	return path == callbackPath
}

// redirectTarget is the parsed first redirect URI of the client.
type redirectTarget struct {
	scheme       string
	host         string
	port         string // empty for an OS-assigned port
	callbackPath string
}

func parseRedirect(uris []string) (*redirectTarget, error) {
	raw := "http://localhost"
	if len(uris) > 0 && strings.TrimSpace(uris[0]) != "" {
		raw = strings.TrimSpace(uris[0])
	}

	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return nil, output.ServerError("Invalid redirect URI: "+raw, err)
	}

	path := u.Path
	if path == "" {
		path = "/"
	}
	return &redirectTarget{
		scheme:       u.Scheme,
		host:         u.Hostname(),
		port:         u.Port(),
		callbackPath: path,
	}, nil
}

func (t *redirectTarget) listenAddr() string {
	port := t.port
	if port == "" {
		port = "0"
	}
	return net.JoinHostPort(t.host, port)
}

// redirectURI rebuilds the redirect with the port actually bound. A root
// callback path is omitted.
func (t *redirectTarget) redirectURI(port int) string {
	uri := t.scheme + "://" + net.JoinHostPort(t.host, strconv.Itoa(port))
	if t.callbackPath != "/" {
		uri += t.callbackPath
	}
	return uri
}
