package auth

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/atotto/clipboard"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"stockadvisor/api"
)

var (
	ErrSSOCancelled = errors.New("sign-in cancelled")
	ErrSSOTimeout   = errors.New("sign-in timed out")
)

const callbackPath = "/callback"

const callbackPage = `<!doctype html><html><body style="font-family:sans-serif">
<p>Signed in to StockAdvisor. You can close this window and return to the terminal.</p>
</body></html>`

// SSO runs the single sign-on flow through a loopback redirect.
type SSO struct {
	Client  *api.Client
	Addr    string
	Timeout time.Duration
	// CopyURL puts the sign-in URL somewhere the user can reach it.
	CopyURL func(string) error
}

func NewSSO(client *api.Client, addr string, timeout time.Duration) *SSO {
	return &SSO{
		Client:  client,
		Addr:    addr,
		Timeout: timeout,
		CopyURL: clipboard.WriteAll,
	}
}

type ssoResult struct {
	token string
	err   error
}

// SSOFlow is one pending sign-in. It accepts exactly one callback.
type SSOFlow struct {
	URL    string
	Copied bool

	srv     *http.Server
	result  chan ssoResult
	closed  chan struct{}
	once    sync.Once
	timeout time.Duration
	logger  zerolog.Logger
}

// Start binds the callback listener and builds the provider URL.
func (s *SSO) Start(provider string) (*SSOFlow, error) {
	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return nil, fmt.Errorf("failed to start sign-in listener: %w", err)
	}

	redirect := fmt.Sprintf("http://%s%s", ln.Addr().String(), callbackPath)
	f := &SSOFlow{
		URL:     s.Client.OAuthURL(provider, redirect),
		result:  make(chan ssoResult, 1),
		closed:  make(chan struct{}),
		timeout: s.Timeout,
		logger:  log.With().Str("component", "sso").Str("provider", provider).Logger(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc(callbackPath, f.handleCallback)
	f.srv = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := f.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			f.deliver(ssoResult{err: fmt.Errorf("sign-in listener: %w", err)})
		}
	}()

	if s.CopyURL != nil {
		if err := s.CopyURL(f.URL); err != nil {
			f.logger.Debug().Err(err).Msg("clipboard unavailable")
		} else {
			f.Copied = true
		}
	}

	f.logger.Info().Str("redirect", redirect).Msg("waiting for sign-in callback")
	return f, nil
}

func (f *SSOFlow) handleCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	token := q.Get("token")
	if token == "" {
		msg := q.Get("error")
		if msg == "" {
			msg = "callback carried no token"
		}
		http.Error(w, msg, http.StatusBadRequest)
		f.deliver(ssoResult{err: errors.New(msg)})
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(callbackPage))
	f.deliver(ssoResult{token: token})
}

// deliver keeps only the first outcome.
func (f *SSOFlow) deliver(r ssoResult) {
	select {
	case f.result <- r:
	default:
	}
}

// Wait blocks until the callback arrives, the timeout elapses, ctx ends or
// Close is called. The listener is shut down in every case.
func (f *SSOFlow) Wait(ctx context.Context) (string, error) {
	defer f.Close()

	var timeout <-chan time.Time
	if f.timeout > 0 {
		t := time.NewTimer(f.timeout)
		defer t.Stop()
		timeout = t.C
	}

	select {
	case r := <-f.result:
		return r.token, r.err
	case <-timeout:
		return "", ErrSSOTimeout
	case <-f.closed:
		return "", ErrSSOCancelled
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Close stops the listener. It is safe to call more than once.
func (f *SSOFlow) Close() {
	f.once.Do(func() {
		close(f.closed)
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := f.srv.Shutdown(ctx); err != nil {
			f.srv.Close()
		}
	})
}
