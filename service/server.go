package service

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/kpango/glg"
	"github.com/pkg/errors"
	"github.com/soteria-id/stsd/config"
)

// Server represents the STS server behavior.
type Server interface {
	ListenAndServe(context.Context) chan []error
}

type server struct {
	// STS API server
	srv        *http.Server
	srvHandler http.Handler
	srvRunning bool

	// health check server
	hcsrv     *http.Server
	hcrunning bool

	cfg config.Server

	// ProbeWaitTime
	pwt time.Duration

	// ShutdownDuration
	sddur time.Duration

	// mutex to guard the running flags
	mu sync.RWMutex
}

const (
	// ContentType represents the HTTP header name "Content-Type"
	ContentType = "Content-Type"

	// TextPlain represents the HTTP content type "text/plain"
	TextPlain = "text/plain"

	// CharsetUTF8 represents the UTF-8 charset for HTTP response "charset=UTF-8"
	CharsetUTF8 = "charset=UTF-8"
)

var (
	// ErrContextClosed represents an error that the context is closed
	ErrContextClosed = errors.New("context Closed")
)

// NewServer returns a Server interface, which includes the STS API server and
// the health check server. The API server port is read from
// config.Server.Port and the handler is set by the functional options.
//
// The health check server handles HTTP GET requests and always returns
// HTTP Status OK (200).
func NewServer(opts ...Option) Server {
	var err error

	s := &server{}
	for _, o := range opts {
		o(s)
	}

	s.srv = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.cfg.Port),
		Handler: s.srvHandler,
	}
	s.srv.SetKeepAlivesEnabled(true)

	if s.cfg.HealthzPort > 0 {
		s.hcsrv = &http.Server{
			Addr:    fmt.Sprintf(":%d", s.cfg.HealthzPort),
			Handler: createHealthCheckServiceMux(s.cfg.HealthzPath),
		}
		s.hcsrv.SetKeepAlivesEnabled(true)
	}

	s.sddur, err = time.ParseDuration(s.cfg.ShutdownDuration)
	if err != nil {
		glg.Warn(err)
	}

	s.pwt, err = time.ParseDuration(s.cfg.ProbeWaitTime)
	if err != nil {
		glg.Warn(err)
	}

	return s
}

// ListenAndServe returns an error channel carrying the errors returned by the
// STS server. It starts both the health check server and the STS API server,
// and closes them whenever the context receives a Done signal. The API server
// shuts down after ProbeWaitTime, the health check server immediately.
func (s *server) ListenAndServe(ctx context.Context) chan []error {
	var (
		echan = make(chan []error, 1)
		sech  = make(chan error, 1)
		hech  chan error

		wg = new(sync.WaitGroup)
	)

	wg.Add(1)
	go func() {
		s.mu.Lock()
		s.srvRunning = true
		s.mu.Unlock()
		wg.Done()

		glg.Info("sts api server starting")
		sech <- s.listenAndServeAPI()
		close(sech)

		s.mu.Lock()
		s.srvRunning = false
		s.mu.Unlock()
	}()

	if s.hcsrv != nil {
		wg.Add(1)
		hech = make(chan error, 1)
		go func() {
			s.mu.Lock()
			s.hcrunning = true
			s.mu.Unlock()
			wg.Done()

			glg.Info("sts health check server starting")
			hech <- s.hcsrv.ListenAndServe()
			close(hech)

			s.mu.Lock()
			s.hcrunning = false
			s.mu.Unlock()
		}()
	}

	go func() {
		// wait for all servers running
		wg.Wait()

		appendErr := func(errs []error, err error) []error {
			if err != nil {
				return append(errs, err)
			}
			return errs
		}

		errs := make([]error, 0, 3)
		for {
			select {
			case <-ctx.Done(): // when context receives a done signal, close the running servers and return any error
				s.mu.RLock()
				if s.hcrunning {
					glg.Info("sts health check server will shutdown")
					errs = appendErr(errs, s.hcShutdown(context.Background()))
				}
				if s.srvRunning {
					glg.Info("sts api server will shutdown")
					errs = appendErr(errs, s.apiShutdown(context.Background()))
				}
				s.mu.RUnlock()

				echan <- appendErr(errs, ctx.Err())
				return

			case err := <-sech: // when the API server returns, close the running health check server and return any error
				if err != nil {
					errs = appendErr(errs, err)
				}

				s.mu.RLock()
				if s.hcrunning {
					glg.Info("sts health check server will shutdown")
					errs = appendErr(errs, s.hcShutdown(ctx))
				}
				s.mu.RUnlock()
				echan <- errs
				return

			case err := <-hech: // when the health check server returns, close the running API server and return any error
				if err != nil {
					errs = append(errs, err)
				}

				s.mu.RLock()
				if s.srvRunning {
					glg.Info("sts api server will shutdown")
					errs = appendErr(errs, s.apiShutdown(ctx))
				}
				s.mu.RUnlock()
				echan <- errs
				return
			}
		}
	}()

	return echan
}

func (s *server) hcShutdown(ctx context.Context) error {
	hctx, hcancel := context.WithTimeout(ctx, s.sddur)
	defer hcancel()
	return s.hcsrv.Shutdown(hctx)
}

// apiShutdown sleeps ProbeWaitTime before shutting down the API server, so
// that the orchestrator sees the health check fail before connections drop.
func (s *server) apiShutdown(ctx context.Context) error {
	time.Sleep(s.pwt)
	sctx, scancel := context.WithTimeout(ctx, s.sddur)
	defer scancel()
	return s.srv.Shutdown(sctx)
}

// createHealthCheckServiceMux returns a *http.ServeMux with the health check handler registered for the given pattern.
func createHealthCheckServiceMux(pattern string) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc(pattern, handleHealthCheckRequest)
	return mux
}

// handleHealthCheckRequest is the health check handler, which always returns HTTP Status OK (200).
func handleHealthCheckRequest(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		w.WriteHeader(http.StatusOK)
		w.Header().Set(ContentType, fmt.Sprintf("%s;%s", TextPlain, CharsetUTF8))
		_, err := fmt.Fprint(w, http.StatusText(http.StatusOK))
		if err != nil {
			glg.Error(err)
		}
	}
}

// listenAndServeAPI returns any error occurred when starting the server, including any error when loading the TLS certificate.
func (s *server) listenAndServeAPI() error {
	if !s.cfg.TLS.Enabled {
		return s.srv.ListenAndServe()
	}

	cfg, err := NewTLSConfig(s.cfg.TLS)
	if err == nil && cfg != nil {
		s.srv.TLSConfig = cfg
	}
	if err != nil {
		glg.Error(err)
	}
	return s.srv.ListenAndServeTLS("", "")
}
