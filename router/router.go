package router

import (
	"net/http"
	"strings"
	"time"

	"github.com/kpango/glg"
	"github.com/soteria-id/stsd/config"
	"github.com/soteria-id/stsd/handler"
)

// New returns a ServeMux with the STS routes registered, each handler wrapped
// with a method filter, error logging and the configured server timeout.
func New(cfg config.Server, h handler.Handler) *http.ServeMux {
	timeout, err := time.ParseDuration(cfg.Timeout)
	if err != nil {
		timeout = time.Second * 10
		glg.Warnf("invalid server timeout %q, using %s", cfg.Timeout, timeout)
	}

	mux := http.NewServeMux()
	for _, route := range NewRoutes(h) {
		mux.Handle(route.Pattern, routing(route.Methods, timeout, route.HandlerFunc))
	}
	return mux
}

// routing wraps a handler.Func into an http.Handler enforcing the allowed
// methods and the request timeout.
func routing(m []string, t time.Duration, h handler.Func) http.Handler {
	return http.TimeoutHandler(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			if !allowed(m, r.Method) {
				w.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			if err := h(w, r); err != nil {
				glg.Error(err)
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			}
		}), t, http.StatusText(http.StatusRequestTimeout))
}

func allowed(methods []string, method string) bool {
	for _, m := range methods {
		if strings.EqualFold(m, method) || m == "*" {
			return true
		}
	}
	return false
}
