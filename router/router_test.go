package router

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/soteria-id/stsd/config"
)

// echoHandler implements handler.Handler writing the operation name.
type echoHandler struct{}

func (echoHandler) Issue(w http.ResponseWriter, r *http.Request) error {
	_, err := w.Write([]byte("issue"))
	return err
}

func (echoHandler) Renew(w http.ResponseWriter, r *http.Request) error {
	_, err := w.Write([]byte("renew"))
	return err
}

func (echoHandler) Validate(w http.ResponseWriter, r *http.Request) error {
	_, err := w.Write([]byte("validate"))
	return err
}

func (echoHandler) Challenge(w http.ResponseWriter, r *http.Request) error {
	_, err := w.Write([]byte("challenge"))
	return err
}

func TestNew(t *testing.T) {
	mux := New(config.Server{Timeout: "10s"}, echoHandler{})

	type test struct {
		name     string
		method   string
		path     string
		wantCode int
		wantBody string
	}
	tests := []test{
		{
			name:     "Check issue routed",
			method:   http.MethodPost,
			path:     "/issue",
			wantCode: http.StatusOK,
			wantBody: "issue",
		},
		{
			name:     "Check renew routed",
			method:   http.MethodPost,
			path:     "/renew",
			wantCode: http.StatusOK,
			wantBody: "renew",
		},
		{
			name:     "Check validate routed",
			method:   http.MethodPost,
			path:     "/validate",
			wantCode: http.StatusOK,
			wantBody: "validate",
		},
		{
			name:     "Check challenge routed",
			method:   http.MethodPost,
			path:     "/challenge",
			wantCode: http.StatusOK,
			wantBody: "challenge",
		},
		{
			name:     "Check wrong method rejected",
			method:   http.MethodGet,
			path:     "/issue",
			wantCode: http.StatusMethodNotAllowed,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
			res := rec.Result()
			defer res.Body.Close()

			if res.StatusCode != tt.wantCode {
				t.Errorf("status got: %d  want: %d", res.StatusCode, tt.wantCode)
			}
			if tt.wantBody != "" {
				body, _ := io.ReadAll(res.Body)
				if string(body) != tt.wantBody {
					t.Errorf("body got: %q  want: %q", string(body), tt.wantBody)
				}
			}
		})
	}
}

func TestNew_invalidTimeoutFallsBack(t *testing.T) {
	mux := New(config.Server{Timeout: "not-a-duration"}, echoHandler{})
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/issue", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("status got: %d", rec.Code)
	}
}

func Test_routing_timeout(t *testing.T) {
	h := routing([]string{http.MethodGet}, 50*time.Millisecond, func(w http.ResponseWriter, r *http.Request) error {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
		return nil
	})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	res := rec.Result()
	defer res.Body.Close()

	if res.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status got: %d  want: %d", res.StatusCode, http.StatusServiceUnavailable)
	}
	body, _ := io.ReadAll(res.Body)
	if !strings.Contains(string(body), http.StatusText(http.StatusRequestTimeout)) {
		t.Errorf("body got: %q", string(body))
	}
}
