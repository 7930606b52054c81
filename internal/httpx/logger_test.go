package httpx

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
)

func TestLogger_AssignsRequestID(t *testing.T) {
	var seen string
	router := mux.NewRouter()
	router.Use(Logger())
	router.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		seen = RequestID(r.Context())
	})

	t.Run("generates an ID", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		if seen == "" {
			t.Fatal("expected a request ID in the context")
		}
		if got := rec.Header().Get(RequestIDHeader); got != seen {
			t.Errorf("expected header %q, got %q", seen, got)
		}
	})

	t.Run("keeps an incoming ID", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(RequestIDHeader, "abc-123")
		router.ServeHTTP(httptest.NewRecorder(), req)

		if seen != "abc-123" {
			t.Errorf("expected incoming ID to be kept, got %q", seen)
		}
	})
}

func TestRecovery(t *testing.T) {
	router := mux.NewRouter()
	router.Use(Logger(), Recovery())
	router.HandleFunc("/boom", func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}
}

type headerCounter struct {
	*httptest.ResponseRecorder
	calls int
}

func (h *headerCounter) WriteHeader(code int) {
	h.calls++
	h.ResponseRecorder.WriteHeader(code)
}

func TestRecovery_ResponseStarted(t *testing.T) {
	router := mux.NewRouter()
	router.Use(Recovery())
	router.HandleFunc("/partial", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte("partial"))
		panic("boom")
	})

	rec := &headerCounter{ResponseRecorder: httptest.NewRecorder()}
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/partial", nil))

	if rec.calls != 1 {
		t.Errorf("expected a single WriteHeader call, got %d", rec.calls)
	}
	if rec.Code != http.StatusAccepted {
		t.Errorf("expected the started status to be kept, got %d", rec.Code)
	}
	if got := rec.Body.String(); got != "partial" {
		t.Errorf("expected no error body after a started response, got %q", got)
	}
}
