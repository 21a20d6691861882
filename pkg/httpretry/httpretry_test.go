package httpretry_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bookops/bookshelf-service/pkg/httpretry"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newClient(t *testing.T, opts ...httpretry.Option) *httpretry.Client {
	t.Helper()
	base := []httpretry.Option{
		httpretry.WithBackoff(time.Millisecond),
		httpretry.WithPerTryTimeout(time.Second),
	}
	return httpretry.New(zap.NewNop(), append(base, opts...)...)
}

func TestDo_SucceedsOnLastAttempt(t *testing.T) {
	t.Parallel()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 6 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	body, code, err := newClient(t).Do(context.Background(), httpretry.Request{
		Method: http.MethodGet,
		URL:    srv.URL,
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, code)
	require.JSONEq(t, `{"ok":true}`, string(body))
	require.EqualValues(t, 6, atomic.LoadInt32(&calls))
}

func TestDo_ExhaustsAttemptsAndSurfacesLastError(t *testing.T) {
	t.Parallel()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"error":"backend still starting"}`))
	}))
	defer srv.Close()

	_, _, err := newClient(t).Do(context.Background(), httpretry.Request{
		Method: http.MethodGet,
		URL:    srv.URL,
	})
	require.Error(t, err)
	require.EqualValues(t, 6, atomic.LoadInt32(&calls))

	var statusErr *httpretry.StatusError
	require.True(t, errors.As(err, &statusErr))
	require.Equal(t, http.StatusBadGateway, statusErr.Code)
	require.Equal(t, "backend still starting", statusErr.Message)
}

func TestDo_NoRetryAfterSuccess(t *testing.T) {
	t.Parallel()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":1}`))
	}))
	defer srv.Close()

	_, code, err := newClient(t).Do(context.Background(), httpretry.Request{
		Method: http.MethodPost,
		URL:    srv.URL,
		Body:   []byte(`{"title":"T"}`),
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, code)
	require.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestDo_BodyResentVerbatimOnRetry(t *testing.T) {
	t.Parallel()
	var calls int32
	bodies := make(chan string, 2)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf, _ := io.ReadAll(r.Body)
		bodies <- string(buf)
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	payload := `{"title":"Dune","author":"Frank Herbert"}`
	_, _, err := newClient(t).Do(context.Background(), httpretry.Request{
		Method: http.MethodPut,
		URL:    srv.URL,
		Body:   []byte(payload),
	})
	require.NoError(t, err)
	require.Equal(t, payload, <-bodies)
	require.Equal(t, payload, <-bodies)
}

func TestDo_PendingNotifier(t *testing.T) {
	t.Parallel()
	var transitions []bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := newClient(t,
		httpretry.WithAttempts(2),
		httpretry.WithPendingFunc(func(pending bool) { transitions = append(transitions, pending) }),
	)
	_, _, err := c.Do(context.Background(), httpretry.Request{Method: http.MethodGet, URL: srv.URL})
	require.Error(t, err)
	require.Equal(t, []bool{true, false}, transitions)
}

func TestDo_ContextCancelStopsRetrying(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := httpretry.New(zap.NewNop(),
		httpretry.WithBackoff(time.Minute),
		httpretry.WithPerTryTimeout(time.Second),
	)
	_, _, err := c.Do(ctx, httpretry.Request{Method: http.MethodGet, URL: srv.URL})
	require.Error(t, err)
}
