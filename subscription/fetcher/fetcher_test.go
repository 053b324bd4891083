package fetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/sub", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("proxies:\n  - name: 香港 01\n"))
	})
	mux.HandleFunc("/ua", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(r.UserAgent()))
	})
	mux.HandleFunc("/latin1", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=ISO-8859-1")
		w.Write([]byte{'c', 'a', 'f', 0xE9})
	})
	mux.HandleFunc("/bom", func(w http.ResponseWriter, r *http.Request) {
		w.Write(append([]byte{0xEF, 0xBB, 0xBF}, "a: 1"...))
	})
	mux.HandleFunc("/missing", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	})
	mux.HandleFunc("/broken", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	mux.HandleFunc("/slow", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	})
	mux.HandleFunc("/big", func(w http.ResponseWriter, r *http.Request) {
		w.Write(make([]byte, 2048))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func engines(t *testing.T, opts Options) map[string]Fetcher {
	t.Helper()
	out := map[string]Fetcher{}
	for _, name := range []string{"http", "colly"} {
		f, err := New(name, opts)
		require.NoError(t, err)
		require.Equal(t, name, f.Name())
		out[name] = f
	}
	return out
}

func TestFetch_Success(t *testing.T) {
	srv := newTestServer(t)
	for name, f := range engines(t, Options{Timeout: 5 * time.Second, UserAgent: "subfilter-test"}) {
		t.Run(name, func(t *testing.T) {
			text, err := f.Fetch(context.Background(), srv.URL+"/sub")
			require.NoError(t, err)
			assert.Equal(t, "proxies:\n  - name: 香港 01\n", text)

			ua, err := f.Fetch(context.Background(), srv.URL+"/ua")
			require.NoError(t, err)
			assert.Equal(t, "subfilter-test", ua)

			bom, err := f.Fetch(context.Background(), srv.URL+"/bom")
			require.NoError(t, err)
			assert.Equal(t, "a: 1", bom)
		})
	}
}

func TestHTTPFetcher_DecodesDeclaredCharset(t *testing.T) {
	srv := newTestServer(t)
	f, err := NewHTTPFetcher(Options{Timeout: 5 * time.Second})
	require.NoError(t, err)

	text, err := f.Fetch(context.Background(), srv.URL+"/latin1")
	require.NoError(t, err)
	assert.Equal(t, "café", text)
}

func TestFetch_NonOKStatus(t *testing.T) {
	srv := newTestServer(t)
	for name, f := range engines(t, Options{Timeout: 5 * time.Second}) {
		t.Run(name, func(t *testing.T) {
			for path, code := range map[string]int{"/missing": 404, "/broken": 500} {
				_, err := f.Fetch(context.Background(), srv.URL+path)
				var fe *FetchError
				require.True(t, errors.As(err, &fe), "got %v", err)
				assert.Equal(t, code, fe.StatusCode)
				assert.Equal(t, srv.URL+path, fe.URL)
			}
		})
	}
}

func TestFetch_Timeout(t *testing.T) {
	srv := newTestServer(t)
	for name, f := range engines(t, Options{Timeout: 100 * time.Millisecond}) {
		t.Run(name, func(t *testing.T) {
			_, err := f.Fetch(context.Background(), srv.URL+"/slow")
			var fe *FetchError
			require.True(t, errors.As(err, &fe), "got %v", err)
			assert.Zero(t, fe.StatusCode)
		})
	}
}

func TestFetch_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	for name, f := range engines(t, Options{Timeout: time.Second}) {
		t.Run(name, func(t *testing.T) {
			_, err := f.Fetch(context.Background(), addr)
			var fe *FetchError
			require.True(t, errors.As(err, &fe), "got %v", err)
		})
	}
}

func TestFetch_BodyLimit(t *testing.T) {
	srv := newTestServer(t)
	for name, f := range engines(t, Options{Timeout: time.Second, MaxBodyBytes: 1024}) {
		t.Run(name, func(t *testing.T) {
			text, err := f.Fetch(context.Background(), srv.URL+"/big")
			assert.Empty(t, text)
			var fe *FetchError
			require.True(t, errors.As(err, &fe), "got %v", err)
		})
	}
}

func TestFetch_BodyAtLimit(t *testing.T) {
	srv := newTestServer(t)
	for name, f := range engines(t, Options{Timeout: time.Second, MaxBodyBytes: 2048}) {
		t.Run(name, func(t *testing.T) {
			text, err := f.Fetch(context.Background(), srv.URL+"/big")
			require.NoError(t, err)
			assert.Len(t, text, 2048)
		})
	}
}

func TestNew_InvalidOptions(t *testing.T) {
	_, err := New("http", Options{ProxyURL: "ftp://proxy.example.com"})
	assert.Error(t, err)
	_, err = New("colly", Options{ProxyURL: "://bad"})
	assert.Error(t, err)
	_, err = New("curl", Options{})
	assert.Error(t, err)

	_, err = New("http", Options{ProxyURL: "socks5://127.0.0.1:1080"})
	assert.NoError(t, err)
}
