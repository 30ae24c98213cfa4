package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPSource_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(sampleCatalog))
	}))
	defer srv.Close()

	src := NewHTTPSource(srv.URL, 5*time.Second, zerolog.Nop())
	descs, err := src.Fetch(context.Background())
	require.NoError(t, err)
	assert.Len(t, descs, 2)
}

func TestHTTPSource_BadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	src := NewHTTPSource(srv.URL, 5*time.Second, zerolog.Nop())
	_, err := src.Fetch(context.Background())
	require.Error(t, err)
	assert.True(t, IsMetadataFetchError(err))

	var me *MetadataFetchError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, http.StatusBadGateway, me.StatusCode)
}

func TestHTTPSource_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	src := NewHTTPSource(url, time.Second, zerolog.Nop())
	_, err := src.Fetch(context.Background())
	assert.True(t, IsMetadataFetchError(err))
}

func TestHTTPSource_GarbageBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>down for maintenance</html>"))
	}))
	defer srv.Close()

	src := NewHTTPSource(srv.URL, time.Second, zerolog.Nop())
	_, err := src.Fetch(context.Background())
	assert.True(t, IsMetadataFetchError(err))
}
