package msa

import (
	"bytes"
	"compress/gzip"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func compress(t *testing.T, encoding string, data []byte) []byte {
	t.Helper()

	var buf bytes.Buffer
	switch encoding {
	case "gzip":
		w := gzip.NewWriter(&buf)
		_, err := w.Write(data)
		require.NoError(t, err)
		require.NoError(t, w.Close())
	case "br":
		w := brotli.NewWriter(&buf)
		_, err := w.Write(data)
		require.NoError(t, err)
		require.NoError(t, w.Close())
	case "zstd":
		w, err := zstd.NewWriter(&buf)
		require.NoError(t, err)
		_, err = w.Write(data)
		require.NoError(t, err)
		require.NoError(t, w.Close())
	default:
		return data
	}
	return buf.Bytes()
}

func TestHTTPTransportDecompressesResponses(t *testing.T) {
	t.Parallel()

	for _, encoding := range []string{"", "gzip", "br", "zstd"} {
		encoding := encoding
		t.Run("encoding "+encoding, func(t *testing.T) {
			t.Parallel()

			payload := compress(t, encoding, []byte(profileBody))
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if encoding != "" {
					w.Header().Set("Content-Encoding", encoding)
				}
				w.WriteHeader(http.StatusOK)
				_, _ = w.Write(payload)
			}))
			defer server.Close()

			resp, err := NewHTTPTransport(server.Client()).Do(context.Background(), &Request{
				Method: http.MethodGet,
				URL:    server.URL,
				Header: http.Header{},
			})
			require.NoError(t, err)
			assert.Equal(t, http.StatusOK, resp.StatusCode)
			assert.JSONEq(t, profileBody, string(resp.Body))
		})
	}
}

func TestHTTPTransportSendsHeadersAndBody(t *testing.T) {
	t.Parallel()

	var (
		gotMethod string
		gotHeader http.Header
		gotBody   []byte
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotHeader = r.Header.Clone()
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
	}))
	defer server.Close()

	resp, err := NewHTTPTransport(server.Client()).Do(context.Background(), &Request{
		Method: http.MethodPost,
		URL:    server.URL,
		Header: http.Header{"Content-Type": []string{"application/json"}},
		Body:   []byte(`{"identityToken":"x"}`),
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, `{"error":"invalid_grant"}`, string(resp.Body))

	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "application/json", gotHeader.Get("Content-Type"))
	assert.Contains(t, gotHeader.Get("Accept-Encoding"), "br")
	assert.Equal(t, `{"identityToken":"x"}`, string(gotBody))
}

func TestHTTPTransportHonorsContextDeadline(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := NewHTTPTransport(server.Client()).Do(ctx, &Request{Method: http.MethodGet, URL: server.URL})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDecompressBodyRejectsCorruptGzip(t *testing.T) {
	t.Parallel()

	_, err := decompressBody("gzip", []byte("not gzip"))
	assert.Error(t, err)

	passthrough, err := decompressBody("x-unknown", []byte("raw"))
	require.NoError(t, err)
	assert.Equal(t, "raw", string(passthrough))
}
