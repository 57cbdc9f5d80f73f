package gateway

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/totegamma/where/internal/domain"
)

func TestUpload(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/s5/upload", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, userAgent, r.Header.Get("User-Agent"))

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "location-loc_1.json", header.Filename)
		body, _ := io.ReadAll(file)
		assert.JSONEq(t, `{"id":"loc_1"}`, string(body))

		io.WriteString(w, "  bafycid\n")
	}))
	defer server.Close()

	c := NewS5Client(server.URL+"/", "secret", nil)
	blob, err := c.Upload(context.Background(), "location-loc_1.json", []byte(`{"id":"loc_1"}`))
	require.NoError(t, err)
	assert.Equal(t, "bafycid", blob.CID)
	assert.Equal(t, server.URL+"/s5/gateway/bafycid", blob.GatewayURL)

	again, err := c.Upload(context.Background(), "location-loc_1.json", []byte(`{"id":"loc_1"}`))
	require.NoError(t, err)
	assert.Equal(t, blob, again)
	assert.Equal(t, int32(1), calls.Load())
}

func TestUploadRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusForbidden)
	}))
	defer server.Close()

	c := NewS5Client(server.URL, "secret", nil)
	_, err := c.Upload(context.Background(), "comment-com_1.json", []byte(`{}`))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUpload)

	var uploadErr domain.UploadError
	require.ErrorAs(t, err, &uploadErr)
	assert.Equal(t, http.StatusForbidden, uploadErr.Status)
	assert.Equal(t, "quota exceeded", uploadErr.Reason)
}

func TestUploadMissingKey(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer server.Close()

	c := NewS5Client(server.URL, "", nil)
	_, err := c.Upload(context.Background(), "comment-com_1.json", []byte(`{}`))
	assert.ErrorIs(t, err, domain.ErrUpload)
	assert.Equal(t, int32(0), calls.Load())
}

func TestUploadNetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	c := NewS5Client(url, "secret", nil)
	_, err := c.Upload(context.Background(), "comment-com_1.json", []byte(`{}`))
	assert.ErrorIs(t, err, domain.ErrNetwork)
	assert.NotErrorIs(t, err, domain.ErrUpload)
}

func TestContentKey(t *testing.T) {
	assert.Equal(t, contentKey("a.json", []byte("x")), contentKey("a.json", []byte("x")))
	assert.NotEqual(t, contentKey("a.json", []byte("x")), contentKey("b.json", []byte("x")))
	assert.NotEqual(t, contentKey("a.json", []byte("x")), contentKey("a.json", []byte("y")))
}

func TestUploadBadBaseURL(t *testing.T) {
	c := NewS5Client("http://gateway\x7f.test", "secret", nil)
	_, err := c.Upload(context.Background(), "comment-com_1.json", []byte(`{}`))
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrUpload)
	assert.NotErrorIs(t, err, domain.ErrNetwork)
	assert.Contains(t, err.Error(), "create upload request")
}
