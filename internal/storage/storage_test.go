package storage

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/proyectos-la/digital-world/pkg/errors"
	"github.com/proyectos-la/digital-world/pkg/httpclient"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func solidPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: 200, G: 30, B: 30, A: 255})
		}
	}
	return encodePNG(t, img)
}

func noisePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	rng := rand.New(rand.NewSource(7))
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(rng.Intn(256)), G: uint8(rng.Intn(256)), B: uint8(rng.Intn(256)), A: 255})
		}
	}
	return encodePNG(t, img)
}

func TestOptimizer_ReencodesAsJPEG(t *testing.T) {
	o := NewOptimizer(200, 10)

	out, err := o.Optimize(bytes.NewReader(solidPNG(t, 64, 64)))
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", out.ContentType)
	assert.Equal(t, ".jpg", out.Extension)
	assert.LessOrEqual(t, len(out.Data), 200*1024)
	assert.Equal(t, []byte{0xFF, 0xD8}, out.Data[:2])
}

func TestOptimizer_WebPPassesThrough(t *testing.T) {
	o := NewOptimizer(200, 10)
	webp := append([]byte("RIFF\x24\x00\x00\x00WEBPVP8 "), make([]byte, 24)...)

	out, err := o.Optimize(bytes.NewReader(webp))
	require.NoError(t, err)
	assert.Equal(t, "image/webp", out.ContentType)
	assert.Equal(t, webp, out.Data)
}

func TestOptimizer_StillTooLarge(t *testing.T) {
	o := NewOptimizer(1, 10)

	_, err := o.Optimize(bytes.NewReader(noisePNG(t, 256, 256)))
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestOptimizer_Rejects(t *testing.T) {
	o := NewOptimizer(200, 1)

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"not an image", []byte("just some text, definitely not pixels")},
		{"over the upload cap", append([]byte{0xFF, 0xD8, 0xFF}, make([]byte, 1<<20)...)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := o.Optimize(bytes.NewReader(tt.data))
			assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
		})
	}
}

func TestMemoryStorage(t *testing.T) {
	s := NewMemoryStorage("http://localhost:8001/")
	ctx := context.Background()

	res, err := s.Upload(ctx, &UploadInput{Key: "products/a.jpg", ContentType: "image/jpeg", Data: strings.NewReader("abc")})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8001/media/products/a.jpg", res.URL)
	assert.Equal(t, 1, s.Len())

	r, ct, ok := s.Open("products/a.jpg")
	require.True(t, ok)
	assert.Equal(t, "image/jpeg", ct)
	data, _ := io.ReadAll(r)
	assert.Equal(t, "abc", string(data))

	require.NoError(t, s.Delete(ctx, "products/a.jpg"))
	require.NoError(t, s.Delete(ctx, "products/a.jpg"))
	assert.Zero(t, s.Len())
}

func newCDN(t *testing.T, handler http.HandlerFunc) (*CDNStorage, *httpclient.CircuitBreakerClient) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := httpclient.Config{Timeout: 2 * time.Second, MaxRetries: 0}
	cbCfg := httpclient.CircuitBreakerConfig{Name: "cdn-test-" + t.Name(), Timeout: time.Minute, FailureRatio: 0.5, MinRequests: 2}
	cb := httpclient.NewCircuitBreakerClient(httpclient.NewWithHTTPClient(srv.Client(), cfg), cbCfg, discardLogger())
	return NewCDNStorage(cb, CDNConfig{BaseURL: srv.URL, APIKey: "secret", PublicURL: "https://img.example.com"}), cb
}

func TestCDNStorage_Upload(t *testing.T) {
	var gotPath, gotAuth, gotType, gotBody string
	s, _ := newCDN(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotAuth, gotType = r.URL.Path, r.Header.Get("Authorization"), r.Header.Get("Content-Type")
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.WriteHeader(http.StatusCreated)
	})

	res, err := s.Upload(context.Background(), &UploadInput{Key: "products/p1/a.jpg", ContentType: "image/jpeg", Data: strings.NewReader("pixels")})
	require.NoError(t, err)
	assert.Equal(t, "/objects/products/p1/a.jpg", gotPath)
	assert.Equal(t, "Bearer secret", gotAuth)
	assert.Equal(t, "image/jpeg", gotType)
	assert.Equal(t, "pixels", gotBody)
	assert.Equal(t, "https://img.example.com/products/p1/a.jpg", res.URL)
}

func TestCDNStorage_Upload_Rejected(t *testing.T) {
	s, _ := newCDN(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusRequestEntityTooLarge)
		_, _ = w.Write([]byte(`{"message":"too big"}`))
	})

	_, err := s.Upload(context.Background(), &UploadInput{Key: "k", Data: strings.NewReader("x")})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestCDNStorage_Delete_MissingIsNotAnError(t *testing.T) {
	var method string
	s, _ := newCDN(t, func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		w.WriteHeader(http.StatusNotFound)
	})

	assert.NoError(t, s.Delete(context.Background(), "products/gone.jpg"))
	assert.Equal(t, http.MethodDelete, method)
}

func TestCDNStorage_BreakerOpens(t *testing.T) {
	var calls atomic.Int32
	s, _ := newCDN(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		err := s.Delete(ctx, "k")
		require.Error(t, err)
	}

	err := s.Delete(ctx, "k")
	assert.ErrorIs(t, err, apperrors.ErrServiceUnavail)
	assert.Equal(t, http.StatusServiceUnavailable, apperrors.HTTPStatus(err))
	assert.Equal(t, int32(2), calls.Load())
}
