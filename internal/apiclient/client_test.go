package apiclient

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"minimarket/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type staticTokens struct {
	session domain.Session
}

func (s staticTokens) Load(ctx context.Context) (domain.Session, error) {
	return s.session, nil
}

func newTestClient(t *testing.T, handler http.HandlerFunc, tokens TokenSource, timeout time.Duration) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return New(Options{
		BaseURL:       srv.URL + "/api/",
		Timeout:       timeout,
		UploadTimeout: timeout,
	}, tokens, zap.NewNop())
}

func TestPublicParsesEnvelope(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/products/getProducts", r.URL.Path)
		assert.Empty(t, r.Header.Get("x-token"))
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		w.Write([]byte(`{"ok":true,"products":[{"id":1,"name":"Milk","price":1.5}]}`))
	}, staticTokens{domain.Session{Token: "secret"}}, time.Second)

	resp, err := client.Public(context.Background(), http.MethodGet, "products/getProducts", nil)
	require.NoError(t, err)
	require.NoError(t, resp.Err())

	var products []domain.Product
	require.NoError(t, resp.Decode("products", &products))
	require.Len(t, products, 1)
	assert.Equal(t, "Milk", products[0].Name)
}

func TestAuthedAttachesToken(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.Header.Get("x-token"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"name":"Dairy"}`, string(body))
		w.Write([]byte(`{"ok":true}`))
	}, staticTokens{domain.Session{Token: "secret"}}, time.Second)

	_, err := client.Authed(context.Background(), http.MethodPost, "categories/new", map[string]string{"name": "Dairy"})
	require.NoError(t, err)
}

func TestAuthedWithoutTokenFallsBackToPublic(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("x-token"))
		w.Write([]byte(`{"ok":true}`))
	}, staticTokens{}, time.Second)

	_, err := client.Authed(context.Background(), http.MethodGet, "featured-products", nil)
	require.NoError(t, err)
}

func TestFormUsesMultipartBoundary(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data; boundary="))
		if !assert.NoError(t, r.ParseMultipartForm(1<<20)) {
			return
		}
		assert.Equal(t, "Bread", r.FormValue("name"))
		file, header, err := r.FormFile("image")
		if !assert.NoError(t, err) {
			return
		}
		defer file.Close()
		content, _ := io.ReadAll(file)
		assert.Equal(t, "bread.png", header.Filename)
		assert.Equal(t, "png-bytes", string(content))
		w.Write([]byte(`{"ok":true,"product":{"id":7}}`))
	}, staticTokens{domain.Session{Token: "secret"}}, time.Second)

	resp, err := client.Form(context.Background(), http.MethodPost, "products/new", &Form{
		Fields: map[string]string{"name": "Bread"},
		Files:  []FormFile{{Field: "image", Filename: "bread.png", Content: strings.NewReader("png-bytes")}},
	})
	require.NoError(t, err)

	var product domain.Product
	require.NoError(t, resp.Decode("product", &product))
	assert.Equal(t, int64(7), product.ID)
}

func TestErrorTaxonomy(t *testing.T) {
	t.Run("http error carries status", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"ok":false,"msg":"Token no válido"}`))
		}, nil, time.Second)

		_, err := client.Public(context.Background(), http.MethodGet, "auth/renew", nil)
		require.Error(t, err)
		assert.Equal(t, http.StatusUnauthorized, StatusCode(err))
		msg, ok := Message(err)
		assert.True(t, ok)
		assert.Equal(t, "Token no válido", msg)
	})

	t.Run("non json body is malformed", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`<html>oops</html>`))
		}, nil, time.Second)

		_, err := client.Public(context.Background(), http.MethodGet, "app-config/public", nil)
		assert.ErrorIs(t, err, ErrMalformedResponse)
	})

	t.Run("slow backend times out", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(time.Second):
			}
		}, nil, 50*time.Millisecond)

		_, err := client.Public(context.Background(), http.MethodGet, "products/getProducts", nil)
		assert.ErrorIs(t, err, ErrTimeout)
	})

	t.Run("unreachable backend is a network failure", func(t *testing.T) {
		client := New(Options{BaseURL: "http://127.0.0.1:1"}, nil, zap.NewNop())

		_, err := client.Public(context.Background(), http.MethodGet, "products/getProducts", nil)
		assert.ErrorIs(t, err, ErrNetwork)
		assert.False(t, errors.Is(err, ErrTimeout))
	})

	t.Run("ok false becomes application error", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"ok":false,"msg":"Category already exists"}`))
		}, nil, time.Second)

		resp, err := client.Public(context.Background(), http.MethodPost, "categories/new", nil)
		require.NoError(t, err)

		var appErr *ApplicationError
		require.ErrorAs(t, resp.Err(), &appErr)
		assert.Equal(t, "Category already exists", appErr.Message)
	})
}

func TestDecodeMissingField(t *testing.T) {
	resp, err := parseResponse([]byte(`{"ok":true}`))
	require.NoError(t, err)

	var v []int
	assert.ErrorIs(t, resp.Decode("products", &v), ErrMalformedResponse)
	assert.False(t, resp.Has("products"))
}
