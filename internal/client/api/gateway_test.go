package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/blogclient/internal/client/models"
	"github.com/dmitrijs2005/blogclient/internal/client/remotetest"
	"github.com/dmitrijs2005/blogclient/internal/common"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCreds struct {
	mu      sync.Mutex
	token   string
	cleared int
	err     error
}

func (f *fakeCreds) Token() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.token
}

func (f *fakeCreds) Clear(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.token = ""
	f.cleared++
	return f.err
}

func newGateway(t *testing.T, baseURL string, creds CredentialSource) *HTTPGateway {
	t.Helper()
	g, err := NewHTTPGateway(baseURL, 2*time.Second, creds, nil)
	require.NoError(t, err)
	return g
}

func TestNewHTTPGateway_RejectsBadURL(t *testing.T) {
	_, err := NewHTTPGateway("ftp://example.com", time.Second, nil, nil)
	require.Error(t, err)
	_, err = NewHTTPGateway("://", time.Second, nil, nil)
	require.Error(t, err)
}

func TestSend_AttachesBearerAndRequestID(t *testing.T) {
	var gotAuth, gotReqID, gotQuery string
	r := chi.NewRouter()
	r.Get("/api/blogs", func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get(common.AuthorizationHeaderName)
		gotReqID = r.Header.Get(common.RequestIDHeaderName)
		gotQuery = r.URL.RawQuery
		render.JSON(w, r, map[string]any{"success": true, "data": map[string]any{"blogs": []any{}}})
	})
	srv := httptest.NewServer(r)
	defer srv.Close()

	g := newGateway(t, srv.URL+"/api/", &fakeCreds{token: "T1"})

	var out struct {
		Blogs []models.Blog `json:"blogs"`
	}
	err := g.Send(context.Background(), http.MethodGet, "/blogs", nil, url.Values{"page": {"2"}}, &out)
	require.NoError(t, err)
	assert.Equal(t, "Bearer T1", gotAuth)
	assert.NotEmpty(t, gotReqID)
	assert.Equal(t, "page=2", gotQuery)
}

func TestSend_NoHeaderWithoutToken(t *testing.T) {
	var hadAuth bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, hadAuth = r.Header[common.AuthorizationHeaderName]
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	g := newGateway(t, srv.URL, &fakeCreds{})
	require.NoError(t, g.Send(context.Background(), http.MethodDelete, "/blogs/1", nil, nil, nil))
	assert.False(t, hadAuth)
}

func TestSend_UnauthorizedClearsCredentialAndNotifies(t *testing.T) {
	server := remotetest.New(t)
	creds := &fakeCreds{token: "stale"}
	g := newGateway(t, server.URL(), creds)

	notified := 0
	g.OnUnauthorized(func() { notified++ })
	g.OnUnauthorized(func() { notified++ })

	err := g.Send(context.Background(), http.MethodGet, "/auth/me", nil, nil, &struct{}{})

	require.ErrorIs(t, err, ErrUnauthorized)
	assert.True(t, IsUnauthorized(err))
	assert.Equal(t, http.StatusUnauthorized, StatusOf(err))
	assert.Equal(t, "Not authorized, token failed", common.Message(err))
	assert.Equal(t, 1, creds.cleared)
	assert.Equal(t, "", creds.Token())
	assert.Equal(t, 2, notified)
}

func TestSend_UnauthorizedStillNotifiesWhenClearFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	creds := &fakeCreds{token: "x", err: errors.New("disk full")}
	g := newGateway(t, srv.URL, creds)
	notified := false
	g.OnUnauthorized(func() { notified = true })

	err := g.Send(context.Background(), http.MethodGet, "/auth/me", nil, nil, nil)
	require.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, "Unauthorized", common.Message(err))
	assert.True(t, notified)
}

func TestSend_ServerErrorMessageSurfacedVerbatim(t *testing.T) {
	server := remotetest.New(t)
	creds := &fakeCreds{}
	g := newGateway(t, server.URL(), creds)

	err := g.Send(context.Background(), http.MethodGet, "/blogs/missing", nil, nil, &struct{}{})

	var he *HTTPError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, http.StatusNotFound, he.Status)
	assert.Equal(t, "Blog not found", he.Message)
	assert.Equal(t, "http 404: Blog not found", he.Error())
	assert.NotErrorIs(t, err, ErrUnauthorized)
	assert.Zero(t, creds.cleared)
}

func TestSend_FallsBackToStatusText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "<html>oops</html>", http.StatusBadGateway)
	}))
	defer srv.Close()

	err := newGateway(t, srv.URL, nil).Send(context.Background(), http.MethodGet, "/x", nil, nil, nil)
	assert.Equal(t, http.StatusBadGateway, StatusOf(err))
	assert.Equal(t, "Bad Gateway", common.Message(err))
}

func TestSend_TransportFailureIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	err := newGateway(t, base, nil).Send(context.Background(), http.MethodGet, "/blogs", nil, nil, nil)
	require.ErrorIs(t, err, ErrUnavailable)
	assert.Zero(t, StatusOf(err))
}

func TestSend_TimeoutIsUnavailable(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	g, err := NewHTTPGateway(srv.URL, 50*time.Millisecond, nil, nil)
	require.NoError(t, err)

	err = g.Send(context.Background(), http.MethodGet, "/slow", nil, nil, nil)
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestSend_PostsJSONAndDecodesData(t *testing.T) {
	server := remotetest.New(t)
	server.AddUser("ann", "a@x.com", "secret1", models.RoleAuthor)

	g := newGateway(t, server.URL(), nil)

	var out struct {
		Token string      `json:"token"`
		User  models.User `json:"user"`
	}
	err := g.Send(context.Background(), http.MethodPost, "/auth/login",
		models.LoginForm{Email: "a@x.com", Password: "secret1"}, nil, &out)
	require.NoError(t, err)
	assert.NotEmpty(t, out.Token)
	assert.Equal(t, "ann", out.User.Username)
	assert.Equal(t, models.RoleAuthor, out.User.Role)
}

func TestSend_AcceptsBodyWithoutEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"isLiked":true,"likeType":"like"}`))
	}))
	defer srv.Close()

	var st models.EngagementStatus
	require.NoError(t, newGateway(t, srv.URL, nil).Send(context.Background(), http.MethodGet, "/likes/blog/1/status", nil, nil, &st))
	assert.True(t, st.IsLiked)
	assert.Equal(t, models.LikeLike, st.LikeType)
}

func TestSend_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	err := newGateway(t, srv.URL, nil).Send(context.Background(), http.MethodGet, "/x", nil, nil, &struct{}{})
	require.Error(t, err)
	assert.Equal(t, "malformed response from server", common.Message(err))
}
