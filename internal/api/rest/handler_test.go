package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/scrobblescope/internal/app/apperr"
	"github.com/osa030/scrobblescope/internal/app/cache"
	"github.com/osa030/scrobblescope/internal/app/overview"
	"github.com/osa030/scrobblescope/internal/app/ratelimit"
	"github.com/osa030/scrobblescope/internal/domain/album"
	"github.com/osa030/scrobblescope/internal/domain/artist"
)

type fakeService struct {
	calls         atomic.Int32
	searchArtists func(ctx context.Context, q string) ([]artist.SearchResult, error)
	artistErr     error
	albumErr      error
	lastArtist    atomic.Value
}

func (f *fakeService) SearchArtists(ctx context.Context, q string) ([]artist.SearchResult, error) {
	f.calls.Add(1)
	if f.searchArtists != nil {
		return f.searchArtists(ctx, q)
	}
	return []artist.SearchResult{{Name: q, Listeners: 1}}, nil
}

func (f *fakeService) SearchAlbums(ctx context.Context, q string) ([]album.SearchResult, error) {
	f.calls.Add(1)
	return []album.SearchResult{{Name: q}}, nil
}

func (f *fakeService) ArtistOverview(ctx context.Context, name string) (*overview.ArtistOverview, error) {
	f.calls.Add(1)
	f.lastArtist.Store(name)
	if f.artistErr != nil {
		return nil, f.artistErr
	}
	return &overview.ArtistOverview{Artist: artist.Summary{Name: name}}, nil
}

func (f *fakeService) AlbumOverview(ctx context.Context, artistName, albumName string) (*overview.AlbumOverview, error) {
	f.calls.Add(1)
	if f.albumErr != nil {
		return nil, f.albumErr
	}
	return &overview.AlbumOverview{Album: album.Summary{Name: albumName, Artist: artistName}}, nil
}

type testServer struct {
	router  *gin.Engine
	cache   *cache.Cache[any]
	service *fakeService
}

func newTestServer(t *testing.T, svc *fakeService, maxRequests int) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	c := cache.New[any]()
	limiter := ratelimit.New(ratelimit.Config{Window: time.Minute, Max: maxRequests})
	router, err := NewRouter(RouterConfig{BasePath: "/api", CORSOrigins: []string{"*"}}, NewHandler(svc, c, 10*time.Minute), limiter)
	require.NoError(t, err)

	return &testServer{router: router, cache: c, service: svc}
}

func (s *testServer) get(path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorDetail {
	t.Helper()
	var body ErrorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), "body: %s", w.Body.String())
	return body.Error
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, &fakeService{}, 60)

	w := s.get("/api/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ok": true}`, w.Body.String())
	assert.Equal(t, "60", w.Header().Get(RateLimitLimitHeader))
	assert.Equal(t, "59", w.Header().Get(RateLimitRemainingHeader))
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		message string
	}{
		{name: "artist search without q", path: "/api/search/artist", message: "Missing query parameter 'q'"},
		{name: "artist search with blank q", path: "/api/search/artist?q=%20%20", message: "Missing query parameter 'q'"},
		{name: "album search without q", path: "/api/search/album?q=", message: "Missing query parameter 'q'"},
		{name: "blank artist name", path: "/api/artist/%20/overview", message: "Missing artist name"},
		{name: "album overview without album", path: "/api/album/overview?artist=Cher", message: "Missing artist or album"},
		{name: "album overview with blank artist", path: "/api/album/overview?artist=+&album=Believe", message: "Missing artist or album"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, &fakeService{}, 60)

			w := s.get(tt.path)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			detail := decodeError(t, w)
			assert.Equal(t, apperr.CodeValidation, detail.Code)
			assert.Equal(t, tt.message, detail.Message)
			assert.Equal(t, int32(0), s.service.calls.Load())
		})
	}
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		code    string
		message string
	}{
		{
			name:    "unknown artist",
			err:     apperr.NotFound("Artist not found"),
			status:  http.StatusNotFound,
			code:    apperr.CodeNotFound,
			message: "Artist not found",
		},
		{
			name:    "missing api key",
			err:     apperr.Config("last.fm API key is not configured"),
			status:  http.StatusInternalServerError,
			code:    apperr.CodeConfig,
			message: "Missing Last.fm API key",
		},
		{
			name:    "upstream failure",
			err:     apperr.Upstream(errors.New("dial tcp 10.0.0.1:443: i/o timeout"), "artist.getInfo"),
			status:  http.StatusInternalServerError,
			code:    apperr.CodeInternal,
			message: "Internal server error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, &fakeService{artistErr: tt.err}, 60)

			w := s.get("/api/artist/Nobody/overview")
			assert.Equal(t, tt.status, w.Code)
			detail := decodeError(t, w)
			assert.Equal(t, tt.code, detail.Code)
			assert.Equal(t, tt.message, detail.Message)
			assert.NotContains(t, w.Body.String(), "10.0.0.1")

			assert.Equal(t, 0, s.cache.Len(), "errors are not cached")
		})
	}
}

func TestArtistOverview_DecodesName(t *testing.T) {
	svc := &fakeService{}
	s := newTestServer(t, svc, 60)

	w := s.get("/api/artist/AC%2FDC/overview")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "AC/DC", svc.lastArtist.Load())

	w = s.get("/api/artist/Sigur%20R%C3%B3s/overview")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Sigur Rós", svc.lastArtist.Load())
}

func TestAlbumOverview(t *testing.T) {
	s := newTestServer(t, &fakeService{}, 60)

	w := s.get("/api/album/overview?artist=%20Cher%20&album=Believe")
	require.Equal(t, http.StatusOK, w.Code)

	var got overview.AlbumOverview
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "Cher", got.Album.Artist)
	assert.Equal(t, "Believe", got.Album.Name)

	_, ok := s.cache.Get("/album/overview?album=Believe&artist=Cher")
	assert.True(t, ok)

	notFound := newTestServer(t, &fakeService{albumErr: apperr.NotFound("Album not found")}, 60)
	w = notFound.get("/api/album/overview?artist=Cher&album=Nope")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Album not found", decodeError(t, w).Message)
}

func TestCaching(t *testing.T) {
	s := newTestServer(t, &fakeService{}, 60)

	first := s.get("/api/search/artist?q=cher")
	require.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "MISS", first.Header().Get(CacheHeader))

	second := s.get("/api/search/artist?q=%20cher%20")
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, "HIT", second.Header().Get(CacheHeader))
	assert.JSONEq(t, first.Body.String(), second.Body.String())

	s.get("/api/search/album?q=cher")
	assert.Equal(t, int32(2), s.service.calls.Load(), "album search uses its own key")
}

func TestAbortedRequestIsNotCached(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	svc := &fakeService{
		searchArtists: func(_ context.Context, q string) ([]artist.SearchResult, error) {
			cancel()
			return []artist.SearchResult{{Name: q}}, nil
		},
	}
	s := newTestServer(t, svc, 60)

	req := httptest.NewRequest(http.MethodGet, "/api/search/artist?q=cher", nil).WithContext(ctx)
	s.router.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, 0, s.cache.Len())
}

func TestAbortedRequestFailureIsDiscarded(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	svc := &fakeService{
		searchArtists: func(ctx context.Context, _ string) ([]artist.SearchResult, error) {
			cancel()
			return nil, errors.Wrap(ctx.Err(), "artist search aborted")
		},
	}
	s := newTestServer(t, svc, 60)

	req := httptest.NewRequest(http.MethodGet, "/api/search/artist?q=cher", nil).WithContext(ctx)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	assert.Empty(t, w.Body.String(), "no error envelope for an aborted request")
	assert.Empty(t, w.Header().Get(CacheHeader))
	assert.Equal(t, 0, s.cache.Len())
}

func TestConcurrentMissesAreNotCoalesced(t *testing.T) {
	var arrived sync.WaitGroup
	arrived.Add(2)
	release := make(chan struct{})

	svc := &fakeService{
		searchArtists: func(ctx context.Context, q string) ([]artist.SearchResult, error) {
			arrived.Done()
			select {
			case <-release:
			case <-time.After(2 * time.Second):
			}
			return []artist.SearchResult{{Name: q}}, nil
		},
	}
	s := newTestServer(t, svc, 60)

	var done sync.WaitGroup
	for i := 0; i < 2; i++ {
		done.Add(1)
		go func() {
			defer done.Done()
			s.get("/api/search/artist?q=same")
		}()
	}

	waited := make(chan struct{})
	go func() {
		arrived.Wait()
		close(waited)
	}()

	select {
	case <-waited:
	case <-time.After(time.Second):
		t.Fatal("second request did not reach the service while the first was in flight")
	}
	close(release)
	done.Wait()

	assert.Equal(t, int32(2), svc.calls.Load())
}

func TestRateLimit(t *testing.T) {
	s := newTestServer(t, &fakeService{}, 2)

	assert.Equal(t, http.StatusOK, s.get("/api/health").Code)
	assert.Equal(t, http.StatusOK, s.get("/api/search/album?q=a").Code)

	w := s.get("/api/search/album?q=b")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	detail := decodeError(t, w)
	assert.Equal(t, apperr.CodeRateLimit, detail.Code)
	assert.Equal(t, "Rate limit exceeded", detail.Message)
	assert.Equal(t, "0", w.Header().Get(RateLimitRemainingHeader))
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Equal(t, int32(1), s.service.calls.Load())

	other := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	other.RemoteAddr = "198.51.100.7:5555"
	ow := httptest.NewRecorder()
	s.router.ServeHTTP(ow, other)
	assert.Equal(t, http.StatusOK, ow.Code, "other clients keep their own budget")
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t, &fakeService{}, 60)

	req := httptest.NewRequest(http.MethodOptions, "/api/search/artist", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "GET")
}

func TestCORS_AllowList(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CORS([]string{"https://app.example"}))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "https://app.example")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "https://app.example", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "https://evil.example")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestUnknownRoute(t *testing.T) {
	s := newTestServer(t, &fakeService{}, 60)

	w := s.get("/api/nope")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, apperr.CodeNotFound, decodeError(t, w).Code)
}

func TestRequestIDPropagation(t *testing.T) {
	s := newTestServer(t, &fakeService{}, 60)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
}
