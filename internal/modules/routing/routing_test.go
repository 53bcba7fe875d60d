package routing

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ride/internal/config"
	"ride/internal/geo"
	"ride/internal/maps"
	"ride/internal/types"
)

var (
	tverskaya = types.Point{Lat: 55.7558, Lng: 37.6173}
	arbat     = types.Point{Lat: 55.7520, Lng: 37.5914}
)

type fakeUpstream struct {
	name  string
	calls atomic.Int32
	fetch func(ctx context.Context, req Request) (Response, error)
}

func (f *fakeUpstream) Name() string { return f.name }

func (f *fakeUpstream) Fetch(ctx context.Context, req Request) (Response, error) {
	f.calls.Add(1)
	return f.fetch(ctx, req)
}

func okUpstream(name string, n int) *fakeUpstream {
	return &fakeUpstream{name: name, fetch: func(ctx context.Context, req Request) (Response, error) {
		body := &osrmBody{Code: "Ok"}
		for i := 0; i < n; i++ {
			r := osrmRoute{Distance: 2000 + float64(i), Duration: 300}
			r.Geometry.Coordinates = [][]float64{{req.From.Lng, req.From.Lat}, {req.To.Lng, req.To.Lat}}
			body.Routes = append(body.Routes, r)
		}
		return Response{Kind: KindOSRM, OSRM: body}, nil
	}}
}

func failingUpstream(name string, err error) *fakeUpstream {
	return &fakeUpstream{name: name, fetch: func(ctx context.Context, req Request) (Response, error) {
		return Response{}, err
	}}
}

func testConfig() config.RoutingConfig {
	cfg := config.DefaultRouting()
	cfg.Timeout = 200 * time.Millisecond
	return cfg
}

func newTestService(clock clockwork.Clock, ups ...Upstream) *Service {
	return NewService(ups, nil, testConfig(), clock, nil)
}

func TestGetRouteDegenerateSkipsProviders(t *testing.T) {
	up := okUpstream("osrm", 1)
	svc := newTestService(nil, up)

	res := svc.GetRoute(context.Background(), tverskaya, tverskaya, true)

	require.Len(t, res.Routes, 1)
	r := res.Routes[0]
	assert.Equal(t, 0.0, r.DistanceMeters)
	assert.Equal(t, 0.0, r.DurationSeconds)
	assert.Equal(t, []types.Point{tverskaya, tverskaya}, r.Points)
	assert.EqualValues(t, 0, up.calls.Load())
	assert.Equal(t, 0, svc.cache.Len())
}

func TestGetRouteTriesProvidersInOrder(t *testing.T) {
	first := failingUpstream("graphhopper", ErrRateLimited)
	second := failingUpstream("broken", errors.New("connection refused"))
	third := okUpstream("osrm", 1)
	svc := newTestService(nil, first, second, third)

	res := svc.GetRoute(context.Background(), tverskaya, arbat, false)

	require.Len(t, res.Routes, 1)
	assert.False(t, res.Fallback)
	assert.Equal(t, SourceOSRM, res.Routes[0].Source)
	assert.EqualValues(t, 1, first.calls.Load())
	assert.EqualValues(t, 1, second.calls.Load())
}

func TestGetRouteTimeoutMovesOn(t *testing.T) {
	slow := &fakeUpstream{name: "slow", fetch: func(ctx context.Context, req Request) (Response, error) {
		<-ctx.Done()
		return Response{}, ctx.Err()
	}}
	svc := newTestService(nil, slow, okUpstream("osrm", 1))

	res := svc.GetRoute(context.Background(), tverskaya, arbat, false)
	assert.Equal(t, SourceOSRM, res.Routes[0].Source)
}

func TestGetRouteFallbackWhenAllFail(t *testing.T) {
	empty := &fakeUpstream{name: "empty", fetch: func(ctx context.Context, req Request) (Response, error) {
		return Response{Kind: KindOSRM, OSRM: &osrmBody{Code: "NoRoute"}}, nil
	}}
	svc := newTestService(nil, empty, failingUpstream("down", errors.New("down")))

	res := svc.GetRoute(context.Background(), tverskaya, arbat, true)

	require.True(t, res.Fallback)
	require.Len(t, res.Routes, 1)
	r := res.Routes[0]
	wantDist := geo.HaversineMeters(tverskaya, arbat) * 1.5
	assert.InDelta(t, wantDist, r.DistanceMeters, 1e-6)
	assert.InDelta(t, wantDist/(50/3.6), r.DurationSeconds, 1e-6)
	assert.GreaterOrEqual(t, len(r.Points), 20)
	assert.Equal(t, tverskaya, r.Points[0])
	assert.Equal(t, arbat, r.Points[len(r.Points)-1])
	assert.Equal(t, 0, svc.cache.Len(), "fallback routes are not cached")
}

func TestFallbackRouteShape(t *testing.T) {
	far := types.Point{Lat: 55.9, Lng: 37.9}
	r := FallbackRoute(tverskaya, far, 1.5, 50)

	assert.Equal(t, int(r.DistanceMeters/50), len(r.Points))
	for i, p := range r.Points[1 : len(r.Points)-1] {
		straight := geo.Interpolate(tverskaya, far, float64(i+1)/float64(len(r.Points)-1))
		assert.LessOrEqual(t, geo.HaversineMeters(p, straight), 120.0, "offset stays small")
	}
}

func TestGetRouteAlternatives(t *testing.T) {
	svc := newTestService(nil, okUpstream("osrm", 5))

	with := svc.GetRoute(context.Background(), tverskaya, arbat, true)
	without := svc.GetRoute(context.Background(), tverskaya, arbat, false)

	assert.Len(t, with.Routes, maxAlternatives)
	assert.Equal(t, 0, with.Selected)
	assert.Len(t, without.Routes, 1)
}

func TestGetRouteCacheTTL(t *testing.T) {
	clock := clockwork.NewFakeClock()
	up := okUpstream("osrm", 1)
	svc := newTestService(clock, up)
	ctx := context.Background()

	svc.GetRoute(ctx, tverskaya, arbat, false)
	svc.GetRoute(ctx, tverskaya, arbat, false)
	assert.EqualValues(t, 1, up.calls.Load())

	// alternatives flag is part of the key
	svc.GetRoute(ctx, tverskaya, arbat, true)
	assert.EqualValues(t, 2, up.calls.Load())

	clock.Advance(5*time.Minute + time.Second)
	svc.GetRoute(ctx, tverskaya, arbat, false)
	assert.EqualValues(t, 3, up.calls.Load())
}

func TestGetRouteCacheReturnsCopies(t *testing.T) {
	svc := newTestService(nil, okUpstream("osrm", 1))
	ctx := context.Background()

	first := svc.GetRoute(ctx, tverskaya, arbat, false)
	first.Routes[0].Points[0] = types.Point{}

	second := svc.GetRoute(ctx, tverskaya, arbat, false)
	assert.Equal(t, tverskaya, second.Routes[0].Points[0])
}

func TestMemoryCachePrunesExpired(t *testing.T) {
	clock := clockwork.NewFakeClock()
	c := newMemoryCache(time.Minute, 2, clock)

	c.Set("a", types.RouteResult{})
	c.Set("b", types.RouteResult{})
	clock.Advance(2 * time.Minute)
	c.Set("c", types.RouteResult{})

	assert.Equal(t, 1, c.Len())
	_, ok := c.Get("c")
	assert.True(t, ok)
}

func TestGetRouteCoalescesConcurrentRequests(t *testing.T) {
	release := make(chan struct{})
	var calls atomic.Int32
	up := &fakeUpstream{name: "osrm", fetch: func(ctx context.Context, req Request) (Response, error) {
		calls.Add(1)
		<-release
		return okUpstream("osrm", 1).fetch(ctx, req)
	}}
	svc := newTestService(nil, up)

	const callers = 8
	var wg sync.WaitGroup
	results := make([]types.RouteResult, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = svc.GetRoute(context.Background(), tverskaya, arbat, false)
		}(i)
	}

	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.EqualValues(t, 1, calls.Load())
	for _, r := range results {
		assert.Equal(t, SourceOSRM, r.Routes[0].Source)
	}
}

func TestGetRouteCallerCancelGetsFallback(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	up := &fakeUpstream{name: "osrm", fetch: func(ctx context.Context, req Request) (Response, error) {
		<-release
		return Response{}, errors.New("late")
	}}
	svc := newTestService(nil, up)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	res := svc.GetRoute(ctx, tverskaya, arbat, false)
	assert.True(t, res.Fallback)
}

type fakeShared struct {
	mu    sync.Mutex
	items map[string]types.RouteResult
}

func (f *fakeShared) Get(ctx context.Context, key string) (types.RouteResult, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.items[key]
	return r, ok, nil
}

func (f *fakeShared) Set(ctx context.Context, key string, res types.RouteResult, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items[key] = res
	return nil
}

func TestGetRouteSharedCache(t *testing.T) {
	shared := &fakeShared{items: map[string]types.RouteResult{}}
	up := okUpstream("osrm", 1)
	a := NewService([]Upstream{up}, shared, testConfig(), nil, nil)
	b := NewService([]Upstream{up}, shared, testConfig(), nil, nil)

	a.GetRoute(context.Background(), tverskaya, arbat, false)
	res := b.GetRoute(context.Background(), tverskaya, arbat, false)

	assert.EqualValues(t, 1, up.calls.Load())
	assert.Equal(t, SourceOSRM, res.Routes[0].Source)
}

func TestGraphHopperAdapter(t *testing.T) {
	var gotQuery map[string][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/route", r.URL.Path)
		assert.Equal(t, "ride/1.0", r.Header.Get("User-Agent"))
		gotQuery = r.URL.Query()
		fmt.Fprint(w, `{"paths":[{"distance":2500.5,"time":360000,"points":{"coordinates":[[37.6173,55.7558],[37.60,55.754],[37.5914,55.752]]}}]}`)
	}))
	defer srv.Close()

	up := NewGraphHopper(srv.URL, "demo", "ride/1.0", srv.Client())
	req := Request{From: tverskaya, To: arbat, Alternatives: true, Overview: true}
	resp, err := up.Fetch(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, []string{"55.755800,37.617300", "55.752000,37.591400"}, gotQuery["point"])
	assert.Equal(t, []string{"false"}, gotQuery["points_encoded"])
	assert.Equal(t, []string{"3"}, gotQuery["alternative_route.max_paths"])

	routes, err := normalize(resp, req)
	require.NoError(t, err)
	require.Len(t, routes, 1)
	assert.Equal(t, 2500.5, routes[0].DistanceMeters)
	assert.Equal(t, 360.0, routes[0].DurationSeconds)
	assert.Equal(t, tverskaya, routes[0].Points[0])
}

func TestOSRMAdapter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/route/v1/driving/37.617300,55.755800;37.591400,55.752000", r.URL.Path)
		assert.Equal(t, "full", r.URL.Query().Get("overview"))
		assert.Equal(t, "geojson", r.URL.Query().Get("geometries"))
		fmt.Fprint(w, `{"code":"Ok","routes":[{"distance":2100,"duration":280,"geometry":{"coordinates":[[37.6173,55.7558],[37.5914,55.752]]}}]}`)
	}))
	defer srv.Close()

	up := NewOSRM(srv.URL+"/", "ride/1.0", srv.Client())
	req := Request{From: tverskaya, To: arbat, Overview: true}
	resp, err := up.Fetch(context.Background(), req)
	require.NoError(t, err)

	routes, err := normalize(resp, req)
	require.NoError(t, err)
	assert.Equal(t, 280.0, routes[0].DurationSeconds)
	assert.Equal(t, arbat, routes[0].Points[1])
}

func TestHTTPUpstreamStatusHandling(t *testing.T) {
	status := http.StatusTooManyRequests
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		fmt.Fprint(w, `{"message":"nope"}`)
	}))
	defer srv.Close()

	up := NewOSRM(srv.URL, "", srv.Client())
	_, err := up.Fetch(context.Background(), Request{From: tverskaya, To: arbat})
	assert.ErrorIs(t, err, ErrRateLimited)

	status = http.StatusBadGateway
	_, err = up.Fetch(context.Background(), Request{From: tverskaya, To: arbat})
	assert.ErrorIs(t, err, ErrUpstreamStatus)
}

func TestGetRouteSkipsRateLimitedHTTPProvider(t *testing.T) {
	limited := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer limited.Close()
	ok := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"code":"Ok","routes":[{"distance":2100,"duration":280,"geometry":{"coordinates":[[37.6173,55.7558],[37.5914,55.752]]}}]}`)
	}))
	defer ok.Close()

	cfg := testConfig()
	cfg.GraphHopperURL = limited.URL
	cfg.OSRMURL = ok.URL
	svc := NewService(NewUpstreams(cfg, nil, nil), nil, cfg, nil, nil)

	res := svc.GetRoute(context.Background(), tverskaya, arbat, false)
	assert.False(t, res.Fallback)
	assert.Equal(t, SourceOSRM, res.Routes[0].Source)
}

type fakeDirections struct {
	routes []maps.DirectionsRoute
}

func (f fakeDirections) Directions(ctx context.Context, from, to types.Point, alternatives bool) ([]maps.DirectionsRoute, error) {
	return f.routes, nil
}

func TestGoogleAdapterDecodesPolyline(t *testing.T) {
	pts := []types.Point{tverskaya, {Lat: 55.754, Lng: 37.60}, arbat}
	up := NewGoogle(fakeDirections{routes: []maps.DirectionsRoute{
		{Polyline: "", DistanceMeters: 1},
		{Polyline: EncodePolyline(pts), DistanceMeters: 2300, Duration: 5 * time.Minute},
	}})

	req := Request{From: tverskaya, To: arbat, Overview: true}
	resp, err := up.Fetch(context.Background(), req)
	require.NoError(t, err)
	routes, err := normalize(resp, req)
	require.NoError(t, err)

	require.Len(t, routes, 1)
	assert.Equal(t, 300.0, routes[0].DurationSeconds)
	require.Len(t, routes[0].Points, 3)
	for i, p := range routes[0].Points {
		assert.InDelta(t, pts[i].Lat, p.Lat, 1e-5)
		assert.InDelta(t, pts[i].Lng, p.Lng, 1e-5)
	}
}

func TestNormalizeUnknownKind(t *testing.T) {
	_, err := normalize(Response{Kind: "carrier-pigeon"}, Request{})
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestOSRMWithoutOverview(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "false", r.URL.Query().Get("overview"))
		fmt.Fprint(w, `{"code":"Ok","routes":[{"distance":2100,"duration":280}]}`)
	}))
	defer srv.Close()

	up := NewOSRM(srv.URL, "ride/1.0", srv.Client())
	req := Request{From: tverskaya, To: arbat}
	resp, err := up.Fetch(context.Background(), req)
	require.NoError(t, err)

	routes, err := normalize(resp, req)
	require.NoError(t, err)
	require.Len(t, routes, 1)
	assert.Equal(t, 2100.0, routes[0].DistanceMeters)
	assert.Equal(t, []types.Point{tverskaya, arbat}, routes[0].Points)

	// with overview requested, a route without geometry is unusable
	req.Overview = true
	_, err = normalize(resp, req)
	assert.ErrorIs(t, err, ErrNoRoutes)
}

func TestGetCachesByOverview(t *testing.T) {
	up := okUpstream("osrm", 1)
	svc := newTestService(nil, up)
	ctx := context.Background()

	svc.Get(ctx, Request{From: tverskaya, To: arbat, Overview: true})
	svc.GetRoute(ctx, tverskaya, arbat, false)
	assert.EqualValues(t, 1, up.calls.Load())

	res := svc.Get(ctx, Request{From: tverskaya, To: arbat})
	assert.EqualValues(t, 2, up.calls.Load())
	assert.False(t, res.Fallback)
}

func TestNewUpstreamsOrder(t *testing.T) {
	cfg := testConfig()
	cfg.Providers = []string{"osrm", "google", "graphhopper", "bogus"}

	names := func(ups []Upstream) []string {
		var out []string
		for _, u := range ups {
			out = append(out, u.Name())
		}
		return out
	}
	assert.Equal(t, []string{"osrm", "graphhopper"}, names(NewUpstreams(cfg, nil, nil)))
	assert.Equal(t, []string{"osrm", "google", "graphhopper"}, names(NewUpstreams(cfg, fakeDirections{}, nil)))
}
