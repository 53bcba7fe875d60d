// README: Scenario cases; HTTP contract checks, a full timed ride, storage checks and a load run.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Runner struct {
	cfg    Config
	httpc  *http.Client
	db     *pgxpool.Pool
	redis  *redis.Client
	logger *zap.Logger

	// set by the full ride case, read by the storage checks
	rideSessionID string
}

type Result struct {
	Name    string
	Status  string
	Latency time.Duration
	Note    string
}

type TestCase struct {
	Name  string
	Focus string
	Run   func(ctx context.Context, r *Runner) Result
}

type sessionView struct {
	ID          string  `json:"id"`
	Status      string  `json:"status"`
	FromAddress string  `json:"from_address"`
	QuoteFixed  bool    `json:"quote_fixed"`
	Progress    float64 `json:"progress"`
	RecordID    string  `json:"record_id"`
	Quote       *struct {
		Total int64 `json:"total"`
	} `json:"quote"`
	Driver *struct {
		Name string `json:"name"`
	} `json:"driver"`
}

func NewRunner(cfg Config, logger *zap.Logger) *Runner {
	return &Runner{
		cfg:    cfg,
		httpc:  &http.Client{Timeout: 15 * time.Second},
		logger: logger,
	}
}

func (r *Runner) RunAll(ctx context.Context) []Result {
	if r.cfg.DSN != "" {
		if db, err := pgxpool.New(ctx, r.cfg.DSN); err == nil {
			r.db = db
		}
	}
	if r.cfg.RedisAddr != "" {
		r.redis = redis.NewClient(&redis.Options{Addr: r.cfg.RedisAddr})
	}

	tests := r.cases()
	results := make([]Result, 0, len(tests))

	for _, tc := range tests {
		start := time.Now()
		res := tc.Run(ctx, r)
		res.Name = tc.Name
		if res.Latency == 0 {
			res.Latency = time.Since(start)
		}
		results = append(results, res)
		fmt.Printf("%-5s %s (%s)", res.Status, tc.Name, res.Latency.Round(time.Millisecond))
		if res.Note != "" {
			fmt.Printf(" - %s", res.Note)
		}
		fmt.Println()
	}

	if r.db != nil {
		r.db.Close()
	}
	if r.redis != nil {
		_ = r.redis.Close()
	}
	return results
}

func (r *Runner) cases() []TestCase {
	base := r.cfg.BaseURL
	return []TestCase{
		{
			Name:  "Env: Postgres connect",
			Focus: "history and rate tables reachable",
			Run: func(ctx context.Context, r *Runner) Result {
				if r.db == nil {
					return skip("dsn not set")
				}
				ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
				defer cancel()
				if err := r.db.Ping(ctx); err != nil {
					return fail(err.Error())
				}
				return pass("")
			},
		},
		{
			Name:  "Env: Redis connect",
			Focus: "route cache and snapshots reachable",
			Run: func(ctx context.Context, r *Runner) Result {
				if r.redis == nil {
					return skip("redis not set")
				}
				ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
				defer cancel()
				if err := r.redis.Ping(ctx).Err(); err != nil {
					return fail(err.Error())
				}
				return pass("")
			},
		},
		{
			Name:  "Migration: apply (optional)",
			Focus: "apply migration SQL",
			Run: func(ctx context.Context, r *Runner) Result {
				if !r.cfg.ApplyMigration {
					return skip("apply-migration=false")
				}
				if r.db == nil {
					return fail("db not configured")
				}
				sql, err := os.ReadFile(r.cfg.MigrationPath)
				if err != nil {
					return fail(err.Error())
				}
				for _, s := range splitSQL(string(sql)) {
					if _, err := r.db.Exec(ctx, s); err != nil {
						return fail(err.Error())
					}
				}
				return pass("")
			},
		},
		{
			Name:  "Migration: tables exist",
			Focus: "tables from the migration file are present",
			Run: func(ctx context.Context, r *Runner) Result {
				if r.db == nil {
					return skip("dsn not set")
				}
				tables, err := extractTables(r.cfg.MigrationPath)
				if err != nil {
					return fail(err.Error())
				}
				for _, t := range tables {
					var exists bool
					err := r.db.QueryRow(ctx,
						"SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name=$1)",
						t,
					).Scan(&exists)
					if err != nil {
						return fail(err.Error())
					}
					if !exists {
						return fail("missing table: " + t)
					}
				}
				return pass(fmt.Sprintf("tables=%d", len(tables)))
			},
		},

		httpCase("API: health", http.MethodGet, base+"/health", nil, http.StatusOK),

		// geocode
		httpCase("Geocode: resolve landmark", http.MethodGet, base+"/api/geocode/resolve?q=%D0%90%D1%80%D0%B1%D0%B0%D1%82", nil, http.StatusOK),
		httpCase("Geocode: resolve missing q -> 400", http.MethodGet, base+"/api/geocode/resolve", nil, http.StatusBadRequest),
		httpCase("Geocode: reverse", http.MethodGet, base+"/api/geocode/reverse?lat=55.7539&lng=37.6208", nil, http.StatusOK),
		httpCase("Geocode: suggest", http.MethodGet, base+"/api/geocode/suggest?q=%D0%B0%D1%80", nil, http.StatusOK),

		// routing
		httpCase("Route: with alternatives", http.MethodGet, base+"/api/routes?from=55.7558,37.6173&to=55.7520,37.5914&alternatives=true", nil, http.StatusOK),
		httpCase("Route: degenerate", http.MethodGet, base+"/api/routes?from=55.7558,37.6173&to=55.7558,37.6173", nil, http.StatusOK),
		httpCase("Route: bad coordinate -> 400", http.MethodGet, base+"/api/routes?from=91,0&to=55.75,37.59", nil, http.StatusBadRequest),

		// pricing
		{
			Name:  "Pricing: economy 10 km",
			Focus: "150 + 10*25 = 400",
			Run: func(ctx context.Context, r *Runner) Result {
				var q struct {
					Total int64 `json:"total"`
				}
				code, err := r.doJSON(ctx, http.MethodGet, base+"/api/pricing/quote?class=economy&distance_km=10", nil, &q)
				if err != nil {
					return fail(err.Error())
				}
				if code != http.StatusOK || q.Total != 400 {
					return fail(fmt.Sprintf("status=%d total=%d", code, q.Total))
				}
				return pass("total=400")
			},
		},
		httpCase("Pricing: unknown class -> 400", http.MethodGet, base+"/api/pricing/quote?class=rocket&distance_km=1", nil, http.StatusBadRequest),

		// sessions
		httpCase("Session: unknown id -> 404", http.MethodGet, base+"/api/sessions/does-not-exist", nil, http.StatusNotFound),
		{
			Name:  "Session: full ride",
			Focus: "order -> found -> coming -> arrived -> riding -> completed -> rated",
			Run:   fullRide,
		},
		{
			Name:  "Session: cancel while searching",
			Focus: "no timer moves a cancelled session",
			Run:   cancelWhileSearching,
		},

		// storage side effects of the full ride
		{
			Name:  "Redis: session snapshot stored",
			Focus: "ride:session:{id} exists",
			Run: func(ctx context.Context, r *Runner) Result {
				if r.redis == nil {
					return skip("redis not set")
				}
				if r.rideSessionID == "" {
					return skip("full ride did not run")
				}
				n, err := r.redis.Exists(ctx, "ride:session:"+r.rideSessionID).Result()
				if err != nil {
					return fail(err.Error())
				}
				if n != 1 {
					return fail("snapshot missing")
				}
				return pass("")
			},
		},
		{
			Name:  "DB: history row rated",
			Focus: "trip_history row with rating 5",
			Run: func(ctx context.Context, r *Runner) Result {
				if r.db == nil {
					return skip("dsn not set")
				}
				if r.rideSessionID == "" {
					return skip("full ride did not run")
				}
				var rating int
				err := r.db.QueryRow(ctx,
					"SELECT rating FROM trip_history WHERE session_id=$1 ORDER BY completed_at DESC LIMIT 1",
					r.rideSessionID,
				).Scan(&rating)
				if err != nil {
					return fail(err.Error())
				}
				if rating != 5 {
					return fail(fmt.Sprintf("rating=%d", rating))
				}
				return pass("")
			},
		},

		{
			Name:  "Load: pricing quote",
			Focus: "throughput of a stateless endpoint",
			Run: func(ctx context.Context, r *Runner) Result {
				return perfLoad(ctx, r, base+"/api/pricing/quote?class=comfort&distance_km=7.5&add_ons=luggage")
			},
		},
	}
}

func fullRide(ctx context.Context, r *Runner) Result {
	base := r.cfg.BaseURL
	var v sessionView
	if code, err := r.doJSON(ctx, http.MethodPost, base+"/api/sessions", nil, &v); err != nil || code != http.StatusCreated {
		return fail(fmt.Sprintf("open: status=%d err=%v", code, err))
	}
	path := base + "/api/sessions/" + v.ID

	steps := []struct {
		method string
		url    string
		body   any
		want   int
	}{
		{http.MethodPut, path + "/addresses", map[string]any{"from": "Красная площадь", "to": "Парк Горького"}, http.StatusOK},
		{http.MethodPut, path + "/options", map[string]any{"vehicle_class": "comfort", "add_ons": []string{"child_seat"}}, http.StatusOK},
		{http.MethodPost, path + "/order", nil, http.StatusAccepted},
	}
	for _, s := range steps {
		code, err := r.doJSON(ctx, s.method, s.url, s.body, &v)
		if err != nil || code != s.want {
			return fail(fmt.Sprintf("%s %s: status=%d err=%v", s.method, s.url, code, err))
		}
	}
	if !v.QuoteFixed || v.Quote == nil {
		return fail("quote not fixed after order")
	}
	fixedTotal := v.Quote.Total

	if err := r.waitStatus(ctx, path, "arrived", &v); err != nil {
		return fail(err.Error())
	}
	if v.Driver == nil {
		return fail("arrived without driver")
	}
	if code, err := r.doJSON(ctx, http.MethodPost, path+"/start", nil, &v); err != nil || code != http.StatusOK {
		return fail(fmt.Sprintf("start: status=%d err=%v", code, err))
	}
	if err := r.waitStatus(ctx, path, "completed", &v); err != nil {
		return fail(err.Error())
	}
	if v.Quote == nil || v.Quote.Total != fixedTotal {
		return fail("quote changed during ride")
	}
	if code, err := r.doJSON(ctx, http.MethodPost, path+"/rating", map[string]any{"stars": 5}, &v); err != nil || code != http.StatusOK {
		return fail(fmt.Sprintf("rating: status=%d err=%v", code, err))
	}
	if v.Status != "none" {
		return fail("status after rating: " + v.Status)
	}
	r.rideSessionID = v.ID
	return pass(fmt.Sprintf("total=%d", fixedTotal))
}

func cancelWhileSearching(ctx context.Context, r *Runner) Result {
	base := r.cfg.BaseURL
	var v sessionView
	if code, err := r.doJSON(ctx, http.MethodPost, base+"/api/sessions", nil, &v); err != nil || code != http.StatusCreated {
		return fail(fmt.Sprintf("open: status=%d err=%v", code, err))
	}
	path := base + "/api/sessions/" + v.ID
	if code, err := r.doJSON(ctx, http.MethodPut, path+"/addresses", map[string]any{"from": "Тверская", "to": "ВДНХ"}, &v); err != nil || code != http.StatusOK {
		return fail(fmt.Sprintf("addresses: status=%d err=%v", code, err))
	}
	if code, err := r.doJSON(ctx, http.MethodPost, path+"/order", nil, &v); err != nil || code != http.StatusAccepted {
		return fail(fmt.Sprintf("order: status=%d err=%v", code, err))
	}
	if code, err := r.doJSON(ctx, http.MethodPost, path+"/cancel", nil, &v); err != nil || code != http.StatusOK {
		return fail(fmt.Sprintf("cancel: status=%d err=%v", code, err))
	}

	// past the search delay: a stale timer would have found a driver by now
	select {
	case <-ctx.Done():
		return fail(ctx.Err().Error())
	case <-time.After(4 * time.Second):
	}
	if code, err := r.doJSON(ctx, http.MethodGet, path, nil, &v); err != nil || code != http.StatusOK {
		return fail(fmt.Sprintf("get: status=%d err=%v", code, err))
	}
	if v.Status != "none" || v.Driver != nil {
		return fail("cancelled session moved to " + v.Status)
	}
	if v.FromAddress == "" {
		return fail("addresses dropped by cancel")
	}
	return pass("")
}

func (r *Runner) waitStatus(ctx context.Context, url, want string, v *sessionView) error {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.PhaseTimeout)
	defer cancel()
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()
	for {
		code, err := r.doJSON(ctx, http.MethodGet, url, nil, v)
		if err == nil && code == http.StatusOK && v.Status == want {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for %s: last status %q", want, v.Status)
		case <-ticker.C:
		}
	}
}

func (r *Runner) doJSON(ctx context.Context, method, url string, body, out any) (int, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return 0, err
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return 0, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	start := time.Now()
	resp, err := r.httpc.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	r.logger.Debug("request",
		zap.String("method", method),
		zap.String("url", url),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)),
	)
	if out != nil && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, err
		}
	}
	return resp.StatusCode, nil
}

func httpCase(name, method, url string, body any, want int) TestCase {
	return TestCase{
		Name: name,
		Run: func(ctx context.Context, r *Runner) Result {
			start := time.Now()
			code, err := r.doJSON(ctx, method, url, body, nil)
			latency := time.Since(start)
			if err != nil {
				return Result{Status: "FAIL", Latency: latency, Note: err.Error()}
			}
			if code != want {
				return Result{Status: "FAIL", Latency: latency, Note: fmt.Sprintf("status=%d want=%d", code, want)}
			}
			return Result{Status: "PASS", Latency: latency, Note: fmt.Sprintf("status=%d", code)}
		},
	}
}

func perfLoad(ctx context.Context, r *Runner, url string) Result {
	end := time.Now().Add(r.cfg.Duration)
	var count, errCount int64
	var mu sync.Mutex
	wg := sync.WaitGroup{}

	for i := 0; i < r.cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for time.Now().Before(end) && ctx.Err() == nil {
				req, _ := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
				resp, err := r.httpc.Do(req)
				mu.Lock()
				if err != nil || resp.StatusCode != http.StatusOK {
					errCount++
				} else {
					count++
				}
				mu.Unlock()
				if err == nil {
					_, _ = io.Copy(io.Discard, resp.Body)
					_ = resp.Body.Close()
				}
			}
		}()
	}
	wg.Wait()

	if count == 0 {
		return fail("no requests completed")
	}
	rps := float64(count) / r.cfg.Duration.Seconds()
	return Result{Status: "PASS", Note: fmt.Sprintf("rps=%.1f errors=%d", rps, errCount)}
}

func pass(note string) Result { return Result{Status: "PASS", Note: note} }
func fail(note string) Result { return Result{Status: "FAIL", Note: note} }
func skip(note string) Result { return Result{Status: "SKIP", Note: note} }

func extractTables(path string) ([]string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	re := regexp.MustCompile(`(?i)create\s+table\s+if\s+not\s+exists\s+([a-zA-Z0-9_]+)`)
	matches := re.FindAllStringSubmatch(string(b), -1)
	tables := make([]string, 0, len(matches))
	for _, m := range matches {
		tables = append(tables, m[1])
	}
	return tables, nil
}

func splitSQL(sql string) []string {
	lines := strings.Split(sql, "\n")
	filtered := make([]string, 0, len(lines))
	for _, line := range lines {
		l := strings.TrimSpace(line)
		if strings.HasPrefix(l, "--") || l == "" {
			continue
		}
		filtered = append(filtered, line)
	}
	parts := strings.Split(strings.Join(filtered, "\n"), ";")
	stmts := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			stmts = append(stmts, s)
		}
	}
	return stmts
}
