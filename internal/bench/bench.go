// Package bench drives concurrent requests against a running airunner
// server and reports latency statistics.
package bench

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ziadkadry99/ai-runner/internal/progress"
)

// Endpoints lists the operations that can be benchmarked.
var Endpoints = []string{"summarize", "translate", "context_predict", "rag_predict"}

// Config describes one benchmark run.
type Config struct {
	URL         string            // Server base URL, e.g. http://localhost:8080.
	Endpoint    string            // One of Endpoints.
	Requests    int               // Total requests to send.
	Concurrency int               // Requests in flight at once.
	Token       string            // Optional bearer token.
	Payload     map[string]string // JSON body sent with every request.
}

// Result summarizes a run. Latencies only cover successful requests.
type Result struct {
	Endpoint string        `json:"endpoint"`
	Count    int           `json:"count"`
	Errors   int           `json:"errors"`
	Mean     time.Duration `json:"mean"`
	P50      time.Duration `json:"p50"`
	P95      time.Duration `json:"p95"`
	Max      time.Duration `json:"max"`
	Elapsed  time.Duration `json:"elapsed"`
	// FirstError is the first failure seen, for display.
	FirstError string `json:"first_error,omitempty"`
}

// Throughput returns successful requests per second.
func (r *Result) Throughput() float64 {
	if r.Elapsed <= 0 {
		return 0
	}
	return float64(r.Count-r.Errors) / r.Elapsed.Seconds()
}

func (r *Result) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "endpoint:    %s\n", r.Endpoint)
	fmt.Fprintf(&sb, "requests:    %d (%d failed)\n", r.Count, r.Errors)
	fmt.Fprintf(&sb, "elapsed:     %s (%.2f req/s)\n", r.Elapsed.Round(time.Millisecond), r.Throughput())
	fmt.Fprintf(&sb, "latency:     mean %s  p50 %s  p95 %s  max %s\n",
		r.Mean.Round(time.Millisecond), r.P50.Round(time.Millisecond),
		r.P95.Round(time.Millisecond), r.Max.Round(time.Millisecond))
	if r.FirstError != "" {
		fmt.Fprintf(&sb, "first error: %s\n", r.FirstError)
	}
	return sb.String()
}

// Runner sends benchmark requests.
type Runner struct {
	client   *http.Client
	reporter progress.Reporter
}

// NewRunner creates a Runner. A nil client uses http.DefaultClient; a nil
// reporter disables progress output.
func NewRunner(client *http.Client, reporter progress.Reporter) *Runner {
	if client == nil {
		client = http.DefaultClient
	}
	return &Runner{client: client, reporter: reporter}
}

// Validate checks cfg and fills in defaults.
func (c *Config) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("url is required")
	}
	known := false
	for _, e := range Endpoints {
		if c.Endpoint == e {
			known = true
		}
	}
	if !known {
		return fmt.Errorf("unknown endpoint %q: must be one of %s", c.Endpoint, strings.Join(Endpoints, ", "))
	}
	if c.Requests <= 0 {
		c.Requests = 1
	}
	if c.Concurrency <= 0 {
		c.Concurrency = 1
	}
	return nil
}

// Run executes the benchmark. It stops early only when ctx is cancelled;
// failed requests are counted, not fatal.
func (r *Runner) Run(ctx context.Context, cfg Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	body, err := json.Marshal(cfg.Payload)
	if err != nil {
		return nil, fmt.Errorf("encoding payload: %w", err)
	}
	target := strings.TrimRight(cfg.URL, "/") + "/" + cfg.Endpoint

	var (
		mu        sync.Mutex
		latencies []time.Duration
		done      int
		res       = &Result{Endpoint: cfg.Endpoint}
	)

	if r.reporter != nil {
		r.reporter.Start(cfg.Requests)
		defer r.reporter.Finish()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Concurrency)

	start := time.Now()
	for i := 0; i < cfg.Requests; i++ {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			d, err := r.send(gctx, target, cfg.Token, body)

			mu.Lock()
			defer mu.Unlock()
			done++
			res.Count++
			if err != nil {
				res.Errors++
				if res.FirstError == "" {
					res.FirstError = err.Error()
				}
			} else {
				latencies = append(latencies, d)
			}
			if r.reporter != nil {
				r.reporter.Update(done, cfg.Endpoint)
			}
			return nil
		})
	}
	g.Wait()
	res.Elapsed = time.Since(start)

	res.Mean, res.P50, res.P95, res.Max = Summarize(latencies)
	return res, ctx.Err()
}

func (r *Runner) send(ctx context.Context, target, token string, body []byte) (time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := r.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	elapsed := time.Since(start)

	if resp.StatusCode != http.StatusOK {
		var e struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &e) == nil && e.Error != "" {
			return 0, fmt.Errorf("status %d: %s", resp.StatusCode, e.Error)
		}
		return 0, fmt.Errorf("status %d", resp.StatusCode)
	}
	return elapsed, nil
}

// Summarize returns the mean, median, 95th percentile and maximum of
// latencies. Percentiles use the nearest-rank method.
func Summarize(latencies []time.Duration) (mean, p50, p95, max time.Duration) {
	if len(latencies) == 0 {
		return 0, 0, 0, 0
	}
	sorted := make([]time.Duration, len(latencies))
	copy(sorted, latencies)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var total time.Duration
	for _, d := range sorted {
		total += d
	}
	mean = total / time.Duration(len(sorted))
	return mean, percentile(sorted, 50), percentile(sorted, 95), sorted[len(sorted)-1]
}

func percentile(sorted []time.Duration, p int) time.Duration {
	rank := (p*len(sorted) + 99) / 100
	if rank < 1 {
		rank = 1
	}
	return sorted[rank-1]
}
