package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	goSnap "github.com/MrEthical07/goSnap"
	"github.com/MrEthical07/goSnap/transport"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

const loginBody = `{"updates_response":{"username":"loadtest"},"auth_token":"loadtest-token"}`

func main() {
	var (
		contexts    = flag.Int("contexts", 1000, "number of distinct signing contexts")
		concurrency = flag.Int("concurrency", 256, "number of concurrent workers")
		ops         = flag.Int("ops", 200000, "requests per phase (cold + warm)")
		latency     = flag.Duration("latency", 0, "simulated service latency per request")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix      = flag.String("prefix", "gosnap:loadtest", "token cache key prefix")
	)
	flag.Parse()

	if *contexts <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "contexts, concurrency, and ops must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var (
		cleanup func()
		rdb     redis.UniversalClient
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		addr = mr.Addr()
		rdb = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() {
			_ = rdb.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		rdb = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() { _ = rdb.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	cfg := goSnap.DefaultConfig()
	cfg.Endpoint.BaseURL = "https://loadtest.invalid"
	cfg.Credentials.APIKey = "loadtest-key"
	cfg.Credentials.APISecret = "loadtest-secret"
	cfg.Cache.RedisPrefix = *prefix
	cfg.Metrics.Enabled = true

	client, err := goSnap.New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithTransport(simulatedService(*latency)).
		Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "build failed: %v\n", err)
		os.Exit(1)
	}
	defer client.Close()

	if _, err := client.SignIn(ctx, "loadtest", "loadtest"); err != nil {
		fmt.Fprintf(os.Stderr, "sign in failed: %v\n", err)
		os.Exit(1)
	}

	cold := runPhase(ctx, client, *contexts, *ops, *concurrency)
	before := client.MetricsSnapshot().Counters
	warm := runPhase(ctx, client, *contexts, *ops, *concurrency)
	after := client.MetricsSnapshot().Counters

	fmt.Println("---- results ----")
	printStats("cold", cold)
	printStats("warm", warm)
	fmt.Printf("warm cache: hits=%d misses=%d errors=%d\n",
		after[goSnap.MetricSignatureCacheHit]-before[goSnap.MetricSignatureCacheHit],
		after[goSnap.MetricSignatureCacheMiss]-before[goSnap.MetricSignatureCacheMiss],
		after[goSnap.MetricSignatureCacheError]-before[goSnap.MetricSignatureCacheError],
	)
}

// simulatedService answers every request with an empty success body after
// delay.
func simulatedService(delay time.Duration) transport.Transport {
	return transport.Func(func(ctx context.Context, req *transport.Request) (*transport.Response, error) {
		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		body := []byte(`{}`)
		if strings.HasSuffix(req.URL, goSnap.EndpointLogin) {
			body = []byte(loginBody)
		}
		return &transport.Response{StatusCode: http.StatusOK, Header: http.Header{}, Body: body}, nil
	})
}

func runPhase(ctx context.Context, client *goSnap.Client, contexts, ops, concurrency int) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				sc := fmt.Sprintf("/loadtest/%d", r.Intn(contexts))
				t0 := time.Now()
				_, err := client.Execute(ctx, goSnap.RequestDescriptor{
					Endpoint:          sc,
					Params:            map[string]string{"n": fmt.Sprint(i)},
					RequiresSignature: true,
					RequiresSession:   true,
				})
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	total := time.Since(start)
	return computeStats(total, latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
