// Command adminsession-loadtest measures the session manager against Redis or
// an embedded miniredis.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strconv"
	"sync"
	"sync/atomic"
	"text/tabwriter"
	"time"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/AdguardTeam/golibs/logutil/slogutil"
	"github.com/alicebob/miniredis/v2"
	"github.com/honjaopseoye/adminsession"
	"github.com/honjaopseoye/adminsession/store"
	"github.com/honjaopseoye/adminsession/token"
	"github.com/redis/go-redis/v9"
)

const loadSecret = "loadtest-secret-loadtest-secret-0"

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

// options are the command-line flags.
type options struct {
	redisAddr   string
	prefix      string
	tokens      int
	concurrency int
	ops         int
	verbose     bool
}

func parseOptions(args []string, stderr io.Writer) (o *options, err error) {
	o = &options{}

	fs := flag.NewFlagSet("adminsession-loadtest", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.IntVar(&o.tokens, "tokens", 1000, "number of distinct tokens to log in with")
	fs.IntVar(&o.concurrency, "concurrency", 64, "number of concurrent workers")
	fs.IntVar(&o.ops, "ops", 50000, "operations per phase")
	fs.StringVar(&o.redisAddr, "redis-addr", "", "redis address; REDIS_ADDR or an embedded miniredis when empty")
	fs.StringVar(&o.prefix, "prefix", "loadtest:", "session key prefix")
	fs.BoolVar(&o.verbose, "v", false, "log manager activity")

	if err = fs.Parse(args); err != nil {
		return nil, err
	}

	if o.tokens <= 0 || o.concurrency <= 0 || o.ops <= 0 {
		return nil, errors.Error("tokens, concurrency and ops must be positive")
	}

	if o.redisAddr == "" {
		o.redisAddr = os.Getenv("REDIS_ADDR")
	}

	return o, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) (code int) {
	o, err := parseOptions(args, stderr)
	if err != nil {
		_, _ = fmt.Fprintln(stderr, err)

		return 2
	}

	lvl := slog.LevelWarn
	if o.verbose {
		lvl = slogutil.LevelDebug
	}
	logger := slogutil.New(&slogutil.Config{
		Output: stderr,
		Format: slogutil.FormatDefault,
		Level:  lvl,
	})

	client, cleanup, err := connectRedis(o.redisAddr)
	if err != nil {
		logger.Error("connecting to redis", slogutil.KeyError, err)

		return 1
	}
	defer cleanup()

	if err = loadTest(ctx, o, client, logger, stdout); err != nil {
		logger.Error("load test", slogutil.KeyError, err)

		return 1
	}

	return 0
}

// connectRedis returns a client for addr, or for a fresh miniredis when addr
// is empty.
func connectRedis(addr string) (client redis.UniversalClient, cleanup func(), err error) {
	var mr *miniredis.Miniredis
	if addr == "" {
		if mr, err = miniredis.Run(); err != nil {
			return nil, nil, fmt.Errorf("starting miniredis: %w", err)
		}

		addr = mr.Addr()
	}

	client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
	cleanup = func() {
		_ = client.Close()
		if mr != nil {
			mr.Close()
		}
	}

	return client, cleanup, nil
}

func loadTest(
	ctx context.Context,
	o *options,
	client redis.UniversalClient,
	logger *slog.Logger,
	out io.Writer,
) (err error) {
	cfg := adminsession.DefaultConfig()
	cfg.Storage.KeyPrefix = o.prefix
	cfg.Storage.ExpireWithToken = true

	m, err := adminsession.New().
		WithConfig(cfg).
		WithStorage(store.NewRedis(client)).
		WithLogger(logger).
		WithMetricsEnabled(true).
		WithLatencyHistograms(true).
		Build()
	if err != nil {
		return fmt.Errorf("building manager: %w", err)
	}
	defer m.Close()

	toks, err := mintTokens(o.tokens)
	if err != nil {
		return fmt.Errorf("minting tokens: %w", err)
	}

	if _, err = m.LoginWithToken(ctx, toks[0]); err != nil {
		return fmt.Errorf("seeding session: %w", err)
	}

	phases := []struct {
		name string
		op   func(worker, i int) error
	}{{
		name: "authorize",
		op: func(_, _ int) error {
			_, aErr := m.Authorization(ctx)

			return aErr
		},
	}, {
		name: "login",
		op: func(_, i int) error {
			_, lErr := m.LoginWithToken(ctx, toks[i%len(toks)])

			return lErr
		},
	}, {
		name: "bootstrap",
		op: func(_, _ int) error {
			if st := m.Bootstrap(ctx); !st.Authenticated {
				return fmt.Errorf("bootstrap ended in %s", st.Phase)
			}

			return nil
		},
	}}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', tabwriter.AlignRight)
	_, _ = fmt.Fprintln(tw, "phase\tops\tfailures\ttotal\tops/s\tp50\tp95\tp99\t")
	for _, p := range phases {
		runPhase(o.ops, o.concurrency, p.op).writeRow(tw, p.name)
	}

	snap := m.MetricsSnapshot()
	_, _ = fmt.Fprintf(
		tw,
		"\nsessions written: %d, write latency buckets: %v\n",
		snap.Counters[adminsession.MetricLoginSuccess],
		snap.Histograms[adminsession.MetricStorageWriteLatency],
	)

	return tw.Flush()
}

// runPhase calls op ops times from concurrency workers and collects the
// latency of each call.
func runPhase(ops, concurrency int, op func(worker, i int) error) (s phaseStats) {
	var (
		next     atomic.Int64
		failures atomic.Int64
		wg       sync.WaitGroup
	)

	perWorker := make([][]time.Duration, concurrency)

	start := time.Now()
	for w := range concurrency {
		wg.Go(func() {
			for i := int(next.Add(1) - 1); i < ops; i = int(next.Add(1) - 1) {
				t0 := time.Now()
				if op(w, i) != nil {
					failures.Add(1)
				}

				perWorker[w] = append(perWorker[w], time.Since(t0))
			}
		})
	}
	wg.Wait()

	return computeStats(time.Since(start), slices.Concat(perWorker...), failures.Load())
}

type phaseStats struct {
	total    time.Duration
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	rate     float64
	ops      int
	failures int64
}

// computeStats sorts samples in place.
func computeStats(total time.Duration, samples []time.Duration, failures int64) (s phaseStats) {
	s = phaseStats{total: total, ops: len(samples), failures: failures}
	if len(samples) == 0 {
		return s
	}

	slices.Sort(samples)
	s.p50 = percentile(samples, 50)
	s.p95 = percentile(samples, 95)
	s.p99 = percentile(samples, 99)
	if total > 0 {
		s.rate = float64(len(samples)) / total.Seconds()
	}

	return s
}

// percentile returns the nearest-rank p-th percentile of sorted samples.
func percentile(samples []time.Duration, p int) (d time.Duration) {
	if len(samples) == 0 {
		return 0
	}

	idx := (len(samples) - 1) * min(max(p, 0), 100) / 100

	return samples[idx]
}

func (s phaseStats) writeRow(w io.Writer, name string) {
	_, _ = fmt.Fprintf(
		w,
		"%s\t%d\t%d\t%s\t%.0f\t%s\t%s\t%s\t\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.rate,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}

// mintTokens signs n admin tokens valid for a day.
func mintTokens(n int) (toks []string, err error) {
	tm, err := token.NewManager(token.Config{SigningMethod: token.MethodHS256, PrivateKey: []byte(loadSecret)})
	if err != nil {
		return nil, err
	}

	exp := time.Now().Add(24 * time.Hour).Unix()
	toks = make([]string, n)
	for i := range toks {
		toks[i], err = tm.Sign(token.Claims{
			Subject:   "load-" + strconv.Itoa(i),
			UserID:    int64(i + 1),
			Role:      token.RoleAdmin,
			ExpiresAt: exp,
		})
		if err != nil {
			return nil, fmt.Errorf("signing token %d: %w", i, err)
		}
	}

	return toks, nil
}
