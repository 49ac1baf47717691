package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/honjaopseoye/adminsession/token"
)

func TestPercentile(t *testing.T) {
	samples := []time.Duration{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}

	cases := map[int]time.Duration{0: 1, 50: 5, 95: 9, 99: 9, 100: 10}
	for p, want := range cases {
		if got := percentile(samples, p); got != want {
			t.Fatalf("percentile(%d) = %v, want %v", p, got, want)
		}
	}
	if got := percentile(nil, 50); got != 0 {
		t.Fatalf("percentile(nil) = %v, want 0", got)
	}
}

func TestRunPhaseCountsFailures(t *testing.T) {
	s := runPhase(100, 4, func(_, i int) error {
		if i%10 == 0 {
			return errTest
		}
		return nil
	})

	if s.ops != 100 {
		t.Fatalf("ops = %d, want 100", s.ops)
	}
	if s.failures != 10 {
		t.Fatalf("failures = %d, want 10", s.failures)
	}
}

func TestComputeStatsEmpty(t *testing.T) {
	s := computeStats(time.Second, nil, 3)
	if s.ops != 0 || s.failures != 3 || s.rate != 0 {
		t.Fatalf("unexpected stats %+v", s)
	}
}

func TestRun(t *testing.T) {
	t.Setenv("REDIS_ADDR", "")

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"-ops", "20", "-concurrency", "2", "-tokens", "3"}, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("run() = %d, stderr:\n%s", code, stderr.String())
	}

	for _, want := range []string{"authorize", "login", "bootstrap", "sessions written"} {
		if !strings.Contains(stdout.String(), want) {
			t.Fatalf("expected %q in output:\n%s", want, stdout.String())
		}
	}
}

func TestRunRejectsBadFlags(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := run(context.Background(), []string{"-ops", "0"}, &stdout, &stderr); code != 2 {
		t.Fatalf("run() = %d, want 2", code)
	}
}

func TestMintTokens(t *testing.T) {
	toks, err := mintTokens(3)
	if err != nil {
		t.Fatalf("mintTokens: %v", err)
	}
	for i, tok := range toks {
		c, err := token.Decode(tok)
		if err != nil {
			t.Fatalf("decode %d: %v", i, err)
		}
		if c.UserID != int64(i+1) {
			t.Fatalf("token %d userId = %d", i, c.UserID)
		}
	}
}

type testError string

func (e testError) Error() string { return string(e) }

const errTest testError = "boom"
