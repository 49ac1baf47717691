package token

import (
	"encoding/base64"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"
)

func newHSManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(Config{SigningMethod: MethodHS256, PrivateKey: []byte("fixture-secret-fixture-secret-00")})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	return m
}

func mustEncode(t *testing.T, claims Claims) string {
	t.Helper()
	tok, err := Encode(claims, newHSManager(t))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return tok
}

// rawToken builds a token around an arbitrary payload without signing it.
func rawToken(payload string) string {
	enc := base64.RawURLEncoding
	return enc.EncodeToString([]byte(`{"alg":"HS256","typ":"JWT"}`)) + "." +
		enc.EncodeToString([]byte(payload)) + "." +
		enc.EncodeToString([]byte("sig"))
}

func TestDecodeRoundTrip(t *testing.T) {
	want := Claims{
		Subject:   "admin@example.com",
		UserID:    42,
		Role:      RoleAdmin,
		ExpiresAt: time.Now().Add(time.Hour).Unix(),
	}

	got, err := Decode(mustEncode(t, want))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !reflect.DeepEqual(*got, want) {
		t.Fatalf("round trip mismatch: got %+v, want %+v", *got, want)
	}
}

func TestDecodeRoundTripNonASCII(t *testing.T) {
	want := Claims{
		Subject:   "혼자옵서예 관리자",
		UserID:    7,
		Role:      "관리자",
		ExpiresAt: time.Now().Add(time.Hour).Unix(),
	}

	got, err := Decode(mustEncode(t, want))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Subject != want.Subject || got.Role != want.Role {
		t.Fatalf("non-ascii payload corrupted: got %+v, want %+v", *got, want)
	}
}

func TestDecodeAcceptsStandardAlphabetAndPadding(t *testing.T) {
	payload := `{"sub":"??>>","userId":1,"role":"ADMIN","exp":4102444800}`
	std := base64.StdEncoding.EncodeToString([]byte(payload))
	if !strings.ContainsAny(std, "+/=") {
		t.Fatalf("fixture should exercise the standard alphabet, got %q", std)
	}

	got, err := Decode("aGVhZGVy." + std + ".c2ln")
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Subject != "??>>" {
		t.Fatalf("unexpected subject %q", got.Subject)
	}
}

func TestDecodeRejectsMalformed(t *testing.T) {
	tests := []struct {
		name string
		tok  string
	}{
		{name: "empty", tok: ""},
		{name: "one segment", tok: "abc"},
		{name: "two segments", tok: "abc.def"},
		{name: "four segments", tok: "a.b.c.d"},
		{name: "empty payload", tok: "a..c"},
		{name: "empty signature", tok: strings.TrimSuffix(rawToken(`{"exp":1}`), "c2ln")},
		{name: "bad base64", tok: "a.!!!.c"},
		{name: "not json", tok: rawToken("not json")},
		{name: "json array", tok: rawToken(`[1,2,3]`)},
		{name: "invalid utf8", tok: "a." + base64.RawURLEncoding.EncodeToString([]byte{'{', 0xff, '}'}) + ".c"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Decode(tc.tok); !errors.Is(err, ErrMalformed) {
				t.Fatalf("expected ErrMalformed, got %v", err)
			}
			if !IsExpired(tc.tok, time.Now()) {
				t.Fatal("undecodable token must be treated as expired")
			}
		})
	}
}

func TestDecodeLenientClaims(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    Claims
	}{{
		name:    "string user id",
		payload: `{"sub":"a","userId":"42","role":"ADMIN","exp":4102444800}`,
		want:    Claims{Subject: "a", UserID: 42, Role: RoleAdmin, ExpiresAt: 4102444800},
	}, {
		name:    "fractional exp",
		payload: `{"sub":"a","userId":1,"role":"ADMIN","exp":4102444800.5}`,
		want:    Claims{Subject: "a", UserID: 1, Role: RoleAdmin, ExpiresAt: 4102444800},
	}, {
		name:    "string exp",
		payload: `{"sub":"a","exp":"4102444800"}`,
		want:    Claims{Subject: "a", ExpiresAt: 4102444800},
	}, {
		name:    "exponent exp",
		payload: `{"exp":4.1024448e9}`,
		want:    Claims{ExpiresAt: 4102444800},
	}, {
		name:    "non-numeric exp",
		payload: `{"sub":"a","exp":"tomorrow"}`,
		want:    Claims{Subject: "a"},
	}, {
		name:    "object role",
		payload: `{"role":{"name":"ADMIN"},"userId":true}`,
		want:    Claims{},
	}, {
		name:    "numeric subject",
		payload: `{"sub":7}`,
		want:    Claims{Subject: "7"},
	}, {
		name:    "empty object",
		payload: `{}`,
		want:    Claims{},
	}}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Decode(rawToken(tc.payload))
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if *got != tc.want {
				t.Fatalf("got %+v, want %+v", *got, tc.want)
			}
		})
	}
}

func TestIsExpiredUnusableExp(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)

	for _, payload := range []string{
		`{"sub":"a"}`,
		`{"exp":"tomorrow"}`,
		`{"exp":null}`,
		`{"exp":"Infinity"}`,
	} {
		if !IsExpired(rawToken(payload), now) {
			t.Fatalf("expected %s to be expired", payload)
		}
	}

	if !IsExpired(rawToken(`{"exp":1700000000.9}`), now) {
		t.Fatal("fractional exp in the current second must be expired")
	}
	if IsExpired(rawToken(`{"exp":"1700000001"}`), now) {
		t.Fatal("numeric string exp in the future must not be expired")
	}
}

func TestDecodeNumericRole(t *testing.T) {
	got, err := Decode(rawToken(`{"sub":"u","userId":3,"role":1,"exp":4102444800}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Role != "1" {
		t.Fatalf("expected numeric role kept as %q, got %q", "1", got.Role)
	}
}

func TestIsExpired(t *testing.T) {
	now := time.Unix(1_700_000_000, 600_000_000)

	tests := []struct {
		name string
		exp  int64
		want bool
	}{
		{name: "past", exp: now.Unix() - 60, want: true},
		{name: "future", exp: now.Unix() + 60, want: false},
		{name: "exactly now", exp: now.Unix(), want: true},
		{name: "next second", exp: now.Unix() + 1, want: false},
		{name: "missing exp", exp: 0, want: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tok := mustEncode(t, Claims{Subject: "s", UserID: 1, Role: RoleAdmin, ExpiresAt: tc.exp})
			if got := IsExpired(tok, now); got != tc.want {
				t.Fatalf("IsExpired = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestStripBearer(t *testing.T) {
	if got := StripBearer("Bearer a.b.c"); got != "a.b.c" {
		t.Fatalf("unexpected %q", got)
	}
	if got := StripBearer("a.b.c"); got != "a.b.c" {
		t.Fatalf("unexpected %q", got)
	}
}
