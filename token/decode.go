package token

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// ErrMalformed is returned for tokens that do not have three non-empty
// segments or whose payload is not a base64-encoded UTF-8 JSON object.
var ErrMalformed = errors.New("malformed token")

const segmentCount = 3

var segmentAlphabet = strings.NewReplacer("-", "+", "_", "/")

// Decode splits tok, decodes its payload segment and parses it into
// [Claims]. The signature is not checked.
func Decode(tok string) (*Claims, error) {
	payload, err := Payload(tok)
	if err != nil {
		return nil, err
	}

	var c Claims
	if err := json.Unmarshal(payload, &c); err != nil {
		return nil, fmt.Errorf("%w: payload: %v", ErrMalformed, err)
	}

	return &c, nil
}

// Payload returns the raw JSON bytes of the payload segment of tok.
func Payload(tok string) ([]byte, error) {
	parts := strings.Split(tok, ".")
	if len(parts) != segmentCount {
		return nil, fmt.Errorf("%w: want %d segments, got %d", ErrMalformed, segmentCount, len(parts))
	}
	for i, p := range parts {
		if p == "" {
			return nil, fmt.Errorf("%w: segment %d is empty", ErrMalformed, i)
		}
	}

	raw, err := decodeSegment(parts[1])
	if err != nil {
		return nil, fmt.Errorf("%w: payload encoding: %v", ErrMalformed, err)
	}
	if !utf8.Valid(raw) {
		return nil, fmt.Errorf("%w: payload is not valid utf-8", ErrMalformed)
	}

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' || !json.Valid(trimmed) {
		return nil, fmt.Errorf("%w: payload is not a json object", ErrMalformed)
	}

	return trimmed, nil
}

// decodeSegment accepts both the url-safe and the standard alphabet, with or
// without padding.
func decodeSegment(seg string) ([]byte, error) {
	seg = segmentAlphabet.Replace(seg)
	seg = strings.TrimRight(seg, "=")

	return base64.RawStdEncoding.DecodeString(seg)
}

// IsExpired reports whether tok is expired at now. A token that cannot be
// decoded is reported as expired.
func IsExpired(tok string, now time.Time) bool {
	c, err := Decode(tok)
	if err != nil {
		return true
	}

	return c.Expired(now)
}

// StripBearer removes an optional "Bearer " scheme prefix from an
// Authorization-style value.
func StripBearer(value string) string {
	const bearer = "Bearer "
	value = strings.TrimSpace(value)
	if strings.HasPrefix(value, bearer) {
		return strings.TrimSpace(value[len(bearer):])
	}

	return value
}
