package token

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Role is the role marker carried in the payload. The backend sends it as a
// string ("ADMIN"); numeric markers are accepted and kept in decimal form.
type Role string

// RoleAdmin is the role the backend assigns to back-office administrators.
const RoleAdmin Role = "ADMIN"

// UnmarshalJSON implements the json.Unmarshaler interface for Role.
func (r *Role) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*r = Role(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("role must be a string or a number: %w", err)
	}
	*r = Role(n.String())

	return nil
}

// Claims is the payload of an admin bearer token.
//
// Claims implements [jwt.Claims] so that the same struct is used for signing,
// verification and unverified decoding.
type Claims struct {
	Subject   string `json:"sub"`
	UserID    int64  `json:"userId"`
	Role      Role   `json:"role"`
	ExpiresAt int64  `json:"exp"`
	IssuedAt  int64  `json:"iat,omitempty"`
}

// UnmarshalJSON implements the json.Unmarshaler interface for *Claims.  Any
// JSON object is accepted.  Numeric claims may be integers, fractions or
// numeric strings; fractions are floored.  Claims of an unusable type are left
// zero, so a token without a usable exp is expired.
func (c *Claims) UnmarshalJSON(data []byte) (err error) {
	var raw struct {
		Subject   any             `json:"sub"`
		UserID    any             `json:"userId"`
		Role      json.RawMessage `json:"role"`
		ExpiresAt any             `json:"exp"`
		IssuedAt  any             `json:"iat"`
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err = dec.Decode(&raw); err != nil {
		return err
	}

	*c = Claims{
		Subject:   scalarString(raw.Subject),
		UserID:    numericClaim(raw.UserID),
		ExpiresAt: numericClaim(raw.ExpiresAt),
		IssuedAt:  numericClaim(raw.IssuedAt),
	}
	if len(raw.Role) > 0 && c.Role.UnmarshalJSON(raw.Role) != nil {
		c.Role = ""
	}

	return nil
}

// numericClaim converts a decoded claim value into whole seconds or an id.  It
// returns zero for values that are not numbers or numeric strings.
func numericClaim(v any) (n int64) {
	var s string
	switch v := v.(type) {
	case json.Number:
		s = v.String()
	case string:
		s = strings.TrimSpace(v)
	default:
		return 0
	}

	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}

	f = math.Floor(f)
	switch {
	case f >= math.MaxInt64:
		return math.MaxInt64
	case f <= math.MinInt64:
		return math.MinInt64
	default:
		return int64(f)
	}
}

// scalarString returns strings as is and numbers in decimal form.
func scalarString(v any) (s string) {
	switch v := v.(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	default:
		return ""
	}
}

// Expired reports whether the claims are expired at now. The boundary is
// inclusive: a token whose exp equals the current second is expired.  A
// missing exp reads as zero and is therefore expired.
func (c Claims) Expired(now time.Time) bool {
	return c.ExpiresAt <= now.Unix()
}

// Expiry returns the expiry instant.
func (c Claims) Expiry() time.Time {
	return time.Unix(c.ExpiresAt, 0)
}

// GetExpirationTime implements the [jwt.Claims] interface for Claims.
func (c Claims) GetExpirationTime() (*jwt.NumericDate, error) {
	if c.ExpiresAt == 0 {
		return nil, nil
	}
	return jwt.NewNumericDate(time.Unix(c.ExpiresAt, 0)), nil
}

// GetIssuedAt implements the [jwt.Claims] interface for Claims.
func (c Claims) GetIssuedAt() (*jwt.NumericDate, error) {
	if c.IssuedAt == 0 {
		return nil, nil
	}
	return jwt.NewNumericDate(time.Unix(c.IssuedAt, 0)), nil
}

// GetNotBefore implements the [jwt.Claims] interface for Claims.
func (c Claims) GetNotBefore() (*jwt.NumericDate, error) {
	return nil, nil
}

// GetIssuer implements the [jwt.Claims] interface for Claims.
func (c Claims) GetIssuer() (string, error) {
	return "", nil
}

// GetSubject implements the [jwt.Claims] interface for Claims.
func (c Claims) GetSubject() (string, error) {
	return c.Subject, nil
}

// GetAudience implements the [jwt.Claims] interface for Claims.
func (c Claims) GetAudience() (jwt.ClaimStrings, error) {
	return nil, nil
}
