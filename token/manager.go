package token

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// SigningMethod selects the JWS algorithm used by a [Manager].
type SigningMethod string

const (
	// MethodEd25519 signs and verifies with EdDSA over Ed25519.
	MethodEd25519 SigningMethod = "ed25519"
	// MethodHS256 signs and verifies with HMAC-SHA256.
	MethodHS256 SigningMethod = "hs256"
)

// Config defines the key material of a [Manager].
//
// For HS256, PrivateKey is the shared secret and is used for both signing and
// verification. For Ed25519, PrivateKey is needed only to sign; PublicKey or
// VerifyKeys are needed to verify.
type Config struct {
	SigningMethod SigningMethod
	PrivateKey    []byte
	PublicKey     []byte
	KeyID         string
	VerifyKeys    map[string][]byte
}

// Manager signs fixture tokens and verifies token signatures.
//
// Verification skips time-based claim validation. Expiry is
// decided by [IsExpired] so that every code path uses the same boundary.
type Manager struct {
	config Config
}

// Sentinel errors returned while resolving a verification key.
var (
	errMissingKID = errors.New("token has no kid header")
	errUnknownKID = errors.New("token kid is not trusted")
)

// NewManager validates cfg and returns a Manager.
func NewManager(cfg Config) (*Manager, error) {
	cfg.KeyID = strings.TrimSpace(cfg.KeyID)

	var err error
	switch cfg.SigningMethod {
	case MethodHS256:
		if len(cfg.PrivateKey) == 0 {
			return nil, errors.New("hs256: shared secret is empty")
		}
	case MethodEd25519:
		err = checkEdKeys(&cfg)
	default:
		err = fmt.Errorf("signing method %q is not supported", cfg.SigningMethod)
	}
	if err != nil {
		return nil, err
	}

	if _, ok := cfg.VerifyKeys[cfg.KeyID]; cfg.KeyID != "" && len(cfg.VerifyKeys) > 0 && !ok {
		return nil, fmt.Errorf("kid %q has no verify key", cfg.KeyID)
	}

	return &Manager{config: cfg}, nil
}

// checkEdKeys parses every Ed25519 key in cfg and derives PublicKey from
// PrivateKey when only the latter is set.
func checkEdKeys(cfg *Config) (err error) {
	if len(cfg.PrivateKey) > 0 {
		var priv ed25519.PrivateKey
		if priv, err = parseEdKey[ed25519.PrivateKey](cfg.PrivateKey, ed25519.PrivateKeySize, jwt.ParseEdPrivateKeyFromPEM); err != nil {
			return err
		}

		if len(cfg.PublicKey) == 0 {
			cfg.PublicKey = priv.Public().(ed25519.PublicKey)
		}
	}

	if len(cfg.PublicKey) > 0 {
		if _, err = parseEdPublic(cfg.PublicKey); err != nil {
			return err
		}
	} else if len(cfg.VerifyKeys) == 0 {
		return errors.New("ed25519: no private, public or verify keys")
	}

	for kid, key := range cfg.VerifyKeys {
		if strings.TrimSpace(kid) == "" {
			return errors.New("ed25519: verify key with empty kid")
		}

		if _, err = parseEdPublic(key); err != nil {
			return fmt.Errorf("verify key %q: %w", kid, err)
		}
	}

	return nil
}

// Sign encodes claims into a signed three-segment token.
func (m *Manager) Sign(claims Claims) (string, error) {
	if len(m.config.PrivateKey) == 0 {
		return "", errors.New("signing requires a private key")
	}

	tok := jwt.NewWithClaims(m.method(), claims)
	if m.config.KeyID != "" {
		tok.Header["kid"] = m.config.KeyID
	}

	key, err := m.signKey()
	if err != nil {
		return "", err
	}

	return tok.SignedString(key)
}

// Verify checks the signature of tok and returns its claims.
func (m *Manager) Verify(tok string) (*Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{m.method().Alg()}),
		jwt.WithoutClaimsValidation(),
	)

	claims := &Claims{}
	parsed, err := parser.ParseWithClaims(tok, claims, m.keyFunc)
	if err != nil {
		return nil, err
	}
	if !parsed.Valid {
		return nil, jwt.ErrTokenSignatureInvalid
	}

	return claims, nil
}

// Encode signs claims with m. It exists so tests and tooling read as the
// inverse of [Decode].
func Encode(claims Claims, m *Manager) (string, error) {
	if m == nil {
		return "", errors.New("nil token manager")
	}

	return m.Sign(claims)
}

func (m *Manager) method() jwt.SigningMethod {
	switch m.config.SigningMethod {
	case MethodHS256:
		return jwt.SigningMethodHS256
	default:
		return jwt.SigningMethodEdDSA
	}
}

func (m *Manager) signKey() (any, error) {
	if m.config.SigningMethod == MethodHS256 {
		return m.config.PrivateKey, nil
	}

	return parseEdKey[ed25519.PrivateKey](m.config.PrivateKey, ed25519.PrivateKeySize, jwt.ParseEdPrivateKeyFromPEM)
}

// keyFunc is the [jwt.Keyfunc] of Verify.  With VerifyKeys set the key is
// chosen by the kid header; otherwise a configured KeyID must match it.
func (m *Manager) keyFunc(t *jwt.Token) (any, error) {
	if alg := t.Method.Alg(); alg != m.method().Alg() {
		return nil, fmt.Errorf("signing algorithm %s is not allowed", alg)
	}

	kid, _ := t.Header["kid"].(string)

	raw := m.config.PublicKey
	switch {
	case len(m.config.VerifyKeys) > 0:
		if kid == "" {
			return nil, errMissingKID
		}

		var ok bool
		if raw, ok = m.config.VerifyKeys[kid]; !ok {
			return nil, errUnknownKID
		}
	case m.config.KeyID != "" && kid != m.config.KeyID:
		return nil, errUnknownKID
	case m.config.SigningMethod == MethodHS256:
		raw = m.config.PrivateKey
	}

	if m.config.SigningMethod == MethodHS256 {
		return raw, nil
	}

	return parseEdPublic(raw)
}

func parseEdPublic(key []byte) (ed25519.PublicKey, error) {
	return parseEdKey[ed25519.PublicKey](key, ed25519.PublicKeySize, jwt.ParseEdPublicKeyFromPEM)
}

// parseEdKey accepts key either as raw bytes of the given size or as PEM.
func parseEdKey[K ~[]byte, P any](key []byte, size int, fromPEM func([]byte) (P, error)) (K, error) {
	if len(key) == size {
		return K(key), nil
	}

	parsed, err := fromPEM(key)
	if err != nil {
		return nil, fmt.Errorf("parsing ed25519 key: %w", err)
	}

	k, ok := any(parsed).(K)
	if !ok {
		return nil, fmt.Errorf("ed25519 key has type %T", parsed)
	}

	return k, nil
}
