// AngelaMos | 2026
// jwt.go

package auth

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/lestrrat-go/jwx/v3/jwt"

	"github.com/nthalt/user-api/internal/config"
	"github.com/nthalt/user-api/internal/core"
	"github.com/nthalt/user-api/internal/middleware"
)

const (
	claimType       = "type"
	tokenTypeAccess = "access"
)

// JWTManager signs and verifies ES256 access tokens. The subject is the
// only identity claim; role and status are looked up per request.
type JWTManager struct {
	signer   jwk.Key
	verifier jwk.Key
	keySet   jwk.Set
	kid      string
	cfg      config.JWTConfig
	now      func() time.Time
}

func NewJWTManager(cfg config.JWTConfig) (*JWTManager, error) {
	signer, err := loadSigningKey(cfg.PrivateKeyPath)
	if err != nil {
		return nil, err
	}

	kid, ok := signer.KeyID()
	if !ok || kid == "" {
		kid = uuid.NewString()[:8]
		if err := signer.Set(jwk.KeyIDKey, kid); err != nil {
			return nil, fmt.Errorf("set key id: %w", err)
		}
	}

	verifier, err := signer.PublicKey()
	if err != nil {
		return nil, fmt.Errorf("derive public key: %w", err)
	}
	if err := verifier.Set(jwk.KeyUsageKey, "sig"); err != nil {
		return nil, fmt.Errorf("set key usage: %w", err)
	}

	set := jwk.NewSet()
	if err := set.AddKey(verifier); err != nil {
		return nil, fmt.Errorf("build jwks: %w", err)
	}

	return &JWTManager{
		signer:   signer,
		verifier: verifier,
		keySet:   set,
		kid:      kid,
		cfg:      cfg,
		now:      time.Now,
	}, nil
}

func loadSigningKey(path string) (jwk.Key, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read private key: %w", err)
	}

	key, err := jwk.ParseKey(raw, jwk.WithPEM(true))
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	if err := key.Set(jwk.AlgorithmKey, jwa.ES256()); err != nil {
		return nil, fmt.Errorf("set algorithm: %w", err)
	}
	return key, nil
}

// GenerateKeyPair writes a new P-256 key pair as PEM files. The private
// half is readable by the owner only.
func GenerateKeyPair(privateKeyPath, publicKeyPath string) error {
	raw, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return fmt.Errorf("generate key: %w", err)
	}

	private, err := jwk.Import(raw)
	if err != nil {
		return fmt.Errorf("import private key: %w", err)
	}
	if err := private.Set(jwk.AlgorithmKey, jwa.ES256()); err != nil {
		return fmt.Errorf("set algorithm: %w", err)
	}

	public, err := private.PublicKey()
	if err != nil {
		return fmt.Errorf("derive public key: %w", err)
	}

	if err := writePEM(privateKeyPath, private, 0o600); err != nil {
		return err
	}
	return writePEM(publicKeyPath, public, 0o644)
}

func writePEM(path string, key jwk.Key, perm os.FileMode) error {
	encoded, err := jwk.Pem(key)
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	//nolint:gosec // G306: perm is chosen per key half by the caller
	if err := os.WriteFile(path, encoded, perm); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

type IssuedToken struct {
	Token     string
	ExpiresAt time.Time
}

func (m *JWTManager) CreateAccessToken(userID int64) (*IssuedToken, error) {
	issuedAt := m.now()
	expiresAt := issuedAt.Add(m.cfg.AccessTokenExpire)

	token, err := jwt.NewBuilder().
		JwtID(uuid.NewString()).
		Issuer(m.cfg.Issuer).
		Audience([]string{m.cfg.Audience}).
		Subject(strconv.FormatInt(userID, 10)).
		IssuedAt(issuedAt).
		NotBefore(issuedAt).
		Expiration(expiresAt).
		Claim(claimType, tokenTypeAccess).
		Build()
	if err != nil {
		return nil, fmt.Errorf("build token: %w", err)
	}

	signed, err := jwt.Sign(token, jwt.WithKey(jwa.ES256(), m.signer))
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}

	return &IssuedToken{Token: string(signed), ExpiresAt: expiresAt}, nil
}

// VerifyAccessToken checks signature, issuer, audience and lifetime.
// Every failure maps onto ErrTokenExpired or ErrTokenInvalid.
func (m *JWTManager) VerifyAccessToken(
	_ context.Context,
	raw string,
) (*middleware.AccessTokenClaims, error) {
	token, err := jwt.Parse(
		[]byte(raw),
		jwt.WithKey(jwa.ES256(), m.verifier),
		jwt.WithValidate(true),
		jwt.WithClock(jwt.ClockFunc(m.now)),
		jwt.WithIssuer(m.cfg.Issuer),
		jwt.WithAudience(m.cfg.Audience),
	)
	switch {
	case errors.Is(err, jwt.TokenExpiredError()):
		return nil, fmt.Errorf("verify token: %w", core.ErrTokenExpired)
	case err != nil:
		return nil, fmt.Errorf("verify token: %w", core.ErrTokenInvalid)
	}

	claims, err := accessClaims(token)
	if err != nil {
		return nil, fmt.Errorf("verify token: %s: %w", err, core.ErrTokenInvalid)
	}
	return claims, nil
}

func accessClaims(token jwt.Token) (*middleware.AccessTokenClaims, error) {
	var typ string
	if err := token.Get(claimType, &typ); err != nil || typ != tokenTypeAccess {
		return nil, errors.New("wrong token type")
	}

	sub, _ := token.Subject()
	userID, err := strconv.ParseInt(sub, 10, 64)
	if err != nil || userID < 1 {
		return nil, errors.New("malformed subject")
	}

	claims := &middleware.AccessTokenClaims{UserID: userID}
	claims.TokenID, _ = token.JwtID()
	claims.IssuedAt, _ = token.IssuedAt()
	claims.ExpiresAt, _ = token.Expiration()
	return claims, nil
}

func (m *JWTManager) AccessTokenTTL() time.Duration {
	return m.cfg.AccessTokenExpire
}

func (m *JWTManager) KeyID() string {
	return m.kid
}

// JWKSHandler publishes the verification key so other services can
// check tokens without sharing secrets.
func (m *JWTManager) JWKSHandler() http.HandlerFunc {
	body, err := json.Marshal(m.keySet)

	return func(w http.ResponseWriter, _ *http.Request) {
		if err != nil {
			core.InternalServerError(w, fmt.Errorf("encode jwks: %w", err))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "public, max-age=3600")
		//nolint:errcheck // best-effort response
		_, _ = w.Write(body)
	}
}
