package middleware

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-resty/resty/v2"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// ErrMissingToken is returned when no bearer token is present.
var ErrMissingToken = errors.New("missing token")

// VerifierConfig locates the key set and the expected claims.
type VerifierConfig struct {
	JWKSURL  string
	Issuer   string
	Audience string
	CacheTTL time.Duration
}

// Auth0Config derives the verifier settings for an Auth0 tenant domain.
func Auth0Config(domain, audience string) VerifierConfig {
	domain = strings.TrimSuffix(strings.TrimPrefix(domain, "https://"), "/")
	return VerifierConfig{
		JWKSURL:  fmt.Sprintf("https://%s/.well-known/jwks.json", domain),
		Issuer:   fmt.Sprintf("https://%s/", domain),
		Audience: audience,
	}
}

// JWKSVerifier validates RS256 bearer tokens against a remote key set.
type JWKSVerifier struct {
	cfg        VerifierConfig
	httpClient *resty.Client

	mu      sync.RWMutex
	keys    map[string]*rsa.PublicKey
	fetched time.Time
}

// NewJWKSVerifier builds a verifier. Keys are fetched lazily and cached.
func NewJWKSVerifier(cfg VerifierConfig) *JWKSVerifier {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 15 * time.Minute
	}
	return &JWKSVerifier{
		cfg:        cfg,
		httpClient: resty.New().SetTimeout(10 * time.Second),
		keys:       map[string]*rsa.PublicKey{},
	}
}

// Verify parses the token and checks signature, issuer, audience and expiry.
func (v *JWKSVerifier) Verify(ctx context.Context, token string) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("token missing kid header")
		}
		return v.key(ctx, kid)
	},
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithIssuer(v.cfg.Issuer),
		jwt.WithAudience(v.cfg.Audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, err
	}
	return claims, nil
}

func (v *JWKSVerifier) key(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	v.mu.RLock()
	key, ok := v.keys[kid]
	expired := time.Since(v.fetched) > v.cfg.CacheTTL
	v.mu.RUnlock()

	if ok && !expired {
		return key, nil
	}

	keys, err := v.refresh(ctx)
	if err != nil {
		if ok {
			return key, nil
		}
		return nil, fmt.Errorf("jwks unavailable: %w", err)
	}

	key, ok = keys[kid]
	if !ok {
		return nil, fmt.Errorf("unknown kid %s", kid)
	}
	return key, nil
}

type jwks struct {
	Keys []struct {
		Kty string `json:"kty"`
		Kid string `json:"kid"`
		N   string `json:"n"`
		E   string `json:"e"`
	} `json:"keys"`
}

func (v *JWKSVerifier) refresh(ctx context.Context) (map[string]*rsa.PublicKey, error) {
	var set jwks
	resp, err := v.httpClient.R().SetContext(ctx).SetResult(&set).Get(v.cfg.JWKSURL)
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("jwks fetch returned status %d", resp.StatusCode())
	}

	keys := make(map[string]*rsa.PublicKey, len(set.Keys))
	for _, k := range set.Keys {
		if k.Kty != "RSA" {
			continue
		}
		n, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(k.N, "="))
		if err != nil {
			continue
		}
		e, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(k.E, "="))
		if err != nil {
			continue
		}
		exp := 0
		for _, b := range e {
			exp = exp<<8 + int(b)
		}
		keys[k.Kid] = &rsa.PublicKey{N: new(big.Int).SetBytes(n), E: exp}
	}

	v.mu.Lock()
	v.keys = keys
	v.fetched = time.Now()
	v.mu.Unlock()
	return keys, nil
}

// TokenVerifier checks a raw bearer token.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (jwt.MapClaims, error)
}

// RequireJWT rejects requests without a valid bearer token. Verified claims
// are stored under the "claims" key.
func RequireJWT(verifier TokenVerifier, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": ErrMissingToken.Error()})
			return
		}

		claims, err := verifier.Verify(c.Request.Context(), token)
		if err != nil {
			logger.Debug("token rejected", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set("claims", claims)
		c.Next()
	}
}

func bearerToken(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}
