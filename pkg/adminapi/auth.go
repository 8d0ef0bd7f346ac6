package adminapi

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/qmtool-platform/qmtool-core/pkg/audit"
)

// AuthConfig configures bearer-token caller-id extraction, adapted from
// the teacher's JWTRoleExtractorConfig: the claim inspected and the
// verification key differ, but the parse/verify/fall-back-to-anonymous
// shape is the same.
type AuthConfig struct {
	// UserIDClaim is the JWT claim carrying the numeric caller id.
	// Defaults to "sub".
	UserIDClaim string
	// PublicKeyPath is a PEM-encoded RSA public key used to verify RS256
	// tokens. Empty means tokens are parsed but not cryptographically
	// verified (trusted-proxy mode), matching the teacher's default.
	PublicKeyPath string
}

func (c AuthConfig) claim() string {
	if c.UserIDClaim == "" {
		return "sub"
	}
	return c.UserIDClaim
}

func loadRSAPublicKey(path string) (*rsa.PublicKey, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("adminapi: read JWT public key %q: %w", path, err)
	}
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("adminapi: decode PEM block from %q", path)
	}
	parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("adminapi: parse JWT public key: %w", err)
	}
	key, ok := parsed.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("adminapi: JWT public key is not RSA (got %T)", parsed)
	}
	return key, nil
}

// callerIDMiddleware extracts a bearer token's caller id claim and
// propagates it into the request context via audit.WithCallerID. A
// missing, malformed, or unverifiable token leaves the context's caller
// id at its zero-value default (system/anonymous), matching the
// underlying audit policy's treatment of caller id 0.
func (s *Server) callerIDMiddleware(next http.Handler) http.Handler {
	key, err := loadRSAPublicKey(s.auth.PublicKeyPath)
	if err != nil {
		s.logger.Warn("adminapi: JWT public key unavailable, tokens parsed without verification", "error", err)
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractBearerToken(r)
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}

		claims, err := parseClaims(token, key)
		if err != nil {
			s.logger.Debug("adminapi: JWT parse failed, treating caller as anonymous", "error", err)
			next.ServeHTTP(w, r)
			return
		}

		callerID, ok := callerIDFromClaims(claims, s.auth.claim())
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		ctx := audit.WithCallerID(r.Context(), callerID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func extractBearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func parseClaims(tokenString string, publicKey *rsa.PublicKey) (jwt.MapClaims, error) {
	var token *jwt.Token
	var err error

	if publicKey != nil {
		token, err = jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return publicKey, nil
		})
	} else {
		parser := jwt.NewParser()
		token, _, err = parser.ParseUnverified(tokenString, jwt.MapClaims{})
	}
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("unexpected claims type")
	}
	return claims, nil
}

func callerIDFromClaims(claims jwt.MapClaims, claimName string) (int64, bool) {
	raw, ok := claims[claimName]
	if !ok {
		return 0, false
	}
	switch v := raw.(type) {
	case float64:
		return int64(v), true
	case string:
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, false
		}
		return id, true
	default:
		return 0, false
	}
}
