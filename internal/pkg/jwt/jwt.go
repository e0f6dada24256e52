package jwt

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/jwtauth/v5"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

const (
	TokenTypeAccess = "access"
	TokenTypeSSE    = "sse"

	sseTokenTTL = 5 * time.Minute
)

var ErrInvalidTokenType = errors.New("token type is not accepted here")

type rawTokenKey struct{}

// Service verifies access tokens issued by the upstream identity service. It only
// issues the short-lived tokens used to open SSE streams.
type Service interface {
	GenerateSSEToken(userID string) (token string, expiresIn int, err error)
	ValidateSSEToken(tokenString string) (userID string, err error)
	JWTAuth() *jwtauth.JWTAuth
}

type JWTService struct {
	tokenAuth *jwtauth.JWTAuth
}

func NewJWTService(secretKey string) Service {
	return &JWTService{
		tokenAuth: jwtauth.New("HS256", []byte(secretKey), nil, jwt.WithAcceptableSkew(30*time.Second)),
	}
}

func (j *JWTService) JWTAuth() *jwtauth.JWTAuth {
	return j.tokenAuth
}

// GenerateSSEToken generates a short-lived token for SSE connections
func (j *JWTService) GenerateSSEToken(userID string) (token string, expiresIn int, err error) {
	expiresAt := time.Now().Add(sseTokenTTL).Unix()

	_, tokenString, err := j.tokenAuth.Encode(map[string]interface{}{
		"user_id": userID,
		"type":    TokenTypeSSE,
		"exp":     expiresAt,
	})
	if err != nil {
		return "", 0, err
	}

	return tokenString, int(sseTokenTTL.Seconds()), nil
}

// ValidateSSEToken validates an SSE token and returns the user ID
func (j *JWTService) ValidateSSEToken(tokenString string) (userID string, err error) {
	token, err := jwtauth.VerifyToken(j.tokenAuth, tokenString)
	if err != nil {
		return "", err
	}

	tokenType, ok := token.Get("type")
	if !ok || tokenType != TokenTypeSSE {
		return "", ErrInvalidTokenType
	}

	userIDVal, ok := token.Get("user_id")
	if !ok {
		return "", jwt.ErrInvalidJWT()
	}
	userID, ok = userIDVal.(string)
	if !ok || userID == "" {
		return "", jwt.ErrInvalidJWT()
	}

	return userID, nil
}

// AcceptsAccess reports whether claims belong to a token usable for API calls. Tokens
// without a type claim are accepted; refresh and SSE tokens are not.
func AcceptsAccess(claims map[string]interface{}) bool {
	tokenType, present := claims["type"]
	if !present {
		return true
	}
	s, ok := tokenType.(string)
	return ok && s == TokenTypeAccess
}

// UserIDFromClaims extracts the user_id claim.
func UserIDFromClaims(claims map[string]interface{}) string {
	if userID, ok := claims["user_id"].(string); ok {
		return userID
	}
	return ""
}

// TokenFromRequest returns the raw bearer token the request was verified with.
func TokenFromRequest(r *http.Request) string {
	if token := jwtauth.TokenFromHeader(r); token != "" {
		return token
	}
	return jwtauth.TokenFromCookie(r)
}

// WithRawToken stores the caller's raw token so it can be forwarded upstream.
func WithRawToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, rawTokenKey{}, token)
}

// RawTokenFromContext returns the token stored by WithRawToken.
func RawTokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(rawTokenKey{}).(string)
	return token
}
