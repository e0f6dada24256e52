package middleware

import (
	"net/http"

	"github.com/cmlabs-hris/campaign-attendance-go/internal/handler/http/response"
	"github.com/cmlabs-hris/campaign-attendance-go/internal/pkg/jwt"
	"github.com/go-chi/jwtauth/v5"
)

// AuthRequired rejects requests without a verified access token and keeps the raw
// token in the context so it can be forwarded to the attendance source.
func AuthRequired(ja *jwtauth.JWTAuth) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		hfn := func(w http.ResponseWriter, r *http.Request) {
			token, claims, err := jwtauth.FromContext(r.Context())

			if err != nil {
				response.Unauthorized(w, err.Error())
				return
			}

			if token == nil {
				response.Unauthorized(w, "Missing token")
				return
			}

			if !jwt.AcceptsAccess(claims) {
				response.HandleError(w, jwt.ErrInvalidTokenType)
				return
			}

			if jwt.UserIDFromClaims(claims) == "" {
				response.Unauthorized(w, "Token has no user_id claim")
				return
			}

			ctx := jwt.WithRawToken(r.Context(), jwt.TokenFromRequest(r))
			next.ServeHTTP(w, r.WithContext(ctx))
		}
		return http.HandlerFunc(hfn)
	}
}
