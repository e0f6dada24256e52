package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/cmlabs-hris/campaign-attendance-go/internal/handler/http/response"
	"github.com/go-chi/jwtauth/v5"
)

// RequireRole admits tokens whose role claim is one of roles. An empty list admits
// every authenticated caller.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		if role = strings.TrimSpace(role); role != "" {
			allowed[role] = struct{}{}
		}
	}

	return func(next http.Handler) http.Handler {
		if len(allowed) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, claims, err := jwtauth.FromContext(r.Context())
			if err != nil {
				response.Unauthorized(w, err.Error())
				return
			}

			role, ok := claims["role"].(string)
			if !ok {
				response.Forbidden(w, "Insufficient permissions: token has no role")
				return
			}

			if _, ok := allowed[role]; !ok {
				response.Forbidden(w, fmt.Sprintf("Insufficient permissions: role '%s' cannot view attendance reports", role))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
