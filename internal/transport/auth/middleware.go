package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strconv"
	"strings"
)

type ctxKey string

const (
	terminalIDKey   ctxKey = "terminalID"
	operatorNameKey ctxKey = "operatorName"
)

// TokenMiddleware gates the terminal API with the shared token the POS
// shell is provisioned with. Tokens are accepted from the Authorization
// header or, for websocket connections, the token query parameter. The
// operator identity and terminal id travel in headers so they can be
// stamped on receipts and export events.
func TokenMiddleware(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			presented := bearerToken(r)
			if presented == "" {
				presented = r.URL.Query().Get("token")
			}

			if token == "" || subtle.ConstantTimeCompare([]byte(presented), []byte(token)) != 1 {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			terminalID := int64(1)
			if raw := r.Header.Get("X-Terminal-ID"); raw != "" {
				if parsed, err := strconv.ParseInt(raw, 10, 64); err == nil && parsed > 0 {
					terminalID = parsed
				}
			}

			ctx := context.WithValue(r.Context(), terminalIDKey, terminalID)
			ctx = context.WithValue(ctx, operatorNameKey, r.Header.Get("X-Operator-Name"))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" || !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}

// GetTerminalID returns the terminal id stamped by the middleware.
func GetTerminalID(ctx context.Context) (int64, error) {
	terminalID, ok := ctx.Value(terminalIDKey).(int64)
	if !ok {
		return 0, errors.New("terminalID not found in context")
	}
	return terminalID, nil
}

// GetOperatorName returns the operator name header, empty when absent.
func GetOperatorName(ctx context.Context) string {
	name, _ := ctx.Value(operatorNameKey).(string)
	return name
}
