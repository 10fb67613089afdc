package middleware

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/mirror/models"
)

// callerContextKey holds a short, non-secret identity for an authenticated
// key. RateLimit buckets by it.
const callerContextKey = "caller"

type apiKey struct {
	digest [sha256.Size]byte
	caller string
}

// Auth rejects requests without one of apiKeys, given either as
//
//	X-API-Key: <key>
//	Authorization: Bearer <key>
//
// Keys are held as SHA-256 digests and compared in constant time. An empty
// apiKeys list admits everyone.
func Auth(apiKeys []string) gin.HandlerFunc {
	keys := make([]apiKey, 0, len(apiKeys))
	for _, k := range apiKeys {
		if k == "" {
			continue
		}
		d := sha256.Sum256([]byte(k))
		keys = append(keys, apiKey{digest: d, caller: "key:" + hex.EncodeToString(d[:4])})
	}
	if len(keys) == 0 {
		return func(c *gin.Context) { c.Next() }
	}

	return func(c *gin.Context) {
		presented := requestAPIKey(c.Request)
		if presented == "" {
			abort(c, http.StatusUnauthorized, models.ErrCodeUnauthorized,
				"missing API key: provide X-API-Key header or Authorization: Bearer <key>")
			return
		}

		d := sha256.Sum256([]byte(presented))
		caller := ""
		for _, k := range keys {
			// No early exit, so timing does not reveal which key matched.
			if subtle.ConstantTimeCompare(d[:], k.digest[:]) == 1 {
				caller = k.caller
			}
		}
		if caller == "" {
			abort(c, http.StatusUnauthorized, models.ErrCodeUnauthorized, "invalid API key")
			return
		}

		c.Set(callerContextKey, caller)
		c.Next()
	}
}

// abort stops the chain with an API envelope whose message is prefixed by
// the error code.
func abort(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, models.APIResponse{
		Code:    status,
		Message: code + ": " + message,
	})
}

func requestAPIKey(r *http.Request) string {
	if key := strings.TrimSpace(r.Header.Get("X-API-Key")); key != "" {
		return key
	}
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if ok && strings.EqualFold(scheme, "Bearer") {
		return strings.TrimSpace(token)
	}
	return ""
}
