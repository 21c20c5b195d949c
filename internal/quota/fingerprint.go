package quota

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"
)

// AnonymousFingerprint buckets requests with no identifying signal at all.
const AnonymousFingerprint = "anonymous"

// Fingerprint derives the quota key from the best available client signal:
// the first forwarded client address header present, else a digest of
// user-agent plus accept-language, else a constant anonymous bucket. Only the
// one-way hash ever leaves this function; raw addresses are never persisted.
func Fingerprint(r *http.Request) string {
	for _, header := range []string{"X-Forwarded-For", "X-Real-IP", "CF-Connecting-IP"} {
		value := strings.TrimSpace(r.Header.Get(header))
		if value == "" {
			continue
		}
		// X-Forwarded-For may carry a proxy chain; the client is first.
		if idx := strings.IndexByte(value, ','); idx >= 0 {
			value = strings.TrimSpace(value[:idx])
		}
		if value != "" {
			return hash("addr|" + value)
		}
	}

	userAgent := strings.TrimSpace(r.Header.Get("User-Agent"))
	acceptLanguage := strings.TrimSpace(r.Header.Get("Accept-Language"))
	if userAgent != "" || acceptLanguage != "" {
		return hash("ua|" + userAgent + "|" + acceptLanguage)
	}

	return AnonymousFingerprint
}

func hash(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}
