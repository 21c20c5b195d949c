package quota

import (
	"net/http/httptest"
	"testing"
)

func TestFingerprintPrefersForwardedAddress(t *testing.T) {
	t.Parallel()

	direct := httptest.NewRequest("POST", "/api/chat", nil)
	direct.Header.Set("X-Forwarded-For", "203.0.113.7")

	chained := httptest.NewRequest("POST", "/api/chat", nil)
	chained.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1, 10.0.0.2")
	chained.Header.Set("User-Agent", "different-agent")

	if Fingerprint(direct) != Fingerprint(chained) {
		t.Fatalf("only the first hop of the proxy chain should count")
	}

	other := httptest.NewRequest("POST", "/api/chat", nil)
	other.Header.Set("X-Forwarded-For", "198.51.100.9")
	if Fingerprint(direct) == Fingerprint(other) {
		t.Fatalf("different client addresses must not collide")
	}
}

func TestFingerprintHeaderPrecedence(t *testing.T) {
	t.Parallel()

	r := httptest.NewRequest("POST", "/api/chat", nil)
	r.Header.Set("X-Real-IP", "203.0.113.7")
	r.Header.Set("CF-Connecting-IP", "198.51.100.9")

	viaRealIP := httptest.NewRequest("POST", "/api/chat", nil)
	viaRealIP.Header.Set("X-Real-IP", "203.0.113.7")

	if Fingerprint(r) != Fingerprint(viaRealIP) {
		t.Fatalf("X-Real-IP should win over CF-Connecting-IP")
	}
}

func TestFingerprintFallsBackToUserAgent(t *testing.T) {
	t.Parallel()

	a := httptest.NewRequest("POST", "/api/chat", nil)
	a.Header.Set("User-Agent", "Mozilla/5.0")
	a.Header.Set("Accept-Language", "es-ES")

	same := httptest.NewRequest("POST", "/api/chat", nil)
	same.Header.Set("User-Agent", "Mozilla/5.0")
	same.Header.Set("Accept-Language", "es-ES")

	different := httptest.NewRequest("POST", "/api/chat", nil)
	different.Header.Set("User-Agent", "Mozilla/5.0")
	different.Header.Set("Accept-Language", "de-DE")

	if Fingerprint(a) != Fingerprint(same) {
		t.Fatalf("identical browser signals must bucket together")
	}
	if Fingerprint(a) == Fingerprint(different) {
		t.Fatalf("different browser signals must not collide")
	}
}

func TestFingerprintAnonymous(t *testing.T) {
	t.Parallel()

	r := httptest.NewRequest("POST", "/api/chat", nil)
	if Fingerprint(r) != AnonymousFingerprint {
		t.Fatalf("no signal at all must use the anonymous bucket, got %q", Fingerprint(r))
	}
}

func TestFingerprintNeverExposesRawAddress(t *testing.T) {
	t.Parallel()

	r := httptest.NewRequest("POST", "/api/chat", nil)
	r.Header.Set("X-Forwarded-For", "203.0.113.7")

	fp := Fingerprint(r)
	if len(fp) != 64 {
		t.Fatalf("expected a hex digest, got %q", fp)
	}
}
