package middleware

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func secRequest(t *testing.T, r *gin.Engine, mutate func(*http.Request)) http.Header {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/routines", nil)
	if mutate != nil {
		mutate(req)
	}
	r.ServeHTTP(w, req)
	return w.Header()
}

func TestSecurityHeaders_BaselineOnly(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Header("X-Request-ID", "req-777")
		c.Next()
	})
	r.Use(SecurityHeaders(SecurityOptions{}))
	r.GET("/api/v1/routines", func(c *gin.Context) { c.String(http.StatusOK, "[]") })

	h := secRequest(t, r, nil)

	if h.Get("X-Content-Type-Options") != "nosniff" ||
		h.Get("X-Frame-Options") != "DENY" ||
		h.Get("Referrer-Policy") != "no-referrer" {
		t.Fatalf("baseline headers missing: %#v", h)
	}
	// None of the opt-in headers without their flags.
	for _, hdr := range []string{"Permissions-Policy", "Cache-Control", "Strict-Transport-Security"} {
		if h.Get(hdr) != "" {
			t.Fatalf("%s set without opting in: %q", hdr, h.Get(hdr))
		}
	}
	// The request id is exposed for browser log correlation.
	if h.Get("Access-Control-Expose-Headers") != "X-Request-ID" {
		t.Fatalf("expose header = %q", h.Get("Access-Control-Expose-Headers"))
	}
}

func TestSecurityHeaders_ExposeHeaderMerging(t *testing.T) {
	gin.SetMode(gin.TestMode)

	build := func(preset string) *gin.Engine {
		r := gin.New()
		r.Use(func(c *gin.Context) {
			c.Header("X-Request-ID", "req-1")
			if preset != "" {
				c.Header("Access-Control-Expose-Headers", preset)
			}
			c.Next()
		})
		r.Use(SecurityHeaders(SecurityOptions{}))
		r.GET("/api/v1/routines", func(c *gin.Context) { c.Status(http.StatusOK) })
		return r
	}

	// Appends to an existing list.
	h := secRequest(t, build("ETag"), nil)
	if got := h.Get("Access-Control-Expose-Headers"); got != "ETag, X-Request-ID" {
		t.Fatalf("append: got %q", got)
	}

	// Never duplicates an entry.
	h = secRequest(t, build("X-Request-ID, ETag"), nil)
	if got := h.Get("Access-Control-Expose-Headers"); got != "X-Request-ID, ETag" {
		t.Fatalf("dedupe: got %q", got)
	}
}

func TestSecurityHeaders_OptInsOverTLS(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(SecurityHeaders(SecurityOptions{
		EnableHSTS:   true,
		HSTSMaxAge:   24 * time.Hour,
		NoStore:      true,
		EnablePolicy: true,
	}))
	r.GET("/api/v1/routines", func(c *gin.Context) { c.String(http.StatusOK, "[]") })

	h := secRequest(t, r, func(req *http.Request) { req.TLS = &tls.ConnectionState{} })

	if h.Get("Permissions-Policy") == "" || h.Get("X-Permitted-Cross-Domain-Policies") != "none" {
		t.Fatalf("policy headers missing: %#v", h)
	}
	if h.Get("Cache-Control") != "no-store" || h.Get("Pragma") != "no-cache" || h.Get("Expires") != "0" {
		t.Fatalf("cache suppression missing: %#v", h)
	}
	if got := h.Get("Strict-Transport-Security"); got != "max-age=86400; includeSubDomains; preload" {
		t.Fatalf("HSTS = %q", got)
	}
}

func TestSecurityHeaders_HSTSRequiresHTTPS(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(SecurityHeaders(SecurityOptions{EnableHSTS: true, HSTSMaxAge: time.Hour}))
	r.GET("/api/v1/routines", func(c *gin.Context) { c.Status(http.StatusOK) })

	// Plain HTTP never gets HSTS, even when enabled.
	h := secRequest(t, r, nil)
	if h.Get("Strict-Transport-Security") != "" {
		t.Fatalf("HSTS leaked onto plain HTTP")
	}

	// Proxy-terminated TLS does.
	h = secRequest(t, r, func(req *http.Request) { req.Header.Set("X-Forwarded-Proto", "https") })
	if got := h.Get("Strict-Transport-Security"); !strings.HasPrefix(got, "max-age=3600") {
		t.Fatalf("HSTS = %q, want max-age=3600 prefix", got)
	}
}

func Test_isHTTPS(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if isHTTPS(req) {
		t.Fatalf("plain HTTP reported as https")
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.TLS = &tls.ConnectionState{}
	if !isHTTPS(req) {
		t.Fatalf("TLS request not recognized")
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-Proto", "HTTPS")
	if !isHTTPS(req) {
		t.Fatalf("forwarded proto not recognized case-insensitively")
	}
}
