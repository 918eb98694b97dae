package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"net/netip"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/grabpic/grabpic-api/internal/interfaces/http/middleware"
)

func identityOf(t *testing.T, trusted []netip.Prefix, remoteAddr string, forwarded ...string) string {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(middleware.EdgeAddress(trusted))

	var got string
	router.GET("/", func(c *gin.Context) {
		got = middleware.ClientIdentity(c)
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = remoteAddr
	for _, f := range forwarded {
		req.Header.Add("X-Forwarded-For", f)
	}
	router.ServeHTTP(httptest.NewRecorder(), req)
	return got
}

func TestClientIdentity(t *testing.T) {
	proxies := []netip.Prefix{netip.MustParsePrefix("10.0.0.0/8"), netip.MustParsePrefix("fd00::/8")}

	tests := []struct {
		name       string
		trusted    []netip.Prefix
		remoteAddr string
		forwarded  []string
		want       string
	}{
		{"should use the peer address", nil, "203.0.113.5:40000", nil, "203.0.113.5"},
		{"should ignore forwarded header without trusted proxies", nil, "203.0.113.5:40000", []string{"198.51.100.1"}, "203.0.113.5"},
		{"should ignore forwarded header from an untrusted peer", proxies, "203.0.113.5:40000", []string{"198.51.100.1"}, "203.0.113.5"},
		{"should take the forwarded client from a trusted peer", proxies, "10.1.2.3:5000", []string{"198.51.100.1"}, "198.51.100.1"},
		{"should take the right-most untrusted hop", proxies, "10.1.2.3:5000", []string{"192.0.2.66, 198.51.100.1, 10.9.9.9"}, "198.51.100.1"},
		{"should join repeated headers", proxies, "10.1.2.3:5000", []string{"192.0.2.66", "198.51.100.1"}, "198.51.100.1"},
		{"should stop at a malformed hop", proxies, "10.1.2.3:5000", []string{"198.51.100.1, garbage"}, "10.1.2.3"},
		{"should keep the peer when every hop is trusted", proxies, "10.1.2.3:5000", []string{"10.4.4.4"}, "10.1.2.3"},
		{"should handle ipv6 peers", proxies, "[fd00::1]:443", []string{"2001:db8::7"}, "2001:db8::7"},
		{"should fall back for an unparsable remote address", nil, "not-an-address", nil, "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, identityOf(t, tt.trusted, tt.remoteAddr, tt.forwarded...))
		})
	}
}
