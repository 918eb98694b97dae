package middleware

import (
	"net"
	"net/netip"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/grabpic/grabpic-api/pkg/constants"
)

// ClientIdentity is the rate limit identity of the caller: the host part of the connection's
// remote address. Forwarded headers are never read here; EdgeAddress decides whether a
// trusted proxy may rewrite the remote address first.
func ClientIdentity(c *gin.Context) string {
	if ip := c.RemoteIP(); ip != "" {
		return ip
	}
	return "unknown"
}

// EdgeAddress rewrites Request.RemoteAddr from X-Forwarded-For when, and only when, the
// immediate peer is one of the trusted proxies. The right-most forwarded address that is not
// itself a trusted proxy becomes the client. With no trusted proxies the header is ignored.
func EdgeAddress(trusted []netip.Prefix) gin.HandlerFunc {
	return func(c *gin.Context) {
		if len(trusted) == 0 {
			c.Next()
			return
		}

		peer, port, ok := splitRemoteAddr(c.Request.RemoteAddr)
		if !ok || !isTrusted(peer, trusted) {
			c.Next()
			return
		}

		if client, found := rightmostUntrusted(c.Request.Header.Values(constants.HeaderForwardedFor), trusted); found {
			c.Request.RemoteAddr = net.JoinHostPort(client.String(), port)
		}
		c.Next()
	}
}

func splitRemoteAddr(remoteAddr string) (netip.Addr, string, bool) {
	host, port, err := net.SplitHostPort(strings.TrimSpace(remoteAddr))
	if err != nil {
		return netip.Addr{}, "", false
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return netip.Addr{}, "", false
	}
	return addr.Unmap(), port, true
}

func isTrusted(addr netip.Addr, trusted []netip.Prefix) bool {
	for _, p := range trusted {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// rightmostUntrusted walks the forwarded chain from the nearest hop outwards.
// An unparsable hop ends the walk since nothing beyond it can be trusted.
func rightmostUntrusted(values []string, trusted []netip.Prefix) (netip.Addr, bool) {
	var hops []string
	for _, v := range values {
		hops = append(hops, strings.Split(v, ",")...)
	}
	for i := len(hops) - 1; i >= 0; i-- {
		addr, err := netip.ParseAddr(strings.TrimSpace(hops[i]))
		if err != nil {
			return netip.Addr{}, false
		}
		addr = addr.Unmap()
		if !isTrusted(addr, trusted) {
			return addr, true
		}
	}
	return netip.Addr{}, false
}
