package httpapi

import (
	"net"
	"net/http"
	"net/netip"
	"strings"

	"github.com/rs/zerolog"
)

// telegramSourceRanges are the published Telegram webhook egress subnets.
var telegramSourceRanges = []netip.Prefix{
	netip.MustParsePrefix("149.154.160.0/20"),
	netip.MustParsePrefix("91.108.4.0/22"),
}

// TelegramSourceOnly rejects requests whose source address is outside the
// Telegram webhook subnets with 400 "Bad source IP". The source address is
// the first X-Forwarded-For entry when present, otherwise the peer address.
func TelegramSourceOnly(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			addr, ok := sourceAddr(r)
			if !ok || !isTelegramSource(addr) {
				logger.Warn().Str("source", addr.String()).Str("remote_addr", r.RemoteAddr).Msg("Rejecting webhook from non-Telegram source")
				http.Error(w, "Bad source IP", http.StatusBadRequest)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func sourceAddr(r *http.Request) (netip.Addr, bool) {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first := strings.TrimSpace(strings.Split(fwd, ",")[0])
		addr, err := netip.ParseAddr(first)
		return addr, err == nil
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	addr, err := netip.ParseAddr(host)
	return addr, err == nil
}

func isTelegramSource(addr netip.Addr) bool {
	for _, p := range telegramSourceRanges {
		if p.Contains(addr.Unmap()) {
			return true
		}
	}
	return false
}
