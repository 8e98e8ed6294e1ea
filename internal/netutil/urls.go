package netutil

import (
	"net"
	"strings"
)

// ListenURLs returns the URLs a browser can use to reach a server bound
// to addr. Wildcard hosts expand to loopback plus every up, non-loopback
// interface address, IPv4 first.
func ListenURLs(scheme, addr string) []string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return nil
	}
	if host != "" && host != "0.0.0.0" && host != "::" {
		return []string{scheme + "://" + net.JoinHostPort(host, port) + "/"}
	}
	out := []string{scheme + "://" + net.JoinHostPort("127.0.0.1", port) + "/"}
	for _, ip := range interfaceIPs() {
		out = append(out, scheme+"://"+net.JoinHostPort(ip.String(), port)+"/")
	}
	return out
}

func interfaceIPs() []net.IP {
	ifaces, _ := net.Interfaces()
	var v4, v6 []net.IP
	for _, iface := range ifaces {
		if (iface.Flags&net.FlagUp) == 0 || (iface.Flags&net.FlagLoopback) != 0 {
			continue
		}
		addrs, _ := iface.Addrs()
		for _, addr := range addrs {
			ip := extractIP(addr)
			if !isReachable(ip) {
				continue
			}
			if ip4 := ip.To4(); ip4 != nil {
				v4 = append(v4, ip4)
			} else {
				v6 = append(v6, ip)
			}
		}
	}
	return append(v4, v6...)
}

func extractIP(addr net.Addr) net.IP {
	switch v := addr.(type) {
	case *net.IPNet:
		return v.IP
	case *net.IPAddr:
		return v.IP
	default:
		s := addr.String()
		if i := strings.IndexByte(s, '/'); i >= 0 {
			s = s[:i]
		}
		return net.ParseIP(s)
	}
}

func isReachable(ip net.IP) bool {
	if ip == nil {
		return false
	}
	if ip.IsLoopback() || ip.IsLinkLocalMulticast() || ip.IsLinkLocalUnicast() || ip.IsMulticast() || ip.IsUnspecified() {
		return false
	}
	return ip.IsGlobalUnicast()
}
