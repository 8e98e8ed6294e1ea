package netutil

import (
	"net"
)

// TCPAddrAvailable reports whether addr can be bound right now.
func TCPAddrAvailable(addr string) bool {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return false
	}
	_ = ln.Close()
	return true
}
