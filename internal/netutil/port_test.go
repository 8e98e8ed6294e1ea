package netutil

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTCPAddrAvailable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	assert.False(t, TCPAddrAvailable(addr), "expected %s unavailable", addr)

	require.NoError(t, ln.Close())
	assert.True(t, TCPAddrAvailable(addr))
}
