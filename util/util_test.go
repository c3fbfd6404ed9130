package util

import (
	"testing"

	ma "github.com/multiformats/go-multiaddr"
	"github.com/stretchr/testify/require"
)

func TestTCPAddrFromMultiAddr(t *testing.T) {
	addr, err := TCPAddrFromMultiAddr(MustParseAddr("/ip4/127.0.0.1/tcp/5002"))
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:5002", addr)

	addr, err = TCPAddrFromMultiAddr(MustParseAddr("/ip6/::1/tcp/5002"))
	require.NoError(t, err)
	require.Equal(t, "[::1]:5002", addr)

	_, err = TCPAddrFromMultiAddr(nil)
	require.Error(t, err)

	udp, err := ma.NewMultiaddr("/ip4/127.0.0.1/udp/5002")
	require.NoError(t, err)
	_, err = TCPAddrFromMultiAddr(udp)
	require.Error(t, err)
}

func TestMustParseAddr(t *testing.T) {
	require.Panics(t, func() { MustParseAddr("not-a-multiaddr") })
}
