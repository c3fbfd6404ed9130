package server

import (
	"fmt"
	"net"
	"testing"

	"github.com/phayes/freeport"
	"github.com/stretchr/testify/require"
	"github.com/textileio/marketgate/util"
)

func TestFailedStartReleasesResources(t *testing.T) {
	gatewayPort, err := freeport.GetFreePort()
	require.NoError(t, err)
	conf := Config{
		RepoPath:        t.TempDir(),
		RPCHostAddr:     util.MustParseAddr("/ip4/127.0.0.1/udp/1234"),
		GatewayHostAddr: fmt.Sprintf("127.0.0.1:%d", gatewayPort),
		HostAddr:        util.MustParseAddr("/ip4/127.0.0.1/tcp/1"),
		HostConnRetries: 1,
		AdminToken:      "admin",
	}
	_, err = NewServer(conf)
	require.Error(t, err)
	require.Contains(t, err.Error(), "starting rpc server")

	// The gateway port and the datastore lock are free again.
	l, err := net.Listen("tcp", conf.GatewayHostAddr)
	require.NoError(t, err)
	require.NoError(t, l.Close())

	conf.RPCHostAddr = util.MustParseAddr("/ip4/127.0.0.1/tcp/0")
	s, err := NewServer(conf)
	require.NoError(t, err)
	s.Close()
}
