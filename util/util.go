package util

import (
	"context"
	"fmt"
	"time"

	ma "github.com/multiformats/go-multiaddr"
	madns "github.com/multiformats/go-multiaddr-dns"
	manet "github.com/multiformats/go-multiaddr/net"
)

const dnsResolveTimeout = time.Second

// TCPAddrFromMultiAddr returns the host:port form of a tcp multiaddress.
// dns, dns4 and dns6 components are resolved to their first ip address.
func TCPAddrFromMultiAddr(maddr ma.Multiaddr) (string, error) {
	if maddr == nil {
		return "", fmt.Errorf("invalid address")
	}
	if _, err := maddr.ValueForProtocol(ma.P_TCP); err != nil {
		return "", fmt.Errorf("%s isn't a tcp address", maddr)
	}

	if madns.Matches(maddr) {
		ctx, cancel := context.WithTimeout(context.Background(), dnsResolveTimeout)
		defer cancel()
		resolved, err := madns.Resolve(ctx, maddr)
		if err != nil {
			return "", fmt.Errorf("resolving %s: %s", maddr, err)
		}
		if len(resolved) == 0 {
			return "", fmt.Errorf("%s doesn't resolve to any address", maddr)
		}
		maddr = resolved[0]
	}

	addr, err := manet.ToNetAddr(maddr)
	if err != nil {
		return "", fmt.Errorf("converting %s: %s", maddr, err)
	}
	return addr.String(), nil
}

// MustParseAddr returns a parsed Multiaddr, or panics if invalid.
func MustParseAddr(str string) ma.Multiaddr {
	addr, err := ma.NewMultiaddr(str)
	if err != nil {
		panic(err)
	}
	return addr
}
