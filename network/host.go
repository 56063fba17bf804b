package network

import (
	"context"
	"crypto/rand"
	"fmt"

	"github.com/libp2p/go-libp2p"
	p2pcrypto "github.com/libp2p/go-libp2p/core/crypto"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/multiformats/go-multiaddr"
)

// HostConfig configures the libp2p host a node listens and dials on.
type HostConfig struct {
	PrivateKey  p2pcrypto.PrivKey
	ListenAddrs []string
}

// NewHost creates the libp2p host used for the peer RPC transport. When
// cfg.PrivateKey is nil a fresh Ed25519 identity key is generated, distinct
// from the node's consensus signing key.
func NewHost(ctx context.Context, cfg HostConfig) (host.Host, error) {
	privKey := cfg.PrivateKey
	if privKey == nil {
		var err error
		privKey, _, err = p2pcrypto.GenerateEd25519Key(rand.Reader)
		if err != nil {
			return nil, fmt.Errorf("network: generate host identity: %w", err)
		}
	}

	listenAddrs := cfg.ListenAddrs
	if len(listenAddrs) == 0 {
		listenAddrs = []string{"/ip4/0.0.0.0/tcp/9500"}
	}

	h, err := libp2p.New(
		libp2p.Identity(privKey),
		libp2p.ListenAddrStrings(listenAddrs...),
	)
	if err != nil {
		return nil, fmt.Errorf("network: create host: %w", err)
	}
	return h, nil
}

// ParsePeers turns a list of multiaddr strings (each ending in a /p2p/<id>
// component) into connectable peer.AddrInfo values, used for the bootstrap
// peer list a node is configured with.
func ParsePeers(addrs []string) ([]peer.AddrInfo, error) {
	infos := make([]peer.AddrInfo, 0, len(addrs))
	for _, addr := range addrs {
		ma, err := multiaddr.NewMultiaddr(addr)
		if err != nil {
			return nil, fmt.Errorf("network: parse multiaddr %s: %w", addr, err)
		}
		pi, err := peer.AddrInfoFromP2pAddr(ma)
		if err != nil {
			return nil, fmt.Errorf("network: parse peer info %s: %w", addr, err)
		}
		infos = append(infos, *pi)
	}
	return infos, nil
}
