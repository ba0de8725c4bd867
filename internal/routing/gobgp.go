// Package routing implements BGP routing and VIP management adapters.
package routing

import (
	"context"
	"fmt"
	"log/slog"
	"net"

	api "github.com/osrg/gobgp/v4/api"
	"github.com/osrg/gobgp/v4/pkg/server"
	"google.golang.org/protobuf/types/known/anypb"
)

// bgpBackend is the slice of *server.BgpServer's method set this adapter
// drives; tests substitute a mock implementing it instead of running a real
// BGP speaker.
type bgpBackend interface {
	Serve()
	Stop()
	StartBgp(ctx context.Context, r *api.StartBgpRequest) error
	AddPeer(ctx context.Context, r *api.AddPeerRequest) error
	AddPath(ctx context.Context, r *api.AddPathRequest) (*api.AddPathResponse, error)
	DeletePath(ctx context.Context, r *api.DeletePathRequest) error
}

// GoBGPAdapter implements the RoutingEngine port using the GoBGP library.
type GoBGPAdapter struct {
	bgpServer bgpBackend
	logger    *slog.Logger

	routerID   string
	listenPort int32
	nextHop    string
}

// NewGoBGPAdapter initializes a new GoBGPAdapter.
func NewGoBGPAdapter(logger *slog.Logger) *GoBGPAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &GoBGPAdapter{
		bgpServer:  server.NewBgpServer(),
		logger:     logger,
		routerID:   "127.0.0.1",
		listenPort: 179,
		nextHop:    "127.0.0.1",
	}
}

// SetConfig overrides the router ID, listen port, and next-hop address used
// by Start/Announce. Empty/zero arguments leave the current value in place,
// so callers can update one field at a time.
func (a *GoBGPAdapter) SetConfig(routerID string, listenPort int32, nextHop string) {
	if routerID != "" {
		a.routerID = routerID
	}
	if listenPort != 0 {
		a.listenPort = listenPort
	}
	if nextHop != "" {
		a.nextHop = nextHop
	}
}

// Start initializes the GoBGP server and establishes a peering session.
func (a *GoBGPAdapter) Start(ctx context.Context, localASN, peerASN uint32, peerIP string) error {
	go a.bgpServer.Serve()

	if err := a.bgpServer.StartBgp(ctx, &api.StartBgpRequest{
		Global: &api.Global{
			Asn:        localASN,
			RouterId:   a.routerID,
			ListenPort: a.listenPort,
		},
	}); err != nil {
		return fmt.Errorf("failed to start BGP server: %w", err)
	}

	if err := a.bgpServer.AddPeer(ctx, &api.AddPeerRequest{
		Peer: &api.Peer{
			Conf: &api.PeerConf{
				NeighborAddress: peerIP,
				PeerAsn:         peerASN,
			},
		},
	}); err != nil {
		return fmt.Errorf("failed to add BGP peer: %w", err)
	}

	a.logger.Info("GoBGP speaker started", "local_asn", localASN, "peer_asn", peerASN, "peer_ip", peerIP)
	return nil
}

// Announce advertises a VIP prefix via BGP.
func (a *GoBGPAdapter) Announce(ctx context.Context, vip string) error {
	if a.bgpServer == nil {
		return fmt.Errorf("announce %s: BGP server not started", vip)
	}
	if net.ParseIP(vip) == nil {
		return fmt.Errorf("announce: invalid VIP address: %s", vip)
	}

	nlri, _ := anypb.New(&api.IPAddressPrefix{
		Prefix:    vip,
		PrefixLen: 32,
	})
	attrs, _ := anypb.New(&api.NextHopAttribute{
		NextHop: a.nextHop,
	})

	_, err := a.bgpServer.AddPath(ctx, &api.AddPathRequest{
		Path: &api.Path{
			Family: &api.Family{Afi: api.Family_AFI_IP, Safi: api.Family_SAFI_UNICAST},
			Nlri:   nlri,
			Pattrs: []*anypb.Any{attrs},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to announce route %s: %w", vip, err)
	}

	a.logger.Info("announced anycast VIP", "vip", vip)
	return nil
}

// Withdraw removes a VIP advertisement from BGP.
func (a *GoBGPAdapter) Withdraw(ctx context.Context, vip string) error {
	if a.bgpServer == nil {
		return fmt.Errorf("withdraw %s: BGP server not started", vip)
	}
	if net.ParseIP(vip) == nil {
		return fmt.Errorf("withdraw: invalid VIP address: %s", vip)
	}

	nlri, _ := anypb.New(&api.IPAddressPrefix{
		Prefix:    vip,
		PrefixLen: 32,
	})

	err := a.bgpServer.DeletePath(ctx, &api.DeletePathRequest{
		Path: &api.Path{
			Family: &api.Family{Afi: api.Family_AFI_IP, Safi: api.Family_SAFI_UNICAST},
			Nlri:   nlri,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to withdraw route %s: %w", vip, err)
	}

	a.logger.Warn("withdrew anycast VIP", "vip", vip)
	return nil
}

// Stop gracefully shuts down the BGP server, if one was started.
func (a *GoBGPAdapter) Stop() error {
	if a.bgpServer == nil {
		return nil
	}
	a.bgpServer.Stop()
	return nil
}

var _ RoutingEngine = (*GoBGPAdapter)(nil)
