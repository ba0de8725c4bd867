package routing

import "context"

// RoutingEngine announces and withdraws anycast VIP routes via BGP.
type RoutingEngine interface {
	Start(ctx context.Context, localASN, peerASN uint32, peerIP string) error
	Announce(ctx context.Context, vip string) error
	Withdraw(ctx context.Context, vip string) error
	Stop() error
}

// VIPManager binds and unbinds a VIP address to a local network interface.
type VIPManager interface {
	Bind(ctx context.Context, vip, iface string) error
	Unbind(ctx context.Context, vip, iface string) error
}
