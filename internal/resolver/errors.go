// Package resolver implements the stub resolver's control plane: the
// forwarded lookup to a fixed upstream, the iterative recursive walk
// starting at the root hints, and the sequential UDP server loop that
// drives both from inbound queries.
package resolver

import "errors"

var (
	ErrUDPBindFailed = errors.New("resolver: failed to bind local UDP socket")
	ErrUDPSendFailed = errors.New("resolver: failed to send UDP datagram")
	ErrUDPRecvFailed = errors.New("resolver: failed to receive UDP datagram")
	ErrNoQuestion    = errors.New("resolver: query carried no question")
)
