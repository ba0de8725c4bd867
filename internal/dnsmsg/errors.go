// Package dnsmsg implements the RFC 1035 wire format for classic 512-byte
// UDP DNS messages: a bounded packet buffer, header/question/record codecs,
// and the Packet aggregate used by the recursive resolver.
package dnsmsg

import "errors"

// Buffer bound violations. Non-recoverable within a single packet; callers
// abort the current decode/encode on these.
var (
	ErrBufferOverflow    = errors.New("dnsmsg: packet buffer position exceeds 512 octets")
	ErrInvalidPosition   = errors.New("dnsmsg: operation requires cursor at a specific position")
	ErrLabelLengthOver63 = errors.New("dnsmsg: domain name label exceeds 63 octets")
	ErrMaxJumpsAttained  = errors.New("dnsmsg: compression pointer chain exceeded 5 jumps")
)
