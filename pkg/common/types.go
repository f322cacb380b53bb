// Package common provides shared types, wire-format error taxonomy, and
// checksum primitives used across the IP and ICMPv6 header codecs.
package common

import (
	"fmt"

	"github.com/google/gopacket/layers"
)

// IPv4Address is a 32-bit IPv4 address in network byte order.
type IPv4Address [4]byte

// String returns the address in dotted-decimal form (e.g. "192.168.1.1").
func (a IPv4Address) String() string {
	return fmt.Sprintf("%d.%d.%d.%d", a[0], a[1], a[2], a[3])
}

// IPv6Address is a 128-bit IPv6 address in network byte order.
type IPv6Address [16]byte

// String returns the address as eight colon-separated, zero-padded
// four-digit hex groups, without "::" compression.
func (a IPv6Address) String() string {
	return fmt.Sprintf("%02x%02x:%02x%02x:%02x%02x:%02x%02x:%02x%02x:%02x%02x:%02x%02x:%02x%02x",
		a[0], a[1], a[2], a[3], a[4], a[5], a[6], a[7],
		a[8], a[9], a[10], a[11], a[12], a[13], a[14], a[15])
}

// IPNumber is the IANA "Assigned Internet Protocol Number" carried in the
// IPv4 protocol field, the IPv6 next-header field, and every extension
// header's own next-header field. Extension header identity and terminal
// upper-layer protocol are both expressed through this single type.
type IPNumber uint8

// Well-known IP numbers relevant to the extension chain walk and the
// terminal protocol reported in IpPayload. Values are taken from
// gopacket/layers.IPProtocol so the wire values are grounded in a real,
// widely used parsing library rather than hand-copied from the RFCs.
const (
	IPNumberHopByHop        = IPNumber(layers.IPProtocolIPv6HopByHop)
	IPNumberTCP             = IPNumber(layers.IPProtocolTCP)
	IPNumberUDP             = IPNumber(layers.IPProtocolUDP)
	IPNumberIPv6Routing     = IPNumber(layers.IPProtocolIPv6Routing)
	IPNumberIPv6Fragment    = IPNumber(layers.IPProtocolIPv6Fragment)
	IPNumberAH              = IPNumber(layers.IPProtocolAH)
	IPNumberICMPv6          = IPNumber(layers.IPProtocolICMPv6)
	IPNumberNoNextHeader    = IPNumber(layers.IPProtocolNoNextHeader)
	IPNumberIPv6Destination = IPNumber(layers.IPProtocolIPv6Destination)
)

// String returns a human-readable name for well-known IP numbers and falls
// back to a numeric rendering otherwise.
func (n IPNumber) String() string {
	switch n {
	case IPNumberHopByHop:
		return "HopByHop"
	case IPNumberTCP:
		return "TCP"
	case IPNumberUDP:
		return "UDP"
	case IPNumberIPv6Routing:
		return "Routing"
	case IPNumberIPv6Fragment:
		return "Fragment"
	case IPNumberAH:
		return "AH"
	case IPNumberICMPv6:
		return "ICMPv6"
	case IPNumberNoNextHeader:
		return "NoNextHeader"
	case IPNumberIPv6Destination:
		return "DestinationOptions"
	default:
		return fmt.Sprintf("IPNumber(%d)", uint8(n))
	}
}

// IsIPv6ExtensionHeader reports whether n identifies one of the IPv6
// extension headers the chain walker recognizes (RFC 8200 §4.1, restricted
// to the subset this core models: hop-by-hop, routing, fragment,
// destination options, and authentication).
func (n IPNumber) IsIPv6ExtensionHeader() bool {
	switch n {
	case IPNumberHopByHop, IPNumberIPv6Routing, IPNumberIPv6Fragment, IPNumberIPv6Destination, IPNumberAH:
		return true
	default:
		return false
	}
}
