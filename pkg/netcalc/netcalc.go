// Package netcalc converts IPv4 addresses between notations and derives
// subnet boundaries from an address and prefix length.
package netcalc

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidIP is returned for anything other than four decimal octets.
var ErrInvalidIP = errors.New("invalid IPv4 address")

// ParseIP converts a dotted quad to its 32-bit value. Each of the four parts
// must be a decimal integer in [0,255] without sign or leading zeros.
func ParseIP(s string) (uint32, error) {
	parts := strings.Split(strings.TrimSpace(s), ".")
	if len(parts) != 4 {
		return 0, fmt.Errorf("%w: %q: expected 4 parts", ErrInvalidIP, s)
	}
	var n uint32
	for _, p := range parts {
		if p == "" || len(p) > 3 || (len(p) > 1 && p[0] == '0') || strings.TrimLeft(p, "0123456789") != "" {
			return 0, fmt.Errorf("%w: %q: bad octet %q", ErrInvalidIP, s, p)
		}
		v, err := strconv.Atoi(p)
		if err != nil || v > 255 {
			return 0, fmt.Errorf("%w: %q: octet %q out of range", ErrInvalidIP, s, p)
		}
		n = n<<8 | uint32(v)
	}
	return n, nil
}

// FormatIP renders a 32-bit value as a dotted quad.
func FormatIP(n uint32) string {
	return fmt.Sprintf("%d.%d.%d.%d", n>>24, n>>16&0xff, n>>8&0xff, n&0xff)
}

// Mask returns the netmask with the top prefix bits set. prefix is clamped
// to 0..32.
func Mask(prefix int) uint32 {
	prefix = ClampPrefix(prefix)
	if prefix == 0 {
		return 0
	}
	return ^uint32(0) << (32 - prefix)
}

// ClampPrefix limits prefix to 0..32.
func ClampPrefix(prefix int) int {
	return max(0, min(32, prefix))
}

// Address holds the alternative renderings of one address.
type Address struct {
	IP      string `json:"ip"`
	Binary  string `json:"binary"`
	Decimal uint32 `json:"decimal"`
	Hex     string `json:"hex"`
	Octal   string `json:"octal"`
}

// Describe renders n in binary (dotted octets), decimal, hex and octal.
func Describe(n uint32) Address {
	bits := fmt.Sprintf("%032b", n)
	return Address{
		IP:      FormatIP(n),
		Binary:  bits[0:8] + "." + bits[8:16] + "." + bits[16:24] + "." + bits[24:32],
		Decimal: n,
		Hex:     fmt.Sprintf("0x%08X", n),
		Octal:   fmt.Sprintf("0%o", n),
	}
}

// Subnet is the result of a subnet calculation.
type Subnet struct {
	Address   Address `json:"address"`
	Prefix    int     `json:"cidr"`
	Mask      string  `json:"mask"`
	Wildcard  string  `json:"wildcard"`
	Network   string  `json:"network"`
	Broadcast string  `json:"broadcast"`
	FirstHost string  `json:"first_host"`
	LastHost  string  `json:"last_host"`
	Hosts     uint64  `json:"total_hosts"`
}

// Calculate derives subnet boundaries for ip/prefix. The first and last
// host are network+1 and broadcast-1 even for /31 and /32, where the host
// count is zero.
func Calculate(ip string, prefix int) (*Subnet, error) {
	addr, err := ParseIP(ip)
	if err != nil {
		return nil, err
	}
	prefix = ClampPrefix(prefix)
	mask := Mask(prefix)
	network := addr & mask
	broadcast := network | ^mask

	var hosts uint64
	if total := uint64(1) << (32 - prefix); total > 2 {
		hosts = total - 2
	}

	return &Subnet{
		Address:   Describe(addr),
		Prefix:    prefix,
		Mask:      FormatIP(mask),
		Wildcard:  FormatIP(^mask),
		Network:   FormatIP(network),
		Broadcast: FormatIP(broadcast),
		FirstHost: FormatIP(network + 1),
		LastHost:  FormatIP(broadcast - 1),
		Hosts:     hosts,
	}, nil
}

// ParseCIDR splits "a.b.c.d/n" into address and prefix. A missing prefix
// yields def.
func ParseCIDR(s string, def int) (string, int, error) {
	ip, bits, found := strings.Cut(strings.TrimSpace(s), "/")
	if !found {
		return ip, ClampPrefix(def), nil
	}
	prefix, err := strconv.Atoi(bits)
	if err != nil {
		return "", 0, fmt.Errorf("invalid prefix %q: %w", bits, err)
	}
	return ip, ClampPrefix(prefix), nil
}
