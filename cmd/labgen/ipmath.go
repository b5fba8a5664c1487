package main

import "net/netip"

// All address math is IPv4-only: the planner carves from a single private
// IPv4 range and uint32 arithmetic keeps the cursor logic transparent.

func ipv4ToU32(a netip.Addr) uint32 {
	b := a.As4()
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

func u32ToIPv4(v uint32) netip.Addr {
	return netip.AddrFrom4([4]byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)})
}

func prefixesOverlap(a, b netip.Prefix) bool {
	return a.Contains(b.Addr()) || b.Contains(a.Addr())
}

func overlapsAny(p netip.Prefix, used []netip.Prefix) bool {
	for _, u := range used {
		if prefixesOverlap(u, p) {
			return true
		}
	}
	return false
}

func prefixNetworkU32(p netip.Prefix) uint32 {
	return ipv4ToU32(p.Masked().Addr())
}

func prefixBroadcastU32(p netip.Prefix) uint32 {
	return prefixNetworkU32(p) + blockSize(p.Bits()) - 1
}

func prefixWithin(pool, p netip.Prefix) bool {
	if !pool.Contains(p.Masked().Addr()) {
		return false
	}
	return pool.Contains(u32ToIPv4(prefixBroadcastU32(p)))
}

func blockSize(bits int) uint32 {
	return uint32(1) << (32 - bits)
}

func usableHosts(bits int) int {
	if bits >= 31 {
		return 0
	}
	return int(blockSize(bits)) - 2
}

// alignUp32 rounds v up to the next multiple of step (a power of two).
func alignUp32(v, step uint32) uint32 {
	if step == 0 {
		return v
	}
	rem := v % step
	if rem == 0 {
		return v
	}
	return v + (step - rem)
}

func itoa(i int) string { return itoa64(int64(i)) }

func itoa64(i int64) string {
	if i == 0 {
		return "0"
	}
	neg := i < 0
	if neg {
		i = -i
	}
	var buf [32]byte
	n := len(buf)
	for i > 0 {
		n--
		buf[n] = byte('0' + (i % 10))
		i /= 10
	}
	if neg {
		n--
		buf[n] = '-'
	}
	return string(buf[n:])
}
