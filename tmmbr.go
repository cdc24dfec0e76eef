package rtcpreceiver

import (
	"sort"

	"github.com/pion/rtcpreceiver/pkg/rtcp"
)

// findBoundingSet computes the RFC 5104 3.5.4.2 bounding set of a TMMBR
// candidate list.
//
// Every tuple (bitrate b, overhead o) constrains a sender running at packet
// rate PR to a net bitrate of at most b - 8*o*PR. The bounding set is the
// subset of tuples that are the tightest constraint for some PR >= 0, i.e.
// the lower envelope of those lines, ordered by increasing overhead.
func findBoundingSet(candidates []rtcp.TMMBItem) []rtcp.TMMBItem {
	// a zero bitrate carries no constraint
	active := make([]rtcp.TMMBItem, 0, len(candidates))
	for _, c := range candidates {
		if c.BitrateBPS > 0 {
			active = append(active, c)
		}
	}
	if len(active) <= 1 {
		return active
	}

	sort.Slice(active, func(i, j int) bool {
		if active[i].PacketOverhead != active[j].PacketOverhead {
			return active[i].PacketOverhead < active[j].PacketOverhead
		}
		return active[i].BitrateBPS < active[j].BitrateBPS
	})

	// of tuples sharing an overhead only the lowest bitrate can bound
	lines := active[:1]
	for _, c := range active[1:] {
		if lines[len(lines)-1].PacketOverhead != c.PacketOverhead {
			lines = append(lines, c)
		}
	}

	type boundary struct {
		item rtcp.TMMBItem
		// packet rate at which this tuple becomes the tightest constraint
		packetRate float64
	}

	var envelope []boundary
	for _, line := range lines {
		cross := 0.0
		for len(envelope) > 0 {
			top := envelope[len(envelope)-1]
			cross = intersectionPacketRate(top.item, line)
			if cross > top.packetRate {
				break
			}
			// the steeper line undercuts the top over its whole range
			envelope = envelope[:len(envelope)-1]
		}
		if len(envelope) == 0 {
			cross = 0
		}
		envelope = append(envelope, boundary{item: line, packetRate: cross})
	}

	bounding := make([]rtcp.TMMBItem, len(envelope))
	for i, b := range envelope {
		bounding[i] = b.item
	}
	return bounding
}

// intersectionPacketRate returns the packet rate at which the constraint
// lines of a and b cross. b must have the larger overhead.
func intersectionPacketRate(a, b rtcp.TMMBItem) float64 {
	return (float64(b.BitrateBPS) - float64(a.BitrateBPS)) /
		(8 * (float64(b.PacketOverhead) - float64(a.PacketOverhead)))
}

// minBitrateBPS returns the lowest bitrate of a bounding set.
func minBitrateBPS(boundingSet []rtcp.TMMBItem) uint64 {
	min := boundingSet[0].BitrateBPS
	for _, item := range boundingSet[1:] {
		if item.BitrateBPS < min {
			min = item.BitrateBPS
		}
	}
	return min
}

// isTMMBNOwner reports whether ssrc holds an entry in a TMMBN bounding set.
func isTMMBNOwner(boundingSet []rtcp.TMMBItem, ssrc uint32) bool {
	for _, item := range boundingSet {
		if item.SSRC == ssrc {
			return true
		}
	}
	return false
}
