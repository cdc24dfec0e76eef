package rtcpreceiver

import (
	"time"

	"github.com/pion/rtcpreceiver/pkg/ntp"
)

// RTT returns the latest, average, minimum and maximum round-trip time in
// milliseconds derived from the report blocks remoteSSRC sent about the
// local main SSRC. ok is false while no report block from that remote has
// been seen.
func (r *Receiver) RTT(remoteSSRC uint32) (rtt, avgRTT, minRTT, maxRTT int64, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rbi := r.reportBlockInformation(remoteSSRC, r.mainSSRC)
	if rbi == nil {
		return 0, 0, 0, 0, false
	}
	return rbi.rttMs, rbi.avgRTTMs, rbi.minRTTMs, rbi.maxRTTMs, true
}

func (r *Receiver) reportBlockInformation(remoteSSRC, sourceSSRC uint32) *reportBlockInformation {
	remoteMap, ok := r.receivedReportBlockMap[sourceSSRC]
	if !ok {
		return nil
	}
	return remoteMap[remoteSSRC]
}

// GetAndResetXRRTT returns the round-trip time most recently derived from an
// XR DLRR block, in milliseconds. It is a one-shot value: a second call
// returns false until a new DLRR block produces a sample.
func (r *Receiver) GetAndResetXRRTT() (int64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.xrRRRTTMs == 0 {
		return 0, false
	}
	rtt := r.xrRRRTTMs
	r.xrRRRTTMs = 0
	return rtt, true
}

// NTP returns the NTP timestamp of the most recent sender report from the
// designated remote sender, the local NTP time at its arrival and its RTP
// timestamp.
func (r *Receiver) NTP() (remote ntp.Time64, arrival ntp.Time64, rtpTimestamp uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()

	remote = ntp.NewTime64(r.remoteSenderInfo.NTPSeconds, r.remoteSenderInfo.NTPFractions)
	return remote, r.lastReceivedSRNTP, r.remoteSenderInfo.RTPTimestamp
}

// SenderInfoReceived returns the sender block of the most recent sender
// report from the designated remote sender; ok is false until one arrives.
func (r *Receiver) SenderInfoReceived() (SenderInfo, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.lastReceivedSRNTP == 0 {
		return SenderInfo{}, false
	}
	return r.remoteSenderInfo, true
}

// StatisticsReceived returns the latest report block of every
// (remote, source) pair. Multiple remotes may report on the same source in
// a conference relay scenario.
func (r *Receiver) StatisticsReceived() []ReportBlock {
	r.mu.Lock()
	defer r.mu.Unlock()

	var blocks []ReportBlock
	for _, remoteMap := range r.receivedReportBlockMap {
		for _, rbi := range remoteMap {
			blocks = append(blocks, rbi.reportBlock)
		}
	}
	return blocks
}

// CNAME returns the canonical name last announced by ssrc.
func (r *Receiver) CNAME(ssrc uint32) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cname, ok := r.receivedCnameMap[ssrc]
	return cname, ok
}

// LastReceivedReceiverReport returns the arrival time of the most recent
// SR/RR across all remote senders; the zero time when none was received.
func (r *Receiver) LastReceivedReceiverReport() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()

	var last time.Time
	for _, receiveInfo := range r.receivedInfoMap {
		if receiveInfo.lastTimeReceived.After(last) {
			last = receiveInfo.lastTimeReceived
		}
	}
	return last
}

// LastReceivedXRReferenceTimeInfo returns the most recent XR receiver
// reference time report with its delay-since-last-RR computed against the
// current clock, per RFC 3611. ok is false until an RRTR block arrives.
func (r *Receiver) LastReceivedXRReferenceTimeInfo() (ReceiveTimeInfo, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.lastReceivedXRNTP == 0 {
		return ReceiveTimeInfo{}, false
	}

	receiveTime := r.lastReceivedXRNTP.Compact()
	now := ntp.FromTime(r.clock.Now()).Compact()

	return ReceiveTimeInfo{
		SourceSSRC:       r.remoteXRReceiveTimeInfo.SourceSSRC,
		LastRR:           r.remoteXRReceiveTimeInfo.LastRR,
		DelaySinceLastRR: uint32(now) - uint32(receiveTime),
	}, true
}

// RRTimeout reports whether no receiver report arrived within three report
// intervals. It is edge triggered: once it fires it returns false until a
// new receiver report arrives.
func (r *Receiver) RRTimeout(rtcpInterval time.Duration) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.lastReceivedRR.IsZero() {
		return false
	}
	if r.clock.Now().After(r.lastReceivedRR.Add(rrTimeoutIntervals * rtcpInterval)) {
		// fire once only
		r.lastReceivedRR = time.Time{}
		return true
	}
	return false
}

// RRSequenceNumberTimeout reports whether the remote side has not seen any
// new RTP packet from us for three report intervals, i.e. the extended
// highest sequence number stopped advancing. Edge triggered like RRTimeout.
func (r *Receiver) RRSequenceNumberTimeout(rtcpInterval time.Duration) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.lastIncreasedSequenceNumber.IsZero() {
		return false
	}
	if r.clock.Now().After(r.lastIncreasedSequenceNumber.Add(rrTimeoutIntervals * rtcpInterval)) {
		// fire once only
		r.lastIncreasedSequenceNumber = time.Time{}
		return true
	}
	return false
}

// NumSkippedPackets returns how many RTCP blocks were skipped because they
// were malformed or of an unsupported type.
func (r *Receiver) NumSkippedPackets() uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.numSkippedPackets
}

// UpdateReceiveInformationTimers sweeps the per-sender reception state:
// senders silent for five report intervals lose their TMMBR limitations and
// senders that said goodbye are removed. It returns whether the TMMBR
// bounding set must be recomputed.
func (r *Receiver) UpdateReceiveInformationTimers() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	boundingSetChanged := false
	now := r.clock.Now()

	for ssrc, receiveInfo := range r.receivedInfoMap {
		if receiveInfo.readyForDelete {
			delete(r.receivedInfoMap, ssrc)
			continue
		}
		if !receiveInfo.lastTimeReceived.IsZero() &&
			now.Sub(receiveInfo.lastTimeReceived) > tmmbrTimeout {
			// no RTCP for five regular intervals: lift the limitations
			// and make sure this fires once only
			receiveInfo.clearTMMBR()
			receiveInfo.lastTimeReceived = time.Time{}
			boundingSetChanged = true
		}
	}
	return boundingSetChanged
}
