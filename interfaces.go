package rtcpreceiver

import (
	"time"

	"github.com/pion/rtcpreceiver/pkg/rtcp"
)

// A Clock supplies wallclock time to the receiver. The default implementation
// reads time.Now; tests substitute a manual clock.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns a Clock backed by time.Now.
func SystemClock() Clock { return systemClock{} }

// A ReportBlock is a received reception report block together with the SSRC
// of the remote endpoint that sent it.
type ReportBlock struct {
	// RemoteSSRC identifies the remote endpoint the block came from
	RemoteSSRC uint32
	// SourceSSRC identifies the local stream the block describes
	SourceSSRC         uint32
	FractionLost       uint8
	CumulativeLost     uint32
	ExtendedHighSeqNum uint32
	Jitter             uint32
	LastSR             uint32
	DelaySinceLastSR   uint32
}

// Statistics is the per-source subset of a reception report pushed to the
// statistics callback.
type Statistics struct {
	FractionLost              uint8
	CumulativeLost            uint32
	ExtendedMaxSequenceNumber uint32
	Jitter                    uint32
}

// SenderInfo is the sender block of the most recent sender report from the
// designated remote sender.
type SenderInfo struct {
	NTPSeconds   uint32
	NTPFractions uint32
	RTPTimestamp uint32
	PacketCount  uint32
	OctetCount   uint32
}

// ReceiveTimeInfo mirrors the most recent XR receiver-reference-time report:
// who sent it, its compact NTP timestamp and how long ago it arrived, in
// 1/65536 second units.
type ReceiveTimeInfo struct {
	SourceSSRC       uint32
	LastRR           uint32
	DelaySinceLastRR uint32
}

// PacketTypeCounter counts feedback packets addressed to the local endpoint.
type PacketTypeCounter struct {
	NackPackets        uint32
	PliPackets         uint32
	FirPackets         uint32
	NackRequests       uint32
	UniqueNackRequests uint32
	// FirstPacketTime is the arrival of the first RTCP packet ever seen;
	// zero until then.
	FirstPacketTime time.Time
}

// The Owner is the module embedding this receiver. It is required and its
// methods are invoked outside the receiver's state lock.
type Owner interface {
	// SetTMMBN hands over the freshly computed bounding set for echoing in
	// an outgoing TMMBN.
	SetTMMBN(boundingSet []rtcp.TMMBItem)
	// OnRequestSendReport asks for an early sender report
	// (rapid resynchronization request).
	OnRequestSendReport()
	// OnReceivedNack delivers the sequence numbers of a NACK addressed to
	// the local sender.
	OnReceivedNack(sequenceNumbers []uint16)
	// OnReceivedRTCPReportBlocks delivers every report block of an SR/RR.
	OnReceivedRTCPReportBlocks(reportBlocks []ReportBlock)
}

// A BandwidthObserver receives rate-related feedback: REMB, the minimum
// bitrate of a changed TMMBR bounding set, and reception reports for
// loss-based estimation.
type BandwidthObserver interface {
	OnReceivedEstimatedBitrate(bitrateBPS uint64)
	OnReceivedRTCPReceiverReport(reportBlocks []ReportBlock, rttMs int64, now time.Time)
}

// An IntraFrameObserver is told when the remote end needs a decoder refresh.
type IntraFrameObserver interface {
	OnReceivedIntraFrameRequest(ssrc uint32)
	OnReceivedSLI(ssrc uint32, pictureID uint8)
	OnReceivedRPSI(ssrc uint32, pictureID uint64)
	OnLocalSSRCChanged(oldSSRC, newSSRC uint32)
}

// A TransportFeedbackObserver consumes transport-wide congestion control
// feedback addressed to one of the local SSRCs.
type TransportFeedbackObserver interface {
	OnTransportFeedback(feedback *rtcp.TransportLayerCC)
}

// A StatisticsCallback is fed per-source reception statistics and CNAME
// updates. It is invoked under the feedbacks lock, never under the state
// lock.
type StatisticsCallback interface {
	StatisticsUpdated(stats Statistics, ssrc uint32)
	CNAMEChanged(cname string, ssrc uint32)
}

// A PacketTypeCounterObserver is pushed the running packet type counter
// after every processed datagram.
type PacketTypeCounterObserver interface {
	RTCPPacketTypesCounterUpdated(ssrc uint32, counter PacketTypeCounter)
}
