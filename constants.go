package rtcpreceiver

import "time"

const (
	// The number of RTCP report intervals needed to trigger a timeout.
	rrTimeoutIntervals = 3

	// The skipped-packet warning is emitted at most once per this interval.
	maxWarningLogInterval = 10 * time.Second

	// Regular RTCP report interval assumed for remote peers. The audio
	// value is used because the remote interval is unknown.
	rtcpIntervalAudio = 5 * time.Second

	// A remote sender that has been silent for this long has its TMMBR
	// limitations lifted; individual TMMBR entries expire after the same
	// period.
	tmmbrTimeout = 5 * rtcpIntervalAudio

	// Minimum interval between honored FIR requests, roughly one RTCP
	// minimum frame length.
	minFIRInterval = 150 * time.Millisecond

	// CNAMEs are capped at the RFC 3550 SDES item limit.
	cnameMaxLength = 255
)

// packetTypeFlag marks which block kinds a compound datagram carried.
type packetTypeFlag uint32

const (
	flagSR packetTypeFlag = 1 << iota
	flagRR
	flagSDES
	flagNack
	flagTMMBR
	flagTMMBN
	flagSRReq
	flagSLI
	flagRPSI
	flagPLI
	flagFIR
	flagREMB
	flagTransportFeedback
	flagXRReceiverReferenceTime
	flagXRDLRRReportBlock
)
