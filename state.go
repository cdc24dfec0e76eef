package rtcpreceiver

import (
	"time"

	"github.com/pion/rtcpreceiver/pkg/rtcp"
)

// reportBlockInformation is the per (remote sender, local source) reception
// state: the latest raw report block plus derived round-trip statistics.
type reportBlockInformation struct {
	reportBlock ReportBlock
	maxJitter   uint32

	// all in milliseconds; minRTT == 0 means no sample yet
	rttMs    int64
	minRTTMs int64
	maxRTTMs int64
	avgRTTMs int64

	numAverageCalcs int64
}

// addRTTSample folds one round-trip sample into the min/max/avg statistics.
func (r *reportBlockInformation) addRTTSample(rttMs int64) {
	if rttMs > r.maxRTTMs {
		r.maxRTTMs = rttMs
	}
	if r.minRTTMs == 0 || rttMs < r.minRTTMs {
		r.minRTTMs = rttMs
	}
	r.rttMs = rttMs

	if r.numAverageCalcs != 0 {
		ac := float64(r.numAverageCalcs)
		newAverage := (ac/(ac+1))*float64(r.avgRTTMs) + (1/(ac+1))*float64(rttMs)
		r.avgRTTMs = int64(newAverage + 0.5)
	} else {
		r.avgRTTMs = rttMs
	}
	r.numAverageCalcs++
}

// tmmbrRequest is one remote endpoint's active bitrate cap request.
type tmmbrRequest struct {
	item        rtcp.TMMBItem
	lastUpdated time.Time
}

// receiveInformation is the per remote sender liveness and TMMBR/TMMBN state.
type receiveInformation struct {
	lastTimeReceived time.Time

	lastFIRRequest time.Time
	// -1 until the first honored FIR from this sender
	lastFIRSequenceNumber int16

	// keyed by the SSRC of the endpoint requesting the cap
	tmmbr map[uint32]tmmbrRequest
	tmmbn []rtcp.TMMBItem

	readyForDelete bool
}

func newReceiveInformation() *receiveInformation {
	return &receiveInformation{
		lastFIRSequenceNumber: -1,
		tmmbr:                 make(map[uint32]tmmbrRequest),
	}
}

func (r *receiveInformation) insertTMMBRItem(requesterSSRC uint32, item rtcp.TMMBItem, now time.Time) {
	r.tmmbr[requesterSSRC] = tmmbrRequest{item: item, lastUpdated: now}
}

// activeTMMBRItems appends the non-expired cap requests to candidates,
// dropping the expired ones as it goes.
func (r *receiveInformation) activeTMMBRItems(now time.Time, candidates []rtcp.TMMBItem) []rtcp.TMMBItem {
	for requester, request := range r.tmmbr {
		if now.Sub(request.lastUpdated) > tmmbrTimeout {
			delete(r.tmmbr, requester)
			continue
		}
		candidates = append(candidates, request.item)
	}
	return candidates
}

func (r *receiveInformation) clearTMMBR() {
	r.tmmbr = make(map[uint32]tmmbrRequest)
}

// nackStats counts total and unique retransmission requests, where a request
// is unique when its sequence number is ahead of every previous one.
type nackStats struct {
	maxSequenceNumber uint16
	requests          uint32
	uniqueRequests    uint32
}

func (s *nackStats) reportRequest(sequenceNumber uint16) {
	if s.requests == 0 || isNewerSequenceNumber(sequenceNumber, s.maxSequenceNumber) {
		s.uniqueRequests++
		s.maxSequenceNumber = sequenceNumber
	}
	s.requests++
}

// isNewerSequenceNumber compares 16-bit RTP sequence numbers with wraparound.
func isNewerSequenceNumber(value, previous uint16) bool {
	return value != previous && value-previous < 0x8000
}

// cnameChange is a pending CNAMEChanged notification, delivered outside the
// state lock.
type cnameChange struct {
	ssrc  uint32
	cname string
}

// packetInformation aggregates everything observed while parsing one
// compound datagram. It is assembled under the state lock and consumed by
// the callback dispatch afterwards.
type packetInformation struct {
	packetTypeFlags packetTypeFlag

	remoteSSRC          uint32
	reportBlocks        []ReportBlock
	nackSequenceNumbers []uint16

	sliPictureID  uint8
	rpsiPictureID uint64

	receiverEstimatedMaxBitrate uint64

	// latest round-trip sample of the datagram, milliseconds
	rttMs int64

	xrOriginatorSSRC uint32

	transportFeedback *rtcp.TransportLayerCC

	cnameChanges []cnameChange

	// snapshot pushed to the packet type counter observer
	counter PacketTypeCounter
}
