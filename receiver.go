// Package rtcpreceiver implements the RTCP receive pipeline of a realtime
// RTP/RTCP endpoint: it ingests inbound compound RTCP datagrams, maintains
// per-peer statistics (round-trip time, loss, jitter, TMMBR bounding state,
// CNAMEs, XR timestamps), detects receiver-side liveness timeouts and
// dispatches domain events to the owning module and its observers.
package rtcpreceiver

import (
	"math"
	"sync"
	"time"

	"github.com/pion/logging"
	"github.com/pkg/errors"

	"github.com/pion/rtcpreceiver/pkg/ntp"
	"github.com/pion/rtcpreceiver/pkg/rtcp"
)

var errNoOwner = errors.New("rtcpreceiver: config must carry an Owner")

// Config collects the collaborators and settings of a Receiver. Owner is
// required; every observer is optional and skipped when nil.
type Config struct {
	// ReceiverOnly disables everything tied to a local sender: round-trip
	// derivation from report blocks, NACK and send-report-request
	// dispatch, and per-source statistics updates.
	ReceiverOnly bool

	// Owner is the module embedding this receiver.
	Owner Owner

	// Clock defaults to SystemClock().
	Clock Clock

	// LoggerFactory defaults to logging.NewDefaultLoggerFactory().
	LoggerFactory logging.LoggerFactory

	BandwidthObserver         BandwidthObserver
	IntraFrameObserver        IntraFrameObserver
	TransportFeedbackObserver TransportFeedbackObserver
	PacketTypeCounterObserver PacketTypeCounterObserver
}

// A Receiver parses inbound compound RTCP datagrams and keeps SSRC-keyed
// reception state. IncomingPacket may be called from a transport goroutine
// while the periodic and query methods run elsewhere; no observer callback
// is ever invoked while the internal state lock is held.
type Receiver struct {
	receiverOnly bool
	clock        Clock
	log          logging.LeveledLogger

	owner                     Owner
	bandwidthObserver         BandwidthObserver
	intraFrameObserver        IntraFrameObserver
	transportFeedbackObserver TransportFeedbackObserver
	packetTypeCounterObserver PacketTypeCounterObserver

	mu              sync.Mutex
	mainSSRC        uint32
	registeredSSRCs map[uint32]struct{}
	remoteSSRC      uint32

	remoteSenderInfo  SenderInfo
	lastReceivedSRNTP ntp.Time64

	remoteXRReceiveTimeInfo ReceiveTimeInfo
	lastReceivedXRNTP       ntp.Time64
	xrRRTRStatus            bool
	xrRRRTTMs               int64

	receivedInfoMap        map[uint32]*receiveInformation
	receivedReportBlockMap map[uint32]map[uint32]*reportBlockInformation
	receivedCnameMap       map[uint32]string

	lastReceivedRR              time.Time
	lastIncreasedSequenceNumber time.Time

	packetTypeCounter         PacketTypeCounter
	nackStats                 nackStats
	numSkippedPackets         uint32
	lastSkippedPacketsWarning time.Time

	feedbacksMu   sync.Mutex
	statsCallback StatisticsCallback
}

// NewReceiver builds a Receiver from config.
func NewReceiver(config *Config) (*Receiver, error) {
	if config.Owner == nil {
		return nil, errNoOwner
	}

	clock := config.Clock
	if clock == nil {
		clock = SystemClock()
	}
	loggerFactory := config.LoggerFactory
	if loggerFactory == nil {
		loggerFactory = logging.NewDefaultLoggerFactory()
	}

	return &Receiver{
		receiverOnly:              config.ReceiverOnly,
		clock:                     clock,
		log:                       loggerFactory.NewLogger("rtcpreceiver"),
		owner:                     config.Owner,
		bandwidthObserver:         config.BandwidthObserver,
		intraFrameObserver:        config.IntraFrameObserver,
		transportFeedbackObserver: config.TransportFeedbackObserver,
		packetTypeCounterObserver: config.PacketTypeCounterObserver,
		registeredSSRCs:           make(map[uint32]struct{}),
		receivedInfoMap:           make(map[uint32]*receiveInformation),
		receivedReportBlockMap:    make(map[uint32]map[uint32]*reportBlockInformation),
		receivedCnameMap:          make(map[uint32]string),
		lastSkippedPacketsWarning: clock.Now(),
	}, nil
}

// RegisterStatisticsCallback installs or replaces the statistics callback.
func (r *Receiver) RegisterStatisticsCallback(callback StatisticsCallback) {
	r.feedbacksMu.Lock()
	defer r.feedbacksMu.Unlock()
	r.statsCallback = callback
}

// SetSSRCs updates the local main SSRC and the full set of local SSRCs
// (retransmission and FEC variants included). Report blocks for other
// sources are ignored.
func (r *Receiver) SetSSRCs(mainSSRC uint32, registeredSSRCs []uint32) {
	r.mu.Lock()
	oldSSRC := r.mainSSRC
	r.mainSSRC = mainSSRC
	r.registeredSSRCs = make(map[uint32]struct{}, len(registeredSSRCs))
	for _, ssrc := range registeredSSRCs {
		r.registeredSSRCs[ssrc] = struct{}{}
	}
	r.mu.Unlock()

	if r.intraFrameObserver != nil && oldSSRC != mainSSRC {
		r.intraFrameObserver.OnLocalSSRCChanged(oldSSRC, mainSSRC)
	}
}

// SetRemoteSSRC designates the remote sender whose sender reports feed
// RemoteSenderInfo. Previously received sender information is discarded.
func (r *Receiver) SetRemoteSSRC(ssrc uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// a new SSRC resets old reports
	r.remoteSenderInfo = SenderInfo{}
	r.lastReceivedSRNTP = 0

	r.remoteSSRC = ssrc
}

// RemoteSSRC returns the designated remote sender SSRC.
func (r *Receiver) RemoteSSRC() uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.remoteSSRC
}

// SetXRRRTRStatus enables or disables round-trip derivation from XR DLRR
// report blocks.
func (r *Receiver) SetXRRRTRStatus(enable bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.xrRRTRStatus = enable
}

// IncomingPacket feeds one compound RTCP datagram into the receiver. It
// returns false when the datagram was rejected entirely; individual
// malformed blocks only increment the skip counter.
func (r *Receiver) IncomingPacket(packet []byte) bool {
	if len(packet) == 0 {
		r.log.Warn("incoming empty RTCP packet")
		return false
	}

	info, ok := r.parseCompoundPacket(packet)
	if !ok {
		return false
	}
	r.triggerCallbacks(info)
	return true
}

// parseCompoundPacket walks the datagram under the state lock, updating the
// SSRC tables and assembling the aggregate the dispatch phase consumes.
func (r *Receiver) parseCompoundPacket(packet []byte) (*packetInformation, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	info := &packetInformation{}

	blocks := 0
	s := rtcp.NewScanner(packet)
	for s.Scan() {
		blocks++
		if r.packetTypeCounter.FirstPacketTime.IsZero() {
			r.packetTypeCounter.FirstPacketTime = r.clock.Now()
		}

		h := s.Header()
		block := s.Bytes()
		switch h.Type {
		case rtcp.TypeSenderReport:
			r.handleSenderReport(block, info)
		case rtcp.TypeReceiverReport:
			r.handleReceiverReport(block, info)
		case rtcp.TypeSourceDescription:
			r.handleSDES(block, info)
		case rtcp.TypeGoodbye:
			r.handleBYE(block)
		case rtcp.TypeExtendedReport:
			r.handleXR(block, info)
		case rtcp.TypeTransportSpecificFeedback:
			switch h.Count {
			case rtcp.FormatTLN:
				r.handleNACK(block, info)
			case rtcp.FormatTMMBR:
				r.handleTMMBR(block, info)
			case rtcp.FormatTMMBN:
				r.handleTMMBN(block, info)
			case rtcp.FormatRRR:
				r.handleSRRequest(block, info)
			case rtcp.FormatTCC:
				r.handleTransportFeedback(block, info)
			default:
				r.numSkippedPackets++
			}
		case rtcp.TypePayloadSpecificFeedback:
			switch h.Count {
			case rtcp.FormatPLI:
				r.handlePLI(block, info)
			case rtcp.FormatSLI:
				r.handleSLI(block, info)
			case rtcp.FormatRPSI:
				r.handleRPSI(block, info)
			case rtcp.FormatFIR:
				r.handleFIR(block, info)
			case rtcp.FormatREMB:
				r.handleREMB(block, info)
			default:
				r.numSkippedPackets++
			}
		default:
			r.numSkippedPackets++
		}
	}

	if err := s.Err(); err != nil {
		if blocks == 0 {
			// nothing was extracted from this datagram
			r.log.Warnf("incoming invalid RTCP packet: %v", err)
			return nil, false
		}
		r.numSkippedPackets++
	}

	now := r.clock.Now()
	if now.Sub(r.lastSkippedPacketsWarning) >= maxWarningLogInterval && r.numSkippedPackets > 0 {
		r.lastSkippedPacketsWarning = now
		r.log.Warnf("%d RTCP blocks were skipped due to being malformed or of unrecognized/unsupported type, during the past %d second period",
			r.numSkippedPackets, maxWarningLogInterval/time.Second)
	}

	info.counter = r.packetTypeCounter
	return info, true
}

func (r *Receiver) getOrCreateReceiveInformation(remoteSSRC uint32) *receiveInformation {
	if receiveInfo, ok := r.receivedInfoMap[remoteSSRC]; ok {
		return receiveInfo
	}
	receiveInfo := newReceiveInformation()
	r.receivedInfoMap[remoteSSRC] = receiveInfo
	return receiveInfo
}

func (r *Receiver) getOrCreateReportBlockInformation(remoteSSRC, sourceSSRC uint32) *reportBlockInformation {
	remoteMap, ok := r.receivedReportBlockMap[sourceSSRC]
	if !ok {
		remoteMap = make(map[uint32]*reportBlockInformation)
		r.receivedReportBlockMap[sourceSSRC] = remoteMap
	}
	if rbi, ok := remoteMap[remoteSSRC]; ok {
		return rbi
	}
	rbi := &reportBlockInformation{}
	remoteMap[remoteSSRC] = rbi
	return rbi
}

func (r *Receiver) handleSenderReport(block []byte, info *packetInformation) {
	var senderReport rtcp.SenderReport
	if err := senderReport.Unmarshal(block); err != nil {
		r.numSkippedPackets++
		return
	}

	remoteSSRC := senderReport.SSRC
	info.remoteSSRC = remoteSSRC

	receiveInfo := r.getOrCreateReceiveInformation(remoteSSRC)

	if remoteSSRC == r.remoteSSRC {
		// only signal a received SR when it comes from the designated
		// remote sender
		info.packetTypeFlags |= flagSR

		r.remoteSenderInfo = SenderInfo{
			NTPSeconds:   uint32(senderReport.NTPTime >> 32),
			NTPFractions: uint32(senderReport.NTPTime),
			RTPTimestamp: senderReport.RTPTime,
			PacketCount:  senderReport.PacketCount,
			OctetCount:   senderReport.OctetCount,
		}
		r.lastReceivedSRNTP = ntp.FromTime(r.clock.Now())
	} else {
		// the send report of one source only, but the receive blocks of
		// every source
		info.packetTypeFlags |= flagRR
	}

	receiveInfo.lastTimeReceived = r.clock.Now()

	for _, reportBlock := range senderReport.Reports {
		r.handleReportBlock(reportBlock, info, remoteSSRC)
	}
}

func (r *Receiver) handleReceiverReport(block []byte, info *packetInformation) {
	var receiverReport rtcp.ReceiverReport
	if err := receiverReport.Unmarshal(block); err != nil {
		r.numSkippedPackets++
		return
	}

	remoteSSRC := receiverReport.SSRC
	info.remoteSSRC = remoteSSRC

	receiveInfo := r.getOrCreateReceiveInformation(remoteSSRC)

	info.packetTypeFlags |= flagRR

	receiveInfo.lastTimeReceived = r.clock.Now()

	for _, reportBlock := range receiverReport.Reports {
		r.handleReportBlock(reportBlock, info, remoteSSRC)
	}
}

func (r *Receiver) handleReportBlock(reportBlock rtcp.ReceptionReport, info *packetInformation, remoteSSRC uint32) {
	// filter out all report blocks that are not about one of our sources
	if _, ok := r.registeredSSRCs[reportBlock.SSRC]; !ok {
		return
	}

	rbi := r.getOrCreateReportBlockInformation(remoteSSRC, reportBlock.SSRC)

	now := r.clock.Now()
	r.lastReceivedRR = now

	if reportBlock.LastSequenceNumber > rbi.reportBlock.ExtendedHighSeqNum {
		// new RTP packets were delivered to the remote side after its
		// previous report
		r.lastIncreasedSequenceNumber = now
	}

	rbi.reportBlock = ReportBlock{
		RemoteSSRC:         remoteSSRC,
		SourceSSRC:         reportBlock.SSRC,
		FractionLost:       reportBlock.FractionLost,
		CumulativeLost:     reportBlock.TotalLost,
		ExtendedHighSeqNum: reportBlock.LastSequenceNumber,
		Jitter:             reportBlock.Jitter,
		LastSR:             reportBlock.LastSenderReport,
		DelaySinceLastSR:   reportBlock.Delay,
	}

	if reportBlock.Jitter > rbi.maxJitter {
		rbi.maxJitter = reportBlock.Jitter
	}

	// RFC 3550 6.4.1: the LSR field is zero when no SR has been received
	// yet, in which case no round trip can be derived.
	if !r.receiverOnly && reportBlock.LastSenderReport != 0 {
		receiveTime := ntp.FromTime(now).Compact()
		rttNTP := uint32(receiveTime) - reportBlock.Delay - reportBlock.LastSenderReport
		rbi.addRTTSample(ntp.Time32(rttNTP).Milliseconds())
	}

	info.rttMs = rbi.rttMs
	info.reportBlocks = append(info.reportBlocks, rbi.reportBlock)
}

func (r *Receiver) handleSDES(block []byte, info *packetInformation) {
	var sdes rtcp.SourceDescription
	if err := sdes.Unmarshal(block); err != nil {
		r.numSkippedPackets++
		return
	}

	for _, chunk := range sdes.Chunks {
		for _, item := range chunk.Items {
			if item.Type != rtcp.SDESCNAME {
				continue
			}
			cname := item.Text
			if len(cname) > cnameMaxLength {
				cname = cname[:cnameMaxLength]
			}
			r.receivedCnameMap[chunk.Source] = cname
			info.cnameChanges = append(info.cnameChanges, cnameChange{ssrc: chunk.Source, cname: cname})
		}
	}
	info.packetTypeFlags |= flagSDES
}

func (r *Receiver) handleBYE(block []byte) {
	var bye rtcp.Goodbye
	if err := bye.Unmarshal(block); err != nil {
		r.numSkippedPackets++
		return
	}
	if len(bye.Sources) == 0 {
		return
	}
	senderSSRC := bye.Sources[0]

	// forget every report block this remote sent us
	for _, remoteMap := range r.receivedReportBlockMap {
		delete(remoteMap, senderSSRC)
	}

	// the receive information cannot go yet, the TMMBR bounding set may
	// still need it until the next timer sweep
	if receiveInfo, ok := r.receivedInfoMap[senderSSRC]; ok {
		receiveInfo.readyForDelete = true
	}

	delete(r.receivedCnameMap, senderSSRC)
	r.xrRRRTTMs = 0
}

func (r *Receiver) handleXR(block []byte, info *packetInformation) {
	var xr rtcp.ExtendedReport
	if err := xr.Unmarshal(block); err != nil {
		r.numSkippedPackets++
		return
	}

	info.xrOriginatorSSRC = xr.SenderSSRC
	for _, rrtr := range xr.ReferenceTimes {
		r.handleXRReceiverReferenceTime(rrtr, info)
	}
	for _, dlrr := range xr.DLRRBlocks {
		for _, report := range dlrr.Reports {
			r.handleXRDLRRReport(report, info)
		}
	}
}

func (r *Receiver) handleXRReceiverReferenceTime(rrtr rtcp.ReceiverReferenceTimeReportBlock, info *packetInformation) {
	r.remoteXRReceiveTimeInfo.SourceSSRC = info.xrOriginatorSSRC
	r.remoteXRReceiveTimeInfo.LastRR = uint32(ntp.Time64(rrtr.NTPTimestamp).Compact())

	r.lastReceivedXRNTP = ntp.FromTime(r.clock.Now())

	info.packetTypeFlags |= flagXRReceiverReferenceTime
}

func (r *Receiver) handleXRDLRRReport(report rtcp.DLRRReport, info *packetInformation) {
	if _, ok := r.registeredSSRCs[report.SSRC]; !ok { // not to us
		return
	}

	info.packetTypeFlags |= flagXRDLRRReportBlock

	// round-trip derivation from extended reports must be enabled
	// explicitly
	if !r.xrRRTRStatus {
		return
	}

	// RFC 3611 4.5: the LRR field is zero when no receiver reference time
	// block has been received yet
	if report.LastRR == 0 {
		return
	}

	now := ntp.FromTime(r.clock.Now()).Compact()
	rttNTP := uint32(now) - report.DLRR - report.LastRR
	r.xrRRRTTMs = ntp.Time32(rttNTP).Milliseconds()
}

func (r *Receiver) handleNACK(block []byte, info *packetInformation) {
	var nack rtcp.TransportLayerNack
	if err := nack.Unmarshal(block); err != nil {
		r.numSkippedPackets++
		return
	}

	if r.receiverOnly || r.mainSSRC != nack.MediaSSRC { // not to us
		return
	}

	var sequenceNumbers []uint16
	for _, pair := range nack.Nacks {
		sequenceNumbers = append(sequenceNumbers, pair.PacketList()...)
	}
	if len(sequenceNumbers) == 0 {
		return
	}

	info.nackSequenceNumbers = sequenceNumbers
	for _, sequenceNumber := range sequenceNumbers {
		r.nackStats.reportRequest(sequenceNumber)
	}

	info.packetTypeFlags |= flagNack
	r.packetTypeCounter.NackPackets++
	r.packetTypeCounter.NackRequests = r.nackStats.requests
	r.packetTypeCounter.UniqueNackRequests = r.nackStats.uniqueRequests
}

func (r *Receiver) handlePLI(block []byte, info *packetInformation) {
	var pli rtcp.PictureLossIndication
	if err := pli.Unmarshal(block); err != nil {
		r.numSkippedPackets++
		return
	}

	if r.mainSSRC != pli.MediaSSRC { // not to us
		return
	}

	r.packetTypeCounter.PliPackets++
	// the remote side needs a new key frame
	info.packetTypeFlags |= flagPLI
}

func (r *Receiver) handleSLI(block []byte, info *packetInformation) {
	var sli rtcp.SliceLossIndication
	if err := sli.Unmarshal(block); err != nil {
		r.numSkippedPackets++
		return
	}

	for _, entry := range sli.SLI {
		// in theory multiple slices can be lost; the last one wins
		info.packetTypeFlags |= flagSLI
		info.sliPictureID = entry.Picture
	}
}

func (r *Receiver) handleRPSI(block []byte, info *packetInformation) {
	var rpsi rtcp.ReferencePictureSelectionIndication
	if err := rpsi.Unmarshal(block); err != nil {
		r.numSkippedPackets++
		return
	}

	// the remote side confirmed a reference picture
	info.packetTypeFlags |= flagRPSI
	info.rpsiPictureID = rpsi.PictureID
}

func (r *Receiver) handleFIR(block []byte, info *packetInformation) {
	var fir rtcp.FullIntraRequest
	if err := fir.Unmarshal(block); err != nil {
		r.numSkippedPackets++
		return
	}

	for _, request := range fir.FIR {
		// is it our sender that is asked for a new key frame
		if r.mainSSRC != request.SSRC {
			continue
		}

		r.packetTypeCounter.FirPackets++

		// a first FIR from an unknown requester always passes the
		// debounce below, its command sequence number cannot match
		receiveInfo := r.getOrCreateReceiveInformation(fir.SenderSSRC)

		now := r.clock.Now()
		if int16(request.SequenceNumber) == receiveInfo.lastFIRSequenceNumber &&
			now.Sub(receiveInfo.lastFIRRequest) <= minFIRInterval {
			// same command repeated too soon
			continue
		}
		receiveInfo.lastFIRRequest = now
		receiveInfo.lastFIRSequenceNumber = int16(request.SequenceNumber)
		info.packetTypeFlags |= flagFIR
	}
}

func (r *Receiver) handleTMMBR(block []byte, info *packetInformation) {
	var tmmbr rtcp.TemporaryMaximumMediaStreamBitRateRequest
	if err := tmmbr.Unmarshal(block); err != nil {
		r.numSkippedPackets++
		return
	}

	receiveInfo := r.receivedInfoMap[tmmbr.SenderSSRC]
	if receiveInfo == nil { // this remote SSRC must be known already
		return
	}

	requesterSSRC := tmmbr.SenderSSRC
	if tmmbr.MediaSSRC != 0 {
		// the media SSRC SHOULD be 0 when equal to the sender SSRC, but
		// carries the requester in relay mode
		requesterSSRC = tmmbr.MediaSSRC
	}

	for _, request := range tmmbr.Requests {
		if request.SSRC == r.mainSSRC && request.BitrateBPS > 0 {
			receiveInfo.insertTMMBRItem(requesterSSRC, request, r.clock.Now())
			info.packetTypeFlags |= flagTMMBR
		}
	}
}

func (r *Receiver) handleTMMBN(block []byte, info *packetInformation) {
	var tmmbn rtcp.TemporaryMaximumMediaStreamBitRateNotification
	if err := tmmbn.Unmarshal(block); err != nil {
		r.numSkippedPackets++
		return
	}

	receiveInfo := r.receivedInfoMap[tmmbn.SenderSSRC]
	if receiveInfo == nil { // this remote SSRC must be known already
		return
	}

	info.packetTypeFlags |= flagTMMBN

	receiveInfo.tmmbn = tmmbn.Notifications
}

func (r *Receiver) handleSRRequest(block []byte, info *packetInformation) {
	var request rtcp.RapidResynchronizationRequest
	if err := request.Unmarshal(block); err != nil {
		r.numSkippedPackets++
		return
	}

	info.packetTypeFlags |= flagSRReq
}

func (r *Receiver) handleREMB(block []byte, info *packetInformation) {
	var remb rtcp.ReceiverEstimatedMaximumBitrate
	if err := remb.Unmarshal(block); err != nil {
		r.numSkippedPackets++
		return
	}

	info.packetTypeFlags |= flagREMB
	info.receiverEstimatedMaxBitrate = remb.Bitrate
}

func (r *Receiver) handleTransportFeedback(block []byte, info *packetInformation) {
	feedback := &rtcp.TransportLayerCC{}
	if err := feedback.Unmarshal(block); err != nil {
		r.numSkippedPackets++
		return
	}

	info.packetTypeFlags |= flagTransportFeedback
	info.transportFeedback = feedback
}

// triggerCallbacks consumes the aggregate assembled by parseCompoundPacket
// and fires the observers, holding no state lock.
func (r *Receiver) triggerCallbacks(info *packetInformation) {
	// process TMMBR first so a datagram carrying both TMMBR and a report
	// causes at most one bandwidth change
	if info.packetTypeFlags&flagTMMBR != 0 {
		r.updateTMMBR()
	}

	r.mu.Lock()
	localSSRC := r.mainSSRC
	registeredSSRCs := make(map[uint32]struct{}, len(r.registeredSSRCs))
	for ssrc := range r.registeredSSRCs {
		registeredSSRCs[ssrc] = struct{}{}
	}
	r.mu.Unlock()

	if !r.receiverOnly && info.packetTypeFlags&flagSRReq != 0 {
		r.owner.OnRequestSendReport()
	}
	if !r.receiverOnly && info.packetTypeFlags&flagNack != 0 && len(info.nackSequenceNumbers) > 0 {
		r.log.Tracef("incoming NACK length: %d", len(info.nackSequenceNumbers))
		r.owner.OnReceivedNack(info.nackSequenceNumbers)
	}

	if r.intraFrameObserver != nil {
		if info.packetTypeFlags&(flagPLI|flagFIR) != 0 {
			if info.packetTypeFlags&flagPLI != 0 {
				r.log.Tracef("incoming PLI from SSRC %d", info.remoteSSRC)
			} else {
				r.log.Tracef("incoming FIR from SSRC %d", info.remoteSSRC)
			}
			r.intraFrameObserver.OnReceivedIntraFrameRequest(localSSRC)
		}
		if info.packetTypeFlags&flagSLI != 0 {
			r.intraFrameObserver.OnReceivedSLI(localSSRC, info.sliPictureID)
		}
		if info.packetTypeFlags&flagRPSI != 0 {
			r.intraFrameObserver.OnReceivedRPSI(localSSRC, info.rpsiPictureID)
		}
	}

	if r.bandwidthObserver != nil {
		if info.packetTypeFlags&flagREMB != 0 {
			r.log.Tracef("incoming REMB: %d", info.receiverEstimatedMaxBitrate)
			r.bandwidthObserver.OnReceivedEstimatedBitrate(info.receiverEstimatedMaxBitrate)
		}
		if info.packetTypeFlags&(flagSR|flagRR) != 0 {
			r.bandwidthObserver.OnReceivedRTCPReceiverReport(info.reportBlocks, info.rttMs, r.clock.Now())
		}
	}

	if info.packetTypeFlags&(flagSR|flagRR) != 0 {
		r.owner.OnReceivedRTCPReportBlocks(info.reportBlocks)
	}

	if r.transportFeedbackObserver != nil && info.packetTypeFlags&flagTransportFeedback != 0 {
		mediaSSRC := info.transportFeedback.MediaSSRC
		_, registered := registeredSSRCs[mediaSSRC]
		if mediaSSRC == localSSRC || registered {
			r.transportFeedbackObserver.OnTransportFeedback(info.transportFeedback)
		}
	}

	r.feedbacksMu.Lock()
	if r.statsCallback != nil {
		for _, change := range info.cnameChanges {
			r.statsCallback.CNAMEChanged(change.cname, change.ssrc)
		}
		if !r.receiverOnly {
			for _, reportBlock := range info.reportBlocks {
				r.statsCallback.StatisticsUpdated(Statistics{
					FractionLost:              reportBlock.FractionLost,
					CumulativeLost:            reportBlock.CumulativeLost,
					ExtendedMaxSequenceNumber: reportBlock.ExtendedHighSeqNum,
					Jitter:                    reportBlock.Jitter,
				}, reportBlock.SourceSSRC)
			}
		}
	}
	r.feedbacksMu.Unlock()

	if r.packetTypeCounterObserver != nil {
		r.packetTypeCounterObserver.RTCPPacketTypesCounterUpdated(localSSRC, info.counter)
	}
}

// updateTMMBR recomputes the bounding set from every active TMMBR candidate,
// reports the resulting minimum bitrate and hands the set to the owner for
// TMMBN echoing.
func (r *Receiver) updateTMMBR() {
	boundingSet := findBoundingSet(r.TmmbrReceived())

	if len(boundingSet) > 0 && r.bandwidthObserver != nil {
		// a new bandwidth limit on this channel
		if bitrate := minBitrateBPS(boundingSet); bitrate <= math.MaxUint32 {
			r.bandwidthObserver.OnReceivedEstimatedBitrate(bitrate)
		}
	}

	// inform remote endpoints about the new limit
	r.owner.SetTMMBN(boundingSet)
}

// TmmbrReceived collects the active (non-expired) TMMBR candidates across
// every known remote sender.
func (r *Receiver) TmmbrReceived() []rtcp.TMMBItem {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock.Now()
	var candidates []rtcp.TMMBItem
	for _, receiveInfo := range r.receivedInfoMap {
		candidates = receiveInfo.activeTMMBRItems(now, candidates)
	}
	return candidates
}

// BoundingSet returns the TMMBN bounding set most recently received from the
// designated remote sender, along with whether the local main SSRC owns an
// entry in it.
func (r *Receiver) BoundingSet() (bool, []rtcp.TMMBItem) {
	r.mu.Lock()
	defer r.mu.Unlock()

	receiveInfo, ok := r.receivedInfoMap[r.remoteSSRC]
	if !ok {
		return false, nil
	}

	boundingSet := make([]rtcp.TMMBItem, len(receiveInfo.tmmbn))
	copy(boundingSet, receiveInfo.tmmbn)
	return isTMMBNOwner(boundingSet, r.mainSSRC), boundingSet
}
