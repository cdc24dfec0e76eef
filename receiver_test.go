package rtcpreceiver

import (
	"sync"
	"testing"
	"time"

	"github.com/pion/randutil"
	"github.com/pion/transport/v4/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pion/rtcpreceiver/pkg/rtcp"
)

const (
	testMainSSRC   = 0xAAAAAAAA
	testRemoteSSRC = 0xBBBBBBBB
)

var ntpEpoch = time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC)

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func newManualClock(start time.Time) *manualClock {
	return &manualClock{now: start}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type mockOwner struct {
	mu                 sync.Mutex
	tmmbnSets          [][]rtcp.TMMBItem
	sendReportRequests int
	nacks              [][]uint16
	reportBlockCalls   [][]ReportBlock
	calls              *callLog
}

func (o *mockOwner) SetTMMBN(boundingSet []rtcp.TMMBItem) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.tmmbnSets = append(o.tmmbnSets, boundingSet)
}

func (o *mockOwner) OnRequestSendReport() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sendReportRequests++
}

func (o *mockOwner) OnReceivedNack(sequenceNumbers []uint16) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.nacks = append(o.nacks, sequenceNumbers)
}

func (o *mockOwner) OnReceivedRTCPReportBlocks(reportBlocks []ReportBlock) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.reportBlockCalls = append(o.reportBlockCalls, reportBlocks)
	o.calls.record("owner.ReportBlocks")
}

// callLog records cross-observer invocation order.
type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) record(call string) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, call)
}

func (l *callLog) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string{}, l.calls...)
}

type mockBandwidthObserver struct {
	mu       sync.Mutex
	bitrates []uint64
	reports  []struct {
		blocks []ReportBlock
		rttMs  int64
	}
	calls *callLog
}

func (o *mockBandwidthObserver) OnReceivedEstimatedBitrate(bitrateBPS uint64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.bitrates = append(o.bitrates, bitrateBPS)
	o.calls.record("bandwidth.EstimatedBitrate")
}

func (o *mockBandwidthObserver) OnReceivedRTCPReceiverReport(reportBlocks []ReportBlock, rttMs int64, _ time.Time) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.reports = append(o.reports, struct {
		blocks []ReportBlock
		rttMs  int64
	}{reportBlocks, rttMs})
	o.calls.record("bandwidth.ReceiverReport")
}

type mockIntraFrameObserver struct {
	mu                 sync.Mutex
	intraFrameRequests []uint32
	slis               []uint8
	rpsis              []uint64
	ssrcChanges        [][2]uint32

	onIntraFrame func(ssrc uint32)
}

func (o *mockIntraFrameObserver) OnReceivedIntraFrameRequest(ssrc uint32) {
	o.mu.Lock()
	o.intraFrameRequests = append(o.intraFrameRequests, ssrc)
	callback := o.onIntraFrame
	o.mu.Unlock()
	if callback != nil {
		callback(ssrc)
	}
}

func (o *mockIntraFrameObserver) OnReceivedSLI(_ uint32, pictureID uint8) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.slis = append(o.slis, pictureID)
}

func (o *mockIntraFrameObserver) OnReceivedRPSI(_ uint32, pictureID uint64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.rpsis = append(o.rpsis, pictureID)
}

func (o *mockIntraFrameObserver) OnLocalSSRCChanged(oldSSRC, newSSRC uint32) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.ssrcChanges = append(o.ssrcChanges, [2]uint32{oldSSRC, newSSRC})
}

type mockTransportFeedbackObserver struct {
	mu        sync.Mutex
	feedbacks []*rtcp.TransportLayerCC
}

func (o *mockTransportFeedbackObserver) OnTransportFeedback(feedback *rtcp.TransportLayerCC) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.feedbacks = append(o.feedbacks, feedback)
}

type mockStatsCallback struct {
	mu     sync.Mutex
	stats  map[uint32]Statistics
	cnames map[uint32]string
}

func (o *mockStatsCallback) StatisticsUpdated(stats Statistics, ssrc uint32) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.stats == nil {
		o.stats = make(map[uint32]Statistics)
	}
	o.stats[ssrc] = stats
}

func (o *mockStatsCallback) CNAMEChanged(cname string, ssrc uint32) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.cnames == nil {
		o.cnames = make(map[uint32]string)
	}
	o.cnames[ssrc] = cname
}

type mockCounterObserver struct {
	mu      sync.Mutex
	counter PacketTypeCounter
}

func (o *mockCounterObserver) RTCPPacketTypesCounterUpdated(_ uint32, counter PacketTypeCounter) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.counter = counter
}

type testEnv struct {
	receiver  *Receiver
	clock     *manualClock
	owner     *mockOwner
	bandwidth *mockBandwidthObserver
	intra     *mockIntraFrameObserver
	transport *mockTransportFeedbackObserver
	counter   *mockCounterObserver
	stats     *mockStatsCallback
	calls     *callLog
}

func newTestEnv(t *testing.T, start time.Time, receiverOnly bool) *testEnv {
	t.Helper()

	calls := &callLog{}
	env := &testEnv{
		clock:     newManualClock(start),
		owner:     &mockOwner{calls: calls},
		bandwidth: &mockBandwidthObserver{calls: calls},
		intra:     &mockIntraFrameObserver{},
		transport: &mockTransportFeedbackObserver{},
		counter:   &mockCounterObserver{},
		stats:     &mockStatsCallback{},
		calls:     calls,
	}

	receiver, err := NewReceiver(&Config{
		ReceiverOnly:              receiverOnly,
		Owner:                     env.owner,
		Clock:                     env.clock,
		BandwidthObserver:         env.bandwidth,
		IntraFrameObserver:        env.intra,
		TransportFeedbackObserver: env.transport,
		PacketTypeCounterObserver: env.counter,
	})
	require.NoError(t, err)

	receiver.RegisterStatisticsCallback(env.stats)
	receiver.SetSSRCs(testMainSSRC, []uint32{testMainSSRC})
	receiver.SetRemoteSSRC(testRemoteSSRC)

	env.receiver = receiver
	return env
}

type marshaler interface {
	Marshal() ([]byte, error)
}

func marshal(t *testing.T, p marshaler) []byte {
	t.Helper()
	data, err := p.Marshal()
	require.NoError(t, err)
	return data
}

func TestNewReceiverRequiresOwner(t *testing.T) {
	_, err := NewReceiver(&Config{})
	assert.Error(t, err)
}

// A sender report from the designated remote sender yields its sender info
// and a round trip derived from LSR/DLSR against the local compact NTP time.
func TestSenderReportComputesRTT(t *testing.T) {
	// local compact NTP at arrival is 0x00010000
	env := newTestEnv(t, ntpEpoch.Add(65537*time.Second), false)

	sr := rtcp.SenderReport{
		SSRC:        testRemoteSSRC,
		NTPTime:     3000000 << 32,
		RTPTime:     160000,
		PacketCount: 100,
		OctetCount:  16000,
		Reports: []rtcp.ReceptionReport{{
			SSRC:               testMainSSRC,
			FractionLost:       5,
			TotalLost:          42,
			LastSequenceNumber: 12345,
			Jitter:             7,
			LastSenderReport:   0x80000000,
			Delay:              0x00010000,
		}},
	}

	assert.True(t, env.receiver.IncomingPacket(marshal(t, sr)))

	// rtt_ntp = 0x00010000 - 0x00010000 - 0x80000000 = 0x80000000 mod 2^32
	wantRTT := (int64(0x80000000)*1000 + 0x8000) >> 16

	rtt, avgRTT, minRTT, maxRTT, ok := env.receiver.RTT(testRemoteSSRC)
	require.True(t, ok)
	assert.Equal(t, wantRTT, rtt)
	assert.Equal(t, wantRTT, avgRTT)
	assert.Equal(t, wantRTT, minRTT)
	assert.Equal(t, wantRTT, maxRTT)
	assert.Positive(t, rtt)

	senderInfo, ok := env.receiver.SenderInfoReceived()
	require.True(t, ok)
	assert.Equal(t, uint32(100), senderInfo.PacketCount)
	assert.Equal(t, uint32(16000), senderInfo.OctetCount)
	assert.Equal(t, uint32(3000000), senderInfo.NTPSeconds)

	remoteNTP, arrivalNTP, rtpTimestamp := env.receiver.NTP()
	assert.Equal(t, uint32(3000000), remoteNTP.Seconds())
	assert.Equal(t, uint32(65537), arrivalNTP.Seconds())
	assert.Equal(t, uint32(160000), rtpTimestamp)
}

// Two receiver reports from the same remote produce a running mean and
// min/max envelope of the round trip samples.
func TestTwoReceiverReportsRunningMean(t *testing.T) {
	// local compact NTP is 100 << 16
	env := newTestEnv(t, ntpEpoch.Add(100*time.Second), false)
	compactNow := uint32(100 << 16)

	rr := func(rttNTP uint32) rtcp.ReceiverReport {
		return rtcp.ReceiverReport{
			SSRC: testRemoteSSRC,
			Reports: []rtcp.ReceptionReport{{
				SSRC:             testMainSSRC,
				LastSenderReport: compactNow - rttNTP,
			}},
		}
	}

	assert.True(t, env.receiver.IncomingPacket(marshal(t, rr(6554))))  // ~100 ms
	assert.True(t, env.receiver.IncomingPacket(marshal(t, rr(19661)))) // ~300 ms

	rtt, avgRTT, minRTT, maxRTT, ok := env.receiver.RTT(testRemoteSSRC)
	require.True(t, ok)
	assert.Equal(t, int64(300), rtt)
	assert.Equal(t, int64(200), avgRTT)
	assert.Equal(t, int64(100), minRTT)
	assert.Equal(t, int64(300), maxRTT)
}

// In receiver-only mode no round trip is derived from report blocks.
func TestReceiverOnlySkipsRTT(t *testing.T) {
	env := newTestEnv(t, ntpEpoch.Add(100*time.Second), true)

	rr := rtcp.ReceiverReport{
		SSRC: testRemoteSSRC,
		Reports: []rtcp.ReceptionReport{{
			SSRC:             testMainSSRC,
			LastSenderReport: 1,
		}},
	}
	assert.True(t, env.receiver.IncomingPacket(marshal(t, rr)))

	rtt, _, _, _, ok := env.receiver.RTT(testRemoteSSRC)
	require.True(t, ok)
	assert.Zero(t, rtt)
}

// An SR from a non-designated remote is harvested as if it were an RR: its
// report blocks count, its sender info does not.
func TestSenderReportFromOtherRemote(t *testing.T) {
	env := newTestEnv(t, ntpEpoch.Add(100*time.Second), false)

	sr := rtcp.SenderReport{
		SSRC:        0xCCCCCCCC,
		NTPTime:     1 << 32,
		PacketCount: 77,
		Reports:     []rtcp.ReceptionReport{{SSRC: testMainSSRC}},
	}
	assert.True(t, env.receiver.IncomingPacket(marshal(t, sr)))

	_, ok := env.receiver.SenderInfoReceived()
	assert.False(t, ok)

	env.owner.mu.Lock()
	defer env.owner.mu.Unlock()
	require.Len(t, env.owner.reportBlockCalls, 1)
	assert.Equal(t, uint32(0xCCCCCCCC), env.owner.reportBlockCalls[0][0].RemoteSSRC)
}

// Replaying a byte-identical SR with no clock advance leaves the sender info
// unchanged.
func TestSenderReportReplayIsIdempotent(t *testing.T) {
	env := newTestEnv(t, ntpEpoch.Add(65537*time.Second), false)

	sr := rtcp.SenderReport{
		SSRC:        testRemoteSSRC,
		NTPTime:     3000000 << 32,
		RTPTime:     160000,
		PacketCount: 100,
		OctetCount:  16000,
	}
	data := marshal(t, sr)

	assert.True(t, env.receiver.IncomingPacket(data))
	first, ok := env.receiver.SenderInfoReceived()
	require.True(t, ok)

	assert.True(t, env.receiver.IncomingPacket(data))
	second, ok := env.receiver.SenderInfoReceived()
	require.True(t, ok)
	assert.Equal(t, first, second)
}

// SetRemoteSSRC discards sender info until the next SR from the new remote.
func TestSetRemoteSSRCResetsSenderInfo(t *testing.T) {
	env := newTestEnv(t, ntpEpoch.Add(65537*time.Second), false)

	sr := rtcp.SenderReport{SSRC: testRemoteSSRC, NTPTime: 1 << 32, PacketCount: 1}
	assert.True(t, env.receiver.IncomingPacket(marshal(t, sr)))
	_, ok := env.receiver.SenderInfoReceived()
	require.True(t, ok)

	env.receiver.SetRemoteSSRC(0xDDDDDDDD)
	_, ok = env.receiver.SenderInfoReceived()
	assert.False(t, ok)
	assert.Equal(t, uint32(0xDDDDDDDD), env.receiver.RemoteSSRC())
}

func TestNackDispatch(t *testing.T) {
	env := newTestEnv(t, ntpEpoch.Add(100*time.Second), false)
	env.receiver.SetSSRCs(1, []uint32{1})

	nack := rtcp.TransportLayerNack{
		SenderSSRC: 2,
		MediaSSRC:  1,
		Nacks:      []rtcp.NackPair{{PacketID: 10, LostPackets: 0x2}},
	}
	assert.True(t, env.receiver.IncomingPacket(marshal(t, nack)))

	env.owner.mu.Lock()
	require.Len(t, env.owner.nacks, 1)
	assert.Equal(t, []uint16{10, 12}, env.owner.nacks[0])
	env.owner.mu.Unlock()

	env.counter.mu.Lock()
	assert.Equal(t, uint32(1), env.counter.counter.NackPackets)
	assert.Equal(t, uint32(2), env.counter.counter.NackRequests)
	assert.Equal(t, uint32(2), env.counter.counter.UniqueNackRequests)
	env.counter.mu.Unlock()
}

// A NACK whose media SSRC is not ours is silently dropped.
func TestNackNotForUs(t *testing.T) {
	env := newTestEnv(t, ntpEpoch.Add(100*time.Second), false)

	nack := rtcp.TransportLayerNack{
		SenderSSRC: 2,
		MediaSSRC:  0x12345678,
		Nacks:      []rtcp.NackPair{{PacketID: 10}},
	}
	assert.True(t, env.receiver.IncomingPacket(marshal(t, nack)))

	env.owner.mu.Lock()
	defer env.owner.mu.Unlock()
	assert.Empty(t, env.owner.nacks)
}

func TestFIRDebounce(t *testing.T) {
	env := newTestEnv(t, ntpEpoch.Add(100*time.Second), false)

	fir := func(seq uint8) []byte {
		return marshal(t, rtcp.FullIntraRequest{
			SenderSSRC: 2,
			FIR:        []rtcp.FIREntry{{SSRC: testMainSSRC, SequenceNumber: seq}},
		})
	}

	assert.True(t, env.receiver.IncomingPacket(fir(7)))
	env.clock.Advance(50 * time.Millisecond)
	// same command sequence number, repeated too soon
	assert.True(t, env.receiver.IncomingPacket(fir(7)))

	env.intra.mu.Lock()
	assert.Len(t, env.intra.intraFrameRequests, 1)
	env.intra.mu.Unlock()

	assert.True(t, env.receiver.IncomingPacket(fir(8)))

	env.intra.mu.Lock()
	assert.Len(t, env.intra.intraFrameRequests, 2)
	env.intra.mu.Unlock()

	env.counter.mu.Lock()
	assert.Equal(t, uint32(3), env.counter.counter.FirPackets)
	env.counter.mu.Unlock()
}

func TestPLIDispatch(t *testing.T) {
	env := newTestEnv(t, ntpEpoch.Add(100*time.Second), false)

	pli := rtcp.PictureLossIndication{SenderSSRC: 2, MediaSSRC: testMainSSRC}
	assert.True(t, env.receiver.IncomingPacket(marshal(t, pli)))

	env.intra.mu.Lock()
	assert.Equal(t, []uint32{testMainSSRC}, env.intra.intraFrameRequests)
	env.intra.mu.Unlock()

	env.counter.mu.Lock()
	assert.Equal(t, uint32(1), env.counter.counter.PliPackets)
	env.counter.mu.Unlock()

	// not addressed to us
	other := rtcp.PictureLossIndication{SenderSSRC: 2, MediaSSRC: 99}
	assert.True(t, env.receiver.IncomingPacket(marshal(t, other)))

	env.intra.mu.Lock()
	assert.Len(t, env.intra.intraFrameRequests, 1)
	env.intra.mu.Unlock()
}

func TestSLIAndRPSIDispatch(t *testing.T) {
	env := newTestEnv(t, ntpEpoch.Add(100*time.Second), false)

	sli := rtcp.SliceLossIndication{
		SenderSSRC: 2,
		MediaSSRC:  testMainSSRC,
		SLI:        []rtcp.SLIEntry{{First: 1, Number: 2, Picture: 9}},
	}
	assert.True(t, env.receiver.IncomingPacket(marshal(t, sli)))

	rpsi := rtcp.ReferencePictureSelectionIndication{
		SenderSSRC:  2,
		MediaSSRC:   testMainSSRC,
		PayloadType: 96,
		PictureID:   42,
	}
	assert.True(t, env.receiver.IncomingPacket(marshal(t, rpsi)))

	env.intra.mu.Lock()
	defer env.intra.mu.Unlock()
	assert.Equal(t, []uint8{9}, env.intra.slis)
	assert.Equal(t, []uint64{42}, env.intra.rpsis)
}

func TestByeRemovesStateAndSweepErases(t *testing.T) {
	env := newTestEnv(t, ntpEpoch.Add(65537*time.Second), false)

	sr := rtcp.SenderReport{
		SSRC:    testRemoteSSRC,
		NTPTime: 1 << 32,
		Reports: []rtcp.ReceptionReport{{SSRC: testMainSSRC}},
	}
	sdes := rtcp.SourceDescription{
		Chunks: []rtcp.SourceDescriptionChunk{{
			Source: testRemoteSSRC,
			Items:  []rtcp.SourceDescriptionItem{{Type: rtcp.SDESCNAME, Text: "remote@host"}},
		}},
	}
	assert.True(t, env.receiver.IncomingPacket(marshal(t, sr)))
	assert.True(t, env.receiver.IncomingPacket(marshal(t, sdes)))

	cname, ok := env.receiver.CNAME(testRemoteSSRC)
	require.True(t, ok)
	assert.Equal(t, "remote@host", cname)
	assert.Len(t, env.receiver.StatisticsReceived(), 1)

	bye := rtcp.Goodbye{Sources: []uint32{testRemoteSSRC}}
	assert.True(t, env.receiver.IncomingPacket(marshal(t, bye)))

	_, ok = env.receiver.CNAME(testRemoteSSRC)
	assert.False(t, ok)
	assert.Empty(t, env.receiver.StatisticsReceived())
	// the receive information is tombstoned but still present
	assert.False(t, env.receiver.LastReceivedReceiverReport().IsZero())

	env.receiver.UpdateReceiveInformationTimers()
	assert.True(t, env.receiver.LastReceivedReceiverReport().IsZero())

	// a new SR recreates the entry
	assert.True(t, env.receiver.IncomingPacket(marshal(t, sr)))
	assert.False(t, env.receiver.LastReceivedReceiverReport().IsZero())
}

func TestRRTimeoutSingleShot(t *testing.T) {
	env := newTestEnv(t, ntpEpoch.Add(100*time.Second), false)
	interval := time.Second

	rr := rtcp.ReceiverReport{
		SSRC:    testRemoteSSRC,
		Reports: []rtcp.ReceptionReport{{SSRC: testMainSSRC, LastSequenceNumber: 1}},
	}
	assert.True(t, env.receiver.IncomingPacket(marshal(t, rr)))

	assert.False(t, env.receiver.RRTimeout(interval))
	assert.False(t, env.receiver.RRSequenceNumberTimeout(interval))

	env.clock.Advance(3001 * time.Millisecond)
	assert.True(t, env.receiver.RRTimeout(interval))
	// edge triggered: no re-fire until a new RR arrives
	assert.False(t, env.receiver.RRTimeout(interval))

	assert.True(t, env.receiver.RRSequenceNumberTimeout(interval))
	assert.False(t, env.receiver.RRSequenceNumberTimeout(interval))

	rr.Reports[0].LastSequenceNumber = 2
	assert.True(t, env.receiver.IncomingPacket(marshal(t, rr)))
	env.clock.Advance(3001 * time.Millisecond)
	assert.True(t, env.receiver.RRTimeout(interval))
	assert.True(t, env.receiver.RRSequenceNumberTimeout(interval))
}

func TestEmptyAndMalformedDatagrams(t *testing.T) {
	env := newTestEnv(t, ntpEpoch.Add(100*time.Second), false)

	// empty datagram
	assert.False(t, env.receiver.IncomingPacket(nil))

	// first block invalid: reject outright, no state change
	assert.False(t, env.receiver.IncomingPacket([]byte{0, 0, 0, 0}))
	assert.Zero(t, env.receiver.NumSkippedPackets())

	// second block invalid: keep the first, bump the skip counter
	datagram := marshal(t, rtcp.ReceiverReport{
		SSRC:    testRemoteSSRC,
		Reports: []rtcp.ReceptionReport{{SSRC: testMainSSRC}},
	})
	datagram = append(datagram, 0, 0, 0, 0)
	assert.True(t, env.receiver.IncomingPacket(datagram))
	assert.Equal(t, uint32(1), env.receiver.NumSkippedPackets())
	assert.Len(t, env.receiver.StatisticsReceived(), 1)

	// unknown packet type: skipped, datagram still accepted
	unknown := []byte{2 << 6, 192, 0, 0}
	assert.True(t, env.receiver.IncomingPacket(unknown))
	assert.Equal(t, uint32(2), env.receiver.NumSkippedPackets())
}

func TestReceiverReportWithMaxBlocks(t *testing.T) {
	env := newTestEnv(t, ntpEpoch.Add(100*time.Second), false)

	ssrcs := make([]uint32, 31)
	for i := range ssrcs {
		ssrcs[i] = uint32(i + 1)
	}
	env.receiver.SetSSRCs(1, ssrcs)

	rr := rtcp.ReceiverReport{SSRC: testRemoteSSRC}
	for _, ssrc := range ssrcs {
		rr.Reports = append(rr.Reports, rtcp.ReceptionReport{SSRC: ssrc})
	}
	assert.True(t, env.receiver.IncomingPacket(marshal(t, rr)))

	env.owner.mu.Lock()
	defer env.owner.mu.Unlock()
	require.Len(t, env.owner.reportBlockCalls, 1)
	assert.Len(t, env.owner.reportBlockCalls[0], 31)
}

func TestTMMBRFlow(t *testing.T) {
	env := newTestEnv(t, ntpEpoch.Add(100*time.Second), false)

	// TMMBR before any SR/RR from that sender is dropped
	tmmbr := rtcp.TemporaryMaximumMediaStreamBitRateRequest{
		SenderSSRC: testRemoteSSRC,
		Requests:   []rtcp.TMMBItem{{SSRC: testMainSSRC, BitrateBPS: 100000, PacketOverhead: 20}},
	}
	assert.True(t, env.receiver.IncomingPacket(marshal(t, tmmbr)))
	assert.Empty(t, env.receiver.TmmbrReceived())

	sr := rtcp.SenderReport{SSRC: testRemoteSSRC, NTPTime: 1 << 32}
	assert.True(t, env.receiver.IncomingPacket(marshal(t, sr)))
	assert.True(t, env.receiver.IncomingPacket(marshal(t, tmmbr)))

	candidates := env.receiver.TmmbrReceived()
	require.Len(t, candidates, 1)
	assert.Equal(t, uint64(100000), candidates[0].BitrateBPS)

	env.owner.mu.Lock()
	require.NotEmpty(t, env.owner.tmmbnSets)
	lastSet := env.owner.tmmbnSets[len(env.owner.tmmbnSets)-1]
	env.owner.mu.Unlock()
	require.Len(t, lastSet, 1)
	assert.Equal(t, uint64(100000), lastSet[0].BitrateBPS)

	env.bandwidth.mu.Lock()
	assert.Contains(t, env.bandwidth.bitrates, uint64(100000))
	env.bandwidth.mu.Unlock()

	// a zero bitrate request is ignored
	release := rtcp.TemporaryMaximumMediaStreamBitRateRequest{
		SenderSSRC: testRemoteSSRC,
		Requests:   []rtcp.TMMBItem{{SSRC: testMainSSRC, BitrateBPS: 0}},
	}
	assert.True(t, env.receiver.IncomingPacket(marshal(t, release)))
	assert.Len(t, env.receiver.TmmbrReceived(), 1)

	// after five silent intervals the sweep lifts the limitation
	env.clock.Advance(tmmbrTimeout + time.Second)
	assert.True(t, env.receiver.UpdateReceiveInformationTimers())
	assert.Empty(t, env.receiver.TmmbrReceived())
	// and fires once only
	assert.False(t, env.receiver.UpdateReceiveInformationTimers())
}

func TestTMMBNBoundingSetQuery(t *testing.T) {
	env := newTestEnv(t, ntpEpoch.Add(100*time.Second), false)

	owner, boundingSet := env.receiver.BoundingSet()
	assert.False(t, owner)
	assert.Empty(t, boundingSet)

	sr := rtcp.SenderReport{SSRC: testRemoteSSRC, NTPTime: 1 << 32}
	assert.True(t, env.receiver.IncomingPacket(marshal(t, sr)))

	tmmbn := rtcp.TemporaryMaximumMediaStreamBitRateNotification{
		SenderSSRC: testRemoteSSRC,
		Notifications: []rtcp.TMMBItem{
			{SSRC: testMainSSRC, BitrateBPS: 262144, PacketOverhead: 40},
		},
	}
	assert.True(t, env.receiver.IncomingPacket(marshal(t, tmmbn)))

	owner, boundingSet = env.receiver.BoundingSet()
	assert.True(t, owner)
	require.Len(t, boundingSet, 1)
	assert.Equal(t, uint64(262144), boundingSet[0].BitrateBPS)
}

// A datagram carrying both TMMBR and a receiver report triggers the TMMBR
// driven bitrate callback before the report driven one.
func TestCallbackOrderTMMBRBeforeReports(t *testing.T) {
	env := newTestEnv(t, ntpEpoch.Add(100*time.Second), false)

	sr := rtcp.SenderReport{SSRC: testRemoteSSRC, NTPTime: 1 << 32}
	assert.True(t, env.receiver.IncomingPacket(marshal(t, sr)))

	datagram := marshal(t, rtcp.TemporaryMaximumMediaStreamBitRateRequest{
		SenderSSRC: testRemoteSSRC,
		Requests:   []rtcp.TMMBItem{{SSRC: testMainSSRC, BitrateBPS: 100000, PacketOverhead: 20}},
	})
	datagram = append(datagram, marshal(t, rtcp.ReceiverReport{
		SSRC:    testRemoteSSRC,
		Reports: []rtcp.ReceptionReport{{SSRC: testMainSSRC}},
	})...)

	env.calls.mu.Lock()
	env.calls.calls = nil
	env.calls.mu.Unlock()

	assert.True(t, env.receiver.IncomingPacket(datagram))

	calls := env.calls.snapshot()
	require.Equal(t, []string{
		"bandwidth.EstimatedBitrate",
		"bandwidth.ReceiverReport",
		"owner.ReportBlocks",
	}, calls)
}

func TestREMBDispatch(t *testing.T) {
	env := newTestEnv(t, ntpEpoch.Add(100*time.Second), false)

	remb := rtcp.ReceiverEstimatedMaximumBitrate{
		SenderSSRC: testRemoteSSRC,
		Bitrate:    262143,
		SSRCs:      []uint32{testMainSSRC},
	}
	assert.True(t, env.receiver.IncomingPacket(marshal(t, remb)))

	env.bandwidth.mu.Lock()
	defer env.bandwidth.mu.Unlock()
	assert.Equal(t, []uint64{262143}, env.bandwidth.bitrates)
}

func TestSendReportRequestDispatch(t *testing.T) {
	env := newTestEnv(t, ntpEpoch.Add(100*time.Second), false)

	rrr := rtcp.RapidResynchronizationRequest{SenderSSRC: testRemoteSSRC, MediaSSRC: testMainSSRC}
	assert.True(t, env.receiver.IncomingPacket(marshal(t, rrr)))

	env.owner.mu.Lock()
	defer env.owner.mu.Unlock()
	assert.Equal(t, 1, env.owner.sendReportRequests)
}

func TestTransportFeedbackDispatch(t *testing.T) {
	env := newTestEnv(t, ntpEpoch.Add(100*time.Second), false)

	feedback := rtcp.TransportLayerCC{
		SenderSSRC:         testRemoteSSRC,
		MediaSSRC:          testMainSSRC,
		BaseSequenceNumber: 1,
		PacketStatusCount:  1,
		ReferenceTime:      1,
		PacketChunks: []rtcp.PacketStatusChunk{
			&rtcp.RunLengthChunk{PacketStatusSymbol: rtcp.TypeTCCPacketReceivedSmallDelta, RunLength: 1},
		},
		RecvDeltas: []rtcp.RecvDelta{{Type: rtcp.TypeTCCPacketReceivedSmallDelta, Delta: 250}},
	}
	assert.True(t, env.receiver.IncomingPacket(marshal(t, feedback)))

	env.transport.mu.Lock()
	require.Len(t, env.transport.feedbacks, 1)
	assert.Equal(t, uint16(1), env.transport.feedbacks[0].BaseSequenceNumber)
	env.transport.mu.Unlock()

	// feedback about a foreign media source is not forwarded
	feedback.MediaSSRC = 0x12345678
	assert.True(t, env.receiver.IncomingPacket(marshal(t, feedback)))

	env.transport.mu.Lock()
	assert.Len(t, env.transport.feedbacks, 1)
	env.transport.mu.Unlock()
}

func TestXRReferenceTimeAndDLRR(t *testing.T) {
	env := newTestEnv(t, ntpEpoch.Add(100*time.Second), false)
	env.receiver.SetXRRRTRStatus(true)
	compactNow := uint32(100 << 16)

	xr := rtcp.ExtendedReport{
		SenderSSRC: testRemoteSSRC,
		ReferenceTimes: []rtcp.ReceiverReferenceTimeReportBlock{
			{NTPTimestamp: 99 << 32},
		},
		DLRRBlocks: []rtcp.DLRRReportBlock{{
			Reports: []rtcp.DLRRReport{{
				SSRC:   testMainSSRC,
				LastRR: compactNow - 6554, // ~100 ms round trip
				DLRR:   0,
			}},
		}},
	}
	assert.True(t, env.receiver.IncomingPacket(marshal(t, xr)))

	timeInfo, ok := env.receiver.LastReceivedXRReferenceTimeInfo()
	require.True(t, ok)
	assert.Equal(t, uint32(testRemoteSSRC), timeInfo.SourceSSRC)
	assert.Equal(t, uint32(99<<16), timeInfo.LastRR)
	assert.Zero(t, timeInfo.DelaySinceLastRR)

	rtt, ok := env.receiver.GetAndResetXRRTT()
	require.True(t, ok)
	assert.Equal(t, int64(100), rtt)

	// one-shot: a second read comes up empty
	_, ok = env.receiver.GetAndResetXRRTT()
	assert.False(t, ok)
}

func TestXRDLRRWithoutRRTRStatus(t *testing.T) {
	env := newTestEnv(t, ntpEpoch.Add(100*time.Second), false)
	compactNow := uint32(100 << 16)

	xr := rtcp.ExtendedReport{
		SenderSSRC: testRemoteSSRC,
		DLRRBlocks: []rtcp.DLRRReportBlock{{
			Reports: []rtcp.DLRRReport{{SSRC: testMainSSRC, LastRR: compactNow - 6554}},
		}},
	}
	assert.True(t, env.receiver.IncomingPacket(marshal(t, xr)))

	_, ok := env.receiver.GetAndResetXRRTT()
	assert.False(t, ok)
}

func TestStatisticsCallback(t *testing.T) {
	env := newTestEnv(t, ntpEpoch.Add(100*time.Second), false)

	rr := rtcp.ReceiverReport{
		SSRC: testRemoteSSRC,
		Reports: []rtcp.ReceptionReport{{
			SSRC:               testMainSSRC,
			FractionLost:       12,
			TotalLost:          34,
			LastSequenceNumber: 56,
			Jitter:             78,
		}},
	}
	assert.True(t, env.receiver.IncomingPacket(marshal(t, rr)))

	env.stats.mu.Lock()
	stats, ok := env.stats.stats[testMainSSRC]
	env.stats.mu.Unlock()
	require.True(t, ok)
	assert.Equal(t, uint8(12), stats.FractionLost)
	assert.Equal(t, uint32(34), stats.CumulativeLost)
	assert.Equal(t, uint32(56), stats.ExtendedMaxSequenceNumber)
	assert.Equal(t, uint32(78), stats.Jitter)

	sdes := rtcp.SourceDescription{
		Chunks: []rtcp.SourceDescriptionChunk{{
			Source: testRemoteSSRC,
			Items:  []rtcp.SourceDescriptionItem{{Type: rtcp.SDESCNAME, Text: "peer"}},
		}},
	}
	assert.True(t, env.receiver.IncomingPacket(marshal(t, sdes)))

	env.stats.mu.Lock()
	cname := env.stats.cnames[testRemoteSSRC]
	env.stats.mu.Unlock()
	assert.Equal(t, "peer", cname)
}

// Observers may call back into the receiver: no callback runs under the
// state lock.
func TestNoCallbackUnderLock(t *testing.T) {
	to := test.TimeOut(10 * time.Second)
	defer to.Stop()

	env := newTestEnv(t, ntpEpoch.Add(100*time.Second), false)
	env.intra.onIntraFrame = func(uint32) {
		// would deadlock if the state lock were held during dispatch
		_, _, _, _, _ = env.receiver.RTT(testRemoteSSRC)
	}

	pli := rtcp.PictureLossIndication{SenderSSRC: 2, MediaSSRC: testMainSSRC}
	assert.True(t, env.receiver.IncomingPacket(marshal(t, pli)))

	env.intra.mu.Lock()
	defer env.intra.mu.Unlock()
	assert.Len(t, env.intra.intraFrameRequests, 1)
}

func TestConcurrentIngressTickAndQueries(t *testing.T) {
	to := test.TimeOut(30 * time.Second)
	defer to.Stop()
	report := test.CheckRoutines(t)
	defer report()

	env := newTestEnv(t, ntpEpoch.Add(100*time.Second), false)

	sr := marshal(t, rtcp.SenderReport{
		SSRC:    testRemoteSSRC,
		NTPTime: 1 << 32,
		Reports: []rtcp.ReceptionReport{{SSRC: testMainSSRC, LastSenderReport: 1}},
	})

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(3)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				env.receiver.IncomingPacket(sr)
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				env.receiver.UpdateReceiveInformationTimers()
				env.receiver.RRTimeout(time.Second)
				env.clock.Advance(time.Millisecond)
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				env.receiver.RTT(testRemoteSSRC)
				env.receiver.StatisticsReceived()
				env.receiver.CNAME(testRemoteSSRC)
				env.receiver.SenderInfoReceived()
			}
		}()
	}
	wg.Wait()
}

// Arbitrary junk must never panic the receiver.
func TestRandomJunkDoesNotPanic(t *testing.T) {
	env := newTestEnv(t, ntpEpoch.Add(100*time.Second), false)
	random := randutil.NewMathRandomGenerator()

	for i := 0; i < 500; i++ {
		junk := make([]byte, random.Intn(128))
		for j := range junk {
			junk[j] = byte(random.Intn(256))
		}
		env.receiver.IncomingPacket(junk)
	}
}

func TestLocalSSRCChangeNotification(t *testing.T) {
	env := newTestEnv(t, ntpEpoch.Add(100*time.Second), false)

	env.receiver.SetSSRCs(0x11111111, []uint32{0x11111111})

	env.intra.mu.Lock()
	defer env.intra.mu.Unlock()
	require.NotEmpty(t, env.intra.ssrcChanges)
	last := env.intra.ssrcChanges[len(env.intra.ssrcChanges)-1]
	assert.Equal(t, [2]uint32{testMainSSRC, 0x11111111}, last)
}

func TestReceiverOnlyDropsSenderSideDispatch(t *testing.T) {
	env := newTestEnv(t, ntpEpoch.Add(100*time.Second), true)

	nack := rtcp.TransportLayerNack{
		SenderSSRC: 2,
		MediaSSRC:  testMainSSRC,
		Nacks:      []rtcp.NackPair{{PacketID: 10}},
	}
	assert.True(t, env.receiver.IncomingPacket(marshal(t, nack)))

	rrr := rtcp.RapidResynchronizationRequest{SenderSSRC: 2, MediaSSRC: testMainSSRC}
	assert.True(t, env.receiver.IncomingPacket(marshal(t, rrr)))

	rr := rtcp.ReceiverReport{
		SSRC:    testRemoteSSRC,
		Reports: []rtcp.ReceptionReport{{SSRC: testMainSSRC, FractionLost: 1}},
	}
	assert.True(t, env.receiver.IncomingPacket(marshal(t, rr)))

	env.owner.mu.Lock()
	assert.Empty(t, env.owner.nacks)
	assert.Zero(t, env.owner.sendReportRequests)
	// report blocks still reach the owner
	assert.Len(t, env.owner.reportBlockCalls, 1)
	env.owner.mu.Unlock()

	// per-source statistics stay quiet in receiver-only mode
	env.stats.mu.Lock()
	assert.Empty(t, env.stats.stats)
	env.stats.mu.Unlock()
}

func TestCNAMEWithinLimitStoredWhole(t *testing.T) {
	env := newTestEnv(t, ntpEpoch.Add(100*time.Second), false)

	long := make([]byte, 254)
	for i := range long {
		long[i] = 'a'
	}
	sdes := rtcp.SourceDescription{
		Chunks: []rtcp.SourceDescriptionChunk{{
			Source: testRemoteSSRC,
			Items:  []rtcp.SourceDescriptionItem{{Type: rtcp.SDESCNAME, Text: string(long)}},
		}},
	}
	assert.True(t, env.receiver.IncomingPacket(marshal(t, sdes)))

	cname, ok := env.receiver.CNAME(testRemoteSSRC)
	require.True(t, ok)
	assert.LessOrEqual(t, len(cname), cnameMaxLength)
	assert.Equal(t, string(long), cname)
}
