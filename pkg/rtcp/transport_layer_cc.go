package rtcp

import (
	"encoding/binary"
	"math"
)

// Packet status chunk constants, draft-holmer-rmcat-transport-wide-cc-extensions-01.
const (
	// TypeTCCRunLengthChunk signals a run of packets with one status
	TypeTCCRunLengthChunk = 0
	// TypeTCCStatusVectorChunk signals per-packet statuses
	TypeTCCStatusVectorChunk = 1
)

// Packet status symbols.
const (
	TypeTCCPacketNotReceived = uint16(iota)
	TypeTCCPacketReceivedSmallDelta
	TypeTCCPacketReceivedLargeDelta
	TypeTCCPacketReceivedWithoutDelta
)

// Status vector symbol sizes.
const (
	// TypeTCCSymbolSizeOneBit packs fourteen one-bit symbols per chunk
	TypeTCCSymbolSizeOneBit = 0
	// TypeTCCSymbolSizeTwoBit packs seven two-bit symbols per chunk
	TypeTCCSymbolSizeTwoBit = 1
)

// tccDeltaScaleFactor is the receive delta resolution in microseconds.
const tccDeltaScaleFactor = 250

const (
	tccChunkLength       = 2
	tccFixedHeaderLength = 16 // both SSRCs plus base seq, count, ref time, fb count
	tccReferenceTimeMax  = (1 << 24) - 1
)

// A PacketStatusChunk encodes the receive status of one or more packets.
type PacketStatusChunk interface {
	Marshal() ([]byte, error)
	Unmarshal(rawPacket []byte) error
}

// A RunLengthChunk encodes a run of consecutive packets sharing one status.
type RunLengthChunk struct {
	// PacketStatusSymbol is the status of every packet in the run
	PacketStatusSymbol uint16

	// RunLength is the number of packets in the run, at most 2^13 - 1
	RunLength uint16
}

// Marshal encodes the RunLengthChunk in binary
func (r RunLengthChunk) Marshal() ([]byte, error) {
	/*
	 *  0                   1
	 *  0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5
	 * +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
	 * |T| S |       Run Length        |
	 * +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
	 */
	if r.PacketStatusSymbol > TypeTCCPacketReceivedWithoutDelta {
		return nil, errPacketStatusChunk
	}
	if r.RunLength >= (1 << 13) {
		return nil, errPacketStatusChunk
	}

	buf := make([]byte, tccChunkLength)
	binary.BigEndian.PutUint16(buf, r.PacketStatusSymbol<<13|r.RunLength)
	return buf, nil
}

// Unmarshal decodes the RunLengthChunk from binary
func (r *RunLengthChunk) Unmarshal(rawPacket []byte) error {
	if len(rawPacket) < tccChunkLength {
		return errPacketTooShort
	}

	chunk := binary.BigEndian.Uint16(rawPacket)
	if chunk>>15 != TypeTCCRunLengthChunk {
		return errPacketStatusChunk
	}
	r.PacketStatusSymbol = chunk >> 13 & 0x3
	r.RunLength = chunk & 0x1FFF
	return nil
}

// A StatusVectorChunk encodes the status of up to fourteen packets
// individually.
type StatusVectorChunk struct {
	// SymbolSize is TypeTCCSymbolSizeOneBit or TypeTCCSymbolSizeTwoBit
	SymbolSize uint16

	// SymbolList holds fourteen one-bit or seven two-bit statuses
	SymbolList []uint16
}

// Marshal encodes the StatusVectorChunk in binary
func (r StatusVectorChunk) Marshal() ([]byte, error) {
	/*
	 *  0                   1
	 *  0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5
	 * +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
	 * |T|S|       symbol list         |
	 * +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
	 */
	chunk := uint16(1) << 15
	switch {
	case r.SymbolSize == TypeTCCSymbolSizeOneBit && len(r.SymbolList) == 14:
		for i, s := range r.SymbolList {
			if s > 1 {
				return nil, errPacketStatusChunk
			}
			chunk |= s << (13 - i)
		}
	case r.SymbolSize == TypeTCCSymbolSizeTwoBit && len(r.SymbolList) == 7:
		chunk |= 1 << 14
		for i, s := range r.SymbolList {
			if s > TypeTCCPacketReceivedWithoutDelta {
				return nil, errPacketStatusChunk
			}
			chunk |= s << (12 - 2*i)
		}
	default:
		return nil, errPacketStatusChunk
	}

	buf := make([]byte, tccChunkLength)
	binary.BigEndian.PutUint16(buf, chunk)
	return buf, nil
}

// Unmarshal decodes the StatusVectorChunk from binary
func (r *StatusVectorChunk) Unmarshal(rawPacket []byte) error {
	if len(rawPacket) < tccChunkLength {
		return errPacketTooShort
	}

	chunk := binary.BigEndian.Uint16(rawPacket)
	if chunk>>15 != 1 {
		return errPacketStatusChunk
	}

	r.SymbolSize = chunk >> 14 & 0x1
	if r.SymbolSize == TypeTCCSymbolSizeOneBit {
		r.SymbolList = make([]uint16, 0, 14)
		for i := 0; i < 14; i++ {
			r.SymbolList = append(r.SymbolList, chunk>>(13-i)&0x1)
		}
		return nil
	}
	r.SymbolList = make([]uint16, 0, 7)
	for i := 0; i < 7; i++ {
		r.SymbolList = append(r.SymbolList, chunk>>(12-2*i)&0x3)
	}
	return nil
}

// A RecvDelta is the receive time offset of one received packet relative to
// the previous one, in multiples of 250 microseconds.
type RecvDelta struct {
	// Type is TypeTCCPacketReceivedSmallDelta or TypeTCCPacketReceivedLargeDelta
	Type uint16

	// Delta in microseconds
	Delta int64
}

// Marshal encodes the RecvDelta in binary
func (r RecvDelta) Marshal() ([]byte, error) {
	delta := r.Delta / tccDeltaScaleFactor

	if r.Type == TypeTCCPacketReceivedSmallDelta && delta >= 0 && delta <= math.MaxUint8 {
		return []byte{byte(delta)}, nil
	}
	if r.Type == TypeTCCPacketReceivedLargeDelta && delta >= math.MinInt16 && delta <= math.MaxInt16 {
		buf := make([]byte, 2)
		binary.BigEndian.PutUint16(buf, uint16(int16(delta)))
		return buf, nil
	}
	return nil, errDeltaExceedLimit
}

// Unmarshal decodes the RecvDelta from binary
func (r *RecvDelta) Unmarshal(rawPacket []byte) error {
	switch r.Type {
	case TypeTCCPacketReceivedSmallDelta:
		if len(rawPacket) < 1 {
			return errPacketTooShort
		}
		r.Delta = tccDeltaScaleFactor * int64(rawPacket[0])
		return nil
	case TypeTCCPacketReceivedLargeDelta:
		if len(rawPacket) < 2 {
			return errPacketTooShort
		}
		r.Delta = tccDeltaScaleFactor * int64(int16(binary.BigEndian.Uint16(rawPacket)))
		return nil
	default:
		return errDeltaExceedLimit
	}
}

// The TransportLayerCC packet mirrors the arrival time of every transport-wide
// sequence-numbered packet back to the sender, per
// draft-holmer-rmcat-transport-wide-cc-extensions.
type TransportLayerCC struct {
	// SSRC of sender
	SenderSSRC uint32

	// SSRC of the media source the feedback applies to
	MediaSSRC uint32

	// Transport-wide sequence number of the first packet this feedback covers
	BaseSequenceNumber uint16

	// Number of packet statuses in this feedback
	PacketStatusCount uint16

	// Absolute reference time in multiples of 64 ms, 24 bits
	ReferenceTime uint32

	// Feedback packet counter for loss detection of feedback itself
	FbPktCount uint8

	PacketChunks []PacketStatusChunk
	RecvDeltas   []RecvDelta
}

// Marshal encodes the TransportLayerCC in binary
func (t TransportLayerCC) Marshal() ([]byte, error) {
	/*
	 *  0                   1                   2                   3
	 *  0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1
	 * +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
	 * |V=2|P|  FMT=15 |    PT=205     |           length              |
	 * +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
	 * |                     SSRC of packet sender                     |
	 * +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
	 * |                      SSRC of media source                     |
	 * +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
	 * |      base sequence number     |      packet status count      |
	 * +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
	 * |                 reference time                | fb pkt. count |
	 * +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
	 * |          packet chunk         |         packet chunk          |
	 * +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
	 * :                               :                               :
	 * +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
	 * |  recv delta   |  recv delta   |  recv delta   |  recv delta   |
	 * +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
	 * :                               :                               :
	 * +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
	 */
	if t.ReferenceTime > tccReferenceTimeMax {
		return nil, errInvalidHeader
	}

	rawPacket := make([]byte, tccFixedHeaderLength)
	binary.BigEndian.PutUint32(rawPacket, t.SenderSSRC)
	binary.BigEndian.PutUint32(rawPacket[4:], t.MediaSSRC)
	binary.BigEndian.PutUint16(rawPacket[8:], t.BaseSequenceNumber)
	binary.BigEndian.PutUint16(rawPacket[10:], t.PacketStatusCount)
	rawPacket[12] = byte(t.ReferenceTime >> 16)
	rawPacket[13] = byte(t.ReferenceTime >> 8)
	rawPacket[14] = byte(t.ReferenceTime)
	rawPacket[15] = t.FbPktCount

	for _, chunk := range t.PacketChunks {
		data, err := chunk.Marshal()
		if err != nil {
			return nil, err
		}
		rawPacket = append(rawPacket, data...)
	}

	for _, delta := range t.RecvDeltas {
		data, err := delta.Marshal()
		if err != nil {
			return nil, err
		}
		rawPacket = append(rawPacket, data...)
	}

	padding := false
	if rem := (headerLength + len(rawPacket)) % 4; rem != 0 {
		padding = true
		padLen := 4 - rem
		rawPacket = append(rawPacket, make([]byte, padLen)...)
		rawPacket[len(rawPacket)-1] = byte(padLen)
	}

	h := Header{
		Version: rtcpVersion,
		Padding: padding,
		Count:   FormatTCC,
		Type:    TypeTransportSpecificFeedback,
		Length:  uint16(len(rawPacket) / 4),
	}
	hData, err := h.Marshal()
	if err != nil {
		return nil, err
	}

	return append(hData, rawPacket...), nil
}

// Unmarshal decodes the TransportLayerCC from binary
func (t *TransportLayerCC) Unmarshal(rawPacket []byte) error {
	if len(rawPacket) < (headerLength + tccFixedHeaderLength) {
		return errPacketTooShort
	}

	var h Header
	if err := h.Unmarshal(rawPacket); err != nil {
		return err
	}
	if h.Type != TypeTransportSpecificFeedback || h.Count != FormatTCC {
		return errWrongType
	}

	body, err := packetBody(rawPacket, h)
	if err != nil {
		return err
	}
	if len(body) < tccFixedHeaderLength {
		return errPacketTooShort
	}

	t.SenderSSRC = binary.BigEndian.Uint32(body)
	t.MediaSSRC = binary.BigEndian.Uint32(body[4:])
	t.BaseSequenceNumber = binary.BigEndian.Uint16(body[8:])
	t.PacketStatusCount = binary.BigEndian.Uint16(body[10:])
	t.ReferenceTime = uint32(body[12])<<16 | uint32(body[13])<<8 | uint32(body[14])
	t.FbPktCount = body[15]

	// walk the chunks until every packet status is accounted for,
	// remembering which statuses carry a receive delta
	var deltaTypes []uint16
	offset := tccFixedHeaderLength
	for processed := uint16(0); processed < t.PacketStatusCount; {
		if offset+tccChunkLength > len(body) {
			return errPacketTooShort
		}

		chunkBytes := body[offset : offset+tccChunkLength]
		offset += tccChunkLength

		if chunkBytes[0]>>7 == TypeTCCRunLengthChunk {
			var chunk RunLengthChunk
			if err := chunk.Unmarshal(chunkBytes); err != nil {
				return err
			}
			t.PacketChunks = append(t.PacketChunks, &chunk)
			for i := uint16(0); i < chunk.RunLength && processed < t.PacketStatusCount; i++ {
				deltaTypes = appendDeltaType(deltaTypes, chunk.PacketStatusSymbol)
				processed++
			}
		} else {
			var chunk StatusVectorChunk
			if err := chunk.Unmarshal(chunkBytes); err != nil {
				return err
			}
			t.PacketChunks = append(t.PacketChunks, &chunk)
			for _, symbol := range chunk.SymbolList {
				if processed >= t.PacketStatusCount {
					break
				}
				deltaTypes = appendDeltaType(deltaTypes, symbol)
				processed++
			}
		}
	}

	for _, deltaType := range deltaTypes {
		var delta RecvDelta
		delta.Type = deltaType
		if err := delta.Unmarshal(body[offset:]); err != nil {
			return err
		}
		t.RecvDeltas = append(t.RecvDeltas, delta)
		if deltaType == TypeTCCPacketReceivedSmallDelta {
			offset++
		} else {
			offset += 2
		}
	}

	return nil
}

func appendDeltaType(deltaTypes []uint16, symbol uint16) []uint16 {
	if symbol == TypeTCCPacketReceivedSmallDelta || symbol == TypeTCCPacketReceivedLargeDelta {
		deltaTypes = append(deltaTypes, symbol)
	}
	return deltaTypes
}
