package rtcp

import (
	"encoding/binary"
	"math"
)

// A TMMBItem is one FCI entry in a TMMBR or TMMBN message: the media stream
// it applies to, the maximum total media bitrate and the measured per-packet
// overhead (RFC 5104, 4.2.1.1).
type TMMBItem struct {
	// SSRC of the media stream the tuple applies to
	SSRC uint32

	// Maximum total media bitrate in bits per second
	BitrateBPS uint64

	// Measured per-packet overhead in bytes, 9 bits on the wire
	PacketOverhead uint16
}

const (
	tmmbItemLength       = 8
	tmmbMantissaMax      = (1 << 17) - 1
	tmmbOverheadMax      = (1 << 9) - 1
	tmmbExponentLossless = 64 - 17
)

func (t TMMBItem) marshalTo(buf []byte) error {
	/*
	 *  0                   1                   2                   3
	 *  0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1
	 * +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
	 * |                              SSRC                             |
	 * +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
	 * | MxTBR Exp |  MxTBR Mantissa                 |Measured Overhead|
	 * +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
	 */
	if t.PacketOverhead > tmmbOverheadMax {
		return errInvalidHeader
	}

	exp := uint32(0)
	mantissa := t.BitrateBPS
	for mantissa > tmmbMantissaMax {
		mantissa >>= 1
		exp++
	}
	if exp > (1<<6)-1 {
		return errInvalidBitrate
	}

	binary.BigEndian.PutUint32(buf, t.SSRC)
	binary.BigEndian.PutUint32(buf[4:],
		exp<<26|uint32(mantissa)<<9|uint32(t.PacketOverhead))
	return nil
}

func (t *TMMBItem) unmarshal(buf []byte) error {
	if len(buf) < tmmbItemLength {
		return errPacketTooShort
	}

	t.SSRC = binary.BigEndian.Uint32(buf)

	word := binary.BigEndian.Uint32(buf[4:])
	exp := uint(word >> 26)
	mantissa := uint64(word >> 9 & tmmbMantissaMax)
	if exp > tmmbExponentLossless {
		t.BitrateBPS = math.MaxUint64
	} else {
		t.BitrateBPS = mantissa << exp
	}
	t.PacketOverhead = uint16(word & tmmbOverheadMax)

	return nil
}

// marshalTMMB is the shared body encoder for TMMBR and TMMBN.
func marshalTMMB(senderSSRC, mediaSSRC uint32, format uint8, items []TMMBItem) ([]byte, error) {
	rawPacket := make([]byte, 8+len(items)*tmmbItemLength)
	binary.BigEndian.PutUint32(rawPacket, senderSSRC)
	binary.BigEndian.PutUint32(rawPacket[4:], mediaSSRC)
	for i, item := range items {
		if err := item.marshalTo(rawPacket[8+i*tmmbItemLength:]); err != nil {
			return nil, err
		}
	}

	h := Header{
		Version: rtcpVersion,
		Count:   format,
		Type:    TypeTransportSpecificFeedback,
		Length:  uint16(len(rawPacket) / 4),
	}
	hData, err := h.Marshal()
	if err != nil {
		return nil, err
	}

	return append(hData, rawPacket...), nil
}

// unmarshalTMMB is the shared body decoder for TMMBR and TMMBN.
func unmarshalTMMB(rawPacket []byte, format uint8) (senderSSRC, mediaSSRC uint32, items []TMMBItem, err error) {
	if len(rawPacket) < (headerLength + 8) {
		return 0, 0, nil, errPacketTooShort
	}

	var h Header
	if err := h.Unmarshal(rawPacket); err != nil {
		return 0, 0, nil, err
	}
	if h.Type != TypeTransportSpecificFeedback || h.Count != format {
		return 0, 0, nil, errWrongType
	}

	body, err := packetBody(rawPacket, h)
	if err != nil {
		return 0, 0, nil, err
	}

	senderSSRC = binary.BigEndian.Uint32(body)
	mediaSSRC = binary.BigEndian.Uint32(body[ssrcLength:])
	for i := 8; i+tmmbItemLength <= len(body); i += tmmbItemLength {
		var item TMMBItem
		if err := item.unmarshal(body[i:]); err != nil {
			return 0, 0, nil, err
		}
		items = append(items, item)
	}
	return senderSSRC, mediaSSRC, items, nil
}
