package rtcp

import (
	"encoding/binary"
	"math"
)

// The ReceiverEstimatedMaximumBitrate packet carries the receiver's total
// estimated available bitrate, defined by draft-alvestrand-rmcat-remb as an
// application layer feedback message inside PSFB.
type ReceiverEstimatedMaximumBitrate struct {
	// SSRC of sender
	SenderSSRC uint32

	// Estimated maximum bitrate in bits per second
	Bitrate uint64

	// SSRCs of the media streams the estimate applies to
	SSRCs []uint32
}

const (
	rembOffset           = 8
	rembFixedLength      = 16
	rembMantissaMax      = (1 << 18) - 1
	rembExponentMax      = (1 << 6) - 1
	rembExponentLossless = 64 - 18
)

// uniqueIdentifier distinguishes REMB from other application layer feedback.
var uniqueIdentifier = [4]byte{'R', 'E', 'M', 'B'}

// Marshal encodes the ReceiverEstimatedMaximumBitrate in binary
func (p ReceiverEstimatedMaximumBitrate) Marshal() ([]byte, error) {
	/*
	 *  0                   1                   2                   3
	 *  0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1
	 * +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
	 * |V=2|P| FMT=15  |   PT=206      |             length            |
	 * +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
	 * |                  SSRC of packet sender                        |
	 * +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
	 * |                  SSRC of media source                         |
	 * +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
	 * |  Unique identifier 'R' 'E' 'M' 'B'                            |
	 * +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
	 * |  Num SSRC     | BR Exp    |  BR Mantissa                      |
	 * +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
	 * |   SSRC feedback                                               |
	 * +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
	 * |  ...                                                          |
	 * +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
	 */
	if len(p.SSRCs) > math.MaxUint8 {
		return nil, errTooManySources
	}

	exp := uint64(0)
	mantissa := p.Bitrate
	for mantissa > rembMantissaMax {
		mantissa >>= 1
		exp++
	}
	if exp > rembExponentMax {
		return nil, errInvalidBitrate
	}

	rawPacket := make([]byte, rembFixedLength+len(p.SSRCs)*ssrcLength)
	binary.BigEndian.PutUint32(rawPacket, p.SenderSSRC)
	// media SSRC is always 0 for application layer feedback
	copy(rawPacket[rembOffset:], uniqueIdentifier[:])
	rawPacket[12] = uint8(len(p.SSRCs))
	rawPacket[13] = uint8(exp<<2) | uint8(mantissa>>16)
	binary.BigEndian.PutUint16(rawPacket[14:], uint16(mantissa))
	for i, ssrc := range p.SSRCs {
		binary.BigEndian.PutUint32(rawPacket[rembFixedLength+i*ssrcLength:], ssrc)
	}

	h := Header{
		Version: rtcpVersion,
		Count:   FormatREMB,
		Type:    TypePayloadSpecificFeedback,
		Length:  uint16(len(rawPacket) / 4),
	}
	hData, err := h.Marshal()
	if err != nil {
		return nil, err
	}

	return append(hData, rawPacket...), nil
}

// Unmarshal decodes the ReceiverEstimatedMaximumBitrate from binary
func (p *ReceiverEstimatedMaximumBitrate) Unmarshal(rawPacket []byte) error {
	if len(rawPacket) < (headerLength + rembFixedLength) {
		return errPacketTooShort
	}

	var h Header
	if err := h.Unmarshal(rawPacket); err != nil {
		return err
	}
	if h.Type != TypePayloadSpecificFeedback || h.Count != FormatREMB {
		return errWrongType
	}

	body, err := packetBody(rawPacket, h)
	if err != nil {
		return err
	}
	if len(body) < rembFixedLength {
		return errPacketTooShort
	}

	p.SenderSSRC = binary.BigEndian.Uint32(body)

	if [4]byte{body[8], body[9], body[10], body[11]} != uniqueIdentifier {
		return errMissingREMB
	}

	numSSRC := int(body[12])
	exp := uint(body[13] >> 2)
	mantissa := uint64(body[13]&0x3)<<16 | uint64(binary.BigEndian.Uint16(body[14:]))

	if exp > rembExponentLossless {
		// the shifted mantissa would overflow a uint64; saturate
		p.Bitrate = math.MaxUint64
	} else {
		p.Bitrate = mantissa << exp
	}

	if rembFixedLength+numSSRC*ssrcLength > len(body) {
		return errPacketTooShort
	}
	p.SSRCs = make([]uint32, numSSRC)
	for i := 0; i < numSSRC; i++ {
		p.SSRCs[i] = binary.BigEndian.Uint32(body[rembFixedLength+i*ssrcLength:])
	}

	return nil
}
