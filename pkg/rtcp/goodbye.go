package rtcp

import "encoding/binary"

// The Goodbye packet indicates that one or more sources are no longer active.
type Goodbye struct {
	// The SSRC/CSRC identifiers that are no longer active
	Sources []uint32
	// Optional text indicating the reason for leaving, e.g., "camera malfunction" or "RTP loop detected"
	Reason string
}

// Marshal encodes the Goodbye packet in binary
func (g Goodbye) Marshal() ([]byte, error) {
	/*
	 *        0                   1                   2                   3
	 *        0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1
	 *       +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
	 *       |V=2|P|    SC   |   PT=BYE=203  |             length            |
	 *       +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
	 *       |                           SSRC/CSRC                           |
	 *       +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
	 *       :                              ...                              :
	 *       +=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+=+
	 * (opt) |     length    |               reason for leaving            ...
	 *       +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
	 */
	if len(g.Sources) > countMax {
		return nil, errTooManySources
	}

	rawPacket := make([]byte, len(g.Sources)*ssrcLength)

	for i, s := range g.Sources {
		binary.BigEndian.PutUint32(rawPacket[i*ssrcLength:], s)
	}

	if g.Reason != "" {
		reason := []byte(g.Reason)

		if len(reason) > sdesMaxOctetCount {
			return nil, errReasonTooLong
		}

		rawPacket = append(rawPacket, uint8(len(reason)))
		rawPacket = append(rawPacket, reason...)

		// align to 32-bit boundary
		if size := len(rawPacket); size%4 != 0 {
			rawPacket = append(rawPacket, make([]byte, 4-size%4)...)
		}
	}

	h := Header{
		Version: rtcpVersion,
		Count:   uint8(len(g.Sources)),
		Type:    TypeGoodbye,
		Length:  uint16(len(rawPacket) / 4),
	}
	hData, err := h.Marshal()
	if err != nil {
		return nil, err
	}

	return append(hData, rawPacket...), nil
}

// Unmarshal decodes the Goodbye packet from binary
func (g *Goodbye) Unmarshal(rawPacket []byte) error {
	var h Header
	if err := h.Unmarshal(rawPacket); err != nil {
		return err
	}
	if h.Type != TypeGoodbye {
		return errWrongType
	}

	body, err := packetBody(rawPacket, h)
	if err != nil {
		return err
	}

	reasonOffset := int(h.Count) * ssrcLength
	if reasonOffset > len(body) {
		return errPacketTooShort
	}

	g.Sources = make([]uint32, h.Count)
	for i := 0; i < int(h.Count); i++ {
		g.Sources[i] = binary.BigEndian.Uint32(body[i*ssrcLength:])
	}

	if reasonOffset < len(body) {
		reasonLen := int(body[reasonOffset])
		reasonEnd := reasonOffset + 1 + reasonLen

		if reasonEnd > len(body) {
			return errPacketTooShort
		}

		g.Reason = string(body[reasonOffset+1 : reasonEnd])
	}

	return nil
}
