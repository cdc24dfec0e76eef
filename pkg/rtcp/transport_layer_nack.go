package rtcp

import "encoding/binary"

// PacketBitmask maps the 16 RTP packets immediately following a NACK'd
// packet: bit i set means packet PacketID+i+1 was also lost.
type PacketBitmask uint16

// A NackPair is a wire-encoded pair of a lost packet and the bitmask of the
// following losses.
type NackPair struct {
	// ID of lost packet
	PacketID uint16

	// Bitmask of following lost packets
	LostPackets PacketBitmask
}

// Range calls f for every sequence number this pair covers, stopping early
// when f returns false.
func (n NackPair) Range(f func(seqno uint16) bool) {
	if !f(n.PacketID) {
		return
	}
	for i := uint16(0); i < 16; i++ {
		if (n.LostPackets & (1 << i)) != 0 {
			if !f(n.PacketID + i + 1) {
				return
			}
		}
	}
}

// PacketList returns every sequence number this pair covers.
func (n NackPair) PacketList() []uint16 {
	out := make([]uint16, 0, 17)
	n.Range(func(seqno uint16) bool {
		out = append(out, seqno)
		return true
	})
	return out
}

// The TransportLayerNack packet informs the encoder about the loss of a transport packet
type TransportLayerNack struct {
	// SSRC of sender
	SenderSSRC uint32

	// SSRC of the media source
	MediaSSRC uint32

	Nacks []NackPair
}

const (
	nackOffset     = 8
	nackPairLength = 4
)

// Marshal encodes the TransportLayerNack in binary
func (p TransportLayerNack) Marshal() ([]byte, error) {
	/*
	 *  0                   1                   2                   3
	 *  0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1
	 * +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
	 * |V=2|P|  FMT=1  |    PT=205     |             length            |
	 * +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
	 * |                  SSRC of packet sender                        |
	 * +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
	 * |                  SSRC of media source                         |
	 * +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
	 * |            PID                |             BLP               |
	 * +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
	 */
	rawPacket := make([]byte, nackOffset+(len(p.Nacks)*nackPairLength))
	binary.BigEndian.PutUint32(rawPacket, p.SenderSSRC)
	binary.BigEndian.PutUint32(rawPacket[4:], p.MediaSSRC)
	for i, nack := range p.Nacks {
		binary.BigEndian.PutUint16(rawPacket[nackOffset+(nackPairLength*i):], nack.PacketID)
		binary.BigEndian.PutUint16(rawPacket[nackOffset+(nackPairLength*i)+2:], uint16(nack.LostPackets))
	}

	hData, err := p.Header().Marshal()
	if err != nil {
		return nil, err
	}

	return append(hData, rawPacket...), nil
}

// Unmarshal decodes the TransportLayerNack from binary
func (p *TransportLayerNack) Unmarshal(rawPacket []byte) error {
	if len(rawPacket) < (headerLength + nackOffset) {
		return errPacketTooShort
	}

	var h Header
	if err := h.Unmarshal(rawPacket); err != nil {
		return err
	}
	if h.Type != TypeTransportSpecificFeedback || h.Count != FormatTLN {
		return errWrongType
	}

	body, err := packetBody(rawPacket, h)
	if err != nil {
		return err
	}

	p.SenderSSRC = binary.BigEndian.Uint32(body)
	p.MediaSSRC = binary.BigEndian.Uint32(body[ssrcLength:])
	for i := nackOffset; i+nackPairLength <= len(body); i += nackPairLength {
		p.Nacks = append(p.Nacks, NackPair{
			PacketID:    binary.BigEndian.Uint16(body[i:]),
			LostPackets: PacketBitmask(binary.BigEndian.Uint16(body[i+2:])),
		})
	}
	return nil
}

func (p TransportLayerNack) len() int {
	return headerLength + nackOffset + (len(p.Nacks) * nackPairLength)
}

// Header returns the Header associated with this packet.
func (p TransportLayerNack) Header() Header {
	return Header{
		Version: rtcpVersion,
		Count:   FormatTLN,
		Type:    TypeTransportSpecificFeedback,
		Length:  uint16((p.len() / 4) - 1),
	}
}
