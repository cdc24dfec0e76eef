package rtcp

import "encoding/binary"

// A FIREntry is a (media sender SSRC, command sequence number) pair carried
// in a FullIntraRequest.
type FIREntry struct {
	// SSRC of the media sender that is asked to send a decoder refresh point
	SSRC uint32

	// Command sequence number, incremented by one for every new command
	SequenceNumber uint8
}

// The FullIntraRequest packet requests that a media sender send a decoder
// refresh point as soon as possible.
type FullIntraRequest struct {
	// SSRC of sender
	SenderSSRC uint32

	// SSRC of the media source; SHOULD be 0 but is ignored on receive
	MediaSSRC uint32

	FIR []FIREntry
}

const (
	firOffset      = 8
	firEntryLength = 8
)

// Marshal encodes the FullIntraRequest in binary
func (p FullIntraRequest) Marshal() ([]byte, error) {
	/*
	 *  0                   1                   2                   3
	 *  0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1
	 * +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
	 * |                              SSRC                             |
	 * +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
	 * | Seq nr.       |    Reserved                                   |
	 * +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
	 */
	rawPacket := make([]byte, firOffset+(len(p.FIR)*firEntryLength))
	binary.BigEndian.PutUint32(rawPacket, p.SenderSSRC)
	binary.BigEndian.PutUint32(rawPacket[4:], p.MediaSSRC)
	for i, fir := range p.FIR {
		binary.BigEndian.PutUint32(rawPacket[firOffset+(firEntryLength*i):], fir.SSRC)
		rawPacket[firOffset+(firEntryLength*i)+4] = fir.SequenceNumber
	}

	h := Header{
		Version: rtcpVersion,
		Count:   FormatFIR,
		Type:    TypePayloadSpecificFeedback,
		Length:  uint16(len(rawPacket) / 4),
	}
	hData, err := h.Marshal()
	if err != nil {
		return nil, err
	}

	return append(hData, rawPacket...), nil
}

// Unmarshal decodes the FullIntraRequest from binary
func (p *FullIntraRequest) Unmarshal(rawPacket []byte) error {
	if len(rawPacket) < (headerLength + firOffset) {
		return errPacketTooShort
	}

	var h Header
	if err := h.Unmarshal(rawPacket); err != nil {
		return err
	}
	if h.Type != TypePayloadSpecificFeedback || h.Count != FormatFIR {
		return errWrongType
	}

	body, err := packetBody(rawPacket, h)
	if err != nil {
		return err
	}

	p.SenderSSRC = binary.BigEndian.Uint32(body)
	p.MediaSSRC = binary.BigEndian.Uint32(body[ssrcLength:])
	for i := firOffset; i+firEntryLength <= len(body); i += firEntryLength {
		p.FIR = append(p.FIR, FIREntry{
			SSRC:           binary.BigEndian.Uint32(body[i:]),
			SequenceNumber: body[i+4],
		})
	}
	return nil
}
