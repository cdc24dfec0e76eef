package rtcp

import "encoding/binary"

// The ReferencePictureSelectionIndication packet signals that the decoder has
// a confirmed reference picture the encoder may predict from.
type ReferencePictureSelectionIndication struct {
	// SSRC of sender
	SenderSSRC uint32

	// SSRC of the media source
	MediaSSRC uint32

	// RTP payload type the native RPSI bit string applies to
	PayloadType uint8

	// ID of the confirmed reference picture, encoded on the wire in
	// big-endian 7-bit chunks with a continuation bit
	PictureID uint64
}

const rpsiOffset = 8

// Marshal encodes the ReferencePictureSelectionIndication in binary
func (p ReferencePictureSelectionIndication) Marshal() ([]byte, error) {
	/*
	 *  0                   1                   2                   3
	 *  0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1
	 * +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
	 * |      PB       |0| Payload Type|    Native RPSI bit string     |
	 * +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
	 * |   defined per codec          ...                | Padding (0) |
	 * +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
	 */
	chunks := pictureIDChunks(p.PictureID)

	bitString := make([]byte, len(chunks))
	for i, c := range chunks {
		bitString[i] = 0x80 | c
	}
	bitString[len(bitString)-1] &^= 0x80

	paddingBytes := 0
	if rem := (2 + len(bitString)) % 4; rem != 0 {
		paddingBytes = 4 - rem
	}

	rawPacket := make([]byte, rpsiOffset+2, rpsiOffset+2+len(bitString)+paddingBytes)
	binary.BigEndian.PutUint32(rawPacket, p.SenderSSRC)
	binary.BigEndian.PutUint32(rawPacket[4:], p.MediaSSRC)
	rawPacket[rpsiOffset] = uint8(paddingBytes * 8)
	rawPacket[rpsiOffset+1] = p.PayloadType & 0x7F
	rawPacket = append(rawPacket, bitString...)
	rawPacket = append(rawPacket, make([]byte, paddingBytes)...)

	h := Header{
		Version: rtcpVersion,
		Count:   FormatRPSI,
		Type:    TypePayloadSpecificFeedback,
		Length:  uint16(len(rawPacket) / 4),
	}
	hData, err := h.Marshal()
	if err != nil {
		return nil, err
	}

	return append(hData, rawPacket...), nil
}

// Unmarshal decodes the ReferencePictureSelectionIndication from binary
func (p *ReferencePictureSelectionIndication) Unmarshal(rawPacket []byte) error {
	if len(rawPacket) < (headerLength + rpsiOffset + 2) {
		return errPacketTooShort
	}

	var h Header
	if err := h.Unmarshal(rawPacket); err != nil {
		return err
	}
	if h.Type != TypePayloadSpecificFeedback || h.Count != FormatRPSI {
		return errWrongType
	}

	body, err := packetBody(rawPacket, h)
	if err != nil {
		return err
	}
	if len(body) < rpsiOffset+2 {
		return errPacketTooShort
	}

	p.SenderSSRC = binary.BigEndian.Uint32(body)
	p.MediaSSRC = binary.BigEndian.Uint32(body[ssrcLength:])

	paddingBits := int(body[rpsiOffset])
	if paddingBits%8 != 0 {
		return errInvalidHeader
	}
	p.PayloadType = body[rpsiOffset+1] & 0x7F

	bitString := body[rpsiOffset+2:]
	if paddingBits/8 > len(bitString) {
		return errPacketTooShort
	}
	bitString = bitString[:len(bitString)-paddingBits/8]
	if len(bitString) == 0 {
		return errPacketTooShort
	}

	p.PictureID = 0
	for i, b := range bitString {
		p.PictureID = p.PictureID<<7 | uint64(b&0x7F)
		if b&0x80 == 0 {
			if i != len(bitString)-1 {
				return errInvalidHeader
			}
			return nil
		}
	}

	// the last chunk carried a continuation bit
	return errInvalidHeader
}

// pictureIDChunks splits id into big-endian 7-bit groups.
func pictureIDChunks(id uint64) []byte {
	n := 1
	for v := id >> 7; v != 0; v >>= 7 {
		n++
	}
	chunks := make([]byte, n)
	for i := n - 1; i >= 0; i-- {
		chunks[i] = byte(id & 0x7F)
		id >>= 7
	}
	return chunks
}
