package rtcp

// The TemporaryMaximumMediaStreamBitRateRequest packet asks a media sender to
// cap its total bitrate (RFC 5104, 4.2.1).
type TemporaryMaximumMediaStreamBitRateRequest struct {
	// SSRC of sender
	SenderSSRC uint32

	// SSRC of the media source; SHOULD be 0 unless the request is relayed
	MediaSSRC uint32

	// One tuple per media stream the sender wants capped
	Requests []TMMBItem
}

// Marshal encodes the TemporaryMaximumMediaStreamBitRateRequest in binary
func (p TemporaryMaximumMediaStreamBitRateRequest) Marshal() ([]byte, error) {
	return marshalTMMB(p.SenderSSRC, p.MediaSSRC, FormatTMMBR, p.Requests)
}

// Unmarshal decodes the TemporaryMaximumMediaStreamBitRateRequest from binary
func (p *TemporaryMaximumMediaStreamBitRateRequest) Unmarshal(rawPacket []byte) error {
	senderSSRC, mediaSSRC, items, err := unmarshalTMMB(rawPacket, FormatTMMBR)
	if err != nil {
		return err
	}
	p.SenderSSRC = senderSSRC
	p.MediaSSRC = mediaSSRC
	p.Requests = items
	return nil
}
