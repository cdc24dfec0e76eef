package rtcp

// The TemporaryMaximumMediaStreamBitRateNotification packet echoes the
// bounding set of TMMBR tuples currently limiting a media sender
// (RFC 5104, 4.2.2).
type TemporaryMaximumMediaStreamBitRateNotification struct {
	// SSRC of sender
	SenderSSRC uint32

	// SSRC of the media source; always 0
	MediaSSRC uint32

	// The bounding set; may be empty
	Notifications []TMMBItem
}

// Marshal encodes the TemporaryMaximumMediaStreamBitRateNotification in binary
func (p TemporaryMaximumMediaStreamBitRateNotification) Marshal() ([]byte, error) {
	return marshalTMMB(p.SenderSSRC, p.MediaSSRC, FormatTMMBN, p.Notifications)
}

// Unmarshal decodes the TemporaryMaximumMediaStreamBitRateNotification from binary
func (p *TemporaryMaximumMediaStreamBitRateNotification) Unmarshal(rawPacket []byte) error {
	senderSSRC, mediaSSRC, items, err := unmarshalTMMB(rawPacket, FormatTMMBN)
	if err != nil {
		return err
	}
	p.SenderSSRC = senderSSRC
	p.MediaSSRC = mediaSSRC
	p.Notifications = items
	return nil
}
