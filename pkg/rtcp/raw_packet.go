package rtcp

// A RawPacket wraps an RTCP packet of a type this package does not decode,
// header included.
type RawPacket []byte

// Marshal returns the raw bytes unchanged
func (r RawPacket) Marshal() ([]byte, error) {
	return r, nil
}

// Unmarshal stores a copy of the raw bytes after validating the header
func (r *RawPacket) Unmarshal(rawPacket []byte) error {
	if len(rawPacket) < headerLength {
		return errPacketTooShort
	}

	var h Header
	if err := h.Unmarshal(rawPacket); err != nil {
		return err
	}

	*r = append((*r)[:0], rawPacket...)
	return nil
}

// Header returns the Header associated with this packet.
func (r RawPacket) Header() Header {
	var h Header
	if err := h.Unmarshal(r); err != nil {
		return Header{}
	}
	return h
}
