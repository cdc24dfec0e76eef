package rtcp

// A Scanner splits a compound RTCP datagram into its constituent packets.
//
// Successive calls to Scan advance through the buffer; the current packet is
// available through Header and Bytes. The Scanner performs the structural
// validation shared by every packet type: protocol version, declared length
// against the remaining buffer, and the trailing padding octet.
//
//	s := rtcp.NewScanner(datagram)
//	for s.Scan() {
//		process(s.Header(), s.Bytes())
//	}
//	if err := s.Err(); err != nil {
//		...
//	}
type Scanner struct {
	data   []byte
	offset int
	header Header
	packet []byte
	err    error
}

// NewScanner creates a Scanner over a compound datagram.
func NewScanner(data []byte) *Scanner {
	return &Scanner{data: data}
}

// Scan advances to the next RTCP packet in the datagram. It returns false
// when the buffer is exhausted or a structurally invalid header is found;
// Err distinguishes the two.
func (s *Scanner) Scan() bool {
	if s.err != nil || s.offset >= len(s.data) {
		return false
	}

	rest := s.data[s.offset:]

	var h Header
	if err := h.Unmarshal(rest); err != nil {
		s.err = err
		return false
	}
	if h.Version != rtcpVersion {
		s.err = errInvalidVersion
		return false
	}

	size := (int(h.Length) + 1) * 4
	if size > len(rest) {
		s.err = errPacketTooShort
		return false
	}

	if h.Padding {
		paddingLen := int(rest[size-1])
		if paddingLen == 0 || paddingLen > size-headerLength {
			s.err = errInvalidPadding
			return false
		}
	}

	s.header = h
	s.packet = rest[:size]
	s.offset += size
	return true
}

// Header returns the header of the current packet.
func (s *Scanner) Header() Header {
	return s.header
}

// Bytes returns the current packet, header included. The slice aliases the
// datagram passed to NewScanner and is only valid until the next call to Scan.
func (s *Scanner) Bytes() []byte {
	return s.packet
}

// Err returns the error that stopped the Scanner, or nil if the datagram was
// walked to the end.
func (s *Scanner) Err() error {
	return s.err
}
