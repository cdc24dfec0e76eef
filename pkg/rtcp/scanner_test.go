package rtcp

import (
	"testing"
)

func compound(t *testing.T, packets ...Packet) []byte {
	t.Helper()
	var out []byte
	for _, p := range packets {
		data, err := p.Marshal()
		if err != nil {
			t.Fatalf("marshal %T: %v", p, err)
		}
		out = append(out, data...)
	}
	return out
}

func TestScannerWalksCompound(t *testing.T) {
	datagram := compound(t,
		&ReceiverReport{SSRC: 1},
		&PictureLossIndication{SenderSSRC: 1, MediaSSRC: 2},
		&Goodbye{Sources: []uint32{1}},
	)

	var types []uint8
	s := NewScanner(datagram)
	for s.Scan() {
		types = append(types, s.Header().Type)
		if got, want := len(s.Bytes()), (int(s.Header().Length)+1)*4; got != want {
			t.Fatalf("packet size = %d, want %d", got, want)
		}
	}
	if err := s.Err(); err != nil {
		t.Fatalf("scanner: %v", err)
	}

	want := []uint8{TypeReceiverReport, TypePayloadSpecificFeedback, TypeGoodbye}
	if len(types) != len(want) {
		t.Fatalf("scanned %d packets, want %d", len(types), len(want))
	}
	for i := range want {
		if types[i] != want[i] {
			t.Fatalf("packet %d type = %d, want %d", i, types[i], want[i])
		}
	}
}

func TestScannerRejectsBadVersion(t *testing.T) {
	datagram := compound(t, &ReceiverReport{SSRC: 1})
	datagram[0] = (1 << versionShift) | (datagram[0] & ^uint8(versionMask<<versionShift))

	s := NewScanner(datagram)
	if s.Scan() {
		t.Fatal("scanned a version 1 packet")
	}
	if got, want := s.Err(), errInvalidVersion; got != want {
		t.Fatalf("err = %v, want %v", got, want)
	}
}

func TestScannerRejectsTruncatedLength(t *testing.T) {
	datagram := compound(t, &ReceiverReport{SSRC: 1})
	// declare one more word than the buffer holds
	datagram[3]++

	s := NewScanner(datagram)
	if s.Scan() {
		t.Fatal("scanned a truncated packet")
	}
	if got, want := s.Err(), errPacketTooShort; got != want {
		t.Fatalf("err = %v, want %v", got, want)
	}
}

func TestScannerStopsOnLaterInvalidBlock(t *testing.T) {
	datagram := compound(t,
		&ReceiverReport{SSRC: 1},
		&PictureLossIndication{SenderSSRC: 1, MediaSSRC: 2},
	)
	// corrupt the second block's version
	datagram[8] &= ^uint8(versionMask << versionShift)

	var scanned int
	s := NewScanner(datagram)
	for s.Scan() {
		scanned++
	}
	if scanned != 1 {
		t.Fatalf("scanned %d packets before the invalid block, want 1", scanned)
	}
	if s.Err() == nil {
		t.Fatal("expected an error from the invalid second block")
	}
}

func TestScannerRejectsBadPadding(t *testing.T) {
	datagram := compound(t, &ReceiverReport{SSRC: 1})
	datagram[0] |= 1 << paddingShift
	// trailing padding octet claims more padding than the packet holds
	datagram[len(datagram)-1] = 0xFF

	s := NewScanner(datagram)
	if s.Scan() {
		t.Fatal("scanned a packet with out of range padding")
	}
	if got, want := s.Err(), errInvalidPadding; got != want {
		t.Fatalf("err = %v, want %v", got, want)
	}
}

func TestScannerEmpty(t *testing.T) {
	s := NewScanner(nil)
	if s.Scan() {
		t.Fatal("scanned a packet from an empty buffer")
	}
	if err := s.Err(); err != nil {
		t.Fatalf("empty buffer is not an error, got %v", err)
	}
}
