package rtcp

import "encoding/binary"

// Extended report block types used by this implementation (RFC 3611, 4).
const (
	XRBlockReceiverReferenceTime = 4
	XRBlockDLRR                  = 5
)

// A ReceiverReferenceTimeReportBlock carries the NTP time at which a
// receiver, which is not itself an RTP sender, generated the report
// (RFC 3611, 4.4).
type ReceiverReferenceTimeReportBlock struct {
	NTPTimestamp uint64
}

// A DLRRReport is one (SSRC, last RR, delay since last RR) triplet of a DLRR
// report block; last RR and the delay are in 1/65536 second units.
type DLRRReport struct {
	SSRC   uint32
	LastRR uint32
	DLRR   uint32
}

// A DLRRReportBlock mirrors reception report timing back to receivers that
// sent a receiver reference time report (RFC 3611, 4.5).
type DLRRReportBlock struct {
	Reports []DLRRReport
}

// An ExtendedReport (XR) packet is a container for report blocks beyond the
// ones SR and RR can carry (RFC 3611). Only the receiver-reference-time and
// DLRR block types are decoded; other block types are skipped.
type ExtendedReport struct {
	// The synchronization source identifier for the originator of this XR packet.
	SenderSSRC uint32

	ReferenceTimes []ReceiverReferenceTimeReportBlock
	DLRRBlocks     []DLRRReportBlock
}

const (
	xrBlockHeaderLength = 4
	xrRRTRBlockLength   = 8
	xrDLRRReportLength  = 12
)

// Marshal encodes the ExtendedReport in binary
func (p ExtendedReport) Marshal() ([]byte, error) {
	/*
	 *  0                   1                   2                   3
	 *  0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1
	 * +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
	 * |V=2|P|reserved |   PT=XR=207   |             length            |
	 * +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
	 * |                              SSRC                             |
	 * +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
	 * :                         report blocks                         :
	 * +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
	 */
	rawPacket := make([]byte, ssrcLength)
	binary.BigEndian.PutUint32(rawPacket, p.SenderSSRC)

	for _, rrtr := range p.ReferenceTimes {
		block := make([]byte, xrBlockHeaderLength+xrRRTRBlockLength)
		block[0] = XRBlockReceiverReferenceTime
		binary.BigEndian.PutUint16(block[2:], xrRRTRBlockLength/4)
		binary.BigEndian.PutUint64(block[4:], rrtr.NTPTimestamp)
		rawPacket = append(rawPacket, block...)
	}

	for _, dlrr := range p.DLRRBlocks {
		block := make([]byte, xrBlockHeaderLength+len(dlrr.Reports)*xrDLRRReportLength)
		block[0] = XRBlockDLRR
		binary.BigEndian.PutUint16(block[2:], uint16(len(dlrr.Reports)*xrDLRRReportLength/4))
		for i, report := range dlrr.Reports {
			offset := xrBlockHeaderLength + i*xrDLRRReportLength
			binary.BigEndian.PutUint32(block[offset:], report.SSRC)
			binary.BigEndian.PutUint32(block[offset+4:], report.LastRR)
			binary.BigEndian.PutUint32(block[offset+8:], report.DLRR)
		}
		rawPacket = append(rawPacket, block...)
	}

	h := Header{
		Version: rtcpVersion,
		Type:    TypeExtendedReport,
		Length:  uint16(len(rawPacket) / 4),
	}
	hData, err := h.Marshal()
	if err != nil {
		return nil, err
	}

	return append(hData, rawPacket...), nil
}

// Unmarshal decodes the ExtendedReport from binary
func (p *ExtendedReport) Unmarshal(rawPacket []byte) error {
	if len(rawPacket) < (headerLength + ssrcLength) {
		return errPacketTooShort
	}

	var h Header
	if err := h.Unmarshal(rawPacket); err != nil {
		return err
	}
	if h.Type != TypeExtendedReport {
		return errWrongType
	}

	body, err := packetBody(rawPacket, h)
	if err != nil {
		return err
	}

	p.SenderSSRC = binary.BigEndian.Uint32(body)

	for offset := ssrcLength; offset < len(body); {
		if offset+xrBlockHeaderLength > len(body) {
			return errPacketTooShort
		}

		blockType := body[offset]
		blockLength := int(binary.BigEndian.Uint16(body[offset+2:])) * 4
		blockBody := body[offset+xrBlockHeaderLength:]
		if blockLength > len(blockBody) {
			return errPacketTooShort
		}
		blockBody = blockBody[:blockLength]

		switch blockType {
		case XRBlockReceiverReferenceTime:
			if len(blockBody) < xrRRTRBlockLength {
				return errPacketTooShort
			}
			p.ReferenceTimes = append(p.ReferenceTimes, ReceiverReferenceTimeReportBlock{
				NTPTimestamp: binary.BigEndian.Uint64(blockBody),
			})
		case XRBlockDLRR:
			var block DLRRReportBlock
			for i := 0; i+xrDLRRReportLength <= len(blockBody); i += xrDLRRReportLength {
				block.Reports = append(block.Reports, DLRRReport{
					SSRC:   binary.BigEndian.Uint32(blockBody[i:]),
					LastRR: binary.BigEndian.Uint32(blockBody[i+4:]),
					DLRR:   binary.BigEndian.Uint32(blockBody[i+8:]),
				})
			}
			p.DLRRBlocks = append(p.DLRRBlocks, block)
		default:
			// unrecognized block types are skipped by their declared length
		}

		offset += xrBlockHeaderLength + blockLength
	}

	return nil
}
