package rtcp

import "github.com/pkg/errors"

var (
	errInvalidVersion    = errors.New("rtcp: invalid packet version")
	errInvalidCount      = errors.New("rtcp: invalid count header")
	errInvalidHeader     = errors.New("rtcp: invalid header")
	errInvalidTotalLost  = errors.New("rtcp: invalid total lost count")
	errInvalidPadding    = errors.New("rtcp: invalid padding length")
	errInvalidBitrate    = errors.New("rtcp: invalid bitrate")
	errTooManyReports    = errors.New("rtcp: too many reports")
	errTooManySources    = errors.New("rtcp: too many sources")
	errPacketTooShort    = errors.New("rtcp: packet too short")
	errWrongType         = errors.New("rtcp: wrong packet type")
	errSDESTextTooLong   = errors.New("rtcp: sdes must be <= 255 octets long")
	errSDESMissingType   = errors.New("rtcp: sdes item missing type")
	errReasonTooLong     = errors.New("rtcp: reason must be <= 255 octets long")
	errMissingREMB       = errors.New("rtcp: missing REMB identifier")
	errDeltaExceedLimit  = errors.New("rtcp: delta exceeds limit")
	errPacketStatusChunk = errors.New("rtcp: invalid packet status chunk")
)
