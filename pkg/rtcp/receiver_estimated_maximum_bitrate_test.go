package rtcp

import (
	"reflect"
	"testing"
)

func TestREMBRoundTrip(t *testing.T) {
	for _, test := range []struct {
		Name string
		REMB ReceiverEstimatedMaximumBitrate
	}{
		{
			Name: "mantissa only",
			REMB: ReceiverEstimatedMaximumBitrate{
				SenderSSRC: 1,
				Bitrate:    262143,
				SSRCs:      []uint32{0x55667788},
			},
		},
		{
			Name: "bitrate requiring an exponent",
			REMB: ReceiverEstimatedMaximumBitrate{
				SenderSSRC: 0x902F9E2E,
				Bitrate:    1048576,
				SSRCs:      []uint32{1, 2, 3},
			},
		},
		{
			Name: "no ssrcs",
			REMB: ReceiverEstimatedMaximumBitrate{
				SenderSSRC: 1,
				Bitrate:    1000,
				SSRCs:      []uint32{},
			},
		},
	} {
		data, err := test.REMB.Marshal()
		if err != nil {
			t.Fatalf("Marshal %q: %v", test.Name, err)
		}

		var decoded ReceiverEstimatedMaximumBitrate
		if err := decoded.Unmarshal(data); err != nil {
			t.Fatalf("Unmarshal %q: %v", test.Name, err)
		}

		if got, want := decoded, test.REMB; !reflect.DeepEqual(got, want) {
			t.Fatalf("%q remb round trip: got %#v, want %#v", test.Name, got, want)
		}
	}
}

func TestREMBMissingIdentifier(t *testing.T) {
	data, err := (ReceiverEstimatedMaximumBitrate{SenderSSRC: 1, Bitrate: 1000, SSRCs: []uint32{}}).Marshal()
	if err != nil {
		t.Fatalf("marshal remb: %v", err)
	}
	// clobber the unique identifier
	data[headerLength+rembOffset] = 'X'

	var remb ReceiverEstimatedMaximumBitrate
	if got, want := remb.Unmarshal(data), errMissingREMB; got != want {
		t.Fatalf("unmarshal without identifier: err = %v, want %v", got, want)
	}
}
