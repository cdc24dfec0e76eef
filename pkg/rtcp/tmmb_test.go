package rtcp

import (
	"math"
	"reflect"
	"testing"
)

func TestTMMBRRoundTrip(t *testing.T) {
	for _, test := range []struct {
		Name string
		Req  TemporaryMaximumMediaStreamBitRateRequest
	}{
		{
			Name: "single request",
			Req: TemporaryMaximumMediaStreamBitRateRequest{
				SenderSSRC: 0x0203,
				MediaSSRC:  0,
				Requests:   []TMMBItem{{SSRC: 0x0102, BitrateBPS: 30000, PacketOverhead: 40}},
			},
		},
		{
			Name: "bitrate requiring an exponent",
			Req: TemporaryMaximumMediaStreamBitRateRequest{
				SenderSSRC: 1,
				Requests: []TMMBItem{
					{SSRC: 2, BitrateBPS: 2000000, PacketOverhead: 60},
					{SSRC: 3, BitrateBPS: 131071, PacketOverhead: 511},
				},
			},
		},
	} {
		data, err := test.Req.Marshal()
		if err != nil {
			t.Fatalf("Marshal %q: %v", test.Name, err)
		}

		var decoded TemporaryMaximumMediaStreamBitRateRequest
		if err := decoded.Unmarshal(data); err != nil {
			t.Fatalf("Unmarshal %q: %v", test.Name, err)
		}

		if got, want := decoded, test.Req; !reflect.DeepEqual(got, want) {
			t.Fatalf("%q tmmbr round trip: got %#v, want %#v", test.Name, got, want)
		}
	}
}

func TestTMMBNRoundTrip(t *testing.T) {
	notification := TemporaryMaximumMediaStreamBitRateNotification{
		SenderSSRC: 0x0203,
		Notifications: []TMMBItem{
			{SSRC: 1, BitrateBPS: 8192000, PacketOverhead: 40},
		},
	}

	data, err := notification.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var decoded TemporaryMaximumMediaStreamBitRateNotification
	if err := decoded.Unmarshal(data); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	if got, want := decoded, notification; !reflect.DeepEqual(got, want) {
		t.Fatalf("tmmbn round trip: got %#v, want %#v", got, want)
	}
}

func TestTMMBItemBitrateSaturation(t *testing.T) {
	word := make([]byte, tmmbItemLength)
	// exponent 63, full mantissa: the shifted value cannot fit a uint64
	word[4] = 0xFF
	word[5] = 0xFF
	word[6] = 0xFF
	word[7] = 0xFF

	var item TMMBItem
	if err := item.unmarshal(word); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got, want := item.BitrateBPS, uint64(math.MaxUint64); got != want {
		t.Fatalf("BitrateBPS = %d, want %d", got, want)
	}
}

func TestTMMBRWrongFormat(t *testing.T) {
	data, err := (TemporaryMaximumMediaStreamBitRateNotification{SenderSSRC: 1}).Marshal()
	if err != nil {
		t.Fatalf("marshal tmmbn: %v", err)
	}

	var req TemporaryMaximumMediaStreamBitRateRequest
	if got, want := req.Unmarshal(data), errWrongType; got != want {
		t.Fatalf("unmarshal tmmbn as tmmbr: err = %v, want %v", got, want)
	}
}
