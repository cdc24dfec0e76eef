package ntp

import (
	"testing"
	"time"
)

func TestEra(t *testing.T) {
	for _, test := range []struct {
		Time time.Time
		Want int32
	}{
		{
			Time: time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC),
			Want: 0,
		},
		{
			Time: time.Date(1850, 1, 1, 0, 0, 0, 0, time.UTC),
			Want: -1,
		},
		{
			Time: time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC),
			Want: 0,
		},
		{
			Time: time.Date(2040, 1, 1, 0, 0, 0, 0, time.UTC),
			Want: 1,
		},
	} {
		if got, want := era(test.Time), test.Want; got != want {
			t.Fatalf("era(%v) = %v, want %v", test.Time, got, want)
		}
	}
}

func TestTime64(t *testing.T) {
	for _, test := range []struct {
		Time64 Time64
		Want   time.Time
	}{
		{
			Time64: Time64(0xDA8BD1fCDDDDA05A),
			Want:   time.Date(2016, 3, 10, 10, 59, 8, 866663000, time.UTC),
		},
	} {
		if got, want := test.Time64.Time(), test.Want; got != want {
			t.Fatalf("Time() = %v, want %v", got, want)
		}
	}
}

func TestFromTimeRoundTrip(t *testing.T) {
	for _, test := range []time.Time{
		time.Date(2016, 3, 10, 10, 59, 8, 866663000, time.UTC),
		time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(1995, 6, 15, 23, 59, 59, 999999999, time.UTC),
	} {
		got := FromTime(test).Time()
		if d := got.Sub(test); d < -time.Microsecond || d > time.Microsecond {
			t.Fatalf("FromTime(%v).Time() = %v, off by %v", test, got, d)
		}
	}
}

func TestCompact(t *testing.T) {
	for _, test := range []struct {
		Time64 Time64
		Want   Time32
	}{
		{
			Time64: NewTime64(0x11223344, 0x55667788),
			Want:   Time32(0x33445566),
		},
		{
			Time64: NewTime64(65537, 0),
			Want:   Time32(0x00010000),
		},
	} {
		if got, want := test.Time64.Compact(), test.Want; got != want {
			t.Fatalf("Compact(%#x) = %#x, want %#x", uint64(test.Time64), got, want)
		}
	}
}

func TestTime32Milliseconds(t *testing.T) {
	for _, test := range []struct {
		Delta Time32
		Want  int64
	}{
		// One second.
		{Delta: 0x00010000, Want: 1000},
		// Half a second, rounded to nearest.
		{Delta: 0x00008000, Want: 500},
		// Wrapped delta: modular subtraction keeps the high bit meaningful.
		{Delta: 0x80000000, Want: (int64(0x80000000)*1000 + 0x8000) >> 16},
		{Delta: 0, Want: 0},
	} {
		if got, want := test.Delta.Milliseconds(), test.Want; got != want {
			t.Fatalf("Milliseconds(%#x) = %v, want %v", uint32(test.Delta), got, want)
		}
	}
}
