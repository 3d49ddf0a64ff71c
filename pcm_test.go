package ptcow

import "testing"

func TestPCMConvertZeroSampleRate(t *testing.T) {
	p := &PCMData{
		Channels:      1,
		BitsPerSample: 16,
		SampleRate:    0,
		SampleNum:     4,
		Data:          make([]byte, 8),
	}
	num, buf := p.toConverted(NativeSampleRate)
	if num != 0 || len(buf) != 0 {
		t.Errorf("got %v samples in a %v value buffer, expected silence", num, len(buf))
	}
}

func TestPCMConvertMatchingRate(t *testing.T) {
	p := &PCMData{
		Channels:      1,
		BitsPerSample: 16,
		SampleRate:    NativeSampleRate,
		SampleNum:     2,
		Data:          []byte{0x10, 0, 0x20, 0},
	}
	num, buf := p.toConverted(NativeSampleRate)
	if num != 2 {
		t.Fatalf("got %v samples, expected 2", num)
	}
	want := []int16{0x10, 0x10, 0x20, 0x20}
	for i, v := range want {
		if buf[i] != v {
			t.Errorf("value %v is %v, expected %v", i, buf[i], v)
		}
	}
}
