package ptcow

import "log"

// EnvPoint is one control point of a volume envelope. X is the offset in
// envelope time from the previous point, Y the volume at that point.
type EnvPoint struct {
	X uint16
	Y uint8
}

// EnvelopeSrc describes the volume envelope of a voice. An empty point list
// means the voice plays unshaped at full amplitude.
type EnvelopeSrc struct {
	// Envelope time resolution; the higher, the fewer envelope points pass
	// per second.
	SecondsPerPoint uint32
	Points          []EnvPoint
}

// Never allocate an envelope table larger than this (1 megabyte).
const envSizeSafetyLimit = 1 << 20

// prepare flattens the envelope to one volume byte per output sample with
// linear interpolation between points, holding the last value. The second
// return is the release length in samples, derived from the final point.
// A nil table means the envelope does not apply.
func (env *EnvelopeSrc) prepare(outSampleRate int) (table []uint8, release uint32) {
	if len(env.Points) == 0 {
		return nil, 0
	}
	if env.SecondsPerPoint == 0 {
		log.Printf("envelope: zero time resolution, skipping")
		return nil, 0
	}
	head := len(env.Points) - 1
	var size uint32
	for e := 0; e < head; e++ {
		size += uint32(env.Points[e].X)
	}
	envSize := int(float64(size) * float64(outSampleRate) / float64(env.SecondsPerPoint))
	if envSize == 0 {
		envSize = 1
	}
	if envSize > envSizeSafetyLimit {
		log.Printf("envelope table too large (%d samples), skipping", envSize)
		return nil, 0
	}
	abs, headNum := env.toAbsolute(head, outSampleRate)
	table = make([]uint8, envSize)
	fillEnvelope(table, abs, headNum)
	if head < len(env.Points) {
		release = uint32(float64(env.Points[head].X) * float64(outSampleRate) / float64(env.SecondsPerPoint))
	}
	return table, release
}

type absEnvPoint struct {
	x uint32
	y uint8
}

// toAbsolute converts the delta-x point list to absolute sample positions.
// Zero points after the first are dropped, matching the reference player.
func (env *EnvelopeSrc) toAbsolute(head, outSampleRate int) ([]absEnvPoint, int) {
	points := make([]absEnvPoint, head)
	var offset uint32
	headNum := 0
	for e := 0; e < head; e++ {
		if e == 0 || env.Points[e].X != 0 || env.Points[e].Y != 0 {
			offset += uint32(float64(env.Points[e].X) * float64(outSampleRate) / float64(env.SecondsPerPoint))
			points[e] = absEnvPoint{x: offset, y: env.Points[e].Y}
			headNum++
		}
	}
	return points, headNum
}

func fillEnvelope(dst []uint8, abs []absEnvPoint, headNum int) {
	e := 0
	var startX uint32
	var startY int32
	for i := range dst {
		for e < headNum && uint32(i) >= abs[e].x {
			startX = abs[e].x
			startY = int32(abs[e].y)
			e++
		}
		if e < headNum {
			dst[i] = uint8(startY + (int32(abs[e].y)-startY)*(int32(i)-int32(startX))/(int32(abs[e].x)-int32(startX)))
		} else {
			dst[i] = uint8(startY)
		}
	}
}
