package ptcow

import "math"

// OscPoint is a 2d control point for coordinate and overtone based wave
// generation.
type OscPoint struct {
	X uint16
	Y int16
}

// overtoneAmplitude evaluates sample index of a wave built by overlaying sine
// harmonics. Each point's X is the harmonic number and Y its amplitude.
func overtoneAmplitude(points []OscPoint, index uint16, sampleNum uint32, volume int16) float64 {
	var sum float64
	for _, pt := range points {
		phase := 2 * math.Pi * float64(pt.X) * float64(index) / float64(sampleNum)
		sum += math.Sin(phase) * float64(pt.Y) / float64(pt.X) / 128
	}
	return sum * float64(volume) / 128
}

// coordAmplitude evaluates sample index of a wave defined by piecewise-linear
// coordinates. X is time on a grid of hres steps, Y is amplitude. Past the
// last point the wave interpolates back to the first point's amplitude.
func coordAmplitude(points []OscPoint, index uint16, sampleNum uint32, hres uint16, volume int16) float64 {
	if len(points) == 0 {
		return 0
	}
	i := uint16(uint32(hres) * uint32(index) / sampleNum)
	c := 0
	for c < len(points) {
		if points[c].X > i {
			break
		}
		c++
	}
	var x1, x2 uint16
	var y1, y2 int16
	switch {
	case c == len(points):
		x1, y1 = points[c-1].X, points[c-1].Y
		x2, y2 = hres, points[0].Y
	case c != 0:
		x1, y1 = points[c-1].X, points[c-1].Y
		x2, y2 = points[c].X, points[c].Y
	default:
		x1, y1 = points[0].X, points[0].Y
		x2, y2 = points[0].X, points[0].Y
	}
	w := x2 - x1
	if i > x1 {
		i -= x1
	} else {
		i = 0
	}
	h := y2 - y1
	work := float64(y1)
	if i != 0 {
		work += float64(h) * float64(i) / float64(w)
	}
	return work * float64(volume) / 128 / 128
}
