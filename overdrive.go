package ptcow

// Overdrive clips and amplifies the samples of one group. The samples are
// 32 bit but their effective range is 16 bit.
type Overdrive struct {
	// Index of the group the overdrive applies to.
	Group uint8
	// How much of the amplitude is cut, in percent. 0 cuts nothing, 100
	// everything.
	CutPercent float32
	// Amplification applied after the cut.
	AmpMul float32

	cut16BitTop int32
}

// Valid ranges for the overdrive parameters.
const (
	OverdriveCutMin = 50.0
	OverdriveCutMax = 99.9
	OverdriveAmpMin = 0.1
	OverdriveAmpMax = 8.0
)

func (o *Overdrive) rebuild() {
	o.cut16BitTop = int32(32767.0 * (100.0 - o.CutPercent) / 100.0)
}

func (o *Overdrive) toneSupple(groups *groupSamples) {
	work := groups[o.Group]
	if work > o.cut16BitTop {
		work = o.cut16BitTop
	} else if work < -o.cut16BitTop {
		work = -o.cut16BitTop
	}
	groups[o.Group] = int32(float32(work) * o.AmpMul)
}

// On the wire: u16 reserved, u16 group, f32 cut, f32 amp, f32 reserved.
const overdriveChunkSize = 16

func readOverdrive(r *reader) (Overdrive, error) {
	size, err := r.u32("size")
	if err != nil {
		return Overdrive{}, err
	}
	if size != overdriveChunkSize {
		return Overdrive{}, r.malformed("size")
	}
	xxx, err := r.u16("reserved")
	if err != nil {
		return Overdrive{}, err
	}
	if xxx != 0 {
		return Overdrive{}, r.malformed("reserved")
	}
	group, err := r.u16("group")
	if err != nil {
		return Overdrive{}, err
	}
	if group >= GroupCount {
		return Overdrive{}, r.malformed("group")
	}
	cut, err := r.f32("cut")
	if err != nil {
		return Overdrive{}, err
	}
	if cut < OverdriveCutMin || cut > OverdriveCutMax {
		return Overdrive{}, r.malformed("cut")
	}
	amp, err := r.f32("amp")
	if err != nil {
		return Overdrive{}, err
	}
	if amp < OverdriveAmpMin || amp > OverdriveAmpMax {
		return Overdrive{}, r.malformed("amp")
	}
	if _, err := r.f32("reserved tail"); err != nil {
		return Overdrive{}, err
	}
	return Overdrive{
		Group:      uint8(group),
		CutPercent: cut,
		AmpMul:     amp,
	}, nil
}

func (o *Overdrive) write(out []byte) []byte {
	out = append(out, tagEffeOVER...)
	out = appendU32(out, overdriveChunkSize)
	out = appendU16(out, 0)
	out = appendU16(out, uint16(o.Group))
	out = appendF32(out, o.CutPercent)
	out = appendF32(out, o.AmpMul)
	return appendF32(out, 0)
}
