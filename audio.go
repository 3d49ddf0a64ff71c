package ptcow

type AudioSink interface {
	WriteAudio(buffer []int16) error
	Close() error
}

type AudioContext interface {
	Output() AudioSink
	Close() error
}
