package oto

import (
	"fmt"
	"io"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/crumblingstatue/ptcow"
)

type OtoContext struct {
	ctx        *oto.Context
	sampleRate int
}

type OtoOutput struct {
	player    *oto.Player
	pipeW     *io.PipeWriter
	tmpBuffer []byte
}

// NewContext creates and initializes an audio context at the given sample
// rate. It blocks until the audio device is ready.
func NewContext(sampleRate int) (*OtoContext, error) {
	context, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 2,
		Format:       oto.FormatSignedInt16LE,
	})
	if err != nil {
		return nil, fmt.Errorf("cannot create oto context: %w", err)
	}
	<-ready
	return &OtoContext{ctx: context, sampleRate: sampleRate}, nil
}

func (c *OtoContext) Output() ptcow.AudioSink {
	pipeR, pipeW := io.Pipe()
	player := c.ctx.NewPlayer(pipeR)
	player.Play()
	return &OtoOutput{player: player, pipeW: pipeW}
}

func (c *OtoContext) Close() error {
	if err := c.ctx.Suspend(); err != nil {
		return fmt.Errorf("cannot suspend oto context: %w", err)
	}
	return nil
}

// WriteAudio queues a stereo int16 buffer for playback. It blocks while the
// device drains earlier buffers.
func (o *OtoOutput) WriteAudio(buffer []int16) error {
	// we reuse the old capacity of tmpBuffer by setting its length to zero.
	// then, we save the tmpBuffer so we can reuse it next time
	o.tmpBuffer = int16BufferToLE(buffer, o.tmpBuffer[:0])
	if _, err := o.pipeW.Write(o.tmpBuffer); err != nil {
		return fmt.Errorf("cannot write to player: %w", err)
	}
	return nil
}

// Close waits for the queued audio to finish playing and disposes of the
// player.
func (o *OtoOutput) Close() error {
	o.pipeW.Close()
	for o.player.IsPlaying() && o.player.BufferedSize() > 0 {
		time.Sleep(10 * time.Millisecond)
	}
	if err := o.player.Close(); err != nil {
		return fmt.Errorf("cannot close oto player: %w", err)
	}
	return nil
}
