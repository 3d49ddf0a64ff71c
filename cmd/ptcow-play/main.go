package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"syscall"

	"golang.org/x/term"

	"github.com/crumblingstatue/ptcow"
	"github.com/crumblingstatue/ptcow/oto"
	"github.com/crumblingstatue/ptcow/version"
)

func main() {
	rate := flag.Int("r", 44100, "Output sample rate in Hz.")
	bufSize := flag.Int("b", 4096, "Render buffer size in frames.")
	play := flag.Bool("p", false, "Play through the sound card instead of writing raw samples to standard output.")
	noLoop := flag.Bool("no-loop", false, "Stop at the end of the song instead of looping.")
	startMeas := flag.Uint("start-meas", 0, "Start playing from the given measure.")
	endMeas := flag.Uint("end-meas", 0, "Stop at the given measure; 0 means the song's own end.")
	quiet := flag.Bool("q", false, "Do not print song information.")
	versionFlag := flag.Bool("v", false, "Print version.")
	help := flag.Bool("h", false, "Show help.")
	flag.Usage = printUsage
	flag.Parse()
	if *versionFlag {
		fmt.Println(version.VersionOrHash)
		os.Exit(0)
	}
	if flag.NArg() != 1 || *help {
		flag.Usage()
		os.Exit(0)
	}
	if !*play && term.IsTerminal(int(os.Stdout.Fd())) {
		fmt.Fprintln(os.Stderr, "refusing to write raw samples to a terminal; redirect standard output or pass -p")
		os.Exit(1)
	}
	plan := ptcow.MooPlan{
		Start: ptcow.StartAtMeas(ptcow.Meas(*startMeas)),
		Loop:  !*noLoop,
	}
	if *endMeas > 0 {
		end := ptcow.Meas(*endMeas)
		plan.MeasEnd = &end
	}
	if err := run(flag.Arg(0), *rate, *bufSize, plan, *play, *quiet); err != nil {
		fmt.Fprintf(os.Stderr, "could not play %v: %v\n", flag.Arg(0), err)
		os.Exit(1)
	}
}

func run(filename string, rate, bufSize int, plan ptcow.MooPlan, play, quiet bool) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("could not read file: %v", err)
	}
	song, err := ptcow.ReadSong(data)
	if err != nil {
		return fmt.Errorf("could not decode song: %v", err)
	}
	if !quiet {
		printInfo(song)
	}
	moo, err := ptcow.NewMoo(song, rate, plan)
	if err != nil {
		return fmt.Errorf("could not start playback: %v", err)
	}
	for _, err := range moo.VoiceErrors() {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}
	if !play {
		return renderRaw(moo, bufSize)
	}
	audioContext, err := oto.NewContext(rate)
	if err != nil {
		return fmt.Errorf("could not acquire audio context: %v", err)
	}
	defer audioContext.Close()
	sink := audioContext.Output()
	defer sink.Close()
	buf := make([]int16, bufSize*ptcow.MaxChannels)
	for {
		n, more := moo.Render(buf)
		if err := sink.WriteAudio(buf[:n]); err != nil {
			return fmt.Errorf("could not write audio: %v", err)
		}
		if !more {
			return nil
		}
	}
}

func renderRaw(moo *ptcow.Moo, bufSize int) error {
	out := make([]byte, 0, bufSize*ptcow.MaxChannels*2)
	buf := make([]int16, bufSize*ptcow.MaxChannels)
	for {
		n, more := moo.Render(buf)
		out = out[:0]
		for _, s := range buf[:n] {
			out = append(out, byte(s), byte(s>>8))
		}
		if _, err := os.Stdout.Write(out); err != nil {
			// a closed pipe downstream is a normal way to stop
			if errors.Is(err, syscall.EPIPE) || errors.Is(err, io.ErrClosedPipe) {
				return nil
			}
			return fmt.Errorf("could not write samples: %v", err)
		}
		if !more {
			return nil
		}
	}
}

func printInfo(song *ptcow.Song) {
	info := song.Info()
	if info.Name != "" {
		fmt.Fprintf(os.Stderr, "%v\n", info.Name)
	}
	fmt.Fprintf(os.Stderr, "%v bpm, %v meas, %v units, %v voices\n",
		info.BPM, info.MeasNum, len(info.Units), len(info.Voices))
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Play a pxtone song file.\nUsage: %s [flags] path\n", os.Args[0])
	flag.PrintDefaults()
}
