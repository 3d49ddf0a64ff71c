package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/crumblingstatue/ptcow"
	"github.com/crumblingstatue/ptcow/version"
)

func main() {
	stdout := flag.Bool("s", false, "Do not write files; write to standard output instead.")
	help := flag.Bool("h", false, "Show help.")
	directory := flag.String("o", "", "Directory where to output all files. The directory and its parents are created if needed. By default, everything is placed in the same directory where the original song file is.")
	rawOut := flag.Bool("r", false, "Output the rendered song as .raw file, stereo 16-bit signed little-endian samples.")
	wavOut := flag.Bool("w", false, "Output the rendered song as .wav file.")
	ymlOut := flag.Bool("y", false, "Output the song information as .yml file.")
	midiOut := flag.Bool("m", false, "Output the song as .mid file.")
	rate := flag.Int("rate", 44100, "Output sample rate in Hz when rendering.")
	versionFlag := flag.Bool("v", false, "Print version.")
	flag.Usage = printUsage
	flag.Parse()
	if *versionFlag {
		fmt.Println(version.VersionOrHash)
		os.Exit(0)
	}
	if flag.NArg() == 0 || *help {
		flag.Usage()
		os.Exit(0)
	}
	if !*rawOut && !*wavOut && !*midiOut {
		*ymlOut = true // if the user gives nothing to output, at least show what the file contains
	}
	process := func(filename string) error {
		output := func(extension string, contents []byte) error {
			if *stdout {
				_, err := os.Stdout.Write(contents)
				return err
			}
			dir, name := filepath.Split(filename)
			if *directory != "" {
				dir = *directory
			}
			name = strings.TrimSuffix(name, filepath.Ext(name)) + extension
			f := filepath.Join(dir, name)
			if dir != "" {
				if err := os.MkdirAll(dir, os.ModePerm); err != nil {
					return fmt.Errorf("could not create output directory %v: %v", dir, err)
				}
			}
			if err := os.WriteFile(f, contents, 0644); err != nil {
				return fmt.Errorf("could not write file %v: %v", f, err)
			}
			return nil
		}
		inputBytes, err := os.ReadFile(filename)
		if err != nil {
			return fmt.Errorf("could not read file %v: %v", filename, err)
		}
		song, err := ptcow.ReadSong(inputBytes)
		if err != nil {
			return fmt.Errorf("could not decode song %v: %v", filename, err)
		}
		if *ymlOut {
			yml, err := yaml.Marshal(song.Info())
			if err != nil {
				return fmt.Errorf("could not marshal the song info: %v", err)
			}
			if err := output(".yml", yml); err != nil {
				return fmt.Errorf("error outputting .yml file: %v", err)
			}
		}
		if *midiOut {
			mid, err := song.MIDI()
			if err != nil {
				return fmt.Errorf("could not generate .mid file: %v", err)
			}
			if err := output(".mid", mid); err != nil {
				return fmt.Errorf("error outputting .mid file: %v", err)
			}
		}
		if *rawOut || *wavOut {
			buffer, err := render(song, *rate)
			if err != nil {
				return fmt.Errorf("could not render the song: %v", err)
			}
			if *rawOut {
				raw, err := ptcow.Raw(buffer)
				if err != nil {
					return fmt.Errorf("could not generate .raw file: %v", err)
				}
				if err := output(".raw", raw); err != nil {
					return fmt.Errorf("error outputting .raw file: %v", err)
				}
			}
			if *wavOut {
				wav, err := ptcow.Wav(buffer, *rate)
				if err != nil {
					return fmt.Errorf("could not generate .wav file: %v", err)
				}
				if err := output(".wav", wav); err != nil {
					return fmt.Errorf("error outputting .wav file: %v", err)
				}
			}
		}
		return nil
	}
	retval := 0
	for _, param := range flag.Args() {
		if info, err := os.Stat(param); err == nil && info.IsDir() {
			files, err := filepath.Glob(filepath.Join(param, "*.ptcop"))
			if err != nil {
				fmt.Fprintf(os.Stderr, "could not glob the path %v for ptcop files: %v\n", param, err)
				retval = 1
				continue
			}
			tunes, err := filepath.Glob(filepath.Join(param, "*.pttune"))
			if err != nil {
				fmt.Fprintf(os.Stderr, "could not glob the path %v for pttune files: %v\n", param, err)
				retval = 1
				continue
			}
			for _, file := range append(files, tunes...) {
				if err := process(file); err != nil {
					fmt.Fprintf(os.Stderr, "could not process file %v: %v\n", file, err)
					retval = 1
				}
			}
		} else {
			if err := process(param); err != nil {
				fmt.Fprintf(os.Stderr, "could not process file %v: %v\n", param, err)
				retval = 1
			}
		}
	}
	os.Exit(retval)
}

func render(song *ptcow.Song, rate int) ([]int16, error) {
	moo, err := ptcow.NewMoo(song, rate, ptcow.MooPlan{})
	if err != nil {
		return nil, err
	}
	for _, err := range moo.VoiceErrors() {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}
	buffer := make([]int16, 0, moo.SampleEnd()*ptcow.MaxChannels)
	buf := make([]int16, 4096*ptcow.MaxChannels)
	for {
		n, more := moo.Render(buf)
		buffer = append(buffer, buf[:n]...)
		if !more {
			return buffer, nil
		}
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Render or convert pxtone song files.\nUsage: %s [flags] [path ...]\n", os.Args[0])
	flag.PrintDefaults()
}
