// graphplay is a small command-line front end for the audio graph engine:
// enumerate output devices, validate a graph class file and print its hash,
// and play WAV files through the standard engine graph.
package main

import (
	"fmt"
	"os"

	"github.com/kestrelaudio/graphcore/internal/logging"
)

func main() {
	logging.Init()

	if err := rootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
