// Command stampvars turns workspace status lines ("KEY VALUE") read from
// stdin into a JSON object, keeping the keys in input order.
package main

import (
	"bytes"
	"os"

	"github.com/evyataryagoni/geolookup/internal/buildinfo"
	"github.com/evyataryagoni/geolookup/internal/logger"
	"github.com/spf13/pflag"
)

var (
	outFile = pflag.StringP("out", "o", "", "Write the JSON object to this file instead of stdout")
	verbose = pflag.BoolP("verbose", "v", false, "Verbose logging")
)

func main() {
	pflag.Parse()

	log := newLogger()

	status, err := buildinfo.ParseStatus(os.Stdin)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid status input")
	}

	data, err := status.MarshalJSON()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to encode status")
	}

	var out bytes.Buffer
	out.Write(data)
	out.WriteByte('\n')

	if *outFile == "" {
		os.Stdout.Write(out.Bytes())
		return
	}

	if err := os.WriteFile(*outFile, out.Bytes(), 0o644); err != nil {
		log.Fatal().Err(err).Str("path", *outFile).Msg("Failed to write output")
	}
	log.Debug().Str("path", *outFile).Int("keys", status.Len()).Msg("Status written")
}

func newLogger() *logger.Logger {
	level := "info"
	if *verbose {
		level = "debug"
	}
	return logger.New(logger.Config{Level: level, Pretty: true, Output: os.Stderr})
}
