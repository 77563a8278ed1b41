// Command stamptmpl renders a template with build variables.
//
//	stamptmpl [--set KEY=VALUE]... [--out FILE] <template> <status>
//
// The status file is a JSON object or "KEY VALUE" lines. Every status key is
// available to the template, and APP_VERSION is set to STABLE_GIT_REVISION.
// Placeholders with no matching variable are left as written.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/evyataryagoni/geolookup/internal/buildinfo"
	"github.com/evyataryagoni/geolookup/internal/logger"
	"github.com/spf13/pflag"
)

var (
	outFile   = pflag.StringP("out", "o", "", "Write the rendered template to this file instead of stdout")
	overrides = pflag.StringArray("set", nil, "Set a template variable (KEY=VALUE), overriding the status file")
	verbose   = pflag.BoolP("verbose", "v", false, "Verbose logging")
)

func main() {
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] <template> <status>\n", os.Args[0])
		pflag.PrintDefaults()
	}
	pflag.Parse()

	log := newLogger()

	if pflag.NArg() != 2 {
		pflag.Usage()
		os.Exit(2)
	}
	templatePath, statusPath := pflag.Arg(0), pflag.Arg(1)

	extra, err := parseOverrides(*overrides)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid --set flag")
	}

	tmpl, err := os.ReadFile(templatePath)
	if err != nil {
		log.Fatal().Err(err).Str("path", templatePath).Msg("Failed to read template")
	}

	statusFile, err := os.Open(statusPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", statusPath).Msg("Failed to open status file")
	}
	status, err := buildinfo.LoadStatus(statusFile)
	statusFile.Close()
	if err != nil {
		log.Fatal().Err(err).Str("path", statusPath).Msg("Invalid status file")
	}

	vars, err := buildinfo.TemplateVars(status, extra)
	if err != nil {
		log.Fatal().Err(err).Str("path", statusPath).Msg("Cannot determine APP_VERSION")
	}

	rendered := buildinfo.Render(string(tmpl), vars)

	if *outFile == "" {
		os.Stdout.WriteString(rendered)
		return
	}

	if err := os.WriteFile(*outFile, []byte(rendered), 0o644); err != nil {
		log.Fatal().Err(err).Str("path", *outFile).Msg("Failed to write output")
	}
	log.Debug().
		Str("template", templatePath).
		Str("path", *outFile).
		Str("version", vars[buildinfo.VersionVar]).
		Msg("Template rendered")
}

// parseOverrides turns KEY=VALUE flags into a map; later flags win
func parseOverrides(flags []string) (map[string]string, error) {
	out := make(map[string]string, len(flags))
	for _, f := range flags {
		key, value, ok := strings.Cut(f, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("expected KEY=VALUE, got %q", f)
		}
		out[key] = value
	}
	return out, nil
}

func newLogger() *logger.Logger {
	level := "info"
	if *verbose {
		level = "debug"
	}
	return logger.New(logger.Config{Level: level, Pretty: true, Output: os.Stderr})
}
