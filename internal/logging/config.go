// Package logging configures the process-global zerolog logger once at
// startup, generalizing the teacher's env-override pattern
// (internal/logging/config.go) from its original logs.Config shape onto
// zerolog's global level and console writer directly.
package logging

import (
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	// EnvDebug is the spec's named debug switch: any truthy value raises
	// the global level to Debug regardless of EnvLevel (SPEC_FULL.md §2).
	EnvDebug     = "PLDM_DEBUG"
	EnvLevel     = "PLDMD_LOG_LEVEL"
	EnvTimestamp = "PLDMD_LOG_TIMESTAMP"
	EnvNoColor   = "PLDMD_LOG_NOCOLOR"
)

type Profile int

const (
	ProfileRuntime Profile = iota
	ProfileTest
)

var configureOnce sync.Once

func ConfigureRuntime() {
	Configure(ProfileRuntime)
}

func ConfigureTests() {
	Configure(ProfileTest)
}

func Configure(profile Profile) {
	configureOnce.Do(func() {
		level, timestamp, noColor := defaults(profile)
		applyEnvOverrides(&level, &timestamp, &noColor)

		writer := zerolog.ConsoleWriter{Out: os.Stdout, NoColor: noColor}
		logger := zerolog.New(writer).Level(level).With().Str("app", "pldmd").Logger()
		if timestamp {
			logger = logger.With().Timestamp().Logger()
		}
		zerolog.SetGlobalLevel(level)
		log.Logger = logger
	})
}

func defaults(profile Profile) (level zerolog.Level, timestamp, noColor bool) {
	switch profile {
	case ProfileTest:
		return zerolog.DebugLevel, false, true
	default:
		return zerolog.InfoLevel, true, false
	}
}

func applyEnvOverrides(level *zerolog.Level, timestamp, noColor *bool) {
	if lvl, ok := parseLevel(os.Getenv(EnvLevel)); ok {
		*level = lvl
	}
	if v, ok := parseBool(os.Getenv(EnvDebug)); ok && v {
		*level = zerolog.DebugLevel
	}
	if v, ok := parseBool(os.Getenv(EnvTimestamp)); ok {
		*timestamp = v
	}
	if v, ok := parseBool(os.Getenv(EnvNoColor)); ok {
		*noColor = v
	}
}

func parseLevel(raw string) (zerolog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return zerolog.InfoLevel, false
	case "trace":
		return zerolog.TraceLevel, true
	case "debug":
		return zerolog.DebugLevel, true
	case "info":
		return zerolog.InfoLevel, true
	case "warn", "warning":
		return zerolog.WarnLevel, true
	case "error":
		return zerolog.ErrorLevel, true
	case "disabled", "disable", "off", "none":
		return zerolog.Disabled, true
	default:
		return zerolog.InfoLevel, false
	}
}

func parseBool(raw string) (bool, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}
