// Package platform holds the external object-publication and
// sensor-polling interfaces that stand in for the out-of-scope D-Bus-style
// production surface (spec.md §1 Non-goals, §6 "Object-publication
// surface"; SPEC_FULL.md §6). Nothing in this module implements the real
// surface; callers inject their own PublicationSurface/PlatformHandle, and
// cmd/pldmd wires a logging-only default.
package platform

import "github.com/rs/zerolog/log"

// PublicationSurface is the external object-publication collaborator a
// session controller reports into: per-component download progress and
// the terminal Activation outcome (spec.md §6).
type PublicationSurface interface {
	// ReportProgress is called at 25-percentile crossings of a
	// component's download.
	ReportProgress(tid uint8, componentIndex int, percent int)
	// SetActivation records the terminal Activation property.
	SetActivation(tid uint8, active bool)
}

// PlatformHandle exposes the sensor-polling pause/resume hooks the session
// controller calls around an update (spec.md §5: "Sensor polling is
// paused for the duration of an update and resumed upon completion").
type PlatformHandle interface {
	PausePolling(tid uint8)
	ResumePolling(tid uint8)
}

// LoggingSurface is the only concrete PublicationSurface/PlatformHandle in
// this module: it logs every call (SetActivation at info level, the rest
// at debug level) instead of publishing to
// a real object bus, grounded on the teacher's status-line logging idiom
// in internal/ghost/service.go's heartbeat (zerolog structured fields
// rather than a published property).
type LoggingSurface struct{}

func (LoggingSurface) ReportProgress(tid uint8, componentIndex int, percent int) {
	log.Debug().Uint8("tid", tid).Int("component", componentIndex).Int("percent", percent).Msg("platform: progress")
}

func (LoggingSurface) SetActivation(tid uint8, active bool) {
	log.Info().Uint8("tid", tid).Bool("active", active).Msg("platform: activation")
}

func (LoggingSurface) PausePolling(tid uint8) {
	log.Debug().Uint8("tid", tid).Msg("platform: sensor polling paused")
}

func (LoggingSurface) ResumePolling(tid uint8) {
	log.Debug().Uint8("tid", tid).Msg("platform: sensor polling resumed")
}
