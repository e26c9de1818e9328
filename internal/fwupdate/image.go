package fwupdate

import "context"

// ImageAccessor is the external collaborator supplying package metadata
// and firmware bytes (spec §1 Out of scope: "the image-file parser...
// byte-range reads"). The session controller owns the image; the
// orchestrator borrows it for the session duration (spec §9 "Cyclic
// ownership").
type ImageAccessor interface {
	// PackageDataLength is the package-header-level metadata blob length.
	PackageDataLength() uint16
	// PackageData returns the raw package-data bytes served to the
	// device during Phase B.
	PackageData(ctx context.Context) ([]byte, error)
	// ComponentImageSetVersionString is sent with RequestUpdate.
	ComponentImageSetVersionString() (versionStringType uint8, version string)
	// ApplicableComponents enumerates components selected by the 64-bit
	// applicability bitfield (spec §4.4 Phase A).
	ApplicableComponents() []ComponentDescriptor
	// ReadComponentBytes reads length bytes at componentOffset+offset
	// from the image accessor (spec §4.4 Phase E step 3).
	ReadComponentBytes(ctx context.Context, componentIndex int, offset, length uint32) ([]byte, error)
}

// PublicationSurface and PlatformHandle live in internal/platform
// (spec.md §6: the object-publication surface is an external
// collaborator, not owned by the firmware-update orchestrator).
