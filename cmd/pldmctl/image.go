package main

import (
	"context"
	"fmt"
	"os"

	"github.com/openpldm/pldmd/internal/fwupdate"
	"github.com/openpldm/pldmd/internal/pldmerr"
)

// fileImageAccessor is a minimal fwupdate.ImageAccessor backed by one raw
// firmware blob on local disk. It treats the whole file as component 0's
// image and carries no package-header metadata, deliberately staying out
// of the image-file-parser territory spec.md §1 marks out of scope — an
// operator with a real PLDM firmware package wires a richer accessor in
// its place.
type fileImageAccessor struct {
	path          string
	versionString string
	data          []byte
}

func newFileImageAccessor(path, versionString string) (*fileImageAccessor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", pldmerr.ErrImageRead, err)
	}
	return &fileImageAccessor{path: path, versionString: versionString, data: data}, nil
}

func (f *fileImageAccessor) PackageDataLength() uint16 { return 0 }

func (f *fileImageAccessor) PackageData(ctx context.Context) ([]byte, error) { return nil, nil }

func (f *fileImageAccessor) ComponentImageSetVersionString() (uint8, string) {
	return 1, f.versionString
}

func (f *fileImageAccessor) ApplicableComponents() []fwupdate.ComponentDescriptor {
	return []fwupdate.ComponentDescriptor{{
		Index:         0,
		Classification: 0x0a, // firmware, per the DMTF-assigned component classification table
		Identifier:    1,
		Size:          uint32(len(f.data)),
		VersionString: f.versionString,
	}}
}

func (f *fileImageAccessor) ReadComponentBytes(ctx context.Context, componentIndex int, offset, length uint32) ([]byte, error) {
	if componentIndex != 0 {
		return nil, fmt.Errorf("%w: no such component %d", pldmerr.ErrImageProperty, componentIndex)
	}
	end := offset + length
	if end > uint32(len(f.data)) || offset > end {
		return nil, fmt.Errorf("%w: range [%d,%d) outside %d-byte image", pldmerr.ErrImageRead, offset, end, len(f.data))
	}
	return f.data[offset:end], nil
}
