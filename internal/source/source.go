// Package source provides bounded, offset-addressed access to file bytes.
//
// A ByteSource is the only boundary between the engine and storage: grid loads,
// statistics sampling and edit commits all go through Read, Write and Length.
package source

import (
	"context"
	"fmt"

	"hexlens/internal/types"
)

// ByteSource reads and writes bytes of files identified by an opaque id.
//
// Read may return fewer than length bytes near the end of the file; that is not
// an error. Read fails with types.ErrNotFound for an unknown id and with
// types.ErrOffsetOutOfRange when offset is past the end of the file.
//
// Write replaces bytes in place. It never extends the file: a write that would
// run past the end fails with types.ErrOffsetOutOfRange.
//
// Length may be approximate and is only used to bound sampling.
type ByteSource interface {
	Read(ctx context.Context, fileID string, offset uint64, length uint32) ([]byte, error)
	Write(ctx context.Context, fileID string, offset uint64, data []byte) error
	Length(ctx context.Context, fileID string) (uint64, error)
}

func notFound(fileID string) error {
	return types.Wrap(types.ErrKindNotFound, fmt.Sprintf("file %q", fileID), types.ErrNotFound)
}

func outOfRange(offset, size uint64) error {
	return types.New(types.ErrKindOffsetOutOfRange,
		fmt.Sprintf("offset 0x%X out of range (size 0x%X)", offset, size))
}

func unavailable(op string, err error) error {
	return types.Wrap(types.ErrKindSourceUnavailable, op, err)
}

// readSpan clamps a read of length bytes at offset to a file of size bytes.
func readSpan(offset uint64, length uint32, size uint64) (start, end uint64, err error) {
	if offset > size {
		return 0, 0, outOfRange(offset, size)
	}
	end = offset + uint64(length)
	if end < offset || end > size {
		end = size
	}
	return offset, end, nil
}

// writeSpan checks that n bytes at offset fit inside a file of size bytes.
func writeSpan(offset uint64, n int, size uint64) error {
	end := offset + uint64(n)
	if end < offset || offset > size || end > size {
		return outOfRange(offset, size)
	}
	return nil
}
