package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"hexlens/internal/types"
)

// FileSource serves files on the local disk. A file must be registered before
// use; its identity is the cleaned absolute path.
type FileSource struct {
	mu    sync.RWMutex
	paths map[string]string
}

func NewFileSource() *FileSource {
	return &FileSource{paths: make(map[string]string)}
}

// Register makes filename addressable and returns its file id.
func (s *FileSource) Register(filename string) (string, error) {
	abs, err := filepath.Abs(filename)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(abs)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", types.Wrap(types.ErrKindNotFound, fmt.Sprintf("file %q", filename), err)
		}
		return "", unavailable("stat", err)
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("%s is not a regular file", filename)
	}

	id := filepath.Clean(abs)
	s.mu.Lock()
	s.paths[id] = abs
	s.mu.Unlock()
	return id, nil
}

// Path returns the filename behind fileID.
func (s *FileSource) Path(fileID string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.paths[fileID]
	return p, ok
}

func (s *FileSource) open(fileID string, flag int) (*os.File, uint64, error) {
	path, ok := s.Path(fileID)
	if !ok {
		return nil, 0, notFound(fileID)
	}
	f, err := os.OpenFile(path, flag, 0)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, 0, types.Wrap(types.ErrKindNotFound, fmt.Sprintf("file %q", fileID), err)
		}
		return nil, 0, unavailable("open", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, unavailable("stat", err)
	}
	return f, uint64(info.Size()), nil
}

func (s *FileSource) Read(ctx context.Context, fileID string, offset uint64, length uint32) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, unavailable("read", err)
	}

	f, size, err := s.open(fileID, os.O_RDONLY)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	start, end, err := readSpan(offset, length, size)
	if err != nil {
		return nil, err
	}

	buf := make([]byte, end-start)
	n, err := f.ReadAt(buf, int64(start))
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, unavailable("read", err)
	}
	return buf[:n], nil
}

func (s *FileSource) Write(ctx context.Context, fileID string, offset uint64, data []byte) error {
	if err := ctx.Err(); err != nil {
		return unavailable("write", err)
	}

	f, size, err := s.open(fileID, os.O_WRONLY)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := writeSpan(offset, len(data), size); err != nil {
		return err
	}

	n, err := f.WriteAt(data, int64(offset))
	if err != nil {
		return unavailable("write", err)
	}
	if n != len(data) {
		return unavailable("write", fmt.Errorf("short write: %d of %d bytes", n, len(data)))
	}
	if err := f.Sync(); err != nil {
		return unavailable("sync", err)
	}
	return nil
}

func (s *FileSource) Length(ctx context.Context, fileID string) (uint64, error) {
	path, ok := s.Path(fileID)
	if !ok {
		return 0, notFound(fileID)
	}
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, types.Wrap(types.ErrKindNotFound, fmt.Sprintf("file %q", fileID), err)
		}
		return 0, unavailable("stat", err)
	}
	return uint64(info.Size()), nil
}
