package genericclioptions

import (
	"io"
	"os"
	"time"
)

// TestFdReader is an [FdReader] backed by an arbitrary reader and a fixed
// [os.FileInfo], used to fake stdin in tests.
type TestFdReader struct {
	io.Reader

	fd uintptr

	fi os.FileInfo
}

func NewTestFdReader(r io.Reader, fd uintptr, fi os.FileInfo) *TestFdReader {
	return &TestFdReader{
		Reader: r,
		fd:     fd,
		fi:     fi,
	}
}

var _ FdReader = &TestFdReader{}

func (r *TestFdReader) Fd() uintptr {
	return r.fd
}

func (r *TestFdReader) Stat() (os.FileInfo, error) {
	return r.fi, nil
}

type testFileInfo struct {
	name  string
	size  int64
	mode  os.FileMode
	t     time.Time
	isDir bool
}

func NewMockFileInfo(name string, size int64, mode os.FileMode, isDir bool, t time.Time) os.FileInfo {
	return &testFileInfo{
		name:  name,
		size:  size,
		mode:  mode,
		isDir: isDir,
		t:     t,
	}
}

func (fi *testFileInfo) Name() string       { return fi.name }
func (fi *testFileInfo) Size() int64        { return fi.size }
func (fi *testFileInfo) Mode() os.FileMode  { return fi.mode }
func (fi *testFileInfo) ModTime() time.Time { return fi.t }
func (fi *testFileInfo) IsDir() bool        { return fi.isDir }
func (*testFileInfo) Sys() any              { return nil }
