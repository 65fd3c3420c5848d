package testsupport

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

// WriteFile fills the target path with the requested number of bytes using a
// simple repeating pattern. A size <= 0 writes a single byte.
func WriteFile(t testing.TB, path string, size int64) {
	t.Helper()

	if size <= 0 {
		size = 1
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	const chunkSize = 32 * 1024
	buf := bytes.Repeat([]byte{0x42}, chunkSize)

	remaining := size
	for remaining > 0 {
		toWrite := min(int64(chunkSize), remaining)
		if _, err := f.Write(buf[:toWrite]); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
		remaining -= toWrite
	}
}

// mp3FrameHeader is an MPEG-1 Layer III, 128 kbit/s, 44.1 kHz frame header.
var mp3FrameHeader = []byte{0xFF, 0xFB, 0x90, 0x64}

// MP3FrameSize is the byte length of one frame written by MP3Frames.
const MP3FrameSize = 417

// MP3Frames returns n silent MPEG audio frames. marker is written into the
// first payload byte of every frame so concatenation order can be asserted.
func MP3Frames(n int, marker byte) []byte {
	frame := make([]byte, MP3FrameSize)
	copy(frame, mp3FrameHeader)
	frame[len(mp3FrameHeader)] = marker
	return bytes.Repeat(frame, n)
}

// WriteMP3 writes n marked frames to path, creating parent directories.
func WriteMP3(t testing.TB, path string, n int, marker byte) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, MP3Frames(n, marker), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
