package mixing

import (
	"bytes"
	"errors"
	"fmt"
	"io"
)

const (
	id3v2HeaderLen = 10
	id3v1TagLen    = 128
)

var errNoFrameSync = errors.New("no MPEG audio frame sync")

// audioSpan locates the MPEG frame data inside an MP3 file of the given size:
// a leading ID3v2 tag and a trailing ID3v1 tag are excluded. The first frame
// header must sit right after the ID3v2 tag.
func audioSpan(r io.ReaderAt, size int64) (start, end int64, err error) {
	end = size
	if size >= id3v2HeaderLen {
		header := make([]byte, id3v2HeaderLen)
		if _, err := r.ReadAt(header, 0); err != nil {
			return 0, 0, fmt.Errorf("read header: %w", err)
		}
		if bytes.Equal(header[:3], []byte("ID3")) {
			tagSize := syncsafe(header[6:10])
			start = id3v2HeaderLen + tagSize
			if header[5]&0x10 != 0 {
				start += id3v2HeaderLen
			}
		}
	}
	if size-start >= id3v1TagLen {
		trailer := make([]byte, 3)
		if _, err := r.ReadAt(trailer, size-id3v1TagLen); err == nil && bytes.Equal(trailer, []byte("TAG")) {
			end = size - id3v1TagLen
		}
	}
	if end-start < 4 {
		return 0, 0, errNoFrameSync
	}
	frame := make([]byte, 4)
	if _, err := r.ReadAt(frame, start); err != nil {
		return 0, 0, fmt.Errorf("read frame header: %w", err)
	}
	if !isFrameHeader(frame) {
		return 0, 0, errNoFrameSync
	}
	return start, end, nil
}

// isFrameHeader checks the 11-bit sync word and rejects reserved version,
// layer, bitrate, and sample-rate values.
func isFrameHeader(h []byte) bool {
	if len(h) < 4 || h[0] != 0xFF || h[1]&0xE0 != 0xE0 {
		return false
	}
	version := (h[1] >> 3) & 0x03
	layer := (h[1] >> 1) & 0x03
	bitrate := h[2] >> 4
	sampleRate := (h[2] >> 2) & 0x03
	return version != 0x01 && layer != 0x00 && bitrate != 0x0F && sampleRate != 0x03
}

func syncsafe(b []byte) int64 {
	return int64(b[0]&0x7F)<<21 | int64(b[1]&0x7F)<<14 | int64(b[2]&0x7F)<<7 | int64(b[3]&0x7F)
}
