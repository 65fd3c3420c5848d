// Package deps reports whether the external binaries the pipeline invokes
// (yt-dlp, ffmpeg, ffprobe) are installed and which versions they are.
package deps
