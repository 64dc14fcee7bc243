package transcoder

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/truemediaorg/crosspublisher/model"
)

// FFmpeg shells out to an ffmpeg binary for every conversion.
type FFmpeg struct {
	path   string
	tmpDir string
}

func NewFFmpeg(path string) *FFmpeg {
	if path == "" {
		path = "ffmpeg"
	}
	return &FFmpeg{path: path, tmpDir: os.TempDir()}
}

// TranscodeImage converts an image to the profile's format, downscaling it to
// fit inside MaxWidth x MaxHeight while keeping the aspect ratio. Images are
// piped through stdin/stdout.
func (f *FFmpeg) TranscodeImage(ctx context.Context, data []byte, profile model.ImageProfile) ([]byte, error) {
	args, err := imageArgs(profile)
	if err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, f.path, args...)
	cmd.Stdin = bytes.NewReader(data)
	var out bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	log.WithField("format", profile.Format).WithField("inputBytes", len(data)).Debug("transcoding image")
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg image conversion failed: %w, stderr: %s", err, tail(stderr.String()))
	}
	if out.Len() == 0 {
		return nil, fmt.Errorf("ffmpeg produced an empty image")
	}
	return out.Bytes(), nil
}

// TranscodeVideo re-encodes a video to H.264/AAC MP4. The output has to be a
// real file because +faststart rewrites it after encoding.
func (f *FFmpeg) TranscodeVideo(ctx context.Context, data []byte, profile model.VideoProfile) ([]byte, error) {
	id := uuid.NewString()
	inputFile := filepath.Join(f.tmpDir, id+".src")
	outputFile := filepath.Join(f.tmpDir, id+".mp4")
	defer func() {
		for _, name := range []string{inputFile, outputFile} {
			if err := os.Remove(name); err != nil && !os.IsNotExist(err) {
				log.WithField("file", name).Warnf("error removing temp file: %v", err)
			}
		}
	}()

	if err := os.WriteFile(inputFile, data, 0o600); err != nil {
		return nil, fmt.Errorf("writing ffmpeg input: %w", err)
	}

	cmd := exec.CommandContext(ctx, f.path, videoArgs(inputFile, outputFile, profile)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	log.WithField("id", id).WithField("inputBytes", len(data)).Info("transcoding video")
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg video conversion failed: %w, stderr: %s", err, tail(stderr.String()))
	}

	out, err := os.ReadFile(outputFile)
	if err != nil {
		return nil, fmt.Errorf("reading ffmpeg output: %w", err)
	}
	log.WithField("id", id).WithField("outputBytes", len(out)).Debug("video transcoded")
	return out, nil
}

func imageArgs(profile model.ImageProfile) ([]string, error) {
	var codec string
	switch strings.ToLower(profile.Format) {
	case "", "jpeg", "jpg":
		codec = "mjpeg"
	case "png":
		codec = "png"
	case "webp":
		codec = "libwebp"
	default:
		return nil, fmt.Errorf("unsupported image format: %s", profile.Format)
	}

	args := []string{"-hide_banner", "-loglevel", "error", "-i", "pipe:0"}
	if scale := scaleFilter(profile.MaxWidth, profile.MaxHeight); scale != "" {
		args = append(args, "-vf", scale)
	}
	args = append(args, "-frames:v", "1", "-c:v", codec)
	if profile.Quality > 0 && codec != "png" {
		args = append(args, "-q:v", strconv.Itoa(profile.Quality))
	}
	return append(args, "-f", "image2pipe", "pipe:1"), nil
}

func videoArgs(input string, output string, profile model.VideoProfile) []string {
	filters := []string{}
	if scale := scaleFilter(profile.MaxWidth, profile.MaxHeight); scale != "" {
		filters = append(filters, scale)
	}
	// libx264 with yuv420p needs even dimensions
	filters = append(filters, "scale=trunc(iw/2)*2:trunc(ih/2)*2")
	if profile.FPS > 0 {
		filters = append(filters, fmt.Sprintf("fps=%d", profile.FPS))
	}

	args := []string{"-hide_banner", "-loglevel", "error", "-y", "-i", input,
		"-vf", strings.Join(filters, ","),
		"-c:v", orDefault(profile.Codec, "libx264"),
		"-pix_fmt", "yuv420p",
	}
	if profile.Preset != "" {
		args = append(args, "-preset", profile.Preset)
	}
	if profile.CRF > 0 {
		args = append(args, "-crf", strconv.Itoa(profile.CRF))
	}
	if profile.MaxBitrate != "" {
		args = append(args, "-maxrate", profile.MaxBitrate, "-bufsize", bufferSize(profile.MaxBitrate))
	}

	args = append(args, "-c:a", orDefault(profile.AudioCodec, "aac"))
	if profile.AudioBitrate != "" {
		args = append(args, "-b:a", profile.AudioBitrate)
	}
	if profile.AudioChannels > 0 {
		args = append(args, "-ac", strconv.Itoa(profile.AudioChannels))
	}
	if profile.AudioSampleRate > 0 {
		args = append(args, "-ar", strconv.Itoa(profile.AudioSampleRate))
	}
	return append(args, "-movflags", "+faststart", "-f", "mp4", output)
}

// scaleFilter only ever shrinks: min() keeps smaller inputs at their own size.
func scaleFilter(maxWidth int, maxHeight int) string {
	if maxWidth <= 0 || maxHeight <= 0 {
		return ""
	}
	return fmt.Sprintf("scale='min(%d,iw)':'min(%d,ih)':force_original_aspect_ratio=decrease", maxWidth, maxHeight)
}

// bufferSize doubles a bitrate like "4500k" for -bufsize.
func bufferSize(bitrate string) string {
	number := strings.TrimRightFunc(bitrate, func(r rune) bool { return r < '0' || r > '9' })
	unit := bitrate[len(number):]
	value, err := strconv.Atoi(number)
	if err != nil {
		return bitrate
	}
	return strconv.Itoa(value*2) + unit
}

func orDefault(value string, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

func tail(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 500 {
		return "..." + s[len(s)-500:]
	}
	return s
}
