package ffmpeg

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
)

// Input identifies a capture device for ffmpeg's -f/-i pair
type Input struct {
	Format string // v4l2, avfoundation, dshow
	Device string
	Width  int // optional -video_size hint
	Height int
}

// CheckInstallation verifies if FFmpeg is installed and accessible
func CheckInstallation() error {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return fmt.Errorf("ffmpeg is not installed or not in PATH: %w", err)
	}
	if _, err := exec.LookPath("ffprobe"); err != nil {
		return fmt.Errorf("ffprobe is not installed or not in PATH: %w", err)
	}
	return nil
}

// inputArgs builds the device input portion of an ffmpeg/ffprobe command line
func inputArgs(in Input) []string {
	var args []string
	if in.Format != "" {
		args = append(args, "-f", in.Format)
	}
	if in.Width > 0 && in.Height > 0 {
		args = append(args, "-video_size", fmt.Sprintf("%dx%d", in.Width, in.Height))
	}
	return append(args, "-i", in.Device)
}

// GrabArgs builds the command line for a single-frame grab in the given codec
// ("mjpeg" or "png"). qscale applies to mjpeg only (2 is best, 31 is worst).
func GrabArgs(in Input, codec string, qscale int) []string {
	args := []string{"-hide_banner", "-loglevel", "error"}
	args = append(args, inputArgs(in)...)
	args = append(args, "-frames:v", "1", "-c:v", codec)
	if codec == "mjpeg" && qscale > 0 {
		args = append(args, "-q:v", strconv.Itoa(qscale))
	}
	return append(args, "-f", "image2pipe", "pipe:1")
}

// GrabJPEG reads one full-quality JPEG frame from the device
func GrabJPEG(ctx context.Context, in Input) ([]byte, error) {
	return grab(ctx, GrabArgs(in, "mjpeg", 2))
}

// GrabPNG reads one lossless frame from the device
func GrabPNG(ctx context.Context, in Input) ([]byte, error) {
	return grab(ctx, GrabArgs(in, "png", 0))
}

func grab(ctx context.Context, args []string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "ffmpeg", args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg grab failed: %w: %s", err, bytes.TrimSpace(stderr.Bytes()))
	}
	if stdout.Len() == 0 {
		return nil, fmt.Errorf("ffmpeg produced no frame")
	}
	return stdout.Bytes(), nil
}

type probeOutput struct {
	Streams []struct {
		CodecType string `json:"codec_type"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
	} `json:"streams"`
}

// ProbeSize retrieves the native frame size of the device's video stream
func ProbeSize(ctx context.Context, in Input) (int, int, error) {
	args := []string{"-v", "error", "-show_entries", "stream=codec_type,width,height", "-of", "json"}
	args = append(args, inputArgs(in)...)

	output, err := exec.CommandContext(ctx, "ffprobe", args...).Output()
	if err != nil {
		return 0, 0, fmt.Errorf("failed to probe device: %w", err)
	}
	return ParseProbeSize(output)
}

// ParseProbeSize extracts the first video stream's size from ffprobe JSON output
func ParseProbeSize(output []byte) (int, int, error) {
	var probe probeOutput
	if err := json.Unmarshal(output, &probe); err != nil {
		return 0, 0, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}
	for _, s := range probe.Streams {
		if (s.CodecType == "" || s.CodecType == "video") && s.Width > 0 && s.Height > 0 {
			return s.Width, s.Height, nil
		}
	}
	return 0, 0, fmt.Errorf("no video stream in ffprobe output")
}
