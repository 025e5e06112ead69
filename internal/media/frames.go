package media

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const frameTimeout = 30 * time.Second

// FrameExtractor grabs single frames from a video with ffmpeg.
type FrameExtractor struct {
	Bin string
}

func NewFrameExtractor(bin string) *FrameExtractor {
	if bin == "" {
		bin = "ffmpeg"
	}
	return &FrameExtractor{Bin: bin}
}

// Extract writes the frame at offset seconds into videoPath to outPath.
func (f *FrameExtractor) Extract(ctx context.Context, videoPath string, offset float64, outPath string) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, frameTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, f.Bin,
		"-y",
		"-ss", strconv.FormatFloat(offset, 'f', -1, 64),
		"-i", videoPath,
		"-vframes", "1",
		"-q:v", "2",
		outPath,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return nil
}
