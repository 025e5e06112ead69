package adpipe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/pcarling/advault/internal/types"
)

// Transcriber shells out to the whisper CLI. Loading the model is
// expensive and memory-hungry, which is why batch processing runs
// transcriptions one at a time.
type Transcriber struct {
	Bin   string
	Model string
}

func NewTranscriber(bin, model string) *Transcriber {
	if bin == "" {
		bin = "whisper"
	}
	if model == "" {
		model = "large-v3"
	}
	return &Transcriber{Bin: bin, Model: model}
}

type whisperResult struct {
	Text     string `json:"text"`
	Segments []struct {
		Start float64 `json:"start"`
		End   float64 `json:"end"`
		Text  string  `json:"text"`
	} `json:"segments"`
}

// Transcribe runs whisper on the video and returns the full transcript
// plus time-aligned segments. No timeout: the model load alone can take
// minutes, so cancellation is the caller's context.
func (t *Transcriber) Transcribe(ctx context.Context, videoPath string) (*types.Transcript, error) {
	outDir, err := os.MkdirTemp("", "advault-whisper-*")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(outDir)

	cmd := exec.CommandContext(ctx, t.Bin,
		videoPath,
		"--model", t.Model,
		"--language", "en",
		"--word_timestamps", "True",
		"--output_format", "json",
		"--output_dir", outDir,
		"--verbose", "False",
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("whisper: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	base := strings.TrimSuffix(filepath.Base(videoPath), filepath.Ext(videoPath))
	data, err := os.ReadFile(filepath.Join(outDir, base+".json"))
	if err != nil {
		return nil, fmt.Errorf("whisper: no output file: %w", err)
	}

	var result whisperResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("whisper: malformed output: %w", err)
	}
	return formatTranscript(result), nil
}

func formatTranscript(result whisperResult) *types.Transcript {
	tr := &types.Transcript{FullText: strings.TrimSpace(result.Text)}
	for _, seg := range result.Segments {
		tr.Segments = append(tr.Segments, types.Segment{
			Start:      seg.Start,
			End:        seg.End,
			Timestamp:  formatTimestamp(seg.Start) + "-" + formatTimestamp(seg.End),
			Transcript: strings.TrimSpace(seg.Text),
		})
	}
	return tr
}

// formatTimestamp renders seconds as M:SS.
func formatTimestamp(seconds float64) string {
	total := int(seconds)
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}
