// Package adpipe turns a video tweet into a fully assembled ad record:
// download, transcription, AI analysis, per-shot thumbnails, assembly.
// Download and transcription failures kill the run; analysis and
// thumbnail failures degrade to placeholders so a flaky LLM or a corrupt
// frame never costs the transcript.
package adpipe

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pcarling/advault/internal/analyzer"
	"github.com/pcarling/advault/internal/media"
	"github.com/pcarling/advault/internal/providers"
	"github.com/pcarling/advault/internal/types"
	"github.com/pcarling/advault/internal/xurl"
)

// Stage names a pipeline phase. Fetching and Transcribing are fatal on
// failure; the rest degrade.
type Stage string

const (
	StageFetching     Stage = "fetching"
	StageTranscribing Stage = "transcribing"
	StageAnalyzing    Stage = "analyzing"
	StageThumbnailing Stage = "thumbnailing"
	StageAssembling   Stage = "assembling"
)

// StageError wraps a failure with the stage it happened in.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("%s: %v", e.Stage, e.Err) }
func (e *StageError) Unwrap() error { return e.Err }

// Sink is where finished ad records go. Both storage backends satisfy it.
type Sink interface {
	HasAd(id string) (bool, error)
	InsertAd(ad *types.Ad) error
}

// VideoSource resolves the downloadable video URL for a tweet.
type VideoSource interface {
	FetchVideo(ctx context.Context, ref xurl.Ref) (*providers.VideoMeta, error)
}

// SpeechToText produces a transcript from a local media file.
type SpeechToText interface {
	Transcribe(ctx context.Context, videoPath string) (*types.Transcript, error)
}

// Pipeline holds the collaborators for ad processing.
type Pipeline struct {
	source      VideoSource
	media       *media.Manager
	transcriber SpeechToText
	llm         analyzer.Provider
	frames      *media.FrameExtractor
	sink        Sink
	log         *zap.Logger

	now func() time.Time
}

func New(source VideoSource, mediaMgr *media.Manager, transcriber SpeechToText,
	llm analyzer.Provider, frames *media.FrameExtractor, sink Sink, log *zap.Logger) *Pipeline {
	if log == nil {
		log = zap.NewNop()
	}
	return &Pipeline{
		source:      source,
		media:       mediaMgr,
		transcriber: transcriber,
		llm:         llm,
		frames:      frames,
		sink:        sink,
		log:         log,
		now:         time.Now,
	}
}

// Result summarizes one processed ad.
type Result struct {
	ID               string `json:"id"`
	Title            string `json:"title"`
	Creator          string `json:"creator"`
	TranscriptLength int    `json:"transcript_length"`
	ShotsCount       int    `json:"shots_count"`
}

// acquisition is the output of the fetch stage, kept so batch processing
// can split parallel downloads from sequential transcription.
type acquisition struct {
	ref       xurl.Ref
	meta      *providers.VideoMeta
	videoWeb  string
	videoPath string
}

// ProcessAd runs the full pipeline for one tweet URL and persists the
// assembled record.
func (p *Pipeline) ProcessAd(ctx context.Context, url string) (*Result, error) {
	ref, err := xurl.Parse(url)
	if err != nil {
		return nil, err
	}

	acq, err := p.fetch(ctx, ref)
	if err != nil {
		return nil, &StageError{Stage: StageFetching, Err: err}
	}
	return p.finish(ctx, acq)
}

// fetch downloads the source video and its metadata.
func (p *Pipeline) fetch(ctx context.Context, ref xurl.Ref) (*acquisition, error) {
	p.log.Info("downloading video", zap.String("tweet_id", ref.ID))
	meta, err := p.source.FetchVideo(ctx, ref)
	if err != nil {
		return nil, err
	}
	videoWeb, err := p.media.DownloadVideo(ctx, meta.VideoURL, ref.ID)
	if err != nil {
		return nil, err
	}
	return &acquisition{
		ref:       ref,
		meta:      meta,
		videoWeb:  videoWeb,
		videoPath: p.media.AbsPath(videoWeb),
	}, nil
}

// finish runs transcription through assembly for an acquired video.
func (p *Pipeline) finish(ctx context.Context, acq *acquisition) (*Result, error) {
	tweetID := acq.ref.ID

	p.log.Info("transcribing", zap.String("tweet_id", tweetID))
	transcript, err := p.transcriber.Transcribe(ctx, acq.videoPath)
	if err != nil {
		return nil, &StageError{Stage: StageTranscribing, Err: err}
	}

	shots := shotsFromSegments(transcript.Segments)

	p.log.Info("analyzing", zap.String("tweet_id", tweetID))
	analysis := p.analyze(ctx, transcript.FullText, acq.meta.Text, shots)
	if analysis == nil {
		p.log.Warn("ad analysis failed, using placeholders", zap.String("tweet_id", tweetID))
	}

	p.log.Info("generating thumbnails", zap.String("tweet_id", tweetID))
	p.thumbnail(ctx, acq.videoPath, tweetID, shots)

	ad := p.assemble(acq, transcript, shots, analysis)

	dup, err := p.sink.HasAd(ad.ID)
	if err != nil {
		return nil, &StageError{Stage: StageAssembling, Err: err}
	}
	if dup {
		return nil, &StageError{Stage: StageAssembling, Err: fmt.Errorf("already exists: %s", ad.ID)}
	}
	if err := p.sink.InsertAd(ad); err != nil {
		return nil, &StageError{Stage: StageAssembling, Err: err}
	}

	p.log.Info("done", zap.String("tweet_id", tweetID), zap.String("title", ad.Title))
	return &Result{
		ID:               ad.ID,
		Title:            ad.Title,
		Creator:          ad.Creator,
		TranscriptLength: len(ad.FullTranscript),
		ShotsCount:       len(ad.Shots),
	}, nil
}

func shotsFromSegments(segments []types.Segment) []types.Shot {
	shots := make([]types.Shot, 0, len(segments))
	for i, seg := range segments {
		shots = append(shots, types.Shot{
			ID:         i + 1,
			StartTime:  seg.Start,
			EndTime:    seg.End,
			Timestamp:  seg.Timestamp,
			Type:       "video",
			Transcript: seg.Transcript,
		})
	}
	return shots
}

// thumbnail grabs one frame per shot, 0.5s into the shot. A failed grab
// leaves that shot without a thumbnail and moves on.
func (p *Pipeline) thumbnail(ctx context.Context, videoPath, tweetID string, shots []types.Shot) {
	if p.frames == nil {
		return
	}
	for i := range shots {
		webPath := fmt.Sprintf("/thumbnails/%s/shot_%02d.jpg", tweetID, shots[i].ID)
		err := p.frames.Extract(ctx, videoPath, shots[i].StartTime+0.5, p.media.AbsPath(webPath))
		if err != nil {
			p.log.Warn("thumbnail failed",
				zap.String("tweet_id", tweetID),
				zap.Int("shot", shots[i].ID),
				zap.Error(err))
			continue
		}
		shots[i].Thumbnail = webPath
	}
}

// BatchItem is the outcome for one URL in a batch.
type BatchItem struct {
	URL     string  `json:"url"`
	Success bool    `json:"success"`
	Error   string  `json:"error,omitempty"`
	Result  *Result `json:"result,omitempty"`
}

// ProcessBatch downloads all videos in parallel (at most five at a time)
// and then transcribes and assembles them strictly one at a time.
// Transcription stays sequential to bound the speech model's memory use.
func (p *Pipeline) ProcessBatch(ctx context.Context, urls []string) []BatchItem {
	type target struct {
		url string
		ref xurl.Ref
	}
	var targets []target
	var items []BatchItem
	for _, u := range urls {
		ref, err := xurl.Parse(u)
		if err != nil {
			items = append(items, BatchItem{URL: u, Error: err.Error()})
			continue
		}
		targets = append(targets, target{url: u, ref: ref})
	}

	p.log.Info("batch: downloading videos", zap.Int("count", len(targets)))
	acquired := make([]*acquisition, len(targets))
	errs := make([]error, len(targets))
	var g errgroup.Group
	g.SetLimit(5)
	for i, tgt := range targets {
		g.Go(func() error {
			acquired[i], errs[i] = p.fetch(ctx, tgt.ref)
			return nil
		})
	}
	g.Wait()

	for i, tgt := range targets {
		if errs[i] != nil {
			items = append(items, BatchItem{URL: tgt.url, Error: (&StageError{Stage: StageFetching, Err: errs[i]}).Error()})
			continue
		}
		result, err := p.finish(ctx, acquired[i])
		if err != nil {
			items = append(items, BatchItem{URL: tgt.url, Error: err.Error()})
			continue
		}
		items = append(items, BatchItem{URL: tgt.url, Success: true, Result: result})
	}
	return items
}
