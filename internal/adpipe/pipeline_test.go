package adpipe

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pcarling/advault/internal/media"
	"github.com/pcarling/advault/internal/providers"
	"github.com/pcarling/advault/internal/types"
	"github.com/pcarling/advault/internal/xurl"
)

type fakeSource struct {
	videoURL string
	err      error
	inFlight atomic.Int32
	peak     atomic.Int32
}

func (f *fakeSource) FetchVideo(ctx context.Context, ref xurl.Ref) (*providers.VideoMeta, error) {
	cur := f.inFlight.Add(1)
	for {
		p := f.peak.Load()
		if cur <= p || f.peak.CompareAndSwap(p, cur) {
			break
		}
	}
	time.Sleep(10 * time.Millisecond)
	f.inFlight.Add(-1)

	if f.err != nil {
		return nil, f.err
	}
	return &providers.VideoMeta{
		TweetID:  ref.ID,
		URL:      ref.URL,
		VideoURL: f.videoURL,
		Uploader: "Someone",
		Handle:   "someone",
		Text:     "tweet text about the ad",
	}, nil
}

type fakeSTT struct {
	mu     sync.Mutex
	active int
	peak   int
	err    error
}

func (f *fakeSTT) Transcribe(ctx context.Context, videoPath string) (*types.Transcript, error) {
	f.mu.Lock()
	f.active++
	if f.active > f.peak {
		f.peak = f.active
	}
	f.mu.Unlock()
	time.Sleep(10 * time.Millisecond)
	f.mu.Lock()
	f.active--
	f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}
	return &types.Transcript{
		FullText: "hello world this is an ad",
		Segments: []types.Segment{
			{Start: 0, End: 3.5, Timestamp: "0:00-0:03", Transcript: "hello world"},
			{Start: 3.5, End: 7, Timestamp: "0:03-0:07", Transcript: "this is an ad"},
		},
	}, nil
}

type fakeSink struct {
	mu  sync.Mutex
	ads map[string]*types.Ad
}

func newFakeSink() *fakeSink { return &fakeSink{ads: map[string]*types.Ad{}} }

func (f *fakeSink) HasAd(id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.ads[id]
	return ok, nil
}

func (f *fakeSink) InsertAd(ad *types.Ad) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ads[ad.ID] = ad
	return nil
}

type fakeLLM struct {
	raw json.RawMessage
	err error
}

func (f *fakeLLM) GenerateJSON(ctx context.Context, prompt string) (json.RawMessage, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.raw, nil
}

func videoServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("mp4-bytes"))
	}))
	t.Cleanup(srv.Close)
	return srv
}

const goodAnalysis = `{
	"title": "Great Hook Ad",
	"product": "Widgets",
	"vertical": "E-commerce",
	"type": "Paid",
	"hook": {"textOverlay": "STOP", "spoken": "hello world"},
	"whyItWorked": {
		"summary": "It grabs attention.",
		"tactics": [{"name": "Urgency", "description": "Acts now"}],
		"keyLesson": "Hook fast"
	},
	"shots": [
		{"id": 1, "description": "Person talking", "textOverlay": "STOP", "purpose": "Hook"},
		{"id": 2, "description": "Product shot", "textOverlay": "", "purpose": "Payoff"}
	],
	"tags": ["Hooks", "UGC"]
}`

func testPipeline(t *testing.T, source *fakeSource, stt *fakeSTT, llm *fakeLLM, sink *fakeSink) *Pipeline {
	t.Helper()
	p := New(source, media.NewManager(t.TempDir()), stt, llm, nil, sink, nil)
	p.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	return p
}

func TestProcessAdSuccess(t *testing.T) {
	srv := videoServer(t)
	source := &fakeSource{videoURL: srv.URL}
	sink := newFakeSink()
	p := testPipeline(t, source, &fakeSTT{}, &fakeLLM{raw: json.RawMessage(goodAnalysis)}, sink)

	result, err := p.ProcessAd(context.Background(), "https://x.com/someone/status/555")
	require.NoError(t, err)
	assert.Equal(t, "555", result.ID)
	assert.Equal(t, "Great Hook Ad", result.Title)
	assert.Equal(t, "@someone", result.Creator)
	assert.Equal(t, 2, result.ShotsCount)

	ad := sink.ads["555"]
	require.NotNil(t, ad)
	assert.Equal(t, "/videos/555.mp4", ad.VideoSrc)
	assert.Equal(t, "Widgets", ad.Product)
	assert.Equal(t, "Person talking", ad.Shots[0].Description)
	assert.Equal(t, "2025-06-01", ad.DateAdded)
}

func TestProcessAdAnalysisFailureDegrades(t *testing.T) {
	srv := videoServer(t)
	sink := newFakeSink()
	p := testPipeline(t, &fakeSource{videoURL: srv.URL}, &fakeSTT{}, &fakeLLM{err: errors.New("llm down")}, sink)

	result, err := p.ProcessAd(context.Background(), "https://x.com/someone/status/556")
	require.NoError(t, err)
	assert.Equal(t, "Ad from @someone", result.Title)

	ad := sink.ads["556"]
	require.NotNil(t, ad)
	assert.Equal(t, "[Unknown Product]", ad.Product)
	assert.Equal(t, "[Unknown Vertical]", ad.Vertical)
	assert.Equal(t, "Unknown", ad.Type)
	assert.Equal(t, "[AI analysis failed - please add manually]", ad.WhyItWorked.Summary)
	assert.Equal(t, "hello world", ad.Hook.Spoken)
	for _, shot := range ad.Shots {
		assert.Equal(t, "[Describe what's shown]", shot.Description)
		assert.Equal(t, "[Why this works]", shot.Purpose)
	}
}

func TestProcessAdFetchFailureIsFatal(t *testing.T) {
	sink := newFakeSink()
	p := testPipeline(t, &fakeSource{err: errors.New("no video found")}, &fakeSTT{}, &fakeLLM{}, sink)

	_, err := p.ProcessAd(context.Background(), "https://x.com/someone/status/557")
	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, StageFetching, stageErr.Stage)
	assert.Empty(t, sink.ads)
}

func TestProcessAdTranscribeFailureIsFatal(t *testing.T) {
	srv := videoServer(t)
	sink := newFakeSink()
	p := testPipeline(t, &fakeSource{videoURL: srv.URL}, &fakeSTT{err: errors.New("whisper crashed")}, &fakeLLM{}, sink)

	_, err := p.ProcessAd(context.Background(), "https://x.com/someone/status/558")
	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, StageTranscribing, stageErr.Stage)
	assert.Empty(t, sink.ads)
}

func TestProcessAdDuplicateRejected(t *testing.T) {
	srv := videoServer(t)
	sink := newFakeSink()
	sink.ads["559"] = &types.Ad{ID: "559"}
	p := testPipeline(t, &fakeSource{videoURL: srv.URL}, &fakeSTT{}, &fakeLLM{raw: json.RawMessage(goodAnalysis)}, sink)

	_, err := p.ProcessAd(context.Background(), "https://x.com/someone/status/559")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestProcessBatchSequentialTranscription(t *testing.T) {
	srv := videoServer(t)
	source := &fakeSource{videoURL: srv.URL}
	stt := &fakeSTT{}
	sink := newFakeSink()
	p := testPipeline(t, source, stt, &fakeLLM{raw: json.RawMessage(goodAnalysis)}, sink)

	urls := []string{
		"https://x.com/a/status/1",
		"https://x.com/b/status/2",
		"https://x.com/c/status/3",
		"not-a-url",
	}
	items := p.ProcessBatch(context.Background(), urls)
	require.Len(t, items, 4)

	var ok, failed int
	for _, item := range items {
		if item.Success {
			ok++
		} else {
			failed++
		}
	}
	assert.Equal(t, 3, ok)
	assert.Equal(t, 1, failed)
	assert.Len(t, sink.ads, 3)

	// Downloads may overlap; transcription never does.
	assert.Equal(t, 1, stt.peak)
	assert.LessOrEqual(t, source.peak.Load(), int32(5))
}
