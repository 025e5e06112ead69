package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pcarling/advault/internal/adpipe"
	"github.com/pcarling/advault/internal/media"
	"github.com/pcarling/advault/internal/reconcile"
	"github.com/pcarling/advault/internal/storage"
	"github.com/pcarling/advault/internal/types"
	"github.com/pcarling/advault/internal/xurl"
)

type fakeFetcher struct {
	rec *types.CanonicalRecord
	err error
}

func (f *fakeFetcher) Reconcile(ctx context.Context, ref xurl.Ref) (*types.CanonicalRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	rec := *f.rec
	rec.ID = ref.ID
	rec.URL = ref.URL
	rec.Source = ref.URL
	return &rec, nil
}

func (f *fakeFetcher) FetchMany(ctx context.Context, urls []string) []reconcile.Result {
	var out []reconcile.Result
	for _, u := range urls {
		if strings.TrimSpace(u) == "" {
			continue
		}
		ref, err := xurl.Parse(u)
		if err != nil {
			out = append(out, reconcile.Result{URL: u, Err: err})
			continue
		}
		rec, err := f.Reconcile(ctx, ref)
		out = append(out, reconcile.Result{URL: u, Record: rec, Err: err})
	}
	return out
}

type fakeTitler struct{}

func (fakeTitler) Generate(ctx context.Context, text, rawPrompt string) (string, []string) {
	return "Beach - Woman in Bikini", []string{"Beach", "Photo"}
}

type fakeAds struct {
	result *adpipe.Result
	err    error
}

func (f *fakeAds) ProcessAd(ctx context.Context, url string) (*adpipe.Result, error) {
	return f.result, f.err
}

func (f *fakeAds) ProcessBatch(ctx context.Context, urls []string) []adpipe.BatchItem {
	var items []adpipe.BatchItem
	for _, u := range urls {
		if strings.TrimSpace(u) == "" {
			continue
		}
		if f.err != nil {
			items = append(items, adpipe.BatchItem{URL: u, Success: false, Error: f.err.Error()})
			continue
		}
		items = append(items, adpipe.BatchItem{URL: u, Success: true, Result: f.result})
	}
	return items
}

type testEnv struct {
	server  *Server
	backend storage.Backend
	media   *media.Manager
	fetcher *fakeFetcher
	ads     *fakeAds
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	fetcher := &fakeFetcher{rec: &types.CanonicalRecord{
		Text:   "a woman on a beach",
		Images: []string{"https://pbs.twimg.com/media/abc.jpg?format=jpg&name=large"},
	}}
	ads := &fakeAds{result: &adpipe.Result{ID: "12345", Title: "Ad from @brand", Creator: "@brand"}}
	backend := storage.NewDataFiles(t.TempDir())
	mediaMgr := media.NewManager(t.TempDir())

	srv := New(fetcher, fakeTitler{}, ads, backend, mediaMgr, nil)
	srv.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	return &testEnv{server: srv, backend: backend, media: mediaMgr, fetcher: fetcher, ads: ads}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, http.MethodGet, "/api/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decode(t, w)["status"])
}

func TestFetchTweet(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, http.MethodPost, "/api/fetch-tweet",
		map[string]string{"url": "https://x.com/someone/status/12345"})
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "12345", body["tweet_id"])
	assert.Equal(t, "a woman on a beach", body["text"])
	assert.Equal(t, "Beach - Woman in Bikini", body["title"])
	assert.Equal(t, "https://x.com/someone/status/12345", body["source"])
}

func TestFetchTweetValidation(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/fetch-tweet", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "URL is required", decode(t, w)["error"])

	w = env.do(t, http.MethodPost, "/api/fetch-tweet",
		map[string]string{"url": "https://example.com/nope"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid X.com/Twitter URL", decode(t, w)["error"])
}

func TestFetchTweetAllProvidersDown(t *testing.T) {
	env := newTestEnv(t)
	env.fetcher.err = reconcile.ErrNoProviderData

	w := env.do(t, http.MethodPost, "/api/fetch-tweet",
		map[string]string{"url": "https://x.com/someone/status/12345"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Could not fetch tweet data", decode(t, w)["error"])
}

func TestFetchTweetsBatch(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, http.MethodPost, "/api/fetch-tweets-batch", map[string]any{
		"urls": []string{
			"https://x.com/a/status/1",
			"not a url",
			"https://x.com/b/status/2",
		},
	})
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	assert.Equal(t, float64(3), body["total"])
	assert.Equal(t, float64(2), body["successful"])

	results := body["results"].([]any)
	require.Len(t, results, 3)
	first := results[0].(map[string]any)
	assert.Equal(t, true, first["success"])
	assert.Equal(t, "1", first["tweet_id"])
	second := results[1].(map[string]any)
	assert.Equal(t, false, second["success"])
	assert.NotEmpty(t, second["error"])
}

func TestFetchTweetsBatchValidation(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/fetch-tweets-batch", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, "/api/fetch-tweets-batch",
		map[string]any{"urls": []string{"  ", ""}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "No valid URLs provided", decode(t, w)["error"])
}

func validImageEntry() map[string]any {
	return map[string]any{
		"id":        "img-1",
		"title":     "Beach - Woman in Bikini",
		"imageSrc":  "/images/vault/img-1.jpg",
		"source":    "https://x.com/someone/status/123",
		"creator":   "@someone",
		"rawPrompt": "a woman on a beach",
		"tags":      []string{"Beach"},
		"dateAdded": "2025-06-01",
	}
}

func TestAddImageEntry(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/add-image-entry", validImageEntry())
	require.Equal(t, http.StatusOK, w.Code)

	ok, err := env.backend.HasImage("img-1")
	require.NoError(t, err)
	assert.True(t, ok)

	w = env.do(t, http.MethodPost, "/api/add-image-entry", validImageEntry())
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAddImageEntryMissingField(t *testing.T) {
	env := newTestEnv(t)

	entry := validImageEntry()
	delete(entry, "title")
	w := env.do(t, http.MethodPost, "/api/add-image-entry", entry)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Missing required field: title", decode(t, w)["error"])

	entry = validImageEntry()
	delete(entry, "tags")
	w = env.do(t, http.MethodPost, "/api/add-image-entry", entry)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Missing required field: tags", decode(t, w)["error"])

	entry = validImageEntry()
	delete(entry, "rawPrompt")
	w = env.do(t, http.MethodPost, "/api/add-image-entry", entry)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Missing required field: prompt or rawPrompt", decode(t, w)["error"])
}

func TestAddImageEntryStructuredPrompt(t *testing.T) {
	env := newTestEnv(t)

	entry := validImageEntry()
	delete(entry, "rawPrompt")
	entry["prompt"] = map[string]any{"style": "photorealistic"}
	w := env.do(t, http.MethodPost, "/api/add-image-entry", entry)
	require.Equal(t, http.StatusOK, w.Code)

	ok, err := env.backend.HasImage("img-1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAddImagesBatch(t *testing.T) {
	env := newTestEnv(t)
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "jpegbytes")
	}))
	defer upstream.Close()

	w := env.do(t, http.MethodPost, "/api/add-images-batch", map[string]any{
		"entries": []map[string]any{
			{
				"id": "img-1", "title": "One", "imageUrl": upstream.URL + "/a.jpg",
				"filename": "one.jpg", "source": "https://x.com/a/status/1",
				"creator": "@a", "rawPrompt": "p1", "tags": []string{"t"}, "dateAdded": "2025-06-01",
			},
			{
				"id": "img-2", "title": "Two", "filename": "two.jpg",
				"source": "https://x.com/b/status/2", "creator": "@b",
				"rawPrompt": "p2", "tags": []string{"t"}, "dateAdded": "2025-06-01",
			},
		},
	})
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	assert.Equal(t, float64(1), body["added"])
	assert.Equal(t, float64(2), body["total"])

	results := body["results"].([]any)
	require.Len(t, results, 2)
	assert.Equal(t, true, results[0].(map[string]any)["success"])
	assert.Equal(t, "Missing imageUrl or filename", results[1].(map[string]any)["error"])

	ok, err := env.backend.HasImage("img-1")
	require.NoError(t, err)
	assert.True(t, ok)
	_, err = os.Stat(filepath.Join(env.media.Dir(), "images", "vault", "one.jpg"))
	assert.NoError(t, err)
}

func TestDeleteImage(t *testing.T) {
	env := newTestEnv(t)

	imgFile := filepath.Join(env.media.Dir(), "images", "vault", "img-1.jpg")
	require.NoError(t, os.MkdirAll(filepath.Dir(imgFile), 0755))
	require.NoError(t, os.WriteFile(imgFile, []byte("x"), 0644))

	env.do(t, http.MethodPost, "/api/add-image-entry", validImageEntry())

	w := env.do(t, http.MethodPost, "/api/delete-image", map[string]any{"id": "img-1"})
	require.Equal(t, http.StatusOK, w.Code)

	_, err := os.Stat(imgFile)
	assert.True(t, os.IsNotExist(err))

	w = env.do(t, http.MethodPost, "/api/delete-image", map[string]any{"id": "img-1"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Image not found", decode(t, w)["error"])
}

func TestDownloadImage(t *testing.T) {
	env := newTestEnv(t)
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "jpegbytes")
	}))
	defer upstream.Close()

	w := env.do(t, http.MethodPost, "/api/download-image",
		map[string]string{"url": upstream.URL + "/pic.jpg", "filename": "pic.jpg"})
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	assert.Equal(t, "/images/vault/pic.jpg", body["path"])
	assert.Equal(t, "pic.jpg", body["filename"])
}

func TestAddTweet(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/add-tweet", map[string]any{
		"url":  "https://x.com/someone/status/12345",
		"tags": []string{"hooks"},
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "tweet-12345", decode(t, w)["id"])

	w = env.do(t, http.MethodPost, "/api/add-tweet", map[string]any{
		"url":  "https://x.com/someone/status/12345",
		"tags": []string{"hooks"},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Tweet already exists in vault", decode(t, w)["error"])
}

func TestAddTweetValidation(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/add-tweet", map[string]any{"tags": []string{"x"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, "/api/add-tweet",
		map[string]any{"url": "https://x.com/a/status/1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "At least one tag is required", decode(t, w)["error"])
}

func TestAddTweetsBatch(t *testing.T) {
	env := newTestEnv(t)

	env.do(t, http.MethodPost, "/api/add-tweet", map[string]any{
		"url":  "https://x.com/someone/status/1",
		"tags": []string{"hooks"},
	})

	w := env.do(t, http.MethodPost, "/api/add-tweets-batch", map[string]any{
		"urls": []string{
			"https://x.com/someone/status/1",
			"https://x.com/someone/status/2",
			"not a url",
		},
		"tags": []string{"hooks"},
	})
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	assert.Equal(t, float64(1), body["added"])

	results := body["results"].([]any)
	require.Len(t, results, 3)
	assert.Equal(t, false, results[0].(map[string]any)["success"])
	assert.Equal(t, true, results[1].(map[string]any)["success"])
	assert.Equal(t, "Invalid X.com/Twitter URL", results[2].(map[string]any)["error"])
}

func TestDeleteTweet(t *testing.T) {
	env := newTestEnv(t)

	env.do(t, http.MethodPost, "/api/add-tweet", map[string]any{
		"url":  "https://x.com/someone/status/1",
		"tags": []string{"hooks"},
	})

	w := env.do(t, http.MethodPost, "/api/delete-tweet", map[string]any{"id": "tweet-1"})
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodPost, "/api/delete-tweet", map[string]any{"id": "tweet-1"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Tweet not found", decode(t, w)["error"])
}

func TestProcessAd(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/process-ad",
		map[string]string{"url": "https://x.com/brand/status/12345"})
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "12345", body["id"])
	assert.Equal(t, "Ad from @brand", body["title"])

	env.ads.err = &adpipe.StageError{Stage: adpipe.StageTranscribing, Err: fmt.Errorf("whisper exploded")}
	w = env.do(t, http.MethodPost, "/api/process-ad",
		map[string]string{"url": "https://x.com/brand/status/12345"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode(t, w)["error"], "transcribing")
}

func TestProcessAdsBatch(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/process-ads-batch", map[string]any{
		"urls": []string{"https://x.com/a/status/1", "https://x.com/b/status/2"},
	})
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, float64(2), body["added"])
	assert.Equal(t, float64(2), body["total"])
}

func TestAdsBrowsingRequiresSQLite(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, http.MethodGet, "/api/ads", nil)
	assert.Equal(t, http.StatusNotImplemented, w.Code)
}

func TestAdsBrowsingWithSQLite(t *testing.T) {
	env := newTestEnv(t)
	sq, err := storage.NewSQLite(filepath.Join(t.TempDir(), "advault.db"))
	require.NoError(t, err)
	defer sq.Close()
	env.server.backend = sq

	require.NoError(t, sq.InsertAd(&types.Ad{
		ID: "ad-1", Title: "Ad from @brand", VideoSrc: "/videos/ad-1.mp4",
		DateAdded: "2025-06-01",
	}))

	w := env.do(t, http.MethodGet, "/api/ads", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var ads []types.Ad
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ads))
	require.Len(t, ads, 1)

	w = env.do(t, http.MethodGet, "/api/ads/ad-1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	updated := ads[0]
	updated.Title = "Renamed"
	w = env.do(t, http.MethodPut, "/api/ads/ad-1", updated)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodGet, "/api/ads/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteAd(t *testing.T) {
	env := newTestEnv(t)

	videoFile := filepath.Join(env.media.Dir(), "videos", "ad-1.mp4")
	require.NoError(t, os.MkdirAll(filepath.Dir(videoFile), 0755))
	require.NoError(t, os.WriteFile(videoFile, []byte("x"), 0644))

	require.NoError(t, env.backend.InsertAd(&types.Ad{
		ID: "ad-1", Title: "Ad", VideoSrc: "/videos/ad-1.mp4", DateAdded: "2025-06-01",
	}))

	w := env.do(t, http.MethodPost, "/api/delete-ad", map[string]any{"id": "ad-1"})
	require.Equal(t, http.StatusOK, w.Code)

	_, err := os.Stat(videoFile)
	assert.True(t, os.IsNotExist(err))

	w = env.do(t, http.MethodPost, "/api/delete-ad", map[string]any{"id": "ad-1"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}
