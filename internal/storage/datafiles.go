package storage

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/pcarling/advault/internal/litstore"
	"github.com/pcarling/advault/internal/types"
)

// DataFiles persists records as entries in the three JS-literal data
// files under dataDir: images.js, tweets.js and ads.js.
type DataFiles struct {
	images *litstore.Store
	tweets *litstore.Store
	ads    *litstore.Store
}

func NewDataFiles(dataDir string) *DataFiles {
	return &DataFiles{
		images: litstore.New(filepath.Join(dataDir, "images.js"), "images"),
		tweets: litstore.New(filepath.Join(dataDir, "tweets.js"), "tweets"),
		ads:    litstore.New(filepath.Join(dataDir, "ads.js"), "ads"),
	}
}

func (d *DataFiles) HasAd(id string) (bool, error) { return d.ads.Has(id) }

func (d *DataFiles) InsertAd(ad *types.Ad) error {
	entry, err := litstore.FormatAdEntry(*ad)
	if err != nil {
		return err
	}
	return insertOne(d.ads, ad.ID, entry)
}

func (d *DataFiles) DeleteAd(id string) (string, error) {
	return mapDelete(d.ads.DeleteByID(id))
}

func (d *DataFiles) HasImage(id string) (bool, error) { return d.images.Has(id) }

func (d *DataFiles) InsertImage(e *types.ImageEntry) error {
	return insertOne(d.images, e.ID, litstore.FormatImageEntry(*e))
}

func (d *DataFiles) InsertImages(entries []types.ImageEntry) ([]BatchOutcome, error) {
	records := make([]litstore.Record, 0, len(entries))
	for _, e := range entries {
		records = append(records, litstore.Record{ID: e.ID, Entry: litstore.FormatImageEntry(e)})
	}
	results, err := d.images.InsertBatch(records)
	if err != nil {
		return nil, err
	}
	return mapBatch(results), nil
}

func (d *DataFiles) DeleteImage(id string) (string, error) {
	return mapDelete(d.images.DeleteByID(id))
}

func (d *DataFiles) HasTweet(id string) (bool, error) { return d.tweets.Has(id) }

func (d *DataFiles) InsertTweet(e *types.TweetEntry) error {
	return insertOne(d.tweets, e.ID, litstore.FormatTweetEntry(*e))
}

func (d *DataFiles) InsertTweets(entries []types.TweetEntry) ([]BatchOutcome, error) {
	records := make([]litstore.Record, 0, len(entries))
	for _, e := range entries {
		records = append(records, litstore.Record{ID: e.ID, Entry: litstore.FormatTweetEntry(e)})
	}
	results, err := d.tweets.InsertBatch(records)
	if err != nil {
		return nil, err
	}
	return mapBatch(results), nil
}

func (d *DataFiles) DeleteTweet(id string) error {
	_, err := mapDelete(d.tweets.DeleteByID(id))
	return err
}

func (d *DataFiles) ReferencedMedia() (map[string]bool, error) {
	referenced := make(map[string]bool)
	for _, s := range []*litstore.Store{d.images, d.tweets, d.ads} {
		paths, err := s.MediaPaths()
		if err != nil {
			return nil, err
		}
		for _, p := range paths {
			referenced[p] = true
		}
	}
	return referenced, nil
}

func (d *DataFiles) Close() error { return nil }

// insertOne goes through InsertBatch so the duplicate check and the write
// happen under the store's lock.
func insertOne(s *litstore.Store, id, entry string) error {
	results, err := s.InsertBatch([]litstore.Record{{ID: id, Entry: entry}})
	if err != nil {
		return err
	}
	if results[0].Err != nil {
		return fmt.Errorf("%w: %s", ErrDuplicate, id)
	}
	return nil
}

func mapDelete(mediaPath string, err error) (string, error) {
	if errors.Is(err, litstore.ErrNotFound) {
		return "", fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	return mediaPath, err
}

func mapBatch(results []litstore.BatchResult) []BatchOutcome {
	outcomes := make([]BatchOutcome, 0, len(results))
	for _, r := range results {
		out := BatchOutcome{ID: r.ID}
		if r.Err != nil {
			out.Err = fmt.Errorf("%w: %s", ErrDuplicate, r.ID)
		}
		outcomes = append(outcomes, out)
	}
	return outcomes
}
