package storage

import (
	"errors"
	"fmt"

	"github.com/pcarling/advault/internal/store"
	"github.com/pcarling/advault/internal/types"
)

// SQLite persists records in a single SQLite database file.
type SQLite struct {
	db *store.Store
}

func NewSQLite(dbPath string) (*SQLite, error) {
	db, err := store.New(dbPath)
	if err != nil {
		return nil, err
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) HasAd(id string) (bool, error) {
	_, err := s.db.GetAd(id)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *SQLite) InsertAd(ad *types.Ad) error { return mapErr(s.db.SaveAd(ad)) }

func (s *SQLite) DeleteAd(id string) (string, error) {
	videoSrc, err := s.db.DeleteAd(id)
	return videoSrc, mapErr(err)
}

func (s *SQLite) GetAd(id string) (*types.Ad, error) {
	ad, err := s.db.GetAd(id)
	return ad, mapErr(err)
}

func (s *SQLite) ListAds() ([]types.Ad, error) { return s.db.ListAds() }

func (s *SQLite) UpdateAd(ad *types.Ad) error { return mapErr(s.db.UpdateAd(ad)) }

func (s *SQLite) HasImage(id string) (bool, error) {
	images, err := s.db.ListImages()
	if err != nil {
		return false, err
	}
	for _, img := range images {
		if img.ID == id {
			return true, nil
		}
	}
	return false, nil
}

func (s *SQLite) InsertImage(e *types.ImageEntry) error { return mapErr(s.db.SaveImage(e)) }

func (s *SQLite) InsertImages(entries []types.ImageEntry) ([]BatchOutcome, error) {
	outcomes := make([]BatchOutcome, 0, len(entries))
	for i := range entries {
		outcomes = append(outcomes, BatchOutcome{
			ID:  entries[i].ID,
			Err: mapErr(s.db.SaveImage(&entries[i])),
		})
	}
	return outcomes, nil
}

func (s *SQLite) DeleteImage(id string) (string, error) {
	imageSrc, err := s.db.DeleteImage(id)
	return imageSrc, mapErr(err)
}

func (s *SQLite) HasTweet(id string) (bool, error) {
	tweets, err := s.db.ListTweets()
	if err != nil {
		return false, err
	}
	for _, tw := range tweets {
		if tw.ID == id {
			return true, nil
		}
	}
	return false, nil
}

func (s *SQLite) InsertTweet(e *types.TweetEntry) error { return mapErr(s.db.SaveTweet(e)) }

func (s *SQLite) InsertTweets(entries []types.TweetEntry) ([]BatchOutcome, error) {
	outcomes := make([]BatchOutcome, 0, len(entries))
	for i := range entries {
		outcomes = append(outcomes, BatchOutcome{
			ID:  entries[i].ID,
			Err: mapErr(s.db.SaveTweet(&entries[i])),
		})
	}
	return outcomes, nil
}

func (s *SQLite) DeleteTweet(id string) error { return mapErr(s.db.DeleteTweet(id)) }

func (s *SQLite) ReferencedMedia() (map[string]bool, error) {
	referenced := make(map[string]bool)

	images, err := s.db.ListImages()
	if err != nil {
		return nil, err
	}
	for _, img := range images {
		if img.ImageSrc != "" {
			referenced[img.ImageSrc] = true
		}
	}

	ads, err := s.db.ListAds()
	if err != nil {
		return nil, err
	}
	for _, ad := range ads {
		if ad.VideoSrc != "" {
			referenced[ad.VideoSrc] = true
		}
		for _, shot := range ad.Shots {
			if shot.Thumbnail != "" {
				referenced[shot.Thumbnail] = true
			}
		}
	}

	return referenced, nil
}

func (s *SQLite) Close() error { return s.db.Close() }

// mapErr translates the store package's sentinels into this package's.
func mapErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound):
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	case errors.Is(err, store.ErrDuplicate):
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	default:
		return err
	}
}
