// Package storage gives the HTTP layer and the ad pipeline one surface
// over the two persistence backends: the human-editable JS data files
// and SQLite.
package storage

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/pcarling/advault/internal/config"
	"github.com/pcarling/advault/internal/types"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("already exists")
)

// BatchOutcome reports the result for one record in a batch insert.
type BatchOutcome struct {
	ID  string
	Err error
}

// Backend is the persistence surface shared by both implementations.
type Backend interface {
	HasAd(id string) (bool, error)
	InsertAd(ad *types.Ad) error
	DeleteAd(id string) (string, error)

	HasImage(id string) (bool, error)
	InsertImage(e *types.ImageEntry) error
	InsertImages(entries []types.ImageEntry) ([]BatchOutcome, error)
	DeleteImage(id string) (string, error)

	HasTweet(id string) (bool, error)
	InsertTweet(e *types.TweetEntry) error
	InsertTweets(entries []types.TweetEntry) ([]BatchOutcome, error)
	DeleteTweet(id string) error

	// ReferencedMedia lists every media web path any record points at,
	// including shot thumbnails. The orphan sweep keeps these.
	ReferencedMedia() (map[string]bool, error)

	Close() error
}

// AdReader is the read/update side of the ads collection. The data-files
// backend is append-and-delete only, so the ads browsing API requires a
// backend that also satisfies this.
type AdReader interface {
	GetAd(id string) (*types.Ad, error)
	ListAds() ([]types.Ad, error)
	UpdateAd(ad *types.Ad) error
}

// Open builds the backend selected by cfg.
func Open(cfg config.StorageConfig) (Backend, error) {
	switch cfg.Backend {
	case config.BackendSQLite:
		return NewSQLite(filepath.Join(cfg.DataDir, "advault.db"))
	case config.BackendDataFiles, "":
		return NewDataFiles(cfg.DataDir), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
