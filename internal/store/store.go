// Package store is the SQLite-backed record store, selected by
// storage.backend = "sqlite". It holds the same three collections as the
// JS data files, with nested structures in JSON columns.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/pcarling/advault/internal/types"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("record already exists")
)

// Store handles all database operations.
type Store struct {
	db *sql.DB
}

// New opens (creating if needed) the SQLite database at dbPath.
func New(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS ads (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		video_src TEXT NOT NULL,
		source TEXT,
		creator TEXT,
		product TEXT,
		vertical TEXT,
		type TEXT,
		hook TEXT,
		full_transcript TEXT,
		why_it_worked TEXT,
		shots TEXT,
		tags TEXT,
		date_added TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS images (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		image_src TEXT NOT NULL,
		source TEXT,
		creator TEXT,
		raw_prompt TEXT,
		tags TEXT,
		date_added TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS tweets (
		id TEXT PRIMARY KEY,
		url TEXT NOT NULL,
		tags TEXT,
		added_at TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_ads_date_added ON ads(date_added);
	CREATE INDEX IF NOT EXISTS idx_images_date_added ON images(date_added);
	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *Store) exists(table, id string) (bool, error) {
	var one int
	err := s.db.QueryRow(fmt.Sprintf("SELECT 1 FROM %s WHERE id = ?", table), id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// SaveAd inserts an ad record. Duplicate ids are rejected.
func (s *Store) SaveAd(ad *types.Ad) error {
	dup, err := s.exists("ads", ad.ID)
	if err != nil {
		return err
	}
	if dup {
		return fmt.Errorf("%w: %s", ErrDuplicate, ad.ID)
	}

	hookJSON, _ := json.Marshal(ad.Hook)
	whyJSON, _ := json.Marshal(ad.WhyItWorked)
	shotsJSON, _ := json.Marshal(ad.Shots)
	tagsJSON, _ := json.Marshal(ad.Tags)

	_, err = s.db.Exec(`
		INSERT INTO ads (id, title, video_src, source, creator, product, vertical, type,
			hook, full_transcript, why_it_worked, shots, tags, date_added)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, ad.ID, ad.Title, ad.VideoSrc, ad.Source, ad.Creator, ad.Product, ad.Vertical, ad.Type,
		string(hookJSON), ad.FullTranscript, string(whyJSON), string(shotsJSON), string(tagsJSON), ad.DateAdded)
	return err
}

// GetAd returns one ad by id.
func (s *Store) GetAd(id string) (*types.Ad, error) {
	row := s.db.QueryRow(`
		SELECT id, title, video_src, source, creator, product, vertical, type,
			hook, full_transcript, why_it_worked, shots, tags, date_added
		FROM ads WHERE id = ?
	`, id)
	ad, err := scanAd(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return ad, err
}

// ListAds returns every ad, newest first.
func (s *Store) ListAds() ([]types.Ad, error) {
	rows, err := s.db.Query(`
		SELECT id, title, video_src, source, creator, product, vertical, type,
			hook, full_transcript, why_it_worked, shots, tags, date_added
		FROM ads ORDER BY date_added DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ads []types.Ad
	for rows.Next() {
		ad, err := scanAd(rows)
		if err != nil {
			return nil, err
		}
		ads = append(ads, *ad)
	}
	return ads, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAd(row scanner) (*types.Ad, error) {
	var ad types.Ad
	var hookJSON, whyJSON, shotsJSON, tagsJSON string
	err := row.Scan(&ad.ID, &ad.Title, &ad.VideoSrc, &ad.Source, &ad.Creator,
		&ad.Product, &ad.Vertical, &ad.Type,
		&hookJSON, &ad.FullTranscript, &whyJSON, &shotsJSON, &tagsJSON, &ad.DateAdded)
	if err != nil {
		return nil, err
	}
	json.Unmarshal([]byte(hookJSON), &ad.Hook)
	json.Unmarshal([]byte(whyJSON), &ad.WhyItWorked)
	json.Unmarshal([]byte(shotsJSON), &ad.Shots)
	json.Unmarshal([]byte(tagsJSON), &ad.Tags)
	return &ad, nil
}

// UpdateAd overwrites an existing ad record in place.
func (s *Store) UpdateAd(ad *types.Ad) error {
	hookJSON, _ := json.Marshal(ad.Hook)
	whyJSON, _ := json.Marshal(ad.WhyItWorked)
	shotsJSON, _ := json.Marshal(ad.Shots)
	tagsJSON, _ := json.Marshal(ad.Tags)

	res, err := s.db.Exec(`
		UPDATE ads SET title = ?, video_src = ?, source = ?, creator = ?, product = ?,
			vertical = ?, type = ?, hook = ?, full_transcript = ?, why_it_worked = ?,
			shots = ?, tags = ?, date_added = ?
		WHERE id = ?
	`, ad.Title, ad.VideoSrc, ad.Source, ad.Creator, ad.Product, ad.Vertical, ad.Type,
		string(hookJSON), ad.FullTranscript, string(whyJSON), string(shotsJSON), string(tagsJSON),
		ad.DateAdded, ad.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, ad.ID)
	}
	return nil
}

// DeleteAd removes one ad and returns its video path so the caller can
// delete the file.
func (s *Store) DeleteAd(id string) (string, error) {
	var videoSrc string
	err := s.db.QueryRow(`SELECT video_src FROM ads WHERE id = ?`, id).Scan(&videoSrc)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return "", err
	}
	_, err = s.db.Exec(`DELETE FROM ads WHERE id = ?`, id)
	return videoSrc, err
}

// SaveImage inserts an image record. Duplicate ids are rejected.
func (s *Store) SaveImage(e *types.ImageEntry) error {
	dup, err := s.exists("images", e.ID)
	if err != nil {
		return err
	}
	if dup {
		return fmt.Errorf("%w: %s", ErrDuplicate, e.ID)
	}

	tagsJSON, _ := json.Marshal(e.Tags)
	_, err = s.db.Exec(`
		INSERT INTO images (id, title, image_src, source, creator, raw_prompt, tags, date_added)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.Title, e.ImageSrc, e.Source, e.Creator, e.RawPrompt, string(tagsJSON), e.DateAdded)
	return err
}

// ListImages returns every image record, newest first.
func (s *Store) ListImages() ([]types.ImageEntry, error) {
	rows, err := s.db.Query(`
		SELECT id, title, image_src, source, creator, raw_prompt, tags, date_added
		FROM images ORDER BY date_added DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var images []types.ImageEntry
	for rows.Next() {
		var e types.ImageEntry
		var tagsJSON string
		if err := rows.Scan(&e.ID, &e.Title, &e.ImageSrc, &e.Source, &e.Creator,
			&e.RawPrompt, &tagsJSON, &e.DateAdded); err != nil {
			return nil, err
		}
		json.Unmarshal([]byte(tagsJSON), &e.Tags)
		images = append(images, e)
	}
	return images, rows.Err()
}

// DeleteImage removes one image record and returns its image path.
func (s *Store) DeleteImage(id string) (string, error) {
	var imageSrc string
	err := s.db.QueryRow(`SELECT image_src FROM images WHERE id = ?`, id).Scan(&imageSrc)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return "", err
	}
	_, err = s.db.Exec(`DELETE FROM images WHERE id = ?`, id)
	return imageSrc, err
}

// SaveTweet inserts a tagged-tweet record. Duplicate ids are rejected.
func (s *Store) SaveTweet(e *types.TweetEntry) error {
	dup, err := s.exists("tweets", e.ID)
	if err != nil {
		return err
	}
	if dup {
		return fmt.Errorf("%w: %s", ErrDuplicate, e.ID)
	}

	tagsJSON, _ := json.Marshal(e.Tags)
	_, err = s.db.Exec(`
		INSERT INTO tweets (id, url, tags, added_at)
		VALUES (?, ?, ?, ?)
	`, e.ID, e.URL, string(tagsJSON), e.AddedAt)
	return err
}

// ListTweets returns every tagged tweet, newest first.
func (s *Store) ListTweets() ([]types.TweetEntry, error) {
	rows, err := s.db.Query(`
		SELECT id, url, tags, added_at FROM tweets ORDER BY added_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tweets []types.TweetEntry
	for rows.Next() {
		var e types.TweetEntry
		var tagsJSON string
		if err := rows.Scan(&e.ID, &e.URL, &tagsJSON, &e.AddedAt); err != nil {
			return nil, err
		}
		json.Unmarshal([]byte(tagsJSON), &e.Tags)
		tweets = append(tweets, e)
	}
	return tweets, rows.Err()
}

// DeleteTweet removes one tagged tweet.
func (s *Store) DeleteTweet(id string) error {
	res, err := s.db.Exec(`DELETE FROM tweets WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}
