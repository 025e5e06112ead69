// Package media handles the binary side of the vault: downloading images
// and videos, grabbing video frames, and finding files no record
// references anymore. Web paths like /images/vault/x.jpg map onto the
// media directory one-to-one.
package media

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

const (
	imageTimeout = 30 * time.Second
	videoTimeout = 120 * time.Second

	userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36"
)

// Manager owns the media directory.
type Manager struct {
	dir    string
	client *http.Client
}

func NewManager(dir string) *Manager {
	return &Manager{
		dir:    dir,
		client: &http.Client{},
	}
}

func (m *Manager) Dir() string { return m.dir }

var unsafeRe = regexp.MustCompile(`[^a-zA-Z0-9_\-.]`)

// SanitizeFilename strips everything that is not a word character, dash
// or dot, and forces a known image extension.
func SanitizeFilename(name string) string {
	name = unsafeRe.ReplaceAllString(name, "")
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg", ".png", ".webp":
	default:
		name += ".jpg"
	}
	return name
}

// DownloadImage fetches an image into images/vault and returns its web
// path. The filename is sanitized before use.
func (m *Manager) DownloadImage(ctx context.Context, url, filename string) (string, error) {
	filename = SanitizeFilename(filename)
	if filename == ".jpg" {
		return "", fmt.Errorf("empty filename after sanitizing")
	}
	webPath := "/images/vault/" + filename
	if err := m.download(ctx, url, webPath, imageTimeout); err != nil {
		return "", err
	}
	return webPath, nil
}

// DownloadVideo fetches a video into videos/<tweetID>.mp4 and returns its
// web path.
func (m *Manager) DownloadVideo(ctx context.Context, url, tweetID string) (string, error) {
	webPath := "/videos/" + tweetID + ".mp4"
	if err := m.download(ctx, url, webPath, videoTimeout); err != nil {
		return "", err
	}
	return webPath, nil
}

func (m *Manager) download(ctx context.Context, url, webPath string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("download %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download %s: status %d", url, resp.StatusCode)
	}

	path := m.AbsPath(webPath)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}

// AbsPath maps a web path onto the media directory.
func (m *Manager) AbsPath(webPath string) string {
	return filepath.Join(m.dir, filepath.FromSlash(strings.TrimPrefix(webPath, "/")))
}

// Remove deletes the file behind a web path. Missing files are not an
// error; the record is already gone and that is what matters.
func (m *Manager) Remove(webPath string) error {
	if webPath == "" {
		return nil
	}
	err := os.Remove(m.AbsPath(webPath))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Orphans walks the media directory and returns the web paths of files
// not present in the referenced set.
func (m *Manager) Orphans(referenced map[string]bool) ([]string, error) {
	var orphans []string
	err := filepath.Walk(m.dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(m.dir, path)
		if err != nil {
			return err
		}
		webPath := "/" + filepath.ToSlash(rel)
		if !referenced[webPath] {
			orphans = append(orphans, webPath)
		}
		return nil
	})
	if os.IsNotExist(err) {
		return nil, nil
	}
	return orphans, err
}

// RemoveOrphans deletes every file under the media directory that no
// record references and returns the web paths it removed.
func (m *Manager) RemoveOrphans(referenced map[string]bool) ([]string, error) {
	orphans, err := m.Orphans(referenced)
	if err != nil {
		return nil, err
	}
	var removed []string
	for _, webPath := range orphans {
		if err := m.Remove(webPath); err != nil {
			return removed, err
		}
		removed = append(removed, webPath)
	}
	return removed, nil
}
