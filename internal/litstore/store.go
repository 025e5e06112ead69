// Package litstore edits the JS data files the front end imports directly
// (images.js, tweets.js, ads.js). Each file holds a single
// `export const <name> = [ ... ];` array whose entries are object literals
// that are also edited by hand, so every mutation must preserve the
// surrounding text and untouched entries byte for byte.
//
// Entry splitting is plain brace counting: it is correct as long as no
// string value contains an unbalanced '{' or '}'. That approximation is
// accepted rather than parsing JavaScript.
package litstore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
)

var (
	// ErrNotFound means no entry matched the requested id.
	ErrNotFound = errors.New("entry not found")
	// ErrStoreParse means the file does not contain the expected
	// array-literal assignment.
	ErrStoreParse = errors.New("store file does not match expected shape")
)

// Store is one JS data file holding a single exported array literal.
// Mutations are read-modify-write cycles over the whole file, so mu
// serializes every method; without it concurrent inserts read the same
// snapshot and the later rename drops the earlier entry.
type Store struct {
	path string
	name string
	mu   sync.Mutex
}

// New returns a store for the array const `name` in the file at path.
// The file is created lazily with an empty array on first mutation.
func New(path, name string) *Store {
	return &Store{path: path, name: name}
}

func (s *Store) Path() string { return s.path }

// read returns the whole file, or an empty-array skeleton when the file
// does not exist yet.
func (s *Store) read() (string, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Sprintf("export const %s = [\n];\n", s.name), nil
	}
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// arrayContent extracts the text between the opening '[' and closing '];'.
func (s *Store) arrayContent(content string) (string, error) {
	re := regexp.MustCompile(`(?s)export const ` + regexp.QuoteMeta(s.name) + ` = \[(.*)\];`)
	m := re.FindStringSubmatch(content)
	if m == nil {
		return "", fmt.Errorf("%w: %s", ErrStoreParse, filepath.Base(s.path))
	}
	return m[1], nil
}

// render wraps array content back into the full file text.
func (s *Store) render(arrayContent string) string {
	return fmt.Sprintf("export const %s = [%s\n];\n", s.name, arrayContent)
}

// write replaces the file atomically: the new content lands in a temp file
// in the same directory, then renames over the original.
func (s *Store) write(content string) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, s.path)
}

func idPattern(id string) *regexp.Regexp {
	return regexp.MustCompile(`id:\s*["']` + regexp.QuoteMeta(id) + `["']`)
}

// Has reports whether an entry with the given id exists.
func (s *Store) Has(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	content, err := s.read()
	if err != nil {
		return false, err
	}
	arr, err := s.arrayContent(content)
	if err != nil {
		return false, err
	}
	return idPattern(id).MatchString(arr), nil
}

// Insert appends one serialized entry to the end of the array,
// comma-separated from the existing entries. Existing entries are never
// reordered or reformatted.
func (s *Store) Insert(entry string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	content, err := s.read()
	if err != nil {
		return err
	}
	arr, err := s.arrayContent(content)
	if err != nil {
		return err
	}
	return s.write(s.render(appendEntries(strings.TrimSpace(arr), []string{entry})))
}

// Record is one candidate for a batch insert.
type Record struct {
	ID    string
	Entry string
}

// BatchResult reports the outcome for one record in a batch insert.
type BatchResult struct {
	ID  string
	Err error
}

// InsertBatch appends every non-duplicate record using a single
// read/rewrite cycle. Each record's id is checked against the file as it
// was before the batch, then against the records already accepted from
// this batch.
func (s *Store) InsertBatch(records []Record) ([]BatchResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	content, err := s.read()
	if err != nil {
		return nil, err
	}
	arr, err := s.arrayContent(content)
	if err != nil {
		return nil, err
	}

	results := make([]BatchResult, 0, len(records))
	accepted := make(map[string]bool)
	var entries []string
	for _, rec := range records {
		if idPattern(rec.ID).MatchString(arr) || accepted[rec.ID] {
			results = append(results, BatchResult{ID: rec.ID, Err: fmt.Errorf("already exists")})
			continue
		}
		accepted[rec.ID] = true
		entries = append(entries, rec.Entry)
		results = append(results, BatchResult{ID: rec.ID})
	}

	if len(entries) > 0 {
		if err := s.write(s.render(appendEntries(strings.TrimSpace(arr), entries))); err != nil {
			return nil, err
		}
	}
	return results, nil
}

// appendEntries joins new entries onto existing array content.
func appendEntries(arr string, entries []string) string {
	joined := strings.Join(entries, ",\n  ")
	if arr != "" {
		return arr + ",\n  " + joined
	}
	return "\n  " + joined + "\n"
}

var mediaSrcRe = regexp.MustCompile(`(?:imageSrc|videoSrc):\s*["']([^"']+)["']`)

// DeleteByID removes every entry whose id matches and rewrites the file.
// It returns the removed entry's media path (imageSrc or videoSrc) when it
// has one, so the caller can delete the file afterward. A miss returns
// ErrNotFound and leaves the store untouched.
func (s *Store) DeleteByID(id string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	content, err := s.read()
	if err != nil {
		return "", err
	}
	arr, err := s.arrayContent(content)
	if err != nil {
		return "", err
	}

	re := idPattern(id)
	var kept []string
	mediaPath := ""
	removed := false
	for _, entry := range splitEntries(arr) {
		if re.MatchString(entry) {
			removed = true
			if m := mediaSrcRe.FindStringSubmatch(entry); m != nil {
				mediaPath = m[1]
			}
			continue
		}
		kept = append(kept, entry)
	}
	if !removed {
		return "", fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	var newContent string
	if len(kept) > 0 {
		for i, e := range kept {
			kept[i] = strings.TrimSpace(e)
		}
		newContent = fmt.Sprintf("export const %s = [\n  %s\n];\n", s.name, strings.Join(kept, ",\n  "))
	} else if s.name == "tweets" {
		// The tweets file keeps a newline inside the emptied array; the
		// other files collapse it.
		newContent = fmt.Sprintf("export const %s = [\n];\n", s.name)
	} else {
		newContent = fmt.Sprintf("export const %s = [];\n", s.name)
	}
	if err := s.write(newContent); err != nil {
		return "", err
	}
	return mediaPath, nil
}

// mediaPathRe also matches shot thumbnails so orphan sweeps keep them.
var mediaPathRe = regexp.MustCompile(`(?:imageSrc|videoSrc|thumbnail):\s*["']([^"']+)["']`)

// MediaPaths returns every media web path referenced by any entry.
func (s *Store) MediaPaths() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	content, err := s.read()
	if err != nil {
		return nil, err
	}
	arr, err := s.arrayContent(content)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, m := range mediaPathRe.FindAllStringSubmatch(arr, -1) {
		paths = append(paths, m[1])
	}
	return paths, nil
}

// Entries returns the raw text of every entry in the array.
func (s *Store) Entries() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	content, err := s.read()
	if err != nil {
		return nil, err
	}
	arr, err := s.arrayContent(content)
	if err != nil {
		return nil, err
	}
	entries := splitEntries(arr)
	for i, e := range entries {
		entries[i] = strings.TrimSpace(e)
	}
	return entries, nil
}

// splitEntries walks the array text tracking brace depth. An entry starts
// at a '{' seen at depth 0 and ends on the '}' that returns depth to 0;
// everything between entries (commas, whitespace) is dropped.
func splitEntries(arr string) []string {
	var entries []string
	var current strings.Builder
	depth := 0
	inEntry := false
	for _, ch := range arr {
		switch ch {
		case '{':
			if depth == 0 {
				inEntry = true
				current.Reset()
			}
			current.WriteRune(ch)
			depth++
		case '}':
			depth--
			current.WriteRune(ch)
			if depth == 0 && inEntry {
				entries = append(entries, current.String())
				current.Reset()
				inEntry = false
			}
		default:
			if inEntry {
				current.WriteRune(ch)
			}
		}
	}
	return entries
}
