package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/pcarling/advault/internal/reconcile"
	"github.com/pcarling/advault/internal/storage"
	"github.com/pcarling/advault/internal/types"
	"github.com/pcarling/advault/internal/xurl"
)

// tweetPayload flattens a canonical record into the wire shape the
// frontend expects, with the success flag alongside the record fields.
type tweetPayload struct {
	Success bool `json:"success"`
	*types.CanonicalRecord
}

func (s *Server) fetchTweet(c *gin.Context) {
	var req struct {
		URL string `json:"url"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.URL == "" {
		respondError(c, http.StatusBadRequest, "URL is required")
		return
	}

	ref, err := xurl.Parse(req.URL)
	if err != nil {
		respondError(c, http.StatusBadRequest, "Invalid X.com/Twitter URL")
		return
	}

	rec, err := s.fetcher.Reconcile(c.Request.Context(), ref)
	if errors.Is(err, reconcile.ErrNoProviderData) {
		respondError(c, http.StatusNotFound, "Could not fetch tweet data")
		return
	}
	if err != nil {
		respondError(c, http.StatusInternalServerError, err.Error())
		return
	}

	if s.titler != nil {
		rec.Title, rec.Tags = s.titler.Generate(c.Request.Context(), rec.Text, rec.RawPrompt)
	}
	c.JSON(http.StatusOK, tweetPayload{Success: true, CanonicalRecord: rec})
}

func (s *Server) fetchTweetsBatch(c *gin.Context) {
	var req struct {
		URLs []string `json:"urls"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || len(req.URLs) == 0 {
		respondError(c, http.StatusBadRequest, "URLs array is required")
		return
	}

	hasValid := false
	for _, u := range req.URLs {
		if strings.TrimSpace(u) != "" {
			hasValid = true
			break
		}
	}
	if !hasValid {
		respondError(c, http.StatusBadRequest, "No valid URLs provided")
		return
	}

	results := s.fetcher.FetchMany(c.Request.Context(), req.URLs)

	items := make([]any, 0, len(results))
	successful := 0
	for _, r := range results {
		if r.Err != nil {
			items = append(items, gin.H{"url": r.URL, "success": false, "error": r.Err.Error()})
			continue
		}
		if s.titler != nil {
			r.Record.Title, r.Record.Tags = s.titler.Generate(c.Request.Context(), r.Record.Text, r.Record.RawPrompt)
		}
		items = append(items, tweetPayload{Success: true, CanonicalRecord: r.Record})
		successful++
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"results":    items,
		"total":      len(results),
		"successful": successful,
	})
}

// imageEntryRequest carries both direct entries (imageSrc already on
// disk) and batch entries (imageUrl still to download).
type imageEntryRequest struct {
	ID        string          `json:"id"`
	Title     string          `json:"title"`
	ImageSrc  string          `json:"imageSrc"`
	ImageURL  string          `json:"imageUrl"`
	Filename  string          `json:"filename"`
	Source    string          `json:"source"`
	Creator   string          `json:"creator"`
	Prompt    json.RawMessage `json:"prompt"`
	RawPrompt string          `json:"rawPrompt"`
	Tags      []string        `json:"tags"`
	DateAdded string          `json:"dateAdded"`
}

// rawPromptOf resolves the stored prompt string: the exact rawPrompt when
// given, otherwise the prompt field (kept verbatim for strings,
// re-indented for objects).
func (r *imageEntryRequest) rawPromptOf() string {
	if r.RawPrompt != "" {
		return r.RawPrompt
	}
	if len(r.Prompt) == 0 {
		return ""
	}
	var v any
	if err := json.Unmarshal(r.Prompt, &v); err != nil {
		return string(r.Prompt)
	}
	if str, ok := v.(string); ok {
		return str
	}
	indented, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return string(r.Prompt)
	}
	return string(indented)
}

func (r *imageEntryRequest) entry() types.ImageEntry {
	return types.ImageEntry{
		ID:        r.ID,
		Title:     r.Title,
		ImageSrc:  r.ImageSrc,
		Source:    r.Source,
		Creator:   r.Creator,
		RawPrompt: r.rawPromptOf(),
		Tags:      r.Tags,
		DateAdded: r.DateAdded,
	}
}

func (s *Server) addImageEntry(c *gin.Context) {
	var req imageEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	required := []struct{ name, val string }{
		{"id", req.ID},
		{"title", req.Title},
		{"imageSrc", req.ImageSrc},
		{"source", req.Source},
		{"creator", req.Creator},
		{"dateAdded", req.DateAdded},
	}
	for _, f := range required {
		if f.val == "" {
			respondError(c, http.StatusBadRequest, "Missing required field: "+f.name)
			return
		}
	}
	if req.Tags == nil {
		respondError(c, http.StatusBadRequest, "Missing required field: tags")
		return
	}
	if len(req.Prompt) == 0 && req.RawPrompt == "" {
		respondError(c, http.StatusBadRequest, "Missing required field: prompt or rawPrompt")
		return
	}

	entry := req.entry()
	if err := s.backend.InsertImage(&entry); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			respondError(c, http.StatusBadRequest, "Image already exists in vault")
			return
		}
		respondError(c, http.StatusInternalServerError, err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Image entry added"})
}

func (s *Server) addImagesBatch(c *gin.Context) {
	var req struct {
		Entries []imageEntryRequest `json:"entries"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || len(req.Entries) == 0 {
		respondError(c, http.StatusBadRequest, "Entries array is required")
		return
	}

	type itemResult struct {
		ID      string `json:"id"`
		Success bool   `json:"success"`
		Error   string `json:"error,omitempty"`
	}

	results := make([]itemResult, 0, len(req.Entries))
	var pending []types.ImageEntry
	pendingIdx := make([]int, 0, len(req.Entries))

	for _, r := range req.Entries {
		id := r.ID
		if id == "" {
			id = "unknown"
		}
		if r.ImageURL == "" || r.Filename == "" {
			results = append(results, itemResult{ID: id, Success: false, Error: "Missing imageUrl or filename"})
			continue
		}
		webPath, err := s.media.DownloadImage(c.Request.Context(), r.ImageURL, r.Filename)
		if err != nil {
			s.log.Warn("batch image download failed", zap.String("id", id), zap.Error(err))
			results = append(results, itemResult{ID: id, Success: false, Error: err.Error()})
			continue
		}
		entry := r.entry()
		entry.ImageSrc = webPath
		pending = append(pending, entry)
		pendingIdx = append(pendingIdx, len(results))
		results = append(results, itemResult{ID: id, Success: true})
	}

	outcomes, err := s.backend.InsertImages(pending)
	if err != nil {
		respondError(c, http.StatusInternalServerError, err.Error())
		return
	}
	for i, out := range outcomes {
		if out.Err != nil {
			results[pendingIdx[i]] = itemResult{ID: out.ID, Success: false, Error: out.Err.Error()}
		}
	}

	added := 0
	for _, r := range results {
		if r.Success {
			added++
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"results": results,
		"added":   added,
		"total":   len(req.Entries),
	})
}

func (s *Server) deleteImage(c *gin.Context) {
	var req struct {
		ID         string `json:"id"`
		DeleteFile *bool  `json:"deleteFile"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.ID == "" {
		respondError(c, http.StatusBadRequest, "Image ID is required")
		return
	}

	mediaPath, err := s.backend.DeleteImage(req.ID)
	if errors.Is(err, storage.ErrNotFound) {
		respondError(c, http.StatusNotFound, "Image not found")
		return
	}
	if err != nil {
		respondError(c, http.StatusInternalServerError, err.Error())
		return
	}

	if req.DeleteFile == nil || *req.DeleteFile {
		if err := s.media.Remove(mediaPath); err != nil {
			s.log.Warn("failed to remove image file", zap.String("path", mediaPath), zap.Error(err))
		}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Image deleted successfully"})
}

func (s *Server) downloadImage(c *gin.Context) {
	var req struct {
		URL      string `json:"url"`
		Filename string `json:"filename"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.URL == "" || req.Filename == "" {
		respondError(c, http.StatusBadRequest, "URL and filename are required")
		return
	}

	webPath, err := s.media.DownloadImage(c.Request.Context(), req.URL, req.Filename)
	if err != nil {
		respondError(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"filename": strings.TrimPrefix(webPath, "/images/vault/"),
		"path":     webPath,
	})
}

func (s *Server) addTweet(c *gin.Context) {
	var req struct {
		URL  string   `json:"url"`
		Tags []string `json:"tags"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.URL) == "" {
		respondError(c, http.StatusBadRequest, "URL is required")
		return
	}
	if len(req.Tags) == 0 {
		respondError(c, http.StatusBadRequest, "At least one tag is required")
		return
	}

	ref, err := xurl.Parse(strings.TrimSpace(req.URL))
	if err != nil {
		respondError(c, http.StatusBadRequest, "Invalid X.com/Twitter URL")
		return
	}

	entry := types.TweetEntry{
		ID:      "tweet-" + ref.ID,
		URL:     strings.TrimSpace(req.URL),
		Tags:    req.Tags,
		AddedAt: s.now().Format("2006-01-02"),
	}
	if err := s.backend.InsertTweet(&entry); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			respondError(c, http.StatusBadRequest, "Tweet already exists in vault")
			return
		}
		respondError(c, http.StatusInternalServerError, err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Tweet added to vault", "id": entry.ID})
}

func (s *Server) addTweetsBatch(c *gin.Context) {
	var req struct {
		URLs []string `json:"urls"`
		Tags []string `json:"tags"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || len(req.URLs) == 0 {
		respondError(c, http.StatusBadRequest, "URLs array is required")
		return
	}
	if len(req.Tags) == 0 {
		respondError(c, http.StatusBadRequest, "At least one tag is required")
		return
	}

	type itemResult struct {
		URL     string `json:"url"`
		ID      string `json:"id,omitempty"`
		Success bool   `json:"success"`
		Error   string `json:"error,omitempty"`
	}

	today := s.now().Format("2006-01-02")
	results := make([]itemResult, 0, len(req.URLs))
	var pending []types.TweetEntry
	pendingIdx := make([]int, 0, len(req.URLs))

	for _, raw := range req.URLs {
		url := strings.TrimSpace(raw)
		if url == "" {
			continue
		}
		ref, err := xurl.Parse(url)
		if err != nil {
			results = append(results, itemResult{URL: url, Success: false, Error: "Invalid X.com/Twitter URL"})
			continue
		}
		pending = append(pending, types.TweetEntry{
			ID:      "tweet-" + ref.ID,
			URL:     url,
			Tags:    req.Tags,
			AddedAt: today,
		})
		pendingIdx = append(pendingIdx, len(results))
		results = append(results, itemResult{URL: url, ID: "tweet-" + ref.ID, Success: true})
	}

	outcomes, err := s.backend.InsertTweets(pending)
	if err != nil {
		respondError(c, http.StatusInternalServerError, err.Error())
		return
	}
	for i, out := range outcomes {
		if out.Err != nil {
			idx := pendingIdx[i]
			results[idx].Success = false
			results[idx].Error = "Tweet already exists in vault"
		}
	}

	added := 0
	for _, r := range results {
		if r.Success {
			added++
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"results": results,
		"added":   added,
		"total":   len(results),
	})
}

func (s *Server) deleteTweet(c *gin.Context) {
	var req struct {
		ID string `json:"id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.ID == "" {
		respondError(c, http.StatusBadRequest, "Tweet ID is required")
		return
	}

	err := s.backend.DeleteTweet(req.ID)
	if errors.Is(err, storage.ErrNotFound) {
		respondError(c, http.StatusNotFound, "Tweet not found")
		return
	}
	if err != nil {
		respondError(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
