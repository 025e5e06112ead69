// Package httpserver exposes the vault over HTTP: tweet fetching, image
// and tweet entry management, ad processing and media serving. Routes and
// payload shapes match what the vault frontend already speaks.
package httpserver

import (
	"context"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/pcarling/advault/internal/adpipe"
	"github.com/pcarling/advault/internal/media"
	"github.com/pcarling/advault/internal/reconcile"
	"github.com/pcarling/advault/internal/storage"
	"github.com/pcarling/advault/internal/types"
	"github.com/pcarling/advault/internal/xurl"
)

// TweetFetcher reconciles provider data into canonical tweet records.
type TweetFetcher interface {
	Reconcile(ctx context.Context, ref xurl.Ref) (*types.CanonicalRecord, error)
	FetchMany(ctx context.Context, urls []string) []reconcile.Result
}

// Titler produces a display title and tags from tweet text.
type Titler interface {
	Generate(ctx context.Context, text, rawPrompt string) (string, []string)
}

// AdProcessor runs the video ad pipeline.
type AdProcessor interface {
	ProcessAd(ctx context.Context, url string) (*adpipe.Result, error)
	ProcessBatch(ctx context.Context, urls []string) []adpipe.BatchItem
}

// Server wires the vault services into a gin router.
type Server struct {
	fetcher TweetFetcher
	titler  Titler
	ads     AdProcessor
	backend storage.Backend
	media   *media.Manager
	log     *zap.Logger
	router  *gin.Engine

	now func() time.Time
}

func New(fetcher TweetFetcher, titler Titler, ads AdProcessor,
	backend storage.Backend, mediaMgr *media.Manager, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		fetcher: fetcher,
		titler:  titler,
		ads:     ads,
		backend: backend,
		media:   mediaMgr,
		log:     log,
		now:     time.Now,
	}
	s.router = s.buildRouter()
	return s
}

func (s *Server) buildRouter() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	api := router.Group("/api")
	{
		api.GET("/health", s.health)

		api.POST("/fetch-tweet", s.fetchTweet)
		api.POST("/fetch-tweets-batch", s.fetchTweetsBatch)

		api.POST("/add-image-entry", s.addImageEntry)
		api.POST("/add-images-batch", s.addImagesBatch)
		api.POST("/delete-image", s.deleteImage)
		api.POST("/download-image", s.downloadImage)

		api.POST("/add-tweet", s.addTweet)
		api.POST("/add-tweets-batch", s.addTweetsBatch)
		api.POST("/delete-tweet", s.deleteTweet)

		api.POST("/process-ad", s.processAd)
		api.POST("/process-ads-batch", s.processAdsBatch)

		api.GET("/ads", s.listAds)
		api.GET("/ads/:id", s.getAd)
		api.PUT("/ads/:id", s.updateAd)
		api.POST("/delete-ad", s.deleteAd)
	}

	if s.media != nil {
		dir := s.media.Dir()
		router.Static("/storage", dir)
		router.Static("/images", filepath.Join(dir, "images"))
		router.Static("/videos", filepath.Join(dir, "videos"))
		router.Static("/thumbnails", filepath.Join(dir, "thumbnails"))
	}

	return router
}

// Handler returns the router for mounting on an http.Server.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func respondError(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"error": msg})
}
