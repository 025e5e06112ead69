package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config holds all application configuration. It is constructed once in main
// and passed in explicitly; nothing reads it through package globals.
type Config struct {
	Version   int             `toml:"version"`
	Server    ServerConfig    `toml:"server"`
	Providers ProvidersConfig `toml:"providers"`
	Analysis  AnalysisConfig  `toml:"analysis"`
	Storage   StorageConfig   `toml:"storage"`
	Pipeline  PipelineConfig  `toml:"pipeline"`
	Cleanup   CleanupConfig   `toml:"cleanup"`
}

type ServerConfig struct {
	Addr string `toml:"addr"`
}

type ProvidersConfig struct {
	// BrowserFallback enables the headless-browser provider as a final
	// fallback when every API provider comes back empty.
	BrowserFallback bool   `toml:"browser_fallback"`
	Headless        bool   `toml:"headless"`
	CookieFile      string `toml:"cookie_file"`
	YTDLPBin        string `toml:"ytdlp_bin"`
}

const (
	ProviderGemini    = "gemini"
	ProviderAnthropic = "anthropic"
)

type AnalysisConfig struct {
	LLMProvider string `toml:"llm_provider"`
	APIKey      string `toml:"api_key"`
	Model       string `toml:"model"`
	// CacheExchanges writes every prompt/response pair to the data dir
	// for debugging.
	CacheExchanges bool `toml:"cache_exchanges"`
}

const (
	BackendDataFiles = "datafiles"
	BackendSQLite    = "sqlite"
)

type StorageConfig struct {
	// Backend selects between the JS-literal data files and SQLite.
	Backend string `toml:"backend"`
	// DataDir holds images.js / tweets.js / ads.js (or advault.db).
	DataDir string `toml:"data_dir"`
	// MediaDir holds downloaded images, videos and thumbnails.
	MediaDir string `toml:"media_dir"`
}

type PipelineConfig struct {
	WhisperBin   string `toml:"whisper_bin"`
	WhisperModel string `toml:"whisper_model"`
	FFmpegBin    string `toml:"ffmpeg_bin"`
}

type CleanupConfig struct {
	Enabled       bool `toml:"enabled"`
	IntervalHours int  `toml:"interval_hours"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	dataDir, _ := DataDir()
	return &Config{
		Version: 1,
		Server: ServerConfig{
			Addr: ":8080",
		},
		Providers: ProvidersConfig{
			BrowserFallback: false,
			Headless:        true,
			YTDLPBin:        "yt-dlp",
		},
		Analysis: AnalysisConfig{
			LLMProvider:    ProviderGemini,
			Model:          "gemini-2.0-flash",
			CacheExchanges: true,
		},
		Storage: StorageConfig{
			Backend:  BackendDataFiles,
			DataDir:  dataDir,
			MediaDir: filepath.Join(dataDir, "media"),
		},
		Pipeline: PipelineConfig{
			WhisperBin:   "whisper",
			WhisperModel: "large-v3",
			FFmpegBin:    "ffmpeg",
		},
		Cleanup: CleanupConfig{
			Enabled:       true,
			IntervalHours: 24,
		},
	}
}

// ConfigDir returns the platform-appropriate config directory.
func ConfigDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "advault"), nil
}

// ConfigPath returns the full path to the config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// DataDir returns the default data directory.
func DataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".advault"), nil
}

// Load reads config from disk.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}

	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes config to disk.
func (c *Config) Save() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	path, err := ConfigPath()
	if err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	return encoder.Encode(c)
}
