// Package settings loads application configuration from a TOML file, with
// working defaults when no file exists.
package settings

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	apperrors "github.com/liuji1031/visualize-architecture/pkg/errors"
)

// Settings is the full application configuration.
type Settings struct {
	Server ServerSettings `toml:"server"`
	Cache  CacheSettings  `toml:"cache"`
	Layout LayoutSettings `toml:"layout"`
	Preset PresetSettings `toml:"preset"`
}

// ServerSettings configures the HTTP server.
type ServerSettings struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string `toml:"addr"`
	// UploadDir is where uploaded configuration folders are unpacked.
	// Empty means a per-process temporary directory.
	UploadDir string `toml:"upload_dir"`
	// MaxUploadBytes caps the size of a single upload request body.
	MaxUploadBytes int64 `toml:"max_upload_bytes"`
}

// CacheSettings selects and configures the pipeline cache backend.
type CacheSettings struct {
	// Backend is "file", "redis", or "none".
	Backend string `toml:"backend"`
	// Dir is the file backend's directory. Empty means a directory under
	// the user cache dir.
	Dir string `toml:"dir"`
	// RedisURL is the redis backend's connection URL.
	RedisURL string `toml:"redis_url"`
}

// LayoutSettings carries the default layout parameters.
type LayoutSettings struct {
	Orientation string  `toml:"orientation"`
	NodeWidth   float64 `toml:"node_width"`
	NodeHeight  float64 `toml:"node_height"`
	RankGap     float64 `toml:"rank_gap"`
	NodeGap     float64 `toml:"node_gap"`
}

// PresetSettings configures where bundled and shared example models live.
type PresetSettings struct {
	// MongoURL enables the shared preset store when non-empty.
	MongoURL string `toml:"mongo_url"`
	// Database is the mongo database name. Defaults to "netviz".
	Database string `toml:"database"`
}

// Default returns the settings used when no file is present.
func Default() Settings {
	return Settings{
		Server: ServerSettings{
			Addr:           ":8080",
			MaxUploadBytes: 32 << 20,
		},
		Cache: CacheSettings{
			Backend: "file",
		},
		Layout: LayoutSettings{
			Orientation: "TB",
			NodeWidth:   160,
			NodeHeight:  60,
			RankGap:     90,
			NodeGap:     40,
		},
		Preset: PresetSettings{
			Database: "netviz",
		},
	}
}

// Load reads settings from path, layered over the defaults. A missing file
// is not an error; a malformed one is.
func Load(path string) (Settings, error) {
	s := Default()
	if path == "" {
		return s, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return s, nil
	}
	if _, err := toml.DecodeFile(path, &s); err != nil {
		return s, apperrors.Wrap(apperrors.ErrCodeInvalidInput, err, "parse settings %s", path)
	}
	return s, s.validate()
}

func (s Settings) validate() error {
	switch s.Cache.Backend {
	case "file", "redis", "none", "":
	default:
		return apperrors.New(apperrors.ErrCodeInvalidInput,
			"invalid cache backend: %q (must be file, redis, or none)", s.Cache.Backend)
	}
	switch s.Layout.Orientation {
	case "TB", "LR", "":
	default:
		return apperrors.New(apperrors.ErrCodeInvalidInput,
			"invalid layout orientation: %q (must be TB or LR)", s.Layout.Orientation)
	}
	if s.Cache.Backend == "redis" && s.Cache.RedisURL == "" {
		return apperrors.New(apperrors.ErrCodeInvalidInput, "redis cache backend requires redis_url")
	}
	return nil
}

// CacheDir returns the directory for the file cache backend, falling back
// to a netviz subdirectory of the user cache dir.
func (s Settings) CacheDir() string {
	if s.Cache.Dir != "" {
		return s.Cache.Dir
	}
	base, err := os.UserCacheDir()
	if err != nil {
		base = os.TempDir()
	}
	return filepath.Join(base, "netviz")
}
