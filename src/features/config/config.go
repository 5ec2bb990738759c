package config

// Config holds the application configuration.
type Config struct {
	Database Database `yaml:"database"`
	Export   Export   `yaml:"export"`
	Bundle   Bundle   `yaml:"bundle"`
	Logger   Logger   `yaml:"logger"`
}

// Database holds the Rekordbox database location. An empty path means
// auto-detect the default install location for the current platform.
type Database struct {
	Path string `yaml:"path"`
}

// Export holds the options of the XML export run.
type Export struct {
	Output    string   `yaml:"output"`
	Force     bool     `yaml:"force"`
	Romanize  bool     `yaml:"romanize"`
	BpmPrefix bool     `yaml:"bpm_prefix"`
	OrderBy   string   `yaml:"order_by" validate:"omitempty,oneof=bpm"`
	Playlists []string `yaml:"playlists"`
	// ManagedPrefix marks the application's internal managed-content area.
	// Tracks located under it are never exported. Empty means derive it
	// from the database location (the sibling "share" directory).
	ManagedPrefix string `yaml:"managed_prefix"`
}

// Bundle holds the options of the bundle-export mode: copying referenced
// audio files next to the XML and rewriting tags and Location attributes.
type Bundle struct {
	Path string `yaml:"path"`
	// RequireAll makes any failed copy fatal. When false (default), tracks
	// whose copy failed keep their original Location in the XML, which
	// mixes original and bundle URIs in one document.
	RequireAll bool `yaml:"require_all"`
}

// Logger holds the configuration for the app logging
type Logger struct {
	Enabled bool   `yaml:"enabled"`
	Level   string `yaml:"level"`
	Format  string `yaml:"format"`
}
