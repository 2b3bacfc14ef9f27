package log

// Config selects level, output format and optional rotating file output.
type Config struct {
	Level  string     `mapstructure:"level"`  // debug / info / warn / error
	Format string     `mapstructure:"format"` // text / json
	File   FileConfig `mapstructure:"file"`
}

// FileConfig configures the rotating file appender.
type FileConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Path       string `mapstructure:"path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}
