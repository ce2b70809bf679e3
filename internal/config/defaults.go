package config

const (
	defaultConfigPath          = "~/.config/langtagger/config.toml"
	defaultLogDir              = "~/.local/share/langtagger/logs"
	defaultStateDir            = "~/.local/state/langtagger"
	defaultCachePath           = "~/.cache/langtagger/probe.db"
	defaultFFprobeBinary       = "ffprobe"
	defaultProbeTimeoutSeconds = 60
	defaultLanguage            = "de"
	defaultSidecarName         = "movie.nfo"
	defaultRootElement         = "movie"
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
	defaultLogRetentionDays    = 30

	// SidecarModeFolder writes one sidecar per media folder.
	SidecarModeFolder = "folder"
	// SidecarModeVideo writes <video-basename>.nfo next to each matched video.
	SidecarModeVideo = "video"
)

var defaultVideoExtensions = []string{
	".mkv", ".mp4", ".avi", ".mov", ".wmv", ".flv", ".mpeg", ".mpg", ".m4v", ".ts",
}

var defaultExcludeDirs = []string{"@eaDir", ".trickplay", "extrafanart"}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LogDir:   defaultLogDir,
			StateDir: defaultStateDir,
		},
		Probe: Probe{
			FFprobeBinary:  defaultFFprobeBinary,
			TimeoutSeconds: defaultProbeTimeoutSeconds,
		},
		Tagging: Tagging{
			DefaultLanguage:   defaultLanguage,
			SidecarMode:       SidecarModeFolder,
			SidecarName:       defaultSidecarName,
			RootElement:       defaultRootElement,
			VideoExtensions:   append([]string(nil), defaultVideoExtensions...),
			ExcludeDirs:       append([]string(nil), defaultExcludeDirs...),
			MatchLanguageTags: true,
		},
		Cache: Cache{
			Enabled: true,
			Path:    defaultCachePath,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}

// Defaults returns the default configuration after the same normalization
// and validation Load applies, so every path is absolute.
func Defaults() (*Config, error) {
	cfg := Default()
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
