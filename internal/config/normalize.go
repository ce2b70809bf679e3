package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeProbe()
	c.normalizeTagging()
	c.normalizeLanguages()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Cache.Path) == "" {
		c.Cache.Path = defaultCachePath
	}
	if c.Cache.Path, err = expandPath(c.Cache.Path); err != nil {
		return fmt.Errorf("cache.path: %w", err)
	}
	return nil
}

func (c *Config) normalizeProbe() {
	c.Probe.FFprobeBinary = strings.TrimSpace(c.Probe.FFprobeBinary)
	if value, ok := os.LookupEnv("LANGTAGGER_FFPROBE"); ok && strings.TrimSpace(value) != "" {
		c.Probe.FFprobeBinary = strings.TrimSpace(value)
	}
	if c.Probe.FFprobeBinary == "" {
		c.Probe.FFprobeBinary = defaultFFprobeBinary
	}
	if c.Probe.TimeoutSeconds == 0 {
		c.Probe.TimeoutSeconds = defaultProbeTimeoutSeconds
	}
}

func (c *Config) normalizeTagging() {
	c.Tagging.DefaultLanguage = strings.ToLower(strings.TrimSpace(c.Tagging.DefaultLanguage))
	if c.Tagging.DefaultLanguage == "" {
		c.Tagging.DefaultLanguage = defaultLanguage
	}
	c.Tagging.SidecarMode = strings.ToLower(strings.TrimSpace(c.Tagging.SidecarMode))
	if c.Tagging.SidecarMode == "" {
		c.Tagging.SidecarMode = SidecarModeFolder
	}
	c.Tagging.SidecarName = strings.TrimSpace(c.Tagging.SidecarName)
	if c.Tagging.SidecarName == "" {
		c.Tagging.SidecarName = defaultSidecarName
	}
	c.Tagging.RootElement = strings.TrimSpace(c.Tagging.RootElement)
	if c.Tagging.RootElement == "" {
		c.Tagging.RootElement = defaultRootElement
	}

	exts := make([]string, 0, len(c.Tagging.VideoExtensions))
	seen := make(map[string]struct{}, len(c.Tagging.VideoExtensions))
	for _, ext := range c.Tagging.VideoExtensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		if _, ok := seen[ext]; ok {
			continue
		}
		seen[ext] = struct{}{}
		exts = append(exts, ext)
	}
	if len(exts) == 0 {
		exts = append(exts, defaultVideoExtensions...)
	}
	c.Tagging.VideoExtensions = exts

	dirs := c.Tagging.ExcludeDirs[:0]
	for _, dir := range c.Tagging.ExcludeDirs {
		if dir = strings.TrimSpace(dir); dir != "" {
			dirs = append(dirs, dir)
		}
	}
	c.Tagging.ExcludeDirs = dirs
}

func (c *Config) normalizeLanguages() {
	if len(c.Languages) == 0 {
		return
	}
	normalized := make(map[string]Language, len(c.Languages))
	for code, lang := range c.Languages {
		code = strings.ToLower(strings.TrimSpace(code))
		if code == "" {
			continue
		}
		lang.Name = strings.TrimSpace(lang.Name)
		lang.SearchPatterns = trimList(lang.SearchPatterns)
		lang.TagsToAdd = trimList(lang.TagsToAdd)
		normalized[code] = lang
	}
	c.Languages = normalized
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

// trimList drops blank entries but keeps inner whitespace, since patterns
// like "De " are significant.
func trimList(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}
