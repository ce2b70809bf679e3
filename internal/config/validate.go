package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateProbe(); err != nil {
		return err
	}
	if err := c.validateTagging(); err != nil {
		return err
	}
	if err := c.validateLanguages(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateProbe() error {
	if c.Probe.TimeoutSeconds < 0 {
		return errors.New("probe.timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateTagging() error {
	switch c.Tagging.SidecarMode {
	case SidecarModeFolder, SidecarModeVideo:
	default:
		return fmt.Errorf("tagging.sidecar_mode: unsupported value %q (expected %q or %q)", c.Tagging.SidecarMode, SidecarModeFolder, SidecarModeVideo)
	}
	if strings.ContainsAny(c.Tagging.SidecarName, `/\`) {
		return fmt.Errorf("tagging.sidecar_name must be a file name, got %q", c.Tagging.SidecarName)
	}
	if strings.ContainsAny(c.Tagging.RootElement, " <>/\"'&") {
		return fmt.Errorf("tagging.root_element is not a valid element name: %q", c.Tagging.RootElement)
	}
	return nil
}

func (c *Config) validateLanguages() error {
	for code, lang := range c.Languages {
		for _, tag := range lang.TagsToAdd {
			if strings.TrimSpace(tag) != tag {
				return fmt.Errorf("languages.%s.tags_to_add: tag %q has surrounding whitespace", code, tag)
			}
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	if c.Logging.RetentionDays < 0 {
		return errors.New("logging.retention_days must be zero or positive")
	}
	return nil
}
