package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultConfigPath = "fwdetect.config.yml"

	// MaxScriptTimeout bounds the per-script sandbox limit.
	MaxScriptTimeout = time.Minute

	envRulesFile      = "FWDETECT_RULES_FILE"
	envNoDefaultRules = "FWDETECT_NO_DEFAULT_RULES"
	envDisable        = "FWDETECT_DISABLE"
	envFormat         = "FWDETECT_FORMAT"
	envExecScripts    = "FWDETECT_EXEC_SCRIPTS"
	envScriptTimeout  = "FWDETECT_SCRIPT_TIMEOUT"
	envSummaryFile    = "FWDETECT_SUMMARY_FILE"
)

// Output formats accepted by the detect command.
const (
	FormatText   = "text"
	FormatJSON   = "json"
	FormatNDJSON = "ndjson"
)

// Loader merges configuration coming from files, environment variables, and CLI flags.
type Loader struct {
	ConfigPath string
}

// RuntimeConfig contains the fully merged settings required by sub-commands.
type RuntimeConfig struct {
	RulesFile      string
	NoDefaultRules bool
	Disable        []string
	Format         string
	ExecScripts    bool
	ScriptTimeout  time.Duration
	SummaryFile    string
}

// Overrides captures values coming from the config file, env vars or CLI flags.
type Overrides struct {
	RulesFile      string
	NoDefaultRules *bool
	Disable        []string
	Format         string
	ExecScripts    *bool
	ScriptTimeout  time.Duration
	SummaryFile    string
}

// DefaultRuntimeConfig returns the baseline configuration when no overrides are provided.
func DefaultRuntimeConfig() RuntimeConfig {
	return RuntimeConfig{
		Format:        FormatText,
		ScriptTimeout: 2 * time.Second,
	}
}

// Load resolves the final runtime configuration.
func (l Loader) Load(override Overrides) (RuntimeConfig, error) {
	cfg := DefaultRuntimeConfig()
	path := l.ConfigPath
	if path == "" {
		path = DefaultConfigPath
	}

	if fileExists(path) {
		fileOv, err := loadFromFile(path)
		if err != nil {
			return cfg, fmt.Errorf("config %s: %w", path, err)
		}
		cfg.apply(fileOv)
	}

	envOv, err := overridesFromEnv()
	if err != nil {
		return cfg, err
	}
	cfg.apply(envOv)
	cfg.apply(override)

	return cfg, nil
}

// Validate ensures the config is usable by the detect command.
func (c RuntimeConfig) Validate() error {
	switch c.Format {
	case FormatText, FormatJSON, FormatNDJSON:
	default:
		return fmt.Errorf("unsupported format %q (want text, json or ndjson)", c.Format)
	}

	if c.ScriptTimeout <= 0 || c.ScriptTimeout > MaxScriptTimeout {
		return fmt.Errorf("script timeout must be between 0 and %s (got %s)", MaxScriptTimeout, c.ScriptTimeout)
	}

	if c.NoDefaultRules && c.RulesFile == "" {
		return errors.New("default rules disabled but no rules file configured; provide --rules or set FWDETECT_RULES_FILE")
	}

	return nil
}

func (c *RuntimeConfig) apply(src Overrides) {
	if src.RulesFile != "" {
		c.RulesFile = src.RulesFile
	}

	if src.NoDefaultRules != nil {
		c.NoDefaultRules = *src.NoDefaultRules
	}

	if len(src.Disable) > 0 {
		c.Disable = cleanList(src.Disable)
	}

	if src.Format != "" {
		c.Format = strings.ToLower(strings.TrimSpace(src.Format))
	}

	if src.ExecScripts != nil {
		c.ExecScripts = *src.ExecScripts
	}

	if src.ScriptTimeout != 0 {
		c.ScriptTimeout = src.ScriptTimeout
	}

	if src.SummaryFile != "" {
		c.SummaryFile = src.SummaryFile
	}
}

func loadFromFile(path string) (Overrides, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Overrides{}, err
	}

	type rawConfig struct {
		RulesFile      string   `yaml:"rulesFile"`
		NoDefaultRules *bool    `yaml:"noDefaultRules"`
		Disable        nameList `yaml:"disable"`
		Format         string   `yaml:"format"`
		ExecScripts    *bool    `yaml:"execScripts"`
		ScriptTimeout  string   `yaml:"scriptTimeout"`
		SummaryFile    string   `yaml:"summaryFile"`
	}

	var raw rawConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Overrides{}, err
	}

	// A relative rules file is resolved against the config file's directory.
	if raw.RulesFile != "" && !filepath.IsAbs(raw.RulesFile) {
		raw.RulesFile = filepath.Join(filepath.Dir(path), raw.RulesFile)
	}

	over := Overrides{
		RulesFile:      raw.RulesFile,
		NoDefaultRules: raw.NoDefaultRules,
		Disable:        raw.Disable,
		Format:         raw.Format,
		ExecScripts:    raw.ExecScripts,
		SummaryFile:    raw.SummaryFile,
	}

	if raw.ScriptTimeout != "" {
		timeout, err := time.ParseDuration(raw.ScriptTimeout)
		if err != nil {
			return Overrides{}, fmt.Errorf("scriptTimeout: %w", err)
		}
		over.ScriptTimeout = timeout
	}

	return over, nil
}

func overridesFromEnv() (Overrides, error) {
	ov := Overrides{}

	if value := os.Getenv(envRulesFile); value != "" {
		ov.RulesFile = value
	}

	if value := os.Getenv(envNoDefaultRules); value != "" {
		parsed := parseBool(value)
		ov.NoDefaultRules = &parsed
	}

	if value := os.Getenv(envDisable); value != "" {
		ov.Disable = ParseNames(value)
	}

	if value := os.Getenv(envFormat); value != "" {
		ov.Format = value
	}

	if value := os.Getenv(envExecScripts); value != "" {
		parsed := parseBool(value)
		ov.ExecScripts = &parsed
	}

	if value := os.Getenv(envScriptTimeout); value != "" {
		timeout, err := time.ParseDuration(value)
		if err != nil {
			return ov, fmt.Errorf("%s: %w", envScriptTimeout, err)
		}
		ov.ScriptTimeout = timeout
	}

	if value := os.Getenv(envSummaryFile); value != "" {
		ov.SummaryFile = value
	}

	return ov, nil
}

func parseBool(value string) bool {
	if parsed, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
		return parsed
	}
	return false
}

// ParseNames splits comma or newline separated rule names. Names may contain
// spaces, as in "Svelte.js / SvelteKit".
func ParseNames(input string) []string {
	return splitOnDelimiters(input, []rune{',', '\n', '\r'})
}

func splitOnDelimiters(input string, delims []rune) []string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return nil
	}

	separator := func(r rune) bool {
		for _, d := range delims {
			if r == d {
				return true
			}
		}
		return false
	}

	return cleanList(strings.FieldsFunc(trimmed, separator))
}

func cleanList(values []string) []string {
	var out []string
	for _, v := range values {
		candidate := strings.TrimSpace(v)
		if candidate != "" {
			out = append(out, candidate)
		}
	}
	return out
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// nameList enables YAML fields that can be specified as a scalar or sequence.
type nameList []string

func (n *nameList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.SequenceNode:
		var out []string
		for _, node := range value.Content {
			out = append(out, strings.TrimSpace(node.Value))
		}
		*n = cleanList(out)
	case yaml.ScalarNode:
		*n = ParseNames(value.Value)
	default:
		return fmt.Errorf("unsupported YAML type for rule names")
	}
	return nil
}

// Template returns a commented starter config file.
func Template(rulesFile string) []byte {
	var b strings.Builder
	b.WriteString("# fwdetect configuration. Environment variables (FWDETECT_*) and flags override these values.\n")
	if rulesFile != "" {
		fmt.Fprintf(&b, "rulesFile: %s\n", rulesFile)
	} else {
		b.WriteString("# rulesFile: rules.yml\n")
	}
	b.WriteString("noDefaultRules: false\n")
	b.WriteString("disable: []\n")
	b.WriteString("format: text\n")
	b.WriteString("execScripts: false\n")
	b.WriteString("scriptTimeout: 2s\n")
	b.WriteString("# summaryFile: detections.json\n")
	return []byte(b.String())
}
