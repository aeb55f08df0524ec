// Package profile loads and validates the user's interest profile.
package profile

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/councilsense/minutes-cli/internal/model"
)

const (
	// DefaultBasename is the profile file name under the config directory.
	DefaultBasename = "interest_profile.yaml"
	// EnvPath overrides the resolved profile path.
	EnvPath = "COUNCILSENSE_PROFILE"
)

// Profile is a parsed interest profile.
type Profile struct {
	Version     int          `yaml:"version"`
	ProfileName string       `yaml:"profile_name"`
	Rules       []model.Rule `yaml:"rules"`
	Output      Output       `yaml:"output"`
	LLM         *LLM         `yaml:"llm,omitempty"`
}

// Output holds output tuning.
type Output struct {
	Evidence model.EvidenceConfig `yaml:"evidence"`
}

// LLM holds optional model settings carried by the profile.
type LLM struct {
	Provider string  `yaml:"provider,omitempty"`
	Endpoint string  `yaml:"endpoint,omitempty"`
	Model    string  `yaml:"model,omitempty"`
	TimeoutS float64 `yaml:"timeout_s,omitempty"`
}

// EvidenceConfig returns the evidence settings with defaults applied.
func (p *Profile) EvidenceConfig() model.EvidenceConfig {
	return p.Output.Evidence.WithDefaults()
}

// ValidationError reports a malformed or unreadable profile.
type ValidationError struct {
	Msg string
	Err error
}

func (e *ValidationError) Error() string { return e.Msg }

func (e *ValidationError) Unwrap() error { return e.Err }

func invalid(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// Load reads, validates and decodes the profile at path.
func Load(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &ValidationError{
				Msg: fmt.Sprintf("Interest profile not found: %s. Create one with: minutes-cli profile init", path),
				Err: err,
			}
		}
		return nil, &ValidationError{Msg: fmt.Sprintf("Failed to read interest profile YAML: %s", path), Err: err}
	}
	return Parse(data)
}

// Parse validates and decodes profile YAML.
func Parse(data []byte) (*Profile, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, &ValidationError{Msg: "Failed to parse interest profile YAML.", Err: err}
	}
	if raw == nil {
		return &Profile{}, nil
	}
	doc, ok := raw.(map[string]any)
	if !ok {
		return nil, invalid("Interest profile YAML must be a mapping (top-level object).")
	}
	if err := Validate(doc); err != nil {
		return nil, err
	}

	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, &ValidationError{Msg: "Failed to decode interest profile.", Err: err}
	}
	return &p, nil
}

// Validate checks a generically decoded profile document the way a user
// editing the file by hand needs: every problem names the field at fault.
func Validate(doc map[string]any) error {
	if llm, ok := doc["llm"]; ok && llm != nil {
		m, ok := llm.(map[string]any)
		if !ok {
			return invalid("Profile field 'llm' must be an object.")
		}
		for _, field := range []string{"provider", "endpoint", "model"} {
			v, present := m[field]
			if !present || v == nil {
				continue
			}
			if s, ok := v.(string); !ok || strings.TrimSpace(s) == "" {
				return invalid("Profile field 'llm.%s' must be a non-empty string if provided.", field)
			}
		}
		if v, present := m["timeout_s"]; present && v != nil && !isNumber(v) {
			return invalid("Profile field 'llm.timeout_s' must be a number.")
		}
	}

	if rules, ok := doc["rules"]; ok && rules != nil {
		list, ok := rules.([]any)
		if !ok {
			return invalid("Profile field 'rules' must be a list.")
		}
		for i, r := range list {
			if err := validateRule(i, r); err != nil {
				return err
			}
		}
	}

	output, _ := doc["output"].(map[string]any)
	if ev, ok := output["evidence"]; ok && ev != nil {
		m, ok := ev.(map[string]any)
		if !ok {
			return invalid("Profile field 'output.evidence' must be an object.")
		}
		for _, field := range []string{"snippet_chars", "max_snippets_per_rule"} {
			if v, present := m[field]; present && v != nil && !isInteger(v) {
				return invalid("Profile field 'output.evidence.%s' must be an integer.", field)
			}
		}
	}
	return nil
}

func validateRule(idx int, r any) error {
	rule, ok := r.(map[string]any)
	if !ok {
		return invalid("Rule #%d must be a mapping/object.", idx+1)
	}
	id, _ := rule["id"].(string)
	if strings.TrimSpace(id) == "" {
		return invalid("Rule #%d is missing a non-empty 'id'.", idx+1)
	}

	rtype, _ := rule["type"].(string)
	switch model.RuleType(rtype) {
	case model.RuleKeywordAny, model.RuleKeywordWithContext:
	default:
		return invalid("Rule '%s' has unsupported type '%v'. Supported: keyword_any, keyword_with_context.", id, rule["type"])
	}

	if len(stringList(rule["keywords"])) == 0 {
		return invalid("Rule '%s' must have a non-empty 'keywords' list.", id)
	}
	if model.RuleType(rtype) == model.RuleKeywordWithContext && len(stringList(rule["context_keywords"])) == 0 {
		return invalid("Rule '%s' is keyword_with_context but has no 'context_keywords'.", id)
	}

	for _, field := range []string{"min_hits", "window_chars"} {
		if v, present := rule[field]; present && v != nil && !isInteger(v) {
			return invalid("Rule '%s' field '%s' must be an integer.", id, field)
		}
	}
	if v, present := rule["enabled"]; present && v != nil {
		if _, ok := v.(bool); !ok {
			return invalid("Rule '%s' field 'enabled' must be true or false.", id)
		}
	}
	return nil
}

func stringList(v any) []string {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	var out []string
	for _, item := range list {
		if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out
}

func isInteger(v any) bool {
	switch n := v.(type) {
	case int, int64, uint64:
		return true
	case float64:
		return n == math.Trunc(n)
	default:
		return false
	}
}

func isNumber(v any) bool {
	switch v.(type) {
	case int, int64, uint64, float64:
		return true
	default:
		return false
	}
}

// DefaultPath is the profile location under the XDG config directory.
func DefaultPath() string {
	return filepath.Join(xdgConfigHome(), "councilsense", DefaultBasename)
}

func xdgConfigHome() string {
	if base := os.Getenv("XDG_CONFIG_HOME"); base != "" {
		return base
	}
	if home := os.Getenv("HOME"); home != "" {
		return filepath.Join(home, ".config")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".config")
	}
	return ".config"
}

// ResolvePath picks the profile to use: an explicit path, then the
// COUNCILSENSE_PROFILE environment variable, then an existing XDG profile,
// then an existing ./interest_profile.yaml (unless preferXDG), and finally
// the XDG default location.
func ResolvePath(explicit string, preferXDG bool) string {
	if explicit != "" {
		return explicit
	}
	if env := os.Getenv(EnvPath); env != "" {
		return env
	}
	xdg := DefaultPath()
	if fileExists(xdg) {
		return xdg
	}
	if !preferXDG {
		if wd, err := os.Getwd(); err == nil {
			local := filepath.Join(wd, DefaultBasename)
			if fileExists(local) {
				return local
			}
		}
	}
	return xdg
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Init writes the starter profile to path. An existing file is left alone
// unless overwrite is set.
func Init(path string, overwrite bool) (string, error) {
	if fileExists(path) && !overwrite {
		return path, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", eris.Wrapf(err, "profile: create dir for %s", path)
	}
	if err := os.WriteFile(path, []byte(DefaultTemplate), 0o644); err != nil {
		return "", eris.Wrapf(err, "profile: write %s", path)
	}
	return path, nil
}
