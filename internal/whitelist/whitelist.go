// Package whitelist implements the name-based function-exclusion
// predicates the pass uses to skip instrumentation-hostile or
// already-safe code, plus a YAML-configured extra set of
// instrumentation-only names for deployment-specific runtime support
// functions that don't fit a fixed naming convention.
package whitelist

import (
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// config is the on-disk shape of a whitelist file:
//
//	instrumentationOnly:
//	  - active_message_deliver
//	  - arrangeKey
type config struct {
	InstrumentationOnly []string `yaml:"instrumentationOnly"`
}

// List holds the fully-whitelisted name patterns (fixed) plus the
// configured instrumentation-only set.
type List struct {
	extra map[string]bool
}

// Load reads a YAML whitelist file. A missing path is not an error: it
// yields an empty extra set, so a module with no deployment-specific
// runtime support functions needs no whitelist file at all.
func Load(path string) (*List, error) {
	l := &List{extra: map[string]bool{}}
	if path == "" {
		return l, nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return l, nil
	}
	if err != nil {
		return nil, err
	}
	var cfg config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	for _, n := range cfg.InstrumentationOnly {
		l.extra[n] = true
	}
	return l, nil
}

// FullyWhitelisted reports whether a function is fully whitelisted
// (skipped by both analysis and signature rewriting): its name starts
// with "sim_" or "hashtable_", contains "heap", or ends with "_hashtable".
func FullyWhitelisted(name string) bool {
	return strings.HasPrefix(name, "sim_") ||
		strings.HasPrefix(name, "hashtable_") ||
		strings.Contains(name, "heap") ||
		strings.HasSuffix(name, "_hashtable")
}

// InstrumentationOnly reports whether name is fully whitelisted, or the
// name (or the name with a trailing "_nesCheck" stripped) appears in the
// configured extra set.
func (l *List) InstrumentationOnly(name string) bool {
	if FullyWhitelisted(name) {
		return true
	}
	if l.extra[name] {
		return true
	}
	base := strings.TrimSuffix(name, "_nesCheck")
	return l.extra[base]
}
