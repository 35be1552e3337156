package scan

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"soft404Go/internal/core"
)

// ModuleOption describes one setting a plugin accepts.
type ModuleOption struct {
	Name        string
	Type        string
	Default     interface{}
	Description string
	Required    bool
}

// Plugin is the interface for all modules.
type Plugin interface {
	Name() string
	Description() string
	Category() string
	Options() []ModuleOption
	Run(ctx context.Context, sess *Session, target string, options map[string]interface{}) (interface{}, error)
}

var (
	registryMu sync.RWMutex
	registry   = map[string]Plugin{}
)

// RegisterPlugin makes p available to the shell and the modules command.
// Registering a second plugin under the same name replaces the first.
func RegisterPlugin(p Plugin) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[strings.ToLower(p.Name())] = p
}

// ListPlugins returns every registered plugin sorted by name.
func ListPlugins() []Plugin {
	registryMu.RLock()
	plugins := make([]Plugin, 0, len(registry))
	for _, p := range registry {
		plugins = append(plugins, p)
	}
	registryMu.RUnlock()
	sort.Slice(plugins, func(i, j int) bool { return plugins[i].Name() < plugins[j].Name() })
	return plugins
}

// GetPlugin looks a plugin up by name, ignoring case.
func GetPlugin(name string) (Plugin, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	p, ok := registry[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrUnknownModule, name)
	}
	return p, nil
}

// OptionString reads a string option, falling back to def.
func OptionString(options map[string]interface{}, name, def string) string {
	if v, ok := options[name].(string); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return def
}

// OptionInt accepts ints and numeric strings, as set from the shell.
func OptionInt(options map[string]interface{}, name string, def int) int {
	switch v := options[name].(type) {
	case int:
		return v
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return def
}

// OptionList splits a comma-separated option.
func OptionList(options map[string]interface{}, name string) []string {
	var out []string
	switch v := options[name].(type) {
	case []string:
		return v
	case string:
		for _, item := range strings.Split(v, ",") {
			if item = strings.TrimSpace(item); item != "" {
				out = append(out, item)
			}
		}
	}
	return out
}

// OptionDuration parses a duration option such as "3s".
func OptionDuration(options map[string]interface{}, name string, def time.Duration) time.Duration {
	switch v := options[name].(type) {
	case time.Duration:
		return v
	case string:
		if d, err := time.ParseDuration(strings.TrimSpace(v)); err == nil {
			return d
		}
	}
	return def
}
