package tools

import (
	"context"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/jmylchreest/kubetree/internal/failure"
	"github.com/jmylchreest/kubetree/internal/platform"
)

// DefaultNamespace names the dot directory under the user's home that holds
// installed tools.
const DefaultNamespace = "kubetree"

// Override replaces parts of a built-in tool definition.
type Override struct {
	Version string
	URL     string
}

// Config holds tool configuration.
type Config struct {
	// Namespace is the dot directory name, "kubetree" gives ~/.kubetree.
	Namespace string

	// DisabledTools lists tools that are never installed or put on PATH.
	// "all" disables every tool.
	DisabledTools []string

	// Overrides pins a different version or artifact URL per tool.
	Overrides map[string]Override
}

// Builder provides a fluent interface for constructing a Manager with configuration.
type Builder struct {
	config   Config
	resolver *platform.Resolver
	extra    []Tool
	logger   hclog.Logger
	useEnv   bool
	getenv   func(string) string
}

// NewBuilder creates a new Manager builder with default settings.
func NewBuilder(resolver *platform.Resolver) *Builder {
	return &Builder{
		resolver: resolver,
		logger:   hclog.NewNullLogger(),
		getenv:   os.Getenv,
	}
}

// WithConfig sets the configuration for the manager.
func (b *Builder) WithConfig(config Config) *Builder {
	b.config = config
	return b
}

// WithEnvConfig loads configuration from environment variables.
// Reads KUBETREE_DISABLED_TOOLS and KUBETREE_NAMESPACE.
func (b *Builder) WithEnvConfig() *Builder {
	b.useEnv = true
	return b
}

// WithTool registers an extra tool, or replaces a built-in one of the same name.
func (b *Builder) WithTool(tool Tool) *Builder {
	b.extra = append(b.extra, tool)
	return b
}

// WithLogger sets the logger.
func (b *Builder) WithLogger(logger hclog.Logger) *Builder {
	b.logger = logger
	return b
}

// Build constructs the Manager with the configured settings.
// Environment variables override the file configuration.
func (b *Builder) Build() *Manager {
	config := b.config

	if b.useEnv {
		if disabled := b.getenv("KUBETREE_DISABLED_TOOLS"); disabled != "" {
			config.DisabledTools = parseToolList(disabled)
		}
		if ns := b.getenv("KUBETREE_NAMESPACE"); ns != "" {
			config.Namespace = ns
		}
	}
	if config.Namespace == "" {
		config.Namespace = DefaultNamespace
	}

	registry := maps.Clone(toolDefinitions)
	for _, t := range b.extra {
		registry[t.Name] = t
	}
	for name, o := range config.Overrides {
		t, ok := registry[name]
		if !ok {
			b.logger.Warn("override for unknown tool ignored", "tool", name)
			continue
		}
		if o.Version != "" {
			t.Version = o.Version
		}
		if o.URL != "" {
			t.URLTemplate = o.URL
		}
		registry[name] = t
	}

	return &Manager{
		config:   config,
		registry: registry,
		resolver: b.resolver,
		logger:   b.logger.Named("tools"),
	}
}

// Manager owns the tool registry and the on-disk install layout.
type Manager struct {
	config   Config
	registry map[string]Tool
	resolver *platform.Resolver
	logger   hclog.Logger
}

// Resolver returns the platform resolver the layout is computed with.
func (m *Manager) Resolver() *platform.Resolver {
	return m.resolver
}

// Namespace returns the dot directory name.
func (m *Manager) Namespace() string {
	return m.config.Namespace
}

// Get retrieves a tool by name, enabled or not.
func (m *Manager) Get(name string) (Tool, bool) {
	t, ok := m.registry[name]
	return t, ok
}

// IsEnabled checks if a tool is registered and not disabled.
func (m *Manager) IsEnabled(name string) bool {
	if _, ok := m.registry[name]; !ok {
		return false
	}
	for _, disabled := range m.config.DisabledTools {
		if disabled == "all" || disabled == name {
			return false
		}
	}
	return true
}

// All returns every registered tool sorted by name.
func (m *Manager) All() []Tool {
	names := slices.Sorted(maps.Keys(m.registry))
	out := make([]Tool, 0, len(names))
	for _, name := range names {
		out = append(out, m.registry[name])
	}
	return out
}

// Enabled returns the enabled tools sorted by name.
func (m *Manager) Enabled() []Tool {
	var out []Tool
	for _, t := range m.All() {
		if m.IsEnabled(t.Name) {
			out = append(out, t)
		}
	}
	return out
}

// SetDisabled adds a tool to the disabled list.
func (m *Manager) SetDisabled(name string) {
	if slices.Contains(m.config.DisabledTools, name) {
		return
	}
	m.config.DisabledTools = append(m.config.DisabledTools, name)
}

// SetEnabled removes a tool from the disabled list.
func (m *Manager) SetEnabled(name string) {
	m.config.DisabledTools = slices.DeleteFunc(m.config.DisabledTools, func(s string) bool {
		return s == name
	})
}

// GetConfig returns the current configuration.
func (m *Manager) GetConfig() Config {
	return m.config
}

// Root returns <home>/.<namespace>/tools.
func (m *Manager) Root(ctx context.Context) (string, error) {
	home, err := m.resolver.Home(ctx)
	if err != nil {
		return "", err
	}
	return m.root(home)
}

func (m *Manager) root(home string) (string, error) {
	if home == "" {
		return "", failure.New(failure.KindConfigUnavailable, "home directory not set")
	}
	return m.resolver.Join(home, "."+m.config.Namespace+"/tools"), nil
}

// Directory returns the install directory for a tool. It does not create it.
func (m *Manager) Directory(ctx context.Context, name string) (string, error) {
	root, err := m.Root(ctx)
	if err != nil {
		return "", err
	}
	return m.resolver.Join(root, name), nil
}

// Directories returns the install directory of every enabled tool, resolving
// the home directory once. Nothing is returned when home is unknown.
func (m *Manager) Directories(ctx context.Context) []string {
	home, err := m.resolver.Home(ctx)
	if err != nil {
		m.logger.Debug("no tool directories", "error", err)
		return nil
	}
	return m.DirectoriesFor(home)
}

// DirectoriesFor is Directories for an already resolved home directory.
func (m *Manager) DirectoriesFor(home string) []string {
	root, err := m.root(home)
	if err != nil {
		m.logger.Debug("no tool directories", "error", err)
		return nil
	}
	var dirs []string
	for _, t := range m.Enabled() {
		dirs = append(dirs, m.resolver.Join(root, t.Name))
	}
	return dirs
}

// BinaryPath returns the expected path of a tool's executable.
func (m *Manager) BinaryPath(ctx context.Context, name string) (string, error) {
	t, ok := m.Get(name)
	if !ok {
		t = Tool{Name: name}
	}
	dir, err := m.Directory(ctx, name)
	if err != nil {
		return "", err
	}
	return m.resolver.Join(dir, t.ExecutableName(m.resolver.IsWindows())), nil
}

// parseToolList parses a comma-separated list of tool names.
func parseToolList(s string) []string {
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
