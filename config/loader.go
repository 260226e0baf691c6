package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// FileSystem abstracts the file checks the loader performs.
type FileSystem interface {
	Exists(path string) bool
	LoadEnv(path string) error
}

// RealFileSystem implements FileSystem on the OS.
type RealFileSystem struct{}

func (RealFileSystem) Exists(path string) bool {
	st, err := os.Stat(path)
	return err == nil && !st.IsDir()
}

func (RealFileSystem) LoadEnv(path string) error {
	return godotenv.Load(path)
}

// LoaderConfig holds the loader's dependencies and overrides.
type LoaderConfig struct {
	FileSystem FileSystem
	ConfigFile string
	EnvFile    string
	// EnvPrefix selects which environment variables override file values.
	// Defaults to the upper-cased service name, e.g. COURIER_CLIENT_WORKERS.
	EnvPrefix string
	Defaults  map[string]any
}

// LoaderOption is a functional option for LoadConfig.
type LoaderOption func(*LoaderConfig)

// WithFileSystem sets a custom filesystem for the loader.
func WithFileSystem(fs FileSystem) LoaderOption {
	return func(lc *LoaderConfig) { lc.FileSystem = fs }
}

// WithConfigFile sets an explicit config file path. A missing explicit file is an error.
func WithConfigFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.ConfigFile = path }
}

// WithEnvFile sets an explicit .env file path.
func WithEnvFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.EnvFile = path }
}

// WithEnvPrefix overrides the environment variable prefix.
func WithEnvPrefix(prefix string) LoaderOption {
	return func(lc *LoaderConfig) { lc.EnvPrefix = prefix }
}

// WithDefault registers a default for a dotted key, e.g. "client.workers".
func WithDefault(key string, value any) LoaderOption {
	return func(lc *LoaderConfig) {
		if lc.Defaults == nil {
			lc.Defaults = make(map[string]any)
		}
		lc.Defaults[key] = value
	}
}

// LoadConfig reads the YAML config file, applies the .env file and prefixed
// environment overrides, and unmarshals the result into cfg.
//
// Without explicit paths it looks for <service>.yml, config.yml and
// config/config.yml in the working directory, and .env.<service> or .env.
func LoadConfig(serviceName string, cfg any, opts ...LoaderOption) error {
	lc := LoaderConfig{FileSystem: RealFileSystem{}}
	for _, opt := range opts {
		opt(&lc)
	}
	if lc.EnvPrefix == "" {
		lc.EnvPrefix = envPrefix(serviceName)
	}

	files, err := resolveFiles(serviceName, lc)
	if err != nil {
		return err
	}

	v := viper.New()
	for k, val := range lc.Defaults {
		v.SetDefault(k, val)
	}

	if files.ConfigFile != "" {
		v.SetConfigFile(files.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config file %s: %w", files.ConfigFile, err)
		}
	}

	if files.EnvFile != "" {
		if err := lc.FileSystem.LoadEnv(files.EnvFile); err != nil {
			return fmt.Errorf("load env file %s: %w", files.EnvFile, err)
		}
	}
	bindPrefixedEnv(v, lc.EnvPrefix)

	if err := v.Unmarshal(cfg); err != nil {
		return fmt.Errorf("unmarshal config for %s: %w", serviceName, err)
	}
	return nil
}

// ResolvedFiles contains the config and env file paths in use.
type ResolvedFiles struct {
	ConfigFile string
	EnvFile    string
}

func resolveFiles(serviceName string, lc LoaderConfig) (ResolvedFiles, error) {
	var files ResolvedFiles

	if lc.ConfigFile != "" {
		if !lc.FileSystem.Exists(lc.ConfigFile) {
			return files, fmt.Errorf("config file %s not found", lc.ConfigFile)
		}
		files.ConfigFile = lc.ConfigFile
	} else {
		files.ConfigFile = firstExisting(lc.FileSystem,
			serviceName+".yml",
			serviceName+".yaml",
			"config.yml",
			"config/config.yml",
		)
	}

	if lc.EnvFile != "" {
		if !lc.FileSystem.Exists(lc.EnvFile) {
			return files, fmt.Errorf("env file %s not found", lc.EnvFile)
		}
		files.EnvFile = lc.EnvFile
	} else {
		files.EnvFile = firstExisting(lc.FileSystem, ".env."+serviceName, ".env")
	}
	return files, nil
}

func firstExisting(fs FileSystem, paths ...string) string {
	for _, p := range paths {
		if fs.Exists(p) {
			return p
		}
	}
	return ""
}

func envPrefix(serviceName string) string {
	return strings.ToUpper(strings.ReplaceAll(serviceName, "-", "_"))
}

// bindPrefixedEnv sets every PREFIX_* environment variable under all the
// dotted keys it could stand for, since underscores are ambiguous between
// nesting and multi-word keys.
func bindPrefixedEnv(v *viper.Viper, prefix string) {
	p := prefix + "_"
	for _, env := range os.Environ() {
		key, value, ok := strings.Cut(env, "=")
		if !ok || !strings.HasPrefix(key, p) || len(key) == len(p) {
			continue
		}
		for _, variant := range envKeyVariants(key[len(p):]) {
			v.Set(variant, value)
		}
	}
}

// envKeyVariants expands CLIENT_BASE_URL into client_base_url,
// client.base.url, client.base_url and client_base.url.
func envKeyVariants(envKey string) []string {
	lower := strings.ToLower(envKey)
	parts := strings.Split(lower, "_")
	if len(parts) == 1 {
		return []string{lower}
	}

	seen := make(map[string]bool)
	var variants []string
	add := func(s string) {
		if !seen[s] {
			seen[s] = true
			variants = append(variants, s)
		}
	}

	add(lower)
	add(strings.Join(parts, "."))
	for i := 1; i < len(parts); i++ {
		add(strings.Join(parts[:i], ".") + "." + strings.Join(parts[i:], "_"))
		add(strings.Join(parts[:i], "_") + "." + strings.Join(parts[i:], "."))
	}
	return variants
}
