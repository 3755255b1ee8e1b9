package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/docsmap/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	configFileExt  = "config.yaml"

	envPrefix = "DOCSMAP"
)

// Config keys.
const (
	cfgKeySourceDir       = "source_dir"
	cfgKeyPublicPath      = "public_path"
	cfgKeyDocsPatterns    = "docs_patterns"
	cfgKeyExcludePatterns = "exclude_patterns"
	cfgKeyDocsMapEnable   = "docs_map.enable"
	cfgKeyDocsMapOutput   = "docs_map.output"
	cfgKeyHistoryEnable   = "history.enable"
	cfgKeyHistoryDataDir  = "history.data_dir"
	cfgKeyLogLevel        = "log_level"
)

// loadConfig reads config.yaml from configDir with Viper, applying defaults
// and DOCSMAP_* environment overrides. A missing config.yaml is not an error.
func loadConfig(configDir string) (types.Config, error) {
	def := types.DefaultConfig()

	v := viper.New()
	v.SetDefault(cfgKeySourceDir, def.SourceDir)
	v.SetDefault(cfgKeyPublicPath, def.PublicPath)
	v.SetDefault(cfgKeyDocsPatterns, def.DocsPatterns)
	v.SetDefault(cfgKeyExcludePatterns, []string{})
	v.SetDefault(cfgKeyDocsMapEnable, def.DocsMap.Enable)
	v.SetDefault(cfgKeyDocsMapOutput, def.DocsMap.Output)
	v.SetDefault(cfgKeyHistoryEnable, def.History.Enable)
	v.SetDefault(cfgKeyHistoryDataDir, "")
	v.SetDefault(cfgKeyLogLevel, def.LogLevel)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return types.Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg types.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return types.Config{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// writeConfigIfMissing writes cfg to config.yaml in configDir unless the file
// exists. It reports whether a file was written.
func writeConfigIfMissing(configDir string, cfg types.Config) (bool, error) {
	path := filepath.Join(configDir, configFileExt)
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, fmt.Errorf("stat config file: %w", err)
	}

	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return false, fmt.Errorf("create config directory: %w", err)
	}

	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return false, fmt.Errorf("marshal config: %w", err)
	}
	header := "# docsmap configuration\n"
	return true, os.WriteFile(path, append([]byte(header), data...), 0o644)
}
