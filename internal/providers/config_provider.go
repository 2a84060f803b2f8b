package providers

import (
	"dashd/internal/structures"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

func NewConfigProvider(flags *structures.CliFlags) (*structures.Config, error) {
	var conf structures.Config

	filename := filepath.Base(flags.ConfigPath)
	viper.AddConfigPath(filepath.Dir(flags.ConfigPath))
	viper.SetConfigName(strings.TrimSuffix(filename, filepath.Ext(filename)))
	viper.SetConfigType("yaml")

	viper.BindEnv("logger.level", "DASHD_LOG_LEVEL")
	viper.BindEnv("upstream.baseUrl", "DASHD_UPSTREAM_URL")
	viper.BindEnv("docStore.baseUrl", "DASHD_DOCSTORE_URL")
	viper.BindEnv("snapshot.dir", "DASHD_SNAPSHOT_DIR")
	viper.BindEnv("downloads.dir", "DASHD_DOWNLOADS_DIR")
	viper.BindEnv("cache.enabled", "DASHD_CACHE_ENABLED")
	viper.BindEnv("cache.size", "DASHD_CACHE_SIZE")

	err := viper.ReadInConfig()
	if err != nil {
		return nil, err
	}

	err = viper.Unmarshal(&conf)
	if err != nil {
		return nil, fmt.Errorf("unable to decode into config struct: %w", err)
	}

	cnfValidator := NewCnfValidator(&conf)
	err = cnfValidator.Validate()
	if err != nil {
		return nil, err
	}

	conf.AppName = "DashboardSyncDaemon"
	conf.Path = flags.ConfigPath
	conf.Debug = flags.DebugMode

	return &conf, nil
}
