package config

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type AppConfig struct {
	App struct {
		Name string `mapstructure:"NAME"`
		Port string `mapstructure:"PORT"`
	}

	DATABASE struct {
		Postgres struct {
			DSN string `mapstructure:"URL"`
		}
		Redis struct {
			Addr     string `mapstructure:"ADDR"`
			Password string `mapstructure:"PASSWORD"`
		}
		Mongo struct {
			Url string `mapstructure:"URL"`
		}
	}

	CHAT struct {
		// HistoryLimit bounds the initial replay delivered to a joining
		// session. Trades complete history for fast room join.
		HistoryLimit int `mapstructure:"HISTORY_LIMIT"`
		FeedShards   int `mapstructure:"FEED_SHARDS"`
		FeedBuffer   int `mapstructure:"FEED_BUFFER"`
	}
}

var Conf *AppConfig

func LoadConfig() error {
	viper.SetConfigName("application")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")

	viper.SetEnvPrefix("TAZERCHAT")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	viper.SetDefault("APP.PORT", ":8080")
	viper.SetDefault("CHAT.HISTORY_LIMIT", 50)
	viper.SetDefault("CHAT.FEED_SHARDS", 8)
	viper.SetDefault("CHAT.FEED_BUFFER", 256)

	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}

	var config AppConfig
	if err := viper.Unmarshal(&config); err != nil {
		return fmt.Errorf("error unmarshalling config: %w", err)
	}

	Conf = &config
	log.Info().Msg("configuration loaded...")
	return nil
}
