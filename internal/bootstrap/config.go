package bootstrap

import (
	"github.com/spf13/viper"
)

type Config struct {
	ServerPort     string  `mapstructure:"SERVER_PORT"`
	EnginePath     string  `mapstructure:"ENGINE_PATH"`
	EngineArgs     string  `mapstructure:"ENGINE_ARGS"`
	BotProfile     string  `mapstructure:"BOT_PROFILE"` // команды движку через ';'
	BotColor       string  `mapstructure:"BOT_COLOR"`   // "B", "W" или "" (без бота)
	StagingDir     string  `mapstructure:"STAGING_DIR"`
	BoardSize      int     `mapstructure:"BOARD_SIZE"`
	Komi           float64 `mapstructure:"KOMI"`
	Rules          string  `mapstructure:"RULES"`
	RedisUrl       string  `mapstructure:"REDIS_URL"`
	MongoUri       string  `mapstructure:"MONGO_URI"`
	IsLocalCors    bool    `mapstructure:"LOCAL_CORS"`
	PageLimitGames int     `mapstructure:"PAGE_LIMIT_GAMES"`
}

func Setup(cfgPath string) (*Config, error) {
	viper.SetConfigFile(cfgPath)

	viper.SetDefault("SERVER_PORT", ":8080")
	viper.SetDefault("BOARD_SIZE", 19)
	viper.SetDefault("KOMI", 6.5)
	viper.SetDefault("RULES", "chinese")
	viper.SetDefault("STAGING_DIR", "/tmp")
	viper.SetDefault("PAGE_LIMIT_GAMES", 20)

	err := viper.ReadInConfig()
	if err != nil {
		return nil, err
	}

	var cfg Config

	err = viper.Unmarshal(&cfg)
	if err != nil {
		return nil, err
	}

	return &cfg, nil
}
