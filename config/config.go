package config

import (
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var once sync.Once

func InitConfig() {
	once.Do(func() {
		if err := godotenv.Load(); err == nil {
			log.Debug("loaded environment from .env")
		}

		viper.AutomaticEnv()

		viper.BindEnv("quote_base_url", "QUOTE_BASE_URL")
		viper.BindEnv("inter_ticker_delay", "INTER_TICKER_DELAY")
		viper.BindEnv("repeat_alerts", "REPEAT_ALERTS")
		viper.BindEnv("scratch_dir", "SCRATCH_DIR")
		viper.BindEnv("alert_sound_path", "ALERT_SOUND_PATH")
		viper.BindEnv("alert_pause", "ALERT_PAUSE")
		viper.BindEnv("tts_url", "TTS_URL")
		viper.BindEnv("player_command", "PLAYER_COMMAND")
		viper.BindEnv("http_timeout", "HTTP_TIMEOUT")
		viper.BindEnv("http_retries", "HTTP_RETRIES")
		viper.BindEnv("metrics_port", "METRICS_PORT")
		viper.BindEnv("db_path", "DB_PATH")
		viper.BindEnv("telegram_bot_token", "TELEGRAM_BOT_TOKEN")
		viper.BindEnv("telegram_chat_id", "TELEGRAM_CHAT_ID")
		viper.BindEnv("extended_marker", "EXTENDED_MARKER")
		viper.BindEnv("regular_marker", "REGULAR_MARKER")
		viper.BindEnv("closing_marker", "CLOSING_MARKER")
		viper.BindEnv("debug", "DEBUG")
		viper.BindEnv("speech_lang", "SPEECH_LANG")

		viper.SetDefault("quote_base_url", "https://au.finance.yahoo.com/quote")
		viper.SetDefault("inter_ticker_delay", 5*time.Second)
		viper.SetDefault("repeat_alerts", true)
		viper.SetDefault("scratch_dir", "temp")
		viper.SetDefault("alert_sound_path", "alert.mp3")
		viper.SetDefault("alert_pause", time.Second)
		viper.SetDefault("tts_url", "https://translate.google.com/translate_tts")
		viper.SetDefault("player_command", "mpg123 -q")
		viper.SetDefault("http_timeout", 30*time.Second)
		viper.SetDefault("http_retries", 2)
		viper.SetDefault("metrics_port", 0)
		viper.SetDefault("db_path", "")
		viper.SetDefault("debug", false)
		viper.SetDefault("speech_lang", "en")
	})
}

// LoadFile merges a config file (yaml, toml, json) over the defaults.
func LoadFile(path string) error {
	InitConfig()
	if path == "" {
		return nil
	}
	viper.SetConfigFile(path)
	if err := viper.MergeInConfig(); err != nil {
		return errors.Wrapf(err, "could not read config file %s", path)
	}
	log.Debugf("config file %s loaded", path)
	return nil
}

// BindFlag lets a command line flag take precedence over env and file values.
func BindFlag(key string, flag *pflag.Flag) error {
	InitConfig()
	return errors.Wrapf(viper.BindPFlag(key, flag), "could not bind flag %s", key)
}

func GetString(key string) string {
	InitConfig()
	return viper.GetString(key)
}

func GetInt(key string) int {
	InitConfig()
	return viper.GetInt(key)
}

func GetInt64(key string) int64 {
	InitConfig()
	return viper.GetInt64(key)
}

func GetBool(key string) bool {
	InitConfig()
	return viper.GetBool(key)
}

func GetDuration(key string) time.Duration {
	InitConfig()
	return viper.GetDuration(key)
}
