package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/leonelquinteros/gotext"
	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"tickerwatch/config"
	"tickerwatch/internal/alert"
	"tickerwatch/internal/database"
	"tickerwatch/internal/metrics"
	"tickerwatch/internal/price"
	"tickerwatch/internal/speech"
	"tickerwatch/internal/telegram"
	"tickerwatch/internal/types"
)

func init() {
	config.InitConfig()
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configFile string

	cmd := &cobra.Command{
		Use:   "tickerwatch TICKER,ALERT_PRICE,DIRECTION ...",
		Short: "Speak an alert when a ticker crosses a price",
		Long: `tickerwatch polls the quote page of every given ticker and announces,
out loud, when the price rises to or above (+) or falls to or below (-)
the alert price.

` + types.SpecFormat,
		Example:      "  tickerwatch GME,140.52,+ PLTR,39.50,-",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.LoadFile(configFile); err != nil {
				return err
			}
			setupLogging()
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), usageMessage())
				return nil
			}

			entries, err := types.ParseWatchList(args)
			if err != nil {
				return errors.Errorf("%v\n%s", err, usageMessage())
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, entries)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&configFile, "config", "", "Configuration file path")
	flags.Bool("repeat", true, "Keep alerting on every cycle while a threshold stays breached")
	flags.Duration("delay", alert.DefaultDelay, "Pause after each ticker")
	flags.String("scratch-dir", "temp", "Directory for generated speech, recreated every cycle")
	flags.Bool("debug", false, "Enable debug logging")

	for key, name := range map[string]string{
		"repeat_alerts":      "repeat",
		"inter_ticker_delay": "delay",
		"scratch_dir":        "scratch-dir",
		"debug":              "debug",
	} {
		if err := config.BindFlag(key, flags.Lookup(name)); err != nil {
			log.Errorf("Failed to bind --%s: %v", name, err)
		}
	}

	return cmd
}

func usageMessage() string {
	return strings.Join([]string{
		"Incorrect script args. " + types.SpecFormat,
		"Separate ticker arguments with a space.",
		"Example terminal command: tickerwatch GME,140.52,+ PLTR,39.50,-",
	}, "\n")
}

func setupLogging() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetLevel(log.InfoLevel)
	if config.GetBool("debug") {
		log.SetLevel(log.DebugLevel)
	}
	log.Debug("Starting ticker watcher...")
}

func run(ctx context.Context, entries []types.WatchEntry) error {
	gotext.Configure("locales", strings.ToLower(config.GetString("speech_lang")), "default")

	if dbPath := config.GetString("db_path"); dbPath != "" {
		store, err := database.Open(dbPath)
		if err != nil {
			return errors.Wrap(err, "failed to initialize database")
		}
		defer store.Close()

		if err := metrics.LoadFromStore(store); err != nil {
			log.Errorf("Failed to load metrics: %v", err)
		}
		stopSaver := startMetricsSaver(store)
		defer stopSaver()
	}

	if port := config.GetInt("metrics_port"); port > 0 {
		go func() {
			if err := metrics.Serve(ctx, port); err != nil {
				log.Errorf("Failed to start metrics and health server: %v", err)
			}
		}()
	}

	watcher := alert.NewWatcher(entries, newAlerter(), newFetcher(), alert.Options{
		RepeatAlerts: config.GetBool("repeat_alerts"),
		Delay:        config.GetDuration("inter_ticker_delay"),
		ScratchDir:   config.GetString("scratch_dir"),
		Extractor: price.DefaultExtractor().WithOverrides(
			config.GetString("extended_marker"),
			config.GetString("regular_marker"),
			config.GetString("closing_marker"),
		),
	})

	now := time.Now()
	cycle := config.GetDuration("inter_ticker_delay") * time.Duration(len(entries))
	log.Infof("Polling %d tickers, a full cycle takes at least %s (repeat alerts: %v)",
		len(entries), strings.TrimSpace(humanize.RelTime(now, now.Add(cycle), "", "")), config.GetBool("repeat_alerts"))

	err := watcher.Run(ctx)
	if errors.Is(err, context.Canceled) {
		log.Info("Shutdown signal received, stopping...")
		return nil
	}
	return err
}

func newFetcher() price.Fetcher {
	return price.NewQuoteFetcher(price.FetcherConfig{
		BaseURL: config.GetString("quote_base_url"),
		Timeout: config.GetDuration("http_timeout"),
		Retries: config.GetInt("http_retries"),
	})
}

func newAlerter() alert.Alerter {
	alerters := alert.MultiAlerter{
		speech.NewAnnouncer(speech.Config{
			TTSURL:     config.GetString("tts_url"),
			Lang:       config.GetString("speech_lang"),
			ScratchDir: config.GetString("scratch_dir"),
			TonePath:   config.GetString("alert_sound_path"),
			Pause:      config.GetDuration("alert_pause"),
			Timeout:    config.GetDuration("http_timeout"),
		}, speech.NewCommandPlayer(config.GetString("player_command"))),
	}

	token := config.GetString("telegram_bot_token")
	chatID := config.GetInt64("telegram_chat_id")
	if token == "" || chatID == 0 {
		return alerters
	}

	bot, err := telegram.NewBot(telegram.BotConfig{
		Token:  token,
		ChatID: chatID,
		Debug:  config.GetBool("debug"),
	})
	if err != nil {
		log.Errorf("Telegram alerts disabled: %v", err)
		return alerters
	}
	return append(alerters, bot)
}

func startMetricsSaver(store metrics.Store) func() {
	save := func() {
		if err := metrics.SaveToStore(store); err != nil {
			log.Errorf("Failed to save metrics: %v", err)
		}
	}

	c := cron.New()
	if _, err := c.AddFunc("@every 5m", save); err != nil {
		log.Errorf("Failed to schedule metrics saving: %v", err)
	}
	c.Start()

	return func() {
		<-c.Stop().Done()
		save()
	}
}
