package speech

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"tickerwatch/internal/alert"
)

// Player plays an audio file and returns once playback has finished.
type Player interface {
	Play(ctx context.Context, path string) error
}

// CommandPlayer plays files with an external program such as mpg123 or
// afplay. The file path is appended as the last argument.
type CommandPlayer struct {
	Command []string
}

func NewCommandPlayer(command string) *CommandPlayer {
	return &CommandPlayer{Command: strings.Fields(command)}
}

func (p *CommandPlayer) Play(ctx context.Context, path string) error {
	if len(p.Command) == 0 {
		return errors.New("no audio player command configured")
	}
	args := append(append([]string(nil), p.Command[1:]...), path)
	out, err := exec.CommandContext(ctx, p.Command[0], args...).CombinedOutput()
	if err != nil {
		return errors.Wrapf(err, "%s %s: %s", p.Command[0], path, strings.TrimSpace(string(out)))
	}
	return nil
}

// Config configures an Announcer.
type Config struct {
	TTSURL     string
	Lang       string
	ScratchDir string
	// TonePath is played before the spoken announcement. Empty skips it.
	TonePath string
	Pause    time.Duration
	Timeout  time.Duration
}

// Announcer speaks announcements: it synthesizes the text into the scratch
// dir, plays the alert tone, pauses, then plays the speech.
type Announcer struct {
	client *resty.Client
	player Player
	cfg    Config
}

func NewAnnouncer(cfg Config, player Player) *Announcer {
	if cfg.Lang == "" {
		cfg.Lang = "en"
	}
	client := resty.New()
	client.SetHeader("User-Agent", "Mozilla/5.0")
	if cfg.Timeout > 0 {
		client.SetTimeout(cfg.Timeout)
	}

	return &Announcer{client: client, player: player, cfg: cfg}
}

func (a *Announcer) Alert(ctx context.Context, an alert.Announcement) error {
	speechPath := filepath.Join(a.cfg.ScratchDir, fileSafe(an.Ticker)+"_alert.mp3")
	if err := a.Synthesize(ctx, an.Text, speechPath); err != nil {
		return err
	}

	if a.cfg.TonePath != "" {
		if err := a.player.Play(ctx, a.cfg.TonePath); err != nil {
			return errors.Wrap(err, "could not play alert tone")
		}
	}

	if err := alert.Sleep(ctx, a.cfg.Pause); err != nil {
		return err
	}

	if err := a.player.Play(ctx, speechPath); err != nil {
		return errors.Wrap(err, "could not play announcement")
	}
	return nil
}

// Synthesize downloads spoken audio for text and writes it to path.
func (a *Announcer) Synthesize(ctx context.Context, text, path string) error {
	resp, err := a.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"ie":     "UTF-8",
			"client": "tw-ob",
			"tl":     a.cfg.Lang,
			"q":      text,
		}).
		Get(a.cfg.TTSURL)
	if err != nil {
		return errors.Wrap(err, "could not synthesize speech")
	}
	if !resp.IsSuccess() {
		return errors.Errorf("speech service returned status %d", resp.StatusCode())
	}
	if len(resp.Body()) == 0 {
		return errors.New("speech service returned no audio")
	}

	if err := os.WriteFile(path, resp.Body(), 0o644); err != nil {
		return errors.Wrapf(err, "could not save speech to %s", path)
	}
	log.Debugf("synthesized %q to %s", text, path)
	return nil
}

func fileSafe(name string) string {
	return strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == os.PathSeparator {
			return '_'
		}
		return r
	}, name)
}
