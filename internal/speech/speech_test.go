package speech

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"

	"tickerwatch/internal/alert"
)

type recordingPlayer struct {
	played []string
	failOn string
}

func (p *recordingPlayer) Play(_ context.Context, path string) error {
	if path == p.failOn {
		return errors.New("device busy")
	}
	p.played = append(p.played, path)
	return nil
}

func ttsServer(t *testing.T, gotQuery *string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if gotQuery != nil {
			*gotQuery = r.URL.Query().Get("q") + "|" + r.URL.Query().Get("tl")
		}
		w.Header().Set("Content-Type", "audio/mpeg")
		w.Write([]byte("ID3fake-mp3"))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestAnnouncerPlaysToneThenSpeech(t *testing.T) {
	var query string
	srv := ttsServer(t, &query)
	scratch := t.TempDir()
	player := &recordingPlayer{}

	a := NewAnnouncer(Config{
		TTSURL:     srv.URL,
		Lang:       "en",
		ScratchDir: scratch,
		TonePath:   "alert.mp3",
	}, player)

	err := a.Alert(context.Background(), alert.Announcement{Ticker: "GME", Price: 145, Text: "GME is now $145"})
	if err != nil {
		t.Fatalf("Alert: %v", err)
	}

	if query != "GME is now $145|en" {
		t.Fatalf("unexpected tts query %q", query)
	}
	speechPath := filepath.Join(scratch, "GME_alert.mp3")
	if len(player.played) != 2 || player.played[0] != "alert.mp3" || player.played[1] != speechPath {
		t.Fatalf("unexpected playback order %v", player.played)
	}
	data, err := os.ReadFile(speechPath)
	if err != nil || string(data) != "ID3fake-mp3" {
		t.Fatalf("speech file not written: %v", err)
	}
}

func TestAnnouncerSkipsToneWhenUnset(t *testing.T) {
	srv := ttsServer(t, nil)
	player := &recordingPlayer{}
	a := NewAnnouncer(Config{TTSURL: srv.URL, ScratchDir: t.TempDir()}, player)

	if err := a.Alert(context.Background(), alert.Announcement{Ticker: "PLTR", Text: "PLTR is now $39"}); err != nil {
		t.Fatalf("Alert: %v", err)
	}
	if len(player.played) != 1 {
		t.Fatalf("expected only the speech to play, got %v", player.played)
	}
}

func TestAnnouncerPropagatesPlaybackError(t *testing.T) {
	srv := ttsServer(t, nil)
	player := &recordingPlayer{failOn: "alert.mp3"}
	a := NewAnnouncer(Config{TTSURL: srv.URL, ScratchDir: t.TempDir(), TonePath: "alert.mp3"}, player)

	if err := a.Alert(context.Background(), alert.Announcement{Ticker: "GME", Text: "x"}); err == nil {
		t.Fatal("expected playback error")
	}
}

func TestAnnouncerPropagatesSynthesisError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	player := &recordingPlayer{}
	a := NewAnnouncer(Config{TTSURL: srv.URL, ScratchDir: t.TempDir(), TonePath: "alert.mp3"}, player)

	if err := a.Alert(context.Background(), alert.Announcement{Ticker: "GME", Text: "x"}); err == nil {
		t.Fatal("expected synthesis error")
	}
	if len(player.played) != 0 {
		t.Fatalf("nothing should play when synthesis fails")
	}
}

func TestFileSafe(t *testing.T) {
	if got := fileSafe("BRK/B"); got != "BRK_B" {
		t.Fatalf("unexpected file name %q", got)
	}
}

func TestCommandPlayerWithoutCommand(t *testing.T) {
	if err := NewCommandPlayer("").Play(context.Background(), "x.mp3"); err == nil {
		t.Fatal("expected error with empty command")
	}
}

type cancellingPlayer struct {
	recordingPlayer
	cancel context.CancelFunc
}

func (p *cancellingPlayer) Play(ctx context.Context, path string) error {
	if err := p.recordingPlayer.Play(ctx, path); err != nil {
		return err
	}
	p.cancel()
	return nil
}

func TestAnnouncerPauseStopsOnCancel(t *testing.T) {
	srv := ttsServer(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	player := &cancellingPlayer{cancel: cancel}

	a := NewAnnouncer(Config{
		TTSURL:     srv.URL,
		ScratchDir: t.TempDir(),
		TonePath:   "alert.mp3",
		Pause:      time.Hour,
	}, player)

	err := a.Alert(ctx, alert.Announcement{Ticker: "GME", Text: "GME is now $145"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(player.played) != 1 || player.played[0] != "alert.mp3" {
		t.Fatalf("only the tone should play before cancellation, got %v", player.played)
	}
}
