package main

import (
	"bytes"
	"io"
	"strings"
	"testing"
	"time"

	"tickerwatch/config"
	"tickerwatch/internal/types"
)

func TestRootCmdWithoutArgsPrintsUsage(t *testing.T) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.Contains(out.String(), types.SpecFormat) {
		t.Fatalf("usage should describe the argument format, got %q", out.String())
	}
}

func TestRootCmdRejectsMalformedArgs(t *testing.T) {
	tests := []string{"GME,,+", "GME,140", "GME,140,x"}

	for _, arg := range tests {
		t.Run(arg, func(t *testing.T) {
			cmd := newRootCmd()
			cmd.SetOut(io.Discard)
			cmd.SetErr(io.Discard)
			cmd.SetArgs([]string{"PLTR,40,-", arg})

			err := cmd.Execute()
			if err == nil {
				t.Fatalf("expected validation error for %q", arg)
			}
			if !strings.Contains(err.Error(), types.SpecFormat) {
				t.Fatalf("error should describe the expected format, got %v", err)
			}
		})
	}
}

func TestRootCmdFlagsOverrideConfig(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{"--delay=2s", "--repeat=false"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if got := config.GetDuration("inter_ticker_delay"); got != 2*time.Second {
		t.Fatalf("expected --delay to reach config, got %v", got)
	}
	if config.GetBool("repeat_alerts") {
		t.Fatal("expected --repeat=false to reach config")
	}
}
