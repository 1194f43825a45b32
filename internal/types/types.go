package types

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// SpecFormat describes the expected shape of a ticker argument.
const SpecFormat = "Format: '<TICKER>,<ALERT_PRICE>,<PRICE_DIRECTION>', where PRICE_DIRECTION is '+' or '-'."

var ErrInvalidSpec = errors.New("incorrect ticker argument")

// Direction is the side of the threshold that triggers an alert.
type Direction int

const (
	Rising Direction = iota + 1
	Falling
)

// ParseDirection accepts "+" for Rising and "-" for Falling.
func ParseDirection(symbol string) (Direction, error) {
	switch symbol {
	case "+":
		return Rising, nil
	case "-":
		return Falling, nil
	}
	return 0, errors.Wrapf(ErrInvalidSpec, "unknown price direction %q", symbol)
}

func (d Direction) Symbol() string {
	switch d {
	case Rising:
		return "+"
	case Falling:
		return "-"
	}
	return "?"
}

func (d Direction) String() string {
	switch d {
	case Rising:
		return "rising"
	case Falling:
		return "falling"
	}
	return "unknown"
}

// WatchEntry is a single alert rule. Fields are unexported so an entry can
// only be built through NewWatchEntry or ParseWatchEntry.
type WatchEntry struct {
	ticker    string
	threshold float64
	direction Direction
}

func NewWatchEntry(ticker string, threshold float64, direction Direction) (WatchEntry, error) {
	ticker = strings.TrimSpace(ticker)
	if ticker == "" {
		return WatchEntry{}, errors.Wrap(ErrInvalidSpec, "ticker is empty")
	}
	if math.IsNaN(threshold) || math.IsInf(threshold, 0) {
		return WatchEntry{}, errors.Wrapf(ErrInvalidSpec, "alert price for %s is not a finite number", ticker)
	}
	if direction != Rising && direction != Falling {
		return WatchEntry{}, errors.Wrapf(ErrInvalidSpec, "unknown price direction for %s", ticker)
	}
	return WatchEntry{ticker: ticker, threshold: threshold, direction: direction}, nil
}

// ParseWatchEntry parses a "TICKER,ALERT_PRICE,DIRECTION" argument.
func ParseWatchEntry(arg string) (WatchEntry, error) {
	values := strings.Split(arg, ",")
	if len(values) != 3 {
		return WatchEntry{}, errors.Wrapf(ErrInvalidSpec, "%q has %d fields, expected 3", arg, len(values))
	}
	for i := range values {
		values[i] = strings.TrimSpace(values[i])
		if values[i] == "" {
			return WatchEntry{}, errors.Wrapf(ErrInvalidSpec, "%q has an empty field", arg)
		}
	}

	threshold, err := strconv.ParseFloat(values[1], 64)
	if err != nil {
		return WatchEntry{}, errors.Wrapf(ErrInvalidSpec, "alert price %q is not a number", values[1])
	}
	direction, err := ParseDirection(values[2])
	if err != nil {
		return WatchEntry{}, err
	}
	return NewWatchEntry(values[0], threshold, direction)
}

// ParseWatchList parses every argument, failing on the first bad one.
func ParseWatchList(args []string) ([]WatchEntry, error) {
	entries := make([]WatchEntry, 0, len(args))
	for _, arg := range args {
		entry, err := ParseWatchEntry(arg)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (e WatchEntry) Ticker() string { return e.ticker }
func (e WatchEntry) Threshold() float64 { return e.threshold }
func (e WatchEntry) Direction() Direction { return e.direction }

// Breached reports whether price sits on the alerting side of the threshold.
// Both comparisons are inclusive.
func (e WatchEntry) Breached(price float64) bool {
	return (e.direction == Rising && price >= e.threshold) ||
		(e.direction == Falling && price <= e.threshold)
}

func (e WatchEntry) String() string {
	return fmt.Sprintf("%s,%s,%s", e.ticker, strconv.FormatFloat(e.threshold, 'f', -1, 64), e.direction.Symbol())
}
