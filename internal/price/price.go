package price

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

const (
	extendedMarketPrefix = `<span class="C($primaryColor) Fz(24px) Fw(b)" data-reactid="37">`
	regularMarketPrefix  = `<span class="Trsdu(0.3s) Fw(b) Fz(36px) Mb(-4px) D(ib)" data-reactid="32">`
	htmlSuffix           = `</span>`
)

// ErrMalformedDocument means a price marker was found but the text after it
// could not be turned into a price. Usually the quote page layout changed.
var ErrMalformedDocument = errors.New("malformed quote document")

// Session tells which part of the page a price came from.
type Session int

const (
	SessionNone Session = iota
	SessionRegular
	SessionExtended
)

func (s Session) String() string {
	switch s {
	case SessionRegular:
		return "regular"
	case SessionExtended:
		return "extended"
	}
	return "none"
}

// Quote is the price read from one quote page.
type Quote struct {
	Value   float64
	Session Session
}

// Found reports whether any price marker matched.
func (q Quote) Found() bool {
	return q.Session != SessionNone
}

// Extractor finds the displayed price in a quote page.
type Extractor struct {
	ExtendedMarker string
	RegularMarker  string
	Closing        string
}

// DefaultExtractor returns an extractor for the quote page markup.
func DefaultExtractor() *Extractor {
	return &Extractor{
		ExtendedMarker: extendedMarketPrefix,
		RegularMarker:  regularMarketPrefix,
		Closing:        htmlSuffix,
	}
}

// WithOverrides returns a copy of e with every non-empty argument replacing
// the matching marker.
func (e *Extractor) WithOverrides(extended, regular, closing string) *Extractor {
	c := *e
	if extended != "" {
		c.ExtendedMarker = extended
	}
	if regular != "" {
		c.RegularMarker = regular
	}
	if closing != "" {
		c.Closing = closing
	}
	return &c
}

// Extract scans lines in order. An extended-hours price wins outright and
// stops the scan; a regular price is kept but may still be overridden by a
// later extended-hours line. With no marker at all the quote is zero with
// SessionNone.
func (e *Extractor) Extract(lines []string) (Quote, error) {
	quote := Quote{}
	for i, line := range lines {
		if strings.Contains(line, e.ExtendedMarker) {
			value, err := e.priceAfter(line, e.ExtendedMarker)
			if err != nil {
				return Quote{}, errors.Wrapf(err, "extended price on line %d", i+1)
			}
			return Quote{Value: value, Session: SessionExtended}, nil
		}
		if strings.Contains(line, e.RegularMarker) {
			value, err := e.priceAfter(line, e.RegularMarker)
			if err != nil {
				return Quote{}, errors.Wrapf(err, "regular price on line %d", i+1)
			}
			quote = Quote{Value: value, Session: SessionRegular}
		}
	}
	return quote, nil
}

// ExtractFromBody splits a document body into lines and extracts from them.
func (e *Extractor) ExtractFromBody(body string) (Quote, error) {
	body = strings.ReplaceAll(body, "\r\n", "\n")
	return e.Extract(strings.Split(body, "\n"))
}

func (e *Extractor) priceAfter(line, marker string) (float64, error) {
	start := strings.Index(line, marker) + len(marker)
	end := strings.Index(line[start:], e.Closing)
	if end < 0 {
		return 0, errors.Wrapf(ErrMalformedDocument, "no %q after price marker", e.Closing)
	}

	raw := strings.ReplaceAll(strings.TrimSpace(line[start:start+end]), ",", "")
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, errors.Wrapf(ErrMalformedDocument, "price text %q is not a number", raw)
	}
	return value, nil
}
