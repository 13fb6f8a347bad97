package ocr

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/ironsheep/parkscan/internal/geometry"
)

// Word is one recognized word with its box in image coordinates.
type Word struct {
	Text string `json:"text"`

	// Confidence is Tesseract's recognition confidence (0.0 to 1.0).
	Confidence float64 `json:"confidence"`

	Box geometry.Rectangle `json:"box"`
}

// TextZone is a restricted area found by reading painted text.
type TextZone struct {
	// Keyword is the configured phrase that matched.
	Keyword string `json:"keyword"`

	// Confidence is the lowest confidence among the matched words.
	Confidence float64 `json:"confidence"`

	// Rect is the matched word boxes grown by ZoneParams.Padding.
	Rect geometry.Rectangle `json:"rect"`
}

// ZoneParams configures zone matching.
type ZoneParams struct {
	// Language is the Tesseract language code. Default: "eng".
	Language string `json:"language"`

	// Keywords are the phrases that mark a restricted zone.
	Keywords []string `json:"keywords"`

	// MinConfidence drops uncertain words. Default: 0.6.
	MinConfidence float64 `json:"min_confidence"`

	// Padding grows each zone on every side, in pixels. Default: 10.
	Padding int `json:"padding"`
}

// DefaultKeywords are the phrases matched by default.
var DefaultKeywords = []string{
	"NO PARKING",
	"RESERVED",
	"FIRE LANE",
	"LOADING",
	"DISABLED",
	"TOW AWAY",
}

// DefaultZoneParams returns English matching of DefaultKeywords.
func DefaultZoneParams() ZoneParams {
	return ZoneParams{
		Language:      "eng",
		Keywords:      append([]string(nil), DefaultKeywords...),
		MinConfidence: 0.6,
		Padding:       10,
	}
}

// Validate checks parameter ranges.
func (p ZoneParams) Validate() error {
	if p.Language == "" {
		return fmt.Errorf("ocr language must not be empty")
	}
	if !(p.MinConfidence >= 0 && p.MinConfidence <= 1) {
		return fmt.Errorf("ocr min confidence must be in [0,1], got %v", p.MinConfidence)
	}
	if p.Padding < 0 {
		return fmt.Errorf("ocr padding must be >= 0, got %d", p.Padding)
	}
	for _, k := range p.Keywords {
		if len(tokens(k)) == 0 {
			return fmt.Errorf("ocr keyword %q has no letters or digits", k)
		}
	}
	return nil
}

// MatchZones returns one zone per keyword occurrence in words. words must
// be in reading order, as Tesseract returns them. Zones are clipped to a
// width x height image when both are positive.
func MatchZones(words []Word, p ZoneParams, width, height int) []TextZone {
	norm := make([]string, len(words))
	for i, w := range words {
		if w.Confidence >= p.MinConfidence {
			norm[i] = normalize(w.Text)
		}
	}

	var zones []TextZone
	for _, keyword := range p.Keywords {
		want := tokens(keyword)
		if len(want) == 0 {
			continue
		}
		for i := 0; i+len(want) <= len(words); i++ {
			if !matchAt(words, norm, i, want) {
				continue
			}
			zones = append(zones, buildZone(keyword, words[i:i+len(want)], p.Padding, width, height))
		}
	}
	return zones
}

// Rects returns the rectangles of zones.
func Rects(zones []TextZone) []geometry.Rectangle {
	if len(zones) == 0 {
		return nil
	}
	out := make([]geometry.Rectangle, len(zones))
	for i, z := range zones {
		out[i] = z.Rect
	}
	return out
}

func matchAt(words []Word, norm []string, i int, want []string) bool {
	for j, tok := range want {
		if norm[i+j] != tok {
			return false
		}
		if j > 0 && !sameLine(words[i+j-1].Box, words[i+j].Box) {
			return false
		}
	}
	return true
}

// sameLine reports whether b follows a on one text line: their vertical
// spans overlap and b does not start left of a.
func sameLine(a, b geometry.Rectangle) bool {
	return b.Y < a.Bottom() && a.Y < b.Bottom() && b.X >= a.X
}

func buildZone(keyword string, run []Word, pad, width, height int) TextZone {
	x0, y0 := run[0].Box.X, run[0].Box.Y
	x1, y1 := run[0].Box.Right(), run[0].Box.Bottom()
	conf := run[0].Confidence
	for _, w := range run[1:] {
		x0, y0 = min(x0, w.Box.X), min(y0, w.Box.Y)
		x1, y1 = max(x1, w.Box.Right()), max(y1, w.Box.Bottom())
		conf = min(conf, w.Confidence)
	}

	x0, y0, x1, y1 = x0-pad, y0-pad, x1+pad, y1+pad
	if width > 0 && height > 0 {
		x0, y0 = max(x0, 0), max(y0, 0)
		x1, y1 = min(x1, width), min(y1, height)
	}
	return TextZone{
		Keyword:    keyword,
		Confidence: conf,
		Rect:       geometry.FromCorners(x0, y0, x1, y1),
	}
}

func tokens(s string) []string {
	var out []string
	for _, f := range strings.Fields(s) {
		if n := normalize(f); n != "" {
			out = append(out, n)
		}
	}
	return out
}

// normalize keeps upper-cased letters and digits.
func normalize(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToUpper(r))
		}
	}
	return b.String()
}
