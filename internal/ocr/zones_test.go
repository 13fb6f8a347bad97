package ocr

import (
	"math"
	"reflect"
	"strings"
	"testing"

	"github.com/ironsheep/parkscan/internal/geometry"
)

func word(text string, conf float64, x, y, w, h int) Word {
	return Word{Text: text, Confidence: conf, Box: geometry.Rectangle{X: x, Y: y, W: w, H: h}}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Reserved", "RESERVED"},
		{"NO.", "NO"},
		{"\"parking\"", "PARKING"},
		{"lane-7", "LANE7"},
		{"...", ""},
	}
	for _, tt := range tests {
		if got := normalize(tt.in); got != tt.want {
			t.Errorf("normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMatchZones_SingleWord(t *testing.T) {
	p := DefaultZoneParams()
	p.Padding = 5
	words := []Word{
		word("Visitor", 0.9, 10, 10, 40, 12),
		word("reserved", 0.85, 60, 10, 50, 12),
	}

	zones := MatchZones(words, p, 0, 0)
	if len(zones) != 1 {
		t.Fatalf("expected 1 zone, got %d", len(zones))
	}
	z := zones[0]
	if z.Keyword != "RESERVED" {
		t.Errorf("keyword = %q", z.Keyword)
	}
	want := geometry.Rectangle{X: 55, Y: 5, W: 60, H: 22}
	if z.Rect != want {
		t.Errorf("rect = %v, want %v", z.Rect, want)
	}
}

func TestMatchZones_Phrase(t *testing.T) {
	p := DefaultZoneParams()
	p.Padding = 0
	words := []Word{
		word("NO", 0.9, 100, 200, 20, 15),
		word("PARKING", 0.7, 125, 202, 60, 15),
	}

	zones := MatchZones(words, p, 0, 0)
	if len(zones) != 1 {
		t.Fatalf("expected 1 zone, got %d", len(zones))
	}
	if zones[0].Keyword != "NO PARKING" {
		t.Errorf("keyword = %q", zones[0].Keyword)
	}
	if want := (geometry.Rectangle{X: 100, Y: 200, W: 85, H: 17}); zones[0].Rect != want {
		t.Errorf("rect = %v, want %v", zones[0].Rect, want)
	}
	if zones[0].Confidence != 0.7 {
		t.Errorf("confidence = %v, want lowest of the run", zones[0].Confidence)
	}
}

func TestMatchZones_PhraseAcrossLinesDoesNotMatch(t *testing.T) {
	p := DefaultZoneParams()
	words := []Word{
		word("NO", 0.9, 100, 200, 20, 15),
		word("PARKING", 0.9, 20, 260, 60, 15),
	}
	if zones := MatchZones(words, p, 0, 0); len(zones) != 0 {
		t.Errorf("expected no zones, got %v", zones)
	}
}

func TestMatchZones_LowConfidenceIgnored(t *testing.T) {
	p := DefaultZoneParams()
	words := []Word{word("RESERVED", 0.3, 0, 0, 50, 10)}
	if zones := MatchZones(words, p, 0, 0); len(zones) != 0 {
		t.Errorf("expected no zones, got %v", zones)
	}
}

func TestMatchZones_ClipsToImage(t *testing.T) {
	p := DefaultZoneParams()
	words := []Word{word("LOADING", 0.9, 2, 3, 50, 10)}

	zones := MatchZones(words, p, 55, 100)
	if len(zones) != 1 {
		t.Fatalf("expected 1 zone, got %d", len(zones))
	}
	if want := (geometry.Rectangle{X: 0, Y: 0, W: 55, H: 23}); zones[0].Rect != want {
		t.Errorf("rect = %v, want %v", zones[0].Rect, want)
	}
}

func TestMatchZones_RepeatedKeyword(t *testing.T) {
	p := DefaultZoneParams()
	words := []Word{
		word("RESERVED", 0.9, 0, 0, 50, 10),
		word("RESERVED", 0.9, 200, 0, 50, 10),
	}
	if zones := MatchZones(words, p, 0, 0); len(zones) != 2 {
		t.Errorf("expected 2 zones, got %d", len(zones))
	}
}

func TestRects(t *testing.T) {
	if Rects(nil) != nil {
		t.Error("Rects(nil) should be nil")
	}
	zones := []TextZone{{Rect: geometry.Rectangle{X: 1, Y: 2, W: 3, H: 4}}}
	if got := Rects(zones); !reflect.DeepEqual(got, []geometry.Rectangle{{X: 1, Y: 2, W: 3, H: 4}}) {
		t.Errorf("Rects = %v", got)
	}
}

func TestZoneParams_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*ZoneParams)
		wantErr string
	}{
		{"defaults", func(*ZoneParams) {}, ""},
		{"empty language", func(p *ZoneParams) { p.Language = "" }, "language"},
		{"confidence above one", func(p *ZoneParams) { p.MinConfidence = 1.5 }, "min confidence"},
		{"NaN confidence", func(p *ZoneParams) { p.MinConfidence = math.NaN() }, "min confidence"},
		{"negative padding", func(p *ZoneParams) { p.Padding = -1 }, "padding"},
		{"punctuation keyword", func(p *ZoneParams) { p.Keywords = []string{"--"} }, "keyword"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultZoneParams()
			tt.mutate(&p)
			err := p.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestDefaultZoneParams_CopiesKeywords(t *testing.T) {
	p := DefaultZoneParams()
	p.Keywords[0] = "CHANGED"
	if DefaultKeywords[0] == "CHANGED" {
		t.Error("DefaultZoneParams shares the DefaultKeywords slice")
	}
}
