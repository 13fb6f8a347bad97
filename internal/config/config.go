// Package config loads parkscan settings from defaults, an optional config
// file, PARKSCAN_* environment variables and command-line flags, in
// increasing order of precedence.
//
// Keys are dotted ("slots.min_area"); the matching environment variable
// upper-cases the key and replaces dots with underscores
// (PARKSCAN_SLOTS_MIN_AREA). List values may be given in the environment as
// comma-separated strings.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/ironsheep/parkscan/internal/detection"
	"github.com/ironsheep/parkscan/internal/geometry"
	"github.com/ironsheep/parkscan/internal/imaging"
	"github.com/ironsheep/parkscan/internal/logging"
	"github.com/ironsheep/parkscan/internal/occupancy"
	"github.com/ironsheep/parkscan/internal/ocr"
	"github.com/ironsheep/parkscan/internal/pipeline"
)

// EnvPrefix prefixes every environment variable.
const EnvPrefix = "PARKSCAN"

// Settings is the full application configuration.
type Settings struct {
	Log        logging.Options    `mapstructure:"log"`
	HTTP       HTTPSettings       `mapstructure:"http"`
	Redis      RedisSettings      `mapstructure:"redis"`
	Detector   DetectorSettings   `mapstructure:"detector"`
	Pipeline   PipelineSettings   `mapstructure:"pipeline"`
	Preprocess PreprocessSettings `mapstructure:"preprocess"`
	Exclusion  ExclusionSettings  `mapstructure:"exclusion"`
	Slots      SlotSettings       `mapstructure:"slots"`
	Dedup      DedupSettings      `mapstructure:"dedup"`
	Occupancy  OccupancySettings  `mapstructure:"occupancy"`
	OCR        OCRSettings        `mapstructure:"ocr"`
}

type HTTPSettings struct {
	Addr string `mapstructure:"addr"`
}

// RedisSettings selects the result store. An empty Addr keeps results in
// memory.
type RedisSettings struct {
	Addr      string        `mapstructure:"addr"`
	Password  string        `mapstructure:"password"`
	DB        int           `mapstructure:"db"`
	TTL       time.Duration `mapstructure:"ttl"`
	Namespace string        `mapstructure:"namespace"`
}

// DetectorSettings selects the vehicle detector: "none", "static" (File),
// "http" (URL) or "vision" (Google Cloud Vision). RateLimit caps http
// detector requests per second; zero disables the cap.
type DetectorSettings struct {
	Backend   string        `mapstructure:"backend"`
	URL       string        `mapstructure:"url"`
	Timeout   time.Duration `mapstructure:"timeout"`
	File      string        `mapstructure:"file"`
	Serialize bool          `mapstructure:"serialize"`
	RateLimit float64       `mapstructure:"rate_limit"`
	Burst     int           `mapstructure:"burst"`
}

// PipelineSettings selects the pixel backend ("native" or "opencv") and the
// batch worker count (0 means GOMAXPROCS).
type PipelineSettings struct {
	Backend string `mapstructure:"backend"`
	Workers int    `mapstructure:"workers"`
}

type PreprocessSettings struct {
	BlurKernel     int     `mapstructure:"blur_kernel"`
	BlockSize      int     `mapstructure:"block_size"`
	Offset         float64 `mapstructure:"offset"`
	OpenKernel     int     `mapstructure:"open_kernel"`
	OpenIterations int     `mapstructure:"open_iterations"`
}

type ExclusionSettings struct {
	HueMin           int `mapstructure:"hue_min"`
	HueMax           int `mapstructure:"hue_max"`
	SatMin           int `mapstructure:"sat_min"`
	SatMax           int `mapstructure:"sat_max"`
	ValMin           int `mapstructure:"val_min"`
	ValMax           int `mapstructure:"val_max"`
	DilateKernel     int `mapstructure:"dilate_kernel"`
	DilateIterations int `mapstructure:"dilate_iterations"`

	// Zones are extra restricted rectangles in "WxH+X+Y" form, for example
	// "120x40+10+300".
	Zones []string `mapstructure:"zones"`
}

type SlotSettings struct {
	MinArea           float64 `mapstructure:"min_area"`
	MaxArea           float64 `mapstructure:"max_area"`
	MinAspectRatio    float64 `mapstructure:"min_aspect_ratio"`
	MaxAspectRatio    float64 `mapstructure:"max_aspect_ratio"`
	PolyEpsilonFactor float64 `mapstructure:"poly_epsilon_factor"`
	MinVertices       int     `mapstructure:"min_vertices"`
	MaxVertices       int     `mapstructure:"max_vertices"`
}

type DedupSettings struct {
	IoUThreshold         float64 `mapstructure:"iou_threshold"`
	CenterDistanceFactor float64 `mapstructure:"center_distance_factor"`
}

type OccupancySettings struct {
	IoUThreshold   float64 `mapstructure:"iou_threshold"`
	VehicleClasses []int   `mapstructure:"vehicle_classes"`
	Degrade        bool    `mapstructure:"degrade"`
}

// OCRSettings enables painted-text zone detection. It requires a binary
// built with the ocr tag.
type OCRSettings struct {
	Enabled       bool     `mapstructure:"enabled"`
	Language      string   `mapstructure:"language"`
	Keywords      []string `mapstructure:"keywords"`
	MinConfidence float64  `mapstructure:"min_confidence"`
	Padding       int      `mapstructure:"padding"`
}

// ZoneParams converts the OCR settings.
func (o OCRSettings) ZoneParams() ocr.ZoneParams {
	return ocr.ZoneParams{
		Language:      o.Language,
		Keywords:      append([]string(nil), o.Keywords...),
		MinConfidence: o.MinConfidence,
		Padding:       o.Padding,
	}
}

// SetDefaults registers every key with its default so that environment
// variables are honoured for all of them.
func SetDefaults(v *viper.Viper) {
	pc := pipeline.DefaultConfig()

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.file", "")

	v.SetDefault("http.addr", ":8080")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", 24*time.Hour)
	v.SetDefault("redis.namespace", "parkscan:analysis")

	v.SetDefault("detector.backend", "none")
	v.SetDefault("detector.url", "")
	v.SetDefault("detector.timeout", 30*time.Second)
	v.SetDefault("detector.file", "")
	v.SetDefault("detector.serialize", false)
	v.SetDefault("detector.rate_limit", 0.0)
	v.SetDefault("detector.burst", 1)

	v.SetDefault("pipeline.backend", "native")
	v.SetDefault("pipeline.workers", 0)

	v.SetDefault("preprocess.blur_kernel", pc.Preprocess.BlurKernel)
	v.SetDefault("preprocess.block_size", pc.Preprocess.BlockSize)
	v.SetDefault("preprocess.offset", pc.Preprocess.Offset)
	v.SetDefault("preprocess.open_kernel", pc.Preprocess.OpenKernel)
	v.SetDefault("preprocess.open_iterations", pc.Preprocess.OpenIterations)

	rng := pc.Exclusion.Range
	v.SetDefault("exclusion.hue_min", rng.Lower.H)
	v.SetDefault("exclusion.hue_max", rng.Upper.H)
	v.SetDefault("exclusion.sat_min", rng.Lower.S)
	v.SetDefault("exclusion.sat_max", rng.Upper.S)
	v.SetDefault("exclusion.val_min", rng.Lower.V)
	v.SetDefault("exclusion.val_max", rng.Upper.V)
	v.SetDefault("exclusion.dilate_kernel", pc.Exclusion.DilateKernel)
	v.SetDefault("exclusion.dilate_iterations", pc.Exclusion.DilateIterations)
	v.SetDefault("exclusion.zones", []string{})

	v.SetDefault("slots.min_area", pc.Slots.MinArea)
	v.SetDefault("slots.max_area", pc.Slots.MaxArea)
	v.SetDefault("slots.min_aspect_ratio", pc.Slots.MinAspectRatio)
	v.SetDefault("slots.max_aspect_ratio", pc.Slots.MaxAspectRatio)
	v.SetDefault("slots.poly_epsilon_factor", pc.Slots.PolyEpsilonFactor)
	v.SetDefault("slots.min_vertices", pc.Slots.MinVertices)
	v.SetDefault("slots.max_vertices", pc.Slots.MaxVertices)

	v.SetDefault("dedup.iou_threshold", pc.Dedup.IoUThreshold)
	v.SetDefault("dedup.center_distance_factor", pc.Dedup.CenterDistanceFactor)

	v.SetDefault("occupancy.iou_threshold", pc.Occupancy.IoUThreshold)
	v.SetDefault("occupancy.vehicle_classes", pc.VehicleClasses)
	// The CLI and services run without a detector unless one is configured.
	v.SetDefault("occupancy.degrade", true)

	zp := ocr.DefaultZoneParams()
	v.SetDefault("ocr.enabled", false)
	v.SetDefault("ocr.language", zp.Language)
	v.SetDefault("ocr.keywords", zp.Keywords)
	v.SetDefault("ocr.min_confidence", zp.MinConfidence)
	v.SetDefault("ocr.padding", zp.Padding)
}

// flagKeys maps flag names registered by RegisterFlags to config keys.
var flagKeys = map[string]string{
	"log-level":    "log.level",
	"log-format":   "log.format",
	"log-file":     "log.file",
	"addr":         "http.addr",
	"redis-addr":   "redis.addr",
	"detector":     "detector.backend",
	"detector-url": "detector.url",
	"detections":   "detector.file",
	"backend":      "pipeline.backend",
	"workers":      "pipeline.workers",
	"ocr":          "ocr.enabled",
}

// RegisterFlags adds the shared flags to fs. Flags left unset do not
// override lower-precedence sources.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "config file (yaml, json or toml)")
	fs.String("log-level", "", "log level: debug, info, warn, error")
	fs.String("log-format", "", "log format: console or json")
	fs.String("log-file", "", "also write logs to this file")
	fs.String("addr", "", "HTTP listen address")
	fs.String("redis-addr", "", "Redis address for stored results")
	fs.String("detector", "", "vehicle detector: none, static, http, vision")
	fs.String("detector-url", "", "inference service URL for the http detector")
	fs.String("detections", "", "detections JSON file (selects the static detector)")
	fs.String("backend", "", "pixel backend: native or opencv")
	fs.Int("workers", 0, "concurrent analyses for batches (0 = GOMAXPROCS)")
	fs.Bool("ocr", false, "exclude zones marked by painted text (needs an ocr build)")
}

// Load builds Settings. fs may be nil; otherwise flags registered with
// RegisterFlags and explicitly set take precedence.
func Load(fs *pflag.FlagSet) (*Settings, error) {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if fs != nil {
		if f := fs.Lookup("config"); f != nil && f.Value.String() != "" {
			v.SetConfigFile(f.Value.String())
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
		for name, key := range flagKeys {
			f := fs.Lookup(name)
			if f == nil || !f.Changed {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
			}
		}
		// A detections file implies the static detector.
		if f := fs.Lookup("detections"); f != nil && f.Changed {
			if d := fs.Lookup("detector"); d == nil || !d.Changed {
				v.Set("detector.backend", "static")
			}
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &s, nil
}

// PipelineConfig converts the analysis settings. The result is validated by
// pipeline.NewAnalyzer, not here.
func (s *Settings) PipelineConfig() (pipeline.Config, error) {
	zones, err := parseZones(s.Exclusion.Zones)
	if err != nil {
		return pipeline.Config{}, &pipeline.StageError{Stage: pipeline.StageConfig, Kind: pipeline.ErrConfiguration, Err: err}
	}
	return pipeline.Config{
		Preprocess: imaging.LineMaskParams{
			BlurKernel:     s.Preprocess.BlurKernel,
			BlockSize:      s.Preprocess.BlockSize,
			Offset:         s.Preprocess.Offset,
			OpenKernel:     s.Preprocess.OpenKernel,
			OpenIterations: s.Preprocess.OpenIterations,
		},
		Exclusion: imaging.ExclusionParams{
			Range: imaging.HSVRange{
				Lower: imaging.HSVColor{H: s.Exclusion.HueMin, S: s.Exclusion.SatMin, V: s.Exclusion.ValMin},
				Upper: imaging.HSVColor{H: s.Exclusion.HueMax, S: s.Exclusion.SatMax, V: s.Exclusion.ValMax},
			},
			DilateKernel:     s.Exclusion.DilateKernel,
			DilateIterations: s.Exclusion.DilateIterations,
			ExtraZones:       zones,
		},
		Slots: detection.CandidateParams{
			MinArea:           s.Slots.MinArea,
			MaxArea:           s.Slots.MaxArea,
			MinAspectRatio:    s.Slots.MinAspectRatio,
			MaxAspectRatio:    s.Slots.MaxAspectRatio,
			PolyEpsilonFactor: s.Slots.PolyEpsilonFactor,
			MinVertices:       s.Slots.MinVertices,
			MaxVertices:       s.Slots.MaxVertices,
		},
		Dedup: detection.DedupParams{
			IoUThreshold:         s.Dedup.IoUThreshold,
			CenterDistanceFactor: s.Dedup.CenterDistanceFactor,
		},
		Occupancy:                occupancy.Params{IoUThreshold: s.Occupancy.IoUThreshold},
		VehicleClasses:           append([]int(nil), s.Occupancy.VehicleClasses...),
		DegradeOnDetectorFailure: s.Occupancy.Degrade,
	}, nil
}

func parseZones(zones []string) ([]geometry.Rectangle, error) {
	var out []geometry.Rectangle
	var errs []error
	for _, z := range zones {
		var r geometry.Rectangle
		if _, err := fmt.Sscanf(strings.TrimSpace(z), "%dx%d+%d+%d", &r.W, &r.H, &r.X, &r.Y); err != nil || r.Empty() {
			errs = append(errs, fmt.Errorf("invalid exclusion zone %q: want WxH+X+Y", z))
			continue
		}
		out = append(out, r)
	}
	return out, errors.Join(errs...)
}
