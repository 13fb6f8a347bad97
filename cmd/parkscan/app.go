package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ironsheep/parkscan/internal/config"
	"github.com/ironsheep/parkscan/internal/ocr"
	"github.com/ironsheep/parkscan/internal/opencv"
	"github.com/ironsheep/parkscan/internal/pipeline"
	"github.com/ironsheep/parkscan/internal/store"
	"github.com/ironsheep/parkscan/internal/vehicle"
)

// app holds the components shared by every command.
type app struct {
	analyzer *pipeline.Analyzer
	store    store.Store
	text     *ocr.Tesseract
	closers  []func() error
	log      zerolog.Logger
}

func newApp(ctx context.Context, s *config.Settings, log zerolog.Logger) (*app, error) {
	a := &app{log: log}

	cfg, err := s.PipelineConfig()
	if err != nil {
		return nil, err
	}

	det, err := a.detector(ctx, s.Detector)
	if err != nil {
		a.Close()
		return nil, err
	}

	backend, err := newBackend(s.Pipeline.Backend)
	if err != nil {
		a.Close()
		return nil, err
	}

	opts := []pipeline.Option{pipeline.WithBackend(backend), pipeline.WithLogger(log)}
	if s.OCR.Enabled {
		t, err := ocr.NewTesseract(s.OCR.ZoneParams())
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to enable text zones: %w", err)
		}
		a.text = t
		opts = append(opts, pipeline.WithZoneFinder(t))
	}

	a.analyzer, err = pipeline.NewAnalyzer(cfg, det, opts...)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.store = a.newStore(ctx, s.Redis)

	log.Info().
		Str("detector", s.Detector.Backend).
		Str("backend", backend.Name()).
		Bool("ocr", a.text != nil).
		Msg("analyzer ready")
	return a, nil
}

func (a *app) detector(ctx context.Context, s config.DetectorSettings) (vehicle.Detector, error) {
	var det vehicle.Detector
	switch s.Backend {
	case "", "none":
		return vehicle.None{}, nil
	case "static":
		if s.File == "" {
			return nil, errors.New("detector.file is required for the static detector")
		}
		st, err := vehicle.LoadStatic(s.File)
		if err != nil {
			return nil, err
		}
		det = st
	case "http":
		if s.URL == "" {
			return nil, errors.New("detector.url is required for the http detector")
		}
		det = vehicle.NewHTTPDetector(s.URL, s.Timeout).WithRateLimit(s.RateLimit, s.Burst)
	case "vision":
		v, err := vehicle.NewVisionDetector(ctx)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, v.Close)
		det = v
	default:
		return nil, fmt.Errorf("unknown detector %q: want none, static, http or vision", s.Backend)
	}

	if s.Serialize {
		q := vehicle.NewSerialized(det)
		a.closers = append(a.closers, q.Close)
		det = q
	}
	return det, nil
}

func newBackend(name string) (pipeline.Backend, error) {
	switch name {
	case "", "native":
		return pipeline.Native{}, nil
	case opencv.Name:
		b, err := opencv.New()
		if err != nil {
			return nil, fmt.Errorf("failed to enable opencv backend: %w", err)
		}
		return b, nil
	default:
		return nil, fmt.Errorf("unknown pipeline backend %q: want native or opencv", name)
	}
}

// newStore connects to Redis when configured. A failed connection falls
// back to memory.
func (a *app) newStore(ctx context.Context, s config.RedisSettings) store.Store {
	if s.Addr == "" {
		return store.NewMemory(0)
	}
	rdb, err := store.Connect(ctx, store.RedisOptions{Addr: s.Addr, Password: s.Password, DB: s.DB}, a.log)
	if err != nil {
		a.log.Warn().Err(err).Msg("redis unavailable, keeping results in memory")
		return store.NewMemory(0)
	}
	a.closers = append(a.closers, rdb.Close)
	return store.NewRedis(rdb, s.TTL, s.Namespace)
}

// Close releases detector clients, queues and connections in reverse order.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.log.Error().Err(err).Msg("failed to close resource")
		}
	}
	a.closers = nil
}
