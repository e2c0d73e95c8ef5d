package soil_sampler

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/LeonardoBeccarini/agro_advisor/internal/model/entities"
	"github.com/LeonardoBeccarini/agro_advisor/internal/model/messages"
	"github.com/LeonardoBeccarini/agro_advisor/internal/services/gateway/app"
)

// Round is one crop + fertilizer round trip through the gateway.
type Round struct {
	Reading    Reading                      `json:"reading"`
	SoilType   string                       `json:"soil_type"`
	Crop       messages.CropResponse        `json:"crop"`
	Fertilizer *messages.FertilizerResponse `json:"fertilizer,omitempty"`
}

// Sampler drives the gateway's JSON endpoints with generated readings.
type Sampler struct {
	gen        *DataGenerator
	crop       *app.Upstream
	fertilizer *app.Upstream
	catalog    entities.Catalog
	logger     *slog.Logger
	pick       func(n int) int
}

func NewSampler(gatewayURL string, timeout time.Duration, gen *DataGenerator, cat entities.Catalog, logger *slog.Logger) *Sampler {
	if logger == nil {
		logger = slog.Default()
	}
	breaker := app.BreakerSettings{Failures: 3, OpenFor: 5 * time.Second}
	return &Sampler{
		gen:        gen,
		crop:       app.NewUpstream("gateway-crop", gatewayURL, "/recommend_crop", timeout, app.NewBreaker("gateway-crop", breaker, logger, nil), 0, nil),
		fertilizer: app.NewUpstream("gateway-fertilizer", gatewayURL, "/recommend_fertilizer", timeout, app.NewBreaker("gateway-fertilizer", breaker, logger, nil), 0, nil),
		catalog:    cat,
		logger:     logger,
		pick:       gen.rnd.Intn,
	}
}

func format(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

func CropRequestOf(r Reading) messages.CropRequest {
	return messages.CropRequest{
		N: format(r.N), P: format(r.P), K: format(r.K),
		Temperature: format(r.Temperature), Humidity: format(r.Humidity),
		Ph: format(r.Ph), Rainfall: format(r.Rainfall),
	}
}

// cropType maps a crop label of the crop model onto the fertilizer catalog,
// case-insensitively; unknown crops are sent as they are.
func (s *Sampler) cropType(top string) string {
	for _, c := range s.catalog.CropTypes {
		if strings.EqualFold(c, top) {
			return c
		}
	}
	return top
}

// Once performs a single round trip. A crop answer carrying {error} ends the
// round without a fertilizer request.
func (s *Sampler) Once(ctx context.Context) (Round, error) {
	r := Round{Reading: s.gen.Next()}
	if n := len(s.catalog.SoilTypes); n > 0 {
		r.SoilType = s.catalog.SoilTypes[s.pick(n)]
	}

	if _, err := s.crop.PostJSON(ctx, CropRequestOf(r.Reading), &r.Crop); err != nil {
		return r, fmt.Errorf("crop request: %w", err)
	}
	if r.Crop.Error != "" || r.Crop.Top() == "" {
		return r, nil
	}

	req := messages.FertilizerRequest{
		Temperature: format(r.Reading.Temperature),
		Humidity:    format(r.Reading.Humidity),
		Moisture:    format(r.Reading.Moisture),
		SoilType:    r.SoilType,
		CropType:    s.cropType(r.Crop.Top()),
		N:           format(r.Reading.N),
		P:           format(r.Reading.P),
		K:           format(r.Reading.K),
	}
	var fert messages.FertilizerResponse
	if _, err := s.fertilizer.PostJSON(ctx, req, &fert); err != nil {
		return r, fmt.Errorf("fertilizer request: %w", err)
	}
	r.Fertilizer = &fert
	return r, nil
}

// Run samples every interval until ctx ends or count rounds are done
// (0 means no limit). Failed rounds are logged and counted, not fatal.
func (s *Sampler) Run(ctx context.Context, interval time.Duration, count int) (ok, failed int) {
	for i := 0; count <= 0 || i < count; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return ok, failed
			case <-time.After(interval):
			}
		}
		r, err := s.Once(ctx)
		if err != nil {
			failed++
			s.logger.Warn("round failed", "round", i+1, "error", err)
			continue
		}
		ok++
		s.log(i+1, r)
	}
	return ok, failed
}

func (s *Sampler) log(n int, r Round) {
	attrs := []any{"round", n, "N", r.Reading.N, "P", r.Reading.P, "K", r.Reading.K, "ph", r.Reading.Ph}
	switch {
	case r.Crop.Error != "":
		s.logger.Info("crop rejected", append(attrs, "error", r.Crop.Error)...)
	case r.Fertilizer == nil:
		s.logger.Info("crop recommended", append(attrs, "top", r.Crop.Top())...)
	case r.Fertilizer.Error != "":
		s.logger.Info("fertilizer rejected", append(attrs, "top", r.Crop.Top(), "error", r.Fertilizer.Error)...)
	default:
		s.logger.Info("round complete", append(attrs,
			"top", r.Crop.Top(),
			"probability", r.Crop.TopProbability(),
			"soil_type", r.SoilType,
			"fertilizer", r.Fertilizer.Fertilizer,
			"deficiencies", r.Fertilizer.Deficiencies,
		)...)
	}
}
