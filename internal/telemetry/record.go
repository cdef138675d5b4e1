package telemetry

import (
	"context"
	"encoding/json"
	"math/rand"
	"strconv"
	"time"

	"github.com/shurlinet/satrelay/internal/table"
)

// NumTurbines is the fixed per-message turbine count (spec §4.2).
const NumTurbines = 30

// Reading holds one turbine's sensor values.
type Reading struct {
	TemperatureC float64 `json:"temperature"`
	PressurePa   float64 `json:"pressure"`
	WindSpeedMS  float64 `json:"wind_speed"`
	PowerKW      float64 `json:"power_output"`
}

// Record is the wind-farm's telemetry payload (spec §3).
type Record struct {
	Timestamp float64            `json:"timestamp"`
	TurbineID table.PeerID       `json:"turbine_id"`
	Turbines  map[string]Reading `json:"turbines"`
}

// Marshal serializes a Record as UTF-8 JSON.
func (r Record) Marshal() ([]byte, error) {
	return json.Marshal(r)
}

// Unmarshal parses a Record from UTF-8 JSON.
func Unmarshal(data []byte) (Record, error) {
	var r Record
	err := json.Unmarshal(data, &r)
	return r, err
}

// baseReading is the documented fallback range for each field when the
// weather API is unreachable (spec §4.2).
type baseReading struct {
	temperatureC float64
	pressurePa   float64
	windSpeedMS  float64
	powerKW      float64
}

func randomBaseReading(rng *rand.Rand) baseReading {
	return baseReading{
		temperatureC: -10 + rng.Float64()*50,    // -10..40
		pressurePa:   900 + rng.Float64()*200,   // 900..1100
		windSpeedMS:  rng.Float64() * 25,        // 0..25
		powerKW:      4000 + rng.Float64()*3000, // 4000..7000
	}
}

// Generator produces TelemetryRecords for the source node.
type Generator struct {
	Weather    *WeatherClient
	Calculator *Calculator
	Lat, Lon   float64
	rng        *rand.Rand
}

// NewGenerator builds a Generator. lat/lon locate the wind farm for the
// weather API query.
func NewGenerator(weather *WeatherClient, lat, lon float64) *Generator {
	return &Generator{
		Weather:    weather,
		Calculator: NewCalculator(),
		Lat:        lat,
		Lon:        lon,
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Generate produces a fresh Record: it fetches a base weather reading (or
// falls back to documented random ranges on failure), then jitters it per
// turbine and estimates power via the turbine Calculator.
func (g *Generator) Generate(ctx context.Context) Record {
	base := g.baseReading(ctx)

	turbines := make(map[string]Reading, NumTurbines)
	for i := 0; i < NumTurbines; i++ {
		temp := base.temperatureC + jitter(g.rng, 0.5)
		pressure := base.pressurePa + jitter(g.rng, 50)
		wind := clampNonNegative(base.windSpeedMS + jitter(g.rng, 0.3))
		power := g.Calculator.EstimatePowerOutput(wind, temp, pressure)

		name := turbineName(i)
		turbines[name] = Reading{
			TemperatureC: round2(temp),
			PressurePa:   round2(pressure),
			WindSpeedMS:  round2(wind),
			PowerKW:      round2(power),
		}
	}

	return Record{
		Timestamp: float64(time.Now().UnixNano()) / 1e9,
		TurbineID: table.SourceID,
		Turbines:  turbines,
	}
}

func (g *Generator) baseReading(ctx context.Context) baseReading {
	if g.Weather != nil {
		if w, err := g.Weather.Fetch(ctx, g.Lat, g.Lon); err == nil {
			return baseReading{
				temperatureC: w.TemperatureC,
				pressurePa:   w.PressurePa,
				windSpeedMS:  w.WindSpeedMS,
				powerKW:      0,
			}
		}
	}
	return randomBaseReading(g.rng)
}

func jitter(rng *rand.Rand, spread float64) float64 {
	return (rng.Float64()*2 - 1) * spread
}

func clampNonNegative(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}

func round2(v float64) float64 {
	return float64(int(v*100+0.5)) / 100
}

func turbineName(i int) string {
	const letters = "abcdefghijklmnopqrstuvwxyz"
	return "turbine-" + string(letters[i%26]) + strconv.Itoa(i)
}
