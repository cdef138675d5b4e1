package groundstation

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"sync"

	"github.com/shurlinet/satrelay/internal/telemetry"
)

// csvHeader matches spec §6's turbine_data.csv schema exactly.
var csvHeader = []string{"timestamp", "turbine_id", "turbine", "temperature", "pressure", "wind_speed", "power_output"}

// CSVLog is the sink's persistent turbine data log (spec §4.8, §6):
// truncated on startup, appended to one row per turbine per message.
type CSVLog struct {
	mu   sync.Mutex
	file *os.File
	w    *csv.Writer
}

// NewCSVLog truncates (or creates) the log at path and writes the header
// row, matching the original ground station's startup behavior of
// erasing any prior run's data.
func NewCSVLog(path string) (*CSVLog, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create turbine data csv: %w", err)
	}
	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		f.Close()
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return nil, fmt.Errorf("flush csv header: %w", err)
	}
	return &CSVLog{file: f, w: w}, nil
}

// Append writes one row per turbine in rec, flushing immediately so a
// reader tailing the file sees each message as it lands.
func (l *CSVLog) Append(rec telemetry.Record) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	ts := strconv.FormatFloat(rec.Timestamp, 'f', -1, 64)
	turbineID := strconv.Itoa(int(rec.TurbineID))
	for name, reading := range rec.Turbines {
		row := []string{
			ts,
			turbineID,
			name,
			strconv.FormatFloat(reading.TemperatureC, 'f', -1, 64),
			strconv.FormatFloat(reading.PressurePa, 'f', -1, 64),
			strconv.FormatFloat(reading.WindSpeedMS, 'f', -1, 64),
			strconv.FormatFloat(reading.PowerKW, 'f', -1, 64),
		}
		if err := l.w.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	l.w.Flush()
	return l.w.Error()
}

// Close flushes and closes the underlying file.
func (l *CSVLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.w.Flush()
	return l.file.Close()
}
