package telemetry

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"

	"github.com/pthm-cable/collide/config"
)

// csvLog appends records to one CSV file, writing the header only once.
type csvLog struct {
	file          *os.File
	headerWritten bool
}

func createCSVLog(dir, name string) (*csvLog, error) {
	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", name, err)
	}
	return &csvLog{file: f}, nil
}

func (l *csvLog) write(records any) error {
	if !l.headerWritten {
		if err := gocsv.Marshal(records, l.file); err != nil {
			return err
		}
		l.headerWritten = true
		return nil
	}
	return gocsv.MarshalWithoutHeaders(records, l.file)
}

// OutputManager handles structured experiment output with CSV logging.
type OutputManager struct {
	dir       string
	telemetry *csvLog
	perf      *csvLog
}

// NewOutputManager creates a new output manager and initializes the output directory.
// Returns nil if dir is empty (output disabled).
func NewOutputManager(dir string) (*OutputManager, error) {
	if dir == "" {
		return nil, nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	telemetry, err := createCSVLog(dir, "telemetry.csv")
	if err != nil {
		return nil, err
	}
	perf, err := createCSVLog(dir, "perf.csv")
	if err != nil {
		telemetry.file.Close()
		return nil, err
	}

	return &OutputManager{dir: dir, telemetry: telemetry, perf: perf}, nil
}

// WriteConfig saves the current configuration as YAML.
func (om *OutputManager) WriteConfig(cfg *config.Config) error {
	if om == nil {
		return nil
	}
	return cfg.WriteYAML(filepath.Join(om.dir, "config.yaml"))
}

// WriteTelemetry writes a window stats record to telemetry.csv.
func (om *OutputManager) WriteTelemetry(stats WindowStats) error {
	if om == nil {
		return nil
	}
	if err := om.telemetry.write([]WindowStats{stats}); err != nil {
		return fmt.Errorf("writing telemetry: %w", err)
	}
	return nil
}

// WritePerf writes a performance stats record to perf.csv.
func (om *OutputManager) WritePerf(stats PerfStats, windowEnd int32) error {
	if om == nil {
		return nil
	}
	if err := om.perf.write([]PerfStatsCSV{stats.ToCSV(windowEnd)}); err != nil {
		return fmt.Errorf("writing perf: %w", err)
	}
	return nil
}

// Dir returns the output directory path.
func (om *OutputManager) Dir() string {
	if om == nil {
		return ""
	}
	return om.dir
}

// Close flushes and closes all output files.
func (om *OutputManager) Close() error {
	if om == nil {
		return nil
	}
	return errors.Join(om.telemetry.file.Close(), om.perf.file.Close())
}
