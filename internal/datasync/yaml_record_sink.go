package datasync

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/at-ishikawa/spacedrep/internal/progress"
	"github.com/at-ishikawa/spacedrep/internal/schedule"
)

const (
	recordsFile    = "schedule_records.yml"
	reviewLogsFile = "review_logs.yml"
)

// YAMLRecordSink writes exported data to YAML files in a directory.
type YAMLRecordSink struct {
	outputDir string
}

// NewYAMLRecordSink creates a new YAMLRecordSink.
func NewYAMLRecordSink(outputDir string) *YAMLRecordSink {
	return &YAMLRecordSink{outputDir: outputDir}
}

// WriteAll writes schedule_records.yml and review_logs.yml.
func (s *YAMLRecordSink) WriteAll(data *ExportData) error {
	if err := os.MkdirAll(s.outputDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	records := data.Records
	if records == nil {
		records = []schedule.Record{}
	}
	if err := writeYAML(filepath.Join(s.outputDir, recordsFile), records); err != nil {
		return fmt.Errorf("write %s: %w", recordsFile, err)
	}

	logs := data.ReviewLogs
	if logs == nil {
		logs = []progress.ReviewLog{}
	}
	if err := writeYAML(filepath.Join(s.outputDir, reviewLogsFile), logs); err != nil {
		return fmt.Errorf("write %s: %w", reviewLogsFile, err)
	}
	return nil
}

// ReadYAMLExport reads files written by YAMLRecordSink.
func ReadYAMLExport(dir string) (*ExportData, error) {
	var data ExportData
	if err := readYAML(filepath.Join(dir, recordsFile), &data.Records); err != nil {
		return nil, fmt.Errorf("read %s: %w", recordsFile, err)
	}
	if err := readYAML(filepath.Join(dir, reviewLogsFile), &data.ReviewLogs); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read %s: %w", reviewLogsFile, err)
	}
	return &data, nil
}

func writeYAML(path string, data interface{}) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	enc := yaml.NewEncoder(f)
	defer func() { _ = enc.Close() }()
	return enc.Encode(data)
}

func readYAML(path string, out interface{}) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	if err := yaml.NewDecoder(f).Decode(out); err != nil {
		return fmt.Errorf("yaml.NewDecoder().Decode() > %w", err)
	}
	return nil
}

// LogSource serves exported review logs as a progress.LogRepository so they
// can be passed to Importer.ImportReviewLogs.
type LogSource struct {
	logs []progress.ReviewLog
}

// NewLogSource creates a LogSource over logs, kept in their given order.
func NewLogSource(logs []progress.ReviewLog) *LogSource {
	return &LogSource{logs: logs}
}

func (s *LogSource) Append(_ context.Context, log *progress.ReviewLog) error {
	s.logs = append(s.logs, *log)
	return nil
}

func (s *LogSource) ListByItem(_ context.Context, learnerID, itemID string) ([]progress.ReviewLog, error) {
	var result []progress.ReviewLog
	for _, l := range s.logs {
		if l.LearnerID == learnerID && l.ItemID == itemID {
			result = append(result, l)
		}
	}
	return result, nil
}
