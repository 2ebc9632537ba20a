// Package datasync provides import/export orchestration between YAML files and database.
package datasync

import (
	"context"
	"fmt"
	"io"

	"github.com/at-ishikawa/spacedrep/internal/progress"
	"github.com/at-ishikawa/spacedrep/internal/schedule"
)

// ImportResult tracks counts for each import operation.
type ImportResult struct {
	RecordsNew       int
	RecordsSkipped   int
	RecordsUpdated   int
	RecordsInvalid   int
	ReviewLogNew     int
	ReviewLogSkipped int
}

// ImportOptions controls import behavior.
type ImportOptions struct {
	DryRun         bool
	UpdateExisting bool
}

// Importer reads schedule data from a source and writes it to a destination repository.
type Importer struct {
	records progress.Repository
	logs    progress.LogRepository
	writer  io.Writer
}

// NewImporter creates a new Importer writing into records and logs.
func NewImporter(records progress.Repository, logs progress.LogRepository, writer io.Writer) *Importer {
	return &Importer{
		records: records,
		logs:    logs,
		writer:  writer,
	}
}

// ImportRecords imports source records. Existing records are replaced only
// when opts.UpdateExisting is set. Records that fail validation after
// normalization are skipped.
func (imp *Importer) ImportRecords(ctx context.Context, sourceRecords []schedule.Record, opts ImportOptions) (*ImportResult, error) {
	existing, err := imp.records.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load existing schedule records: %w", err)
	}
	cache := make(map[schedule.Key]bool, len(existing))
	for i := range existing {
		cache[existing[i].Key()] = true
	}

	var result ImportResult
	var batch []*schedule.Record
	for i := range sourceRecords {
		src := sourceRecords[i].Clone()
		key := src.Key()
		if src.LearnerID == "" || src.ItemID == "" {
			_, _ = fmt.Fprintf(imp.writer, "  [INVALID]  %s: missing learner or item id\n", key)
			result.RecordsInvalid++
			continue
		}
		src.Normalize()
		if err := src.Validate(); err != nil {
			_, _ = fmt.Fprintf(imp.writer, "  [INVALID]  %s: %v\n", key, err)
			result.RecordsInvalid++
			continue
		}

		if !cache[key] {
			_, _ = fmt.Fprintf(imp.writer, "  [NEW]  %s\n", key)
			result.RecordsNew++
			cache[key] = true
			batch = append(batch, src)
			continue
		}
		if !opts.UpdateExisting {
			_, _ = fmt.Fprintf(imp.writer, "  [SKIP]  %s\n", key)
			result.RecordsSkipped++
			continue
		}
		_, _ = fmt.Fprintf(imp.writer, "  [UPDATE]  %s\n", key)
		result.RecordsUpdated++
		batch = append(batch, src)
	}

	if !opts.DryRun && len(batch) > 0 {
		if err := imp.records.BatchUpsert(ctx, batch); err != nil {
			return nil, fmt.Errorf("batch upsert schedule records: %w", err)
		}
	}
	return &result, nil
}

// ImportReviewLogs copies the review logs of keys from source. Entries whose
// id already exists in the destination are skipped.
func (imp *Importer) ImportReviewLogs(ctx context.Context, source progress.LogRepository, keys []schedule.Key, opts ImportOptions) (*ImportResult, error) {
	var result ImportResult
	for _, key := range keys {
		srcLogs, err := source.ListByItem(ctx, key.LearnerID, key.ItemID)
		if err != nil {
			return nil, fmt.Errorf("load source review logs(%s): %w", key, err)
		}
		if len(srcLogs) == 0 {
			continue
		}

		dstLogs, err := imp.logs.ListByItem(ctx, key.LearnerID, key.ItemID)
		if err != nil {
			return nil, fmt.Errorf("load existing review logs(%s): %w", key, err)
		}
		seen := make(map[string]bool, len(dstLogs))
		for _, l := range dstLogs {
			seen[l.ID] = true
		}

		for i := range srcLogs {
			l := srcLogs[i]
			if seen[l.ID] {
				result.ReviewLogSkipped++
				continue
			}
			seen[l.ID] = true
			result.ReviewLogNew++
			if opts.DryRun {
				continue
			}
			if err := imp.logs.Append(ctx, &l); err != nil {
				return nil, fmt.Errorf("append review log(%s): %w", l.ID, err)
			}
		}
	}
	return &result, nil
}

// ExportData holds all exported data.
type ExportData struct {
	Records    []schedule.Record
	ReviewLogs []progress.ReviewLog
}

// Exporter reads every record and its review log.
type Exporter struct {
	records progress.Repository
	logs    progress.LogRepository
}

// NewExporter creates a new Exporter.
func NewExporter(records progress.Repository, logs progress.LogRepository) *Exporter {
	return &Exporter{
		records: records,
		logs:    logs,
	}
}

// Export reads all records and their review logs.
func (e *Exporter) Export(ctx context.Context) (*ExportData, error) {
	records, err := e.records.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("records.ListAll() > %w", err)
	}

	logs := []progress.ReviewLog{}
	for i := range records {
		itemLogs, err := e.logs.ListByItem(ctx, records[i].LearnerID, records[i].ItemID)
		if err != nil {
			return nil, fmt.Errorf("logs.ListByItem(%s) > %w", records[i].Key(), err)
		}
		logs = append(logs, itemLogs...)
	}

	return &ExportData{
		Records:    records,
		ReviewLogs: logs,
	}, nil
}

// Keys returns the keys of records.
func Keys(records []schedule.Record) []schedule.Key {
	keys := make([]schedule.Key, len(records))
	for i := range records {
		keys[i] = records[i].Key()
	}
	return keys
}
