package progress

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/at-ishikawa/spacedrep/internal/schedule"
)

const yamlExtension = ".yml"

// YAMLRepository stores the records of each learner in its own YAML file.
// It is safe for use by one process at a time.
type YAMLRepository struct {
	directory string
	mu        sync.Mutex
}

// NewYAMLRepository creates a new YAMLRepository rooted at directory.
func NewYAMLRepository(directory string) *YAMLRepository {
	return &YAMLRepository{directory: directory}
}

func learnerFile(directory, learnerID string) string {
	return filepath.Join(directory, url.PathEscape(learnerID)+yamlExtension)
}

func readYAML[T any](path string) ([]T, error) {
	content, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var values []T
	if err := yaml.Unmarshal(content, &values); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return values, nil
}

func writeYAML(path string, v interface{}) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	content, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, content, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename %s: %w", tmp, err)
	}
	return nil
}

func (r *YAMLRepository) load(learnerID string) ([]schedule.Record, error) {
	records, err := readYAML[schedule.Record](learnerFile(r.directory, learnerID))
	if err != nil {
		return nil, err
	}
	return normalizeAll(records), nil
}

// Get returns the record for a learner and item, or ErrNotFound.
func (r *YAMLRepository) Get(_ context.Context, learnerID, itemID string) (*schedule.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	records, err := r.load(learnerID)
	if err != nil {
		return nil, fmt.Errorf("load schedule records(%s): %w", learnerID, err)
	}
	for i := range records {
		if records[i].ItemID == itemID {
			return &records[i], nil
		}
	}
	return nil, ErrNotFound
}

// ListByLearner returns every record of a learner ordered by item id.
func (r *YAMLRepository) ListByLearner(_ context.Context, learnerID string) ([]schedule.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	records, err := r.load(learnerID)
	if err != nil {
		return nil, fmt.Errorf("load schedule records(%s): %w", learnerID, err)
	}
	return records, nil
}

// ListAll returns every record of every learner file in the directory.
func (r *YAMLRepository) ListAll(_ context.Context) ([]schedule.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries, err := os.ReadDir(r.directory)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read directory %s: %w", r.directory, err)
	}

	var all []schedule.Record
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), yamlExtension) {
			continue
		}
		learnerID, err := url.PathUnescape(strings.TrimSuffix(e.Name(), yamlExtension))
		if err != nil {
			return nil, fmt.Errorf("decode file name %s: %w", e.Name(), err)
		}
		records, err := r.load(learnerID)
		if err != nil {
			return nil, fmt.Errorf("load schedule records(%s): %w", learnerID, err)
		}
		all = append(all, records...)
	}
	sort.SliceStable(all, func(i, j int) bool {
		if all[i].LearnerID != all[j].LearnerID {
			return all[i].LearnerID < all[j].LearnerID
		}
		return all[i].ItemID < all[j].ItemID
	})
	return all, nil
}

// Save inserts or updates a record using its version for optimistic locking.
func (r *YAMLRepository) Save(_ context.Context, record *schedule.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	records, err := r.load(record.LearnerID)
	if err != nil {
		return fmt.Errorf("load schedule records(%s): %w", record.LearnerID, err)
	}

	idx := -1
	for i := range records {
		if records[i].ItemID == record.ItemID {
			idx = i
			break
		}
	}
	if idx < 0 && record.Version != 0 || idx >= 0 && records[idx].Version != record.Version {
		return ErrVersionConflict
	}

	saved := *record.Clone()
	saved.Version++
	if idx < 0 {
		records = append(records, saved)
	} else {
		records[idx] = saved
	}
	sortByItem(records)

	if err := writeYAML(learnerFile(r.directory, record.LearnerID), records); err != nil {
		return fmt.Errorf("save schedule record(%s): %w", record.Key(), err)
	}
	record.Version = saved.Version
	return nil
}

// BatchUpsert writes records, replacing existing ones regardless of version.
func (r *YAMLRepository) BatchUpsert(_ context.Context, records []*schedule.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	byLearner := make(map[string][]*schedule.Record)
	for _, rec := range records {
		byLearner[rec.LearnerID] = append(byLearner[rec.LearnerID], rec)
	}

	for learnerID, incoming := range byLearner {
		existing, err := r.load(learnerID)
		if err != nil {
			return fmt.Errorf("load schedule records(%s): %w", learnerID, err)
		}
		index := make(map[string]int, len(existing))
		for i := range existing {
			index[existing[i].ItemID] = i
		}
		for _, rec := range incoming {
			saved := *rec.Clone()
			if i, ok := index[rec.ItemID]; ok {
				saved.Version = existing[i].Version + 1
				existing[i] = saved
				continue
			}
			saved.Version = 1
			index[rec.ItemID] = len(existing)
			existing = append(existing, saved)
		}
		sortByItem(existing)
		if err := writeYAML(learnerFile(r.directory, learnerID), existing); err != nil {
			return fmt.Errorf("save schedule records(%s): %w", learnerID, err)
		}
	}
	return nil
}

func sortByItem(records []schedule.Record) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].ItemID < records[j].ItemID
	})
}

// YAMLLogRepository stores the review log of each learner in its own YAML file.
type YAMLLogRepository struct {
	directory string
	mu        sync.Mutex
}

// NewYAMLLogRepository creates a new YAMLLogRepository rooted at directory.
func NewYAMLLogRepository(directory string) *YAMLLogRepository {
	return &YAMLLogRepository{directory: directory}
}

// Append adds a log entry to the learner's log file.
func (r *YAMLLogRepository) Append(_ context.Context, log *ReviewLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	path := learnerFile(r.directory, log.LearnerID)
	logs, err := readYAML[ReviewLog](path)
	if err != nil {
		return fmt.Errorf("load review logs(%s): %w", log.LearnerID, err)
	}
	logs = append(logs, *log)
	if err := writeYAML(path, logs); err != nil {
		return fmt.Errorf("save review logs(%s): %w", log.LearnerID, err)
	}
	return nil
}

// ListByItem returns the log of an item in the order it was appended.
func (r *YAMLLogRepository) ListByItem(_ context.Context, learnerID, itemID string) ([]ReviewLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	logs, err := readYAML[ReviewLog](learnerFile(r.directory, learnerID))
	if err != nil {
		return nil, fmt.Errorf("load review logs(%s): %w", learnerID, err)
	}
	var result []ReviewLog
	for _, l := range logs {
		if l.ItemID == itemID {
			result = append(result, l)
		}
	}
	return result, nil
}
