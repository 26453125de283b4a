package history

import (
	"errors"
	"fmt"

	"sftpfind/internal/discovery"
	"sftpfind/internal/logger"

	"gorm.io/gorm"
)

const DefaultLimit = 20

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Record stores a finished discovery run. It satisfies discovery.Recorder.
func (r *Repository) Record(run *discovery.Run) error {
	if run == nil {
		return fmt.Errorf("%w: nil run", ErrFailedToSaveRun)
	}

	row := fromDiscovery(run)

	if err := r.db.Create(row).Error; err != nil {
		return fmt.Errorf("%w: %v", ErrFailedToSaveRun, err)
	}

	return nil
}

// GetRecent returns up to limit runs, newest first.
func (r *Repository) GetRecent(limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	var runs []*Run

	if err := r.db.Order("started_at DESC").Limit(limit).Find(&runs).Error; err != nil {
		return nil, err
	}

	return runs, nil
}

func (r *Repository) Get(id string) (*Run, error) {
	var run Run

	err := r.db.First(&run, "id = ?", id).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRunNotFound
	}

	if err != nil {
		return nil, err
	}

	return &run, nil
}

// DeleteAll removes every recorded run and reports how many were removed.
func (r *Repository) DeleteAll() (int64, error) {
	result := r.db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&Run{})

	if result.Error != nil {
		return 0, result.Error
	}

	return result.RowsAffected, nil
}

func fromDiscovery(run *discovery.Run) *Run {
	row := &Run{
		ID:         run.ID,
		Host:       run.Host,
		Port:       run.Port,
		Username:   run.Username,
		Method:     string(run.Method),
		Path:       run.Criterion.Path,
		Pattern:    run.Criterion.Pattern,
		Files:      []string{},
		Outcome:    OutcomeSucceeded,
		StartedAt:  run.StartedAt,
		FinishedAt: run.FinishedAt,
	}

	if run.Result != nil {
		row.Examined = run.Result.Examined
		row.Matched = len(run.Result.Files)
		row.Files = append(row.Files, run.Result.Files...)
	}

	if run.Err != nil {
		kind, phase := discovery.Kind(run.Err)
		row.Outcome = OutcomeFailed
		row.Kind = kind
		row.Phase = string(phase)
		row.Error = logger.Mask(run.Err.Error())
	}

	return row
}
