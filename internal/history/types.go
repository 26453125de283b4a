package history

import (
	"time"
)

type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeFailed    Outcome = "failed"
)

// Run is one recorded discovery invocation.
type Run struct {
	ID string `gorm:"type:text;primaryKey" json:"id"`

	Host     string `gorm:"type:text;not null;index" json:"host"`
	Port     uint   `gorm:"type:integer;not null" json:"port"`
	Username string `gorm:"type:text;not null" json:"username"`
	Method   string `gorm:"type:text;not null" json:"method"`

	Path    string `gorm:"type:text;not null" json:"path"`
	Pattern string `gorm:"type:text;not null" json:"pattern"`

	Examined int      `gorm:"type:integer;not null" json:"examined"`
	Matched  int      `gorm:"type:integer;not null" json:"matched"`
	Files    []string `gorm:"serializer:json" json:"files"`

	Outcome Outcome `gorm:"type:text;not null" json:"outcome"`
	Kind    string  `gorm:"type:text" json:"kind,omitempty"`
	Phase   string  `gorm:"type:text" json:"phase,omitempty"`
	Error   string  `gorm:"type:text" json:"error,omitempty"`

	StartedAt  time.Time `gorm:"type:timestamp;not null;index" json:"started_at"`
	FinishedAt time.Time `gorm:"type:timestamp;not null" json:"finished_at"`
	CreatedAt  time.Time `gorm:"type:timestamp;not null" json:"created_at"`
}

func (r *Run) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
