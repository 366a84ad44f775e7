// Package recorder persists evaluated signals for later comparison and charting.
package recorder

import (
	"time"

	"CoinSentinel/internal/model"
)

// Trigger names what caused an evaluation.
type Trigger string

const (
	TriggerScheduled Trigger = "scheduled"
	TriggerCommand   Trigger = "command"
	TriggerAPI       Trigger = "api"
)

// SignalSnapshot is one evaluation to persist.
type SignalSnapshot struct {
	Report  *model.Report
	Trigger Trigger
}

// StoredSignal is a persisted evaluation read back from storage.
type StoredSignal struct {
	ID            int64
	Asset         string
	Source        string
	Trigger       Trigger
	Signal        model.Signal
	Strength      model.Strength
	Score         int
	AdjustedScore int
	Confidence    int
	Price         float64
	RecordedAt    time.Time
	Verdicts      []model.IndicatorVerdict
}

// Recorder persists historical data for analysis.
type Recorder interface {
	RecordSignal(snap *SignalSnapshot) error
	// LatestSignal returns nil, nil when nothing was recorded for asset.
	LatestSignal(asset string) (*StoredSignal, error)
	Close() error
}
