package report

import (
	"time"

	"go.uber.org/atomic"
)

type RunErrors struct {
	NumPanics atomic.Uint64 `json:"num_panics"`
}

type RunState struct {
	StartTimestamp atomic.Int64  `json:"start_timestamp"`
	UpForSeconds   atomic.Uint64 `json:"up_for_seconds"`
	Version        atomic.String `json:"version"`
}

type RunReport struct {
	State  RunState  `json:"state"`
	Errors RunErrors `json:"errors"`
}

func (self *RunReport) Fill() {
	self.State.UpForSeconds.Store(uint64(time.Now().Unix() - self.State.StartTimestamp.Load()))
}
