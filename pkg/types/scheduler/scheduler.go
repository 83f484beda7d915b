package scheduler

import "time"

type Scheduler interface {
	Start() error
	Stop()
}

const (
	IntervalSpotPrice = 30 * time.Second
	IntervalRates     = 5 * time.Minute
)
