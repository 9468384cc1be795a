// Package server schedules reclamation of rooms that have no members
// left. The global room is never reclaimed; rooms otherwise persist until
// the sweep finds them empty.
package server

import (
	"log"

	"github.com/robfig/cron/v3"
)

// Janitor periodically sweeps the registry for empty rooms.
type Janitor struct {
	cron     *cron.Cron
	registry *Registry
}

// NewJanitor builds a janitor on the given cron schedule (for example
// "@every 10m"). An empty schedule returns a nil janitor, which is safe to
// Start and Stop; the sweep is simply disabled.
func NewJanitor(reg *Registry, schedule string) (*Janitor, error) {
	if schedule == "" {
		return nil, nil
	}

	j := &Janitor{
		cron:     cron.New(),
		registry: reg,
	}
	if _, err := j.cron.AddFunc(schedule, j.sweep); err != nil {
		return nil, err
	}
	return j, nil
}

// Start begins running the sweep on its schedule.
func (j *Janitor) Start() {
	if j == nil {
		return
	}
	j.cron.Start()
}

// Stop halts the schedule. A sweep already in flight finishes.
func (j *Janitor) Stop() {
	if j == nil {
		return
	}
	j.cron.Stop()
}

func (j *Janitor) sweep() {
	if removed := j.registry.SweepEmptyRooms(); removed > 0 {
		log.Printf("Room sweep reclaimed %d empty room(s)", removed)
	}
}
