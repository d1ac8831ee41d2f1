package service

import (
	"sync/atomic"
	"time"
)

// State — живость двух циклов бота и состояние websocket-потока.
type State struct {
	startedAt time.Time

	wsConnected    atomic.Bool
	lastSignalUnix atomic.Int64 // unix seconds
	lastTrailUnix  atomic.Int64
}

func NewState() *State {
	return &State{startedAt: time.Now()}
}

func (s *State) SetWSConnected(v bool) { s.wsConnected.Store(v) }
func (s *State) WSConnected() bool     { return s.wsConnected.Load() }

func (s *State) TouchSignalCycle() { s.lastSignalUnix.Store(time.Now().Unix()) }
func (s *State) TouchTrailCycle()  { s.lastTrailUnix.Store(time.Now().Unix()) }

func (s *State) LastSignalCycle() time.Time { return unixOrZero(s.lastSignalUnix.Load()) }
func (s *State) LastTrailCycle() time.Time  { return unixOrZero(s.lastTrailUnix.Load()) }

// Ready: хотя бы один полный цикл сигналов завершился.
func (s *State) Ready() bool { return s.lastSignalUnix.Load() > 0 }

func (s *State) Uptime() time.Duration { return time.Since(s.startedAt) }

func unixOrZero(sec int64) time.Time {
	if sec == 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0)
}
