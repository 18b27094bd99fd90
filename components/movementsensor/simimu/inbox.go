package simimu

import (
	"time"

	"github.com/montanaflynn/stats"

	"go.viam.com/imusim/msgs"
)

// inbox is a FIFO of link data bounded at capacity. When full the oldest entry is dropped.
// It is not safe for concurrent use; the owning IMU guards it with its mutex.
type inbox struct {
	capacity int
	entries  []*msgs.LinkData
	dropped  int
}

func newInbox(capacity int) *inbox {
	// one spare slot for the entry pushed past capacity
	return &inbox{capacity: capacity, entries: make([]*msgs.LinkData, 0, capacity+1)}
}

func (in *inbox) push(data *msgs.LinkData) {
	in.entries = append(in.entries, data)
	if len(in.entries) > in.capacity {
		// drop the oldest in place
		copy(in.entries, in.entries[1:])
		in.entries[len(in.entries)-1] = nil
		in.entries = in.entries[:len(in.entries)-1]
		in.dropped++
	}
}

func (in *inbox) len() int {
	return len(in.entries)
}

func (in *inbox) snapshots() []*msgs.LinkData {
	return append([]*msgs.LinkData(nil), in.entries...)
}

// InboxStats summarizes the link data currently held by the inbox.
type InboxStats struct {
	Count   int `json:"count"`
	Dropped int `json:"dropped"`
	// Newest is the simulation time of the most recent link data.
	Newest         time.Duration `json:"newest"`
	MeanInterval   time.Duration `json:"mean_interval"`
	IntervalStdDev time.Duration `json:"interval_std_dev"`
}

func (in *inbox) stats() InboxStats {
	s := InboxStats{Count: len(in.entries), Dropped: in.dropped}
	if len(in.entries) == 0 {
		return s
	}
	s.Newest = in.entries[len(in.entries)-1].Time
	if len(in.entries) < 2 {
		return s
	}
	intervals := make(stats.Float64Data, 0, len(in.entries)-1)
	for i := 1; i < len(in.entries); i++ {
		intervals = append(intervals, float64(in.entries[i].Time-in.entries[i-1].Time))
	}
	if mean, err := intervals.Mean(); err == nil {
		s.MeanInterval = time.Duration(mean)
	}
	if sd, err := intervals.StandardDeviation(); err == nil {
		s.IntervalStdDev = time.Duration(sd)
	}
	return s
}
