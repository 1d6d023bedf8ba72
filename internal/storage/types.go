package storage

import (
	"time"
)

// StartRecord anchors a tracking window for one owner.
type StartRecord struct {
	ID      string    `json:"id"`
	Owner   string    `json:"owner"`
	Start   time.Time `json:"start"`   // may be backdated by the user
	Created time.Time `json:"created"` // write time, orders the history
}

// Offer delivers snap on ch, replacing any snapshot the reader has not picked
// up yet. ch must be buffered and Offer must only be called by its single
// producer.
func Offer(ch chan Snapshot, snap Snapshot) {
	for {
		select {
		case ch <- snap:
			return
		default:
		}

		select {
		case <-ch:
		default:
		}
	}
}
