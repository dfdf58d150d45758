// Package protocol defines the messages exchanged between the controller,
// the aggregator and the workers, and the typed channels carrying them.
// Every message kind travels on its own channel; the controller merges the
// ones it cares about with a select instead of tagging a shared inbox.
package protocol

import (
	"github.com/molscreen/molscreen/pkg/codec"
	"github.com/molscreen/molscreen/result"
)

// Assignment is the controller's answer to a work request. NoMore set means
// the queue is drained and the worker should acknowledge and exit.
type Assignment struct {
	Threshold float64
	Unit      codec.UnitRef
	NoMore    bool
}

// WorkRequest asks the controller for the next unit. Reply carries exactly
// one Assignment back to the requesting worker.
type WorkRequest struct {
	WorkerID string
	Reply    chan<- Assignment
}

// ResultBatch is a worker's compact report for one unit: only the records
// that passed admission.
type ResultBatch struct {
	WorkerID string
	Records  []result.Record
}

// FinalReport is the aggregator's stop response.
type FinalReport struct {
	Records []result.Record
}

// Links wires the three roles together. The controller owns dispatch and
// shutdown sequencing; the aggregator owns results and the threshold; the
// workers only ever see their ends of Requests, Results and the handshake
// channels.
type Links struct {
	// PreprocessDone is closed by the controller once preparation finished;
	// closing broadcasts to every role at once.
	PreprocessDone chan struct{}

	// Ready carries one ack per role (aggregator and each worker) back to
	// the controller during the handshake barrier.
	Ready chan string

	// Requests carries work requests from all workers to the controller.
	Requests chan WorkRequest

	// Results carries result batches from workers to the aggregator.
	// Unbuffered on purpose: a worker's last batch is known to be delivered
	// before its done ack, so the drain barrier cannot outrun reporting.
	Results chan ResultBatch

	// Threshold carries tightened admission cutoffs from the aggregator to
	// the controller. Capacity one, latest value wins.
	Threshold chan float64

	// WorkerDone carries one ack per worker once it has seen NoMore.
	WorkerDone chan string

	// StopAggregator is closed by the controller after the drain barrier.
	StopAggregator chan struct{}

	// Final carries the aggregator's retained set back to the controller.
	Final chan FinalReport
}

// NewLinks builds the channel set for one job.
func NewLinks() *Links {
	return &Links{
		PreprocessDone: make(chan struct{}),
		Ready:          make(chan string),
		Requests:       make(chan WorkRequest),
		Results:        make(chan ResultBatch),
		Threshold:      make(chan float64, 1),
		WorkerDone:     make(chan string),
		StopAggregator: make(chan struct{}),
		Final:          make(chan FinalReport, 1),
	}
}

// PushThreshold publishes a new cutoff without ever blocking the
// aggregator. If the controller has not consumed the previous value yet it
// is replaced: thresholds only tighten, so the newest is always the one
// worth delivering.
func (l *Links) PushThreshold(v float64) {
	for {
		select {
		case l.Threshold <- v:
			return
		default:
			select {
			case <-l.Threshold:
			default:
			}
		}
	}
}
