package lib

/*
	This file implements the typed event outbox of the consensus core.

	Cross-module side effects (the election module learning about a new miner
	list, the treasury module receiving the term snapshot) are not performed by
	the core directly: the core appends typed events to an EventsTracker and
	the surrounding runtime drains them after the block commits. This keeps
	the core pure and testable without live collaborators.
*/

type EventType string

const (
	EventTypeNewMinerList       EventType = "new-miner-list"      // emitted on a term transition with the elected miner set
	EventTypeTermSnapshot       EventType = "term-snapshot"       // emitted on a term transition with per-miner production counters
	EventTypeIrreversibleBlock  EventType = "irreversible-block"  // emitted whenever the last irreversible block height advances
	EventTypeMiningInfoUpdated  EventType = "mining-info-updated" // emitted when a miner's commitment for the round is accepted
)

// Event is a single fire-and-forget notification produced by the consensus core
type Event struct {
	Type        EventType `json:"type"`        // the kind of event
	RoundNumber uint64    `json:"roundNumber"` // the round during which the event was produced
	TermNumber  uint64    `json:"termNumber"`  // the term during which the event was produced
	Payload     any       `json:"payload"`     // event specific data, json-marshallable
}

type Events []*Event

// EventsTracker accumulates the events produced while processing one block
type EventsTracker struct {
	Reference string // the block hash / height reference the events belong to
	Events    Events // the accumulated events
}

// Add() appends an event to the tracker
func (t *EventsTracker) Add(event *Event) ErrorI {
	if t == nil {
		return ErrNilEventTracker()
	}
	t.Events = append(t.Events, event)
	return nil
}

// Refer() sets the reference string for the tracker
func (t *EventsTracker) Refer(s string) {
	if t == nil {
		return
	}
	t.Reference = s
}

// Reset() returns the captured events and empties the tracker
func (t *EventsTracker) Reset() (e Events) {
	if t == nil {
		return
	}
	e = t.Events
	t.Events, t.Reference = nil, ""
	return
}

// NewMinerListPayload carries the elected miner public keys of a new term
type NewMinerListPayload struct {
	TermNumber uint64     `json:"termNumber"` // the term the miner list was elected for
	Miners     []HexBytes `json:"miners"`     // the ordered public keys of the elected miners
}

// TermSnapshotPayload carries per-miner production counters of the term that ended
type TermSnapshotPayload struct {
	TermNumber      uint64            `json:"termNumber"`      // the term that ended
	ProducedBlocks  map[string]uint64 `json:"producedBlocks"`  // pubkey hex -> blocks produced during the term
	MissedTimeSlots map[string]uint64 `json:"missedTimeSlots"` // pubkey hex -> time slots missed during the term
	Inactive        []string          `json:"inactive"`        // miners that crossed the configured missed slot threshold
}

// IrreversibleBlockPayload carries the new finality watermark
type IrreversibleBlockPayload struct {
	Height      uint64 `json:"height"`      // the new last irreversible block height
	RoundNumber uint64 `json:"roundNumber"` // the round during which the height was confirmed
}
