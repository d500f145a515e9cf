package storage

import "marketsim/internal/model"

// EventSink receives batches of applied-command events.
type EventSink interface {
	PutEventBatch(events []model.EventRecord) error
}
