package bridge

import (
	"encoding/json"
	"fmt"

	"gotokenbridge/storage"
	"gotokenbridge/types"
)

type eventPayload interface {
	EventName() string
}

// eventLog persists emitted events with a sequence number, in the same
// transaction as the state change that produced them.
type eventLog struct{}

func (eventLog) append(tx storage.Tx, payload eventPayload) (types.Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return types.Event{}, fmt.Errorf("cannot marshal %s event: %w", payload.EventName(), err)
	}

	last, err := getUint(tx, lastEventKey)
	if err != nil {
		return types.Event{}, err
	}

	ev := types.Event{Seq: last + 1, Name: payload.EventName(), Payload: raw}
	if err := setJSON(tx, eventKey(ev.Seq), ev); err != nil {
		return types.Event{}, err
	}
	if err := setUint(tx, lastEventKey, ev.Seq); err != nil {
		return types.Event{}, err
	}
	return ev, nil
}

// list returns up to limit events with Seq >= from.
func (eventLog) list(r storage.Reader, from uint64, limit int) ([]types.Event, error) {
	events := make([]types.Event, 0)
	err := r.Seek(eventPrefix, eventKey(from), func(key string, value []byte) error {
		var ev types.Event
		if err := json.Unmarshal(value, &ev); err != nil {
			return fmt.Errorf("cannot unmarshal %s: %w", key, err)
		}
		events = append(events, ev)
		if limit > 0 && len(events) >= limit {
			return storage.ErrStopIteration
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}
