package query

import (
	"encoding/json"
	"sort"
)

type DehydratedQuery struct {
	QueryKey Key   `json:"queryKey"`
	State    State `json:"state"`
}

// DehydratedState is the serializable snapshot embedded in a rendered page.
type DehydratedState struct {
	Queries []DehydratedQuery `json:"queries"`
}

// Dehydrate snapshots the given keys, or every entry when none are given.
// Keys that were never fetched are omitted.
func (c *Client) Dehydrate(keys ...Key) DehydratedState {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out DehydratedState
	if len(keys) == 0 {
		for _, e := range c.entries {
			out.Queries = append(out.Queries, DehydratedQuery{QueryKey: e.key, State: e.state})
		}
		sort.Slice(out.Queries, func(i, j int) bool {
			return out.Queries[i].QueryKey.String() < out.Queries[j].QueryKey.String()
		})
		return out
	}

	for _, k := range keys {
		if e, ok := c.entries[k.String()]; ok {
			out.Queries = append(out.Queries, DehydratedQuery{QueryKey: e.key, State: e.state})
		}
	}
	return out
}

// Find returns the snapshot state of key.
func (s DehydratedState) Find(key Key) (State, bool) {
	for _, q := range s.Queries {
		if q.QueryKey.String() == key.String() {
			return q.State, true
		}
	}
	return State{}, false
}

// Data returns the successful data of key converted to T. ok is false when the
// key is absent, failed, or holds another type.
func Data[T any](s DehydratedState, key Key) (T, bool) {
	var zero T
	st, found := s.Find(key)
	if !found || st.Status != StatusSuccess || st.Data == nil {
		return zero, false
	}
	v, ok := st.Data.(T)
	return v, ok
}

// JSON encodes the snapshot for the page payload.
func (s DehydratedState) JSON() ([]byte, error) {
	if s.Queries == nil {
		s.Queries = []DehydratedQuery{}
	}
	return json.Marshal(s)
}
