package automate

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kv-thuringen/kvt-crawler/internal/persist"
)

// DefaultStateKey is the session key the run state is kept under.
const DefaultStateKey = "psychologen_autorun_v1"

// State is the persisted progress of a run. It exists only while a run is
// active.
type State struct {
	Running           bool      `json:"running"`
	InterVisitDelayMS int       `json:"interVisitDelayMs"`
	SettleDelayMS     int       `json:"settleDelayMs"`
	Cursor            int       `json:"cursor"`
	TotalVisited      int       `json:"totalVisited"`
	StartedAt         time.Time `json:"startedAt"`
	LastListURL       *string   `json:"lastListUrl"`
}

// LoadState reads the run state. An unreadable payload counts as no state.
func LoadState(ctx context.Context, session persist.Scope, key string) (*State, bool, error) {
	raw, ok, err := session.Get(ctx, key)
	if err != nil {
		return nil, false, fmt.Errorf("failed to read run state: %w", err)
	}
	if !ok {
		return nil, false, nil
	}
	var st State
	if err := json.Unmarshal(raw, &st); err != nil {
		return nil, false, nil
	}
	return &st, true, nil
}

func saveState(ctx context.Context, session persist.Scope, key string, st *State) error {
	b, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("failed to encode run state: %w", err)
	}
	if err := session.Set(ctx, key, b); err != nil {
		return fmt.Errorf("failed to write run state: %w", err)
	}
	return nil
}

// Stop marks the active run as stopped. The run notices at its next step
// boundary; a visit in flight and its delay always complete. It works from
// any process sharing the session scope.
func Stop(ctx context.Context, session persist.Scope, key string) (*State, error) {
	st, ok, err := LoadState(ctx, session, key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotStarted
	}
	st.Running = false
	if err := saveState(ctx, session, key, st); err != nil {
		return nil, err
	}
	return st, nil
}
