package action

import (
	"context"
	"fmt"
	"time"

	"github.com/beevik/ntp"

	"goldrun"
)

// DefaultMaxOffset is 5s: a golden image baked with a clock further off
// than this produces certificates and logs that confuse every clone.
const DefaultMaxOffset = 5 * time.Second

// TimeSync verifies the host clock against an NTP server before state
// that embeds timestamps gets baked into the image.
type TimeSync struct {
	Server    string
	MaxOffset time.Duration

	// Query overrides the NTP query, for tests.
	Query func(server string) (*ntp.Response, error)
}

// Action returns the runnable step action.
func (t TimeSync) Action() goldrun.Action {
	return func(ctx context.Context) (string, error) {
		return t.run(ctx)
	}
}

func (t TimeSync) run(_ context.Context) (string, error) {
	maxOffset := t.MaxOffset
	if maxOffset <= 0 {
		maxOffset = DefaultMaxOffset
	}

	resp, err := t.query(t.Server)
	if err != nil {
		return "", fmt.Errorf("query ntp server %s: %w", t.Server, err)
	}
	if err := resp.Validate(); err != nil {
		return "", fmt.Errorf("ntp response from %s: %w", t.Server, err)
	}

	offset := resp.ClockOffset
	if offset < 0 {
		offset = -offset
	}
	summary := fmt.Sprintf("clock offset %v against %s (stratum %d)", resp.ClockOffset, t.Server, resp.Stratum)
	if offset > maxOffset {
		return summary, fmt.Errorf("clock offset %v exceeds %v", resp.ClockOffset, maxOffset)
	}
	return summary, nil
}

func (t TimeSync) query(server string) (*ntp.Response, error) {
	if t.Query != nil {
		return t.Query(server)
	}
	return ntp.Query(server)
}
