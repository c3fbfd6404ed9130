package health

import (
	"context"
	"fmt"

	"github.com/textileio/marketgate/market"
)

// DefaultMaxPending is the number of pending resolutions above which the
// market is considered degraded.
const DefaultMaxPending = 100

// Host reports whether the host node answers.
type Host interface {
	Up() bool
	Version() string
}

// Resolutions lists pending or settled resolutions.
type Resolutions interface {
	GetResolutions(pending bool) ([]market.Resolution, error)
}

// Module exposes the health api.
type Module struct {
	host        Host
	resolutions Resolutions
	maxPending  int
}

// Status represents the node's health status
type Status int

const (
	// Ok specifies the node is healthy
	Ok Status = iota
	// Degraded specifies there are problems with the node health
	Degraded
	// Error specifies there was an error when determining node health
	Error
)

// StatusStr maps statuses to human readable names.
var StatusStr = map[Status]string{
	Ok:       "ok",
	Degraded: "degraded",
	Error:    "error",
}

func (s Status) String() string {
	return StatusStr[s]
}

// Report is the result of a health check.
type Report struct {
	Status   Status   `json:"status"`
	Messages []string `json:"messages,omitempty"`
}

// New creates a new health module. host can be nil if the host node
// isn't monitored.
func New(host Host, resolutions Resolutions, maxPending int) *Module {
	if maxPending <= 0 {
		maxPending = DefaultMaxPending
	}
	return &Module{
		host:        host,
		resolutions: resolutions,
		maxPending:  maxPending,
	}
}

// Check returns the current health status and any messages related to the status.
func (m *Module) Check(ctx context.Context) (Report, error) {
	var messages []string
	if m.host != nil && !m.host.Up() {
		messages = append(messages, "host node isn't answering")
	}
	pending, err := m.resolutions.GetResolutions(true)
	if err != nil {
		return Report{Status: Error}, fmt.Errorf("getting pending resolutions: %s", err)
	}
	if len(pending) > m.maxPending {
		messages = append(messages, fmt.Sprintf("%d resolutions are pending", len(pending)))
	}
	status := Ok
	if len(messages) > 0 {
		status = Degraded
	}
	return Report{Status: status, Messages: messages}, nil
}
