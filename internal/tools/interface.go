// Package tools defines the retrieval tools the agent can call and adapts
// them to Eino's tool contract. Each tool takes one free-text query and
// returns plain text for the model to read.
package tools

import (
	"context"
	"errors"
)

// ErrToolInvocation wraps a failure inside a tool. The agent sees it as an
// observation beginning with [ObservationErrorPrefix], never as an error
// that aborts the loop.
var ErrToolInvocation = errors.New("tools: tool invocation failed")

// ObservationErrorPrefix starts the observation returned for a failed call.
const ObservationErrorPrefix = "ERREUR"

// Tool is a retrieval capability exposed to the agent.
type Tool interface {
	// Name is the identifier registered with the model.
	Name() string

	// Description is sent to the model as part of the tool schema.
	Description() string

	// Invoke runs the tool for query.
	Invoke(ctx context.Context, query string) (string, error)
}
