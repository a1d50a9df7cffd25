package controller

import "fmt"

// AgentUnavailableError is returned when an agent RPC fails after
// retries. Recovery: skip the agent's contribution this epoch (§7).
type AgentUnavailableError struct {
	Agent string
	Cause error
}

func (e *AgentUnavailableError) Error() string {
	return fmt.Sprintf("controller: agent %s unavailable: %v", e.Agent, e.Cause)
}

func (e *AgentUnavailableError) Unwrap() error { return e.Cause }
