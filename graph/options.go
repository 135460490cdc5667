package graph

import "github.com/flowmesh/agentgraph/providers/observability"

// ExecutorOption configures one call to Execute in the functional-options
// style: each option mutates an unexported executorConfig.
type ExecutorOption func(*executorConfig)

type executorConfig struct {
	observer observability.Provider
}

// WithObserver wires an observability Provider into the executor's own
// graph/node lifecycle spans, metrics, and the debug pipeline's log
// backend sink (§4.8). Without this option the executor falls back to
// whatever Provider is already carried on the execution context, if
// any, and is otherwise a no-op (nil-guarded throughout).
func WithObserver(provider observability.Provider) ExecutorOption {
	return func(c *executorConfig) {
		c.observer = provider
	}
}

func newExecutorConfig(opts []ExecutorOption) *executorConfig {
	c := &executorConfig{}
	for _, opt := range opts {
		opt(c)
	}
	return c
}
