// Command agentgraph compiles and runs one directed dataflow graph, read
// from a --spec path or, when none is given, a built-in example spec,
// against a single chat turn, streaming the result to stdout. It exists to
// exercise the compiler/executor/node stack end to end.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"

	"github.com/flowmesh/agentgraph/graph"
	_ "github.com/flowmesh/agentgraph/nodes"
	"github.com/flowmesh/agentgraph/providers/observability/slogobs"
)

func main() {
	specPath := flag.String("spec", "", "path to a graph spec JSON file (default: built-in example)")
	message := flag.String("message", "What is the capital of France?", "user message to seed the graph with")
	debug := flag.Bool("debug", false, "enable the debug event stream")
	observe := flag.Bool("observe", false, "mirror node spans and metrics through a slog-based observer (AIGO_LOG_FORMAT/AIGO_LOG_LEVEL)")
	flag.Parse()

	spec, err := loadSpec(*specPath)
	if err != nil {
		slog.Error("failed to load spec", "error", err)
		os.Exit(1)
	}
	spec.Debug = *debug

	g, err := graph.Compile(spec, *message, nil, nil)
	if err != nil {
		slog.Error("failed to compile graph", "error", err)
		os.Exit(1)
	}
	for _, f := range g.Findings {
		slog.Warn("compile finding", "node", f.NodeID, "severity", f.Severity, "message", f.Message)
	}

	chatLog := &graph.ChatLog{
		ChatID:      "cli-chat",
		ThreadID:    "cli-thread",
		Message:     *message,
		Debug:       *debug,
		DebugConfig: &graph.DebugConfig{},
	}

	var execOpts []graph.ExecutorOption
	if *observe {
		execOpts = append(execOpts, graph.WithObserver(slogobs.New()))
	}

	ctx := context.Background()
	for msg, err := range graph.Execute(ctx, g, chatLog, execOpts...) {
		if err != nil {
			slog.Error("execution error", "error", err)
			os.Exit(1)
		}
		switch msg.Type {
		case graph.MessageContent:
			chunk, ok := msg.Content.(graph.ChatCompletionChunk)
			if !ok || len(chunk.Choices) == 0 {
				continue
			}
			fmt.Print(chunk.Choices[0].Delta.Content)
		case graph.MessageDebug:
			if *debug {
				fmt.Fprintf(os.Stderr, "[debug] %+v\n", msg.Content)
			}
		case graph.MessageDebugSummary:
			if *debug {
				fmt.Fprintf(os.Stderr, "[debug_summary] %+v\n", msg.Content)
			}
		}
	}
	fmt.Println()
}

// loadSpec reads a graph.Spec from path, or falls back to a small
// built-in example wiring user_input straight to a send_message node so
// the command runs with no LLM credentials configured.
func loadSpec(path string) (*graph.Spec, error) {
	if path == "" {
		return exampleSpec(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var spec graph.Spec
	if err := json.Unmarshal(raw, &spec); err != nil {
		return nil, err
	}
	return &spec, nil
}

func exampleSpec() *graph.Spec {
	return &graph.Spec{
		Type:   "agent_flow",
		Master: "input",
		Nodes: []graph.NodeSpec{
			{ID: "input", Type: "user_input"},
			{ID: "reply", Type: "send_message", Data: map[string]any{
				"message": "received your message, thanks!",
			}},
		},
		Edges: []graph.EdgeSpec{
			{Source: "input", SourceHandle: "handle_user_message", Target: "reply", TargetHandle: "handle_send_extra"},
		},
	}
}
