// Package client provides the orchestration layer between raw LLM provider calls
// and higher-level AI interaction patterns. It manages conversation state, tool
// registration, observability, cost tracking, and structured output in a single
// Client value. Its configuration is fixed by [New] except for the system prompt
// ([Client.AppendToSystemPrompt]) and the default output schema
// ([Client.SetDefaultOutputSchema]).
//
// The primary entry point is [New], which accepts an [ai.Provider] and a set of
// functional options (e.g. [WithMemory], [WithTools], [WithSystemPrompt]).
// For type-safe structured responses, use [NewStructured] or [FromBaseClient].
package client
