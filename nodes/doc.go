// Package nodes implements the built-in node types dispatched by the
// compiler via graph.Register: user_input, text, parser, fetch, client,
// llm, chat, send_message, end, loop, inner, and conditional. Every type
// self-registers in its own init and is otherwise a plain graph.Node
// built on graph.Base's caching contract.
package nodes
