package graph

// Reserved handle keys shared between the executor and the built-in node
// types in package nodes (§6 "reserved handle naming"). Input handles are
// hyphenated, free/output handles are underscored; both styles are kept
// exactly as the convention names them rather than normalized to one case.
const (
	HandleClientProvider  = "handle-client-provider"
	HandleChat            = "handle-chat"
	HandleSystemContext   = "handle-system-context"
	HandleUserMessage     = "handle_user_message"
	HandleUserFiles       = "handle_user_files"
	HandleUserImages      = "handle_user_images"
	HandleList            = "handle_list"
	HandleLoop            = "handle_loop"
	HandleParserInput     = "handle_parser_input"
	HandleSendExtra       = "handle_send_extra"
	HandleExecutionContent = "handle_execution_content"
	HandleExecutionExtras  = "handle_execution_extras"
)
