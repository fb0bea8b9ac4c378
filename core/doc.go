// Package core holds the shared value types and contracts of threadrun: the
// vendor wire objects (runs, messages, run steps), the server-sent stream
// event envelope, the API client contract consumed by the orchestration loop,
// and the ToolContext handed to local tools. Higher-level packages (run,
// thread, assistant, handler) depend on core only; core depends on nothing
// but logging.
package core
