package api

// --- Data Structures for WebSocket Messages ---

// ErrorAck is the optional inline notification sent back to a sender whose
// message failed validation. The connection stays open.
type ErrorAck struct {
	Error string `json:"error"`
}
