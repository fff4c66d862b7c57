package websocket

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionStart      Action = "start"
	ActionDraft      Action = "draft"
	ActionTranscript Action = "transcript"
	ActionAnswer     Action = "answer"
	ActionFocusLost  Action = "focus_lost"
	ActionCancel     Action = "cancel"
	ActionPing       Action = "ping"
)

// Request is every client message. Index names the question the client
// believes is current; Text carries the draft, transcript segment or answer.
type Request struct {
	Action Action `json:"action"`
	Index  int    `json:"index"`
	Text   string `json:"text"`
}

// ─── Events (Server → Client) ───────────────────────────────────────
// Session events are interview.Event values written as is. The types below
// cover what the transport itself answers.

type Event string

const (
	EventError Event = "error"
	EventPong  Event = "pong"
)

type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ErrorResponse struct {
	Event Event     `json:"event"`
	Data  ErrorData `json:"data"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
