package encoder

// Request actions.
const (
	ActionInit  = "init"
	ActionWrite = "write"
	ActionReset = "reset"
)

// Response types.
const (
	TypeInitialized = "initialized"
	TypeWrote       = "wrote"
	TypeErrored     = "errored"
)

// Request is a message sent to the compression worker.
type Request struct {
	Action   string `json:"action"`
	ID       int    `json:"id,omitempty"`
	Data     string `json:"data,omitempty"`
	StreamID int    `json:"streamId"`
}

// Response is a message received from the compression worker. StreamID is
// nil on errors not tied to a stream.
type Response struct {
	Type                 string `json:"type"`
	Version              string `json:"version,omitempty"`
	ID                   int    `json:"id,omitempty"`
	StreamID             *int   `json:"streamId,omitempty"`
	Result               []byte `json:"result,omitempty"`
	Trailer              []byte `json:"trailer,omitempty"`
	AdditionalBytesCount int    `json:"additionalBytesCount,omitempty"`
	Error                string `json:"error,omitempty"`
}

// Transport carries requests to a worker and its responses back, both in
// order.
type Transport interface {
	Post(Request)
	Responses() <-chan Response
	Close() error
}
