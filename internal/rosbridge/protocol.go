package rosbridge

import "encoding/json"

// rosbridge v2 operation names.
const (
	opSubscribe   = "subscribe"
	opUnsubscribe = "unsubscribe"
	opPublish     = "publish"
	opStatus      = "status"
)

// subscribeOp asks the server to forward a topic. A queue length of one means
// the server drops older messages for a slow client instead of buffering;
// only the latest sample matters for display.
type subscribeOp struct {
	Op          string `json:"op"`
	ID          string `json:"id"`
	Topic       string `json:"topic"`
	Type        string `json:"type,omitempty"`
	QueueLength int    `json:"queue_length"`
}

type unsubscribeOp struct {
	Op    string `json:"op"`
	ID    string `json:"id"`
	Topic string `json:"topic"`
}

// incoming is any server-to-client frame. Msg carries the ROS message for
// publish frames and a human readable string for status frames.
type incoming struct {
	Op    string          `json:"op"`
	ID    string          `json:"id,omitempty"`
	Topic string          `json:"topic,omitempty"`
	Level string          `json:"level,omitempty"`
	Msg   json.RawMessage `json:"msg,omitempty"`
}

// statusText returns the status message, tolerating servers that send an
// object instead of a string.
func (in incoming) statusText() string {
	var s string
	if err := json.Unmarshal(in.Msg, &s); err == nil {
		return s
	}
	return string(in.Msg)
}
