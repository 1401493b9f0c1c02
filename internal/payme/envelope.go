package payme

import "encoding/json"

// Envelope is the JSON-RPC request frame. A request counts as JSON-RPC only
// when the jsonrpc, method, and id keys are all present; anything else belongs
// to the legacy webhook path.
type Envelope struct {
	JSONRPC json.RawMessage `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
	ID      json.RawMessage `json:"id"`
}

func (e *Envelope) Recognized() bool {
	return len(e.JSONRPC) > 0 && e.Method != "" && len(e.ID) > 0
}

// ParseEnvelope decodes the request frame. The second return reports whether
// the body is a recognized JSON-RPC envelope.
func ParseEnvelope(body []byte) (*Envelope, bool) {
	var e Envelope
	if err := json.Unmarshal(body, &e); err != nil {
		return nil, false
	}
	return &e, e.Recognized()
}
