package upstream

import (
	"encoding/json"

	"github.com/bytedance/sonic"
)

// The event store wraps most payloads in {success, data, timestamp}. Older
// endpoints return the payload bare. decodePayload is the single place both
// shapes are handled; anything else fails loudly instead of falling through.
type envelope struct {
	Success   *bool           `json:"success"`
	Data      json.RawMessage `json:"data"`
	Timestamp string          `json:"timestamp"`
	Error     string          `json:"error"`
}

func decodePayload(op string, body []byte, out any) error {
	var env envelope
	if err := sonic.ConfigStd.Unmarshal(body, &env); err == nil && env.Success != nil {
		if !*env.Success {
			msg := env.Error
			if msg == "" {
				msg = "request failed"
			}
			return &Error{Kind: KindServer, Op: op, Message: msg}
		}
		if len(env.Data) == 0 {
			return &Error{Kind: KindDecode, Op: op, Message: "envelope has no data"}
		}
		if err := sonic.ConfigStd.Unmarshal(env.Data, out); err != nil {
			return &Error{Kind: KindDecode, Op: op, Message: "unexpected data shape", Err: err}
		}
		return nil
	}

	// Bare payload fallback.
	if err := sonic.ConfigStd.Unmarshal(body, out); err != nil {
		return &Error{Kind: KindDecode, Op: op, Message: "unexpected response shape", Err: err}
	}
	return nil
}
