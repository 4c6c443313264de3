// Package codec implements the JSON method-call framing used on the
// engine's platform channels: requests are {"method": ..., "args": ...}
// objects, replies are one-element arrays for success and
// [code, message, details] triples for errors.
package codec

import (
	"encoding/json"
	"fmt"
)

// MethodCall is a decoded platform-channel method invocation.
type MethodCall struct {
	Method string          `json:"method"`
	Args   json.RawMessage `json:"args,omitempty"`
}

// DecodeMethodCall parses a JSON method-call payload.
func DecodeMethodCall(data []byte) (*MethodCall, error) {
	var call MethodCall
	if err := json.Unmarshal(data, &call); err != nil {
		return nil, fmt.Errorf("malformed method call: %w", err)
	}
	if call.Method == "" {
		return nil, fmt.Errorf("method call missing method name")
	}
	return &call, nil
}

// ArgsMap decodes the call arguments as a string-keyed map. Calls without
// arguments yield an empty map.
func (c *MethodCall) ArgsMap() (map[string]interface{}, error) {
	if len(c.Args) == 0 {
		return map[string]interface{}{}, nil
	}
	var args map[string]interface{}
	if err := json.Unmarshal(c.Args, &args); err != nil {
		return nil, fmt.Errorf("method %s: arguments are not a map: %w", c.Method, err)
	}
	return args, nil
}

// EncodeSuccessEnvelope wraps a result value in the success framing.
func EncodeSuccessEnvelope(value interface{}) ([]byte, error) {
	return json.Marshal([1]interface{}{value})
}

// EncodeErrorEnvelope encodes an error reply with a machine code and a
// human-readable message. details may be nil.
func EncodeErrorEnvelope(code, message string, details interface{}) ([]byte, error) {
	return json.Marshal([3]interface{}{code, message, details})
}

// DecodeEnvelope splits a reply back into its success or error form.
// It is primarily used by tests and diagnostic logging.
func DecodeEnvelope(data []byte) (value interface{}, errCode string, errMessage string, err error) {
	var parts []json.RawMessage
	if err := json.Unmarshal(data, &parts); err != nil {
		return nil, "", "", fmt.Errorf("malformed envelope: %w", err)
	}
	switch len(parts) {
	case 1:
		var v interface{}
		if err := json.Unmarshal(parts[0], &v); err != nil {
			return nil, "", "", err
		}
		return v, "", "", nil
	case 3:
		var code, message string
		if err := json.Unmarshal(parts[0], &code); err != nil {
			return nil, "", "", err
		}
		if err := json.Unmarshal(parts[1], &message); err != nil {
			return nil, "", "", err
		}
		return nil, code, message, nil
	default:
		return nil, "", "", fmt.Errorf("envelope has %d elements", len(parts))
	}
}
