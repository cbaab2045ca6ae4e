package apiclient

import (
	"encoding/json"
	"fmt"
)

// Response is the parsed JSON envelope returned by the backend. Payload
// fields sit next to "ok" and are read with Decode.
type Response struct {
	OK     bool
	Msg    string
	fields map[string]json.RawMessage
}

func parseResponse(body []byte) (*Response, error) {
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	resp := &Response{fields: fields}
	if raw, ok := fields["ok"]; ok {
		if err := json.Unmarshal(raw, &resp.OK); err != nil {
			return nil, fmt.Errorf("%w: ok field is not a boolean", ErrMalformedResponse)
		}
	}
	resp.Msg = firstString(fields, "msg", "message", "error")
	return resp, nil
}

func firstString(fields map[string]json.RawMessage, keys ...string) string {
	for _, key := range keys {
		raw, ok := fields[key]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil && s != "" {
			return s
		}
	}
	return ""
}

// Err returns an ApplicationError when the backend reported ok:false
func (r *Response) Err() error {
	if r.OK {
		return nil
	}
	msg := r.Msg
	if msg == "" {
		msg = "request was not accepted"
	}
	return &ApplicationError{Message: msg}
}

// Has reports whether the envelope carries field
func (r *Response) Has(field string) bool {
	_, ok := r.fields[field]
	return ok
}

// Decode unmarshals the named field into v
func (r *Response) Decode(field string, v any) error {
	raw, ok := r.fields[field]
	if !ok {
		return fmt.Errorf("%w: missing field %q", ErrMalformedResponse, field)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: field %q: %v", ErrMalformedResponse, field, err)
	}
	return nil
}
