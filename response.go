package klingkit

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
)

// Envelope is the common JSON body returned by the API and the gateway.
//
// Gateways report their own failures in Error, either as a bare string or as an OpenAI-style
// object. A non-numeric code is kept in CodeText with Code left nil.
type Envelope struct {
	Code      *int
	CodeText  string
	Message   string
	RequestID string
	Data      json.RawMessage
	Error     *GatewayError
}

// GatewayError is the error a proxying gateway returns.
type GatewayError struct {
	Message string `json:"message"`
	Type    string `json:"type,omitempty"`
}

// UnmarshalJSON decodes the envelope leniently: code may be a number or a string, error a
// string or an object, and message/request_id any scalar.
func (e *Envelope) UnmarshalJSON(b []byte) error {
	var raw struct {
		Code      json.RawMessage `json:"code"`
		Message   json.RawMessage `json:"message"`
		RequestID json.RawMessage `json:"request_id"`
		Data      json.RawMessage `json:"data"`
		Error     json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	*e = Envelope{
		Message:   scalarText(raw.Message),
		RequestID: scalarText(raw.RequestID),
		Data:      raw.Data,
		Error:     decodeGatewayError(raw.Error),
	}
	if isNull(raw.Data) {
		e.Data = nil
	}
	if text := scalarText(raw.Code); text != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(text)); err == nil {
			e.Code = &n
		} else {
			e.CodeText = text
		}
	}
	return nil
}

func decodeGatewayError(raw json.RawMessage) *GatewayError {
	switch string(bytes.TrimSpace(raw)) {
	case "", "null", "false", `""`:
		return nil
	}
	var obj GatewayError
	if err := json.Unmarshal(raw, &obj); err == nil {
		return &obj
	}
	if text := scalarText(raw); text != "" {
		return &GatewayError{Message: text}
	}
	return &GatewayError{Message: string(raw)}
}

// Response is a decoded API reply. Body holds the payload verbatim.
type Response struct {
	Operation  Operation
	StatusCode int
	// RequestID is the X-Request-Id this client sent, not the server's request_id.
	RequestID string
	Envelope  Envelope
	Body      []byte
}

// Result holds the identifiers a successful call may return.
type Result struct {
	TaskID     string
	TaskStatus string
	ElementID  string
	VoiceID    string
}

// Succeeded reports whether the response is a success: HTTP 2xx and code 0 when a code is
// present, otherwise a SUCCESS or SUCCEED message.
func (r *Response) Succeeded() bool {
	if r == nil {
		return false
	}
	if r.StatusCode < http.StatusOK || r.StatusCode >= http.StatusMultipleChoices {
		return false
	}
	env := r.Envelope
	if env.Error != nil {
		return false
	}
	if env.Code != nil {
		return *env.Code == 0
	}
	if env.CodeText != "" {
		return false
	}
	return isSuccessMessage(env.Message)
}

// Message returns the human-readable status from the envelope or gateway error.
func (r *Response) Message() string {
	if r == nil {
		return ""
	}
	if r.Envelope.Error != nil && r.Envelope.Error.Message != "" {
		return r.Envelope.Error.Message
	}
	if r.Envelope.Message == "" {
		return r.Envelope.CodeText
	}
	return r.Envelope.Message
}

// Result extracts task, element and voice identifiers from data.
// Numeric identifiers are rendered in decimal.
func (r *Response) Result() Result {
	if r == nil || len(r.Envelope.Data) == 0 {
		return Result{}
	}
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(r.Envelope.Data, &fields); err != nil {
		return Result{}
	}
	return Result{
		TaskID:     scalarField(fields, "task_id"),
		TaskStatus: scalarField(fields, "task_status"),
		ElementID:  scalarField(fields, "element_id"),
		VoiceID:    scalarField(fields, "voice_id"),
	}
}

// PrettyBody re-indents the raw body for display; non-JSON payloads are returned as-is.
func (r *Response) PrettyBody() string {
	if r == nil {
		return ""
	}
	var out bytes.Buffer
	if err := json.Indent(&out, r.Body, "", "  "); err != nil {
		return string(r.Body)
	}
	return out.String()
}

func isSuccessMessage(msg string) bool {
	switch strings.ToUpper(strings.TrimSpace(msg)) {
	case "SUCCESS", "SUCCEED":
		return true
	default:
		return false
	}
}

var errNotObject = errors.New("body is not a JSON object")

func decodeEnvelope(raw []byte, env *Envelope) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return errNotObject
	}
	return json.Unmarshal(trimmed, env)
}

func scalarField(fields map[string]json.RawMessage, key string) string {
	return scalarText(fields[key])
}

// scalarText renders a JSON string or number as text; anything else is "".
func scalarText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
