// Package a2a defines the JSON-RPC 2.0 envelope used for Agent-to-Agent calls.
package a2a

import (
	"fmt"
	"strconv"
)

// Version is the only protocol version accepted on the wire.
const Version = "2.0"

// Error codes, JSON-RPC 2.0 convention. All agents share this taxonomy.
const (
	CodeInvalidRequest = -32600 // malformed envelope
	CodeMethodNotFound = -32601 // unknown method
	CodeInvalidParams  = -32602 // missing or ill-typed parameters
	CodeInternal       = -32603 // unexpected failure inside the handler
	CodeAgentError     = -32000 // evaluation failure, unsupported input, upstream API failure
)

// Request is the inbound envelope. ID is caller-supplied (number, string, or
// null) and is echoed back unchanged.
type Request struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  Params `json:"params,omitempty"`
	ID      any    `json:"id"`
}

// Response is the outbound envelope. Exactly one of Result/Error is non-null.
type Response struct {
	JSONRPC string `json:"jsonrpc"`
	Result  any    `json:"result,omitempty"`
	Error   *Error `json:"error,omitempty"`
	ID      any    `json:"id"`
}

// Error is the envelope error member.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface so agents can return envelope errors
// directly from Dispatch.
func (e *Error) Error() string {
	return fmt.Sprintf("a2a error %d: %s", e.Code, e.Message)
}

// Errorf builds an envelope error with the given code.
func Errorf(code int, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// InvalidParams builds a -32602 error.
func InvalidParams(format string, args ...any) *Error {
	return Errorf(CodeInvalidParams, format, args...)
}

// AgentErrorf builds a -32000 error.
func AgentErrorf(format string, args ...any) *Error {
	return Errorf(CodeAgentError, format, args...)
}

// MethodNotFound builds the -32601 error with the literal method name.
func MethodNotFound(method string) *Error {
	return Errorf(CodeMethodNotFound, "Method not found: %s", method)
}

// NewResult builds a success response echoing the request ID.
func NewResult(id, result any) Response {
	return Response{JSONRPC: Version, Result: result, ID: id}
}

// NewError builds an error response echoing the request ID.
func NewError(id any, err *Error) Response {
	return Response{JSONRPC: Version, Error: err, ID: id}
}

// Params is the request parameter map with typed accessors. JSON numbers
// decode as float64; the accessors normalize the common cases.
type Params map[string]any

// String returns the string parameter or the default when absent.
// Returns an error when present but not a string.
func (p Params) String(key, def string) (string, error) {
	v, ok := p[key]
	if !ok || v == nil {
		return def, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", InvalidParams("parameter %q must be a string", key)
	}
	return s, nil
}

// RequireString returns the string parameter, failing when absent or empty.
func (p Params) RequireString(key string) (string, error) {
	s, err := p.String(key, "")
	if err != nil {
		return "", err
	}
	if s == "" {
		return "", InvalidParams("parameter %q is required", key)
	}
	return s, nil
}

// Float returns the numeric parameter or the default when absent.
// Numeric strings are accepted for interoperability with loose callers.
func (p Params) Float(key string, def float64) (float64, error) {
	v, ok := p[key]
	if !ok || v == nil {
		return def, nil
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, InvalidParams("parameter %q must be a number", key)
		}
		return f, nil
	default:
		return 0, InvalidParams("parameter %q must be a number", key)
	}
}

// RequireFloat returns the numeric parameter, failing when absent.
func (p Params) RequireFloat(key string) (float64, error) {
	if _, ok := p[key]; !ok {
		return 0, InvalidParams("parameter %q is required", key)
	}
	return p.Float(key, 0)
}

// Int returns the integer parameter or the default when absent.
func (p Params) Int(key string, def int) (int, error) {
	f, err := p.Float(key, float64(def))
	if err != nil {
		return 0, err
	}
	return int(f), nil
}

// Bool returns the boolean parameter or the default when absent.
func (p Params) Bool(key string, def bool) (bool, error) {
	v, ok := p[key]
	if !ok || v == nil {
		return def, nil
	}
	b, ok := v.(bool)
	if !ok {
		return false, InvalidParams("parameter %q must be a boolean", key)
	}
	return b, nil
}

// StringSlice returns the string-array parameter or the default when absent.
func (p Params) StringSlice(key string, def []string) ([]string, error) {
	v, ok := p[key]
	if !ok || v == nil {
		return def, nil
	}
	raw, ok := v.([]any)
	if !ok {
		return nil, InvalidParams("parameter %q must be an array of strings", key)
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		s, ok := item.(string)
		if !ok {
			return nil, InvalidParams("parameter %q must be an array of strings", key)
		}
		out = append(out, s)
	}
	return out, nil
}

// Map returns the object parameter or nil when absent.
func (p Params) Map(key string) (map[string]any, error) {
	v, ok := p[key]
	if !ok || v == nil {
		return nil, nil
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, InvalidParams("parameter %q must be an object", key)
	}
	return m, nil
}
