package klingkit

import (
	"fmt"
	"net/http"
)

// Operation names a remote call in the routing table.
type Operation string

const (
	OpCreateElement   Operation = "create-element"
	OpCreateVoice     Operation = "create-voice"
	OpCustomElements  Operation = "custom-elements"
	OpPresetsElements Operation = "presets-elements"
	OpCustomVoices    Operation = "custom-voices"
	OpPresetsVoices   Operation = "presets-voices"
	OpDeleteElements  Operation = "delete-elements"
	OpDeleteVoices    Operation = "delete-voices"
)

// Route is the HTTP shape of an [Operation].
type Route struct {
	Method      string
	Path        string
	Description string
	// AcceptsID marks routes that take an optional trailing /{id} segment.
	AcceptsID bool
}

var routes = map[Operation]Route{
	OpCreateElement:   {Method: http.MethodPost, Path: "/v1/general/custom-elements", Description: "create a custom element"},
	OpCreateVoice:     {Method: http.MethodPost, Path: "/v1/general/custom-voices", Description: "register a custom voice"},
	OpCustomElements:  {Method: http.MethodGet, Path: "/v1/general/custom-elements", Description: "list custom elements"},
	OpPresetsElements: {Method: http.MethodGet, Path: "/v1/general/presets-elements", Description: "list preset elements"},
	OpCustomVoices:    {Method: http.MethodGet, Path: "/v1/general/custom-voices", Description: "list custom voices or fetch one by id", AcceptsID: true},
	OpPresetsVoices:   {Method: http.MethodGet, Path: "/v1/general/presets-voices", Description: "list preset voices"},
	OpDeleteElements:  {Method: http.MethodDelete, Path: "/v1/general/delete-elements", Description: "delete a custom element"},
	OpDeleteVoices:    {Method: http.MethodDelete, Path: "/v1/general/delete-voices", Description: "delete a custom voice"},
}

var operationOrder = []Operation{
	OpCreateElement,
	OpCreateVoice,
	OpCustomElements,
	OpPresetsElements,
	OpCustomVoices,
	OpPresetsVoices,
	OpDeleteElements,
	OpDeleteVoices,
}

// Operations lists every known operation in a stable order.
func Operations() []Operation {
	out := make([]Operation, len(operationOrder))
	copy(out, operationOrder)
	return out
}

// QueryOperations lists the operations reachable without a request body builder.
func QueryOperations() []Operation {
	return []Operation{
		OpCustomElements,
		OpPresetsElements,
		OpCustomVoices,
		OpPresetsVoices,
		OpDeleteElements,
		OpDeleteVoices,
	}
}

// RouteFor resolves op, failing with [ErrUnknownOperation].
func RouteFor(op Operation) (Route, error) {
	r, ok := routes[op]
	if !ok {
		return Route{}, fmt.Errorf("%w: %q", ErrUnknownOperation, op)
	}
	return r, nil
}

// ParseOperation validates a user-supplied operation name.
func ParseOperation(name string) (Operation, error) {
	op := Operation(name)
	if _, err := RouteFor(op); err != nil {
		return "", err
	}
	return op, nil
}
