package fault

import (
	"errors"
	"fmt"
	"sync"

	"avaneesh/satstate-go/pkg/field"
	"avaneesh/satstate-go/pkg/serializer"
)

var (
	ErrFaultInvariant  = errors.New("fault: response cannot recommend both safehold and standby")
	ErrInvalidResponse = errors.New("fault: handler must recommend safehold or standby")
	ErrNilFault        = errors.New("fault: nil fault")
)

// EnabledFieldName is the writable switch for all fault handling
const EnabledFieldName = "fault_handler.enabled"

// Response is the recommendation a fault policy makes for one control cycle.
// Safehold and standby are variants of one value and cannot both be set.
type Response int

const (
	ResponseNone Response = iota
	ResponseStandby
	ResponseSafehold
)

// String returns string representation of Response
func (r Response) String() string {
	switch r {
	case ResponseNone:
		return "None"
	case ResponseStandby:
		return "Standby"
	case ResponseSafehold:
		return "Safehold"
	default:
		return "Unknown"
	}
}

// Flags returns the recommendation as the two booleans mission logic consumes
func (r Response) Flags() (recommendSafehold, recommendStandby bool) {
	return r == ResponseSafehold, r == ResponseStandby
}

// ResponseFromFlags converts the boolean form back, rejecting the illegal pair
func ResponseFromFlags(recommendSafehold, recommendStandby bool) (Response, error) {
	switch {
	case recommendSafehold && recommendStandby:
		return ResponseNone, ErrFaultInvariant
	case recommendSafehold:
		return ResponseSafehold, nil
	case recommendStandby:
		return ResponseStandby, nil
	default:
		return ResponseNone, nil
	}
}

// Combine returns the more severe of two responses
func Combine(a, b Response) Response {
	return max(a, b)
}

// Policy maps a fault's state to a response
type Policy interface {
	ComputeResponse() Response
}

// PolicyFunc adapts a function to Policy
type PolicyFunc func() Response

// ComputeResponse calls fn
func (fn PolicyFunc) ComputeResponse() Response {
	return fn()
}

// SimpleHandler recommends a fixed response while its fault is faulted.
// An optional predicate restricts it to mission states where it applies.
type SimpleHandler struct {
	fault       *Fault
	recommended Response
	active      func() bool
}

// NewSimpleHandler creates a handler; the recommendation must be standby or safehold
func NewSimpleHandler(f *Fault, recommended Response, active func() bool) (*SimpleHandler, error) {
	if f == nil {
		return nil, ErrNilFault
	}
	if recommended != ResponseStandby && recommended != ResponseSafehold {
		return nil, fmt.Errorf("%w: got %s", ErrInvalidResponse, recommended)
	}
	return &SimpleHandler{
		fault:       f,
		recommended: recommended,
		active:      active,
	}, nil
}

// Fault returns the handled fault
func (h *SimpleHandler) Fault() *Fault {
	return h.fault
}

// ComputeResponse implements Policy
func (h *SimpleHandler) ComputeResponse() Response {
	if h.active != nil && !h.active() {
		return ResponseNone
	}
	if h.fault.IsFaulted() {
		return h.recommended
	}
	return ResponseNone
}

// MainHandler aggregates policies once per control cycle; safehold dominates
// standby. Handling is switched off through the fault_handler.enabled field.
type MainHandler struct {
	mu       sync.RWMutex
	policies []Policy
	enabled  *field.Field[bool]
	last     Response
}

// NewMainHandler creates an enabled handler over policies
func NewMainHandler(policies ...Policy) *MainHandler {
	enabled := field.NewWritable[bool](EnabledFieldName, serializer.NewBool())
	enabled.Set(true)
	return &MainHandler{
		policies: policies,
		enabled:  enabled,
	}
}

// EnabledField returns the switch field for registration
func (h *MainHandler) EnabledField() *field.Field[bool] {
	return h.enabled
}

// Add appends a policy
func (h *MainHandler) Add(p Policy) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.policies = append(h.policies, p)
}

// ComputeResponse implements Policy
func (h *MainHandler) ComputeResponse() Response {
	h.mu.Lock()
	defer h.mu.Unlock()

	response := ResponseNone
	if h.enabled.Get() {
		for _, p := range h.policies {
			response = Combine(response, p.ComputeResponse())
		}
	}
	h.last = response
	return response
}

// Last returns the response from the most recent ComputeResponse
func (h *MainHandler) Last() Response {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.last
}
