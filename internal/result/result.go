// Package result defines the uniform envelope every public engine
// operation returns.
//
// The envelope is the sole boundary contract for external callers: failures
// are data, never panics or error values escaping the engine surface.
// ok=false implies Errors is non-empty and Data is empty or partial;
// ok=true may still carry warnings.
package result

import "fmt"

// Result is the tagged outcome of an engine operation.
//
// Exactly one of the two variants is populated by the constructors:
// Ok (data + warnings) or Fail (ordered error messages). Direct struct
// literals are avoided outside tests so the invariant holds.
type Result struct {
	OK       bool           `json:"ok"`
	Data     map[string]any `json:"data"`
	Errors   []string       `json:"errors"`
	Warnings []string       `json:"warnings"`
}

// Ok builds a success result. A nil data map is normalized to an empty one
// so the envelope shape is stable for serialization.
func Ok(data map[string]any, warnings ...string) Result {
	if data == nil {
		data = map[string]any{}
	}
	return Result{
		OK:       true,
		Data:     data,
		Errors:   []string{},
		Warnings: append([]string{}, warnings...),
	}
}

// Fail builds a failure result from one or more ordered error messages.
func Fail(errors ...string) Result {
	return Result{
		OK:       false,
		Data:     map[string]any{},
		Errors:   append([]string{}, errors...),
		Warnings: []string{},
	}
}

// FailErr builds a failure result from error values, preserving order.
func FailErr(errs ...error) Result {
	messages := make([]string, 0, len(errs))
	for _, err := range errs {
		messages = append(messages, err.Error())
	}
	return Fail(messages...)
}

// Guard converts a panic escaping an operation into a generic failure
// result. Use as:
//
//	func (e *Engine) Op(...) (res Result) {
//		defer result.Guard("op_name", &res)
//		...
//	}
//
// Unexpected internal faults must never cross the public boundary as
// control flow.
func Guard(op string, res *Result) {
	if r := recover(); r != nil {
		*res = Fail(fmt.Sprintf("%s failed: %v", op, r))
	}
}
