package rt

import "fmt"

// JavaError is a Java error: a handle to a Throwable instance. Unlike
// native errors it is never wrapped with fmt.Errorf — the
// interpreter needs the raw class/handle to match it against exception
// tables without parsing strings. ClassName/Message are set when the
// error is manufactured before an Object handle exists yet (e.g. during
// NoClassDefFoundError construction, before the class registry itself can
// be consulted); Object is set once the interpreter has materialized the
// actual Throwable instance.
type JavaError struct {
	ClassName string
	Message   string
	Object    ObjectHandle
	Stack     []StackFrameInfo
}

func (e *JavaError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.ClassName, e.Message)
	}
	return e.ClassName
}

// VerifyError is the native error produced by the verifier. It is never
// catchable by Java code.
type VerifyError struct {
	Kind    string
	OpIndex int
	Detail  string
}

func (e *VerifyError) Error() string { return fmt.Sprintf("%s: %s", e.Kind, e.Detail) }

const (
	ErrCodeFellOffMethod = "CodeFellOffMethod"
	ErrVerifyTypeWrong   = "VerifyTypeWrong"
	ErrVerifyCountWrong  = "VerifyCountWrong"
)

// InterpError is a fatal-to-the-frame native error raised by the
// interpreter itself: invalid descriptors, v-table lookup failure,
// invalid bytecode shapes caught too late for the verifier to have
// rejected up front.
type InterpError struct {
	Kind   string
	Detail string
}

func (e *InterpError) Error() string { return fmt.Sprintf("%s: %s", e.Kind, e.Detail) }

const (
	ErrVTableLookupFailed = "VTableLookupFailed"
	ErrStackOverflow      = "StackOverflow"
	ErrNoSuchMethod       = "NoSuchMethod"
)
