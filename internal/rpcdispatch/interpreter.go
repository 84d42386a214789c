// Package rpcdispatch registers scripted handlers keyed by glob path and
// method set, and invokes them through an opaque embedded-scripting
// boundary: load-file, call-function-with-table-arguments, and
// table-to-tree marshalling. LuaInterpreter is the bundled runtime,
// backed by an embedded Lua VM; NopInterpreter remains available for
// callers that configure no script directory.
package rpcdispatch

// ScriptRegistration is one handler a script file registers: the glob
// path it answers for, the HTTP methods it accepts, and an opaque
// reference the Interpreter uses to find the function again at call time.
type ScriptRegistration struct {
	Glob    string
	Methods []string
	Handler interface{}
}

// CallResult is the normalised form of the accepted Lua-style return
// shapes: (true), (table), (true, table), (false), (false, string),
// (false, table).
type CallResult struct {
	OK      bool
	Output  map[string]interface{}
	Message string
}

// Interpreter is the embedded-scripting capability: loading script files
// and invoking a previously loaded handler with a table of named inputs.
// It is process-wide and not re-entrant; Dispatcher serialises calls
// through a single mutex, matching the "one mutex held for the entire
// push-args -> pcall -> pop-returns sequence" concurrency contract.
type Interpreter interface {
	LoadScript(path string) ([]ScriptRegistration, error)
	Call(handler interface{}, input map[string]interface{}, path, method string) (CallResult, error)
}

// NopInterpreter rejects every call, letting the dispatcher and its
// registry be exercised without a scripting runtime wired in.
type NopInterpreter struct{}

func (NopInterpreter) LoadScript(path string) ([]ScriptRegistration, error) {
	return nil, nil
}

func (NopInterpreter) Call(handler interface{}, input map[string]interface{}, path, method string) (CallResult, error) {
	return CallResult{OK: false, Message: "no interpreter configured"}, nil
}
