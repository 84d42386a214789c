package rpcdispatch

import (
	"fmt"
	"strings"
	"sync"

	lua "github.com/yuin/gopher-lua"
)

// LuaInterpreter is the embedded-scripting runtime behind Interpreter: one
// persistent lua.LState loads every script file's returned handler table
// once, and Call pushes (input table, path, method) onto it exactly as
// original_source/rpc.c's rest_rpc_execute invokes a registered Lua
// function, then interprets the same six accepted return shapes.
type LuaInterpreter struct {
	mu sync.Mutex
	L  *lua.LState
}

// NewLuaInterpreter opens a fresh Lua state with the standard library
// loaded, ready for LoadScript calls.
func NewLuaInterpreter() *LuaInterpreter {
	L := lua.NewState()
	L.OpenLibs()
	return &LuaInterpreter{L: L}
}

// Close releases the underlying Lua state.
func (li *LuaInterpreter) Close() {
	li.L.Close()
}

// LoadScript runs one .lua file and registers every entry of the table it
// returns, matching rest_rpc_init's "table of {path=string, methods=
// {string,}, handler=fn}" convention. Non-.lua files are silently
// skipped, mirroring the original's directory scan filtering by
// extension.
func (li *LuaInterpreter) LoadScript(path string) ([]ScriptRegistration, error) {
	if !strings.HasSuffix(path, ".lua") {
		return nil, nil
	}

	li.mu.Lock()
	defer li.mu.Unlock()

	top := li.L.GetTop()
	if err := li.L.DoFile(path); err != nil {
		return nil, fmt.Errorf("rpcdispatch: loading %s: %w", path, err)
	}
	if li.L.GetTop() != top+1 {
		return nil, fmt.Errorf("rpcdispatch: %s did not return exactly one value", path)
	}
	ret := li.L.Get(-1)
	li.L.Pop(1)

	tbl, ok := ret.(*lua.LTable)
	if !ok {
		return nil, fmt.Errorf("rpcdispatch: %s did not return a table", path)
	}

	var regs []ScriptRegistration
	var loadErr error
	tbl.ForEach(func(_, v lua.LValue) {
		if loadErr != nil {
			return
		}
		entry, ok := v.(*lua.LTable)
		if !ok {
			return
		}
		glob := entry.RawGetString("path")
		if glob.Type() != lua.LTString {
			loadErr = fmt.Errorf("rpcdispatch: %s: handler entry missing string path", path)
			return
		}
		fn, ok := entry.RawGetString("handler").(*lua.LFunction)
		if !ok {
			loadErr = fmt.Errorf("rpcdispatch: %s: handler entry %q missing handler function", path, glob.String())
			return
		}
		var methods []string
		if mt, ok := entry.RawGetString("methods").(*lua.LTable); ok {
			mt.ForEach(func(_, mv lua.LValue) {
				methods = append(methods, mv.String())
			})
		}
		regs = append(regs, ScriptRegistration{Glob: glob.String(), Methods: methods, Handler: fn})
	})
	if loadErr != nil {
		return nil, loadErr
	}
	return regs, nil
}

// Call invokes handler (a *lua.LFunction from LoadScript) with input, path,
// and method, and normalises the Lua return into a CallResult. rest_rpc_execute's
// comment documents the six accepted stacks after the call:
//
//	(true)                    -> OK, no output
//	(false)                   -> not OK, no message
//	(table)                   -> OK, output
//	(true, table)             -> OK, output
//	(false, string)           -> not OK, message
//	(false, table)            -> not OK, output
func (li *LuaInterpreter) Call(handler interface{}, input map[string]interface{}, path, method string) (CallResult, error) {
	fn, ok := handler.(*lua.LFunction)
	if !ok {
		return CallResult{}, fmt.Errorf("rpcdispatch: handler for %s is not a loaded Lua function", path)
	}

	li.mu.Lock()
	defer li.mu.Unlock()
	defer li.L.SetTop(0)

	li.L.Push(fn)
	li.L.Push(goTableToLua(li.L, input))
	li.L.Push(lua.LString(path))
	li.L.Push(lua.LString(method))
	if err := li.L.PCall(3, lua.MultRet, nil); err != nil {
		return CallResult{}, fmt.Errorf("rpcdispatch: lua call at %s: %w", path, err)
	}

	switch nret := li.L.GetTop(); nret {
	case 1:
		switch v := li.L.Get(1).(type) {
		case lua.LBool:
			return CallResult{OK: bool(v)}, nil
		case *lua.LTable:
			return CallResult{OK: true, Output: luaTableToGo(v)}, nil
		}
	case 2:
		if ok, isBool := li.L.Get(1).(lua.LBool); isBool {
			second := li.L.Get(2)
			if bool(ok) {
				if tbl, ok := second.(*lua.LTable); ok {
					return CallResult{OK: true, Output: luaTableToGo(tbl)}, nil
				}
			} else {
				if s, ok := second.(lua.LString); ok {
					return CallResult{OK: false, Message: string(s)}, nil
				}
				if tbl, ok := second.(*lua.LTable); ok {
					return CallResult{OK: false, Output: luaTableToGo(tbl)}, nil
				}
				return CallResult{OK: false}, nil
			}
		}
	}
	return CallResult{}, fmt.Errorf("rpcdispatch: handler at %s did not return a recognised response shape", path)
}

func goTableToLua(L *lua.LState, in map[string]interface{}) *lua.LTable {
	t := L.NewTable()
	for k, v := range in {
		t.RawSetString(k, goValueToLua(L, v))
	}
	return t
}

func goValueToLua(L *lua.LState, v interface{}) lua.LValue {
	switch val := v.(type) {
	case map[string]interface{}:
		return goTableToLua(L, val)
	case string:
		return lua.LString(val)
	case nil:
		return lua.LNil
	default:
		return lua.LString(fmt.Sprint(val))
	}
}

func luaTableToGo(t *lua.LTable) map[string]interface{} {
	out := map[string]interface{}{}
	t.ForEach(func(k, v lua.LValue) {
		key := k.String()
		if nested, ok := v.(*lua.LTable); ok {
			out[key] = luaTableToGo(nested)
			return
		}
		out[key] = v.String()
	})
	return out
}
