package rpcdispatch

import (
	"os"
	"path/filepath"
	"testing"
)

func writeScript(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "handlers.lua")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLuaInterpreterLoadScriptRegistersHandlers(t *testing.T) {
	li := NewLuaInterpreter()
	defer li.Close()

	path := writeScript(t, `
return {
	{ path = "/test/reboot", methods = {"POST"}, handler = function(input, path, method)
		return true, { status = "rebooting" }
	end },
}
`)

	regs, err := li.LoadScript(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(regs) != 1 || regs[0].Glob != "/test/reboot" || len(regs[0].Methods) != 1 || regs[0].Methods[0] != "POST" {
		t.Fatalf("regs = %+v", regs)
	}
}

func TestLuaInterpreterCallShapes(t *testing.T) {
	li := NewLuaInterpreter()
	defer li.Close()

	path := writeScript(t, `
return {
	{ path = "/test/ok-table", methods = {"POST"}, handler = function(input, path, method)
		return true, { status = input.name }
	end },
	{ path = "/test/bare-table", methods = {"POST"}, handler = function(input, path, method)
		return { status = "bare" }
	end },
	{ path = "/test/fail-message", methods = {"POST"}, handler = function(input, path, method)
		return false, "denied"
	end },
	{ path = "/test/fail-bare", methods = {"POST"}, handler = function(input, path, method)
		return false
	end },
}
`)

	regs, err := li.LoadScript(path)
	if err != nil {
		t.Fatal(err)
	}
	byGlob := map[string]ScriptRegistration{}
	for _, r := range regs {
		byGlob[r.Glob] = r
	}

	res, err := li.Call(byGlob["/test/ok-table"].Handler, map[string]interface{}{"name": "fred"}, "/test/ok-table", "POST")
	if err != nil {
		t.Fatal(err)
	}
	if !res.OK || res.Output["status"] != "fred" {
		t.Fatalf("ok-table result = %+v", res)
	}

	res, err = li.Call(byGlob["/test/bare-table"].Handler, nil, "/test/bare-table", "POST")
	if err != nil {
		t.Fatal(err)
	}
	if !res.OK || res.Output["status"] != "bare" {
		t.Fatalf("bare-table result = %+v", res)
	}

	res, err = li.Call(byGlob["/test/fail-message"].Handler, nil, "/test/fail-message", "POST")
	if err != nil {
		t.Fatal(err)
	}
	if res.OK || res.Message != "denied" {
		t.Fatalf("fail-message result = %+v", res)
	}

	res, err = li.Call(byGlob["/test/fail-bare"].Handler, nil, "/test/fail-bare", "POST")
	if err != nil {
		t.Fatal(err)
	}
	if res.OK {
		t.Fatalf("fail-bare result = %+v", res)
	}
}

func TestLuaInterpreterLoadScriptSkipsNonLuaFiles(t *testing.T) {
	li := NewLuaInterpreter()
	defer li.Close()

	dir := t.TempDir()
	path := filepath.Join(dir, "README.txt")
	if err := os.WriteFile(path, []byte("not a script"), 0644); err != nil {
		t.Fatal(err)
	}

	regs, err := li.LoadScript(path)
	if err != nil || regs != nil {
		t.Fatalf("regs=%+v err=%v, want nil, nil", regs, err)
	}
}
