package rpcdispatch

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/apteryx-rest/gateway/internal/restreq"
	"github.com/apteryx-rest/gateway/internal/tree"
)

// Registration is a loaded handler: glob path, accepted methods, and the
// interpreter's opaque reference to the function that implements it.
type Registration struct {
	Glob    string
	Methods map[string]bool
	Handler interface{}
}

// Dispatcher holds the fixed-for-the-life-of-the-process registration
// list built at startup, plus the single mutex every invocation
// serialises through.
type Dispatcher struct {
	interp Interpreter
	mu     sync.Mutex
	regs   []Registration
}

// New returns a Dispatcher with no registrations, ready for LoadDir or
// Register calls.
func New(interp Interpreter) *Dispatcher {
	if interp == nil {
		interp = NopInterpreter{}
	}
	return &Dispatcher{interp: interp}
}

// Register adds a single handler directly, bypassing script loading; used
// by tests and by any caller wiring up a fixed handler in code.
func (d *Dispatcher) Register(glob string, methods []string, handler interface{}) {
	set := map[string]bool{}
	for _, m := range methods {
		set[strings.ToUpper(m)] = true
	}
	d.regs = append(d.regs, Registration{Glob: glob, Methods: set, Handler: handler})
}

// LoadDir scans dir for script files (sorted by name for deterministic
// match order) and registers every record each one returns.
func (d *Dispatcher) LoadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	for _, name := range names {
		recs, err := d.interp.LoadScript(filepath.Join(dir, name))
		if err != nil {
			return err
		}
		for _, r := range recs {
			d.Register(r.Glob, r.Methods, r.Handler)
		}
	}
	return nil
}

// Match returns the first registration whose glob matches path and whose
// method set contains method, scanning in registration order.
func (d *Dispatcher) Match(path, method string) (*Registration, bool) {
	method = strings.ToUpper(method)
	for i := range d.regs {
		r := &d.regs[i]
		if !r.Methods[method] {
			continue
		}
		if ok, _ := filepath.Match(r.Glob, path); ok {
			return r, true
		}
	}
	return nil, false
}

// Invoke calls reg's handler with inputTree marshalled to a table,
// translating the accepted return shapes into an output tree (or nil)
// plus an *restreq.Error on failure. When restconfFraming is false the
// input table is wrapped under an "input" key unless it already has one;
// the output tree is always rooted at "output".
func (d *Dispatcher) Invoke(reg *Registration, inputTree *tree.Tree, path, method string, restconfFraming bool) (*tree.Tree, error) {
	table := map[string]interface{}{}
	if inputTree != nil {
		table = tableFromTree(inputTree, inputTree.Root())
	}
	if !restconfFraming {
		if _, wrapped := table["input"]; !wrapped {
			table = map[string]interface{}{"input": table}
		}
	}

	d.mu.Lock()
	result, err := d.interp.Call(reg.Handler, table, path, method)
	d.mu.Unlock()
	if err != nil {
		return nil, restreq.NewError(restreq.ErrInternal, err.Error())
	}
	if !result.OK {
		msg := result.Message
		if msg == "" {
			msg = "operation failed"
		}
		return nil, restreq.NewError(restreq.ErrInvalidInput, msg)
	}
	if result.Output == nil {
		return nil, nil
	}
	out := tree.New("output")
	treeFromTable(result.Output, out, out.Root())
	return out, nil
}

func tableFromTree(t *tree.Tree, idx int) map[string]interface{} {
	out := map[string]interface{}{}
	for _, c := range t.Children(idx) {
		name := t.Name(c)
		if t.IsLeaf(c) {
			out[name] = t.Value(c)
			continue
		}
		out[name] = tableFromTree(t, c)
	}
	return out
}

func treeFromTable(table map[string]interface{}, t *tree.Tree, idx int) {
	for name, v := range table {
		switch val := v.(type) {
		case map[string]interface{}:
			child := t.NewChild(idx, name)
			treeFromTable(val, t, child)
		case string:
			t.NewLeaf(idx, name, val)
		default:
			t.NewLeaf(idx, name, toScalarString(val))
		}
	}
}

func toScalarString(v interface{}) string {
	switch x := v.(type) {
	case bool:
		if x {
			return "true"
		}
		return "false"
	case nil:
		return ""
	default:
		return fmt.Sprint(x)
	}
}
