package schema

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/freeconf/yang/source"
)

func readAllFrom(r io.Reader) ([]byte, error) { return io.ReadAll(r) }

// xmlNode is the on-disk shape of one schema node. The element name is
// always "NODE"; modules are the document root "MODULE". This is a
// deliberately small dialect covering the mode/pattern/default/enum
// vocabulary the schema files need; file discovery and parsing are kept
// as an opaque, swappable step, while the merge-by-name and proxy-restart
// semantics those files encode are what Facade.Walk reproduces.
type xmlNode struct {
	Name    string     `xml:"name,attr"`
	Mode    string     `xml:"mode,attr"`
	Pattern string     `xml:"pattern,attr"`
	Default string     `xml:"default,attr"`
	Key     string     `xml:"key,attr"`
	Values  []xmlValue `xml:"VALUE"`
	Nodes   []xmlNode  `xml:"NODE"`
}

type xmlValue struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

type xmlModule struct {
	XMLName   xml.Name  `xml:"MODULE"`
	Name      string    `xml:"name,attr"`
	Namespace string    `xml:"namespace,attr"`
	Prefix    string    `xml:"prefix,attr"`
	Revision  string    `xml:"revision,attr"`
	Nodes     []xmlNode `xml:"NODE"`
}

// Loader discovers and parses schema files, producing the Facade the rest
// of the gateway depends on. Its directory-scanning mechanics are the
// "opaque" half of schema loading; Build's merge and
// mode/kind derivation are what make the result usable by the Facade.
type Loader struct {
	search      source.Opener
	dirs        []string
	restrictTo  map[string]bool
}

// NewLoader builds a Loader over one or more colon-separated directories,
// matching the gateway's `-m <path>` CLI flag. Directory
// resolution is delegated to github.com/freeconf/yang/source, the same
// source.Opener abstraction used for schema and YANG file resolution
// elsewhere, rather than hand-rolling directory search.
func NewLoader(searchPath string) *Loader {
	dirs := strings.Split(searchPath, ":")
	openers := make([]source.Opener, 0, len(dirs))
	for _, d := range dirs {
		if d == "" {
			continue
		}
		openers = append(openers, source.Dir(d))
	}
	var opener source.Opener
	if len(openers) > 0 {
		opener = source.Any(openers...)
	}
	return &Loader{search: opener, dirs: dirs}
}

// RestrictTo limits the loaded schema to the named modules, implementing
// the `-n <file>` supported-models allow-list: when set, Build skips any
// discovered module not named here.
func (l *Loader) RestrictTo(names []string) {
	l.restrictTo = make(map[string]bool, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if i := strings.IndexByte(n, '@'); i >= 0 {
			n = n[:i]
		}
		if n != "" {
			l.restrictTo[n] = true
		}
	}
}

// Build scans every configured directory for "*.xml" files, parses each as
// a MODULE document, and merges same-named nodes across files recursively:
// a later file contributing a node with a name already present at that
// level has its children merged in rather than replacing the existing
// node.
func (l *Loader) Build() (*Facade, error) {
	// Directory listing has no equivalent in source.Opener (it resolves a
	// single named resource across a search path, it does not enumerate
	// one), so discovering *which* module names exist is done directly
	// against the filesystem; each discovered name is then read back
	// through l.search so that a later -m directory can shadow an
	// earlier one for a given file across the colon-separated search path.
	names := map[string]bool{}
	for _, dir := range l.dirs {
		if dir == "" {
			continue
		}
		matches, err := filepath.Glob(filepath.Join(dir, "*.xml"))
		if err != nil {
			return nil, fmt.Errorf("schema: glob %s: %w", dir, err)
		}
		for _, m := range matches {
			names[strings.TrimSuffix(filepath.Base(m), ".xml")] = true
		}
	}
	sorted := make([]string, 0, len(names))
	for n := range names {
		sorted = append(sorted, n)
	}
	sort.Strings(sorted)

	f := newFacade()
	f.root = f.alloc(Node{Name: "", Kind: Container})

	for _, name := range sorted {
		mod, err := l.parseModule(name)
		if err != nil {
			return nil, fmt.Errorf("schema: %s: %w", name, err)
		}
		if l.restrictTo != nil && !l.restrictTo[mod.Name] {
			continue
		}
		model := &Model{Prefix: mod.Prefix, Name: mod.Name, Namespace: mod.Namespace, Revision: mod.Revision}
		f.models = append(f.models, *model)
		if model.Prefix != "" {
			f.byPrefix[model.Prefix] = &f.models[len(f.models)-1]
		}
		if err := f.mergeModule(f.root, mod.Nodes, &f.models[len(f.models)-1]); err != nil {
			return nil, fmt.Errorf("schema: %s: %w", name, err)
		}
	}

	f.deriveKinds(f.root)
	return f, nil
}

// parseModule resolves name+".xml" through the Loader's source.Opener
// search path (so a later -m directory shadows an earlier one for a given
// module name) and parses the result.
func (l *Loader) parseModule(name string) (*xmlModule, error) {
	var data []byte
	if l.search != nil {
		r, err := l.search(name, ".xml")
		if err != nil {
			return nil, err
		}
		defer func() {
			if c, ok := r.(interface{ Close() error }); ok {
				c.Close()
			}
		}()
		var err2 error
		data, err2 = readAllFrom(r)
		if err2 != nil {
			return nil, err2
		}
	} else {
		for _, dir := range l.dirs {
			b, err := os.ReadFile(filepath.Join(dir, name+".xml"))
			if err == nil {
				data = b
				break
			}
		}
	}
	var mod xmlModule
	if err := xml.Unmarshal(data, &mod); err != nil {
		return nil, err
	}
	return &mod, nil
}

// mergeModule merges top-level nodes of a freshly parsed module into the
// arena under parent, attaching model to any newly created top-level node
// so Facade.Model can find the owning module by walking up.
func (f *Facade) mergeModule(parent int, nodes []xmlNode, model *Model) error {
	for _, xn := range nodes {
		existing := f.findRawChild(parent, xn.Name)
		if existing == noIndex {
			idx, err := f.buildSubtree(xn)
			if err != nil {
				return err
			}
			f.arena[idx].Model = model
			f.appendChild(parent, idx)
			continue
		}
		if err := f.mergeModule(existing, xn.Nodes, model); err != nil {
			return err
		}
	}
	return nil
}

func (f *Facade) findRawChild(parent int, name string) int {
	for c := f.arena[parent].firstChild; c != noIndex; c = f.arena[c].next {
		if f.arena[c].Name == name {
			return c
		}
	}
	return noIndex
}

func (f *Facade) buildSubtree(xn xmlNode) (int, error) {
	n := Node{
		Name:       xn.Name,
		Mode:       xn.Mode,
		Default:    xn.Default,
		HasDefault: xn.Default != "",
		Key:        xn.Key,
	}
	if xn.Pattern != "" {
		re, err := regexp.Compile(xn.Pattern)
		if err != nil {
			return noIndex, fmt.Errorf("node %q: bad pattern %q: %w", xn.Name, xn.Pattern, err)
		}
		n.Pattern = re
	}
	if len(xn.Values) > 0 {
		n.Enum = make(map[string]string, len(xn.Values))
		n.EnumRev = make(map[string]string, len(xn.Values))
		for _, v := range xn.Values {
			n.Enum[v.Name] = v.Value
			n.EnumRev[v.Value] = v.Name
		}
	}
	idx := f.alloc(n)
	for _, child := range xn.Nodes {
		cidx, err := f.buildSubtree(child)
		if err != nil {
			return noIndex, err
		}
		f.appendChild(idx, cidx)
	}
	return idx, nil
}

// deriveKinds computes each node's Kind bottom-up from the loader's
// invariants: leafless nodes are leaves; a node whose only child is "*"
// with no key is a leaf-list; a node with a "*" child that itself has
// children is a list; mode flag 'x' always means Rpc; everything else
// with children is a Container.
func (f *Facade) deriveKinds(idx int) {
	for c := f.arena[idx].firstChild; c != noIndex; c = f.arena[c].next {
		f.deriveKinds(c)
	}
	n := &f.arena[idx]
	if strings.IndexByte(n.Mode, 'x') >= 0 {
		n.Kind = Rpc
		return
	}
	if n.firstChild == noIndex {
		n.Kind = Leaf
		return
	}
	if wc := f.WildcardChild(idx); wc != noIndex && f.arena[idx].firstChild == wc && f.arena[idx].lastChild == wc {
		if f.arena[wc].firstChild == noIndex {
			n.Kind = LeafList
		} else {
			n.Kind = List
			if n.Key == "" {
				n.Key = f.inferKey(wc)
			}
		}
		return
	}
	n.Kind = Container
}

func (f *Facade) inferKey(wildcard int) string {
	for c := f.arena[wildcard].firstChild; c != noIndex; c = f.arena[c].next {
		if f.arena[c].Key != "" {
			return f.arena[c].Name
		}
	}
	if f.arena[wildcard].firstChild != noIndex {
		return f.arena[f.arena[wildcard].firstChild].Name
	}
	return ""
}

// BuildFromStrings builds a Facade directly from in-memory module
// documents, keyed by module name, without touching the filesystem. This
// mirrors github.com/freeconf/yang/parser's LoadModuleFromString
// convenience used throughout this package's own tests.
func BuildFromStrings(docs map[string]string) (*Facade, error) {
	f := newFacade()
	f.root = f.alloc(Node{Name: "", Kind: Container})

	names := make([]string, 0, len(docs))
	for n := range docs {
		names = append(names, n)
	}
	sort.Strings(names)

	for _, name := range names {
		var mod xmlModule
		if err := xml.Unmarshal([]byte(docs[name]), &mod); err != nil {
			return nil, fmt.Errorf("schema: %s: %w", name, err)
		}
		model := &Model{Prefix: mod.Prefix, Name: mod.Name, Namespace: mod.Namespace, Revision: mod.Revision}
		f.models = append(f.models, *model)
		if model.Prefix != "" {
			f.byPrefix[model.Prefix] = &f.models[len(f.models)-1]
		}
		if err := f.mergeModule(f.root, mod.Nodes, &f.models[len(f.models)-1]); err != nil {
			return nil, fmt.Errorf("schema: %s: %w", name, err)
		}
	}
	f.deriveKinds(f.root)
	return f, nil
}

// Dump serialises the loaded schema back to the native XML dialect, used
// by the GET .../*.xml handler.
func (f *Facade) Dump() ([]byte, error) {
	var sb strings.Builder
	sb.WriteString("<SCHEMA>")
	for c := f.arena[f.root].firstChild; c != noIndex; c = f.arena[c].next {
		f.dumpNode(&sb, c)
	}
	sb.WriteString("</SCHEMA>")
	return []byte(sb.String()), nil
}

func (f *Facade) dumpNode(sb *strings.Builder, idx int) {
	n := &f.arena[idx]
	fmt.Fprintf(sb, `<NODE name=%q`, n.Name)
	if n.Mode != "" {
		fmt.Fprintf(sb, ` mode=%q`, n.Mode)
	}
	if n.HasDefault {
		fmt.Fprintf(sb, ` default=%q`, n.Default)
	}
	if n.Pattern != nil {
		fmt.Fprintf(sb, ` pattern=%q`, n.Pattern.String())
	}
	if n.firstChild == noIndex {
		sb.WriteString("/>")
		return
	}
	sb.WriteString(">")
	for c := n.firstChild; c != noIndex; c = f.arena[c].next {
		f.dumpNode(sb, c)
	}
	sb.WriteString("</NODE>")
}
