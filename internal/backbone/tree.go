package backbone

import (
	"fmt"
	"path/filepath"
	"strings"

	"ectdforge/internal/model"
)

// Node is one node of the structural tree: the root, a module, a slot, or
// a document leaf. The tree is derived state: it is rebuilt from the
// submission and its document set on every validate or export call and is
// never persisted.
type Node struct {
	PathSegment string
	Required    bool
	Children    []*Node

	// Leaf fields, set only when LeafDocumentID is non-empty.
	LeafDocumentID string
	RelPath        string
	Title          string
	ContextOfUse   model.ContextOfUse
	ContentHash    string
	ByteSize       int64
	StoragePath    string
	Operation      model.Operation
}

// IsLeaf reports whether n references a document.
func (n *Node) IsLeaf() bool { return n.LeafDocumentID != "" }

// Tree is the structural model of one submission projected onto the
// hierarchy table.
type Tree struct {
	Submission *model.Submission
	Schema     *Schema
	Root       *Node
}

// placement pins a document to a module and slot.
type placement struct {
	module string
	slot   string
	doc    model.Document
}

// Build projects a submission's documents onto the schema. The result is
// fully deterministic: module and slot order follow the schema table, leaf
// order follows attachment order, and duplicate file names within a module
// are disambiguated with a numeric suffix in attachment order.
func Build(schema *Schema, sub *model.Submission, docs []model.Document) *Tree {
	placements := make([]placement, 0, len(docs))
	for _, doc := range docs {
		mod, slot := resolvePlacement(schema, doc)
		placements = append(placements, placement{module: mod, slot: slot, doc: doc})
	}

	root := &Node{}
	for _, m := range schema.Modules {
		moduleNode := buildModule(schema, m, placements)
		if moduleNode != nil {
			root.Children = append(root.Children, moduleNode)
		}
	}

	return &Tree{Submission: sub, Schema: schema, Root: root}
}

// resolvePlacement places one document. Generic documents whose title
// starts with a module token (for example "m5 study listings") land in that
// module's catch-all; otherwise the schema's fixed catch-all applies.
func resolvePlacement(schema *Schema, doc model.Document) (module, slot string) {
	if doc.ContextOfUse == model.ContextGeneric {
		if mod, ok := moduleFromTitle(schema, doc.Title); ok {
			return mod, "other"
		}
	}
	return schema.Resolve(doc.ContextOfUse)
}

func moduleFromTitle(schema *Schema, title string) (string, bool) {
	fields := strings.Fields(strings.ToLower(title))
	if len(fields) < 2 {
		return "", false
	}
	for _, m := range schema.Modules {
		if m.Name == fields[0] && m.Name != "other" {
			return m.Name, true
		}
	}
	return "", false
}

func buildModule(schema *Schema, m Module, placements []placement) *Node {
	moduleNode := &Node{PathSegment: m.Name}
	names := make(map[string]int)

	// Schema-declared slots first, in table order.
	for _, sl := range m.Slots {
		slotNode := &Node{PathSegment: sl.Name, Required: sl.Required}
		for _, p := range placements {
			if p.module == m.Name && p.slot == sl.Name {
				slotNode.Children = append(slotNode.Children, leafNode(m.Name, p.doc, names))
			}
		}
		// Empty required slots stay in the tree so validation can flag
		// them; empty optional slots are dropped.
		if sl.Required || len(slotNode.Children) > 0 {
			moduleNode.Children = append(moduleNode.Children, slotNode)
		}
	}

	// Generic documents routed here by title inference.
	var inferred *Node
	for _, p := range placements {
		if p.module == m.Name && p.slot == "other" && !hasSlot(m, "other") {
			if inferred == nil {
				inferred = &Node{PathSegment: "other"}
			}
			inferred.Children = append(inferred.Children, leafNode(m.Name, p.doc, names))
		}
	}
	if inferred != nil {
		moduleNode.Children = append(moduleNode.Children, inferred)
	}

	if len(moduleNode.Children) == 0 {
		return nil
	}
	return moduleNode
}

func hasSlot(m Module, name string) bool {
	for _, sl := range m.Slots {
		if sl.Name == name {
			return true
		}
	}
	return false
}

func leafNode(module string, doc model.Document, names map[string]int) *Node {
	name := leafFileName(doc)
	names[name]++
	if n := names[name]; n > 1 {
		ext := filepath.Ext(name)
		name = fmt.Sprintf("%s-%d%s", strings.TrimSuffix(name, ext), n, ext)
	}
	return &Node{
		PathSegment:    name,
		LeafDocumentID: doc.ID,
		RelPath:        module + "/" + name,
		Title:          doc.Title,
		ContextOfUse:   doc.ContextOfUse,
		ContentHash:    doc.ContentHash,
		ByteSize:       doc.ByteSize,
		StoragePath:    doc.StoragePath,
		Operation:      doc.Operation,
	}
}

// leafFileName derives a safe file name from the document title plus the
// original source extension.
func leafFileName(doc model.Document) string {
	return slugify(doc.Title) + sourceExt(doc.SourceName)
}

func slugify(s string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	out := strings.Trim(b.String(), "-")
	if out == "" {
		return "document"
	}
	return out
}

func sourceExt(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" || ext == "." {
		return ""
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return ext
}

// Leaves returns every document leaf in deterministic depth-first order.
func (t *Tree) Leaves() []*Node {
	var out []*Node
	var walk func(n *Node)
	walk = func(n *Node) {
		if n.IsLeaf() {
			out = append(out, n)
			return
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(t.Root)
	return out
}

// EmptyRequiredSlots returns the tree paths of mandatory slots that hold no
// document, in schema order.
func (t *Tree) EmptyRequiredSlots() []string {
	var out []string
	for _, moduleNode := range t.Root.Children {
		for _, slotNode := range moduleNode.Children {
			if slotNode.Required && len(slotNode.Children) == 0 {
				out = append(out, moduleNode.PathSegment+"/"+slotNode.PathSegment)
			}
		}
	}
	return out
}
