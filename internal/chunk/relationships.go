package chunk

import "strings"

// RelationshipKind mirrors the graph-store's relationship vocabulary.
// Kept separate from internal/store so chunk stays free of a persistence
// dependency; internal/index maps these onto store.RelationshipKind.
type RelationshipKind string

const (
	RelationshipCalls      RelationshipKind = "Calls"
	RelationshipExtends    RelationshipKind = "Extends"
	RelationshipImplements RelationshipKind = "Implements"
	RelationshipImports    RelationshipKind = "Imports"
)

// IdentifierKind mirrors the graph-store's identifier vocabulary.
type IdentifierKind string

const (
	IdentifierCall      IdentifierKind = "Call"
	IdentifierImport    IdentifierKind = "Import"
	IdentifierTypeUsage IdentifierKind = "TypeUsage"
)

// Identifier is a name-referencing token found while walking a file: a
// call site, an import, or a type reference in an extends/implements list.
type Identifier struct {
	Name             string
	Kind             IdentifierKind
	Line             int // 1-indexed
	Col              int
	ContainingSymbol string // name of the enclosing symbol, empty at file scope
}

// Relationship is a directed edge discovered between a symbol (or the file
// itself, for imports) and a referenced name. Resolution from name to
// symbol ID happens downstream, once all files in a workspace are known.
type Relationship struct {
	FromSymbol string // empty for file-level edges (imports)
	ToName     string
	Kind       RelationshipKind
	Line       int
}

// RelationshipExtractor walks a parsed tree for call sites, inheritance
// clauses, and imports. Each language gets its own walk because the
// relevant node shapes (call target, heritage clause, import source)
// differ per grammar; node types unknown to a language are simply absent
// from that language's switch, so new grammars start with an empty result
// set rather than an error.
type RelationshipExtractor struct{}

// NewRelationshipExtractor creates a relationship extractor.
func NewRelationshipExtractor() *RelationshipExtractor {
	return &RelationshipExtractor{}
}

// Extract returns the identifiers and relationships found in tree, using
// symbols to resolve which enclosing symbol a call site belongs to.
func (e *RelationshipExtractor) Extract(tree *Tree, source []byte, symbols []*Symbol) ([]*Identifier, []*Relationship) {
	if tree == nil || tree.Root == nil {
		return nil, nil
	}

	switch tree.Language {
	case "go":
		return e.extractGo(tree, source, symbols)
	case "javascript", "jsx", "typescript", "tsx":
		return e.extractJSFamily(tree, source, symbols)
	case "python":
		return e.extractPython(tree, source, symbols)
	default:
		return nil, nil
	}
}

// enclosingSymbol returns the name of the tightest symbol whose line range
// contains line, or "" if line is at file scope.
func enclosingSymbol(line int, symbols []*Symbol) string {
	best := ""
	bestSpan := -1
	for _, sym := range symbols {
		if line < sym.StartLine || line > sym.EndLine {
			continue
		}
		span := sym.EndLine - sym.StartLine
		if bestSpan == -1 || span < bestSpan {
			bestSpan = span
			best = sym.Name
		}
	}
	return best
}

func lineOf(n *Node) int {
	return int(n.StartPoint.Row) + 1
}

// --- Go ---

func (e *RelationshipExtractor) extractGo(tree *Tree, source []byte, symbols []*Symbol) ([]*Identifier, []*Relationship) {
	var idents []*Identifier
	var rels []*Relationship

	tree.Root.Walk(func(n *Node) bool {
		switch n.Type {
		case "call_expression":
			if len(n.Children) == 0 {
				return true
			}
			target := n.Children[0]
			name := lastGoSelectorName(target, source)
			if name == "" {
				return true
			}
			enclosing := enclosingSymbol(lineOf(n), symbols)
			idents = append(idents, &Identifier{
				Name: name, Kind: IdentifierCall, Line: lineOf(n), Col: int(n.StartPoint.Column),
				ContainingSymbol: enclosing,
			})
			rels = append(rels, &Relationship{FromSymbol: enclosing, ToName: name, Kind: RelationshipCalls, Line: lineOf(n)})

		case "import_spec":
			pathNode := n.FindChildByType("interpreted_string_literal")
			if pathNode == nil {
				pathNode = n.FindChildByType("raw_string_literal")
			}
			if pathNode == nil {
				return true
			}
			path := strings.Trim(pathNode.GetContent(source), "`\"")
			idents = append(idents, &Identifier{Name: path, Kind: IdentifierImport, Line: lineOf(n)})
			rels = append(rels, &Relationship{ToName: path, Kind: RelationshipImports, Line: lineOf(n)})
		}
		return true
	})

	return idents, rels
}

// lastGoSelectorName extracts the callee name from a call target: a bare
// identifier, or the rightmost field of a selector_expression (pkg.Func,
// recv.Method).
func lastGoSelectorName(n *Node, source []byte) string {
	switch n.Type {
	case "identifier":
		return n.GetContent(source)
	case "selector_expression":
		if field := n.FindChildByType("field_identifier"); field != nil {
			return field.GetContent(source)
		}
		if field := n.FindChildByType("identifier"); field != nil {
			return field.GetContent(source)
		}
	}
	return ""
}

// --- JavaScript / TypeScript / JSX / TSX ---

func (e *RelationshipExtractor) extractJSFamily(tree *Tree, source []byte, symbols []*Symbol) ([]*Identifier, []*Relationship) {
	var idents []*Identifier
	var rels []*Relationship

	tree.Root.Walk(func(n *Node) bool {
		switch n.Type {
		case "call_expression":
			if len(n.Children) == 0 {
				return true
			}
			name := jsCalleeName(n.Children[0], source)
			if name == "" {
				return true
			}
			enclosing := enclosingSymbol(lineOf(n), symbols)
			idents = append(idents, &Identifier{
				Name: name, Kind: IdentifierCall, Line: lineOf(n), Col: int(n.StartPoint.Column),
				ContainingSymbol: enclosing,
			})
			rels = append(rels, &Relationship{FromSymbol: enclosing, ToName: name, Kind: RelationshipCalls, Line: lineOf(n)})

		case "class_declaration", "class":
			className := ""
			if id := n.FindChildByType("identifier"); id != nil {
				className = id.GetContent(source)
			}
			if heritage := n.FindChildByType("class_heritage"); heritage != nil {
				for _, clause := range heritage.Children {
					switch clause.Type {
					case "extends_clause":
						for _, c := range clause.Children {
							if c.Type == "identifier" {
								idents = append(idents, &Identifier{Name: c.GetContent(source), Kind: IdentifierTypeUsage, Line: lineOf(c), ContainingSymbol: className})
								rels = append(rels, &Relationship{FromSymbol: className, ToName: c.GetContent(source), Kind: RelationshipExtends, Line: lineOf(c)})
							}
						}
					case "implements_clause":
						for _, c := range clause.Children {
							if c.Type == "type_identifier" || c.Type == "identifier" {
								idents = append(idents, &Identifier{Name: c.GetContent(source), Kind: IdentifierTypeUsage, Line: lineOf(c), ContainingSymbol: className})
								rels = append(rels, &Relationship{FromSymbol: className, ToName: c.GetContent(source), Kind: RelationshipImplements, Line: lineOf(c)})
							}
						}
					}
				}
			}

		case "import_statement":
			if src := n.FindChildByType("string"); src != nil {
				path := strings.Trim(src.GetContent(source), "'\"")
				idents = append(idents, &Identifier{Name: path, Kind: IdentifierImport, Line: lineOf(n)})
				rels = append(rels, &Relationship{ToName: path, Kind: RelationshipImports, Line: lineOf(n)})
			}
		}
		return true
	})

	return idents, rels
}

func jsCalleeName(n *Node, source []byte) string {
	switch n.Type {
	case "identifier":
		return n.GetContent(source)
	case "member_expression":
		if prop := n.FindChildByType("property_identifier"); prop != nil {
			return prop.GetContent(source)
		}
	}
	return ""
}

// --- Python ---

func (e *RelationshipExtractor) extractPython(tree *Tree, source []byte, symbols []*Symbol) ([]*Identifier, []*Relationship) {
	var idents []*Identifier
	var rels []*Relationship

	tree.Root.Walk(func(n *Node) bool {
		switch n.Type {
		case "call":
			if len(n.Children) == 0 {
				return true
			}
			name := pythonCalleeName(n.Children[0], source)
			if name == "" {
				return true
			}
			enclosing := enclosingSymbol(lineOf(n), symbols)
			idents = append(idents, &Identifier{
				Name: name, Kind: IdentifierCall, Line: lineOf(n), Col: int(n.StartPoint.Column),
				ContainingSymbol: enclosing,
			})
			rels = append(rels, &Relationship{FromSymbol: enclosing, ToName: name, Kind: RelationshipCalls, Line: lineOf(n)})

		case "class_definition":
			className := ""
			if id := n.FindChildByType("identifier"); id != nil {
				className = id.GetContent(source)
			}
			if argList := n.FindChildByType("argument_list"); argList != nil {
				for _, c := range argList.Children {
					if c.Type == "identifier" {
						idents = append(idents, &Identifier{Name: c.GetContent(source), Kind: IdentifierTypeUsage, Line: lineOf(c), ContainingSymbol: className})
						rels = append(rels, &Relationship{FromSymbol: className, ToName: c.GetContent(source), Kind: RelationshipExtends, Line: lineOf(c)})
					}
				}
			}

		case "import_statement", "import_from_statement":
			for _, c := range n.FindChildrenByType("dotted_name") {
				path := c.GetContent(source)
				idents = append(idents, &Identifier{Name: path, Kind: IdentifierImport, Line: lineOf(n)})
				rels = append(rels, &Relationship{ToName: path, Kind: RelationshipImports, Line: lineOf(n)})
			}
		}
		return true
	})

	return idents, rels
}

func pythonCalleeName(n *Node, source []byte) string {
	switch n.Type {
	case "identifier":
		return n.GetContent(source)
	case "attribute":
		if attr := n.FindChildByType("identifier"); attr != nil {
			// attribute's last identifier child is the member name
			children := n.FindChildrenByType("identifier")
			if len(children) > 0 {
				return children[len(children)-1].GetContent(source)
			}
			return attr.GetContent(source)
		}
	}
	return ""
}
