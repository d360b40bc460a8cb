// Go source walker.
//
// Scans the AST of Go files for two kinds of translatable strings:
// arguments of keyword calls such as T("...") or Loc.Get(ctx, "..."),
// and fields of composite literals whose type has a registered schema,
// e.g. DialogueLine{Text: "Hello", Choices: []string{"Yes", "No"}}.
package extract

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"strconv"
	"strings"
)

// GoKeyword defines a function call to scan for and how to extract arguments.
// Follows xgettext --keyword syntax:
//
//	"T"             T(msgid)
//	"N:1,2"         N(singular, plural, n), args 1 and 2 are strings
//	"pgettext:1c,2" arg 1 is context, arg 2 is msgid
//
// Context arguments are skipped; keys carry no gettext context.
type GoKeyword struct {
	// FuncName is the function name to match (e.g. "T", "N", "Get").
	// Can be a bare name (matches any package) or "pkg.Func" (matches specific selector).
	FuncName string
	// MsgIDArg is the 1-based argument index for msgid (default 1).
	MsgIDArg int
	// PluralArg is the 1-based argument index for plural msgid (0 = none).
	PluralArg int
	// ContextArg is the 1-based argument index for msgctxt (0 = none).
	ContextArg int
}

// ParseGoKeyword parses an xgettext-style keyword spec into a GoKeyword.
func ParseGoKeyword(spec string) GoKeyword {
	kw := GoKeyword{MsgIDArg: 1}

	parts := strings.SplitN(spec, ":", 2)
	kw.FuncName = strings.TrimSpace(parts[0])
	if len(parts) < 2 {
		return kw
	}

	positional := 0
	for _, arg := range strings.Split(parts[1], ",") {
		arg = strings.TrimSpace(arg)
		if strings.HasSuffix(arg, "c") {
			if n, err := strconv.Atoi(strings.TrimSuffix(arg, "c")); err == nil {
				kw.ContextArg = n
			}
			continue
		}
		n, err := strconv.Atoi(arg)
		if err != nil {
			continue
		}
		if positional == 0 {
			kw.MsgIDArg = n
		} else {
			kw.PluralArg = n
		}
		positional++
	}
	return kw
}

// DefaultKeywords are scanned when the config names none.
var DefaultKeywords = []string{"T", "Tr", "N:1,2"}

// goScanner holds the per-walk keyword table.
type goScanner struct {
	keywords map[string][]GoKeyword
	schemas  *Schemas
}

func newGoScanner(specs []string, schemas *Schemas) *goScanner {
	g := &goScanner{keywords: make(map[string][]GoKeyword), schemas: schemas}
	for _, spec := range specs {
		kw := ParseGoKeyword(spec)
		if kw.FuncName == "" {
			continue
		}
		g.keywords[kw.FuncName] = append(g.keywords[kw.FuncName], kw)
	}
	return g
}

// ParseGoSource extracts translatable strings from one Go file.
func (g *goScanner) ParseGoSource(path string, src []byte) ([]string, error) {
	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, path, src, parser.SkipObjectResolution)
	if err != nil {
		return nil, fmt.Errorf("parsing Go source: %w", err)
	}

	var texts []string
	emit := func(t string) { texts = append(texts, t) }

	ast.Inspect(f, func(n ast.Node) bool {
		switch node := n.(type) {
		case *ast.CallExpr:
			g.visitCall(node, emit)
		case *ast.CompositeLit:
			sc, ok := g.schemas.Lookup(typeName(node.Type, g.schemas))
			if !ok {
				return true
			}
			// Nested literals belong to the schema walk; only keyword
			// calls inside are still collected.
			g.schemas.walk(sc, astValue{node}, emit, 0)
			g.visitCalls(node, emit)
			return false
		}
		return true
	})
	return texts, nil
}

// visitCalls collects keyword calls anywhere under n.
func (g *goScanner) visitCalls(n ast.Node, emit func(string)) {
	ast.Inspect(n, func(n ast.Node) bool {
		if call, ok := n.(*ast.CallExpr); ok {
			g.visitCall(call, emit)
		}
		return true
	})
}

func (g *goScanner) visitCall(call *ast.CallExpr, emit func(string)) {
	var funcName string
	switch fn := call.Fun.(type) {
	case *ast.Ident:
		funcName = fn.Name
	case *ast.SelectorExpr:
		funcName = fn.Sel.Name
		if ident, ok := fn.X.(*ast.Ident); ok {
			qualified := ident.Name + "." + fn.Sel.Name
			if _, found := g.keywords[qualified]; found {
				funcName = qualified
			}
		}
	default:
		return
	}

	for _, kw := range g.keywords[funcName] {
		msgID := stringArgAt(call, kw.MsgIDArg)
		if msgID == "" {
			continue
		}
		emit(msgID)
		if kw.PluralArg > 0 {
			if plural := stringArgAt(call, kw.PluralArg); plural != "" {
				emit(plural)
			}
		}
	}
}

// typeName resolves the schema kind of a composite literal type:
// "pkg.Name" when registered, otherwise the bare name.
func typeName(expr ast.Expr, schemas *Schemas) string {
	switch t := expr.(type) {
	case *ast.Ident:
		return t.Name
	case *ast.SelectorExpr:
		if ident, ok := t.X.(*ast.Ident); ok {
			qualified := ident.Name + "." + t.Sel.Name
			if _, ok := schemas.Lookup(qualified); ok {
				return qualified
			}
		}
		return t.Sel.Name
	}
	return ""
}

// stringArgAt extracts the string literal value at 1-based argument position.
// Returns "" if the argument is not a string literal or doesn't exist.
func stringArgAt(call *ast.CallExpr, pos int) string {
	idx := pos - 1
	if idx < 0 || idx >= len(call.Args) {
		return ""
	}
	return stringFromExpr(call.Args[idx])
}

// stringFromExpr extracts a string value from an AST expression.
// Handles string literals and simple concatenation (e.g. "foo" + "bar").
func stringFromExpr(expr ast.Expr) string {
	switch e := expr.(type) {
	case *ast.BasicLit:
		if e.Kind == token.STRING {
			s, err := strconv.Unquote(e.Value)
			if err != nil {
				return ""
			}
			return s
		}
	case *ast.ParenExpr:
		return stringFromExpr(e.X)
	case *ast.BinaryExpr:
		if e.Op == token.ADD {
			left := stringFromExpr(e.X)
			right := stringFromExpr(e.Y)
			if left != "" && right != "" {
				return left + right
			}
		}
	}
	return ""
}

// astValue exposes a Go expression to the schema walker. Only keyed
// composite literal fields are visible; positional fields are ignored.
type astValue struct {
	e ast.Expr
}

func (v astValue) lit() *ast.CompositeLit {
	e := v.e
	if u, ok := e.(*ast.UnaryExpr); ok && u.Op == token.AND {
		e = u.X
	}
	lit, _ := e.(*ast.CompositeLit)
	return lit
}

func (v astValue) Field(name string) (value, bool) {
	lit := v.lit()
	if lit == nil {
		return nil, false
	}
	for _, elt := range lit.Elts {
		kv, ok := elt.(*ast.KeyValueExpr)
		if !ok {
			continue
		}
		if key, ok := kv.Key.(*ast.Ident); ok && key.Name == name {
			if id, ok := kv.Value.(*ast.Ident); ok && id.Name == "nil" {
				return nil, false
			}
			return astValue{kv.Value}, true
		}
	}
	return nil, false
}

func (v astValue) Keys() []string {
	lit := v.lit()
	if lit == nil {
		return nil
	}
	var keys []string
	for _, elt := range lit.Elts {
		if kv, ok := elt.(*ast.KeyValueExpr); ok {
			if key, ok := kv.Key.(*ast.Ident); ok {
				keys = append(keys, key.Name)
			}
		}
	}
	return keys
}

func (v astValue) Text() (string, bool) {
	s := stringFromExpr(v.e)
	return s, s != ""
}

func (v astValue) Items() []value {
	lit := v.lit()
	if lit == nil {
		return nil
	}
	items := make([]value, 0, len(lit.Elts))
	for _, elt := range lit.Elts {
		if kv, ok := elt.(*ast.KeyValueExpr); ok {
			elt = kv.Value // indexed array literal: [...]string{2: "x"}
		}
		items = append(items, astValue{elt})
	}
	return items
}

func (v astValue) Values() []value {
	lit := v.lit()
	if lit == nil {
		return nil
	}
	var vals []value
	for _, elt := range lit.Elts {
		if kv, ok := elt.(*ast.KeyValueExpr); ok {
			vals = append(vals, astValue{kv.Value})
		}
	}
	return vals
}
