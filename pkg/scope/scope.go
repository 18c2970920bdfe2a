// Package scope implements the lexical environments used while expanding
// compound classes.
//
// An Env is a link in a parent-pointer chain of hcl evaluation contexts. Each
// compound instantiation gets a child of the environment its class was
// declared in, so formal parameters bind lexically rather than dynamically.
// Argument text is interpolated as an hcl template: both ${name} and the
// bare $name form refer to variables.
package scope

import (
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"

	"github.com/aretw0/weft/pkg/diag"
	"github.com/aretw0/weft/pkg/domain"
)

// Env is one lexical environment.
type Env struct {
	ctx    *hcl.EvalContext
	parent *Env
	prefix string
	depth  int
}

// New returns an empty root environment at depth 0.
func New() *Env {
	return &Env{ctx: &hcl.EvalContext{Variables: make(map[string]cty.Value)}}
}

// Child returns a new environment one level deeper. Elements created under
// it are named with prefix.
func (e *Env) Child(prefix string) *Env {
	ctx := e.ctx.NewChild()
	ctx.Variables = make(map[string]cty.Value)
	return &Env{ctx: ctx, parent: e, prefix: prefix, depth: e.depth + 1}
}

// Define binds name in this environment, shadowing outer bindings.
func (e *Env) Define(name, value string) {
	e.ctx.Variables[name] = cty.StringVal(value)
}

// Lookup resolves name through the chain.
func (e *Env) Lookup(name string) (string, bool) {
	for s := e; s != nil; s = s.parent {
		if v, ok := s.ctx.Variables[name]; ok {
			return v.AsString(), true
		}
	}
	return "", false
}

// Prefix is the name prefix for elements instantiated in this environment.
func (e *Env) Prefix() string { return e.prefix }

// Depth is the number of links between e and the root.
func (e *Env) Depth() int { return e.depth }

// Ancestor returns the closest environment on the chain whose depth does not
// exceed depth. Expanding a class declared at depth d starts from
// Ancestor(d) so that bindings made by unrelated call sites stay invisible.
func (e *Env) Ancestor(depth int) *Env {
	s := e
	for s.depth > depth && s.parent != nil {
		s = s.parent
	}
	return s
}

// Interpolate substitutes variable references in text. Unknown variables are
// reported to h as unresolved references and left in the text as ${name}.
// Malformed templates are reported and the text is returned unchanged.
func (e *Env) Interpolate(text string, loc domain.Location, h diag.Handler) string {
	if !strings.Contains(text, "$") {
		return text
	}
	src := braceVariables(text)
	if !strings.Contains(src, "${") {
		return text
	}
	src = strings.ReplaceAll(src, "%{", "%%{")
	if h == nil {
		h = diag.Discard
	}

	line := loc.Line
	if line < 1 {
		line = 1
	}
	expr, diags := hclsyntax.ParseTemplate([]byte(src), loc.File, hcl.Pos{Line: line, Column: 1})
	if diags.HasErrors() {
		h.Report(diag.Warnf(diag.UnresolvedReference, loc, "cannot interpolate %q: %s", text, diags.Errs()[0]))
		return text
	}

	ctx := e.ctx
	var missing map[string]cty.Value
	for _, tr := range expr.Variables() {
		name := tr.RootName()
		if _, ok := e.Lookup(name); ok {
			continue
		}
		if missing == nil {
			missing = make(map[string]cty.Value)
		}
		if _, seen := missing[name]; !seen {
			h.Report(diag.Warnf(diag.UnresolvedReference, loc, "undefined variable '$%s'", name))
		}
		missing[name] = cty.StringVal("${" + name + "}")
	}
	if missing != nil {
		ctx = ctx.NewChild()
		ctx.Variables = missing
	}

	val, diags := expr.Value(ctx)
	if diags.HasErrors() {
		h.Report(diag.Warnf(diag.UnresolvedReference, loc, "cannot interpolate %q: %s", text, diags.Errs()[0]))
		return text
	}
	if val.IsNull() || !val.IsKnown() {
		return text
	}
	str, err := convert.Convert(val, cty.String)
	if err != nil {
		h.Report(diag.Warnf(diag.UnresolvedReference, loc, "cannot interpolate %q: %s", text, err))
		return text
	}
	return str.AsString()
}

// braceVariables rewrites bare $name references as ${name}. A doubled '$'
// is copied through untouched.
func braceVariables(s string) string {
	var sb strings.Builder
	sb.Grow(len(s) + 8)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '$' || i+1 >= len(s) {
			sb.WriteByte(c)
			continue
		}
		next := s[i+1]
		switch {
		case next == '$':
			sb.WriteString("$$")
			i++
		case isIdentStart(next):
			j := i + 1
			for j < len(s) && isIdent(s[j]) {
				j++
			}
			sb.WriteString("${")
			sb.WriteString(s[i+1 : j])
			sb.WriteByte('}')
			i = j - 1
		default:
			sb.WriteByte(c)
		}
	}
	return sb.String()
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdent(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}
