package flags

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
)

// rootName is the only variable a condition expression may reference.
const rootName = "flags"

// Condition decides whether a dependency participates in a build.
//
// It combines three optional forms: a flag that must be present, a flag that
// must be absent, and a boolean HCL expression over `flags.<name>` values,
// for example `flags.mobile && !flags.legacy`. All present forms must hold.
type Condition struct {
	IfFlag    string
	IfNotFlag string

	source string
	expr   hcl.Expression
	names  []string
}

// Compile parses a condition. It returns nil when no form is given.
func Compile(ifFlag, ifNotFlag, expression string) (*Condition, error) {
	ifFlag = strings.TrimSpace(ifFlag)
	ifNotFlag = strings.TrimSpace(ifNotFlag)
	expression = strings.TrimSpace(expression)
	if ifFlag == "" && ifNotFlag == "" && expression == "" {
		return nil, nil
	}

	c := &Condition{IfFlag: ifFlag, IfNotFlag: ifNotFlag, source: expression}
	if expression == "" {
		return c, nil
	}

	expr, diags := hclsyntax.ParseExpression([]byte(expression), "condition", hcl.Pos{Line: 1, Column: 1})
	if diags.HasErrors() {
		return nil, fmt.Errorf("invalid condition %q: %s", expression, diags.Error())
	}

	seen := make(map[string]struct{})
	for _, traversal := range expr.Variables() {
		if traversal.RootName() != rootName {
			return nil, fmt.Errorf("invalid condition %q: unknown variable %q, only %s.<name> is available", expression, traversal.RootName(), rootName)
		}
		name, err := flagName(traversal)
		if err != nil {
			return nil, fmt.Errorf("invalid condition %q: %w", expression, err)
		}
		seen[name] = struct{}{}
	}
	for n := range seen {
		c.names = append(c.names, n)
	}
	sort.Strings(c.names)
	c.expr = expr
	return c, nil
}

func flagName(t hcl.Traversal) (string, error) {
	if len(t) < 2 {
		return "", fmt.Errorf("%s must be followed by a flag name", rootName)
	}
	switch step := t[1].(type) {
	case hcl.TraverseAttr:
		return step.Name, nil
	case hcl.TraverseIndex:
		if step.Key.Type() == cty.String && step.Key.IsKnown() && !step.Key.IsNull() {
			return step.Key.AsString(), nil
		}
	}
	return "", fmt.Errorf("unsupported reference into %s", rootName)
}

// Eval reports whether the condition holds for s. A nil condition always holds.
func (c *Condition) Eval(s *Set) (bool, error) {
	if c == nil {
		return true, nil
	}
	if c.IfFlag != "" && !s.Has(c.IfFlag) {
		return false, nil
	}
	if c.IfNotFlag != "" && s.Has(c.IfNotFlag) {
		return false, nil
	}
	if c.expr == nil {
		return true, nil
	}

	vars := make(map[string]cty.Value, len(c.names))
	for _, n := range c.names {
		vars[n] = cty.BoolVal(s.Has(n))
	}
	flagsVal := cty.EmptyObjectVal
	if len(vars) > 0 {
		flagsVal = cty.ObjectVal(vars)
	}

	val, diags := c.expr.Value(&hcl.EvalContext{
		Variables: map[string]cty.Value{rootName: flagsVal},
	})
	if diags.HasErrors() {
		return false, fmt.Errorf("evaluating condition %q: %s", c.source, diags.Error())
	}
	if val.IsNull() || !val.IsKnown() || !val.Type().Equals(cty.Bool) {
		return false, fmt.Errorf("condition %q must evaluate to a bool, got %s", c.source, val.Type().FriendlyName())
	}
	return val.True(), nil
}

// Flags returns the flag names the condition reads.
func (c *Condition) Flags() []string {
	if c == nil {
		return nil
	}
	out := append([]string(nil), c.names...)
	for _, n := range []string{c.IfFlag, c.IfNotFlag} {
		if n != "" {
			out = append(out, n)
		}
	}
	sort.Strings(out)
	return out
}

func (c *Condition) String() string {
	if c == nil {
		return ""
	}
	var parts []string
	if c.IfFlag != "" {
		parts = append(parts, "if-flag="+c.IfFlag)
	}
	if c.IfNotFlag != "" {
		parts = append(parts, "if-not-flag="+c.IfNotFlag)
	}
	if c.source != "" {
		parts = append(parts, "if="+c.source)
	}
	return strings.Join(parts, " ")
}
