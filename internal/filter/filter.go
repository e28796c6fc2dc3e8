// Package filter implements placement matching: a boolean predicate over an
// executor's label set.
//
// A LabelsFilter is a conjunction of constraint expressions. The expression
// grammar and evaluator belong to HCL; this package fixes only the contract
// that matters to the scheduler: Matches is a pure, deterministic function
// of (constraints, labels) with no side effects. Labels are exposed to the
// expressions as the `labels` object, e.g.
//
//	labels.region == "us-east-1"
//	labels.gpu && labels.vram_gb >= 24
package filter

import (
	"encoding/json"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"
)

// constraint pairs a parsed expression with the source it came from, so a
// filter can be serialized back out verbatim.
type constraint struct {
	src  string
	expr hcl.Expression
}

// LabelsFilter is a set of constraints an executor's labels must all
// satisfy. The zero value matches every executor.
type LabelsFilter struct {
	constraints []constraint
}

// Parse builds a LabelsFilter from constraint expression sources. It fails
// on the first expression the external grammar rejects.
func Parse(sources ...string) (LabelsFilter, error) {
	f := LabelsFilter{}
	for _, src := range sources {
		expr, diags := hclsyntax.ParseExpression([]byte(src), "constraint", hcl.InitialPos)
		if diags.HasErrors() {
			return LabelsFilter{}, fmt.Errorf("parse placement constraint %q: %w", src, diags)
		}
		f.constraints = append(f.constraints, constraint{src: src, expr: expr})
	}
	return f, nil
}

// MustParse is Parse for statically known constraints, panicking on error.
// Intended for tests and compiled-in defaults.
func MustParse(sources ...string) LabelsFilter {
	f, err := Parse(sources...)
	if err != nil {
		panic(err)
	}
	return f
}

// Sources returns the constraint expression sources in declaration order.
func (f LabelsFilter) Sources() []string {
	out := make([]string, 0, len(f.constraints))
	for _, c := range f.constraints {
		out = append(out, c.src)
	}
	return out
}

// Matches reports whether every constraint evaluates to true against the
// given label map. An empty filter matches anything. A constraint that
// fails to evaluate (an absent label, a type mismatch, a non-boolean
// result) fails the match rather than erroring: an executor that cannot
// prove a capability does not have it.
func (f LabelsFilter) Matches(labels map[string]any) bool {
	if len(f.constraints) == 0 {
		return true
	}

	vars := make(map[string]cty.Value, len(labels))
	for k, v := range labels {
		val, err := labelValue(v)
		if err != nil {
			continue
		}
		vars[k] = val
	}
	evalCtx := &hcl.EvalContext{
		Variables: map[string]cty.Value{"labels": cty.ObjectVal(vars)},
	}

	for _, c := range f.constraints {
		v, diags := c.expr.Value(evalCtx)
		if diags.HasErrors() {
			return false
		}
		b, err := convert.Convert(v, cty.Bool)
		if err != nil || b.IsNull() {
			return false
		}
		if b.False() {
			return false
		}
	}
	return true
}

// labelValue converts one loosely-typed label value into a cty value.
func labelValue(v any) (cty.Value, error) {
	if v == nil {
		return cty.NullVal(cty.DynamicPseudoType), nil
	}
	ty, err := gocty.ImpliedType(v)
	if err != nil {
		return cty.NilVal, err
	}
	return gocty.ToCtyValue(v, ty)
}

// MarshalJSON encodes the filter as the array of its constraint sources.
func (f LabelsFilter) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.Sources())
}

// UnmarshalJSON decodes and re-parses an array of constraint sources.
func (f *LabelsFilter) UnmarshalJSON(data []byte) error {
	var sources []string
	if err := json.Unmarshal(data, &sources); err != nil {
		return err
	}
	parsed, err := Parse(sources...)
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}
