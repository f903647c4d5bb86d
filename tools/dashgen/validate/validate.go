// Package validate checks generated dashboards and rules: every PromQL
// expression must parse and may only reference known metrics.
package validate

import (
	"fmt"
	"strings"

	"github.com/grafana/grafana-foundation-sdk/go/dashboard"
	"github.com/grafana/grafana-foundation-sdk/go/prometheus"
	"github.com/prometheus/prometheus/promql/parser"

	"github.com/donaldgifford/game-price-tracker/tools/dashgen/rules"
)

var histogramSuffixes = []string{"_bucket", "_sum", "_count"}

var rateFuncs = map[string]bool{
	"rate":     true,
	"irate":    true,
	"increase": true,
}

// Result collects validation findings. Errors fail generation; warnings
// flag likely mistakes.
type Result struct {
	Errors   []string
	Warnings []string
}

// Ok reports whether no errors were found.
func (r Result) Ok() bool {
	return len(r.Errors) == 0
}

func (r *Result) merge(ctx string, other Result) {
	for _, e := range other.Errors {
		r.Errors = append(r.Errors, ctx+": "+e)
	}
	for _, w := range other.Warnings {
		r.Warnings = append(r.Warnings, ctx+": "+w)
	}
}

// Expr parses expr and checks its metric selectors against known.
// Counters read without rate, irate or increase produce a warning.
func Expr(expr string, known map[string]bool) Result {
	var res Result

	node, err := parser.ParseExpr(expr)
	if err != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("parse %q: %v", expr, err))
		return res
	}

	parser.Inspect(node, func(n parser.Node, path []parser.Node) error {
		vs, ok := n.(*parser.VectorSelector)
		if !ok || vs.Name == "" {
			return nil
		}
		if !isKnown(vs.Name, known) {
			res.Errors = append(res.Errors, fmt.Sprintf("unknown metric %q", vs.Name))
		}
		if strings.HasSuffix(vs.Name, "_total") && !insideRate(path) {
			res.Warnings = append(res.Warnings, fmt.Sprintf("counter %q read without rate", vs.Name))
		}
		return nil
	})

	return res
}

// Dashboard validates every Prometheus target of every panel, rows included.
func Dashboard(d dashboard.Dashboard, known map[string]bool) Result {
	var res Result

	check := func(p dashboard.Panel) {
		title := "untitled"
		if p.Title != nil {
			title = *p.Title
		}
		for _, t := range p.Targets {
			expr, ok := promExpr(t)
			if !ok {
				res.Warnings = append(res.Warnings, fmt.Sprintf("panel %q: non-Prometheus target", title))
				continue
			}
			res.merge("panel "+title, Expr(expr, known))
		}
	}

	for _, p := range d.Panels {
		switch {
		case p.Panel != nil:
			check(*p.Panel)
		case p.RowPanel != nil:
			for _, inner := range p.RowPanel.Panels {
				check(inner)
			}
		}
	}

	return res
}

// Rules validates every rule expression of a PrometheusRule CR. Recording
// rule names must themselves be known so dashboards can rely on them.
func Rules(cr rules.PrometheusRule, known map[string]bool) Result {
	var res Result
	for _, g := range cr.Spec.Groups {
		for _, r := range g.Rules {
			name := r.Record
			if name == "" {
				name = r.Alert
			}
			if r.Record != "" && !known[r.Record] {
				res.Errors = append(res.Errors, fmt.Sprintf("rule %s: recording rule is not a known metric", name))
			}
			res.merge("rule "+name, Expr(r.Expr, known))
		}
	}
	return res
}

func promExpr(t any) (string, bool) {
	switch q := t.(type) {
	case *prometheus.Dataquery:
		return q.Expr, true
	case prometheus.Dataquery:
		return q.Expr, true
	default:
		return "", false
	}
}

func isKnown(name string, known map[string]bool) bool {
	if known[name] {
		return true
	}
	for _, suffix := range histogramSuffixes {
		if base, ok := strings.CutSuffix(name, suffix); ok && known[base] {
			return true
		}
	}
	return false
}

func insideRate(path []parser.Node) bool {
	for _, n := range path {
		if call, ok := n.(*parser.Call); ok && rateFuncs[call.Func.Name] {
			return true
		}
	}
	return false
}
