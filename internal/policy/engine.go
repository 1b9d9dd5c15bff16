// Package policy gates report filing with a rego policy.
package policy

import (
	"context"
	"fmt"

	"github.com/open-policy-agent/opa/v1/rego"
)

// Filing decisions.
const (
	DecisionFile  = "file"
	DecisionBlock = "block"
)

// FilingInput is the policy input describing a completed session.
type FilingInput struct {
	SessionID    string `json:"session_id"`
	Channel      string `json:"channel"`
	MarkerSeen   bool   `json:"marker_seen"`
	AlreadyFiled bool   `json:"already_filed"`
	Payload      string `json:"payload"`
	PayloadJSON  bool   `json:"payload_json"`
}

// Decision is the outcome of a policy evaluation.
type Decision struct {
	Decision string `json:"decision"`
	Reason   string `json:"reason"`
}

// Allowed reports whether the report may be filed.
func (d Decision) Allowed() bool {
	return d.Decision == DecisionFile
}

// Engine is the OPA policy engine.
type Engine struct {
	query rego.PreparedEvalQuery
}

// NewEngine creates a new policy engine with the given policy content.
func NewEngine(ctx context.Context, policyContent string) (*Engine, error) {
	r := rego.New(
		rego.Query("data.report_filing.result"),
		rego.Module("report_filing.rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}

	return &Engine{query: query}, nil
}

// Evaluate checks whether a completed session may be filed.
func (e *Engine) Evaluate(ctx context.Context, input FilingInput) (Decision, error) {
	results, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return Decision{}, fmt.Errorf("failed to evaluate policy: %w", err)
	}

	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return Decision{Decision: DecisionBlock, Reason: "undefined"}, nil
	}

	obj, ok := results[0].Expressions[0].Value.(map[string]interface{})
	if !ok {
		return Decision{Decision: DecisionBlock, Reason: "unexpected return type"}, nil
	}
	d := Decision{}
	d.Decision, _ = obj["decision"].(string)
	d.Reason, _ = obj["reason"].(string)
	if d.Decision == "" {
		d.Decision = DecisionBlock
	}
	return d, nil
}

// DefaultPolicy files a report once per completed session. Unstructured
// payloads are still filed since storage is schema-less.
const DefaultPolicy = `
package report_filing

import rego.v1

default decision := "block"

decision := "file" if {
	input.marker_seen
	not input.already_filed
	trim_space(input.payload) != ""
}

default reason := "incomplete"

reason := "already_filed" if input.already_filed

reason := "empty_payload" if {
	not input.already_filed
	input.marker_seen
	trim_space(input.payload) == ""
}

reason := "no_confirmation" if {
	not input.already_filed
	not input.marker_seen
}

reason := "structured" if {
	decision == "file"
	input.payload_json
}

reason := "unstructured" if {
	decision == "file"
	not input.payload_json
}

result := {"decision": decision, "reason": reason}
`
