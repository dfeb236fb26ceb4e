// Package cel compiles emission filter expressions over raddecs.
package cel

import (
	"context"
	"fmt"

	"github.com/google/cel-go/cel"

	"mokosmart/pkg/raddec"
)

type Evaluator struct {
	env *cel.Env
}

func NewEvaluator() (*Evaluator, error) {
	env, err := cel.NewEnv(
		cel.Variable("transmitterId", cel.StringType),
		cel.Variable("transmitterIdType", cel.IntType),
		cel.Variable("receiverId", cel.StringType),
		cel.Variable("receiverIdType", cel.IntType),
		cel.Variable("rssi", cel.IntType),
		cel.Variable("numberOfReceivers", cel.IntType),
		cel.Variable("packets", cel.ListType(cel.StringType)),
		cel.Variable("hasTimestamp", cel.BoolType),
		cel.Variable("timestamp", cel.TimestampType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	return &Evaluator{env: env}, nil
}

func (e *Evaluator) ValidateFilterExpression(expression string) error {
	_, err := e.compileFilter(expression)
	return err
}

func (e *Evaluator) compileFilter(expression string) (cel.Program, error) {
	ast, issues := e.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("CEL expression validation failed: %w", issues.Err())
	}

	if ast.OutputType() != cel.BoolType {
		return nil, fmt.Errorf("filter expression must return bool, got %v", ast.OutputType())
	}

	program, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL program: %w", err)
	}
	return program, nil
}

// Filter is a compiled boolean expression, safe for concurrent use.
type Filter struct {
	expression string
	program    cel.Program
}

func (e *Evaluator) NewFilter(expression string) (*Filter, error) {
	program, err := e.compileFilter(expression)
	if err != nil {
		return nil, err
	}
	return &Filter{expression: expression, program: program}, nil
}

func (f *Filter) Expression() string {
	return f.expression
}

// Match reports whether r passes the filter.
func (f *Filter) Match(ctx context.Context, r *raddec.Raddec) (bool, error) {
	result, _, err := f.program.ContextEval(ctx, raddecVars(r))
	if err != nil {
		return false, fmt.Errorf("failed to evaluate CEL expression: %w", err)
	}

	boolVal, ok := result.Value().(bool)
	if !ok {
		return false, fmt.Errorf("CEL expression did not return bool, got %T", result.Value())
	}

	return boolVal, nil
}

func raddecVars(r *raddec.Raddec) map[string]interface{} {
	vars := map[string]interface{}{
		"transmitterId":     r.TransmitterID,
		"transmitterIdType": int64(r.TransmitterIDType),
		"receiverId":        "",
		"receiverIdType":    int64(raddec.TypeUnknown),
		"rssi":              int64(0),
		"numberOfReceivers": int64(len(r.RSSISignature)),
		"packets":           r.Packets,
		"hasTimestamp":      r.Timestamp != nil,
	}

	if r.Packets == nil {
		vars["packets"] = []string{}
	}

	if len(r.RSSISignature) > 0 {
		vars["receiverId"] = r.RSSISignature[0].ReceiverID
		vars["receiverIdType"] = int64(r.RSSISignature[0].ReceiverIDType)
	}
	if rssi, ok := r.StrongestRSSI(); ok {
		vars["rssi"] = int64(rssi)
	}

	ts, _ := r.Time()
	vars["timestamp"] = ts.UTC()

	return vars
}
