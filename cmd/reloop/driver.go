package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/LISSConsulting/LISSTech.Reloop/internal/loop"
	"github.com/LISSConsulting/LISSTech.Reloop/internal/module"
)

// callResult holds what one module's export returned.
type callResult struct {
	Module string
	Values []uint64
}

func (r callResult) String() string {
	return fmt.Sprintf("%s=%v", r.Module, r.Values)
}

// callResults is the value of one driver run, in module order.
type callResults []callResult

func (rs callResults) String() string {
	parts := make([]string, len(rs))
	for i, r := range rs {
		parts[i] = r.String()
	}
	return strings.Join(parts, " ")
}

// callDriver returns a driver that calls export with no arguments on every
// module in order. The first failing call rejects the run.
func callDriver(export string) loop.Driver[callResults] {
	return func(ctx context.Context, mods ...*module.Instance) (callResults, error) {
		results := make(callResults, 0, len(mods))
		for _, m := range mods {
			values, err := m.Call(ctx, export)
			if err != nil {
				return nil, fmt.Errorf("call %s in %s: %w", export, m.ID, err)
			}
			results = append(results, callResult{Module: m.ID, Values: values})
		}
		return results, nil
	}
}
