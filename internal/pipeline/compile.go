package pipeline

import (
	"context"
	"errors"

	"github.com/futureCreator/vflow/internal/dsl"
	"github.com/futureCreator/vflow/internal/workflow"
)

// Compile resolves the chain of node against reg and feeds it into a new
// builder: a "prepare" start action seeds the store, the resolved steps
// form the body in chain order. Callers may add error and finally actions
// before building.
func Compile(node *dsl.PipelineNode, reg *Registry) (*workflow.Builder, error) {
	steps, err := ResolveAll(node, reg)
	if err != nil {
		return nil, err
	}
	b := workflow.NewBuilder(node.Name)
	b.AddFunc(workflow.PhaseStart, "prepare", prepare(node.Name))
	b.Body(steps...)
	return b, nil
}

func prepare(name string) workflow.ActionFunc {
	return func(_ context.Context, wc *workflow.Context) error {
		wc.Set(KeyPipelineName, name)
		in, err := workflow.InputAs[Input](wc)
		if errors.Is(err, workflow.ErrNoInput) {
			return nil
		}
		if err != nil {
			return err
		}
		for _, k := range in.SortedVars() {
			wc.Set(KeyVarPrefix+k, in.Vars[k])
		}
		return nil
	}
}
