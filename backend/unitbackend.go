package backend

import (
	"context"

	"github.com/PLATOONProject/Awudima-FQP/exec"
	"github.com/PLATOONProject/Awudima-FQP/rdf"
)

// UnitBackend executes the decomposer's zero-triple-pattern placeholder
// leaf (exec.Service.BackendKind == "unit"): it emits exactly one binding
// with no variables bound, then closes. This is the "SELECT * WHERE {}"
// boundary behavior -- one empty-binding row, not zero bindings.
type UnitBackend struct{}

// Execute implements exec.Backend.
func (UnitBackend) Execute(ctx context.Context, svc *exec.Service, out exec.Queue) {
	defer out.Close()
	out.Send(ctx, exec.Item{Binding: rdf.Binding{}})
}
