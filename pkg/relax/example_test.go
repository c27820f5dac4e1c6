package relax_test

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/pointfit/pkg/constraint"
	"github.com/matzehuels/pointfit/pkg/relax"
)

func ExampleOptimizer_Run() {
	set, _ := constraint.New([]constraint.Constraint{
		{From: "A", To: "B", Distance: 10},
		{From: "B", To: "C", Distance: 10},
		{From: "A", To: "C", Distance: 20},
	})

	opts := relax.DefaultOptions()
	opts.Logger = log.New(io.Discard)

	opt, _ := relax.New(set, opts)
	res, _ := opt.Run(context.Background())

	fmt.Println("Hub:", res.Hub.ID)
	fmt.Println("Terminated:", res.Status.Terminated())
	fmt.Println("Improved:", res.Final.Cumulative < res.Initial.Cumulative)
	// Output:
	// Hub: A
	// Terminated: true
	// Improved: true
}
