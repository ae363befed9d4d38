package engine_test

import (
	"context"
	"fmt"

	"github.com/openfroyo/rootfind/pkg/engine"
)

func Example_solve() {
	eng := engine.New(engine.Options{})

	env, err := eng.Solve(context.Background(), engine.SolveRequest{
		Method:       "newton",
		FunctionType: "polynomial",
		X0:           engine.Float(1.5),
	})
	if err != nil {
		panic(err)
	}

	fmt.Printf("success=%v root=%.4f points=%d\n", env.Success, *env.Root, len(env.FunctionPoints))
	// Output: success=true root=1.5214 points=201
}

func Example_mathFailureIsData() {
	eng := engine.New(engine.Options{})

	env, err := eng.Solve(context.Background(), engine.SolveRequest{
		Method:       "bisection",
		FunctionType: "polynomial",
		A:            engine.Float(2),
		B:            engine.Float(3),
	})

	fmt.Println(err == nil, env.Success, env.Root == nil)
	fmt.Println(env.Error)
	// Output:
	// true false true
	// f(a) and f(b) must have opposite signs, the interval [2, 3] must contain a root
}

func Example_compare() {
	eng := engine.New(engine.Options{})

	cmp, err := eng.Compare(context.Background(), engine.SolveRequest{FunctionType: "trigonometric"})
	if err != nil {
		panic(err)
	}
	for _, env := range cmp.Ordered() {
		fmt.Printf("%s %.4f\n", env.Method, *env.Root)
	}
	// Output:
	// bisection 0.7391
	// newton 0.7391
	// secant 0.7391
}
