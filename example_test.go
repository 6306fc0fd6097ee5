package loom_test

import (
	"context"
	"fmt"
	"log"
	"time"

	. "loom"
)

// A bordered box wraps its text to the space inside the border and padding.
func ExampleRenderString() {
	box := New(View{Border: BorderRound, Padding: Edges{Left: 1, Right: 1}, Width: Cells(16)},
		Str("a wrapping example"),
	)
	fmt.Println(RenderString(box, 40))
	// Output:
	// ╭──────────────╮
	// │ a wrapping   │
	// │ example      │
	// ╰──────────────╯
}

// Rows lay children out side by side; Grow hands them the free space.
func ExampleView_row() {
	bar := New(View{Width: Cells(20)},
		Str("left"),
		New(View{Grow: 1}),
		Str("right"),
	)
	fmt.Println(RenderString(bar, 40))
	// Output:
	// left           right
}

// Columns stack their children; Gap separates them.
func ExampleView_column() {
	list := New(View{Direction: Column, Gap: 1},
		Str("first"),
		Str("second"),
	)
	fmt.Println(RenderString(list, 20))
	// Output:
	// first
	//
	// second
}

// Fragments and providers add no box of their own.
func ExampleGroup() {
	fmt.Println(RenderString(New(View{Gap: 1}, Group(Str("a"), Str("b")), Str("c")), 10))
	// Output:
	// a b c
}

type greeting struct{ name string }

func (g greeting) Render(s *Scope) Element {
	punct, _ := UseContext[string](s)
	return Strf("hello, %s%s", g.name, punct)
}

// Components read values provided by their ancestors.
func ExampleUseContext() {
	fmt.Println(RenderString(Provide("!", New(greeting{name: "loom"})), 20))
	// Output:
	// hello, loom!
}

type ticker struct{}

func (ticker) Render(s *Scope) Element {
	n := UseState(s, 0)
	exit := UseExit(s)
	UseInterval(s, 100*time.Millisecond, func() {
		n.Update(func(v int) int { return v + 1 })
	})
	UseEffect(s, func() func() {
		if n.Get() == 10 {
			exit()
		}
		return nil
	}, n.Get())
	return Strf("tick %d", n.Get())
}

// Run drives a component until it exits.
func ExampleRun() {
	if err := Run(context.Background(), New(ticker{})); err != nil {
		log.Fatal(err)
	}
}
