// inline multi-progress, like docker pull or cargo build
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"time"

	. "loom"
)

type layer struct {
	name string
	pct  int
}

func bar(pct, width int) string {
	filled := pct * width / 100
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

type pull struct {
	names []string
}

func (p pull) Render(s *Scope) Element {
	layers := UseState(s, func() []layer {
		out := make([]layer, len(p.names))
		for i, n := range p.names {
			out[i] = layer{name: n}
		}
		return out
	}())
	exit := UseExit(s)
	out := UseOutput(s)

	UseInterval(s, 60*time.Millisecond, func() {
		layers.Update(func(ls []layer) []layer {
			next := append([]layer(nil), ls...)
			for i := range next {
				next[i].pct = min(next[i].pct+1+rand.Intn(4), 100)
			}
			return next
		})
	})

	done := 0
	rows := make([]Element, 0, len(layers.Get()))
	for _, l := range layers.Get() {
		status := New(Text{Content: "pulling"})
		if l.pct == 100 {
			done++
			status = New(Text{Content: "✓ done", Color: Green})
		}
		rows = append(rows, New(View{Gap: 1},
			New(View{Width: Cells(15)}, New(Text{Content: l.name, Color: BrightBlack})),
			New(Text{Content: bar(l.pct, 30), Color: Cyan}),
			status,
		).WithKey(l.name))
	}

	UseEffect(s, func() func() {
		if done > 0 {
			out.Printf("%d/%d layers pulled", done, len(rows))
		}
		return nil
	}, done)

	all := done == len(rows)
	UseEffect(s, func() func() {
		if all {
			exit()
		}
		return nil
	}, all)

	return New(View{Direction: Column}, rows...)
}

func main() {
	config := flag.String("config", "", "options file (yaml or toml)")
	flag.Parse()

	opts := DefaultOptions()
	if *config != "" {
		var err error
		if opts, err = LoadOptions(*config); err != nil {
			log.Fatal(err)
		}
	}
	opts = opts.FromEnv()

	root := New(pull{names: []string{"sha256:a1b2c3", "sha256:d4e5f6", "sha256:78abcd", "sha256:ef0123"}})
	if err := Run(context.Background(), root, WithOptions(opts)); err != nil {
		log.Fatal(err)
	}
	fmt.Println("Pull complete!")
}
