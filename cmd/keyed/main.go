// keyed list: every row keeps its own counter while the list is shuffled
package main

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"time"

	. "loom"
	"loom/term"
)

type row struct {
	id   int
	name string
}

// ticker counts up on its own; the count follows the row's key.
type ticker struct {
	name string
}

func (t ticker) Render(s *Scope) Element {
	n := UseState(s, 0)
	UseInterval(s, 250*time.Millisecond, func() {
		n.Update(func(v int) int { return v + 1 })
	})
	return New(View{Gap: 1},
		New(View{Width: Cells(10)}, Str(t.name)),
		New(Text{Content: fmt.Sprintf("%4d", n.Get()), Color: Yellow}),
	)
}

type list struct {
	rows *Observable[row]
}

func (l list) Render(s *Scope) Element {
	rows := UseObservable(s, l.rows)
	exit := UseExit(s)
	next := UseRef(s, len(rows))

	UseInput(s, func(ev term.Event) {
		switch {
		case ev.IsRune('s'):
			shuffled := l.rows.Items()
			rand.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
			l.rows.Set(shuffled)
		case ev.IsRune('a'):
			next.Current++
			l.rows.Add(row{id: next.Current, name: fmt.Sprintf("row %d", next.Current)})
		case ev.IsRune('d'):
			if l.rows.Len() > 0 {
				l.rows.RemoveAt(0)
			}
		case ev.IsRune('q'):
			exit()
		}
	})

	items := make([]Element, 0, len(rows))
	for _, r := range rows {
		items = append(items, New(ticker{name: r.name}).WithKey(r.id))
	}
	if len(items) == 0 {
		items = append(items, New(Text{Content: "(empty)", Color: BrightBlack}))
	}
	return New(View{Direction: Column},
		New(View{Direction: Column, Border: BorderSingle, Padding: Edges{Left: 1, Right: 1}, Width: Cells(24)}, items...),
		New(Text{Content: "s shuffle  a add  d delete  q quit", Color: BrightBlack}),
	)
}

func main() {
	rows := NewObservable[row]()
	for i := 1; i <= 5; i++ {
		rows.Add(row{id: i, name: fmt.Sprintf("row %d", i)})
	}
	opts := DefaultOptions().FromEnv()
	if err := Run(context.Background(), New(list{rows: rows}), WithOptions(opts)); err != nil {
		log.Fatal(err)
	}
}
