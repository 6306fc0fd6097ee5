// counter with keyboard input, a themed box and a ticking clock
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"time"

	. "loom"
	"loom/term"
)

type theme struct {
	accent Color
	border BorderStyle
}

type clock struct{}

func (clock) Render(s *Scope) Element {
	now := UseState(s, time.Now())
	UseInterval(s, time.Second, func() { now.Set(time.Now()) })
	return New(Text{Content: now.Get().Format("15:04:05"), Color: BrightBlack})
}

type counter struct{}

func (counter) Render(s *Scope) Element {
	n := UseState(s, 0)
	exit := UseExit(s)
	th, _ := UseContext[theme](s)
	w, h := UseTerminalSize(s)

	UseInput(s, func(ev term.Event) {
		switch {
		case ev.Key == term.KeyUp || ev.IsRune('+'):
			n.Update(func(v int) int { return v + 1 })
		case ev.Key == term.KeyDown || ev.IsRune('-'):
			n.Update(func(v int) int { return v - 1 })
		case ev.IsRune('0'):
			n.Set(0)
		case ev.IsRune('q') || ev.Key == term.KeyEscape:
			exit()
		}
	})

	return New(View{Direction: Column, Border: th.border, BorderColor: th.accent, Padding: Edges{Left: 1, Right: 1}, Width: Cells(32)},
		New(View{Justify: JustifySpaceBetween},
			New(Text{Content: "counter", Weight: WeightBold, Color: th.accent}),
			New(clock{}),
		),
		Strf("value %d", n.Get()),
		New(Text{Content: "↑/+ more  ↓/- less  0 reset  q quit", Color: BrightBlack}),
		Strf("terminal %dx%d", w, h),
	)
}

func main() {
	fullscreen := flag.Bool("fullscreen", false, "use the alternate screen")
	logFile := flag.String("log", "", "write debug logs to this file")
	flag.Parse()

	if *logFile != "" {
		f, err := os.Create(*logFile)
		if err != nil {
			log.Fatal(err)
		}
		defer f.Close()
		SetLogger(slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}

	root := Provide(theme{accent: Magenta, border: BorderRound}, New(counter{}))
	if err := Run(context.Background(), root, WithFullscreen(*fullscreen)); err != nil {
		log.Fatal(err)
	}
}
