package loom

import (
	"fmt"
	"reflect"

	"loom/flex"
)

// Component is the props record of an element. Its dynamic type is the
// element's kind: two elements are the same kind exactly when their props
// have the same Go type.
//
// Valid props are the host kinds View, Text and Styled, the transparent kinds
// Fragment and Provider, and any type implementing Renderer.
type Component any

// Renderer is implemented by composite components. Render is called on every
// cycle with the scope of the component's instance and returns the single
// element the component renders to. Hooks must be called on s in the same
// order on every render.
type Renderer interface {
	Render(s *Scope) Element
}

// RenderFunc adapts a plain function to a Renderer.
//
// All RenderFunc elements share one kind, so two different functions at the
// same position reuse one instance. Declare a named type for components that
// need their own identity.
type RenderFunc func(s *Scope) Element

func (f RenderFunc) Render(s *Scope) Element { return f(s) }

// Element is an immutable description of one node of desired UI for a
// single render.
type Element struct {
	Key      any
	Props    Component
	Children []Element
}

// New builds an element. It panics if props is not a valid component kind or
// if a Text or Styled element is given children. Pointers to host props are
// dereferenced, so &View{} and View{} are the same kind.
func New(props Component, children ...Element) Element {
	return Element{Props: normalizeProps(props, len(children)), Children: children}
}

// WithKey returns a copy of e carrying key. Keys must be comparable; siblings
// with keys are matched across renders by key instead of position.
func (e Element) WithKey(key any) Element {
	if key != nil && !reflect.TypeOf(key).Comparable() {
		contractf("element", ErrInvalidElement, "key of type %T is not comparable", key)
	}
	e.Key = key
	return e
}

// IsZero reports whether e carries no content.
func (e Element) IsZero() bool {
	return e.Props == nil
}

// kind returns the component kind of e.
func (e Element) kind() reflect.Type {
	return reflect.TypeOf(e.Props)
}

func normalizeProps(props Component, children int) Component {
	switch p := props.(type) {
	case nil:
		contractf("element", ErrInvalidElement, "nil props")
	case *View:
		if p != nil {
			return *p
		}
	case *Provider:
		if p != nil {
			return *p
		}
	case *Text:
		if p != nil {
			return normalizeProps(*p, children)
		}
	case *Styled:
		if p != nil {
			return normalizeProps(*p, children)
		}
	case View, Fragment, Provider:
		return props
	case Text, Styled:
		if children > 0 {
			contractf("element", ErrInvalidElement, "%T cannot have children", props)
		}
		return props
	case Renderer:
		if v := reflect.ValueOf(p); v.Kind() == reflect.Pointer && v.IsNil() {
			contractf("element", ErrInvalidElement, "nil %T", props)
		}
		return props
	}
	contractf("element", ErrInvalidElement, "%T is not a component", props)
	return nil
}

// Str returns a Text element with the given content.
func Str(content string) Element {
	return New(Text{Content: content})
}

// Strf returns a Text element with formatted content.
func Strf(format string, args ...any) Element {
	return New(Text{Content: fmt.Sprintf(format, args...)})
}

// Group returns a Fragment of the given children.
func Group(children ...Element) Element {
	return New(Fragment{}, children...)
}

// Layout vocabulary, shared with the flex solver.
type (
	Dimension = flex.Dimension
	Edges     = flex.Edges
	Insets    = flex.Insets
	Direction = flex.Direction
	Position  = flex.Position
	Justify   = flex.Justify
	FlexAlign = flex.Align
)

const (
	Row    = flex.Row
	Column = flex.Column

	Relative = flex.Relative
	Absolute = flex.Absolute

	JustifyStart        = flex.JustifyStart
	JustifyCenter       = flex.JustifyCenter
	JustifyEnd          = flex.JustifyEnd
	JustifySpaceBetween = flex.JustifySpaceBetween
	JustifySpaceAround  = flex.JustifySpaceAround
	JustifySpaceEvenly  = flex.JustifySpaceEvenly

	ItemsAuto    = flex.AlignAuto
	ItemsStretch = flex.AlignStretch
	ItemsStart   = flex.AlignStart
	ItemsCenter  = flex.AlignCenter
	ItemsEnd     = flex.AlignEnd
)

// Auto, Cells and Percent build dimensions.
var (
	Auto    = flex.Auto
	Cells   = flex.Cells
	Percent = flex.Percent
	Uniform = flex.Uniform
)

// Overflow decides what happens to children that extend past a box.
type Overflow uint8

const (
	// OverflowClip hides content outside the box.
	OverflowClip Overflow = iota
	// OverflowScroll clips like OverflowClip and shifts content by the
	// box's scroll offset.
	OverflowScroll
	// OverflowVisible paints children past the box, clipped only by ancestors.
	OverflowVisible
)

// View is a box: a flex container with optional border and background.
type View struct {
	Direction  Direction
	Justify    Justify
	AlignItems FlexAlign
	AlignSelf  FlexAlign
	Gap        int

	Width, Height       Dimension
	MinWidth, MinHeight Dimension
	MaxWidth, MaxHeight Dimension
	Basis               Dimension
	Grow                float64
	Shrink              float64 // 0 means the default of 1
	NoShrink            bool

	Padding Edges
	Margin  Edges

	Position Position
	Inset    Insets
	Hidden   bool

	Border      BorderStyle
	BorderSides Sides // 0 means all sides
	BorderColor Color
	Background  Color

	Overflow Overflow
	ScrollX  int
	ScrollY  int
}

// Text is a run of uniformly styled text that wraps to its box.
type Text struct {
	Content    string
	Color      Color
	Background Color
	Weight     Weight
	Attr       Attribute
	Align      Align
	Wrap       WrapMode
}

// Span is a piece of Styled text.
type Span struct {
	Text  string
	Style Style
}

// Styled is text made of differently styled spans, wrapped as one paragraph.
type Styled struct {
	Spans []Span
	Align Align
	Wrap  WrapMode
}

// Fragment groups children without adding a box to the layout.
type Fragment struct{}

// Provider makes Value available to descendants through UseContext.
// It adds no box to the layout.
type Provider struct {
	Value any
}

// Provide returns a Provider element wrapping children.
func Provide(value any, children ...Element) Element {
	return New(Provider{Value: value}, children...)
}
