package richtext

import (
	"errors"
	"fmt"

	"github.com/alimasry/go-collab-cms/crdt"
)

// ErrPositionNotFound is returned when an editor position does not fall
// inside any text container.
var ErrPositionNotFound = errors.New("position not found")

// PositionNotFoundError carries the position that could not be resolved.
type PositionNotFoundError struct {
	Pos int
}

func (e *PositionNotFoundError) Error() string {
	return fmt.Sprintf("position %d not found", e.Pos)
}

func (e *PositionNotFoundError) Is(target error) bool { return target == ErrPositionNotFound }

// Position locates an editor position inside a text container.
type Position struct {
	Text   *crdt.Text
	Start  int // editor position of the first code point of Text
	Offset int // code points into Text
}

// FindTextAt walks the document's node tree in order and returns the text
// container holding pos. A text of length L spans [start, start+L]; every
// nested node counts one position after its children and any other
// non-text child counts one.
func FindTextAt(doc *crdt.Doc, pos int) (Position, error) {
	if !doc.HasMap(RootKey) {
		return Position{}, fmt.Errorf("%w: no %q root", ErrMalformedDocument, RootKey)
	}
	children, ok := doc.Map(RootKey).GetList(ChildrenKey)
	if !ok {
		return Position{}, fmt.Errorf("%w: no %q list", ErrMalformedDocument, ChildrenKey)
	}
	cur := 0
	if p, ok := walk(children, pos, &cur); ok {
		return p, nil
	}
	return Position{}, &PositionNotFoundError{Pos: pos}
}

func walk(list *crdt.List, pos int, cur *int) (Position, bool) {
	for i := 0; i < list.Len(); i++ {
		v, _ := list.Get(i)
		switch n := v.(type) {
		case *crdt.Text:
			l := n.Len()
			if pos >= *cur && pos <= *cur+l {
				return Position{Text: n, Start: *cur, Offset: pos - *cur}, true
			}
			*cur += l
		case *crdt.Map:
			inner, ok := n.GetList(ChildrenKey)
			if !ok {
				continue
			}
			if p, ok := walk(inner, pos, cur); ok {
				return p, true
			}
			*cur++
		default:
			*cur++
		}
	}
	return Position{}, false
}
