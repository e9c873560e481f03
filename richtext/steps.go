package richtext

import (
	"fmt"

	"github.com/alimasry/go-collab-cms/crdt"
	"github.com/alimasry/go-collab-cms/ot"
)

// Step types understood by ApplySteps. Others are ignored.
const (
	StepReplace    = "replace"
	StepAddMark    = "addMark"
	StepRemoveMark = "removeMark"
)

// Step is one editor step as sent by clients.
type Step struct {
	StepType string `json:"stepType"`
	From     int    `json:"from"`
	To       int    `json:"to"`
	Slice    *Slice `json:"slice,omitempty"`
	Mark     *Mark  `json:"mark,omitempty"`
}

// Slice is the content a replace step inserts.
type Slice struct {
	Content []SliceNode `json:"content,omitempty"`
}

// SliceNode is one item of slice content. Only text items are applied.
type SliceNode struct {
	Type  string `json:"type"`
	Text  string `json:"text,omitempty"`
	Marks []Mark `json:"marks,omitempty"`
}

// Mark is an inline mark reference.
type Mark struct {
	Type  string         `json:"type"`
	Attrs map[string]any `json:"attrs,omitempty"`
}

func (m Mark) value() any {
	if m.Attrs == nil {
		return map[string]any{"value": true}
	}
	return m.Attrs
}

// ApplySteps applies steps in order as one batch. If any step fails the
// document is left exactly as it was. It reports whether the content
// changed; a changed batch is committed.
func ApplySteps(doc *crdt.Doc, steps []Step) (bool, error) {
	if len(steps) == 0 {
		return false, nil
	}
	snap := doc.Clone()
	changed := false
	for i, s := range steps {
		ch, err := applyStep(doc, s)
		if err != nil {
			doc.Restore(snap)
			return false, fmt.Errorf("step %d (%s): %w", i, s.StepType, err)
		}
		changed = changed || ch
	}
	if changed {
		doc.Commit()
	}
	return changed, nil
}

func applyStep(doc *crdt.Doc, s Step) (bool, error) {
	switch s.StepType {
	case StepReplace:
		return applyReplace(doc, s)
	case StepAddMark:
		if s.Mark == nil || s.Mark.Type == "" {
			return false, nil
		}
		return applyMark(doc, s.From, s.To, s.Mark.Type, s.Mark.value())
	case StepRemoveMark:
		if s.Mark == nil || s.Mark.Type == "" {
			return false, nil
		}
		return applyMark(doc, s.From, s.To, s.Mark.Type, nil)
	default:
		return false, nil
	}
}

func applyReplace(doc *crdt.Doc, s Step) (bool, error) {
	changed := false
	if s.From != s.To {
		p, err := FindTextAt(doc, s.From)
		if err != nil {
			return false, err
		}
		end := min(s.To, p.Start+p.Text.Len()) - p.Start
		if p.Offset < end {
			if err := p.Text.Delete(p.Offset, end-p.Offset); err != nil {
				return false, err
			}
			changed = true
		}
	}
	if s.Slice == nil {
		return changed, nil
	}

	at := s.From
	for _, item := range s.Slice.Content {
		if item.Type != "text" || item.Text == "" {
			continue
		}
		p, err := FindTextAt(doc, at)
		if err != nil {
			return false, err
		}
		var attrs ot.Attributes
		if len(item.Marks) > 0 {
			attrs = make(ot.Attributes, len(item.Marks))
			for _, m := range item.Marks {
				attrs[m.Type] = m.value()
			}
		}
		op := ot.Operation{}.Retain(p.Offset, nil).Insert(item.Text, attrs)
		if err := p.Text.ApplyDelta(op); err != nil {
			return false, err
		}
		at += op.TargetLen() - op.BaseLen()
		changed = true
	}
	return changed, nil
}

func applyMark(doc *crdt.Doc, from, to int, key string, value any) (bool, error) {
	p, err := FindTextAt(doc, from)
	if err != nil {
		return false, err
	}
	end := min(to, p.Start+p.Text.Len()) - p.Start
	if p.Offset >= end {
		return false, nil
	}
	before := doc.Pending()
	if err := p.Text.Mark(p.Offset, end, key, value); err != nil {
		return false, err
	}
	return doc.Pending() != before, nil
}
