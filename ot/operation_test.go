package ot

import "testing"

func TestBaseLen(t *testing.T) {
	tests := []struct {
		name string
		op   Operation
		want int
	}{
		{"retain only", Operation{[]Component{{Retain: 5}}}, 5},
		{"insert only", Operation{[]Component{{Insert: "hi"}}}, 0},
		{"delete only", Operation{[]Component{{Delete: 3}}}, 3},
		{"mixed", Operation{[]Component{{Retain: 2}, {Insert: "x"}, {Delete: 1}, {Retain: 3}}}, 6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.op.BaseLen(); got != tt.want {
				t.Errorf("BaseLen() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestTargetLen(t *testing.T) {
	tests := []struct {
		name string
		op   Operation
		want int
	}{
		{"retain only", Operation{[]Component{{Retain: 5}}}, 5},
		{"insert only", Operation{[]Component{{Insert: "hi"}}}, 2},
		{"insert multibyte", Operation{[]Component{{Insert: "héé"}}}, 3},
		{"delete only", Operation{[]Component{{Delete: 3}}}, 0},
		{"mixed", Operation{[]Component{{Retain: 2}, {Insert: "x"}, {Delete: 1}, {Retain: 3}}}, 6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.op.TargetLen(); got != tt.want {
				t.Errorf("TargetLen() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestIsNoop(t *testing.T) {
	tests := []struct {
		name string
		op   Operation
		want bool
	}{
		{"empty", Operation{}, true},
		{"retain only", Operation{[]Component{{Retain: 5}}}, true},
		{"retain with attributes", NewFormat(0, 5, Attributes{"bold": true}), false},
		{"has insert", Operation{[]Component{{Retain: 2}, {Insert: "x"}}}, false},
		{"has delete", Operation{[]Component{{Delete: 1}}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.op.IsNoop(); got != tt.want {
				t.Errorf("IsNoop() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestApply(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		op      Operation
		want    string
		wantErr bool
	}{
		{"insert at start", "hello", NewInsert(0, "X", 5), "Xhello", false},
		{"insert at end", "hello", NewInsert(5, "!", 5), "hello!", false},
		{"insert in middle", "hello", NewInsert(2, "XY", 5), "heXYllo", false},
		{"delete at start", "hello", NewDelete(0, 2, 5), "llo", false},
		{"delete at end", "hello", NewDelete(3, 2, 5), "hel", false},
		{"delete in middle", "hello", NewDelete(1, 3, 5), "ho", false},
		{"delete multibyte", "héllo", NewDelete(1, 1, 5), "hllo", false},
		{"length mismatch", "hi", NewInsert(0, "x", 5), "", true},
		{"empty doc insert", "", Operation{[]Component{{Insert: "hi"}}}, "hi", false},
		{"retain all", "hello", Operation{[]Component{{Retain: 5}}}, "hello", false},
		{"short op retains rest", "hello", Operation{}.Retain(2, nil).Insert("X", nil), "heXllo", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Apply(NewDocument(tt.doc).Runs, tt.op)
			if (err != nil) != tt.wantErr {
				t.Errorf("Apply() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if Text(got) != tt.want {
				t.Errorf("Apply() = %q, want %q", Text(got), tt.want)
			}
		})
	}
}

func TestApply_Format(t *testing.T) {
	runs := NewDocument("Hello").Runs

	bold, err := Apply(runs, NewFormat(1, 2, Attributes{"bold": true}))
	if err != nil {
		t.Fatal(err)
	}
	if len(bold) != 3 {
		t.Fatalf("got %d runs, want 3: %+v", len(bold), bold)
	}
	if bold[1].Text != "el" || bold[1].Attrs["bold"] != true {
		t.Errorf("unexpected middle run: %+v", bold[1])
	}
	if bold[0].Attrs != nil || bold[2].Attrs != nil {
		t.Errorf("outer runs should be plain: %+v", bold)
	}

	// A nil attribute value removes the mark and the runs merge back.
	plain, err := Apply(bold, NewFormat(0, 5, Attributes{"bold": nil}))
	if err != nil {
		t.Fatal(err)
	}
	if len(plain) != 1 || plain[0].Text != "Hello" || plain[0].Attrs != nil {
		t.Errorf("expected a single plain run, got %+v", plain)
	}
}

func TestApply_InsertWithAttributes(t *testing.T) {
	op := Operation{}.Retain(2, nil).Insert("XY", Attributes{"italic": true})
	got, err := Apply(NewDocument("Hello").Runs, op)
	if err != nil {
		t.Fatal(err)
	}
	want := []Run{{Text: "He"}, {Text: "XY", Attrs: Attributes{"italic": true}}, {Text: "llo"}}
	if len(got) != len(want) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
	for i := range want {
		if got[i].Text != want[i].Text || !got[i].Attrs.Equal(want[i].Attrs) {
			t.Errorf("run %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestAttributes_Compose(t *testing.T) {
	a := Attributes{"a": 1, "b": 2}
	got := a.Compose(Attributes{"b": nil, "c": 3})
	if !got.Equal(Attributes{"a": 1, "c": 3}) {
		t.Errorf("Compose() = %v", got)
	}
	if a["b"] != 2 {
		t.Error("Compose modified its receiver")
	}
	if got := (Attributes{"a": 1}).Compose(Attributes{"a": nil}); got != nil {
		t.Errorf("Compose() = %v, want nil", got)
	}
}

func TestNewInsert(t *testing.T) {
	op := NewInsert(3, "abc", 10)
	if op.BaseLen() != 10 {
		t.Errorf("BaseLen() = %d, want 10", op.BaseLen())
	}
	if op.TargetLen() != 13 {
		t.Errorf("TargetLen() = %d, want 13", op.TargetLen())
	}
}

func TestNewDelete(t *testing.T) {
	op := NewDelete(2, 3, 10)
	if op.BaseLen() != 10 {
		t.Errorf("BaseLen() = %d, want 10", op.BaseLen())
	}
	if op.TargetLen() != 7 {
		t.Errorf("TargetLen() = %d, want 7", op.TargetLen())
	}
}
