package tensor

import (
	"errors"
	"testing"
)

func TestFromSlice(t *testing.T) {
	raw, err := FromSlice([]int8{-1, 0, 1, 2}, Shape{2, 2}, CPU)
	if err != nil {
		t.Fatal(err)
	}
	if raw.DType() != Int8 {
		t.Errorf("dtype = %s, want int8", raw.DType())
	}
	if raw.AsInt8()[3] != 2 {
		t.Errorf("data = %v", raw.AsInt8())
	}

	_, err = FromSlice([]float32{1, 2, 3}, Shape{2, 2}, CPU)
	if !errors.Is(err, ErrInvalidShape) {
		t.Errorf("expected ErrInvalidShape for length mismatch, got %v", err)
	}
}

func TestArange(t *testing.T) {
	raw, err := Arange(Shape{3, 4, 5, 6}, Float32, CPU)
	if err != nil {
		t.Fatal(err)
	}
	data := raw.AsFloat32()
	if len(data) != 360 {
		t.Fatalf("len = %d, want 360", len(data))
	}
	for i, v := range data {
		if v != float32(i) {
			t.Fatalf("data[%d] = %v, want %d", i, v, i)
		}
	}

	if _, err := Arange(Shape{2}, Int8, CPU); !errors.Is(err, ErrInvalidDType) {
		t.Errorf("expected ErrInvalidDType for int8, got %v", err)
	}
}

func TestFillUniform(t *testing.T) {
	raw, _ := NewRaw(Shape{1000}, Float32, CPU)
	if err := FillUniform(raw, NewRand(7), 0, 2); err != nil {
		t.Fatal(err)
	}
	for i, v := range raw.AsFloat32() {
		if v < 0 || v >= 2 {
			t.Fatalf("data[%d] = %v out of [0, 2)", i, v)
		}
	}

	ints, _ := NewRaw(Shape{4}, Int8, CPU)
	if err := FillUniform(ints, NewRand(7), 0, 1); !errors.Is(err, ErrInvalidDType) {
		t.Errorf("expected ErrInvalidDType, got %v", err)
	}
}

func TestFillIntsDeterministic(t *testing.T) {
	a, _ := NewRaw(Shape{64}, Int8, CPU)
	b, _ := NewRaw(Shape{64}, Int8, CPU)
	if err := FillInts(a, NewRand(42), -127, 127); err != nil {
		t.Fatal(err)
	}
	if err := FillInts(b, NewRand(42), -127, 127); err != nil {
		t.Fatal(err)
	}
	for i := range a.AsInt8() {
		if a.AsInt8()[i] != b.AsInt8()[i] {
			t.Fatalf("same seed produced different data at %d", i)
		}
		if a.AsInt8()[i] == -128 {
			t.Fatalf("value %d outside [-127, 127]", a.AsInt8()[i])
		}
	}

	if err := FillInts(a, NewRand(1), -200, 0); err == nil {
		t.Error("expected error for a range that does not fit int8")
	}
}

func TestFillIntsFloat(t *testing.T) {
	raw, _ := NewRaw(Shape{32}, Float32, CPU)
	if err := FillInts(raw, NewRand(3), -2, 2); err != nil {
		t.Fatal(err)
	}
	for i, v := range raw.AsFloat32() {
		if v != float32(int(v)) || v < -2 || v > 2 {
			t.Fatalf("data[%d] = %v, want integer in [-2, 2]", i, v)
		}
	}
}
