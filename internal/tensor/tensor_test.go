package tensor

import "testing"

func TestShapeNumElements(t *testing.T) {
	tests := []struct {
		shape Shape
		want  int
	}{
		{Shape{}, 1},
		{Shape{5}, 5},
		{Shape{3, 4}, 12},
		{Shape{2, 3, 4}, 24},
	}
	for _, tt := range tests {
		if got := tt.shape.NumElements(); got != tt.want {
			t.Errorf("Shape%v.NumElements() = %d, want %d", tt.shape, got, tt.want)
		}
	}
}

func TestShapeValidate(t *testing.T) {
	if err := (Shape{3, 4}).Validate(); err != nil {
		t.Errorf("valid shape rejected: %v", err)
	}
	if err := (Shape{3, 0}).Validate(); err == nil {
		t.Error("zero dimension accepted")
	}
	if err := (Shape{-1, 4}).Validate(); err == nil {
		t.Error("negative dimension accepted")
	}
}

func TestComputeStrides(t *testing.T) {
	strides := Shape{2, 3, 4}.ComputeStrides()
	want := []int{12, 4, 1}
	for i := range want {
		if strides[i] != want[i] {
			t.Errorf("strides = %v, want %v", strides, want)
			break
		}
	}
}

func TestBroadcastShapes(t *testing.T) {
	tests := []struct {
		a, b, want Shape
		broadcast  bool
	}{
		{Shape{3, 4}, Shape{3, 4}, Shape{3, 4}, false},
		{Shape{3, 4}, Shape{4}, Shape{3, 4}, false},
		{Shape{3, 1}, Shape{1, 4}, Shape{3, 4}, true},
		{Shape{8, 128}, Shape{1, 128}, Shape{8, 128}, true},
	}
	for _, tt := range tests {
		got, broadcast, err := BroadcastShapes(tt.a, tt.b)
		if err != nil {
			t.Errorf("BroadcastShapes(%v, %v) error: %v", tt.a, tt.b, err)
			continue
		}
		if !got.Equal(tt.want) || broadcast != tt.broadcast {
			t.Errorf("BroadcastShapes(%v, %v) = %v, %v; want %v, %v",
				tt.a, tt.b, got, broadcast, tt.want, tt.broadcast)
		}
	}
}

func TestBroadcastShapesIncompatible(t *testing.T) {
	if _, _, err := BroadcastShapes(Shape{3, 4}, Shape{3, 5}); err == nil {
		t.Error("incompatible shapes accepted")
	}
}

func TestRawTensorCloneSharesBuffer(t *testing.T) {
	raw, err := NewRaw(Shape{4}, Float32, CPU)
	if err != nil {
		t.Fatal(err)
	}
	clone := raw.Clone()

	if raw.IsUnique() {
		t.Error("original reported unique after clone")
	}

	// Writing through one view must be visible through the other.
	raw.AsFloat32()[0] = 7
	if clone.AsFloat32()[0] != 7 {
		t.Error("clone does not share buffer")
	}

	clone.Release()
	if !raw.IsUnique() {
		t.Error("original not unique after clone released")
	}
}

func TestRawTensorDeepCloneNoAliasing(t *testing.T) {
	raw, err := NewRaw(Shape{3}, Float32, CPU)
	if err != nil {
		t.Fatal(err)
	}
	raw.AsFloat32()[1] = 2.5

	snap := raw.DeepClone()
	if snap.AsFloat32()[1] != 2.5 {
		t.Error("snapshot did not copy values")
	}

	raw.AsFloat32()[1] = -1
	if snap.AsFloat32()[1] != 2.5 {
		t.Error("snapshot aliases the source buffer")
	}
	if !snap.IsUnique() {
		t.Error("snapshot buffer not unique")
	}
}

func TestRawTensorCopyFrom(t *testing.T) {
	dst, _ := NewRaw(Shape{2, 2}, Float32, CPU)
	src, _ := NewRaw(Shape{2, 2}, Float32, CPU)
	for i := range src.AsFloat32() {
		src.AsFloat32()[i] = float32(i)
	}

	dst.CopyFrom(src)
	for i, v := range dst.AsFloat32() {
		if v != float32(i) {
			t.Fatalf("dst[%d] = %v, want %v", i, v, float32(i))
		}
	}

	// No aliasing after copy.
	src.AsFloat32()[0] = 99
	if dst.AsFloat32()[0] != 0 {
		t.Error("CopyFrom aliased buffers")
	}
}

func TestForceNonUnique(t *testing.T) {
	raw, _ := NewRaw(Shape{2}, Float32, CPU)
	restore := raw.ForceNonUnique()
	if raw.IsUnique() {
		t.Error("tensor unique while forced non-unique")
	}
	restore()
	if !raw.IsUnique() {
		t.Error("tensor not unique after restore")
	}
}

func TestDataTypeSize(t *testing.T) {
	tests := []struct {
		dtype DataType
		size  int
	}{
		{Float32, 4},
		{Float64, 8},
		{Int32, 4},
		{Int64, 8},
		{Uint8, 1},
		{Bool, 1},
	}
	for _, tt := range tests {
		if got := tt.dtype.Size(); got != tt.size {
			t.Errorf("%s.Size() = %d, want %d", tt.dtype, got, tt.size)
		}
	}
}
