package tensor

// SliceRange selects [Start, End) along Axis. Negative bounds count from the
// end of the axis.
type SliceRange struct {
	Axis  int
	Start int
	End   int
}

// SliceSpec is a set of per-axis ranges. Axes not listed are copied whole.
type SliceSpec []SliceRange

// NewSliceSpec builds a spec from parallel axes/starts/ends lists, the form
// slice attributes usually arrive in.
func NewSliceSpec(axes, starts, ends []int) (SliceSpec, error) {
	if len(starts) != len(axes) || len(ends) != len(axes) {
		return nil, NewKernelError("slice", ErrInvalidShape,
			"axes/starts/ends lengths differ: %d/%d/%d", len(axes), len(starts), len(ends))
	}
	spec := make(SliceSpec, len(axes))
	for i := range axes {
		spec[i] = SliceRange{Axis: axes[i], Start: starts[i], End: ends[i]}
	}
	return spec, nil
}

// FullRange returns a spec covering every axis of shape completely.
func FullRange(shape Shape) SliceSpec {
	spec := make(SliceSpec, len(shape))
	for i, dim := range shape {
		spec[i] = SliceRange{Axis: i, Start: 0, End: dim}
	}
	return spec
}

// SliceBounds is a spec resolved against a concrete shape.
type SliceBounds struct {
	Starts []int // Inclusive start per axis
	Ends   []int // Exclusive end per axis
	Shape  Shape // Output shape (Ends - Starts)
}

// Resolve validates the spec against shape and computes the real per-axis
// bounds.
//
// Rules, per listed axis with a non-zero size d:
//   - a negative bound is shifted once by d (a still-negative value is not
//     shifted again)
//   - both bounds are clamped to [0, d]
//   - end < start yields an empty axis
//
// Zero-sized axes pass through untouched.
func (spec SliceSpec) Resolve(shape Shape) (SliceBounds, error) {
	rank := len(shape)
	if rank == 0 {
		return SliceBounds{}, NewKernelError("slice", ErrInvalidShape, "rank-0 input")
	}
	if err := shape.Validate(); err != nil {
		return SliceBounds{}, err
	}

	seen := make([]bool, rank)
	for _, r := range spec {
		if r.Axis < 0 || r.Axis >= rank {
			return SliceBounds{}, NewKernelError("slice", ErrInvalidAxis, "axis %d out of range for rank %d", r.Axis, rank)
		}
		if seen[r.Axis] {
			return SliceBounds{}, NewKernelError("slice", ErrInvalidAxis, "duplicate axis %d", r.Axis)
		}
		seen[r.Axis] = true
	}

	b := SliceBounds{
		Starts: make([]int, rank),
		Ends:   make([]int, rank),
		Shape:  shape.Clone(),
	}
	copy(b.Ends, shape)

	for _, r := range spec {
		d := shape[r.Axis]
		if d == 0 {
			continue
		}
		start, end := r.Start, r.End
		if start < 0 {
			start += d
		}
		if end < 0 {
			end += d
		}
		start = min(max(start, 0), d)
		end = min(max(end, 0), d)
		if end < start {
			end = start
		}
		b.Starts[r.Axis] = start
		b.Ends[r.Axis] = end
		b.Shape[r.Axis] = end - start
	}
	return b, nil
}
