package core

import "pkt.systems/rtgui/schema"

// Layer is one window in stacking order as seen by the clip computation.
type Layer struct {
	ID   schema.WindowID
	Rect schema.Rect
	// Visible is false for minimized windows; they neither get nor cast area.
	Visible bool
}

// ComputeClips returns, for each layer (front to back), the rectangles of its
// area not covered by any visible layer in front of it, bounded by screen.
// The result is parallel to layers and never holds a nil sequence.
func ComputeClips(screen schema.Rect, layers []Layer) [][]schema.Rect {
	out := make([][]schema.Rect, len(layers))
	for i, layer := range layers {
		visible := []schema.Rect{}
		if layer.Visible {
			if base := layer.Rect.Canon().Intersect(screen); !base.Empty() {
				visible = append(visible, base)
			}
		}
		for j := 0; j < i && len(visible) > 0; j++ {
			above := layers[j]
			if !above.Visible {
				continue
			}
			visible = SubtractRect(visible, above.Rect.Canon())
		}
		out[i] = visible
	}
	return out
}

// Subtract returns r minus cover as disjoint rectangles in band order:
// top, bottom, left, right.
func Subtract(r, cover schema.Rect) []schema.Rect {
	if r.Empty() {
		return nil
	}
	hit := r.Intersect(cover)
	if hit.Empty() {
		return []schema.Rect{r}
	}
	out := make([]schema.Rect, 0, 4)
	if hit.Min.Y > r.Min.Y {
		out = append(out, schema.R(r.Min.X, r.Min.Y, r.Max.X, hit.Min.Y))
	}
	if hit.Max.Y < r.Max.Y {
		out = append(out, schema.R(r.Min.X, hit.Max.Y, r.Max.X, r.Max.Y))
	}
	if hit.Min.X > r.Min.X {
		out = append(out, schema.R(r.Min.X, hit.Min.Y, hit.Min.X, hit.Max.Y))
	}
	if hit.Max.X < r.Max.X {
		out = append(out, schema.R(hit.Max.X, hit.Min.Y, r.Max.X, hit.Max.Y))
	}
	return out
}

// SubtractRect removes cover from every rectangle of region.
func SubtractRect(region []schema.Rect, cover schema.Rect) []schema.Rect {
	out := make([]schema.Rect, 0, len(region))
	for _, r := range region {
		out = append(out, Subtract(r, cover)...)
	}
	return out
}

// SubtractRegion removes every rectangle of cover from region.
func SubtractRegion(region, cover []schema.Rect) []schema.Rect {
	out := append([]schema.Rect{}, region...)
	for _, c := range cover {
		if len(out) == 0 {
			break
		}
		out = SubtractRect(out, c)
	}
	return out
}

// IntersectRegion clips every rectangle of region to r, dropping empties.
func IntersectRegion(region []schema.Rect, r schema.Rect) []schema.Rect {
	out := make([]schema.Rect, 0, len(region))
	for _, rr := range region {
		if hit := rr.Intersect(r); !hit.Empty() {
			out = append(out, hit)
		}
	}
	return out
}

// Area sums the area of disjoint rectangles.
func Area(region []schema.Rect) int {
	total := 0
	for _, r := range region {
		total += r.Dx() * r.Dy()
	}
	return total
}

// RegionContains reports whether p lies in any rectangle of region.
func RegionContains(region []schema.Rect, p schema.Point) bool {
	for _, r := range region {
		if p.In(r) {
			return true
		}
	}
	return false
}

func sameRegion(a, b []schema.Rect) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
