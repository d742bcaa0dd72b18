package core

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"pkt.systems/rtgui/schema"
)

func TestSubtractBands(t *testing.T) {
	cases := []struct {
		name  string
		r     schema.Rect
		cover schema.Rect
		want  []schema.Rect
	}{
		{
			name:  "disjoint",
			r:     schema.R(0, 0, 10, 10),
			cover: schema.R(20, 20, 30, 30),
			want:  []schema.Rect{schema.R(0, 0, 10, 10)},
		},
		{
			name:  "fully covered",
			r:     schema.R(10, 10, 20, 20),
			cover: schema.R(0, 0, 30, 30),
			want:  []schema.Rect{},
		},
		{
			name:  "center hole",
			r:     schema.R(0, 0, 30, 30),
			cover: schema.R(10, 10, 20, 20),
			want: []schema.Rect{
				schema.R(0, 0, 30, 10),
				schema.R(0, 20, 30, 30),
				schema.R(0, 10, 10, 20),
				schema.R(20, 10, 30, 20),
			},
		},
		{
			name:  "bottom right corner",
			r:     schema.R(0, 0, 100, 100),
			cover: schema.R(50, 50, 150, 150),
			want: []schema.Rect{
				schema.R(0, 0, 100, 50),
				schema.R(0, 50, 50, 100),
			},
		},
	}
	for _, tc := range cases {
		got := Subtract(tc.r, tc.cover)
		if diff := cmp.Diff(tc.want, got); diff != "" {
			t.Fatalf("%s: unexpected rects (-want +got):\n%s", tc.name, diff)
		}
		if Area(got) != tc.r.Dx()*tc.r.Dy()-tc.r.Intersect(tc.cover).Dx()*tc.r.Intersect(tc.cover).Dy() {
			t.Fatalf("%s: area mismatch", tc.name)
		}
	}
}

func TestComputeClipsOcclusion(t *testing.T) {
	screen := schema.R(0, 0, 800, 480)
	w1 := schema.WindowID{Slot: 1, Gen: 1}
	w2 := schema.WindowID{Slot: 2, Gen: 1}
	layers := []Layer{
		{ID: w2, Rect: schema.R(50, 50, 150, 150), Visible: true},
		{ID: w1, Rect: schema.R(0, 0, 100, 100), Visible: true},
	}
	got := ComputeClips(screen, layers)
	want := [][]schema.Rect{
		{schema.R(50, 50, 150, 150)},
		{schema.R(0, 0, 100, 50), schema.R(0, 50, 50, 100)},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unexpected clips (-want +got):\n%s", diff)
	}
}

func TestComputeClipsFullyObscuredIsEmptyNotNil(t *testing.T) {
	screen := schema.R(0, 0, 800, 480)
	layers := []Layer{
		{ID: schema.WindowID{Slot: 1, Gen: 1}, Rect: schema.R(0, 0, 200, 200), Visible: true},
		{ID: schema.WindowID{Slot: 2, Gen: 1}, Rect: schema.R(10, 10, 50, 50), Visible: true},
		{ID: schema.WindowID{Slot: 3, Gen: 1}, Rect: schema.R(10, 10, 50, 50), Visible: false},
	}
	got := ComputeClips(screen, layers)
	for i := 1; i < 3; i++ {
		if got[i] == nil || len(got[i]) != 0 {
			t.Fatalf("layer %d: expected empty non-nil sequence, got %#v", i, got[i])
		}
	}
}

func TestComputeClipsMinimizedCastsNoArea(t *testing.T) {
	screen := schema.R(0, 0, 800, 480)
	layers := []Layer{
		{ID: schema.WindowID{Slot: 1, Gen: 1}, Rect: schema.R(0, 0, 200, 200), Visible: false},
		{ID: schema.WindowID{Slot: 2, Gen: 1}, Rect: schema.R(10, 10, 50, 50), Visible: true},
	}
	got := ComputeClips(screen, layers)
	if diff := cmp.Diff([]schema.Rect{schema.R(10, 10, 50, 50)}, got[1]); diff != "" {
		t.Fatalf("unexpected clip (-want +got):\n%s", diff)
	}
}

func TestComputeClipsBoundedByScreen(t *testing.T) {
	screen := schema.R(0, 0, 100, 100)
	got := ComputeClips(screen, []Layer{{ID: schema.WindowID{Slot: 1, Gen: 1}, Rect: schema.R(50, 50, 300, 300), Visible: true}})
	if diff := cmp.Diff([]schema.Rect{schema.R(50, 50, 100, 100)}, got[0]); diff != "" {
		t.Fatalf("unexpected clip (-want +got):\n%s", diff)
	}
}

func TestComputeClipsIsPure(t *testing.T) {
	screen := schema.R(0, 0, 800, 480)
	layers := []Layer{
		{ID: schema.WindowID{Slot: 1, Gen: 1}, Rect: schema.R(0, 0, 300, 300), Visible: true},
		{ID: schema.WindowID{Slot: 2, Gen: 1}, Rect: schema.R(100, 100, 400, 400), Visible: true},
		{ID: schema.WindowID{Slot: 3, Gen: 1}, Rect: schema.R(200, 0, 500, 200), Visible: true},
	}
	first := ComputeClips(screen, layers)
	second := ComputeClips(screen, layers)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("recompute differs (-first +second):\n%s", diff)
	}
}

func TestSubtractRegionExposure(t *testing.T) {
	now := []schema.Rect{schema.R(0, 0, 100, 100)}
	before := []schema.Rect{schema.R(0, 0, 100, 50), schema.R(0, 50, 50, 100)}
	exposed := SubtractRegion(now, before)
	if diff := cmp.Diff([]schema.Rect{schema.R(50, 50, 100, 100)}, exposed); diff != "" {
		t.Fatalf("unexpected exposure (-want +got):\n%s", diff)
	}
}

func TestRegionContains(t *testing.T) {
	region := []schema.Rect{schema.R(0, 0, 10, 5), schema.R(0, 5, 5, 10)}
	tests := []struct {
		p    schema.Point
		want bool
	}{
		{p: schema.Point{X: 9, Y: 4}, want: true},
		{p: schema.Point{X: 4, Y: 9}, want: true},
		{p: schema.Point{X: 7, Y: 7}, want: false},
		{p: schema.Point{X: 10, Y: 0}, want: false},
	}
	for _, tc := range tests {
		if got := RegionContains(region, tc.p); got != tc.want {
			t.Fatalf("RegionContains(%v) = %v, want %v", tc.p, got, tc.want)
		}
	}
	if RegionContains(nil, schema.Point{}) {
		t.Fatalf("expected empty region to contain nothing")
	}
}
