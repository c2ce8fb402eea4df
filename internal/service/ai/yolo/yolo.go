// Package yolo decodes raw YOLOv8-style detection heads.
//
// The network output is laid out as [1, 4+classes, anchors]: for every anchor the
// first four rows hold cx, cy, w, h in input pixels and the remaining rows hold one
// score per class. Boxes are mapped back to the source image by a single scale factor,
// which matches a top-left letterbox into a square input.
package yolo

import (
	"fmt"
	"image"
	"sort"
)

// classOffset separates boxes of different classes so a class-agnostic NMS
// behaves per class.
const classOffset = 7680

type Candidate struct {
	Box     image.Rectangle
	Score   float32
	ClassID int
}

// Decode turns a flat output tensor into candidates scoring at least minScore.
func Decode(data []float32, attrs, anchors int, minScore, scale float32) ([]Candidate, error) {
	if attrs < 5 {
		return nil, fmt.Errorf("unexpected output shape: %d attributes per anchor", attrs)
	}
	if len(data) < attrs*anchors {
		return nil, fmt.Errorf("output tensor too short: got %d values, want %d", len(data), attrs*anchors)
	}

	at := func(row, anchor int) float32 { return data[row*anchors+anchor] }

	var candidates []Candidate
	for a := 0; a < anchors; a++ {
		bestClass, bestScore := -1, float32(0)
		for c := 4; c < attrs; c++ {
			if s := at(c, a); s > bestScore {
				bestClass, bestScore = c-4, s
			}
		}
		if bestClass < 0 || bestScore < minScore {
			continue
		}

		cx, cy, w, h := at(0, a), at(1, a), at(2, a), at(3, a)
		candidates = append(candidates, Candidate{
			Box: image.Rect(
				int((cx-w/2)*scale),
				int((cy-h/2)*scale),
				int((cx+w/2)*scale),
				int((cy+h/2)*scale),
			),
			Score:   bestScore,
			ClassID: bestClass,
		})
	}
	return candidates, nil
}

// NMSInputs returns boxes shifted per class plus their scores, ready for a
// class-agnostic NMS routine.
func NMSInputs(candidates []Candidate) ([]image.Rectangle, []float32) {
	boxes := make([]image.Rectangle, len(candidates))
	scores := make([]float32, len(candidates))
	for i, c := range candidates {
		off := c.ClassID * classOffset
		boxes[i] = c.Box.Add(image.Pt(off, off))
		scores[i] = c.Score
	}
	return boxes, scores
}

// Select keeps the candidates at the given indices, best score first, capped at limit.
// Out of range indices are ignored. A limit <= 0 means no cap.
func Select(candidates []Candidate, indices []int, limit int) []Candidate {
	kept := make([]Candidate, 0, len(indices))
	for _, idx := range indices {
		if idx >= 0 && idx < len(candidates) {
			kept = append(kept, candidates[idx])
		}
	}
	sort.SliceStable(kept, func(i, j int) bool { return kept[i].Score > kept[j].Score })
	if limit > 0 && len(kept) > limit {
		kept = kept[:limit]
	}
	return kept
}

// Clip bounds a box to a width x height image.
func Clip(box image.Rectangle, width, height int) image.Rectangle {
	return box.Intersect(image.Rect(0, 0, width, height))
}
