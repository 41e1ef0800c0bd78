package entity

import (
	"errors"
	"fmt"
	"os"
)

var ErrFrameSetConsumed = errors.New("frame set already consumed")

// Frame is one sampled still. Index is its position in the set, FrameNumber
// the decoded frame number in the source video.
type Frame struct {
	Index       int
	FrameNumber int
	Asset       MediaAsset
}

// FrameSet is an ordered, single-use collection of sampled frames. Frames are
// in increasing FrameNumber order. Whoever holds the set is responsible for
// calling Remove exactly once.
type FrameSet struct {
	frames   []Frame
	consumed bool
}

func NewFrameSet(frames []Frame) *FrameSet {
	return &FrameSet{frames: frames}
}

// Frames returns the frames, or ErrFrameSetConsumed once the set was removed.
func (s *FrameSet) Frames() ([]Frame, error) {
	if s.consumed {
		return nil, ErrFrameSetConsumed
	}
	return s.frames, nil
}

func (s *FrameSet) Len() int { return len(s.frames) }

// FrameNumbers lists the source frame numbers in set order.
func (s *FrameSet) FrameNumbers() []int {
	out := make([]int, len(s.frames))
	for i, f := range s.frames {
		out[i] = f.FrameNumber
	}
	return out
}

// Remove deletes every frame file and marks the set consumed. Every file is
// attempted; the first failure is returned.
func (s *FrameSet) Remove() error {
	if s.consumed {
		return ErrFrameSetConsumed
	}
	s.consumed = true

	var firstErr error
	for _, f := range s.frames {
		if err := os.Remove(f.Asset.Path); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("remove frame %d: %w", f.Index, err)
		}
	}
	return firstErr
}
