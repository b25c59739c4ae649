package history

import (
	"log"

	"github.com/pkg/errors"
)

var (
	// ErrDimensionMismatch is returned when a pushed frame's size differs from
	// the frames already held by the buffer.
	ErrDimensionMismatch = errors.New("frame dimensions do not match history")

	// ErrInvalidDepth is returned for a negative history depth.
	ErrInvalidDepth = errors.New("history depth must be non-negative")
)

// Buffer is a ring of the most recent frames. It holds historyDepth+1 frames
// once the first frame has been pushed, and nothing before that.
//
// Buffer does no locking; callers serialise Push against Snapshot readers.
type Buffer struct {
	depth  int
	frames []*Frame
	oldest int
}

// NewBuffer creates an empty buffer that remembers historyDepth frames in
// addition to the current one.
func NewBuffer(historyDepth int) (*Buffer, error) {
	if historyDepth < 0 {
		return nil, errors.Wrapf(ErrInvalidDepth, "got %d", historyDepth)
	}
	return &Buffer{
		depth:  historyDepth + 1,
		frames: make([]*Frame, 0, historyDepth+1),
	}, nil
}

// Push stores a copy of frame.
//
// The first push after creation or Reset fills every slot with its own copy
// of frame, so the spread over the history starts at zero. Later pushes
// overwrite the oldest slot. A rejected frame leaves the buffer untouched.
func (b *Buffer) Push(frame *Frame) error {
	if err := frame.validate(); err != nil {
		return err
	}

	if len(b.frames) == 0 {
		for i := 0; i < b.depth; i++ {
			b.frames = append(b.frames, frame.Clone())
		}
		b.oldest = 0
		log.Printf("history: bootstrapped %d slots from %dx%d frame", b.depth, frame.Width, frame.Height)
		return nil
	}

	if !b.frames[0].SameSize(frame) {
		return errors.Wrapf(ErrDimensionMismatch, "got %dx%d, history holds %dx%d",
			frame.Width, frame.Height, b.frames[0].Width, b.frames[0].Height)
	}

	b.frames[b.oldest] = frame.Clone()
	b.oldest = (b.oldest + 1) % b.depth
	return nil
}

// Reset drops every stored frame.
func (b *Buffer) Reset() {
	if len(b.frames) > 0 {
		log.Printf("history: reset, dropped %d frames", len(b.frames))
	}
	clear(b.frames)
	b.frames = b.frames[:0]
	b.oldest = 0
}

// Snapshot returns the stored frames. Order is unspecified. The frames must
// not be modified.
func (b *Buffer) Snapshot() []*Frame {
	out := make([]*Frame, len(b.frames))
	copy(out, b.frames)
	return out
}

// IsEmpty reports whether nothing has been pushed since creation or Reset.
func (b *Buffer) IsEmpty() bool {
	return len(b.frames) == 0
}

// Size returns the number of stored frames: 0 or Depth.
func (b *Buffer) Size() int {
	return len(b.frames)
}

// Depth returns the ring capacity, historyDepth+1.
func (b *Buffer) Depth() int {
	return b.depth
}

// HistoryDepth returns the number of prior frames remembered.
func (b *Buffer) HistoryDepth() int {
	return b.depth - 1
}

// Bounds returns the dimensions established by the first push, or zeros
// when empty.
func (b *Buffer) Bounds() (width, height int) {
	if len(b.frames) == 0 {
		return 0, 0
	}
	return b.frames[0].Width, b.frames[0].Height
}
