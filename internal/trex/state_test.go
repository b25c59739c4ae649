package trex

import (
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/trexvision/internal/change"
	"github.com/ayusman/trexvision/internal/config"
	"github.com/ayusman/trexvision/internal/history"
)

func solid(v uint8) *history.Frame {
	f := history.NewFrame(8, 6)
	f.Fill(v)
	return f
}

func TestNewState(t *testing.T) {
	s, err := NewState(config.DefaultDetector())
	require.NoError(t, err)
	assert.Equal(t, config.DefaultDetector(), s.Config())
	assert.Equal(t, 0, s.Size())
	assert.Equal(t, 4, s.Depth())

	_, err = NewState(config.DetectorConfig{Threshold: -1})
	assert.True(t, errors.Is(err, config.ErrInvalidThreshold))
}

func TestState_ProcessBootstrapAndMotion(t *testing.T) {
	s, err := NewState(config.DetectorConfig{Threshold: 100, HistoryDepth: 2})
	require.NoError(t, err)

	_, err = s.Mask()
	assert.True(t, errors.Is(err, change.ErrNotReady))

	mask, err := s.Process(solid(0))
	require.NoError(t, err)
	assert.Equal(t, 0, mask.Count())
	assert.Equal(t, 3, s.Size())

	mask, err = s.Process(solid(0))
	require.NoError(t, err)
	assert.Equal(t, 0, mask.Count())

	mask, err = s.Process(solid(255))
	require.NoError(t, err)
	assert.Equal(t, 48, mask.Count())

	require.NoError(t, s.SetThreshold(150))
	mask, err = s.Mask()
	require.NoError(t, err)
	assert.Equal(t, 0, mask.Count())
	assert.Equal(t, 3, s.Size(), "threshold change keeps the history")
}

func TestState_ProcessRejectsMismatch(t *testing.T) {
	s, err := NewState(config.DefaultDetector())
	require.NoError(t, err)

	_, err = s.Process(solid(1))
	require.NoError(t, err)

	_, err = s.Process(history.NewFrame(4, 4))
	assert.True(t, errors.Is(err, history.ErrDimensionMismatch))
	assert.Equal(t, 4, s.Size())
}

func TestState_HistoryDepthChangeResets(t *testing.T) {
	s, err := NewState(config.DefaultDetector())
	require.NoError(t, err)

	require.NoError(t, s.Push(solid(5)))
	require.Equal(t, 4, s.Size())

	require.NoError(t, s.SetHistoryDepth(1))
	assert.Equal(t, 0, s.Size())
	assert.Equal(t, 2, s.Depth())
	_, err = s.Mask()
	assert.True(t, errors.Is(err, change.ErrNotReady))

	require.NoError(t, s.Push(solid(5)))
	assert.Equal(t, 2, s.Size())

	// same depth again is not a change
	require.NoError(t, s.SetHistoryDepth(1))
	assert.Equal(t, 2, s.Size())

	// Configure with a new depth resets too
	require.NoError(t, s.Configure(config.DetectorConfig{Threshold: 3, HistoryDepth: 0}))
	assert.Equal(t, 0, s.Size())
	assert.Equal(t, 1, s.Depth())
	assert.Equal(t, 3.0, s.Config().Threshold)
}

func TestState_InvalidSettingsKeepState(t *testing.T) {
	s, err := NewState(config.DefaultDetector())
	require.NoError(t, err)
	require.NoError(t, s.Push(solid(5)))

	assert.True(t, errors.Is(s.SetHistoryDepth(-1), config.ErrInvalidHistoryDepth))
	assert.True(t, errors.Is(s.SetThreshold(-1), config.ErrInvalidThreshold))
	assert.Equal(t, config.DefaultDetector(), s.Config())
	assert.Equal(t, 4, s.Size())
}

func TestState_Reset(t *testing.T) {
	s, err := NewState(config.DefaultDetector())
	require.NoError(t, err)
	require.NoError(t, s.Push(solid(5)))

	s.Reset()
	assert.Equal(t, 0, s.Size())
	_, err = s.Mask()
	assert.True(t, errors.Is(err, change.ErrNotReady))
}

func TestState_Probes(t *testing.T) {
	s, err := NewState(config.DetectorConfig{Threshold: 10, HistoryDepth: 1})
	require.NoError(t, err)

	_, err = s.PixelStats(0, 0)
	assert.True(t, errors.Is(err, change.ErrNotReady))

	require.NoError(t, s.Push(solid(0)))
	require.NoError(t, s.Push(solid(20)))

	ps, err := s.PixelStats(2, 3)
	require.NoError(t, err)
	assert.InDelta(t, 10, ps.Mean, 1e-9)
	assert.InDelta(t, 10, ps.StdDev, 1e-9)
	assert.Equal(t, 10.0, ps.Threshold)

	require.NoError(t, s.Push(solid(60)))
	ps, err = s.PixelStats(2, 3)
	require.NoError(t, err)
	assert.True(t, ps.Visible)

	field, err := s.StdDevField()
	require.NoError(t, err)
	assert.Len(t, field.Values, 48)
}

func TestState_ConcurrentSettings(t *testing.T) {
	s, err := NewState(config.DefaultDetector())
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			_, _ = s.Process(solid(uint8(i)))
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			_ = s.SetHistoryDepth(i % 5)
			_ = s.SetThreshold(float64(i % 50))
		}
	}()
	wg.Wait()

	cfg := s.Config()
	assert.NoError(t, cfg.Validate())
	size := s.Size()
	assert.True(t, size == 0 || size == cfg.BufferDepth(), "size %d with depth %d", size, cfg.BufferDepth())
}

func TestState_Update(t *testing.T) {
	s, err := NewState(config.DefaultDetector())
	require.NoError(t, err)
	require.NoError(t, s.Push(solid(0)))

	threshold := 25.0
	cfg, changed, err := s.Update(config.Update{Threshold: &threshold})
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, config.DetectorConfig{Threshold: 25, HistoryDepth: 3}, cfg)
	assert.Equal(t, 4, s.Size(), "threshold change keeps the history")

	_, changed, err = s.Update(config.Update{Threshold: &threshold})
	require.NoError(t, err)
	assert.False(t, changed)

	bad := -1
	cfg, changed, err = s.Update(config.Update{HistoryDepth: &bad})
	assert.True(t, errors.Is(err, config.ErrInvalidHistoryDepth))
	assert.False(t, changed)
	assert.Equal(t, 25.0, cfg.Threshold)
	assert.Equal(t, 4, s.Size())
}

func TestState_Nudge(t *testing.T) {
	s, err := NewState(config.DetectorConfig{Threshold: 10, HistoryDepth: 4})
	require.NoError(t, err)

	cfg, changed, err := s.Nudge(0, 1)
	require.NoError(t, err)
	assert.False(t, changed, "depth is already at the top of the range")
	assert.Equal(t, 4, cfg.HistoryDepth)

	cfg, changed, err = s.Nudge(-1, -1)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, config.DetectorConfig{Threshold: 9, HistoryDepth: 3}, cfg)
	assert.Equal(t, cfg, s.Config())
}

func TestState_ConcurrentPartialUpdates(t *testing.T) {
	for round := 0; round < 50; round++ {
		s, err := NewState(config.DefaultDetector())
		require.NoError(t, err)

		threshold, depth := 20.0, 1
		start := make(chan struct{})
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			<-start
			_, _, err := s.Update(config.Update{Threshold: &threshold})
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			<-start
			_, _, err := s.Update(config.Update{HistoryDepth: &depth})
			assert.NoError(t, err)
		}()
		close(start)
		wg.Wait()

		require.Equal(t, config.DetectorConfig{Threshold: 20, HistoryDepth: 1}, s.Config(), "round %d", round)
	}
}

func TestState_StepReportsSettings(t *testing.T) {
	s, err := NewState(config.DetectorConfig{Threshold: 7, HistoryDepth: 2})
	require.NoError(t, err)

	res, err := s.Step(solid(0))
	require.NoError(t, err)
	assert.Equal(t, config.DetectorConfig{Threshold: 7, HistoryDepth: 2}, res.Config)
	assert.Equal(t, 3, res.Buffered)
	assert.Equal(t, 0, res.Mask.Count())

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			_ = s.SetThreshold(float64(i % 2 * 200))
		}
	}()
	for i := 0; i < 100; i++ {
		res, err := s.Step(solid(uint8(i % 2 * 255)))
		require.NoError(t, err)
		// with the threshold at 200 nothing can be flagged
		if res.Config.Threshold == 200 {
			assert.Equal(t, 0, res.Mask.Count())
		}
		assert.Equal(t, res.Config.BufferDepth(), res.Buffered)
	}
	wg.Wait()
}
