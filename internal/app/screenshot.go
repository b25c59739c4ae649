package app

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gocv.io/x/gocv"

	"github.com/ayusman/trexvision/internal/store"
)

// SaveScreenshot writes the most recent unprocessed camera frame to the
// screenshot directory as NNN.jpg and records it in the store. Numbering
// continues from the highest recorded sequence.
func (a *App) SaveScreenshot() (*store.Screenshot, error) {
	a.frameMu.Lock()
	if !a.hasFrame {
		a.frameMu.Unlock()
		return nil, ErrNoFrame
	}
	raw := a.lastRaw.Clone()
	stats := a.lastStats
	a.frameMu.Unlock()
	defer raw.Close()

	seq, err := a.nextScreenshotSequence()
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(a.config.ScreenshotDir, 0o755); err != nil {
		return nil, errors.Wrap(err, "create screenshot directory")
	}
	path := filepath.Join(a.config.ScreenshotDir, fmt.Sprintf("%03d.jpg", seq))
	if ok := gocv.IMWrite(path, raw); !ok {
		return nil, errors.Errorf("write screenshot %s", path)
	}

	shot := &store.Screenshot{
		ID:           uuid.New().String(),
		Path:         path,
		Sequence:     seq,
		Threshold:    stats.Threshold,
		HistoryDepth: stats.HistoryDepth,
		FlaggedRatio: stats.Ratio,
	}
	if a.config.Store != nil {
		if err := a.config.Store.Screenshots().Create(shot); err != nil {
			return nil, errors.Wrap(err, "record screenshot")
		}
	}

	log.Printf("Saved screenshot %s", path)
	return shot, nil
}

// DeleteScreenshot removes a recorded screenshot and its file.
func (a *App) DeleteScreenshot(id string) error {
	if a.config.Store == nil {
		return store.ErrNotFound
	}
	shot, err := a.config.Store.Screenshots().GetByID(id)
	if err != nil {
		return err
	}
	if err := os.Remove(shot.Path); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "remove screenshot file")
	}
	return a.config.Store.Screenshots().Delete(id)
}

// nextScreenshotSequence asks the store for the next number, or counts
// within this run when there is no store.
func (a *App) nextScreenshotSequence() (int, error) {
	a.shotMu.Lock()
	defer a.shotMu.Unlock()

	if a.config.Store != nil {
		seq, err := a.config.Store.Screenshots().NextSequence()
		if err != nil {
			return 0, errors.Wrap(err, "next screenshot number")
		}
		if seq < a.shotSeq {
			seq = a.shotSeq
		}
		a.shotSeq = seq + 1
		return seq, nil
	}

	seq := a.shotSeq
	a.shotSeq++
	return seq, nil
}
