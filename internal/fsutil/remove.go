// Package fsutil holds small filesystem helpers for cleaning up external
// resources, currently temp uploads left behind after ingestion.
package fsutil

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// maxRemoveRetries bounds removal attempts for a stubborn file.
const maxRemoveRetries = 5

// RemoveFile deletes path with bounded retries and jittered exponential
// backoff. Removal can fail transiently while another process (or a scanner
// on some platforms) still holds the file; larger files stay held longer, so
// the initial delay scales with file size. A path that does not exist is
// already removed and returns nil.
func RemoveFile(path string) error {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	var size int64
	if err == nil {
		size = info.Size()
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = removalDelay(size)
	b.RandomizationFactor = 0.5
	b.MaxInterval = 5 * time.Second

	operation := func() error {
		err := os.Remove(path)
		if err == nil || errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}

	if err := backoff.Retry(operation, backoff.WithMaxRetries(b, maxRemoveRetries)); err != nil {
		return fmt.Errorf("removing %s: %w", path, err)
	}
	return nil
}

// removalDelay derives the initial retry delay from file size.
func removalDelay(size int64) time.Duration {
	switch {
	case size > 100<<20:
		return time.Second
	case size > 10<<20:
		return 500 * time.Millisecond
	default:
		return 200 * time.Millisecond
	}
}
