package lifecycle

import (
	"context"
	"io"
	"os"
	"time"
)

// followTail is how much history FollowLog replays before streaming.
const followTail int64 = 4096

// FollowLog streams a node's output capture to w: it replays the last few
// KB and then follows growth until ctx is canceled. Truncation (log
// rotation by the node binary) resets the read offset.
func FollowLog(ctx context.Context, path string, w io.Writer) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return err
	}
	offset := fi.Size() - followTail
	if offset < 0 {
		offset = 0
	}
	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return err
	}

	buf := make([]byte, 4096)
	for {
		// A continuously logging node keeps reads busy; detach must not wait
		// for the stream to drain.
		if ctx.Err() != nil {
			return nil
		}
		n, err := f.Read(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				return werr
			}
			continue
		}
		if err != nil && err != io.EOF {
			return err
		}
		fi, serr := f.Stat()
		if serr == nil {
			pos, _ := f.Seek(0, io.SeekCurrent)
			if fi.Size() < pos {
				_, _ = f.Seek(0, io.SeekStart)
				continue
			}
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(200 * time.Millisecond):
		}
	}
}
