package scene

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg" // register decoders for captured frames
	_ "image/png"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gobwas/glob"

	"github.com/Iron-Ham/stepcheck/internal/errors"
	"github.com/Iron-Ham/stepcheck/internal/logging"
)

// DefaultFramePattern matches the image formats the decoder understands.
const DefaultFramePattern = "*.{png,jpg,jpeg}"

// settleDelay is how long a frame file must be quiet before it counts as
// fully written.
const settleDelay = 50 * time.Millisecond

// FrameSource serves frames written into a directory by the renderer.
type FrameSource struct {
	dir         string
	pattern     glob.Glob
	patternText string
	timeout     time.Duration
	logger      *logging.Logger

	watcher *fsnotify.Watcher

	mu     sync.Mutex
	latest string
	ready  chan struct{} // closed and replaced whenever a new frame settles

	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewFrameSource watches dir for frames whose base name matches pattern.
// timeout bounds WaitFrame; zero means wait until the context ends.
func NewFrameSource(dir, pattern string, timeout time.Duration, logger *logging.Logger) (*FrameSource, error) {
	if pattern == "" {
		pattern = DefaultFramePattern
	}
	g, err := glob.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid frame pattern %q: %w", pattern, err)
	}

	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("frame directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("frame directory: %s is not a directory", dir)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return nil, err
	}

	f := &FrameSource{
		dir:         dir,
		pattern:     g,
		patternText: pattern,
		timeout:     timeout,
		logger:      logging.OrNop(logger).WithComponent("frames"),
		watcher:     watcher,
		ready:       make(chan struct{}),
		stopCh:      make(chan struct{}),
	}
	f.latest = f.newestOnDisk()
	return f, nil
}

// Start begins watching for frames in a background goroutine.
func (f *FrameSource) Start() {
	go f.watchLoop()
}

// Stop stops watching. It is safe to call more than once.
func (f *FrameSource) Stop() {
	f.stopOnce.Do(func() {
		close(f.stopCh)
		_ = f.watcher.Close()
	})
}

// Matches reports whether a file name is treated as a frame.
func (f *FrameSource) Matches(name string) bool {
	return f.pattern.Match(filepath.Base(name))
}

// WaitFrame blocks until a frame written after the call has settled.
func (f *FrameSource) WaitFrame(ctx context.Context) error {
	f.mu.Lock()
	ready := f.ready
	f.mu.Unlock()

	var timeoutCh <-chan time.Time
	if f.timeout > 0 {
		timer := time.NewTimer(f.timeout)
		defer timer.Stop()
		timeoutCh = timer.C
	}

	select {
	case <-ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timeoutCh:
		return errors.NewTimeoutError("waiting for rendered frame", f.timeout)
	case <-f.stopCh:
		return errors.NewVerificationError(errors.KindMissingCollaborator, "frame source stopped", nil)
	}
}

// Capture decodes the most recent frame.
func (f *FrameSource) Capture() (image.Image, error) {
	f.mu.Lock()
	path := f.latest
	f.mu.Unlock()

	if path == "" {
		return nil, errors.NewVerificationError(errors.KindMissingCollaborator,
			fmt.Sprintf("no frame matching %s in %s", f.patternText, f.dir), nil)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open frame: %w", err)
	}
	defer func() { _ = file.Close() }()

	img, format, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("decode frame %s: %w", filepath.Base(path), err)
	}
	f.logger.Debug("frame captured", "path", path, "format", format,
		"width", img.Bounds().Dx(), "height", img.Bounds().Dy())
	return img, nil
}

// Latest returns the path of the most recent frame, or "" if none has been seen.
func (f *FrameSource) Latest() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.latest
}

func (f *FrameSource) watchLoop() {
	settle := time.NewTimer(0)
	<-settle.C // drain initial timer

	pending := ""
	for {
		select {
		case <-f.stopCh:
			return

		case event, ok := <-f.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 || !f.Matches(event.Name) {
				continue
			}
			pending = event.Name
			settle.Reset(settleDelay)

		case <-settle.C:
			if pending == "" {
				continue
			}
			f.publish(pending)
			pending = ""

		case err, ok := <-f.watcher.Errors:
			if !ok {
				return
			}
			f.logger.Warn("frame watcher error", "error", err)
		}
	}
}

// publish records path as the latest frame and wakes every waiter.
func (f *FrameSource) publish(path string) {
	f.mu.Lock()
	f.latest = path
	close(f.ready)
	f.ready = make(chan struct{})
	f.mu.Unlock()
	f.logger.Debug("frame ready", "path", path)
}

// newestOnDisk returns the most recently modified matching file in dir.
func (f *FrameSource) newestOnDisk() string {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return ""
	}
	var newest string
	var newestMod time.Time
	for _, e := range entries {
		if e.IsDir() || !f.pattern.Match(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if newest == "" || info.ModTime().After(newestMod) {
			newest = filepath.Join(f.dir, e.Name())
			newestMod = info.ModTime()
		}
	}
	return newest
}
