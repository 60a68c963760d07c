package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"
)

// spinnerInterval is the delay between animation frames.
const spinnerInterval = 90 * time.Millisecond

// spinnerFrames cycle while a build or render is in flight.
var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// spinner is a single-line progress indicator for long pipeline stages. It
// animates on stderr until stopped, and winds down on its own when the
// command's context is cancelled.
type spinner struct {
	text    string
	ctx     context.Context
	cancel  context.CancelFunc
	quit    chan struct{}
	halted  chan struct{}
	mu      sync.Mutex
	stopped bool
}

// startSpinner creates a spinner showing text and begins animating it.
func startSpinner(ctx context.Context, text string) *spinner {
	spinCtx, cancel := context.WithCancel(ctx)
	s := &spinner{
		text:   text,
		ctx:    spinCtx,
		cancel: cancel,
		quit:   make(chan struct{}),
		halted: make(chan struct{}),
	}
	go s.animate()
	return s
}

func (s *spinner) animate() {
	defer close(s.halted)
	ticker := time.NewTicker(spinnerInterval)
	defer ticker.Stop()

	for frame := 0; ; frame++ {
		select {
		case <-s.ctx.Done():
			s.erase()
			return
		case <-s.quit:
			return
		case <-ticker.C:
			glyph := spinnerFrames[frame%len(spinnerFrames)]
			s.mu.Lock()
			fmt.Fprintf(os.Stderr, "\r%s %s", styleIconSpinner.Render(glyph), StyleDim.Render(s.text))
			s.mu.Unlock()
		}
	}
}

// Stop halts the animation and clears the line. Safe to call more than
// once.
func (s *spinner) Stop() {
	s.cancel()
	s.mu.Lock()
	if !s.stopped {
		s.stopped = true
		close(s.quit)
	}
	s.mu.Unlock()
	<-s.halted
	s.erase()
}

// Fail stops the spinner and prints an error line in its place.
func (s *spinner) Fail(format string, args ...any) {
	s.Stop()
	printError(format, args...)
}

// Done stops the spinner and prints a success line in its place.
func (s *spinner) Done(format string, args ...any) {
	s.Stop()
	printSuccess(format, args...)
}

// cancelled reports whether the spinner wound down because its context was
// cancelled rather than by an explicit Stop.
func (s *spinner) cancelled() bool {
	return s.ctx.Err() != nil && !func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.stopped
	}()
}

func (s *spinner) erase() {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(os.Stderr, "\r%s\r", strings.Repeat(" ", len(s.text)+4))
}
