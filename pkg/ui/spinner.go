package ui

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// Spinner holds animation frames.
type Spinner struct {
	Frames   []string
	Interval time.Duration
}

var (
	SpinnerDots = Spinner{
		Frames:   []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"},
		Interval: 80 * time.Millisecond,
	}
	SpinnerLine = Spinner{
		Frames:   []string{"-", "\\", "|", "/"},
		Interval: 100 * time.Millisecond,
	}
)

// DefaultSpinner returns braille dots on Unicode terminals and an ASCII
// line otherwise.
func DefaultSpinner() Spinner {
	if UnicodeTerminal() {
		return SpinnerDots
	}
	return SpinnerLine
}

// Indicator animates a single status line while a panel runs. Stop clears
// the line, so results printed afterwards start at column zero.
type Indicator struct {
	w       io.Writer
	label   string
	spinner Spinner

	start time.Time
	done  chan struct{}
	wg    sync.WaitGroup
	once  sync.Once
}

// NewIndicator creates an indicator that writes to w.
func NewIndicator(w io.Writer, label string, s Spinner) *Indicator {
	if len(s.Frames) == 0 {
		s = SpinnerLine
	}
	if s.Interval <= 0 {
		s.Interval = 100 * time.Millisecond
	}
	return &Indicator{w: w, label: label, spinner: s, done: make(chan struct{})}
}

// StartIndicator starts an indicator on stderr when stderr is an interactive
// terminal. Otherwise it returns a stopped no-op so piped output stays free
// of escape codes.
func StartIndicator(label string) *Indicator {
	in := NewIndicator(writer(), label, DefaultSpinner())
	if IsSilent() || !StderrIsTerminal() {
		in.once.Do(func() { close(in.done) })
		return in
	}
	in.Start()
	return in
}

// Start begins the animation.
func (in *Indicator) Start() {
	in.start = time.Now()
	in.wg.Add(1)
	go in.loop()
}

func (in *Indicator) loop() {
	defer in.wg.Done()
	ticker := time.NewTicker(in.spinner.Interval)
	defer ticker.Stop()

	frame := 0
	for {
		in.render(frame)
		frame++
		select {
		case <-in.done:
			fmt.Fprint(in.w, "\r\033[K")
			return
		case <-ticker.C:
		}
	}
}

func (in *Indicator) render(frame int) {
	glyph := in.spinner.Frames[frame%len(in.spinner.Frames)]
	elapsed := time.Since(in.start).Truncate(100 * time.Millisecond)
	fmt.Fprintf(in.w, "\r\033[K  %s %s %s",
		SpinnerStyle.Render(glyph), in.label, HelpStyle.Render(elapsed.String()))
}

// Stop ends the animation and clears the line. It is safe to call twice.
func (in *Indicator) Stop() {
	in.once.Do(func() { close(in.done) })
	in.wg.Wait()
}
