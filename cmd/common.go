package main

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
)

var defaultSkipFiles = []string{".DS_Store", "Thumbs.db", "desktop.ini"}

func skipFiles() []string {
	return append([]string(nil), defaultSkipFiles...)
}

func printSummary(lines ...string) {
	fmt.Println("=== Summary ===")
	for _, line := range lines {
		fmt.Println(line)
	}
}

func formatBytes(bytes int64) string {
	if bytes < 0 {
		bytes = 0
	}
	return humanize.IBytes(uint64(bytes))
}

// progressReporter prints the latest stage progress to stderr every few seconds.
type progressReporter struct {
	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}

	mu        sync.Mutex
	stage     string
	processed int
	total     int
}

func startProgress(label string) *progressReporter {
	return startProgressEvery(label, 5*time.Second)
}

func startProgressEvery(label string, interval time.Duration) *progressReporter {
	p := &progressReporter{
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}

	startTime := time.Now()
	ticker := time.NewTicker(interval)

	go func() {
		defer close(p.doneCh)
		for {
			select {
			case <-ticker.C:
				fmt.Fprintln(os.Stderr, p.line(label, time.Since(startTime)))
			case <-p.stopCh:
				ticker.Stop()
				return
			}
		}
	}()

	return p
}

// Report records the latest progress of a stage.
func (p *progressReporter) Report(stage string, processed, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stage = stage
	p.processed = processed
	p.total = total
}

func (p *progressReporter) line(label string, elapsed time.Duration) string {
	p.mu.Lock()
	defer p.mu.Unlock()

	elapsed = elapsed.Round(time.Second)
	if p.stage == "" {
		return fmt.Sprintf("%s... %s elapsed", label, elapsed)
	}
	return fmt.Sprintf("%s... %s %s/%s, %s elapsed",
		label, p.stage, humanize.Comma(int64(p.processed)), humanize.Comma(int64(p.total)), elapsed)
}

// Stop halts the reporter. It is safe to call on a nil reporter.
func (p *progressReporter) Stop() {
	if p == nil {
		return
	}
	p.stopOnce.Do(func() {
		close(p.stopCh)
		<-p.doneCh
	})
}
