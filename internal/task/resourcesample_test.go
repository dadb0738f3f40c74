// SPDX-License-Identifier: MIT

package task

import (
	"context"
	"os"
	"runtime"
	"testing"
	"time"
)

func TestResourceSamplerLatestNilBeforeFirstSample(t *testing.T) {
	r := newResourceSampler()
	if got := r.Latest(); got != nil {
		t.Errorf("Latest() = %+v, want nil before sampling starts", got)
	}
}

func TestResourceSamplerSamplesOwnProcess(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("proc-based sampling only implemented for linux")
	}

	r := newResourceSampler()
	sample, err := r.sample(os.Getpid())
	if err != nil {
		t.Fatalf("sample() = %v", err)
	}
	if sample.PID != os.Getpid() {
		t.Errorf("PID = %d, want %d", sample.PID, os.Getpid())
	}
	if sample.ThreadCount <= 0 {
		t.Errorf("ThreadCount = %d, want > 0", sample.ThreadCount)
	}
	if sample.MemoryBytes <= 0 {
		t.Errorf("MemoryBytes = %d, want > 0", sample.MemoryBytes)
	}
}

func TestResourceSamplerRunStopsOnContextCancel(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("proc-based sampling only implemented for linux")
	}

	r := newResourceSampler()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		r.run(ctx, os.Getpid(), 10*time.Millisecond)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	if r.Latest() == nil {
		t.Error("expected at least one sample to have been collected")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("run() did not return after context cancellation")
	}
}

func TestResourceSamplerRunExitsForNonexistentPID(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("proc-based sampling only implemented for linux")
	}

	r := newResourceSampler()
	done := make(chan struct{})
	go func() {
		r.run(context.Background(), 1<<30, 10*time.Millisecond)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("run() did not return for an unreadable pid")
	}
}

func TestParseThreadCountFromStat(t *testing.T) {
	// Field 20 (1-indexed) is num_threads; comm can itself contain
	// parens and spaces, which is why parsing must split after the
	// last ')'.
	stat := "1234 (fake (proc) name) S 1 1234 1234 0 -1 4194304 100 0 0 0 1 2 0 0 20 0 7 0 12345 1000000 100 18446744073709551615"
	got := parseThreadCountFromStat(stat)
	if got != 7 {
		t.Errorf("parseThreadCountFromStat() = %d, want 7", got)
	}
}

func TestParseThreadCountFromStatMalformed(t *testing.T) {
	if got := parseThreadCountFromStat("no closing paren here"); got != 0 {
		t.Errorf("parseThreadCountFromStat() = %d, want 0 for malformed input", got)
	}
}

func TestParseResidentBytesFromStatm(t *testing.T) {
	statm := "1000 250 100 5 0 800 0"
	got := parseResidentBytesFromStatm(statm)
	want := int64(250) * int64(os.Getpagesize())
	if got != want {
		t.Errorf("parseResidentBytesFromStatm() = %d, want %d", got, want)
	}
}
