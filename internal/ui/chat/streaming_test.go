// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"
	"sync"
	"testing"
	"time"
)

func TestStreamingBufferBatchFlush(t *testing.T) {
	sb := NewStreamingBufferWithConfig(5, 30)

	for i := 0; i < 4; i++ {
		sb.Write("x")
	}
	// Below the batch size and within the flush interval: no output yet.
	if _, ok := sb.Flush(); ok {
		t.Error("flush before batch threshold should return nothing")
	}

	sb.Write("x")
	content, ok := sb.Flush()
	if !ok {
		t.Fatal("flush at batch threshold returned nothing")
	}
	if content != "xxxxx" {
		t.Errorf("content = %q, want %q", content, "xxxxx")
	}
	if sb.Pending() != 0 {
		t.Errorf("pending after flush = %d, want 0", sb.Pending())
	}
}

func TestStreamingBufferTimeFlush(t *testing.T) {
	sb := NewStreamingBufferWithConfig(1000, 30)

	sb.Write("slow")
	time.Sleep(50 * time.Millisecond)

	content, ok := sb.Flush()
	if !ok {
		t.Fatal("flush after interval returned nothing")
	}
	if content != "slow" {
		t.Errorf("content = %q, want %q", content, "slow")
	}
}

func TestStreamingBufferForceFlush(t *testing.T) {
	sb := NewStreamingBufferWithConfig(1000, 1)

	if _, ok := sb.ForceFlush(); ok {
		t.Error("force flush of empty buffer should return nothing")
	}

	sb.Write("tail")
	content, ok := sb.ForceFlush()
	if !ok || content != "tail" {
		t.Errorf("ForceFlush = %q, %v; want %q, true", content, ok, "tail")
	}
}

func TestStreamingBufferReset(t *testing.T) {
	sb := NewStreamingBuffer()
	sb.Write("discard me")
	sb.Reset()

	if sb.Pending() != 0 {
		t.Errorf("pending after reset = %d, want 0", sb.Pending())
	}
	if _, ok := sb.ForceFlush(); ok {
		t.Error("buffer should be empty after reset")
	}
}

func TestStreamingBufferDefaults(t *testing.T) {
	// Out-of-range values fall back to defaults rather than panicking.
	sb := NewStreamingBufferWithConfig(-1, 500)
	if sb.batchSize != defaultBatchSize {
		t.Errorf("batchSize = %d, want %d", sb.batchSize, defaultBatchSize)
	}
	if sb.minFlushMs != time.Second/defaultMaxFPS {
		t.Errorf("minFlushMs = %v, want %v", sb.minFlushMs, time.Second/defaultMaxFPS)
	}
}

func TestStreamingBufferConcurrentWrites(t *testing.T) {
	sb := NewStreamingBufferWithConfig(10000, 1)

	const writers = 8
	const perWriter = 100

	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWriter; j++ {
				sb.Write("t")
			}
		}()
	}
	wg.Wait()

	content, ok := sb.ForceFlush()
	if !ok {
		t.Fatal("no content after concurrent writes")
	}
	if got := strings.Count(content, "t"); got != writers*perWriter {
		t.Errorf("token count = %d, want %d", got, writers*perWriter)
	}
}
