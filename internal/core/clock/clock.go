// Package clock implements the clock synchronisation shared by every
// socket of an instance.
//
// Each socket runs a short NTP-style handshake. The server answers a sync
// request with its receipt time t2; the client answers with its own send
// time t1 and the echoed t2; the server stamps t3 and derives one offset
// sample. Once a socket holds SamplesPerRound samples, a periodic
// aggregation consumes them into a single clockDiff broadcast.
package clock

import (
	"math"
	"slices"
	"sync"
	"time"
)

// SamplesPerRound is how many samples a socket contributes to one round.
const SamplesPerRound = 5

// Now returns the current time in Unix milliseconds.
func Now() int64 {
	return time.Now().UnixMilli()
}

// Sample computes one offset sample from a completed handshake.
func Sample(t1, t2, t3, serverDiff int64) int64 {
	return int64(math.Round(float64(t1+t3)/2 - float64(t2) - float64(serverDiff)))
}

// Book accumulates offset samples per clock id.
type Book struct {
	mu         sync.Mutex
	samples    map[string][]int64
	baseline   int64
	serverDiff int64
}

// NewBook creates a Book. serverDiff is the offset inherited from an
// enclosing frame and is echoed in every handshake reply.
func NewBook(serverDiff int64) *Book {
	return &Book{
		samples:    make(map[string][]int64),
		serverDiff: serverDiff,
	}
}

// ServerDiff returns the inherited offset.
func (b *Book) ServerDiff() int64 {
	return b.serverDiff
}

// Record appends a sample for id and returns how many are held. Only the
// most recent SamplesPerRound samples are kept.
func (b *Book) Record(id string, diff int64) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	list := append(b.samples[id], diff)
	if len(list) > SamplesPerRound {
		list = list[len(list)-SamplesPerRound:]
	}
	b.samples[id] = list
	return len(list)
}

// Upload replaces the samples of id with a client-reported set.
func (b *Book) Upload(id string, samples []int64) {
	if len(samples) > SamplesPerRound {
		samples = samples[len(samples)-SamplesPerRound:]
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.samples[id] = slices.Clone(samples)
}

// Pending returns how many samples id holds.
func (b *Book) Pending(id string) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return len(b.samples[id])
}

// Forget drops the samples of id.
func (b *Book) Forget(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.samples, id)
}

// Aggregate consumes every id holding a full round of samples and returns
// one offset per id. Ids with fewer samples are left untouched. It returns
// false, and changes nothing, when no id is ready.
//
// Each id's offset is the mean of its samples without the lowest and the
// highest one. The baseline becomes the mean of the round's offsets.
func (b *Book) Aggregate() (map[string]int64, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	diffs := make(map[string]int64)
	var total int64
	for id, list := range b.samples {
		if len(list) < SamplesPerRound {
			continue
		}
		diffs[id] = trimmedMean(list)
		total += diffs[id]
		delete(b.samples, id)
	}
	if len(diffs) == 0 {
		return nil, false
	}

	b.baseline = int64(math.Round(float64(total) / float64(len(diffs))))
	return diffs, true
}

// Baseline returns the mean offset of the last aggregated round.
func (b *Book) Baseline() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.baseline
}

func trimmedMean(list []int64) int64 {
	sorted := slices.Clone(list)
	slices.Sort(sorted)
	if len(sorted) > 2 {
		sorted = sorted[1 : len(sorted)-1]
	}

	var sum int64
	for _, v := range sorted {
		sum += v
	}
	return int64(math.Round(float64(sum) / float64(len(sorted))))
}
