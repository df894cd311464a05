package mocks

import (
	"fmt"
	"strings"
	"sync"

	"github.com/mcoot/soulpit/internal/dependencies/random"
)

// MockRandom is a mock implementation of Random for testing.
// Queued results are returned first; once a queue runs dry the mock falls
// back to a deterministic sequence so that unqueued calls never collide.
type MockRandom struct {
	mu sync.Mutex

	StringResults []string
	stringIndex   int
	stringSeq     int

	UUIDResults []string
	uuidIndex   int
	uuidSeq     int
}

var _ random.Random = (*MockRandom)(nil)

// NewMockRandom creates a new MockRandom
func NewMockRandom() *MockRandom {
	return &MockRandom{}
}

// String returns the next queued result. Without one it encodes a counter
// in the alphabet, left-padded to length.
func (r *MockRandom) String(length int, alphabet string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stringIndex < len(r.StringResults) {
		result := r.StringResults[r.stringIndex]
		r.stringIndex++
		return result
	}
	if length <= 0 || alphabet == "" {
		return ""
	}
	r.stringSeq++
	return encodeSeq(r.stringSeq, length, alphabet)
}

// UUID returns the next queued result, or a sequential UUID-shaped string
func (r *MockRandom) UUID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.uuidIndex < len(r.UUIDResults) {
		result := r.UUIDResults[r.uuidIndex]
		r.uuidIndex++
		return result
	}
	r.uuidSeq++
	return fmt.Sprintf("00000000-0000-4000-8000-%012d", r.uuidSeq)
}

// QueueString adds values to the String result queue
func (r *MockRandom) QueueString(values ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.StringResults = append(r.StringResults, values...)
}

// QueueUUID adds values to the UUID result queue
func (r *MockRandom) QueueUUID(values ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.UUIDResults = append(r.UUIDResults, values...)
}

// Reset clears all queued results and sequences
func (r *MockRandom) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.StringResults, r.stringIndex, r.stringSeq = nil, 0, 0
	r.UUIDResults, r.uuidIndex, r.uuidSeq = nil, 0, 0
}

func encodeSeq(n, length int, alphabet string) string {
	var b strings.Builder
	base := len(alphabet)
	digits := make([]byte, 0, length)
	for n > 0 && len(digits) < length {
		digits = append(digits, alphabet[n%base])
		n /= base
	}
	for len(digits) < length {
		digits = append(digits, alphabet[0])
	}
	for i := len(digits) - 1; i >= 0; i-- {
		b.WriteByte(digits[i])
	}
	return b.String()
}
