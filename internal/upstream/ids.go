package upstream

import (
	"crypto/rand"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"
)

// idGenerator mints ids for cards the upstream sent without one. The run
// prefix is fixed for the generator's lifetime and the counter never repeats,
// so ids are unique within a process run but not across runs.
type idGenerator struct {
	run     string
	counter atomic.Uint64
}

func newIDGenerator(now time.Time) *idGenerator {
	entropy := ulid.Monotonic(rand.Reader, 0)
	return &idGenerator{run: ulid.MustNew(ulid.Timestamp(now), entropy).String()}
}

func (g *idGenerator) next(kind string) string {
	return fmt.Sprintf("%s_%s_%d", kind, g.run, g.counter.Add(1))
}
