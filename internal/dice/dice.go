// Package dice is the single source of die rolls for the service. A Roller
// can only ever produce faces in [1, Faces]; downstream code never needs to
// repair out-of-range values.
package dice

import (
	"math/rand"
	"sync"
	"time"
)

// Faces is the number of sides on the die.
const Faces = 6

// Roller produces one uniformly distributed die face per call.
// Implementations must return values in [1, Faces] and be safe for
// concurrent use.
type Roller interface {
	Roll() int
}

// Die is the default Roller, backed by its own rand source.
type Die struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewDie returns a Die seeded from the current time.
func NewDie() *Die {
	return NewSeededDie(time.Now().UnixNano())
}

// NewSeededDie returns a Die with a fixed seed. Given the same seed, the
// sequence of rolls is deterministic; tests rely on this.
func NewSeededDie(seed int64) *Die {
	return &Die{rng: rand.New(rand.NewSource(seed))}
}

// Roll returns a face in [1, Faces].
func (d *Die) Roll() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.rng.Intn(Faces) + 1
}
