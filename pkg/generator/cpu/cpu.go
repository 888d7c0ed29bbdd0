package cpu

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Amr-9/VanityMint/pkg/generator"
	"github.com/Amr-9/VanityMint/pkg/generator/solana"
)

// MaxKeygenFailures is how many consecutive keypair errors one worker
// tolerates before the whole search stops.
const MaxKeygenFailures = 100

// CPUGenerator implements the Generator interface using CPU-based goroutines.
type CPUGenerator struct {
	attempts  uint64 // Atomic counter for total attempts
	startNano int64  // Atomic start time in unix nanoseconds
	workers   int    // Number of concurrent workers
	keys      solana.KeySource

	mu  sync.Mutex
	err error // Why the last search stopped early, if it did
}

var _ generator.Failer = (*CPUGenerator)(nil)

// NewCPUGenerator creates a new CPU-based generator.
// If workers is 0, it defaults to the number of CPU cores.
func NewCPUGenerator(workers int) *CPUGenerator {
	return NewCPUGeneratorWithSource(workers, solana.RandomKeySource)
}

// NewCPUGeneratorWithSource creates a generator that draws keypairs from keys.
func NewCPUGeneratorWithSource(workers int, keys solana.KeySource) *CPUGenerator {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if keys == nil {
		keys = solana.RandomKeySource
	}
	return &CPUGenerator{
		workers: workers,
		keys:    keys,
	}
}

// Name returns the implementation name.
func (g *CPUGenerator) Name() string {
	return "CPU"
}

// Stats returns the current performance statistics.
func (g *CPUGenerator) Stats() generator.Stats {
	attempts := atomic.LoadUint64(&g.attempts)
	start := atomic.LoadInt64(&g.startNano)
	if start == 0 {
		return generator.Stats{Attempts: attempts}
	}
	elapsed := time.Since(time.Unix(0, start)).Seconds()

	var hashRate float64
	if elapsed > 0 {
		hashRate = float64(attempts) / elapsed
	}

	return generator.Stats{
		Attempts:    attempts,
		HashRate:    hashRate,
		ElapsedSecs: elapsed,
	}
}

// Err returns the error that stopped the last search, or nil.
func (g *CPUGenerator) Err() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.err
}

// fail records the first error of a search.
func (g *CPUGenerator) fail(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err == nil {
		g.err = err
	}
}

// Start begins the vanity address search with the given configuration.
func (g *CPUGenerator) Start(ctx context.Context, config *generator.Config) (<-chan generator.Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	resultChan := make(chan generator.Result, 1)
	start := time.Now()
	atomic.StoreInt64(&g.startNano, start.UnixNano())
	atomic.StoreUint64(&g.attempts, 0)
	g.mu.Lock()
	g.err = nil
	g.mu.Unlock()

	done := make(chan struct{})
	var closeOnce sync.Once

	workers := g.workers
	if config.Workers > 0 {
		workers = config.Workers
	}

	matcher := solana.NewSolanaMatcher(config.Prefix)

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			g.workerSolana(ctx, matcher, config.MaxAttempts, start, resultChan, done, &closeOnce)
		}()
	}

	// The result (if any) is buffered before the last worker returns,
	// so receivers always see it ahead of the close.
	go func() {
		wg.Wait()
		close(resultChan)
	}()

	return resultChan, nil
}

// reserveAttempt claims one attempt from the shared budget.
func (g *CPUGenerator) reserveAttempt(maxAttempts uint64) (uint64, bool) {
	for {
		cur := atomic.LoadUint64(&g.attempts)
		if maxAttempts > 0 && cur >= maxAttempts {
			return cur, false
		}
		if atomic.CompareAndSwapUint64(&g.attempts, cur, cur+1) {
			return cur + 1, true
		}
	}
}

// workerSolana generates Solana addresses (Ed25519 + Base58)
func (g *CPUGenerator) workerSolana(ctx context.Context, matcher *solana.SolanaMatcher, maxAttempts uint64, start time.Time, resultChan chan<- generator.Result, done chan struct{}, closeOnce *sync.Once) {
	failures := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-done:
			return
		default:
			attempt, ok := g.reserveAttempt(maxAttempts)
			if !ok {
				return
			}

			kp, err := g.keys.NewKeypair()
			if err != nil {
				failures++
				if failures >= MaxKeygenFailures {
					g.fail(fmt.Errorf("%w: %d consecutive errors: %w", generator.ErrKeySource, failures, err))
					closeOnce.Do(func() { close(done) })
					return
				}
				continue
			}
			failures = 0

			// Solana address is the Base58-encoded public key
			address := kp.Address()

			if !matcher.Matches(address) {
				continue
			}

			result := generator.Result{
				Keypair:  kp,
				Address:  address,
				Attempts: attempt,
				Elapsed:  time.Since(start),
			}

			select {
			case resultChan <- result:
				closeOnce.Do(func() { close(done) })
			default:
				// Another worker already won; this keypair is never handed out.
				kp.Wipe()
			}
			return
		}
	}
}
