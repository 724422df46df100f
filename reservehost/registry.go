// Package reservehost wraps the lock-free reserve core in a registry that
// serializes actions per reserve address, the way a real deployment would
// confine each reserve's transitions to a single logical lane even though
// the core itself holds no locks. It also wires the core's observations
// into structured logging and Prometheus metrics.
package reservehost

import (
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"reservecore/internal/ratestrategy"
	"reservecore/internal/reserve"
	"reservecore/observability"
	"reservecore/observability/logging"
)

var (
	errUnknownReserve = fmt.Errorf("reservehost: unknown reserve")
)

// Handle is everything the registry needs to drive one reserve's actions:
// its persistent record, the rate curve parameters, and a dedicated
// mutex so concurrent callers serialize onto the same lane.
type Handle struct {
	mu     sync.Mutex
	Data   *reserve.ReserveData
	Params *ratestrategy.Parameters
}

// Registry owns a Logic instance and a set of per-reserve handles. A
// Registry is safe for concurrent use from multiple goroutines; each
// individual reserve's actions are serialized against each other, but
// actions against different reserves proceed concurrently.
type Registry struct {
	logic   *reserve.Logic
	logger  *slog.Logger
	metrics *observability.ReserveMetrics

	mu      sync.RWMutex
	handles map[string]*Handle
}

// New constructs a Registry. logger and metrics may be nil, in which
// case logging and metrics recording are skipped. The registry wires its
// own EventSink into logic, overriding whatever logic.Events held.
func New(logic *reserve.Logic, logger *slog.Logger, metrics *observability.ReserveMetrics) *Registry {
	if logic == nil {
		logic = &reserve.Logic{}
	}
	logic.Events = loggingMetricsSink{logger: logger, metrics: metrics}
	return &Registry{
		logic:   logic,
		logger:  logger,
		metrics: metrics,
		handles: make(map[string]*Handle),
	}
}

// Register creates a fresh reserve under the given address, initializing
// its indexes via reserve.Init and attaching the rate curve it should be
// driven with.
func (r *Registry) Register(reserveAddress, aToken, stableDebtToken, variableDebtToken, strategyAddress string, params *ratestrategy.Parameters) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.handles[reserveAddress]; exists {
		return reserve.ErrAlreadyInitialized
	}

	data := &reserve.ReserveData{}
	if err := reserve.Init(data, aToken, stableDebtToken, variableDebtToken, strategyAddress); err != nil {
		return err
	}
	r.handles[reserveAddress] = &Handle{Data: data, Params: params}
	logging.ForReserve(r.log(), reserveAddress).Info("reserve registered")
	return nil
}

func (r *Registry) handle(reserveAddress string) (*Handle, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handles[reserveAddress]
	if !ok {
		return nil, errUnknownReserve
	}
	return h, nil
}

func (r *Registry) log() *slog.Logger {
	if r.logger == nil {
		return slog.New(slog.NewTextHandler(discardWriter{}, nil))
	}
	return r.logger
}

// Tick advances a reserve to now: cache, updateState, and
// updateInterestRates in one serialized action, mirroring the ordering a
// single-threaded transaction would impose per §5. liquidityAdded and
// liquidityTaken describe the net underlying asset movement that
// triggered this action (zero for a pure time-based tick).
func (r *Registry) Tick(reserveAddress string, now uint64, liquidityAdded, liquidityTaken *big.Int) error {
	h, err := r.handle(reserveAddress)
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	start := time.Now()
	tickErr := r.tickLocked(h, reserveAddress, now, liquidityAdded, liquidityTaken)
	if r.metrics != nil {
		r.metrics.ObserveTick(reserveAddress, time.Since(start), tickErr)
	}
	if tickErr != nil {
		logging.ForReserve(r.log(), reserveAddress).Error("reserve tick failed", "error", tickErr)
		return tickErr
	}

	if r.metrics != nil {
		r.metrics.RecordTreasury(reserveAddress, h.Data.AccruedToTreasury)
	}
	return nil
}

func (r *Registry) tickLocked(h *Handle, reserveAddress string, now uint64, liquidityAdded, liquidityTaken *big.Int) error {
	cache, err := r.logic.Cache(h.Data, reserveAddress)
	if err != nil {
		return fmt.Errorf("reservehost: cache: %w", err)
	}
	if err := r.logic.UpdateState(h.Data, cache, now); err != nil {
		return fmt.Errorf("reservehost: update state: %w", err)
	}
	if h.Params != nil {
		if err := r.logic.UpdateInterestRates(h.Data, cache, h.Params, reserveAddress, liquidityAdded, liquidityTaken); err != nil {
			return fmt.Errorf("reservehost: update interest rates: %w", err)
		}
	}
	return nil
}

// Snapshot returns a defensive copy of a reserve's persistent record.
func (r *Registry) Snapshot(reserveAddress string) (*reserve.ReserveData, error) {
	h, err := r.handle(reserveAddress)
	if err != nil {
		return nil, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	clone := *h.Data
	for _, field := range []**big.Int{
		&clone.LiquidityIndex, &clone.VariableBorrowIndex,
		&clone.CurrentLiquidityRate, &clone.CurrentStableBorrowRate, &clone.CurrentVariableBorrowRate,
		&clone.AccruedToTreasury, &clone.Unbacked,
	} {
		if *field != nil {
			*field = new(big.Int).Set(*field)
		}
	}
	return &clone, nil
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }
