package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"prizepool/core/events"
	"prizepool/core/state"
	"prizepool/core/types"
	"prizepool/crypto"
	"prizepool/observability"
)

// MaxInvocationDepth bounds nested cross-program invocations.
const MaxInvocationDepth = 4

var (
	ErrNilTransaction   = errors.New("runtime: transaction required")
	ErrUnknownProgram   = errors.New("runtime: unknown program")
	ErrProgramExists    = errors.New("runtime: program already registered")
	ErrAlreadyProcessed = errors.New("runtime: transaction already processed")
	ErrMaxDepth         = errors.New("runtime: invocation depth exceeded")
	ErrMissingSigner    = errors.New("runtime: required signer missing")
)

// Program is a native program hosted by the runtime. Execute runs a single
// instruction addressed to the program; returning an error aborts the whole
// transaction.
type Program interface {
	ID() crypto.Address
	Name() string
	Execute(inv *Invocation, ix types.Instruction) error
}

// Runtime owns the ledger state and executes transactions one at a time.
// Every transaction either commits all of its effects or none of them.
type Runtime struct {
	mu       sync.Mutex
	state    *state.Manager
	programs map[crypto.Address]Program
	emitter  events.Emitter
	logger   *slog.Logger
	tracer   trace.Tracer
	metrics  *observability.LedgerMetrics
}

// Option customises a Runtime.
type Option func(*Runtime)

// WithEmitter forwards committed events to emitter.
func WithEmitter(emitter events.Emitter) Option {
	return func(r *Runtime) {
		if emitter != nil {
			r.emitter = emitter
		}
	}
}

// WithLogger overrides the default slog logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runtime) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithMetrics enables prometheus instrumentation.
func WithMetrics(metrics *observability.LedgerMetrics) Option {
	return func(r *Runtime) { r.metrics = metrics }
}

// New constructs a runtime over the supplied state.
func New(manager *state.Manager, opts ...Option) *Runtime {
	r := &Runtime{
		state:    manager,
		programs: make(map[crypto.Address]Program),
		emitter:  events.NoopEmitter{},
		logger:   slog.Default(),
		tracer:   otel.Tracer("prizepool/core/runtime"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register installs a program under its ID.
func (r *Runtime) Register(program Program) error {
	if program == nil {
		return fmt.Errorf("runtime: nil program")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	id := program.ID()
	if _, exists := r.programs[id]; exists {
		return fmt.Errorf("%w: %s", ErrProgramExists, program.Name())
	}
	r.programs[id] = program
	return nil
}

// Submit verifies and executes tx. On success the state is committed at the
// next height and the receipt lists the events the transaction emitted.
func (r *Runtime) Submit(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	if tx == nil {
		return nil, ErrNilTransaction
	}
	ctx, span := r.tracer.Start(ctx, "runtime.Submit", trace.WithAttributes(
		attribute.Int("tx.instructions", len(tx.Instructions)),
		attribute.Int("tx.signers", len(tx.Signers)),
	))
	defer span.End()

	start := time.Now()
	receipt, err := r.submit(ctx, tx)
	var height uint64
	if receipt != nil {
		height = receipt.Height
	}
	r.metrics.ObserveTransaction(height, time.Since(start), err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(
		attribute.String("tx.hash", receipt.Hash.Hex()),
		attribute.Int64("ledger.height", int64(receipt.Height)),
	)
	return receipt, nil
}

func (r *Runtime) submit(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	hash, err := tx.Verify()
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	processed, err := r.state.IsProcessed(hash)
	if err != nil {
		return nil, err
	}
	if processed {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyProcessed, hash.Hex())
	}

	snapshot := r.state.Snapshot()
	exec := &execution{runtime: r}
	signers := make(map[crypto.Address]struct{}, len(tx.Signers))
	for _, signer := range tx.Signers {
		signers[signer] = struct{}{}
	}

	for i, ix := range tx.Instructions {
		if err := ctx.Err(); err != nil {
			r.state.RevertTo(snapshot)
			return nil, err
		}
		err := exec.invoke(ctx, ix, signers, 0)
		r.metrics.ObserveInstruction(r.programName(ix.Program), ix.Method, err)
		if err != nil {
			r.state.RevertTo(snapshot)
			r.logger.Warn("transaction aborted",
				slog.String("hash", hash.Hex()),
				slog.Int("instruction", i),
				slog.String("method", ix.Method),
				slog.Any("error", err))
			return nil, fmt.Errorf("instruction %d (%s): %w", i, ix.Method, err)
		}
	}

	if err := r.state.MarkProcessed(hash); err != nil {
		r.state.RevertTo(snapshot)
		return nil, err
	}
	root, height, err := r.state.Commit()
	if err != nil {
		r.state.RevertTo(snapshot)
		return nil, err
	}

	receipt := &types.Receipt{Hash: hash, Height: height, Root: root}
	for _, evt := range exec.events {
		r.emitter.Emit(evt)
		if payload := evt.Event(); payload != nil {
			receipt.Events = append(receipt.Events, *payload)
		}
	}
	r.logger.Info("transaction committed",
		slog.String("hash", hash.Hex()),
		slog.Uint64("height", height),
		slog.Int("events", len(receipt.Events)))
	return receipt, nil
}

func (r *Runtime) programName(id crypto.Address) string {
	if program, ok := r.programs[id]; ok {
		return program.Name()
	}
	return "unknown"
}

// Account returns a copy of the committed account at addr.
func (r *Runtime) Account(addr crypto.Address) (*state.Account, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.GetAccount(addr)
}

// Height returns the last committed height.
func (r *Runtime) Height() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.Height()
}

// Root returns the committed state root.
func (r *Runtime) Root() common.Hash {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.Root()
}

// execution carries the per-transaction buffers shared by every invocation.
type execution struct {
	runtime *Runtime
	events  []events.Event
}

func (e *execution) invoke(ctx context.Context, ix types.Instruction, signers map[crypto.Address]struct{}, depth int) error {
	if depth >= MaxInvocationDepth {
		return ErrMaxDepth
	}
	program, ok := e.runtime.programs[ix.Program]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownProgram, ix.Program)
	}
	inv := &Invocation{
		ctx:     ctx,
		exec:    e,
		program: program.ID(),
		signers: signers,
		depth:   depth,
	}
	return program.Execute(inv, ix)
}
