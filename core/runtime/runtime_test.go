package runtime

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"prizepool/core/events"
	"prizepool/core/state"
	"prizepool/core/types"
	"prizepool/crypto"
	"prizepool/storage"
)

var errBoom = errors.New("boom")

// recorder is a test program that writes instruction data into an account
// derived from the method name and can call back into the runtime.
type recorder struct {
	id       crypto.Address
	lastSeen map[string]bool
}

func newRecorder(label string) *recorder {
	return &recorder{id: crypto.LabelAddress(label), lastSeen: make(map[string]bool)}
}

func (r *recorder) ID() crypto.Address { return r.id }

func (r *recorder) Name() string { return "recorder" }

func (r *recorder) Execute(inv *Invocation, ix types.Instruction) error {
	switch ix.Method {
	case "store":
		payer := ix.Accounts[0]
		addr, err := inv.Allocate([][]byte{[]byte("slot"), ix.Data}, 32, payer)
		if err != nil {
			return err
		}
		if err := inv.WriteData(addr, ix.Data); err != nil {
			return err
		}
		inv.Emit(events.Static{Payload: &types.Event{Type: "recorder.stored", Attributes: map[string]string{"slot": string(ix.Data)}}})
		return nil
	case "fail":
		inv.Emit(events.Static{Payload: &types.Event{Type: "recorder.failed"}})
		return errBoom
	case "recurse":
		return inv.Invoke(ix)
	case "signed":
		return inv.InvokeSigned(types.Instruction{Program: r.id, Method: "check", Accounts: ix.Accounts}, [][]byte{[]byte("authority")})
	case "check":
		r.lastSeen["check"] = inv.IsSigner(ix.Accounts[0])
		return nil
	default:
		return errors.New("unknown method")
	}
}

type fixture struct {
	rt      *Runtime
	program *recorder
	key     *crypto.PrivateKey
	log     *events.Log
	nonce   uint64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := storage.NewMemDB()
	t.Cleanup(db.Close)
	manager, err := state.NewManager(db)
	require.NoError(t, err)
	log := events.NewLog(0)
	rt := New(manager, WithEmitter(log))
	program := newRecorder("recorder")
	require.NoError(t, rt.Register(program))
	key, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	return &fixture{rt: rt, program: program, key: key, log: log}
}

func (f *fixture) signer() crypto.Address { return f.key.PubKey().Address() }

func (f *fixture) ix(method string, data string) types.Instruction {
	return types.Instruction{Program: f.program.id, Method: method, Accounts: []crypto.Address{f.signer()}, Data: []byte(data)}
}

func (f *fixture) submit(t *testing.T, ixs ...types.Instruction) (*types.Receipt, error) {
	t.Helper()
	f.nonce++
	tx := types.NewTransaction(f.nonce, []crypto.Address{f.signer()}, ixs...)
	require.NoError(t, tx.Sign(f.key))
	return f.rt.Submit(context.Background(), tx)
}

func slotAddress(t *testing.T, program crypto.Address, data string) crypto.Address {
	t.Helper()
	addr, _, err := crypto.FindProgramAddress([][]byte{[]byte("slot"), []byte(data)}, program)
	require.NoError(t, err)
	return addr
}

func TestSubmitCommitsAndEmits(t *testing.T) {
	f := newFixture(t)
	receipt, err := f.submit(t, f.ix("store", "a"), f.ix("store", "b"))
	require.NoError(t, err)
	require.Equal(t, uint64(1), receipt.Height)
	require.Equal(t, f.rt.Root(), receipt.Root)
	require.Len(t, receipt.Events, 2)
	require.Len(t, f.log.Since(0, "recorder.stored", 0), 2)

	account, ok, err := f.rt.Account(slotAddress(t, f.program.id, "a"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, f.program.id, account.Owner)
	require.Equal(t, f.signer(), account.Payer)
	require.Equal(t, []byte("a"), account.Data)
}

func TestFailedInstructionRollsBackEverything(t *testing.T) {
	f := newFixture(t)
	_, err := f.submit(t, f.ix("store", "seed"))
	require.NoError(t, err)
	root, height := f.rt.Root(), f.rt.Height()

	_, err = f.submit(t, f.ix("store", "x"), f.ix("fail", ""))
	require.ErrorIs(t, err, errBoom)
	require.Contains(t, err.Error(), "instruction 1 (fail)")

	require.Equal(t, root, f.rt.Root())
	require.Equal(t, height, f.rt.Height())
	_, ok, err := f.rt.Account(slotAddress(t, f.program.id, "x"))
	require.NoError(t, err)
	require.False(t, ok)
	require.Empty(t, f.log.Since(0, "recorder.failed", 0))
	require.Len(t, f.log.Since(0, "", 0), 1)
}

func TestAllocateIsOneShot(t *testing.T) {
	f := newFixture(t)
	_, err := f.submit(t, f.ix("store", "a"))
	require.NoError(t, err)
	_, err = f.submit(t, f.ix("store", "a"))
	require.ErrorIs(t, err, state.ErrAccountExists)
}

func TestAllocateRequiresSigningPayer(t *testing.T) {
	f := newFixture(t)
	ix := f.ix("store", "a")
	ix.Accounts = []crypto.Address{crypto.LabelAddress("stranger")}
	_, err := f.submit(t, ix)
	require.ErrorIs(t, err, ErrMissingSigner)
}

func TestReplayIsRejected(t *testing.T) {
	f := newFixture(t)
	tx := types.NewTransaction(7, []crypto.Address{f.signer()}, f.ix("store", "a"))
	require.NoError(t, tx.Sign(f.key))
	_, err := f.rt.Submit(context.Background(), tx)
	require.NoError(t, err)
	_, err = f.rt.Submit(context.Background(), tx)
	require.ErrorIs(t, err, ErrAlreadyProcessed)
}

func TestUnsignedTransactionIsRejected(t *testing.T) {
	f := newFixture(t)
	tx := types.NewTransaction(1, []crypto.Address{f.signer()}, f.ix("store", "a"))
	_, err := f.rt.Submit(context.Background(), tx)
	require.ErrorIs(t, err, types.ErrMissingSignature)
	require.Equal(t, uint64(0), f.rt.Height())
}

func TestUnknownProgram(t *testing.T) {
	f := newFixture(t)
	ix := f.ix("store", "a")
	ix.Program = crypto.LabelAddress("nowhere")
	_, err := f.submit(t, ix)
	require.ErrorIs(t, err, ErrUnknownProgram)
}

func TestInvocationDepthIsBounded(t *testing.T) {
	f := newFixture(t)
	_, err := f.submit(t, f.ix("recurse", ""))
	require.ErrorIs(t, err, ErrMaxDepth)
}

func TestInvokeSignedAddsDerivedAuthority(t *testing.T) {
	f := newFixture(t)
	authority, _, err := crypto.FindProgramAddress([][]byte{[]byte("authority")}, f.program.id)
	require.NoError(t, err)

	ix := f.ix("signed", "")
	ix.Accounts = []crypto.Address{authority}
	_, err = f.submit(t, ix)
	require.NoError(t, err)
	require.True(t, f.program.lastSeen["check"])

	direct := f.ix("check", "")
	direct.Accounts = []crypto.Address{authority}
	_, err = f.submit(t, direct)
	require.NoError(t, err)
	require.False(t, f.program.lastSeen["check"])
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	f := newFixture(t)
	require.ErrorIs(t, f.rt.Register(newRecorder("recorder")), ErrProgramExists)
}

func TestCanceledContextAborts(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	tx := types.NewTransaction(1, []crypto.Address{f.signer()}, f.ix("store", "a"))
	require.NoError(t, tx.Sign(f.key))
	_, err := f.rt.Submit(ctx, tx)
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, uint64(0), f.rt.Height())
}
