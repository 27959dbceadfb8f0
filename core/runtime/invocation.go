package runtime

import (
	"context"
	"fmt"

	"prizepool/core/events"
	"prizepool/core/state"
	"prizepool/core/types"
	"prizepool/crypto"
)

// Invocation is the view a program gets of the ledger while executing one
// instruction.
type Invocation struct {
	ctx     context.Context
	exec    *execution
	program crypto.Address
	signers map[crypto.Address]struct{}
	depth   int
}

// ProgramID returns the program currently executing.
func (inv *Invocation) ProgramID() crypto.Address { return inv.program }

// IsSigner reports whether addr authorised this invocation, either through a
// transaction signature or as a derived authority of the calling program.
func (inv *Invocation) IsSigner(addr crypto.Address) bool {
	_, ok := inv.signers[addr]
	return ok
}

// Account loads the current, uncommitted view of addr.
func (inv *Invocation) Account(addr crypto.Address) (*state.Account, bool, error) {
	return inv.exec.runtime.state.GetAccount(addr)
}

// Allocate creates an account owned by the executing program at the address
// derived from seeds. The payer must be a signer.
func (inv *Invocation) Allocate(seeds [][]byte, space uint64, payer crypto.Address) (crypto.Address, error) {
	if !inv.IsSigner(payer) {
		return crypto.Address{}, fmt.Errorf("%w: payer %s", ErrMissingSigner, payer)
	}
	addr, _, err := crypto.FindProgramAddress(seeds, inv.program)
	if err != nil {
		return crypto.Address{}, err
	}
	if _, err := inv.exec.runtime.state.CreateAccount(addr, inv.program, payer, space); err != nil {
		return crypto.Address{}, err
	}
	return addr, nil
}

// WriteData replaces the data of an account owned by the executing program.
func (inv *Invocation) WriteData(addr crypto.Address, data []byte) error {
	return inv.exec.runtime.state.WriteAccountData(addr, inv.program, data)
}

// Invoke runs ix in a nested invocation that inherits the current signers.
func (inv *Invocation) Invoke(ix types.Instruction) error {
	return inv.exec.invoke(inv.ctx, ix, inv.signers, inv.depth+1)
}

// InvokeSigned runs ix with the derived authority of seeds under the
// executing program added to the signer set. No transaction signature can
// stand in for that authority.
func (inv *Invocation) InvokeSigned(ix types.Instruction, seeds [][]byte) error {
	authority, _, err := crypto.FindProgramAddress(seeds, inv.program)
	if err != nil {
		return err
	}
	signers := make(map[crypto.Address]struct{}, len(inv.signers)+1)
	for signer := range inv.signers {
		signers[signer] = struct{}{}
	}
	signers[authority] = struct{}{}
	return inv.exec.invoke(inv.ctx, ix, signers, inv.depth+1)
}

// Emit buffers an event. Buffered events are published only if the
// transaction commits.
func (inv *Invocation) Emit(evt events.Event) {
	if evt == nil {
		return
	}
	inv.exec.events = append(inv.exec.events, evt)
}
