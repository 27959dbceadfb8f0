package state

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"prizepool/crypto"
	"prizepool/storage"
	"prizepool/storage/trie"
)

// MaxAccountSpace caps a single allocation.
const MaxAccountSpace = 10 * 1024

var (
	accountPrefix   = []byte("account:")
	processedPrefix = []byte("processed:")
	headKey         = []byte("prizepool/head")
)

var (
	ErrAccountExists   = errors.New("state: account already exists")
	ErrAccountNotFound = errors.New("state: account not found")
	ErrNotOwner        = errors.New("state: account not owned by program")
	ErrDataTooLarge    = errors.New("state: data exceeds allocated space")
	ErrSpaceTooLarge   = errors.New("state: requested space exceeds limit")
)

// Account is a ledger account. Only the owning program may change Data, and
// Data never grows beyond the Space fixed at allocation.
type Account struct {
	Address crypto.Address
	Owner   crypto.Address
	Payer   crypto.Address
	Space   uint64
	Data    []byte
}

// Clone returns a deep copy so callers can mutate the result freely.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	clone := *a
	clone.Data = append([]byte(nil), a.Data...)
	return &clone
}

type storedHead struct {
	Height uint64
	Root   common.Hash
}

// Manager reads and writes ledger accounts in the state trie and tracks the
// committed chain head.
type Manager struct {
	db     storage.Database
	trie   *trie.Trie
	height uint64
}

// Snapshot is a rollback point taken before speculative execution.
type Snapshot struct {
	trie *trie.Trie
}

// NewManager opens the state stored in db at its last committed head.
func NewManager(db storage.Database) (*Manager, error) {
	head, err := loadHead(db)
	if err != nil {
		return nil, err
	}
	var root []byte
	if head.Root != (common.Hash{}) {
		root = head.Root.Bytes()
	}
	tr, err := trie.NewTrie(db, root)
	if err != nil {
		return nil, fmt.Errorf("state: open trie: %w", err)
	}
	return &Manager{db: db, trie: tr, height: head.Height}, nil
}

func loadHead(db storage.Database) (storedHead, error) {
	data, err := db.Get(headKey)
	if errors.Is(err, storage.ErrNotFound) {
		return storedHead{}, nil
	}
	if err != nil {
		return storedHead{}, err
	}
	var head storedHead
	if err := rlp.DecodeBytes(data, &head); err != nil {
		return storedHead{}, fmt.Errorf("state: decode head: %w", err)
	}
	return head, nil
}

func accountKey(addr crypto.Address) []byte {
	buf := make([]byte, len(accountPrefix)+len(addr))
	copy(buf, accountPrefix)
	copy(buf[len(accountPrefix):], addr[:])
	return ethcrypto.Keccak256(buf)
}

func processedKey(hash common.Hash) []byte {
	buf := make([]byte, len(processedPrefix)+len(hash))
	copy(buf, processedPrefix)
	copy(buf[len(processedPrefix):], hash[:])
	return ethcrypto.Keccak256(buf)
}

// GetAccount loads an account. The boolean is false when nothing is allocated
// at addr.
func (m *Manager) GetAccount(addr crypto.Address) (*Account, bool, error) {
	data, err := m.trie.Get(accountKey(addr))
	if err != nil {
		return nil, false, err
	}
	if len(data) == 0 {
		return nil, false, nil
	}
	account := new(Account)
	if err := rlp.DecodeBytes(data, account); err != nil {
		return nil, false, fmt.Errorf("state: decode account %s: %w", addr, err)
	}
	return account, true, nil
}

func (m *Manager) putAccount(account *Account) error {
	encoded, err := rlp.EncodeToBytes(account)
	if err != nil {
		return err
	}
	return m.trie.Update(accountKey(account.Address), encoded)
}

// CreateAccount allocates space bytes at addr for owner. Allocation is
// one-shot: an existing account at addr yields ErrAccountExists.
func (m *Manager) CreateAccount(addr, owner, payer crypto.Address, space uint64) (*Account, error) {
	if space > MaxAccountSpace {
		return nil, fmt.Errorf("%w: %d > %d", ErrSpaceTooLarge, space, MaxAccountSpace)
	}
	if _, exists, err := m.GetAccount(addr); err != nil {
		return nil, err
	} else if exists {
		return nil, fmt.Errorf("%w: %s", ErrAccountExists, addr)
	}
	account := &Account{Address: addr, Owner: owner, Payer: payer, Space: space}
	if err := m.putAccount(account); err != nil {
		return nil, err
	}
	return account.Clone(), nil
}

// WriteAccountData replaces the data of an account owned by owner.
func (m *Manager) WriteAccountData(addr, owner crypto.Address, data []byte) error {
	account, ok, err := m.GetAccount(addr)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrAccountNotFound, addr)
	}
	if account.Owner != owner {
		return fmt.Errorf("%w: %s", ErrNotOwner, addr)
	}
	if uint64(len(data)) > account.Space {
		return fmt.Errorf("%w: %d > %d", ErrDataTooLarge, len(data), account.Space)
	}
	account.Data = append([]byte(nil), data...)
	return m.putAccount(account)
}

// IsProcessed reports whether a transaction hash was already committed.
func (m *Manager) IsProcessed(hash common.Hash) (bool, error) {
	data, err := m.trie.Get(processedKey(hash))
	if err != nil {
		return false, err
	}
	return len(data) > 0, nil
}

// MarkProcessed records a transaction hash at the height it commits in.
func (m *Manager) MarkProcessed(hash common.Hash) error {
	encoded, err := rlp.EncodeToBytes(m.height + 1)
	if err != nil {
		return err
	}
	return m.trie.Update(processedKey(hash), encoded)
}

// Snapshot captures the current, possibly uncommitted, state.
func (m *Manager) Snapshot() Snapshot {
	return Snapshot{trie: m.trie.Copy()}
}

// RevertTo discards every change made after snap was taken.
func (m *Manager) RevertTo(snap Snapshot) {
	if snap.trie != nil {
		m.trie = snap.trie
	}
}

// Commit flushes pending changes as the next height and persists the head.
func (m *Manager) Commit() (common.Hash, uint64, error) {
	parent := m.trie.Root()
	next := m.height + 1
	root, err := m.trie.Commit(parent, next)
	if err != nil {
		return common.Hash{}, 0, fmt.Errorf("state: commit trie: %w", err)
	}
	encoded, err := rlp.EncodeToBytes(storedHead{Height: next, Root: root})
	if err != nil {
		return common.Hash{}, 0, err
	}
	if err := m.db.Put(headKey, encoded); err != nil {
		return common.Hash{}, 0, fmt.Errorf("state: persist head: %w", err)
	}
	m.height = next
	return root, next, nil
}

// Height returns the last committed height.
func (m *Manager) Height() uint64 { return m.height }

// Root returns the hash of the current state including pending changes.
func (m *Manager) Root() common.Hash { return m.trie.Hash() }
