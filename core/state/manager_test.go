package state

import (
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"prizepool/crypto"
	"prizepool/storage"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	db := storage.NewMemDB()
	t.Cleanup(db.Close)
	manager, err := NewManager(db)
	require.NoError(t, err)
	return manager
}

func TestCreateAccountIsOneShot(t *testing.T) {
	manager := newTestManager(t)
	addr := crypto.LabelAddress("record")
	owner := crypto.LabelAddress("program")
	payer := crypto.LabelAddress("payer")

	account, err := manager.CreateAccount(addr, owner, payer, 64)
	require.NoError(t, err)
	require.Equal(t, owner, account.Owner)
	require.Equal(t, uint64(64), account.Space)

	_, err = manager.CreateAccount(addr, owner, payer, 64)
	require.ErrorIs(t, err, ErrAccountExists)
}

func TestCreateAccountRejectsOversizedSpace(t *testing.T) {
	manager := newTestManager(t)
	_, err := manager.CreateAccount(crypto.LabelAddress("big"), crypto.LabelAddress("p"), crypto.LabelAddress("q"), MaxAccountSpace+1)
	require.ErrorIs(t, err, ErrSpaceTooLarge)
}

func TestWriteAccountDataEnforcesOwnerAndSpace(t *testing.T) {
	manager := newTestManager(t)
	addr := crypto.LabelAddress("record")
	owner := crypto.LabelAddress("program")
	_, err := manager.CreateAccount(addr, owner, crypto.LabelAddress("payer"), 4)
	require.NoError(t, err)

	require.ErrorIs(t, manager.WriteAccountData(addr, crypto.LabelAddress("intruder"), []byte{1}), ErrNotOwner)
	require.ErrorIs(t, manager.WriteAccountData(addr, owner, []byte{1, 2, 3, 4, 5}), ErrDataTooLarge)
	require.ErrorIs(t, manager.WriteAccountData(crypto.LabelAddress("missing"), owner, nil), ErrAccountNotFound)

	require.NoError(t, manager.WriteAccountData(addr, owner, []byte{9, 8}))
	account, ok, err := manager.GetAccount(addr)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte{9, 8}, account.Data)
}

func TestRevertDiscardsChanges(t *testing.T) {
	manager := newTestManager(t)
	addr := crypto.LabelAddress("record")
	snap := manager.Snapshot()
	_, err := manager.CreateAccount(addr, crypto.LabelAddress("p"), crypto.LabelAddress("q"), 8)
	require.NoError(t, err)
	require.NoError(t, manager.MarkProcessed(common.HexToHash("0x01")))

	manager.RevertTo(snap)

	_, ok, err := manager.GetAccount(addr)
	require.NoError(t, err)
	require.False(t, ok)
	processed, err := manager.IsProcessed(common.HexToHash("0x01"))
	require.NoError(t, err)
	require.False(t, processed)
}

func TestCommitPersistsHead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state")
	db, err := storage.NewLevelDB(path)
	require.NoError(t, err)

	manager, err := NewManager(db)
	require.NoError(t, err)
	addr := crypto.LabelAddress("record")
	owner := crypto.LabelAddress("program")
	_, err = manager.CreateAccount(addr, owner, crypto.LabelAddress("payer"), 8)
	require.NoError(t, err)
	require.NoError(t, manager.WriteAccountData(addr, owner, []byte("prize")))
	hash := common.HexToHash("0xabc")
	require.NoError(t, manager.MarkProcessed(hash))
	root, height, err := manager.Commit()
	require.NoError(t, err)
	require.Equal(t, uint64(1), height)
	db.Close()

	reopened, err := storage.NewLevelDB(path)
	require.NoError(t, err)
	defer reopened.Close()
	restored, err := NewManager(reopened)
	require.NoError(t, err)
	require.Equal(t, uint64(1), restored.Height())
	require.Equal(t, root, restored.Root())

	account, ok, err := restored.GetAccount(addr)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("prize"), account.Data)
	processed, err := restored.IsProcessed(hash)
	require.NoError(t, err)
	require.True(t, processed)
}
