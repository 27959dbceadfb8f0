package storage

import (
	"errors"

	"github.com/ethereum/go-ethereum/core/rawdb"
	"github.com/ethereum/go-ethereum/ethdb"
	gethleveldb "github.com/ethereum/go-ethereum/ethdb/leveldb"
	"github.com/ethereum/go-ethereum/triedb"
	"github.com/syndtr/goleveldb/leveldb/opt"
)

// ErrNotFound is returned by Get when the key is absent.
var ErrNotFound = errors.New("storage: key not found")

// Database is a generic interface for a key-value store.
// It also hands out the trie database that shares the same backend, so ledger
// state and node metadata are persisted together.
type Database interface {
	Put(key []byte, value []byte) error
	Get(key []byte) ([]byte, error)
	TrieDB() *triedb.Database
	Close() // A way to gracefully shut down the database connection.
}

type kvDatabase struct {
	kv     ethdb.Database
	trieDB *triedb.Database
}

func newKVDatabase(kv ethdb.Database) *kvDatabase {
	return &kvDatabase{kv: kv, trieDB: triedb.NewDatabase(kv, nil)}
}

func (db *kvDatabase) Put(key []byte, value []byte) error {
	return db.kv.Put(key, value)
}

func (db *kvDatabase) Get(key []byte) ([]byte, error) {
	ok, err := db.kv.Has(key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}
	return db.kv.Get(key)
}

func (db *kvDatabase) TrieDB() *triedb.Database { return db.trieDB }

func (db *kvDatabase) Close() {
	_ = db.trieDB.Close()
	_ = db.kv.Close()
}

// --- In-Memory DB (for testing) ---

type MemDB struct {
	*kvDatabase
}

func NewMemDB() *MemDB {
	return &MemDB{kvDatabase: newKVDatabase(rawdb.NewMemoryDatabase())}
}

// --- Persistent DB ---

// LevelDB is a persistent key-value store using LevelDB.
type LevelDB struct {
	*kvDatabase
}

const (
	levelDBNamespace     = "prizepool/db/"
	levelDBCacheMiB      = 16
	levelDBOpenFileLimit = 64
)

// NewLevelDB creates or opens a LevelDB database at the specified path.
func NewLevelDB(path string) (*LevelDB, error) {
	kv, err := gethleveldb.NewCustom(path, levelDBNamespace, func(options *opt.Options) {
		options.BlockCacheCapacity = levelDBCacheMiB * opt.MiB / 2
		options.WriteBuffer = levelDBCacheMiB * opt.MiB / 4
		options.OpenFilesCacheCapacity = levelDBOpenFileLimit
	})
	if err != nil {
		return nil, err
	}
	return &LevelDB{kvDatabase: newKVDatabase(rawdb.NewDatabase(kv))}, nil
}
