// Package chaindb persists downloaded headers and blocks in leveldb, keyed
// by their position in the chain.
package chaindb

import (
	"bytes"
	"sync"

	"github.com/btcsuite/btcd/wire"
	"github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb"
	ldbErrors "github.com/syndtr/goleveldb/leveldb/errors"
)

// ErrNotFound is returned when a requested position holds no entry.
var ErrNotFound = errors.New("not found")

// ChainDB is a leveldb store of a header chain and its blocks.
type ChainDB struct {
	ldb *leveldb.DB

	mtx         sync.RWMutex
	headerCount int
	blockCount  int
}

// Open opens the database at path, creating it if needed. A new database
// is seeded with genesis at position 0; an existing one must have been
// created with the same genesis block.
func Open(path string, genesis *wire.MsgBlock) (*ChainDB, error) {
	ldb, err := leveldb.OpenFile(path, Options())
	if _, corrupted := err.(*ldbErrors.ErrCorrupted); corrupted {
		log.Warnf("LevelDB corruption detected for path %s: %s", path, err)
		ldb, err = leveldb.RecoverFile(path, nil)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		log.Warnf("LevelDB recovered from corruption for path %s", path)
	}
	if err != nil {
		return nil, errors.WithStack(err)
	}

	db := &ChainDB{ldb: ldb}
	err = db.initialize(genesis)
	if err != nil {
		_ = ldb.Close()
		return nil, err
	}
	log.Infof("Opened chain database at %s with %d headers and %d blocks", path, db.headerCount, db.blockCount)
	return db, nil
}

func (db *ChainDB) initialize(genesis *wire.MsgBlock) error {
	headerCount, err := db.readCount(headerCountKey)
	if err != nil {
		return err
	}
	blockCount, err := db.readCount(blockCountKey)
	if err != nil {
		return err
	}

	if headerCount == 0 {
		err := db.CommitHeaders(0, []*wire.BlockHeader{&genesis.Header})
		if err != nil {
			return err
		}
		return db.CommitBlocks(0, []*wire.MsgBlock{genesis})
	}

	db.headerCount, db.blockCount = headerCount, blockCount
	storedGenesis, err := db.Header(0)
	if err != nil {
		return err
	}
	if storedGenesis.BlockHash() != genesis.BlockHash() {
		return errors.Errorf("database was created for genesis %s, not %s",
			storedGenesis.BlockHash(), genesis.BlockHash())
	}
	return nil
}

func (db *ChainDB) readCount(key []byte) (int, error) {
	serialized, err := db.ldb.Get(key, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, errors.WithStack(err)
	}
	return deserializeCount(serialized), nil
}

// CommitHeaders stores headers starting at position startIndex in a single
// batch. startIndex may not leave a gap after the stored headers; entries
// at and after it are replaced. Stored blocks past the new header count are
// dropped from the count in the same batch.
func (db *ChainDB) CommitHeaders(startIndex int, headers []*wire.BlockHeader) error {
	db.mtx.Lock()
	defer db.mtx.Unlock()

	if startIndex > db.headerCount {
		return errors.Errorf("cannot store headers at %d when only %d are stored", startIndex, db.headerCount)
	}

	batch := new(leveldb.Batch)
	for i, header := range headers {
		var buf bytes.Buffer
		err := header.Serialize(&buf)
		if err != nil {
			return errors.WithStack(err)
		}
		batch.Put(headerKey(startIndex+i), buf.Bytes())
	}
	newCount := startIndex + len(headers)
	batch.Put(headerCountKey, serializeCount(newCount))
	newBlockCount := db.blockCount
	if newBlockCount > newCount {
		newBlockCount = newCount
		batch.Put(blockCountKey, serializeCount(newBlockCount))
	}

	err := db.ldb.Write(batch, nil)
	if err != nil {
		return errors.WithStack(err)
	}
	db.headerCount = newCount
	db.blockCount = newBlockCount
	log.Tracef("Stored %d headers at %d", len(headers), startIndex)
	return nil
}

// CommitBlocks stores blocks starting at position startIndex in a single
// batch. Every block needs a stored header.
func (db *ChainDB) CommitBlocks(startIndex int, blocks []*wire.MsgBlock) error {
	db.mtx.Lock()
	defer db.mtx.Unlock()

	if startIndex > db.blockCount {
		return errors.Errorf("cannot store blocks at %d when only %d are stored", startIndex, db.blockCount)
	}
	newCount := startIndex + len(blocks)
	if newCount > db.headerCount {
		return errors.Errorf("cannot store %d blocks with only %d headers", newCount, db.headerCount)
	}

	batch := new(leveldb.Batch)
	for i, block := range blocks {
		var buf bytes.Buffer
		buf.Grow(block.SerializeSize())
		err := block.Serialize(&buf)
		if err != nil {
			return errors.WithStack(err)
		}
		batch.Put(blockKey(startIndex+i), buf.Bytes())
	}
	batch.Put(blockCountKey, serializeCount(newCount))

	err := db.ldb.Write(batch, nil)
	if err != nil {
		return errors.WithStack(err)
	}
	db.blockCount = newCount
	log.Tracef("Stored %d blocks at %d", len(blocks), startIndex)
	return nil
}

// HeaderCount returns the number of stored headers, genesis included.
func (db *ChainDB) HeaderCount() int {
	db.mtx.RLock()
	defer db.mtx.RUnlock()
	return db.headerCount
}

// BlockCount returns the number of stored blocks, genesis included.
func (db *ChainDB) BlockCount() int {
	db.mtx.RLock()
	defer db.mtx.RUnlock()
	return db.blockCount
}

// Header returns the header at position index.
func (db *ChainDB) Header(index int) (*wire.BlockHeader, error) {
	serialized, err := db.get(headerKey(index), index, db.HeaderCount())
	if err != nil {
		return nil, err
	}
	header := &wire.BlockHeader{}
	err = header.Deserialize(bytes.NewReader(serialized))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to deserialize header %d", index)
	}
	return header, nil
}

// Block returns the block at position index.
func (db *ChainDB) Block(index int) (*wire.MsgBlock, error) {
	serialized, err := db.get(blockKey(index), index, db.BlockCount())
	if err != nil {
		return nil, err
	}
	block := &wire.MsgBlock{}
	err = block.Deserialize(bytes.NewReader(serialized))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to deserialize block %d", index)
	}
	return block, nil
}

func (db *ChainDB) get(key []byte, index int, count int) ([]byte, error) {
	if index < 0 || index >= count {
		return nil, errors.Wrapf(ErrNotFound, "position %d out of %d", index, count)
	}
	serialized, err := db.ldb.Get(key, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, errors.Wrapf(ErrNotFound, "position %d", index)
	}
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return serialized, nil
}

// Close closes the database.
func (db *ChainDB) Close() error {
	return errors.WithStack(db.ldb.Close())
}
