package chaindb

import "encoding/binary"

var (
	headerPrefix = []byte("h")
	blockPrefix  = []byte("b")

	headerCountKey = []byte("headercount")
	blockCountKey  = []byte("blockcount")
)

func indexKey(prefix []byte, index int) []byte {
	key := make([]byte, len(prefix)+8)
	copy(key, prefix)
	binary.BigEndian.PutUint64(key[len(prefix):], uint64(index))
	return key
}

func headerKey(index int) []byte {
	return indexKey(headerPrefix, index)
}

func blockKey(index int) []byte {
	return indexKey(blockPrefix, index)
}

func serializeCount(count int) []byte {
	serialized := make([]byte, 8)
	binary.BigEndian.PutUint64(serialized, uint64(count))
	return serialized
}

func deserializeCount(serialized []byte) int {
	return int(binary.BigEndian.Uint64(serialized))
}
