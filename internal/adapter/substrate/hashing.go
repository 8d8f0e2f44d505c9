package substrate

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/crypto/blake2b"
)

// Twox128 is the storage hasher used for pallet and item names: two
// xxhash64 digests with seeds 0 and 1, little endian.
func Twox128(data []byte) []byte {
	out := make([]byte, 16)
	for seed := uint64(0); seed < 2; seed++ {
		d := xxhash.NewWithSeed(seed)
		_, _ = d.Write(data)
		binary.LittleEndian.PutUint64(out[seed*8:], d.Sum64())
	}
	return out
}

func Blake2_128(data []byte) []byte {
	h, _ := blake2b.New(16, nil)
	_, _ = h.Write(data)
	return h.Sum(nil)
}

// Blake2_128Concat keeps the raw key after its hash so map keys can be
// decoded back.
func Blake2_128Concat(data []byte) []byte {
	out := Blake2_128(data)
	return append(out, data...)
}

// StoragePrefix is the key prefix shared by every entry of module.item.
func StoragePrefix(module, item string) []byte {
	out := Twox128([]byte(module))
	return append(out, Twox128([]byte(item))...)
}

func encodeU16(v uint16) []byte {
	b := make([]byte, 2)
	binary.LittleEndian.PutUint16(b, v)
	return b
}
