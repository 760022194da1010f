package mix

import (
	"crypto/cipher"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"math/big"
	"math/bits"
	"strings"

	"golang.org/x/crypto/blowfish"
)

// Westwood public key for TS/RA2 mix files: 40 byte modulus, exponent 0x10001.
// The key source holds two RSA blocks that combine into a 56 byte Blowfish key.
var (
	rsaModulus  = hexBig("0x51bcda086d39fce4565160d651713fa2e8aa54fa6682b04aabdd0e6af8b0c1e6d1fb4f3daa437f15")
	rsaExponent = big.NewInt(0x10001)
)

func hexBig(s string) *big.Int {
	v := new(big.Int)
	v.SetString(s, 0)
	return v
}

func (a *Archive) readEncryptedIndex(r io.ReaderAt) (*Archive, error) {
	var keysource [80]byte
	if _, err := r.ReadAt(keysource[:], 4); err != nil {
		return nil, fmt.Errorf("%w: key source: %v", ErrMalformed, err)
	}
	bf, err := blowfish.NewCipher(decryptKeySource(keysource[:]))
	if err != nil {
		return nil, fmt.Errorf("mix: blowfish init: %w", err)
	}

	// First block carries the count, body size and two index bytes
	pos := int64(4 + 80)
	var block [8]byte
	if _, err := r.ReadAt(block[:], pos); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	pos += 8
	decryptECB(bf, block[:])

	count := int(binary.LittleEndian.Uint16(block[0:2]))
	a.BodySize = binary.LittleEndian.Uint32(block[2:6])

	indexBytes := count*12 - 2
	blockCount := (indexBytes + 7) / 8
	if blockCount < 0 {
		blockCount = 0
	}
	index := make([]byte, 2+blockCount*8)
	copy(index, block[6:8])
	if blockCount > 0 {
		if _, err := r.ReadAt(index[2:], pos); err != nil {
			return nil, fmt.Errorf("%w: index: %v", ErrMalformed, err)
		}
		decryptECB(bf, index[2:])
	}

	entries := make([]Entry, count)
	for i := range entries {
		off := i * 12
		entries[i] = Entry{
			ID:     int32(binary.LittleEndian.Uint32(index[off:])),
			Offset: binary.LittleEndian.Uint32(index[off+4:]),
			Size:   binary.LittleEndian.Uint32(index[off+8:]),
		}
	}
	a.HeaderSize = 4 + 80 + int64(blockCount+1)*8
	a.setEntries(entries)
	return a, nil
}

// decryptKeySource turns the 80 byte RSA key source into the Blowfish key
func decryptKeySource(keysource []byte) []byte {
	reversed := make([]byte, 80)
	for i := 0; i < 80; i++ {
		reversed[79-i] = keysource[i]
	}

	block1 := new(big.Int).SetBytes(reversed[0:40])
	block2 := new(big.Int).SetBytes(reversed[40:80])

	// public key operation: plaintext = ciphertext^e mod n
	plain1 := new(big.Int).Exp(block1, rsaExponent, rsaModulus)
	plain2 := new(big.Int).Exp(block2, rsaExponent, rsaModulus)

	combined := new(big.Int).Lsh(plain1, 312)
	combined.Add(combined, plain2)

	keyBE := make([]byte, 56)
	b := combined.Bytes()
	if len(b) <= 56 {
		copy(keyBE[56-len(b):], b)
	} else {
		copy(keyBE, b[len(b)-56:])
	}

	key := make([]byte, 56)
	for i := 0; i < 56; i++ {
		key[i] = keyBE[55-i]
	}
	return key
}

func decryptECB(c cipher.Block, data []byte) {
	bs := c.BlockSize()
	for i := 0; i+bs <= len(data); i += bs {
		c.Decrypt(data[i:i+bs], data[i:i+bs])
	}
}

// ID computes the TS/RA2 file id of name: a CRC32 over the upper-cased name,
// padded to a multiple of four bytes.
func ID(name string) int32 {
	buf := []byte(strings.ToUpper(name))
	l := len(buf)
	a := l >> 2
	if l&3 != 0 {
		buf = append(buf, byte(l-(a<<2)))
		pad := 3 - (l & 3)
		for i := 0; i < pad; i++ {
			buf = append(buf, buf[a<<2])
		}
	}
	return int32(crc32.ChecksumIEEE(buf))
}

// ClassicID computes the TD/RA file id of name: the upper-cased name is
// zero-padded to whole little-endian words, and each word is added to the
// running id after rotating it left by one bit.
func ClassicID(name string) int32 {
	buf := []byte(strings.ToUpper(name))
	for len(buf)%4 != 0 {
		buf = append(buf, 0)
	}
	var id uint32
	for i := 0; i < len(buf); i += 4 {
		id = bits.RotateLeft32(id, 1) + binary.LittleEndian.Uint32(buf[i:])
	}
	return int32(id)
}
