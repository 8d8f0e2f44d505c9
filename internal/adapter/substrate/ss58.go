package substrate

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/mr-tron/base58"
	"golang.org/x/crypto/blake2b"
)

// BittensorSS58Prefix is the generic Substrate address format Bittensor uses.
const BittensorSS58Prefix = 42

const accountIDLen = 32

var ss58Pre = []byte("SS58PRE")

var (
	ErrBadAddress  = errors.New("ss58: malformed address")
	ErrBadChecksum = errors.New("ss58: checksum mismatch")
)

func ss58Checksum(body []byte) []byte {
	h := blake2b.Sum512(append(append([]byte{}, ss58Pre...), body...))
	return h[:2]
}

// EncodeSS58 renders a 32 byte account id as text. Only the single byte
// prefix range (0..63) is supported.
func EncodeSS58(accountID []byte, prefix uint8) (string, error) {
	if len(accountID) != accountIDLen {
		return "", fmt.Errorf("%w: account id is %d bytes", ErrBadAddress, len(accountID))
	}
	if prefix > 63 {
		return "", fmt.Errorf("%w: prefix %d needs two bytes", ErrBadAddress, prefix)
	}
	body := make([]byte, 0, 1+accountIDLen+2)
	body = append(body, prefix)
	body = append(body, accountID...)
	body = append(body, ss58Checksum(body)...)
	return base58.Encode(body), nil
}

// DecodeSS58 returns the account id and prefix of a single byte prefix
// address.
func DecodeSS58(address string) ([]byte, uint8, error) {
	raw, err := base58.Decode(address)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrBadAddress, err)
	}
	if len(raw) != 1+accountIDLen+2 || raw[0] > 63 {
		return nil, 0, ErrBadAddress
	}
	body := raw[:1+accountIDLen]
	if !bytes.Equal(ss58Checksum(body), raw[1+accountIDLen:]) {
		return nil, 0, ErrBadChecksum
	}
	return append([]byte{}, raw[1:1+accountIDLen]...), raw[0], nil
}
