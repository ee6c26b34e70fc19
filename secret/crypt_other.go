//go:build !windows

package secret

import (
	"crypto/rand"
	"errors"
	"fmt"

	"golang.org/x/crypto/nacl/secretbox"
)

const nonceSize = 24

var sealKey = [32]byte{
	0x4e, 0x91, 0x2c, 0xd7, 0x05, 0xba, 0x68, 0x33,
	0xf0, 0x1e, 0xa9, 0x7c, 0x52, 0xe8, 0x0d, 0x96,
	0x3b, 0xc4, 0x87, 0x20, 0x6a, 0xdf, 0x19, 0x75,
	0xae, 0x48, 0x02, 0xf3, 0x9d, 0x61, 0xc6, 0x3f,
}

var errShort = errors.New("sealed value too short")

// encrypt returns nonce followed by the sealed box.
func encrypt(plain []byte) ([]byte, error) {
	var nonce [nonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	return secretbox.Seal(nonce[:], plain, &nonce, &sealKey), nil
}

func decrypt(sealed []byte) ([]byte, error) {
	if len(sealed) < nonceSize+secretbox.Overhead {
		return nil, errShort
	}
	var nonce [nonceSize]byte
	copy(nonce[:], sealed[:nonceSize])

	plain, ok := secretbox.Open(nil, sealed[nonceSize:], &nonce, &sealKey)
	if !ok {
		return nil, errors.New("authentication failed")
	}
	return plain, nil
}
