//go:build windows

package secret

import "github.com/billgraziano/dpapi"

func encrypt(plain []byte) ([]byte, error) {
	return dpapi.EncryptBytes(plain)
}

func decrypt(sealed []byte) ([]byte, error) {
	return dpapi.DecryptBytes(sealed)
}
