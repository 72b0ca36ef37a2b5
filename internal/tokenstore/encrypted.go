package tokenstore

import (
	"bytes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/scrypt"
)

// On-disk layout: magic | salt | nonce | ciphertext.
// The salt is regenerated on every seal so each write derives a fresh key.
var sealMagic = []byte("FSTK1")

const saltSize = 16

// scrypt cost parameters, interactive profile
const (
	scryptN = 1 << 15
	scryptR = 8
	scryptP = 1
)

type secretBox struct {
	passphrase string
}

func (b *secretBox) seal(plaintext []byte) ([]byte, error) {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}

	aead, err := b.aead(salt)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}

	out := make([]byte, 0, len(sealMagic)+saltSize+len(nonce)+len(plaintext)+aead.Overhead())
	out = append(out, sealMagic...)
	out = append(out, salt...)
	out = append(out, nonce...)
	return aead.Seal(out, nonce, plaintext, sealMagic), nil
}

func (b *secretBox) open(sealed []byte) ([]byte, error) {
	header := len(sealMagic) + saltSize + chacha20poly1305.NonceSizeX
	if len(sealed) < header {
		return nil, errors.New("sealed data too short")
	}
	if !bytes.Equal(sealed[:len(sealMagic)], sealMagic) {
		return nil, errors.New("not a sealed token file")
	}

	salt := sealed[len(sealMagic) : len(sealMagic)+saltSize]
	nonce := sealed[len(sealMagic)+saltSize : header]

	aead, err := b.aead(salt)
	if err != nil {
		return nil, err
	}

	plaintext, err := aead.Open(nil, nonce, sealed[header:], sealMagic)
	if err != nil {
		return nil, fmt.Errorf("unseal failed (wrong passphrase?). Err: %w", err)
	}

	return plaintext, nil
}

func (b *secretBox) aead(salt []byte) (cipher.AEAD, error) {
	key, err := scrypt.Key([]byte(b.passphrase), salt, scryptN, scryptR, scryptP, chacha20poly1305.KeySize)
	if err != nil {
		return nil, err
	}

	return chacha20poly1305.NewX(key)
}
