package gdsync

import "io"

// Encryptor handles encryption of file content and unlocking for decryption.
// Encryption uses the public key only. Decryption requires a passphrase to
// unlock the private key, producing a DecryptionContext for the invocation.
type Encryptor interface {
	// Setup performs one-time key generation. Called by `gdsync config keygen`.
	Setup(passphrase string) error

	// Encrypt encrypts data read from r and writes ciphertext to w.
	Encrypt(r io.Reader, w io.Writer) error

	// Unlock decrypts the private key using the passphrase and returns a
	// DecryptionContext usable for the rest of the invocation.
	Unlock(passphrase string) (DecryptionContext, error)

	// IsConfigured returns true if both key files exist at configured paths.
	IsConfigured() bool
}

// DecryptionContext holds an unlocked private key in memory. The unlocked key
// is never written to disk.
type DecryptionContext interface {
	// Decrypt decrypts data read from r and writes plaintext to w.
	Decrypt(r io.Reader, w io.Writer) error
}

// Codec transforms content on its way to and from the remote. A nil Codec in
// the Executor means content is transferred as-is.
type Codec interface {
	Encrypt(r io.Reader, w io.Writer) error
	Decrypt(r io.Reader, w io.Writer) error
}

// EncryptingCodec pairs an Encryptor with an unlocked DecryptionContext.
type EncryptingCodec struct {
	enc Encryptor
	dec DecryptionContext
}

// NewEncryptingCodec returns a Codec that encrypts uploads with enc and
// decrypts downloads with dec.
func NewEncryptingCodec(enc Encryptor, dec DecryptionContext) *EncryptingCodec {
	return &EncryptingCodec{enc: enc, dec: dec}
}

func (c *EncryptingCodec) Encrypt(r io.Reader, w io.Writer) error { return c.enc.Encrypt(r, w) }
func (c *EncryptingCodec) Decrypt(r io.Reader, w io.Writer) error { return c.dec.Decrypt(r, w) }
