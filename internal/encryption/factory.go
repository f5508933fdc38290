package encryption

import (
	"fmt"

	"gdsync/internal/config"
	"gdsync/internal/gdsync"
)

// NewEncryptorFromConfig creates an Encryptor based on the configuration type.
// It returns nil for "none", meaning content is transferred unencrypted.
func NewEncryptorFromConfig(cfg config.EncryptionConfig) (gdsync.Encryptor, error) {
	switch cfg.Type {
	case "none", "":
		return nil, nil
	case "age":
		return NewAgeEncryptor(cfg), nil
	case "test":
		return Envelope{}, nil
	default:
		return nil, fmt.Errorf("unknown encryption type: %q", cfg.Type)
	}
}

// NewCodec unlocks enc with passphrase and pairs it into a gdsync.Codec.
func NewCodec(enc gdsync.Encryptor, passphrase string) (gdsync.Codec, error) {
	if !enc.IsConfigured() {
		return nil, fmt.Errorf("encryption is enabled but no keys exist; run `gdsync config keygen`")
	}
	dec, err := enc.Unlock(passphrase)
	if err != nil {
		return nil, fmt.Errorf("unlocking private key: %w", err)
	}
	return gdsync.NewEncryptingCodec(enc, dec), nil
}
