package testutil

import (
	"testing"

	"gdsync/internal/encryption"
	"gdsync/internal/gdsync"
)

// NewTestCodec returns a codec backed by the keyless envelope encryption.
func NewTestCodec(t *testing.T) gdsync.Codec {
	t.Helper()
	codec, err := encryption.NewCodec(encryption.Envelope{}, "")
	if err != nil {
		t.Fatalf("creating test codec: %v", err)
	}
	return codec
}
