package encryption

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"gdsync/internal/gdsync"
)

// envelopeMagic opens every payload sealed by Envelope. The body follows
// unchanged.
const envelopeMagic = "gdsync-envelope/1\n"

// ErrNotSealed is returned when decrypting content that lacks the envelope.
var ErrNotSealed = errors.New("content is not an envelope")

// Envelope is the keyless encryption type selected by `type = "test"`. It
// only frames content, so remote copies are recognizably transformed while
// staying readable. It needs no keys and ignores the passphrase.
type Envelope struct{}

var (
	_ gdsync.Encryptor         = Envelope{}
	_ gdsync.DecryptionContext = Envelope{}
)

func (Envelope) Setup(string) error { return nil }
func (Envelope) IsConfigured() bool { return true }

func (e Envelope) Unlock(string) (gdsync.DecryptionContext, error) { return e, nil }

func (Envelope) Encrypt(r io.Reader, w io.Writer) error {
	if _, err := io.Copy(w, io.MultiReader(strings.NewReader(envelopeMagic), r)); err != nil {
		return fmt.Errorf("sealing envelope: %w", err)
	}
	return nil
}

func (Envelope) Decrypt(r io.Reader, w io.Writer) error {
	br := bufio.NewReader(r)
	head, err := br.Peek(len(envelopeMagic))
	if err != nil || string(head) != envelopeMagic {
		return ErrNotSealed
	}
	if _, err := br.Discard(len(envelopeMagic)); err != nil {
		return err
	}
	if _, err := br.WriteTo(w); err != nil {
		return fmt.Errorf("opening envelope: %w", err)
	}
	return nil
}
