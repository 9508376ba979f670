package exchange

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"unicode/utf8"

	"github.com/durvaajgaonkar/secure-file-storage-system/internal/common"
)

// MaxNameLen bounds the original filename carried inside the ciphertext.
const MaxNameLen = 255

// DefaultName is used when the upload carries no usable filename.
const DefaultName = "file"

// BaseName strips any directory part (either separator) and control
// characters, and trims the result to MaxNameLen bytes on a rune boundary.
func BaseName(name string) string {
	name = strings.ReplaceAll(name, `\`, "/")
	name = path.Base(name)
	name = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f || r == '"' {
			return -1
		}
		return r
	}, name)
	name = strings.TrimSpace(name)

	if name == "" || name == "." || name == "/" || name == ".." {
		return DefaultName
	}
	for len(name) > MaxNameLen {
		_, size := utf8.DecodeLastRuneInString(name)
		name = name[:len(name)-size]
	}
	return name
}

// writeNameFrame writes uint16 length || name in front of the content.
func writeNameFrame(w io.Writer, name string) error {
	var hdr [2]byte
	binary.BigEndian.PutUint16(hdr[:], uint16(len(name)))
	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}
	_, err := io.WriteString(w, name)
	return err
}

// readNameFrame reads the filename written by writeNameFrame. Any defect is
// reported as common.ErrorDecryption: the frame lives inside authenticated
// plaintext, so a bad frame means the object is not ours to read.
func readNameFrame(r io.Reader) (string, error) {
	var hdr [2]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return "", frameError(err)
	}
	n := int(binary.BigEndian.Uint16(hdr[:]))
	if n > MaxNameLen {
		return "", common.ErrorDecryption
	}
	name := make([]byte, n)
	if _, err := io.ReadFull(r, name); err != nil {
		return "", frameError(err)
	}
	if !utf8.Valid(name) {
		return "", common.ErrorDecryption
	}
	return string(name), nil
}

func frameError(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return common.ErrorDecryption
	}
	return fmt.Errorf("%w: %w", common.ErrorStaging, err)
}
