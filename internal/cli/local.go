package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/durvaajgaonkar/secure-file-storage-system/internal/common"
	"github.com/durvaajgaonkar/secure-file-storage-system/internal/cryptox"
)

func encryptCmd(s Streams) *cobra.Command {
	var in, out, suiteName string
	var chunkSize int

	cmd := &cobra.Command{
		Use:   "encrypt",
		Short: "Encrypt a file under a new key and print the key",
		RunE: func(cmd *cobra.Command, args []string) error {
			suite, err := cryptox.ParseSuite(suiteName)
			if err != nil {
				return err
			}

			src, err := os.Open(in)
			if err != nil {
				return err
			}
			defer src.Close()

			key, err := cryptox.GenerateKey()
			if err != nil {
				return err
			}
			defer key.Wipe()

			err = writeAtomically(out, func(f *os.File) error {
				return cryptox.Encrypt(f, src, key, cryptox.WithSuite(suite), cryptox.WithChunkSize(chunkSize))
			})
			if err != nil {
				return err
			}

			fmt.Fprintln(s.Out, key.Hex())
			return nil
		},
	}
	cmd.Flags().StringVar(&in, "in", "", "plaintext file (required)")
	cmd.Flags().StringVar(&out, "out", "", "encrypted output file (required)")
	cmd.Flags().StringVar(&suiteName, "suite", "aes-gcm", "cipher suite: aes-gcm or xchacha20poly1305")
	cmd.Flags().IntVar(&chunkSize, "chunk-size", cryptox.DefaultChunkSize, "plaintext bytes per chunk")
	_ = cmd.MarkFlagRequired("in")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}

func decryptCmd(s Streams) *cobra.Command {
	var in, out, keyHex string

	cmd := &cobra.Command{
		Use:   "decrypt",
		Short: "Decrypt a file produced by encrypt",
		RunE: func(cmd *cobra.Command, args []string) error {
			if keyHex == "" {
				var err error
				keyHex, err = readSecret(s.In, s.Err, "Encryption key: ")
				if err != nil {
					return err
				}
			}
			key, err := cryptox.ParseKey(keyHex)
			if err != nil {
				return err
			}
			defer key.Wipe()

			src, err := os.Open(in)
			if err != nil {
				return err
			}
			defer src.Close()

			err = writeAtomically(out, func(f *os.File) error {
				return cryptox.Decrypt(f, src, key)
			})
			if errors.Is(err, common.ErrorDecryption) {
				return errors.New("decryption failed: wrong key or damaged file")
			}
			return err
		},
	}
	cmd.Flags().StringVar(&in, "in", "", "encrypted file (required)")
	cmd.Flags().StringVar(&out, "out", "", "plaintext output file (required)")
	cmd.Flags().StringVar(&keyHex, "key", "", "hex encoded key; prompted for when absent")
	_ = cmd.MarkFlagRequired("in")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}

func keygenCmd(s Streams) *cobra.Command {
	return &cobra.Command{
		Use:   "keygen",
		Short: "Print a fresh key and object id",
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := cryptox.GenerateKey()
			if err != nil {
				return err
			}
			defer key.Wipe()

			id, err := cryptox.NewObjectID()
			if err != nil {
				return err
			}

			fmt.Fprintf(s.Out, "key: %s\nid:  %s\n", key.Hex(), id)
			return nil
		},
	}
}

// writeAtomically runs fill against a temporary file next to path and
// renames it into place only when fill succeeds.
func writeAtomically(path string, fill func(f *os.File) error) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".sfsctl-*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if err = fill(tmp); err != nil {
		return err
	}
	if err = tmp.Chmod(0o600); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
