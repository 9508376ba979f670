package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/durvaajgaonkar/secure-file-storage-system/internal/server/exchange"
)

func (o *remoteOptions) client(requireToken bool) (*APIClient, error) {
	if o.apiURL == "" {
		return nil, errors.New("--api-url is required (or set SFS_API_URL)")
	}
	if requireToken && o.token == "" {
		return nil, errors.New("--token is required (or set SFS_TOKEN); run login first")
	}
	return NewAPIClient(o.apiURL, o.token, o.timeout), nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func registerCmd(s Streams, o *remoteOptions) *cobra.Command {
	return credentialsCmd(s, o, "register", "Create an account and print its session token",
		func(c *APIClient, ctx context.Context, email, password string) (string, error) {
			return c.Register(ctx, email, password)
		})
}

func loginCmd(s Streams, o *remoteOptions) *cobra.Command {
	return credentialsCmd(s, o, "login", "Log in and print a session token",
		func(c *APIClient, ctx context.Context, email, password string) (string, error) {
			return c.Login(ctx, email, password)
		})
}

func credentialsCmd(s Streams, o *remoteOptions, use, short string,
	call func(c *APIClient, ctx context.Context, email, password string) (string, error)) *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := o.client(false)
			if err != nil {
				return err
			}
			password, err := readSecret(s.In, s.Err, "Password: ")
			if err != nil {
				return err
			}

			token, err := call(c, commandContext(cmd), email, password)
			if err != nil {
				return err
			}
			fmt.Fprintln(s.Out, token)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email (required)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func uploadCmd(s Streams, o *remoteOptions) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "upload",
		Short: "Encrypt and store a file on the server; the receipt arrives by email",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := o.client(true)
			if err != nil {
				return err
			}
			msg, err := c.Upload(commandContext(cmd), file)
			if err != nil {
				return err
			}
			fmt.Fprintln(s.Out, msg)
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "file to upload (required)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func fetchCmd(s Streams, o *remoteOptions) *cobra.Command {
	var id, keyHex, out string

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Download and decrypt a stored file",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := o.client(true)
			if err != nil {
				return err
			}
			if keyHex == "" {
				keyHex, err = readSecret(s.In, s.Err, "Encryption key: ")
				if err != nil {
					return err
				}
			}

			// Without --out the file lands in the working directory under
			// its original name, which is only known once the reply arrives.
			dir := "."
			if out != "" {
				dir = filepath.Dir(out)
			}
			tmp, err := os.CreateTemp(dir, ".sfsctl-*")
			if err != nil {
				return err
			}
			defer func() {
				_ = tmp.Close()
				_ = os.Remove(tmp.Name())
			}()

			name, err := c.Fetch(commandContext(cmd), keyHex, id, tmp)
			if err != nil {
				return err
			}
			if err := tmp.Close(); err != nil {
				return err
			}

			target := out
			if target == "" {
				target = exchange.BaseName(name)
			}
			if err := os.Rename(tmp.Name(), target); err != nil {
				return err
			}
			fmt.Fprintf(s.Out, "Saved %s\n", target)
			return nil
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "file id from the receipt (required)")
	cmd.Flags().StringVar(&keyHex, "key", "", "hex encoded key; prompted for when absent")
	cmd.Flags().StringVar(&out, "out", "", "output path (default: original name in the working directory)")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}
