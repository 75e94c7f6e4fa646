package cli

import (
	"bufio"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/gorilla/securecookie"
	"github.com/juju/errors"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/example/fsmgate/internal/application/usecases"
)

func newKeysCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keys",
		Short: "Generate OFFER_HASH_KEY, OFFER_BLOCK_KEY and AUDIT_ENC_KEY values (base64)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			for _, k := range []struct {
				name string
				size int
			}{{"OFFER_HASH_KEY", 64}, {"OFFER_BLOCK_KEY", 32}, {"AUDIT_ENC_KEY", 32}} {
				b := securecookie.GenerateRandomKey(k.size)
				if b == nil {
					return errors.Errorf("generate %s", k.name)
				}
				fmt.Fprintf(out, "export %s=%s\n", k.name, base64.StdEncoding.EncodeToString(b))
			}
			return nil
		},
	}
}

func newHashKeyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-key",
		Short: "Hash an agent key for AGENT_KEY_HASH",
		Long:  "Reads the agent key from the terminal without echo, or from stdin when it is piped.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := readSecret(cmd, "agent key: ")
			if err != nil {
				return err
			}
			h, err := usecases.HashKey(key)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "export AGENT_KEY_HASH='%s'\n", h)
			return nil
		},
	}
}

func readSecret(cmd *cobra.Command, prompt string) (string, error) {
	if f, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(cmd.ErrOrStderr(), prompt)
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return "", errors.Annotate(err, "read key")
		}
		return strings.TrimSpace(string(b)), nil
	}
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", errors.Annotate(err, "read key")
	}
	return strings.TrimSpace(line), nil
}
