package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"
)

func KeygenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keygen <outfile>",
		Short: "Generates a keypair file in the solana keygen format",
		Args:  cobra.ExactArgs(1),
		RunE:  keygen,
	}
	cmd.Flags().Bool("force", false, "overwrite an existing keypair file")

	return cmd
}

func keygen(cmd *cobra.Command, args []string) error {
	outfile := args[0]
	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return err
	}

	if _, err := os.Stat(outfile); err == nil && !force {
		return fmt.Errorf("%s already exists, use --force to overwrite", outfile)
	}

	key, err := solana.NewRandomPrivateKey()
	if err != nil {
		return fmt.Errorf("failed to generate key: %w", err)
	}
	if err := writeKeygenFile(outfile, key); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "pubkey: %s\n", key.PublicKey())
	return nil
}

// writeKeygenFile stores key as a json array of bytes, the format read by
// solana.PrivateKeyFromSolanaKeygenFile
func writeKeygenFile(path string, key solana.PrivateKey) error {
	ints := make([]int, len(key))
	for i, b := range key {
		ints[i] = int(b)
	}
	content, err := json.Marshal(ints)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create keypair directory: %w", err)
	}
	if err := os.WriteFile(path, content, 0o600); err != nil {
		return fmt.Errorf("failed to write keypair file: %w", err)
	}
	return nil
}
