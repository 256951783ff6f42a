package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"semanticheck/internal/infra/config"
)

const configKeyEnv = "SEMANTICHECK_CONFIG_KEY"

func encryptCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "encrypt VALUE",
		Short: "Encrypt a secret for use in the config file",
		Long: "Encrypt a secret with the passphrase in " + configKeyEnv +
			". Paste the printed enc: value into the config; it is decrypted at load time.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			passphrase := os.Getenv(configKeyEnv)
			if passphrase == "" {
				return errors.New(configKeyEnv + " must be set")
			}
			enc, err := config.EncryptValue(args[0], passphrase)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), config.EncryptedPrefix+enc)
			return err
		},
	}
}
