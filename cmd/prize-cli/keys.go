package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"prizepool/cmd/internal/passphrase"
	"prizepool/crypto"
)

func keysCommand() *cli.Command {
	return &cli.Command{
		Name:  "keys",
		Usage: "manage signing keys",
		Subcommands: []*cli.Command{
			{
				Name:  "generate",
				Usage: "create a new encrypted keystore",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "out", Usage: "keystore file to write", Required: true},
				},
				Action: func(c *cli.Context) error {
					out := c.String("out")
					if _, err := os.Stat(out); err == nil {
						return fmt.Errorf("%s already exists", out)
					}
					pass, err := passphrase.NewSource(passphrase.DefaultEnv, "new keystore").Get()
					if err != nil {
						return err
					}
					key, err := crypto.GeneratePrivateKey()
					if err != nil {
						return err
					}
					if err := crypto.SaveToKeystore(out, key, pass); err != nil {
						return err
					}
					fmt.Fprintf(c.App.Writer, "Address: %s\nKeystore: %s\n", key.PubKey().Address(), out)
					return nil
				},
			},
			{
				Name:  "show",
				Usage: "print the address of a keystore",
				Flags: []cli.Flag{keystoreFlag()},
				Action: func(c *cli.Context) error {
					key, err := loadKey(c.String("keystore"), "keystore")
					if err != nil {
						return err
					}
					addr := key.PubKey().Address()
					fmt.Fprintf(c.App.Writer, "Address: %s\nHex: 0x%s\n", addr, addr.Hex())
					return nil
				},
			},
		},
	}
}
