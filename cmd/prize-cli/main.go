package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"prizepool/cmd/internal/passphrase"
	"prizepool/core/types"
	"prizepool/crypto"
	"prizepool/native/prizepool"
	"prizepool/rpc"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "prize-cli",
		Usage: "register game winners, fund escrows, and claim prizes",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "rpc",
				Usage:   "node JSON-RPC endpoint",
				Value:   "http://127.0.0.1:8645",
				EnvVars: []string{"PRIZEPOOL_RPC_URL"},
			},
			&cli.StringFlag{
				Name:    "token",
				Usage:   "bearer token for prize_sendTransaction",
				EnvVars: []string{"PRIZEPOOL_RPC_TOKEN"},
			},
		},
		Commands: []*cli.Command{
			keysCommand(),
			gameCommand(),
			balanceCommand(),
			eventsCommand(),
		},
	}
}

func clientFrom(c *cli.Context) *rpc.Client {
	return rpc.NewClient(c.String("rpc"), c.String("token"))
}

func keystoreFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     "keystore",
		Usage:    "path to the signing keystore",
		Required: true,
	}
}

func gameFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     "game",
		Usage:    "game id as 32-byte hex, or a label hashed into one",
		Required: true,
	}
}

func loadKey(path, label string) (*crypto.PrivateKey, error) {
	pass, err := passphrase.NewSource(passphrase.DefaultEnv, label, passphrase.AllowEmpty()).Get()
	if err != nil {
		return nil, err
	}
	return crypto.LoadFromKeystore(path, pass)
}

// resolveGameID accepts either a hex id or a free-form label.
func resolveGameID(raw string) (prizepool.GameID, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return prizepool.GameID{}, fmt.Errorf("game id required")
	}
	if id, err := prizepool.ParseGameID(trimmed); err == nil {
		return id, nil
	}
	return prizepool.GameIDFromLabel(trimmed), nil
}

// send signs ixs with keys and submits them. The first key pays for any
// allocation.
func send(c *cli.Context, keys []*crypto.PrivateKey, ixs ...types.Instruction) (*types.Receipt, error) {
	signers := make([]crypto.Address, 0, len(keys))
	for _, key := range keys {
		signers = append(signers, key.PubKey().Address())
	}
	tx := types.NewTransaction(uint64(time.Now().UnixNano()), signers, ixs...)
	for _, key := range keys {
		if err := tx.Sign(key); err != nil {
			return nil, err
		}
	}
	return clientFrom(c).SendTransaction(c.Context, tx)
}

func printJSON(c *cli.Context, v interface{}) error {
	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
