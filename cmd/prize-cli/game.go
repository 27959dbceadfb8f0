package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"prizepool/core/types"
	"prizepool/crypto"
	"prizepool/native/prizepool"
	"prizepool/native/token"
)

func gameCommand() *cli.Command {
	return &cli.Command{
		Name:  "game",
		Usage: "prize pool operations",
		Subcommands: []*cli.Command{
			{
				Name:  "set-winners",
				Usage: "register the winners of a game from a YAML file",
				Flags: []cli.Flag{
					keystoreFlag(),
					gameFlag(),
					&cli.StringFlag{Name: "file", Usage: "winners YAML file", Required: true},
				},
				Action: setWinnersAction,
			},
			{
				Name:  "fund",
				Usage: "open the game escrow if needed and mint tokens into it",
				Flags: []cli.Flag{
					keystoreFlag(),
					gameFlag(),
					&cli.StringFlag{Name: "mint-keystore", Usage: "mint authority keystore", Required: true},
					&cli.Uint64Flag{Name: "amount", Usage: "tokens to mint into the escrow", Required: true},
				},
				Action: fundAction,
			},
			{
				Name:   "claim",
				Usage:  "claim the signer's prize into their wallet",
				Flags:  []cli.Flag{keystoreFlag(), gameFlag()},
				Action: claimAction,
			},
			{
				Name:  "show",
				Usage: "print the game record and escrow balance",
				Flags: []cli.Flag{gameFlag()},
				Action: func(c *cli.Context) error {
					id, err := resolveGameID(c.String("game"))
					if err != nil {
						return err
					}
					game, err := clientFrom(c).Game(c.Context, id)
					if err != nil {
						return err
					}
					return printJSON(c, game)
				},
			},
			{
				Name:  "authority",
				Usage: "print the derived escrow authority of a game",
				Flags: []cli.Flag{gameFlag()},
				Action: func(c *cli.Context) error {
					id, err := resolveGameID(c.String("game"))
					if err != nil {
						return err
					}
					result, err := clientFrom(c).PoolAuthority(c.Context, id)
					if err != nil {
						return err
					}
					return printJSON(c, result)
				},
			},
		},
	}
}

func setWinnersAction(c *cli.Context) error {
	id, err := resolveGameID(c.String("game"))
	if err != nil {
		return err
	}
	winners, amounts, err := loadWinners(c.String("file"))
	if err != nil {
		return err
	}
	admin, err := loadKey(c.String("keystore"), "admin keystore")
	if err != nil {
		return err
	}
	ix, err := prizepool.SetWinners(admin.PubKey().Address(), id, winners, amounts)
	if err != nil {
		return err
	}
	receipt, err := send(c, []*crypto.PrivateKey{admin}, ix)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "Registered %d winners for %s at height %d\n", len(winners), id, receipt.Height)
	return nil
}

func fundAction(c *cli.Context) error {
	id, err := resolveGameID(c.String("game"))
	if err != nil {
		return err
	}
	payer, err := loadKey(c.String("keystore"), "payer keystore")
	if err != nil {
		return err
	}
	mint, err := loadKey(c.String("mint-keystore"), "mint keystore")
	if err != nil {
		return err
	}
	client := clientFrom(c)
	authority, err := client.PoolAuthority(c.Context, id)
	if err != nil {
		return err
	}
	escrow, err := client.Balance(c.Context, authority.Authority)
	if err != nil {
		return err
	}

	var ixs []types.Instruction
	if !escrow.Exists {
		open, err := prizepool.FundInstructions(id, payer.PubKey().Address())
		if err != nil {
			return err
		}
		ixs = append(ixs, open...)
	}
	ixs = append(ixs, token.MintTo(authority.PoolAccount, mint.PubKey().Address(), c.Uint64("amount")))

	keys := []*crypto.PrivateKey{payer}
	if mint.PubKey().Address() != payer.PubKey().Address() {
		keys = append(keys, mint)
	}
	receipt, err := send(c, keys, ixs...)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "Escrow %s funded with %d at height %d\n", authority.PoolAccount, c.Uint64("amount"), receipt.Height)
	return nil
}

func claimAction(c *cli.Context) error {
	id, err := resolveGameID(c.String("game"))
	if err != nil {
		return err
	}
	claimer, err := loadKey(c.String("keystore"), "claimer keystore")
	if err != nil {
		return err
	}
	owner := claimer.PubKey().Address()
	wallet, err := clientFrom(c).Balance(c.Context, owner)
	if err != nil {
		return err
	}

	var ixs []types.Instruction
	if !wallet.Exists {
		ixs = append(ixs, token.CreateAccount(owner, owner))
	}
	claim, err := prizepool.Claim(id, owner)
	if err != nil {
		return err
	}
	ixs = append(ixs, claim)
	receipt, err := send(c, []*crypto.PrivateKey{claimer}, ixs...)
	if err != nil {
		return err
	}
	for _, evt := range receipt.Events {
		if evt.Type == prizepool.EventTypeClaimed {
			fmt.Fprintf(c.App.Writer, "Claimed %s into %s at height %d\n", evt.Attributes["amount"], wallet.Wallet, receipt.Height)
		}
	}
	return nil
}

func balanceCommand() *cli.Command {
	return &cli.Command{
		Name:  "balance",
		Usage: "print the token balance of an owner",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "owner", Usage: "owner address", Required: true},
		},
		Action: func(c *cli.Context) error {
			owner, err := crypto.DecodeAddress(c.String("owner"))
			if err != nil {
				return err
			}
			result, err := clientFrom(c).Balance(c.Context, owner)
			if err != nil {
				return err
			}
			return printJSON(c, result)
		},
	}
}
