package main

import (
	"github.com/urfave/cli/v2"

	"prizepool/rpc"
)

func eventsCommand() *cli.Command {
	return &cli.Command{
		Name:  "events",
		Usage: "list committed events",
		Flags: []cli.Flag{
			&cli.Uint64Flag{Name: "after", Usage: "only events after this sequence"},
			&cli.StringFlag{Name: "type", Usage: "filter by event type, e.g. prize.claimed"},
			&cli.IntFlag{Name: "limit", Value: 100},
		},
		Action: func(c *cli.Context) error {
			result, err := clientFrom(c).Events(c.Context, rpc.EventsParams{
				After: c.Uint64("after"),
				Type:  c.String("type"),
				Limit: c.Int("limit"),
			})
			if err != nil {
				return err
			}
			return printJSON(c, result)
		},
	}
}
