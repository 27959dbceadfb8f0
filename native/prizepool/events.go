package prizepool

import (
	"strconv"

	"github.com/holiman/uint256"

	"prizepool/core/events"
	"prizepool/core/types"
	"prizepool/crypto"
)

const (
	EventTypeWinnersSet = "prize.winners_set"
	EventTypeClaimed    = "prize.claimed"
)

func winnersSetEvent(game *Game, record crypto.Address, total *uint256.Int) events.Event {
	return events.Static{Payload: &types.Event{
		Type: EventTypeWinnersSet,
		Attributes: map[string]string{
			"gameId":  game.GameID.String(),
			"record":  record.String(),
			"winners": strconv.Itoa(len(game.Winners)),
			"total":   total.Dec(),
		},
	}}
}

func claimedEvent(id GameID, claimer, destination crypto.Address, index int, amount uint64) events.Event {
	return events.Static{Payload: &types.Event{
		Type: EventTypeClaimed,
		Attributes: map[string]string{
			"gameId":      id.String(),
			"claimer":     claimer.String(),
			"destination": destination.String(),
			"index":       strconv.Itoa(index),
			"amount":      strconv.FormatUint(amount, 10),
		},
	}}
}
