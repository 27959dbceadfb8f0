package events

import (
	"testing"

	"github.com/stretchr/testify/require"

	"prizepool/core/types"
)

func staticEvent(kind, id string) Static {
	return Static{Payload: &types.Event{Type: kind, Attributes: map[string]string{"id": id}}}
}

func TestLogSinceFiltersAndLimits(t *testing.T) {
	log := NewLog(10)
	log.Emit(staticEvent("prize.winners_set", "a"))
	log.Emit(staticEvent("prize.claimed", "b"))
	log.Emit(staticEvent("prize.claimed", "c"))

	all := log.Since(0, "", 0)
	require.Len(t, all, 3)
	require.Equal(t, uint64(1), all[0].Sequence)

	claimed := log.Since(0, "prize.claimed", 0)
	require.Len(t, claimed, 2)
	require.Equal(t, "b", claimed[0].Attributes["id"])

	limited := log.Since(1, "", 1)
	require.Len(t, limited, 1)
	require.Equal(t, uint64(2), limited[0].Sequence)
}

func TestLogDropsOldestBeyondCapacity(t *testing.T) {
	log := NewLog(2)
	log.Emit(staticEvent("x", "1"))
	log.Emit(staticEvent("x", "2"))
	log.Emit(staticEvent("x", "3"))

	records := log.Since(0, "", 0)
	require.Len(t, records, 2)
	require.Equal(t, "2", records[0].Attributes["id"])
	require.Equal(t, uint64(3), records[1].Sequence)
}

func TestFanoutForwards(t *testing.T) {
	a, b := NewLog(4), NewLog(4)
	Fanout{a, nil, b}.Emit(staticEvent("x", "1"))
	require.Len(t, a.Since(0, "", 0), 1)
	require.Len(t, b.Since(0, "", 0), 1)
}
