package redis

import (
	"sort"

	"github.com/erain9/itchbook/pkg/core"
)

func sortOrders(orders []core.Order) {
	sort.Slice(orders, func(i, j int) bool { return orders[i].Ref < orders[j].Ref })
}

func sortTrades(trades []core.Trade) {
	sort.Slice(trades, func(i, j int) bool { return trades[i].MatchNumber < trades[j].MatchNumber })
}
