package reference

import (
	"testing"

	"github.com/erain9/itchbook/pkg/itch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	aapl = itch.SymbolFromString("AAPL")
	msft = itch.SymbolFromString("MSFT")
)

func TestInstrumentStore_Register(t *testing.T) {
	s := NewInstrumentStore()
	require.NoError(t, s.Register(13, aapl, Attributes{MarketCategory: 'Q', RoundLotSize: 100}))

	sym, err := s.LookupSymbol(13)
	require.NoError(t, err)
	assert.Equal(t, "AAPL", sym.String())

	locate, err := s.LookupLocate(aapl)
	require.NoError(t, err)
	assert.Equal(t, uint16(13), locate)

	inst, ok := s.Get(13)
	require.True(t, ok)
	assert.Equal(t, uint32(100), inst.RoundLotSize)
	assert.Equal(t, byte('Q'), inst.MarketCategory)
}

func TestInstrumentStore_FirstRegistrationWins(t *testing.T) {
	s := NewInstrumentStore()
	require.NoError(t, s.Register(13, aapl, Attributes{}))

	err := s.Register(13, msft, Attributes{})
	assert.ErrorIs(t, err, ErrDuplicateLocate)

	err = s.Register(14, aapl, Attributes{})
	assert.ErrorIs(t, err, ErrDuplicateSymbol)

	// Neither direction changed.
	sym, _ := s.LookupSymbol(13)
	assert.Equal(t, aapl, sym)
	_, err = s.LookupLocate(msft)
	assert.ErrorIs(t, err, ErrUnknownSymbol)
	_, err = s.LookupSymbol(14)
	assert.ErrorIs(t, err, ErrUnknownLocate)
	assert.Equal(t, 1, s.Len())
}

func TestInstrumentStore_Updates(t *testing.T) {
	s := NewInstrumentStore()
	require.NoError(t, s.Register(13, aapl, Attributes{}))

	require.NoError(t, s.UpdateTradingState(13, aapl, 'T', [4]byte{' ', ' ', ' ', ' '}))
	require.NoError(t, s.UpdateRegSHO(13, aapl, '1'))

	inst, _ := s.Get(13)
	assert.Equal(t, byte('T'), inst.TradingState)
	assert.Equal(t, byte('1'), inst.RegSHOAction)

	assert.ErrorIs(t, s.UpdateTradingState(13, msft, 'H', [4]byte{}), ErrSymbolMismatch)
	assert.ErrorIs(t, s.UpdateRegSHO(99, aapl, '0'), ErrUnknownLocate)

	inst, _ = s.Get(13)
	assert.Equal(t, byte('T'), inst.TradingState)
}

func TestInstrumentStore_All(t *testing.T) {
	s := NewInstrumentStore()
	require.NoError(t, s.Register(20, msft, Attributes{}))
	require.NoError(t, s.Register(13, aapl, Attributes{}))

	all := s.All()
	require.Len(t, all, 2)
	assert.Equal(t, uint16(13), all[0].Locate)
	assert.Equal(t, uint16(20), all[1].Locate)
}

func TestAttributesFrom(t *testing.T) {
	m := &itch.StockDirectoryMessage{
		Stock: aapl, MarketCategory: 'Q', RoundLotSize: 100, RoundLotsOnly: true,
		IssueSubType: [2]byte{'Z', ' '}, ETPLeverageFactor: 3, InverseIndicator: true,
	}
	a := AttributesFrom(m)
	assert.Equal(t, byte('Q'), a.MarketCategory)
	assert.True(t, a.RoundLotsOnly)
	assert.Equal(t, [2]byte{'Z', ' '}, a.IssueSubType)
	assert.Equal(t, uint32(3), a.ETPLeverageFactor)
	assert.True(t, a.InverseIndicator)
}

func TestParticipantRegistry(t *testing.T) {
	r := NewParticipantRegistry()
	gsco := itch.MPIDFromString("GSCO")
	abcd := itch.MPIDFromString("ABCD")

	assert.True(t, r.Upsert(Participant{MPID: gsco, Symbol: aapl, PrimaryMarketMaker: true, MarketMakerMode: 'N', MarketParticipantState: 'A'}))
	assert.False(t, r.Upsert(Participant{MPID: gsco, Symbol: aapl, MarketMakerMode: 'N', MarketParticipantState: 'S'}))
	assert.True(t, r.Upsert(Participant{MPID: abcd, Symbol: msft}))
	assert.True(t, r.Upsert(Participant{MPID: gsco, Symbol: msft}))

	p, ok := r.Get(gsco, aapl)
	require.True(t, ok)
	assert.False(t, p.PrimaryMarketMaker)
	assert.Equal(t, byte('S'), p.MarketParticipantState)

	all := r.All()
	require.Len(t, all, 3)
	assert.Equal(t, "ABCD", all[0].MPID.String())
	assert.Equal(t, "AAPL", all[1].Symbol.String())
	assert.Equal(t, "MSFT", all[2].Symbol.String())
	assert.Equal(t, 3, r.Len())
}
