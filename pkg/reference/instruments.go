package reference

import (
	"fmt"
	"sort"
	"sync"

	"github.com/erain9/itchbook/pkg/itch"
)

// Attributes are the static properties announced by a stock directory message.
type Attributes struct {
	MarketCategory           byte
	FinancialStatusIndicator byte
	RoundLotSize             uint32
	RoundLotsOnly            bool
	IssueClassification      byte
	IssueSubType             [2]byte
	Authenticity             byte
	ShortSaleThreshold       byte
	IPOFlag                  byte
	LULDReferencePriceTier   byte
	ETPFlag                  byte
	ETPLeverageFactor        uint32
	InverseIndicator         bool
}

// AttributesFrom copies the static attributes out of a directory message.
func AttributesFrom(m *itch.StockDirectoryMessage) Attributes {
	return Attributes{
		MarketCategory:           m.MarketCategory,
		FinancialStatusIndicator: m.FinancialStatusIndicator,
		RoundLotSize:             m.RoundLotSize,
		RoundLotsOnly:            m.RoundLotsOnly,
		IssueClassification:      m.IssueClassification,
		IssueSubType:             m.IssueSubType,
		Authenticity:             m.Authenticity,
		ShortSaleThreshold:       m.ShortSaleThreshold,
		IPOFlag:                  m.IPOFlag,
		LULDReferencePriceTier:   m.LULDReferencePriceTier,
		ETPFlag:                  m.ETPFlag,
		ETPLeverageFactor:        m.ETPLeverageFactor,
		InverseIndicator:         m.InverseIndicator,
	}
}

// Instrument is one registered instrument with its current trading status.
type Instrument struct {
	Locate uint16
	Symbol itch.Symbol
	Attributes
	// TradingState is zero until the first trading action.
	TradingState byte
	Reason       [4]byte
	RegSHOAction byte
}

// InstrumentStore maps stock locate codes to instruments and symbols back to
// locate codes. Both directions are updated together under one lock.
type InstrumentStore struct {
	mu       sync.RWMutex
	byLocate map[uint16]*Instrument
	bySymbol map[itch.Symbol]uint16
}

// NewInstrumentStore creates an empty store
func NewInstrumentStore() *InstrumentStore {
	return &InstrumentStore{
		byLocate: make(map[uint16]*Instrument),
		bySymbol: make(map[itch.Symbol]uint16),
	}
}

// Register adds an instrument. The first registration of a locate or symbol
// wins; later ones are rejected and leave the store unchanged.
func (s *InstrumentStore) Register(locate uint16, symbol itch.Symbol, attrs Attributes) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.byLocate[locate]; ok {
		return fmt.Errorf("%w: %d already holds %q, ignoring %q", ErrDuplicateLocate, locate, existing.Symbol.String(), symbol.String())
	}
	if other, ok := s.bySymbol[symbol]; ok {
		return fmt.Errorf("%w: %q is at %d, ignoring %d", ErrDuplicateSymbol, symbol.String(), other, locate)
	}
	s.byLocate[locate] = &Instrument{Locate: locate, Symbol: symbol, Attributes: attrs}
	s.bySymbol[symbol] = locate
	return nil
}

// LookupSymbol returns the symbol registered at locate
func (s *InstrumentStore) LookupSymbol(locate uint16) (itch.Symbol, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	inst, ok := s.byLocate[locate]
	if !ok {
		return itch.Symbol{}, fmt.Errorf("%w: %d", ErrUnknownLocate, locate)
	}
	return inst.Symbol, nil
}

// LookupLocate returns the locate registered for symbol
func (s *InstrumentStore) LookupLocate(symbol itch.Symbol) (uint16, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	locate, ok := s.bySymbol[symbol]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownSymbol, symbol.String())
	}
	return locate, nil
}

// UpdateTradingState records a trading action. symbol must match the
// instrument registered at locate.
func (s *InstrumentStore) UpdateTradingState(locate uint16, symbol itch.Symbol, state byte, reason [4]byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	inst, err := s.checked(locate, symbol)
	if err != nil {
		return err
	}
	inst.TradingState = state
	inst.Reason = reason
	return nil
}

// UpdateRegSHO records a Reg SHO short sale price test action. symbol must
// match the instrument registered at locate.
func (s *InstrumentStore) UpdateRegSHO(locate uint16, symbol itch.Symbol, action byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	inst, err := s.checked(locate, symbol)
	if err != nil {
		return err
	}
	inst.RegSHOAction = action
	return nil
}

func (s *InstrumentStore) checked(locate uint16, symbol itch.Symbol) (*Instrument, error) {
	inst, ok := s.byLocate[locate]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownLocate, locate)
	}
	if inst.Symbol != symbol {
		return nil, fmt.Errorf("%w: %d is %q, message has %q", ErrSymbolMismatch, locate, inst.Symbol.String(), symbol.String())
	}
	return inst, nil
}

// Get returns a copy of the instrument at locate
func (s *InstrumentStore) Get(locate uint16) (Instrument, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	inst, ok := s.byLocate[locate]
	if !ok {
		return Instrument{}, false
	}
	return *inst, true
}

// All returns copies of every instrument ordered by locate
func (s *InstrumentStore) All() []Instrument {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Instrument, 0, len(s.byLocate))
	for _, inst := range s.byLocate {
		out = append(out, *inst)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Locate < out[j].Locate })
	return out
}

// Len returns the number of registered instruments
func (s *InstrumentStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byLocate)
}
