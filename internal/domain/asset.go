package domain

import (
	"fmt"
	"strings"
)

// Symbol identifies an asset of the allocation universe
type Symbol string

const (
	SymbolBTC Symbol = "BTC"
	SymbolETH Symbol = "ETH"
	SymbolSOL Symbol = "SOL"
	SymbolADA Symbol = "ADA"
	SymbolBNB Symbol = "BNB"
	SymbolDOT Symbol = "DOT"
	SymbolXRP Symbol = "XRP"
)

// DefaultUniverse is the closed set of assets the engine manages out of the box.
var DefaultUniverse = []Symbol{
	SymbolBTC,
	SymbolETH,
	SymbolSOL,
	SymbolADA,
	SymbolBNB,
	SymbolDOT,
	SymbolXRP,
}

// ParseSymbol normalizes a ticker ("btc", " ETH ") to a Symbol.
func ParseSymbol(s string) (Symbol, error) {
	sym := Symbol(strings.ToUpper(strings.TrimSpace(s)))
	if sym == "" {
		return "", fmt.Errorf("empty asset symbol")
	}
	return sym, nil
}

func (s Symbol) String() string { return string(s) }
