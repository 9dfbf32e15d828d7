package config

import "strings"

// Exchange is one of the stock markets the backend serves.
type Exchange string

const (
	ExchangeUS   Exchange = "US"
	ExchangeNSE  Exchange = "NSE"
	ExchangeLSE  Exchange = "LSE"
	ExchangeTSE  Exchange = "TSE"
	ExchangeHKEX Exchange = "HKEX"
)

// Currency is the display symbol and ISO code used for an exchange.
type Currency struct {
	Symbol string
	Code   string
}

// Exchanges lists the supported exchanges in selector order.
var Exchanges = []Exchange{ExchangeUS, ExchangeNSE, ExchangeLSE, ExchangeTSE, ExchangeHKEX}

var currencies = map[Exchange]Currency{
	ExchangeUS:   {Symbol: "$", Code: "USD"},
	ExchangeNSE:  {Symbol: "₹", Code: "INR"},
	ExchangeLSE:  {Symbol: "£", Code: "GBP"},
	ExchangeTSE:  {Symbol: "¥", Code: "JPY"},
	ExchangeHKEX: {Symbol: "HK$", Code: "HKD"},
}

// ParseExchange maps a code to a known exchange, falling back to US.
func ParseExchange(code string) Exchange {
	ex := Exchange(strings.ToUpper(strings.TrimSpace(code)))
	if _, ok := currencies[ex]; ok {
		return ex
	}
	return ExchangeUS
}

// Currency returns the currency for the exchange, USD for anything unknown.
func (e Exchange) Currency() Currency {
	if c, ok := currencies[e]; ok {
		return c
	}
	return currencies[ExchangeUS]
}

// Next returns the exchange after e in selector order, wrapping around.
func (e Exchange) Next() Exchange {
	for i, ex := range Exchanges {
		if ex == e {
			return Exchanges[(i+1)%len(Exchanges)]
		}
	}
	return ExchangeUS
}

func (e Exchange) String() string {
	return string(e)
}
