package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

type Currency struct {
	Name             string
	FullName         string
	CoinType         string
	BaseAddress      string
	MinConfirmations int
	TxFee            decimal.Decimal
	Enabled          bool
	Notice           string
}

type DepositDetails struct {
	Symbol     string
	Address    string
	AddressTag string
}

// DepositFields says how many fields a deposit to a coin type needs.
type DepositFields int

const (
	DepositFieldsUnknown DepositFields = iota
	// The address alone.
	DepositFieldsOne
	// A shared base address plus a per-account tag.
	DepositFieldsTwo
)

// CoinTypeCatalog classifies coin types by the deposit fields they need.
// Keys are upper case; lookups are case insensitive.
type CoinTypeCatalog struct {
	fields map[string]DepositFields
}

func NewCoinTypeCatalog(twoField, oneField []string) *CoinTypeCatalog {
	c := &CoinTypeCatalog{fields: make(map[string]DepositFields, len(twoField)+len(oneField))}
	for _, t := range oneField {
		c.fields[canonicalKey(t)] = DepositFieldsOne
	}
	for _, t := range twoField {
		c.fields[canonicalKey(t)] = DepositFieldsTwo
	}
	return c
}

func DefaultCoinTypeCatalog() *CoinTypeCatalog {
	return NewCoinTypeCatalog(
		[]string{
			"BITSHAREX",
			"CRYPTO_NOTE_PAYMENTID",
			"LUMEN",
			"NEM",
			"NXT",
			"NXT_MS",
			"RIPPLE",
			"STEEM",
		},
		[]string{
			"ADA",
			"ANTSHARES",
			"BITCOIN",
			"BITCOIN_PERCENTAGE_FEE",
			"BITCOIN_STEALTH",
			"BITCOINEX",
			"BYTEBALL",
			"COUNTERPARTY",
			"ETH",
			"ETH_CONTRACT",
			"FACTOM",
			"LISK",
			"OMNI",
			"SIA",
			"WAVES",
			"WAVES_ASSET",
		},
	)
}

func (c *CoinTypeCatalog) Fields(coinType string) DepositFields {
	return c.fields[canonicalKey(coinType)]
}

// CurrencyCatalog indexes currencies by upper-cased name.
type CurrencyCatalog map[string]Currency

func NewCurrencyCatalog(currencies []Currency) CurrencyCatalog {
	catalog := make(CurrencyCatalog, len(currencies))
	for _, c := range currencies {
		catalog[canonicalKey(c.Name)] = c
	}
	return catalog
}

func (c CurrencyCatalog) Lookup(name string) (Currency, bool) {
	currency, ok := c[canonicalKey(name)]
	return currency, ok
}

func canonicalKey(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
