package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCoinTypeCatalog(t *testing.T) {
	catalog := DefaultCoinTypeCatalog()

	assert.Equal(t, DepositFieldsTwo, catalog.Fields("RIPPLE"))
	assert.Equal(t, DepositFieldsTwo, catalog.Fields("ripple"), "lookup ignores case")
	assert.Equal(t, DepositFieldsOne, catalog.Fields("BITCOIN"))
	assert.Equal(t, DepositFieldsOne, catalog.Fields(" eth_contract "))
	assert.Equal(t, DepositFieldsUnknown, catalog.Fields("DOGECOIN_CLASSIC"))
	assert.Equal(t, DepositFieldsUnknown, catalog.Fields(""))
}

func TestCurrencyCatalog(t *testing.T) {
	catalog := NewCurrencyCatalog([]Currency{
		{Name: "btc", CoinType: "BITCOIN"},
		{Name: "XRP", CoinType: "RIPPLE", BaseAddress: "rPVMhWBsfF9iMXYj3aAzJVkPDTFNSyWdKy"},
	})

	btc, ok := catalog.Lookup("BTC")
	assert.True(t, ok)
	assert.Equal(t, "BITCOIN", btc.CoinType)

	xrp, ok := catalog.Lookup("xrp")
	assert.True(t, ok)
	assert.Equal(t, "rPVMhWBsfF9iMXYj3aAzJVkPDTFNSyWdKy", xrp.BaseAddress)

	_, ok = catalog.Lookup("LTC")
	assert.False(t, ok)
}
