// Package categories maps DefiLlama protocol categories onto the CCAF
// taxonomy (category, subcategory).
package categories

import "strings"

const (
	Miscellaneous = "Miscellaneous"
	OthersMisc    = "Others (Misc.)"
)

type mapping struct {
	category    string
	subcategory string
}

// table is keyed by the DefiLlama category name. An empty subcategory means
// the category has none and reuses the category name.
var table = map[string]mapping{
	"Liquid Staking":           {"Staking Entities", "Restaking Asset issuer"},
	"Lending":                  {"Lending and Borrowing Provider", ""},
	"Bridge":                   {"Service Providers", "Bridge"},
	"Dexes":                    {"Exchanges", "Decentralised Exchange (DEX)"},
	"Restaking":                {"Staking Entities", "Restaking Asset issuer"},
	"Liquid Restaking":         {"Staking Entities", "Restaking Asset issuer"},
	"CDP":                      {"Lending and Borrowing Provider", "Collateralised Debt Position (CDP) Issuer"},
	"Yield":                    {"Asset Managers", "Yield Farm"},
	"RWA":                      {"Asset Managers", "Real World Asset (RWA) Tokeniser"},
	"Farm":                     {"Asset Managers", "Yield Farm"},
	"Basis Trading":            {Miscellaneous, "Futures Issuer"},
	"Derivatives":              {Miscellaneous, "Synthetic Asset Issuer"},
	"Yield Aggregator":         {"Asset Managers", "Yield Farm"},
	"Services":                 {"Service Providers", ""},
	"Launchpad":                {"Service Providers", "Launchpad"},
	"Cross Chain":              {"Service Providers", "Bridge"},
	"Leveraged Farming":        {"Asset Managers", "Yield Farm"},
	"Indexes":                  {"Asset Managers", "Indexer"},
	"Privacy":                  {"Service Providers", "Privacy / Security Provider"},
	"Staking Pool":             {"Staking Entities", "Staking Pool"},
	"Synthetics":               {Miscellaneous, "Synthetic Asset Issuer"},
	"Payments":                 {"Service Providers", "Decentralised Payment Provider"},
	"Liquidity manager":        {"Asset Managers", "Automated Portfolio Manager"},
	"Insurance":                {Miscellaneous, "Insurance Provider"},
	"Options":                  {Miscellaneous, "Option Issuer"},
	"NFT Marketplace":          {"Exchanges", "Decentralised Exchange (DEX)"},
	"NFT Lending":              {"Lending and Borrowing Provider", "Traditional Collateralised Lenders"},
	"Decentralized Stablecoin": {"Decentralised Stablecoin Issuers", "Decentralised Fiat-Backed Stablecoin Issuer"},
	"Algo-Stables":             {"Decentralised Stablecoin Issuers", "Decentralised Algorithmic Stablecoin Issuer"},
	"Prediction Market":        {Miscellaneous, "Futures Issuer"},
	"Options Vault":            {Miscellaneous, "Option Issuer"},
	"Uncollateralized Lending": {Miscellaneous, OthersMisc},
	"RWA Lending":              {"Lending and Borrowing Provider", "Traditional Collateralised Lenders"},
	"Reserve Currency":         {Miscellaneous, OthersMisc},
	"SoFi":                     {Miscellaneous, OthersMisc},
	"DEX Aggregator":           {"Exchanges", "DEX Aggregator"},
	"Gaming":                   {Miscellaneous, OthersMisc},
	"NftFi":                    {Miscellaneous, "Synthetic Asset Issuer"},
	"Ponzi":                    {Miscellaneous, OthersMisc},
	"Oracle":                   {"Service Providers", "Oracle"},
	"Wallets":                  {Miscellaneous, OthersMisc},
	"Telegram Bot":             {Miscellaneous, OthersMisc},
	"MEV":                      {Miscellaneous, OthersMisc},
	"CEX":                      {"Exchanges", "Centralised Exchange (CEX)"},
	"Chain":                    {"Service Providers", "Bridge"},
}

// Map returns the CCAF category and subcategory for a DefiLlama category.
// Unknown categories land in Miscellaneous / Others (Misc.).
func Map(defillama string) (category, subcategory string) {
	m, ok := table[defillama]
	if !ok {
		return Miscellaneous, OthersMisc
	}
	if m.subcategory == "" {
		return m.category, m.category
	}
	return m.category, m.subcategory
}

// IsCEX reports whether a DefiLlama category denotes a centralised exchange.
func IsCEX(defillama string) bool {
	return strings.EqualFold(defillama, "cex")
}
