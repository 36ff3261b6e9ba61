package ecosystem

import "netgdp/internal/models"

var methodology = []models.MethodologyEntry{
	{
		Metric:      models.MonetaryBase,
		Symbol:      "M",
		Title:       "Monetary Base",
		Description: "Market capitalisation of the native asset, the network's monetary layer.",
		Calculation: "Native price x circulating supply",
		Sources:     []string{"CoinGecko"},
	},
	{
		Metric:      models.TVL,
		Symbol:      "K",
		Title:       "DeFi Capital Stock",
		Description: "Total value locked across the chain's DeFi protocols, the capital actively deployed.",
		Calculation: "Sum of assets locked in the chain's DeFi protocols",
		Sources:     []string{"DefiLlama"},
	},
	{
		Metric:      models.Fees,
		Symbol:      "F",
		Title:       "Fee Revenue",
		Description: "Annualised fees paid for blockspace and protocol services.",
		Calculation: "Daily fees x 365",
		Sources:     []string{"CryptoStats", "DefiLlama Fees"},
	},
	{
		Metric:      models.Stablecoins,
		Symbol:      "S",
		Title:       "Stablecoins",
		Description: "External capital integrated into the ecosystem as stablecoin float.",
		Calculation: "Total circulating stablecoin supply on the chain",
		Sources:     []string{"DefiLlama Stablecoins"},
	},
	{
		Metric:      models.Protocols,
		Symbol:      "P",
		Title:       "Protocol Market Caps",
		Description: "Aggregate value of a fixed basket of native protocol tokens.",
		Calculation: "Sum of protocol token market caps",
		Sources:     []string{"CoinGecko"},
	},
	{
		Metric:      models.Cultural,
		Symbol:      "C",
		Title:       "Cultural Capital",
		Description: "Value of NFTs and cultural assets on the chain.",
		Calculation: "NFT market cap + daily NFT volume x 365",
		Sources:     []string{"DefiLlama NFTs"},
	},
}
