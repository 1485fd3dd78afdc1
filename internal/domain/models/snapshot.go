package models

// PositionSnapshot describes one leveraged position. All amounts are >= 0.
type PositionSnapshot struct {
	TotalCollateral     float64 `json:"total_collateral"`
	TotalBorrowed       float64 `json:"total_borrowed"`
	CurrentHealthFactor float64 `json:"current_health_factor"`
	AssetValue          float64 `json:"asset_value"`
}

type InvestorSnapshot struct {
	InvestmentAmount     float64 `json:"investment_amount"`
	Tier                 int     `json:"tier"`
	Jurisdiction         string  `json:"jurisdiction"`
	TransactionFrequency float64 `json:"transaction_frequency"`
	WalletAgeDays        float64 `json:"wallet_age_days"`
	PreviousDefiExposure float64 `json:"previous_defi_exposure"`
}

// PoolSnapshot describes an invoice pool. TotalSupply must be > 0 to forecast NAV.
type PoolSnapshot struct {
	TotalFaceValue     float64 `json:"total_face_value"`
	NumberOfInvoices   int     `json:"number_of_invoices"`
	WeightedMaturity   float64 `json:"weighted_maturity"`
	ExpectedYield      float64 `json:"expected_yield"`
	CurrentDefaultRate float64 `json:"current_default_rate"`
	RealizedYield      float64 `json:"realized_yield"`
	TotalSupply        float64 `json:"total_supply"`
}
