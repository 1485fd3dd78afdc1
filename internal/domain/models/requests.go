package models

// Request bodies for the evaluator endpoints and snapshot envelopes.
// Pointer fields tell a missing value apart from an explicit zero.

type LeverageRequest struct {
	TotalCollateral     *float64 `json:"total_collateral" validate:"required,gte=0"`
	TotalBorrowed       *float64 `json:"total_borrowed" validate:"required,gte=0"`
	CurrentHealthFactor *float64 `json:"current_health_factor" validate:"required,gte=0"`
	AssetValue          *float64 `json:"asset_value" validate:"required,gte=0"`
}

func (r LeverageRequest) Snapshot() PositionSnapshot {
	return PositionSnapshot{
		TotalCollateral:     deref(r.TotalCollateral),
		TotalBorrowed:       deref(r.TotalBorrowed),
		CurrentHealthFactor: deref(r.CurrentHealthFactor),
		AssetValue:          deref(r.AssetValue),
	}
}

type KYCRequest struct {
	InvestmentAmount     *float64 `json:"investment_amount" validate:"required,gte=0"`
	Tier                 *int     `json:"tier" validate:"required,gte=0"`
	Jurisdiction         *string  `json:"jurisdiction" validate:"required"`
	TransactionFrequency *float64 `json:"transaction_frequency" validate:"required,gte=0"`
	WalletAgeDays        *float64 `json:"wallet_age_days" validate:"required,gte=0"`
	PreviousDefiExposure *float64 `json:"previous_defi_exposure" validate:"required,gte=0"`
}

func (r KYCRequest) Snapshot() InvestorSnapshot {
	s := InvestorSnapshot{
		InvestmentAmount:     deref(r.InvestmentAmount),
		TransactionFrequency: deref(r.TransactionFrequency),
		WalletAgeDays:        deref(r.WalletAgeDays),
		PreviousDefiExposure: deref(r.PreviousDefiExposure),
	}
	if r.Tier != nil {
		s.Tier = *r.Tier
	}
	if r.Jurisdiction != nil {
		s.Jurisdiction = *r.Jurisdiction
	}
	return s
}

type NAVRequest struct {
	TotalFaceValue     *float64 `json:"total_face_value" validate:"required,gte=0"`
	NumberOfInvoices   *int     `json:"number_of_invoices" validate:"required,gte=0"`
	WeightedMaturity   *float64 `json:"weighted_maturity" validate:"required,gte=0"`
	ExpectedYield      *float64 `json:"expected_yield" validate:"required"`
	CurrentDefaultRate *float64 `json:"current_default_rate" validate:"required,gte=0,lte=1"`
	RealizedYield      *float64 `json:"realized_yield" validate:"required"`
	TotalSupply        *float64 `json:"total_supply" validate:"required,gte=0"`
}

func (r NAVRequest) Snapshot() PoolSnapshot {
	s := PoolSnapshot{
		TotalFaceValue:     deref(r.TotalFaceValue),
		WeightedMaturity:   deref(r.WeightedMaturity),
		ExpectedYield:      deref(r.ExpectedYield),
		CurrentDefaultRate: deref(r.CurrentDefaultRate),
		RealizedYield:      deref(r.RealizedYield),
		TotalSupply:        deref(r.TotalSupply),
	}
	if r.NumberOfInvoices != nil {
		s.NumberOfInvoices = *r.NumberOfInvoices
	}
	return s
}

type ScenarioRequest struct {
	Scenario string `param:"scenario" validate:"required"`
}

func deref(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}
