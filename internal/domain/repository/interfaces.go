package repository

type Metrics interface {
	RecordEvaluation(kind, tier string)
	RecordCompositeScore(kind string, score float64)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
	RecordMarket(risk, liquidity, confidence float64)
}
