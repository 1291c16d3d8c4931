package risk

// VaRConvention VaR 부호 규약
// ⭐ SSOT: Loss를 양수로 표현 (VaR=0.05 → 5% 손실 가능)
const VaRConvention = "loss_positive"

// DefaultConfidence is the level attached to every frontier point
const DefaultConfidence = 0.95

// VaRResult holds the tail-risk figures of one return series
// - VaR=0.05 → 95% 신뢰수준에서 최대 5% 손실 가능
// - CVaR=0.07 → 5% tail에서 평균 7% 손실 예상
type VaRResult struct {
	Confidence float64 `json:"confidence"`
	VaR        float64 `json:"var"`  // 손실, 양수
	CVaR       float64 `json:"cvar"` // Expected Shortfall, 양수
	Samples    int     `json:"samples"`
}
