package yahoo

// chartResponse mirrors the Yahoo Finance v8 chart API payload
type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol             string  `json:"symbol"`
				RegularMarketPrice float64 `json:"regularMarketPrice"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []float64 `json:"open"`
					High   []float64 `json:"high"`
					Low    []float64 `json:"low"`
					Close  []float64 `json:"close"`
					Volume []int64   `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *apiError `json:"error"`
	} `json:"chart"`
}

// quoteResponse mirrors the Yahoo Finance v7 quote API payload
type quoteResponse struct {
	QuoteResponse struct {
		Result []quoteResult `json:"result"`
		Error  *apiError     `json:"error"`
	} `json:"quoteResponse"`
}

type quoteResult struct {
	Symbol                  string  `json:"symbol"`
	RegularMarketPrice      float64 `json:"regularMarketPrice"`
	RecommendationKey       string  `json:"recommendationKey"`
	NumberOfAnalystOpinions int     `json:"numberOfAnalystOpinions"`
	TargetLowPrice          float64 `json:"targetLowPrice"`
	TargetHighPrice         float64 `json:"targetHighPrice"`
	TargetMeanPrice         float64 `json:"targetMeanPrice"`
	TargetMedianPrice       float64 `json:"targetMedianPrice"`
}

type apiError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}
