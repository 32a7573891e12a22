package models

// Requests for the engine HTTP endpoints. Defined in domain for consistency and reuse.

type BarsRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required"`
	Period string `query:"period" json:"period" default:"6mo" validate:"oneof=1mo 3mo 6mo 1y 2y 5y max"`
}

type IndicatorsRequest struct {
	Symbol          string  `query:"symbol" json:"symbol" validate:"required"`
	Period          string  `query:"period" json:"period" default:"1y" validate:"oneof=1mo 3mo 6mo 1y 2y 5y max"`
	MAShort         int     `query:"ma_short" json:"ma_short" default:"20" validate:"gte=1,lte=200"`
	MALong          int     `query:"ma_long" json:"ma_long" default:"50" validate:"gte=1,lte=400"`
	RSIWindow       int     `query:"rsi_window" json:"rsi_window" default:"14" validate:"gte=2,lte=200"`
	MACDFast        int     `query:"macd_fast" json:"macd_fast" default:"12" validate:"gte=1,lte=100"`
	MACDSlow        int     `query:"macd_slow" json:"macd_slow" default:"26" validate:"gte=2,lte=200"`
	MACDSignal      int     `query:"macd_signal" json:"macd_signal" default:"9" validate:"gte=1,lte=100"`
	BollingerWindow int     `query:"bollinger_window" json:"bollinger_window" default:"20" validate:"gte=2,lte=200"`
	BollingerK      float64 `query:"bollinger_k" json:"bollinger_k" default:"2.0" validate:"gt=0"`
	ATRWindow       int     `query:"atr_window" json:"atr_window" default:"14" validate:"gte=1,lte=200"`
}

// ToIndicatorConfig maps validated request windows onto the engine config.
func (r IndicatorsRequest) ToIndicatorConfig() IndicatorConfig {
	return IndicatorConfig{
		MAShort:         r.MAShort,
		MALong:          r.MALong,
		RSIWindow:       r.RSIWindow,
		MACDFast:        r.MACDFast,
		MACDSlow:        r.MACDSlow,
		MACDSignal:      r.MACDSignal,
		BollingerWindow: r.BollingerWindow,
		BollingerK:      r.BollingerK,
		ATRWindow:       r.ATRWindow,
	}
}

type SummaryRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required"`
	Period string `query:"period" json:"period" default:"1y" validate:"oneof=1mo 3mo 6mo 1y 2y 5y max"`
}

type ForecastRequest struct {
	Symbol      string  `query:"symbol" json:"symbol" validate:"required"`
	Period      string  `query:"period" json:"period" default:"2y" validate:"oneof=6mo 1y 2y 5y max"`
	Horizon     int     `query:"horizon" json:"horizon" default:"10" validate:"gte=1,lte=60"`
	LagDepth    int     `query:"lag_depth" json:"lag_depth" default:"10" validate:"gte=1,lte=30"`
	Trees       int     `query:"trees" json:"trees" default:"100" validate:"gte=1,lte=500"`
	Seed        int64   `query:"seed" json:"seed" default:"42"`
	Strategy    string  `query:"strategy" json:"strategy" default:"iterative" validate:"oneof=single_shot iterative"`
	ConfidenceZ float64 `query:"confidence_z" json:"confidence_z" default:"1.96" validate:"gt=0"`
}

// ToAnalysisRequest resolves the request into a queueable unit of work.
func (r ForecastRequest) ToAnalysisRequest(id string) AnalysisRequest {
	return AnalysisRequest{
		ID:          id,
		Symbol:      r.Symbol,
		Period:      r.Period,
		Horizon:     r.Horizon,
		LagDepth:    r.LagDepth,
		Trees:       r.Trees,
		Seed:        r.Seed,
		Strategy:    r.Strategy,
		ConfidenceZ: r.ConfidenceZ,
	}
}

type StoreBarsRequest struct {
	Symbol string       `json:"symbol" validate:"required"`
	Bars   []BarPayload `json:"bars" validate:"required,min=1,dive"`
}

// BarPayload is the wire form of one bar with a string date.
type BarPayload struct {
	Date   string  `json:"date" validate:"required"`
	Open   float64 `json:"open" validate:"gt=0"`
	High   float64 `json:"high" validate:"gt=0"`
	Low    float64 `json:"low" validate:"gt=0"`
	Close  float64 `json:"close" validate:"gt=0"`
	Volume float64 `json:"volume" validate:"gte=0"`
}

type RunsRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required"`
	Limit  int    `query:"limit" json:"limit" default:"20" validate:"gte=1,lte=200"`
}

type ExportRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required"`
	Period string `query:"period" json:"period" default:"1y" validate:"oneof=1mo 3mo 6mo 1y 2y 5y max"`
	Format string `query:"format" json:"format" default:"csv" validate:"oneof=csv"`
}
