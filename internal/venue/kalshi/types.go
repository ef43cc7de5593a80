package kalshi

// Wire types. Prices are in cents, balances and P&L in cents.

type event struct {
	EventTicker  string `json:"event_ticker"`
	SeriesTicker string `json:"series_ticker"`
	Title        string `json:"title"`
	Category     string `json:"category"`
}

type eventsResponse struct {
	Events []event `json:"events"`
	Cursor string  `json:"cursor"`
}

type market struct {
	Ticker       string `json:"ticker"`
	EventTicker  string `json:"event_ticker"`
	Title        string `json:"title"`
	Subtitle     string `json:"subtitle"`
	YesSubTitle  string `json:"yes_sub_title"`
	YesAsk       int64  `json:"yes_ask"`
	NoAsk        int64  `json:"no_ask"`
	Volume       int64  `json:"volume"`
	OpenInterest int64  `json:"open_interest"`
	CloseTime    string `json:"close_time"`
	Status       string `json:"status"`
}

type marketsResponse struct {
	Markets []market `json:"markets"`
	Cursor  string   `json:"cursor"`
}

type balanceResponse struct {
	Balance int64 `json:"balance"`
}

type marketPosition struct {
	Ticker   string  `json:"ticker"`
	Position int64   `json:"position"` // negative holds NO contracts
	AvgPrice float64 `json:"avg_price"`
	Pnl      int64   `json:"pnl"`
	Side     string  `json:"side"`
}

type positionsResponse struct {
	MarketPositions []marketPosition `json:"market_positions"`
	Cursor          string           `json:"cursor"`
}

type createOrderRequest struct {
	Ticker   string `json:"ticker"`
	Side     string `json:"side"`
	Type     string `json:"type"`
	Action   string `json:"action"`
	Count    int    `json:"count"`
	YesPrice *int   `json:"yes_price,omitempty"`
	NoPrice  *int   `json:"no_price,omitempty"`
}

type orderResponse struct {
	Order struct {
		OrderID string `json:"order_id"`
		Ticker  string `json:"ticker"`
		Status  string `json:"status"`
	} `json:"order"`
}
