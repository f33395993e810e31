package ccxtrest

import (
	"encoding/json"
	"fmt"
)

// Wire types for the unified exchange bridge. Numeric fields travel as
// strings so venue precision survives the trip.

type tickerResponse struct {
	Symbol    string `json:"symbol"`
	Bid       string `json:"bid"`
	Ask       string `json:"ask"`
	Last      string `json:"last"`
	Timestamp int64  `json:"timestamp"` // unix millis
}

type tradingFeesResponse struct {
	Maker string `json:"maker"`
	Taker string `json:"taker"`
}

type currencyResponse struct {
	Currency string `json:"currency"`
	Fee      string `json:"fee"`
	Network  string `json:"network"`
}

type balanceResponse struct {
	Asset string `json:"asset"`
	Free  string `json:"free"`
}

type orderRequest struct {
	Symbol string `json:"symbol"`
	Side   string `json:"side"`
	Type   string `json:"type"`
	Amount string `json:"amount"`
}

type orderResponse struct {
	ID     string `json:"id"`
	Symbol string `json:"symbol"`
	Side   string `json:"side"`
	Amount string `json:"amount"`
	Filled string `json:"filled"`
	Cost   string `json:"cost"`
}

type depositAddressResponse struct {
	Currency string `json:"currency"`
	Network  string `json:"network"`
	Address  string `json:"address"`
	Tag      string `json:"tag"`
}

type withdrawRequest struct {
	Currency string `json:"currency"`
	Amount   string `json:"amount"`
	Address  string `json:"address"`
	Network  string `json:"network"`
}

type withdrawalResponse struct {
	ID       string `json:"id"`
	Currency string `json:"currency"`
	Amount   string `json:"amount"`
	Status   string `json:"status"`
	TxID     string `json:"txid"`
}

// APIError is an error payload returned by the bridge.
type APIError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("exchange API error %d (%s): %s", e.StatusCode, e.Code, e.Message)
}

// bridgeErrorHandler parses bridge error responses.
func bridgeErrorHandler(statusCode int, body []byte) error {
	if statusCode < 400 {
		return nil
	}
	apiErr := APIError{StatusCode: statusCode}
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Message != "" {
		return &apiErr
	}
	return &APIError{StatusCode: statusCode, Message: string(body)}
}
