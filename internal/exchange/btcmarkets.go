package exchange

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bitstash-treasury-engine/internal/config"
)

// BTCMarketsClient talks to the BTC Markets v3 REST API (AUD-native spot
// exchange). Requests are signed with HMAC-SHA512 over
// method+path+timestamp+body using the base64-decoded API secret.
type BTCMarketsClient struct {
	baseURL    string
	apiKey     string
	apiSecret  []byte
	httpClient *http.Client
	logger     *slog.Logger
}

func NewBTCMarketsClient(cfg *config.BTCMarketsConfig, logger *slog.Logger) *BTCMarketsClient {
	secret, err := base64.StdEncoding.DecodeString(cfg.APISecret)
	if err != nil {
		// A malformed secret fails every signed request anyway; log once
		// here instead of per call.
		logger.Error("BTC Markets API secret is not valid base64; signed requests will fail")
		secret = []byte(cfg.APISecret)
	}

	return &BTCMarketsClient{
		baseURL:   cfg.BaseURL,
		apiKey:    cfg.APIKey,
		apiSecret: secret,
		httpClient: &http.Client{
			Timeout: cfg.RequestTimeout,
		},
		logger: logger,
	}
}

func (c *BTCMarketsClient) Provider() string {
	return ProviderBTCMarkets
}

type bmOrderRequest struct {
	MarketID     string `json:"marketId"`
	Side         string `json:"side"`
	Type         string `json:"type"`
	Amount       string `json:"amount"`
	TargetAmount string `json:"targetAmount,omitempty"`
}

type bmOrderResponse struct {
	OrderID    string `json:"orderId"`
	MarketID   string `json:"marketId"`
	Status     string `json:"status"`
	Amount     string `json:"amount"`
	OpenAmount string `json:"openAmount"`
	Price      string `json:"price"`
}

type bmErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type bmTickerResponse struct {
	MarketID  string `json:"marketId"`
	LastPrice string `json:"lastPrice"`
}

type bmWithdrawRequest struct {
	AssetName string `json:"assetName"`
	Amount    string `json:"amount"`
	ToAddress string `json:"toAddress"`
}

type bmWithdrawResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// CreateMarketOrder places a market bid spending fiatAmount of the quote
// currency, then reads the order back for fill details.
func (c *BTCMarketsClient) CreateMarketOrder(ctx context.Context, fiatAmount decimal.Decimal, pair string) (*OrderResult, error) {
	reqBody := bmOrderRequest{
		MarketID: pair,
		Side:     "Bid",
		Type:     "Market",
		// Market bids spend the quote (fiat) side.
		Amount: fiatAmount.String(),
	}

	var placed bmOrderResponse
	if err := c.signedRequest(ctx, http.MethodPost, "/v3/orders", reqBody, &placed); err != nil {
		return nil, err
	}

	// Market orders match immediately; re-read for authoritative fill
	// amounts because the placement response reports the requested size.
	var detail bmOrderResponse
	if err := c.signedRequest(ctx, http.MethodGet, "/v3/orders/"+placed.OrderID, nil, &detail); err != nil {
		return nil, err
	}

	amount, err := decimal.NewFromString(detail.Amount)
	if err != nil {
		return nil, NewError(ProviderBTCMarkets, CodeUnknown, "unparseable order amount: "+detail.Amount, err)
	}
	open := decimal.Zero
	if detail.OpenAmount != "" {
		if open, err = decimal.NewFromString(detail.OpenAmount); err != nil {
			return nil, NewError(ProviderBTCMarkets, CodeUnknown, "unparseable open amount: "+detail.OpenAmount, err)
		}
	}
	price, err := decimal.NewFromString(detail.Price)
	if err != nil || !price.IsPositive() {
		return nil, NewError(ProviderBTCMarkets, CodePriceUnavailable, "order has no execution price", err)
	}

	filledFiat := amount.Sub(open)
	return &OrderResult{
		OrderID:      detail.OrderID,
		Status:       detail.Status,
		FilledFiat:   filledFiat,
		FilledCrypto: filledFiat.DivRound(price, 8),
		PricePerUnit: price,
	}, nil
}

func (c *BTCMarketsClient) Withdraw(ctx context.Context, cryptoAmount decimal.Decimal, address string) (*WithdrawalResult, error) {
	reqBody := bmWithdrawRequest{
		AssetName: "BTC",
		Amount:    cryptoAmount.String(),
		ToAddress: address,
	}

	var resp bmWithdrawResponse
	if err := c.signedRequest(ctx, http.MethodPost, "/v3/withdrawals", reqBody, &resp); err != nil {
		return nil, err
	}

	return &WithdrawalResult{
		WithdrawalID: resp.ID,
		Status:       resp.Status,
	}, nil
}

func (c *BTCMarketsClient) GetCurrentPrice(ctx context.Context, pair string) (decimal.Decimal, error) {
	var ticker bmTickerResponse
	if err := c.signedRequest(ctx, http.MethodGet, "/v3/markets/"+pair+"/ticker", nil, &ticker); err != nil {
		return decimal.Zero, err
	}

	price, err := decimal.NewFromString(ticker.LastPrice)
	if err != nil || !price.IsPositive() {
		return decimal.Zero, NewError(ProviderBTCMarkets, CodePriceUnavailable, "ticker has no last price for "+pair, err)
	}
	return price, nil
}

// signedRequest performs one authenticated round trip and decodes the JSON
// response into out. All transport and HTTP-level failures come back as
// typed exchange errors.
func (c *BTCMarketsClient) signedRequest(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return NewError(ProviderBTCMarkets, CodeUnknown, "failed to encode request body", err)
		}
	}

	timestamp := strconv.FormatInt(time.Now().UnixMilli(), 10)
	mac := hmac.New(sha512.New, c.apiSecret)
	mac.Write([]byte(method + path + timestamp))
	mac.Write(payload)
	signature := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return NewError(ProviderBTCMarkets, CodeUnknown, "failed to build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("BM-AUTH-APIKEY", c.apiKey)
	req.Header.Set("BM-AUTH-TIMESTAMP", timestamp)
	req.Header.Set("BM-AUTH-SIGNATURE", signature)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Timeouts, resets, DNS failures: all retryable.
		return NewError(ProviderBTCMarkets, CodeNetworkError, "request failed: "+method+" "+path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return NewError(ProviderBTCMarkets, CodeNetworkError, "failed to read response body", err)
	}

	if resp.StatusCode >= 400 {
		return c.apiError(resp.StatusCode, respBody)
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return NewError(ProviderBTCMarkets, CodeUnknown, "failed to decode response", err)
		}
	}
	return nil
}

// apiError maps BTC Markets HTTP failures onto the engine's taxonomy.
func (c *BTCMarketsClient) apiError(status int, body []byte) *Error {
	var apiErr bmErrorResponse
	_ = json.Unmarshal(body, &apiErr)
	detail := apiErr.Message
	if detail == "" {
		detail = string(body)
	}

	switch {
	case status == http.StatusTooManyRequests:
		return NewError(ProviderBTCMarkets, CodeRateLimited, detail, nil)
	case apiErr.Code == "InsufficientFund":
		return NewError(ProviderBTCMarkets, CodeInsufficientFunds, detail, nil)
	case status >= 500:
		return NewError(ProviderBTCMarkets, CodeNetworkError, fmt.Sprintf("server error (%d): %s", status, detail), nil)
	case status >= 400:
		return NewError(ProviderBTCMarkets, CodeOrderRejected, fmt.Sprintf("rejected (%d, %s): %s", status, apiErr.Code, detail), nil)
	default:
		return NewError(ProviderBTCMarkets, CodeUnknown, detail, nil)
	}
}
