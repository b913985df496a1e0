package wxpay

import (
	"context"
	"net/http"
	"net/url"
)

// OrderByTransactionID looks an order up by the gateway's transaction id.
func (c *Client) OrderByTransactionID(ctx context.Context, transactionID string) (*Transaction, error) {
	var out Transaction
	path := "/v3/pay/transactions/id/" + url.PathEscape(transactionID)
	if _, err := c.call(ctx, http.MethodGet, path, url.Values{"mchid": {c.cfg.MchID}}, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// OrderByOutTradeNo looks an order up by the merchant's order number.
func (c *Client) OrderByOutTradeNo(ctx context.Context, outTradeNo string) (*Transaction, error) {
	var out Transaction
	path := "/v3/pay/transactions/out-trade-no/" + url.PathEscape(outTradeNo)
	if _, err := c.call(ctx, http.MethodGet, path, url.Values{"mchid": {c.cfg.MchID}}, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CloseOrder closes an unpaid order. The gateway answers 204 with no body.
func (c *Client) CloseOrder(ctx context.Context, outTradeNo string) error {
	path := "/v3/pay/transactions/out-trade-no/" + url.PathEscape(outTradeNo) + "/close"
	if _, err := c.call(ctx, http.MethodPost, path, nil, map[string]any{"mchid": c.cfg.MchID}, nil); err != nil {
		return err
	}
	c.logOperation("close_order", map[string]any{"out_trade_no": outTradeNo})
	return nil
}
