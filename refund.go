package wxpay

import (
	"context"
	"net/http"
	"net/url"
)

// Refund refunds refund fen of an order whose original total was total.
func (c *Client) Refund(ctx context.Context, way RefundWay, outRefundNo string, total, refund int64, opts Options) (*Refund, error) {
	body := map[string]any{
		"out_refund_no": outRefundNo,
		"notify_url":    c.cfg.RefundNotifyURL,
		"amount": map[string]any{
			"refund":   refund,
			"total":    total,
			"currency": Currency,
		},
	}
	if way.TransactionID != "" {
		body["transaction_id"] = way.TransactionID
	}
	if way.OutTradeNo != "" {
		body["out_trade_no"] = way.OutTradeNo
	}

	var out Refund
	if _, err := c.call(ctx, http.MethodPost, "/v3/refund/domestic/refunds", nil, merge(body, opts), &out); err != nil {
		return nil, err
	}
	c.logOperation("refund", map[string]any{
		"out_refund_no":  outRefundNo,
		"transaction_id": way.TransactionID,
		"out_trade_no":   way.OutTradeNo,
		"refund":         refund,
	})
	return &out, nil
}

// RefundByTransactionID refunds an order identified by the gateway's transaction id.
func (c *Client) RefundByTransactionID(ctx context.Context, transactionID, outRefundNo string, total, refund int64, opts Options) (*Refund, error) {
	return c.Refund(ctx, RefundWay{TransactionID: transactionID}, outRefundNo, total, refund, opts)
}

// RefundByOutTradeNo refunds an order identified by the merchant's order number.
func (c *Client) RefundByOutTradeNo(ctx context.Context, outTradeNo, outRefundNo string, total, refund int64, opts Options) (*Refund, error) {
	return c.Refund(ctx, RefundWay{OutTradeNo: outTradeNo}, outRefundNo, total, refund, opts)
}

// RefundByOutRefundNo queries a single refund.
func (c *Client) RefundByOutRefundNo(ctx context.Context, outRefundNo string) (*Refund, error) {
	var out Refund
	if _, err := c.call(ctx, http.MethodGet, "/v3/refund/domestic/refunds/"+url.PathEscape(outRefundNo), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
