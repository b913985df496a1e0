package wxpay

import (
	"context"
	"net/http"

	"wxpayv3/clock"
	"wxpayv3/random"
)

func amount(total int64) map[string]any {
	return map[string]any{"total": total, "currency": Currency}
}

// orderBody is the field set every payment order starts from.
func (c *Client) orderBody(appID, outTradeNo string, total int64, description string) map[string]any {
	return map[string]any{
		"appid":        appID,
		"mchid":        c.cfg.MchID,
		"out_trade_no": outTradeNo,
		"description":  description,
		"notify_url":   c.cfg.PayNotifyURL,
		"amount":       amount(total),
	}
}

// appIDOverride lets an "appid" option win for the client-side parameters
// too, so they match the order that was created.
func appIDOverride(appID string, opts Options) string {
	if v, ok := opts["appid"].(string); ok && v != "" {
		return v
	}
	return appID
}

// JSAPI creates an order paid inside WeChat by payerOpenID. total is in fen.
func (c *Client) JSAPI(ctx context.Context, outTradeNo, payerOpenID string, total int64, description string, opts Options) (*PrepayResp, error) {
	return c.jsapi(ctx, c.cfg.AppID, outTradeNo, payerOpenID, total, description, opts)
}

func (c *Client) jsapi(ctx context.Context, appID, outTradeNo, payerOpenID string, total int64, description string, opts Options) (*PrepayResp, error) {
	body := c.orderBody(appID, outTradeNo, total, description)
	body["payer"] = map[string]any{"openid": payerOpenID}

	var out PrepayResp
	if _, err := c.call(ctx, http.MethodPost, "/v3/pay/transactions/jsapi", nil, merge(body, opts), &out); err != nil {
		return nil, err
	}
	c.logOperation("jsapi", map[string]any{"out_trade_no": outTradeNo, "total": total})
	return &out, nil
}

// JSAPIPay creates a JSAPI order and returns the signed parameters the page
// hands to WeixinJSBridge. The second step needs the first's prepay id.
func (c *Client) JSAPIPay(ctx context.Context, outTradeNo, payerOpenID string, total int64, description string, opts Options) (*PayParams, error) {
	return c.jsapiPay(ctx, c.cfg.AppID, outTradeNo, payerOpenID, total, description, opts)
}

// MiniProgramPay is JSAPIPay under the mini-program app id.
func (c *Client) MiniProgramPay(ctx context.Context, outTradeNo, payerOpenID string, total int64, description string, opts Options) (*PayParams, error) {
	return c.jsapiPay(ctx, c.cfg.AppIDFor("wmp"), outTradeNo, payerOpenID, total, description, opts)
}

func (c *Client) jsapiPay(ctx context.Context, appID, outTradeNo, payerOpenID string, total int64, description string, opts Options) (*PayParams, error) {
	prepay, err := c.jsapi(ctx, appID, outTradeNo, payerOpenID, total, description, opts)
	if err != nil {
		return nil, err
	}

	appID = appIDOverride(appID, opts)
	timestamp := clock.Timestamp10(c.now())
	nonce := random.Nonce()
	pkg := "prepay_id=" + prepay.PrepayID

	sign, err := c.signer.Sign(appID, timestamp, nonce, pkg)
	if err != nil {
		return nil, err
	}
	return &PayParams{
		AppID:     appID,
		TimeStamp: timestamp,
		NonceStr:  nonce,
		Package:   pkg,
		SignType:  "RSA",
		PaySign:   sign,
	}, nil
}

// H5Pay creates an order paid in a mobile browser. An empty payerClientIP
// defaults to 127.0.0.1.
func (c *Client) H5Pay(ctx context.Context, outTradeNo string, total int64, description, payerClientIP string, opts Options) (*H5Resp, error) {
	if payerClientIP == "" {
		payerClientIP = "127.0.0.1"
	}
	body := c.orderBody(c.cfg.AppIDFor("h5"), outTradeNo, total, description)
	body["scene_info"] = map[string]any{
		"payer_client_ip": payerClientIP,
		"h5_info":         map[string]any{"type": "Wap"},
	}

	var out H5Resp
	if _, err := c.call(ctx, http.MethodPost, "/v3/pay/transactions/h5", nil, merge(body, opts), &out); err != nil {
		return nil, err
	}
	c.logOperation("h5", map[string]any{"out_trade_no": outTradeNo, "total": total})
	return &out, nil
}

// NativePay creates an order paid by scanning the returned QR code URL.
func (c *Client) NativePay(ctx context.Context, outTradeNo string, total int64, description string, opts Options) (*NativeResp, error) {
	body := c.orderBody(c.cfg.AppID, outTradeNo, total, description)

	var out NativeResp
	if _, err := c.call(ctx, http.MethodPost, "/v3/pay/transactions/native", nil, merge(body, opts), &out); err != nil {
		return nil, err
	}
	c.logOperation("native", map[string]any{"out_trade_no": outTradeNo, "total": total})
	return &out, nil
}

// AppPay creates an order paid from a mobile app.
func (c *Client) AppPay(ctx context.Context, outTradeNo string, total int64, description string, opts Options) (*PrepayResp, error) {
	body := c.orderBody(c.cfg.AppIDFor("app"), outTradeNo, total, description)

	var out PrepayResp
	if _, err := c.call(ctx, http.MethodPost, "/v3/pay/transactions/app", nil, merge(body, opts), &out); err != nil {
		return nil, err
	}
	c.logOperation("app", map[string]any{"out_trade_no": outTradeNo, "total": total})
	return &out, nil
}

// AppPayParams creates an App order and signs the parameters for the app SDK.
func (c *Client) AppPayParams(ctx context.Context, outTradeNo string, total int64, description string, opts Options) (*AppPayParams, error) {
	prepay, err := c.AppPay(ctx, outTradeNo, total, description, opts)
	if err != nil {
		return nil, err
	}

	appID := appIDOverride(c.cfg.AppIDFor("app"), opts)
	timestamp := clock.Timestamp10(c.now())
	nonce := random.Nonce()

	sign, err := c.signer.Sign(appID, timestamp, nonce, prepay.PrepayID)
	if err != nil {
		return nil, err
	}
	return &AppPayParams{
		AppID:     appID,
		PartnerID: c.cfg.MchID,
		PrepayID:  prepay.PrepayID,
		Package:   "Sign=WXPay",
		NonceStr:  nonce,
		TimeStamp: timestamp,
		Sign:      sign,
	}, nil
}
