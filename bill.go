package wxpay

import (
	"context"
	"net/http"
	"net/url"

	"wxpayv3/payerr"
)

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// TradeBill requests the trade bill for billDate (yyyy-MM-dd). billType
// defaults to ALL and tarType to GZIP.
func (c *Client) TradeBill(ctx context.Context, billDate, billType, tarType string) (*BillResp, error) {
	q := url.Values{
		"bill_date": {billDate},
		"bill_type": {orDefault(billType, BillAll)},
		"tar_type":  {orDefault(tarType, TarGZIP)},
	}
	var out BillResp
	if _, err := c.call(ctx, http.MethodGet, "/v3/bill/tradebill", q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// FundFlowBill requests the fund flow bill for billDate. accountType
// defaults to BASIC and tarType to GZIP.
func (c *Client) FundFlowBill(ctx context.Context, billDate, accountType, tarType string) (*BillResp, error) {
	q := url.Values{
		"bill_date":    {billDate},
		"account_type": {orDefault(accountType, AccountBasic)},
		"tar_type":     {orDefault(tarType, TarGZIP)},
	}
	var out BillResp
	if _, err := c.call(ctx, http.MethodGet, "/v3/bill/fundflowbill", q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DownloadTradeBill requests the trade bill and then downloads the file.
// The returned bytes are the archive as served (gzip unless tarType says
// otherwise).
func (c *Client) DownloadTradeBill(ctx context.Context, billDate, billType, tarType string) ([]byte, error) {
	bill, err := c.TradeBill(ctx, billDate, billType, tarType)
	if err != nil {
		return nil, err
	}
	return c.download(ctx, bill.DownloadURL)
}

// DownloadFundFlowBill requests the fund flow bill and then downloads the file.
func (c *Client) DownloadFundFlowBill(ctx context.Context, billDate, accountType, tarType string) ([]byte, error) {
	bill, err := c.FundFlowBill(ctx, billDate, accountType, tarType)
	if err != nil {
		return nil, err
	}
	return c.download(ctx, bill.DownloadURL)
}

// download fetches a gateway download URL. Only its path and query are
// used; the request goes to the client's own base URL and is signed.
func (c *Client) download(ctx context.Context, downloadURL string) ([]byte, error) {
	u, err := url.Parse(downloadURL)
	if err != nil || u.Path == "" {
		return nil, &payerr.Error{Kind: payerr.KindPayloadFormat, Op: "download bill", Message: "invalid download_url " + downloadURL, Err: err}
	}

	data, err := c.call(ctx, http.MethodGet, u.RequestURI(), nil, nil, nil)
	if err != nil {
		return nil, err
	}
	c.logOperation("download_bill", map[string]any{"path": u.Path, "bytes": len(data)})
	return data, nil
}
