package wxpay

import (
	"context"
	"net/http"
)

// TransferBatches pays every detail in one merchant transfer batch.
// total_amount and total_num are derived from details.
func (c *Client) TransferBatches(ctx context.Context, outBatchNo, batchName, batchRemark string, details []TransferDetail, opts Options) (*TransferBatchResp, error) {
	var totalAmount int64
	for _, d := range details {
		totalAmount += d.TransferAmount
	}
	if details == nil {
		details = []TransferDetail{}
	}

	body := map[string]any{
		"appid":                c.cfg.AppID,
		"mchid":                c.cfg.MchID,
		"out_batch_no":         outBatchNo,
		"batch_name":           batchName,
		"batch_remark":         batchRemark,
		"total_amount":         totalAmount,
		"total_num":            len(details),
		"notify_url":           c.cfg.PayNotifyURL,
		"transfer_detail_list": details,
	}

	var out TransferBatchResp
	if _, err := c.call(ctx, http.MethodPost, "/v3/transfer/batches", nil, merge(body, opts), &out); err != nil {
		return nil, err
	}
	c.logOperation("transfer_batches", map[string]any{
		"out_batch_no": outBatchNo,
		"total_amount": totalAmount,
		"total_num":    len(details),
	})
	return &out, nil
}
