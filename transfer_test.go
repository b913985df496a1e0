package wxpay

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wxpayv3/internal/gatewaytest"
)

func TestTransferBatches(t *testing.T) {
	c, gw := newTestClient(t, testConfig(t))
	gw.Reply(http.MethodPost, "/v3/transfer/batches", http.StatusOK, map[string]string{
		"out_batch_no": "B1",
		"batch_id":     "1030000071100999991182020050700019480001",
		"create_time":  "2015-05-20T13:29:35.120+08:00",
	})

	details := []TransferDetail{
		{OutDetailNo: "D1", TransferAmount: 200, TransferRemark: "bonus", OpenID: "o1"},
		{OutDetailNo: "D2", TransferAmount: 300, TransferRemark: "bonus", OpenID: "o2"},
	}
	resp, err := c.TransferBatches(context.Background(), "B1", "June bonus", "bonus", details, nil)
	require.NoError(t, err)
	assert.Equal(t, "B1", resp.OutBatchNo)

	body := gatewaytest.DecodeBody(t, gw.Last())
	assert.Equal(t, float64(500), body["total_amount"])
	assert.Equal(t, float64(2), body["total_num"])
	assert.Equal(t, "wx-default", body["appid"])
	assert.Equal(t, "https://merchant.example.com/notify/pay", body["notify_url"])

	list := body["transfer_detail_list"].([]any)
	require.Len(t, list, 2)
	first := list[0].(map[string]any)
	assert.Equal(t, "D1", first["out_detail_no"])
	assert.NotContains(t, first, "user_name")
}

func TestTransferBatchesEmpty(t *testing.T) {
	c, gw := newTestClient(t, testConfig(t))
	gw.Reply(http.MethodPost, "/v3/transfer/batches", http.StatusOK, map[string]string{})

	_, err := c.TransferBatches(context.Background(), "B2", "n", "r", nil, nil)
	require.NoError(t, err)

	body := gatewaytest.DecodeBody(t, gw.Last())
	assert.Equal(t, float64(0), body["total_amount"])
	assert.Equal(t, []any{}, body["transfer_detail_list"])
}
