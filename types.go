package wxpay

import (
	"maps"
	"strings"

	"github.com/google/uuid"
)

// Currency is the only currency the domestic endpoints accept.
const Currency = "CNY"

// Options are extra body fields merged over a request's canonical fields.
// On a key collision the option wins. Merging is shallow: an option named
// "amount" replaces the whole amount object.
type Options map[string]any

func merge(base map[string]any, opts Options) map[string]any {
	out := make(map[string]any, len(base)+len(opts))
	maps.Copy(out, base)
	maps.Copy(out, opts)
	return out
}

// NewOrderNo returns a merchant order number: a random UUID in lower-case
// hex without hyphens. Uniqueness rests on UUID collision resistance.
func NewOrderNo() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// PrepayResp is returned by JSAPI and App orders.
type PrepayResp struct {
	PrepayID string `json:"prepay_id"`
}

type H5Resp struct {
	H5URL string `json:"h5_url"`
}

type NativeResp struct {
	CodeURL string `json:"code_url"`
}

// PayParams are the JSAPI / mini-program client parameters.
type PayParams struct {
	AppID     string `json:"appId"`
	TimeStamp string `json:"timeStamp"`
	NonceStr  string `json:"nonceStr"`
	Package   string `json:"package"`
	SignType  string `json:"signType"`
	PaySign   string `json:"paySign"`
}

// AppPayParams are the parameters a mobile app passes to the WeChat SDK.
type AppPayParams struct {
	AppID     string `json:"appid"`
	PartnerID string `json:"partnerid"`
	PrepayID  string `json:"prepayid"`
	Package   string `json:"package"`
	NonceStr  string `json:"noncestr"`
	TimeStamp string `json:"timestamp"`
	Sign      string `json:"sign"`
}

type Payer struct {
	OpenID string `json:"openid"`
}

type TransactionAmount struct {
	Total         int64  `json:"total"`
	PayerTotal    int64  `json:"payer_total,omitempty"`
	Currency      string `json:"currency,omitempty"`
	PayerCurrency string `json:"payer_currency,omitempty"`
}

// Transaction is an order as returned by the query endpoints and carried by
// payment callbacks.
type Transaction struct {
	AppID          string            `json:"appid"`
	MchID          string            `json:"mchid"`
	OutTradeNo     string            `json:"out_trade_no"`
	TransactionID  string            `json:"transaction_id,omitempty"`
	TradeType      string            `json:"trade_type,omitempty"`
	TradeState     string            `json:"trade_state"`
	TradeStateDesc string            `json:"trade_state_desc,omitempty"`
	BankType       string            `json:"bank_type,omitempty"`
	Attach         string            `json:"attach,omitempty"`
	SuccessTime    string            `json:"success_time,omitempty"`
	Payer          Payer             `json:"payer"`
	Amount         TransactionAmount `json:"amount"`
}

// Trade states.
const (
	TradeStateSuccess    = "SUCCESS"
	TradeStateRefund     = "REFUND"
	TradeStateNotPay     = "NOTPAY"
	TradeStateClosed     = "CLOSED"
	TradeStateRevoked    = "REVOKED"
	TradeStateUserPaying = "USERPAYING"
	TradeStatePayError   = "PAYERROR"
)

// RefundWay identifies the order to refund. Set exactly one field.
type RefundWay struct {
	TransactionID string
	OutTradeNo    string
}

type RefundAmount struct {
	Total            int64  `json:"total"`
	Refund           int64  `json:"refund"`
	PayerTotal       int64  `json:"payer_total,omitempty"`
	PayerRefund      int64  `json:"payer_refund,omitempty"`
	SettlementRefund int64  `json:"settlement_refund,omitempty"`
	SettlementTotal  int64  `json:"settlement_total,omitempty"`
	DiscountRefund   int64  `json:"discount_refund,omitempty"`
	Currency         string `json:"currency,omitempty"`
}

// Refund is a refund as returned by the refund endpoints.
type Refund struct {
	RefundID            string       `json:"refund_id"`
	OutRefundNo         string       `json:"out_refund_no"`
	TransactionID       string       `json:"transaction_id"`
	OutTradeNo          string       `json:"out_trade_no"`
	Channel             string       `json:"channel,omitempty"`
	UserReceivedAccount string       `json:"user_received_account,omitempty"`
	SuccessTime         string       `json:"success_time,omitempty"`
	CreateTime          string       `json:"create_time,omitempty"`
	Status              string       `json:"status"`
	FundsAccount        string       `json:"funds_account,omitempty"`
	Amount              RefundAmount `json:"amount"`
}

// RefundNotice is the decrypted resource of a refund callback.
type RefundNotice struct {
	MchID               string       `json:"mchid"`
	OutTradeNo          string       `json:"out_trade_no"`
	TransactionID       string       `json:"transaction_id"`
	OutRefundNo         string       `json:"out_refund_no"`
	RefundID            string       `json:"refund_id"`
	RefundStatus        string       `json:"refund_status"`
	SuccessTime         string       `json:"success_time,omitempty"`
	UserReceivedAccount string       `json:"user_received_account,omitempty"`
	Amount              RefundAmount `json:"amount"`
}

// Bill types and archive formats.
const (
	BillAll     = "ALL"
	BillSuccess = "SUCCESS"
	BillRefund  = "REFUND"

	AccountBasic     = "BASIC"
	AccountOperation = "OPERATION"
	AccountFees      = "FEES"

	TarGZIP = "GZIP"
)

// BillResp points at a bill file to download.
type BillResp struct {
	DownloadURL string `json:"download_url"`
	HashType    string `json:"hash_type"`
	HashValue   string `json:"hash_value"`
}

// TransferDetail is one payee in a transfer batch. Amounts are in fen.
type TransferDetail struct {
	OutDetailNo    string `json:"out_detail_no"`
	TransferAmount int64  `json:"transfer_amount"`
	TransferRemark string `json:"transfer_remark"`
	OpenID         string `json:"openid"`
	UserName       string `json:"user_name,omitempty"` // required from 2,000 CNY
}

type TransferBatchResp struct {
	OutBatchNo string `json:"out_batch_no"`
	BatchID    string `json:"batch_id"`
	CreateTime string `json:"create_time"`
}

// EncryptedResource is an AEAD_AES_256_GCM payload.
type EncryptedResource struct {
	Algorithm      string `json:"algorithm"`
	Ciphertext     string `json:"ciphertext"`
	AssociatedData string `json:"associated_data"`
	OriginalType   string `json:"original_type,omitempty"`
	Nonce          string `json:"nonce"`
}

// Certificate is one platform certificate, still encrypted.
type Certificate struct {
	SerialNo           string            `json:"serial_no"`
	EffectiveTime      string            `json:"effective_time"`
	ExpireTime         string            `json:"expire_time"`
	EncryptCertificate EncryptedResource `json:"encrypt_certificate"`
}

type CertificateList struct {
	Data []Certificate `json:"data"`
}
