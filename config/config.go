// Package config holds the merchant credential set the client is built from.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"wxpayv3/payerr"
)

// Config is the merchant's credential set. The client copies it at
// construction and never mutates it.
type Config struct {
	AppID    string // default application id
	H5AppID  string // optional, used by H5 payments
	WMPAppID string // optional, used by mini-program payments
	AppAppID string // optional, used by mobile app payments

	MchID    string
	APIv3Key string // 32-byte symmetric key for callback resources
	SerialNo string // merchant API certificate serial number

	PrivateKey string // merchant RSA private key, PEM
	PublicKey  string // platform public key or certificate, PEM

	PayNotifyURL    string
	RefundNotifyURL string
}

// Validate reports every missing required field at once.
func (c Config) Validate() error {
	var problems []string
	required := []struct{ name, value string }{
		{"app_id", c.AppID},
		{"mch_id", c.MchID},
		{"api_v3_key", c.APIv3Key},
		{"serial_no", c.SerialNo},
		{"private_key", c.PrivateKey},
		{"public_key", c.PublicKey},
		{"pay_notify_url", c.PayNotifyURL},
		{"refund_notify_url", c.RefundNotifyURL},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			problems = append(problems, f.name+" is required")
		}
	}
	if c.APIv3Key != "" && len(c.APIv3Key) != 32 {
		problems = append(problems, fmt.Sprintf("api_v3_key must be 32 bytes, got %d", len(c.APIv3Key)))
	}
	if len(problems) > 0 {
		return payerr.New(payerr.KindConfig, "validate config", strings.Join(problems, "; "))
	}
	return nil
}

// AppIDFor returns the channel-specific app id when set, else AppID.
func (c Config) AppIDFor(channel string) string {
	var id string
	switch channel {
	case "h5":
		id = c.H5AppID
	case "wmp":
		id = c.WMPAppID
	case "app":
		id = c.AppAppID
	}
	if id == "" {
		return c.AppID
	}
	return id
}

// Load reads a Config from WXPAY_* environment variables, after loading
// envFile into the environment when it exists. PEM keys come from
// WXPAY_PRIVATE_KEY / WXPAY_PUBLIC_KEY, or from the files named by
// WXPAY_PRIVATE_KEY_FILE / WXPAY_PUBLIC_KEY_FILE.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, payerr.Wrap(payerr.KindConfig, "load "+envFile, err)
		}
	}

	v := viper.New()
	v.SetEnvPrefix("WXPAY")
	v.AutomaticEnv()

	privateKey, err := pemValue(v, "PRIVATE_KEY")
	if err != nil {
		return Config{}, err
	}
	publicKey, err := pemValue(v, "PUBLIC_KEY")
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppID:           v.GetString("APP_ID"),
		H5AppID:         v.GetString("H5_APP_ID"),
		WMPAppID:        v.GetString("WMP_APP_ID"),
		AppAppID:        v.GetString("APP_APP_ID"),
		MchID:           v.GetString("MCH_ID"),
		APIv3Key:        v.GetString("API_V3_KEY"),
		SerialNo:        v.GetString("SERIAL_NO"),
		PrivateKey:      privateKey,
		PublicKey:       publicKey,
		PayNotifyURL:    v.GetString("PAY_NOTIFY_URL"),
		RefundNotifyURL: v.GetString("REFUND_NOTIFY_URL"),
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// pemValue prefers the inline variable and falls back to the _FILE one.
// Inline values may use literal "\n" escapes, as single-line env files do.
func pemValue(v *viper.Viper, key string) (string, error) {
	if inline := v.GetString(key); inline != "" {
		return strings.ReplaceAll(inline, `\n`, "\n"), nil
	}
	path := v.GetString(key + "_FILE")
	if path == "" {
		return "", nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", payerr.Wrap(payerr.KindConfig, "read "+strings.ToLower(key), err)
	}
	return string(b), nil
}
