package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	wxpay "wxpayv3"
	"wxpayv3/config"
)

const usage = `usage: wxpay [-env FILE] [-base-url URL] [-metrics] COMMAND [ARGS]

commands:
  order-no                        print a new merchant order number
  auth METHOD PATH [BODY]         print an Authorization header
  decrypt CIPHERTEXT AAD NONCE    decrypt a callback resource
  certificates                    list and decrypt platform certificates
`

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	envFile := flag.String("env", ".env", "env file loaded before reading WXPAY_* variables")
	baseURL := flag.String("base-url", "", "gateway base URL override")
	metrics := flag.Bool("metrics", false, "print gateway request metrics to stderr when done")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	// order-no needs no credentials.
	if args[0] == "order-no" {
		fmt.Println(wxpay.NewOrderNo())
		return
	}

	cfg, err := config.Load(*envFile)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}

	reg := prometheus.NewRegistry()
	opts := []wxpay.Option{wxpay.WithMetrics(reg)}
	if *baseURL != "" {
		opts = append(opts, wxpay.WithBaseURL(*baseURL))
	}

	client, err := wxpay.New(cfg, opts...)
	if err != nil {
		log.Fatal().Err(err).Msg("create client")
	}

	ctx := context.Background()
	switch args[0] {
	case "auth":
		if len(args) < 3 {
			flag.Usage()
			os.Exit(2)
		}
		var body any
		if len(args) > 3 {
			body = args[3]
		}
		header, err := client.Authorization(args[1], args[2], body)
		if err != nil {
			log.Fatal().Err(err).Msg("build authorization")
		}
		fmt.Println(header)

	case "decrypt":
		if len(args) != 4 {
			flag.Usage()
			os.Exit(2)
		}
		resource, err := client.DecryptResource(args[1], args[2], args[3])
		if err != nil {
			log.Fatal().Err(err).Msg("decrypt resource")
		}
		printJSON(resource)

	case "certificates":
		list, err := client.Certificates(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("list certificates")
		}
		for _, cert := range list.Data {
			pem, err := client.DecryptCertificate(cert)
			if err != nil {
				log.Error().Err(err).Str("serial_no", cert.SerialNo).Msg("decrypt certificate")
				continue
			}
			fmt.Printf("# serial_no=%s expires=%s\n%s\n", cert.SerialNo, cert.ExpireTime, pem)
		}

	default:
		flag.Usage()
		os.Exit(2)
	}

	if *metrics {
		if err := writeMetrics(os.Stderr, reg); err != nil {
			log.Error().Err(err).Msg("write metrics")
		}
	}
}

// writeMetrics dumps every gathered family in the Prometheus text format.
func writeMetrics(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return err
	}
	enc := expfmt.NewEncoder(w, expfmt.FmtText)
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return err
		}
	}
	return nil
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		log.Fatal().Err(err).Msg("encode output")
	}
}
