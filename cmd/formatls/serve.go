package main

import (
	"errors"
	"net/http"
	"time"

	"formatls/internal/metrics"
	"formatls/internal/server"

	"github.com/spf13/cobra"
	"github.com/tliron/commonlog"
)

var (
	tcpAddress       string
	websocketAddress string
	metricsAddress   string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the language server (stdio by default)",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func addServeFlags(cmd *cobra.Command) {
	for _, c := range []*cobra.Command{cmd, serveCmd} {
		flags := c.Flags()
		flags.StringVar(&tcpAddress, "tcp", "", "listen for a client on this TCP address")
		flags.StringVar(&websocketAddress, "websocket", "", "listen for a client on this WebSocket address")
		flags.StringVar(&metricsAddress, "metrics-addr", "", "serve Prometheus metrics on this address")
		c.MarkFlagsMutuallyExclusive("tcp", "websocket")
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	log := commonlog.GetLogger("formatls")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	var m *metrics.Metrics
	if metricsAddress != "" {
		m = metrics.New(time.Now())
		mux := http.NewServeMux()
		mux.Handle("GET /metrics", m.Handler())
		go func() {
			if err := http.ListenAndServe(metricsAddress, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Errorf("metrics server: %v", err)
			}
		}()
	}

	srv := server.NewServer(server.Options{
		Config:  cfg,
		Version: Version,
		Metrics: m,
	})
	defer srv.Close()

	transport, address := "stdio", ""
	switch {
	case tcpAddress != "":
		transport, address = "tcp", tcpAddress
	case websocketAddress != "":
		transport, address = "websocket", websocketAddress
	}
	log.Infof("starting formatls %s on %s", Version, transport)
	return srv.Run(transport, address)
}
