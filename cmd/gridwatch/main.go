package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"gridwatch/pkg/api"
	"gridwatch/pkg/config"
	"gridwatch/pkg/conn"
	"gridwatch/pkg/display"
	"gridwatch/pkg/eventlog"
	"gridwatch/pkg/metrics"
	"gridwatch/pkg/telemetry"
	"gridwatch/pkg/version"
)

func main() {
	configPath := flag.String("config", os.Getenv("GRIDWATCH_CONFIG"), "YAML config file (optional, env GRIDWATCH_CONFIG)")
	endpoint := flag.String("endpoint", "", "producer websocket url, e.g. ws://localhost:8000/stream")
	httpAddr := flag.String("http-addr", "", "HTTP view listen address")
	window := flag.Int("window", 0, "samples kept per source")
	logSink := flag.String("log-sink", "", "durable event log: none|sqlite|mysql")
	sqlitePath := flag.String("sqlite-path", "", "sqlite event log path (when log-sink=sqlite)")
	mysqlDSN := flag.String("mysql-dsn", "", "MySQL DSN (when log-sink=mysql, env MYSQL_DSN)")
	showDisplay := flag.Bool("display", false, "redraw a terminal dashboard")
	tlsCert := flag.String("tls-cert", "", "TLS cert path (enables HTTPS if set with --tls-key)")
	tlsKey := flag.String("tls-key", "", "TLS key path (enables HTTPS if set with --tls-cert)")
	clientCA := flag.String("client-ca", "", "require and verify client certs using this CA (optional)")
	showVersion := flag.Bool("v", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "endpoint":
			cfg.Endpoint = *endpoint
		case "http-addr":
			cfg.HTTPAddr = *httpAddr
		case "window":
			cfg.Window = *window
		case "log-sink":
			cfg.EventLog.Sink = *logSink
		case "sqlite-path":
			cfg.EventLog.SQLitePath = *sqlitePath
		case "mysql-dsn":
			cfg.EventLog.MySQLDSN = *mysqlDSN
		case "display":
			cfg.Display.Enabled = *showDisplay
		}
	})
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}
	log.Printf("gridwatch version=%s endpoint=%s window=%d sink=%s", version.String(), cfg.Endpoint, cfg.Window, cfg.EventLog.Sink)

	durable, err := openSink(cfg.EventLog)
	if err != nil {
		log.Fatalf("open event log sink: %v", err)
	}
	capacity := cfg.EventLog.Capacity
	if capacity < 0 {
		capacity = 0
	}
	events := eventlog.New(capacity, eventlog.WithSink(durable))
	defer func() {
		if err := events.Close(); err != nil {
			log.Printf("event log close failed: %v", err)
		}
	}()
	log.Printf("event log session=%s capacity=%d", events.Session(), capacity)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	agg := telemetry.New(
		telemetry.WithWindowSize(cfg.Window),
		telemetry.WithEventLog(events),
		telemetry.WithObserver(m),
	)
	mgr, err := conn.New(cfg.Endpoint, agg, conn.WithStateHook(m.ObserveState))
	if err != nil {
		log.Fatalf("connection: %v", err)
	}

	mux := http.NewServeMux()
	api.RegisterRoutes(mux, agg, mgr.State, reg)
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Printf("http view listening on %s", cfg.HTTPAddr)
		var err error
		if *tlsCert != "" && *tlsKey != "" {
			tlsCfg, errTLS := api.ServerTLSConfig(*tlsCert, *tlsKey, *clientCA)
			if errTLS != nil {
				log.Fatalf("failed to build TLS config: %v", errTLS)
			}
			srv.TLSConfig = tlsCfg
			err = srv.ListenAndServeTLS("", "")
		} else {
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	if cfg.Display.Enabled {
		go redraw(ctx, agg, mgr, cfg.Display.Refresh)
	}

	if err := mgr.Run(ctx); err != nil {
		log.Printf("stream ended state=%s err=%v", mgr.State(), err)
	} else {
		log.Printf("stream ended state=%s accepted=%d", mgr.State(), agg.Counters().Accepted)
	}

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown failed: %v", err)
	}
}

func openSink(c config.EventLogConfig) (eventlog.Sink, error) {
	switch c.Sink {
	case config.SinkSQLite:
		return eventlog.OpenSQLite(c.SQLitePath, c.SQLiteMaxRows)
	case config.SinkMySQL:
		return eventlog.OpenMySQL(c.MySQLDSN, c.Retention)
	default:
		return nil, nil
	}
}

func redraw(ctx context.Context, agg *telemetry.Aggregator, mgr *conn.Manager, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			fmt.Print("\033[H\033[2J")
			fmt.Println(display.Render(agg.Snapshot(), mgr.State()))
		}
	}
}
