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

	"gridwatch/pkg/api"
	"gridwatch/pkg/replay"
	"gridwatch/pkg/version"
)

func main() {
	addr := flag.String("addr", ":8000", "listen address")
	allJobsPath := flag.String("all-jobs", "data/ercot_grid_rl_synthetic_trace_all_jobs.json", "all_jobs trace file")
	rlMinPath := flag.String("rl-min", "data/ercot_grid_rl_synthetic_trace_rl_min_instability.json", "rl_min_instability trace file")
	interval := flag.Duration("interval", replay.DefaultInterval, "delay between frames")
	tlsCert := flag.String("tls-cert", "", "TLS cert path (serves wss:// if set with --tls-key)")
	tlsKey := flag.String("tls-key", "", "TLS key path (serves wss:// if set with --tls-cert)")
	showVersion := flag.Bool("v", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	allJobs, err := replay.LoadTrace(*allJobsPath)
	if err != nil {
		log.Fatalf("load all_jobs trace: %v", err)
	}
	rlMin, err := replay.LoadTrace(*rlMinPath)
	if err != nil {
		log.Fatalf("load rl_min_instability trace: %v", err)
	}
	items := replay.Merge(allJobs, rlMin)
	log.Printf("gridstream version=%s records=%d interval=%s", version.String(), len(items), *interval)

	mux := http.NewServeMux()
	replay.NewServer(items, replay.WithInterval(*interval)).RegisterRoutes(mux)
	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Printf("gridstream listening on %s", *addr)
	if *tlsCert != "" && *tlsKey != "" {
		cfg, errTLS := api.ServerTLSConfig(*tlsCert, *tlsKey, "")
		if errTLS != nil {
			log.Fatalf("failed to build TLS config: %v", errTLS)
		}
		srv.TLSConfig = cfg
		err = srv.ListenAndServeTLS("", "")
	} else {
		err = srv.ListenAndServe()
	}
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("server error: %v", err)
	}
}
