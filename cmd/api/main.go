package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fieldserve/pingate/internal/di"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		runner, err := di.InitializeMigrationRunner()
		if err != nil {
			log.Fatal(err)
		}
		if err := runner.Run(); err != nil {
			log.Fatal(err)
		}
		return
	}

	a, err := di.InitializeApp()
	if err != nil {
		log.Fatal(err)
	}

	janitorCtx, stopJanitor := context.WithCancel(context.Background())
	defer stopJanitor()
	go a.Janitor.Run(janitorCtx)

	go func() {
		a.Logger.Info("server starting", "addr", a.Server.Addr)
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = a.Server.Shutdown(ctx)
}
