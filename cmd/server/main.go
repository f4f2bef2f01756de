package main

import (
	"fmt"
	"net/http"

	"github.com/pasaporte-animal/go-pasaporte/env"
	"github.com/pasaporte-animal/go-pasaporte/server"
	"github.com/pasaporte-animal/go-pasaporte/service/logger"
	sentryutil "github.com/pasaporte-animal/go-pasaporte/service/sentry"
)

func main() {
	defer sentryutil.RecoverAndRaise(nil)

	server.Init()
	addr := fmt.Sprintf(":%d", env.GetInt("PORT"))
	logger.For(nil).Infof("Listening on %s", addr)
	if err := http.ListenAndServe(addr, nil); err != nil {
		logger.For(nil).Fatalf("server exited: %s", err)
	}
}
