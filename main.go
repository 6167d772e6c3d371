package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/GrainArc/TileServe/cache"
	"github.com/GrainArc/TileServe/config"
	"github.com/GrainArc/TileServe/filesource"
	"github.com/GrainArc/TileServe/render"
	"github.com/GrainArc/TileServe/routers"
	"github.com/GrainArc/TileServe/style"
	"github.com/GrainArc/TileServe/views"
)

func main() {
	cfgFile := flag.String("config", "", "configuration file")
	addr := flag.String("addr", ":8080", "listen address")
	flag.Parse()

	config.InitLog()
	conf := config.InitConfig(*cfgFile)
	if err := conf.Validate(); err != nil {
		config.Log.Fatalf("configuration invalid: %s", err)
	}

	src, err := filesource.NewSource()
	if err != nil {
		config.Log.Fatalf("file source init failed: %s", err)
	}

	repo := style.LoadAll(context.Background(), conf, src)
	config.Log.Infof("loaded %d styles, %d data sources", len(repo.Styles), len(repo.Data))

	pools, err := render.NewPools(conf, repo)
	if err != nil {
		config.Log.Fatalf("renderer pools init failed: %s", err)
	}

	var out *cache.Output
	if config.MainFlags.UseOutputCache {
		mem := cache.NewMemory(config.MainFlags.MemoryCacheSize)
		store, err := cache.OpenStore(filepath.Join(conf.Options.Paths.Root, "output_cache.db"))
		if err != nil {
			config.Log.Warnf("persistent output cache disabled: %s", err)
			store = nil
		}
		out = cache.NewOutput(mem, store)
		config.Log.Info("output cache enabled")
	}

	gin.SetMode(gin.ReleaseMode)
	server := &views.Server{Conf: conf, Repo: repo, Src: src, Pools: pools}
	engine := routers.Setup(server, out, config.MainFlags.AllowedOrigins)

	httpServer := &http.Server{Addr: *addr, Handler: engine}
	go func() {
		config.Log.Infof("listening on %s", *addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			config.Log.Fatalf("http server: %s", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	config.Log.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		config.Log.Warnf("http shutdown: %s", err)
	}
	pools.Dispose()
	src.Dispose()
}
