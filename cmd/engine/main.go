package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"runtime/pprof"
	"strings"

	"github.com/lintang-b-s/accessx/pkg/contractor"
	"github.com/lintang-b-s/accessx/pkg/engine/accessibility"
	"github.com/lintang-b-s/accessx/pkg/kv"
	"github.com/lintang-b-s/accessx/pkg/logger"
	"github.com/lintang-b-s/accessx/pkg/server/rest"
	"github.com/lintang-b-s/accessx/pkg/server/rest/service"
	"github.com/lintang-b-s/accessx/pkg/snap"

	"github.com/cockroachdb/pebble"
	"github.com/dgraph-io/badger/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"

	_ "net/http/pprof"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

var (
	listenAddr = flag.String("listenaddr", ":5000", "server listen address")
	dataDir    = flag.String("datadir", "accessx_data", "directory holding graph snapshots and spatial index stores")
	variants   = flag.Int("variants", 2, "number of graph weight variants to load")
	workers    = flag.Int("workers", runtime.NumCPU(), "worker slots for concurrent graph queries")
	debugLog   = flag.Bool("debuglog", false, "human readable development logging")
	memprofile = flag.String("memprofile", "", "write memory profile to this file")
)

//	@title			accessx API
//	@version		1.0
//	@description	spatial-network accessibility engine over openstreetmap road networks

//	@description 	reachable-set, nearest-POI and decay-weighted aggregation queries served by contraction hierarchies, one graph variant per edge-weight kind

// @host		localhost:5000
// @BasePath	/api
// @schemes	http
func main() {
	flag.Parse()

	zlog, err := logger.New(*debugLog)
	if err != nil {
		log.Fatal(err)
	}
	defer zlog.Sync()

	graphs := make([]*contractor.ContractedGraph, 0, *variants)
	for variant := 0; variant < *variants; variant++ {
		path := filepath.Join(*dataDir, fmt.Sprintf("accessx_ch_%d.graph", variant))
		g := contractor.NewContractedGraph()
		if err := g.LoadGraph(path); err != nil {
			zlog.Fatal("loading graph snapshot", zap.String("path", path), zap.Error(err))
		}
		graphs = append(graphs, g)
	}
	recordMemProfile(memprofile, "load_contracted_graphs")

	gs, err := accessibility.NewGraphSetFromContracted(graphs, *workers)
	if err != nil {
		zlog.Fatal("building graph set", zap.Error(err))
	}
	engine, err := accessibility.NewEngine(zlog, gs)
	if err != nil {
		zlog.Fatal("building accessibility engine", zap.Error(err))
	}

	nodeDB, err := badger.Open(badger.DefaultOptions(filepath.Join(*dataDir, "nodes")).WithLogger(nil))
	if err != nil {
		zlog.Fatal("opening node index", zap.Error(err))
	}
	defer nodeDB.Close()
	nodeIndex := kv.NewNodeIndex(nodeDB)

	rangeDB, err := pebble.Open(filepath.Join(*dataDir, "ranges"), &pebble.Options{})
	if err != nil {
		zlog.Fatal("opening range store", zap.Error(err))
	}
	defer rangeDB.Close()
	rangeStore := kv.NewRangeStore(rangeDB)

	nodes := graphs[0].GetNodes()
	snapper := snap.NewNodeSnapper(nodes)

	svc := service.NewAccessService(zlog, engine, nodeIndex, snapper, rangeStore, graphs[0], nodes)
	if err := svc.WarmRangeCache(context.Background()); err != nil {
		zlog.Fatal("warm-loading range snapshots", zap.Error(err))
	}
	recordMemProfile(memprofile, "service_init")

	reg := prometheus.NewRegistry()
	m := rest.NewMetrics(reg)

	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(rest.PromeHttpMiddleware(m))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Mount("/debug", middleware.Profiler())

	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("http://localhost:5000/swagger/doc.json"),
	))

	rest.AccessRouter(r, svc)

	zlog.Info("accessibility engine ready",
		zap.Int("nodes", engine.NumNodes()),
		zap.Int("variants", engine.NumVariants()),
		zap.Int("workers", *workers),
		zap.String("listenaddr", *listenAddr))

	log.Fatal(http.ListenAndServe(*listenAddr, r))
}

func recordMemProfile(memprofile *string, name string) {
	if *memprofile != "" {
		*memprofile = strings.Replace(*memprofile, ".mprof", fmt.Sprintf("%s.mprof", name), -1)
		f, err := os.Create(*memprofile)
		if err != nil {
			log.Fatal(err)
		}
		pprof.WriteHeapProfile(f)
		f.Close()
	}
}
