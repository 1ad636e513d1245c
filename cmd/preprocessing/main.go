package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime/pprof"
	"strings"
	"sync"

	"github.com/lintang-b-s/accessx/pkg/contractor"
	"github.com/lintang-b-s/accessx/pkg/datastructure"
	"github.com/lintang-b-s/accessx/pkg/kv"
	"github.com/lintang-b-s/accessx/pkg/osmparser"

	"github.com/dgraph-io/badger/v4"
)

var (
	mapFile    = flag.String("f", "solo_jogja.osm.pbf", "openstreetmap pbf file for the road network graph")
	dataDir    = flag.String("datadir", "accessx_data", "output directory for graph snapshots and the node index")
	cpuprofile = flag.String("cpuprofile", "", "write cpu profile to file")
	memprofile = flag.String("memprofile", "", "write memory profile to this file")
)

// variant 0 carries metric distance in meters, variant 1 travel time in
// minutes; both share the node table and topology.
func main() {
	flag.Parse()
	if *cpuprofile != "" {
		// https://go.dev/blog/pprof
		f, err := os.Create(*cpuprofile)
		if err != nil {
			log.Fatal(err)
		}
		defer f.Close()

		pprof.StartCPUProfile(f)
		defer pprof.StopCPUProfile()
	}

	if err := os.MkdirAll(*dataDir, 0755); err != nil {
		log.Fatal(err)
	}

	log.Printf("reading osm file %s", *mapFile)
	parser := osmparser.NewOsmParser()
	nodes, rawEdges, err := parser.Parse(*mapFile)
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("parsed %d nodes and %d edges", len(nodes), len(rawEdges))
	recordMemProfile(memprofile, "parsing_osm_data")

	db, err := badger.Open(badger.DefaultOptions(filepath.Join(*dataDir, "nodes")).WithLogger(nil))
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()
	nodeIndex := kv.NewNodeIndex(db)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := nodeIndex.BuildH3IndexedNodes(ctx, nodes); err != nil {
			log.Printf("error building h3 node index: %v", err)
			panic(err)
		}
	}()

	weightOf := []func(e datastructure.RawEdge) float64{
		func(e datastructure.RawEdge) float64 { return e.DistanceMeters },
		func(e datastructure.RawEdge) float64 { return e.TravelMinutes },
	}

	for variant := range weightOf {
		edges := make([]datastructure.Edge, 0, len(rawEdges))
		for _, e := range rawEdges {
			edges = append(edges, datastructure.NewEdge(e.FromNodeID, e.ToNodeID,
				weightOf[variant](e), e.DistanceMeters))
		}

		g := contractor.NewContractedGraph()
		if err := g.InitGraph(nodes, edges, true); err != nil {
			log.Fatal(err)
		}

		if variant == 0 {
			log.Printf("road network has %d strongly connected components, largest holds %d nodes",
				g.GetSCCCount(), g.GetLargestSCCSize())
		}

		log.Printf("contracting graph variant %d...", variant)
		if err := g.Contraction(); err != nil {
			log.Fatal(err)
		}

		path := filepath.Join(*dataDir, fmt.Sprintf("accessx_ch_%d.graph", variant))
		log.Printf("saving contracted graph variant %d to %s", variant, path)
		if err := g.SaveToFile(path); err != nil {
			log.Fatal(err)
		}
	}

	wg.Wait()
	recordMemProfile(memprofile, "finish_contracting_graphs")

	fmt.Printf("\npreprocessing done, graph snapshots and node index written to %s\n", *dataDir)
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
