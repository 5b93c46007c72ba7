package main

import (
	"context"
	"flag"

	"github.com/lintang-b-s/go-osm-routing/pkg/logger"
	"github.com/lintang-b-s/go-osm-routing/pkg/osmparser"
	"github.com/lintang-b-s/go-osm-routing/pkg/util"
	"go.uber.org/zap"
)

var (
	mapFile  = flag.String("osm", "./data/map.osm.pbf", "openstreetmap pbf extract to compile")
	outFile  = flag.String("out", "./data/graph.bin", "output graph file")
	compress = flag.Bool("compress", false, "bzip2 compress the graph payload of the output")
)

func main() {
	flag.Parse()
	log, err := logger.New()
	if err != nil {
		panic(err)
	}
	cfg, err := util.ReadConfig()
	if err != nil {
		panic(err)
	}

	parser := osmparser.NewOSMParser(osmparser.NewWayFilter(cfg), log, cfg.BuildWorkers)
	graph, err := parser.Parse(context.Background(), *mapFile)
	if err != nil {
		panic(err)
	}

	if err := graph.SaveGraph(*outFile, *compress); err != nil {
		panic(err)
	}

	log.Info("graph build completed",
		zap.String("output", *outFile),
		zap.Int("vertices", graph.NumberOfVertices()),
		zap.Int("edges", graph.NumberOfEdges()),
	)
}
