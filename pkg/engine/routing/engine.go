package routing

import (
	"github.com/lintang-b-s/go-osm-routing/pkg/datastructure"
	"go.uber.org/zap"
)

// SearchEngine owns the immutable data every path query reads: the compiled
// graph and a logger. all mutable search state lives in per-query structs,
// so one engine serves any number of concurrent callers.
type SearchEngine struct {
	graph  *datastructure.Graph
	logger *zap.Logger
}

func NewSearchEngine(graph *datastructure.Graph, logger *zap.Logger) *SearchEngine {
	return &SearchEngine{
		graph:  graph,
		logger: logger,
	}
}

func (se *SearchEngine) GetGraph() *datastructure.Graph {
	return se.graph
}
