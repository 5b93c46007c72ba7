package datastructure

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/dsnet/compress/bzip2"
	"github.com/lintang-b-s/go-osm-routing/pkg/geo"
	"github.com/lintang-b-s/go-osm-routing/pkg/util"
)

// on-disk layout: header, vertex table, edge table, out offset array,
// geometry pool. every record is fixed width little-endian, so a stored
// graph round-trips bit exact through WriteGraph/ReadGraph.
const (
	graphMagic   uint32 = 0x4752534f // file starts with "OSRG"
	versionMajor uint16 = 1
	versionMinor uint16 = 0
)

const (
	flagOneway uint8 = 1 << 0
)

type graphHeader struct {
	Magic        uint32
	VersionMajor uint16
	VersionMinor uint16
	NumVertices  uint32
	NumEdges     uint32
	NumPoints    uint32
}

type coordRecord struct {
	Lat float64
	Lon float64
}

type edgeRecord struct {
	Tail      uint32
	Head      uint32
	Reverse   uint32
	Weight    float64
	Dist      float64
	RoadClass uint8
	Flags     uint8
	GeomFirst uint32
	GeomCount uint32
}

// WriteGraph serializes the graph to w.
func (g *Graph) WriteGraph(w io.Writer) error {
	bw := bufio.NewWriter(w)

	n := g.NumberOfVertices()
	m := g.NumberOfEdges()

	header := graphHeader{
		Magic:        graphMagic,
		VersionMajor: versionMajor,
		VersionMinor: versionMinor,
		NumVertices:  uint32(n),
		NumEdges:     uint32(m),
		NumPoints:    uint32(len(g.geometry)),
	}
	if err := binary.Write(bw, binary.LittleEndian, header); err != nil {
		return err
	}

	vertexRecords := make([]coordRecord, n)
	for i, v := range g.vertices[:n] {
		vertexRecords[i] = coordRecord{Lat: v.lat, Lon: v.lon}
	}
	if err := binary.Write(bw, binary.LittleEndian, vertexRecords); err != nil {
		return err
	}

	edgeRecords := make([]edgeRecord, m)
	for i, e := range g.outEdges {
		var flags uint8
		if !e.HasReverse() {
			flags |= flagOneway
		}
		edgeRecords[i] = edgeRecord{
			Tail:      uint32(e.tail),
			Head:      uint32(e.head),
			Reverse:   uint32(e.reverse),
			Weight:    e.weight,
			Dist:      e.dist,
			RoadClass: e.roadClass,
			Flags:     flags,
			GeomFirst: uint32(e.geomFirst),
			GeomCount: uint32(e.geomCount),
		}
	}
	if err := binary.Write(bw, binary.LittleEndian, edgeRecords); err != nil {
		return err
	}

	offsets := make([]uint32, n+1)
	for v := 0; v <= n; v++ {
		offsets[v] = uint32(g.vertices[v].firstOut)
	}
	if err := binary.Write(bw, binary.LittleEndian, offsets); err != nil {
		return err
	}

	pointRecords := make([]coordRecord, len(g.geometry))
	for i, c := range g.geometry {
		pointRecords[i] = coordRecord{Lat: c.GetLat(), Lon: c.GetLon()}
	}
	if err := binary.Write(bw, binary.LittleEndian, pointRecords); err != nil {
		return err
	}

	return bw.Flush()
}

// ReadGraph deserializes a graph written by WriteGraph. Bzip2 compressed
// streams are detected by their magic bytes and decompressed transparently.
// The result is fully validated, a corrupt or truncated file never yields a
// partial graph.
func ReadGraph(r io.Reader) (*Graph, error) {
	br := bufio.NewReader(r)

	var src io.Reader = br
	if magic, err := br.Peek(3); err == nil && string(magic) == "BZh" {
		bz, err := bzip2.NewReader(br, &bzip2.ReaderConfig{})
		if err != nil {
			return nil, util.WrapErrorf(err, util.ErrCorruptGraph, "open bzip2 graph stream")
		}
		src = bufio.NewReader(bz)
	}

	var header graphHeader
	if err := binary.Read(src, binary.LittleEndian, &header); err != nil {
		return nil, util.WrapErrorf(err, util.ErrCorruptGraph, "read graph header")
	}
	if header.Magic != graphMagic {
		return nil, util.WrapErrorf(fmt.Errorf("bad magic 0x%08x", header.Magic),
			util.ErrCorruptGraph, "not a road network graph file")
	}
	if header.VersionMajor != versionMajor {
		return nil, util.WrapErrorf(
			fmt.Errorf("file version %d.%d, supported %d.x",
				header.VersionMajor, header.VersionMinor, versionMajor),
			util.ErrVersionMismatch, "unsupported graph file version")
	}
	if header.NumVertices == 0 || header.NumEdges == 0 {
		return nil, util.WrapErrorf(fmt.Errorf("empty graph"),
			util.ErrCorruptGraph, "graph file without vertices or edges")
	}

	vertexRecords := make([]coordRecord, header.NumVertices)
	if err := binary.Read(src, binary.LittleEndian, vertexRecords); err != nil {
		return nil, util.WrapErrorf(err, util.ErrCorruptGraph, "read vertex table")
	}

	edgeRecords := make([]edgeRecord, header.NumEdges)
	if err := binary.Read(src, binary.LittleEndian, edgeRecords); err != nil {
		return nil, util.WrapErrorf(err, util.ErrCorruptGraph, "read edge table")
	}

	offsets := make([]uint32, header.NumVertices+1)
	if err := binary.Read(src, binary.LittleEndian, offsets); err != nil {
		return nil, util.WrapErrorf(err, util.ErrCorruptGraph, "read offset array")
	}

	pointRecords := make([]coordRecord, header.NumPoints)
	if err := binary.Read(src, binary.LittleEndian, pointRecords); err != nil {
		return nil, util.WrapErrorf(err, util.ErrCorruptGraph, "read geometry pool")
	}

	vertices := make([]*Vertex, header.NumVertices)
	for i, rec := range vertexRecords {
		vertices[i] = NewVertex(rec.Lat, rec.Lon, Index(i))
	}

	edges := make([]*Edge, header.NumEdges)
	for i, rec := range edgeRecords {
		// endpoints must be checked here, graph validation indexes by them
		if rec.Tail >= header.NumVertices || rec.Head >= header.NumVertices {
			return nil, util.WrapErrorf(fmt.Errorf("edge %d endpoint out of range", i),
				util.ErrCorruptGraph, "inconsistent edge table")
		}
		edges[i] = NewEdgeComplete(Index(i), Index(rec.Tail), Index(rec.Head),
			Index(rec.Reverse), rec.Weight, rec.Dist, rec.RoadClass,
			Index(rec.GeomFirst), Index(rec.GeomCount))

		oneway := rec.Flags&flagOneway != 0
		if oneway != (Index(rec.Reverse) == INVALID_EDGE_ID) {
			return nil, util.WrapErrorf(fmt.Errorf("edge %d oneway flag contradicts reverse link", i),
				util.ErrCorruptGraph, "inconsistent edge table")
		}
	}

	geometry := make([]geo.Coordinate, header.NumPoints)
	for i, rec := range pointRecords {
		geometry[i] = geo.NewCoordinate(rec.Lat, rec.Lon)
	}

	g, err := NewGraph(vertices, edges, geometry)
	if err != nil {
		return nil, util.WrapErrorf(err, util.ErrCorruptGraph, "graph file failed validation")
	}

	// the stored offsets are redundant with the edge ordering. a mismatch
	// means the file was tampered with or truncated mid record.
	for v := 0; v <= g.NumberOfVertices(); v++ {
		if offsets[v] != uint32(g.vertices[v].firstOut) {
			return nil, util.WrapErrorf(fmt.Errorf("offset of vertex %d is %d, derived %d",
				v, offsets[v], g.vertices[v].firstOut),
				util.ErrCorruptGraph, "inconsistent offset array")
		}
	}

	return g, nil
}

// SaveGraph writes the graph to path, bzip2 compressed when compress is set.
func (g *Graph) SaveGraph(path string, compress bool) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	if compress {
		bz, err := bzip2.NewWriter(f, &bzip2.WriterConfig{})
		if err != nil {
			f.Close()
			return err
		}
		if err := g.WriteGraph(bz); err != nil {
			f.Close()
			return err
		}
		if err := bz.Close(); err != nil {
			f.Close()
			return err
		}
	} else {
		if err := g.WriteGraph(f); err != nil {
			f.Close()
			return err
		}
	}

	return f.Close()
}

// LoadGraph reads a graph file written by SaveGraph.
func LoadGraph(path string) (*Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return ReadGraph(f)
}
