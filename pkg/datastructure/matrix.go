package datastructure

// MatrixCell is one origin-destination entry of a travel time matrix.
// Unreachable pairs keep Reachable false and zeroed costs.
type MatrixCell struct {
	TravelTime float64 `json:"travel_time"` // seconds
	Distance   float64 `json:"distance"`    // meter
	Reachable  bool    `json:"reachable"`
}

func NewMatrixCell(travelTime, distance float64, reachable bool) MatrixCell {
	return MatrixCell{
		TravelTime: travelTime,
		Distance:   distance,
		Reachable:  reachable,
	}
}

// Matrix is a dense rows x cols table backed by one flat slice.
type Matrix[T any] struct {
	rows  int
	cols  int
	cells []T
}

func NewMatrix[T any](rows, cols int) *Matrix[T] {
	return &Matrix[T]{
		rows:  rows,
		cols:  cols,
		cells: make([]T, rows*cols),
	}
}

func (m *Matrix[T]) Rows() int {
	return m.rows
}

func (m *Matrix[T]) Cols() int {
	return m.cols
}

func (m *Matrix[T]) Get(row, col int) T {
	return m.cells[row*m.cols+col]
}

func (m *Matrix[T]) Set(row, col int, value T) {
	m.cells[row*m.cols+col] = value
}

// SetRow copies row values into place. len(row) must equal Cols().
func (m *Matrix[T]) SetRow(row int, values []T) {
	copy(m.cells[row*m.cols:(row+1)*m.cols], values)
}

func (m *Matrix[T]) GetRow(row int) []T {
	out := make([]T, m.cols)
	copy(out, m.cells[row*m.cols:(row+1)*m.cols])
	return out
}
