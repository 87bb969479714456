package game

import (
	"math"

	"github.com/4cecoder/blobarena/models"
)

// DefaultCellSize is the side of one grid cell in arena units.
const DefaultCellSize = 100.0

// PelletGrid buckets pellets by the cell of their broad-phase box so a blob only
// looks at pellets near it. Pellets never move, so entries are added once and
// removed by id when absorbed.
type PelletGrid struct {
	cellSize float64
	cols     int
	rows     int
	cells    [][]uint64
}

// NewPelletGrid sizes the grid for an arena.
func NewPelletGrid(arena models.Arena, cellSize float64) *PelletGrid {
	if cellSize <= 0 {
		cellSize = DefaultCellSize
	}
	cols := int(arena.Width/cellSize) + 1
	rows := int(arena.Height/cellSize) + 1
	return &PelletGrid{
		cellSize: cellSize,
		cols:     cols,
		rows:     rows,
		cells:    make([][]uint64, cols*rows),
	}
}

func (g *PelletGrid) cellRange(box models.Box) (minCX, minCY, maxCX, maxCY int) {
	minCX = g.clampCol(int(math.Floor(box.X / g.cellSize)))
	maxCX = g.clampCol(int(math.Floor((box.X + box.W) / g.cellSize)))
	minCY = g.clampRow(int(math.Floor(box.Y / g.cellSize)))
	maxCY = g.clampRow(int(math.Floor((box.Y + box.H) / g.cellSize)))
	return
}

func (g *PelletGrid) clampCol(c int) int {
	if c < 0 {
		return 0
	}
	if c >= g.cols {
		return g.cols - 1
	}
	return c
}

func (g *PelletGrid) clampRow(r int) int {
	if r < 0 {
		return 0
	}
	if r >= g.rows {
		return g.rows - 1
	}
	return r
}

// Insert adds the pellet to every cell its box touches.
func (g *PelletGrid) Insert(p *models.Pellet) {
	minCX, minCY, maxCX, maxCY := g.cellRange(p.Box())
	for cy := minCY; cy <= maxCY; cy++ {
		for cx := minCX; cx <= maxCX; cx++ {
			idx := cy*g.cols + cx
			g.cells[idx] = append(g.cells[idx], p.ID)
		}
	}
}

// Remove drops the pellet from every cell its box touches. Swap-remove keeps
// each cell dense.
func (g *PelletGrid) Remove(p *models.Pellet) {
	minCX, minCY, maxCX, maxCY := g.cellRange(p.Box())
	for cy := minCY; cy <= maxCY; cy++ {
		for cx := minCX; cx <= maxCX; cx++ {
			idx := cy*g.cols + cx
			cell := g.cells[idx]
			for i, id := range cell {
				if id == p.ID {
					last := len(cell) - 1
					cell[i] = cell[last]
					g.cells[idx] = cell[:last]
					break
				}
			}
		}
	}
}

// QueryBuf appends the ids of pellets in cells overlapping box to buf. A pellet
// spanning several cells may appear more than once; callers dedupe through the
// exact box test against the live pellet set.
func (g *PelletGrid) QueryBuf(box models.Box, buf []uint64) []uint64 {
	minCX, minCY, maxCX, maxCY := g.cellRange(box)
	for cy := minCY; cy <= maxCY; cy++ {
		for cx := minCX; cx <= maxCX; cx++ {
			buf = append(buf, g.cells[cy*g.cols+cx]...)
		}
	}
	return buf
}
