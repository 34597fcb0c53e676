package geometry_test

import (
	"fmt"

	"github.com/matzehuels/fieldtrial/pkg/field/geometry"
)

func ExampleCompute() {
	l, err := geometry.Compute(geometry.FieldSpec{
		Width: 160, Height: 270, Border: 10,
		Rows: 3, Cols: 4, GapX: 3, GapY: 3,
		CellRows: 8, CellCols: 5,
	})
	if err != nil {
		panic(err)
	}

	b := l.Blocks[0]
	fmt.Printf("blocks: %d\n", len(l.Blocks))
	fmt.Printf("B%d origin: (%.0f, %.0f)\n", b.ID, b.Left, b.Bottom)
	fmt.Printf("block size: %.2f x %.2f\n", b.Width(), b.Height())
	fmt.Printf("cell size: %.2f x %.2f\n", l.CellWidth(), l.CellHeight())
	// Output:
	// blocks: 12
	// B1 origin: (10, 10)
	// block size: 32.75 x 81.33
	// cell size: 6.55 x 10.17
}
