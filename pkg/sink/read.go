package sink

import (
	"fmt"

	"github.com/xitongsys/parquet-go-source/buffer"
	"github.com/xitongsys/parquet-go/reader"
)

// ReadFile decodes a Parquet object into rows of T, a struct carrying
// parquet tags for the columns of interest.
func ReadFile[T any](data []byte) ([]T, error) {
	pr, err := reader.NewParquetReader(buffer.NewBufferFileFromBytes(data), new(T), 1)
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}
	defer pr.ReadStop()

	rows := make([]T, int(pr.GetNumRows()))
	if len(rows) == 0 {
		return rows, nil
	}
	if err := pr.Read(&rows); err != nil {
		return nil, fmt.Errorf("failed to read parquet rows: %w", err)
	}
	return rows, nil
}
