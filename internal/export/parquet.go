// Package export writes rating snapshots to Parquet, the way
// pkg/cute's WriteParquet writes a game log: a flat record type with
// parquet struct tags, SNAPPY compression, one writer.Write call per row.
package export

import (
	"fmt"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/reader"
	"github.com/xitongsys/parquet-go/writer"

	"whole-history-rating/whr"
)

// RatingRecord is one (player, day) rating row in the exported Parquet
// file.
type RatingRecord struct {
	Player      string  `parquet:"name=player, type=BYTE_ARRAY, convertedtype=UTF8"`
	Day         int32   `parquet:"name=day, type=INT32"`
	Elo         float64 `parquet:"name=elo, type=DOUBLE"`
	Uncertainty float64 `parquet:"name=uncertainty, type=DOUBLE"`
}

// defaultParallelism sets writer.NewParquetWriter's row-group parallelism;
// rating snapshots are small enough that more workers would only add
// overhead.
const defaultParallelism = 4

// WriteRatings snapshots every player in base to a Parquet file at path,
// ordered the same way Base.GetOrderedRatings returns them.
func WriteRatings(path string, base *whr.Base) error {
	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		return fmt.Errorf("export: open %s: %w", path, err)
	}
	defer fw.Close()

	pw, err := writer.NewParquetWriter(fw, new(RatingRecord), defaultParallelism)
	if err != nil {
		return fmt.Errorf("export: new parquet writer: %w", err)
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for _, pr := range base.GetOrderedRatings() {
		for _, row := range pr.Ratings {
			rec := RatingRecord{
				Player:      pr.Name,
				Day:         int32(row.Day),
				Elo:         row.Elo,
				Uncertainty: row.Uncertainty,
			}
			if err := pw.Write(rec); err != nil {
				return fmt.Errorf("export: write row for %s: %w", pr.Name, err)
			}
		}
	}
	if err := pw.WriteStop(); err != nil {
		return fmt.Errorf("export: finalize %s: %w", path, err)
	}
	return fw.Close()
}

// ReadRatings reads a Parquet file written by WriteRatings back into rows.
func ReadRatings(path string) ([]RatingRecord, error) {
	fr, err := local.NewLocalFileReader(path)
	if err != nil {
		return nil, fmt.Errorf("export: open %s: %w", path, err)
	}
	defer fr.Close()

	pr, err := reader.NewParquetReader(fr, new(RatingRecord), defaultParallelism)
	if err != nil {
		return nil, fmt.Errorf("export: new parquet reader: %w", err)
	}
	defer pr.ReadStop()

	n := int(pr.GetNumRows())
	rows := make([]RatingRecord, n)
	if err := pr.Read(&rows); err != nil {
		return nil, fmt.Errorf("export: read %s: %w", path, err)
	}
	return rows, nil
}
