package local

import (
	"context"
	"fmt"

	"github.com/shpitdev/monuments-pipeline/pkg/pipeline/core"
	"github.com/shpitdev/monuments-pipeline/pkg/pipeline/record"
	"github.com/shpitdev/monuments-pipeline/pkg/pipeline/schema"
)

// FileSource loads records from a local .csv or .json file checked against Contract.
type FileSource struct {
	Path     string
	Contract schema.Contract
}

var _ core.Source[*record.Record] = FileSource{}

func (s FileSource) Load(ctx context.Context) ([]*record.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rows, err := ReadRecordsFile(s.Path, s.Contract)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.Path, err)
	}
	return rows, nil
}
