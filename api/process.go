package api

import (
	"context"
	"fmt"

	"github.com/warp/ctr-mapper/jobs"
	"github.com/warp/ctr-mapper/maturity"
	"github.com/warp/ctr-mapper/poliza"
	"github.com/warp/ctr-mapper/store/xlsx"
)

// Process runs a queued job: it reads the uploaded workbook, runs the engine
// selected by the job type and writes the output workbook. It is the
// jobs.Handler the queue workers call.
func (h *Handler) Process(ctx context.Context, job *jobs.Job) (any, error) {
	src := xlsx.SourceFor(job.InputPath)
	sink := xlsx.NewSink(job.OutputPath)

	switch job.Type {
	case jobs.TypeMaturity:
		params, ok := job.Params.(maturity.Params)
		if !ok {
			return nil, fmt.Errorf("maturity job %s has %T params", job.ID, job.Params)
		}
		return maturity.Run(ctx, src, sink, params)
	case jobs.TypePoliza:
		params, ok := job.Params.(poliza.Params)
		if !ok {
			return nil, fmt.Errorf("poliza job %s has %T params", job.ID, job.Params)
		}
		return poliza.Run(ctx, src, sink, params)
	default:
		return nil, fmt.Errorf("unknown job type %q", job.Type)
	}
}
