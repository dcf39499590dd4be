package jobs

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/pedrolabre/personal-finance-manager/internal/pipeline"
	"github.com/rs/zerolog"
)

// Importer is the part of *pipeline.Importer that import jobs run.
type Importer interface {
	Import(ctx context.Context, text string, format pipeline.Format) (*pipeline.Result, error)
	Preview(ctx context.Context, text string, format pipeline.Format) (*pipeline.Result, error)
	ImportGCS(ctx context.Context, gcsURI string, format pipeline.Format, dryRun bool) (*pipeline.Result, error)
}

// NewImportHandler returns a JobHandler that runs import jobs and stores
// the importer's Result on the job. Only a failed GCS fetch is retried: a
// partially materialized text import must not run twice.
func NewImportHandler(im Importer, log zerolog.Logger) JobHandler {
	return func(ctx context.Context, job Job) error {
		ij, ok := job.(*ImportJob)
		if !ok {
			return Permanent(fmt.Errorf("unexpected job type: %s", job.GetType()))
		}

		jl := log.With().Str("job_id", ij.JobID).Str("source", string(ij.Source)).Logger()
		jl.Info().Bool("dry_run", ij.DryRun).Msg("Processing import job")

		var (
			res *pipeline.Result
			err error
		)
		switch ij.Source {
		case SourceGCS:
			res, err = im.ImportGCS(ctx, ij.GCSURI, ij.Format, ij.DryRun)
			if err != nil && !errors.Is(err, pipeline.ErrNoFetcher) && ctx.Err() == nil && res == nil {
				jl.Warn().Err(err).Msg("GCS import failed, will retry")
				return err
			}
		case SourceText, "":
			if strings.TrimSpace(ij.Text) == "" {
				return Permanent(errors.New("import job has no text"))
			}
			if ij.DryRun {
				res, err = im.Preview(ctx, ij.Text, ij.Format)
			} else {
				res, err = im.Import(ctx, ij.Text, ij.Format)
			}
		default:
			return Permanent(fmt.Errorf("unknown import source %q", ij.Source))
		}

		if res != nil {
			ij.Result = res
		}
		if err != nil {
			jl.Error().Err(err).Msg("Import job failed")
			return Permanent(err)
		}

		jl.Info().Str("summary", res.Summary()).Msg("Import job finished")
		return nil
	}
}
