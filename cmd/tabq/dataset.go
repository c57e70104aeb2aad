package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/vegasq/tabq/dataset"
	"github.com/vegasq/tabq/engine"
	"github.com/vegasq/tabq/internal/store"
)

// runDataset handles -list, -register and -dataset against the dataset store.
func (a *app) runDataset(ctx context.Context, steps []engine.TransformationStep, measures []engine.MeasureDefinition) error {
	dbPath := a.opts.dbPath
	if dbPath == "" {
		dbPath = a.cfg.DBPath
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return err
	}
	defer st.Close()

	svc := dataset.NewService(st, a.engine,
		dataset.WithLogger(a.logger),
		dataset.WithPreviewLimits(a.cfg.PreviewLimit, a.cfg.EditPreviewLimit),
	)

	switch {
	case a.opts.listDatasets:
		datasets, err := svc.List(ctx)
		if err != nil {
			return err
		}
		return a.write(datasetResult(datasets...))

	case a.opts.register != "":
		ds, err := svc.Register(ctx, a.opts.register, a.opts.file)
		if err != nil {
			return err
		}
		return a.write(datasetResult(ds))

	case a.opts.save:
		id := a.opts.datasetID
		if a.opts.steps != "" {
			if err := svc.SaveTransformations(ctx, id, steps); err != nil {
				return err
			}
			fmt.Fprintf(a.stderr, "Saved %d transformation step(s) to %s\n", len(steps), id)
		}
		if a.opts.measures != "" {
			if err := svc.SaveMeasures(ctx, id, measures); err != nil {
				return err
			}
			fmt.Fprintf(a.stderr, "Saved %d measure(s) to %s\n", len(measures), id)
		}
		return nil

	case a.opts.preview:
		res, err := a.previewDataset(ctx, svc, steps, measures)
		if err != nil {
			return err
		}
		return a.write(res)

	default:
		if a.opts.steps != "" || a.opts.measures != "" {
			return errors.New("-t and -m apply to a dataset only with -preview or -save")
		}
		req, err := a.queryRequest()
		if err != nil {
			return err
		}
		res, err := svc.Query(ctx, a.opts.datasetID, req)
		if err != nil {
			return err
		}
		return a.write(res)
	}
}

// previewDataset picks the preview surface: unsaved steps are previewed with
// the saved measures, unsaved measures with the saved steps.
func (a *app) previewDataset(ctx context.Context, svc *dataset.Service, steps []engine.TransformationStep, measures []engine.MeasureDefinition) (*engine.Result, error) {
	id := a.opts.datasetID

	switch {
	case a.opts.steps != "" && a.opts.measures != "":
		return nil, errors.New("preview either -t or -m against a dataset, not both")
	case a.opts.steps != "":
		return svc.PreviewTransformations(ctx, id, steps)
	case a.opts.measures != "":
		return svc.PreviewMeasures(ctx, id, measures)
	default:
		return svc.Preview(ctx, id, a.opts.limit)
	}
}

func datasetResult(datasets ...*dataset.Dataset) *engine.Result {
	res := &engine.Result{
		Columns:   []string{"id", "name", "file_path", "uploaded_at"},
		Data:      make([]map[string]interface{}, 0, len(datasets)),
		TotalRows: len(datasets),
	}
	for _, ds := range datasets {
		res.Data = append(res.Data, map[string]interface{}{
			"id":          ds.ID,
			"name":        ds.Name,
			"file_path":   ds.FilePath,
			"uploaded_at": ds.UploadedAt,
		})
	}
	return res
}
