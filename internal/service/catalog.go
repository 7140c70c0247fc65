package service

import (
	"context"

	"github.com/iliyamo/visit-management/internal/model"
)

// Catalog serves the read-only reference data.
type Catalog struct {
	store CatalogStore
}

func NewCatalog(d Deps) *Catalog { return &Catalog{store: d.Catalog} }

func (c *Catalog) Objectives(ctx context.Context) ([]model.Objective, error) {
	out, err := c.store.ListObjectives(ctx)
	if err != nil {
		return nil, storageErr(err)
	}
	return out, nil
}

func (c *Catalog) VisitTypes(ctx context.Context) ([]model.VisitType, error) {
	out, err := c.store.ListVisitTypes(ctx)
	if err != nil {
		return nil, storageErr(err)
	}
	return out, nil
}

func (c *Catalog) CancelReasons(ctx context.Context) ([]model.CancelReason, error) {
	out, err := c.store.ListCancelReasons(ctx)
	if err != nil {
		return nil, storageErr(err)
	}
	return out, nil
}
