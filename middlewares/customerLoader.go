package middlewares

import (
	"context"

	"github.com/graph-gophers/dataloader/v7"
	"github.com/mmdatafocus/autoservice_backend/models"
	"github.com/mmdatafocus/autoservice_backend/store"
)

type customerReader struct {
	store store.Store
}

func (r *customerReader) getCustomers(ctx context.Context, ids []string) []*dataloader.Result[*models.Customer] {
	results, err := r.store.GetCustomers(ctx, ids)
	if err != nil {
		return handleError[*models.Customer](len(ids), err)
	}
	return generateLoaderResults(results, ids, func(c *models.Customer) string { return c.ID })
}

func GetCustomer(ctx context.Context, id string) (*models.Customer, error) {
	loaders := For(ctx)
	return loaders.customerLoader.Load(ctx, id)()
}

// GetCustomers returns one entry per id; errs[i] is set for ids that could not be loaded.
func GetCustomers(ctx context.Context, ids []string) ([]*models.Customer, []error) {
	loaders := For(ctx)
	return loaders.customerLoader.LoadMany(ctx, ids)()
}
