package middlewares

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/graph-gophers/dataloader/v7"
	"github.com/mmdatafocus/autoservice_backend/models"
	"github.com/mmdatafocus/autoservice_backend/store"
	"github.com/mmdatafocus/autoservice_backend/utils"
)

type ctxKey string

const (
	loadersKey = ctxKey("dataloaders")
)

// Loaders batch the customer and user lookups made while rendering invoice listings.
type Loaders struct {
	customerLoader *dataloader.Loader[string, *models.Customer]
	userLoader     *dataloader.Loader[string, *models.User]
}

func LoaderMiddleware(st store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		loader := NewLoaders(st)
		ctx := context.WithValue(c.Request.Context(), loadersKey, loader)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func NewLoaders(st store.Store) *Loaders {
	customerReader := &customerReader{store: st}
	userReader := &userReader{store: st}

	return &Loaders{
		customerLoader: dataloader.NewBatchedLoader(customerReader.getCustomers, dataloader.WithWait[string, *models.Customer](time.Millisecond)),
		userLoader:     dataloader.NewBatchedLoader(userReader.getUsers, dataloader.WithWait[string, *models.User](time.Millisecond)),
	}
}

// For returns the request's loaders. Contexts that did not pass through LoaderMiddleware
// get nil.
func For(ctx context.Context) *Loaders {
	loaders, _ := ctx.Value(loadersKey).(*Loaders)
	return loaders
}

// WithLoaders attaches loaders outside of gin, for tools and tests.
func WithLoaders(ctx context.Context, loaders *Loaders) context.Context {
	return context.WithValue(ctx, loadersKey, loaders)
}

// handleError creates array of result with the same error repeated for as many items requested
func handleError[T any](itemsLength int, err error) []*dataloader.Result[T] {
	result := make([]*dataloader.Result[T], itemsLength)
	for i := 0; i < itemsLength; i++ {
		result[i] = &dataloader.Result[T]{Error: err}
	}
	return result
}

// generateLoaderResults orders results to match ids; ids with no row get ErrorRecordNotFound.
func generateLoaderResults[T any](results []*T, ids []string, idOf func(*T) string) []*dataloader.Result[*T] {
	resultMap := make(map[string]*T, len(results))
	for _, result := range results {
		resultMap[idOf(result)] = result
	}

	loaderResults := make([]*dataloader.Result[*T], 0, len(ids))
	for _, id := range ids {
		data, ok := resultMap[id]
		if !ok {
			loaderResults = append(loaderResults, &dataloader.Result[*T]{Error: utils.ErrorRecordNotFound})
			continue
		}
		loaderResults = append(loaderResults, &dataloader.Result[*T]{Data: data})
	}
	return loaderResults
}
