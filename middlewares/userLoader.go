package middlewares

import (
	"context"

	"github.com/graph-gophers/dataloader/v7"
	"github.com/mmdatafocus/autoservice_backend/models"
	"github.com/mmdatafocus/autoservice_backend/store"
)

type userReader struct {
	store store.Store
}

func (r *userReader) getUsers(ctx context.Context, ids []string) []*dataloader.Result[*models.User] {
	results, err := r.store.GetUsers(ctx, ids)
	if err != nil {
		return handleError[*models.User](len(ids), err)
	}
	return generateLoaderResults(results, ids, func(u *models.User) string { return u.ID })
}

func GetUser(ctx context.Context, id string) (*models.User, error) {
	loaders := For(ctx)
	return loaders.userLoader.Load(ctx, id)()
}

func GetUsers(ctx context.Context, ids []string) ([]*models.User, []error) {
	loaders := For(ctx)
	return loaders.userLoader.LoadMany(ctx, ids)()
}
