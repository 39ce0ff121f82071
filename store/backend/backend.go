// Package backend opens the store selected by STORE_DRIVER.
package backend

import (
	"context"
	"errors"
	"fmt"

	"github.com/mmdatafocus/autoservice_backend/config"
	"github.com/mmdatafocus/autoservice_backend/store"
	"github.com/mmdatafocus/autoservice_backend/store/memory"
	mongostore "github.com/mmdatafocus/autoservice_backend/store/mongo"
	mysqlstore "github.com/mmdatafocus/autoservice_backend/store/mysql"
)

// Open connects the backend named by STORE_DRIVER: mysql, mongo or memory.
func Open(ctx context.Context) (store.Store, error) {
	switch driver := config.StoreDriver(); driver {
	case "mysql":
		return mysqlstore.New(config.ConnectDatabaseWithRetry()), nil
	case "mongo":
		client := config.ConnectMongoWithRetry(ctx)
		if client == nil {
			return nil, errors.New("mongo connection cancelled")
		}
		return mongostore.New(client, config.MongoDatabaseName()), nil
	case "memory":
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown STORE_DRIVER %q", driver)
	}
}
