package services

import (
	"context"
	"fmt"
	"time"

	"github.com/graph-gophers/dataloader/v7"

	"github.com/setuhealth/setu/backend/internal/domain/entities"
	"github.com/setuhealth/setu/backend/internal/domain/repositories"
)

// hospitalLoaderWait bounds how long a partial batch waits for more keys
const hospitalLoaderWait = time.Millisecond

// newHospitalLoader batches hospital lookups into one GetByIDs call. The batch
// dispatches as soon as batchSize keys are queued.
func newHospitalLoader(repo repositories.HospitalRepository, batchSize int) *dataloader.Loader[string, *entities.Hospital] {
	return dataloader.NewBatchedLoader(func(ctx context.Context, keys []string) []*dataloader.Result[*entities.Hospital] {
		results := make([]*dataloader.Result[*entities.Hospital], len(keys))
		hospitals, err := repo.GetByIDs(ctx, keys)

		hospitalMap := make(map[string]*entities.Hospital)
		if err == nil {
			for _, h := range hospitals {
				hospitalMap[h.ID] = h
			}
		}

		for i, key := range keys {
			if err != nil {
				results[i] = &dataloader.Result[*entities.Hospital]{Error: err}
			} else if h, ok := hospitalMap[key]; ok {
				results[i] = &dataloader.Result[*entities.Hospital]{Data: h}
			} else {
				results[i] = &dataloader.Result[*entities.Hospital]{Error: fmt.Errorf("hospital %s not found", key)}
			}
		}
		return results
	}, dataloader.WithBatchCapacity[string, *entities.Hospital](batchSize),
		dataloader.WithWait[string, *entities.Hospital](hospitalLoaderWait))
}
