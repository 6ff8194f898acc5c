package datasource

import (
	"fmt"

	"github.com/yohannes916/mismartera/pkg/storage"
	"github.com/yohannes916/mismartera/pkg/timeservice"
	"github.com/yohannes916/mismartera/pkg/types"
)

// New allocates a data source by name. "parquet" is the only built-in; the
// switch leaves room for remote providers.
func New(name string, root, exchangeGroup string, ts types.TimeService) (types.DataSource, error) {
	switch name {

	case "parquet", "":
		loc, err := timeservice.LocationForGroup(exchangeGroup)
		if err != nil {
			return nil, err
		}
		store := storage.NewStore(root, exchangeGroup, loc)
		return NewParquetSource(store, ts), nil

	default:
		return nil, fmt.Errorf("unsupported data source: %v", name)
	}
}
