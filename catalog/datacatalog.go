package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/csc-fi/etsin-harvester/lookup"
)

// EnsureDataCatalog makes the catalog hold the reference data catalog:
// updated in place when it exists, created otherwise. created reports
// which happened.
func (c *HTTPClient) EnsureDataCatalog(ctx context.Context, dc *lookup.DataCatalog) (created bool, err error) {
	id := dc.Identifier()
	if id == "" {
		return false, errors.New("data catalog has no identifier")
	}

	body, err := structpb.NewStruct(map[string]any{"catalog_json": dc.CatalogJSON})
	if err != nil {
		return false, fmt.Errorf("converting data catalog %s: %w", id, err)
	}
	payload, err := protojson.Marshal(body)
	if err != nil {
		return false, fmt.Errorf("encoding data catalog %s: %w", id, err)
	}

	path := dataCatalogsPath + "/" + url.PathEscape(id)
	exists, err := c.head(ctx, "data catalog exists", path)
	if err != nil {
		return false, err
	}

	if exists {
		resp, err := c.do(ctx, "update data catalog", http.MethodPut, path, payload)
		if err != nil {
			return false, err
		}
		if !resp.ok() {
			return false, resp.remoteError("update data catalog", payload)
		}
		slog.Info("updated data catalog", "identifier", id, "harvest_source", dc.HarvestSource)
		return false, nil
	}

	resp, err := c.do(ctx, "create data catalog", http.MethodPost, dataCatalogsPath, payload)
	if err != nil {
		return false, err
	}
	if !resp.ok() {
		return false, resp.remoteError("create data catalog", payload)
	}
	slog.Info("created data catalog", "identifier", id, "harvest_source", dc.HarvestSource)
	return true, nil
}
