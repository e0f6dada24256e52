package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/cmlabs-hris/campaign-attendance-go/internal/domain/attendance"
	"github.com/cmlabs-hris/campaign-attendance-go/internal/domain/hierarchy"
)

// optionID accepts both numeric and string ids from the Source.
type optionID string

func (id *optionID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = optionID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid option id %s", data)
	}
	*id = optionID(n.String())
	return nil
}

type optionList struct {
	Data []struct {
		ID   optionID `json:"id"`
		Name string   `json:"name"`
	} `json:"data"`
}

func (c *Client) listOptions(ctx context.Context, ep attendance.Endpoint, path, parentKey, parentID string) ([]hierarchy.Option, error) {
	var params url.Values
	if parentKey != "" {
		params = url.Values{}
		params.Set(parentKey, parentID)
	}

	var list optionList
	if err := c.getJSON(ctx, ep, path, params, &list); err != nil {
		return nil, err
	}

	options := make([]hierarchy.Option, 0, len(list.Data))
	for _, item := range list.Data {
		options = append(options, hierarchy.Option{ID: string(item.ID), Name: item.Name})
	}
	return options, nil
}

func (c *Client) ListRegions(ctx context.Context, ep attendance.Endpoint) ([]hierarchy.Option, error) {
	return c.listOptions(ctx, ep, "locations", "", "")
}

func (c *Client) ListAreas(ctx context.Context, ep attendance.Endpoint, regionID string) ([]hierarchy.Option, error) {
	return c.listOptions(ctx, ep, "areas", "location_id", regionID)
}

func (c *Client) ListTerritories(ctx context.Context, ep attendance.Endpoint, areaID string) ([]hierarchy.Option, error) {
	return c.listOptions(ctx, ep, "territories", "area_id", areaID)
}

func (c *Client) ListRFFPoints(ctx context.Context, ep attendance.Endpoint, territoryID string) ([]hierarchy.Option, error) {
	return c.listOptions(ctx, ep, "rff-points", "territory_id", territoryID)
}

func (c *Client) ListDesignations(ctx context.Context, ep attendance.Endpoint) ([]hierarchy.Option, error) {
	return c.listOptions(ctx, ep, "designations", "", "")
}
