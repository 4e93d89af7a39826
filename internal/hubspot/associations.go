package hubspot

import (
	"context"
	"encoding/json"
	"net/http"
)

// AssociationResult is one "from" record and the ids it is linked to.
type AssociationResult struct {
	FromID string
	ToIDs  []string
}

type assocBatchResp struct {
	Results []struct {
		From struct {
			ID string `json:"id"`
		} `json:"from"`
		To []struct {
			ToObjectID json.Number `json:"toObjectId"`
		} `json:"to"`
	} `json:"results"`
}

// BatchReadAssociations reads v4 associations from fromType records to
// toType. Inputs without associations are simply missing from the result;
// HubSpot reports them as errors inside a 207 answer, which is not a failure.
func (c *Client) BatchReadAssociations(ctx context.Context, fromType, toType string, ids []string) ([]AssociationResult, error) {
	var out []AssociationResult
	for _, chunk := range Chunk(ids, MaxBatchInputs) {
		body := map[string]any{"inputs": inputs(chunk)}
		var resp assocBatchResp
		path := "/crm/v4/associations/" + fromType + "/" + toType + "/batch/read"
		if err := c.do(ctx, http.MethodPost, path, body, &resp); err != nil {
			return nil, err
		}
		for _, r := range resp.Results {
			res := AssociationResult{FromID: r.From.ID}
			for _, to := range r.To {
				if id := to.ToObjectID.String(); id != "" {
					res.ToIDs = append(res.ToIDs, id)
				}
			}
			out = append(out, res)
		}
	}
	return out, nil
}
