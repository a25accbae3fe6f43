package fec

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"fecharvest/internal/core/domain"
)

// ListCandidates fetches the full entity sequence for a cycle, paging
// through the candidate listing. Failure here is fatal to the run; there is
// nothing to collect without the entity set.
func (c *Client) ListCandidates(ctx context.Context, cycle int) ([]domain.Entity, error) {
	var entities []domain.Entity

	page := 1
	for {
		var resp candidateListResponse
		err := c.get(ctx, "/candidates/", map[string]string{
			"cycle":    strconv.Itoa(cycle),
			"per_page": strconv.Itoa(c.pageSize),
			"page":     strconv.Itoa(page),
			"sort":     "candidate_id",
		}, &resp)
		if err != nil {
			return nil, fmt.Errorf("candidate listing failed: %w", err)
		}
		if resp.Pagination == nil {
			return nil, fmt.Errorf("candidate listing returned malformed envelope")
		}

		for _, cand := range resp.Results {
			entities = append(entities, domain.Entity{
				ID:       cand.CandidateID,
				Name:     cand.Name,
				Party:    cand.Party,
				State:    cand.State,
				District: cand.District,
				Office:   cand.Office,
				Cycle:    cycle,
			})
		}

		if page >= resp.Pagination.Pages || len(resp.Results) == 0 {
			break
		}
		page++
	}

	// The API sorts per page; enforce a total order so the checkpoint
	// index is stable across runs.
	sort.Slice(entities, func(i, j int) bool {
		return entities[i].ID < entities[j].ID
	})

	return entities, nil
}
