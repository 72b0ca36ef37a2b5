package api

import (
	"context"
	"net/url"

	"github.com/avoronov/finsession/internal/models"
)

type BudgetAPI struct {
	client *Client
}

// Summary returns the roll-up for one month (YYYY-MM)
func (b *BudgetAPI) Summary(ctx context.Context, month string) (models.BudgetSummary, error) {
	q := url.Values{}
	if month != "" {
		q.Set("month", month)
	}

	var summary models.BudgetSummary
	if err := b.client.get(ctx, "/budget/summary", q, &summary); err != nil {
		return models.BudgetSummary{}, err
	}
	return summary, nil
}
