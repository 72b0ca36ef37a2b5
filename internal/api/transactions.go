package api

import (
	"context"
	"net/url"
	"strconv"

	"github.com/avoronov/finsession/internal/models"
)

type TransactionsAPI struct {
	client *Client
}

// ListTransactionsParams are the optional filters the transactions page
// passes through. Zero values are omitted from the query.
type ListTransactionsParams struct {
	AccountID string
	From      string // YYYY-MM-DD
	To        string // YYYY-MM-DD
	Query     string
	Page      int
	Size      int
}

func (p ListTransactionsParams) values() url.Values {
	q := url.Values{}

	setString := func(key, value string) {
		if value != "" {
			q.Set(key, value)
		}
	}
	setString("accountId", p.AccountID)
	setString("from", p.From)
	setString("to", p.To)
	setString("q", p.Query)

	if p.Page > 0 {
		q.Set("page", strconv.Itoa(p.Page))
	}
	if p.Size > 0 {
		q.Set("size", strconv.Itoa(p.Size))
	}

	return q
}

type CreateTransactionRequest struct {
	AccountID   string `json:"accountId"`
	AmountCents int64  `json:"amountCents"`
	Currency    string `json:"currency"`
	Merchant    string `json:"merchant,omitempty"`
	Category    string `json:"category,omitempty"`
	OccurredAt  string `json:"occurredAt"`
	Note        string `json:"note,omitempty"`
}

func (t *TransactionsAPI) List(ctx context.Context, params ListTransactionsParams) ([]models.Transaction, error) {
	var transactions []models.Transaction
	if err := t.client.get(ctx, "/transactions", params.values(), &transactions); err != nil {
		return nil, err
	}
	return transactions, nil
}

func (t *TransactionsAPI) Create(ctx context.Context, req CreateTransactionRequest) (models.Transaction, error) {
	var transaction models.Transaction
	if err := t.client.post(ctx, "/transactions", req, &transaction); err != nil {
		return models.Transaction{}, err
	}
	return transaction, nil
}
