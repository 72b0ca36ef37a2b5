package api

import (
	"context"

	"github.com/avoronov/finsession/internal/models"
)

type AccountsAPI struct {
	client *Client
}

// CreateAccountRequest carries the writable account fields
type CreateAccountRequest struct {
	Name        string `json:"name"`
	Institution string `json:"institution,omitempty"`
	Type        string `json:"type"`
	Currency    string `json:"currency"`
}

func (a *AccountsAPI) List(ctx context.Context) ([]models.Account, error) {
	var accounts []models.Account
	if err := a.client.get(ctx, "/accounts", nil, &accounts); err != nil {
		return nil, err
	}
	return accounts, nil
}

func (a *AccountsAPI) Get(ctx context.Context, id string) (models.Account, error) {
	var account models.Account
	if err := a.client.get(ctx, "/accounts/"+id, nil, &account); err != nil {
		return models.Account{}, err
	}
	return account, nil
}

func (a *AccountsAPI) Create(ctx context.Context, req CreateAccountRequest) (models.Account, error) {
	var account models.Account
	if err := a.client.post(ctx, "/accounts", req, &account); err != nil {
		return models.Account{}, err
	}
	return account, nil
}

func (a *AccountsAPI) Delete(ctx context.Context, id string) error {
	return a.client.delete(ctx, "/accounts/"+id)
}
