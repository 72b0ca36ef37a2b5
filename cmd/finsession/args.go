package main

import (
	"github.com/spf13/pflag"

	"github.com/avoronov/finsession/internal/api"
)

// ParseTransactionsArgs parses the transactions subcommand filters.
// Unknown flags are reported by pflag, the params fall back to defaults.
func ParseTransactionsArgs(args []string) api.ListTransactionsParams {
	params := api.ListTransactionsParams{}

	fs := pflag.NewFlagSet("transactions", pflag.ContinueOnError)
	fs.StringVar(&params.AccountID, "account", "", "Filter by account id")
	fs.StringVar(&params.From, "from", "", "Start date (YYYY-MM-DD)")
	fs.StringVar(&params.To, "to", "", "End date (YYYY-MM-DD)")
	fs.StringVarP(&params.Query, "query", "q", "", "Free text filter")
	fs.IntVar(&params.Page, "page", 0, "Page number")
	fs.IntVar(&params.Size, "size", 50, "Page size")

	_ = fs.Parse(args)

	return params
}
