package gateway

import (
	"context"

	"seguimiento/internal/core"
)

// SheetsData is what a direct spreadsheet backend can serve on its own.
type SheetsData interface {
	DatasetReader
	FinancialWriter
	SelectorSource
}

type overlay struct {
	Gateway
	data SheetsData
}

// Overlay returns a Gateway that routes dataset, financial and selector calls
// to data and every other call to base.
func Overlay(base Gateway, data SheetsData) Gateway {
	return &overlay{Gateway: base, data: data}
}

func (o *overlay) Dataset(ctx context.Context) (core.Dataset, error) {
	return o.data.Dataset(ctx)
}

func (o *overlay) SaveFinancial(ctx context.Context, rows []core.Record) (core.WriteResult, error) {
	return o.data.SaveFinancial(ctx, rows)
}

func (o *overlay) UniqueProjects(ctx context.Context) ([]string, error) {
	return o.data.UniqueProjects(ctx)
}

func (o *overlay) UniqueBPINs(ctx context.Context) ([]string, error) {
	return o.data.UniqueBPINs(ctx)
}

func (o *overlay) UniqueValueTypes(ctx context.Context) ([]string, error) {
	return o.data.UniqueValueTypes(ctx)
}
