package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"

	"github.com/fd1az/swap-quoter/business/marketmaker/domain"
	"github.com/fd1az/swap-quoter/internal/apperror"
	"github.com/fd1az/swap-quoter/internal/asset"
)

type fakeRow struct {
	values []any
	err    error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	for i, d := range dest {
		switch p := d.(type) {
		case *string:
			*p = r.values[i].(string)
		case *bool:
			*p = r.values[i].(bool)
		case *[]byte:
			if r.values[i] != nil {
				*p = r.values[i].([]byte)
			}
		}
	}
	return nil
}

type fakeDB struct {
	row  fakeRow
	args []any
}

func (db *fakeDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	db.args = args
	return db.row
}

func TestStore_MarketMaker(t *testing.T) {
	tests := []struct {
		name     string
		row      fakeRow
		wantErr  error
		wantCode apperror.Code
		wantMev  int32
	}{
		{
			name:    "found",
			row:     fakeRow{values: []any{"cFmm", "02ab", true, true, []byte(`{"Btc": 4}`)}},
			wantMev: 4,
		},
		{
			name: "null factors",
			row:  fakeRow{values: []any{"cFmm", "02ab", false, false, nil}},
		},
		{name: "missing", row: fakeRow{err: pgx.ErrNoRows}, wantErr: domain.ErrMarketMakerNotFound},
		{name: "db down", row: fakeRow{err: errors.New("conn refused")}, wantCode: apperror.CodeStoreQueryFailed},
		{
			name:     "bad factors",
			row:      fakeRow{values: []any{"cFmm", "02ab", false, true, []byte(`[1]`)}},
			wantCode: apperror.CodeStoreQueryFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := &fakeDB{row: tt.row}
			mm, err := NewStore(db).MarketMaker(context.Background(), "cFmm")

			switch {
			case tt.wantErr != nil:
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			case tt.wantCode != "":
				if apperror.GetCode(err) != tt.wantCode {
					t.Fatalf("err = %v, want %s", err, tt.wantCode)
				}
				return
			case err != nil:
				t.Fatal(err)
			}

			if len(db.args) != 1 || db.args[0] != "cFmm" {
				t.Errorf("args = %v", db.args)
			}
			if mm.AccountID != "cFmm" || mm.PublicKey != "02ab" {
				t.Errorf("mm = %+v", mm)
			}
			if mm.MevFactors == nil || mm.MevFactors[asset.Btc] != tt.wantMev {
				t.Errorf("mev factors = %v", mm.MevFactors)
			}
		})
	}
}
