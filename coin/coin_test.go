package coin

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/golos-one/ledger/errors"
)

func TestCoinArithmetic(t *testing.T) {
	a := NewCoin(1500, GOLOS)
	b := Whole(2, GOLOS)

	sum, err := a.Add(b)
	assert.Nil(t, err)
	assert.Equal(t, NewCoin(3500, GOLOS), sum)

	diff, err := sum.Subtract(a)
	assert.Nil(t, err)
	assert.Equal(t, b, diff)

	if _, err := a.Add(NewCoin(1, GBG)); !errors.ErrCurrency.Is(err) {
		t.Fatalf("mixing assets must fail: %+v", err)
	}

	// A typeless zero coin adapts to the other side of the addition.
	sum, err = (Coin{}).Add(a)
	assert.Nil(t, err)
	assert.Equal(t, a, sum)
}

func TestCoinAddOverflow(t *testing.T) {
	huge := NewCoin(1<<62, GOLOS)
	if _, err := huge.Add(huge); !errors.ErrOverflow.Is(err) {
		t.Fatalf("want overflow, got %+v", err)
	}
}

func TestCoinCompare(t *testing.T) {
	assert.Equal(t, 1, NewCoin(2, GOLOS).Compare(NewCoin(1, GOLOS)))
	assert.Equal(t, -1, NewCoin(1, GOLOS).Compare(NewCoin(2, GOLOS)))
	assert.Equal(t, 0, NewCoin(2, GOLOS).Compare(NewCoin(2, GOLOS)))

	assert.True(t, NewCoin(2, GOLOS).IsGTE(NewCoin(2, GOLOS)))
	assert.False(t, NewCoin(2, GOLOS).IsGTE(NewCoin(2, GBG)))
}

func TestCoinString(t *testing.T) {
	cases := map[string]Coin{
		"1.000 GOLOS":  Whole(1, GOLOS),
		"0.100 GOLOS":  NewCoin(100, GOLOS),
		"0.001 GBG":    NewCoin(1, GBG),
		"-2.500 GESTS": NewCoin(-2500, GESTS),
	}
	for want, c := range cases {
		assert.Equal(t, want, c.String())
	}
}

func TestParseHumanFormat(t *testing.T) {
	cases := map[string]struct {
		raw     string
		want    Coin
		wantErr *errors.Error
	}{
		"whole and fraction": {
			raw:  "1.300 GOLOS",
			want: NewCoin(1300, GOLOS),
		},
		"no fraction": {
			raw:  "5 GBG",
			want: Whole(5, GBG),
		},
		"short fraction is padded": {
			raw:  "1.5 GOLOS",
			want: NewCoin(1500, GOLOS),
		},
		"negative": {
			raw:  "-2.000 GESTS",
			want: NewCoin(-2000, GESTS),
		},
		"garbage": {
			raw:     "all the money",
			wantErr: errors.ErrInput,
		},
		"too long fraction": {
			raw:     "1.0001 GOLOS",
			wantErr: errors.ErrInput,
		},
	}
	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			got, err := ParseHumanFormat(tc.raw)
			if tc.wantErr != nil {
				if !tc.wantErr.Is(err) {
					t.Fatalf("want %v, got %+v", tc.wantErr, err)
				}
				return
			}
			assert.Nil(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestValidate(t *testing.T) {
	assert.Nil(t, Whole(1, GOLOS).Validate())
	if err := NewCoin(1, "gold").Validate(); !errors.ErrCurrency.Is(err) {
		t.Fatalf("lowercase ticker must not validate: %+v", err)
	}
}
