package schedule

import (
	"errors"
	"testing"

	"github.com/felipesemedo05/parcelas-servico/internal/core"
)

func purchase(y, m, d int, cents int64, count int) core.Purchase {
	return core.Purchase{
		Date:   core.NewDate(y, m, d),
		Reason: "Geladeira",
		Payee:  "Loja",
		Method: "Cartão",
		Total:  core.Money{Cents: cents},
		Count:  count,
	}
}

func TestGenerateSplitsWithResidualOnLast(t *testing.T) {
	got, err := Generator{}.Generate(purchase(2024, 3, 10, 10000, 3))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	want := []struct {
		cents int64
		key   string
	}{
		{3333, "04/2024"},
		{3333, "05/2024"},
		{3334, "06/2024"},
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d installments, got %d", len(want), len(got))
	}
	for i, w := range want {
		if got[i].Index != i+1 || got[i].Count != 3 {
			t.Errorf("#%d index/count = %d/%d", i, got[i].Index, got[i].Count)
		}
		if got[i].Amount.Cents != w.cents || got[i].Due.Key() != w.key {
			t.Errorf("#%d = %d %s, want %d %s", i, got[i].Amount.Cents, got[i].Due.Key(), w.cents, w.key)
		}
		if got[i].Total.Cents != 10000 || got[i].PurchaseDate != core.NewDate(2024, 3, 10) {
			t.Errorf("#%d lost purchase fields: %+v", i, got[i])
		}
	}
}

func TestGenerateSingleInstallment(t *testing.T) {
	got, err := Generator{}.Generate(purchase(2024, 1, 31, 5000, 1))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(got) != 1 || got[0].Amount.Cents != 5000 || got[0].Due != (core.Period{Year: 2024, Month: 2}) {
		t.Fatalf("unexpected result %+v", got)
	}
}

func TestGenerateDecemberRollsIntoNextYear(t *testing.T) {
	got, err := Generator{}.Generate(purchase(2024, 12, 5, 1000, 2))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got[0].Due.Key() != "01/2025" || got[1].Due.Key() != "02/2025" {
		t.Fatalf("unexpected due periods %s, %s", got[0].Due.Key(), got[1].Due.Key())
	}
}

func TestGenerateSameMonthPolicy(t *testing.T) {
	got, err := NewGenerator(SameMonthPolicy{}).Generate(purchase(2024, 3, 10, 10000, 3))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	keys := []string{got[0].Due.Key(), got[1].Due.Key(), got[2].Due.Key()}
	if keys[0] != "03/2024" || keys[1] != "04/2024" || keys[2] != "05/2024" {
		t.Fatalf("unexpected due periods %v", keys)
	}
}

func TestGenerateSumsAndMonotonicDates(t *testing.T) {
	cases := []struct {
		cents int64
		count int
	}{
		{1, 1}, {1, 3}, {10000, 3}, {99999, 7}, {123456, 12}, {100, 600}, {500000, 48},
	}
	for _, policy := range []DuePolicy{NextMonthPolicy{}, SameMonthPolicy{}} {
		for _, tc := range cases {
			got, err := NewGenerator(policy).Generate(purchase(2023, 11, 15, tc.cents, tc.count))
			if err != nil {
				t.Fatalf("%s %d/%d: %v", policy.Name(), tc.cents, tc.count, err)
			}
			if len(got) != tc.count {
				t.Fatalf("expected %d records, got %d", tc.count, len(got))
			}
			var sum int64
			for i, inst := range got {
				sum += inst.Amount.Cents
				if i > 0 && got[i-1].Due.AddMonths(1) != inst.Due {
					t.Fatalf("%s: due periods not consecutive at %d", policy.Name(), i)
				}
				if i < len(got)-1 && inst.Amount != got[0].Amount {
					t.Fatalf("non-last installments differ: %v vs %v", inst.Amount, got[0].Amount)
				}
			}
			if sum != tc.cents {
				t.Fatalf("%s %d/%d: sum %d", policy.Name(), tc.cents, tc.count, sum)
			}
		}
	}
}

func TestGenerateRejectsInvalidPurchase(t *testing.T) {
	_, err := Generator{}.Generate(purchase(2024, 3, 10, 10000, 0))
	if !errors.Is(err, core.ErrInvalidCount) {
		t.Fatalf("expected ErrInvalidCount, got %v", err)
	}
	_, err = Generator{}.Generate(purchase(2024, 3, 10, 0, 2))
	if !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestGetDuePolicy(t *testing.T) {
	p, err := GetDuePolicy("")
	if err != nil || p.Name() != PolicyNextMonth {
		t.Fatalf("default policy = %v, %v", p, err)
	}
	p, err = GetDuePolicy(PolicySameMonth)
	if err != nil || p.Offset(1) != 0 {
		t.Fatalf("same_month = %v, %v", p, err)
	}
	if _, err := GetDuePolicy("yearly"); err == nil {
		t.Fatalf("expected error for unknown policy")
	}
	names := PolicyNames()
	if len(names) < 2 || names[0] != PolicyNextMonth || names[1] != PolicySameMonth {
		t.Fatalf("unexpected names %v", names)
	}
}
