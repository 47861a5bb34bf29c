package engine

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shop-backend/internal/metadata"
)

func runImport(t *testing.T, svc *Service, body string) *Outcome {
	t.Helper()
	out, err := NewImporter(svc).Import(context.Background(), []byte(body))
	require.NoError(t, err)
	return out
}

func TestImport_SavedAndWrongModel(t *testing.T) {
	svc := newService(t)

	out := runImport(t, svc, `[{"AttributeName":{"id":1,"nazev":"Barva"}}, {"WrongModel":{"id":1,"nazev":"Barva"}}]`)
	assert.Equal(t, []string{"0", "NEULOZENO, wrong_model_name 1"}, out.Keys())

	saved, _ := out.Get("0")
	rec := saved.(Record)
	assert.Equal(t, "Barva", rec["nazev"])

	raw, _ := json.Marshal(out)
	var decoded map[string]map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, map[string]any{"id": float64(1), "nazev": "Barva"}, decoded["NEULOZENO, wrong_model_name 1"]["WrongModel"])
}

func TestImport_OneEntryPerItem(t *testing.T) {
	svc := newService(t)

	body := `[
		{"Product": {"nazev": "Lednice", "cena": "12990", "mena": "CZK"}},
		{"Product": "not an object"},
		{"Product": {"nazev": "Pracka"}, "Extra": {}},
		"Product",
		"Nonsense",
		42,
		null,
		{"Product": {"mena": "USD"}},
		{"Image": {"obrazek": "https://img/1.png"}}
	]`
	out := runImport(t, svc, body)

	assert.Equal(t, []string{
		"0",
		"NEULOZENO, wrong_data 1",
		"NEULOZENO, wrong_model_name 2",
		"NEULOZENO, wrong_data 3",
		"NEULOZENO, wrong_model_name 4",
		"NEULOZENO, wrong_data 5",
		"NEULOZENO, wrong_data 6",
		"NEULOZENO, create_fail 7",
		"8",
	}, out.Keys())

	fail, _ := out.Get("NEULOZENO, create_fail 7")
	assert.Contains(t, fail.(metadata.FieldErrors), "mena")

	products, err := svc.List(context.Background(), metadata.KindProduct)
	require.NoError(t, err)
	assert.Len(t, products, 1)
}

func TestImport_UpdateFail(t *testing.T) {
	svc := newService(t)
	rec := mustUpsert(t, svc, metadata.KindProduct, map[string]any{"nazev": "Lednice"})

	body, _ := json.Marshal([]any{
		map[string]any{"Product": map[string]any{"id": rec["id"], "mena": "GBP"}},
		map[string]any{"Product": map[string]any{"id": rec["id"], "mena": "EUR"}},
	})
	out := runImport(t, svc, string(body))
	assert.Equal(t, []string{"NEULOZENO, update_fail 0", "1"}, out.Keys())

	updated, _ := out.Get("1")
	assert.Equal(t, "EUR", updated.(Record)["mena"])
	assert.Equal(t, "Lednice", updated.(Record)["nazev"])
}

func TestImport_AllFailuresStillCounted(t *testing.T) {
	svc := newService(t)

	out := runImport(t, svc, `[{"A":{}}, {"B":{}}, {"C":{}}]`)
	assert.Equal(t, 3, out.Len())
}

func TestImport_NonArrayBodies(t *testing.T) {
	svc := newService(t)

	out := runImport(t, svc, ``)
	assert.Equal(t, 0, out.Len())
	raw, _ := json.Marshal(out)
	assert.JSONEq(t, `{}`, string(raw))

	// object bodies contribute their keys as bare string items
	out = runImport(t, svc, `{"Product": {"nazev": "X"}, "Bogus": 1}`)
	assert.Equal(t, []string{"NEULOZENO, wrong_data 0", "NEULOZENO, wrong_model_name 1"}, out.Keys())

	out = runImport(t, svc, `7`)
	assert.Equal(t, []string{"NEULOZENO, wrong_data 0"}, out.Keys())

	_, err := NewImporter(svc).Import(context.Background(), []byte(`[{"Product":`))
	assert.Error(t, err)
}

func TestOutcome_MarshalKeepsOrder(t *testing.T) {
	out := &Outcome{}
	out.add("2", "b")
	out.add("10", "a")
	out.add("NEULOZENO, wrong_data 1", map[string]any{"x": 1})

	raw, err := json.Marshal(out)
	require.NoError(t, err)
	assert.Equal(t, `{"2":"b","10":"a","NEULOZENO, wrong_data 1":{"x":1}}`, string(raw))
}
