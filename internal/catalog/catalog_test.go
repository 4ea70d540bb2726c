package catalog

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func washService() GeneralService {
	return GeneralService{
		ID:   1000,
		Name: "Lavado sencillo",
		Kind: KindGeneral,
		Prices: []CategoryPrice{
			{Category: "Moto", Groups: []GroupPrice{{Group: 101, Price: decimal.NewFromInt(12000)}, {Group: 102, Price: decimal.NewFromInt(15000)}}},
			{Category: "Auto", Groups: []GroupPrice{{Group: 201, Price: decimal.NewFromInt(20000)}}},
		},
	}
}

func TestGeneralServicePriceFor(t *testing.T) {
	svc := washService()

	price, ok := svc.PriceFor("moto", 102)
	require.True(t, ok)
	require.True(t, price.Equal(decimal.NewFromInt(15000)))

	_, ok = svc.PriceFor("Auto", 202)
	require.False(t, ok)

	line, err := svc.Line("Auto", 201)
	require.NoError(t, err)
	require.Equal(t, int64(1000), line.ServiceID)
	require.Equal(t, "Lavado sencillo", line.Description)
	require.False(t, line.VariablePriced)
	require.True(t, line.Quantity.Equal(decimal.NewFromInt(1)))

	_, err = svc.Line("Cuatrimoto", 301)
	require.ErrorIs(t, err, ErrPriceUnavailable)
}

func TestAdditionalServiceOffers(t *testing.T) {
	unit := "m2"
	svc := AdditionalService{ID: 5001, Name: "Tapiceria", Categories: []string{"Auto"}, VariablePriced: true, Unit: &unit, BasePrice: decimal.NewFromInt(8000)}

	require.True(t, svc.Offers("auto"))
	require.False(t, svc.Offers("Moto"))

	line, err := svc.Line("Auto")
	require.NoError(t, err)
	require.True(t, line.VariablePriced)
	require.True(t, line.UnitPrice.Equal(decimal.NewFromInt(8000)))

	_, err = svc.Line("Moto")
	require.ErrorIs(t, err, ErrNotOffered)

	everywhere := AdditionalService{ID: 5002, Name: "Aromatizante"}
	require.True(t, everywhere.Offers("Cuatrimoto"))
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("general")
	require.NoError(t, err)
	require.Equal(t, KindGeneral, k)

	k, err = ParseKind("ADICIONAL")
	require.NoError(t, err)
	require.Equal(t, KindAdditional, k)

	_, err = ParseKind("otro")
	require.ErrorIs(t, err, ErrUnknownKind)
}
