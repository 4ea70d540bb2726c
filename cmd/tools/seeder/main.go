package main

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-lavado/internal/catalog"
	"github.com/noah-isme/backend-lavado/internal/config"
	"github.com/noah-isme/backend-lavado/internal/customer"
	"github.com/noah-isme/backend-lavado/internal/db"
	"github.com/noah-isme/backend-lavado/internal/obs"
	"github.com/noah-isme/backend-lavado/internal/promotion"
	"github.com/noah-isme/backend-lavado/internal/settings"
	"github.com/noah-isme/backend-lavado/internal/vehicle"
)

// Seeds a development database with the default wash catalog, a couple of
// promotions and one demo customer. Running it twice leaves the data unchanged.
func main() {
	cfg := config.MustLoad()
	logger := obs.NewLogger(cfg.Obs.LogFormat, cfg.Obs.LogLevel).With().Str("component", "seeder").Logger()

	if err := db.MigrateUp(cfg.DatabaseURL); err != nil {
		logger.Fatal().Err(err).Msg("apply migrations")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	defer pool.Close()

	loc, err := cfg.Location()
	if err != nil {
		logger.Fatal().Err(err).Msg("load timezone")
	}

	settingsSvc := &settings.Service{Store: settings.PGStore{DB: pool}}
	if _, err := settingsSvc.Get(ctx); err != nil {
		logger.Fatal().Err(err).Msg("seed settings")
	}

	catalogSvc, err := catalog.NewService(catalog.ServiceConfig{Store: catalog.PGStore{DB: pool}, Logger: &logger})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise catalog service")
	}
	seedGeneral(ctx, catalogSvc, logger)
	seedAdditional(ctx, catalogSvc, logger)
	seedPromotions(ctx, &promotion.Service{Store: promotion.PGStore{DB: pool}, Location: loc}, logger)
	seedCustomer(ctx, &customer.Service{Store: customer.PGStore{DB: pool}}, &vehicle.Service{Store: vehicle.PGStore{DB: pool}}, logger)

	logger.Info().Msg("seeding completed")
}

func prices(moto, auto, cuatri [3]int64) []catalog.CategoryPrice {
	row := func(category string, base int, p [3]int64) catalog.CategoryPrice {
		groups := make([]catalog.GroupPrice, 0, len(p))
		for i, v := range p {
			if v <= 0 {
				continue
			}
			groups = append(groups, catalog.GroupPrice{Group: base + i, Price: decimal.NewFromInt(v)})
		}
		return catalog.CategoryPrice{Category: category, Groups: groups}
	}
	return []catalog.CategoryPrice{
		row("Moto", 101, moto),
		row("Auto", 201, auto),
		row("Cuatrimoto", 301, cuatri),
	}
}

func seedGeneral(ctx context.Context, svc *catalog.Service, logger zerolog.Logger) {
	existing, err := svc.ListGeneral(ctx, "")
	if err != nil {
		logger.Fatal().Err(err).Msg("list general services")
	}
	have := map[string]bool{}
	for _, s := range existing {
		have[strings.ToLower(s.Name)] = true
	}

	rows := []catalog.GeneralInput{
		{Name: "Lavado sencillo", Prices: prices([3]int64{12000, 15000, 18000}, [3]int64{20000, 25000, 30000}, [3]int64{22000})},
		{Name: "Lavado full", Prices: prices([3]int64{18000, 22000, 26000}, [3]int64{35000, 42000, 50000}, [3]int64{38000})},
		{Name: "Lavado de motor", Prices: prices([3]int64{15000, 18000, 20000}, [3]int64{30000, 35000, 40000}, [3]int64{30000})},
	}
	for _, in := range rows {
		if have[strings.ToLower(in.Name)] {
			continue
		}
		if _, err := svc.CreateGeneral(ctx, in); err != nil && !errors.Is(err, catalog.ErrNameTaken) {
			logger.Error().Err(err).Str("service", in.Name).Msg("seed general service")
		}
	}
}

func seedAdditional(ctx context.Context, svc *catalog.Service, logger zerolog.Logger) {
	existing, err := svc.ListAdditional(ctx, "")
	if err != nil {
		logger.Fatal().Err(err).Msg("list additional services")
	}
	have := map[string]bool{}
	for _, s := range existing {
		have[strings.ToLower(s.Name)] = true
	}

	unit := func(u string) *string { return &u }
	rows := []catalog.AdditionalInput{
		{Name: "Aromatizante", Categories: []string{"Moto", "Auto", "Cuatrimoto"}, BasePrice: decimal.NewFromInt(3000)},
		{Name: "Silicona llantas", Categories: []string{"Auto", "Cuatrimoto"}, BasePrice: decimal.NewFromInt(5000)},
		{Name: "Polichado", Categories: []string{"Moto", "Auto"}, VariablePriced: true, Unit: unit("m2"), BasePrice: decimal.NewFromInt(8000)},
		{Name: "Desengrasante", Categories: []string{"Moto", "Auto", "Cuatrimoto"}, VariablePriced: true, Unit: unit("lt"), BasePrice: decimal.NewFromInt(6500)},
	}
	for _, in := range rows {
		if have[strings.ToLower(in.Name)] {
			continue
		}
		if _, err := svc.CreateAdditional(ctx, in); err != nil && !errors.Is(err, catalog.ErrNameTaken) {
			logger.Error().Err(err).Str("service", in.Name).Msg("seed additional service")
		}
	}
}

func seedPromotions(ctx context.Context, svc *promotion.Service, logger zerolog.Logger) {
	existing, err := svc.List(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("list promotions")
	}
	have := map[string]bool{}
	for _, p := range existing {
		have[strings.ToLower(p.Description)] = true
	}

	enabled := true
	disabled := false
	rows := []promotion.Input{
		{Description: "Cliente frecuente", Percent: decimal.NewFromInt(5), Enabled: &enabled},
		{Description: "Martes de lavado", Percent: decimal.NewFromInt(10), Enabled: &disabled},
	}
	for _, in := range rows {
		if have[strings.ToLower(in.Description)] {
			continue
		}
		if _, err := svc.Create(ctx, in); err != nil {
			logger.Error().Err(err).Str("promotion", in.Description).Msg("seed promotion")
		}
	}
}

func seedCustomer(ctx context.Context, customers *customer.Service, vehicles *vehicle.Service, logger zerolog.Logger) {
	const document = "1020304050"
	if _, err := customers.Get(ctx, document); errors.Is(err, customer.ErrNotFound) {
		_, err = customers.Create(ctx, customer.Input{
			DocType:   "CC",
			Document:  document,
			FirstName: "Cliente",
			LastName:  "Demo",
			Phone:     "3001234567",
		})
		if err != nil {
			logger.Error().Err(err).Msg("seed customer")
			return
		}
	} else if err != nil {
		logger.Error().Err(err).Msg("load demo customer")
		return
	}

	if _, err := vehicles.Resolve(ctx, "ABC123"); errors.Is(err, vehicle.ErrNotFound) {
		_, err = vehicles.Create(ctx, vehicle.Input{
			Plate:            "ABC123",
			CustomerDocument: document,
			Category:         "Auto",
			Segment:          "Sedan",
			Brand:            "Mazda",
			Line:             "3",
			Model:            2020,
			Displacement:     2000,
		})
		if err != nil {
			logger.Error().Err(err).Msg("seed vehicle")
		}
	}
}
