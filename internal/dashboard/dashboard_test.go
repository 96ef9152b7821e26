package dashboard

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"finboard/internal/config"
	"finboard/internal/database"
	"finboard/internal/market"
	"finboard/internal/model"
	"finboard/internal/portfolio"
	"finboard/internal/simulator"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) List(ctx context.Context, userID uuid.UUID) ([]model.Investment, error) {
	args := m.Called(ctx, userID)
	list, _ := args.Get(0).([]model.Investment)
	return list, args.Error(1)
}

func (m *MockRepository) Insert(ctx context.Context, inv model.Investment) (model.Investment, error) {
	args := m.Called(ctx, inv)
	saved, _ := args.Get(0).(model.Investment)
	return saved, args.Error(1)
}

func (m *MockRepository) Update(ctx context.Context, id, userID uuid.UUID, patch model.InvestmentPatch) error {
	args := m.Called(ctx, id, userID, patch)
	return args.Error(0)
}

func (m *MockRepository) Delete(ctx context.Context, id, userID uuid.UUID) error {
	args := m.Called(ctx, id, userID)
	return args.Error(0)
}

func (m *MockRepository) Migrate(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

type MockRates struct {
	mock.Mock
}

func (m *MockRates) Rates(ctx context.Context, kind model.RateKind) ([]model.Rate, error) {
	args := m.Called(ctx, kind)
	rates, _ := args.Get(0).([]model.Rate)
	return rates, args.Error(1)
}

type MockInflation struct {
	mock.Mock
}

func (m *MockInflation) Latest(ctx context.Context) (model.InflationReading, error) {
	args := m.Called(ctx)
	reading, _ := args.Get(0).(model.InflationReading)
	return reading, args.Error(1)
}

type fakeMarket struct {
	snap market.Snapshot
}

func (f *fakeMarket) Latest() market.Snapshot {
	return f.snap
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

func btcSnapshot() market.Snapshot {
	return market.Snapshot{
		DollarQuotes: []model.Quote{
			model.NewQuote("DolarAPI", "blue", "USD Blue", decimal.NewNullDecimal(decimal.NewFromInt(990)), decimal.NewNullDecimal(decimal.NewFromInt(1010))),
			model.NewQuote("DolarAPI", market.CCLKey, "USD CCL", decimal.NewNullDecimal(decimal.NewFromInt(980)), decimal.NewNullDecimal(decimal.NewFromInt(1000))),
		},
		Prices: market.NewPriceBook([]model.Price{
			{Type: model.Crypto, Ticker: "BTC", Value: decimal.NewFromInt(25000), Currency: model.USD},
		}),
		Reference: model.NewReferenceRate(decimal.NewFromInt(1000), "DolarAPI", time.Now()),
		Sections:  map[market.Section]bool{market.SectionDollar: true, market.SectionPrices: true},
		FetchedAt: time.Now(),
	}
}

type fixture struct {
	repo      *MockRepository
	rates     *MockRates
	inflation *MockInflation
	market    *fakeMarket
	service   *Service
	userID    uuid.UUID
}

func newFixture() *fixture {
	f := &fixture{
		repo:      new(MockRepository),
		rates:     new(MockRates),
		inflation: new(MockInflation),
		market:    &fakeMarket{snap: btcSnapshot()},
		userID:    uuid.New(),
	}
	cfg := &config.Config{
		Server:    config.ServerConfig{FeedInterval: time.Hour},
		Simulator: config.SimulatorConfig{InstallmentTolerance: 0.05, DefaultWalletRate: 30, DefaultTermDepositRate: 35, DefaultMonthlyInflation: 3},
	}
	f.service = NewService(testLogger(), f.repo, f.market, f.rates, f.inflation, cfg)
	return f
}

func btcLot(userID uuid.UUID) model.Investment {
	return model.Investment{
		ID:            uuid.New(),
		UserID:        userID,
		Ticker:        "BTC",
		Name:          "Bitcoin",
		Type:          model.Crypto,
		Quantity:      decimal.NewFromInt(2),
		PurchasePrice: decimal.NewFromInt(20000),
		PurchaseDate:  time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		Currency:      model.USD,
	}
}

func TestService_SessionIsCached(t *testing.T) {
	f := newFixture()
	a := f.service.Session(f.userID)
	assert.Same(t, a, f.service.Session(f.userID))
	assert.NotSame(t, a, f.service.Session(uuid.New()))
	assert.Equal(t, f.userID, a.UserID())
}

func TestService_EvictsIdleSessions(t *testing.T) {
	f := newFixture()
	f.service.cfg.Server.SessionTTL = time.Minute
	clock := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	f.service.now = func() time.Time { return clock }

	idle := f.service.Session(f.userID)
	active := uuid.New()
	kept := f.service.Session(active)

	clock = clock.Add(50 * time.Second)
	assert.Same(t, kept, f.service.Session(active))

	clock = clock.Add(40 * time.Second)
	assert.Same(t, kept, f.service.Session(active), "used within the TTL")
	f.service.mu.Lock()
	_, stillCached := f.service.sessions[f.userID]
	assert.False(t, stillCached, "idle for longer than the TTL")
	assert.Len(t, f.service.sessions, 1)
	f.service.mu.Unlock()

	assert.NotSame(t, idle, f.service.Session(f.userID))
}

func TestService_NoEvictionWithoutTTL(t *testing.T) {
	f := newFixture()
	clock := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	f.service.now = func() time.Time { return clock }

	a := f.service.Session(f.userID)
	clock = clock.Add(24 * time.Hour)
	f.service.Session(uuid.New())
	assert.Same(t, a, f.service.Session(f.userID))
}

func TestSession_LoadsOnce(t *testing.T) {
	f := newFixture()
	lot := btcLot(f.userID)
	f.repo.On("List", mock.Anything, f.userID).Return([]model.Investment{lot}, nil).Once()

	sess := f.service.Session(f.userID)
	for i := 0; i < 2; i++ {
		list, err := sess.Investments(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []model.Investment{lot}, list)
	}
	f.repo.AssertNumberOfCalls(t, "List", 1)
}

func TestSession_Add(t *testing.T) {
	ctx := context.Background()

	t.Run("validation failure never reaches the store", func(t *testing.T) {
		f := newFixture()
		sess := f.service.Session(f.userID)
		bad := btcLot(f.userID)
		bad.Quantity = decimal.Zero
		_, err := sess.Add(ctx, bad)
		assert.ErrorIs(t, err, model.ErrValidation)
		f.repo.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
	})

	t.Run("prepends saved position", func(t *testing.T) {
		f := newFixture()
		existing := btcLot(f.userID)
		f.repo.On("List", mock.Anything, f.userID).Return([]model.Investment{existing}, nil).Once()

		in := btcLot(uuid.Nil)
		in.ID = uuid.Nil
		in.Ticker = " eth "
		saved := in
		saved.ID = uuid.New()
		saved.UserID = f.userID
		saved.Ticker = "ETH"
		f.repo.On("Insert", mock.Anything, mock.MatchedBy(func(inv model.Investment) bool {
			return inv.UserID == f.userID && inv.Ticker == "ETH"
		})).Return(saved, nil).Once()

		sess := f.service.Session(f.userID)
		got, err := sess.Add(ctx, in)
		require.NoError(t, err)
		assert.Equal(t, saved, got)

		list, err := sess.Investments(ctx)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, saved.ID, list[0].ID)
		f.repo.AssertExpectations(t)
	})

	t.Run("store failure leaves cache untouched", func(t *testing.T) {
		f := newFixture()
		existing := btcLot(f.userID)
		f.repo.On("List", mock.Anything, f.userID).Return([]model.Investment{existing}, nil).Once()
		storeErr := errors.New("insert rejected")
		f.repo.On("Insert", mock.Anything, mock.Anything).Return(nil, storeErr).Once()

		sess := f.service.Session(f.userID)
		_, err := sess.Add(ctx, btcLot(f.userID))
		assert.ErrorIs(t, err, storeErr)

		list, err := sess.Investments(ctx)
		require.NoError(t, err)
		assert.Equal(t, []model.Investment{existing}, list)
	})
}

func TestSession_Update(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	lot := btcLot(f.userID)
	name := "Bitcoin (cold)"
	patch := model.InvestmentPatch{Name: &name}

	updated := lot
	updated.Name = name
	f.repo.On("Update", mock.Anything, lot.ID, f.userID, patch).Return(nil).Once()
	f.repo.On("List", mock.Anything, f.userID).Return([]model.Investment{updated}, nil).Once()

	sess := f.service.Session(f.userID)
	got, err := sess.Update(ctx, lot.ID, patch)
	require.NoError(t, err)
	assert.Equal(t, name, got.Name)

	t.Run("empty patch", func(t *testing.T) {
		_, err := sess.Update(ctx, lot.ID, model.InvestmentPatch{})
		assert.ErrorIs(t, err, model.ErrValidation)
	})

	t.Run("store failure", func(t *testing.T) {
		qty := decimal.NewFromInt(3)
		bad := model.InvestmentPatch{Quantity: &qty}
		f.repo.On("Update", mock.Anything, lot.ID, f.userID, bad).Return(database.ErrNotFound).Once()
		_, err := sess.Update(ctx, lot.ID, bad)
		assert.ErrorIs(t, err, database.ErrNotFound)

		list, err := sess.Investments(ctx)
		require.NoError(t, err)
		assert.Equal(t, name, list[0].Name)
		f.repo.AssertNumberOfCalls(t, "List", 1)
	})
}

func TestSession_Delete(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	lot := btcLot(f.userID)
	f.repo.On("Delete", mock.Anything, lot.ID, f.userID).Return(nil).Once()
	f.repo.On("List", mock.Anything, f.userID).Return([]model.Investment{}, nil).Once()

	sess := f.service.Session(f.userID)
	require.NoError(t, sess.Delete(ctx, lot.ID))
	list, err := sess.Investments(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	missing := uuid.New()
	f.repo.On("Delete", mock.Anything, missing, f.userID).Return(database.ErrNotFound).Once()
	assert.ErrorIs(t, sess.Delete(ctx, missing), database.ErrNotFound)
}

func TestSession_ToggleFavorite(t *testing.T) {
	ctx := context.Background()
	on, off := true, false

	t.Run("persists the flipped flag", func(t *testing.T) {
		f := newFixture()
		lot := btcLot(f.userID)
		f.repo.On("List", mock.Anything, f.userID).Return([]model.Investment{lot}, nil).Once()
		f.repo.On("Update", mock.Anything, lot.ID, f.userID, model.InvestmentPatch{IsFavorite: &on}).Return(nil).Once()

		sess := f.service.Session(f.userID)
		got, err := sess.ToggleFavorite(ctx, lot.ID)
		require.NoError(t, err)
		assert.True(t, got.IsFavorite)

		list, _ := sess.Investments(ctx)
		assert.True(t, list[0].IsFavorite)
		f.repo.AssertExpectations(t)
	})

	t.Run("reverts on failure and surfaces the error", func(t *testing.T) {
		f := newFixture()
		lot := btcLot(f.userID)
		lot.IsFavorite = true
		f.repo.On("List", mock.Anything, f.userID).Return([]model.Investment{lot}, nil).Once()
		storeErr := errors.New("permission denied for table investments")
		f.repo.On("Update", mock.Anything, lot.ID, f.userID, model.InvestmentPatch{IsFavorite: &off}).Return(storeErr).Once()

		sess := f.service.Session(f.userID)
		_, err := sess.ToggleFavorite(ctx, lot.ID)
		assert.Equal(t, storeErr, err)

		list, _ := sess.Investments(ctx)
		assert.True(t, list[0].IsFavorite)
	})

	t.Run("unknown id", func(t *testing.T) {
		f := newFixture()
		f.repo.On("List", mock.Anything, f.userID).Return([]model.Investment{}, nil).Once()
		_, err := f.service.Session(f.userID).ToggleFavorite(ctx, uuid.New())
		assert.ErrorIs(t, err, database.ErrNotFound)
		f.repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestSession_Summary(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.repo.On("List", mock.Anything, f.userID).Return([]model.Investment{btcLot(f.userID)}, nil).Once()
	sess := f.service.Session(f.userID)

	ars, err := sess.Summary(ctx, portfolio.Options{Display: model.ARS})
	require.NoError(t, err)
	assert.True(t, ars.CurrentValue.Equal(decimal.NewFromInt(50_000_000)))
	assert.True(t, ars.ChangePercent.Equal(decimal.NewFromInt(25)))

	usd, err := sess.Summary(ctx, portfolio.Options{Display: model.USD})
	require.NoError(t, err)
	assert.True(t, usd.CurrentValue.Equal(decimal.NewFromInt(50_000)))

	f.market.snap.Reference = model.ReferenceRate{}
	unknown, err := sess.Summary(ctx, portfolio.Options{Display: model.ARS})
	require.NoError(t, err)
	assert.Equal(t, 1, unknown.Unconverted)
	assert.True(t, unknown.CurrentValue.IsZero())
}

func TestSession_ExportCSV(t *testing.T) {
	f := newFixture()
	lot := btcLot(f.userID)
	lot.Name = `Bitcoin "spot"`
	f.repo.On("List", mock.Anything, f.userID).Return([]model.Investment{lot}, nil).Once()

	var buf bytes.Buffer
	require.NoError(t, f.service.Session(f.userID).ExportCSV(context.Background(), &buf))
	assert.Equal(t,
		"Ticker,Nombre,Tipo,Cantidad,Precio Compra,Fecha,Moneda\n"+
			"BTC,\"Bitcoin \"\"spot\"\"\",Cripto,2,20000,2024-01-15,USD\n",
		buf.String())
	assert.Equal(t, "inversiones_2024-01-15.csv", ExportFileName(lot.PurchaseDate))
}

func TestService_Quotes(t *testing.T) {
	f := newFixture()

	quotes, err := f.service.Quotes(market.SectionDollar, market.SortSellAsc)
	require.NoError(t, err)
	require.Len(t, quotes, 2)
	assert.Equal(t, "USD CCL", quotes[0].Name)
	assert.Equal(t, "USD Blue", f.market.snap.DollarQuotes[0].Name, "snapshot is not reordered")

	_, err = f.service.Quotes(market.SectionCrypto, "")
	assert.ErrorIs(t, err, ErrUnavailable)

	_, err = f.service.Quotes(market.SectionPrices, "")
	assert.ErrorIs(t, err, model.ErrValidation)

	prices, err := f.service.Prices(nil)
	require.NoError(t, err)
	assert.Len(t, prices, 1)

	assert.True(t, f.service.ReferenceRate().Known)
}

func TestService_Rates(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.rates.On("Rates", mock.Anything, model.RateTermDeposit).Return([]model.Rate{
		{Entity: "Banco B", NominalAnnualRate: decimal.NewFromInt(30)},
		{Entity: "Banco A", NominalAnnualRate: decimal.NewFromInt(35)},
	}, nil)
	f.rates.On("Rates", mock.Anything, model.RateStaking).Return(nil, errors.New("boom"))

	rates, err := f.service.Rates(ctx, model.RateTermDeposit, true)
	require.NoError(t, err)
	assert.Equal(t, "Banco A", rates[0].Entity)

	_, err = f.service.Rates(ctx, model.RateStaking, true)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestService_CompareInstallments(t *testing.T) {
	ctx := context.Background()

	t.Run("uses latest inflation and current offers", func(t *testing.T) {
		f := newFixture()
		f.inflation.On("Latest", mock.Anything).Return(model.InflationReading{MonthlyPercent: decimal.NewFromInt(5)}, nil).Once()
		f.rates.On("Rates", mock.Anything, model.RateRemuneratedAccount).Return([]model.Rate{{NominalAnnualRate: decimal.NewFromInt(32)}}, nil)
		f.rates.On("Rates", mock.Anything, model.RateTermDeposit).Return(nil, errors.New("down"))

		cmp, err := f.service.CompareInstallments(ctx, 100000, 120000, 12, nil)
		require.NoError(t, err)
		assert.Equal(t, 5.0, cmp.MonthlyInflation)
		assert.Equal(t, simulator.FavorInstallments, cmp.Recommendation)
		require.NotNil(t, cmp.Alternatives)
		assert.Equal(t, 32.0, cmp.Alternatives.WalletRate)
		assert.Equal(t, 35.0, cmp.Alternatives.TermDepositRate)
	})

	t.Run("falls back to default inflation", func(t *testing.T) {
		f := newFixture()
		f.inflation.On("Latest", mock.Anything).Return(nil, errors.New("down")).Once()
		f.rates.On("Rates", mock.Anything, mock.Anything).Return(nil, errors.New("down"))

		cmp, err := f.service.CompareInstallments(ctx, 100000, 120000, 12, nil)
		require.NoError(t, err)
		assert.Equal(t, 3.0, cmp.MonthlyInflation)
	})

	t.Run("explicit inflation skips the lookup", func(t *testing.T) {
		f := newFixture()
		f.rates.On("Rates", mock.Anything, mock.Anything).Return(nil, nil)
		infl := 2.0
		cmp, err := f.service.CompareInstallments(ctx, 100000, 120000, 12, &infl)
		require.NoError(t, err)
		assert.Equal(t, 2.0, cmp.MonthlyInflation)
		f.inflation.AssertNotCalled(t, "Latest", mock.Anything)
	})
}

func TestService_Feed(t *testing.T) {
	f := newFixture()
	f.repo.On("List", mock.Anything, f.userID).Return([]model.Investment{btcLot(f.userID)}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	updates := make(chan FeedUpdate, 4)
	done := make(chan error, 1)
	go func() {
		done <- f.service.Feed(ctx, f.userID, portfolio.Options{Display: model.USD}, func(u FeedUpdate) error {
			updates <- u
			return nil
		})
	}()

	select {
	case u := <-updates:
		assert.True(t, u.Summary.CurrentValue.Equal(decimal.NewFromInt(50_000)))
		assert.Equal(t, []market.Section{market.SectionCrypto, market.SectionPix}, u.Unavailable)
	case <-time.After(5 * time.Second):
		t.Fatal("no feed update")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("feed did not stop")
	}
}

func TestService_FeedStopsOnSendError(t *testing.T) {
	f := newFixture()
	f.repo.On("List", mock.Anything, f.userID).Return([]model.Investment{}, nil)

	sendErr := errors.New("connection closed")
	err := f.service.Feed(context.Background(), f.userID, portfolio.Options{}, func(FeedUpdate) error {
		return sendErr
	})
	assert.ErrorIs(t, err, sendErr)
}
