package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"

	"github.com/xenking/barista-pos/internal/domain/auth"
	"github.com/xenking/barista-pos/internal/domain/menu"
	"github.com/xenking/barista-pos/internal/domain/order"
	"github.com/xenking/barista-pos/internal/domain/user"
	"github.com/xenking/barista-pos/internal/storage/postgres"
)

const (
	demoEmail    = "demo@enzi.coffee"
	demoPassword = "demo123"
	demoName     = "Demo Barista"
)

type demoLine struct{ id, qty int }

var demoOrders = [][]demoLine{
	{{1, 2}, {2, 1}},
	{{3, 1}, {4, 2}},
	{{2, 3}},
}

func main() {
	var databaseURL string

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL string) error {
	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	tokens, err := auth.NewTokens([]byte("seed-only"), time.Hour)
	if err != nil {
		return errors.Wrap(err, "session tokens")
	}
	authService := auth.NewService(postgres.NewUserRepository(pool), tokens, 0)

	barista, err := seedUser(ctx, authService)
	if err != nil {
		return errors.Wrap(err, "seed user")
	}

	orders := postgres.NewOrderRepository(pool)
	if err := seedOrders(ctx, orders, barista); err != nil {
		return errors.Wrap(err, "seed orders")
	}

	return nil
}

func seedUser(ctx context.Context, s *auth.Service) (*user.User, error) {
	slog.Info("seeding demo barista", slog.String("email", demoEmail))

	_, err := s.Register(ctx, auth.RegisterRequest{Email: demoEmail, Password: demoPassword, Name: demoName})
	switch {
	case err == nil:
	case errors.Is(err, user.ErrEmailTaken):
		slog.Info("demo barista already exists")
	default:
		return nil, err
	}

	sess, err := s.Login(ctx, demoEmail, demoPassword)
	if err != nil {
		return nil, errors.Wrap(err, "log in demo barista")
	}
	return sess.User, nil
}

func seedOrders(ctx context.Context, repo *postgres.OrderRepository, u *user.User) error {
	n, err := repo.CountByOwner(ctx, u.ID)
	if err != nil {
		return errors.Wrap(err, "count orders")
	}
	if n > 0 {
		slog.Info("demo orders already present", slog.Int("count", n))
		return nil
	}

	catalog := menu.Default()
	svc, err := order.NewService(catalog, repo)
	if err != nil {
		return errors.Wrap(err, "order service")
	}

	owner := order.Owner{ID: u.ID, Name: u.Name, Email: u.Email}
	for _, lines := range demoOrders {
		var cart order.Cart
		for _, l := range lines {
			item, err := catalog.Get(l.id)
			if err != nil {
				return err
			}
			cart.Add(item)
			cart.SetQuantity(l.id, l.qty)
		}

		o, err := svc.Create(ctx, owner, cart.Submission())
		if err != nil {
			return errors.Wrap(err, "create order")
		}

		slog.Info("created order",
			slog.String("id", o.ID),
			slog.Int64("total", o.TotalAmount),
			slog.Int("items", o.ItemCount),
		)
	}

	return nil
}
