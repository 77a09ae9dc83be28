// Package main writes the sample catalog into the configured store.
//
// It is idempotent: authors, books and the demo user that already exist
// are left alone.
//
// Usage:
//
//	DATA_PATH=~/library go run ./cmd/seed
//	go run ./cmd/seed --store sqlite --demo-user mluukkai
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/libraryapp/library-server/internal/config"
	"github.com/libraryapp/library-server/internal/di/providers"
	"github.com/libraryapp/library-server/internal/domain"
	"github.com/libraryapp/library-server/internal/logger"
	"github.com/libraryapp/library-server/internal/pubsub"
	"github.com/libraryapp/library-server/internal/service"
	"github.com/libraryapp/library-server/internal/store"
	"github.com/libraryapp/library-server/internal/validation"
)

type seedAuthor struct {
	name string
	born *int
}

type seedBook struct {
	title     string
	author    string
	published int
	genres    []string
}

func year(y int) *int { return &y }

var authors = []seedAuthor{
	{name: "Robert Martin", born: year(1952)},
	{name: "Martin Fowler", born: year(1963)},
	{name: "Fyodor Dostoevsky", born: year(1821)},
	{name: "Joshua Kerievsky"},
	{name: "Sandi Metz"},
}

var books = []seedBook{
	{"Clean Code", "Robert Martin", 2008, []string{"refactoring"}},
	{"Agile software development", "Robert Martin", 2002, []string{"agile", "patterns", "design"}},
	{"Refactoring, edition 2", "Martin Fowler", 2018, []string{"refactoring"}},
	{"Refactoring to patterns", "Joshua Kerievsky", 2008, []string{"refactoring", "patterns"}},
	{"Practical Object-Oriented Design, An Agile Primer Using Ruby", "Sandi Metz", 2012, []string{"refactoring", "design"}},
	{"Crime and punishment", "Fyodor Dostoevsky", 1866, []string{"classic", "crime"}},
	{"Demons", "Fyodor Dostoevsky", 1872, []string{"classic", "revolution"}},
}

var (
	demoUser  = flag.String("demo-user", "mluukkai", "Username of the demo account")
	demoGenre = flag.String("demo-genre", "refactoring", "Favorite genre of the demo account")
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{
		Level:       logger.ParseLevel(cfg.Logger.Level),
		Environment: cfg.App.Environment,
	})

	gateway, path, err := providers.OpenStore(cfg, log)
	if err != nil {
		log.Fatal("Failed to open store", "error", err)
	}
	defer gateway.Close()

	log.Info("Seeding catalog", "backend", cfg.Storage.Backend, "path", path)

	// Nobody listens, the services just need somewhere to publish.
	bus := pubsub.New(log.Logger, 1)
	defer bus.Close()

	v := validation.New()
	catalog := service.NewCatalogService(gateway, bus, v, log.Logger)
	accounts := service.NewAccountService(gateway, nil, nil, nil, v, log.Logger)

	ctx := context.Background()
	if err := seed(ctx, gateway, catalog, accounts, log); err != nil {
		log.Fatal("Seeding failed", "error", err)
	}

	log.Info("Seeding complete")
}

func seed(ctx context.Context, gateway service.Gateway, catalog *service.CatalogService, accounts *service.AccountService, log *logger.Logger) error {
	user, err := gateway.GetUserByUsername(ctx, *demoUser)
	if errors.Is(err, store.ErrNotFound) {
		user, err = accounts.CreateUser(ctx, *demoUser, *demoGenre, nil)
	}
	if err != nil {
		return fmt.Errorf("demo user: %w", err)
	}

	for _, a := range authors {
		if _, err := gateway.GetAuthorByName(ctx, a.name); err == nil {
			log.Info("Author exists, skipping", "name", a.name)
			continue
		}
		if _, err := catalog.CreateAuthor(ctx, a.name, a.born, nil); err != nil {
			return fmt.Errorf("author %s: %w", a.name, err)
		}
	}

	for _, b := range books {
		_, err := catalog.AddBook(ctx, user, service.AddBookInput{
			Title:     b.title,
			Author:    &b.author,
			Published: b.published,
			Genres:    b.genres,
		}, nil)
		if errors.Is(err, store.ErrAlreadyExists) {
			log.Info("Book exists, skipping", "title", b.title)
			continue
		}
		if err != nil {
			return fmt.Errorf("book %s: %w", b.title, err)
		}
	}

	return logCounts(ctx, gateway, user, log)
}

func logCounts(ctx context.Context, gateway service.Gateway, user *domain.User, log *logger.Logger) error {
	bookCount, err := gateway.CountBooks(ctx)
	if err != nil {
		return err
	}
	authorCount, err := gateway.CountAuthors(ctx)
	if err != nil {
		return err
	}
	log.Info("Catalog totals",
		"books", bookCount,
		"authors", authorCount,
		"demo_user", user.Username)
	return nil
}
