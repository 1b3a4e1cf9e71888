// Command seed-catalog creates the categories and products listed in a JSON
// file through the backend API, skipping those that already exist.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/xenking/kart-storefront/internal/backend"
	"github.com/xenking/kart-storefront/internal/domain/product"
	"github.com/xenking/kart-storefront/internal/session"
	"github.com/xenking/kart-storefront/internal/storage/memory"
)

type catalogJSON struct {
	Categories []string      `json:"categories"`
	Products   []productJSON `json:"products"`
}

type productJSON struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Price       decimal.Decimal `json:"price"`
	Stock       int64           `json:"stock"`
	SellerID    int64           `json:"seller_id"`
	// Image is a path relative to the catalog file.
	Image string `json:"image"`
}

func main() {
	var (
		backendURL  string
		username    string
		password    string
		catalogFile string
	)

	flag.StringVar(&backendURL, "backend-url", "", "backend root URL (or BACKEND_URL env)")
	flag.StringVar(&username, "username", "", "staff username (or SEED_USERNAME env)")
	flag.StringVar(&password, "password", "", "staff password (or SEED_PASSWORD env)")
	flag.StringVar(&catalogFile, "file", "db/seed/catalog.json", "path to catalog JSON file")
	flag.Parse()

	if backendURL == "" {
		backendURL = os.Getenv("BACKEND_URL")
	}
	if backendURL == "" {
		slog.Error("backend URL is required: set --backend-url or BACKEND_URL")
		os.Exit(1)
	}
	if username == "" {
		username = os.Getenv("SEED_USERNAME")
	}
	if password == "" {
		password = os.Getenv("SEED_PASSWORD")
	}
	if username == "" || password == "" {
		slog.Error("credentials are required: set --username/--password or SEED_USERNAME/SEED_PASSWORD")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, backendURL, username, password, catalogFile); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, backendURL, username, password, catalogFile string) error {
	data, err := readCatalog(catalogFile)
	if err != nil {
		return err
	}

	client, err := backend.New(backend.Config{BaseURL: backendURL})
	if err != nil {
		return errors.Wrap(err, "create backend client")
	}

	slog.Info("logging in", slog.String("username", username))

	// The client reads credentials from the session in the context.
	sess, err := session.Open(ctx, memory.NewSessionStore(), uuid.NewString())
	if err != nil {
		return errors.Wrap(err, "open session")
	}
	creds, err := client.Login(ctx, username, password)
	if err != nil {
		return errors.Wrap(err, "login")
	}
	if err := sess.SetCredentials(ctx, creds); err != nil {
		return errors.Wrap(err, "store credentials")
	}
	ctx = session.With(ctx, sess)

	categories, err := seedCategories(ctx, client, data)
	if err != nil {
		return errors.Wrap(err, "seed categories")
	}

	if err := seedProducts(ctx, client, categories, data, filepath.Dir(catalogFile)); err != nil {
		return errors.Wrap(err, "seed products")
	}

	return nil
}

func readCatalog(path string) (*catalogJSON, error) {
	slog.Info("reading catalog file", slog.String("path", path))

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read catalog file")
	}

	var data catalogJSON
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, errors.Wrap(err, "parse catalog JSON")
	}
	return &data, nil
}

// seedCategories creates missing categories and returns the IDs of all of
// them keyed by lowercase name.
func seedCategories(ctx context.Context, client *backend.Client, data *catalogJSON) (map[string]int64, error) {
	existing, err := client.ListCategories(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list categories")
	}

	ids := make(map[string]int64, len(existing))
	for _, c := range existing {
		ids[strings.ToLower(c.Name)] = c.ID
	}

	names := append([]string(nil), data.Categories...)
	for _, p := range data.Products {
		names = append(names, p.Category)
	}

	for _, name := range names {
		key := strings.ToLower(strings.TrimSpace(name))
		if key == "" {
			continue
		}
		if _, ok := ids[key]; ok {
			continue
		}
		c, err := client.CreateCategory(ctx, strings.TrimSpace(name))
		if err != nil {
			return nil, errors.Wrapf(err, "create category %q", name)
		}
		ids[key] = c.ID
		slog.Info("created category", slog.Int64("id", c.ID), slog.String("name", c.Name))
	}

	return ids, nil
}

func seedProducts(ctx context.Context, client *backend.Client, categories map[string]int64, data *catalogJSON, dir string) error {
	existing, err := client.List(ctx)
	if err != nil {
		return errors.Wrap(err, "list products")
	}

	have := make(map[string]struct{}, len(existing))
	for _, p := range existing {
		have[strings.ToLower(p.Name)] = struct{}{}
	}

	slog.Info("creating products", slog.Int("count", len(data.Products)))

	for _, p := range data.Products {
		if _, ok := have[strings.ToLower(p.Name)]; ok {
			slog.Info("skipped existing product", slog.String("name", p.Name))
			continue
		}

		categoryID, ok := categories[strings.ToLower(strings.TrimSpace(p.Category))]
		if !ok {
			return errors.Errorf("product %q: unknown category %q", p.Name, p.Category)
		}

		draft := product.Draft{
			Name:        p.Name,
			Description: p.Description,
			CategoryID:  strconv.FormatInt(categoryID, 10),
			Price:       p.Price.StringFixed(2),
			Stock:       strconv.FormatInt(p.Stock, 10),
			SellerID:    p.SellerID,
		}
		if p.Image != "" {
			img, err := readImage(filepath.Join(dir, p.Image))
			if err != nil {
				return errors.Wrapf(err, "product %q", p.Name)
			}
			draft.Image = img
		}

		created, err := client.Create(ctx, draft)
		if err != nil {
			return errors.Wrapf(err, "create product %q", p.Name)
		}

		slog.Info("created product", slog.Int64("id", created.ID), slog.String("name", created.Name))
	}

	return nil
}

func readImage(path string) (*product.Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read image")
	}
	return &product.Image{
		Filename:    filepath.Base(path),
		ContentType: http.DetectContentType(data),
		Data:        data,
	}, nil
}
