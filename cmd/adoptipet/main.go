package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"

	"github.com/adoptipet/adoptipet-client/internal/annonces"
	"github.com/adoptipet/adoptipet-client/internal/auth"
	"github.com/adoptipet/adoptipet-client/internal/cart"
	"github.com/adoptipet/adoptipet-client/internal/catalog"
	"github.com/adoptipet/adoptipet-client/internal/httpapi"
	"github.com/adoptipet/adoptipet-client/internal/session"
	"github.com/adoptipet/adoptipet-client/pkg/config"
	"github.com/adoptipet/adoptipet-client/pkg/logger"
	"github.com/adoptipet/adoptipet-client/pkg/metrics"
	redisclient "github.com/adoptipet/adoptipet-client/pkg/redis"
)

const usage = `usage: adoptipet <command> [flags]

commands:
  login       -email <email> -password <password>
  logout
  cart        show | add <productId> [qty] | set-qty <productId> <qty> | rm <productId> | clear
  products    [-category <cat>] [-max-price <price>]
  adoptions   [-species <species>] [-city <city>]
  annonce     create -type <adoption|garde|perdu> -title <t> -description <d> [-city <c>] | mine | delete <id>
`

type app struct {
	cfg      *config.Config
	logg     *logger.Logger
	api      *httpapi.Client
	sessions session.Store
	closers  []func() error
}

func main() {
	logg := logger.New(logger.Options{ServiceName: "adoptipet"})

	if err := godotenv.Load(); err != nil {
		logg.Debug(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "adoptipet",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	a, err := newApp(context.Background(), cfg, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap client", err)
		os.Exit(1)
	}
	defer func() {
		if err := a.close(); err != nil {
			logg.Error(context.Background(), "error closing resources", err)
		}
	}()

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	if err := a.run(context.Background(), os.Args[1], os.Args[2:]); err != nil {
		fmt.Fprintln(os.Stderr, "erreur:", err)
		os.Exit(1)
	}
}

func newApp(ctx context.Context, cfg *config.Config, logg *logger.Logger) (*app, error) {
	a := &app{cfg: cfg, logg: logg}

	switch strings.ToLower(cfg.Session.Backend) {
	case config.SessionBackendRedis:
		client, err := redisclient.New(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, client.Close)
		store, err := session.NewRedisStore(client, "default", cfg.Session.TTL)
		if err != nil {
			return nil, err
		}
		a.sessions = store
	default:
		store, err := session.NewFileStore(cfg.Session.TokenPath, cfg.Session.TTL)
		if err != nil {
			return nil, err
		}
		a.sessions = store
	}

	api, err := httpapi.New(httpapi.Options{
		BaseURL:   cfg.API.BaseURL,
		Timeout:   cfg.API.Timeout,
		UserAgent: cfg.API.UserAgent,
		Tokens:    session.NewTokenSource(a.sessions),
		Logger:    logg,
		Metrics:   metrics.NewRequestMetrics(prometheus.NewRegistry()),
	})
	if err != nil {
		return nil, err
	}
	a.api = api
	return a, nil
}

func (a *app) close() error {
	var err error
	for _, closer := range a.closers {
		err = multierr.Append(err, closer())
	}
	return err
}

func (a *app) run(ctx context.Context, command string, args []string) error {
	switch command {
	case "login":
		return a.runLogin(ctx, args)
	case "logout":
		return a.runLogout(ctx)
	case "cart":
		return a.runCart(ctx, args)
	case "products":
		return a.runProducts(ctx, args)
	case "adoptions":
		return a.runAdoptions(ctx, args)
	case "annonce":
		return a.runAnnonce(ctx, args)
	case "help", "-h", "--help":
		fmt.Print(usage)
		return nil
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("commande inconnue %q", command)
	}
}

func (a *app) runLogin(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	email := fs.String("email", "", "adresse email")
	password := fs.String("password", "", "mot de passe")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := auth.NewClient(a.api, a.sessions, a.logg)
	if err != nil {
		return err
	}
	user, err := client.Login(ctx, auth.Credentials{Email: *email, Password: *password})
	if err != nil {
		return err
	}
	fmt.Printf("connecte en tant que %s\n", user.Email)
	return nil
}

func (a *app) runLogout(ctx context.Context) error {
	client, err := auth.NewClient(a.api, a.sessions, a.logg)
	if err != nil {
		return err
	}
	if err := client.Logout(ctx); err != nil {
		return err
	}
	fmt.Println("session fermee")
	return nil
}

func (a *app) runCart(ctx context.Context, args []string) error {
	if len(args) == 0 {
		args = []string{"show"}
	}

	binding, err := cart.NewBinding(a.api)
	if err != nil {
		return err
	}
	store, err := cart.NewStore(binding, a.logg)
	if err != nil {
		return err
	}
	store.Load(ctx)
	if store.State() == cart.StateErrored {
		return store.Err()
	}

	var res cart.Result
	switch args[0] {
	case "show":
		printCart(store.Cart())
		return nil
	case "add":
		if len(args) < 2 {
			return fmt.Errorf("usage: cart add <productId> [qty]")
		}
		qty := 1
		if len(args) > 2 {
			parsed, err := strconv.Atoi(args[2])
			if err != nil {
				return fmt.Errorf("quantite invalide %q", args[2])
			}
			qty = parsed
		}
		res = store.AddItem(ctx, args[1], qty)
	case "set-qty":
		if len(args) < 3 {
			return fmt.Errorf("usage: cart set-qty <productId> <qty>")
		}
		qty, err := strconv.Atoi(args[2])
		if err != nil {
			return fmt.Errorf("quantite invalide %q", args[2])
		}
		res = store.UpdateItemQuantity(ctx, args[1], qty)
	case "rm":
		if len(args) < 2 {
			return fmt.Errorf("usage: cart rm <productId>")
		}
		res = store.RemoveItem(ctx, args[1])
	case "clear":
		res = store.Clear(ctx)
	default:
		return fmt.Errorf("sous-commande cart inconnue %q", args[0])
	}

	if !res.Success {
		return fmt.Errorf("%s", res.Message)
	}
	printCart(store.Cart())
	return nil
}

func printCart(c *cart.Cart) {
	if c == nil || len(c.Items) == 0 {
		fmt.Println("panier vide")
		return
	}
	for _, line := range c.Items {
		fmt.Printf("%-24s x%-3d %8s\n", line.Product.Name, line.Quantity, line.Product.Price.StringFixed(2))
	}
	fmt.Printf("%d article(s), total %s\n", c.Count(), c.TotalPrice.StringFixed(2))
}

func (a *app) runProducts(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("products", flag.ContinueOnError)
	category := fs.String("category", "", "filtrer par categorie")
	maxPrice := fs.String("max-price", "", "prix maximum")
	if err := fs.Parse(args); err != nil {
		return err
	}

	filter := catalog.ProductFilter{Category: *category}
	if *maxPrice != "" {
		parsed, err := decimal.NewFromString(*maxPrice)
		if err != nil {
			return fmt.Errorf("prix invalide %q", *maxPrice)
		}
		filter.MaxPrice = &parsed
	}

	client, err := catalog.NewClient(a.api)
	if err != nil {
		return err
	}
	products, err := client.ListProducts(ctx, filter)
	if err != nil {
		return err
	}
	for _, p := range products {
		fmt.Printf("%-12s %-24s %8s\n", p.ID, p.Name, p.Price.StringFixed(2))
	}
	return nil
}

func (a *app) runAdoptions(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("adoptions", flag.ContinueOnError)
	species := fs.String("species", "", "filtrer par espece")
	city := fs.String("city", "", "filtrer par ville")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := catalog.NewClient(a.api)
	if err != nil {
		return err
	}
	listings, err := client.ListAdoptions(ctx, catalog.AdoptionFilter{Species: *species, City: *city})
	if err != nil {
		return err
	}
	for _, l := range listings {
		fmt.Printf("%-12s %-16s %-10s %s\n", l.ID, l.Name, l.Species, l.City)
	}
	return nil
}

func (a *app) runAnnonce(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: annonce create|mine|delete")
	}

	client, err := annonces.NewClient(a.api)
	if err != nil {
		return err
	}

	switch args[0] {
	case "create":
		fs := flag.NewFlagSet("annonce create", flag.ContinueOnError)
		kind := fs.String("type", "adoption", "type d'annonce (adoption, garde, perdu)")
		title := fs.String("title", "", "titre")
		description := fs.String("description", "", "description")
		city := fs.String("city", "", "ville")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		created, err := client.Create(ctx, annonces.CreateInput{
			Type:        *kind,
			Title:       *title,
			Description: *description,
			City:        *city,
		})
		if err != nil {
			return err
		}
		fmt.Printf("annonce %s soumise pour moderation\n", created.ID)
		return nil
	case "mine":
		mine, err := client.Mine(ctx)
		if err != nil {
			return err
		}
		for _, an := range mine {
			fmt.Printf("%-8s %-10s %s\n", an.ID, an.Type, an.Title)
		}
		return nil
	case "delete":
		if len(args) < 2 {
			return fmt.Errorf("usage: annonce delete <id>")
		}
		if err := client.Delete(ctx, args[1]); err != nil {
			return err
		}
		fmt.Println("annonce supprimee")
		return nil
	default:
		return fmt.Errorf("sous-commande annonce inconnue %q", args[0])
	}
}
