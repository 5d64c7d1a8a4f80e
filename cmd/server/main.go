package main

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"io/fs"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/template/django/v3"
	gconfig "github.com/goliatone/go-config/config"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-persistence-bun"
	"github.com/goliatone/go-print"
	"github.com/goliatone/mudradesk"
	"github.com/goliatone/mudradesk/config"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

type App struct {
	config   *gconfig.Container[*config.BaseConfig]
	logger   *glog.BaseLogger
	bunDB    *bun.DB
	repo     mudradesk.RepositoryManager
	auther   *mudradesk.Auther
	gate     *mudradesk.Gate
	sessions *mudradesk.CookieSessions
	uploads  *mudradesk.UploadStore
	verifier mudradesk.GSTVerifier
	srv      *fiber.App
}

func (a *App) Config() *config.BaseConfig {
	return a.config.Raw()
}

func (a *App) GetLogger(name string) glog.Logger {
	return a.logger.GetLogger(name)
}

func main() {
	lgr := glog.NewLogger(
		glog.WithLoggerTypePretty(),
		glog.WithLevel(glog.Trace),
		glog.WithName("app"),
		glog.WithAddSource(false),
		glog.WithRichErrorHandler(errors.ToSlogAttributes),
	)

	cfg := gconfig.New(&config.BaseConfig{}).
		WithLogger(lgr.GetLogger("config"))

	ctx := context.Background()
	if err := cfg.Load(ctx); err != nil {
		panic(err)
	}

	fmt.Println("============")
	fmt.Println(print.MaybeHighlightJSON(cfg.Raw()))
	fmt.Println("============")

	app := &App{
		config: cfg,
		logger: lgr,
	}

	if err := WithPersistence(ctx, app); err != nil {
		panic(err)
	}

	if err := WithUploads(ctx, app); err != nil {
		panic(err)
	}

	if err := WithHTTPServer(ctx, app); err != nil {
		panic(err)
	}

	if err := WithAuth(ctx, app); err != nil {
		panic(err)
	}

	Routes(app)

	addr := app.Config().GetServer().GetAddr()
	go func() {
		if err := app.srv.Listen(addr); err != nil {
			log.Fatal(err)
		}
	}()

	WaitExitSignal()

	if err := app.srv.ShutdownWithTimeout(10 * time.Second); err != nil {
		app.GetLogger("app").Error("shutdown error", "error", err)
	}
}

func WithPersistence(ctx context.Context, app *App) error {
	db, err := sql.Open(sqliteshim.ShimName, app.Config().GetPersistence().GetDSN())
	if err != nil {
		log.Fatal(err)
		return err
	}

	persistence.RegisterModel((*mudradesk.Account)(nil))

	cfg := app.Config().GetPersistence()
	dialect := sqlitedialect.New()
	client, err := persistence.New(cfg, db, dialect)
	if err != nil {
		log.Fatal(err)
		return err
	}

	client.SetLogger(app.GetLogger("persistence"))

	migrationsFS, err := fs.Sub(mudradesk.GetMigrationsFS(), "data/sql/migrations")
	if err != nil {
		return err
	}

	client.RegisterDialectMigrations(
		migrationsFS,
		persistence.WithDialectSourceLabel("data/sql/migrations"),
		persistence.WithValidationTargets("postgres", "sqlite"),
	)

	if err := client.ValidateDialects(ctx); err != nil {
		return err
	}

	if err := client.Migrate(ctx); err != nil {
		return err
	}

	app.bunDB = client.DB()
	app.repo = mudradesk.NewRepositoryManager(client.DB())

	return nil
}

func WithUploads(_ context.Context, app *App) error {
	cfg := app.Config().GetUploads()

	uploads, err := mudradesk.NewUploadStore(
		cfg.GetDir(),
		cfg.GetSharedDir(),
		mudradesk.WithUploadMaxBytes(cfg.GetMaxBytes()),
	)
	if err != nil {
		return err
	}

	app.uploads = uploads

	gst := app.Config().GetGST()
	app.verifier = mudradesk.NewHTTPGSTVerifier(
		gst.GetBaseURL(),
		gst.GetAPIKey(),
		mudradesk.WithGSTLogger(app.GetLogger("gst")),
	)

	return nil
}

func WithHTTPServer(_ context.Context, app *App) error {
	views, err := fs.Sub(mudradesk.GetViewsFS(), "views")
	if err != nil {
		return err
	}

	engine := django.NewFileSystem(http.FS(views), ".html")
	for name, fn := range mudradesk.TemplateHelpers() {
		engine.AddFunc(name, fn)
	}
	mudradesk.RegisterTemplateFilters()

	app.srv = fiber.New(fiber.Config{
		Views:             engine,
		PassLocalsToViews: true,
		BodyLimit:         int(app.Config().GetUploads().GetMaxBytes()),
		ErrorHandler:      ErrorHandler(app),
	})

	app.srv.Static("/static", "./public/static", fiber.Static{
		Compress: true,
	})

	return nil
}

func WithAuth(_ context.Context, app *App) error {
	cfg := app.Config().GetAuth()

	tokens := mudradesk.NewTokenService(
		[]byte(cfg.GetSigningKey()),
		cfg.GetSessionDays(),
		cfg.GetIssuer(),
		app.GetLogger("tokens"),
	)

	secure := cfg.GetSecureCookies() || app.Config().GetServer().IsProduction()
	app.sessions = mudradesk.NewCookieSessions(
		cfg.GetSessionCookie(),
		mudradesk.WithCookieDuration(time.Duration(cfg.GetSessionDays())*24*time.Hour),
		mudradesk.WithSecureCookies(secure),
		mudradesk.WithCookieLogger(app.GetLogger("sessions")),
	)

	app.auther = mudradesk.NewAuthenticator(app.repo.Accounts(), tokens).
		WithLogger(app.GetLogger("auth"))

	app.gate = mudradesk.NewGate(
		app.repo.Accounts(),
		tokens,
		app.sessions,
		mudradesk.WithGateLogger(app.GetLogger("gate")),
	)

	return nil
}

func Routes(app *App) {
	mudradesk.RegisterAuthRoutes(app.srv, func(c *mudradesk.AuthController) *mudradesk.AuthController {
		c.Logger = app.GetLogger("auth:web")
		c.Repo = app.repo
		c.Auther = app.auther
		c.Sessions = app.sessions
		c.Verifier = app.verifier
		return c
	})

	mudradesk.RegisterAdminRoutes(app.srv, func(c *mudradesk.AdminController) *mudradesk.AdminController {
		c.Logger = app.GetLogger("admin:web")
		c.Repo = app.repo
		c.Gate = app.gate
		c.Sessions = app.sessions
		return c
	})

	mudradesk.RegisterPageRoutes(app.srv, func(c *mudradesk.PagesController) *mudradesk.PagesController {
		c.Logger = app.GetLogger("pages:web")
		c.Gate = app.gate
		c.Uploads = app.uploads
		c.Verifier = app.verifier
		return c
	})
}

// ErrorHandler renders the 500 page for server faults and keeps
// fiber's plain-text response for everything else.
func ErrorHandler(app *App) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError

		var fe *fiber.Error
		if stderrors.As(err, &fe) {
			code = fe.Code
		}

		var richErr *errors.Error
		if errors.As(err, &richErr) && richErr.Code > 0 {
			code = richErr.Code
		}

		if code >= fiber.StatusInternalServerError {
			app.GetLogger("http").Error("request failed", "error", err, "path", c.Path())
			return c.Status(code).Render("errors/500", fiber.Map{})
		}

		return c.Status(code).SendString(err.Error())
	}
}

func WaitExitSignal() os.Signal {
	ch := make(chan os.Signal, 3)
	signal.Notify(ch,
		syscall.SIGINT,
		syscall.SIGQUIT,
		syscall.SIGTERM,
	)
	return <-ch
}
