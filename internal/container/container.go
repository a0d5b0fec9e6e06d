package container

import (
	"context"
	"log/slog"

	"github.com/joshua-takyi/evently/internal/config"
	"github.com/joshua-takyi/evently/internal/connect"
	"github.com/joshua-takyi/evently/internal/helpers"
	"github.com/joshua-takyi/evently/internal/i18n"
	"github.com/joshua-takyi/evently/internal/models"
	"github.com/joshua-takyi/evently/internal/nickname"
	"github.com/joshua-takyi/evently/internal/services"
	"github.com/joshua-takyi/evently/internal/session"
	"github.com/joshua-takyi/evently/internal/storage"
)

const avatarFolder = "avatars"

// Repos groups the repository implementations the services run on.
type Repos struct {
	Events        models.EventRepo
	Bookings      models.BookingRepo
	Organizations models.OrganizationRepo
	Profiles      models.ProfileRepo
	Auth          models.AuthRepo
	// Sessions is nil when no audit store is configured.
	Sessions models.SessionEventRepo
}

// Options are the pieces that do not come from the data store.
type Options struct {
	Avatars        storage.AvatarStore
	TokenValidator helpers.TokenValidator
	// Nicknames answers ErrNotConfigured when built without a URL.
	Nicknames     *nickname.Client
	DefaultLocale string
	CORSOrigins   []string
	SecureCookies bool
}

// Container holds all application dependencies
type Container struct {
	Logger         *slog.Logger
	Translator     *i18n.Translator
	TokenValidator helpers.TokenValidator
	Broker         *session.Broker
	SessionRepo    models.SessionEventRepo
	Nicknames      *nickname.Client
	CORSOrigins    []string
	SecureCookies  bool

	UserService         *services.UserService
	EventService        *services.EventService
	BookingService      *services.BookingService
	OrganizationService *services.OrganizationService
}

// Assemble wires services over repos.
func Assemble(logger *slog.Logger, repos Repos, opts Options) *Container {
	broker := session.NewBroker(0)
	if opts.Nicknames == nil {
		opts.Nicknames = nickname.New("", "", nil)
	}
	if len(opts.CORSOrigins) == 0 {
		opts.CORSOrigins = []string{"http://localhost:3000"}
	}
	return &Container{
		Logger:         logger,
		Translator:     i18n.NewTranslator(opts.DefaultLocale, logger),
		TokenValidator: opts.TokenValidator,
		Broker:         broker,
		SessionRepo:    repos.Sessions,
		Nicknames:      opts.Nicknames,
		CORSOrigins:    opts.CORSOrigins,
		SecureCookies:  opts.SecureCookies,

		UserService:         services.NewUserService(repos.Auth, repos.Profiles, opts.Avatars, broker),
		EventService:        services.NewEventService(repos.Events),
		BookingService:      services.NewBookingService(repos.Events, repos.Bookings, logger),
		OrganizationService: services.NewOrganizationService(repos.Organizations),
	}
}

// NewContainer creates a new dependency injection container from the live
// connections. Auth always goes through Supabase; tables go through the
// backend named by STORE_BACKEND.
func NewContainer(logger *slog.Logger, cfg *config.Config, clients *connect.Clients, validator helpers.TokenValidator) *Container {
	supa := models.SupabaseNewRepo(clients.Supabase, cfg.SupabaseURL, cfg.SupabaseAnonKey)

	repos := Repos{
		Events:        supa,
		Bookings:      supa,
		Organizations: supa,
		Profiles:      supa,
		Auth:          supa,
	}
	if cfg.StoreBackend == config.BackendPostgres {
		pg := models.PostgresNewRepo(clients.Postgres)
		repos.Events = pg
		repos.Bookings = pg
		repos.Organizations = pg
		repos.Profiles = pg
	}
	if clients.Mongo != nil {
		repos.Sessions = models.MongodbNewRepo(clients.Mongo)
	}

	var avatars storage.AvatarStore
	if cfg.AvatarBackend == config.BackendCloudinary {
		avatars = storage.NewCloudinaryStore(clients.Cloudinary, avatarFolder)
	} else {
		avatars = storage.NewSupabaseStore(supa.ClientFor, cfg.AvatarBucket)
	}

	return Assemble(logger, repos, Options{
		Avatars:        avatars,
		TokenValidator: validator,
		Nicknames:      nickname.New(cfg.NicknameURL, cfg.NicknameModel, nil),
		DefaultLocale:  cfg.DefaultLocale,
		CORSOrigins:    cfg.CORSOrigins,
		SecureCookies:  cfg.IsProduction(),
	})
}

// StartRecorder persists session events until the broker closes. It does
// nothing without an audit store.
func (c *Container) StartRecorder() {
	if c.SessionRepo == nil {
		return
	}
	events := c.Broker.Subscribe(context.Background())
	go session.NewRecorder(c.SessionRepo, c.Logger).Run(events)
}
