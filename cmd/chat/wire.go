package main

import (
	"database/sql"
	"fmt"
	"log"

	"client_go/internal/api"
	"client_go/internal/config"
	"client_go/internal/domain"
	"client_go/internal/security"
	"client_go/internal/service"
	"client_go/internal/session"
	"client_go/internal/store/memory"
	"client_go/internal/store/postgres"
	"client_go/internal/store/sqlite"
	"client_go/internal/tui"
)

// app holds the wired client for one invocation.
type app struct {
	cfg      *config.Config
	db       *sql.DB
	sessions *session.Store
	client   *api.Client

	auth     *service.AuthService
	friends  *service.FriendList
	requests *service.FriendRequests
	groups   *service.GroupList
	draft    *service.GroupDraft
}

func newApp(cfg *config.Config) (*app, error) {
	a := &app{cfg: cfg}

	repo, err := a.openState()
	if err != nil {
		return nil, err
	}

	var sealer session.Sealer
	if cfg.StateDriver != config.DriverMemory {
		enc, err := security.NewEncryptor([]byte(cfg.EncryptKey), cfg.LegacyKeys)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("init encryptor: %w", err)
		}
		sealer = enc
	}

	a.sessions = session.NewStore(repo, sealer)
	a.client = api.NewClient(cfg.APIURL, cfg.RequestTimeout, a.sessions)

	a.auth = service.NewAuthService(a.client, a.sessions)
	a.friends = service.NewFriendList(a.client)
	a.requests = service.NewFriendRequests(a.client)
	a.groups = service.NewGroupList(a.client, a.sessions)
	a.draft = service.NewGroupDraft(a.client)
	return a, nil
}

func (a *app) openState() (domain.StateRepository, error) {
	switch a.cfg.StateDriver {
	case config.DriverMemory:
		log.Printf("state: in-memory, the session will not survive this process")
		return memory.NewStateRepo(), nil
	case config.DriverPostgres:
		db, err := postgres.Open(a.cfg.StateDSN)
		if err != nil {
			return nil, fmt.Errorf("open state database: %w", err)
		}
		a.db = db
		if err := postgres.Migrate(db); err != nil {
			a.close()
			return nil, fmt.Errorf("migrate state database: %w", err)
		}
		return postgres.NewStateRepo(db, a.cfg.StateOwner), nil
	default:
		db, err := sqlite.Open(a.cfg.StateDSN)
		if err != nil {
			return nil, fmt.Errorf("open state database: %w", err)
		}
		a.db = db
		if err := sqlite.Migrate(db); err != nil {
			a.close()
			return nil, fmt.Errorf("migrate state database: %w", err)
		}
		return sqlite.NewStateRepo(db), nil
	}
}

func (a *app) services() tui.Services {
	return tui.Services{
		Auth:      a.auth,
		Friends:   a.friends,
		Requests:  a.requests,
		Groups:    a.groups,
		Draft:     a.draft,
		Directory: a.client,
		Threads:   a.client,
		Sessions:  a.sessions,
	}
}

func (a *app) close() {
	if a.db != nil {
		_ = a.db.Close()
	}
}
