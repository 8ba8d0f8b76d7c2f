package main

import (
	"context"

	"github.com/turtacn/ChemXGen/internal/application/billing"
	"github.com/turtacn/ChemXGen/internal/application/identity"
	"github.com/turtacn/ChemXGen/internal/application/project"
	"github.com/turtacn/ChemXGen/internal/bootstrap"
	"github.com/turtacn/ChemXGen/internal/domain/user"
	"github.com/turtacn/ChemXGen/internal/infrastructure/auth/keycloak"
	"github.com/turtacn/ChemXGen/internal/infrastructure/billing/stripe"
	"github.com/turtacn/ChemXGen/internal/infrastructure/database/postgres"
	"github.com/turtacn/ChemXGen/internal/infrastructure/database/postgres/repositories"
	"github.com/turtacn/ChemXGen/internal/interfaces/http/handlers"
)

// services holds the optional account-facing services.  A nil field means
// the backing system is not configured and its routes stay unmounted.
type services struct {
	keycloak *keycloak.Client
	identity *identity.Service
	billing  *billing.Service
	projects *project.Service
}

func buildServices(ctx context.Context, rt *bootstrap.Runtime) (*services, error) {
	cfg := rt.Config
	log := rt.Logger
	svc := &services{}

	var profiles user.ProfileRepository
	if cfg.Database.Enabled {
		conn, err := postgres.NewConnection(ctx, cfg.Database, log.Named("postgres"))
		if err != nil {
			return nil, err
		}
		rt.Cleanup.Add("postgres", conn.Close)
		rt.Checks = append(rt.Checks, bootstrap.Check{Name: "postgres", Fn: conn.HealthCheck})

		if cfg.Database.AutoMigrate {
			m, err := postgres.NewMigrator(conn, log.Named("migrate"))
			if err != nil {
				return nil, err
			}
			if err := m.Up(); err != nil {
				return nil, err
			}
		}
		profiles = repositories.NewPostgresProfileRepo(conn, log)
		svc.projects = project.NewService(repositories.NewPostgresProjectRepo(conn, log), log)
	}

	if cfg.Keycloak.Enabled {
		kc := cfg.Keycloak
		var opts []keycloak.ClientOption
		if rt.Metrics != nil {
			opts = append(opts, keycloak.WithObserver(rt.Metrics))
		}
		client, err := keycloak.NewClient(ctx, keycloak.Config{
			BaseURL:        kc.BaseURL,
			Realm:          kc.Realm,
			ClientID:       kc.ClientID,
			ClientSecret:   kc.ClientSecret,
			RequestTimeout: kc.RequestTimeout,
			JWKSRefresh:    kc.JWKSRefresh,
		}, log, opts...)
		if err != nil {
			return nil, err
		}
		svc.keycloak = client
		svc.identity = identity.NewService(client, profiles, log)
	}

	if cfg.Billing.Enabled {
		provider, err := stripe.NewProvider(stripe.Config{SecretKey: cfg.Billing.SecretKey}, log)
		if err != nil {
			return nil, err
		}
		svc.billing = billing.NewService(provider, billing.Config{
			Plans:   cfg.Billing.Plans,
			BaseURL: cfg.Billing.PublicBaseURL,
		}, log)
	}
	return svc, nil
}

func healthCheckers(checks []bootstrap.Check) []handlers.HealthChecker {
	out := make([]handlers.HealthChecker, len(checks))
	for i, c := range checks {
		out[i] = handlers.CheckFunc{ComponentName: c.Name, Fn: c.Fn}
	}
	return out
}
