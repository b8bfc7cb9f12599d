package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"communities.ooo/internal/auth"
	"communities.ooo/internal/community"
	"communities.ooo/internal/config"
	"communities.ooo/internal/httpapi"
	"communities.ooo/internal/identity"
	"communities.ooo/internal/migrate"
	"communities.ooo/internal/obs"
	"communities.ooo/internal/seed"
	"communities.ooo/internal/store/pg"
	"communities.ooo/internal/stream"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

func main() {
	obs.Init()
	log := obs.Logger()

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("load config")
	}
	if err := obs.SetLevel(cfg.LogLevel); err != nil {
		log.WithError(err).Fatal("log level")
	}
	obs.InitBuildInfo(version, commit)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.WithError(err).Fatal("communities-api stopped")
	}
	log.Info("stopped")
}

func run(ctx context.Context, cfg config.Config, log *logrus.Logger) error {
	issuer, err := auth.NewIssuer(cfg.AuthSecret, cfg.SessionTTL)
	if err != nil {
		return err
	}
	controllers := auth.NewStaticControllers(cfg.ControllerPrincipals()...)
	events := stream.New()

	opts := []community.Option{
		community.WithLogger(log),
		community.WithEvents(events),
		community.WithLedgerConfig(cfg.Ledger()),
		community.WithTopK(cfg.TopK),
	}
	if cfg.IDSeed != "" {
		opts = append(opts, community.WithIDSeed([]byte(cfg.IDSeed)))
	}
	svc := community.New(controllers, opts...)

	// Snapshots persist only when a database is configured.
	var snaps *pg.Store
	if cfg.PGDSN != "" {
		snaps, err = pg.Open(cfg.PGDSN)
		if err != nil {
			return err
		}
		defer snaps.Close()
		applied, err := migrate.NewManager(snaps.DB()).Up(ctx)
		if err != nil {
			return err
		}
		if len(applied) > 0 {
			log.WithField("migrations", applied).Info("schema migrated")
		}
		blob, found, err := snaps.Load(ctx)
		if err != nil {
			return err
		}
		if found {
			if err := svc.Restore(blob); err != nil {
				return err
			}
		}
	}

	if cfg.SeedDemo {
		var minter identity.Principal
		if ps := cfg.ControllerPrincipals(); len(ps) > 0 {
			minter = ps[0]
		}
		_, err := seed.Apply(ctx, svc, seed.Garden(), minter, time.Now().UnixNano(), log)
		switch {
		case errors.Is(err, seed.ErrNotEmpty):
			log.Info("state present, demo seed skipped")
		case err != nil:
			return err
		}
	}

	var probe httpapi.ReadyProbe
	if snaps != nil {
		probe.DB = snaps.DB()
	}
	api := httpapi.New(httpapi.Deps{
		Service:  svc,
		Issuer:   issuer,
		Verifier: identity.Passthrough{},
		Events:   events,
		Ready:    probe,
		Version:  version,
	},
		httpapi.WithCORSOrigins(cfg.CORSOrigins),
		httpapi.WithRateLimit(cfg.RatePerSecond, cfg.RateBurst),
		httpapi.WithMaxBodyBytes(cfg.MaxBodyBytes),
	)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	grpcSrv := httpapi.NewGRPCServer(probe)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.WithFields(logrus.Fields{"addr": srv.Addr, "version": version}).Info("http listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			return err
		}
		log.WithField("addr", cfg.GRPCAddr).Info("grpc listening")
		return grpcSrv.Serve(lis)
	})
	if snaps != nil && cfg.SnapshotInterval > 0 {
		g.Go(func() error {
			t := time.NewTicker(cfg.SnapshotInterval)
			defer t.Stop()
			for {
				select {
				case <-gctx.Done():
					return nil
				case <-t.C:
					if err := saveSnapshot(gctx, svc, snaps, log); err != nil {
						log.WithError(err).Error("periodic snapshot failed")
					}
				}
			}
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		grpcSrv.GracefulStop()
		err := srv.Shutdown(shutdownCtx)
		if snaps != nil {
			if serr := saveSnapshot(shutdownCtx, svc, snaps, log); serr != nil {
				err = errors.Join(err, serr)
			}
		}
		return err
	})
	return g.Wait()
}

func saveSnapshot(ctx context.Context, svc *community.Service, snaps *pg.Store, log *logrus.Logger) error {
	blob, err := svc.Snapshot()
	if err != nil {
		return err
	}
	v, err := snaps.Save(ctx, blob)
	if err != nil {
		return err
	}
	log.WithFields(logrus.Fields{"version": v, "bytes": len(blob)}).Debug("snapshot saved")
	return nil
}
