package main

import (
	"context"
	"log"

	firebase "firebase.google.com/go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"github.com/techagentng/findmenow/config"
	"github.com/techagentng/findmenow/db"
	"github.com/techagentng/findmenow/localstore"
	"github.com/techagentng/findmenow/logger"
	"github.com/techagentng/findmenow/metrics"
	"github.com/techagentng/findmenow/server"
	"github.com/techagentng/findmenow/services"
	"google.golang.org/api/option"
)

func initFirebase(ctx context.Context, conf *config.Config) (*firebase.App, error) {
	var opts []option.ClientOption
	if conf.GoogleApplicationCredentials != "" {
		opts = append(opts, option.WithCredentialsFile(conf.GoogleApplicationCredentials))
	}
	var fbConf *firebase.Config
	if conf.FirebaseProjectID != "" {
		fbConf = &firebase.Config{ProjectID: conf.FirebaseProjectID}
	}
	return firebase.NewApp(ctx, fbConf, opts...)
}

func openLocalStorage(ctx context.Context, conf *config.Config) (localstore.Expiring, error) {
	switch conf.LocalStorage {
	case config.StorageRedis:
		return localstore.NewRedis(ctx, localstore.RedisOptions{
			Addr:     conf.RedisAddr,
			Password: conf.RedisPassword,
			DB:       conf.RedisDB,
			Prefix:   "findmenow:",
		})
	case config.StorageMemory:
		return localstore.NewMemory(), nil
	default:
		return localstore.NewFile(conf.DataDir)
	}
}

func openBlobStore(ctx context.Context, conf *config.Config) (db.BlobStore, error) {
	if conf.PhotoStore != config.PhotoStoreS3 {
		return db.NewInlineBlobStore(), nil
	}
	client, err := db.CreateS3Client(ctx, conf)
	if err != nil {
		return nil, err
	}
	return db.NewS3BlobStore(client, conf.AWSBucket, conf.AWSRegion, conf.PhotoFolder), nil
}

func main() {
	conf, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	lg := logger.New(conf.Env, conf.LogLevel)
	ctx := context.Background()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewMetrics(reg)

	var (
		store       db.RecordStore
		authService services.AuthService
	)
	switch conf.Backend {
	case config.BackendFirestore:
		app, err := initFirebase(ctx, conf)
		if err != nil {
			lg.WithError(err).Fatal("error initializing Firebase app")
		}
		fs, err := app.Firestore(ctx)
		if err != nil {
			lg.WithError(err).Fatal("error getting Firestore client")
		}
		authClient, err := app.Auth(ctx)
		if err != nil {
			lg.WithError(err).Fatal("error getting Firebase Auth client")
		}
		store = db.NewFirestoreStore(fs)
		authService = services.NewFirebaseAuthService(authClient, conf, lg)

	case config.BackendPostgres:
		gormDB, err := db.GetDB(conf)
		if err != nil {
			lg.WithError(err).Fatal("error connecting to database")
		}
		store = db.NewReportRepo(gormDB)
		// revoked tokens outlive the process only with file or redis storage
		blacklist, err := openLocalStorage(ctx, conf)
		if err != nil {
			lg.WithError(err).Fatal("error opening token storage")
		}
		authService = services.NewLocalAuthService(blacklist, conf, lg)

	default:
		storage, err := openLocalStorage(ctx, conf)
		if err != nil {
			lg.WithError(err).Fatal("error opening local storage")
		}
		store = db.NewLocalStore(storage)
		authService = services.NewLocalAuthService(storage, conf, lg)
	}
	defer func() {
		if err := store.Close(); err != nil {
			lg.WithError(err).Error("closing record store")
		}
	}()

	blobs, err := openBlobStore(ctx, conf)
	if err != nil {
		lg.WithError(err).Fatal("error creating photo store")
	}

	reportService := services.NewReportService(
		store,
		blobs,
		services.NewNotificationService(conf, lg),
		conf,
		services.WithLogger(lg),
		services.WithMetrics(m),
	)

	s := &server.Server{
		Config:        conf,
		Log:           lg,
		Metrics:       m,
		Gatherer:      reg,
		ReportService: reportService,
		AuthService:   authService,
	}
	lg.WithFields(logrus.Fields{"backend": conf.Backend, "moderated": store.Moderated()}).Info("record store ready")

	if err := s.Start(); err != nil {
		lg.WithError(err).Error("server stopped")
	}
}
