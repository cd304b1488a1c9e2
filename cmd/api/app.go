package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"circlenotes/cmd/internal/config"
	"circlenotes/cmd/internal/domain/database"
	"circlenotes/cmd/internal/domain/database/repository"
	"circlenotes/cmd/internal/domain/policy"
	"circlenotes/cmd/internal/infrastructure/aws/cognito"
	"circlenotes/cmd/internal/infrastructure/aws/storage"
	"circlenotes/cmd/internal/infrastructure/aws/websocket"
	"circlenotes/cmd/internal/infrastructure/ranking"
	"circlenotes/cmd/internal/infrastructure/search"
	"circlenotes/cmd/internal/service"
	"circlenotes/cmd/internal/service/jobs"
	"circlenotes/cmd/internal/utils"
	"circlenotes/cmd/internal/utils/validators"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/gommon/log"
	"gorm.io/gorm"
)

const shutdownTimeout = 10 * time.Second

type app struct {
	cfg      *config.Config
	db       *gorm.DB
	validate *validator.Validate
	closers  []func()

	tokens       *utils.TokenValidator
	identity     *service.IdentityService
	pipeline     *service.ItemPipeline
	trending     *service.TrendingService
	items        *service.DefaultItemService
	containers   *service.DefaultContainerService
	interactions *service.DefaultInteractionService
	users        *service.DefaultUserService
	websockets   *service.WebSocketService
}

func bootstrap(ctx context.Context) (*app, error) {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, validate: validators.New()}
	if err := a.wire(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) wire(ctx context.Context) error {
	db, err := database.Init(a.cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	a.db = db
	a.closers = append(a.closers, func() { _ = database.Close(db) })

	blobs, err := a.openBlobs(ctx)
	if err != nil {
		return err
	}

	index, err := a.openIndex(ctx)
	if err != nil {
		return err
	}

	store, err := a.openRanking(ctx)
	if err != nil {
		return err
	}

	gateway, err := a.openGateway(ctx)
	if err != nil {
		return err
	}

	directory, err := a.openDirectory(ctx)
	if err != nil {
		return err
	}

	compiler := policy.NewCompiler()
	tx := database.NewTransactor(db)

	userRepo := repository.NewUserRepository(db)
	itemRepo := repository.NewItemRepository(db, compiler)
	containerRepo := repository.NewContainerRepository(db, compiler)
	membershipRepo := repository.NewMembershipRepository(db)
	connRepo := repository.NewConnectionRepository(db)

	a.websockets = service.NewWebSocketService(connRepo, gateway)
	if directory != nil {
		a.identity = service.NewIdentityService(userRepo, directory)
	} else {
		a.identity = service.NewIdentityService(userRepo, nil)
	}

	a.pipeline = service.NewItemPipeline(itemRepo, tx, blobs, index)
	a.trending = service.NewTrendingService(store, itemRepo)

	access := service.NewContainerAccess(containerRepo, membershipRepo)
	a.containers = service.NewContainerService(access, tx, a.validate)
	a.items = service.NewItemService(itemRepo, access, a.pipeline, index, a.trending, a.websockets, a.validate)
	a.interactions = service.NewInteractionService(
		itemRepo,
		userRepo,
		repository.NewLikeRepository(db),
		repository.NewStockRepository(db),
		repository.NewFollowRepository(db),
		tx,
		a.trending,
		a.validate,
	)
	a.users = service.NewUserService(userRepo, a.identity, a.websockets, a.validate)
	return nil
}

func (a *app) openBlobs(ctx context.Context) (storage.BlobStore, error) {
	if a.cfg.Storage.Type != "s3" {
		log.Warn("Using in-memory blob storage, bodies are lost on restart")
		return storage.NewMemoryStore(), nil
	}

	s := a.cfg.Storage
	store, err := storage.NewS3Store(ctx, storage.S3Config{
		Bucket:          s.Bucket,
		Region:          s.Region,
		Endpoint:        s.Endpoint,
		AccessKeyID:     s.AccessKeyID,
		SecretAccessKey: s.SecretAccessKey,
		UsePathStyle:    s.PathStyle,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to init S3 storage: %w", err)
	}
	return store, nil
}

func (a *app) openIndex(ctx context.Context) (search.Index, error) {
	if a.cfg.Search.Type != "surreal" {
		log.Warn("Using in-memory search index, documents are lost on restart")
		return search.NewMemoryIndex(), nil
	}

	s := a.cfg.Search
	index, err := search.NewSurrealIndex(ctx, search.SurrealConfig{
		Endpoint:  s.Endpoint,
		Namespace: s.Namespace,
		Database:  s.Database,
		User:      s.User,
		Password:  s.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to SurrealDB: %w", err)
	}
	a.closers = append(a.closers, func() { _ = index.Close(context.Background()) })

	fields := make([]string, len(service.ItemSearchFields))
	for i, f := range service.ItemSearchFields {
		fields[i] = f.Field
	}

	if err := index.Define(ctx, search.IndexSpec{Name: search.IndexItems, Fields: fields}); err != nil {
		return nil, fmt.Errorf("failed to define search index: %w", err)
	}
	return index, nil
}

func (a *app) openRanking(ctx context.Context) (ranking.Store, error) {
	if a.cfg.Ranking.Type != "redis" {
		log.Warn("Using in-memory ranking store, trending counters are lost on restart")
		return ranking.NewMemoryStore(), nil
	}

	r := a.cfg.Ranking
	store, err := ranking.NewRedisStore(ctx, ranking.RedisConfig{
		Addr:     r.Addr,
		Password: r.Password,
		DB:       r.DB,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	a.closers = append(a.closers, func() { _ = store.Close() })
	return store, nil
}

func (a *app) openGateway(ctx context.Context) (websocket.GatewayClient, error) {
	rt := a.cfg.Realtime
	if !rt.Enabled || rt.Endpoint == "" {
		return websocket.NoopGatewayClient{}, nil
	}

	gateway, err := websocket.NewAWSGatewayClient(ctx, rt.Endpoint, rt.Region)
	if err != nil {
		return nil, fmt.Errorf("failed to init websocket gateway: %w", err)
	}
	return gateway, nil
}

// openDirectory returns nil when no user pool is configured.
func (a *app) openDirectory(ctx context.Context) (*cognito.Directory, error) {
	id := a.cfg.Identity
	if id.UserPoolID == "" {
		return nil, nil
	}

	dir, err := cognito.NewDirectory(ctx, id.Region, id.UserPoolID)
	if err != nil {
		return nil, fmt.Errorf("failed to init Cognito directory: %w", err)
	}
	return dir, nil
}

func (a *app) Serve(ctx context.Context) error {
	jwks := a.cfg.Identity.JWKS()
	if jwks == "" {
		return errors.New("no signing keys configured, set COGNITO_USER_POOL_ID or JWKS_URL")
	}

	tokens, err := utils.NewTokenValidator(jwks, a.cfg.Identity.Issuer)
	if err != nil {
		return err
	}
	a.tokens = tokens

	if a.cfg.Jobs.TrendingEnabled {
		go jobs.NewTrendingJob(a.trending).Start(ctx)
	}
	if a.cfg.Jobs.CleanerEnabled {
		go jobs.NewConnectionCleaner(a.websockets).Start(ctx)
	}

	e := a.router()
	errCh := make(chan error, 1)
	go func() {
		if err := e.Start(a.cfg.Address); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}
