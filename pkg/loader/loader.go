// Package loader is the composition root: it loads the process
// environment, registers core infrastructure, discovers feature
// descriptors, computes a dependency-respecting boot order, and registers
// each feature into the container in that order. Registering the audit
// subsystem is a hard gate — nothing discovered after it in boot order is
// reachable until the audit sink resolves successfully, and boot aborts if
// it never does.
package loader

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/qmtool-platform/qmtool-core/pkg/audit"
	"github.com/qmtool-platform/qmtool-core/pkg/configurator"
	"github.com/qmtool-platform/qmtool-core/pkg/container"
	"github.com/qmtool-platform/qmtool-core/pkg/database"
	"github.com/qmtool-platform/qmtool-core/pkg/descriptor"
	"github.com/qmtool-platform/qmtool-core/pkg/env"
	"github.com/qmtool-platform/qmtool-core/pkg/feature"
	"github.com/qmtool-platform/qmtool-core/pkg/license"
)

// Options configure a Loader. All fields are optional; zero values pick
// sane defaults equivalent to the original's.
type Options struct {
	ConfigPath  string
	ProjectRoot string
	// SkipFeatures is a set of feature ids to skip registration for,
	// intended for tests. Skipping "audittrail" is always a hard
	// failure: audit is mandatory.
	SkipFeatures []string
	Logger       *slog.Logger
	// Strict controls descriptor-discovery strictness (spec §4.2): a
	// malformed meta.json aborts the whole scan instead of being
	// skipped with a warning.
	Strict bool
	// AdminUserIDs / QMBUserIDs parameterize the audit access policy
	// (spec §4.4's access-control contract).
	AdminUserIDs []int64
	QMBUserIDs   []int64
}

// Loader is the application bootstrap and composition root, grounded on
// original_source/core/loader/loader.py's Loader class.
type Loader struct {
	opts Options

	container *container.Container
	env       *env.AppEnv

	mu      sync.Mutex
	booted  bool
	bootLog []string
	bootID  string

	dbService *database.Service
}

// BootID returns the correlation id generated for the most recent Boot
// call, or "" if Boot has not run yet. Every log line emitted during a
// boot sequence carries this id, so a server's own logs can be cross
// referenced against an operator's qmtoolctl invocation for the same run.
func (l *Loader) BootID() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.bootID
}

// New returns a Loader that has not yet booted.
func New(opts Options) *Loader {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	skip := make([]string, len(opts.SkipFeatures))
	copy(skip, opts.SkipFeatures)
	opts.SkipFeatures = skip
	return &Loader{opts: opts, container: container.New()}
}

func (l *Loader) skips(id string) bool {
	for _, s := range l.opts.SkipFeatures {
		if s == id {
			return true
		}
	}
	return false
}

// Boot runs the boot sequence described in spec §4.6. It is idempotent:
// a second call on an already-booted Loader is a no-op returning the
// cached boot log.
func (l *Loader) Boot(ctx context.Context) ([]string, error) {
	l.mu.Lock()
	if l.booted {
		l.mu.Unlock()
		l.opts.Logger.Warn("application already booted")
		return l.bootLog, nil
	}
	l.mu.Unlock()

	bootID := uuid.NewString()
	l.mu.Lock()
	l.bootID = bootID
	l.mu.Unlock()
	l.opts.Logger = l.opts.Logger.With("boot_id", bootID)
	l.opts.Logger.Info("starting application boot sequence")

	// Step 1: load configuration.
	loadedEnv, err := env.Load(l.opts.ConfigPath, l.opts.ProjectRoot, l.opts.Logger)
	if err != nil {
		return nil, &BootstrapError{Reason: err.Error()}
	}
	l.env = loadedEnv
	if err := l.container.RegisterSingleton(KeyEnv, func() (any, error) { return l.env, nil }); err != nil {
		return nil, &BootstrapError{Reason: err.Error()}
	}
	l.opts.Logger.Info("configuration loaded")

	// Step 2: register core infrastructure.
	if err := l.registerInfrastructure(); err != nil {
		return nil, err
	}

	// Step 3: discover features.
	features, err := l.discoverFeatures()
	if err != nil {
		return nil, err
	}

	// Step 4: compute boot order.
	bootOrder, err := computeBootOrder(features)
	if err != nil {
		return nil, err
	}

	// Step 5: register features in boot order, hard-gating on audittrail.
	for _, featureID := range bootOrder {
		if l.skips(featureID) {
			l.opts.Logger.Info("skipping feature", "feature", featureID)
			if featureID == "audittrail" {
				return nil, &AuditSinkNotAvailableError{Reason: "audittrail feature was skipped but audit is mandatory"}
			}
			continue
		}

		if err := l.registerFeature(ctx, featureID, features[featureID]); err != nil {
			return nil, err
		}
		l.bootLog = append(l.bootLog, featureID)

		if featureID == "audittrail" {
			if err := l.verifyAuditSink(); err != nil {
				return nil, err
			}
		}
	}

	// Step 6: final hard-gate recheck.
	if !l.container.IsRegistered(KeyAuditSink) {
		return nil, &AuditSinkNotAvailableError{Reason: "audit sink was not registered"}
	}

	// Step 7: start every registered feature.
	if err := l.startFeatures(ctx); err != nil {
		return nil, err
	}

	l.mu.Lock()
	l.booted = true
	l.mu.Unlock()
	l.opts.Logger.Info("boot complete", "features", l.bootLog)
	return l.bootLog, nil
}

// Container returns the DI container. Safe to call at any time; it is
// empty until Boot has run.
func (l *Loader) Container() *container.Container {
	return l.container
}

// Env returns the loaded AppEnv. It is a BootstrapError to call this
// before Boot has completed successfully.
func (l *Loader) Env() (*env.AppEnv, error) {
	if l.env == nil {
		return nil, &BootstrapError{Reason: "application not booted yet"}
	}
	return l.env, nil
}

func (l *Loader) registerInfrastructure() error {
	l.opts.Logger.Info("registering infrastructure services")

	l.registerLicensing()
	l.registerConfigurator()
	if err := l.registerDatabase(); err != nil {
		return err
	}
	return nil
}

// registerLicensing registers the license service. A missing license file
// is not a registration failure (spec §4.5: verification degrades to
// StatusMissing, not a boot abort) so this never returns an error, mirroring
// the original's warn-and-continue ImportError handling.
func (l *Loader) registerLicensing() {
	err := l.container.RegisterSingleton(KeyLicensingService, func() (any, error) {
		backend := license.NewFileBackend(l.env.LicensePath, license.NewAcceptAnyValidBase64Verifier(), l.opts.Logger)
		fp := license.NewProcessFingerprintProvider()
		return license.NewService(backend, fp, l.opts.Logger), nil
	})
	if err != nil {
		l.opts.Logger.Warn("failed to register licensing", "error", err)
		return
	}
	l.opts.Logger.Info("licensing service registered")
}

func (l *Loader) registerConfigurator() {
	err := l.container.RegisterSingleton(KeyConfiguratorService, func() (any, error) {
		descRepo := descriptor.New(l.env.FeaturesRoot, l.opts.Strict, l.opts.Logger)
		appCfgLoader := configurator.NewAppConfigLoader(l.env.ProjectRoot, l.opts.Logger)
		return configurator.New(descRepo, appCfgLoader), nil
	})
	if err != nil {
		l.opts.Logger.Warn("failed to register configurator", "error", err)
		return
	}
	l.opts.Logger.Info("configurator service registered")
}

func (l *Loader) registerDatabase() error {
	err := l.container.RegisterSingleton(KeyDatabaseService, func() (any, error) {
		svc, err := database.Open(l.env.DatabaseURL, l.env.DBEcho, l.opts.Logger)
		if err != nil {
			return nil, err
		}
		l.dbService = svc
		return svc, nil
	})
	if err != nil {
		return &BootstrapError{Reason: err.Error()}
	}
	l.opts.Logger.Info("database service registered")
	return nil
}

func (l *Loader) discoverFeatures() (map[string]*descriptor.FeatureDescriptor, error) {
	raw, err := l.container.Resolve(KeyConfiguratorService)
	if err != nil {
		return nil, &BootstrapError{Reason: err.Error()}
	}
	cfg := raw.(*configurator.Service)

	descriptors, err := cfg.DiscoverFeatures()
	if err != nil {
		return nil, &BootstrapError{Reason: err.Error()}
	}

	out := make(map[string]*descriptor.FeatureDescriptor, len(descriptors))
	ids := make([]string, 0, len(descriptors))
	for _, d := range descriptors {
		out[d.ID] = d
		ids = append(ids, d.ID)
	}
	sort.Strings(ids)
	l.opts.Logger.Info("discovered features", "features", ids)
	return out, nil
}

func (l *Loader) registerFeature(ctx context.Context, id string, d *descriptor.FeatureDescriptor) error {
	l.opts.Logger.Info("registering feature", "feature", id)

	switch id {
	case "audittrail":
		return l.registerAudittrail()
	case "user_management":
		return l.registerUserManagement()
	case "authenticator":
		return l.registerAuthenticator()
	case "translation":
		return l.registerTranslation()
	case "licensing", "configurator", "database":
		// Already registered as infrastructure.
		return nil
	default:
		if m, ok := feature.Lookup(id); ok {
			if err := m.Register(ctx, l.container, l.env); err != nil {
				return &FeatureLoadError{FeatureID: id, Reason: err.Error()}
			}
			return nil
		}
		l.opts.Logger.Warn("no registration handler for feature", "feature", id)
		return nil
	}
}

// registerAudittrail registers the audit service and aliases audit.sink to
// it. This registration is mandatory: spec §1, §2, §4.6.
func (l *Loader) registerAudittrail() error {
	err := l.container.RegisterSingleton(KeyAuditService, func() (any, error) {
		dbRaw, err := l.container.Resolve(KeyDatabaseService)
		if err != nil {
			return nil, err
		}
		db := dbRaw.(*database.Service)

		repo := audit.NewRepository(db.DB())
		if err := repo.AutoMigrate(); err != nil {
			return nil, err
		}

		cfgRaw, err := l.container.Resolve(KeyConfiguratorService)
		if err != nil {
			return nil, err
		}
		cfg := cfgRaw.(*configurator.Service)

		policy := audit.NewDefaultPolicy(l.opts.AdminUserIDs, l.opts.QMBUserIDs)
		return audit.NewService(repo, policy, cfg, l.env.GlobalRetentionDays, l.opts.Logger), nil
	})
	if err != nil {
		return &FeatureLoadError{FeatureID: "audittrail", Reason: err.Error()}
	}
	if err := l.container.RegisterAlias(KeyAuditSink, KeyAuditService); err != nil {
		return &FeatureLoadError{FeatureID: "audittrail", Reason: err.Error()}
	}
	l.opts.Logger.Info("audit service registered (mandatory)")
	return nil
}

func (l *Loader) registerUserManagement() error {
	if err := l.container.RegisterSingleton(KeyUserRepository, func() (any, error) {
		return feature.StubUserRepository{}, nil
	}); err != nil {
		return &FeatureLoadError{FeatureID: "user_management", Reason: err.Error()}
	}
	err := l.container.RegisterSingleton(KeyUserService, func() (any, error) {
		repoRaw, err := l.container.Resolve(KeyUserRepository)
		if err != nil {
			return nil, err
		}
		return feature.StubUserService{Repo: repoRaw.(feature.UserRepository)}, nil
	})
	if err != nil {
		return &FeatureLoadError{FeatureID: "user_management", Reason: err.Error()}
	}
	l.opts.Logger.Info("user management service registered")
	return nil
}

func (l *Loader) registerAuthenticator() error {
	err := l.container.RegisterSingleton(KeyAuthService, func() (any, error) {
		if _, err := l.container.Resolve(KeyUserRepository); err != nil {
			return nil, &DependencyError{FeatureID: "authenticator", Dependency: KeyUserRepository}
		}
		return feature.StubAuthService{}, nil
	})
	if err != nil {
		return &FeatureLoadError{FeatureID: "authenticator", Reason: err.Error()}
	}
	l.opts.Logger.Info("authenticator service registered")
	return nil
}

func (l *Loader) registerTranslation() error {
	err := l.container.RegisterSingleton(KeyTranslationService, func() (any, error) {
		return feature.StubTranslationService{}, nil
	})
	if err != nil {
		return &FeatureLoadError{FeatureID: "translation", Reason: err.Error()}
	}
	l.opts.Logger.Info("translation service registered")
	return nil
}

// verifyAuditSink is the hard gate: it aborts boot the moment the audit
// sink cannot be resolved, immediately after audittrail registers.
func (l *Loader) verifyAuditSink() error {
	if !l.container.IsRegistered(KeyAuditSink) {
		return &AuditSinkNotAvailableError{}
	}
	sink, err := l.container.Resolve(KeyAuditSink)
	if err != nil {
		return &AuditSinkNotAvailableError{Reason: "failed to resolve audit sink: " + err.Error()}
	}
	if sink == nil {
		return &AuditSinkNotAvailableError{Reason: "audit sink resolved to nil"}
	}
	l.opts.Logger.Info("audit sink verification passed (hard gate)")
	return nil
}

func (l *Loader) startFeatures(ctx context.Context) error {
	l.opts.Logger.Info("starting features")

	if l.container.IsRegistered(KeyDatabaseService) {
		if _, err := l.container.Resolve(KeyDatabaseService); err != nil {
			l.opts.Logger.Warn("failed to ensure database schema", "error", err)
		} else if l.dbService != nil {
			if err := l.dbService.EnsureSchema(); err != nil {
				l.opts.Logger.Warn("failed to ensure database schema", "error", err)
			} else {
				l.opts.Logger.Info("database schema ensured")
			}
		}
	}

	for _, id := range l.bootLog {
		m, ok := feature.Lookup(id)
		if !ok {
			continue
		}
		if err := m.Start(ctx, l.container); err != nil {
			return &FeatureLoadError{FeatureID: id, Reason: err.Error()}
		}
	}
	return nil
}
