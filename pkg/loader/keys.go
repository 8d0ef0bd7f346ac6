package loader

// Well-known container keys. These are opaque strings but a stable public
// contract: any code resolving a core service through the container must
// use these constants rather than inline literals.
const (
	KeyEnv                 = "env"
	KeyDatabaseService     = "database.service"
	KeyConfiguratorService = "configurator.service"
	KeyLicensingService    = "licensing.service"
	KeyAuditService        = "audit.service"
	KeyAuditSink           = "audit.sink"
	KeyAuthService         = "auth.service"
	KeyUserService         = "user.service"
	KeyUserRepository      = "user.repository"
	KeyTranslationService  = "translation.service"
)

// coreInfrastructure is the set of feature ids whose services are
// registered directly by the loader rather than discovered as features;
// they never gain implicit dependency edges during boot-order computation.
var coreInfrastructure = map[string]bool{
	"licensing":    true,
	"configurator": true,
	"database":     true,
}
