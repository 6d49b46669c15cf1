package config

type SecurityLevel int

const (
	SecurityPublic        SecurityLevel = iota // No authentication
	SecurityAuthenticated                      // Valid identity token required
)

// EndpointSecurityConfig maps route templates to their required security level.
// Routes not listed here require authentication.
var EndpointSecurityConfig = map[string]SecurityLevel{
	"POST /api/auth/login":  SecurityPublic,
	"POST /api/auth/logout": SecurityPublic,
	"GET /api/health":       SecurityPublic,
	"GET /api/files/{key}":  SecurityPublic,
	"GET /metrics":          SecurityPublic,

	// gRPC methods are keyed with the pseudo-method GRPC.
	"GRPC /grpc.health.v1.Health/Check":                                   SecurityPublic,
	"GRPC /grpc.health.v1.Health/Watch":                                   SecurityPublic,
	"GRPC /grpc.health.v1.Health/List":                                    SecurityPublic,
	"GRPC /grpc.reflection.v1.ServerReflection/ServerReflectionInfo":      SecurityPublic,
	"GRPC /grpc.reflection.v1alpha.ServerReflection/ServerReflectionInfo": SecurityPublic,
}

// GRPCMethod is the method half of gRPC entries in EndpointSecurityConfig.
const GRPCMethod = "GRPC"

// GetSecurityLevel returns the security level for a method and route template
func GetSecurityLevel(method, pathTemplate string) SecurityLevel {
	if level, ok := EndpointSecurityConfig[method+" "+pathTemplate]; ok {
		return level
	}
	return SecurityAuthenticated
}
